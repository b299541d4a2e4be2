package owntracks

import "math/rand/v2"

// Bounds of the demo area used for generated pings
const (
	MinDemoLat = 29.58
	MaxDemoLat = 34.58
	MinDemoLon = 112.42
	MaxDemoLon = 119.14
)

// RandomLocation returns a uniformly random (lat, lon) inside the demo area
func RandomLocation(r *rand.Rand) (lat, lon float64) {
	if r == nil {
		lat = MinDemoLat + rand.Float64()*(MaxDemoLat-MinDemoLat)
		lon = MinDemoLon + rand.Float64()*(MaxDemoLon-MinDemoLon)
		return lat, lon
	}
	lat = MinDemoLat + r.Float64()*(MaxDemoLat-MinDemoLat)
	lon = MinDemoLon + r.Float64()*(MaxDemoLon-MinDemoLon)
	return lat, lon
}
