package util

import (
	"strconv"
	"time"
)

// DateLayout is the calendar date format used in query strings
const DateLayout = "2006-01-02"

// ParseInt parses a string to an integer, returning defaultValue if parsing fails
func ParseInt(s string, defaultValue int) int {
	if val, err := strconv.Atoi(s); err == nil {
		return val
	}
	return defaultValue
}

// ParseUint parses a positive integer id
func ParseUint(s string) (uint, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, err
	}
	return uint(v), nil
}

// ParseDate parses a YYYY-MM-DD date in UTC. An empty string yields today.
func ParseDate(s string, now time.Time) (time.Time, error) {
	if s == "" {
		y, m, d := now.UTC().Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
	}
	return time.ParseInLocation(DateLayout, s, time.UTC)
}
