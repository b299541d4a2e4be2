package owntracks

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	json "github.com/json-iterator/go"
	"github.com/quillblog/backend/internal/logger"
	"github.com/quillblog/backend/internal/telemetry"
	"go.uber.org/zap"
)

// AMapBatchSize is the most points the AMap convert API accepts per call
const AMapBatchSize = 30

// AMapClient converts GPS coordinates to AMap (GCJ-02) coordinates
type AMapClient struct {
	http     *resty.Client
	endpoint string
	key      string
}

var _ Converter = (*AMapClient)(nil)

type amapResponse struct {
	Status    string `json:"status"`
	Info      string `json:"info"`
	Locations string `json:"locations"`
}

// NewAMapClient creates a client for the AMap coordinate convert endpoint
func NewAMapClient(endpoint, key string) *AMapClient {
	client := resty.New().
		SetTimeout(10*time.Second).
		SetRetryCount(2).
		SetHeader("User-Agent", "Quill/1.0").
		SetTransport(telemetry.NewInstrumentedTransport("amap"))
	client.JSONUnmarshal = json.Unmarshal
	client.JSONMarshal = json.Marshal

	client.OnAfterResponse(func(c *resty.Client, resp *resty.Response) error {
		logger.Log.Debug("AMap response",
			zap.Int("status", resp.StatusCode()),
			zap.Duration("elapsed", resp.Time()),
		)
		return nil
	})

	return &AMapClient{http: client, endpoint: endpoint, key: key}
}

// Convert sends points ([lon, lat]) in batches and returns the converted
// points in the same order
func (c *AMapClient) Convert(ctx context.Context, points [][2]float64) ([][2]string, error) {
	out := make([][2]string, 0, len(points))
	for start := 0; start < len(points); start += AMapBatchSize {
		end := start + AMapBatchSize
		if end > len(points) {
			end = len(points)
		}
		converted, err := c.convertBatch(ctx, points[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, converted...)
	}
	return out, nil
}

func (c *AMapClient) convertBatch(ctx context.Context, batch [][2]float64) ([][2]string, error) {
	parts := make([]string, 0, len(batch))
	for _, p := range batch {
		parts = append(parts, formatCoord(p[0])+","+formatCoord(p[1]))
	}

	var result amapResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"key":       c.key,
			"locations": strings.Join(parts, ";"),
			"coordsys":  "gps",
		}).
		SetResult(&result).
		Get(c.endpoint)
	if err != nil {
		return nil, fmt.Errorf("amap request: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("amap returned HTTP %d", resp.StatusCode())
	}
	if result.Status != "1" {
		return nil, fmt.Errorf("amap error: %s", result.Info)
	}

	return parseLocations(result.Locations)
}

func parseLocations(s string) ([][2]string, error) {
	if s == "" {
		return [][2]string{}, nil
	}
	items := strings.Split(s, ";")
	out := make([][2]string, 0, len(items))
	for _, item := range items {
		lonLat := strings.Split(item, ",")
		if len(lonLat) != 2 {
			return nil, fmt.Errorf("malformed amap location %q", item)
		}
		out = append(out, [2]string{lonLat[0], lonLat[1]})
	}
	return out, nil
}
