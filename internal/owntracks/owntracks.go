// Package owntracks ingests OwnTracks location pings and groups them into
// per-device tracks for map rendering.
package owntracks

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/quillblog/backend/internal/logger"
	"github.com/quillblog/backend/internal/metrics"
	"github.com/quillblog/backend/internal/models"
	"github.com/quillblog/backend/internal/repository"
	"github.com/quillblog/backend/internal/telemetry"
	"go.uber.org/zap"
)

// DateLayout formats the log dates served to the map page
const DateLayout = "2006-01-02"

var (
	// ErrInvalidData is returned when tid, lat or lon is missing
	ErrInvalidData = errors.New("data error")
	// ErrOutOfRange is returned for coordinates outside the valid globe
	ErrOutOfRange = errors.New("coordinates out of range")
)

// Ping is the subset of an OwnTracks location message the server stores.
// Pointers distinguish a missing coordinate from zero.
type Ping struct {
	Tid string   `json:"tid"`
	Lat *float64 `json:"lat"`
	Lon *float64 `json:"lon"`
}

// Validate checks presence and range of the ping fields
func (p Ping) Validate() error {
	if strings.TrimSpace(p.Tid) == "" || p.Lat == nil || p.Lon == nil {
		return ErrInvalidData
	}
	if *p.Lat < -90 || *p.Lat > 90 || *p.Lon < -180 || *p.Lon > 180 {
		return ErrOutOfRange
	}
	return nil
}

// Track is one device's path for a day. Each point is [lon, lat].
type Track struct {
	Name string      `json:"name"`
	Path [][2]string `json:"path"`
}

// Converter turns GPS coordinates into another datum, e.g. GCJ-02
type Converter interface {
	Convert(ctx context.Context, points [][2]float64) ([][2]string, error)
}

// Service stores pings and serves them back grouped by device
type Service struct {
	repo      repository.OwnTrackRepository
	converter Converter
	now       func() time.Time
}

// NewService creates a location service. converter may be nil.
func NewService(repo repository.OwnTrackRepository, converter Converter) *Service {
	return &Service{repo: repo, converter: converter, now: time.Now}
}

// Ingest validates and persists a ping
func (s *Service) Ingest(ctx context.Context, p Ping) (*models.OwnTrackLog, error) {
	if err := p.Validate(); err != nil {
		metrics.RecordLocationPing("invalid")
		return nil, err
	}

	logger.Log.Info("Location ping",
		zap.String("tid", p.Tid),
		zap.Float64("lat", *p.Lat),
		zap.Float64("lon", *p.Lon),
	)

	ctx, span := telemetry.TraceLocationIngest(ctx, p.Tid)
	defer span.End()

	entry := &models.OwnTrackLog{
		Tid:       strings.TrimSpace(p.Tid),
		Lat:       *p.Lat,
		Lon:       *p.Lon,
		CreatedAt: s.now().UTC(),
	}
	if err := s.repo.Create(ctx, entry); err != nil {
		span.RecordError(err)
		metrics.RecordLocationPing("error")
		return nil, fmt.Errorf("save location: %w", err)
	}
	metrics.RecordLocationPing("ok")
	return entry, nil
}

// LogDates returns every distinct day with pings, oldest first
func (s *Service) LogDates(ctx context.Context) ([]string, error) {
	times, err := s.repo.CreationTimes(ctx)
	if err != nil {
		return nil, fmt.Errorf("load log dates: %w", err)
	}

	seen := make(map[string]struct{}, len(times))
	dates := make([]string, 0)
	for _, t := range times {
		d := t.UTC().Format(DateLayout)
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		dates = append(dates, d)
	}
	sort.Strings(dates)
	return dates, nil
}

// Logs returns the raw pings for the UTC day starting at day
func (s *Service) Logs(ctx context.Context, day time.Time) ([]models.OwnTrackLog, error) {
	from := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	logs, err := s.repo.ListBetween(ctx, from, from.AddDate(0, 0, 1))
	if err != nil {
		return nil, fmt.Errorf("load locations: %w", err)
	}
	return logs, nil
}

// Tracks groups a day's pings by device, ordered by tid, each path in time
// order. With convert set the points go through the converter.
func (s *Service) Tracks(ctx context.Context, day time.Time, convert bool) (tracks []Track, err error) {
	ctx, span := telemetry.TraceTrackQuery(ctx, day.Format(DateLayout), convert)
	defer func() { telemetry.EndSpan(span, err) }()

	logs, err := s.Logs(ctx, day)
	if err != nil {
		return nil, err
	}

	byTid := make(map[string][]models.OwnTrackLog)
	for _, l := range logs {
		byTid[l.Tid] = append(byTid[l.Tid], l)
	}
	tids := make([]string, 0, len(byTid))
	for tid := range byTid {
		tids = append(tids, tid)
	}
	sort.Strings(tids)

	tracks = make([]Track, 0, len(tids))
	for _, tid := range tids {
		points := byTid[tid]
		sort.SliceStable(points, func(i, j int) bool { return points[i].CreatedAt.Before(points[j].CreatedAt) })

		path, err := s.path(ctx, points, convert)
		if err != nil {
			return nil, err
		}
		tracks = append(tracks, Track{Name: tid, Path: path})
	}
	return tracks, nil
}

func (s *Service) path(ctx context.Context, points []models.OwnTrackLog, convert bool) ([][2]string, error) {
	if convert && s.converter != nil {
		raw := make([][2]float64, 0, len(points))
		for _, p := range points {
			raw = append(raw, [2]float64{p.Lon, p.Lat})
		}
		converted, err := s.converter.Convert(ctx, raw)
		if err != nil {
			return nil, fmt.Errorf("convert coordinates: %w", err)
		}
		return converted, nil
	}

	path := make([][2]string, 0, len(points))
	for _, p := range points {
		path = append(path, [2]string{formatCoord(p.Lon), formatCoord(p.Lat)})
	}
	return path, nil
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
