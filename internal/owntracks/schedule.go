package owntracks

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/quillblog/backend/internal/cache"
	"github.com/quillblog/backend/internal/logger"
	"go.uber.org/zap"
)

const (
	exportMarkerPrefix = "owntracks_export:"
	exportMarkerTTL    = 72 * time.Hour
	exportTimeout      = 2 * time.Minute
)

// DayExporter uploads one UTC day of pings
type DayExporter interface {
	ExportDay(ctx context.Context, day time.Time) (*ExportResult, error)
}

// ExportScheduler uploads the previous UTC day once it has ended. A marker in
// the cache store keeps restarts and multiple replicas from exporting twice.
type ExportScheduler struct {
	exporter DayExporter
	store    cache.Store
	interval time.Duration
	now      func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	mu      sync.Mutex
	started bool
	stopped bool
}

// NewExportScheduler creates a scheduler that checks every interval
func NewExportScheduler(exporter DayExporter, store cache.Store, interval time.Duration) *ExportScheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &ExportScheduler{
		exporter: exporter,
		store:    store,
		interval: interval,
		now:      time.Now,
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
}

// Start begins the periodic export loop. Calls after the first, or after
// Stop, do nothing.
func (s *ExportScheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started || s.stopped {
		return
	}
	s.started = true

	logger.Log.Info("Starting location export scheduler", zap.Duration("interval", s.interval))
	go s.run()
}

// Stop cancels the loop and waits for an in-flight export to return. It is
// safe to call without Start and more than once.
func (s *ExportScheduler) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	started := s.started
	s.mu.Unlock()

	s.cancel()
	if started {
		<-s.done
	}
	logger.Log.Info("Location export scheduler stopped")
}

func (s *ExportScheduler) run() {
	defer close(s.done)

	s.RunOnce(s.ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.RunOnce(s.ctx)
		case <-s.ctx.Done():
			return
		}
	}
}

// RunOnce exports yesterday unless it was already exported. It reports
// whether an upload happened.
func (s *ExportScheduler) RunOnce(ctx context.Context) bool {
	y, m, d := s.now().UTC().Date()
	day := time.Date(y, m, d-1, 0, 0, 0, 0, time.UTC)
	marker := exportMarkerPrefix + day.Format(DateLayout)

	if _, err := s.store.Get(ctx, marker); err == nil {
		return false
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		logger.Log.Warn("Export marker lookup failed", zap.Error(err), logger.WithCacheKey(marker))
		return false
	}

	exportCtx, cancel := context.WithTimeout(ctx, exportTimeout)
	defer cancel()

	res, err := s.exporter.ExportDay(exportCtx, day)
	if err != nil {
		logger.Log.Error("Scheduled location export failed",
			zap.Error(err),
			zap.String("date", day.Format(DateLayout)),
		)
		return false
	}

	if err := s.store.Set(ctx, marker, res.Object.Key, exportMarkerTTL); err != nil {
		logger.Log.Warn("Failed to record export marker", zap.Error(err), logger.WithCacheKey(marker))
	}
	return true
}
