package owntracks

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/quillblog/backend/internal/cache"
	"github.com/quillblog/backend/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDayExporter struct {
	mu   sync.Mutex
	days []time.Time
	err  error
}

func (f *fakeDayExporter) ExportDay(_ context.Context, day time.Time) (*ExportResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.days = append(f.days, day)
	if f.err != nil {
		return nil, f.err
	}
	date := day.Format(DateLayout)
	return &ExportResult{Date: date, Object: &storage.UploadResult{Key: "owntracks/" + date + ".json"}}, nil
}

func (f *fakeDayExporter) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.days)
}

func newTestScheduler(exp DayExporter, now time.Time) (*ExportScheduler, *cache.MemoryStore) {
	store := cache.NewMemoryStore()
	s := NewExportScheduler(exp, store, time.Hour)
	s.now = func() time.Time { return now }
	return s, store
}

func TestExportScheduler_ExportsYesterdayOnce(t *testing.T) {
	exp := &fakeDayExporter{}
	s, store := newTestScheduler(exp, time.Date(2024, 5, 2, 0, 30, 0, 0, time.UTC))
	ctx := context.Background()

	assert.True(t, s.RunOnce(ctx))
	assert.False(t, s.RunOnce(ctx))

	require.Len(t, exp.days, 1)
	assert.Equal(t, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), exp.days[0])

	key, err := store.Get(ctx, exportMarkerPrefix+"2024-05-01")
	require.NoError(t, err)
	assert.Equal(t, "owntracks/2024-05-01.json", key)
}

func TestExportScheduler_MonthBoundary(t *testing.T) {
	exp := &fakeDayExporter{}
	s, _ := newTestScheduler(exp, time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))

	assert.True(t, s.RunOnce(context.Background()))
	assert.Equal(t, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), exp.days[0])
}

func TestExportScheduler_FailureRetries(t *testing.T) {
	exp := &fakeDayExporter{err: errors.New("bucket gone")}
	s, store := newTestScheduler(exp, time.Date(2024, 5, 2, 9, 0, 0, 0, time.UTC))
	ctx := context.Background()

	assert.False(t, s.RunOnce(ctx))
	_, err := store.Get(ctx, exportMarkerPrefix+"2024-05-01")
	assert.ErrorIs(t, err, cache.ErrCacheMiss)

	exp.err = nil
	assert.True(t, s.RunOnce(ctx))
	assert.Equal(t, 2, exp.calls())
}

func TestExportScheduler_StartStop(t *testing.T) {
	exp := &fakeDayExporter{}
	s, _ := newTestScheduler(exp, time.Date(2024, 5, 2, 9, 0, 0, 0, time.UTC))

	s.Start()
	assert.Eventually(t, func() bool { return exp.calls() == 1 }, time.Second, 10*time.Millisecond)
	s.Stop()
}

func TestExportScheduler_StopWithoutStart(t *testing.T) {
	exp := &fakeDayExporter{}
	s, _ := newTestScheduler(exp, time.Date(2024, 5, 2, 9, 0, 0, 0, time.UTC))

	stopped := make(chan struct{})
	go func() {
		s.Stop()
		s.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("Stop blocked without Start")
	}

	// A stopped scheduler never starts
	s.Start()
	time.Sleep(20 * time.Millisecond)
	assert.Zero(t, exp.calls())
}

func TestExportScheduler_StopTwiceAfterStart(t *testing.T) {
	exp := &fakeDayExporter{}
	s, _ := newTestScheduler(exp, time.Date(2024, 5, 2, 9, 0, 0, 0, time.UTC))

	s.Start()
	s.Start()
	assert.Eventually(t, func() bool { return exp.calls() == 1 }, time.Second, 10*time.Millisecond)
	s.Stop()
	s.Stop()
	assert.Equal(t, 1, exp.calls())
}
