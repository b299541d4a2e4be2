package cache

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/quillblog/backend/internal/logger"
	"go.uber.org/zap"
)

type memoryEntry struct {
	value     string
	expiresAt time.Time
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// MemoryStore is an in-process Store used when Redis is not configured and
// in tests. Expired entries are dropped lazily on read and by the janitor.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-process store
func NewMemoryStore() *MemoryStore {
	return NewMemoryStoreWithClock(time.Now)
}

// NewMemoryStoreWithClock creates a store that reads time from now
func NewMemoryStoreWithClock(now func() time.Time) *MemoryStore {
	ctx, cancel := context.WithCancel(context.Background())
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		now:     now,
		ctx:     ctx,
		cancel:  cancel,
	}
}

func (m *MemoryStore) expiry(ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return m.now().Add(ttl)
}

// Get returns the value for key or ErrCacheMiss
func (m *MemoryStore) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		return "", ErrCacheMiss
	}
	if e.expired(m.now()) {
		delete(m.entries, key)
		return "", ErrCacheMiss
	}
	return e.value, nil
}

// Set stores value under key, replacing any previous value
func (m *MemoryStore) Set(_ context.Context, key string, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[key] = memoryEntry{value: value, expiresAt: m.expiry(ttl)}
	return nil
}

// Delete removes keys; missing keys are ignored
func (m *MemoryStore) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, k := range keys {
		delete(m.entries, k)
	}
	return nil
}

// IncrWindow increments a counter that expires window after its first hit
func (m *MemoryStore) IncrWindow(_ context.Context, key string, window time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	e, ok := m.entries[key]
	if !ok || e.expired(now) {
		m.entries[key] = memoryEntry{value: "1", expiresAt: m.expiry(window)}
		return 1, nil
	}

	n, err := strconv.ParseInt(e.value, 10, 64)
	if err != nil {
		return 0, err
	}
	n++
	e.value = strconv.FormatInt(n, 10)
	m.entries[key] = e
	return n, nil
}

// Ping always succeeds
func (m *MemoryStore) Ping(context.Context) error {
	return nil
}

// Len returns the number of stored entries, expired or not
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Purge drops every expired entry and returns how many were removed
func (m *MemoryStore) Purge() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	removed := 0
	for k, e := range m.entries {
		if e.expired(now) {
			delete(m.entries, k)
			removed++
		}
	}
	return removed
}

// StartJanitor purges expired entries every interval until Stop is called
func (m *MemoryStore) StartJanitor(interval time.Duration) {
	logger.Log.Info("🧹 Starting memory cache janitor", zap.Duration("interval", interval))
	go m.run(interval)
}

// Stop stops the janitor
func (m *MemoryStore) Stop() {
	m.cancel()
}

func (m *MemoryStore) run(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := m.Purge(); n > 0 {
				logger.Log.Debug("Purged expired cache entries", zap.Int("count", n))
			}
		case <-m.ctx.Done():
			return
		}
	}
}
