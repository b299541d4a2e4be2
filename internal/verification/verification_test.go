package verification

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/quillblog/backend/internal/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newService() (*Service, *clock) {
	c := &clock{now: time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)}
	return NewService(cache.NewMemoryStoreWithClock(c.Now), 0), c
}

func TestIssueGeneratesSixDigits(t *testing.T) {
	s, _ := newService()

	code, err := s.Issue(context.Background(), "a@example.com")
	require.NoError(t, err)
	assert.Len(t, code, 6)
	assert.Regexp(t, `^[0-9]{6}$`, code)
}

func TestVerifyMatchesLatestCode(t *testing.T) {
	ctx := context.Background()
	s, _ := newService()

	first, err := s.Issue(ctx, "a@example.com")
	require.NoError(t, err)
	second, err := s.Issue(ctx, "a@example.com")
	require.NoError(t, err)

	assert.NoError(t, s.Verify(ctx, "a@example.com", second))
	if first != second {
		assert.ErrorIs(t, s.Verify(ctx, "a@example.com", first), ErrCodeMismatch)
	}
}

func TestVerifyIsRepeatableUntilInvalidated(t *testing.T) {
	ctx := context.Background()
	s, _ := newService()

	code, err := s.Issue(ctx, "a@example.com")
	require.NoError(t, err)

	assert.NoError(t, s.Verify(ctx, "a@example.com", code))
	assert.NoError(t, s.Verify(ctx, "a@example.com", code))

	require.NoError(t, s.Invalidate(ctx, "a@example.com"))
	assert.ErrorIs(t, s.Verify(ctx, "a@example.com", code), ErrCodeMismatch)
}

func TestVerifyFailures(t *testing.T) {
	ctx := context.Background()
	s, c := newService()

	assert.ErrorIs(t, s.Verify(ctx, "nobody@example.com", "123456"), ErrCodeMismatch)

	code, err := s.Issue(ctx, "a@example.com")
	require.NoError(t, err)

	assert.ErrorIs(t, s.Verify(ctx, "a@example.com", ""), ErrCodeMismatch)
	assert.ErrorIs(t, s.Verify(ctx, "a@example.com", " "+code+"\n"), ErrCodeMismatch)
	assert.ErrorIs(t, s.Verify(ctx, "a@example.com", code+"0"), ErrCodeMismatch)
	assert.ErrorIs(t, s.Verify(ctx, "b@example.com", code), ErrCodeMismatch)

	c.Advance(DefaultTTL)
	assert.ErrorIs(t, s.Verify(ctx, "a@example.com", code), ErrCodeMismatch)
}

func TestVerifyJustBeforeExpiry(t *testing.T) {
	ctx := context.Background()
	s, c := newService()

	code, err := s.Issue(ctx, "a@example.com")
	require.NoError(t, err)

	c.Advance(DefaultTTL - time.Second)
	assert.NoError(t, s.Verify(ctx, "a@example.com", code))
}

func TestTTLDefaults(t *testing.T) {
	s, _ := newService()
	assert.Equal(t, DefaultTTL, s.TTL())
	assert.Equal(t, time.Minute, NewService(cache.NewMemoryStore(), time.Minute).TTL())
}

func TestEmailIsNormalised(t *testing.T) {
	ctx := context.Background()
	s, _ := newService()

	code, err := s.Issue(ctx, "  Ann@Example.COM ")
	require.NoError(t, err)

	assert.NoError(t, s.Verify(ctx, "ann@example.com", code))
	assert.Equal(t, "verify_code:ann@example.com", cacheKey("Ann@example.com "))
}

type failingStore struct{ cache.Store }

func (failingStore) Get(context.Context, string) (string, error) {
	return "", errors.New("connection refused")
}

func TestVerifyPropagatesStoreErrors(t *testing.T) {
	s := NewService(failingStore{cache.NewMemoryStore()}, time.Minute)

	err := s.Verify(context.Background(), "a@example.com", "000000")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrCodeMismatch))
}
