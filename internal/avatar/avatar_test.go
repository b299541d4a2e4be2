package avatar

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/quillblog/backend/internal/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuild(t *testing.T) {
	// md5("myemailaddress@example.com") from the gravatar docs
	u := Build(" MyEmailAddress@example.com ", 80, "")
	assert.Equal(t, "https://www.gravatar.com/avatar/0bc83cb571cd1c50ba6f3e8a78ef1346?s=80", u)

	u = Build("a@example.com", 40, "https://blog.example.com/static/avatar.png")
	assert.Contains(t, u, "d=https%3A%2F%2Fblog.example.com%2Fstatic%2Favatar.png")
	assert.Contains(t, u, "s=40")
}

func TestResolverCaches(t *testing.T) {
	ctx := context.Background()
	store := cache.NewMemoryStore()
	r := NewResolver(store, 0, "")

	u := r.URL(ctx, "a@example.com", 0)
	assert.Contains(t, u, "s=40")

	cached, err := store.Get(ctx, "gravatar/a@example.com/40")
	require.NoError(t, err)
	assert.Equal(t, u, cached)

	// A poisoned entry proves the second call is served from the cache
	require.NoError(t, store.Set(ctx, "gravatar/a@example.com/40", "cached-url", 0))
	u = r.URL(ctx, "a@example.com", 40)
	assert.Equal(t, "cached-url", u)
}

type brokenStore struct{ cache.Store }

func (brokenStore) Get(context.Context, string) (string, error) {
	return "", errors.New("connection refused")
}

func (brokenStore) Set(context.Context, string, string, time.Duration) error {
	return errors.New("connection refused")
}

func TestResolverSurvivesBrokenCache(t *testing.T) {
	r := NewResolver(brokenStore{}, 0, "")
	assert.Equal(t, Build("a@example.com", 64, ""), r.URL(context.Background(), "a@example.com", 64))
}
