package avatar

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/quillblog/backend/internal/cache"
	"github.com/quillblog/backend/internal/logger"
	"github.com/quillblog/backend/internal/metrics"
	"go.uber.org/zap"
)

const (
	// DefaultTTL is how long a resolved avatar URL is cached
	DefaultTTL  = 10 * time.Hour
	DefaultSize = 40

	gravatarBase = "https://www.gravatar.com/avatar/"
	keyPrefix    = "gravatar/"
)

// Resolver builds gravatar URLs and caches them per email
type Resolver struct {
	store        cache.Store
	ttl          time.Duration
	defaultImage string
}

// NewResolver creates a resolver. defaultImage is the fallback image URL
// gravatar serves when the email has no avatar.
func NewResolver(store cache.Store, ttl time.Duration, defaultImage string) *Resolver {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Resolver{store: store, ttl: ttl, defaultImage: defaultImage}
}

// URL returns the gravatar URL for email at the given pixel size. Cache
// failures are logged; the URL is always returned.
func (r *Resolver) URL(ctx context.Context, email string, size int) string {
	if size <= 0 {
		size = DefaultSize
	}
	email = strings.TrimSpace(email)
	key := keyPrefix + email + "/" + strconv.Itoa(size)

	cached, err := r.store.Get(ctx, key)
	if err == nil {
		metrics.RecordCacheHit("gravatar")
		return cached
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		logger.Log.Warn("Avatar cache read failed", logger.WithCacheKey(key), zap.Error(err))
	}
	metrics.RecordCacheMiss("gravatar")

	u := Build(email, size, r.defaultImage)
	if err := r.store.Set(ctx, key, u, r.ttl); err != nil {
		logger.Log.Warn("Avatar cache write failed", logger.WithCacheKey(key), zap.Error(err))
		return u
	}
	logger.Log.Info("Set gravatar cache", logger.WithCacheKey(key))
	return u
}

// Build computes a gravatar URL without caching
func Build(email string, size int, defaultImage string) string {
	sum := md5.Sum([]byte(strings.ToLower(strings.TrimSpace(email))))
	q := url.Values{}
	if defaultImage != "" {
		q.Set("d", defaultImage)
	}
	q.Set("s", strconv.Itoa(size))
	return gravatarBase + hex.EncodeToString(sum[:]) + "?" + q.Encode()
}
