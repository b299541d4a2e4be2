package cache

import (
	"context"
	"errors"
	"time"

	jsoniter "github.com/json-iterator/go"
)

// ErrCacheMiss is returned when a key is absent or expired
var ErrCacheMiss = errors.New("cache: miss")

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Store is the key/value cache shared by the verification code flow, the
// sidebar bundle, token revocation and rate limiting. A zero ttl means the
// value never expires.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	// IncrWindow increments key and starts its expiry window on the first hit
	IncrWindow(ctx context.Context, key string, window time.Duration) (int64, error)
	Ping(ctx context.Context) error
}

// GetJSON decodes a cached JSON value into dest
func GetJSON(ctx context.Context, s Store, key string, dest interface{}) error {
	raw, err := s.Get(ctx, key)
	if err != nil {
		return err
	}
	return json.UnmarshalFromString(raw, dest)
}

// SetJSON encodes value as JSON and caches it
func SetJSON(ctx context.Context, s Store, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.MarshalToString(value)
	if err != nil {
		return err
	}
	return s.Set(ctx, key, raw, ttl)
}
