// Package verification issues and checks the short-lived email codes used by
// the password reset flow.
package verification

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/quillblog/backend/internal/cache"
	"github.com/quillblog/backend/internal/logger"
	"go.uber.org/zap"
)

// DefaultTTL is how long an issued code stays valid
const DefaultTTL = 5 * time.Minute

const (
	keyPrefix  = "verify_code:"
	codeDigits = 6
)

// ErrCodeMismatch is returned when the code is wrong, expired or was never issued
var ErrCodeMismatch = errors.New("verification code error")

// Service stores codes in a cache keyed by normalised email
type Service struct {
	store cache.Store
	ttl   time.Duration
}

// NewService creates a code service. A non-positive ttl uses DefaultTTL.
func NewService(store cache.Store, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Service{store: store, ttl: ttl}
}

// TTL is how long an issued code stays valid
func (s *Service) TTL() time.Duration {
	return s.ttl
}

// NormalizeEmail trims and lower-cases an email address
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func cacheKey(email string) string {
	return keyPrefix + NormalizeEmail(email)
}

// Issue generates a new code for email, replacing any previous one
func (s *Service) Issue(ctx context.Context, email string) (string, error) {
	code, err := generateCode()
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	if err := s.store.Set(ctx, cacheKey(email), code, s.ttl); err != nil {
		return "", fmt.Errorf("store code: %w", err)
	}
	logger.Log.Info("Verification code issued", logger.WithEmail(NormalizeEmail(email)))
	return code, nil
}

// Verify checks code against the last code issued for email. Only an exact
// match passes. The code stays valid until it expires or Invalidate is called.
func (s *Service) Verify(ctx context.Context, email, code string) error {
	stored, err := s.store.Get(ctx, cacheKey(email))
	if errors.Is(err, cache.ErrCacheMiss) {
		return ErrCodeMismatch
	}
	if err != nil {
		return fmt.Errorf("load code: %w", err)
	}
	if subtle.ConstantTimeCompare([]byte(stored), []byte(code)) != 1 {
		logger.Log.Debug("Verification code mismatch", logger.WithEmail(NormalizeEmail(email)))
		return ErrCodeMismatch
	}
	return nil
}

// Invalidate removes the code for email
func (s *Service) Invalidate(ctx context.Context, email string) error {
	if err := s.store.Delete(ctx, cacheKey(email)); err != nil {
		logger.Log.Warn("Failed to invalidate verification code",
			logger.WithEmail(NormalizeEmail(email)),
			zap.Error(err),
		)
		return err
	}
	return nil
}

func generateCode() (string, error) {
	max := big.NewInt(1_000_000)
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", codeDigits, n.Int64()), nil
}
