package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/quillblog/backend/internal/cache"
	"github.com/quillblog/backend/internal/models"
	"github.com/quillblog/backend/internal/repository"
)

const (
	// SessionTTL is the lifetime of a normal login
	SessionTTL = 24 * time.Hour
	// RememberTTL is the lifetime of a "remember me" login, about one month
	RememberTTL = 2626560 * time.Second

	revokedPrefix = "revoked_token:"
)

// Claims are the JWT claims of a session token
type Claims struct {
	UserID      uint   `json:"user_id"`
	Username    string `json:"username"`
	IsSuperuser bool   `json:"is_superuser"`
	jwt.RegisteredClaims
}

// AuthResponse represents authentication response
type AuthResponse struct {
	Token     string             `json:"token"`
	User      *models.PublicUser `json:"user"`
	ExpiresAt time.Time          `json:"expires_at"`
}

func revokedKey(tokenID string) string {
	return revokedPrefix + tokenID
}

// issueToken signs a session token for user valid for ttl
func (s *Service) issueToken(user *models.User, ttl time.Duration) (*AuthResponse, error) {
	now := s.now()
	expiresAt := now.Add(ttl)

	claims := Claims{
		UserID:      user.ID,
		Username:    user.Username,
		IsSuperuser: user.IsSuperuser,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   fmt.Sprint(user.ID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.opts.JWTSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	return &AuthResponse{
		Token:     tokenString,
		User:      user.ToPublic(),
		ExpiresAt: expiresAt,
	}, nil
}

// ParseToken verifies a token's signature and expiry
func (s *Service) ParseToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.opts.JWTSecret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.ID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// ValidateToken parses a token, rejects revoked ones and loads the user
func (s *Service) ValidateToken(ctx context.Context, tokenString string) (*models.User, *Claims, error) {
	claims, err := s.ParseToken(tokenString)
	if err != nil {
		return nil, nil, err
	}

	_, err = s.store.Get(ctx, revokedKey(claims.ID))
	if err == nil {
		return nil, nil, ErrTokenRevoked
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		return nil, nil, fmt.Errorf("revocation check: %w", err)
	}

	user, err := s.users.GetUser(ctx, claims.UserID)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, nil, ErrUserNotFound
	}
	if err != nil {
		return nil, nil, fmt.Errorf("database error: %w", err)
	}
	if !user.IsActive {
		return nil, nil, ErrUserInactive
	}
	return user, claims, nil
}
