package auth

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"github.com/quillblog/backend/internal/logger"
	"github.com/quillblog/backend/internal/repository"
)

// Account result types
const (
	ResultRegister   = "register"
	ResultValidation = "validation"
)

// AccountResult is what /account-result reports back
type AccountResult struct {
	Title    string `json:"title,omitempty"`
	Content  string `json:"content,omitempty"`
	Redirect string `json:"redirect,omitempty"`
}

func sha256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// ActivationSign returns the double sha256 signature of a user id
func (s *Service) ActivationSign(userID uint) string {
	return sha256Hex(sha256Hex(s.opts.SecretKey + strconv.FormatUint(uint64(userID), 10)))
}

// ActivationLink builds the emailed link that activates an account
func (s *Service) ActivationLink(userID uint) string {
	scheme := "https"
	if !s.opts.Secure {
		scheme = "http"
	}
	q := url.Values{}
	q.Set("type", ResultValidation)
	q.Set("id", strconv.FormatUint(uint64(userID), 10))
	q.Set("sign", s.ActivationSign(userID))
	return fmt.Sprintf("%s://%s/account-result?%s", scheme, s.opts.SiteDomain, q.Encode())
}

// AccountResult handles the post-registration and activation link landing.
// An already active account, or an unknown type, yields a redirect to the
// home page.
func (s *Service) AccountResult(ctx context.Context, resultType string, userID uint, sign string) (*AccountResult, error) {
	user, err := s.users.GetUser(ctx, userID)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}

	if user.IsActive {
		return &AccountResult{Redirect: "/"}, nil
	}

	switch resultType {
	case ResultRegister:
		return &AccountResult{
			Title: "Registration successful",
			Content: fmt.Sprintf(
				"Congratulations, your registration is successful. An activation email has been sent to %s. Please verify your email to log in.",
				user.Email,
			),
		}, nil
	case ResultValidation:
		expected := s.ActivationSign(user.ID)
		if subtle.ConstantTimeCompare([]byte(expected), []byte(sign)) != 1 {
			return nil, ErrInvalidSign
		}
		if err := s.users.UpdateFields(ctx, user.ID, map[string]interface{}{"is_active": true}); err != nil {
			return nil, fmt.Errorf("failed to activate user: %w", err)
		}
		logger.Log.Info("User activated", logger.WithUserID(user.ID))
		return &AccountResult{
			Title:   "Verification successful",
			Content: "Congratulations, you have successfully verified your email address. You can now log in.",
		}, nil
	default:
		return &AccountResult{Redirect: "/"}, nil
	}
}
