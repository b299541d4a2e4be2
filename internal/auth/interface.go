package auth

import (
	"context"

	"github.com/quillblog/backend/internal/models"
)

// AuthServiceInterface defines the contract for account operations.
// This enables mocking for handler tests without requiring a real database.
type AuthServiceInterface interface {
	Register(ctx context.Context, req RegisterRequest) (*models.User, error)
	AccountResult(ctx context.Context, resultType string, userID uint, sign string) (*AccountResult, error)
	Login(ctx context.Context, req LoginRequest) (*AuthResponse, error)
	Logout(ctx context.Context, claims *Claims) error

	ValidateToken(ctx context.Context, tokenString string) (*models.User, *Claims, error)

	SendForgetPasswordCode(ctx context.Context, email string) error
	ForgetPassword(ctx context.Context, req ForgetPasswordRequest) error

	CreateUser(ctx context.Context, req CreateUserRequest, source string) (*models.User, error)
}

// Ensure Service implements AuthServiceInterface
var _ AuthServiceInterface = (*Service)(nil)
