package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/quillblog/backend/internal/cache"
	"github.com/quillblog/backend/internal/email"
	"github.com/quillblog/backend/internal/logger"
	"github.com/quillblog/backend/internal/models"
	"github.com/quillblog/backend/internal/repository"
	"github.com/quillblog/backend/internal/telemetry"
	"github.com/quillblog/backend/internal/verification"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLength is the shortest accepted password
const MinPasswordLength = 8

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailNotFound      = errors.New("email does not belong to any user")
	ErrEmailExists        = errors.New("email already exists")
	ErrUsernameExists     = errors.New("username already taken")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserInactive       = errors.New("user is not active")
	ErrPasswordMismatch   = errors.New("passwords do not match")
	ErrPasswordTooShort   = errors.New("password is too short")
	ErrInvalidSign        = errors.New("invalid activation signature")
	ErrInvalidToken       = errors.New("invalid token")
	ErrTokenRevoked       = errors.New("token revoked")
)

// Options configures the authentication service
type Options struct {
	JWTSecret []byte
	// SecretKey signs activation links
	SecretKey  string
	SiteDomain string
	// Secure selects https for generated links
	Secure     bool
	BcryptCost int
}

// Service handles all account operations
type Service struct {
	users  repository.UserRepository
	codes  *verification.Service
	mailer *email.Mailer
	store  cache.Store
	opts   Options
	now    func() time.Time
}

// NewService creates a new authentication service
func NewService(users repository.UserRepository, codes *verification.Service, mailer *email.Mailer, store cache.Store, opts Options) *Service {
	if opts.BcryptCost == 0 {
		opts.BcryptCost = bcrypt.DefaultCost
	}
	return &Service{
		users:  users,
		codes:  codes,
		mailer: mailer,
		store:  store,
		opts:   opts,
		now:    time.Now,
	}
}

// RegisterRequest represents a registration form
type RegisterRequest struct {
	Username  string `json:"username" binding:"required,max=150"`
	Email     string `json:"email" binding:"required,email,max=254"`
	Password1 string `json:"password1" binding:"required"`
	Password2 string `json:"password2" binding:"required"`
}

// LoginRequest represents a login form. Username may also be an email.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
	Remember bool   `json:"remember"`
}

// ForgetPasswordRequest resets a password with an emailed code
type ForgetPasswordRequest struct {
	Email        string `json:"email" binding:"required,email"`
	Code         string `json:"code" binding:"required"`
	NewPassword1 string `json:"new_password1" binding:"required"`
	NewPassword2 string `json:"new_password2" binding:"required"`
}

// CreateUserRequest is the admin console's user creation form
type CreateUserRequest struct {
	Username    string `json:"username" binding:"required,max=150"`
	Email       string `json:"email" binding:"omitempty,email"`
	Nickname    string `json:"nickname"`
	Password1   string `json:"password1" binding:"required"`
	Password2   string `json:"password2" binding:"required"`
	IsSuperuser bool   `json:"is_superuser"`
}

func checkPasswords(p1, p2 string) error {
	if p1 != p2 {
		return ErrPasswordMismatch
	}
	if len(p1) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	return nil
}

func (s *Service) hashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), s.opts.BcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashed), nil
}

func (s *Service) ensureUnique(ctx context.Context, username, mail string) error {
	taken, err := s.users.UsernameExists(ctx, username)
	if err != nil {
		return fmt.Errorf("database error: %w", err)
	}
	if taken {
		return ErrUsernameExists
	}
	if mail == "" {
		return nil
	}
	taken, err = s.users.EmailExists(ctx, mail)
	if err != nil {
		return fmt.Errorf("database error: %w", err)
	}
	if taken {
		return ErrEmailExists
	}
	return nil
}

// Register creates an inactive account and emails the activation link
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*models.User, error) {
	ctx, span := telemetry.TraceAccountEvent(ctx, "register")
	defer span.End()

	username := strings.TrimSpace(req.Username)
	mail := strings.TrimSpace(req.Email)

	if err := checkPasswords(req.Password1, req.Password2); err != nil {
		return nil, err
	}
	if err := s.ensureUnique(ctx, username, mail); err != nil {
		return nil, err
	}

	hash, err := s.hashPassword(req.Password1)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	user := &models.User{
		Username:     username,
		Email:        mail,
		PasswordHash: hash,
		IsActive:     false,
		Source:       models.SourceRegister,
		DateJoined:   now,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	logger.Log.Info("User registered", logger.WithUserID(user.ID), logger.WithEmail(user.Email))

	// The account exists either way; a failed email is recorded in the send log
	if err := s.mailer.SendActivation(ctx, user.Email, s.ActivationLink(user.ID)); err != nil {
		logger.Log.Warn("Activation email failed", logger.WithUserID(user.ID), zap.Error(err))
	}

	return user, nil
}

// Login checks credentials and issues a session token
func (s *Service) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	ctx, span := telemetry.TraceAccountEvent(ctx, "login")
	defer span.End()

	user, err := s.users.GetUserByLogin(ctx, strings.TrimSpace(req.Username))
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, ErrUserInactive
	}

	now := s.now().UTC()
	user.LastLogin = &now
	if err := s.users.UpdateFields(ctx, user.ID, map[string]interface{}{"last_login": now}); err != nil {
		logger.Log.Warn("Failed to record last login", logger.WithUserID(user.ID), zap.Error(err))
	}

	ttl := SessionTTL
	if req.Remember {
		ttl = RememberTTL
	}
	return s.issueToken(user, ttl)
}

// Logout revokes the session token until it would have expired
func (s *Service) Logout(ctx context.Context, claims *Claims) error {
	if claims == nil || claims.ID == "" {
		return ErrInvalidToken
	}
	ttl := time.Minute
	if claims.ExpiresAt != nil {
		if remaining := claims.ExpiresAt.Sub(s.now()); remaining > 0 {
			ttl = remaining
		}
	}
	if err := s.store.Set(ctx, revokedKey(claims.ID), "1", ttl); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	logger.Log.Info("User logged out", logger.WithUserID(claims.UserID))
	return nil
}

// FindUserByEmail finds user by email (case-insensitive)
func (s *Service) FindUserByEmail(ctx context.Context, mail string) (*models.User, error) {
	user, err := s.users.GetUserByEmail(ctx, strings.TrimSpace(mail))
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}
	return user, nil
}

// SendForgetPasswordCode issues a reset code for a registered email and mails it
func (s *Service) SendForgetPasswordCode(ctx context.Context, mail string) error {
	user, err := s.FindUserByEmail(ctx, mail)
	if errors.Is(err, ErrUserNotFound) {
		return ErrEmailNotFound
	}
	if err != nil {
		return err
	}

	code, err := s.codes.Issue(ctx, user.Email)
	if err != nil {
		return err
	}
	if err := s.mailer.SendVerifyCode(ctx, user.Email, code, s.codes.TTL()); err != nil {
		return fmt.Errorf("failed to send verification code: %w", err)
	}
	return nil
}

// ForgetPassword sets a new password after checking the emailed code. The
// code is invalidated on success.
func (s *Service) ForgetPassword(ctx context.Context, req ForgetPasswordRequest) error {
	ctx, span := telemetry.TraceAccountEvent(ctx, "forget_password")
	defer span.End()

	if err := checkPasswords(req.NewPassword1, req.NewPassword2); err != nil {
		return err
	}

	user, err := s.FindUserByEmail(ctx, req.Email)
	if errors.Is(err, ErrUserNotFound) {
		return ErrEmailNotFound
	}
	if err != nil {
		return err
	}

	if err := s.codes.Verify(ctx, req.Email, req.Code); err != nil {
		return err
	}

	hash, err := s.hashPassword(req.NewPassword1)
	if err != nil {
		return err
	}
	if err := s.users.UpdateFields(ctx, user.ID, map[string]interface{}{"password_hash": hash}); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	if err := s.codes.Invalidate(ctx, req.Email); err != nil {
		logger.Log.Warn("Password reset but code not invalidated", logger.WithUserID(user.ID), zap.Error(err))
	}

	logger.Log.Info("Password reset", logger.WithUserID(user.ID))
	return nil
}

// CreateUser creates an active account on behalf of an administrator
func (s *Service) CreateUser(ctx context.Context, req CreateUserRequest, source string) (*models.User, error) {
	username := strings.TrimSpace(req.Username)
	mail := strings.TrimSpace(req.Email)

	if err := checkPasswords(req.Password1, req.Password2); err != nil {
		return nil, err
	}
	if err := s.ensureUnique(ctx, username, mail); err != nil {
		return nil, err
	}

	hash, err := s.hashPassword(req.Password1)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Username:     username,
		Email:        mail,
		Nickname:     req.Nickname,
		PasswordHash: hash,
		IsActive:     true,
		IsStaff:      req.IsSuperuser,
		IsSuperuser:  req.IsSuperuser,
		Source:       source,
		DateJoined:   s.now().UTC(),
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	logger.Log.Info("User created", logger.WithUserID(user.ID), zap.String("source", source))
	return user, nil
}

// PromoteToSuperuser grants superuser and staff flags to the user with the
// given username or email
func (s *Service) PromoteToSuperuser(ctx context.Context, login string) (*models.User, error) {
	user, err := s.users.GetUserByLogin(ctx, login)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}

	if err := s.users.UpdateFields(ctx, user.ID, map[string]interface{}{
		"is_superuser": true,
		"is_staff":     true,
		"is_active":    true,
	}); err != nil {
		return nil, fmt.Errorf("failed to promote user: %w", err)
	}
	user.IsSuperuser = true
	user.IsStaff = true
	user.IsActive = true
	return user, nil
}
