package auth

import (
	"context"
	"sync"
	"time"

	"github.com/quillblog/backend/internal/models"
)

// MockCall records a method call for assertion
type MockCall struct {
	Method string
	Args   []interface{}
}

// MockAuthService is a mock implementation of AuthServiceInterface for testing.
type MockAuthService struct {
	mu sync.Mutex

	// Call tracking
	Calls []MockCall

	// Configurable function overrides
	RegisterFunc               func(req RegisterRequest) (*models.User, error)
	AccountResultFunc          func(resultType string, userID uint, sign string) (*AccountResult, error)
	LoginFunc                  func(req LoginRequest) (*AuthResponse, error)
	ValidateTokenFunc          func(tokenString string) (*models.User, *Claims, error)
	SendForgetPasswordCodeFunc func(email string) error
	ForgetPasswordFunc         func(req ForgetPasswordRequest) error

	// Default error to return
	DefaultError error

	// Pre-configured users for testing
	Users map[string]*models.User // keyed by username
}

// NewMockAuthService creates a new mock auth service with sensible defaults
func NewMockAuthService() *MockAuthService {
	return &MockAuthService{
		Calls: make([]MockCall, 0),
		Users: make(map[string]*models.User),
	}
}

// recordCall records a method call for later assertion
func (m *MockAuthService) recordCall(method string, args ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, MockCall{Method: method, Args: args})
}

// GetCallsForMethod returns calls for a specific method
func (m *MockAuthService) GetCallsForMethod(method string) []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []MockCall
	for _, call := range m.Calls {
		if call.Method == method {
			result = append(result, call)
		}
	}
	return result
}

// AssertCalled checks if a method was called at least once
func (m *MockAuthService) AssertCalled(method string) bool {
	return len(m.GetCallsForMethod(method)) > 0
}

// AddUser adds a test user to the mock service
func (m *MockAuthService) AddUser(user *models.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Users[user.Username] = user
}

func (m *MockAuthService) lookup(username string) (*models.User, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.Users[username]
	return user, ok
}

func (m *MockAuthService) Register(_ context.Context, req RegisterRequest) (*models.User, error) {
	m.recordCall("Register", req)
	if m.RegisterFunc != nil {
		return m.RegisterFunc(req)
	}
	if m.DefaultError != nil {
		return nil, m.DefaultError
	}
	if _, exists := m.lookup(req.Username); exists {
		return nil, ErrUsernameExists
	}

	user := &models.User{
		ID:       uint(len(m.Users) + 1),
		Username: req.Username,
		Email:    req.Email,
		Source:   models.SourceRegister,
	}
	m.AddUser(user)
	return user, nil
}

func (m *MockAuthService) AccountResult(_ context.Context, resultType string, userID uint, sign string) (*AccountResult, error) {
	m.recordCall("AccountResult", resultType, userID, sign)
	if m.AccountResultFunc != nil {
		return m.AccountResultFunc(resultType, userID, sign)
	}
	if m.DefaultError != nil {
		return nil, m.DefaultError
	}
	return &AccountResult{Redirect: "/"}, nil
}

func (m *MockAuthService) Login(_ context.Context, req LoginRequest) (*AuthResponse, error) {
	m.recordCall("Login", req)
	if m.LoginFunc != nil {
		return m.LoginFunc(req)
	}
	if m.DefaultError != nil {
		return nil, m.DefaultError
	}

	user, exists := m.lookup(req.Username)
	if !exists {
		return nil, ErrInvalidCredentials
	}
	return &AuthResponse{
		Token:     "mock_token_" + user.Username,
		User:      user.ToPublic(),
		ExpiresAt: time.Now().Add(SessionTTL),
	}, nil
}

func (m *MockAuthService) Logout(_ context.Context, claims *Claims) error {
	m.recordCall("Logout", claims)
	return m.DefaultError
}

func (m *MockAuthService) ValidateToken(_ context.Context, tokenString string) (*models.User, *Claims, error) {
	m.recordCall("ValidateToken", tokenString)
	if m.ValidateTokenFunc != nil {
		return m.ValidateTokenFunc(tokenString)
	}
	if m.DefaultError != nil {
		return nil, nil, m.DefaultError
	}
	return nil, nil, ErrInvalidToken
}

func (m *MockAuthService) SendForgetPasswordCode(_ context.Context, email string) error {
	m.recordCall("SendForgetPasswordCode", email)
	if m.SendForgetPasswordCodeFunc != nil {
		return m.SendForgetPasswordCodeFunc(email)
	}
	return m.DefaultError
}

func (m *MockAuthService) ForgetPassword(_ context.Context, req ForgetPasswordRequest) error {
	m.recordCall("ForgetPassword", req)
	if m.ForgetPasswordFunc != nil {
		return m.ForgetPasswordFunc(req)
	}
	return m.DefaultError
}

func (m *MockAuthService) CreateUser(_ context.Context, req CreateUserRequest, source string) (*models.User, error) {
	m.recordCall("CreateUser", req, source)
	if m.DefaultError != nil {
		return nil, m.DefaultError
	}
	user := &models.User{
		ID:       uint(len(m.Users) + 1),
		Username: req.Username,
		Email:    req.Email,
		IsActive: true,
		Source:   source,
	}
	m.AddUser(user)
	return user, nil
}

// Ensure MockAuthService implements AuthServiceInterface
var _ AuthServiceInterface = (*MockAuthService)(nil)
