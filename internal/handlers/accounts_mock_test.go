package handlers

import (
	stderrors "errors"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/quillblog/backend/internal/auth"
	"github.com/quillblog/backend/internal/models"
	"github.com/quillblog/backend/internal/verification"
	"github.com/stretchr/testify/suite"
)

// AccountErrorTestSuite swaps the account service for a mock so each
// service error can be forced and its HTTP mapping checked.
type AccountErrorTestSuite struct {
	apiSuite
	auth *auth.MockAuthService
}

func (s *AccountErrorTestSuite) SetupTest() {
	s.apiSuite.SetupTest()
	s.auth = auth.NewMockAuthService()
	s.handlers.auth = s.auth
	s.router = gin.New()
	s.handlers.RegisterRoutes(s.router, RouteOptions{})
}

func (s *AccountErrorTestSuite) TestLoginInactive() {
	s.auth.LoginFunc = func(auth.LoginRequest) (*auth.AuthResponse, error) {
		return nil, auth.ErrUserInactive
	}
	w := s.request(http.MethodPost, "/login", gin.H{"username": "reader", "password": "x"}, "")
	s.assertError(w, http.StatusForbidden, "")
	s.True(s.auth.AssertCalled("Login"))
}

func (s *AccountErrorTestSuite) TestRegisterDuplicates() {
	s.auth.AddUser(&models.User{ID: 1, Username: "taken"})
	w := s.request(http.MethodPost, "/register", gin.H{
		"username": "taken", "email": "taken@example.com",
		"password1": testPassword, "password2": testPassword,
	}, "")
	s.assertError(w, http.StatusUnprocessableEntity, "username")

	s.auth.RegisterFunc = func(auth.RegisterRequest) (*models.User, error) {
		return nil, auth.ErrEmailExists
	}
	w = s.request(http.MethodPost, "/register", gin.H{
		"username": "fresh", "email": "taken@example.com",
		"password1": testPassword, "password2": testPassword,
	}, "")
	s.assertError(w, http.StatusUnprocessableEntity, "email")
	s.Len(s.auth.GetCallsForMethod("Register"), 2)
}

func (s *AccountErrorTestSuite) TestAccountResultBadSign() {
	s.auth.DefaultError = auth.ErrInvalidSign
	w := s.request(http.MethodGet, "/account-result?type=validation&id=3&sign=nope", nil, "")
	s.assertError(w, http.StatusForbidden, "")

	s.auth.DefaultError = auth.ErrUserNotFound
	w = s.request(http.MethodGet, "/account-result?type=validation&id=3&sign=nope", nil, "")
	s.assertError(w, http.StatusNotFound, "")
}

func (s *AccountErrorTestSuite) TestForgetPasswordCodeMismatch() {
	s.auth.ForgetPasswordFunc = func(auth.ForgetPasswordRequest) error {
		return verification.ErrCodeMismatch
	}
	w := s.request(http.MethodPost, "/forget-password", gin.H{
		"email": "reader@example.com", "code": "000000",
		"new_password1": testPassword, "new_password2": testPassword,
	}, "")
	s.assertError(w, http.StatusUnprocessableEntity, "code")
}

func (s *AccountErrorTestSuite) TestForgetPasswordTrimsPastedCode() {
	var got string
	s.auth.ForgetPasswordFunc = func(req auth.ForgetPasswordRequest) error {
		got = req.Code
		return nil
	}
	w := s.request(http.MethodPost, "/forget-password", gin.H{
		"email": "reader@example.com", "code": " 364949\n",
		"new_password1": testPassword, "new_password2": testPassword,
	}, "")
	s.Equal(http.StatusOK, w.Code, w.Body.String())
	s.Equal("364949", got)
}

func (s *AccountErrorTestSuite) TestUnexpectedErrorIsInternal() {
	s.auth.SendForgetPasswordCodeFunc = func(string) error {
		return stderrors.New("smtp down")
	}
	w := s.request(http.MethodPost, "/forget-password-code", gin.H{"email": "reader@example.com"}, "")
	body := s.assertError(w, http.StatusInternalServerError, "")
	s.Equal("INTERNAL_ERROR", body.Code)
	s.NotContains(w.Body.String(), "smtp down")
}

func TestAccountErrorTestSuite(t *testing.T) {
	suite.Run(t, new(AccountErrorTestSuite))
}
