package auth

import (
	"context"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/quillblog/backend/internal/cache"
	"github.com/quillblog/backend/internal/email"
	"github.com/quillblog/backend/internal/models"
	"github.com/quillblog/backend/internal/repository"
	"github.com/quillblog/backend/internal/verification"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// AuthServiceTestSuite contains auth service tests
type AuthServiceTestSuite struct {
	suite.Suite
	db          *gorm.DB
	store       *cache.MemoryStore
	sender      *email.MockSender
	codes       *verification.Service
	authService *Service
}

// SetupTest creates a fresh in-memory database and service for each test
func (suite *AuthServiceTestSuite) SetupTest() {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent), // Quiet during tests
	})
	require.NoError(suite.T(), err)
	sqlDB, err := db.DB()
	require.NoError(suite.T(), err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(suite.T(), db.AutoMigrate(&models.User{}, &models.EmailSendLog{}))

	suite.db = db
	suite.store = cache.NewMemoryStore()
	suite.sender = &email.MockSender{}
	suite.codes = verification.NewService(suite.store, verification.DefaultTTL)
	suite.authService = NewService(
		repository.NewUserRepository(db),
		suite.codes,
		email.NewMailer(suite.sender, db),
		suite.store,
		Options{
			JWTSecret:  []byte("test_jwt_secret_key"),
			SecretKey:  "test_secret",
			SiteDomain: "blog.example.com",
			Secure:     true,
			BcryptCost: bcrypt.MinCost,
		},
	)
}

// TearDownTest closes the database
func (suite *AuthServiceTestSuite) TearDownTest() {
	sqlDB, _ := suite.db.DB()
	sqlDB.Close()
}

func (suite *AuthServiceTestSuite) register(username, mail string) *models.User {
	user, err := suite.authService.Register(context.Background(), RegisterRequest{
		Username:  username,
		Email:     mail,
		Password1: "password123",
		Password2: "password123",
	})
	suite.Require().NoError(err)
	return user
}

func (suite *AuthServiceTestSuite) activeUser(username, mail string) *models.User {
	user, err := suite.authService.CreateUser(context.Background(), CreateUserRequest{
		Username:  username,
		Email:     mail,
		Password1: "password123",
		Password2: "password123",
	}, models.SourceAdminSite)
	suite.Require().NoError(err)
	return user
}

func (suite *AuthServiceTestSuite) TestRegisterCreatesInactiveUserAndSendsLink() {
	user := suite.register("alice", "alice@example.com")

	suite.False(user.IsActive)
	suite.Equal(models.SourceRegister, user.Source)
	suite.NotEqual("password123", user.PasswordHash)

	msg, ok := suite.sender.Last()
	suite.Require().True(ok)
	suite.Equal([]string{"alice@example.com"}, msg.To)
	suite.Contains(msg.HTML, "https://blog.example.com/account-result?")

	var logs int64
	suite.db.Model(&models.EmailSendLog{}).Count(&logs)
	suite.Equal(int64(1), logs)
}

func (suite *AuthServiceTestSuite) TestRegisterValidation() {
	ctx := context.Background()
	suite.register("alice", "alice@example.com")

	_, err := suite.authService.Register(ctx, RegisterRequest{Username: "ALICE", Email: "x@example.com", Password1: "password123", Password2: "password123"})
	suite.ErrorIs(err, ErrUsernameExists)

	_, err = suite.authService.Register(ctx, RegisterRequest{Username: "bob", Email: "Alice@Example.com", Password1: "password123", Password2: "password123"})
	suite.ErrorIs(err, ErrEmailExists)

	_, err = suite.authService.Register(ctx, RegisterRequest{Username: "bob", Email: "bob@example.com", Password1: "password123", Password2: "password124"})
	suite.ErrorIs(err, ErrPasswordMismatch)

	_, err = suite.authService.Register(ctx, RegisterRequest{Username: "bob", Email: "bob@example.com", Password1: "short", Password2: "short"})
	suite.ErrorIs(err, ErrPasswordTooShort)
}

func (suite *AuthServiceTestSuite) TestRegisterSurvivesEmailFailure() {
	suite.sender.Err = assert.AnError
	user := suite.register("alice", "alice@example.com")
	suite.NotZero(user.ID)

	var log models.EmailSendLog
	suite.Require().NoError(suite.db.First(&log).Error)
	suite.False(log.SendResult)
}

func (suite *AuthServiceTestSuite) TestActivationFlow() {
	ctx := context.Background()
	user := suite.register("alice", "alice@example.com")

	link, err := url.Parse(suite.authService.ActivationLink(user.ID))
	suite.Require().NoError(err)
	suite.Equal("validation", link.Query().Get("type"))
	sign := link.Query().Get("sign")
	suite.Len(sign, 64)

	_, err = suite.authService.AccountResult(ctx, ResultValidation, user.ID, "bad")
	suite.ErrorIs(err, ErrInvalidSign)

	res, err := suite.authService.AccountResult(ctx, ResultRegister, user.ID, "")
	suite.Require().NoError(err)
	suite.Contains(res.Content, "alice@example.com")

	res, err = suite.authService.AccountResult(ctx, ResultValidation, user.ID, sign)
	suite.Require().NoError(err)
	suite.Empty(res.Redirect)

	var stored models.User
	suite.Require().NoError(suite.db.First(&stored, user.ID).Error)
	suite.True(stored.IsActive)

	res, err = suite.authService.AccountResult(ctx, ResultValidation, user.ID, sign)
	suite.Require().NoError(err)
	suite.Equal("/", res.Redirect)

	_, err = suite.authService.AccountResult(ctx, ResultRegister, 9999, "")
	suite.ErrorIs(err, ErrUserNotFound)
}

func (suite *AuthServiceTestSuite) TestAccountResultUnknownTypeRedirects() {
	user := suite.register("alice", "alice@example.com")

	res, err := suite.authService.AccountResult(context.Background(), "other", user.ID, "")
	suite.Require().NoError(err)
	suite.Equal("/", res.Redirect)
}

func (suite *AuthServiceTestSuite) TestActivationSignMatchesDoubleHash() {
	first := sha256Hex("test_secret" + "42")
	suite.Equal(sha256Hex(first), suite.authService.ActivationSign(42))
}

func (suite *AuthServiceTestSuite) TestLogin() {
	ctx := context.Background()
	suite.activeUser("alice", "alice@example.com")

	resp, err := suite.authService.Login(ctx, LoginRequest{Username: "alice", Password: "password123"})
	suite.Require().NoError(err)
	suite.NotEmpty(resp.Token)
	suite.WithinDuration(time.Now().Add(SessionTTL), resp.ExpiresAt, time.Minute)

	resp, err = suite.authService.Login(ctx, LoginRequest{Username: "alice@example.com", Password: "password123", Remember: true})
	suite.Require().NoError(err)
	suite.WithinDuration(time.Now().Add(RememberTTL), resp.ExpiresAt, time.Minute)

	var stored models.User
	suite.Require().NoError(suite.db.Where("username = ?", "alice").First(&stored).Error)
	suite.NotNil(stored.LastLogin)

	_, err = suite.authService.Login(ctx, LoginRequest{Username: "alice", Password: "wrong"})
	suite.ErrorIs(err, ErrInvalidCredentials)

	_, err = suite.authService.Login(ctx, LoginRequest{Username: "nobody", Password: "password123"})
	suite.ErrorIs(err, ErrInvalidCredentials)
}

func (suite *AuthServiceTestSuite) TestLoginRejectsInactive() {
	suite.register("alice", "alice@example.com")

	_, err := suite.authService.Login(context.Background(), LoginRequest{Username: "alice", Password: "password123"})
	suite.ErrorIs(err, ErrUserInactive)
}

func (suite *AuthServiceTestSuite) TestTokenValidationAndLogout() {
	ctx := context.Background()
	suite.activeUser("alice", "alice@example.com")

	resp, err := suite.authService.Login(ctx, LoginRequest{Username: "alice", Password: "password123"})
	suite.Require().NoError(err)

	user, claims, err := suite.authService.ValidateToken(ctx, resp.Token)
	suite.Require().NoError(err)
	suite.Equal("alice", user.Username)
	suite.NotEmpty(claims.ID)

	suite.Require().NoError(suite.authService.Logout(ctx, claims))

	_, _, err = suite.authService.ValidateToken(ctx, resp.Token)
	suite.ErrorIs(err, ErrTokenRevoked)

	_, _, err = suite.authService.ValidateToken(ctx, "not-a-token")
	suite.ErrorIs(err, ErrInvalidToken)

	suite.ErrorIs(suite.authService.Logout(ctx, nil), ErrInvalidToken)
}

func (suite *AuthServiceTestSuite) TestExpiredTokenRejected() {
	ctx := context.Background()
	suite.activeUser("alice", "alice@example.com")

	resp, err := suite.authService.Login(ctx, LoginRequest{Username: "alice", Password: "password123"})
	suite.Require().NoError(err)

	suite.authService.now = func() time.Time { return time.Now().Add(SessionTTL + time.Hour) }
	_, _, err = suite.authService.ValidateToken(ctx, resp.Token)
	suite.ErrorIs(err, ErrInvalidToken)
}

func (suite *AuthServiceTestSuite) TestForgetPasswordFlow() {
	ctx := context.Background()
	suite.activeUser("alice", "alice@example.com")

	suite.ErrorIs(suite.authService.SendForgetPasswordCode(ctx, "nobody@example.com"), ErrEmailNotFound)

	suite.Require().NoError(suite.authService.SendForgetPasswordCode(ctx, "Alice@example.com"))
	msg, ok := suite.sender.Last()
	suite.Require().True(ok)
	code := extractCode(msg.HTML)
	suite.Len(code, 6)

	req := ForgetPasswordRequest{Email: "alice@example.com", Code: "000000", NewPassword1: "newpassword1", NewPassword2: "newpassword1"}
	if code == "000000" {
		req.Code = "111111"
	}
	suite.ErrorIs(suite.authService.ForgetPassword(ctx, req), verification.ErrCodeMismatch)

	req.Code = code
	req.NewPassword2 = "different1"
	suite.ErrorIs(suite.authService.ForgetPassword(ctx, req), ErrPasswordMismatch)

	req.NewPassword2 = req.NewPassword1
	suite.Require().NoError(suite.authService.ForgetPassword(ctx, req))

	_, err := suite.authService.Login(ctx, LoginRequest{Username: "alice", Password: "newpassword1"})
	suite.NoError(err)

	// The code cannot be replayed
	suite.ErrorIs(suite.authService.ForgetPassword(ctx, req), verification.ErrCodeMismatch)
}

func (suite *AuthServiceTestSuite) TestForgetPasswordUnknownEmail() {
	err := suite.authService.ForgetPassword(context.Background(), ForgetPasswordRequest{
		Email: "nobody@example.com", Code: "123456", NewPassword1: "newpassword1", NewPassword2: "newpassword1",
	})
	suite.ErrorIs(err, ErrEmailNotFound)
}

func (suite *AuthServiceTestSuite) TestCreateUserByAdmin() {
	user := suite.activeUser("carol", "carol@example.com")
	suite.True(user.IsActive)
	suite.Equal(models.SourceAdminSite, user.Source)
	suite.False(user.IsSuperuser)

	_, err := suite.authService.CreateUser(context.Background(), CreateUserRequest{
		Username: "carol", Password1: "password123", Password2: "password123",
	}, models.SourceAdminSite)
	suite.ErrorIs(err, ErrUsernameExists)
}

func (suite *AuthServiceTestSuite) TestPromoteToSuperuser() {
	suite.register("dave", "dave@example.com")

	user, err := suite.authService.PromoteToSuperuser(context.Background(), "dave@example.com")
	suite.Require().NoError(err)
	suite.True(user.IsSuperuser)

	var stored models.User
	suite.Require().NoError(suite.db.First(&stored, user.ID).Error)
	suite.True(stored.IsSuperuser)
	suite.True(stored.IsActive)

	_, err = suite.authService.PromoteToSuperuser(context.Background(), "nobody")
	suite.ErrorIs(err, ErrUserNotFound)
}

func extractCode(body string) string {
	const marker = "verification code is: "
	i := strings.Index(body, marker)
	if i < 0 {
		return ""
	}
	rest := body[i+len(marker):]
	if len(rest) < 6 {
		return ""
	}
	return rest[:6]
}

func TestAuthServiceTestSuite(t *testing.T) {
	suite.Run(t, new(AuthServiceTestSuite))
}

func TestCheckPasswords(t *testing.T) {
	assert.NoError(t, checkPasswords("password123", "password123"))
	assert.ErrorIs(t, checkPasswords("password123", "password124"), ErrPasswordMismatch)
	assert.ErrorIs(t, checkPasswords("1234567", "1234567"), ErrPasswordTooShort)
}
