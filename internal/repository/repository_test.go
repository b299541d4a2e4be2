package repository

import (
	"context"
	"testing"
	"time"

	"github.com/quillblog/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type RepositoryTestSuite struct {
	suite.Suite
	db    *gorm.DB
	users UserRepository
	logs  OwnTrackRepository
	admin ServerManagerRepository
}

func (suite *RepositoryTestSuite) SetupTest() {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(suite.T(), err)
	sqlDB, err := db.DB()
	require.NoError(suite.T(), err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(suite.T(), db.AutoMigrate(
		&models.User{},
		&models.OwnTrackLog{},
		&models.EmailSendLog{},
		&models.Command{},
	))

	suite.db = db
	suite.users = NewUserRepository(db)
	suite.logs = NewOwnTrackRepository(db)
	suite.admin = NewServerManagerRepository(db)
}

func (suite *RepositoryTestSuite) TearDownTest() {
	sqlDB, _ := suite.db.DB()
	sqlDB.Close()
}

func (suite *RepositoryTestSuite) TestUserLookups() {
	ctx := context.Background()
	user := &models.User{Username: "Alice", Email: "Alice@Example.com", PasswordHash: "x"}
	suite.Require().NoError(suite.users.CreateUser(ctx, user))

	got, err := suite.users.GetUserByEmail(ctx, "alice@example.com")
	suite.Require().NoError(err)
	suite.Equal(user.ID, got.ID)

	got, err = suite.users.GetUserByLogin(ctx, "alice")
	suite.Require().NoError(err)
	suite.Equal(user.ID, got.ID)

	got, err = suite.users.GetUserByLogin(ctx, "ALICE@example.com")
	suite.Require().NoError(err)
	suite.Equal(user.ID, got.ID)

	_, err = suite.users.GetUser(ctx, 999)
	suite.ErrorIs(err, ErrUserNotFound)

	_, err = suite.users.GetUserByEmail(ctx, "")
	suite.ErrorIs(err, ErrUserNotFound)

	exists, err := suite.users.UsernameExists(ctx, "ALICE")
	suite.Require().NoError(err)
	suite.True(exists)

	exists, err = suite.users.EmailExists(ctx, "bob@example.com")
	suite.Require().NoError(err)
	suite.False(exists)
}

func (suite *RepositoryTestSuite) TestUpdateFields() {
	ctx := context.Background()
	user := &models.User{Username: "bob", Email: "bob@example.com", PasswordHash: "x"}
	suite.Require().NoError(suite.users.CreateUser(ctx, user))

	suite.Require().NoError(suite.users.UpdateFields(ctx, user.ID, map[string]interface{}{"is_active": true}))
	got, err := suite.users.GetUser(ctx, user.ID)
	suite.Require().NoError(err)
	suite.True(got.IsActive)

	suite.ErrorIs(suite.users.UpdateFields(ctx, 12345, map[string]interface{}{"is_active": true}), ErrUserNotFound)
	suite.ErrorIs(suite.users.UpdateUser(ctx, &models.User{}), ErrInvalidInput)
}

func (suite *RepositoryTestSuite) TestListUsersNewestFirst() {
	ctx := context.Background()
	for _, name := range []string{"u1", "u2", "u3"} {
		suite.Require().NoError(suite.users.CreateUser(ctx, &models.User{Username: name, PasswordHash: "x"}))
	}

	users, err := suite.users.ListUsers(ctx, 2, 0)
	suite.Require().NoError(err)
	suite.Require().Len(users, 2)
	suite.Equal("u3", users[0].Username)

	count, err := suite.users.GetTotalUserCount(ctx)
	suite.Require().NoError(err)
	suite.Equal(int64(3), count)
}

func (suite *RepositoryTestSuite) TestOwnTrackRange() {
	ctx := context.Background()
	day := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	for _, at := range []time.Time{day.Add(-time.Minute), day, day.Add(23 * time.Hour), day.Add(24 * time.Hour)} {
		suite.Require().NoError(suite.logs.Create(ctx, &models.OwnTrackLog{Tid: "a", Lat: 1, Lon: 2, CreatedAt: at}))
	}

	logs, err := suite.logs.ListBetween(ctx, day, day.Add(24*time.Hour))
	suite.Require().NoError(err)
	suite.Len(logs, 2)

	times, err := suite.logs.CreationTimes(ctx)
	suite.Require().NoError(err)
	suite.Len(times, 4)
}

func (suite *RepositoryTestSuite) TestCommandsAndEmailLogs() {
	ctx := context.Background()

	suite.Require().NoError(suite.admin.CreateCommand(ctx, &models.Command{Title: "uptime", Command: "uptime"}))
	cmds, err := suite.admin.ListCommands(ctx)
	suite.Require().NoError(err)
	suite.Len(cmds, 1)

	suite.Require().NoError(suite.db.Create(&models.EmailSendLog{EmailTo: "a@example.com", Title: "first"}).Error)
	suite.Require().NoError(suite.db.Create(&models.EmailSendLog{EmailTo: "a@example.com", Title: "second"}).Error)
	logs, err := suite.admin.ListEmailLogs(ctx, 10, 0)
	suite.Require().NoError(err)
	suite.Require().Len(logs, 2)
	suite.Equal("second", logs[0].Title)
}

func TestRepositoryTestSuite(t *testing.T) {
	suite.Run(t, new(RepositoryTestSuite))
}

func TestCreateRejectsNil(t *testing.T) {
	r := NewUserRepository(nil)
	assert.ErrorIs(t, r.CreateUser(context.Background(), nil), ErrInvalidInput)
}
