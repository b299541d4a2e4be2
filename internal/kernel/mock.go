package kernel

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/quillblog/backend/internal/cache"
	"github.com/quillblog/backend/internal/config"
	"github.com/quillblog/backend/internal/database"
	"github.com/quillblog/backend/internal/email"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Mock is a kernel wired over an in-memory SQLite database, the in-process
// cache and a recording mail sender. Handler tests use it to drive the real
// services without external infrastructure.
type Mock struct {
	*Kernel
	Config *config.Config
	Store  *cache.MemoryStore
	Mail   *email.MockSender
}

// TestConfig returns settings suitable for tests
func TestConfig() *config.Config {
	return &config.Config{
		Port:            "0",
		Environment:     "test",
		SiteDomain:      "blog.test",
		SecretKey:       "test-secret-key",
		JWTSecret:       "test-jwt-secret",
		Database:        config.DatabaseConfig{Driver: "sqlite"},
		SidebarCacheTTL: 3 * time.Hour,
		AvatarCacheTTL:  10 * time.Hour,
		VerifyCodeTTL:   5 * time.Minute,
	}
}

// NewMock opens a private in-memory database, migrates it and wires every
// service. Register a converter or uploader and call Wire again to enable
// the optional services.
func NewMock() (*Mock, error) {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open test database: %w", err)
	}
	if err := database.MigrateDB(db); err != nil {
		return nil, err
	}

	m := &Mock{
		Kernel: New(),
		Config: TestConfig(),
		Store:  cache.NewMemoryStore(),
		Mail:   &email.MockSender{},
	}
	m.SetDB(db).SetCache(m.Store).SetMailSender(m.Mail)
	m.OnCleanup(func(context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	})
	if err := m.Wire(m.Config); err != nil {
		return nil, err
	}
	return m, nil
}
