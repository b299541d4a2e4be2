package database

import (
	"fmt"
	"os"
	"time"

	"github.com/quillblog/backend/internal/config"
	"github.com/quillblog/backend/internal/logger"
	"github.com/quillblog/backend/internal/models"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// DB holds the database connection
var DB *gorm.DB

// Initialize opens the configured database and stores it in DB
func Initialize(cfg config.DatabaseConfig, development bool) error {
	db, err := Open(cfg, development)
	if err != nil {
		return err
	}
	DB = db
	return nil
}

// Open creates and configures a database connection without touching DB
func Open(cfg config.DatabaseConfig, development bool) (*gorm.DB, error) {
	gormLogger := gormlogger.Default.LogMode(gormlogger.Warn)
	if development {
		gormLogger = gormlogger.Default.LogMode(gormlogger.Info)
	}

	gormConfig := &gorm.Config{
		Logger: gormLogger,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}

	var dialector gorm.Dialector
	switch cfg.Driver {
	case "sqlite":
		dialector = sqlite.Open(cfg.Path)
	case "postgres", "":
		dialector = postgres.Open(postgresDSN(cfg.URL))
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	if cfg.Driver == "sqlite" {
		// sqlite serialises writers; one connection avoids "database is locked"
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetMaxOpenConns(100)
		sqlDB.SetConnMaxLifetime(time.Hour)
	}

	logger.Log.Info("✅ Database connected successfully", zap.String("driver", cfg.Driver))
	return db, nil
}

// postgresDSN falls back to the individual DB_* variables when no URL is set
func postgresDSN(url string) string {
	if url != "" {
		return url
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		getEnvOrDefault("DB_HOST", "localhost"),
		getEnvOrDefault("DB_PORT", "5432"),
		getEnvOrDefault("DB_USER", "postgres"),
		getEnvOrDefault("DB_PASSWORD", ""),
		getEnvOrDefault("DB_NAME", "quill"),
		getEnvOrDefault("DB_SSLMODE", "disable"),
	)
}

// Models lists every persisted model in migration order
func Models() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Category{},
		&models.Tag{},
		&models.Article{},
		&models.Link{},
		&models.SideBar{},
		&models.BlogSettings{},
		&models.Comment{},
		&models.OwnTrackLog{},
		&models.EmailSendLog{},
		&models.Command{},
	}
}

// Migrate runs auto-migration for all models against DB
func Migrate() error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}
	return MigrateDB(DB)
}

// MigrateDB runs auto-migration for all models against db
func MigrateDB(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	if db.Dialector.Name() == "postgres" {
		db.Exec("CREATE INDEX IF NOT EXISTS idx_users_email_lower ON users (LOWER(email))")
		db.Exec("CREATE INDEX IF NOT EXISTS idx_users_username_lower ON users (LOWER(username))")
		db.Exec("CREATE INDEX IF NOT EXISTS idx_articles_published_views ON articles (views DESC) WHERE status = 'p'")
	}

	logger.Log.Info("✅ Database migrations completed")
	return nil
}

// Close closes the database connection
func Close() error {
	if DB == nil {
		return nil
	}

	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}

	return sqlDB.Close()
}

// Health checks database connectivity
func Health() error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}

	return sqlDB.Ping()
}

// getEnvOrDefault returns environment variable or default value
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
