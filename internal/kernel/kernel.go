// Package kernel wires the blog's infrastructure into its services and owns
// their shutdown order.
package kernel

import (
	"context"
	"sync"

	"github.com/quillblog/backend/internal/auth"
	"github.com/quillblog/backend/internal/avatar"
	"github.com/quillblog/backend/internal/cache"
	"github.com/quillblog/backend/internal/config"
	"github.com/quillblog/backend/internal/email"
	"github.com/quillblog/backend/internal/logger"
	"github.com/quillblog/backend/internal/owntracks"
	"github.com/quillblog/backend/internal/repository"
	"github.com/quillblog/backend/internal/sidebar"
	"github.com/quillblog/backend/internal/storage"
	"github.com/quillblog/backend/internal/verification"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Kernel holds all application dependencies and provides type-safe access.
// Infrastructure is registered with Set* methods, then Wire builds the
// services on top of it.
type Kernel struct {
	// Core infrastructure
	db        *gorm.DB
	logger    *zap.Logger
	store     cache.Store
	sender    email.Sender
	converter owntracks.Converter
	uploader  storage.Uploader

	// Repositories
	users         repository.UserRepository
	serverManager repository.ServerManagerRepository

	// Services
	mailer   *email.Mailer
	codes    *verification.Service
	auth     *auth.Service
	sidebar  *sidebar.Builder
	avatars  *avatar.Resolver
	tracks   *owntracks.Service
	exporter *owntracks.Exporter

	// Lifecycle hooks
	cleanupFuncs []func(context.Context) error
	mu           sync.RWMutex
}

// New creates a new empty kernel
func New() *Kernel {
	return &Kernel{
		cleanupFuncs: make([]func(context.Context) error, 0),
	}
}

// SetDB registers the database connection
func (k *Kernel) SetDB(db *gorm.DB) *Kernel {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.db = db
	return k
}

// SetLogger registers the logger
func (k *Kernel) SetLogger(l *zap.Logger) *Kernel {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.logger = l
	return k
}

// SetCache registers the cache store (Redis or in-memory)
func (k *Kernel) SetCache(store cache.Store) *Kernel {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.store = store
	return k
}

// SetMailSender registers the outgoing mail transport
func (k *Kernel) SetMailSender(sender email.Sender) *Kernel {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.sender = sender
	return k
}

// SetConverter registers the coordinate converter used by get-datas
func (k *Kernel) SetConverter(c owntracks.Converter) *Kernel {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.converter = c
	return k
}

// SetUploader registers the object store used for location exports
func (k *Kernel) SetUploader(u storage.Uploader) *Kernel {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.uploader = u
	return k
}

// Wire builds repositories and services from the registered infrastructure.
// A missing mail sender falls back to logging mail instead of sending it.
func (k *Kernel) Wire(cfg *config.Config) error {
	if err := k.Validate(); err != nil {
		return err
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	if k.sender == nil {
		k.sender = email.LogSender{}
	}

	k.users = repository.NewUserRepository(k.db)
	k.serverManager = repository.NewServerManagerRepository(k.db)

	k.mailer = email.NewMailer(k.sender, k.db)
	k.codes = verification.NewService(k.store, cfg.VerifyCodeTTL)
	k.auth = auth.NewService(k.users, k.codes, k.mailer, k.store, auth.Options{
		JWTSecret:  []byte(cfg.JWTSecret),
		SecretKey:  cfg.SecretKey,
		SiteDomain: cfg.SiteDomain,
		Secure:     !cfg.IsDevelopment(),
	})
	k.sidebar = sidebar.NewBuilder(k.db, k.store, cfg.SidebarCacheTTL)
	k.avatars = avatar.NewResolver(k.store, cfg.AvatarCacheTTL, "")
	k.tracks = owntracks.NewService(repository.NewOwnTrackRepository(k.db), k.converter)
	if k.uploader != nil {
		k.exporter = owntracks.NewExporter(k.tracks, k.uploader)
	}

	k.log().Info("Kernel wired",
		zap.Bool("amap", k.converter != nil),
		zap.Bool("export", k.exporter != nil),
	)
	return nil
}

func (k *Kernel) log() *zap.Logger {
	if k.logger == nil {
		return logger.Log
	}
	return k.logger
}

// DB returns the database connection
func (k *Kernel) DB() *gorm.DB {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.db
}

// Logger returns the logger instance
func (k *Kernel) Logger() *zap.Logger {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.log()
}

// Cache returns the cache store
func (k *Kernel) Cache() cache.Store {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.store
}

// Users returns the user repository
func (k *Kernel) Users() repository.UserRepository {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.users
}

// ServerManager returns the admin console repository
func (k *Kernel) ServerManager() repository.ServerManagerRepository {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.serverManager
}

// Mailer returns the logging mailer
func (k *Kernel) Mailer() *email.Mailer {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.mailer
}

// Auth returns the account service
func (k *Kernel) Auth() *auth.Service {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.auth
}

// Sidebar returns the sidebar builder
func (k *Kernel) Sidebar() *sidebar.Builder {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.sidebar
}

// Avatars returns the gravatar resolver
func (k *Kernel) Avatars() *avatar.Resolver {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.avatars
}

// OwnTracks returns the location service
func (k *Kernel) OwnTracks() *owntracks.Service {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.tracks
}

// Exporter returns the location exporter, nil when no object store is set
func (k *Kernel) Exporter() *owntracks.Exporter {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.exporter
}

// Uploader returns the object store, nil when no bucket is configured
func (k *Kernel) Uploader() storage.Uploader {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.uploader
}

// OnCleanup registers a cleanup function to be called during shutdown.
// Cleanup functions are called in LIFO order (last registered, first cleaned up).
func (k *Kernel) OnCleanup(fn func(context.Context) error) *Kernel {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.cleanupFuncs = append(k.cleanupFuncs, fn)
	return k
}

// Cleanup performs graceful shutdown of all registered services. Every
// function runs even when an earlier one fails; the first error is returned.
func (k *Kernel) Cleanup(ctx context.Context) error {
	k.mu.Lock()
	funcs := k.cleanupFuncs
	k.cleanupFuncs = nil
	k.mu.Unlock()

	var first error
	for i := len(funcs) - 1; i >= 0; i-- {
		if err := funcs[i](ctx); err != nil {
			k.log().Error("Cleanup function failed", zap.Int("index", i), zap.Error(err))
			if first == nil {
				first = err
			}
		}
	}
	return first
}

// Validate checks that all required dependencies are registered
func (k *Kernel) Validate() error {
	k.mu.RLock()
	defer k.mu.RUnlock()

	missingDeps := []string{}
	if k.db == nil {
		missingDeps = append(missingDeps, "database (DB)")
	}
	if k.store == nil {
		missingDeps = append(missingDeps, "cache store")
	}

	if len(missingDeps) > 0 {
		return NewInitializationError("Missing required dependencies", missingDeps)
	}
	return nil
}
