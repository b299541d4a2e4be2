package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/quillblog/backend/internal/cache"
	"github.com/quillblog/backend/internal/config"
	"github.com/quillblog/backend/internal/database"
	"github.com/quillblog/backend/internal/email"
	"github.com/quillblog/backend/internal/handlers"
	"github.com/quillblog/backend/internal/kernel"
	"github.com/quillblog/backend/internal/logger"
	"github.com/quillblog/backend/internal/metrics"
	"github.com/quillblog/backend/internal/middleware"
	"github.com/quillblog/backend/internal/owntracks"
	"github.com/quillblog/backend/internal/storage"
	"github.com/quillblog/backend/internal/telemetry"
	"github.com/quillblog/backend/internal/validation"
	"go.uber.org/zap"
)

const (
	serviceName     = "quill-backend"
	shutdownTimeout = 30 * time.Second
	// trackCacheTTL applies to get-datas responses for days that have ended
	trackCacheTTL = 24 * time.Hour
	janitorPeriod = time.Minute
)

func main() {
	configPath := flag.String("config", "", "Path to a TOML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.FatalWithFields("Failed to load configuration", err)
	}

	if err := logger.Initialize(cfg.Log.Level, cfg.Log.File); err != nil {
		logger.FatalWithFields("Failed to initialize logger", err)
	}
	defer logger.Close()

	logger.Log.Info("=== Quill server starting ===",
		zap.String("environment", cfg.Environment),
		zap.String("site", cfg.SiteDomain),
	)

	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	k := kernel.New().SetLogger(logger.Log)

	// Tracing first so the database plugin can attach to the provider
	tp, err := telemetry.InitTracer(context.Background(), telemetry.Config{
		ServiceName:  serviceName,
		Environment:  cfg.Environment,
		OTLPEndpoint: cfg.Tracing.Endpoint,
		Enabled:      cfg.Tracing.Enabled,
		SamplingRate: cfg.Tracing.SamplingRate,
	})
	if err != nil {
		logger.WarnWithFields("Tracing disabled, exporter setup failed", err)
	}
	k.OnCleanup(func(ctx context.Context) error { return telemetry.Shutdown(ctx, tp) })

	// Initialize database
	if err := database.Initialize(cfg.Database, cfg.IsDevelopment()); err != nil {
		logger.FatalWithFields("Failed to initialize database", err)
	}
	if tp != nil {
		if err := database.DB.Use(telemetry.GORMTracingPlugin()); err != nil {
			logger.WarnWithFields("Failed to register GORM tracing plugin", err)
		}
	}
	if err := database.Migrate(); err != nil {
		logger.FatalWithFields("Failed to run migrations", err)
	}
	k.SetDB(database.DB)
	k.OnCleanup(func(context.Context) error { return database.Close() })

	// Redis when configured, otherwise the in-process cache
	if cfg.Redis.Enabled() {
		redisClient, err := cache.NewRedisClient(cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password)
		if err != nil {
			logger.FatalWithFields("Failed to connect to Redis", err)
		}
		k.SetCache(redisClient)
		k.OnCleanup(func(context.Context) error { return redisClient.Close() })
	} else {
		logger.Log.Info("REDIS_HOST not set, using in-memory cache")
		memStore := cache.NewMemoryStore()
		memStore.StartJanitor(janitorPeriod)
		k.SetCache(memStore)
		k.OnCleanup(func(context.Context) error { memStore.Stop(); return nil })
	}

	// Email via SES when a sender address is configured
	if cfg.Email.From != "" {
		sender, err := email.NewSESSender(cfg.Email.Region, cfg.Email.From, cfg.Email.FromName)
		if err != nil {
			logger.WarnWithFields("SES unavailable, emails will only be logged", err)
		} else {
			k.SetMailSender(sender)
		}
	}

	if cfg.AMap.Key != "" {
		k.SetConverter(owntracks.NewAMapClient(cfg.AMap.URL, cfg.AMap.Key))
	}

	if cfg.Export.Bucket != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		uploader, err := storage.NewS3Uploader(ctx, cfg.Export.Region, cfg.Export.Bucket, cfg.Export.BaseURL)
		if err == nil {
			if accessErr := uploader.CheckBucketAccess(ctx); accessErr != nil {
				logger.Log.Warn("S3 bucket access failed, continuing", zap.Error(accessErr))
			}
			k.SetUploader(uploader)
		} else {
			logger.WarnWithFields("Location export disabled", err)
		}
		cancel()
	}

	if err := k.Wire(cfg); err != nil {
		logger.FatalWithFields("Failed to wire services", err)
	}

	if err := validation.ValidateRequiredServices(context.Background(), validation.Checks(k), cfg.RequiredServices); err != nil {
		logger.FatalWithFields("Required service check failed", err)
	}

	if exporter := k.Exporter(); exporter != nil && cfg.Export.Interval > 0 {
		scheduler := owntracks.NewExportScheduler(exporter, k.Cache(), cfg.Export.Interval)
		scheduler.Start()
		k.OnCleanup(func(context.Context) error { scheduler.Stop(); return nil })
	}

	metrics.Initialize()

	r := gin.New()
	if err := middleware.TrustProxies(r, cfg.TrustedProxies); err != nil {
		logger.FatalWithFields("Invalid TRUSTED_PROXIES", err)
	}
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.GinLoggerMiddleware())
	r.Use(middleware.MetricsMiddleware())
	if tp != nil {
		r.Use(middleware.TracingMiddleware(serviceName))
	}

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{"*"}
	if !cfg.IsDevelopment() {
		corsConfig.AllowOrigins = []string{"https://" + cfg.SiteDomain}
		corsConfig.AllowCredentials = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", middleware.RequestIDHeader}
	r.Use(cors.New(corsConfig))
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})))

	store := k.Cache()
	h := handlers.NewHandlers(k)
	h.RegisterRoutes(r, handlers.RouteOptions{
		AuthLimit:   middleware.SmartRateLimit(store, "auth", middleware.AuthRateLimitConfig()),
		CodeLimit:   middleware.SmartRateLimit(store, "code", middleware.CodeRateLimitConfig()),
		IngestLimit: middleware.SmartRateLimit(store, "ingest", middleware.IngestRateLimitConfig()),
		TrackCache:  middleware.ResponseCacheMiddleware(store, trackCacheTTL, handlers.PastDayOnly),
	})
	r.GET("/metrics", handlers.Metrics())

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Log.Info("Quill backend listening", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.FatalWithFields("Failed to start server", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("Shutting down server...")

	// Give outstanding requests 30 seconds to complete
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.ErrorWithFields("Server forced to shutdown", err)
	}
	if err := k.Cleanup(ctx); err != nil {
		logger.ErrorWithFields("Cleanup finished with errors", err)
	}

	logger.Log.Info("Server exited")
}
