// Package config loads server settings from the environment, an optional
// .env file and an optional TOML config file.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime settings for the blog server and the quillctl tool.
type Config struct {
	Port        string
	Environment string
	SiteDomain  string

	// SecretKey signs account activation links; JWTSecret signs session tokens.
	SecretKey string
	JWTSecret string

	Database DatabaseConfig
	Redis    RedisConfig
	Email    EmailConfig
	AMap     AMapConfig
	Export   ExportConfig
	Tracing  TracingConfig
	Log      LogConfig

	SidebarCacheTTL time.Duration
	AvatarCacheTTL  time.Duration
	VerifyCodeTTL   time.Duration

	// RequiredServices names backends that must answer at startup
	RequiredServices []string
	// TrustedProxies may set X-Forwarded-For; empty trusts none
	TrustedProxies []string
}

type DatabaseConfig struct {
	Driver string // "postgres" or "sqlite"
	URL    string
	Path   string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
}

// Enabled reports whether a Redis host was configured. Without one the server
// falls back to the in-process cache.
func (r RedisConfig) Enabled() bool {
	return r.Host != ""
}

type EmailConfig struct {
	Region   string
	From     string
	FromName string
}

type AMapConfig struct {
	Key string
	URL string
}

type ExportConfig struct {
	Bucket   string
	Region   string
	BaseURL  string
	// Interval between nightly export checks, zero disables the scheduler
	Interval time.Duration
}

type TracingConfig struct {
	Enabled      bool
	Endpoint     string
	SamplingRate float64
}

type LogConfig struct {
	Level string
	File  string
}

// IsDevelopment reports whether the server runs in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8787")
	v.SetDefault("environment", "development")
	v.SetDefault("site_domain", "localhost:8787")

	v.SetDefault("db.driver", "postgres")
	v.SetDefault("db.path", "quill.db")

	v.SetDefault("redis.port", "6379")

	v.SetDefault("aws.region", "us-east-1")
	v.SetDefault("email.from_name", "Quill")

	v.SetDefault("amap.url", "https://restapi.amap.com/v3/assistant/coordinate/convert")

	v.SetDefault("otel.sampling_rate", 1.0)
	v.SetDefault("otel.endpoint", "localhost:4318")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "quill.log")

	v.SetDefault("sidebar_cache_ttl", 3*time.Hour)
	v.SetDefault("avatar_cache_ttl", 10*time.Hour)
	v.SetDefault("verify_code_ttl", 5*time.Minute)
	v.SetDefault("owntracks.export_interval", time.Hour)
}

// Load builds a Config from defaults, then the TOML file at configPath (if
// any), then environment variables. Keys map to env vars by upper-casing and
// replacing dots, e.g. redis.host -> REDIS_HOST.
func Load(configPath string) (*Config, error) {
	// Missing .env is fine; production uses the real environment
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	cfg := &Config{
		Port:        v.GetString("port"),
		Environment: v.GetString("environment"),
		SiteDomain:  v.GetString("site_domain"),
		SecretKey:   v.GetString("secret_key"),
		JWTSecret:   v.GetString("jwt_secret"),
		Database: DatabaseConfig{
			Driver: strings.ToLower(v.GetString("db.driver")),
			URL:    v.GetString("database_url"),
			Path:   v.GetString("db.path"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetString("redis.port"),
			Password: v.GetString("redis.password"),
		},
		Email: EmailConfig{
			Region:   v.GetString("aws.region"),
			From:     v.GetString("email.from"),
			FromName: v.GetString("email.from_name"),
		},
		AMap: AMapConfig{
			Key: v.GetString("amap.key"),
			URL: v.GetString("amap.url"),
		},
		Export: ExportConfig{
			Bucket:   v.GetString("owntracks.export_bucket"),
			Region:   v.GetString("aws.region"),
			BaseURL:  v.GetString("owntracks.export_base_url"),
			Interval: v.GetDuration("owntracks.export_interval"),
		},
		Tracing: TracingConfig{
			Enabled:      v.GetBool("otel.enabled"),
			Endpoint:     v.GetString("otel.endpoint"),
			SamplingRate: v.GetFloat64("otel.sampling_rate"),
		},
		Log: LogConfig{
			Level: v.GetString("log.level"),
			File:  v.GetString("log.file"),
		},
		SidebarCacheTTL: v.GetDuration("sidebar_cache_ttl"),
		AvatarCacheTTL:  v.GetDuration("avatar_cache_ttl"),
		VerifyCodeTTL:   v.GetDuration("verify_code_ttl"),

		RequiredServices: splitList(v.GetString("required_services")),
		TrustedProxies:   splitList(v.GetString("trusted_proxies")),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET environment variable is required")
	}
	if c.SecretKey == "" {
		return errors.New("SECRET_KEY environment variable is required")
	}
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return errors.New("DB_DRIVER must be postgres or sqlite")
	}
	if c.VerifyCodeTTL <= 0 || c.SidebarCacheTTL <= 0 {
		return errors.New("cache TTLs must be positive")
	}
	return nil
}

// splitList parses a comma separated setting, dropping blanks
func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.ToLower(strings.TrimSpace(part)); part != "" {
			out = append(out, part)
		}
	}
	return out
}
