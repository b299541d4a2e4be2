// Package validation checks that backends named as required are reachable
// before the server starts taking traffic.
package validation

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/quillblog/backend/internal/cache"
	"github.com/quillblog/backend/internal/kernel"
	"github.com/quillblog/backend/internal/logger"
	"go.uber.org/zap"
)

const checkTimeout = 10 * time.Second

// Check pings one backend
type Check func(ctx context.Context) error

type bucketChecker interface {
	CheckBucketAccess(ctx context.Context) error
}

// Checks returns the health checks for the infrastructure registered on k
func Checks(k *kernel.Kernel) map[string]Check {
	return map[string]Check{
		"database": func(ctx context.Context) error {
			if k.DB() == nil {
				return fmt.Errorf("database not configured")
			}
			sqlDB, err := k.DB().DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
		"redis": func(ctx context.Context) error {
			rc, ok := k.Cache().(*cache.RedisClient)
			if !ok {
				return fmt.Errorf("redis not configured, using in-memory cache")
			}
			return rc.Ping(ctx)
		},
		"s3": func(ctx context.Context) error {
			bc, ok := k.Uploader().(bucketChecker)
			if !ok {
				return fmt.Errorf("export bucket not configured")
			}
			return bc.CheckBucketAccess(ctx)
		},
	}
}

// ValidateRequiredServices runs the named checks in order and stops at the
// first failure. An unknown name is an error.
func ValidateRequiredServices(ctx context.Context, checks map[string]Check, required []string) error {
	if len(required) == 0 {
		logger.Log.Info("No required services configured for validation")
		return nil
	}

	logger.Log.Info("Validating required services", zap.Strings("services", required))

	for _, name := range required {
		check, ok := checks[name]
		if !ok {
			return fmt.Errorf("unknown required service %q (known: %v)", name, known(checks))
		}

		timeoutCtx, cancel := context.WithTimeout(ctx, checkTimeout)
		err := check(timeoutCtx)
		cancel()
		if err != nil {
			logger.Log.Error("Required service validation failed",
				zap.String("service", name),
				zap.Error(err),
			)
			return fmt.Errorf("required service %q: %w", name, err)
		}

		logger.Log.Info("Service validated", zap.String("service", name))
	}

	return nil
}

func known(checks map[string]Check) []string {
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
