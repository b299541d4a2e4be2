// Package backend provides the Quill blog API server.
//
// The server entry point is cmd/server and the maintenance CLI is
// cmd/quillctl. The implementation is organized into subpackages:
//
//   - internal/handlers: HTTP request handlers for all API endpoints
//   - internal/kernel: dependency wiring and shutdown order
//   - internal/auth: registration, login, activation links and password reset
//   - internal/verification: short-lived email verification codes
//   - internal/sidebar: cached sidebar aggregation and tag cloud weights
//   - internal/owntracks: OwnTracks ingestion, track queries, AMap conversion and scheduled S3 export
//   - internal/avatar: cached gravatar URLs
//   - internal/models: data models and database schemas
//   - internal/repository: gorm-backed data access
//   - internal/database: database connection and migrations
//   - internal/cache: Redis and in-memory cache stores
//   - internal/email: SES delivery and the email send log
//   - internal/storage: S3 object storage
//   - internal/middleware: request ids, logging, auth, rate limiting, metrics, tracing
//   - internal/metrics, internal/telemetry: Prometheus metrics and OpenTelemetry tracing
//   - internal/seed: demo data generation
//   - internal/validation: startup checks for required backends
//
// See the individual package documentation for detailed API reference.
package backend
