// Package handlers exposes the blog's JSON API over gin.
package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/quillblog/backend/internal/auth"
	"github.com/quillblog/backend/internal/avatar"
	"github.com/quillblog/backend/internal/cache"
	"github.com/quillblog/backend/internal/kernel"
	"github.com/quillblog/backend/internal/middleware"
	"github.com/quillblog/backend/internal/owntracks"
	"github.com/quillblog/backend/internal/repository"
	"github.com/quillblog/backend/internal/sidebar"
	"gorm.io/gorm"
)

// Handlers contains all HTTP handlers for the API
type Handlers struct {
	auth          auth.AuthServiceInterface
	users         repository.UserRepository
	serverManager repository.ServerManagerRepository
	sidebar       *sidebar.Builder
	avatars       *avatar.Resolver
	tracks        *owntracks.Service
	exporter      *owntracks.Exporter
	db            *gorm.DB
	store         cache.Store
}

// NewHandlers creates a new handlers instance from a wired kernel
func NewHandlers(k *kernel.Kernel) *Handlers {
	return &Handlers{
		auth:          k.Auth(),
		users:         k.Users(),
		serverManager: k.ServerManager(),
		sidebar:       k.Sidebar(),
		avatars:       k.Avatars(),
		tracks:        k.OwnTracks(),
		exporter:      k.Exporter(),
		db:            k.DB(),
		store:         k.Cache(),
	}
}

// RouteOptions holds optional middleware placed in front of specific routes.
// A nil entry is skipped.
type RouteOptions struct {
	// AuthLimit guards register, login and forget-password
	AuthLimit gin.HandlerFunc
	// CodeLimit guards forget-password-code
	CodeLimit gin.HandlerFunc
	// IngestLimit guards OwnTracks ingestion
	IngestLimit gin.HandlerFunc
	// TrackCache caches get-datas responses
	TrackCache gin.HandlerFunc
}

func chain(mw ...gin.HandlerFunc) []gin.HandlerFunc {
	out := make([]gin.HandlerFunc, 0, len(mw))
	for _, m := range mw {
		if m != nil {
			out = append(out, m)
		}
	}
	return out
}

// RegisterRoutes mounts every API route on r
func (h *Handlers) RegisterRoutes(r gin.IRouter, opts RouteOptions) {
	requireAuth := middleware.RequireAuth(h.auth)
	optionalAuth := middleware.OptionalAuth(h.auth)

	r.GET("/health", h.Health)

	// Accounts
	r.POST("/register", append(chain(opts.AuthLimit), h.Register)...)
	r.POST("/login", append(chain(opts.AuthLimit), h.Login)...)
	r.POST("/logout", requireAuth, h.Logout)
	r.GET("/account-result", h.AccountResult)
	r.POST("/forget-password", append(chain(opts.AuthLimit), h.ForgetPassword)...)
	r.POST("/forget-password-code", append(chain(opts.CodeLimit), h.ForgetPasswordCode)...)

	// Blog widgets
	r.GET("/sidebar", optionalAuth, h.Sidebar)
	r.GET("/avatar", h.Avatar)

	// OwnTracks
	tracks := r.Group("/owntracks")
	{
		tracks.POST("/logs", append(chain(opts.IngestLimit), h.IngestLocation)...)
		tracks.GET("/show-maps", requireAuth, middleware.RequireSuperuser(), h.ShowMaps)
		tracks.GET("/show-log-dates", requireAuth, h.ShowLogDates)
		tracks.GET("/get-datas", append([]gin.HandlerFunc{requireAuth}, append(chain(opts.TrackCache), h.GetDatas)...)...)
	}

	// Admin console
	admin := r.Group("/admin", requireAuth, middleware.RequireSuperuser())
	{
		admin.GET("/users", h.AdminListUsers)
		admin.POST("/users", h.AdminCreateUser)
		admin.GET("/email-logs", h.AdminListEmailLogs)
		admin.GET("/commands", h.AdminListCommands)
		admin.POST("/commands", h.AdminCreateCommand)
		admin.DELETE("/sidebar-cache", h.AdminClearSidebarCache)
		admin.POST("/owntracks/export", h.AdminExportLocations)
	}
}
