package handlers

import (
	stderrors "errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/quillblog/backend/internal/auth"
	"github.com/quillblog/backend/internal/errors"
	"github.com/quillblog/backend/internal/logger"
	"github.com/quillblog/backend/internal/models"
	"github.com/quillblog/backend/internal/util"
	"go.uber.org/zap"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

func pagination(c *gin.Context) (limit, offset int) {
	limit = util.ParseInt(c.Query("limit"), defaultPageSize)
	if limit <= 0 || limit > maxPageSize {
		limit = defaultPageSize
	}
	offset = util.ParseInt(c.Query("offset"), 0)
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// AdminListUsers lists accounts, newest first
// GET /admin/users?limit=&offset=
func (h *Handlers) AdminListUsers(c *gin.Context) {
	limit, offset := pagination(c)
	ctx := c.Request.Context()

	users, err := h.users.ListUsers(ctx, limit, offset)
	if err != nil {
		util.RespondInternalError(c, "Failed to list users", err)
		return
	}
	total, err := h.users.GetTotalUserCount(ctx)
	if err != nil {
		util.RespondInternalError(c, "Failed to count users", err)
		return
	}

	out := make([]*models.PublicUser, 0, len(users))
	for _, u := range users {
		out = append(out, u.ToPublic())
	}
	c.JSON(http.StatusOK, gin.H{
		"users":  out,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}

// AdminCreateUser creates an active account from the admin console
// POST /admin/users
func (h *Handlers) AdminCreateUser(c *gin.Context) {
	var req auth.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	user, err := h.auth.CreateUser(c.Request.Context(), req, models.SourceAdminSite)
	if err != nil {
		respondAccountError(c, "Failed to create user", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"user": user.ToPublic()})
}

// AdminListEmailLogs lists sent emails, newest first
// GET /admin/email-logs?limit=&offset=
func (h *Handlers) AdminListEmailLogs(c *gin.Context) {
	limit, offset := pagination(c)

	logs, err := h.serverManager.ListEmailLogs(c.Request.Context(), limit, offset)
	if err != nil {
		util.RespondInternalError(c, "Failed to list email logs", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"email_logs": logs, "limit": limit, "offset": offset})
}

// AdminListCommands lists saved commands
// GET /admin/commands
func (h *Handlers) AdminListCommands(c *gin.Context) {
	cmds, err := h.serverManager.ListCommands(c.Request.Context())
	if err != nil {
		util.RespondInternalError(c, "Failed to list commands", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"commands": cmds})
}

// AdminCreateCommand saves a named command
// POST /admin/commands
func (h *Handlers) AdminCreateCommand(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	var req struct {
		Title       string `json:"title" binding:"required,max=300"`
		Command     string `json:"command" binding:"required,max=2000"`
		Description string `json:"describe" binding:"max=300"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	cmd := &models.Command{
		Title:       strings.TrimSpace(req.Title),
		Command:     req.Command,
		Description: req.Description,
	}
	if err := h.serverManager.CreateCommand(c.Request.Context(), cmd); err != nil {
		util.RespondInternalError(c, "Failed to create command", err)
		return
	}

	logger.Log.Info("Command saved", logger.WithUserID(userID), zap.Uint("command_id", cmd.ID))
	c.JSON(http.StatusCreated, gin.H{"command": cmd})
}

// AdminClearSidebarCache drops every cached sidebar bundle
// DELETE /admin/sidebar-cache
func (h *Handlers) AdminClearSidebarCache(c *gin.Context) {
	if err := h.sidebar.Invalidate(c.Request.Context()); err != nil {
		util.RespondInternalError(c, "Failed to clear sidebar cache", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "sidebar cache cleared"})
}

// AdminExportLocations uploads a day's location logs to object storage
// POST /admin/owntracks/export?date=
func (h *Handlers) AdminExportLocations(c *gin.Context) {
	if h.exporter == nil {
		util.RespondWithAPIError(c, errors.ServiceUnavailable("location export"))
		return
	}
	day, ok := parseDay(c)
	if !ok {
		return
	}

	result, err := h.exporter.ExportDay(c.Request.Context(), day)
	if err != nil {
		var apiErr *errors.APIError
		if stderrors.As(err, &apiErr) {
			util.RespondWithAPIError(c, apiErr)
			return
		}
		util.RespondInternalError(c, "Failed to export location logs", err)
		return
	}
	c.JSON(http.StatusOK, result)
}
