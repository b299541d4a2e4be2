package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/quillblog/backend/internal/avatar"
	"github.com/quillblog/backend/internal/models"
	"github.com/quillblog/backend/internal/util"
)

// maxAvatarSize is the largest size gravatar serves
const maxAvatarSize = 2048

// Sidebar returns the cached sidebar bundle for a link show type. The
// caller's account is injected when the request is authenticated.
// GET /sidebar?linktype=i
func (h *Handlers) Sidebar(c *gin.Context) {
	linkType := c.DefaultQuery("linktype", models.LinkShowIndex)
	if !models.IsValidLinkShowType(linkType) {
		util.RespondValidationError(c, "linktype", "unknown link show type")
		return
	}

	user, _ := util.OptionalUser(c)
	bundle, err := h.sidebar.Load(c.Request.Context(), user, linkType)
	if err != nil {
		util.RespondInternalError(c, "Failed to load sidebar", err)
		return
	}
	c.JSON(http.StatusOK, bundle)
}

// Avatar returns the gravatar URL for an email
// GET /avatar?email=&size=40
func (h *Handlers) Avatar(c *gin.Context) {
	email := c.Query("email")
	if email == "" {
		util.RespondValidationError(c, "email", "email is required")
		return
	}
	size := util.ParseInt(c.Query("size"), avatar.DefaultSize)
	if size <= 0 || size > maxAvatarSize {
		util.RespondValidationError(c, "size", "size must be between 1 and 2048")
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": h.avatars.URL(c.Request.Context(), email, size)})
}
