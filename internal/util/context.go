package util

import (
	"github.com/gin-gonic/gin"
	"github.com/quillblog/backend/internal/models"
)

// Context keys set by the auth middleware
const (
	ContextUser    = "user"
	ContextUserID  = "user_id"
	ContextTokenID = "token_id"
	ContextClaims  = "claims"
)

// GetUserFromContext extracts the authenticated user from the Gin context.
// If the user is not authenticated, it responds with 401 Unauthorized.
func GetUserFromContext(c *gin.Context) (*models.User, bool) {
	user, ok := OptionalUser(c)
	if !ok {
		RespondUnauthorized(c)
		return nil, false
	}
	return user, true
}

// OptionalUser returns the authenticated user if there is one, without
// writing a response.
func OptionalUser(c *gin.Context) (*models.User, bool) {
	value, exists := c.Get(ContextUser)
	if !exists {
		return nil, false
	}
	user, ok := value.(*models.User)
	if !ok || user == nil {
		return nil, false
	}
	return user, true
}

// GetUserIDFromContext extracts the user ID from the Gin context.
// If the user is not authenticated, it responds with 401 Unauthorized.
func GetUserIDFromContext(c *gin.Context) (uint, bool) {
	userID, exists := c.Get(ContextUserID)
	if !exists {
		RespondUnauthorized(c, "unauthorized")
		return 0, false
	}
	id, ok := userID.(uint)
	if !ok {
		RespondUnauthorized(c, "unauthorized")
		return 0, false
	}
	return id, true
}
