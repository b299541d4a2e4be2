package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/quillblog/backend/internal/auth"
	"github.com/quillblog/backend/internal/errors"
	"github.com/quillblog/backend/internal/models"
	"github.com/quillblog/backend/internal/util"
)

// TokenValidator resolves a bearer token to its user
type TokenValidator interface {
	ValidateToken(ctx context.Context, tokenString string) (*models.User, *auth.Claims, error)
}

// SessionCookie is read when no Authorization header is sent
const SessionCookie = "quill_session"

// bearerToken extracts the token from "Authorization: Bearer <t>" or the
// session cookie
func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header != "" {
		scheme, token, ok := strings.Cut(header, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	if cookie, err := c.Cookie(SessionCookie); err == nil {
		return cookie
	}
	return ""
}

func setIdentity(c *gin.Context, user *models.User, claims *auth.Claims) {
	c.Set(util.ContextUser, user)
	c.Set(util.ContextUserID, user.ID)
	c.Set(util.ContextClaims, claims)
	c.Set(util.ContextTokenID, claims.ID)
}

// RequireAuth rejects requests without a valid, unrevoked session token
func RequireAuth(v TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			util.RespondAbort(c, errors.Unauthorized("no token provided"))
			return
		}

		user, claims, err := v.ValidateToken(c.Request.Context(), token)
		if err != nil {
			util.RespondAbort(c, errors.Unauthorized("invalid token"))
			return
		}

		setIdentity(c, user, claims)
		c.Next()
	}
}

// OptionalAuth sets the user when a valid token is present and lets
// anonymous requests through otherwise
func OptionalAuth(v TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token := bearerToken(c); token != "" {
			if user, claims, err := v.ValidateToken(c.Request.Context(), token); err == nil {
				setIdentity(c, user, claims)
			}
		}
		c.Next()
	}
}
