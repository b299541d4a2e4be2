package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/quillblog/backend/internal/errors"
	"github.com/quillblog/backend/internal/logger"
	"github.com/quillblog/backend/internal/util"
	"go.uber.org/zap"
)

// RequireSuperuser ensures the request is authenticated and the user is a superuser.
// It must run after RequireAuth.
func RequireSuperuser() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := util.OptionalUser(c)
		if !ok {
			util.RespondAbort(c, errors.Unauthorized("unauthorized"))
			return
		}

		if !user.IsSuperuser {
			logger.Log.Warn("Superuser access denied",
				logger.WithUserID(user.ID),
				zap.String("path", c.Request.URL.Path),
			)
			util.RespondAbort(c, errors.Forbidden("superuser access required"))
			return
		}

		c.Next()
	}
}
