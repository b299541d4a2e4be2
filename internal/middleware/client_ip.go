package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/quillblog/backend/internal/logger"
	"go.uber.org/zap"
)

// TrustProxies limits which peers may set X-Forwarded-For and X-Real-IP.
// With no proxies the client IP is always the connection's remote address,
// so rate limit keys cannot be chosen by the client.
func TrustProxies(r *gin.Engine, proxies []string) error {
	if err := r.SetTrustedProxies(proxies); err != nil {
		return err
	}
	if len(proxies) == 0 {
		logger.Log.Info("No trusted proxies, forwarded client IPs are ignored")
	} else {
		logger.Log.Info("Trusting forwarded client IPs", zap.Strings("proxies", proxies))
	}
	return nil
}

func clientIPKey(c *gin.Context) string {
	return c.ClientIP()
}
