// Package middleware contains gin middleware shared by the HTTP surface.
package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/shorts-radar/shorts-discovery-go/pkg/logger"
)

// HeaderOperatorSecret carries the shared secret on operator-only endpoints.
const HeaderOperatorSecret = "X-Operator-Secret"

// OperatorAuth guards operator-only endpoints with a shared secret. Comparison is
// constant-time. An empty configured secret rejects every request rather than
// becoming an open door.
func OperatorAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		provided := c.GetHeader(HeaderOperatorSecret)

		if secret == "" || provided == "" ||
			subtle.ConstantTimeCompare([]byte(provided), []byte(secret)) != 1 {
			logger.Log.Warn("unauthorized operator request",
				zap.String("path", c.Request.URL.Path),
				zap.String("remoteAddr", c.ClientIP()),
			)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"ok":    false,
				"error": "unauthorized",
			})
			return
		}

		c.Next()
	}
}
