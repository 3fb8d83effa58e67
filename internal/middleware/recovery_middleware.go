// internal/middleware/recovery_middleware.go
package middleware

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"printer-bridge/internal/utils"
)

// RecoveryMiddleware turns a handler panic into a 500 envelope. The printer
// session is left to the connection manager, which is never touched here.
func RecoveryMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		logger.Error("Panic recovered",
			zap.Any("panic", recovered),
			zap.String("path", c.Request.URL.Path),
			zap.String("method", c.Request.Method),
			zap.String("request_id", c.GetString(RequestIDKey)),
			zap.Stack("stacktrace"),
		)

		utils.ServiceErrorResponse(c, "Internal server error", fmt.Errorf("panic: %v", recovered))
		c.Abort()
	})
}
