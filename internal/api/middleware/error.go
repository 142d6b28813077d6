package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"fantasy-backtest/internal/logger"
)

// ErrorHandler middleware handles panics and errors
func ErrorHandler() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		logger.WithHTTPContext(c.Request.Method, c.Request.URL.Path, c.ClientIP()).
			WithField("panic", recovered).
			Error("recovered from panic")

		message := "An unexpected error occurred"
		if s, ok := recovered.(string); ok {
			message = s
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error": gin.H{
				"code":    "INTERNAL_ERROR",
				"message": message,
			},
		})
	})
}
