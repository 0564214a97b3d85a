package middleware

import (
	"net/http"

	"tenant-inbox/internal/services"
	"tenant-inbox/internal/transport/httpdto"
	"tenant-inbox/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ErrorHandler renders errors attached with c.Error when the handler did not
// write a response itself.
func ErrorHandler(l *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		status := services.HTTPStatus(err)
		if status == http.StatusInternalServerError && l != nil {
			l.ErrorCtx(c.Request.Context(), "request error", zap.Error(err))
		}
		c.JSON(status, httpdto.NewErrorResponse(services.PublicMessage(err), services.ErrorCode(err)))
	}
}

// Recovery turns a panic into a 500 envelope.
func Recovery(l *logger.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		if l != nil {
			l.ErrorCtx(c.Request.Context(), "panic recovered", zap.Any("panic", recovered))
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, httpdto.NewErrorResponse("internal error", "INTERNAL_ERROR"))
	})
}
