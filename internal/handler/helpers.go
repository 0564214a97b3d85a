package handler

import (
	"net/http"
	"strconv"

	"tenant-inbox/internal/services"
	"tenant-inbox/internal/transport/httpdto"
	"tenant-inbox/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

func parseUUID(value string) (uuid.UUID, error) {
	return uuid.Parse(value)
}

// parseOptionalUUID returns nil for an empty value.
func parseOptionalUUID(value string) (*uuid.UUID, error) {
	if value == "" {
		return nil, nil
	}
	id, err := uuid.Parse(value)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func parseInt(value string) (int, error) {
	if value == "" {
		return 0, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}
	return parsed, nil
}

func callerID(c *gin.Context) (uuid.UUID, bool) {
	userID, ok := services.UserIDFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return uuid.Nil, false
	}
	return userID, true
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse(msg, "INVALID_INPUT"))
}

// respondError writes the error envelope. Unexpected failures are logged and
// reach the client without details.
func respondError(c *gin.Context, l *logger.Logger, err error) {
	status := services.HTTPStatus(err)
	if status == http.StatusInternalServerError && l != nil {
		l.ErrorCtx(c.Request.Context(), "request failed",
			zap.String("path", c.FullPath()),
			zap.Error(err))
	}
	c.JSON(status, httpdto.NewErrorResponse(services.PublicMessage(err), services.ErrorCode(err)))
}

func pageParams(c *gin.Context) (int, int, bool) {
	page, err := parseInt(c.Query("page"))
	if err != nil {
		badRequest(c, "invalid page")
		return 0, 0, false
	}
	limit, err := parseInt(c.Query("limit"))
	if err != nil {
		badRequest(c, "invalid limit")
		return 0, 0, false
	}
	return page, limit, true
}
