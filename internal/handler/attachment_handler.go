package handler

import (
	"fmt"
	"net/http"
	"strings"

	"tenant-inbox/internal/services"
	"tenant-inbox/internal/transport/httpdto"
	"tenant-inbox/pkg/logger"

	"github.com/gin-gonic/gin"
)

type AttachmentHandler struct {
	service *services.AttachmentService
	logger  *logger.Logger
}

func NewAttachmentHandler(service *services.AttachmentService, l *logger.Logger) *AttachmentHandler {
	return &AttachmentHandler{service: service, logger: l}
}

func (h *AttachmentHandler) Upload(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	conversationID, err := parseOptionalUUID(c.PostForm("conversation_id"))
	if err != nil {
		badRequest(c, "invalid conversation_id")
		return
	}

	upload, file, err := formAttachment(c, "file")
	if err != nil {
		badRequest(c, "invalid file")
		return
	}
	if upload == nil {
		badRequest(c, "file is required")
		return
	}
	defer file.Close()

	result, err := h.service.Upload(c.Request.Context(), userID, *upload, conversationID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, httpdto.NewSuccessResponse(httpdto.UploadResult{
		Path:     result.Locator,
		Name:     result.Name,
		Size:     result.Size,
		MimeType: result.MimeHint,
	}))
}

func (h *AttachmentHandler) Download(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	locator := strings.TrimPrefix(c.Param("locator"), "/")
	if locator == "" {
		badRequest(c, "file path is required")
		return
	}

	result, err := h.service.Download(c.Request.Context(), userID, locator)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Name))
	c.Data(http.StatusOK, result.MimeHint, result.Data)
}
