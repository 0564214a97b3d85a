package handler

import (
	"context"
	"mime/multipart"
	"net/http"
	"strings"

	"tenant-inbox/internal/services"
	"tenant-inbox/internal/transport/httpdto"
	"tenant-inbox/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type MessagingHandler struct {
	messages      *services.MessageService
	inbox         *services.InboxService
	conversations *services.ConversationService
	logger        *logger.Logger
}

func NewMessagingHandler(messages *services.MessageService, inbox *services.InboxService, conversations *services.ConversationService, l *logger.Logger) *MessagingHandler {
	return &MessagingHandler{messages: messages, inbox: inbox, conversations: conversations, logger: l}
}

// formAttachment opens the optional multipart file under field. The returned
// closer is non-nil whenever an upload is returned.
func formAttachment(c *gin.Context, field string) (*services.FileUpload, multipart.File, error) {
	if !strings.HasPrefix(c.ContentType(), "multipart/") {
		return nil, nil, nil
	}
	header, err := c.FormFile(field)
	if err == http.ErrMissingFile {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}
	file, err := header.Open()
	if err != nil {
		return nil, nil, err
	}
	return &services.FileUpload{Name: header.Filename, Size: header.Size, Reader: file}, file, nil
}

func (h *MessagingHandler) Send(c *gin.Context) {
	var req httpdto.SendMessageRequest
	if err := c.ShouldBind(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}

	userID, ok := callerID(c)
	if !ok {
		return
	}

	conversationID, err := parseOptionalUUID(req.ConversationID)
	if err != nil {
		badRequest(c, "invalid conversation_id")
		return
	}

	upload, file, err := formAttachment(c, "attachment")
	if err != nil {
		badRequest(c, "invalid attachment")
		return
	}
	if file != nil {
		defer file.Close()
	}

	result, err := h.messages.Send(c.Request.Context(), userID, services.SendInput{
		ConversationID:  conversationID,
		Subject:         req.Subject,
		Body:            req.Message,
		ClientMessageID: req.ClientMessageID,
		Attachment:      upload,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	status := http.StatusOK
	if result.Created {
		status = http.StatusCreated
	}
	c.JSON(status, httpdto.NewSuccessResponse(httpdto.FromSendResult(result)))
}

func (h *MessagingHandler) ListInbox(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	page, limit, ok := pageParams(c)
	if !ok {
		return
	}

	result, err := h.inbox.ListInbox(c.Request.Context(), userID, services.ListInboxInput{
		Page:     page,
		PageSize: limit,
		Status:   c.Query("status"),
		Search:   c.Query("search"),
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.InboxPage{
		Conversations: httpdto.FromInboxEntries(result.Entries),
		Pagination:    httpdto.FromPagination(result.Pagination),
	}))
}

func (h *MessagingHandler) CreateConversation(c *gin.Context) {
	var req httpdto.CreateConversationRequest
	if err := c.ShouldBind(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}

	userID, ok := callerID(c)
	if !ok {
		return
	}

	result, err := h.messages.CreateConversation(c.Request.Context(), userID, req.Subject, req.Message, req.ClientMessageID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, httpdto.NewSuccessResponse(httpdto.FromSendResult(result)))
}

func (h *MessagingHandler) MyConversations(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	entries, err := h.inbox.ListConversations(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.FromInboxEntries(entries)))
}

func (h *MessagingHandler) GetMessages(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	conversationID, err := parseUUID(c.Param("id"))
	if err != nil {
		badRequest(c, "invalid conversation id")
		return
	}
	page, limit, ok := pageParams(c)
	if !ok {
		return
	}

	result, err := h.messages.GetMessages(c.Request.Context(), userID, conversationID, page, limit)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.FromMessagesPage(result)))
}

func (h *MessagingHandler) Reply(c *gin.Context) {
	var req httpdto.ReplyRequest
	if err := c.ShouldBind(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}

	userID, ok := callerID(c)
	if !ok {
		return
	}
	conversationID, err := parseUUID(c.Param("id"))
	if err != nil {
		badRequest(c, "invalid conversation id")
		return
	}

	upload, file, err := formAttachment(c, "attachment")
	if err != nil {
		badRequest(c, "invalid attachment")
		return
	}
	if file != nil {
		defer file.Close()
	}

	result, err := h.messages.Reply(c.Request.Context(), userID, conversationID, req.Message, req.ClientMessageID, upload)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, httpdto.NewSuccessResponse(httpdto.FromMessage(result.Message)))
}

func (h *MessagingHandler) UnreadCount(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	count, err := h.inbox.UnreadCount(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.UnreadCount{UnreadCount: count}))
}

func (h *MessagingHandler) Close(c *gin.Context) {
	h.changeStatus(c, h.conversations.Close)
}

func (h *MessagingHandler) Reopen(c *gin.Context) {
	h.changeStatus(c, h.conversations.Reopen)
}

func (h *MessagingHandler) changeStatus(c *gin.Context, change func(ctx context.Context, callerID, conversationID uuid.UUID) (services.ConversationSummary, error)) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	conversationID, err := parseUUID(c.Param("id"))
	if err != nil {
		badRequest(c, "invalid conversation id")
		return
	}

	summary, err := change(c.Request.Context(), userID, conversationID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.FromConversation(summary)))
}
