package services

import (
	"context"
	"fmt"
	"strings"

	"tenant-inbox/internal/domain/conversation"
	"tenant-inbox/internal/domain/message"
	"tenant-inbox/internal/domain/user"
	"tenant-inbox/internal/events"
	"tenant-inbox/internal/proxy"
	"tenant-inbox/internal/repository"
	inbox_errors "tenant-inbox/pkg/errors"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type SendInput struct {
	// ConversationID is nil when the tenant opens a new conversation.
	ConversationID  *uuid.UUID
	Subject         string
	Body            string
	ClientMessageID string
	Attachment      *FileUpload
}

type SendResult struct {
	Message      MessageView
	Conversation ConversationSummary
	Created      bool
}

type MessagesPage struct {
	Conversation ConversationSummary
	Messages     []MessageView
	Pagination   Pagination
}

type MessageService struct {
	deps        Dependencies
	convRepo    repository.ConversationRepository
	access      *proxy.AccessControl
	attachments *AttachmentService
	summaries   summarizer
}

func NewMessageService(deps Dependencies, convRepo repository.ConversationRepository, directory repository.DirectoryRepository, access *proxy.AccessControl, attachments *AttachmentService) *MessageService {
	return &MessageService{
		deps:        deps.withDefaults(),
		convRepo:    convRepo,
		access:      access,
		attachments: attachments,
		summaries:   summarizer{directory: directory},
	}
}

// Send appends to an existing conversation, or opens one when no
// conversation id is given.
func (s *MessageService) Send(ctx context.Context, callerID uuid.UUID, in SendInput) (SendResult, error) {
	caller, err := s.deps.Identities.ResolveIdentity(ctx, callerID)
	if err != nil {
		return SendResult{}, err
	}
	if strings.TrimSpace(in.Body) == "" {
		return SendResult{}, fmt.Errorf("%w: message is required", inbox_errors.ErrInvalidInput)
	}
	if in.ConversationID == nil {
		return s.open(ctx, caller, in)
	}
	return s.append(ctx, caller, *in.ConversationID, in)
}

// CreateConversation is the explicit creation path for tenants.
func (s *MessageService) CreateConversation(ctx context.Context, callerID uuid.UUID, subject, body, clientMessageID string) (SendResult, error) {
	return s.Send(ctx, callerID, SendInput{Subject: subject, Body: body, ClientMessageID: clientMessageID})
}

// Reply appends to an existing conversation.
func (s *MessageService) Reply(ctx context.Context, callerID, conversationID uuid.UUID, body, clientMessageID string, attachment *FileUpload) (SendResult, error) {
	return s.Send(ctx, callerID, SendInput{
		ConversationID:  &conversationID,
		Body:            body,
		ClientMessageID: clientMessageID,
		Attachment:      attachment,
	})
}

func (s *MessageService) open(ctx context.Context, caller user.Identity, in SendInput) (SendResult, error) {
	if err := proxy.EnsureCanCreate(caller); err != nil {
		return SendResult{}, err
	}
	if strings.TrimSpace(in.Subject) == "" {
		return SendResult{}, fmt.Errorf("%w: subject is required for new conversations", inbox_errors.ErrInvalidInput)
	}
	tenancy, ok, err := s.deps.Tenancies.ActiveTenancy(ctx, caller.ID)
	if err != nil {
		return SendResult{}, err
	}
	if !ok {
		return SendResult{}, fmt.Errorf("%w: no active tenancy", inbox_errors.ErrNotFound)
	}

	now := s.deps.Clock()
	conv, err := conversation.New(conversation.NewParams{
		TenantID:   caller.ID,
		TenantName: caller.DisplayName,
		AgentID:    tenancy.AgentID,
		OwnerID:    tenancy.OwnerID,
		PropertyID: tenancy.PropertyID,
		Subject:    in.Subject,
	}, now)
	if err != nil {
		return SendResult{}, err
	}

	attachment, err := s.storeAttachment(ctx, conv.ID, in.Attachment)
	if err != nil {
		return SendResult{}, err
	}
	msg, err := message.New(message.NewParams{
		ConversationID:  conv.ID,
		ClientMessageID: in.ClientMessageID,
		SenderID:        caller.ID,
		SenderName:      caller.DisplayName,
		SenderRole:      proxy.ResolveSenderRole(conv, caller.ID, caller.Role),
		Body:            in.Body,
		Attachment:      attachment,
	}, now)
	if err != nil {
		s.discardAttachment(ctx, attachment)
		return SendResult{}, err
	}

	// The opening message is already counted by conversation.New.
	err = s.deps.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := repository.NewConversationRepository(tx).Create(ctx, &conv); err != nil {
			return err
		}
		return repository.NewMessageRepository(tx).Create(ctx, &msg)
	})
	if err != nil {
		s.discardAttachment(ctx, attachment)
		return SendResult{}, err
	}

	s.deps.Logger.InfoCtx(ctx, "conversation opened",
		zap.String("conversation_id", conv.ID.String()),
		zap.String("counterpart_role", string(conv.CounterpartRole)))
	return s.finishSend(ctx, caller, conv, msg, true)
}

func (s *MessageService) append(ctx context.Context, caller user.Identity, conversationID uuid.UUID, in SendInput) (SendResult, error) {
	conv, err := s.access.CanViewConversation(ctx, caller, conversationID)
	if err != nil {
		return SendResult{}, err
	}
	senderRole := proxy.ResolveSenderRole(conv, caller.ID, caller.Role)

	attachment, err := s.storeAttachment(ctx, conv.ID, in.Attachment)
	if err != nil {
		return SendResult{}, err
	}

	var msg message.Message
	err = s.deps.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		convRepo := repository.NewConversationRepository(tx)
		msgRepo := repository.NewMessageRepository(tx)

		locked, err := convRepo.LockByIDs(ctx, []uuid.UUID{conversationID})
		if err != nil {
			return err
		}
		conv = locked[0]
		now := s.deps.Clock()

		msg, err = message.New(message.NewParams{
			ConversationID:  conv.ID,
			ClientMessageID: in.ClientMessageID,
			SenderID:        caller.ID,
			SenderName:      caller.DisplayName,
			SenderRole:      senderRole,
			Body:            in.Body,
			Attachment:      attachment,
		}, now)
		if err != nil {
			return err
		}

		// Sending acknowledges everything on the sender's side, keeping the
		// zeroed counter in step with the read flags.
		conv.Touch(senderRole, now)
		if err := convRepo.Update(ctx, conv); err != nil {
			return err
		}
		if _, err := msgRepo.MarkReadForRole(ctx, []uuid.UUID{conv.ID}, senderRole); err != nil {
			return err
		}
		return msgRepo.Create(ctx, &msg)
	})
	if err != nil {
		s.discardAttachment(ctx, attachment)
		return SendResult{}, err
	}
	return s.finishSend(ctx, caller, conv, msg, false)
}

// storeAttachment degrades invalid uploads to no attachment. Storage
// failures still fail the send.
func (s *MessageService) storeAttachment(ctx context.Context, conversationID uuid.UUID, upload *FileUpload) (*message.Attachment, error) {
	if upload == nil || s.attachments == nil {
		return nil, nil
	}
	a, err := s.attachments.Store(ctx, conversationScope(conversationID), *upload)
	if err != nil {
		if inbox_errors.IsValidation(err) {
			s.deps.Logger.WarnCtx(ctx, "attachment dropped",
				zap.String("conversation_id", conversationID.String()),
				zap.String("file_name", upload.Name),
				zap.Error(err))
			return nil, nil
		}
		return nil, err
	}
	return &a, nil
}

// discardAttachment removes the blob of a send that did not commit. The
// removal outlives a cancelled request.
func (s *MessageService) discardAttachment(ctx context.Context, a *message.Attachment) {
	if a == nil {
		return
	}
	if err := s.attachments.Discard(context.WithoutCancel(ctx), *a); err != nil {
		s.deps.Logger.WarnCtx(ctx, "orphaned attachment left in storage",
			zap.String("locator", a.Locator),
			zap.Error(err))
	}
}

func (s *MessageService) finishSend(ctx context.Context, caller user.Identity, conv conversation.Conversation, msg message.Message, created bool) (SendResult, error) {
	recipient := conv.Counterpart().ID
	if !caller.Role.IsTenant() {
		recipient = conv.TenantID
	}
	publishAfterCommit(ctx, s.deps, events.MessageSentEvent{
		MessageID:      msg.ID,
		ConversationID: conv.ID,
		SenderID:       caller.ID,
		SenderRole:     msg.SenderRole,
		RecipientID:    recipient,
		HasAttachment:  msg.HasAttachment(),
		Created:        created,
		At:             msg.CreatedAt,
	})

	summary, err := s.summaries.summarize(ctx, conv, caller.Role)
	if err != nil {
		return SendResult{}, err
	}
	return SendResult{
		Message:      newMessageView(msg, caller.Role),
		Conversation: summary,
		Created:      created,
	}, nil
}

// GetMessages returns one page of the conversation log and marks it read for
// the caller. For counterparts the log and the read cover every conversation
// the tenant has opened with them.
func (s *MessageService) GetMessages(ctx context.Context, callerID, conversationID uuid.UUID, page, pageSize int) (MessagesPage, error) {
	caller, err := s.deps.Identities.ResolveIdentity(ctx, callerID)
	if err != nil {
		return MessagesPage{}, err
	}
	conv, err := s.access.CanViewConversation(ctx, caller, conversationID)
	if err != nil {
		return MessagesPage{}, err
	}
	page, pageSize = normalizePage(page, pageSize, DefaultMessagePageSize)

	members, err := readScope(ctx, s.convRepo, conv, caller)
	if err != nil {
		return MessagesPage{}, err
	}
	ids := conversationIDs(members)

	var (
		locked []conversation.Conversation
		marked int64
		msgs   []message.Message
		total  int64
	)
	err = s.deps.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		locked, marked, err = markRead(ctx, tx, ids, caller.Role, s.deps.Clock())
		if err != nil {
			return err
		}
		msgs, total, err = repository.NewMessageRepository(tx).ListByConversations(ctx, ids, page, pageSize)
		return err
	})
	if err != nil {
		return MessagesPage{}, err
	}

	for _, c := range locked {
		if c.ID == conv.ID {
			conv = c
		}
	}
	if marked > 0 {
		publishAfterCommit(ctx, s.deps, events.ConversationReadEvent{
			ConversationIDs: ids,
			ReaderID:        caller.ID,
			ReaderRole:      caller.Role,
			MessagesMarked:  marked,
			At:              s.deps.Clock(),
		})
	}

	summary, err := s.summaries.summarize(ctx, conv, caller.Role)
	if err != nil {
		return MessagesPage{}, err
	}
	summary.ConversationIDs = ids

	views := make([]MessageView, len(msgs))
	for i, m := range msgs {
		views[i] = newMessageView(m, caller.Role)
	}
	return MessagesPage{
		Conversation: summary,
		Messages:     views,
		Pagination:   newPagination(page, pageSize, total),
	}, nil
}
