package repository

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"tenant-inbox/internal/domain"
	"tenant-inbox/internal/domain/conversation"
	"tenant-inbox/internal/domain/message"
	"tenant-inbox/internal/domain/user"
)

// ConversationFilter narrows listings. Zero values mean no filter.
type ConversationFilter struct {
	Status domain.ConversationStatus
	Search string
}

func (f ConversationFilter) IsZero() bool {
	return f.Status == "" && strings.TrimSpace(f.Search) == ""
}

// TenantGroupRow is one aggregated row of the counterpart inbox.
type TenantGroupRow struct {
	TenantID          uuid.UUID
	TotalUnread       int
	ConversationCount int
	// MatchingCount is the number of members passing the filter.
	MatchingCount int
}

type ConversationRepository interface {
	Create(ctx context.Context, c *conversation.Conversation) error
	GetByID(ctx context.Context, id uuid.UUID) (conversation.Conversation, error)
	Update(ctx context.Context, c conversation.Conversation) error

	// LockByIDs loads the rows in id order and holds a row lock on them
	// until the surrounding transaction ends.
	LockByIDs(ctx context.Context, ids []uuid.UUID) ([]conversation.Conversation, error)

	ListForTenant(ctx context.Context, tenantID uuid.UUID, filter ConversationFilter, page, limit int) ([]conversation.Conversation, int64, error)
	ListForCounterpart(ctx context.Context, counterpartID uuid.UUID) ([]conversation.Conversation, error)

	GroupByTenant(ctx context.Context, counterpartID uuid.UUID, filter ConversationFilter, page, limit int) ([]TenantGroupRow, int64, error)
	GroupRepresentatives(ctx context.Context, counterpartID uuid.UUID, tenantIDs []uuid.UUID, filter ConversationFilter) ([]conversation.Conversation, error)
	GroupMembers(ctx context.Context, counterpartID, tenantID uuid.UUID) ([]conversation.Conversation, error)

	SumUnreadForTenant(ctx context.Context, tenantID uuid.UUID) (int64, error)
	SumUnreadForCounterpart(ctx context.Context, counterpartID uuid.UUID) (int64, error)
}

type MessageRepository interface {
	Create(ctx context.Context, m *message.Message) error

	ListByConversations(ctx context.Context, conversationIDs []uuid.UUID, page, limit int) ([]message.Message, int64, error)
	LatestPerConversation(ctx context.Context, conversationIDs []uuid.UUID) (map[uuid.UUID]message.Message, error)

	// MarkReadForRole sets the viewer side's read flag on every message of
	// the conversations and returns the number of rows changed.
	MarkReadForRole(ctx context.Context, conversationIDs []uuid.UUID, role domain.Role) (int64, error)
	CountUnreadForRole(ctx context.Context, conversationID uuid.UUID, role domain.Role) (int64, error)
}

type DirectoryRepository interface {
	GetUserByID(ctx context.Context, id uuid.UUID) (user.User, error)
	GetUsersByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]user.User, error)
	GetPropertiesByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]user.Property, error)
	GetActiveTenancy(ctx context.Context, tenantID uuid.UUID) (user.Tenancy, error)
}
