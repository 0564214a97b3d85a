package repository

import (
	"context"

	"tenant-inbox/internal/domain"
	"tenant-inbox/internal/domain/message"
	inbox_errors "tenant-inbox/pkg/errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type GormMessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &GormMessageRepository{db: db}
}

func (r *GormMessageRepository) Create(ctx context.Context, m *message.Message) error {
	res := r.db.WithContext(ctx).Create(m)
	if res.Error != nil {
		if isUniqueViolation(res.Error) {
			return inbox_errors.ErrAlreadyExists
		}
		return res.Error
	}
	return nil
}

// ListByConversations pages through the merged log of the conversations in
// creation order, ties broken by id.
func (r *GormMessageRepository) ListByConversations(ctx context.Context, conversationIDs []uuid.UUID, page, limit int) ([]message.Message, int64, error) {
	if len(conversationIDs) == 0 {
		return nil, 0, nil
	}
	base := func() *gorm.DB {
		return r.db.WithContext(ctx).
			Model(&message.Message{}).
			Where("conversation_id IN ?", conversationIDs)
	}

	var total int64
	if err := base().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var msgs []message.Message
	err := base().
		Order("created_at ASC").
		Order("id ASC").
		Offset(pageOffset(page, limit)).
		Limit(limit).
		Find(&msgs).Error
	if err != nil {
		return nil, 0, err
	}
	return msgs, total, nil
}

const newerMessageExists = `NOT EXISTS (
	SELECT 1 FROM messages n
	WHERE n.conversation_id = messages.conversation_id
	AND (n.created_at > messages.created_at OR (n.created_at = messages.created_at AND n.id > messages.id))
)`

func (r *GormMessageRepository) LatestPerConversation(ctx context.Context, conversationIDs []uuid.UUID) (map[uuid.UUID]message.Message, error) {
	out := make(map[uuid.UUID]message.Message, len(conversationIDs))
	if len(conversationIDs) == 0 {
		return out, nil
	}
	var msgs []message.Message
	err := r.db.WithContext(ctx).
		Where("messages.conversation_id IN ?", conversationIDs).
		Where(newerMessageExists).
		Find(&msgs).Error
	if err != nil {
		return nil, err
	}
	for _, m := range msgs {
		out[m.ConversationID] = m
	}
	return out, nil
}

func (r *GormMessageRepository) MarkReadForRole(ctx context.Context, conversationIDs []uuid.UUID, role domain.Role) (int64, error) {
	if len(conversationIDs) == 0 {
		return 0, nil
	}
	column := readFlagColumn(role)
	res := r.db.WithContext(ctx).
		Model(&message.Message{}).
		Where("conversation_id IN ?", conversationIDs).
		Where(column+" = ?", false).
		UpdateColumn(column, true)
	return res.RowsAffected, res.Error
}

func (r *GormMessageRepository) CountUnreadForRole(ctx context.Context, conversationID uuid.UUID, role domain.Role) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&message.Message{}).
		Where("conversation_id = ?", conversationID).
		Where(readFlagColumn(role)+" = ?", false).
		Count(&total).Error
	return total, err
}
