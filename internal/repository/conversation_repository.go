package repository

import (
	"context"
	"errors"

	"tenant-inbox/internal/domain/conversation"
	inbox_errors "tenant-inbox/pkg/errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type GormConversationRepository struct {
	db *gorm.DB
}

func NewConversationRepository(db *gorm.DB) ConversationRepository {
	return &GormConversationRepository{db: db}
}

const counterpartClause = "(agent_id = ? OR owner_id = ?)"

func (r *GormConversationRepository) Create(ctx context.Context, c *conversation.Conversation) error {
	res := r.db.WithContext(ctx).Omit(clause.Associations).Create(c)
	if res.Error != nil {
		if isUniqueViolation(res.Error) {
			return inbox_errors.ErrAlreadyExists
		}
		return res.Error
	}
	return nil
}

func (r *GormConversationRepository) GetByID(ctx context.Context, id uuid.UUID) (conversation.Conversation, error) {
	var c conversation.Conversation
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&c).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return conversation.Conversation{}, inbox_errors.ErrNotFound
		}
		return conversation.Conversation{}, err
	}
	return c, nil
}

// Update writes the mutable columns only. Subject and participants never
// change after creation.
func (r *GormConversationRepository) Update(ctx context.Context, c conversation.Conversation) error {
	res := r.db.WithContext(ctx).
		Model(&conversation.Conversation{}).
		Where("id = ?", c.ID).
		Select("status", "unread_for_tenant", "unread_for_counterpart", "last_activity_at", "updated_at").
		Updates(map[string]interface{}{
			"status":                 c.Status,
			"unread_for_tenant":      c.UnreadForTenant,
			"unread_for_counterpart": c.UnreadForCounterpart,
			"last_activity_at":       c.LastActivityAt,
			"updated_at":             c.UpdatedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return inbox_errors.ErrNotFound
	}
	return nil
}

func (r *GormConversationRepository) LockByIDs(ctx context.Context, ids []uuid.UUID) ([]conversation.Conversation, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var convs []conversation.Conversation
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id IN ?", ids).
		Order("id").
		Find(&convs).Error
	if err != nil {
		return nil, err
	}
	if len(convs) != len(ids) {
		return nil, inbox_errors.ErrNotFound
	}
	return convs, nil
}

func (r *GormConversationRepository) ListForTenant(ctx context.Context, tenantID uuid.UUID, filter ConversationFilter, page, limit int) ([]conversation.Conversation, int64, error) {
	base := func() *gorm.DB {
		q := r.db.WithContext(ctx).
			Model(&conversation.Conversation{}).
			Where("tenant_id = ?", tenantID)
		return applyFilter(q, filter)
	}

	var total int64
	if err := base().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	q := base().Order("last_activity_at DESC").Order("id DESC")
	if limit > 0 {
		q = q.Offset(pageOffset(page, limit)).Limit(limit)
	}
	var convs []conversation.Conversation
	if err := q.Find(&convs).Error; err != nil {
		return nil, 0, err
	}
	return convs, total, nil
}

func (r *GormConversationRepository) ListForCounterpart(ctx context.Context, counterpartID uuid.UUID) ([]conversation.Conversation, error) {
	var convs []conversation.Conversation
	err := r.db.WithContext(ctx).
		Where(counterpartClause, counterpartID, counterpartID).
		Order("last_activity_at DESC").
		Order("id DESC").
		Find(&convs).Error
	if err != nil {
		return nil, err
	}
	return convs, nil
}

// GroupByTenant aggregates all of the counterpart's conversations per
// tenant. Totals and ordering cover every member; a filter only decides
// whether a group is kept, which it is when at least one member matches.
// Groups are ordered by their latest activity.
func (r *GormConversationRepository) GroupByTenant(ctx context.Context, counterpartID uuid.UUID, filter ConversationFilter, page, limit int) ([]TenantGroupRow, int64, error) {
	matches, matchArgs := "1", []interface{}(nil)
	if cond, args := filterCondition(filter); cond != "" {
		matches, matchArgs = "CASE WHEN "+cond+" THEN 1 ELSE 0 END", args
	}
	base := func() *gorm.DB {
		return r.db.WithContext(ctx).
			Model(&conversation.Conversation{}).
			Where(counterpartClause, counterpartID, counterpartID).
			Group("tenant_id").
			Having("SUM("+matches+") > 0", matchArgs...)
	}

	var total int64
	err := r.db.WithContext(ctx).
		Table("(?) AS tenant_groups", base().Select("tenant_id")).
		Count(&total).Error
	if err != nil {
		return nil, 0, err
	}

	var rows []TenantGroupRow
	err = base().
		Select("tenant_id, COALESCE(SUM(unread_for_counterpart), 0) AS total_unread, COUNT(*) AS conversation_count, SUM("+matches+") AS matching_count", matchArgs...).
		Order("MAX(last_activity_at) DESC").
		Order("tenant_id").
		Offset(pageOffset(page, limit)).
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// GroupRepresentatives returns the conversations of the given tenants that
// match filter, most recent first. The first row per tenant is its
// representative.
func (r *GormConversationRepository) GroupRepresentatives(ctx context.Context, counterpartID uuid.UUID, tenantIDs []uuid.UUID, filter ConversationFilter) ([]conversation.Conversation, error) {
	if len(tenantIDs) == 0 {
		return nil, nil
	}
	q := r.db.WithContext(ctx).
		Model(&conversation.Conversation{}).
		Where(counterpartClause, counterpartID, counterpartID).
		Where("tenant_id IN ?", tenantIDs)
	q = applyFilter(q, filter)

	var convs []conversation.Conversation
	if err := q.Order("last_activity_at DESC").Order("id DESC").Find(&convs).Error; err != nil {
		return nil, err
	}
	return convs, nil
}

func (r *GormConversationRepository) GroupMembers(ctx context.Context, counterpartID, tenantID uuid.UUID) ([]conversation.Conversation, error) {
	var convs []conversation.Conversation
	err := r.db.WithContext(ctx).
		Where(counterpartClause, counterpartID, counterpartID).
		Where("tenant_id = ?", tenantID).
		Order("last_activity_at DESC").
		Order("id DESC").
		Find(&convs).Error
	if err != nil {
		return nil, err
	}
	return convs, nil
}

func (r *GormConversationRepository) SumUnreadForTenant(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&conversation.Conversation{}).
		Select("COALESCE(SUM(unread_for_tenant), 0)").
		Where("tenant_id = ?", tenantID).
		Scan(&total).Error
	return total, err
}

func (r *GormConversationRepository) SumUnreadForCounterpart(ctx context.Context, counterpartID uuid.UUID) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&conversation.Conversation{}).
		Select("COALESCE(SUM(unread_for_counterpart), 0)").
		Where(counterpartClause, counterpartID, counterpartID).
		Scan(&total).Error
	return total, err
}
