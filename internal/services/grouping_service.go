package services

import (
	"context"
	"time"

	"tenant-inbox/internal/domain/conversation"
	"tenant-inbox/internal/domain/message"
	"tenant-inbox/internal/repository"

	"github.com/google/uuid"
)

// TenantGroup is the unit a counterpart sees in the inbox: every
// conversation one tenant opened with them. The stored unit stays the
// conversation; Representative is the member with the latest activity.
type TenantGroup struct {
	TenantID        uuid.UUID
	Representative  conversation.Conversation
	ConversationIDs []uuid.UUID
	TotalUnread     int
	LatestActivity  time.Time
	LatestMessage   *message.Message
}

func (g TenantGroup) Title() string {
	return groupTitle(g.Representative.TenantName)
}

type GroupingService struct {
	convRepo repository.ConversationRepository
	msgRepo  repository.MessageRepository
}

func NewGroupingService(convRepo repository.ConversationRepository, msgRepo repository.MessageRepository) *GroupingService {
	return &GroupingService{convRepo: convRepo, msgRepo: msgRepo}
}

// ListGroups pages through the counterpart's tenant groups, most recently
// active first. Aggregation runs in the database; only the page's members
// are loaded. TotalUnread and LatestActivity cover every member of a group,
// while the representative and ConversationIDs come from matching members.
func (s *GroupingService) ListGroups(ctx context.Context, counterpartID uuid.UUID, filter repository.ConversationFilter, page, pageSize int) ([]TenantGroup, int64, error) {
	rows, total, err := s.convRepo.GroupByTenant(ctx, counterpartID, filter, page, pageSize)
	if err != nil {
		return nil, 0, err
	}
	if len(rows) == 0 {
		return []TenantGroup{}, total, nil
	}

	tenantIDs := make([]uuid.UUID, len(rows))
	for i, row := range rows {
		tenantIDs[i] = row.TenantID
	}
	members, err := s.convRepo.GroupRepresentatives(ctx, counterpartID, tenantIDs, filter)
	if err != nil {
		return nil, 0, err
	}
	everyone := members
	if !filter.IsZero() {
		everyone, err = s.convRepo.GroupRepresentatives(ctx, counterpartID, tenantIDs, repository.ConversationFilter{})
		if err != nil {
			return nil, 0, err
		}
	}
	latestActivity := make(map[uuid.UUID]time.Time, len(rows))
	for _, c := range everyone {
		if c.LastActivityAt.After(latestActivity[c.TenantID]) {
			latestActivity[c.TenantID] = c.LastActivityAt
		}
	}

	byTenant := make(map[uuid.UUID]*TenantGroup, len(rows))
	for _, c := range members {
		g, ok := byTenant[c.TenantID]
		if !ok {
			// Members arrive most recent first.
			g = &TenantGroup{
				TenantID:       c.TenantID,
				Representative: c,
				LatestActivity: latestActivity[c.TenantID],
			}
			byTenant[c.TenantID] = g
		}
		g.ConversationIDs = append(g.ConversationIDs, c.ID)
	}

	latest, err := s.msgRepo.LatestPerConversation(ctx, conversationIDs(members))
	if err != nil {
		return nil, 0, err
	}

	groups := make([]TenantGroup, 0, len(rows))
	for _, row := range rows {
		g, ok := byTenant[row.TenantID]
		if !ok {
			continue
		}
		g.TotalUnread = row.TotalUnread
		for _, id := range g.ConversationIDs {
			m, ok := latest[id]
			if !ok {
				continue
			}
			if g.LatestMessage == nil || g.LatestMessage.Before(m) {
				candidate := m
				g.LatestMessage = &candidate
			}
		}
		groups = append(groups, *g)
	}
	return groups, total, nil
}
