package services

import (
	"context"
	"time"

	"tenant-inbox/internal/domain"
	"tenant-inbox/internal/domain/conversation"
	"tenant-inbox/internal/domain/user"
	"tenant-inbox/internal/events"
	"tenant-inbox/internal/proxy"
	"tenant-inbox/internal/repository"
	"tenant-inbox/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Dependencies are shared by the inbox services.
type Dependencies struct {
	DB         *gorm.DB
	Identities IdentityResolver
	Tenancies  TenancyLookup
	Publisher  events.Publisher
	Logger     *logger.Logger
	// Clock defaults to UTC wall time.
	Clock func() time.Time
}

func (d Dependencies) withDefaults() Dependencies {
	if d.Publisher == nil {
		d.Publisher = events.NopPublisher{}
	}
	if d.Logger == nil {
		d.Logger = logger.NewNop()
	}
	if d.Clock == nil {
		d.Clock = func() time.Time { return time.Now().UTC() }
	}
	return d
}

func publishAfterCommit(ctx context.Context, d Dependencies, event events.Event) {
	if err := d.Publisher.Publish(ctx, event); err != nil {
		d.Logger.WarnCtx(ctx, "event publish failed",
			zap.String("event_type", string(event.Type())),
			zap.String("aggregate_id", event.AggregateID()),
			zap.Error(err))
	}
}

// ConversationService owns conversation status changes and the read
// bookkeeping shared by the message views.
type ConversationService struct {
	deps      Dependencies
	repo      repository.ConversationRepository
	access    *proxy.AccessControl
	summaries summarizer
}

func NewConversationService(deps Dependencies, repo repository.ConversationRepository, directory repository.DirectoryRepository, access *proxy.AccessControl) *ConversationService {
	return &ConversationService{
		deps:      deps.withDefaults(),
		repo:      repo,
		access:    access,
		summaries: summarizer{directory: directory},
	}
}

func (s *ConversationService) Close(ctx context.Context, callerID, conversationID uuid.UUID) (ConversationSummary, error) {
	return s.setStatus(ctx, callerID, conversationID, domain.ConversationStatusClosed)
}

func (s *ConversationService) Reopen(ctx context.Context, callerID, conversationID uuid.UUID) (ConversationSummary, error) {
	return s.setStatus(ctx, callerID, conversationID, domain.ConversationStatusOpen)
}

// setStatus never touches unread counters. Setting the current status
// succeeds without writing.
func (s *ConversationService) setStatus(ctx context.Context, callerID, conversationID uuid.UUID, status domain.ConversationStatus) (ConversationSummary, error) {
	caller, err := s.deps.Identities.ResolveIdentity(ctx, callerID)
	if err != nil {
		return ConversationSummary{}, err
	}
	if _, err := s.access.CanViewConversation(ctx, caller, conversationID); err != nil {
		return ConversationSummary{}, err
	}

	var (
		updated conversation.Conversation
		changed bool
	)
	err = s.deps.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		convRepo := repository.NewConversationRepository(tx)
		locked, err := convRepo.LockByIDs(ctx, []uuid.UUID{conversationID})
		if err != nil {
			return err
		}
		updated = locked[0]
		changed, err = updated.SetStatus(status, s.deps.Clock())
		if err != nil {
			return err
		}
		if !changed {
			return nil
		}
		return convRepo.Update(ctx, updated)
	})
	if err != nil {
		return ConversationSummary{}, err
	}

	if changed {
		s.deps.Logger.InfoCtx(ctx, "conversation status changed",
			zap.String("conversation_id", conversationID.String()),
			zap.String("status", string(status)))
		publishAfterCommit(ctx, s.deps, events.ConversationStatusChangedEvent{
			ConversationID: conversationID,
			ChangedBy:      caller.ID,
			Status:         status,
			At:             s.deps.Clock(),
		})
	}
	return s.summaries.summarize(ctx, updated, caller.Role)
}

// readScope returns the stored conversations a read of c covers. Tenants
// read one conversation; counterparts read the whole tenant group.
func readScope(ctx context.Context, repo repository.ConversationRepository, c conversation.Conversation, caller user.Identity) ([]conversation.Conversation, error) {
	if caller.Role.IsTenant() {
		return []conversation.Conversation{c}, nil
	}
	members, err := repo.GroupMembers(ctx, caller.ID, c.TenantID)
	if err != nil {
		return nil, err
	}
	if len(members) == 0 {
		return []conversation.Conversation{c}, nil
	}
	return members, nil
}

func conversationIDs(convs []conversation.Conversation) []uuid.UUID {
	ids := make([]uuid.UUID, len(convs))
	for i, c := range convs {
		ids[i] = c.ID
	}
	return ids
}

// markRead zeroes the viewer's counters on the locked rows and flags their
// messages read in the same transaction.
func markRead(ctx context.Context, tx *gorm.DB, ids []uuid.UUID, viewer domain.Role, now time.Time) ([]conversation.Conversation, int64, error) {
	convRepo := repository.NewConversationRepository(tx)
	msgRepo := repository.NewMessageRepository(tx)

	locked, err := convRepo.LockByIDs(ctx, ids)
	if err != nil {
		return nil, 0, err
	}
	for i := range locked {
		if !locked[i].MarkRead(viewer, now) {
			continue
		}
		if err := convRepo.Update(ctx, locked[i]); err != nil {
			return nil, 0, err
		}
	}
	marked, err := msgRepo.MarkReadForRole(ctx, ids, viewer)
	if err != nil {
		return nil, 0, err
	}
	return locked, marked, nil
}
