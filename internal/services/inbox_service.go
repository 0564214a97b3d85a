package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"tenant-inbox/internal/domain"
	"tenant-inbox/internal/domain/conversation"
	"tenant-inbox/internal/repository"
	inbox_errors "tenant-inbox/pkg/errors"

	"github.com/google/uuid"
)

type ListInboxInput struct {
	Page     int
	PageSize int
	// Status is open, closed, pending, all or empty.
	Status string
	Search string
}

// InboxEntry is one row of a listing. For counterparts listing the inbox it
// stands for a tenant group and ID is the representative conversation.
type InboxEntry struct {
	ID                uuid.UUID
	Title             string
	Subject           string
	Status            domain.ConversationStatus
	TenantID          uuid.UUID
	PropertyID        uuid.UUID
	Property          *PropertyView
	OtherParticipant  ParticipantView
	UnreadCount       int
	LastActivityAt    time.Time
	CreatedAt         time.Time
	LastMessage       *LastMessageView
	Grouped           bool
	ConversationIDs   []uuid.UUID
	ConversationCount int
}

type InboxPage struct {
	Entries    []InboxEntry
	Pagination Pagination
}

type InboxService struct {
	deps      Dependencies
	convRepo  repository.ConversationRepository
	msgRepo   repository.MessageRepository
	grouping  *GroupingService
	summaries summarizer
}

func NewInboxService(deps Dependencies, convRepo repository.ConversationRepository, msgRepo repository.MessageRepository, directory repository.DirectoryRepository, grouping *GroupingService) *InboxService {
	return &InboxService{
		deps:      deps.withDefaults(),
		convRepo:  convRepo,
		msgRepo:   msgRepo,
		grouping:  grouping,
		summaries: summarizer{directory: directory},
	}
}

func parseFilter(status, search string) (repository.ConversationFilter, error) {
	filter := repository.ConversationFilter{Search: strings.TrimSpace(search)}
	status = strings.ToLower(strings.TrimSpace(status))
	if status == "" || status == "all" {
		return filter, nil
	}
	s, ok := domain.ParseStatusFilter(status)
	if !ok {
		return repository.ConversationFilter{}, fmt.Errorf("%w: unknown status %q", inbox_errors.ErrInvalidInput, status)
	}
	filter.Status = s
	return filter, nil
}

// ListInbox lists one entry per conversation for tenants and one entry per
// tenant group for counterparts.
func (s *InboxService) ListInbox(ctx context.Context, callerID uuid.UUID, in ListInboxInput) (InboxPage, error) {
	caller, err := s.deps.Identities.ResolveIdentity(ctx, callerID)
	if err != nil {
		return InboxPage{}, err
	}
	filter, err := parseFilter(in.Status, in.Search)
	if err != nil {
		return InboxPage{}, err
	}
	page, pageSize := normalizePage(in.Page, in.PageSize, DefaultInboxPageSize)

	if !caller.Role.IsTenant() {
		return s.listGroups(ctx, caller.ID, filter, page, pageSize)
	}

	convs, total, err := s.convRepo.ListForTenant(ctx, caller.ID, filter, page, pageSize)
	if err != nil {
		return InboxPage{}, err
	}
	entries, err := s.conversationEntries(ctx, convs, caller.Role)
	if err != nil {
		return InboxPage{}, err
	}
	return InboxPage{Entries: entries, Pagination: newPagination(page, pageSize, total)}, nil
}

func (s *InboxService) listGroups(ctx context.Context, counterpartID uuid.UUID, filter repository.ConversationFilter, page, pageSize int) (InboxPage, error) {
	groups, total, err := s.grouping.ListGroups(ctx, counterpartID, filter, page, pageSize)
	if err != nil {
		return InboxPage{}, err
	}

	reps := make([]conversation.Conversation, len(groups))
	for i, g := range groups {
		reps[i] = g.Representative
	}
	snap, err := s.summaries.load(ctx, reps)
	if err != nil {
		return InboxPage{}, err
	}

	entries := make([]InboxEntry, len(groups))
	for i, g := range groups {
		rep := g.Representative
		entry := InboxEntry{
			ID:                rep.ID,
			Title:             g.Title(),
			Subject:           rep.Subject,
			Status:            rep.Status,
			TenantID:          g.TenantID,
			PropertyID:        rep.PropertyID,
			Property:          snap.property(rep.PropertyID),
			OtherParticipant:  snap.otherParticipant(rep, domain.RoleAgent),
			UnreadCount:       g.TotalUnread,
			LastActivityAt:    g.LatestActivity,
			CreatedAt:         rep.CreatedAt,
			Grouped:           true,
			ConversationIDs:   g.ConversationIDs,
			ConversationCount: len(g.ConversationIDs),
		}
		if g.LatestMessage != nil {
			entry.LastMessage = newLastMessageView(*g.LatestMessage)
		}
		entries[i] = entry
	}
	return InboxPage{Entries: entries, Pagination: newPagination(page, pageSize, total)}, nil
}

func (s *InboxService) conversationEntries(ctx context.Context, convs []conversation.Conversation, viewer domain.Role) ([]InboxEntry, error) {
	entries := make([]InboxEntry, 0, len(convs))
	if len(convs) == 0 {
		return entries, nil
	}
	snap, err := s.summaries.load(ctx, convs)
	if err != nil {
		return nil, err
	}
	latest, err := s.msgRepo.LatestPerConversation(ctx, conversationIDs(convs))
	if err != nil {
		return nil, err
	}

	for _, c := range convs {
		entry := InboxEntry{
			ID:                c.ID,
			Title:             c.Subject,
			Subject:           c.Subject,
			Status:            c.Status,
			TenantID:          c.TenantID,
			PropertyID:        c.PropertyID,
			Property:          snap.property(c.PropertyID),
			OtherParticipant:  snap.otherParticipant(c, viewer),
			UnreadCount:       c.UnreadFor(viewer),
			LastActivityAt:    c.LastActivityAt,
			CreatedAt:         c.CreatedAt,
			ConversationIDs:   []uuid.UUID{c.ID},
			ConversationCount: 1,
		}
		if m, ok := latest[c.ID]; ok {
			entry.LastMessage = newLastMessageView(m)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// ListConversations is the unpaginated listing: every conversation the
// caller takes part in, one entry each, most recent first.
func (s *InboxService) ListConversations(ctx context.Context, callerID uuid.UUID) ([]InboxEntry, error) {
	caller, err := s.deps.Identities.ResolveIdentity(ctx, callerID)
	if err != nil {
		return nil, err
	}

	var convs []conversation.Conversation
	if caller.Role.IsTenant() {
		convs, _, err = s.convRepo.ListForTenant(ctx, caller.ID, repository.ConversationFilter{}, 1, 0)
	} else {
		convs, err = s.convRepo.ListForCounterpart(ctx, caller.ID)
	}
	if err != nil {
		return nil, err
	}
	return s.conversationEntries(ctx, convs, caller.Role)
}

// UnreadCount sums the caller's side across all their conversations. It is
// computed on every call.
func (s *InboxService) UnreadCount(ctx context.Context, callerID uuid.UUID) (int64, error) {
	caller, err := s.deps.Identities.ResolveIdentity(ctx, callerID)
	if err != nil {
		return 0, err
	}
	if caller.Role.IsTenant() {
		return s.convRepo.SumUnreadForTenant(ctx, caller.ID)
	}
	return s.convRepo.SumUnreadForCounterpart(ctx, caller.ID)
}
