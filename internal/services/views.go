package services

import (
	"context"
	"time"

	"tenant-inbox/internal/domain"
	"tenant-inbox/internal/domain/conversation"
	"tenant-inbox/internal/domain/message"
	"tenant-inbox/internal/domain/user"
	"tenant-inbox/internal/repository"

	"github.com/google/uuid"
)

type PropertyView struct {
	ID       uuid.UUID
	Title    string
	Address  string
	City     string
	Postcode string
}

// ParticipantView is the other side of a conversation as seen by the viewer.
type ParticipantView struct {
	ID   uuid.UUID
	Name string
	Type domain.Role
}

type ConversationSummary struct {
	ID               uuid.UUID
	TenantID         uuid.UUID
	PropertyID       uuid.UUID
	Subject          string
	Status           domain.ConversationStatus
	UnreadCount      int
	Property         *PropertyView
	OtherParticipant ParticipantView
	// ConversationIDs lists every stored conversation shown under this
	// summary. It has one entry unless the viewer reads a tenant group.
	ConversationIDs []uuid.UUID
	LastActivityAt  time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type MessageView struct {
	ID             uuid.UUID
	ConversationID uuid.UUID
	SenderID       uuid.UUID
	SenderName     string
	SenderRole     domain.Role
	Body           string
	IsRead         bool
	Attachment     *message.Attachment
	CreatedAt      time.Time
}

type LastMessageView struct {
	Preview       string
	SenderName    string
	SenderRole    domain.Role
	CreatedAt     time.Time
	HasAttachment bool
}

func newMessageView(m message.Message, viewer domain.Role) MessageView {
	v := MessageView{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		SenderName:     m.SenderName,
		SenderRole:     m.SenderRole,
		Body:           m.Body,
		IsRead:         m.ReadFor(viewer),
		CreatedAt:      m.CreatedAt,
	}
	if m.HasAttachment() {
		a := m.Attachment
		v.Attachment = &a
	}
	return v
}

func newLastMessageView(m message.Message) *LastMessageView {
	return &LastMessageView{
		Preview:       Preview(m.Body),
		SenderName:    m.SenderName,
		SenderRole:    m.SenderRole,
		CreatedAt:     m.CreatedAt,
		HasAttachment: m.HasAttachment(),
	}
}

// summarizer decorates conversations with directory data. Lookups are
// batched per call.
type summarizer struct {
	directory repository.DirectoryRepository
}

type directorySnapshot struct {
	users      map[uuid.UUID]user.User
	properties map[uuid.UUID]user.Property
}

func (s summarizer) load(ctx context.Context, convs []conversation.Conversation) (directorySnapshot, error) {
	userIDs := make([]uuid.UUID, 0, len(convs))
	propertyIDs := make([]uuid.UUID, 0, len(convs))
	seenUsers := make(map[uuid.UUID]bool)
	seenProps := make(map[uuid.UUID]bool)
	for _, c := range convs {
		if cp := c.Counterpart(); cp.ID != uuid.Nil && !seenUsers[cp.ID] {
			seenUsers[cp.ID] = true
			userIDs = append(userIDs, cp.ID)
		}
		if !seenProps[c.PropertyID] {
			seenProps[c.PropertyID] = true
			propertyIDs = append(propertyIDs, c.PropertyID)
		}
	}

	users, err := s.directory.GetUsersByIDs(ctx, userIDs)
	if err != nil {
		return directorySnapshot{}, err
	}
	properties, err := s.directory.GetPropertiesByIDs(ctx, propertyIDs)
	if err != nil {
		return directorySnapshot{}, err
	}
	return directorySnapshot{users: users, properties: properties}, nil
}

func (d directorySnapshot) property(id uuid.UUID) *PropertyView {
	p, ok := d.properties[id]
	if !ok {
		return nil
	}
	return &PropertyView{ID: p.ID, Title: p.Title, Address: p.Address, City: p.City, Postcode: p.Postcode}
}

func (d directorySnapshot) otherParticipant(c conversation.Conversation, viewer domain.Role) ParticipantView {
	if !viewer.IsTenant() {
		return ParticipantView{ID: c.TenantID, Name: c.TenantName, Type: domain.RoleTenant}
	}
	cp := c.Counterpart()
	view := ParticipantView{ID: cp.ID, Type: cp.Role}
	if u, ok := d.users[cp.ID]; ok {
		view.Name = u.DisplayName()
	}
	return view
}

func (d directorySnapshot) summary(c conversation.Conversation, viewer domain.Role) ConversationSummary {
	return ConversationSummary{
		ID:               c.ID,
		TenantID:         c.TenantID,
		PropertyID:       c.PropertyID,
		Subject:          c.Subject,
		Status:           c.Status,
		UnreadCount:      c.UnreadFor(viewer),
		Property:         d.property(c.PropertyID),
		OtherParticipant: d.otherParticipant(c, viewer),
		ConversationIDs:  []uuid.UUID{c.ID},
		LastActivityAt:   c.LastActivityAt,
		CreatedAt:        c.CreatedAt,
		UpdatedAt:        c.UpdatedAt,
	}
}

func (s summarizer) summarize(ctx context.Context, c conversation.Conversation, viewer domain.Role) (ConversationSummary, error) {
	snap, err := s.load(ctx, []conversation.Conversation{c})
	if err != nil {
		return ConversationSummary{}, err
	}
	return snap.summary(c, viewer), nil
}
