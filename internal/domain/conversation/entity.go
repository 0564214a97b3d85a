package conversation

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"tenant-inbox/internal/domain"
	"tenant-inbox/internal/domain/message"
	inbox_errors "tenant-inbox/pkg/errors"

	"github.com/google/uuid"
)

const MaxSubjectLength = 200

// Conversation represents the conversations table. One row is one subject
// thread between a tenant and the counterpart fixed at creation.
type Conversation struct {
	ID                   uuid.UUID                 `gorm:"type:uuid;primaryKey"`
	TenantID             uuid.UUID                 `gorm:"type:uuid;not null;index:idx_conversations_tenant"`
	TenantName           string                    `gorm:"size:100;not null"`
	AgentID              *uuid.UUID                `gorm:"type:uuid;index:idx_conversations_agent"`
	OwnerID              *uuid.UUID                `gorm:"type:uuid;index:idx_conversations_owner"`
	CounterpartRole      domain.Role               `gorm:"size:20;not null"`
	PropertyID           uuid.UUID                 `gorm:"type:uuid;not null"`
	Subject              string                    `gorm:"size:200;not null"`
	Status               domain.ConversationStatus `gorm:"size:20;not null;index:idx_conversations_status"`
	UnreadForTenant      int                       `gorm:"not null"`
	UnreadForCounterpart int                       `gorm:"not null"`
	LastActivityAt       time.Time                 `gorm:"not null;index:idx_conversations_activity,sort:desc"`
	CreatedAt            time.Time
	UpdatedAt            time.Time

	// Relationships
	Messages []message.Message `gorm:"foreignKey:ConversationID;constraint:OnDelete:CASCADE"`
}

func (Conversation) TableName() string {
	return "conversations"
}

// Counterpart is the agent or owner a conversation was opened against.
type Counterpart struct {
	Role domain.Role
	ID   uuid.UUID
}

// ResolveCounterpart picks the active counterpart of a property: the agent
// when one is assigned, otherwise the owner.
func ResolveCounterpart(agentID, ownerID *uuid.UUID) (Counterpart, bool) {
	if agentID != nil && *agentID != uuid.Nil {
		return Counterpart{Role: domain.RoleAgent, ID: *agentID}, true
	}
	if ownerID != nil && *ownerID != uuid.Nil {
		return Counterpart{Role: domain.RoleOwner, ID: *ownerID}, true
	}
	return Counterpart{}, false
}

// Counterpart returns the counterpart resolved when the conversation was
// created.
func (c Conversation) Counterpart() Counterpart {
	if c.CounterpartRole == domain.RoleOwner && c.OwnerID != nil {
		return Counterpart{Role: domain.RoleOwner, ID: *c.OwnerID}
	}
	if c.AgentID != nil {
		return Counterpart{Role: domain.RoleAgent, ID: *c.AgentID}
	}
	if c.OwnerID != nil {
		return Counterpart{Role: domain.RoleOwner, ID: *c.OwnerID}
	}
	return Counterpart{}
}

type NewParams struct {
	TenantID   uuid.UUID
	TenantName string
	AgentID    *uuid.UUID
	OwnerID    *uuid.UUID
	PropertyID uuid.UUID
	Subject    string
}

// New builds an open conversation whose opening message is already counted
// as unread for the counterpart.
func New(p NewParams, now time.Time) (Conversation, error) {
	subject := strings.TrimSpace(p.Subject)
	if subject == "" {
		return Conversation{}, fmt.Errorf("%w: subject is required", inbox_errors.ErrInvalidInput)
	}
	if utf8.RuneCountInString(subject) > MaxSubjectLength {
		return Conversation{}, fmt.Errorf("%w: subject exceeds %d characters", inbox_errors.ErrInvalidInput, MaxSubjectLength)
	}
	if p.TenantID == uuid.Nil {
		return Conversation{}, fmt.Errorf("%w: tenant is required", inbox_errors.ErrInvalidInput)
	}
	counterpart, ok := ResolveCounterpart(p.AgentID, p.OwnerID)
	if !ok {
		return Conversation{}, fmt.Errorf("%w: property has no agent or owner", inbox_errors.ErrNotFound)
	}

	return Conversation{
		ID:                   uuid.Must(uuid.NewV7()),
		TenantID:             p.TenantID,
		TenantName:           p.TenantName,
		AgentID:              p.AgentID,
		OwnerID:              p.OwnerID,
		CounterpartRole:      counterpart.Role,
		PropertyID:           p.PropertyID,
		Subject:              subject,
		Status:               domain.ConversationStatusOpen,
		UnreadForTenant:      0,
		UnreadForCounterpart: 1,
		LastActivityAt:       now,
		CreatedAt:            now,
		UpdatedAt:            now,
	}, nil
}

// Touch records a new message from sender: the conversation reopens, the
// sender's counter resets and the recipient's counter grows by one.
func (c *Conversation) Touch(sender domain.Role, now time.Time) {
	if now.After(c.LastActivityAt) {
		c.LastActivityAt = now
	}
	c.Status = domain.ConversationStatusOpen
	if sender.IsTenant() {
		c.UnreadForCounterpart++
		c.UnreadForTenant = 0
	} else {
		c.UnreadForTenant++
		c.UnreadForCounterpart = 0
	}
	c.UpdatedAt = now
}

// MarkRead zeroes the viewer's counter and reports whether it changed. The
// other side is untouched.
func (c *Conversation) MarkRead(viewer domain.Role, now time.Time) bool {
	if c.UnreadFor(viewer) == 0 {
		return false
	}
	if viewer.IsTenant() {
		c.UnreadForTenant = 0
	} else {
		c.UnreadForCounterpart = 0
	}
	c.UpdatedAt = now
	return true
}

// SetStatus moves between open and closed. Setting the current status is a
// no-op and reports false.
func (c *Conversation) SetStatus(status domain.ConversationStatus, now time.Time) (bool, error) {
	if !status.Settable() {
		return false, fmt.Errorf("%w: status %q cannot be set", inbox_errors.ErrInvalidInput, status)
	}
	if c.Status == status {
		return false, nil
	}
	c.Status = status
	c.UpdatedAt = now
	return true, nil
}

// UnreadFor returns the counter of the given side.
func (c Conversation) UnreadFor(role domain.Role) int {
	if role.IsTenant() {
		return c.UnreadForTenant
	}
	return c.UnreadForCounterpart
}
