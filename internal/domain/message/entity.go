package message

import (
	"fmt"
	"strings"
	"time"

	"tenant-inbox/internal/domain"
	inbox_errors "tenant-inbox/pkg/errors"

	"github.com/google/uuid"
)

// Message represents the messages table. Rows are append-only.
type Message struct {
	ID                uuid.UUID   `gorm:"type:uuid;primaryKey"`
	ConversationID    uuid.UUID   `gorm:"type:uuid;not null;index:idx_messages_order,priority:1;uniqueIndex:idx_messages_client_msg,priority:1"`
	ClientMessageID   *string     `gorm:"size:64;uniqueIndex:idx_messages_client_msg,priority:2"`
	SenderID          uuid.UUID   `gorm:"type:uuid;not null"`
	SenderName        string      `gorm:"size:100;not null"`
	SenderRole        domain.Role `gorm:"size:20;not null"`
	Body              string      `gorm:"type:text;not null"`
	Attachment        Attachment  `gorm:"embedded;embeddedPrefix:attachment_"`
	ReadByTenant      bool        `gorm:"not null"`
	ReadByCounterpart bool        `gorm:"not null"`
	CreatedAt         time.Time   `gorm:"not null;index:idx_messages_order,priority:2"`
}

func (Message) TableName() string {
	return "messages"
}

type NewParams struct {
	ConversationID  uuid.UUID
	ClientMessageID string
	SenderID        uuid.UUID
	SenderName      string
	SenderRole      domain.Role
	Body            string
	Attachment      *Attachment
}

// New builds a message read on the sender's side only. An incomplete
// attachment descriptor is dropped.
func New(p NewParams, now time.Time) (Message, error) {
	body := strings.TrimSpace(p.Body)
	if body == "" {
		return Message{}, fmt.Errorf("%w: message is required", inbox_errors.ErrInvalidInput)
	}
	if !p.SenderRole.Valid() {
		return Message{}, fmt.Errorf("%w: sender role %q", inbox_errors.ErrInvalidInput, p.SenderRole)
	}

	msg := Message{
		ID:                uuid.Must(uuid.NewV7()),
		ConversationID:    p.ConversationID,
		SenderID:          p.SenderID,
		SenderName:        p.SenderName,
		SenderRole:        p.SenderRole,
		Body:              body,
		ReadByTenant:      p.SenderRole.IsTenant(),
		ReadByCounterpart: !p.SenderRole.IsTenant(),
		CreatedAt:         now,
	}
	if id := strings.TrimSpace(p.ClientMessageID); id != "" {
		msg.ClientMessageID = &id
	}
	if p.Attachment != nil && p.Attachment.Complete() {
		msg.Attachment = *p.Attachment
	}
	return msg, nil
}

func (m Message) HasAttachment() bool {
	return m.Attachment.Complete()
}

// ReadFor reports the read flag of the viewer's side.
func (m Message) ReadFor(role domain.Role) bool {
	if role.IsTenant() {
		return m.ReadByTenant
	}
	return m.ReadByCounterpart
}

// Before orders messages by creation time, then id.
func (m Message) Before(other Message) bool {
	if !m.CreatedAt.Equal(other.CreatedAt) {
		return m.CreatedAt.Before(other.CreatedAt)
	}
	return strings.Compare(m.ID.String(), other.ID.String()) < 0
}
