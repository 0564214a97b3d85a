package events

import (
	"time"

	"tenant-inbox/internal/domain"

	"github.com/google/uuid"
)

type EventType string

// Event types follow the format: aggregate.action
const (
	EventMessageSent               EventType = "message.sent"
	EventConversationRead          EventType = "conversation.read"
	EventConversationStatusChanged EventType = "conversation.status_changed"
)

type Event interface {
	Type() EventType
	AggregateType() string
	AggregateID() string
	OccurredAt() time.Time
}

type MessageSentEvent struct {
	MessageID      uuid.UUID   `json:"message_id"`
	ConversationID uuid.UUID   `json:"conversation_id"`
	SenderID       uuid.UUID   `json:"sender_id"`
	SenderRole     domain.Role `json:"sender_role"`
	RecipientID    uuid.UUID   `json:"recipient_id"`
	HasAttachment  bool        `json:"has_attachment"`
	Created        bool        `json:"conversation_created"`
	At             time.Time   `json:"at"`
}

func (e MessageSentEvent) Type() EventType       { return EventMessageSent }
func (e MessageSentEvent) AggregateType() string { return "conversation" }
func (e MessageSentEvent) AggregateID() string   { return e.ConversationID.String() }
func (e MessageSentEvent) OccurredAt() time.Time { return e.At }

// ConversationReadEvent covers every conversation a read action touched;
// grouped reads mark a whole tenant group at once.
type ConversationReadEvent struct {
	ConversationIDs []uuid.UUID `json:"conversation_ids"`
	ReaderID        uuid.UUID   `json:"reader_id"`
	ReaderRole      domain.Role `json:"reader_role"`
	MessagesMarked  int64       `json:"messages_marked"`
	At              time.Time   `json:"at"`
}

func (e ConversationReadEvent) Type() EventType       { return EventConversationRead }
func (e ConversationReadEvent) AggregateType() string { return "conversation" }
func (e ConversationReadEvent) AggregateID() string {
	if len(e.ConversationIDs) == 0 {
		return ""
	}
	return e.ConversationIDs[0].String()
}
func (e ConversationReadEvent) OccurredAt() time.Time { return e.At }

type ConversationStatusChangedEvent struct {
	ConversationID uuid.UUID                 `json:"conversation_id"`
	ChangedBy      uuid.UUID                 `json:"changed_by"`
	Status         domain.ConversationStatus `json:"status"`
	At             time.Time                 `json:"at"`
}

func (e ConversationStatusChangedEvent) Type() EventType       { return EventConversationStatusChanged }
func (e ConversationStatusChangedEvent) AggregateType() string { return "conversation" }
func (e ConversationStatusChangedEvent) AggregateID() string   { return e.ConversationID.String() }
func (e ConversationStatusChangedEvent) OccurredAt() time.Time { return e.At }
