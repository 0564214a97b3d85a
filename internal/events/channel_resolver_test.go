package events

import (
	"encoding/json"
	"testing"
	"time"

	"tenant-inbox/internal/domain"

	"github.com/google/uuid"
)

func TestInboxChannelResolver(t *testing.T) {
	r := NewInboxChannelResolver()
	conv, other, recipient := uuid.New(), uuid.New(), uuid.New()

	tests := []struct {
		name  string
		event Event
		want  []string
	}{
		{
			"message with recipient",
			MessageSentEvent{ConversationID: conv, RecipientID: recipient},
			[]string{"channel:conversation:" + conv.String(), "channel:user:" + recipient.String()},
		},
		{
			"message without recipient",
			MessageSentEvent{ConversationID: conv},
			[]string{"channel:conversation:" + conv.String()},
		},
		{
			"group read",
			ConversationReadEvent{ConversationIDs: []uuid.UUID{conv, other}},
			[]string{"channel:conversation:" + conv.String(), "channel:conversation:" + other.String()},
		},
		{
			"status change",
			ConversationStatusChangedEvent{ConversationID: conv, Status: domain.ConversationStatusClosed},
			[]string{"channel:conversation:" + conv.String()},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.ResolveChannels(tt.event)
			if len(got) != len(tt.want) {
				t.Fatalf("channels = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("channels = %v, want %v", got, tt.want)
				}
			}
		})
	}
}

func TestNewEnvelope(t *testing.T) {
	at := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	event := MessageSentEvent{
		MessageID:      uuid.New(),
		ConversationID: uuid.New(),
		SenderRole:     domain.RoleTenant,
		Created:        true,
		At:             at,
	}

	env, err := NewEnvelope(event)
	if err != nil {
		t.Fatalf("NewEnvelope() error = %v", err)
	}
	if env.EventType != EventMessageSent || env.AggregateType != "conversation" || env.AggregateID != event.ConversationID.String() {
		t.Fatalf("envelope = %+v", env)
	}
	if !env.OccurredAt.Equal(at) {
		t.Fatalf("occurred at = %s", env.OccurredAt)
	}

	var payload map[string]any
	if err := json.Unmarshal(env.Payload, &payload); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if payload["sender_role"] != "tenant" || payload["conversation_created"] != true {
		t.Fatalf("payload = %v", payload)
	}
}

func TestReadEventAggregateID(t *testing.T) {
	if got := (ConversationReadEvent{}).AggregateID(); got != "" {
		t.Fatalf("empty read event aggregate id = %q", got)
	}
}
