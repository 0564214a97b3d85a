package events

import (
	"fmt"

	"github.com/google/uuid"
)

// ChannelResolver determines which Redis channels to publish to
type ChannelResolver interface {
	ResolveChannels(event Event) []string
}

// InboxChannelResolver routes conversation events to the conversation
// channel, and new messages also to the recipient's user channel.
type InboxChannelResolver struct{}

func NewInboxChannelResolver() *InboxChannelResolver {
	return &InboxChannelResolver{}
}

func (r *InboxChannelResolver) ResolveChannels(event Event) []string {
	var channels []string

	switch e := event.(type) {
	case MessageSentEvent:
		channels = append(channels, conversationChannel(e.ConversationID))
		if e.RecipientID != uuid.Nil {
			channels = append(channels, fmt.Sprintf("channel:user:%s", e.RecipientID))
		}
	case ConversationReadEvent:
		for _, id := range e.ConversationIDs {
			channels = append(channels, conversationChannel(id))
		}
	case ConversationStatusChangedEvent:
		channels = append(channels, conversationChannel(e.ConversationID))
	}

	return channels
}

func conversationChannel(id uuid.UUID) string {
	return fmt.Sprintf("channel:conversation:%s", id)
}
