package httpdto

import (
	"time"

	"tenant-inbox/internal/services"
)

// SendMessageRequest binds both JSON and multipart bodies. A multipart body
// may carry the file under "attachment".
type SendMessageRequest struct {
	ConversationID  string `json:"conversation_id" form:"conversation_id"`
	Subject         string `json:"subject" form:"subject"`
	Message         string `json:"message" form:"message"`
	ClientMessageID string `json:"client_message_id" form:"client_message_id"`
}

type CreateConversationRequest struct {
	Subject         string `json:"subject" form:"subject"`
	Message         string `json:"message" form:"message"`
	ClientMessageID string `json:"client_message_id" form:"client_message_id"`
}

type ReplyRequest struct {
	Message         string `json:"message" form:"message"`
	ClientMessageID string `json:"client_message_id" form:"client_message_id"`
}

type Property struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Address  string `json:"address"`
	City     string `json:"city"`
	Postcode string `json:"postcode"`
}

type Participant struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

type Attachment struct {
	Name     string `json:"name"`
	Path     string `json:"path"`
	Size     int64  `json:"size"`
	MimeType string `json:"type"`
}

type Message struct {
	ID             string      `json:"id"`
	ConversationID string      `json:"conversation_id"`
	SenderID       string      `json:"sender_id"`
	SenderName     string      `json:"sender_name"`
	SenderType     string      `json:"sender_type"`
	Message        string      `json:"message"`
	IsRead         bool        `json:"is_read"`
	HasAttachment  bool        `json:"has_attachment"`
	Attachment     *Attachment `json:"attachment,omitempty"`
	CreatedAt      time.Time   `json:"created_at"`
}

type Conversation struct {
	ID               string      `json:"id"`
	TenantID         string      `json:"tenant_id"`
	PropertyID       string      `json:"property_id"`
	Subject          string      `json:"subject"`
	Status           string      `json:"status"`
	UnreadCount      int         `json:"unread_count"`
	Property         *Property   `json:"property,omitempty"`
	OtherParticipant Participant `json:"other_participant"`
	ConversationIDs  []string    `json:"conversation_ids"`
	LastMessageAt    time.Time   `json:"last_message_at"`
	CreatedAt        time.Time   `json:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at"`
}

type LastMessage struct {
	Message       string    `json:"message"`
	SenderName    string    `json:"sender_name"`
	SenderType    string    `json:"sender_type"`
	CreatedAt     time.Time `json:"created_at"`
	HasAttachment bool      `json:"has_attachment"`
}

type InboxEntry struct {
	ID                string       `json:"id"`
	Title             string       `json:"title"`
	Subject           string       `json:"subject"`
	Status            string       `json:"status"`
	TenantID          string       `json:"tenant_id"`
	PropertyID        string       `json:"property_id"`
	Property          *Property    `json:"property,omitempty"`
	OtherParticipant  Participant  `json:"other_participant"`
	UnreadCount       int          `json:"unread_count"`
	LastMessageAt     time.Time    `json:"last_message_at"`
	CreatedAt         time.Time    `json:"created_at"`
	LastMessage       *LastMessage `json:"last_message,omitempty"`
	Grouped           bool         `json:"is_grouped"`
	ConversationIDs   []string     `json:"conversation_ids"`
	ConversationCount int          `json:"conversation_count"`
}

type InboxPage struct {
	Conversations []InboxEntry `json:"conversations"`
	Pagination    Pagination   `json:"pagination"`
}

type MessagesPage struct {
	Conversation Conversation `json:"conversation"`
	Messages     []Message    `json:"messages"`
	Pagination   Pagination   `json:"pagination"`
}

type SendResult struct {
	Message      Message      `json:"message"`
	Conversation Conversation `json:"conversation"`
	Created      bool         `json:"conversation_created"`
}

type UnreadCount struct {
	UnreadCount int64 `json:"unread_count"`
}

type UploadResult struct {
	Path     string `json:"file_path"`
	Name     string `json:"file_name"`
	Size     int64  `json:"file_size"`
	MimeType string `json:"file_type"`
}

func FromPagination(p services.Pagination) Pagination {
	return Pagination{
		Page:     p.Page,
		PageSize: p.PageSize,
		Total:    p.Total,
		Pages:    p.Pages,
		HasNext:  p.HasNext,
		HasPrev:  p.HasPrev,
	}
}

func fromProperty(p *services.PropertyView) *Property {
	if p == nil {
		return nil
	}
	return &Property{ID: p.ID.String(), Title: p.Title, Address: p.Address, City: p.City, Postcode: p.Postcode}
}

func fromParticipant(p services.ParticipantView) Participant {
	return Participant{ID: p.ID.String(), Name: p.Name, Type: string(p.Type)}
}

func FromMessage(m services.MessageView) Message {
	out := Message{
		ID:             m.ID.String(),
		ConversationID: m.ConversationID.String(),
		SenderID:       m.SenderID.String(),
		SenderName:     m.SenderName,
		SenderType:     string(m.SenderRole),
		Message:        m.Body,
		IsRead:         m.IsRead,
		CreatedAt:      m.CreatedAt,
	}
	if m.Attachment != nil {
		out.HasAttachment = true
		out.Attachment = &Attachment{
			Name:     m.Attachment.Name,
			Path:     m.Attachment.Locator,
			Size:     m.Attachment.SizeBytes,
			MimeType: m.Attachment.MimeHint,
		}
	}
	return out
}

func FromConversation(c services.ConversationSummary) Conversation {
	ids := make([]string, len(c.ConversationIDs))
	for i, id := range c.ConversationIDs {
		ids[i] = id.String()
	}
	return Conversation{
		ID:               c.ID.String(),
		TenantID:         c.TenantID.String(),
		PropertyID:       c.PropertyID.String(),
		Subject:          c.Subject,
		Status:           string(c.Status),
		UnreadCount:      c.UnreadCount,
		Property:         fromProperty(c.Property),
		OtherParticipant: fromParticipant(c.OtherParticipant),
		ConversationIDs:  ids,
		LastMessageAt:    c.LastActivityAt,
		CreatedAt:        c.CreatedAt,
		UpdatedAt:        c.UpdatedAt,
	}
}

func FromInboxEntry(e services.InboxEntry) InboxEntry {
	ids := make([]string, len(e.ConversationIDs))
	for i, id := range e.ConversationIDs {
		ids[i] = id.String()
	}
	out := InboxEntry{
		ID:                e.ID.String(),
		Title:             e.Title,
		Subject:           e.Subject,
		Status:            string(e.Status),
		TenantID:          e.TenantID.String(),
		PropertyID:        e.PropertyID.String(),
		Property:          fromProperty(e.Property),
		OtherParticipant:  fromParticipant(e.OtherParticipant),
		UnreadCount:       e.UnreadCount,
		LastMessageAt:     e.LastActivityAt,
		CreatedAt:         e.CreatedAt,
		Grouped:           e.Grouped,
		ConversationIDs:   ids,
		ConversationCount: e.ConversationCount,
	}
	if e.LastMessage != nil {
		out.LastMessage = &LastMessage{
			Message:       e.LastMessage.Preview,
			SenderName:    e.LastMessage.SenderName,
			SenderType:    string(e.LastMessage.SenderRole),
			CreatedAt:     e.LastMessage.CreatedAt,
			HasAttachment: e.LastMessage.HasAttachment,
		}
	}
	return out
}

func FromInboxEntries(entries []services.InboxEntry) []InboxEntry {
	out := make([]InboxEntry, len(entries))
	for i, e := range entries {
		out[i] = FromInboxEntry(e)
	}
	return out
}

func FromMessagesPage(p services.MessagesPage) MessagesPage {
	msgs := make([]Message, len(p.Messages))
	for i, m := range p.Messages {
		msgs[i] = FromMessage(m)
	}
	return MessagesPage{
		Conversation: FromConversation(p.Conversation),
		Messages:     msgs,
		Pagination:   FromPagination(p.Pagination),
	}
}

func FromSendResult(r services.SendResult) SendResult {
	return SendResult{
		Message:      FromMessage(r.Message),
		Conversation: FromConversation(r.Conversation),
		Created:      r.Created,
	}
}
