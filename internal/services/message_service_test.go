package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"tenant-inbox/internal/domain"
	"tenant-inbox/internal/events"
	inbox_errors "tenant-inbox/pkg/errors"

	"github.com/google/uuid"
)

func TestLeakInBathroomScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sent, err := f.messages.Send(ctx, f.tenant.ID, SendInput{
		Subject: "Leak in bathroom",
		Body:    "Water dripping from ceiling",
	})
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if !sent.Created {
		t.Fatal("expected a new conversation")
	}
	if sent.Conversation.OtherParticipant.Type != domain.RoleAgent || sent.Conversation.OtherParticipant.Name != "Alex Agent" {
		t.Fatalf("other participant = %+v, want the agent", sent.Conversation.OtherParticipant)
	}
	if sent.Conversation.UnreadCount != 0 {
		t.Fatalf("tenant unread = %d, want 0", sent.Conversation.UnreadCount)
	}
	if sent.Message.SenderRole != domain.RoleTenant || !sent.Message.IsRead {
		t.Fatalf("message = %+v, want tenant message read by its sender", sent.Message)
	}
	convID := sent.Conversation.ID

	if got, _ := f.inbox.UnreadCount(ctx, f.agent.ID); got != 1 {
		t.Fatalf("agent unread = %d, want 1", got)
	}

	page, err := f.inbox.ListInbox(ctx, f.agent.ID, ListInboxInput{})
	if err != nil {
		t.Fatalf("ListInbox() error = %v", err)
	}
	if len(page.Entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(page.Entries))
	}
	entry := page.Entries[0]
	if entry.Title != "Chat with Terry Tenant" || entry.UnreadCount != 1 || !entry.Grouped {
		t.Fatalf("entry = %+v", entry)
	}
	if entry.LastMessage == nil || entry.LastMessage.Preview != "Water dripping from ceiling" {
		t.Fatalf("last message = %+v", entry.LastMessage)
	}
	if entry.Property == nil || entry.Property.Title != "Two bed flat" {
		t.Fatalf("property = %+v", entry.Property)
	}

	read, err := f.messages.GetMessages(ctx, f.agent.ID, convID, 1, 0)
	if err != nil {
		t.Fatalf("GetMessages() error = %v", err)
	}
	if len(read.Messages) != 1 || !read.Messages[0].IsRead {
		t.Fatalf("messages = %+v, want one read message", read.Messages)
	}
	if read.Conversation.UnreadCount != 0 {
		t.Fatalf("agent unread after read = %d", read.Conversation.UnreadCount)
	}
	if got := len(f.publisher.ofType(events.EventConversationRead)); got != 1 {
		t.Fatalf("read events = %d, want 1", got)
	}

	reply, err := f.messages.Reply(ctx, f.agent.ID, convID, "Plumber booked for Tuesday", "", nil)
	if err != nil {
		t.Fatalf("Reply() error = %v", err)
	}
	if reply.Message.SenderRole != domain.RoleAgent {
		t.Fatalf("reply sender role = %s", reply.Message.SenderRole)
	}
	if got, _ := f.inbox.UnreadCount(ctx, f.tenant.ID); got != 1 {
		t.Fatalf("tenant unread = %d, want 1", got)
	}

	thread, err := f.messages.GetMessages(ctx, f.tenant.ID, convID, 1, 0)
	if err != nil {
		t.Fatalf("GetMessages() error = %v", err)
	}
	if len(thread.Messages) != 2 {
		t.Fatalf("messages = %d, want 2", len(thread.Messages))
	}
	if thread.Messages[0].Body != "Water dripping from ceiling" || thread.Messages[1].Body != "Plumber booked for Tuesday" {
		t.Fatalf("messages out of order: %q, %q", thread.Messages[0].Body, thread.Messages[1].Body)
	}
	for _, m := range thread.Messages {
		if !m.IsRead {
			t.Fatalf("message %s unread for tenant after reading", m.ID)
		}
	}
	if got, _ := f.inbox.UnreadCount(ctx, f.tenant.ID); got != 0 {
		t.Fatalf("tenant unread after read = %d", got)
	}
	f.assertCountersMatchFlags(t, convID)

	sentEvents := f.publisher.ofType(events.EventMessageSent)
	if len(sentEvents) != 2 {
		t.Fatalf("message.sent events = %d, want 2", len(sentEvents))
	}
	first := sentEvents[0].(events.MessageSentEvent)
	if first.RecipientID != f.agent.ID || !first.Created {
		t.Fatalf("first event = %+v", first)
	}
	second := sentEvents[1].(events.MessageSentEvent)
	if second.RecipientID != f.tenant.ID || second.Created {
		t.Fatalf("second event = %+v", second)
	}
}

func TestCountersFollowReadFlagsOverAlternatingSends(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	convID := f.open(t, f.tenant.ID, "Broken boiler", "No hot water since Monday")
	f.assertCountersMatchFlags(t, convID)

	for i := 0; i < 12; i++ {
		sender := f.agent.ID
		if i%3 == 1 {
			sender = f.tenant.ID
		}
		if _, err := f.messages.Reply(ctx, sender, convID, "update", "", nil); err != nil {
			t.Fatalf("Reply(%d) error = %v", i, err)
		}
		f.assertCountersMatchFlags(t, convID)

		if i == 5 {
			if _, err := f.messages.GetMessages(ctx, f.tenant.ID, convID, 1, 0); err != nil {
				t.Fatalf("GetMessages() error = %v", err)
			}
			f.assertCountersMatchFlags(t, convID)
		}
	}
}

func TestConcurrentRepliesAndReadsKeepCountersInStep(t *testing.T) {
	f := newFixtureWithDB(t, openFileTestDB(t))
	ctx := context.Background()
	convID := f.open(t, f.tenant.ID, "Broken boiler", "No hot water since Monday")

	const rounds = 8
	var wg sync.WaitGroup
	errs := make(chan error, rounds*4)
	for i := 0; i < rounds; i++ {
		wg.Add(4)
		go func(i int) {
			defer wg.Done()
			_, err := f.messages.Reply(ctx, f.tenant.ID, convID, fmt.Sprintf("tenant update %d", i), "", nil)
			errs <- err
		}(i)
		go func(i int) {
			defer wg.Done()
			_, err := f.messages.Reply(ctx, f.agent.ID, convID, fmt.Sprintf("agent update %d", i), "", nil)
			errs <- err
		}(i)
		go func() {
			defer wg.Done()
			_, err := f.messages.GetMessages(ctx, f.tenant.ID, convID, 1, 0)
			errs <- err
		}()
		go func() {
			defer wg.Done()
			_, err := f.messages.GetMessages(ctx, f.agent.ID, convID, 1, 0)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent call error = %v", err)
		}
	}

	f.assertCountersMatchFlags(t, convID)
	page, err := f.messages.GetMessages(ctx, f.agent.ID, convID, 1, 0)
	if err != nil {
		t.Fatalf("GetMessages() error = %v", err)
	}
	if want := 1 + 2*rounds; len(page.Messages) != want {
		t.Fatalf("messages = %d, want %d", len(page.Messages), want)
	}
	f.assertCountersMatchFlags(t, convID)
}

func TestGetMessagesMarkReadIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	convID := f.open(t, f.tenant.ID, "Window latch", "The bedroom window will not close")
	if _, err := f.messages.Reply(ctx, f.tenant.ID, convID, "Any update?", "", nil); err != nil {
		t.Fatalf("Reply() error = %v", err)
	}

	for i := 0; i < 2; i++ {
		if _, err := f.messages.GetMessages(ctx, f.agent.ID, convID, 1, 0); err != nil {
			t.Fatalf("GetMessages(%d) error = %v", i, err)
		}
	}

	conv, err := f.convRepo.GetByID(ctx, convID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if conv.UnreadForCounterpart != 0 || conv.UnreadForTenant != 0 {
		t.Fatalf("counters = %d/%d, want 0/0", conv.UnreadForTenant, conv.UnreadForCounterpart)
	}
	if got := len(f.publisher.ofType(events.EventConversationRead)); got != 1 {
		t.Fatalf("read events = %d, want 1 for the first read only", got)
	}
	f.assertCountersMatchFlags(t, convID)
}

func TestDuplicateClientMessageID(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	convID := f.open(t, f.tenant.ID, "Parking permit", "Where do I collect it?")

	if _, err := f.messages.Reply(ctx, f.tenant.ID, convID, "Following up", "client-1", nil); err != nil {
		t.Fatalf("first Reply() error = %v", err)
	}
	_, err := f.messages.Reply(ctx, f.tenant.ID, convID, "Following up", "client-1", nil)
	if !errors.Is(err, inbox_errors.ErrAlreadyExists) {
		t.Fatalf("second Reply() error = %v, want ErrAlreadyExists", err)
	}

	conv, err := f.convRepo.GetByID(ctx, convID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if conv.UnreadForCounterpart != 2 {
		t.Fatalf("counterpart unread = %d, want 2", conv.UnreadForCounterpart)
	}
	f.assertCountersMatchFlags(t, convID)
}

func TestFailedReplyRemovesStoredAttachment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	convID := f.open(t, f.tenant.ID, "Parking permit", "Where do I collect it?")

	upload := pngUpload("sign.png")
	first, err := f.messages.Reply(ctx, f.tenant.ID, convID, "Photo of the sign", "client-1", &upload)
	if err != nil {
		t.Fatalf("first Reply() error = %v", err)
	}
	retry := pngUpload("sign.png")
	_, err = f.messages.Reply(ctx, f.tenant.ID, convID, "Photo of the sign", "client-1", &retry)
	if !errors.Is(err, inbox_errors.ErrAlreadyExists) {
		t.Fatalf("second Reply() error = %v, want ErrAlreadyExists", err)
	}

	entries, err := os.ReadDir(filepath.Join(f.storeRoot, convID.String()))
	if err != nil {
		t.Fatalf("read conversation scope: %v", err)
	}
	if len(entries) != 1 || convID.String()+"/"+entries[0].Name() != first.Message.Attachment.Locator {
		t.Fatalf("stored blobs = %v, want only %s", entries, first.Message.Attachment.Locator)
	}
}

func TestSendValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	homeless := f.createUser(t, "Nia", "Nohome", "nohome@example.com", domain.RoleTenant)
	unknown := uuid.Must(uuid.NewV7())

	tests := []struct {
		name   string
		caller uuid.UUID
		in     SendInput
		want   error
	}{
		{"empty body", f.tenant.ID, SendInput{Subject: "Hello", Body: "   "}, inbox_errors.ErrInvalidInput},
		{"missing subject", f.tenant.ID, SendInput{Body: "Hello"}, inbox_errors.ErrInvalidInput},
		{"agent cannot open", f.agent.ID, SendInput{Subject: "Hello", Body: "Hello"}, inbox_errors.ErrForbidden},
		{"no active tenancy", homeless.ID, SendInput{Subject: "Hello", Body: "Hello"}, inbox_errors.ErrNotFound},
		{"unknown caller", unknown, SendInput{Subject: "Hello", Body: "Hello"}, inbox_errors.ErrNotFound},
		{"no caller", uuid.Nil, SendInput{Subject: "Hello", Body: "Hello"}, inbox_errors.ErrUnauthorized},
		{"missing conversation", f.tenant.ID, SendInput{ConversationID: &unknown, Body: "Hello"}, inbox_errors.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.messages.Send(ctx, tt.caller, tt.in)
			if !errors.Is(err, tt.want) {
				t.Fatalf("Send() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestOwnerManagedProperty(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	property := f.createProperty(t, "Garden cottage", nil, &f.owner.ID)
	tenant := f.createUser(t, "Rae", "Renter", "renter@example.com", domain.RoleTenant)
	f.createTenancy(t, tenant.ID, property.ID)

	sent, err := f.messages.CreateConversation(ctx, tenant.ID, "Fence panel", "Blown down in the storm", "")
	if err != nil {
		t.Fatalf("CreateConversation() error = %v", err)
	}
	if sent.Conversation.OtherParticipant.Type != domain.RoleOwner || sent.Conversation.OtherParticipant.ID != f.owner.ID {
		t.Fatalf("other participant = %+v, want the owner", sent.Conversation.OtherParticipant)
	}

	reply, err := f.messages.Reply(ctx, f.owner.ID, sent.Conversation.ID, "I will send someone round", "", nil)
	if err != nil {
		t.Fatalf("Reply() error = %v", err)
	}
	if reply.Message.SenderRole != domain.RoleOwner {
		t.Fatalf("sender role = %s, want owner", reply.Message.SenderRole)
	}

	if _, err := f.messages.GetMessages(ctx, f.agent.ID, sent.Conversation.ID, 1, 0); !errors.Is(err, inbox_errors.ErrForbidden) {
		t.Fatalf("agent GetMessages() error = %v, want ErrForbidden", err)
	}
}

func TestOutsidersAreForbidden(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	convID := f.open(t, f.tenant.ID, "Mould in kitchen", "Black spots behind the fridge")

	upload, err := f.attachments.Upload(ctx, f.tenant.ID, pngUpload("mould.png"), &convID)
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}

	for _, outsider := range []uuid.UUID{f.outsider.ID, f.otherTenant.ID} {
		ops := map[string]func() error{
			"getMessages": func() error {
				_, err := f.messages.GetMessages(ctx, outsider, convID, 1, 0)
				return err
			},
			"reply": func() error {
				_, err := f.messages.Reply(ctx, outsider, convID, "hello", "", nil)
				return err
			},
			"close": func() error {
				_, err := f.conversations.Close(ctx, outsider, convID)
				return err
			},
			"reopen": func() error {
				_, err := f.conversations.Reopen(ctx, outsider, convID)
				return err
			},
			"upload": func() error {
				_, err := f.attachments.Upload(ctx, outsider, pngUpload("x.png"), &convID)
				return err
			},
			"download": func() error {
				_, err := f.attachments.Download(ctx, outsider, upload.Locator)
				return err
			},
		}
		for name, op := range ops {
			if err := op(); !errors.Is(err, inbox_errors.ErrForbidden) {
				t.Errorf("%s by %s: error = %v, want ErrForbidden", name, outsider, err)
			}
		}
	}

	f.assertCountersMatchFlags(t, convID)
	conv, err := f.convRepo.GetByID(ctx, convID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if conv.Status != domain.ConversationStatusOpen || conv.UnreadForCounterpart != 1 {
		t.Fatalf("conversation changed by outsiders: %+v", conv)
	}
}
