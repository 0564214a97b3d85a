package proxy

import (
	"context"
	"errors"
	"testing"

	"tenant-inbox/internal/domain"
	"tenant-inbox/internal/domain/conversation"
	"tenant-inbox/internal/domain/user"
	"tenant-inbox/internal/repository"
	inbox_errors "tenant-inbox/pkg/errors"

	"github.com/google/uuid"
)

type stubConversations struct {
	repository.ConversationRepository
	byID map[uuid.UUID]conversation.Conversation
}

func (s stubConversations) GetByID(_ context.Context, id uuid.UUID) (conversation.Conversation, error) {
	c, ok := s.byID[id]
	if !ok {
		return conversation.Conversation{}, inbox_errors.ErrNotFound
	}
	return c, nil
}

func TestCanAccess(t *testing.T) {
	tenant, agent, owner, stranger := uuid.New(), uuid.New(), uuid.New(), uuid.New()
	c := conversation.Conversation{TenantID: tenant, AgentID: &agent, OwnerID: &owner}

	tests := []struct {
		name   string
		caller uuid.UUID
		role   domain.Role
		want   bool
	}{
		{"tenant", tenant, domain.RoleTenant, true},
		{"agent", agent, domain.RoleAgent, true},
		{"owner", owner, domain.RoleOwner, true},
		{"stranger tenant", stranger, domain.RoleTenant, false},
		{"stranger agent", stranger, domain.RoleAgent, false},
		{"agent claiming tenant", agent, domain.RoleTenant, false},
		{"tenant claiming agent", tenant, domain.RoleAgent, false},
		{"nil caller", uuid.Nil, domain.RoleAgent, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanAccess(c, tt.caller, tt.role); got != tt.want {
				t.Fatalf("CanAccess() = %v, want %v", got, tt.want)
			}
		})
	}

	ownerOnly := conversation.Conversation{TenantID: tenant, OwnerID: &owner}
	if CanAccess(ownerOnly, agent, domain.RoleAgent) {
		t.Fatal("agent accessed a conversation without an agent slot")
	}
}

func TestResolveSenderRole(t *testing.T) {
	tenant, agent, owner := uuid.New(), uuid.New(), uuid.New()
	c := conversation.Conversation{TenantID: tenant, AgentID: &agent, OwnerID: &owner}

	if got := ResolveSenderRole(c, tenant, domain.RoleTenant); got != domain.RoleTenant {
		t.Errorf("tenant labelled %s", got)
	}
	if got := ResolveSenderRole(c, agent, domain.RoleAgent); got != domain.RoleAgent {
		t.Errorf("agent labelled %s", got)
	}
	if got := ResolveSenderRole(c, owner, domain.RoleOwner); got != domain.RoleOwner {
		t.Errorf("owner labelled %s", got)
	}

	both := conversation.Conversation{TenantID: tenant, AgentID: &agent, OwnerID: &agent}
	if got := ResolveSenderRole(both, agent, domain.RoleOwner); got != domain.RoleAgent {
		t.Errorf("counterpart in both slots labelled %s, want agent", got)
	}
}

func TestEnsureCanCreate(t *testing.T) {
	if err := EnsureCanCreate(user.Identity{ID: uuid.New(), Role: domain.RoleTenant}); err != nil {
		t.Fatalf("tenant: %v", err)
	}
	for _, role := range []domain.Role{domain.RoleAgent, domain.RoleOwner} {
		if err := EnsureCanCreate(user.Identity{ID: uuid.New(), Role: role}); !errors.Is(err, inbox_errors.ErrForbidden) {
			t.Errorf("%s: error = %v, want ErrForbidden", role, err)
		}
	}
}

func TestCanViewConversation(t *testing.T) {
	tenant, agent := uuid.New(), uuid.New()
	c := conversation.Conversation{ID: uuid.New(), TenantID: tenant, AgentID: &agent}
	access := NewAccessControl(stubConversations{byID: map[uuid.UUID]conversation.Conversation{c.ID: c}})
	ctx := context.Background()

	got, err := access.CanViewConversation(ctx, user.Identity{ID: agent, Role: domain.RoleAgent}, c.ID)
	if err != nil || got.ID != c.ID {
		t.Fatalf("agent: %+v, %v", got, err)
	}
	if _, err := access.CanViewConversation(ctx, user.Identity{ID: uuid.New(), Role: domain.RoleTenant}, c.ID); !errors.Is(err, inbox_errors.ErrForbidden) {
		t.Fatalf("stranger: error = %v, want ErrForbidden", err)
	}
	if _, err := access.CanViewConversation(ctx, user.Identity{ID: tenant, Role: domain.RoleTenant}, uuid.New()); !errors.Is(err, inbox_errors.ErrNotFound) {
		t.Fatalf("missing: error = %v, want ErrNotFound", err)
	}
}
