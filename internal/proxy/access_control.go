package proxy

import (
	"context"

	"tenant-inbox/internal/domain"
	"tenant-inbox/internal/domain/conversation"
	"tenant-inbox/internal/domain/user"
	"tenant-inbox/internal/repository"
	inbox_errors "tenant-inbox/pkg/errors"

	"github.com/google/uuid"
)

type AccessControl struct {
	conversationRepo repository.ConversationRepository
}

func NewAccessControl(conversationRepo repository.ConversationRepository) *AccessControl {
	return &AccessControl{conversationRepo: conversationRepo}
}

// CanAccess reports whether the caller is a participant: the tenant for
// tenant callers, the agent or owner slot for everyone else.
func CanAccess(c conversation.Conversation, callerID uuid.UUID, role domain.Role) bool {
	if callerID == uuid.Nil {
		return false
	}
	if role.IsTenant() {
		return c.TenantID == callerID
	}
	if c.AgentID != nil && *c.AgentID == callerID {
		return true
	}
	return c.OwnerID != nil && *c.OwnerID == callerID
}

// ResolveSenderRole labels a message for the caller. A counterpart that sits
// in both slots is labelled agent.
func ResolveSenderRole(c conversation.Conversation, callerID uuid.UUID, role domain.Role) domain.Role {
	if role.IsTenant() {
		return domain.RoleTenant
	}
	if c.AgentID != nil && *c.AgentID == callerID {
		return domain.RoleAgent
	}
	return domain.RoleOwner
}

// EnsureAccess returns ErrForbidden when the caller is not a participant.
func EnsureAccess(c conversation.Conversation, caller user.Identity) error {
	if !CanAccess(c, caller.ID, caller.Role) {
		return inbox_errors.ErrForbidden
	}
	return nil
}

// EnsureCanCreate allows only tenants to open conversations.
func EnsureCanCreate(caller user.Identity) error {
	if !caller.Role.IsTenant() {
		return inbox_errors.ErrForbidden
	}
	return nil
}

// CanViewConversation loads the conversation and checks the caller against
// it. Missing conversations are ErrNotFound.
func (a *AccessControl) CanViewConversation(ctx context.Context, caller user.Identity, conversationID uuid.UUID) (conversation.Conversation, error) {
	if a.conversationRepo == nil {
		return conversation.Conversation{}, inbox_errors.ErrForbidden
	}
	c, err := a.conversationRepo.GetByID(ctx, conversationID)
	if err != nil {
		return conversation.Conversation{}, err
	}
	if err := EnsureAccess(c, caller); err != nil {
		return conversation.Conversation{}, err
	}
	return c, nil
}
