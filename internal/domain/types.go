package domain

// Role is the caller's side in a conversation. Agents and owners share the
// counterpart side; the concrete label is kept per message.
type Role string

const (
	RoleTenant Role = "tenant"
	RoleAgent  Role = "agent"
	RoleOwner  Role = "owner"
)

func (r Role) IsTenant() bool {
	return r == RoleTenant
}

// Valid reports whether r is one of the roles that can take part in a
// conversation.
func (r Role) Valid() bool {
	switch r {
	case RoleTenant, RoleAgent, RoleOwner:
		return true
	}
	return false
}

type ConversationStatus string

const (
	ConversationStatusOpen   ConversationStatus = "open"
	ConversationStatusClosed ConversationStatus = "closed"
	// ConversationStatusPending is reserved. No operation sets it.
	ConversationStatusPending ConversationStatus = "pending"
)

// Settable reports whether s can be reached through close/reopen.
func (s ConversationStatus) Settable() bool {
	return s == ConversationStatusOpen || s == ConversationStatusClosed
}

// ParseStatusFilter maps a listing filter to a status. "all" and "" mean no
// filter.
func ParseStatusFilter(value string) (ConversationStatus, bool) {
	switch ConversationStatus(value) {
	case ConversationStatusOpen, ConversationStatusClosed, ConversationStatusPending:
		return ConversationStatus(value), true
	}
	return "", false
}
