package user

import (
	"time"

	"tenant-inbox/internal/domain"

	"github.com/google/uuid"
)

// User represents the users table. Accounts are managed elsewhere; this
// module only reads id, name and role.
type User struct {
	ID        uuid.UUID   `gorm:"type:uuid;primaryKey"`
	FirstName string      `gorm:"size:100"`
	LastName  string      `gorm:"size:100"`
	Email     string      `gorm:"size:255;uniqueIndex"`
	Role      domain.Role `gorm:"size:20"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (User) TableName() string {
	return "users"
}

// DisplayName joins first and last name, falling back to the email.
func (u User) DisplayName() string {
	name := u.FirstName
	if u.LastName != "" {
		if name != "" {
			name += " "
		}
		name += u.LastName
	}
	if name == "" {
		return u.Email
	}
	return name
}

// Property represents the properties table.
type Property struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey"`
	Title     string     `gorm:"size:200"`
	Address   string     `gorm:"size:255"`
	City      string     `gorm:"size:100"`
	Postcode  string     `gorm:"size:20"`
	AgentID   *uuid.UUID `gorm:"type:uuid"`
	OwnerID   *uuid.UUID `gorm:"type:uuid"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Property) TableName() string {
	return "properties"
}

// Tenancy represents the tenancies table. A tenant has at most one active
// tenancy at a time.
type Tenancy struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	TenantID   uuid.UUID `gorm:"type:uuid;not null;index"`
	PropertyID uuid.UUID `gorm:"type:uuid;not null"`
	IsActive   bool      `gorm:"not null;index"`
	StartDate  time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time

	Property Property `gorm:"foreignKey:PropertyID"`
}

func (Tenancy) TableName() string {
	return "tenancies"
}

// Identity is the resolved view of a caller.
type Identity struct {
	ID          uuid.UUID
	Role        domain.Role
	DisplayName string
}

// ActiveTenancy is what a tenant's new conversation is opened against.
type ActiveTenancy struct {
	PropertyID uuid.UUID
	AgentID    *uuid.UUID
	OwnerID    *uuid.UUID
}
