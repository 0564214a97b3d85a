package database

import (
	"fmt"
	"log"
	"time"

	"tenant-inbox/internal/domain"
	"tenant-inbox/internal/domain/conversation"
	"tenant-inbox/internal/domain/message"
	"tenant-inbox/internal/domain/user"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SeedResult holds the result of the seeding operation
type SeedResult struct {
	Agent        user.User
	Owner        user.User
	Tenant       user.User
	Property     user.Property
	Tenancy      user.Tenancy
	Conversation conversation.Conversation
	Message      message.Message
}

// SeedDevelopment inserts one agent-managed property with an active tenancy
// and an opening conversation. Users are matched by email, so running it
// twice reuses them.
func SeedDevelopment(db *gorm.DB) (*SeedResult, error) {
	if db == nil {
		return nil, fmt.Errorf("database not initialized")
	}
	log.Println("Starting database seeding...")

	result := &SeedResult{}
	now := time.Now().UTC()

	err := db.Transaction(func(tx *gorm.DB) error {
		var err error
		if result.Agent, err = seedUser(tx, "agent@example.com", "Alex", "Agent", domain.RoleAgent); err != nil {
			return err
		}
		if result.Owner, err = seedUser(tx, "owner@example.com", "Olive", "Owner", domain.RoleOwner); err != nil {
			return err
		}
		if result.Tenant, err = seedUser(tx, "tenant@example.com", "Terry", "Tenant", domain.RoleTenant); err != nil {
			return err
		}

		agentID, ownerID := result.Agent.ID, result.Owner.ID
		result.Property = user.Property{
			ID:       uuid.Must(uuid.NewV7()),
			Title:    "Two bed flat",
			Address:  "12 High Street",
			City:     "Leeds",
			Postcode: "LS1 4AB",
			AgentID:  &agentID,
			OwnerID:  &ownerID,
		}
		if err := tx.Create(&result.Property).Error; err != nil {
			return fmt.Errorf("create property: %w", err)
		}

		result.Tenancy = user.Tenancy{
			ID:         uuid.Must(uuid.NewV7()),
			TenantID:   result.Tenant.ID,
			PropertyID: result.Property.ID,
			IsActive:   true,
			StartDate:  now,
		}
		if err := tx.Omit(clause.Associations).Create(&result.Tenancy).Error; err != nil {
			return fmt.Errorf("create tenancy: %w", err)
		}

		conv, err := conversation.New(conversation.NewParams{
			TenantID:   result.Tenant.ID,
			TenantName: result.Tenant.DisplayName(),
			AgentID:    result.Property.AgentID,
			OwnerID:    result.Property.OwnerID,
			PropertyID: result.Property.ID,
			Subject:    "Leak in bathroom",
		}, now)
		if err != nil {
			return err
		}
		if err := tx.Omit(clause.Associations).Create(&conv).Error; err != nil {
			return fmt.Errorf("create conversation: %w", err)
		}
		result.Conversation = conv

		msg, err := message.New(message.NewParams{
			ConversationID: conv.ID,
			SenderID:       result.Tenant.ID,
			SenderName:     result.Tenant.DisplayName(),
			SenderRole:     domain.RoleTenant,
			Body:           "Water dripping from ceiling",
		}, now)
		if err != nil {
			return err
		}
		if err := tx.Create(&msg).Error; err != nil {
			return fmt.Errorf("create message: %w", err)
		}
		result.Message = msg
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Println("Database seeding completed")
	return result, nil
}

func seedUser(tx *gorm.DB, email, first, last string, role domain.Role) (user.User, error) {
	u := user.User{
		ID:        uuid.Must(uuid.NewV7()),
		FirstName: first,
		LastName:  last,
		Email:     email,
		Role:      role,
	}
	if err := tx.Where(user.User{Email: email}).FirstOrCreate(&u).Error; err != nil {
		return user.User{}, fmt.Errorf("seed user %s: %w", email, err)
	}
	return u, nil
}
