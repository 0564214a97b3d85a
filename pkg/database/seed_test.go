package database

import (
	"testing"

	"tenant-inbox/internal/domain"
	"tenant-inbox/internal/domain/conversation"
	"tenant-inbox/internal/repository"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestSeedDevelopment(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	if err := repository.InitSchema(db); err != nil {
		t.Fatalf("init schema: %v", err)
	}

	first, err := SeedDevelopment(db)
	if err != nil {
		t.Fatalf("SeedDevelopment() error = %v", err)
	}
	if first.Tenant.Role != domain.RoleTenant || first.Agent.Role != domain.RoleAgent || first.Owner.Role != domain.RoleOwner {
		t.Fatalf("roles = %s/%s/%s", first.Tenant.Role, first.Agent.Role, first.Owner.Role)
	}
	if first.Conversation.UnreadForCounterpart != 1 || first.Message.ConversationID != first.Conversation.ID {
		t.Fatalf("seeded conversation = %+v", first.Conversation)
	}

	second, err := SeedDevelopment(db)
	if err != nil {
		t.Fatalf("second SeedDevelopment() error = %v", err)
	}
	if second.Tenant.ID != first.Tenant.ID || second.Agent.ID != first.Agent.ID {
		t.Fatal("second run created new users")
	}

	var count int64
	if err := db.Model(&conversation.Conversation{}).Count(&count).Error; err != nil {
		t.Fatalf("count conversations: %v", err)
	}
	if count != 2 {
		t.Fatalf("conversations = %d, want 2", count)
	}
}
