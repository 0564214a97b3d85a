package repository

import (
	"fmt"

	"tenant-inbox/internal/domain/conversation"
	"tenant-inbox/internal/domain/message"
	"tenant-inbox/internal/domain/user"

	"gorm.io/gorm"
)

// Models lists every table this service migrates. The directory tables are
// included so a standalone deployment and the tests get a complete schema.
func Models() []interface{} {
	return []interface{}{
		&user.User{},
		&user.Property{},
		&user.Tenancy{},
		&conversation.Conversation{},
		&message.Message{},
	}
}

// InitSchema runs the auto-migration and, on Postgres, adds the check
// constraints gorm tags cannot express.
func InitSchema(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto-migration failed: %w", err)
	}

	if db.Dialector.Name() != "postgres" {
		return nil
	}

	// DO blocks make the constraints safe to re-apply.
	constraints := []string{
		`DO $$ BEGIN
			ALTER TABLE conversations ADD CONSTRAINT chk_conversations_unread
			CHECK (unread_for_tenant >= 0 AND unread_for_counterpart >= 0);
		EXCEPTION
			WHEN duplicate_object THEN null;
		END $$;`,
		`DO $$ BEGIN
			ALTER TABLE conversations ADD CONSTRAINT chk_conversations_status
			CHECK (status IN ('open', 'closed', 'pending'));
		EXCEPTION
			WHEN duplicate_object THEN null;
		END $$;`,
		`DO $$ BEGIN
			ALTER TABLE conversations ADD CONSTRAINT chk_conversations_counterpart
			CHECK (agent_id IS NOT NULL OR owner_id IS NOT NULL);
		EXCEPTION
			WHEN duplicate_object THEN null;
		END $$;`,
		`DO $$ BEGIN
			ALTER TABLE messages ADD CONSTRAINT chk_messages_sender_role
			CHECK (sender_role IN ('tenant', 'agent', 'owner'));
		EXCEPTION
			WHEN duplicate_object THEN null;
		END $$;`,
	}

	for _, stmt := range constraints {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("failed to add constraint: %w", err)
		}
	}
	return nil
}

// SchemaStatus reports whether each migrated table exists.
func SchemaStatus(db *gorm.DB) map[string]bool {
	out := make(map[string]bool)
	for _, m := range Models() {
		stmt := &gorm.Statement{DB: db}
		if err := stmt.Parse(m); err != nil {
			continue
		}
		out[stmt.Schema.Table] = db.Migrator().HasTable(m)
	}
	return out
}

// Truncate deletes all conversations and messages. Directory tables are left
// alone.
func Truncate(db *gorm.DB) error {
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&message.Message{}).Error; err != nil {
			return err
		}
		return tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&conversation.Conversation{}).Error
	})
}
