package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"sort"
	"time"

	"tenant-inbox/config"
	"tenant-inbox/internal/domain/user"
	"tenant-inbox/internal/repository"
	"tenant-inbox/internal/services"
	"tenant-inbox/pkg/database"

	"gorm.io/gorm"
)

const usage = `
Tenant Inbox - Database CLI Tool

Usage:
  migrate [command] [flags]

Commands:
  up          Create or update tables, indexes and constraints
  status      Show database connection and table status
  seed-dev    Seed an agent, owner, tenant, property and one conversation
  truncate    Delete all conversations and messages (DANGEROUS)

Flags:
  -token-ttl duration  Lifetime of the dev tokens printed by seed-dev (default 24h)

Examples:
  go run cmd/migrate/main.go up
  go run cmd/migrate/main.go status
  go run cmd/migrate/main.go seed-dev -token-ttl 2h
`

func main() {
	tokenTTL := flag.Duration("token-ttl", 24*time.Hour, "Lifetime of dev tokens printed by seed-dev")

	flag.Usage = func() {
		fmt.Print(usage)
	}
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(1)
	}

	command := flag.Arg(0)

	cfg := config.LoadConfig()
	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("❌ Database connection failed: %v", err)
	}
	defer database.Close()

	switch command {
	case "up":
		runMigrationsUp(db)
	case "status":
		showStatus(db)
	case "seed-dev":
		runSeedDevelopment(db, services.NewAuthService(cfg.JWTSecret, *tokenTTL))
	case "truncate":
		runTruncate(db)
	default:
		fmt.Printf("Unknown command: %s\n", command)
		flag.Usage()
		os.Exit(1)
	}
}

func runMigrationsUp(db *gorm.DB) {
	log.Println("🚀 Running migrations UP...")

	if err := repository.InitSchema(db); err != nil {
		log.Fatalf("❌ Migration failed: %v", err)
	}

	log.Println("✅ Migrations completed successfully!")
}

func showStatus(db *gorm.DB) {
	log.Println("🔍 Checking database status...")

	if err := database.HealthCheck(context.Background()); err != nil {
		log.Fatalf("❌ Database connection failed: %v", err)
	}
	log.Println("✅ Database connection: OK")

	status := repository.SchemaStatus(db)
	tables := make([]string, 0, len(status))
	for table := range status {
		tables = append(tables, table)
	}
	sort.Strings(tables)
	for _, table := range tables {
		if status[table] {
			log.Printf("✅ Table %-20s exists", table)
		} else {
			log.Printf("❌ Table %-20s does not exist", table)
		}
	}
}

func runSeedDevelopment(db *gorm.DB, auth *services.AuthService) {
	log.Println("🌱 Seeding database (development mode)...")

	if err := repository.InitSchema(db); err != nil {
		log.Fatalf("❌ Migration failed: %v", err)
	}
	result, err := database.SeedDevelopment(db)
	if err != nil {
		log.Fatalf("❌ Seeding failed: %v", err)
	}

	log.Println("📊 Seed Summary:")
	log.Printf("   - Property: %s (%s)", result.Property.Title, result.Property.ID)
	log.Printf("   - Conversation: %s (%s)", result.Conversation.Subject, result.Conversation.ID)
	for _, u := range []user.User{result.Agent, result.Owner, result.Tenant} {
		token, err := auth.IssueAccessToken(u.ID)
		if err != nil {
			log.Printf("⚠️  Could not issue token for %s: %v", u.Email, err)
			continue
		}
		log.Printf("   - %s %s (%s)", u.Role, u.Email, u.ID)
		log.Printf("     token: %s", token)
	}
	log.Println("✅ Development seeding completed!")
}

func runTruncate(db *gorm.DB) {
	log.Println("⚠️  WARNING: This will delete every conversation and message!")

	if err := repository.Truncate(db); err != nil {
		log.Fatalf("❌ Truncate failed: %v", err)
	}

	log.Println("✅ Conversations and messages deleted!")
}
