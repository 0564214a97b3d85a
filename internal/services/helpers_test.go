package services

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"tenant-inbox/internal/domain"
	"tenant-inbox/internal/domain/user"
	"tenant-inbox/internal/events"
	"tenant-inbox/internal/proxy"
	"tenant-inbox/internal/repository"
	"tenant-inbox/internal/storage"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	return openSQLite(t, ":memory:", 1)
}

// openFileTestDB opens a database file that many connections can share.
// Writers take the lock when their transaction begins and wait on each
// other instead of failing with SQLITE_BUSY.
func openFileTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "inbox.db") + "?_busy_timeout=10000&_journal_mode=WAL&_txlock=immediate"
	return openSQLite(t, dsn, 0)
}

// openSQLite caps the pool at maxOpen connections; zero leaves it unbounded.
func openSQLite(t *testing.T, dsn string, maxOpen int) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(maxOpen)
	t.Cleanup(func() { sqlDB.Close() })

	if err := repository.InitSchema(db); err != nil {
		t.Fatalf("init schema: %v", err)
	}
	return db
}

// stepClock advances one second on every read so that writes made one after
// another get distinct timestamps.
type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func newStepClock() *stepClock {
	return &stepClock{now: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)}
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) ofType(t events.EventType) []events.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []events.Event
	for _, e := range p.events {
		if e.Type() == t {
			out = append(out, e)
		}
	}
	return out
}

type fixture struct {
	db        *gorm.DB
	publisher *recordingPublisher
	store     *storage.LocalStore
	storeRoot string

	agent       user.User
	owner       user.User
	tenant      user.User
	otherTenant user.User
	outsider    user.User
	property    user.Property

	convRepo repository.ConversationRepository
	msgRepo  repository.MessageRepository

	messages      *MessageService
	inbox         *InboxService
	conversations *ConversationService
	attachments   *AttachmentService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWithDB(t, openTestDB(t))
}

func newFixtureWithDB(t *testing.T, db *gorm.DB) *fixture {
	t.Helper()
	f := &fixture{db: db, publisher: &recordingPublisher{}}

	f.agent = f.createUser(t, "Alex", "Agent", "agent@example.com", domain.RoleAgent)
	f.owner = f.createUser(t, "Olive", "Owner", "owner@example.com", domain.RoleOwner)
	f.tenant = f.createUser(t, "Terry", "Tenant", "tenant@example.com", domain.RoleTenant)
	f.otherTenant = f.createUser(t, "Sam", "Second", "second@example.com", domain.RoleTenant)
	f.outsider = f.createUser(t, "Otto", "Outsider", "outsider@example.com", domain.RoleAgent)

	f.property = f.createProperty(t, "Two bed flat", &f.agent.ID, &f.owner.ID)
	f.createTenancy(t, f.tenant.ID, f.property.ID)
	f.createTenancy(t, f.otherTenant.ID, f.property.ID)

	f.storeRoot = t.TempDir()
	store, err := storage.NewLocalStore(f.storeRoot)
	if err != nil {
		t.Fatalf("local store: %v", err)
	}
	f.store = store

	f.convRepo = repository.NewConversationRepository(db)
	f.msgRepo = repository.NewMessageRepository(db)
	directoryRepo := repository.NewDirectoryRepository(db)
	directory := NewDirectoryService(directoryRepo, nil, nil)
	access := proxy.NewAccessControl(f.convRepo)

	deps := Dependencies{
		DB:         db,
		Identities: directory,
		Tenancies:  directory,
		Publisher:  f.publisher,
		Clock:      newStepClock().Now,
	}
	f.attachments = NewAttachmentService(store, access, directory)
	f.messages = NewMessageService(deps, f.convRepo, directoryRepo, access, f.attachments)
	f.conversations = NewConversationService(deps, f.convRepo, directoryRepo, access)
	f.inbox = NewInboxService(deps, f.convRepo, f.msgRepo, directoryRepo, NewGroupingService(f.convRepo, f.msgRepo))
	return f
}

func (f *fixture) createUser(t *testing.T, first, last, email string, role domain.Role) user.User {
	t.Helper()
	u := user.User{ID: uuid.Must(uuid.NewV7()), FirstName: first, LastName: last, Email: email, Role: role}
	if err := f.db.Create(&u).Error; err != nil {
		t.Fatalf("create user %s: %v", email, err)
	}
	return u
}

func (f *fixture) createProperty(t *testing.T, title string, agentID, ownerID *uuid.UUID) user.Property {
	t.Helper()
	p := user.Property{
		ID:       uuid.Must(uuid.NewV7()),
		Title:    title,
		Address:  "12 High Street",
		City:     "Leeds",
		Postcode: "LS1 4AB",
		AgentID:  agentID,
		OwnerID:  ownerID,
	}
	if err := f.db.Create(&p).Error; err != nil {
		t.Fatalf("create property: %v", err)
	}
	return p
}

func (f *fixture) createTenancy(t *testing.T, tenantID, propertyID uuid.UUID) {
	t.Helper()
	tenancy := user.Tenancy{
		ID:         uuid.Must(uuid.NewV7()),
		TenantID:   tenantID,
		PropertyID: propertyID,
		IsActive:   true,
		StartDate:  time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC),
	}
	if err := f.db.Omit("Property").Create(&tenancy).Error; err != nil {
		t.Fatalf("create tenancy: %v", err)
	}
}

// open starts a conversation as tenant and returns its id.
func (f *fixture) open(t *testing.T, tenantID uuid.UUID, subject, body string) uuid.UUID {
	t.Helper()
	res, err := f.messages.CreateConversation(context.Background(), tenantID, subject, body, "")
	if err != nil {
		t.Fatalf("create conversation %q: %v", subject, err)
	}
	return res.Conversation.ID
}

// assertCountersMatchFlags checks both unread counters against the read
// flags stored on the messages.
func (f *fixture) assertCountersMatchFlags(t *testing.T, conversationID uuid.UUID) {
	t.Helper()
	ctx := context.Background()
	conv, err := f.convRepo.GetByID(ctx, conversationID)
	if err != nil {
		t.Fatalf("get conversation: %v", err)
	}
	tenantUnread, err := f.msgRepo.CountUnreadForRole(ctx, conversationID, domain.RoleTenant)
	if err != nil {
		t.Fatalf("count tenant unread: %v", err)
	}
	counterpartUnread, err := f.msgRepo.CountUnreadForRole(ctx, conversationID, domain.RoleAgent)
	if err != nil {
		t.Fatalf("count counterpart unread: %v", err)
	}
	if int64(conv.UnreadForTenant) != tenantUnread {
		t.Errorf("tenant counter = %d, unread flags = %d", conv.UnreadForTenant, tenantUnread)
	}
	if int64(conv.UnreadForCounterpart) != counterpartUnread {
		t.Errorf("counterpart counter = %d, unread flags = %d", conv.UnreadForCounterpart, counterpartUnread)
	}
}
