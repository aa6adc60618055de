package service

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"dispatch-service/internal/model"
	"dispatch-service/internal/repository"
)

// testEnv wires the full service stack over an in-memory database.
type testEnv struct {
	db            *gorm.DB
	tickets       *TicketService
	assignments   *AssignmentService
	audits        *AuditService
	notifications *NotificationService

	ticketRepo       *repository.TicketRepository
	technicianRepo   *repository.TechnicianRepository
	userRepo         *repository.UserRepository
	auditRepo        *repository.AuditRepository
	notificationRepo *repository.NotificationRepository
	settingRepo      *repository.SettingRepository
	outboxRepo       *repository.OutboxRepository
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("raw database handle: %v", err)
	}
	// One connection, or every pool conn gets its own :memory: database.
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(
		&model.UserProfile{},
		&model.Technician{},
		&model.Ticket{},
		&model.TicketAttachment{},
		&model.AuditLogEntry{},
		&model.Notification{},
		&model.Setting{},
		&model.OutboxEvent{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	log := zerolog.Nop()

	env := &testEnv{
		db:               db,
		ticketRepo:       repository.NewTicketRepository(db),
		technicianRepo:   repository.NewTechnicianRepository(db),
		userRepo:         repository.NewUserRepository(db),
		auditRepo:        repository.NewAuditRepository(db),
		notificationRepo: repository.NewNotificationRepository(db),
		settingRepo:      repository.NewSettingRepository(db),
		outboxRepo:       repository.NewOutboxRepository(db),
	}

	env.notifications = NewNotificationService(env.notificationRepo, env.userRepo, env.technicianRepo, env.outboxRepo, log)
	env.assignments = NewAssignmentService(env.ticketRepo, env.technicianRepo, env.settingRepo, env.notifications, log)
	env.tickets = NewTicketService(env.ticketRepo, env.technicianRepo, env.userRepo, env.assignments, env.notifications, 100, log)
	env.audits = NewAuditService(env.ticketRepo, env.auditRepo, env.notifications, log)

	return env
}

func (env *testEnv) seedUser(t *testing.T, role model.UserRole) (model.UserProfile, model.Principal) {
	t.Helper()
	profile := model.UserProfile{
		FullName: "Test " + string(role),
		Phone:    "+77010000000",
		Email:    "user@example.com",
		Balance:  2500,
		Role:     role,
	}
	if err := env.db.Create(&profile).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return profile, model.Principal{UserID: profile.ID, Role: role}
}

func (env *testEnv) seedRequester(t *testing.T) (model.UserProfile, model.Principal) {
	t.Helper()
	return env.seedUser(t, model.UserRoleRequester)
}

func (env *testEnv) seedAdmin(t *testing.T) model.Principal {
	t.Helper()
	_, principal := env.seedUser(t, model.UserRoleAdmin)
	return principal
}

func (env *testEnv) seedTechnician(t *testing.T, role model.TechnicianRole, online, available bool) (model.Technician, model.Principal) {
	t.Helper()
	technician := model.Technician{
		FullName:  "Tech " + uuid.NewString()[:8],
		Role:      role,
		Online:    online,
		Available: available,
	}
	if err := env.db.Create(&technician).Error; err != nil {
		t.Fatalf("seed technician: %v", err)
	}
	id := technician.ID
	principal := model.Principal{UserID: id, Role: model.UserRoleTechnician, TechnicianID: &id}
	return technician, principal
}

func (env *testEnv) setAutoAssign(t *testing.T, enabled bool) {
	t.Helper()
	admin := env.seedAdmin(t)
	if _, err := env.assignments.SetAutoAssign(context.Background(), admin, enabled); err != nil {
		t.Fatalf("set auto-assign: %v", err)
	}
}

func (env *testEnv) createTicket(t *testing.T, requester model.Principal, ticketType model.TicketType) *model.Ticket {
	t.Helper()
	ticket, err := env.tickets.Create(context.Background(), requester, CreateTicketInput{
		Type:        ticketType,
		Category:    "flat-tire",
		Description: "left rear flat on the shoulder",
		Priority:    model.TicketPriorityHigh,
		Location:    model.Location{Latitude: 51.1605, Longitude: 71.4704},
	})
	if err != nil {
		t.Fatalf("create ticket: %v", err)
	}
	return ticket
}

func (env *testEnv) reloadTicket(t *testing.T, id uuid.UUID) *model.Ticket {
	t.Helper()
	ticket, err := env.ticketRepo.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("reload ticket: %v", err)
	}
	return ticket
}

// walkTo advances a ticket along the forward chain until it reaches the
// wanted status, accepting it first if unassigned.
func (env *testEnv) walkTo(t *testing.T, technician model.Principal, ticketID uuid.UUID, target model.TicketStatus) *model.Ticket {
	t.Helper()
	ctx := context.Background()
	ticket := env.reloadTicket(t, ticketID)
	steps := []model.TicketStatus{
		model.TicketStatusAccepted,
		model.TicketStatusOnWay,
		model.TicketStatusInProgress,
	}
	for _, step := range steps {
		if ticket.Status == target {
			return ticket
		}
		var err error
		ticket, err = env.tickets.AdvanceStatus(ctx, technician, ticketID, step)
		if err != nil {
			t.Fatalf("advance to %s: %v", step, err)
		}
	}
	if ticket.Status != target {
		t.Fatalf("could not walk ticket to %s, stuck at %s", target, ticket.Status)
	}
	return ticket
}

func stampTechnician(t *testing.T, env *testEnv, id uuid.UUID, at time.Time) {
	t.Helper()
	if err := env.db.Model(&model.Technician{}).Where("id = ?", id).Update("last_assigned_at", at).Error; err != nil {
		t.Fatalf("stamp technician: %v", err)
	}
}
