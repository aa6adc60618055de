package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"dispatch-service/internal/model"
)

func (env *testEnv) auditCount(t *testing.T, ticketID uuid.UUID) int64 {
	t.Helper()
	var count int64
	if err := env.db.Model(&model.AuditLogEntry{}).Where("ticket_id = ?", ticketID).Count(&count).Error; err != nil {
		t.Fatalf("count audit entries: %v", err)
	}
	return count
}

func TestOverrideRequiresReason(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()
	_, requester := env.seedRequester(t)
	admin := env.seedAdmin(t)

	ticket := env.createTicket(t, requester, model.TicketTypeFieldRepair)

	priority := model.TicketPriorityUrgent
	_, err := env.audits.Override(ctx, admin, ticket.ID, model.AuditActionPriorityUpdate, OverridePayload{Priority: &priority}, "  ")
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("blank reason must fail, got %v", err)
	}

	if env.reloadTicket(t, ticket.ID).Priority != model.TicketPriorityHigh {
		t.Error("a rejected override must not touch the ticket")
	}
	if n := env.auditCount(t, ticket.ID); n != 0 {
		t.Errorf("a rejected override must not leave an entry, got %d", n)
	}
}

func TestOverrideRequiresAdmin(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()
	_, requester := env.seedRequester(t)
	_, technician := env.seedTechnician(t, model.TechnicianRoleField, true, true)

	ticket := env.createTicket(t, requester, model.TicketTypeFieldRepair)

	priority := model.TicketPriorityLow
	for _, principal := range []model.Principal{requester, technician} {
		if _, err := env.audits.Override(ctx, principal, ticket.ID, model.AuditActionPriorityUpdate, OverridePayload{Priority: &priority}, "derank"); !errors.Is(err, ErrPermissionDenied) {
			t.Errorf("override is admin-only for %s, got %v", principal.Role, err)
		}
	}
}

func TestOverrideStatusChangeSkipsAdjacency(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()
	_, requester := env.seedRequester(t)
	admin := env.seedAdmin(t)

	ticket := env.createTicket(t, requester, model.TicketTypeFieldRepair)

	status := model.TicketStatusInProgress
	updated, err := env.audits.Override(ctx, admin, ticket.ID, model.AuditActionStatusChange, OverridePayload{Status: &status}, "technician called the change in by phone")
	if err != nil {
		t.Fatalf("override: %v", err)
	}
	if updated.Status != model.TicketStatusInProgress {
		t.Errorf("override jumps statuses freely, got %s", updated.Status)
	}
	if updated.InProgressAt == nil {
		t.Error("a forced status still stamps its timestamp")
	}

	entries, err := env.audits.GetHistory(ctx, admin, ticket.ID)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	entry := entries[0]
	if entry.Action != model.AuditActionStatusChange || entry.Reason == "" {
		t.Errorf("entry mismatch: %+v", entry)
	}
	if prev := entry.PrevState.Data(); prev.Status != model.TicketStatusPending {
		t.Errorf("prev snapshot should hold PENDING, got %s", prev.Status)
	}
	if next := entry.NewState.Data(); next.Status != model.TicketStatusInProgress {
		t.Errorf("new snapshot should hold IN_PROGRESS, got %s", next.Status)
	}
}

func TestOverrideRejectsUnknownEnumValues(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()
	_, requester := env.seedRequester(t)
	admin := env.seedAdmin(t)

	ticket := env.createTicket(t, requester, model.TicketTypeFieldRepair)

	status := model.TicketStatus("FLYING")
	if _, err := env.audits.Override(ctx, admin, ticket.ID, model.AuditActionStatusChange, OverridePayload{Status: &status}, "typo"); !errors.Is(err, ErrValidation) {
		t.Errorf("unknown status must be rejected, got %v", err)
	}

	priority := model.TicketPriority("ASAP")
	if _, err := env.audits.Override(ctx, admin, ticket.ID, model.AuditActionPriorityUpdate, OverridePayload{Priority: &priority}, "typo"); !errors.Is(err, ErrValidation) {
		t.Errorf("unknown priority must be rejected, got %v", err)
	}

	current := env.reloadTicket(t, ticket.ID)
	if current.Status != model.TicketStatusPending || current.Priority != model.TicketPriorityHigh {
		t.Errorf("rejected overrides must not touch the ticket, got %s/%s", current.Status, current.Priority)
	}
	if n := env.auditCount(t, ticket.ID); n != 0 {
		t.Errorf("rejected overrides must not leave entries, got %d", n)
	}
}

func TestOverrideCancelledTicketIsImmutable(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()
	_, requester := env.seedRequester(t)
	_, technician := env.seedTechnician(t, model.TechnicianRoleField, true, true)
	admin := env.seedAdmin(t)

	ticket := env.createTicket(t, requester, model.TicketTypeFieldRepair)
	env.walkTo(t, technician, ticket.ID, model.TicketStatusAccepted)
	if _, err := env.tickets.Reject(ctx, technician, ticket.ID, "vehicle gone on arrival", nil); err != nil {
		t.Fatalf("reject: %v", err)
	}

	description := "edited after the fact"
	if _, err := env.audits.Override(ctx, admin, ticket.ID, model.AuditActionEdit, OverridePayload{Description: &description}, "cleanup"); !errors.Is(err, ErrState) {
		t.Errorf("CANCELLED tickets are immutable except rollback and delete, got %v", err)
	}
}

func TestRollbackRestoresPreviousState(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()
	_, requester := env.seedRequester(t)
	admin := env.seedAdmin(t)

	ticket := env.createTicket(t, requester, model.TicketTypeFieldRepair)

	priority := model.TicketPriorityUrgent
	if _, err := env.audits.Override(ctx, admin, ticket.ID, model.AuditActionPriorityUpdate, OverridePayload{Priority: &priority}, "escalated by phone"); err != nil {
		t.Fatalf("override: %v", err)
	}

	entries, err := env.audits.GetHistory(ctx, admin, ticket.ID)
	if err != nil {
		t.Fatalf("history: %v", err)
	}

	restored, err := env.audits.Rollback(ctx, admin, entries[0].ID, "escalation was a mistake")
	if err != nil {
		t.Fatalf("rollback: %v", err)
	}
	if restored.Priority != model.TicketPriorityHigh {
		t.Errorf("rollback should restore the original priority, got %s", restored.Priority)
	}

	// The rollback itself is an audited mutation, appended newest-first.
	entries, err = env.audits.GetHistory(ctx, admin, ticket.ID)
	if err != nil {
		t.Fatalf("history after rollback: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("rollback appends, never rewrites, got %d entries", len(entries))
	}
	if entries[0].Action != model.AuditActionRollback {
		t.Errorf("newest entry should be the rollback, got %s", entries[0].Action)
	}
}

func TestRollbackOfRollbackIsRefused(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()
	_, requester := env.seedRequester(t)
	admin := env.seedAdmin(t)

	ticket := env.createTicket(t, requester, model.TicketTypeFieldRepair)

	priority := model.TicketPriorityLow
	if _, err := env.audits.Override(ctx, admin, ticket.ID, model.AuditActionPriorityUpdate, OverridePayload{Priority: &priority}, "deprioritized"); err != nil {
		t.Fatalf("override: %v", err)
	}
	entries, _ := env.audits.GetHistory(ctx, admin, ticket.ID)
	if _, err := env.audits.Rollback(ctx, admin, entries[0].ID, "undo"); err != nil {
		t.Fatalf("first rollback: %v", err)
	}

	entries, _ = env.audits.GetHistory(ctx, admin, ticket.ID)
	if entries[0].Action != model.AuditActionRollback {
		t.Fatal("precondition: newest entry is the rollback")
	}
	if _, err := env.audits.Rollback(ctx, admin, entries[0].ID, "undo the undo"); !errors.Is(err, ErrNotRollbackable) {
		t.Errorf("a rollback entry cannot be rolled back, got %v", err)
	}
}

func TestRollbackRestoresCancelledTicket(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()
	_, requester := env.seedRequester(t)
	admin := env.seedAdmin(t)

	ticket := env.createTicket(t, requester, model.TicketTypeFieldRepair)

	status := model.TicketStatusCancelled
	if _, err := env.audits.Override(ctx, admin, ticket.ID, model.AuditActionStatusChange, OverridePayload{Status: &status}, "requester withdrew"); err != nil {
		t.Fatalf("cancel override: %v", err)
	}

	entries, _ := env.audits.GetHistory(ctx, admin, ticket.ID)
	restored, err := env.audits.Rollback(ctx, admin, entries[0].ID, "withdrawal was misreported")
	if err != nil {
		t.Fatalf("rollback out of CANCELLED must be allowed, got %v", err)
	}
	if restored.Status != model.TicketStatusPending {
		t.Errorf("rollback should leave PENDING, got %s", restored.Status)
	}
}

func TestDeleteRequiresConfirmation(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()
	_, requester := env.seedRequester(t)
	admin := env.seedAdmin(t)

	ticket := env.createTicket(t, requester, model.TicketTypeFieldRepair)

	if _, err := env.audits.Override(ctx, admin, ticket.ID, model.AuditActionDelete, OverridePayload{}, "test data"); !errors.Is(err, ErrValidation) {
		t.Errorf("delete without confirmation must fail, got %v", err)
	}
	if _, err := env.ticketRepo.GetByID(ctx, ticket.ID); err != nil {
		t.Errorf("ticket should survive an unconfirmed delete: %v", err)
	}
}

func TestDeleteLeavesNoTrace(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()
	_, requester := env.seedRequester(t)
	admin := env.seedAdmin(t)

	ticket := env.createTicket(t, requester, model.TicketTypeFieldRepair)

	priority := model.TicketPriorityUrgent
	if _, err := env.audits.Override(ctx, admin, ticket.ID, model.AuditActionPriorityUpdate, OverridePayload{Priority: &priority}, "bump"); err != nil {
		t.Fatalf("override: %v", err)
	}
	if n := env.auditCount(t, ticket.ID); n != 1 {
		t.Fatalf("precondition: 1 entry, got %d", n)
	}

	if _, err := env.audits.Override(ctx, admin, ticket.ID, model.AuditActionDelete, OverridePayload{Confirm: true}, "created against the wrong account"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if _, err := env.ticketRepo.GetByID(ctx, ticket.ID); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Errorf("ticket should be gone, got %v", err)
	}
	if n := env.auditCount(t, ticket.ID); n != 0 {
		t.Errorf("delete takes the audit trail with it, got %d entries", n)
	}
}

func TestGetHistoryIsAdminOnly(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()
	_, requester := env.seedRequester(t)
	admin := env.seedAdmin(t)

	ticket := env.createTicket(t, requester, model.TicketTypeFieldRepair)

	if _, err := env.audits.GetHistory(ctx, requester, ticket.ID); !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("history is admin-only, got %v", err)
	}
	if _, err := env.audits.GetHistory(ctx, admin, ticket.ID); err != nil {
		t.Errorf("admin history read: %v", err)
	}
}
