package service

import (
	"context"
	"errors"
	"testing"

	"dispatch-service/internal/model"
)

func TestStatusChangeNotifiesRequester(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()
	_, requester := env.seedRequester(t)
	_, technician := env.seedTechnician(t, model.TechnicianRoleField, true, true)

	ticket := env.createTicket(t, requester, model.TicketTypeFieldRepair)
	env.walkTo(t, technician, ticket.ID, model.TicketStatusAccepted)

	notifications, err := env.notifications.List(ctx, requester, false, 0, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(notifications) == 0 {
		t.Fatal("the requester should be told about the status change")
	}
	found := false
	for _, n := range notifications {
		if n.TicketID != nil && *n.TicketID == ticket.ID {
			found = true
		}
	}
	if !found {
		t.Error("status notification should reference the ticket")
	}
}

func TestRejectionNotifiesAsWarning(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()
	_, requester := env.seedRequester(t)
	_, technician := env.seedTechnician(t, model.TechnicianRoleField, true, true)

	ticket := env.createTicket(t, requester, model.TicketTypeFieldRepair)
	env.walkTo(t, technician, ticket.ID, model.TicketStatusAccepted)
	if _, err := env.tickets.Reject(ctx, technician, ticket.ID, "no spare available", nil); err != nil {
		t.Fatalf("reject: %v", err)
	}

	notifications, err := env.notifications.List(ctx, requester, false, 0, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	warned := false
	for _, n := range notifications {
		if n.Type == model.NotificationTypeWarning {
			warned = true
		}
	}
	if !warned {
		t.Error("cancellation should arrive as a warning")
	}
}

func TestBroadcastFansOutToRole(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.seedAdmin(t)
	env.seedRequester(t)
	env.seedRequester(t)
	env.seedTechnician(t, model.TechnicianRoleField, true, true)

	count, err := env.notifications.Broadcast(ctx, admin, "Planned maintenance", "Dispatch pauses tonight at 02:00", model.UserRoleRequester)
	if err != nil {
		t.Fatalf("broadcast: %v", err)
	}
	if count != 2 {
		t.Errorf("both requesters should receive the broadcast, got %d", count)
	}

	count, err = env.notifications.Broadcast(ctx, admin, "Shift change", "Check your queue", model.UserRoleTechnician)
	if err != nil {
		t.Fatalf("technician broadcast: %v", err)
	}
	if count != 1 {
		t.Errorf("one technician should receive the broadcast, got %d", count)
	}
}

func TestBroadcastValidation(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.seedAdmin(t)
	_, requester := env.seedRequester(t)

	if _, err := env.notifications.Broadcast(ctx, requester, "t", "m", model.UserRoleRequester); !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("broadcast is admin-only, got %v", err)
	}
	if _, err := env.notifications.Broadcast(ctx, admin, "", "m", model.UserRoleRequester); !errors.Is(err, ErrValidation) {
		t.Errorf("blank title must fail, got %v", err)
	}
	if _, err := env.notifications.Broadcast(ctx, admin, "t", "m", "EVERYONE"); !errors.Is(err, ErrValidation) {
		t.Errorf("unknown role must fail, got %v", err)
	}
}

func TestMarkReadScopedToRecipient(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.seedAdmin(t)
	_, alice := env.seedRequester(t)
	_, bob := env.seedRequester(t)

	if _, err := env.notifications.Broadcast(ctx, admin, "Hello", "First message", model.UserRoleRequester); err != nil {
		t.Fatalf("broadcast: %v", err)
	}

	aliceNotifications, err := env.notifications.List(ctx, alice, true, 0, 0)
	if err != nil || len(aliceNotifications) != 1 {
		t.Fatalf("alice should have 1 unread, got %d (%v)", len(aliceNotifications), err)
	}

	// Bob cannot mark alice's notification read; the call is a silent no-op.
	if err := env.notifications.MarkRead(ctx, bob, aliceNotifications[0].ID); err != nil {
		t.Fatalf("cross-recipient mark read should be a no-op, got %v", err)
	}
	unread, err := env.notifications.CountUnread(ctx, alice)
	if err != nil || unread != 1 {
		t.Errorf("alice's notification must stay unread, got %d (%v)", unread, err)
	}

	if err := env.notifications.MarkRead(ctx, alice, aliceNotifications[0].ID); err != nil {
		t.Fatalf("mark read: %v", err)
	}
	unread, _ = env.notifications.CountUnread(ctx, alice)
	if unread != 0 {
		t.Errorf("expected 0 unread after marking, got %d", unread)
	}

	// Marking again stays fine.
	if err := env.notifications.MarkRead(ctx, alice, aliceNotifications[0].ID); err != nil {
		t.Errorf("repeat mark read should be idempotent, got %v", err)
	}
}

func TestMarkAllAndDeleteAll(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.seedAdmin(t)
	_, requester := env.seedRequester(t)

	for _, msg := range []string{"one", "two", "three"} {
		if _, err := env.notifications.Broadcast(ctx, admin, "Update", msg, model.UserRoleRequester); err != nil {
			t.Fatalf("broadcast: %v", err)
		}
	}

	if err := env.notifications.MarkAllRead(ctx, requester); err != nil {
		t.Fatalf("mark all: %v", err)
	}
	if unread, _ := env.notifications.CountUnread(ctx, requester); unread != 0 {
		t.Errorf("expected 0 unread, got %d", unread)
	}

	if err := env.notifications.DeleteAll(ctx, requester); err != nil {
		t.Fatalf("delete all: %v", err)
	}
	remaining, err := env.notifications.List(ctx, requester, false, 0, 0)
	if err != nil || len(remaining) != 0 {
		t.Errorf("expected empty inbox, got %d (%v)", len(remaining), err)
	}

	// Clearing an empty inbox is fine.
	if err := env.notifications.DeleteAll(ctx, requester); err != nil {
		t.Errorf("repeat delete all should be idempotent, got %v", err)
	}
}

func TestNotificationsLandInOutbox(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()
	_, requester := env.seedRequester(t)
	env.seedTechnician(t, model.TechnicianRoleField, true, true)

	env.createTicket(t, requester, model.TicketTypeFieldRepair)

	pending, err := env.outboxRepo.ListUnprocessed(ctx, 100)
	if err != nil {
		t.Fatalf("outbox: %v", err)
	}
	if len(pending) == 0 {
		t.Error("creation and assignment should enqueue realtime events")
	}
}
