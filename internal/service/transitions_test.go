package service

import (
	"testing"

	"dispatch-service/internal/model"
)

func TestCanTransitionForwardChain(t *testing.T) {
	t.Parallel()

	steps := []struct {
		from, to model.TicketStatus
	}{
		{model.TicketStatusPending, model.TicketStatusAccepted},
		{model.TicketStatusAccepted, model.TicketStatusOnWay},
		{model.TicketStatusOnWay, model.TicketStatusInProgress},
		{model.TicketStatusInProgress, model.TicketStatusCompleted},
	}
	for _, step := range steps {
		if !CanTransition(model.UserRoleTechnician, step.from, step.to) {
			t.Errorf("technician should be able to move %s -> %s", step.from, step.to)
		}
	}
}

func TestCanTransitionNoSkipping(t *testing.T) {
	t.Parallel()

	denied := []struct {
		from, to model.TicketStatus
	}{
		{model.TicketStatusPending, model.TicketStatusOnWay},
		{model.TicketStatusPending, model.TicketStatusInProgress},
		{model.TicketStatusPending, model.TicketStatusCompleted},
		{model.TicketStatusAccepted, model.TicketStatusInProgress},
		{model.TicketStatusAccepted, model.TicketStatusCompleted},
		{model.TicketStatusOnWay, model.TicketStatusCompleted},
	}
	for _, step := range denied {
		if CanTransition(model.UserRoleTechnician, step.from, step.to) {
			t.Errorf("technician must not skip %s -> %s", step.from, step.to)
		}
	}
}

func TestCanTransitionNoBackwardSteps(t *testing.T) {
	t.Parallel()

	denied := []struct {
		from, to model.TicketStatus
	}{
		{model.TicketStatusAccepted, model.TicketStatusPending},
		{model.TicketStatusOnWay, model.TicketStatusAccepted},
		{model.TicketStatusInProgress, model.TicketStatusOnWay},
		{model.TicketStatusCompleted, model.TicketStatusInProgress},
	}
	for _, step := range denied {
		if CanTransition(model.UserRoleTechnician, step.from, step.to) {
			t.Errorf("technician must not move backward %s -> %s", step.from, step.to)
		}
	}
}

func TestCanTransitionCancelFromAnyNonTerminal(t *testing.T) {
	t.Parallel()

	for _, from := range []model.TicketStatus{
		model.TicketStatusPending,
		model.TicketStatusAccepted,
		model.TicketStatusOnWay,
		model.TicketStatusInProgress,
	} {
		if !CanTransition(model.UserRoleTechnician, from, model.TicketStatusCancelled) {
			t.Errorf("cancel from %s should be allowed", from)
		}
	}
}

func TestCanTransitionTerminalIsFinal(t *testing.T) {
	t.Parallel()

	for _, from := range []model.TicketStatus{model.TicketStatusCompleted, model.TicketStatusCancelled} {
		for _, to := range []model.TicketStatus{
			model.TicketStatusPending,
			model.TicketStatusAccepted,
			model.TicketStatusOnWay,
			model.TicketStatusInProgress,
			model.TicketStatusCompleted,
			model.TicketStatusCancelled,
		} {
			if CanTransition(model.UserRoleTechnician, from, to) {
				t.Errorf("no transition may leave %s, got %s -> %s allowed", from, from, to)
			}
		}
	}
}

func TestCanTransitionOtherRolesHaveNoEntries(t *testing.T) {
	t.Parallel()

	if CanTransition(model.UserRoleRequester, model.TicketStatusPending, model.TicketStatusAccepted) {
		t.Error("requesters have no transitions")
	}
	if CanTransition(model.UserRoleAdmin, model.TicketStatusPending, model.TicketStatusAccepted) {
		t.Error("administrators bypass the table via the override path, not through it")
	}
}

func TestTerminalStatuses(t *testing.T) {
	t.Parallel()

	if !model.TicketStatusCompleted.Terminal() || !model.TicketStatusCancelled.Terminal() {
		t.Error("COMPLETED and CANCELLED are terminal")
	}
	for _, s := range []model.TicketStatus{
		model.TicketStatusPending,
		model.TicketStatusAccepted,
		model.TicketStatusOnWay,
		model.TicketStatusInProgress,
	} {
		if s.Terminal() {
			t.Errorf("%s is not terminal", s)
		}
	}
}
