package service

import "dispatch-service/internal/model"

// forwardChain is the ordered technician path through the lifecycle.
var forwardChain = []model.TicketStatus{
	model.TicketStatusPending,
	model.TicketStatusAccepted,
	model.TicketStatusOnWay,
	model.TicketStatusInProgress,
	model.TicketStatusCompleted,
}

type transitionKey struct {
	role model.UserRole
	from model.TicketStatus
	to   model.TicketStatus
}

// transitionTable is the fixed capability table mapping (actor role, current
// status, requested status) to allowed. Administrators are not in it: they
// bypass adjacency entirely, but only through the audited override path.
var transitionTable = buildTransitionTable()

func buildTransitionTable() map[transitionKey]bool {
	table := make(map[transitionKey]bool)

	// Technicians walk the forward chain one step at a time.
	for i := 0; i < len(forwardChain)-1; i++ {
		table[transitionKey{model.UserRoleTechnician, forwardChain[i], forwardChain[i+1]}] = true
	}

	// Technician rejection reaches CANCELLED from any non-terminal status.
	for _, from := range forwardChain[:len(forwardChain)-1] {
		table[transitionKey{model.UserRoleTechnician, from, model.TicketStatusCancelled}] = true
	}

	return table
}

// CanTransition reports whether the role may request the transition at all.
func CanTransition(role model.UserRole, from, to model.TicketStatus) bool {
	return transitionTable[transitionKey{role, from, to}]
}

// transitionTimestampColumn names the tickets column stamped on entering a
// status, or "" when the status carries no timestamp.
func transitionTimestampColumn(status model.TicketStatus) string {
	switch status {
	case model.TicketStatusAccepted:
		return "accepted_at"
	case model.TicketStatusOnWay:
		return "on_way_at"
	case model.TicketStatusInProgress:
		return "in_progress_at"
	case model.TicketStatusCompleted:
		return "completed_at"
	default:
		return ""
	}
}
