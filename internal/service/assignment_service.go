package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"dispatch-service/internal/model"
	"dispatch-service/internal/repository"
)

// AssignmentService selects technicians for tickets, automatically by
// round-robin or manually by administrative choice.
type AssignmentService struct {
	ticketRepo     *repository.TicketRepository
	technicianRepo *repository.TechnicianRepository
	settingRepo    *repository.SettingRepository
	notifier       *NotificationService
	log            zerolog.Logger
}

func NewAssignmentService(
	ticketRepo *repository.TicketRepository,
	technicianRepo *repository.TechnicianRepository,
	settingRepo *repository.SettingRepository,
	notifier *NotificationService,
	log zerolog.Logger,
) *AssignmentService {
	return &AssignmentService{
		ticketRepo:     ticketRepo,
		technicianRepo: technicianRepo,
		settingRepo:    settingRepo,
		notifier:       notifier,
		log:            log,
	}
}

// AssignAutomatically runs one round-robin pass for a pending ticket. The
// returned flag is false when auto-assign is disabled, the ticket is not an
// unassigned PENDING one, or no technician is eligible; the ticket simply
// stays in the pool for a later sweep.
func (s *AssignmentService) AssignAutomatically(ctx context.Context, ticketID uuid.UUID) (*model.Ticket, bool, error) {
	ticket, err := s.ticketRepo.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, ErrNotFound
		}
		return nil, false, err
	}

	// The flag is read fresh on every attempt, never cached across workers.
	setting, err := s.settingRepo.Get(ctx)
	if err != nil {
		return nil, false, err
	}
	if !setting.AutoAssignEnabled {
		return ticket, false, nil
	}

	if ticket.Status != model.TicketStatusPending || ticket.TechnicianID != nil {
		return ticket, false, nil
	}

	assigned, technicianID, err := s.assignRoundRobin(ctx, ticket)
	if err != nil {
		return nil, false, err
	}
	if !assigned {
		return ticket, false, nil
	}

	updated, err := s.ticketRepo.GetByID(ctx, ticket.ID)
	if err != nil {
		return nil, false, err
	}
	s.notifier.TicketAssigned(ctx, updated, technicianID, technicianID, false)
	return updated, true, nil
}

// assignRoundRobin walks the eligible candidates in fairness order. The
// select-and-stamp step is a compare-and-set per technician, so two
// concurrent sweeps cannot both take the same "least recently assigned" slot;
// the loser moves on to the next candidate.
func (s *AssignmentService) assignRoundRobin(ctx context.Context, ticket *model.Ticket) (bool, uuid.UUID, error) {
	candidates, err := s.technicianRepo.EligibleForAssignment(ctx, ticket.Type.RequiredRole(), 10)
	if err != nil {
		return false, uuid.Nil, err
	}

	for _, candidate := range candidates {
		stamped, err := s.technicianRepo.StampAssigned(ctx, candidate.ID, candidate.LastAssignedAt)
		if err != nil {
			return false, uuid.Nil, err
		}
		if !stamped {
			continue
		}

		claimed, err := s.ticketRepo.ClaimForAssignment(ctx, ticket.ID, candidate.ID)
		if err != nil {
			return false, uuid.Nil, err
		}
		if !claimed {
			// Another pass claimed this ticket first; the stamp stands,
			// which only pushes this technician back one slot.
			return false, uuid.Nil, nil
		}
		return true, candidate.ID, nil
	}

	return false, uuid.Nil, nil
}

// SweepOpenTickets attempts automatic assignment for every unassigned
// pending ticket and returns how many were assigned.
func (s *AssignmentService) SweepOpenTickets(ctx context.Context, principal model.Principal) (int, error) {
	if !principal.IsAdmin() {
		return 0, ErrPermissionDenied
	}

	tickets, err := s.ticketRepo.ListUnassignedPending(ctx)
	if err != nil {
		return 0, err
	}

	assigned := 0
	for _, ticket := range tickets {
		_, ok, err := s.AssignAutomatically(ctx, ticket.ID)
		if err != nil {
			s.log.Error().Err(err).Stringer("ticket", ticket.ID).Msg("sweep assignment failed")
			continue
		}
		if ok {
			assigned++
		}
	}
	return assigned, nil
}

// AssignManually lets an administrator pick any technician, bypassing the
// round-robin filters; it is allowed in either assignment mode.
func (s *AssignmentService) AssignManually(ctx context.Context, principal model.Principal, ticketID, technicianID uuid.UUID) (*model.Ticket, error) {
	if !principal.IsAdmin() {
		return nil, ErrPermissionDenied
	}

	ticket, err := s.ticketRepo.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if ticket.Status.Terminal() {
		return nil, ErrState
	}

	if _, err := s.technicianRepo.GetByID(ctx, technicianID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if err := s.ticketRepo.SetTechnician(ctx, ticketID, technicianID); err != nil {
		return nil, err
	}
	if err := s.technicianRepo.TouchAssigned(ctx, technicianID); err != nil {
		return nil, err
	}

	updated, err := s.ticketRepo.GetByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	s.notifier.TicketAssigned(ctx, updated, technicianID, principal.UserID, true)
	return updated, nil
}

// UnassignAllForTechnician returns an overloaded technician's non-terminal
// tickets to the unassigned pool and reports how many were cleared.
func (s *AssignmentService) UnassignAllForTechnician(ctx context.Context, principal model.Principal, technicianID uuid.UUID) (int64, error) {
	if !principal.IsAdmin() {
		return 0, ErrPermissionDenied
	}
	if _, err := s.technicianRepo.GetByID(ctx, technicianID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ErrNotFound
		}
		return 0, err
	}
	count, err := s.ticketRepo.UnassignAllForTechnician(ctx, technicianID)
	if err != nil {
		return 0, err
	}
	s.log.Info().Stringer("technician", technicianID).Int64("count", count).Msg("tickets returned to pool")
	return count, nil
}

// ListTechnicians returns the full roster, ordered by name.
func (s *AssignmentService) ListTechnicians(ctx context.Context, principal model.Principal) ([]model.Technician, error) {
	if !principal.IsAdmin() {
		return nil, ErrPermissionDenied
	}
	return s.technicianRepo.List(ctx)
}

// SetPresence updates the calling technician's online/available flags, which
// drive round-robin eligibility.
func (s *AssignmentService) SetPresence(ctx context.Context, principal model.Principal, online, available bool) error {
	if !principal.IsTechnician() {
		return ErrPermissionDenied
	}
	return s.technicianRepo.SetPresence(ctx, *principal.TechnicianID, online, available)
}

// Setting returns the current system setting row.
func (s *AssignmentService) Setting(ctx context.Context) (*model.Setting, error) {
	return s.settingRepo.Get(ctx)
}

// SetAutoAssign toggles the process-wide auto-assignment flag.
func (s *AssignmentService) SetAutoAssign(ctx context.Context, principal model.Principal, enabled bool) (*model.Setting, error) {
	if !principal.IsAdmin() {
		return nil, ErrPermissionDenied
	}
	return s.settingRepo.SetAutoAssign(ctx, enabled, principal.UserID)
}
