package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"dispatch-service/internal/model"
	"dispatch-service/internal/repository"
)

// AuditService is the audit and rollback engine. Every administrative
// mutation flows through it: before/after snapshots, a mandatory reason and
// the append-only log entry commit as one unit with the mutation itself.
type AuditService struct {
	ticketRepo *repository.TicketRepository
	auditRepo  *repository.AuditRepository
	notifier   *NotificationService
	log        zerolog.Logger
}

func NewAuditService(
	ticketRepo *repository.TicketRepository,
	auditRepo *repository.AuditRepository,
	notifier *NotificationService,
	log zerolog.Logger,
) *AuditService {
	return &AuditService{
		ticketRepo: ticketRepo,
		auditRepo:  auditRepo,
		notifier:   notifier,
		log:        log,
	}
}

type OverridePayload struct {
	Status      *model.TicketStatus   `json:"status,omitempty"`
	Priority    *model.TicketPriority `json:"priority,omitempty"`
	Category    *string               `json:"category,omitempty"`
	Description *string               `json:"description,omitempty"`
	Location    *model.Location       `json:"location,omitempty"`
	Paused      *bool                 `json:"paused,omitempty"`
	// Confirm is the distinct destructive-action confirmation DELETE demands.
	Confirm bool `json:"confirm,omitempty"`
}

// Override applies an administrative mutation. Adjacency checks do not apply
// here, but a blank reason rejects the call before anything is touched.
// CANCELLED tickets are immutable except via rollback or delete.
func (s *AuditService) Override(ctx context.Context, principal model.Principal, ticketID uuid.UUID, action model.AuditAction, payload OverridePayload, reason string) (*model.Ticket, error) {
	if !principal.IsAdmin() {
		return nil, ErrPermissionDenied
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, ErrValidation
	}

	if action == model.AuditActionDelete {
		return nil, s.delete(ctx, ticketID, payload, reason)
	}

	mutate, err := overrideMutation(action, payload)
	if err != nil {
		return nil, err
	}

	ticket, entry, err := s.auditRepo.ApplyAudited(ctx, ticketID, principal.UserID, action, reason, func(t *model.Ticket) error {
		if t.Status == model.TicketStatusCancelled && action != model.AuditActionRollback {
			return ErrState
		}
		return mutate(t)
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	s.notifier.TicketAudited(ctx, entry)
	prev := entry.PrevState.Data()
	if prev.Status != ticket.Status {
		s.notifier.StatusChanged(ctx, ticket, prev.Status, principal.UserID)
	}
	return ticket, nil
}

func overrideMutation(action model.AuditAction, payload OverridePayload) (func(t *model.Ticket) error, error) {
	switch action {
	case model.AuditActionStatusChange:
		if payload.Status == nil || !payload.Status.Valid() {
			return nil, ErrValidation
		}
		target := *payload.Status
		return func(t *model.Ticket) error {
			applyStatus(t, target)
			return nil
		}, nil
	case model.AuditActionPriorityUpdate:
		if payload.Priority == nil || !payload.Priority.Valid() {
			return nil, ErrValidation
		}
		priority := *payload.Priority
		return func(t *model.Ticket) error {
			t.Priority = priority
			return nil
		}, nil
	case model.AuditActionEdit:
		if payload.Category == nil && payload.Description == nil && payload.Location == nil {
			return nil, ErrValidation
		}
		return func(t *model.Ticket) error {
			if payload.Category != nil {
				if strings.TrimSpace(*payload.Category) == "" {
					return ErrValidation
				}
				t.Category = *payload.Category
			}
			if payload.Description != nil {
				t.Description = *payload.Description
			}
			if payload.Location != nil {
				t.Location = *payload.Location
			}
			return nil
		}, nil
	case model.AuditActionPauseToggle:
		return func(t *model.Ticket) error {
			if payload.Paused != nil {
				t.Paused = *payload.Paused
			} else {
				t.Paused = !t.Paused
			}
			return nil
		}, nil
	default:
		return nil, ErrValidation
	}
}

// applyStatus force-sets a status and stamps the matching transition
// timestamp, the way the forward chain would have.
func applyStatus(t *model.Ticket, target model.TicketStatus) {
	t.Status = target
	now := time.Now().UTC()
	switch target {
	case model.TicketStatusAccepted:
		t.AcceptedAt = &now
	case model.TicketStatusOnWay:
		t.OnWayAt = &now
	case model.TicketStatusInProgress:
		t.InProgressAt = &now
	case model.TicketStatusCompleted:
		t.CompletedAt = &now
	}
}

// delete removes the ticket and its audit entries together,
// so nothing remains to roll back.
func (s *AuditService) delete(ctx context.Context, ticketID uuid.UUID, payload OverridePayload, reason string) error {
	if !payload.Confirm {
		return ErrValidation
	}
	if _, err := s.ticketRepo.GetByID(ctx, ticketID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}
	if err := s.auditRepo.DeleteTicket(ctx, ticketID); err != nil {
		return err
	}
	s.log.Info().Stringer("ticket", ticketID).Str("reason", reason).Msg("ticket deleted")
	return nil
}

// Rollback re-applies an entry's previous snapshot as a new audited mutation.
// A ROLLBACK entry cannot itself be rolled back; anything else can be rolled
// back repeatedly, each pass capturing whatever the ticket looks like now.
func (s *AuditService) Rollback(ctx context.Context, principal model.Principal, entryID uuid.UUID, reason string) (*model.Ticket, error) {
	if !principal.IsAdmin() {
		return nil, ErrPermissionDenied
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, ErrValidation
	}

	entry, err := s.auditRepo.GetByID(ctx, entryID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if entry.Action == model.AuditActionRollback {
		return nil, ErrNotRollbackable
	}

	snapshot := entry.PrevState.Data()
	ticket, newEntry, err := s.auditRepo.ApplyAudited(ctx, entry.TicketID, principal.UserID, model.AuditActionRollback, reason, func(t *model.Ticket) error {
		snapshot.Apply(t)
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	s.notifier.TicketAudited(ctx, newEntry)
	prev := newEntry.PrevState.Data()
	if prev.Status != ticket.Status {
		s.notifier.StatusChanged(ctx, ticket, prev.Status, principal.UserID)
	}
	return ticket, nil
}

// GetHistory returns a ticket's audit trail, newest first.
func (s *AuditService) GetHistory(ctx context.Context, principal model.Principal, ticketID uuid.UUID) ([]model.AuditLogEntry, error) {
	if !principal.IsAdmin() {
		return nil, ErrPermissionDenied
	}
	if _, err := s.ticketRepo.GetByID(ctx, ticketID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return s.auditRepo.ListByTicket(ctx, ticketID)
}
