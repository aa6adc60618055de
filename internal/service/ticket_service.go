package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"dispatch-service/internal/geo"
	"dispatch-service/internal/model"
	"dispatch-service/internal/repository"
)

// TicketService owns the lifecycle state machine: status transitions, actor
// checks, the pause gate and the completion geofence.
type TicketService struct {
	ticketRepo     *repository.TicketRepository
	technicianRepo *repository.TechnicianRepository
	userRepo       *repository.UserRepository
	assignment     *AssignmentService
	notifier       *NotificationService
	geofenceRadius float64
	log            zerolog.Logger
}

func NewTicketService(
	ticketRepo *repository.TicketRepository,
	technicianRepo *repository.TechnicianRepository,
	userRepo *repository.UserRepository,
	assignment *AssignmentService,
	notifier *NotificationService,
	geofenceRadius float64,
	log zerolog.Logger,
) *TicketService {
	if geofenceRadius <= 0 {
		geofenceRadius = 100
	}
	return &TicketService{
		ticketRepo:     ticketRepo,
		technicianRepo: technicianRepo,
		userRepo:       userRepo,
		assignment:     assignment,
		notifier:       notifier,
		geofenceRadius: geofenceRadius,
		log:            log,
	}
}

type AttachmentInput struct {
	FileURL string
	Kind    model.AttachmentKind
}

type CreateTicketInput struct {
	Type        model.TicketType
	Category    string
	Description string
	Priority    model.TicketPriority
	Location    model.Location
	Evidence    []AttachmentInput
}

// Create opens a new ticket in PENDING, snapshotting the requester's profile
// so the ticket's history stays readable even if the profile later changes.
func (s *TicketService) Create(ctx context.Context, principal model.Principal, input CreateTicketInput) (*model.Ticket, error) {
	if !principal.IsRequester() {
		return nil, ErrPermissionDenied
	}

	input.Category = strings.TrimSpace(input.Category)
	if input.Category == "" {
		return nil, ErrValidation
	}
	if input.Type != model.TicketTypeFieldRepair && input.Type != model.TicketTypeDepotRepair {
		return nil, ErrValidation
	}
	if input.Priority == "" {
		input.Priority = model.TicketPriorityMedium
	}
	if !input.Priority.Valid() {
		return nil, ErrValidation
	}

	profile, err := s.userRepo.GetByID(ctx, principal.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	ticket := &model.Ticket{
		RequesterID: principal.UserID,
		Type:        input.Type,
		Category:    input.Category,
		Description: strings.TrimSpace(input.Description),
		Status:      model.TicketStatusPending,
		Priority:    input.Priority,
		Location:    input.Location,
		Requester: model.RequesterSnapshot{
			Name:    profile.FullName,
			Phone:   profile.Phone,
			Email:   profile.Email,
			Balance: profile.Balance,
		},
	}

	attachments, err := buildAttachments(input.Evidence, model.AttachmentStageCreation, principal.UserID)
	if err != nil {
		return nil, err
	}

	if err := s.ticketRepo.Create(ctx, ticket, attachments); err != nil {
		return nil, err
	}

	s.notifier.TicketCreated(ctx, ticket)

	// Assignment is a hint, not part of the creation unit: a failed attempt
	// leaves the ticket unassigned for the next sweep.
	if _, _, err := s.assignment.AssignAutomatically(ctx, ticket.ID); err != nil {
		s.log.Warn().Err(err).Stringer("ticket", ticket.ID).Msg("auto-assign on creation failed")
	}

	return s.ticketRepo.GetByID(ctx, ticket.ID)
}

type ListTicketsOptions struct {
	Statuses   []model.TicketStatus
	Types      []model.TicketType
	Priorities []model.TicketPriority
	DateFrom   *time.Time
	DateTo     *time.Time
	Search     string
	Limit      int
	Offset     int
}

// List scopes results by role: requesters see their own tickets, technicians
// see their assignments plus the open pool, administrators see everything.
func (s *TicketService) List(ctx context.Context, principal model.Principal, opts ListTicketsOptions) ([]model.Ticket, error) {
	filter := repository.TicketFilter{
		Statuses:   opts.Statuses,
		Types:      opts.Types,
		Priorities: opts.Priorities,
		DateFrom:   opts.DateFrom,
		DateTo:     opts.DateTo,
		Search:     opts.Search,
		Limit:      opts.Limit,
		Offset:     opts.Offset,
	}

	switch {
	case principal.IsAdmin():
	case principal.IsTechnician():
		filter.PoolForTechnician = principal.TechnicianID
	case principal.IsRequester():
		id := principal.UserID
		filter.RequesterID = &id
	default:
		return nil, ErrPermissionDenied
	}

	return s.ticketRepo.List(ctx, filter)
}

func (s *TicketService) Get(ctx context.Context, principal model.Principal, ticketID uuid.UUID) (*model.Ticket, error) {
	ticket, err := s.ticketRepo.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if err := s.canView(principal, ticket); err != nil {
		return nil, err
	}
	return ticket, nil
}

func (s *TicketService) canView(principal model.Principal, ticket *model.Ticket) error {
	switch {
	case principal.IsAdmin():
		return nil
	case principal.IsRequester():
		if ticket.RequesterID == principal.UserID {
			return nil
		}
	case principal.IsTechnician():
		if ticket.TechnicianID != nil && *ticket.TechnicianID == *principal.TechnicianID {
			return nil
		}
		if ticket.TechnicianID == nil && ticket.Status == model.TicketStatusPending {
			return nil
		}
	}
	return ErrPermissionDenied
}

// AdvanceStatus moves a ticket one step along the forward chain on behalf of
// a technician. COMPLETED is never reachable here; completion goes through
// Complete and its geofence gate.
func (s *TicketService) AdvanceStatus(ctx context.Context, principal model.Principal, ticketID uuid.UUID, target model.TicketStatus) (*model.Ticket, error) {
	if !principal.IsTechnician() {
		return nil, ErrPermissionDenied
	}
	if target == model.TicketStatusCompleted || target == model.TicketStatusCancelled {
		return nil, ErrState
	}

	ticket, err := s.ticketRepo.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if err := s.technicianGate(principal, ticket, target); err != nil {
		return nil, err
	}

	extra := map[string]interface{}{}
	if column := transitionTimestampColumn(target); column != "" {
		extra[column] = time.Now().UTC()
	}
	selfClaim := target == model.TicketStatusAccepted && ticket.TechnicianID == nil
	if selfClaim {
		extra["technician_id"] = *principal.TechnicianID
	}

	return s.finishTransition(ctx, principal, ticket, target, extra)
}

// technicianGate applies the transition contract in order: pause gate, actor
// check (with the PENDING→ACCEPTED self-claim exemption), then adjacency.
func (s *TicketService) technicianGate(principal model.Principal, ticket *model.Ticket, target model.TicketStatus) error {
	if ticket.Paused {
		return ErrWorkflowPaused
	}

	selfClaim := target == model.TicketStatusAccepted && ticket.Status == model.TicketStatusPending
	if !selfClaim {
		if ticket.TechnicianID == nil || *ticket.TechnicianID != *principal.TechnicianID {
			return ErrState
		}
	} else if ticket.TechnicianID != nil && *ticket.TechnicianID != *principal.TechnicianID {
		// A pre-assigned PENDING ticket can only be claimed by its assignee.
		return ErrState
	}

	if !CanTransition(model.UserRoleTechnician, ticket.Status, target) {
		return ErrState
	}
	return nil
}

// finishTransition runs the compare-and-set status update and re-reads on a
// lost race so the caller gets the error matching what actually happened.
func (s *TicketService) finishTransition(ctx context.Context, principal model.Principal, ticket *model.Ticket, target model.TicketStatus, extra map[string]interface{}) (*model.Ticket, error) {
	oldStatus := ticket.Status
	ok, err := s.ticketRepo.TransitionStatus(ctx, ticket.ID, ticket.Status, target, true, extra)
	if err != nil {
		return nil, err
	}
	if !ok {
		current, err := s.ticketRepo.GetByID(ctx, ticket.ID)
		if err != nil {
			return nil, err
		}
		if current.Paused {
			return nil, ErrWorkflowPaused
		}
		return nil, ErrConflict
	}

	updated, err := s.ticketRepo.GetByID(ctx, ticket.ID)
	if err != nil {
		return nil, err
	}
	s.notifier.StatusChanged(ctx, updated, oldStatus, principal.UserID)
	return updated, nil
}

type CompleteTicketInput struct {
	Position      *geo.Point
	Remarks       string
	ReplacedParts string
	Evidence      []AttachmentInput
}

// Complete finishes an IN_PROGRESS ticket. Field technicians must be within
// the geofence radius of the ticket location; an unknown position blocks
// them (fail-closed). Depot technicians are exempt.
func (s *TicketService) Complete(ctx context.Context, principal model.Principal, ticketID uuid.UUID, input CompleteTicketInput) (*model.Ticket, error) {
	if !principal.IsTechnician() {
		return nil, ErrPermissionDenied
	}

	ticket, err := s.ticketRepo.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if err := s.technicianGate(principal, ticket, model.TicketStatusCompleted); err != nil {
		return nil, err
	}

	technician, err := s.technicianRepo.GetByID(ctx, *principal.TechnicianID)
	if err != nil {
		return nil, err
	}
	if technician.Role == model.TechnicianRoleField {
		if input.Position == nil {
			return nil, ErrGeofence
		}
		at := geo.Point{Latitude: ticket.Location.Latitude, Longitude: ticket.Location.Longitude}
		if !geo.WithinRadius(*input.Position, at, s.geofenceRadius) {
			return nil, ErrGeofence
		}
	}

	attachments, err := buildAttachments(input.Evidence, model.AttachmentStageCompletion, principal.UserID)
	if err != nil {
		return nil, err
	}

	extra := map[string]interface{}{
		"completed_at":       time.Now().UTC(),
		"completion_remarks": strings.TrimSpace(input.Remarks),
		"replaced_parts":     strings.TrimSpace(input.ReplacedParts),
	}

	updated, err := s.finishTransition(ctx, principal, ticket, model.TicketStatusCompleted, extra)
	if err != nil {
		return nil, err
	}

	if err := s.ticketRepo.AddAttachments(ctx, updated.ID, attachments); err != nil {
		s.log.Error().Err(err).Stringer("ticket", updated.ID).Msg("completion evidence write failed")
	}
	return s.ticketRepo.GetByID(ctx, updated.ID)
}

// Reject cancels a ticket on behalf of its technician. The reason is
// mandatory.
func (s *TicketService) Reject(ctx context.Context, principal model.Principal, ticketID uuid.UUID, reason string, evidence []AttachmentInput) (*model.Ticket, error) {
	if !principal.IsTechnician() {
		return nil, ErrPermissionDenied
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, ErrValidation
	}

	ticket, err := s.ticketRepo.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if err := s.technicianGate(principal, ticket, model.TicketStatusCancelled); err != nil {
		return nil, err
	}

	attachments, err := buildAttachments(evidence, model.AttachmentStageRejection, principal.UserID)
	if err != nil {
		return nil, err
	}

	extra := map[string]interface{}{"rejection_reason": reason}
	updated, err := s.finishTransition(ctx, principal, ticket, model.TicketStatusCancelled, extra)
	if err != nil {
		return nil, err
	}

	if err := s.ticketRepo.AddAttachments(ctx, updated.ID, attachments); err != nil {
		s.log.Error().Err(err).Stringer("ticket", updated.ID).Msg("rejection evidence write failed")
	}
	return s.ticketRepo.GetByID(ctx, updated.ID)
}

func buildAttachments(inputs []AttachmentInput, stage model.AttachmentStage, uploader uuid.UUID) ([]model.TicketAttachment, error) {
	attachments := make([]model.TicketAttachment, 0, len(inputs))
	for _, in := range inputs {
		if strings.TrimSpace(in.FileURL) == "" {
			return nil, ErrValidation
		}
		kind := in.Kind
		if kind == "" {
			kind = model.AttachmentKindImage
		}
		attachments = append(attachments, model.TicketAttachment{
			FileURL:    in.FileURL,
			Kind:       kind,
			Stage:      stage,
			UploadedBy: uploader,
		})
	}
	return attachments, nil
}
