package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"dispatch-service/internal/model"
	"dispatch-service/internal/realtime"
	"dispatch-service/internal/repository"
)

// NotificationService fans lifecycle and assignment events out to durable
// notification rows and to the realtime outbox. Emission is best-effort: a
// failed notification never fails the mutation that triggered it.
type NotificationService struct {
	notificationRepo *repository.NotificationRepository
	userRepo         *repository.UserRepository
	technicianRepo   *repository.TechnicianRepository
	outbox           *repository.OutboxRepository
	log              zerolog.Logger
}

func NewNotificationService(
	notificationRepo *repository.NotificationRepository,
	userRepo *repository.UserRepository,
	technicianRepo *repository.TechnicianRepository,
	outbox *repository.OutboxRepository,
	log zerolog.Logger,
) *NotificationService {
	return &NotificationService{
		notificationRepo: notificationRepo,
		userRepo:         userRepo,
		technicianRepo:   technicianRepo,
		outbox:           outbox,
		log:              log,
	}
}

// notify writes one notification per recipient plus the matching realtime
// events. Errors are logged and swallowed.
func (s *NotificationService) notify(ctx context.Context, recipients []uuid.UUID, actorID uuid.UUID, title, message string, ntype model.NotificationType, ticketID *uuid.UUID) int {
	notifications := make([]model.Notification, 0, len(recipients))
	for _, recipient := range recipients {
		notifications = append(notifications, model.Notification{
			RecipientID: recipient,
			Title:       title,
			Message:     message,
			Type:        ntype,
			TicketID:    ticketID,
		})
	}
	if err := s.notificationRepo.CreateBatch(ctx, notifications); err != nil {
		s.log.Error().Err(err).Str("title", title).Msg("notification write failed")
		return 0
	}

	for _, n := range notifications {
		event := realtime.NewEvent(realtime.EventNotification, actorID, ticketID, realtime.NotificationPayload{
			NotificationID: n.ID,
			Title:          n.Title,
			Message:        n.Message,
			Type:           n.Type,
		})
		if err := s.outbox.Enqueue(ctx, realtime.UserTopic(n.RecipientID), event); err != nil {
			s.log.Warn().Err(err).Stringer("recipient", n.RecipientID).Msg("outbox enqueue failed")
		}
	}
	return len(notifications)
}

// emitTicketEvent pushes an event on the per-ticket stream.
func (s *NotificationService) emitTicketEvent(ctx context.Context, event realtime.Event) {
	if event.TicketID == nil {
		return
	}
	if err := s.outbox.Enqueue(ctx, realtime.TicketTopic(*event.TicketID), event); err != nil {
		s.log.Warn().Err(err).Stringer("ticket", *event.TicketID).Msg("outbox enqueue failed")
	}
}

// TicketCreated alerts every administrator about a new pending ticket.
func (s *NotificationService) TicketCreated(ctx context.Context, ticket *model.Ticket) {
	admins, err := s.userRepo.ListIDsByRole(ctx, model.UserRoleAdmin)
	if err != nil {
		s.log.Error().Err(err).Msg("admin lookup failed")
		return
	}
	title := "New service request"
	message := fmt.Sprintf("Ticket %s (%s) is waiting for dispatch", ticket.ID, ticket.Category)
	s.notify(ctx, admins, ticket.RequesterID, title, message, model.NotificationTypeInfo, &ticket.ID)
	s.emitTicketEvent(ctx, realtime.NewEvent(realtime.EventTicketCreated, ticket.RequesterID, &ticket.ID, nil))
}

// TicketAssigned tells the technician about the new assignment.
func (s *NotificationService) TicketAssigned(ctx context.Context, ticket *model.Ticket, technicianID, actorID uuid.UUID, manual bool) {
	title := "Ticket assigned to you"
	message := fmt.Sprintf("Ticket %s (%s) has been assigned to you", ticket.ID, ticket.Category)
	s.notify(ctx, []uuid.UUID{technicianID}, actorID, title, message, model.NotificationTypeInfo, &ticket.ID)
	s.emitTicketEvent(ctx, realtime.NewEvent(realtime.EventTicketAssigned, actorID, &ticket.ID, realtime.AssignedPayload{
		TechnicianID: technicianID,
		Manual:       manual,
	}))
}

// StatusChanged tells the requester and streams the transition on the ticket
// channel. Consumers treat NewStatus as authoritative.
func (s *NotificationService) StatusChanged(ctx context.Context, ticket *model.Ticket, oldStatus model.TicketStatus, actorID uuid.UUID) {
	ntype := model.NotificationTypeInfo
	switch ticket.Status {
	case model.TicketStatusCompleted:
		ntype = model.NotificationTypeSuccess
	case model.TicketStatusCancelled:
		ntype = model.NotificationTypeWarning
	}

	title := "Ticket status updated"
	message := fmt.Sprintf("Ticket %s is now %s", ticket.ID, ticket.Status)
	s.notify(ctx, []uuid.UUID{ticket.RequesterID}, actorID, title, message, ntype, &ticket.ID)
	s.emitTicketEvent(ctx, realtime.NewEvent(realtime.EventTicketStatusChange, actorID, &ticket.ID, realtime.StatusChangePayload{
		OldStatus: oldStatus,
		NewStatus: ticket.Status,
	}))
}

// TicketAudited streams an administrative mutation on the ticket channel.
func (s *NotificationService) TicketAudited(ctx context.Context, entry *model.AuditLogEntry) {
	s.emitTicketEvent(ctx, realtime.NewEvent(realtime.EventTicketAudited, entry.ActorID, &entry.TicketID, map[string]interface{}{
		"action":   entry.Action,
		"entry_id": entry.ID,
	}))
}

// Broadcast sends an administrator-authored message to every current member
// of the target role and returns the recipient count. Users joining the role
// later do not receive it.
func (s *NotificationService) Broadcast(ctx context.Context, principal model.Principal, title, message string, targetRole model.UserRole) (int, error) {
	if !principal.IsAdmin() {
		return 0, ErrPermissionDenied
	}
	title = strings.TrimSpace(title)
	message = strings.TrimSpace(message)
	if title == "" || message == "" {
		return 0, ErrValidation
	}

	var (
		recipients []uuid.UUID
		err        error
	)
	switch targetRole {
	case model.UserRoleTechnician:
		recipients, err = s.technicianRepo.ListIDs(ctx)
	case model.UserRoleRequester, model.UserRoleAdmin:
		recipients, err = s.userRepo.ListIDsByRole(ctx, targetRole)
	default:
		return 0, ErrValidation
	}
	if err != nil {
		return 0, err
	}

	return s.notify(ctx, recipients, principal.UserID, title, message, model.NotificationTypeAlert, nil), nil
}

func (s *NotificationService) List(ctx context.Context, principal model.Principal, unreadOnly bool, limit, offset int) ([]model.Notification, error) {
	return s.notificationRepo.ListByRecipient(ctx, repository.NotificationFilter{
		RecipientID: principal.UserID,
		UnreadOnly:  unreadOnly,
		Limit:       limit,
		Offset:      offset,
	})
}

func (s *NotificationService) MarkRead(ctx context.Context, principal model.Principal, notificationID uuid.UUID) error {
	return s.notificationRepo.MarkRead(ctx, principal.UserID, notificationID)
}

func (s *NotificationService) MarkAllRead(ctx context.Context, principal model.Principal) error {
	return s.notificationRepo.MarkAllRead(ctx, principal.UserID)
}

func (s *NotificationService) Delete(ctx context.Context, principal model.Principal, notificationID uuid.UUID) error {
	return s.notificationRepo.Delete(ctx, principal.UserID, notificationID)
}

func (s *NotificationService) DeleteAll(ctx context.Context, principal model.Principal) error {
	return s.notificationRepo.DeleteAll(ctx, principal.UserID)
}

func (s *NotificationService) CountUnread(ctx context.Context, principal model.Principal) (int64, error) {
	count, err := s.notificationRepo.CountUnread(ctx, principal.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return count, nil
}
