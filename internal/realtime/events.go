// Package realtime carries ticket and notification events from committed
// mutations to the push channel. Delivery is best-effort and at-least-once;
// ordering holds per topic only, so consumers treat the carried status as
// authoritative rather than assuming monotonic arrival.
package realtime

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"dispatch-service/internal/model"
)

type EventType string

const (
	EventTicketCreated      EventType = "ticket_created"
	EventTicketAssigned     EventType = "ticket_assigned"
	EventTicketStatusChange EventType = "ticket_status_changed"
	EventTicketAudited      EventType = "ticket_audited"
	EventNotification       EventType = "notification"
)

type Event struct {
	ID        uuid.UUID   `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  *uuid.UUID  `json:"ticket_id,omitempty"`
	ActorID   uuid.UUID   `json:"actor_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload,omitempty"`
}

func NewEvent(eventType EventType, actorID uuid.UUID, ticketID *uuid.UUID, payload interface{}) Event {
	return Event{
		ID:        uuid.New(),
		Type:      eventType,
		TicketID:  ticketID,
		ActorID:   actorID,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

type StatusChangePayload struct {
	OldStatus model.TicketStatus `json:"old_status"`
	NewStatus model.TicketStatus `json:"new_status"`
}

type AssignedPayload struct {
	TechnicianID uuid.UUID `json:"technician_id"`
	Manual       bool      `json:"manual"`
}

type NotificationPayload struct {
	NotificationID uuid.UUID              `json:"notification_id"`
	Title          string                 `json:"title"`
	Message        string                 `json:"message"`
	Type           model.NotificationType `json:"notification_type"`
}

// TicketTopic is the per-ticket stream of status and audit changes.
func TicketTopic(ticketID uuid.UUID) string {
	return fmt.Sprintf("ticket.%s", ticketID)
}

// UserTopic is the per-recipient notification stream.
func UserTopic(userID uuid.UUID) string {
	return fmt.Sprintf("user.%s", userID)
}
