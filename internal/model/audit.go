package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type AuditAction string

const (
	AuditActionStatusChange   AuditAction = "STATUS_CHANGE"
	AuditActionPriorityUpdate AuditAction = "PRIORITY_UPDATE"
	AuditActionEdit           AuditAction = "EDIT"
	AuditActionPauseToggle    AuditAction = "PAUSE_TOGGLE"
	AuditActionDelete         AuditAction = "DELETE"
	AuditActionRollback       AuditAction = "ROLLBACK"
)

// TicketSnapshot is a full copy of a ticket's mutable fields, captured on
// both sides of every administrative mutation. The requester snapshot is
// immutable by construction and is not part of it.
type TicketSnapshot struct {
	Status            TicketStatus   `json:"status"`
	TechnicianID      *uuid.UUID     `json:"technician_id"`
	Type              TicketType     `json:"type"`
	Category          string         `json:"category"`
	Description       string         `json:"description"`
	Priority          TicketPriority `json:"priority"`
	Paused            bool           `json:"paused"`
	Location          Location       `json:"location"`
	AcceptedAt        *time.Time     `json:"accepted_at"`
	OnWayAt           *time.Time     `json:"on_way_at"`
	InProgressAt      *time.Time     `json:"in_progress_at"`
	CompletedAt       *time.Time     `json:"completed_at"`
	RejectionReason   *string        `json:"rejection_reason"`
	CompletionRemarks string         `json:"completion_remarks"`
	ReplacedParts     string         `json:"replaced_parts"`
}

// SnapshotTicket captures the mutable half of a ticket.
func SnapshotTicket(t *Ticket) TicketSnapshot {
	return TicketSnapshot{
		Status:            t.Status,
		TechnicianID:      t.TechnicianID,
		Type:              t.Type,
		Category:          t.Category,
		Description:       t.Description,
		Priority:          t.Priority,
		Paused:            t.Paused,
		Location:          t.Location,
		AcceptedAt:        t.AcceptedAt,
		OnWayAt:           t.OnWayAt,
		InProgressAt:      t.InProgressAt,
		CompletedAt:       t.CompletedAt,
		RejectionReason:   t.RejectionReason,
		CompletionRemarks: t.CompletionRemarks,
		ReplacedParts:     t.ReplacedParts,
	}
}

// Apply writes the snapshot's fields back onto the ticket.
func (s TicketSnapshot) Apply(t *Ticket) {
	t.Status = s.Status
	t.TechnicianID = s.TechnicianID
	t.Type = s.Type
	t.Category = s.Category
	t.Description = s.Description
	t.Priority = s.Priority
	t.Paused = s.Paused
	t.Location = s.Location
	t.AcceptedAt = s.AcceptedAt
	t.OnWayAt = s.OnWayAt
	t.InProgressAt = s.InProgressAt
	t.CompletedAt = s.CompletedAt
	t.RejectionReason = s.RejectionReason
	t.CompletionRemarks = s.CompletionRemarks
	t.ReplacedParts = s.ReplacedParts
}

// AuditLogEntry is append-only: rows are never updated or deleted while their
// ticket exists. An administrative DELETE removes the ticket and its entries
// together, which is what makes it unrecoverable.
type AuditLogEntry struct {
	ID        uuid.UUID                          `gorm:"type:uuid;primaryKey" json:"id"`
	TicketID  uuid.UUID                          `gorm:"type:uuid;not null;index" json:"ticket_id"`
	ActorID   uuid.UUID                          `gorm:"type:uuid;not null" json:"actor_id"`
	Action    AuditAction                        `gorm:"type:varchar(32);not null" json:"action"`
	PrevState datatypes.JSONType[TicketSnapshot] `json:"prev_state"`
	NewState  datatypes.JSONType[TicketSnapshot] `json:"new_state"`
	Reason    string                             `gorm:"type:text;not null" json:"reason"`
	CreatedAt time.Time                          `gorm:"autoCreateTime" json:"created_at"`
}

func (AuditLogEntry) TableName() string {
	return "ticket_audit_log"
}

func (e *AuditLogEntry) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
