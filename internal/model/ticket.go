package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TicketStatus string

const (
	TicketStatusPending    TicketStatus = "PENDING"
	TicketStatusAccepted   TicketStatus = "ACCEPTED"
	TicketStatusOnWay      TicketStatus = "ON_WAY"
	TicketStatusInProgress TicketStatus = "IN_PROGRESS"
	TicketStatusCompleted  TicketStatus = "COMPLETED"
	TicketStatusCancelled  TicketStatus = "CANCELLED"
)

// Terminal reports whether no further technician transition can leave the status.
func (s TicketStatus) Terminal() bool {
	return s == TicketStatusCompleted || s == TicketStatusCancelled
}

// Valid reports whether s is one of the defined statuses.
func (s TicketStatus) Valid() bool {
	switch s {
	case TicketStatusPending, TicketStatusAccepted, TicketStatusOnWay,
		TicketStatusInProgress, TicketStatusCompleted, TicketStatusCancelled:
		return true
	}
	return false
}

type TicketType string

const (
	TicketTypeFieldRepair TicketType = "FIELD_REPAIR"
	TicketTypeDepotRepair TicketType = "DEPOT_REPAIR"
)

// RequiredRole maps a ticket type to the technician role that may serve it.
func (t TicketType) RequiredRole() TechnicianRole {
	if t == TicketTypeDepotRepair {
		return TechnicianRoleDepot
	}
	return TechnicianRoleField
}

type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "LOW"
	TicketPriorityMedium TicketPriority = "MEDIUM"
	TicketPriorityHigh   TicketPriority = "HIGH"
	TicketPriorityUrgent TicketPriority = "URGENT"
)

// Valid reports whether p is one of the defined priorities.
func (p TicketPriority) Valid() bool {
	switch p {
	case TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh, TicketPriorityUrgent:
		return true
	}
	return false
}

type AttachmentKind string

const (
	AttachmentKindImage AttachmentKind = "IMAGE"
	AttachmentKindVoice AttachmentKind = "VOICE"
)

type AttachmentStage string

const (
	AttachmentStageCreation   AttachmentStage = "CREATION"
	AttachmentStageCompletion AttachmentStage = "COMPLETION"
	AttachmentStageRejection  AttachmentStage = "REJECTION"
)

// RequesterSnapshot is the requester's profile as it was when the ticket was
// created. It is written once and never re-derived from the live profile.
type RequesterSnapshot struct {
	Name    string  `gorm:"column:requester_name;type:varchar(255)" json:"name"`
	Phone   string  `gorm:"column:requester_phone;type:varchar(32)" json:"phone"`
	Email   string  `gorm:"column:requester_email;type:varchar(255)" json:"email"`
	Balance float64 `gorm:"column:requester_balance" json:"balance"`
}

type Location struct {
	Latitude  float64 `gorm:"column:location_lat" json:"latitude"`
	Longitude float64 `gorm:"column:location_lng" json:"longitude"`
}

type Ticket struct {
	ID           uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	RequesterID  uuid.UUID         `gorm:"type:uuid;not null;index" json:"requester_id"`
	TechnicianID *uuid.UUID        `gorm:"type:uuid;index" json:"technician_id"`
	Type         TicketType        `gorm:"type:varchar(32);not null" json:"type"`
	Category     string            `gorm:"type:varchar(64);not null" json:"category"`
	Description  string            `gorm:"type:text" json:"description"`
	Status       TicketStatus      `gorm:"type:varchar(32);not null;default:'PENDING';index" json:"status"`
	Priority     TicketPriority    `gorm:"type:varchar(16);not null;default:'MEDIUM'" json:"priority"`
	Paused       bool              `gorm:"not null;default:false" json:"paused"`
	Requester    RequesterSnapshot `gorm:"embedded" json:"requester"`
	Location     Location          `gorm:"embedded" json:"location"`

	AcceptedAt   *time.Time `json:"accepted_at"`
	OnWayAt      *time.Time `json:"on_way_at"`
	InProgressAt *time.Time `json:"in_progress_at"`
	CompletedAt  *time.Time `json:"completed_at"`

	RejectionReason   *string `gorm:"type:text" json:"rejection_reason"`
	CompletionRemarks string  `gorm:"type:text" json:"completion_remarks"`
	ReplacedParts     string  `gorm:"type:text" json:"replaced_parts"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	Technician  *Technician        `gorm:"foreignKey:TechnicianID" json:"technician,omitempty"`
	Attachments []TicketAttachment `gorm:"foreignKey:TicketID" json:"attachments,omitempty"`
}

func (Ticket) TableName() string {
	return "tickets"
}

func (t *Ticket) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

type TicketAttachment struct {
	ID         uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	TicketID   uuid.UUID       `gorm:"type:uuid;not null;index" json:"ticket_id"`
	FileURL    string          `gorm:"type:text;not null" json:"file_url"`
	Kind       AttachmentKind  `gorm:"type:varchar(16);not null" json:"kind"`
	Stage      AttachmentStage `gorm:"type:varchar(16);not null" json:"stage"`
	UploadedBy uuid.UUID       `gorm:"type:uuid;not null" json:"uploaded_by"`
	CreatedAt  time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

func (TicketAttachment) TableName() string {
	return "ticket_attachments"
}

func (a *TicketAttachment) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
