package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"dispatch-service/internal/model"
)

type TicketRepository struct {
	db *gorm.DB
}

func NewTicketRepository(db *gorm.DB) *TicketRepository {
	return &TicketRepository{db: db}
}

type TicketFilter struct {
	Statuses     []model.TicketStatus
	Types        []model.TicketType
	Priorities   []model.TicketPriority
	RequesterID  *uuid.UUID
	TechnicianID *uuid.UUID

	// PoolForTechnician scopes to tickets assigned to the technician plus
	// the unassigned PENDING pool open to self-claim.
	PoolForTechnician *uuid.UUID
	Unassigned        bool

	DateFrom *time.Time
	DateTo   *time.Time
	Search   string
	Limit    int
	Offset   int
}

func (r *TicketRepository) List(ctx context.Context, filter TicketFilter) ([]model.Ticket, error) {
	query := r.db.WithContext(ctx).Model(&model.Ticket{})

	if len(filter.Statuses) > 0 {
		query = query.Where("tickets.status IN ?", filter.Statuses)
	}
	if len(filter.Types) > 0 {
		query = query.Where("tickets.type IN ?", filter.Types)
	}
	if len(filter.Priorities) > 0 {
		query = query.Where("tickets.priority IN ?", filter.Priorities)
	}
	if filter.RequesterID != nil {
		query = query.Where("tickets.requester_id = ?", *filter.RequesterID)
	}
	if filter.TechnicianID != nil {
		query = query.Where("tickets.technician_id = ?", *filter.TechnicianID)
	}
	if filter.PoolForTechnician != nil {
		query = query.Where(
			"(tickets.technician_id = ? OR (tickets.technician_id IS NULL AND tickets.status = ?))",
			*filter.PoolForTechnician, model.TicketStatusPending,
		)
	}
	if filter.Unassigned {
		query = query.Where("tickets.technician_id IS NULL")
	}
	if filter.DateFrom != nil {
		query = query.Where("tickets.created_at >= ?", *filter.DateFrom)
	}
	if filter.DateTo != nil {
		query = query.Where("tickets.created_at <= ?", *filter.DateTo)
	}
	if filter.Search != "" {
		search := "%" + filter.Search + "%"
		query = query.Where("(tickets.category LIKE ? OR tickets.description LIKE ?)", search, search)
	}

	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	} else {
		query = query.Limit(200)
	}

	var tickets []model.Ticket
	if err := query.
		Order("tickets.created_at DESC").
		Preload("Technician").
		Preload("Attachments").
		Find(&tickets).Error; err != nil {
		return nil, err
	}
	return tickets, nil
}

func (r *TicketRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Ticket, error) {
	var ticket model.Ticket
	if err := r.db.WithContext(ctx).
		Preload("Technician").
		Preload("Attachments").
		First(&ticket, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *TicketRepository) Create(ctx context.Context, ticket *model.Ticket, attachments []model.TicketAttachment) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(ticket).Error; err != nil {
			return err
		}
		if len(attachments) > 0 {
			for i := range attachments {
				attachments[i].TicketID = ticket.ID
			}
			if err := tx.Create(&attachments).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *TicketRepository) AddAttachments(ctx context.Context, ticketID uuid.UUID, attachments []model.TicketAttachment) error {
	if len(attachments) == 0 {
		return nil
	}
	for i := range attachments {
		attachments[i].TicketID = ticketID
	}
	return r.db.WithContext(ctx).Create(&attachments).Error
}

// TransitionStatus moves a ticket from an expected status to a target status
// as a single compare-and-set update. It returns false when a concurrent
// writer got there first (or when requireUnpaused is set and the ticket was
// paused in the meantime); the caller re-reads and decides.
func (r *TicketRepository) TransitionStatus(ctx context.Context, ticketID uuid.UUID, from, to model.TicketStatus, requireUnpaused bool, extra map[string]interface{}) (bool, error) {
	updates := map[string]interface{}{"status": to}
	for k, v := range extra {
		updates[k] = v
	}

	query := r.db.WithContext(ctx).
		Model(&model.Ticket{}).
		Where("id = ? AND status = ?", ticketID, from)
	if requireUnpaused {
		query = query.Where("paused = ?", false)
	}

	res := query.Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// ClaimForAssignment sets the technician reference on a ticket only while the
// ticket is still an unassigned PENDING one. Two concurrent sweeps cannot
// both claim the same ticket.
func (r *TicketRepository) ClaimForAssignment(ctx context.Context, ticketID, technicianID uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&model.Ticket{}).
		Where("id = ? AND technician_id IS NULL AND status = ?", ticketID, model.TicketStatusPending).
		Update("technician_id", technicianID)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// SetTechnician replaces the assignment unconditionally; manual administrative
// assignment uses this path.
func (r *TicketRepository) SetTechnician(ctx context.Context, ticketID, technicianID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&model.Ticket{}).
		Where("id = ?", ticketID).
		Update("technician_id", technicianID).Error
}

func (r *TicketRepository) UnassignAllForTechnician(ctx context.Context, technicianID uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&model.Ticket{}).
		Where("technician_id = ? AND status NOT IN ?", technicianID, []model.TicketStatus{
			model.TicketStatusCompleted,
			model.TicketStatusCancelled,
		}).
		Update("technician_id", nil)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *TicketRepository) ListUnassignedPending(ctx context.Context) ([]model.Ticket, error) {
	var tickets []model.Ticket
	if err := r.db.WithContext(ctx).
		Where("technician_id IS NULL AND status = ?", model.TicketStatusPending).
		Order("created_at ASC").
		Find(&tickets).Error; err != nil {
		return nil, err
	}
	return tickets, nil
}
