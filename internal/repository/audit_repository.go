package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"dispatch-service/internal/model"
)

type AuditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

func (r *AuditRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.AuditLogEntry, error) {
	var entry model.AuditLogEntry
	if err := r.db.WithContext(ctx).First(&entry, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *AuditRepository) ListByTicket(ctx context.Context, ticketID uuid.UUID) ([]model.AuditLogEntry, error) {
	var entries []model.AuditLogEntry
	if err := r.db.WithContext(ctx).
		Where("ticket_id = ?", ticketID).
		Order("created_at DESC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// ApplyAudited runs one administrative mutation as a single unit: load the
// ticket, snapshot it, apply the mutation, snapshot the result, append the
// audit entry. Either everything commits or nothing does.
func (r *AuditRepository) ApplyAudited(
	ctx context.Context,
	ticketID uuid.UUID,
	actorID uuid.UUID,
	action model.AuditAction,
	reason string,
	mutate func(t *model.Ticket) error,
) (*model.Ticket, *model.AuditLogEntry, error) {
	var (
		ticket model.Ticket
		entry  model.AuditLogEntry
	)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&ticket, "id = ?", ticketID).Error; err != nil {
			return err
		}

		prev := model.SnapshotTicket(&ticket)

		if err := mutate(&ticket); err != nil {
			return err
		}
		if err := tx.Save(&ticket).Error; err != nil {
			return err
		}

		entry = model.AuditLogEntry{
			TicketID:  ticket.ID,
			ActorID:   actorID,
			Action:    action,
			PrevState: datatypes.NewJSONType(prev),
			NewState:  datatypes.NewJSONType(model.SnapshotTicket(&ticket)),
			Reason:    reason,
		}
		return tx.Create(&entry).Error
	})
	if err != nil {
		return nil, nil, err
	}
	return &ticket, &entry, nil
}

// DeleteTicket removes a ticket together with its attachments and audit
// entries. Nothing survives to roll the delete back; that is the contract.
func (r *AuditRepository) DeleteTicket(ctx context.Context, ticketID uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("ticket_id = ?", ticketID).Delete(&model.TicketAttachment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("ticket_id = ?", ticketID).Delete(&model.AuditLogEntry{}).Error; err != nil {
			return err
		}
		if err := tx.Model(&model.Notification{}).
			Where("ticket_id = ?", ticketID).
			Update("ticket_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Ticket{}, "id = ?", ticketID).Error
	})
}
