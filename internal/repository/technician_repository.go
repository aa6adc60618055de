package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"dispatch-service/internal/model"
)

type TechnicianRepository struct {
	db *gorm.DB
}

func NewTechnicianRepository(db *gorm.DB) *TechnicianRepository {
	return &TechnicianRepository{db: db}
}

func (r *TechnicianRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Technician, error) {
	var technician model.Technician
	if err := r.db.WithContext(ctx).First(&technician, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &technician, nil
}

func (r *TechnicianRepository) List(ctx context.Context) ([]model.Technician, error) {
	var technicians []model.Technician
	if err := r.db.WithContext(ctx).
		Order("full_name ASC").
		Find(&technicians).Error; err != nil {
		return nil, err
	}
	return technicians, nil
}

func (r *TechnicianRepository) ListIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := r.db.WithContext(ctx).
		Model(&model.Technician{}).
		Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// EligibleForAssignment returns round-robin candidates for a role: online,
// available, never-assigned first, then oldest assignment first, identifier
// order breaking ties.
func (r *TechnicianRepository) EligibleForAssignment(ctx context.Context, role model.TechnicianRole, limit int) ([]model.Technician, error) {
	if limit <= 0 {
		limit = 10
	}
	var technicians []model.Technician
	if err := r.db.WithContext(ctx).
		Where("role = ? AND online = ? AND available = ?", role, true, true).
		Order("last_assigned_at ASC NULLS FIRST, id ASC").
		Limit(limit).
		Find(&technicians).Error; err != nil {
		return nil, err
	}
	return technicians, nil
}

// StampAssigned advances last_assigned_at from the value the caller observed
// to now. A false return means another sweep assigned this technician in
// between and the caller should move to the next candidate.
func (r *TechnicianRepository) StampAssigned(ctx context.Context, id uuid.UUID, seen *time.Time) (bool, error) {
	query := r.db.WithContext(ctx).
		Model(&model.Technician{}).
		Where("id = ?", id)
	if seen == nil {
		query = query.Where("last_assigned_at IS NULL")
	} else {
		query = query.Where("last_assigned_at = ?", *seen)
	}

	res := query.Update("last_assigned_at", time.Now().UTC())
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// TouchAssigned stamps last_assigned_at unconditionally; the manual
// assignment path uses it since no other writer competes for fairness there.
func (r *TechnicianRepository) TouchAssigned(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&model.Technician{}).
		Where("id = ?", id).
		Update("last_assigned_at", time.Now().UTC()).Error
}

func (r *TechnicianRepository) SetPresence(ctx context.Context, id uuid.UUID, online, available bool) error {
	return r.db.WithContext(ctx).
		Model(&model.Technician{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"online":    online,
			"available": available,
		}).Error
}
