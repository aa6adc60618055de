package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"dispatch-service/internal/model"
)

type SettingRepository struct {
	db *gorm.DB
}

func NewSettingRepository(db *gorm.DB) *SettingRepository {
	return &SettingRepository{db: db}
}

// Get always reads the settings row from the store. Callers must not cache
// the result across assignment attempts.
func (r *SettingRepository) Get(ctx context.Context) (*model.Setting, error) {
	var setting model.Setting
	err := r.db.WithContext(ctx).First(&setting, "id = ?", model.SettingRowID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		setting = model.Setting{ID: model.SettingRowID, AutoAssignEnabled: true}
		if err := r.db.WithContext(ctx).Create(&setting).Error; err != nil {
			return nil, err
		}
		return &setting, nil
	}
	if err != nil {
		return nil, err
	}
	return &setting, nil
}

func (r *SettingRepository) SetAutoAssign(ctx context.Context, enabled bool, updatedBy uuid.UUID) (*model.Setting, error) {
	if _, err := r.Get(ctx); err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).
		Model(&model.Setting{}).
		Where("id = ?", model.SettingRowID).
		Updates(map[string]interface{}{
			"auto_assign_enabled": enabled,
			"version":             gorm.Expr("version + 1"),
			"updated_by":          updatedBy,
		}).Error; err != nil {
		return nil, err
	}
	return r.Get(ctx)
}
