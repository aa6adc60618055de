package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TechnicianRole string

const (
	TechnicianRoleField TechnicianRole = "FIELD"
	TechnicianRoleDepot TechnicianRole = "DEPOT"
)

type Technician struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	FullName       string         `gorm:"type:varchar(255);not null" json:"full_name"`
	Phone          string         `gorm:"type:varchar(32)" json:"phone"`
	Role           TechnicianRole `gorm:"type:varchar(16);not null;index" json:"role"`
	Online         bool           `gorm:"not null;default:false" json:"online"`
	Available      bool           `gorm:"not null;default:false" json:"available"`
	LastAssignedAt *time.Time     `gorm:"index" json:"last_assigned_at"`
	CreatedAt      time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Technician) TableName() string {
	return "technicians"
}

func (t *Technician) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
