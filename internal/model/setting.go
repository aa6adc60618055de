package model

import (
	"time"

	"github.com/google/uuid"
)

// Setting is the single process-wide configuration row (id = 1). Version
// increments on every write; readers always load it fresh rather than caching
// it, so concurrent assignment workers never act on a stale flag.
type Setting struct {
	ID                int        `gorm:"primaryKey" json:"id"`
	AutoAssignEnabled bool       `gorm:"not null;default:true" json:"auto_assign_enabled"`
	Version           int64      `gorm:"not null;default:0" json:"version"`
	UpdatedBy         *uuid.UUID `gorm:"type:uuid" json:"updated_by"`
	UpdatedAt         time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Setting) TableName() string {
	return "system_settings"
}

const SettingRowID = 1
