package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// OutboxEvent is a pending realtime publish. Mutations enqueue events in the
// same transaction that commits their state change; a background dispatcher
// drains the table and publishes best-effort, at-least-once.
type OutboxEvent struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Topic       string         `gorm:"type:varchar(255);not null;index" json:"topic"`
	Payload     datatypes.JSON `json:"payload"`
	Processed   bool           `gorm:"not null;default:false;index" json:"processed"`
	ProcessedAt *time.Time     `json:"processed_at"`
	CreatedAt   time.Time      `gorm:"autoCreateTime" json:"created_at"`
}

func (OutboxEvent) TableName() string {
	return "realtime_outbox"
}

func (e *OutboxEvent) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
