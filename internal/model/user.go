package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserProfile is the directory row for requesters and administrators. Ticket
// creation snapshots its contact and balance fields onto the ticket; role
// broadcasts fan out to its current members.
type UserProfile struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	FullName  string    `gorm:"type:varchar(255);not null" json:"full_name"`
	Phone     string    `gorm:"type:varchar(32)" json:"phone"`
	Email     string    `gorm:"type:varchar(255)" json:"email"`
	Balance   float64   `gorm:"not null;default:0" json:"balance"`
	Role      UserRole  `gorm:"type:varchar(32);not null;index" json:"role"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (UserProfile) TableName() string {
	return "users"
}

func (u *UserProfile) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}
