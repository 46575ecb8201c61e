package model

import (
	"time"

	"github.com/google/uuid"
)

type Board struct {
	ID          uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Name        string    `gorm:"not null"`
	Description *string
	UserID      uuid.UUID `gorm:"type:uuid;not null;index"`
	// SnapshotAt is set once the board's columns have been written; nil means never saved.
	SnapshotAt *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time

	User User `gorm:"foreignKey:UserID"`
}
