package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type Card struct {
	BoardID    uuid.UUID `gorm:"type:uuid;primaryKey"`
	ID         string    `gorm:"type:text;primaryKey"`
	ColumnID   string    `gorm:"type:text;not null;index"`
	Position   int       `gorm:"not null"`
	Content    string    `gorm:"not null"`
	AuthorID   string    `gorm:"not null"`
	AuthorName string    `gorm:"not null"`
	CreatedAt  time.Time
	// MergedFrom holds the flat list of originals this card was merged from.
	MergedFrom datatypes.JSON `gorm:"type:jsonb;not null"`
}
