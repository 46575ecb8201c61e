package model

import (
	"github.com/google/uuid"
)

// BoardColumn is one column row of a board snapshot. Ids are generated by the
// board state machine, so they are scoped by board.
type BoardColumn struct {
	BoardID  uuid.UUID `gorm:"type:uuid;primaryKey"`
	ID       string    `gorm:"type:text;primaryKey"`
	Name     string    `gorm:"not null"`
	Order    int       `gorm:"column:order;not null"`
	Position int       `gorm:"not null"`
}

func (BoardColumn) TableName() string {
	return "columns"
}
