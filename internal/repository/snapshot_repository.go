package repository

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"retroboard/internal/kanban"
	"retroboard/internal/model"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SnapshotRepository stores board snapshots as column and card rows next to
// the board itself.
type SnapshotRepository struct {
	db *gorm.DB
}

var _ kanban.SnapshotStore = (*SnapshotRepository)(nil)

func NewSnapshotRepository(db *gorm.DB) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

func (r *SnapshotRepository) Load(ctx context.Context, boardID string) (kanban.Snapshot, error) {
	id, err := uuid.Parse(boardID)
	if err != nil {
		return kanban.Snapshot{}, kanban.ErrSnapshotNotFound
	}

	db := r.db.WithContext(ctx)
	var board model.Board
	if err := db.Select("id", "snapshot_at").Where("id = ?", id).First(&board).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return kanban.Snapshot{}, kanban.ErrSnapshotNotFound
		}
		return kanban.Snapshot{}, err
	}
	if board.SnapshotAt == nil {
		return kanban.Snapshot{}, kanban.ErrSnapshotNotFound
	}

	var columns []model.BoardColumn
	if err := db.Where("board_id = ?", id).Order("position").Find(&columns).Error; err != nil {
		return kanban.Snapshot{}, err
	}
	var cards []model.Card
	if err := db.Where("board_id = ?", id).Order("position").Find(&cards).Error; err != nil {
		return kanban.Snapshot{}, err
	}

	return assemble(columns, cards)
}

// Save replaces every column and card of the board in one transaction.
func (r *SnapshotRepository) Save(ctx context.Context, boardID string, snap kanban.Snapshot) error {
	id, err := uuid.Parse(boardID)
	if err != nil {
		return fmt.Errorf("invalid board id %q: %w", boardID, err)
	}
	columns, cards, err := disassemble(id, snap)
	if err != nil {
		return err
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// cards go with their columns (ON DELETE CASCADE)
		if err := tx.Where("board_id = ?", id).Delete(&model.BoardColumn{}).Error; err != nil {
			return err
		}
		if len(columns) > 0 {
			if err := tx.Omit(clause.Associations).Create(&columns).Error; err != nil {
				return err
			}
		}
		if len(cards) > 0 {
			if err := tx.Omit(clause.Associations).Create(&cards).Error; err != nil {
				return err
			}
		}
		res := tx.Model(&model.Board{}).Where("id = ?", id).UpdateColumn("snapshot_at", time.Now().UTC())
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrBoardNotFound
		}
		return nil
	})
}

func disassemble(boardID uuid.UUID, snap kanban.Snapshot) ([]model.BoardColumn, []model.Card, error) {
	columns := make([]model.BoardColumn, 0, len(snap.Columns))
	cards := make([]model.Card, 0, snap.CardCount())
	for i, col := range snap.Columns {
		columns = append(columns, model.BoardColumn{
			BoardID:  boardID,
			ID:       col.ID,
			Name:     col.Name,
			Order:    col.Order,
			Position: i,
		})
		for j, card := range col.Cards {
			history, err := kanban.EncodeHistory(card.MergedFrom)
			if err != nil {
				return nil, nil, fmt.Errorf("encode history of card %s: %w", card.ID, err)
			}
			cards = append(cards, model.Card{
				BoardID:    boardID,
				ID:         card.ID,
				ColumnID:   col.ID,
				Position:   j,
				Content:    card.Content,
				AuthorID:   card.AuthorID,
				AuthorName: card.AuthorName,
				CreatedAt:  card.CreatedAt,
				MergedFrom: datatypes.JSON(history),
			})
		}
	}
	return columns, cards, nil
}

func assemble(columns []model.BoardColumn, cards []model.Card) (kanban.Snapshot, error) {
	byColumn := make(map[string][]kanban.Card, len(columns))
	for _, row := range cards {
		history, err := kanban.DecodeHistory(row.MergedFrom)
		if err != nil {
			return kanban.Snapshot{}, fmt.Errorf("card %s: %w", row.ID, err)
		}
		byColumn[row.ColumnID] = append(byColumn[row.ColumnID], kanban.Card{
			ID:         row.ID,
			Content:    row.Content,
			AuthorID:   row.AuthorID,
			AuthorName: row.AuthorName,
			CreatedAt:  row.CreatedAt,
			MergedFrom: history,
		})
	}

	// Column sequence is position; order is the label the board shows.
	slices.SortStableFunc(columns, func(a, b model.BoardColumn) int { return a.Position - b.Position })

	snap := kanban.Snapshot{Columns: make([]kanban.Column, len(columns))}
	for i, row := range columns {
		colCards := byColumn[row.ID]
		if colCards == nil {
			colCards = []kanban.Card{}
		}
		snap.Columns[i] = kanban.Column{ID: row.ID, Name: row.Name, Order: row.Order, Cards: colCards}
	}
	return snap, nil
}
