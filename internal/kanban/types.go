// Package kanban holds the in-memory state of one retrospective board: its
// columns, their cards, drag-and-drop state and the pending confirmation.
// Every change to columns or cards is written through a SnapshotStore.
package kanban

import (
	"slices"
	"time"
)

// Author identifies who wrote a card. It is captured when the card is
// created; later renames of the user do not touch existing cards.
type Author struct {
	ID   string
	Name string
}

// Original is a leaf card kept in a merge history. It has no history of its
// own, so a history can never nest.
type Original struct {
	ID         string    `json:"id"`
	Content    string    `json:"content"`
	AuthorID   string    `json:"authorId"`
	AuthorName string    `json:"authorName"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Card is a piece of authored content inside a column. A card with a
// non-empty MergedFrom is the result of one or more merges.
type Card struct {
	ID         string
	Content    string
	AuthorID   string
	AuthorName string
	CreatedAt  time.Time
	MergedFrom []Original
}

// IsMerged reports whether the card aggregates other cards.
func (c Card) IsMerged() bool {
	return len(c.MergedFrom) > 0
}

func (c Card) original() Original {
	return Original{
		ID:         c.ID,
		Content:    c.Content,
		AuthorID:   c.AuthorID,
		AuthorName: c.AuthorName,
		CreatedAt:  c.CreatedAt,
	}
}

func (c Card) clone() Card {
	c.MergedFrom = slices.Clone(c.MergedFrom)
	return c
}

// Column is a named, ordered container of cards.
type Column struct {
	ID    string
	Name  string
	Order int
	Cards []Card
}

func (c Column) clone() Column {
	cards := make([]Card, len(c.Cards))
	for i, card := range c.Cards {
		cards[i] = card.clone()
	}
	c.Cards = cards
	return c
}

// Snapshot is the complete column/card tree of one board. It is the unit of
// persistence.
type Snapshot struct {
	Columns []Column
}

// Clone returns a deep copy of the snapshot.
func (s Snapshot) Clone() Snapshot {
	return Snapshot{Columns: cloneColumns(s.Columns)}
}

// CardCount returns the number of cards across all columns.
func (s Snapshot) CardCount() int {
	n := 0
	for _, col := range s.Columns {
		n += len(col.Cards)
	}
	return n
}

func cloneColumns(columns []Column) []Column {
	out := make([]Column, len(columns))
	for i, col := range columns {
		out[i] = col.clone()
	}
	return out
}

func findColumn(columns []Column, columnID string) int {
	return slices.IndexFunc(columns, func(c Column) bool { return c.ID == columnID })
}

func findCard(cards []Card, cardID string) int {
	return slices.IndexFunc(cards, func(c Card) bool { return c.ID == cardID })
}

// locateCard searches every column for the card.
func locateCard(columns []Column, cardID string) (colIdx, cardIdx int, ok bool) {
	for i, col := range columns {
		if j := findCard(col.Cards, cardID); j >= 0 {
			return i, j, true
		}
	}
	return -1, -1, false
}
