package kanban

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

// wireCard is the stored shape of a card. Older boards may carry nested
// mergedFrom entries; they are flattened on decode.
type wireCard struct {
	ID         string     `json:"id"`
	Content    string     `json:"content"`
	AuthorID   string     `json:"authorId"`
	AuthorName string     `json:"authorName"`
	CreatedAt  time.Time  `json:"createdAt"`
	MergedFrom []wireCard `json:"mergedFrom,omitempty"`
}

type wireColumn struct {
	ID    string     `json:"id"`
	Name  string     `json:"name"`
	Order int        `json:"order"`
	Cards []wireCard `json:"cards"`
}

// Encode serialises a snapshot as a JSON array of columns.
func Encode(s Snapshot) ([]byte, error) {
	columns := make([]wireColumn, len(s.Columns))
	for i, col := range s.Columns {
		cards := make([]wireCard, len(col.Cards))
		for j, card := range col.Cards {
			cards[j] = wireCard{
				ID:         card.ID,
				Content:    card.Content,
				AuthorID:   card.AuthorID,
				AuthorName: card.AuthorName,
				CreatedAt:  card.CreatedAt,
				MergedFrom: wireHistory(card.MergedFrom),
			}
		}
		columns[i] = wireColumn{ID: col.ID, Name: col.Name, Order: col.Order, Cards: cards}
	}
	return json.Marshal(columns)
}

// Decode parses data produced by Encode. Errors wrap ErrCorruptSnapshot.
func Decode(data []byte) (Snapshot, error) {
	var columns []wireColumn
	if err := json.Unmarshal(data, &columns); err != nil {
		return Snapshot{}, fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}

	out := make([]Column, len(columns))
	for i, wc := range columns {
		col := Column{
			ID:    ensureID(wc.ID),
			Name:  wc.Name,
			Order: wc.Order,
			Cards: make([]Card, len(wc.Cards)),
		}
		for j, w := range wc.Cards {
			col.Cards[j] = Card{
				ID:         ensureID(w.ID),
				Content:    w.Content,
				AuthorID:   w.AuthorID,
				AuthorName: w.AuthorName,
				CreatedAt:  w.CreatedAt,
				MergedFrom: flattenHistory(w.MergedFrom),
			}
		}
		out[i] = col
	}
	return Snapshot{Columns: out}, nil
}

// EncodeHistory serialises a merge history for row-oriented stores.
func EncodeHistory(history []Original) ([]byte, error) {
	if history == nil {
		history = []Original{}
	}
	return json.Marshal(history)
}

// DecodeHistory parses a merge history, flattening legacy nested entries.
func DecodeHistory(data []byte) ([]Original, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var entries []wireCard
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}
	return flattenHistory(entries), nil
}

func wireHistory(history []Original) []wireCard {
	if len(history) == 0 {
		return nil
	}
	out := make([]wireCard, len(history))
	for i, o := range history {
		out[i] = wireCard{
			ID:         o.ID,
			Content:    o.Content,
			AuthorID:   o.AuthorID,
			AuthorName: o.AuthorName,
			CreatedAt:  o.CreatedAt,
		}
	}
	return out
}

func flattenHistory(entries []wireCard) []Original {
	var out []Original
	for _, e := range entries {
		out = append(out, e.leaves()...)
	}
	return out
}

func (w wireCard) leaves() []Original {
	if len(w.MergedFrom) == 0 {
		return []Original{{
			ID:         ensureID(w.ID),
			Content:    w.Content,
			AuthorID:   w.AuthorID,
			AuthorName: w.AuthorName,
			CreatedAt:  w.CreatedAt,
		}}
	}
	return flattenHistory(w.MergedFrom)
}

func ensureID(id string) string {
	if id == "" {
		return uuid.NewString()
	}
	return id
}
