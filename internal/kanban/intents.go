package kanban

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"
)

// Intent is one user action. Every variant is a plain struct below.
type Intent interface {
	Type() string
}

type (
	AddColumn struct{ Name string }

	DeleteColumn struct{ ColumnID string }

	RenameColumn struct {
		ColumnID string
		Name     string
	}

	AddCard struct {
		ColumnID string
		Content  string
		Author   Author
	}

	EditCard struct {
		ColumnID string
		CardID   string
		Content  string
	}

	RelocateCard struct {
		CardID         string
		SourceColumnID string
		TargetColumnID string
	}

	Unmerge struct {
		ColumnID string
		CardID   string
	}

	BeginDrag struct {
		CardID         string
		SourceColumnID string
	}

	DragOverColumn struct{ ColumnID string }

	DragOverCard struct{ CardID string }

	DragLeaveCard struct{}

	Drop struct{ TargetColumnID string }

	RequestDelete struct {
		ColumnID string
		CardID   string
	}

	ConfirmDelete struct{}

	RequestMerge struct {
		SourceCardID string
		TargetCardID string
	}

	ConfirmMerge struct{}

	CancelPending struct{}
)

func (AddColumn) Type() string      { return "add_column" }
func (DeleteColumn) Type() string   { return "delete_column" }
func (RenameColumn) Type() string   { return "rename_column" }
func (AddCard) Type() string        { return "add_card" }
func (EditCard) Type() string       { return "edit_card" }
func (RelocateCard) Type() string   { return "relocate_card" }
func (Unmerge) Type() string        { return "unmerge" }
func (BeginDrag) Type() string      { return "begin_drag" }
func (DragOverColumn) Type() string { return "drag_over_column" }
func (DragOverCard) Type() string   { return "drag_over_card" }
func (DragLeaveCard) Type() string  { return "drag_leave_card" }
func (Drop) Type() string           { return "drop" }
func (RequestDelete) Type() string  { return "request_delete" }
func (ConfirmDelete) Type() string  { return "confirm_delete" }
func (RequestMerge) Type() string   { return "request_merge" }
func (ConfirmMerge) Type() string   { return "confirm_merge" }
func (CancelPending) Type() string  { return "cancel_pending" }

// Dispatch applies a single intent. Intents that only touch UI state never
// return an error; mutations return the store error if saving failed.
func (m *Machine) Dispatch(ctx context.Context, intent Intent) error {
	switch in := intent.(type) {
	case AddColumn:
		return m.AddColumn(ctx, in.Name)
	case DeleteColumn:
		return m.DeleteColumn(ctx, in.ColumnID)
	case RenameColumn:
		return m.RenameColumn(ctx, in.ColumnID, in.Name)
	case AddCard:
		return m.AddCard(ctx, in.ColumnID, in.Content, in.Author)
	case EditCard:
		return m.EditCard(ctx, in.ColumnID, in.CardID, in.Content)
	case RelocateCard:
		return m.RelocateCard(ctx, in.CardID, in.SourceColumnID, in.TargetColumnID)
	case Unmerge:
		return m.Unmerge(ctx, in.ColumnID, in.CardID)
	case BeginDrag:
		m.BeginDrag(in.CardID, in.SourceColumnID)
	case DragOverColumn:
		m.DragOverColumn(in.ColumnID)
	case DragOverCard:
		m.DragOverCard(in.CardID)
	case DragLeaveCard:
		m.DragLeaveCard()
	case Drop:
		return m.Drop(ctx, in.TargetColumnID)
	case RequestDelete:
		m.RequestDelete(in.ColumnID, in.CardID)
	case ConfirmDelete:
		return m.ConfirmDelete(ctx)
	case RequestMerge:
		m.RequestMerge(in.SourceCardID, in.TargetCardID)
	case ConfirmMerge:
		return m.ConfirmMerge(ctx)
	case CancelPending:
		m.CancelPending()
	default:
		return fmt.Errorf("%w: %T", ErrUnknownIntent, intent)
	}
	return nil
}

// IntentRequest is the JSON envelope of an intent. Only the fields relevant
// to Type are read.
type IntentRequest struct {
	Type           string `json:"type" binding:"required"`
	Name           string `json:"name,omitempty"`
	ColumnID       string `json:"column_id,omitempty"`
	CardID         string `json:"card_id,omitempty"`
	Content        string `json:"content,omitempty"`
	SourceColumnID string `json:"source_column_id,omitempty"`
	TargetColumnID string `json:"target_column_id,omitempty"`
	SourceCardID   string `json:"source_card_id,omitempty"`
	TargetCardID   string `json:"target_card_id,omitempty"`
}

// Intent converts the envelope into its typed variant. New cards are
// attributed to author.
func (r IntentRequest) Intent(author Author) (Intent, error) {
	switch r.Type {
	case "add_column":
		return AddColumn{Name: r.Name}, nil
	case "delete_column":
		return DeleteColumn{ColumnID: r.ColumnID}, nil
	case "rename_column":
		return RenameColumn{ColumnID: r.ColumnID, Name: r.Name}, nil
	case "add_card":
		return AddCard{ColumnID: r.ColumnID, Content: r.Content, Author: author}, nil
	case "edit_card":
		return EditCard{ColumnID: r.ColumnID, CardID: r.CardID, Content: r.Content}, nil
	case "relocate_card":
		return RelocateCard{CardID: r.CardID, SourceColumnID: r.SourceColumnID, TargetColumnID: r.TargetColumnID}, nil
	case "unmerge":
		return Unmerge{ColumnID: r.ColumnID, CardID: r.CardID}, nil
	case "begin_drag":
		return BeginDrag{CardID: r.CardID, SourceColumnID: r.SourceColumnID}, nil
	case "drag_over_column":
		return DragOverColumn{ColumnID: r.ColumnID}, nil
	case "drag_over_card":
		return DragOverCard{CardID: r.CardID}, nil
	case "drag_leave_card":
		return DragLeaveCard{}, nil
	case "drop":
		return Drop{TargetColumnID: r.TargetColumnID}, nil
	case "request_delete":
		return RequestDelete{ColumnID: r.ColumnID, CardID: r.CardID}, nil
	case "confirm_delete":
		return ConfirmDelete{}, nil
	case "request_merge":
		return RequestMerge{SourceCardID: r.SourceCardID, TargetCardID: r.TargetCardID}, nil
	case "confirm_merge":
		return ConfirmMerge{}, nil
	case "cancel_pending":
		return CancelPending{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownIntent, r.Type)
	}
}

// DecodeIntent parses a JSON intent envelope.
func DecodeIntent(data []byte, author Author) (Intent, error) {
	var req IntentRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("decode intent: %w", err)
	}
	return req.Intent(author)
}
