package kanban

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultColumnNames is the template used for a board that has never been saved.
var DefaultColumnNames = []string{"Went Well", "To Improve", "Action Items"}

// PendingKind names the confirmation a machine is waiting on.
type PendingKind string

const (
	PendingNone   PendingKind = ""
	PendingDelete PendingKind = "delete"
	PendingMerge  PendingKind = "merge"
)

// Pending is the single outstanding confirmation. For a delete ColumnID and
// CardID are set; for a merge SourceCardID and TargetCardID are set.
type Pending struct {
	Kind         PendingKind
	ColumnID     string
	CardID       string
	SourceCardID string
	TargetCardID string
}

// Drag describes an in-progress drag gesture.
type Drag struct {
	CardID         string
	SourceColumnID string
	OverColumnID   string
}

// View is a read-only copy of the machine state for the presentation layer.
type View struct {
	BoardID           string
	Columns           []Column
	Dragging          *Drag
	MergeTargetCardID string
	Pending           Pending
}

type options struct {
	initial  []Column
	defaults []string
	logger   *zap.Logger
	now      func() time.Time
	newID    func() string
}

// Option configures Open.
type Option func(*options)

// WithInitialColumns supplies the columns used when nothing has been saved
// for the board yet. An empty slice falls back to the default template.
func WithInitialColumns(columns []Column) Option {
	return func(o *options) { o.initial = columns }
}

// WithDefaultColumns overrides the names of the default template.
func WithDefaultColumns(names ...string) Option {
	return func(o *options) {
		if len(names) > 0 {
			o.defaults = names
		}
	}
}

// WithLogger sets the logger for fallback warnings.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithClock replaces the clock used to stamp new cards.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithIDGenerator replaces the generator of column and card ids.
func WithIDGenerator(newID func() string) Option {
	return func(o *options) { o.newID = newID }
}

// defaultClock stamps cards at the precision every store keeps.
func defaultClock() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

// Machine is the state of one board as seen by one user. It is not safe for
// concurrent use.
type Machine struct {
	boardID string
	store   SnapshotStore
	logger  *zap.Logger
	now     func() time.Time
	newID   func() string

	columns     []Column
	drag        *Drag
	mergeTarget string
	pending     Pending
}

// Open loads the board's snapshot from store and returns a machine ready for
// intents. A board that was never saved starts from the initial columns (or
// the default template) and that starting point is saved right away.
func Open(ctx context.Context, boardID string, store SnapshotStore, opts ...Option) (*Machine, error) {
	o := options{
		defaults: DefaultColumnNames,
		logger:   zap.NewNop(),
		now:      defaultClock,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(&o)
	}

	m := &Machine{
		boardID: boardID,
		store:   store,
		logger:  o.logger.With(zap.String("board_id", boardID)),
		now:     o.now,
		newID:   o.newID,
	}

	snap, err := store.Load(ctx, boardID)
	switch {
	case err == nil:
		m.columns = snap.Columns
		return m, nil
	case errors.Is(err, ErrCorruptSnapshot):
		m.logger.Warn("stored snapshot is malformed, using default columns", zap.Error(err))
		m.columns = m.template(o.defaults)
		return m, nil
	case errors.Is(err, ErrSnapshotNotFound):
		if len(o.initial) > 0 {
			m.columns = cloneColumns(o.initial)
		} else {
			m.columns = m.template(o.defaults)
		}
		if err := store.Save(ctx, boardID, Snapshot{Columns: cloneColumns(m.columns)}); err != nil {
			m.logger.Warn("failed to persist initial columns", zap.Error(err))
		}
		return m, nil
	default:
		return nil, fmt.Errorf("load board %s: %w", boardID, err)
	}
}

func (m *Machine) template(names []string) []Column {
	columns := make([]Column, len(names))
	for i, name := range names {
		columns[i] = Column{ID: m.newID(), Name: name, Order: i + 1, Cards: []Card{}}
	}
	return columns
}

// BoardID returns the board this machine operates on.
func (m *Machine) BoardID() string {
	return m.boardID
}

// Snapshot returns a deep copy of the current columns.
func (m *Machine) Snapshot() Snapshot {
	return Snapshot{Columns: cloneColumns(m.columns)}
}

// View returns the current state for rendering.
func (m *Machine) View() View {
	v := View{
		BoardID:           m.boardID,
		Columns:           cloneColumns(m.columns),
		MergeTargetCardID: m.mergeTarget,
		Pending:           m.pending,
	}
	if m.drag != nil {
		d := *m.drag
		v.Dragging = &d
	}
	return v
}

// commit saves next and, only if that worked, makes it the current state.
func (m *Machine) commit(ctx context.Context, next []Column) error {
	if err := m.store.Save(ctx, m.boardID, Snapshot{Columns: next}); err != nil {
		return fmt.Errorf("save board %s: %w", m.boardID, err)
	}
	m.columns = next
	return nil
}

// AddColumn appends an empty column named name. A blank name is ignored.
func (m *Machine) AddColumn(ctx context.Context, name string) error {
	if strings.TrimSpace(name) == "" {
		return nil
	}
	next := cloneColumns(m.columns)
	next = append(next, Column{
		ID:    m.newID(),
		Name:  name,
		Order: len(next) + 1,
		Cards: []Card{},
	})
	return m.commit(ctx, next)
}

// DeleteColumn removes the column and every card in it.
func (m *Machine) DeleteColumn(ctx context.Context, columnID string) error {
	idx := findColumn(m.columns, columnID)
	if idx < 0 {
		return nil
	}
	next := cloneColumns(m.columns)
	next = slices.Delete(next, idx, idx+1)
	return m.commit(ctx, next)
}

// RenameColumn sets the trimmed name of a column.
func (m *Machine) RenameColumn(ctx context.Context, columnID, newName string) error {
	name := strings.TrimSpace(newName)
	idx := findColumn(m.columns, columnID)
	if name == "" || idx < 0 {
		return nil
	}
	next := cloneColumns(m.columns)
	next[idx].Name = name
	return m.commit(ctx, next)
}

// AddCard appends a card written by author to the column. Content is stored
// as given; only the emptiness check trims it.
func (m *Machine) AddCard(ctx context.Context, columnID, content string, author Author) error {
	idx := findColumn(m.columns, columnID)
	if strings.TrimSpace(content) == "" || idx < 0 {
		return nil
	}
	next := cloneColumns(m.columns)
	next[idx].Cards = append(next[idx].Cards, Card{
		ID:         m.newID(),
		Content:    content,
		AuthorID:   author.ID,
		AuthorName: author.Name,
		CreatedAt:  m.now(),
	})
	return m.commit(ctx, next)
}

func (m *Machine) EditCard(ctx context.Context, columnID, cardID, newContent string) error {
	content := strings.TrimSpace(newContent)
	if content == "" {
		return nil
	}
	ci := findColumn(m.columns, columnID)
	if ci < 0 {
		return nil
	}
	ki := findCard(m.columns[ci].Cards, cardID)
	if ki < 0 {
		return nil
	}
	next := cloneColumns(m.columns)
	next[ci].Cards[ki].Content = content
	return m.commit(ctx, next)
}

// RelocateCard moves a card to the end of another column.
func (m *Machine) RelocateCard(ctx context.Context, cardID, sourceColumnID, targetColumnID string) error {
	if sourceColumnID == targetColumnID {
		return nil
	}
	si := findColumn(m.columns, sourceColumnID)
	ti := findColumn(m.columns, targetColumnID)
	if si < 0 || ti < 0 {
		return nil
	}
	ki := findCard(m.columns[si].Cards, cardID)
	if ki < 0 {
		return nil
	}
	next := cloneColumns(m.columns)
	card := next[si].Cards[ki]
	next[si].Cards = slices.Delete(next[si].Cards, ki, ki+1)
	next[ti].Cards = append(next[ti].Cards, card)
	return m.commit(ctx, next)
}

// Unmerge replaces a merged card with one card per history entry, appended
// to the same column in history order.
func (m *Machine) Unmerge(ctx context.Context, columnID, cardID string) error {
	ci := findColumn(m.columns, columnID)
	if ci < 0 {
		return nil
	}
	ki := findCard(m.columns[ci].Cards, cardID)
	if ki < 0 || !m.columns[ci].Cards[ki].IsMerged() {
		return nil
	}
	next := cloneColumns(m.columns)
	card := next[ci].Cards[ki]
	next[ci].Cards = slices.Delete(next[ci].Cards, ki, ki+1)
	next[ci].Cards = append(next[ci].Cards, split(card, m.newID)...)
	return m.commit(ctx, next)
}

// RequestDelete asks for confirmation before removing a card.
func (m *Machine) RequestDelete(columnID, cardID string) {
	m.pending = Pending{Kind: PendingDelete, ColumnID: columnID, CardID: cardID}
}

// ConfirmDelete removes the card named by the pending delete. With no pending
// delete it does nothing.
func (m *Machine) ConfirmDelete(ctx context.Context) error {
	if m.pending.Kind != PendingDelete {
		return nil
	}
	p := m.pending
	ci := findColumn(m.columns, p.ColumnID)
	ki := -1
	if ci >= 0 {
		ki = findCard(m.columns[ci].Cards, p.CardID)
	}
	if ki < 0 {
		m.pending = Pending{}
		return nil
	}
	next := cloneColumns(m.columns)
	next[ci].Cards = slices.Delete(next[ci].Cards, ki, ki+1)
	if err := m.commit(ctx, next); err != nil {
		return err
	}
	m.pending = Pending{}
	return nil
}

// RequestMerge asks for confirmation before merging source into target.
func (m *Machine) RequestMerge(sourceCardID, targetCardID string) {
	if sourceCardID == "" || targetCardID == "" || sourceCardID == targetCardID {
		return
	}
	m.pending = Pending{Kind: PendingMerge, SourceCardID: sourceCardID, TargetCardID: targetCardID}
}

// ConfirmMerge applies the pending merge. Both cards are looked up across all
// columns; the target keeps its place and identity, the source disappears.
func (m *Machine) ConfirmMerge(ctx context.Context) error {
	if m.pending.Kind != PendingMerge {
		return nil
	}
	p := m.pending
	sc, sk, sok := locateCard(m.columns, p.SourceCardID)
	tc, tk, tok := locateCard(m.columns, p.TargetCardID)
	if !sok || !tok {
		m.clearMerge()
		return nil
	}

	next := cloneColumns(m.columns)
	source := next[sc].Cards[sk]
	next[tc].Cards[tk] = Merge(next[tc].Cards[tk], source)
	next[sc].Cards = slices.Delete(next[sc].Cards, sk, sk+1)
	if err := m.commit(ctx, next); err != nil {
		return err
	}
	m.clearMerge()
	return nil
}

// CancelPending discards whatever confirmation is outstanding.
func (m *Machine) CancelPending() {
	m.clearMerge()
}

func (m *Machine) clearMerge() {
	m.pending = Pending{}
	m.mergeTarget = ""
}

// BeginDrag starts dragging a card out of its column. A card that is not in
// that column is ignored.
func (m *Machine) BeginDrag(cardID, sourceColumnID string) {
	ci := findColumn(m.columns, sourceColumnID)
	if ci < 0 || findCard(m.columns[ci].Cards, cardID) < 0 {
		return
	}
	m.drag = &Drag{CardID: cardID, SourceColumnID: sourceColumnID}
	m.mergeTarget = ""
}

// DragOverColumn records the column under the dragged card.
func (m *Machine) DragOverColumn(columnID string) {
	if m.drag == nil {
		return
	}
	m.drag.OverColumnID = columnID
}

// DragOverCard marks a card as the merge target while another card is dragged over it.
func (m *Machine) DragOverCard(cardID string) {
	if m.drag == nil || m.drag.CardID == cardID {
		return
	}
	m.mergeTarget = cardID
}

// DragLeaveCard clears the merge target.
func (m *Machine) DragLeaveCard() {
	m.mergeTarget = ""
}

// Drop ends the drag. Over a merge target it opens a merge confirmation,
// otherwise the card is relocated to targetColumnID.
func (m *Machine) Drop(ctx context.Context, targetColumnID string) error {
	if m.drag == nil {
		return nil
	}
	d := *m.drag
	m.drag = nil
	if m.mergeTarget != "" {
		m.RequestMerge(d.CardID, m.mergeTarget)
		return nil
	}
	return m.RelocateCard(ctx, d.CardID, d.SourceColumnID, targetColumnID)
}
