package kanban_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retroboard/internal/kanban"
)

// memStore keeps encoded snapshots so every save goes through the codec.
type memStore struct {
	snaps   map[string][]byte
	saves   int
	loadErr error
	saveErr error
}

func newMemStore() *memStore {
	return &memStore{snaps: map[string][]byte{}}
}

func (s *memStore) Load(_ context.Context, boardID string) (kanban.Snapshot, error) {
	if s.loadErr != nil {
		return kanban.Snapshot{}, s.loadErr
	}
	data, ok := s.snaps[boardID]
	if !ok {
		return kanban.Snapshot{}, kanban.ErrSnapshotNotFound
	}
	return kanban.Decode(data)
}

func (s *memStore) Save(_ context.Context, boardID string, snap kanban.Snapshot) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	data, err := kanban.Encode(snap)
	if err != nil {
		return err
	}
	s.snaps[boardID] = data
	s.saves++
	return nil
}

var fixedNow = time.Date(2024, 3, 14, 9, 30, 0, 0, time.UTC)

func sequence() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

var alice = kanban.Author{ID: "u-alice", Name: "Alice"}
var bob = kanban.Author{ID: "u-bob", Name: "Bob"}

func openMachine(t *testing.T, store kanban.SnapshotStore, opts ...kanban.Option) *kanban.Machine {
	t.Helper()
	opts = append([]kanban.Option{
		kanban.WithClock(func() time.Time { return fixedNow }),
		kanban.WithIDGenerator(sequence()),
	}, opts...)
	m, err := kanban.Open(context.Background(), "board-1", store, opts...)
	require.NoError(t, err)
	return m
}

func columnNames(v kanban.View) []string {
	names := make([]string, len(v.Columns))
	for i, c := range v.Columns {
		names[i] = c.Name
	}
	return names
}

func cardContents(col kanban.Column) []string {
	out := make([]string, len(col.Cards))
	for i, c := range col.Cards {
		out[i] = c.Content
	}
	return out
}

func TestOpen_DefaultTemplatePersisted(t *testing.T) {
	store := newMemStore()
	m := openMachine(t, store)

	v := m.View()
	assert.Equal(t, []string{"Went Well", "To Improve", "Action Items"}, columnNames(v))
	for i, col := range v.Columns {
		assert.Equal(t, i+1, col.Order)
		assert.Empty(t, col.Cards)
	}
	assert.Equal(t, 1, store.saves)
	assert.Contains(t, store.snaps, "board-1")
}

func TestOpen_InitialColumns(t *testing.T) {
	store := newMemStore()
	initial := []kanban.Column{{ID: "c1", Name: "Start", Order: 1}, {ID: "c2", Name: "Stop", Order: 2}}
	m := openMachine(t, store, kanban.WithInitialColumns(initial))

	assert.Equal(t, []string{"Start", "Stop"}, columnNames(m.View()))
}

func TestOpen_CustomDefaultNames(t *testing.T) {
	m := openMachine(t, newMemStore(), kanban.WithDefaultColumns("Glad", "Sad"))
	assert.Equal(t, []string{"Glad", "Sad"}, columnNames(m.View()))
}

func TestOpen_ExistingSnapshotWins(t *testing.T) {
	store := newMemStore()
	first := openMachine(t, store)
	colID := first.View().Columns[0].ID
	require.NoError(t, first.AddCard(context.Background(), colID, "ship it", alice))

	second := openMachine(t, store, kanban.WithInitialColumns([]kanban.Column{{ID: "x", Name: "Ignored"}}))
	v := second.View()
	require.Len(t, v.Columns, 3)
	require.Len(t, v.Columns[0].Cards, 1)
	card := v.Columns[0].Cards[0]
	assert.Equal(t, "ship it", card.Content)
	assert.True(t, card.CreatedAt.Equal(fixedNow))
}

func TestOpen_CorruptSnapshotFallsBack(t *testing.T) {
	store := newMemStore()
	store.snaps["board-1"] = []byte("{not json")

	m := openMachine(t, store)
	assert.Equal(t, kanban.DefaultColumnNames, columnNames(m.View()))
}

func TestOpen_StoreErrorIsReturned(t *testing.T) {
	store := newMemStore()
	store.loadErr = errors.New("connection refused")

	_, err := kanban.Open(context.Background(), "board-1", store)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestOpen_DefaultSaveFailureIsNotFatal(t *testing.T) {
	store := newMemStore()
	store.saveErr = errors.New("disk full")

	m := openMachine(t, store)
	assert.Len(t, m.View().Columns, 3)
}

func TestAddColumn(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	m := openMachine(t, store)

	require.NoError(t, m.AddColumn(ctx, "   "))
	assert.Len(t, m.View().Columns, 3)
	assert.Equal(t, 1, store.saves)

	require.NoError(t, m.AddColumn(ctx, "Kudos"))
	v := m.View()
	require.Len(t, v.Columns, 4)
	assert.Equal(t, "Kudos", v.Columns[3].Name)
	assert.Equal(t, 4, v.Columns[3].Order)
	assert.Empty(t, v.Columns[3].Cards)
	assert.Equal(t, 2, store.saves)
}

func TestDeleteColumn(t *testing.T) {
	ctx := context.Background()
	m := openMachine(t, newMemStore())
	col := m.View().Columns[1]
	require.NoError(t, m.AddCard(ctx, col.ID, "flaky tests", alice))

	require.NoError(t, m.DeleteColumn(ctx, col.ID))
	v := m.View()
	assert.Equal(t, []string{"Went Well", "Action Items"}, columnNames(v))
	assert.Equal(t, 0, kanban.Snapshot{Columns: v.Columns}.CardCount())

	require.NoError(t, m.DeleteColumn(ctx, "missing"))
	assert.Len(t, m.View().Columns, 2)
}

func TestRenameColumn(t *testing.T) {
	ctx := context.Background()
	m := openMachine(t, newMemStore())
	colID := m.View().Columns[0].ID

	require.NoError(t, m.RenameColumn(ctx, colID, "  Wins  "))
	assert.Equal(t, "Wins", m.View().Columns[0].Name)

	require.NoError(t, m.RenameColumn(ctx, colID, " "))
	assert.Equal(t, "Wins", m.View().Columns[0].Name)

	require.NoError(t, m.RenameColumn(ctx, "missing", "Nope"))
	assert.Equal(t, kanban.DefaultColumnNames[1:], columnNames(m.View())[1:])
}

func TestAddCard(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	m := openMachine(t, store)
	colID := m.View().Columns[0].ID

	require.NoError(t, m.AddCard(ctx, colID, "  pairing helped  ", alice))
	require.NoError(t, m.AddCard(ctx, colID, "\t\n", alice))
	require.NoError(t, m.AddCard(ctx, "missing", "lost", alice))

	cards := m.View().Columns[0].Cards
	require.Len(t, cards, 1)
	assert.Equal(t, "  pairing helped  ", cards[0].Content)
	assert.Equal(t, alice.ID, cards[0].AuthorID)
	assert.Equal(t, alice.Name, cards[0].AuthorName)
	assert.Equal(t, fixedNow, cards[0].CreatedAt)
	assert.Empty(t, cards[0].MergedFrom)
	assert.NotEmpty(t, cards[0].ID)
	assert.Equal(t, 2, store.saves)
}

func TestEditCard(t *testing.T) {
	ctx := context.Background()
	m := openMachine(t, newMemStore())
	colID := m.View().Columns[0].ID
	require.NoError(t, m.AddCard(ctx, colID, "old", alice))
	before := m.View().Columns[0].Cards[0]

	require.NoError(t, m.EditCard(ctx, colID, before.ID, "  new text "))
	after := m.View().Columns[0].Cards[0]
	assert.Equal(t, "new text", after.Content)
	assert.Equal(t, before.ID, after.ID)
	assert.Equal(t, before.AuthorID, after.AuthorID)
	assert.Equal(t, before.CreatedAt, after.CreatedAt)

	require.NoError(t, m.EditCard(ctx, colID, before.ID, "   "))
	assert.Equal(t, "new text", m.View().Columns[0].Cards[0].Content)
}

func TestRelocateCard(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	m := openMachine(t, store)
	cols := m.View().Columns
	require.NoError(t, m.AddCard(ctx, cols[0].ID, "a", alice))
	require.NoError(t, m.AddCard(ctx, cols[1].ID, "b", alice))
	cardID := m.View().Columns[0].Cards[0].ID
	saves := store.saves

	require.NoError(t, m.RelocateCard(ctx, cardID, cols[0].ID, cols[0].ID))
	assert.Equal(t, saves, store.saves)

	require.NoError(t, m.RelocateCard(ctx, cardID, cols[0].ID, cols[1].ID))
	v := m.View()
	assert.Empty(t, v.Columns[0].Cards)
	assert.Equal(t, []string{"b", "a"}, cardContents(v.Columns[1]))
	assert.Equal(t, 2, kanban.Snapshot{Columns: v.Columns}.CardCount())
}

func TestDeleteCard_TwoPhase(t *testing.T) {
	ctx := context.Background()
	m := openMachine(t, newMemStore())
	colID := m.View().Columns[0].ID
	require.NoError(t, m.AddCard(ctx, colID, "remove me", alice))
	cardID := m.View().Columns[0].Cards[0].ID

	m.RequestDelete(colID, cardID)
	assert.Equal(t, kanban.PendingDelete, m.View().Pending.Kind)
	assert.Len(t, m.View().Columns[0].Cards, 1)

	m.CancelPending()
	assert.Equal(t, kanban.PendingNone, m.View().Pending.Kind)
	assert.Len(t, m.View().Columns[0].Cards, 1)

	m.RequestDelete(colID, cardID)
	require.NoError(t, m.ConfirmDelete(ctx))
	assert.Empty(t, m.View().Columns[0].Cards)
	assert.Equal(t, kanban.PendingNone, m.View().Pending.Kind)

	// nothing pending
	require.NoError(t, m.ConfirmDelete(ctx))
}

func TestMerge(t *testing.T) {
	ctx := context.Background()
	m := openMachine(t, newMemStore())
	cols := m.View().Columns
	require.NoError(t, m.AddCard(ctx, cols[0].ID, "slow CI", alice))
	require.NoError(t, m.AddCard(ctx, cols[1].ID, "builds take forever", bob))
	target := m.View().Columns[0].Cards[0]
	source := m.View().Columns[1].Cards[0]

	m.RequestMerge(source.ID, target.ID)
	require.NoError(t, m.ConfirmMerge(ctx))

	v := m.View()
	assert.Empty(t, v.Columns[1].Cards)
	require.Len(t, v.Columns[0].Cards, 1)
	merged := v.Columns[0].Cards[0]
	assert.Equal(t, target.ID, merged.ID)
	assert.Equal(t, alice.ID, merged.AuthorID)
	assert.Equal(t, "slow CI\n---\nbuilds take forever", merged.Content)
	require.Len(t, merged.MergedFrom, 2)
	assert.Equal(t, target.ID, merged.MergedFrom[0].ID)
	assert.Equal(t, source.ID, merged.MergedFrom[1].ID)
	assert.Equal(t, "Bob", merged.MergedFrom[1].AuthorName)
	assert.Equal(t, kanban.PendingNone, v.Pending.Kind)
}

func TestMerge_HistoryStaysFlat(t *testing.T) {
	ctx := context.Background()
	m := openMachine(t, newMemStore())
	colID := m.View().Columns[0].ID
	for _, s := range []string{"a", "b", "c", "d"} {
		require.NoError(t, m.AddCard(ctx, colID, s, alice))
	}
	cards := m.View().Columns[0].Cards

	m.RequestMerge(cards[1].ID, cards[0].ID)
	require.NoError(t, m.ConfirmMerge(ctx))
	m.RequestMerge(cards[3].ID, cards[2].ID)
	require.NoError(t, m.ConfirmMerge(ctx))
	m.RequestMerge(cards[2].ID, cards[0].ID)
	require.NoError(t, m.ConfirmMerge(ctx))

	v := m.View()
	require.Len(t, v.Columns[0].Cards, 1)
	merged := v.Columns[0].Cards[0]
	assert.Equal(t, "a\n---\nb\n---\nc\n---\nd", merged.Content)
	ids := make([]string, len(merged.MergedFrom))
	for i, o := range merged.MergedFrom {
		ids[i] = o.ID
	}
	assert.Equal(t, []string{cards[0].ID, cards[1].ID, cards[2].ID, cards[3].ID}, ids)
}

func TestMerge_SameCardIgnored(t *testing.T) {
	ctx := context.Background()
	m := openMachine(t, newMemStore())
	colID := m.View().Columns[0].ID
	require.NoError(t, m.AddCard(ctx, colID, "solo", alice))
	cardID := m.View().Columns[0].Cards[0].ID

	m.RequestMerge(cardID, cardID)
	assert.Equal(t, kanban.PendingNone, m.View().Pending.Kind)
}

func TestMerge_CancelLeavesCards(t *testing.T) {
	ctx := context.Background()
	m := openMachine(t, newMemStore())
	colID := m.View().Columns[0].ID
	require.NoError(t, m.AddCard(ctx, colID, "a", alice))
	require.NoError(t, m.AddCard(ctx, colID, "b", alice))
	cards := m.View().Columns[0].Cards
	before := m.Snapshot()

	m.RequestMerge(cards[1].ID, cards[0].ID)
	m.CancelPending()
	require.NoError(t, m.ConfirmMerge(ctx))

	assert.Empty(t, cmp.Diff(before, m.Snapshot()))
}

func TestUnmerge(t *testing.T) {
	ctx := context.Background()
	m := openMachine(t, newMemStore())
	cols := m.View().Columns
	require.NoError(t, m.AddCard(ctx, cols[0].ID, "keep", alice))
	require.NoError(t, m.AddCard(ctx, cols[0].ID, "one", alice))
	require.NoError(t, m.AddCard(ctx, cols[1].ID, "two", bob))
	one := m.View().Columns[0].Cards[1]
	two := m.View().Columns[1].Cards[0]

	m.RequestMerge(two.ID, one.ID)
	require.NoError(t, m.ConfirmMerge(ctx))
	require.NoError(t, m.Unmerge(ctx, cols[0].ID, one.ID))

	cards := m.View().Columns[0].Cards
	require.Len(t, cards, 3)
	assert.Equal(t, []string{"keep", "one", "two"}, cardContents(m.View().Columns[0]))
	for _, c := range cards[1:] {
		assert.Empty(t, c.MergedFrom)
		assert.NotEqual(t, one.ID, c.ID)
		assert.NotEqual(t, two.ID, c.ID)
	}
	assert.Equal(t, bob.ID, cards[2].AuthorID)

	// a plain card is left alone
	require.NoError(t, m.Unmerge(ctx, cols[0].ID, cards[0].ID))
	assert.Len(t, m.View().Columns[0].Cards, 3)
}

func TestDrag_DropRelocates(t *testing.T) {
	ctx := context.Background()
	m := openMachine(t, newMemStore())
	cols := m.View().Columns
	require.NoError(t, m.AddCard(ctx, cols[0].ID, "move me", alice))
	cardID := m.View().Columns[0].Cards[0].ID

	m.BeginDrag(cardID, cols[0].ID)
	m.DragOverColumn(cols[2].ID)
	v := m.View()
	require.NotNil(t, v.Dragging)
	assert.Equal(t, cols[2].ID, v.Dragging.OverColumnID)

	require.NoError(t, m.Drop(ctx, cols[2].ID))
	v = m.View()
	assert.Nil(t, v.Dragging)
	assert.Empty(t, v.Columns[0].Cards)
	assert.Equal(t, []string{"move me"}, cardContents(v.Columns[2]))
}

func TestDrag_DropOnCardRequestsMerge(t *testing.T) {
	ctx := context.Background()
	m := openMachine(t, newMemStore())
	cols := m.View().Columns
	require.NoError(t, m.AddCard(ctx, cols[0].ID, "dragged", alice))
	require.NoError(t, m.AddCard(ctx, cols[1].ID, "target", bob))
	dragged := m.View().Columns[0].Cards[0].ID
	target := m.View().Columns[1].Cards[0].ID

	m.BeginDrag(dragged, cols[0].ID)
	m.DragOverCard(dragged)
	assert.Empty(t, m.View().MergeTargetCardID)

	m.DragOverCard(target)
	assert.Equal(t, target, m.View().MergeTargetCardID)

	require.NoError(t, m.Drop(ctx, cols[1].ID))
	v := m.View()
	assert.Nil(t, v.Dragging)
	assert.Equal(t, kanban.Pending{Kind: kanban.PendingMerge, SourceCardID: dragged, TargetCardID: target}, v.Pending)
	assert.Len(t, v.Columns[0].Cards, 1, "no relocation before confirmation")

	require.NoError(t, m.ConfirmMerge(ctx))
	v = m.View()
	assert.Empty(t, v.MergeTargetCardID)
	assert.Empty(t, v.Columns[0].Cards)
	assert.Equal(t, []string{"target\n---\ndragged"}, cardContents(v.Columns[1]))
}

func TestDrag_LeaveClearsTarget(t *testing.T) {
	ctx := context.Background()
	m := openMachine(t, newMemStore())
	colID := m.View().Columns[0].ID
	require.NoError(t, m.AddCard(ctx, colID, "a", alice))
	require.NoError(t, m.AddCard(ctx, colID, "b", alice))
	cards := m.View().Columns[0].Cards

	m.BeginDrag(cards[0].ID, colID)
	m.DragOverCard(cards[1].ID)
	m.DragLeaveCard()
	assert.Empty(t, m.View().MergeTargetCardID)
	require.NotNil(t, m.View().Dragging)
}

func TestDrag_NoActiveDrag(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	m := openMachine(t, store)
	saves := store.saves

	m.DragOverCard("anything")
	assert.Empty(t, m.View().MergeTargetCardID)
	require.NoError(t, m.Drop(ctx, m.View().Columns[1].ID))
	assert.Equal(t, saves, store.saves)
}

func TestSaveFailureLeavesStateUnchanged(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	m := openMachine(t, store)
	before := m.Snapshot()

	store.saveErr = errors.New("timeout")
	err := m.AddColumn(ctx, "Retry later")
	require.Error(t, err)
	assert.ErrorIs(t, err, store.saveErr)
	assert.Empty(t, cmp.Diff(before, m.Snapshot()))
}

func TestSaveFailureKeepsPendingMerge(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	m := openMachine(t, store)
	colID := m.View().Columns[0].ID
	require.NoError(t, m.AddCard(ctx, colID, "a", alice))
	require.NoError(t, m.AddCard(ctx, colID, "b", alice))
	cards := m.View().Columns[0].Cards

	m.RequestMerge(cards[1].ID, cards[0].ID)
	store.saveErr = errors.New("timeout")
	require.Error(t, m.ConfirmMerge(ctx))
	assert.Equal(t, kanban.PendingMerge, m.View().Pending.Kind)
	assert.Len(t, m.View().Columns[0].Cards, 2)
}

func TestViewIsACopy(t *testing.T) {
	ctx := context.Background()
	m := openMachine(t, newMemStore())
	colID := m.View().Columns[0].ID
	require.NoError(t, m.AddCard(ctx, colID, "original", alice))

	v := m.View()
	v.Columns[0].Cards[0].Content = "tampered"
	v.Columns[0].Name = "tampered"

	assert.Equal(t, "original", m.View().Columns[0].Cards[0].Content)
	assert.Equal(t, "Went Well", m.View().Columns[0].Name)
}

func TestDefaultClock_MicrosecondUTC(t *testing.T) {
	ctx := context.Background()
	m, err := kanban.Open(ctx, "b1", newMemStore())
	require.NoError(t, err)
	col := m.Snapshot().Columns[0]

	require.NoError(t, m.AddCard(ctx, col.ID, "retro on time", alice))

	created := m.Snapshot().Columns[0].Cards[0].CreatedAt
	assert.Equal(t, time.UTC, created.Location())
	assert.True(t, created.Equal(created.Truncate(time.Microsecond)))
}
