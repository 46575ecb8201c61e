package kanban_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retroboard/internal/kanban"
)

func sampleSnapshot() kanban.Snapshot {
	t0 := time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC)
	return kanban.Snapshot{Columns: []kanban.Column{
		{ID: "c1", Name: "Went Well", Order: 1, Cards: []kanban.Card{
			{ID: "k1", Content: "demo went smoothly", AuthorID: "u1", AuthorName: "Alice", CreatedAt: t0},
			{
				ID: "k2", Content: "a\n---\nb", AuthorID: "u2", AuthorName: "Bob", CreatedAt: t0.Add(time.Minute),
				MergedFrom: []kanban.Original{
					{ID: "k2", Content: "a", AuthorID: "u2", AuthorName: "Bob", CreatedAt: t0.Add(time.Minute)},
					{ID: "k3", Content: "b", AuthorID: "u1", AuthorName: "Alice", CreatedAt: t0.Add(2 * time.Minute)},
				},
			},
		}},
		{ID: "c2", Name: "To Improve", Order: 2, Cards: []kanban.Card{}},
	}}
}

func TestCodec_RoundTrip(t *testing.T) {
	want := sampleSnapshot()

	data, err := kanban.Encode(want)
	require.NoError(t, err)
	got, err := kanban.Decode(data)
	require.NoError(t, err)

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestCodec_StorageShape(t *testing.T) {
	data, err := kanban.Encode(sampleSnapshot())
	require.NoError(t, err)

	s := string(data)
	assert.Contains(t, s, `"authorId":"u1"`)
	assert.Contains(t, s, `"authorName":"Alice"`)
	assert.Contains(t, s, `"createdAt":"2024-01-02T10:00:00Z"`)
	assert.Contains(t, s, `"mergedFrom":[`)
	assert.Contains(t, s, `"order":2`)
}

func TestCodec_LegacyNestedHistoryIsFlattened(t *testing.T) {
	legacy := `[{"id":"c1","name":"Went Well","order":1,"cards":[
		{"id":"m","content":"x\n---\ny\n---\nz","authorId":"u1","authorName":"A","createdAt":"2024-01-01T00:00:00.000Z",
		 "mergedFrom":[
			{"id":"x","content":"x","authorId":"u1","authorName":"A","createdAt":"2024-01-01T00:00:00.000Z",
			 "mergedFrom":[
				{"id":"x","content":"x","authorId":"u1","authorName":"A","createdAt":"2024-01-01T00:00:00.000Z"},
				{"content":"y","authorId":"u2","authorName":"B","createdAt":"2024-01-01T00:01:00.000Z"}
			 ]},
			{"id":"z","content":"z","authorId":"u3","authorName":"C","createdAt":"2024-01-01T00:02:00.000Z"}
		 ]}
	]}]`

	snap, err := kanban.Decode([]byte(legacy))
	require.NoError(t, err)

	history := snap.Columns[0].Cards[0].MergedFrom
	require.Len(t, history, 3)
	assert.Equal(t, "x", history[0].Content)
	assert.Equal(t, "y", history[1].Content)
	assert.NotEmpty(t, history[1].ID, "missing ids are generated")
	assert.Equal(t, "z", history[2].Content)
	assert.Equal(t, "C", history[2].AuthorName)
}

func TestCodec_CorruptInput(t *testing.T) {
	_, err := kanban.Decode([]byte(`{"columns": 3}`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, kanban.ErrCorruptSnapshot))
}

func TestCodec_NullCards(t *testing.T) {
	snap, err := kanban.Decode([]byte(`[{"id":"c1","name":"Empty","order":1,"cards":null}]`))
	require.NoError(t, err)
	assert.NotNil(t, snap.Columns[0].Cards)
	assert.Empty(t, snap.Columns[0].Cards)
}

func TestHistory_RoundTrip(t *testing.T) {
	want := sampleSnapshot().Columns[0].Cards[1].MergedFrom

	data, err := kanban.EncodeHistory(want)
	require.NoError(t, err)
	got, err := kanban.DecodeHistory(data)
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(want, got))

	empty, err := kanban.EncodeHistory(nil)
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(empty))
}

func TestFlatten(t *testing.T) {
	plain := kanban.Card{ID: "p", Content: "plain", AuthorID: "u1"}
	leaves := kanban.Flatten(plain)
	require.Len(t, leaves, 1)
	assert.Equal(t, "p", leaves[0].ID)

	merged := kanban.Merge(plain, kanban.Card{ID: "q", Content: "other"})
	assert.Equal(t, "p", merged.ID)
	assert.Len(t, kanban.Flatten(merged), 2)
}

func TestDecodeIntent(t *testing.T) {
	in, err := kanban.DecodeIntent([]byte(`{"type":"add_card","column_id":"c1","content":"hi"}`), alice)
	require.NoError(t, err)
	assert.Equal(t, kanban.AddCard{ColumnID: "c1", Content: "hi", Author: alice}, in)

	in, err = kanban.DecodeIntent([]byte(`{"type":"request_merge","source_card_id":"a","target_card_id":"b"}`), alice)
	require.NoError(t, err)
	assert.Equal(t, kanban.RequestMerge{SourceCardID: "a", TargetCardID: "b"}, in)

	_, err = kanban.DecodeIntent([]byte(`{"type":"launch_rocket"}`), alice)
	assert.ErrorIs(t, err, kanban.ErrUnknownIntent)

	_, err = kanban.DecodeIntent([]byte(`not json`), alice)
	assert.Error(t, err)
}

type bogusIntent struct{}

func (bogusIntent) Type() string { return "bogus" }

func TestDispatch(t *testing.T) {
	ctx := context.Background()
	m := openMachine(t, newMemStore())
	colID := m.View().Columns[0].ID

	require.NoError(t, m.Dispatch(ctx, kanban.AddCard{ColumnID: colID, Content: "via dispatch", Author: bob}))
	require.NoError(t, m.Dispatch(ctx, kanban.AddColumn{Name: "Shoutouts"}))
	require.NoError(t, m.Dispatch(ctx, kanban.RenameColumn{ColumnID: colID, Name: "Good"}))

	v := m.View()
	assert.Equal(t, "Good", v.Columns[0].Name)
	assert.Equal(t, "Bob", v.Columns[0].Cards[0].AuthorName)
	assert.Len(t, v.Columns, 4)

	cardID := v.Columns[0].Cards[0].ID
	require.NoError(t, m.Dispatch(ctx, kanban.RequestDelete{ColumnID: colID, CardID: cardID}))
	require.NoError(t, m.Dispatch(ctx, kanban.ConfirmDelete{}))
	assert.Empty(t, m.View().Columns[0].Cards)

	err := m.Dispatch(ctx, bogusIntent{})
	assert.ErrorIs(t, err, kanban.ErrUnknownIntent)
}
