package kanban

import (
	"context"
	"errors"
)

var (
	// ErrSnapshotNotFound is returned by a SnapshotStore when nothing was saved for a board
	ErrSnapshotNotFound = errors.New("snapshot not found")

	// ErrCorruptSnapshot is wrapped by a SnapshotStore when stored data cannot be decoded
	ErrCorruptSnapshot = errors.New("corrupt snapshot")

	// ErrUnknownIntent is returned when an intent cannot be dispatched or decoded
	ErrUnknownIntent = errors.New("unknown intent")
)

// SnapshotStore persists whole-board snapshots keyed by board identifier.
// Save is last-write-wins and never partial.
type SnapshotStore interface {
	Load(ctx context.Context, boardID string) (Snapshot, error)
	Save(ctx context.Context, boardID string, snapshot Snapshot) error
}
