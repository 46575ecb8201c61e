package snapshot

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"retroboard/internal/kanban"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS board_snapshots (
	board_id   TEXT PRIMARY KEY,
	data       TEXT NOT NULL,
	updated_at DATETIME NOT NULL
)`

// SQLiteStore keeps snapshots in a local SQLite file. Meant for single-node
// and development setups.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database at path and ensures the
// board_snapshots table exists. Use ":memory:" for an ephemeral store.
func OpenSQLite(ctx context.Context, path string, logger *zap.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, stmt := range []string{"PRAGMA busy_timeout = 5000", sqliteSchema} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			if closeErr := db.Close(); closeErr != nil {
				logger.Error("error closing db", zap.Error(closeErr))
			}
			return nil, fmt.Errorf("failed to prepare sqlite store: %w", err)
		}
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Load(ctx context.Context, boardID string) (kanban.Snapshot, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM board_snapshots WHERE board_id = ?`, boardID,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return kanban.Snapshot{}, kanban.ErrSnapshotNotFound
	}
	if err != nil {
		return kanban.Snapshot{}, fmt.Errorf("failed to read snapshot: %w", err)
	}
	return kanban.Decode([]byte(data))
}

func (s *SQLiteStore) Save(ctx context.Context, boardID string, snap kanban.Snapshot) error {
	data, err := kanban.Encode(snap)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO board_snapshots (board_id, data, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(board_id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		boardID, string(data), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
