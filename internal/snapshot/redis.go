// Package snapshot contains board snapshot stores that keep the encoded
// column/card tree as a single value.
package snapshot

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"retroboard/internal/kanban"
)

const redisKeyPrefix = "retro:board:"

// RedisStore keeps one JSON document per board under retro:board:<id>.
// It is safe for concurrent use.
type RedisStore struct {
	rdb *redis.Client
}

// NewRedisStore connects to Redis with the given options.
func NewRedisStore(opts *redis.Options) *RedisStore {
	return &RedisStore{rdb: redis.NewClient(opts)}
}

// RedisKey returns the key holding a board's snapshot.
func RedisKey(boardID string) string {
	return redisKeyPrefix + boardID
}

func (s *RedisStore) Load(ctx context.Context, boardID string) (kanban.Snapshot, error) {
	data, err := s.rdb.Get(ctx, RedisKey(boardID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return kanban.Snapshot{}, kanban.ErrSnapshotNotFound
	}
	if err != nil {
		return kanban.Snapshot{}, fmt.Errorf("failed to read snapshot from Redis: %w", err)
	}
	return kanban.Decode(data)
}

func (s *RedisStore) Save(ctx context.Context, boardID string, snap kanban.Snapshot) error {
	data, err := kanban.Encode(snap)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	if err := s.rdb.Set(ctx, RedisKey(boardID), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to write snapshot to Redis: %w", err)
	}
	return nil
}

// Ping verifies Redis connectivity.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.rdb.Close()
}
