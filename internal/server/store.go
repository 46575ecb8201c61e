package server

import (
	"context"
	"fmt"

	"retroboard/internal/config"
	"retroboard/internal/kanban"
	"retroboard/internal/repository"
	"retroboard/internal/snapshot"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// OpenSnapshotStore picks the snapshot backend named by cfg.SnapshotStore.
// The returned close func is nil when there is nothing to release.
func OpenSnapshotStore(ctx context.Context, cfg *config.Config, db *gorm.DB, logger *zap.Logger) (kanban.SnapshotStore, func() error, error) {
	switch cfg.SnapshotStore {
	case config.StorePostgres:
		if db == nil {
			return nil, nil, fmt.Errorf("postgres snapshot store needs a database connection")
		}
		return repository.NewSnapshotRepository(db), nil, nil

	case config.StoreRedis:
		store := snapshot.NewRedisStore(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := store.Ping(ctx); err != nil {
			_ = store.Close()
			return nil, nil, fmt.Errorf("failed to reach Redis at %s: %w", cfg.RedisAddr, err)
		}
		return store, store.Close, nil

	case config.StoreSQLite:
		store, err := snapshot.OpenSQLite(ctx, cfg.SQLitePath, logger)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown snapshot store %q", cfg.SnapshotStore)
	}
}
