package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"story-engine/internal/models"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Compile-time check to ensure implementation satisfies the interface.
var _ KVStore = (*pgKVStore)(nil)

type pgKVStore struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewPgKVStore creates a Postgres-backed KVStore over the kv_entries table.
func NewPgKVStore(pool *pgxpool.Pool, logger *zap.Logger) KVStore {
	return &pgKVStore{
		pool:   pool,
		logger: logger.Named("PgKVStore"),
	}
}

const getEntryQuery = `
SELECT value
FROM kv_entries
WHERE key = $1`

const upsertEntryQuery = `
INSERT INTO kv_entries (key, value, updated_at)
VALUES ($1, $2, $3)
ON CONFLICT (key) DO UPDATE SET
    value = EXCLUDED.value,
    updated_at = EXCLUDED.updated_at`

const deleteEntryQuery = `
DELETE FROM kv_entries
WHERE key = $1`

const deleteEntriesQuery = `
DELETE FROM kv_entries
WHERE key = ANY($1)`

func (r *pgKVStore) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := pgxscan.Get(ctx, r.pool, &value, getEntryQuery, key)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug("Key not found in kv_entries", zap.String("key", key))
			return "", models.ErrKeyNotFound
		}
		r.logger.Error("Failed to get kv entry", zap.Error(err), zap.String("key", key))
		return "", fmt.Errorf("%w: get kv entry %s: %v", models.ErrStoreUnavailable, key, err)
	}
	return value, nil
}

func (r *pgKVStore) Set(ctx context.Context, key, value string) error {
	_, err := r.pool.Exec(ctx, upsertEntryQuery, key, value, time.Now().UTC())
	if err != nil {
		r.logger.Error("Failed to upsert kv entry", zap.Error(err), zap.String("key", key))
		return fmt.Errorf("%w: upsert kv entry %s: %v", models.ErrStoreUnavailable, key, err)
	}
	r.logger.Debug("Kv entry written", zap.String("key", key), zap.Int("valueBytes", len(value)))
	return nil
}

func (r *pgKVStore) Remove(ctx context.Context, key string) error {
	_, err := r.pool.Exec(ctx, deleteEntryQuery, key)
	if err != nil {
		r.logger.Error("Failed to delete kv entry", zap.Error(err), zap.String("key", key))
		return fmt.Errorf("%w: delete kv entry %s: %v", models.ErrStoreUnavailable, key, err)
	}
	return nil
}

func (r *pgKVStore) MultiRemove(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		r.logger.Warn("MultiRemove called with no keys")
		return nil
	}

	tag, err := r.pool.Exec(ctx, deleteEntriesQuery, keys)
	if err != nil {
		r.logger.Error("Failed to multi-delete kv entries", zap.Error(err), zap.Strings("keys", keys))
		return fmt.Errorf("%w: multi-delete kv entries: %v", models.ErrStoreUnavailable, err)
	}

	r.logger.Info("Kv entries deleted", zap.Strings("keys", keys), zap.Int64("deletedCount", tag.RowsAffected()))
	return nil
}
