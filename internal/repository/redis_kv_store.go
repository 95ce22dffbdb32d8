package repository

import (
	"context"
	"fmt"

	"story-engine/internal/models"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Compile-time check to ensure redisKVStore implements KVStore
var _ KVStore = (*redisKVStore)(nil)

type redisKVStore struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisKVStore creates a new Redis-backed KVStore.
func NewRedisKVStore(client *redis.Client, logger *zap.Logger) KVStore {
	return &redisKVStore{
		client: client,
		logger: logger.Named("RedisKVStore"),
	}
}

func (r *redisKVStore) Get(ctx context.Context, key string) (string, error) {
	value, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			r.logger.Debug("Key not found in Redis", zap.String("key", key))
			return "", models.ErrKeyNotFound
		}
		r.logger.Error("Failed to get key from redis", zap.Error(err), zap.String("key", key))
		return "", fmt.Errorf("%w: get key %s from redis: %v", models.ErrStoreUnavailable, key, err)
	}
	return value, nil
}

func (r *redisKVStore) Set(ctx context.Context, key, value string) error {
	// No TTL: progress data lives until an explicit remove or reset.
	if err := r.client.Set(ctx, key, value, 0).Err(); err != nil {
		r.logger.Error("Failed to set key in redis", zap.Error(err), zap.String("key", key))
		return fmt.Errorf("%w: set key %s in redis: %v", models.ErrStoreUnavailable, key, err)
	}
	r.logger.Debug("Key written to Redis", zap.String("key", key), zap.Int("valueBytes", len(value)))
	return nil
}

func (r *redisKVStore) Remove(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, key).Err(); err != nil {
		r.logger.Error("Failed to delete key from redis", zap.Error(err), zap.String("key", key))
		return fmt.Errorf("%w: delete key %s from redis: %v", models.ErrStoreUnavailable, key, err)
	}
	return nil
}

func (r *redisKVStore) MultiRemove(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		r.logger.Warn("MultiRemove called with no keys")
		return nil
	}

	// Single DEL with all keys; one round trip, matching the contract.
	deleted, err := r.client.Del(ctx, keys...).Result()
	if err != nil {
		r.logger.Error("Failed to multi-delete keys from redis", zap.Error(err), zap.Strings("keys", keys))
		return fmt.Errorf("%w: multi-delete keys from redis: %v", models.ErrStoreUnavailable, err)
	}

	r.logger.Info("Keys deleted from Redis", zap.Strings("keys", keys), zap.Int64("deletedCount", deleted))
	return nil
}
