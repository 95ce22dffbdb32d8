// Package service implements the durable game logic on top of the KV store:
// the progress ledger, the achievement rules, save slots, settings and the
// playback orchestration. Every user's data lives under its own key prefix;
// the logical key names and value shapes match the original client schema.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"story-engine/internal/models"
	"story-engine/internal/repository"
)

// userKey scopes a logical schema key to one user.
func userKey(userID, key string) string {
	return fmt.Sprintf("user:%s:%s", userID, key)
}

// loadJSON reads and unmarshals the value at the user-scoped key into out.
// A missing key leaves out untouched and reports found=false.
func loadJSON(ctx context.Context, store repository.KVStore, userID, key string, out any) (bool, error) {
	raw, err := store.Get(ctx, userKey(userID, key))
	if err != nil {
		if errors.Is(err, models.ErrKeyNotFound) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return false, fmt.Errorf("unmarshal %s: %w", key, err)
	}
	return true, nil
}

// storeJSON marshals v and writes it at the user-scoped key.
func storeJSON(ctx context.Context, store repository.KVStore, userID, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	return store.Set(ctx, userKey(userID, key), string(raw))
}
