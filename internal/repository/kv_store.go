package repository

import "context"

// KVStore is the narrow contract the engine has against durable storage:
// string keys to string (usually JSON-serialized) values, durable across
// process restarts. No atomicity is guaranteed across keys; callers do
// read-modify-write on whole values.
//
//go:generate mockery --name KVStore --output ./mocks --outpkg mocks --case=underscore
type KVStore interface {
	// Get returns the value stored under key.
	// Returns models.ErrKeyNotFound if the key is absent.
	Get(ctx context.Context, key string) (string, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error

	// Remove deletes key. Removing an absent key is not an error.
	Remove(ctx context.Context, key string) error

	// MultiRemove deletes all given keys in a single round trip where the
	// backend allows it. Absent keys are skipped silently.
	MultiRemove(ctx context.Context, keys []string) error
}
