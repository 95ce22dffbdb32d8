package repository

import (
	"context"
	"sync"

	"story-engine/internal/models"
)

// Compile-time check to ensure implementation satisfies the interface.
var _ KVStore = (*memoryKVStore)(nil)

// memoryKVStore is a process-local KVStore. Used by tests and as a fallback
// backend when the engine runs without external storage; nothing survives a
// restart.
type memoryKVStore struct {
	mu    sync.RWMutex
	items map[string]string
}

// NewMemoryKVStore creates an empty in-memory KVStore.
func NewMemoryKVStore() KVStore {
	return &memoryKVStore{items: make(map[string]string)}
}

func (m *memoryKVStore) Get(_ context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	value, ok := m.items[key]
	if !ok {
		return "", models.ErrKeyNotFound
	}
	return value, nil
}

func (m *memoryKVStore) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] = value
	return nil
}

func (m *memoryKVStore) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, key)
	return nil
}

func (m *memoryKVStore) MultiRemove(_ context.Context, keys []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.items, key)
	}
	return nil
}
