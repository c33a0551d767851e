package repository

import (
	"context"
	"sync"
	"time"
)

// MemoryDedupStore is the in-process fallback used when Redis is not
// configured or unreachable. Entries expire lazily on access.
type MemoryDedupStore struct {
	mu      sync.Mutex
	entries map[string]time.Time
}

func NewMemoryDedupStore() *MemoryDedupStore {
	return &MemoryDedupStore{entries: make(map[string]time.Time)}
}

func (m *MemoryDedupStore) MarkProcessed(ctx context.Context, eventID string, ttl time.Duration) (bool, error) {
	now := time.Now()

	m.mu.Lock()
	defer m.mu.Unlock()

	if expiresAt, ok := m.entries[eventID]; ok && now.Before(expiresAt) {
		return false, nil
	}

	m.entries[eventID] = now.Add(ttl)

	for id, expiresAt := range m.entries {
		if now.After(expiresAt) {
			delete(m.entries, id)
		}
	}
	return true, nil
}

func (m *MemoryDedupStore) Forget(ctx context.Context, eventID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, eventID)
	return nil
}

func (m *MemoryDedupStore) Close() error {
	return nil
}
