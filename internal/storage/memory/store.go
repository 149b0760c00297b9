package memory

import (
	"context" // request-scoped context, unused by the in-memory backend
	"sync"    // guards the records map

	interfaces "github.com/sheikh-saqib/goldpayments-ledger/internal/interfaces"
	"github.com/sheikh-saqib/goldpayments-ledger/internal/storage"
)

// MemoryKVStore is an in-memory implementation of interfaces.KVStore.
// Values are copied on the way in and out so callers can't alias stored bytes.
type MemoryKVStore struct {
	mu      sync.Mutex        // protects records
	records map[string][]byte // key -> raw document
}

// NewMemoryKVStore creates and returns an empty MemoryKVStore
func NewMemoryKVStore() *MemoryKVStore {
	return &MemoryKVStore{
		records: make(map[string][]byte),
	}
}

// Get returns a copy of the value stored under key, or storage.ErrNotFound.
func (m *MemoryKVStore) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	v, ok := m.records[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	copied := make([]byte, len(v))
	copy(copied, v)
	return copied, nil
}

// Set stores a copy of value under key. Always succeeds in memory.
func (m *MemoryKVStore) Set(ctx context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	copied := make([]byte, len(value))
	copy(copied, value)
	m.records[key] = copied
	return nil
}

// Delete drops key. Used to simulate a cleared or partially cleared store.
func (m *MemoryKVStore) Delete(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, key)
}

// Compile-time check: ensure MemoryKVStore implements KVStore interface
var _ interfaces.KVStore = (*MemoryKVStore)(nil)
