package cache

import (
	"sync"
	"time"
)

// memEntry holds a value and its optional expiry.
// hasExpiry=false means "never expires".
type memEntry struct {
	value     []byte
	expiresAt time.Time
	hasExpiry bool
}

// MemoryStore implements Store with a mutex-guarded map. Entries expire
// lazily on read. Used for tests and ephemeral runs; the precache set is
// small and fixed, so there is no eviction.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memEntry
	ttl     time.Duration
}

// NewMemory creates an in-memory store. A ttl of 0 means entries never expire.
func NewMemory(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memEntry),
		ttl:     ttl,
	}
}

// Get retrieves a cached entry if it exists and is not expired
func (m *MemoryStore) Get(key string) ([]byte, error) {
	m.mu.RLock()
	entry, ok := m.entries[key]
	m.mu.RUnlock()

	if !ok {
		return nil, nil
	}

	if entry.hasExpiry && time.Now().After(entry.expiresAt) {
		m.mu.Lock()
		delete(m.entries, key)
		m.mu.Unlock()
		return nil, nil
	}

	// Copy so callers cannot mutate the stored value
	value := make([]byte, len(entry.value))
	copy(value, entry.value)
	return value, nil
}

// Set stores an entry in the cache
func (m *MemoryStore) Set(key string, value []byte) error {
	entry := memEntry{value: append([]byte(nil), value...)}
	if m.ttl > 0 {
		entry.expiresAt = time.Now().Add(m.ttl)
		entry.hasExpiry = true
	}

	m.mu.Lock()
	m.entries[key] = entry
	m.mu.Unlock()
	return nil
}

// Delete removes an entry from the cache
func (m *MemoryStore) Delete(key string) error {
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()
	return nil
}

// Init is a no-op for the memory store
func (m *MemoryStore) Init() error {
	return nil
}

// Len returns the number of stored entries
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
