package history

import (
	"sync"
	"time"
)

// MemoryStore is an in-memory turn-record store, primarily for tests
// and for deployments that don't want a history file.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string][]Record // sessionID -> records in append order
	closed  bool
}

// Compile-time interface check.
var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string][]Record),
	}
}

// Append implements Store.
func (m *MemoryStore) Append(rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}

	rec.Sequence = len(m.records[rec.SessionID]) + 1
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}

	// Copy the snapshot to avoid retaining the caller's buffer.
	state := make([]byte, len(rec.State))
	copy(state, rec.State)
	rec.State = state

	m.records[rec.SessionID] = append(m.records[rec.SessionID], rec)
	return nil
}

// List implements Store.
func (m *MemoryStore) List(sessionID string) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}

	recs := m.records[sessionID]
	out := make([]Record, len(recs))
	copy(out, recs)
	return out, nil
}

// DeleteSession implements Store.
func (m *MemoryStore) DeleteSession(sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}

	delete(m.records, sessionID)
	return nil
}

// Close implements Store.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	m.records = nil
	return nil
}

// Len returns the total number of records across all sessions.
// Useful for testing.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	count := 0
	for _, recs := range m.records {
		count += len(recs)
	}
	return count
}
