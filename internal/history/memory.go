package history

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps the most recent entries in a bounded ring.
type MemoryStore struct {
	mu       sync.Mutex
	entries  []*Entry
	capacity int
	nextID   int64
}

// NewMemoryStore creates a MemoryStore holding at most capacity entries.
func NewMemoryStore(capacity int) *MemoryStore {
	if capacity <= 0 {
		capacity = MaxLimit
	}
	return &MemoryStore{capacity: capacity}
}

// Record implements Store.
func (s *MemoryStore) Record(ctx context.Context, entry *Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	entry.ID = s.nextID
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	stored := *entry
	s.entries = append(s.entries, &stored)
	if len(s.entries) > s.capacity {
		s.entries = s.entries[len(s.entries)-s.capacity:]
	}
	return nil
}

// Recent implements Store. Entries come back newest first.
func (s *MemoryStore) Recent(ctx context.Context, sessionID string, limit int) ([]*Entry, error) {
	limit = clampLimit(limit)

	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*Entry, 0, limit)
	for i := len(s.entries) - 1; i >= 0 && len(out) < limit; i-- {
		if s.entries[i].SessionID != sessionID {
			continue
		}
		e := *s.entries[i]
		out = append(out, &e)
	}
	return out, nil
}
