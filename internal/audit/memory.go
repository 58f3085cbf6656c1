package audit

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-memory audit log for tests and database-less runs.
// It honors the same id and ordering guarantees as the Postgres store.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[int64]Entry
	nextID  int64
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[int64]Entry)}
}

// Append assigns the next id under the lock, so concurrent appends never
// observe a duplicate or skipped id.
func (s *MemoryStore) Append(ctx context.Context, entry *Entry) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	entry.ID = s.nextID
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	s.entries[entry.ID] = *entry
	return entry.ID, nil
}

// ListByUser returns the user's entries newest-first, truncated to limit.
func (s *MemoryStore) ListByUser(ctx context.Context, userID string, limit int) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]Entry, 0)
	for _, e := range s.entries {
		if e.UserID == userID {
			matched = append(matched, e)
		}
	}
	// Ids are assigned in insertion order, so sorting by id descending gives
	// newest-first.
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID > matched[j].ID })
	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

// DeleteByID removes one entry, reporting whether it existed.
func (s *MemoryStore) DeleteByID(ctx context.Context, id int64) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[id]; !ok {
		return false, nil
	}
	delete(s.entries, id)
	return true, nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error {
	return nil
}
