package inventory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemStore is an in-memory movement store used by tests and local
// development. Append-only, guarded by a mutex.
type MemStore struct {
	mu        sync.RWMutex
	movements []Movement
	now       func() time.Time
}

// NewMemStore builds an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{now: time.Now}
}

// WithClock overrides the timestamp source, for deterministic tests.
func (s *MemStore) WithClock(now func() time.Time) *MemStore {
	s.now = now
	return s
}

// Append stores the movement, assigning id and timestamp when absent.
func (s *MemStore) Append(_ context.Context, m Movement) (uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = s.now()
	}
	s.movements = append(s.movements, m)
	return m.ID, nil
}

// Query filters the stored movements, newest first.
func (s *MemStore) Query(_ context.Context, f Filter) ([]Movement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Movement
	for _, m := range s.movements {
		if matches(m, f) {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// Len reports how many movements were appended, for test assertions.
func (s *MemStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.movements)
}
