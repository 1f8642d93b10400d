package order

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MemStore is an in-memory order store for tests and local development.
type MemStore struct {
	mu     sync.RWMutex
	orders map[uuid.UUID]Order
}

// NewMemStore builds an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{orders: map[uuid.UUID]Order{}}
}

// Create stores the order.
func (s *MemStore) Create(_ context.Context, o Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[o.ID] = o
	return nil
}

// Get returns a store-scoped order.
func (s *MemStore) Get(_ context.Context, storeID, id uuid.UUID) (Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orders[id]
	if !ok || o.StoreID != storeID {
		return Order{}, ErrNotFound
	}
	return o, nil
}

// SetStatus transitions an order guarded by its current state.
func (s *MemStore) SetStatus(_ context.Context, storeID, id uuid.UUID, from, to Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok || o.StoreID != storeID {
		return ErrNotFound
	}
	if o.Status != from {
		return ErrInvalidTransition
	}
	o.Status = to
	s.orders[id] = o
	return nil
}
