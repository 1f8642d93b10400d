package inventory

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	// ErrWriteFailed wraps collaborator append failures. The ledger gives no
	// automatic rollback; callers needing exactly-once reservations must
	// de-duplicate by reference before calling Reserve.
	ErrWriteFailed = errors.New("inventory write failed")
	// ErrQueryFailed wraps collaborator read failures.
	ErrQueryFailed = errors.New("inventory query failed")
)

// Filter narrows a movement query. When ProductID is set the variant filter
// applies as well: a nil VariantID matches only movements without a variant,
// never "any variant".
type Filter struct {
	StoreID   uuid.UUID
	ProductID *uuid.UUID
	VariantID *uuid.UUID
	Reference string
	Type      MovementType
}

// Store is the movement persistence collaborator. Append is assumed atomic
// per movement; no cross-movement transaction is required by the ledger.
type Store interface {
	Append(ctx context.Context, m Movement) (uuid.UUID, error)
	// Query returns matching movements ordered by CreatedAt descending.
	Query(ctx context.Context, f Filter) ([]Movement, error)
}

func matches(m Movement, f Filter) bool {
	if f.StoreID != uuid.Nil && m.StoreID != f.StoreID {
		return false
	}
	if f.ProductID != nil {
		if m.ProductID != *f.ProductID {
			return false
		}
		if !sameVariant(m.VariantID, f.VariantID) {
			return false
		}
	}
	if f.Reference != "" && m.Reference != f.Reference {
		return false
	}
	if f.Type != "" && m.Type != f.Type {
		return false
	}
	return true
}
