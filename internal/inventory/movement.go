// Package inventory implements movement-sourced stock: an append-only
// ledger of stock movements whose fold is the current stock level. History
// is never rewritten; corrections are appended as compensating movements,
// which is what makes concurrent reservations safe without read-modify-write
// on a counter.
package inventory

import (
	"time"

	"github.com/google/uuid"
)

// MovementType discriminates how a movement affects stock. Quantity is
// always stored positive; the sign is carried by the type.
type MovementType string

const (
	TypeIn          MovementType = "in"
	TypeOut         MovementType = "out"
	TypeAdjustment  MovementType = "adjustment"
	TypeReservation MovementType = "reservation"
)

// Movement is one append-only ledger entry. Entries are never updated or
// deleted.
type Movement struct {
	ID        uuid.UUID
	StoreID   uuid.UUID
	ProductID uuid.UUID
	// VariantID nil means the base product without a variant, which is a
	// distinct bucket from any variant.
	VariantID *uuid.UUID
	Type      MovementType
	Qty       int64
	Reason    string
	Reference string
	CreatedAt time.Time
	CreatedBy string
}

// delta returns the signed stock effect of the movement.
func (m Movement) delta() int64 {
	switch m.Type {
	case TypeIn, TypeAdjustment:
		return m.Qty
	case TypeOut, TypeReservation:
		return -m.Qty
	default:
		return 0
	}
}

// Fold replays a movement history into the current stock level. Pure: the
// same history always folds to the same integer.
func Fold(movements []Movement) int64 {
	var stock int64
	for _, m := range movements {
		stock += m.delta()
	}
	return stock
}

func sameVariant(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
