// Package cart defines the immutable cart snapshot consumed by the discount
// and checkout flows. State is always passed in explicitly by the caller;
// nothing here reaches into session or request context.
package cart

import "github.com/google/uuid"

// Line is a single cart entry. Qty is always positive and UnitPrice is in
// centavos.
type Line struct {
	ProductID  uuid.UUID
	CategoryID *uuid.UUID
	VariantID  *uuid.UUID
	Qty        int64
	UnitPrice  int64
}

// Subtotal returns the line total.
func (l Line) Subtotal() int64 {
	if l.Qty <= 0 {
		return 0
	}
	return l.Qty * l.UnitPrice
}

// Snapshot is an ordered, read-only view of a cart at checkout time.
type Snapshot struct {
	Lines []Line
}

// Total sums all line totals.
func (s Snapshot) Total() int64 {
	var total int64
	for _, l := range s.Lines {
		total += l.Subtotal()
	}
	return total
}

// Empty reports whether the snapshot has no usable lines.
func (s Snapshot) Empty() bool {
	for _, l := range s.Lines {
		if l.Qty > 0 {
			return false
		}
	}
	return true
}
