package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// OrderLine is the slice of an order the ledger needs to reserve stock.
type OrderLine struct {
	ProductID uuid.UUID
	VariantID *uuid.UUID
	Qty       int64
}

// Ledger exposes the stock operations on top of the movement store
// collaborator. All writes are appends; stock is always derived by folding.
type Ledger struct {
	Store Store
	Now   func() time.Time
}

// ReservationsFor is the pure transformation from an order to its
// reservation batch: one reservation movement per line, tagged with the
// order id as reference. Lines with non-positive quantity are skipped.
func ReservationsFor(storeID uuid.UUID, orderID string, lines []OrderLine, placedBy string, now time.Time) []Movement {
	out := make([]Movement, 0, len(lines))
	for _, line := range lines {
		if line.Qty <= 0 {
			continue
		}
		out = append(out, Movement{
			ID:        uuid.New(),
			StoreID:   storeID,
			ProductID: line.ProductID,
			VariantID: line.VariantID,
			Type:      TypeReservation,
			Qty:       line.Qty,
			Reason:    "order reservation",
			Reference: orderID,
			CreatedAt: now,
			CreatedBy: placedBy,
		})
	}
	return out
}

// Reserve appends one reservation movement per order line. Appends are
// independent; a failure mid-batch leaves earlier appends in place, so
// callers must de-duplicate by reference before retrying.
func (l *Ledger) Reserve(ctx context.Context, storeID uuid.UUID, orderID string, lines []OrderLine, placedBy string) ([]Movement, error) {
	if l == nil || l.Store == nil {
		return nil, errors.New("inventory ledger not configured")
	}
	batch := ReservationsFor(storeID, orderID, lines, placedBy, l.now())
	for _, m := range batch {
		if _, err := l.Store.Append(ctx, m); err != nil {
			return nil, wrapWrite(err)
		}
	}
	return batch, nil
}

// Release appends a compensating adjustment for every reservation of the
// order that has not been compensated yet. The original reservations are
// never edited or deleted. Calling Release twice is safe: the second call
// finds nothing left to compensate.
func (l *Ledger) Release(ctx context.Context, storeID uuid.UUID, orderID string, releasedBy string) ([]Movement, error) {
	if l == nil || l.Store == nil {
		return nil, errors.New("inventory ledger not configured")
	}
	history, err := l.Store.Query(ctx, Filter{StoreID: storeID, Reference: orderID})
	if err != nil {
		return nil, wrapQuery(err)
	}

	type bucket struct {
		variantID *uuid.UUID
		pending   int64
	}
	pending := map[string]*bucket{}
	for _, m := range history {
		key := m.ProductID.String()
		if m.VariantID != nil {
			key += "/" + m.VariantID.String()
		}
		b, ok := pending[key]
		if !ok {
			b = &bucket{variantID: m.VariantID}
			pending[key] = b
		}
		switch m.Type {
		case TypeReservation:
			b.pending += m.Qty
		case TypeAdjustment:
			b.pending -= m.Qty
		}
	}

	now := l.now()
	var released []Movement
	for _, m := range history {
		if m.Type != TypeReservation {
			continue
		}
		key := m.ProductID.String()
		if m.VariantID != nil {
			key += "/" + m.VariantID.String()
		}
		b := pending[key]
		if b == nil || b.pending <= 0 {
			continue
		}
		qty := m.Qty
		if qty > b.pending {
			qty = b.pending
		}
		b.pending -= qty
		compensation := Movement{
			ID:        uuid.New(),
			StoreID:   storeID,
			ProductID: m.ProductID,
			VariantID: m.VariantID,
			Type:      TypeAdjustment,
			Qty:       qty,
			Reason:    "reservation released",
			Reference: orderID,
			CreatedAt: now,
			CreatedBy: releasedBy,
		}
		if _, err := l.Store.Append(ctx, compensation); err != nil {
			return released, wrapWrite(err)
		}
		released = append(released, compensation)
	}
	return released, nil
}

// CurrentStock folds the movement history of a (product, variant) pair. A
// nil variantID addresses the base product without a variant, not "any
// variant". Freshness follows the collaborator's read consistency; treat the
// result as advisory at reservation time.
func (l *Ledger) CurrentStock(ctx context.Context, storeID, productID uuid.UUID, variantID *uuid.UUID) (int64, error) {
	if l == nil || l.Store == nil {
		return 0, errors.New("inventory ledger not configured")
	}
	movements, err := l.Store.Query(ctx, Filter{StoreID: storeID, ProductID: &productID, VariantID: variantID})
	if err != nil {
		return 0, wrapQuery(err)
	}
	return Fold(movements), nil
}

// RecordAdjustment appends a manual correction: an "in" movement for a
// non-negative delta, "out" otherwise, with magnitude |delta|.
func (l *Ledger) RecordAdjustment(ctx context.Context, storeID, productID uuid.UUID, variantID *uuid.UUID, delta int64, reason, userID string) (Movement, error) {
	if l == nil || l.Store == nil {
		return Movement{}, errors.New("inventory ledger not configured")
	}
	if delta == 0 {
		return Movement{}, errors.New("inventory: delta must be non-zero")
	}
	kind := TypeIn
	qty := delta
	if delta < 0 {
		kind = TypeOut
		qty = -delta
	}
	m := Movement{
		ID:        uuid.New(),
		StoreID:   storeID,
		ProductID: productID,
		VariantID: variantID,
		Type:      kind,
		Qty:       qty,
		Reason:    reason,
		CreatedAt: l.now(),
		CreatedBy: userID,
	}
	if _, err := l.Store.Append(ctx, m); err != nil {
		return Movement{}, wrapWrite(err)
	}
	return m, nil
}

func (l *Ledger) now() time.Time {
	if l != nil && l.Now != nil {
		return l.Now()
	}
	return time.Now()
}

func wrapWrite(err error) error {
	if errors.Is(err, ErrWriteFailed) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrWriteFailed, err)
}

func wrapQuery(err error) error {
	if errors.Is(err, ErrQueryFailed) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrQueryFailed, err)
}
