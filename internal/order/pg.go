package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGStore is the Postgres-backed order store.
type PGStore struct {
	Pool *pgxpool.Pool
}

type storedLine struct {
	ProductID string  `json:"productId"`
	VariantID *string `json:"variantId,omitempty"`
	Qty       int64   `json:"qty"`
	UnitPrice int64   `json:"unitPrice"`
}

// Create inserts the order with its breakdown and payment artifact.
func (s PGStore) Create(ctx context.Context, o Order) error {
	lines, err := json.Marshal(encodeLines(o.Lines))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}
	_, err = s.Pool.Exec(ctx,
		`INSERT INTO orders
			(id, store_id, status, lines, subtotal, discount, shipping, free_shipping,
			 total, coupon_code, tx_id, pix_payload, customer_ref, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, COALESCE($14, now()))`,
		o.ID, o.StoreID, string(o.Status), lines,
		o.Breakdown.Subtotal, o.Breakdown.Discount, o.Breakdown.Shipping, o.Breakdown.FreeShipping,
		o.Breakdown.Total, o.CouponCode, o.TxID, o.PixPayload, o.CustomerRef, nullableTime(o))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}
	return nil
}

// Get loads a store-scoped order.
func (s PGStore) Get(ctx context.Context, storeID, id uuid.UUID) (Order, error) {
	row := s.Pool.QueryRow(ctx,
		`SELECT id, store_id, status, lines, subtotal, discount, shipping, free_shipping,
			total, coupon_code, tx_id, pix_payload, customer_ref, created_at
		 FROM orders WHERE store_id = $1 AND id = $2`,
		storeID, id)
	var (
		o      Order
		status string
		lines  []byte
	)
	err := row.Scan(&o.ID, &o.StoreID, &status, &lines,
		&o.Breakdown.Subtotal, &o.Breakdown.Discount, &o.Breakdown.Shipping, &o.Breakdown.FreeShipping,
		&o.Breakdown.Total, &o.CouponCode, &o.TxID, &o.PixPayload, &o.CustomerRef, &o.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Order{}, ErrNotFound
		}
		return Order{}, fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}
	o.Status = Status(status)
	o.Lines, err = decodeLines(lines)
	if err != nil {
		return Order{}, fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}
	return o, nil
}

// SetStatus transitions the order with a guard on the current state, so a
// concurrent transition loses cleanly instead of overwriting.
func (s PGStore) SetStatus(ctx context.Context, storeID, id uuid.UUID, from, to Status) error {
	tag, err := s.Pool.Exec(ctx,
		`UPDATE orders SET status = $4 WHERE store_id = $1 AND id = $2 AND status = $3`,
		storeID, id, string(from), string(to))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}
	if tag.RowsAffected() == 0 {
		if _, getErr := s.Get(ctx, storeID, id); errors.Is(getErr, ErrNotFound) {
			return ErrNotFound
		}
		return ErrInvalidTransition
	}
	return nil
}

func encodeLines(lines []Line) []storedLine {
	out := make([]storedLine, 0, len(lines))
	for _, l := range lines {
		sl := storedLine{ProductID: l.ProductID.String(), Qty: l.Qty, UnitPrice: l.UnitPrice}
		if l.VariantID != nil {
			v := l.VariantID.String()
			sl.VariantID = &v
		}
		out = append(out, sl)
	}
	return out
}

func decodeLines(raw []byte) ([]Line, error) {
	var stored []storedLine
	if err := json.Unmarshal(raw, &stored); err != nil {
		return nil, err
	}
	out := make([]Line, 0, len(stored))
	for _, sl := range stored {
		productID, err := uuid.Parse(sl.ProductID)
		if err != nil {
			return nil, err
		}
		line := Line{ProductID: productID, Qty: sl.Qty, UnitPrice: sl.UnitPrice}
		if sl.VariantID != nil {
			variantID, err := uuid.Parse(*sl.VariantID)
			if err != nil {
				return nil, err
			}
			line.VariantID = &variantID
		}
		out = append(out, line)
	}
	return out, nil
}

func nullableTime(o Order) any {
	if o.CreatedAt.IsZero() {
		return nil
	}
	return o.CreatedAt
}
