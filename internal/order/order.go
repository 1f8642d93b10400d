// Package order persists placed orders with their fully-populated pricing
// breakdown and the generated payment artifact.
package order

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/lojinha-app/backend-lojinha/internal/pricing"
)

// Status is the order lifecycle state.
type Status string

const (
	StatusPendingPayment Status = "PENDING_PAYMENT"
	StatusPaid           Status = "PAID"
	StatusCancelled      Status = "CANCELLED"
)

var (
	// ErrNotFound is returned for unknown order ids.
	ErrNotFound = errors.New("order not found")
	// ErrWriteFailed wraps infrastructure failures while persisting orders.
	ErrWriteFailed = errors.New("order write failed")
	// ErrInvalidTransition is returned when a status change is not allowed
	// from the current state.
	ErrInvalidTransition = errors.New("invalid order status transition")
)

// Line is a persisted order line.
type Line struct {
	ProductID uuid.UUID
	VariantID *uuid.UUID
	Qty       int64
	UnitPrice int64
}

// Order is the persisted record. The breakdown is complete at creation; no
// component is ever left unset.
type Order struct {
	ID          uuid.UUID
	StoreID     uuid.UUID
	Status      Status
	Lines       []Line
	Breakdown   pricing.Summary
	CouponCode  string
	TxID        string
	PixPayload  string
	CustomerRef string
	CreatedAt   time.Time
}

// Store is the order persistence collaborator.
type Store interface {
	Create(ctx context.Context, o Order) error
	Get(ctx context.Context, storeID, id uuid.UUID) (Order, error)
	// SetStatus transitions the order. Implementations enforce that only
	// PENDING_PAYMENT orders can move to PAID or CANCELLED.
	SetStatus(ctx context.Context, storeID, id uuid.UUID, from, to Status) error
}
