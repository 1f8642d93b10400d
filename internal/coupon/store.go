package coupon

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when no coupon matches the (store, code) pair.
	ErrNotFound = errors.New("coupon not found")
	// ErrLookupFailed wraps infrastructure failures during coupon reads so
	// callers can retry them separately from business rejections.
	ErrLookupFailed = errors.New("coupon lookup failed")
	// ErrRedeemFailed wraps infrastructure failures during redemption.
	ErrRedeemFailed = errors.New("coupon redemption failed")
	// ErrCodeTaken is returned when creating a coupon with a code already
	// used in the same store.
	ErrCodeTaken = errors.New("coupon code already exists for store")
)

// Store is the persistence collaborator for coupons. Redeem must increment
// used_count atomically with an increment-if-below-limit guard: a plain
// read-then-write is racy under concurrent redemptions of a limited coupon.
type Store interface {
	GetByCode(ctx context.Context, storeID uuid.UUID, code string) (Coupon, error)
	Create(ctx context.Context, c Coupon) (Coupon, error)
	ListByStore(ctx context.Context, storeID uuid.UUID) ([]Coupon, error)
	Deactivate(ctx context.Context, id uuid.UUID) error
	// Redeem records usage for an order exactly once. A second call with the
	// same order id is a no-op; exceeding the usage limit returns
	// ErrUsageLimitReached.
	Redeem(ctx context.Context, couponID, orderID uuid.UUID) error
}
