package coupon

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/lojinha-app/backend-lojinha/internal/cart"
)

// Preview describes the outcome of evaluating a coupon against a cart
// without mutating any state.
type Preview struct {
	Coupon       Coupon
	Discount     int64
	FreeShipping bool
	Description  string
}

// Service wraps the pure engine with the store collaborator: lookup before
// validation, atomic redemption after order placement.
type Service struct {
	Store Store
	Now   func() time.Time
}

// Preview canonicalizes the code, loads the coupon and runs validation plus
// discount calculation. Business rejections come back as the engine's
// sentinel errors; infrastructure failures are wrapped in ErrLookupFailed.
func (s *Service) Preview(ctx context.Context, storeID uuid.UUID, code string, snap cart.Snapshot) (Preview, error) {
	if s == nil || s.Store == nil {
		return Preview{}, errors.New("coupon service not configured")
	}
	canonical := CanonicalCode(code)
	if canonical == "" {
		return Preview{}, ErrNotFound
	}
	c, err := s.Store.GetByCode(ctx, storeID, canonical)
	if err != nil {
		return Preview{}, err
	}
	total := snap.Total()
	if err := Validate(c, snap, total, s.now()); err != nil {
		return Preview{}, err
	}
	return Preview{
		Coupon:       c,
		Discount:     CalculateDiscount(c, total),
		FreeShipping: c.Type == TypeShipping,
		Description:  Describe(c),
	}, nil
}

// Redeem settles coupon usage for a placed order. Idempotent per order.
func (s *Service) Redeem(ctx context.Context, couponID, orderID uuid.UUID) error {
	if s == nil || s.Store == nil {
		return errors.New("coupon service not configured")
	}
	return s.Store.Redeem(ctx, couponID, orderID)
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}
