package coupon_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/lojinha-app/backend-lojinha/internal/cart"
	"github.com/lojinha-app/backend-lojinha/internal/coupon"
)

type fakeStore struct {
	coupons   map[string]coupon.Coupon
	redeemed  map[uuid.UUID]uuid.UUID
	lookupErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{coupons: map[string]coupon.Coupon{}, redeemed: map[uuid.UUID]uuid.UUID{}}
}

func (f *fakeStore) GetByCode(_ context.Context, storeID uuid.UUID, code string) (coupon.Coupon, error) {
	if f.lookupErr != nil {
		return coupon.Coupon{}, f.lookupErr
	}
	c, ok := f.coupons[storeID.String()+"/"+code]
	if !ok {
		return coupon.Coupon{}, coupon.ErrNotFound
	}
	return c, nil
}

func (f *fakeStore) Create(_ context.Context, c coupon.Coupon) (coupon.Coupon, error) {
	f.coupons[c.StoreID.String()+"/"+c.Code] = c
	return c, nil
}

func (f *fakeStore) ListByStore(context.Context, uuid.UUID) ([]coupon.Coupon, error) {
	return nil, nil
}

func (f *fakeStore) Deactivate(context.Context, uuid.UUID) error { return nil }

func (f *fakeStore) Redeem(_ context.Context, couponID, orderID uuid.UUID) error {
	if existing, ok := f.redeemed[orderID]; ok && existing == couponID {
		return nil
	}
	f.redeemed[orderID] = couponID
	return nil
}

func fixedClock() time.Time {
	return time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
}

func TestPreviewMinimumOrderScenario(t *testing.T) {
	t.Parallel()

	storeID := uuid.New()
	minOrder := int64(5000)
	store := newFakeStore()
	_, err := store.Create(context.Background(), coupon.Coupon{
		ID:            uuid.New(),
		StoreID:       storeID,
		Code:          "DEZ",
		Type:          coupon.TypePercentage,
		Value:         10,
		MinOrderValue: &minOrder,
		ValidFrom:     fixedClock().Add(-time.Hour),
		ValidUntil:    fixedClock().Add(time.Hour),
		Active:        true,
	})
	require.NoError(t, err)

	svc := &coupon.Service{Store: store, Now: fixedClock}

	small := cart.Snapshot{Lines: []cart.Line{{ProductID: uuid.New(), Qty: 1, UnitPrice: 4000}}}
	_, err = svc.Preview(context.Background(), storeID, "dez", small)
	require.ErrorIs(t, err, coupon.ErrBelowMinimum)

	big := cart.Snapshot{Lines: []cart.Line{{ProductID: uuid.New(), Qty: 1, UnitPrice: 10_000}}}
	preview, err := svc.Preview(context.Background(), storeID, "dez", big)
	require.NoError(t, err)
	require.Equal(t, int64(1000), preview.Discount)
	require.False(t, preview.FreeShipping)
}

func TestPreviewCanonicalizesCode(t *testing.T) {
	t.Parallel()

	storeID := uuid.New()
	store := newFakeStore()
	_, err := store.Create(context.Background(), coupon.Coupon{
		ID:         uuid.New(),
		StoreID:    storeID,
		Code:       "FRETEGRATIS",
		Type:       coupon.TypeShipping,
		ValidFrom:  fixedClock().Add(-time.Hour),
		ValidUntil: fixedClock().Add(time.Hour),
		Active:     true,
	})
	require.NoError(t, err)

	svc := &coupon.Service{Store: store, Now: fixedClock}
	snap := cart.Snapshot{Lines: []cart.Line{{ProductID: uuid.New(), Qty: 2, UnitPrice: 2500}}}

	preview, err := svc.Preview(context.Background(), storeID, "  fretegratis ", snap)
	require.NoError(t, err)
	require.True(t, preview.FreeShipping)
	require.Zero(t, preview.Discount)
}

func TestPreviewUnknownCode(t *testing.T) {
	t.Parallel()

	svc := &coupon.Service{Store: newFakeStore(), Now: fixedClock}
	snap := cart.Snapshot{Lines: []cart.Line{{ProductID: uuid.New(), Qty: 1, UnitPrice: 100}}}
	_, err := svc.Preview(context.Background(), uuid.New(), "NOPE", snap)
	require.ErrorIs(t, err, coupon.ErrNotFound)

	_, err = svc.Preview(context.Background(), uuid.New(), "   ", snap)
	require.ErrorIs(t, err, coupon.ErrNotFound)
}

func TestPreviewSurfacesLookupFailures(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	store.lookupErr = errors.Join(coupon.ErrLookupFailed, errors.New("connection refused"))
	svc := &coupon.Service{Store: store, Now: fixedClock}
	snap := cart.Snapshot{Lines: []cart.Line{{ProductID: uuid.New(), Qty: 1, UnitPrice: 100}}}

	_, err := svc.Preview(context.Background(), uuid.New(), "ANY", snap)
	require.ErrorIs(t, err, coupon.ErrLookupFailed)
}

func TestRedeemIdempotentPerOrder(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	svc := &coupon.Service{Store: store, Now: fixedClock}
	couponID, orderID := uuid.New(), uuid.New()

	require.NoError(t, svc.Redeem(context.Background(), couponID, orderID))
	require.NoError(t, svc.Redeem(context.Background(), couponID, orderID))
	require.Len(t, store.redeemed, 1)
}
