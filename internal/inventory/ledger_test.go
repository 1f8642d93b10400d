package inventory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/lojinha-app/backend-lojinha/internal/inventory"
)

func fixedClock() time.Time {
	return time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
}

func newLedger() (*inventory.Ledger, *inventory.MemStore) {
	store := inventory.NewMemStore().WithClock(fixedClock)
	return &inventory.Ledger{Store: store, Now: fixedClock}, store
}

func TestFoldSignsByType(t *testing.T) {
	t.Parallel()

	productID := uuid.New()
	history := []inventory.Movement{
		{ProductID: productID, Type: inventory.TypeIn, Qty: 10},
		{ProductID: productID, Type: inventory.TypeOut, Qty: 3},
		{ProductID: productID, Type: inventory.TypeReservation, Qty: 2},
		{ProductID: productID, Type: inventory.TypeAdjustment, Qty: 1},
	}
	require.Equal(t, int64(6), inventory.Fold(history))
}

func TestFoldIdempotentUnderReplay(t *testing.T) {
	t.Parallel()

	history := []inventory.Movement{
		{Type: inventory.TypeIn, Qty: 7},
		{Type: inventory.TypeReservation, Qty: 4},
		{Type: inventory.TypeAdjustment, Qty: 4},
	}
	require.Equal(t, inventory.Fold(history), inventory.Fold(history))
}

func TestReserveEmitsOneMovementPerLine(t *testing.T) {
	t.Parallel()

	ledger, store := newLedger()
	storeID := uuid.New()
	variant := uuid.New()
	lines := []inventory.OrderLine{
		{ProductID: uuid.New(), Qty: 2},
		{ProductID: uuid.New(), VariantID: &variant, Qty: 1},
		{ProductID: uuid.New(), Qty: 0},
	}

	batch, err := ledger.Reserve(context.Background(), storeID, "order-1", lines, "customer")
	require.NoError(t, err)
	require.Len(t, batch, 2)
	require.Equal(t, 2, store.Len())
	for _, m := range batch {
		require.Equal(t, inventory.TypeReservation, m.Type)
		require.Equal(t, "order-1", m.Reference)
		require.Positive(t, m.Qty)
	}
}

func TestReserveThenCurrentStock(t *testing.T) {
	t.Parallel()

	ledger, _ := newLedger()
	storeID := uuid.New()
	productID := uuid.New()

	_, err := ledger.RecordAdjustment(context.Background(), storeID, productID, nil, 10, "initial load", "owner")
	require.NoError(t, err)

	_, err = ledger.Reserve(context.Background(), storeID, "order-2",
		[]inventory.OrderLine{{ProductID: productID, Qty: 3}}, "customer")
	require.NoError(t, err)

	stock, err := ledger.CurrentStock(context.Background(), storeID, productID, nil)
	require.NoError(t, err)
	require.Equal(t, int64(7), stock)
}

func TestReleaseCompensatesWithoutRewritingHistory(t *testing.T) {
	t.Parallel()

	ledger, store := newLedger()
	storeID := uuid.New()
	productID := uuid.New()

	_, err := ledger.Reserve(context.Background(), storeID, "order-3",
		[]inventory.OrderLine{{ProductID: productID, Qty: 5}}, "customer")
	require.NoError(t, err)

	released, err := ledger.Release(context.Background(), storeID, "order-3", "system")
	require.NoError(t, err)
	require.Len(t, released, 1)
	require.Equal(t, inventory.TypeAdjustment, released[0].Type)
	require.Equal(t, int64(5), released[0].Qty)

	// original reservation still present, net stock back to zero
	require.Equal(t, 2, store.Len())
	stock, err := ledger.CurrentStock(context.Background(), storeID, productID, nil)
	require.NoError(t, err)
	require.Zero(t, stock)
}

func TestReleaseIsIdempotent(t *testing.T) {
	t.Parallel()

	ledger, _ := newLedger()
	storeID := uuid.New()
	productID := uuid.New()

	_, err := ledger.Reserve(context.Background(), storeID, "order-4",
		[]inventory.OrderLine{{ProductID: productID, Qty: 2}}, "customer")
	require.NoError(t, err)

	first, err := ledger.Release(context.Background(), storeID, "order-4", "system")
	require.NoError(t, err)
	require.Len(t, first, 1)

	second, err := ledger.Release(context.Background(), storeID, "order-4", "system")
	require.NoError(t, err)
	require.Empty(t, second)

	stock, err := ledger.CurrentStock(context.Background(), storeID, productID, nil)
	require.NoError(t, err)
	require.Zero(t, stock)
}

func TestReleaseUnknownOrderIsEmpty(t *testing.T) {
	t.Parallel()

	ledger, _ := newLedger()
	released, err := ledger.Release(context.Background(), uuid.New(), "no-such-order", "system")
	require.NoError(t, err)
	require.Empty(t, released)
}

func TestVariantStockIsSeparateFromBaseProduct(t *testing.T) {
	t.Parallel()

	ledger, _ := newLedger()
	storeID := uuid.New()
	productID := uuid.New()
	variant := uuid.New()

	_, err := ledger.RecordAdjustment(context.Background(), storeID, productID, nil, 4, "base stock", "owner")
	require.NoError(t, err)
	_, err = ledger.RecordAdjustment(context.Background(), storeID, productID, &variant, 9, "variant stock", "owner")
	require.NoError(t, err)

	base, err := ledger.CurrentStock(context.Background(), storeID, productID, nil)
	require.NoError(t, err)
	require.Equal(t, int64(4), base)

	variantStock, err := ledger.CurrentStock(context.Background(), storeID, productID, &variant)
	require.NoError(t, err)
	require.Equal(t, int64(9), variantStock)
}

func TestRecordAdjustmentSign(t *testing.T) {
	t.Parallel()

	ledger, _ := newLedger()
	storeID := uuid.New()
	productID := uuid.New()

	up, err := ledger.RecordAdjustment(context.Background(), storeID, productID, nil, 6, "recount", "owner")
	require.NoError(t, err)
	require.Equal(t, inventory.TypeIn, up.Type)
	require.Equal(t, int64(6), up.Qty)

	down, err := ledger.RecordAdjustment(context.Background(), storeID, productID, nil, -2, "breakage", "owner")
	require.NoError(t, err)
	require.Equal(t, inventory.TypeOut, down.Type)
	require.Equal(t, int64(2), down.Qty)

	_, err = ledger.RecordAdjustment(context.Background(), storeID, productID, nil, 0, "noop", "owner")
	require.Error(t, err)
}

type failingStore struct{}

func (failingStore) Append(context.Context, inventory.Movement) (uuid.UUID, error) {
	return uuid.Nil, errors.New("connection reset")
}

func (failingStore) Query(context.Context, inventory.Filter) ([]inventory.Movement, error) {
	return nil, errors.New("connection reset")
}

func TestCollaboratorFailuresAreWrapped(t *testing.T) {
	t.Parallel()

	ledger := &inventory.Ledger{Store: failingStore{}, Now: fixedClock}
	storeID, productID := uuid.New(), uuid.New()

	_, err := ledger.Reserve(context.Background(), storeID, "order-5",
		[]inventory.OrderLine{{ProductID: productID, Qty: 1}}, "customer")
	require.ErrorIs(t, err, inventory.ErrWriteFailed)

	_, err = ledger.CurrentStock(context.Background(), storeID, productID, nil)
	require.ErrorIs(t, err, inventory.ErrQueryFailed)

	_, err = ledger.Release(context.Background(), storeID, "order-5", "system")
	require.ErrorIs(t, err, inventory.ErrQueryFailed)
}
