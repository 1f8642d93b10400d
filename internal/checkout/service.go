// Package checkout sequences the discount engine, the pricing breakdown,
// the stock ledger and the BR Code encoder into one order placement flow.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/lojinha-app/backend-lojinha/internal/cart"
	"github.com/lojinha-app/backend-lojinha/internal/coupon"
	"github.com/lojinha-app/backend-lojinha/internal/events"
	"github.com/lojinha-app/backend-lojinha/internal/inventory"
	"github.com/lojinha-app/backend-lojinha/internal/obs"
	"github.com/lojinha-app/backend-lojinha/internal/order"
	"github.com/lojinha-app/backend-lojinha/internal/pix"
	"github.com/lojinha-app/backend-lojinha/internal/pricing"
	"github.com/lojinha-app/backend-lojinha/internal/store"
	"github.com/lojinha-app/backend-lojinha/internal/tasks"
)

var (
	// ErrEmptyCart is returned when checkout is attempted with no items.
	ErrEmptyCart = errors.New("checkout: cart is empty")
	// ErrPixKeyMissing means the store owner has not configured a PIX key.
	// This is surfaced before the encoder runs; it is a store configuration
	// problem, not a payment failure.
	ErrPixKeyMissing = errors.New("checkout: store has no pix key configured")
	// ErrStoreUnavailable wraps settings lookup infrastructure failures.
	ErrStoreUnavailable = errors.New("checkout: store settings unavailable")
)

// SettingsSource supplies storefront settings by id.
type SettingsSource interface {
	GetByID(ctx context.Context, id uuid.UUID) (store.Settings, error)
}

// Enqueuer schedules background tasks. Satisfied by *asynq.Client.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Input is the caller-assembled checkout request. All state is explicit;
// the service never reads ambient session data.
type Input struct {
	Cart          cart.Snapshot
	CouponCode    string
	ShippingPrice int64
	CustomerRef   string
}

// PaymentArtifact is the user-facing payment output: the raw BR Code, the
// copy-paste form and the QR image.
type PaymentArtifact struct {
	TxID     string
	Payload  string
	Copyable string
	QRPNG    []byte
}

// Output describes a placed order.
type Output struct {
	OrderID   uuid.UUID
	Status    order.Status
	Breakdown pricing.Summary
	Coupon    *coupon.Preview
	Payment   PaymentArtifact
}

// Service orchestrates order placement. Every collaborator failure is scoped
// to the single checkout attempt; nothing here is fatal to the process.
type Service struct {
	Settings       SettingsSource
	Coupons        *coupon.Service
	Ledger         *inventory.Ledger
	Orders         order.Store
	Events         *events.Bus
	Queue          Enqueuer
	DefaultCity    string
	TxIDPrefix     string
	ReservationTTL time.Duration
	QRSize         int
	Now            func() time.Time
}

// Create places an order: coupon preview, breakdown, BR Code, persistence,
// stock reservation and coupon redemption, in that sequence.
func (s *Service) Create(ctx context.Context, storeID uuid.UUID, in Input) (Output, error) {
	if s == nil || s.Settings == nil || s.Ledger == nil || s.Orders == nil {
		return Output{}, errors.New("checkout service not configured")
	}
	if in.Cart.Empty() {
		return Output{}, ErrEmptyCart
	}
	settings, err := s.Settings.GetByID(ctx, storeID)
	if err != nil {
		return Output{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if settings.PixKey == "" {
		return Output{}, ErrPixKeyMissing
	}

	var (
		applied      *coupon.Preview
		discount     int64
		freeShipping bool
	)
	if in.CouponCode != "" {
		preview, err := s.Coupons.Preview(ctx, storeID, in.CouponCode, in.Cart)
		if err != nil {
			return Output{}, err
		}
		applied = &preview
		discount = preview.Discount
		freeShipping = preview.FreeShipping
	}

	items := make([]pricing.Item, 0, len(in.Cart.Lines))
	for _, line := range in.Cart.Lines {
		items = append(items, pricing.Item{Qty: line.Qty, UnitPrice: line.UnitPrice})
	}
	summary := pricing.Compute(items, discount, in.ShippingPrice, freeShipping)

	orderID := uuid.New()
	txID := pix.NewTxID(s.TxIDPrefix)
	payload, err := pix.Payment{
		StoreName: settings.Name,
		City:      s.city(settings),
		Key:       settings.PixKey,
		Amount:    summary.Total,
		TxID:      txID,
	}.Encode()
	if err != nil {
		return Output{}, err
	}
	obs.ObservePixPayload()

	o := order.Order{
		ID:          orderID,
		StoreID:     storeID,
		Status:      order.StatusPendingPayment,
		Lines:       orderLines(in.Cart),
		Breakdown:   summary,
		TxID:        txID,
		PixPayload:  payload,
		CustomerRef: in.CustomerRef,
		CreatedAt:   s.now(),
	}
	if applied != nil {
		o.CouponCode = applied.Coupon.Code
	}
	if err := s.Orders.Create(ctx, o); err != nil {
		return Output{}, err
	}

	if _, err := s.Ledger.Reserve(ctx, storeID, orderID.String(), reservationLines(in.Cart), in.CustomerRef); err != nil {
		_ = s.Orders.SetStatus(ctx, storeID, orderID, order.StatusPendingPayment, order.StatusCancelled)
		return Output{}, err
	}

	if applied != nil {
		if err := s.Coupons.Redeem(ctx, applied.Coupon.ID, orderID); err != nil {
			// validation raced a concurrent redemption; undo this attempt
			_, _ = s.Ledger.Release(ctx, storeID, orderID.String(), "checkout")
			_ = s.Orders.SetStatus(ctx, storeID, orderID, order.StatusPendingPayment, order.StatusCancelled)
			return Output{}, err
		}
	}

	s.scheduleExpiry(ctx, storeID, orderID)
	if s.Events != nil {
		_, _ = s.Events.Emit(ctx, events.TopicOrderCreated, storeID, orderID, map[string]any{
			"orderId": orderID.String(),
			"total":   summary.Total,
			"txId":    txID,
		})
	}
	obs.ObserveCheckout("placed")

	out := Output{
		OrderID:   orderID,
		Status:    order.StatusPendingPayment,
		Breakdown: summary,
		Coupon:    applied,
		Payment: PaymentArtifact{
			TxID:     txID,
			Payload:  payload,
			Copyable: pix.CopyableText(payload),
		},
	}
	if png, err := pix.QRImage(payload, s.qrSize()); err == nil {
		out.Payment.QRPNG = png
	}
	return out, nil
}

// Payment re-presents the stored payment artifact for an existing order.
func (s *Service) Payment(ctx context.Context, storeID, orderID uuid.UUID) (PaymentArtifact, error) {
	o, err := s.Orders.Get(ctx, storeID, orderID)
	if err != nil {
		return PaymentArtifact{}, err
	}
	if err := pix.VerifyCRC(o.PixPayload); err != nil {
		return PaymentArtifact{}, err
	}
	artifact := PaymentArtifact{
		TxID:     o.TxID,
		Payload:  o.PixPayload,
		Copyable: pix.CopyableText(o.PixPayload),
	}
	if png, err := pix.QRImage(o.PixPayload, s.qrSize()); err == nil {
		artifact.QRPNG = png
	}
	return artifact, nil
}

// MarkPaid transitions a pending order to paid.
func (s *Service) MarkPaid(ctx context.Context, storeID, orderID uuid.UUID) error {
	if err := s.Orders.SetStatus(ctx, storeID, orderID, order.StatusPendingPayment, order.StatusPaid); err != nil {
		return err
	}
	if s.Events != nil {
		_, _ = s.Events.Emit(ctx, events.TopicOrderPaid, storeID, orderID, nil)
	}
	obs.ObserveCheckout("paid")
	return nil
}

// Cancel transitions a pending order to cancelled and releases its
// reservations by appending compensating movements.
func (s *Service) Cancel(ctx context.Context, storeID, orderID uuid.UUID, cancelledBy string) error {
	if err := s.Orders.SetStatus(ctx, storeID, orderID, order.StatusPendingPayment, order.StatusCancelled); err != nil {
		return err
	}
	if _, err := s.Ledger.Release(ctx, storeID, orderID.String(), cancelledBy); err != nil {
		return err
	}
	if s.Events != nil {
		_, _ = s.Events.Emit(ctx, events.TopicOrderCancelled, storeID, orderID, nil)
		_, _ = s.Events.Emit(ctx, events.TopicStockReleased, storeID, orderID, nil)
	}
	obs.ObserveCheckout("cancelled")
	return nil
}

// ExpireReservation is the worker-side handler body: a pending order whose
// payment window passed is cancelled and its stock returned. Orders already
// paid or cancelled are left alone.
func (s *Service) ExpireReservation(ctx context.Context, storeID, orderID uuid.UUID) error {
	o, err := s.Orders.Get(ctx, storeID, orderID)
	if err != nil {
		if errors.Is(err, order.ErrNotFound) {
			return nil
		}
		return err
	}
	if o.Status != order.StatusPendingPayment {
		return nil
	}
	return s.Cancel(ctx, storeID, orderID, "reservation-expiry")
}

func (s *Service) scheduleExpiry(ctx context.Context, storeID, orderID uuid.UUID) {
	if s.Queue == nil || s.ReservationTTL <= 0 {
		return
	}
	task, err := tasks.NewReservationExpireTask(storeID.String(), orderID.String(), s.ReservationTTL)
	if err != nil {
		return
	}
	// best effort: a lost expiry task only delays the release
	_, _ = s.Queue.EnqueueContext(ctx, task)
}

func (s *Service) city(settings store.Settings) string {
	if settings.City != "" {
		return settings.City
	}
	return s.DefaultCity
}

func (s *Service) qrSize() int {
	if s.QRSize > 0 {
		return s.QRSize
	}
	return 256
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func orderLines(snap cart.Snapshot) []order.Line {
	out := make([]order.Line, 0, len(snap.Lines))
	for _, l := range snap.Lines {
		out = append(out, order.Line{
			ProductID: l.ProductID,
			VariantID: l.VariantID,
			Qty:       l.Qty,
			UnitPrice: l.UnitPrice,
		})
	}
	return out
}

func reservationLines(snap cart.Snapshot) []inventory.OrderLine {
	out := make([]inventory.OrderLine, 0, len(snap.Lines))
	for _, l := range snap.Lines {
		out = append(out, inventory.OrderLine{
			ProductID: l.ProductID,
			VariantID: l.VariantID,
			Qty:       l.Qty,
		})
	}
	return out
}
