package checkout

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/lojinha-app/backend-lojinha/internal/cart"
	"github.com/lojinha-app/backend-lojinha/internal/common"
	"github.com/lojinha-app/backend-lojinha/internal/coupon"
	"github.com/lojinha-app/backend-lojinha/internal/order"
	"github.com/lojinha-app/backend-lojinha/internal/tenant"
)

// Handler exposes the storefront checkout endpoint and the order payment
// artifact endpoints.
type Handler struct {
	Svc      *Service
	Validate *validator.Validate
}

type checkoutItem struct {
	ProductID  string  `json:"productId" validate:"required,uuid4"`
	CategoryID *string `json:"categoryId" validate:"omitempty,uuid4"`
	VariantID  *string `json:"variantId" validate:"omitempty,uuid4"`
	Qty        int64   `json:"qty" validate:"required,gt=0"`
	UnitPrice  int64   `json:"unitPrice" validate:"gte=0"`
}

type checkoutRequest struct {
	Items         []checkoutItem `json:"items" validate:"required,min=1,dive"`
	CouponCode    string         `json:"couponCode" validate:"omitempty,min=3,max=32"`
	ShippingPrice int64          `json:"shippingPrice" validate:"gte=0"`
	CustomerRef   string         `json:"customerRef" validate:"omitempty,max=120"`
}

type breakdownView struct {
	Subtotal     int64 `json:"subtotal"`
	Discount     int64 `json:"discount"`
	Shipping     int64 `json:"shipping"`
	FreeShipping bool  `json:"freeShipping"`
	Total        int64 `json:"total"`
}

type paymentView struct {
	TxID     string `json:"txId"`
	Payload  string `json:"payload"`
	Copyable string `json:"copyable"`
	QRBase64 string `json:"qrBase64,omitempty"`
}

type checkoutResponse struct {
	OrderID   string        `json:"orderId"`
	Status    string        `json:"status"`
	Breakdown breakdownView `json:"breakdown"`
	Coupon    *struct {
		Code        string `json:"code"`
		Discount    int64  `json:"discount"`
		Description string `json:"description"`
	} `json:"coupon,omitempty"`
	Payment paymentView `json:"payment"`
}

// Create handles POST /checkout.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	storeID, ok := tenant.StoreID(r.Context())
	if !ok {
		common.JSONError(w, http.StatusBadRequest, "STORE_REQUIRED", "store not resolved", nil)
		return
	}
	var payload checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	if err := h.Validate.Struct(payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		return
	}
	snap, err := snapshotFromItems(payload.Items)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		return
	}

	out, err := h.Svc.Create(r.Context(), storeID, Input{
		Cart:          snap,
		CouponCode:    payload.CouponCode,
		ShippingPrice: payload.ShippingPrice,
		CustomerRef:   payload.CustomerRef,
	})
	if err != nil {
		status, code := checkoutError(err)
		common.JSONError(w, status, code, err.Error(), nil)
		return
	}

	resp := checkoutResponse{
		OrderID: out.OrderID.String(),
		Status:  string(out.Status),
		Breakdown: breakdownView{
			Subtotal:     out.Breakdown.Subtotal,
			Discount:     out.Breakdown.Discount,
			Shipping:     out.Breakdown.Shipping,
			FreeShipping: out.Breakdown.FreeShipping,
			Total:        out.Breakdown.Total,
		},
		Payment: paymentArtifactView(out.Payment),
	}
	if out.Coupon != nil {
		resp.Coupon = &struct {
			Code        string `json:"code"`
			Discount    int64  `json:"discount"`
			Description string `json:"description"`
		}{
			Code:        out.Coupon.Coupon.Code,
			Discount:    out.Coupon.Discount,
			Description: out.Coupon.Description,
		}
	}
	common.JSON(w, http.StatusCreated, resp)
}

// Payment handles GET /orders/{orderID}/payment.
func (h *Handler) Payment(w http.ResponseWriter, r *http.Request) {
	storeID, ok := tenant.StoreID(r.Context())
	if !ok {
		common.JSONError(w, http.StatusBadRequest, "STORE_REQUIRED", "store not resolved", nil)
		return
	}
	orderID, err := uuid.Parse(chi.URLParam(r, "orderID"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid order id", nil)
		return
	}
	artifact, err := h.Svc.Payment(r.Context(), storeID, orderID)
	if err != nil {
		if errors.Is(err, order.ErrNotFound) {
			common.JSONError(w, http.StatusNotFound, "ORDER_NOT_FOUND", "order not found", nil)
			return
		}
		common.JSONError(w, http.StatusBadGateway, "ORDER_LOOKUP_FAILED", "could not load payment", nil)
		return
	}
	common.JSON(w, http.StatusOK, paymentArtifactView(artifact))
}

// MarkPaid handles POST /orders/{orderID}/paid. Manual confirmation by the
// store owner; there is no settlement callback in a static-key PIX flow.
func (h *Handler) MarkPaid(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.Svc.MarkPaid, "PAID")
}

// Cancel handles POST /orders/{orderID}/cancel.
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(ctx context.Context, storeID, orderID uuid.UUID) error {
		return h.Svc.Cancel(ctx, storeID, orderID, "store-owner")
	}, "CANCELLED")
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, storeID, orderID uuid.UUID) error, status string) {
	storeID, ok := tenant.StoreID(r.Context())
	if !ok {
		common.JSONError(w, http.StatusBadRequest, "STORE_REQUIRED", "store not resolved", nil)
		return
	}
	orderID, err := uuid.Parse(chi.URLParam(r, "orderID"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid order id", nil)
		return
	}
	if err := fn(r.Context(), storeID, orderID); err != nil {
		switch {
		case errors.Is(err, order.ErrNotFound):
			common.JSONError(w, http.StatusNotFound, "ORDER_NOT_FOUND", "order not found", nil)
		case errors.Is(err, order.ErrInvalidTransition):
			common.JSONError(w, http.StatusConflict, "INVALID_TRANSITION", "order is not pending payment", nil)
		default:
			common.JSONError(w, http.StatusBadGateway, "ORDER_WRITE_FAILED", "could not update order", nil)
		}
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"status": status})
}

func checkoutError(err error) (int, string) {
	switch {
	case errors.Is(err, ErrEmptyCart):
		return http.StatusBadRequest, "EMPTY_CART"
	case errors.Is(err, ErrPixKeyMissing):
		return http.StatusUnprocessableEntity, "PIX_KEY_MISSING"
	case errors.Is(err, ErrStoreUnavailable):
		return http.StatusBadGateway, "STORE_UNAVAILABLE"
	case errors.Is(err, coupon.ErrNotFound):
		return http.StatusNotFound, "COUPON_NOT_FOUND"
	case errors.Is(err, coupon.ErrLookupFailed):
		return http.StatusBadGateway, "COUPON_LOOKUP_FAILED"
	case errors.Is(err, coupon.ErrInactive),
		errors.Is(err, coupon.ErrNotYetValid),
		errors.Is(err, coupon.ErrExpired),
		errors.Is(err, coupon.ErrUsageLimitReached),
		errors.Is(err, coupon.ErrBelowMinimum),
		errors.Is(err, coupon.ErrNotApplicable),
		errors.Is(err, coupon.ErrExcludedProduct):
		return http.StatusUnprocessableEntity, "COUPON_REJECTED"
	default:
		return http.StatusBadGateway, "CHECKOUT_FAILED"
	}
}

func paymentArtifactView(a PaymentArtifact) paymentView {
	view := paymentView{
		TxID:     a.TxID,
		Payload:  a.Payload,
		Copyable: a.Copyable,
	}
	if len(a.QRPNG) > 0 {
		view.QRBase64 = base64.StdEncoding.EncodeToString(a.QRPNG)
	}
	return view
}

func snapshotFromItems(items []checkoutItem) (cart.Snapshot, error) {
	snap := cart.Snapshot{Lines: make([]cart.Line, 0, len(items))}
	for _, it := range items {
		productID, err := uuid.Parse(it.ProductID)
		if err != nil {
			return cart.Snapshot{}, errors.New("invalid product id")
		}
		line := cart.Line{ProductID: productID, Qty: it.Qty, UnitPrice: it.UnitPrice}
		if it.CategoryID != nil {
			categoryID, err := uuid.Parse(*it.CategoryID)
			if err != nil {
				return cart.Snapshot{}, errors.New("invalid category id")
			}
			line.CategoryID = &categoryID
		}
		if it.VariantID != nil {
			variantID, err := uuid.Parse(*it.VariantID)
			if err != nil {
				return cart.Snapshot{}, errors.New("invalid variant id")
			}
			line.VariantID = &variantID
		}
		snap.Lines = append(snap.Lines, line)
	}
	return snap, nil
}
