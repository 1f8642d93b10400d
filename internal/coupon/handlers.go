package coupon

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/lojinha-app/backend-lojinha/internal/cart"
	"github.com/lojinha-app/backend-lojinha/internal/common"
	"github.com/lojinha-app/backend-lojinha/internal/obs"
	"github.com/lojinha-app/backend-lojinha/internal/tenant"
)

// Handler exposes the storefront preview endpoint and the store-owner
// management endpoints.
type Handler struct {
	Svc      *Service
	Store    Store
	Validate *validator.Validate
}

type previewRequest struct {
	Code  string        `json:"code" validate:"required"`
	Items []previewItem `json:"items" validate:"required,min=1,dive"`
}

type previewItem struct {
	ProductID  string  `json:"productId" validate:"required,uuid4"`
	CategoryID *string `json:"categoryId" validate:"omitempty,uuid4"`
	VariantID  *string `json:"variantId" validate:"omitempty,uuid4"`
	Qty        int64   `json:"qty" validate:"required,gt=0"`
	UnitPrice  int64   `json:"unitPrice" validate:"gte=0"`
}

type previewResponse struct {
	Code         string `json:"code"`
	Discount     int64  `json:"discount"`
	FreeShipping bool   `json:"freeShipping"`
	Description  string `json:"description"`
}

// Preview evaluates a coupon against the posted cart without redeeming it.
func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	storeID, ok := tenant.StoreID(r.Context())
	if !ok {
		common.JSONError(w, http.StatusBadRequest, "STORE_REQUIRED", "store not resolved", nil)
		return
	}
	var payload previewRequest
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
	preview, err := h.Svc.Preview(r.Context(), storeID, payload.Code, snap)
	if err != nil {
		obs.ObserveCouponPreview("rejected")
		status, code, details := previewError(err)
		common.JSONError(w, status, code, err.Error(), details)
		return
	}
	obs.ObserveCouponPreview("accepted")
	common.JSON(w, http.StatusOK, previewResponse{
		Code:         preview.Coupon.Code,
		Discount:     preview.Discount,
		FreeShipping: preview.FreeShipping,
		Description:  preview.Description,
	})
}

// previewError maps engine and store errors onto stable response codes so
// clients can distinguish business rejections from infrastructure failures.
func previewError(err error) (int, string, any) {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound, "COUPON_NOT_FOUND", nil
	case errors.Is(err, ErrInactive):
		return http.StatusUnprocessableEntity, "COUPON_INACTIVE", nil
	case errors.Is(err, ErrNotYetValid):
		return http.StatusUnprocessableEntity, "COUPON_NOT_YET_VALID", nil
	case errors.Is(err, ErrExpired):
		return http.StatusUnprocessableEntity, "COUPON_EXPIRED", nil
	case errors.Is(err, ErrUsageLimitReached):
		return http.StatusUnprocessableEntity, "COUPON_USAGE_LIMIT", nil
	case errors.Is(err, ErrBelowMinimum):
		return http.StatusUnprocessableEntity, "COUPON_BELOW_MINIMUM", nil
	case errors.Is(err, ErrNotApplicable):
		return http.StatusUnprocessableEntity, "COUPON_NOT_APPLICABLE", nil
	case errors.Is(err, ErrExcludedProduct):
		return http.StatusUnprocessableEntity, "COUPON_EXCLUDED_PRODUCT", nil
	default:
		return http.StatusBadGateway, "COUPON_LOOKUP_FAILED", nil
	}
}

type createRequest struct {
	Code                 string     `json:"code" validate:"required,min=3,max=32"`
	Type                 string     `json:"type" validate:"required,oneof=percentage fixed shipping"`
	Value                int64      `json:"value" validate:"gte=0"`
	MinOrderValue        *int64     `json:"minOrderValue" validate:"omitempty,gt=0"`
	MaxDiscount          *int64     `json:"maxDiscount" validate:"omitempty,gt=0"`
	UsageLimit           *int32     `json:"usageLimit" validate:"omitempty,gt=0"`
	ValidFrom            time.Time  `json:"validFrom" validate:"required"`
	ValidUntil           time.Time  `json:"validUntil" validate:"required,gtfield=ValidFrom"`
	Active               *bool      `json:"active"`
	ApplicableCategories []string   `json:"applicableCategories" validate:"omitempty,dive,uuid4"`
	ExcludedProducts     []string   `json:"excludedProducts" validate:"omitempty,dive,uuid4"`
}

// Create registers a new coupon for the resolved store.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	storeID, ok := tenant.StoreID(r.Context())
	if !ok {
		common.JSONError(w, http.StatusBadRequest, "STORE_REQUIRED", "store not resolved", nil)
		return
	}
	var payload createRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	if err := h.Validate.Struct(payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		return
	}
	c := Coupon{
		StoreID:    storeID,
		Code:       payload.Code,
		Type:       Type(payload.Type),
		Value:      payload.Value,
		ValidFrom:  payload.ValidFrom,
		ValidUntil: payload.ValidUntil,
		Active:     payload.Active == nil || *payload.Active,
	}
	c.MinOrderValue = payload.MinOrderValue
	c.MaxDiscount = payload.MaxDiscount
	c.UsageLimit = payload.UsageLimit
	var err error
	if c.ApplicableCategories, err = parseUUIDs(payload.ApplicableCategories); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid category id", nil)
		return
	}
	if c.ExcludedProducts, err = parseUUIDs(payload.ExcludedProducts); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid product id", nil)
		return
	}
	created, err := h.Store.Create(r.Context(), c)
	if err != nil {
		if errors.Is(err, ErrCodeTaken) {
			common.JSONError(w, http.StatusConflict, "CONFLICT", "coupon code already exists", nil)
			return
		}
		common.JSONError(w, http.StatusBadGateway, "COUPON_LOOKUP_FAILED", "could not store coupon", nil)
		return
	}
	common.JSON(w, http.StatusCreated, couponView(created))
}

// List returns all coupons of the resolved store.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	storeID, ok := tenant.StoreID(r.Context())
	if !ok {
		common.JSONError(w, http.StatusBadRequest, "STORE_REQUIRED", "store not resolved", nil)
		return
	}
	coupons, err := h.Store.ListByStore(r.Context(), storeID)
	if err != nil {
		common.JSONError(w, http.StatusBadGateway, "COUPON_LOOKUP_FAILED", "could not list coupons", nil)
		return
	}
	views := make([]map[string]any, 0, len(coupons))
	for _, c := range coupons {
		views = append(views, couponView(c))
	}
	common.JSON(w, http.StatusOK, map[string]any{"coupons": views})
}

// Deactivate switches a coupon off.
func (h *Handler) Deactivate(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "couponID"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid coupon id", nil)
		return
	}
	if err := h.Store.Deactivate(r.Context(), id); err != nil {
		if errors.Is(err, ErrNotFound) {
			common.JSONError(w, http.StatusNotFound, "COUPON_NOT_FOUND", "coupon not found", nil)
			return
		}
		common.JSONError(w, http.StatusBadGateway, "COUPON_LOOKUP_FAILED", "could not deactivate coupon", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"status": "deactivated"})
}

func couponView(c Coupon) map[string]any {
	return map[string]any{
		"id":          c.ID.String(),
		"code":        c.Code,
		"type":        string(c.Type),
		"value":       c.Value,
		"usedCount":   c.UsedCount,
		"validFrom":   c.ValidFrom,
		"validUntil":  c.ValidUntil,
		"active":      c.Active,
		"description": Describe(c),
	}
}

func snapshotFromItems(items []previewItem) (cart.Snapshot, error) {
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

func parseUUIDs(values []string) ([]uuid.UUID, error) {
	if len(values) == 0 {
		return nil, nil
	}
	out := make([]uuid.UUID, 0, len(values))
	for _, v := range values {
		id, err := uuid.Parse(v)
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, nil
}
