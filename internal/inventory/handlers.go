package inventory

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/lojinha-app/backend-lojinha/internal/common"
	"github.com/lojinha-app/backend-lojinha/internal/obs"
	"github.com/lojinha-app/backend-lojinha/internal/tenant"
)

// Handler exposes the store-owner stock endpoints: current level, movement
// history and manual adjustments.
type Handler struct {
	Ledger   *Ledger
	Validate *validator.Validate
}

// Stock returns the folded stock level for a product or variant.
func (h *Handler) Stock(w http.ResponseWriter, r *http.Request) {
	storeID, ok := tenant.StoreID(r.Context())
	if !ok {
		common.JSONError(w, http.StatusBadRequest, "STORE_REQUIRED", "store not resolved", nil)
		return
	}
	productID, err := uuid.Parse(chi.URLParam(r, "productID"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid product id", nil)
		return
	}
	variantID, err := optionalVariant(r.URL.Query().Get("variantId"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid variant id", nil)
		return
	}
	stock, err := h.Ledger.CurrentStock(r.Context(), storeID, productID, variantID)
	if err != nil {
		common.JSONError(w, http.StatusBadGateway, "INVENTORY_QUERY_FAILED", "could not read stock", nil)
		return
	}
	resp := map[string]any{"productId": productID.String(), "stock": stock}
	if variantID != nil {
		resp["variantId"] = variantID.String()
	}
	common.JSON(w, http.StatusOK, resp)
}

// Movements lists the raw ledger history for a product or variant, newest
// first.
func (h *Handler) Movements(w http.ResponseWriter, r *http.Request) {
	storeID, ok := tenant.StoreID(r.Context())
	if !ok {
		common.JSONError(w, http.StatusBadRequest, "STORE_REQUIRED", "store not resolved", nil)
		return
	}
	productID, err := uuid.Parse(chi.URLParam(r, "productID"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid product id", nil)
		return
	}
	variantID, err := optionalVariant(r.URL.Query().Get("variantId"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid variant id", nil)
		return
	}
	movements, err := h.Ledger.Store.Query(r.Context(), Filter{
		StoreID:   storeID,
		ProductID: &productID,
		VariantID: variantID,
	})
	if err != nil {
		common.JSONError(w, http.StatusBadGateway, "INVENTORY_QUERY_FAILED", "could not read movements", nil)
		return
	}
	views := make([]map[string]any, 0, len(movements))
	for _, m := range movements {
		views = append(views, movementView(m))
	}
	common.JSON(w, http.StatusOK, map[string]any{"movements": views})
}

type adjustRequest struct {
	VariantID *string `json:"variantId" validate:"omitempty,uuid4"`
	Delta     int64   `json:"delta" validate:"required"`
	Reason    string  `json:"reason" validate:"required,min=3"`
	UserID    string  `json:"userId" validate:"required"`
}

// Adjust records a manual stock correction.
func (h *Handler) Adjust(w http.ResponseWriter, r *http.Request) {
	storeID, ok := tenant.StoreID(r.Context())
	if !ok {
		common.JSONError(w, http.StatusBadRequest, "STORE_REQUIRED", "store not resolved", nil)
		return
	}
	productID, err := uuid.Parse(chi.URLParam(r, "productID"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid product id", nil)
		return
	}
	var payload adjustRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	if err := h.Validate.Struct(payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		return
	}
	var variantID *uuid.UUID
	if payload.VariantID != nil {
		parsed, err := uuid.Parse(*payload.VariantID)
		if err != nil {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid variant id", nil)
			return
		}
		variantID = &parsed
	}
	movement, err := h.Ledger.RecordAdjustment(r.Context(), storeID, productID, variantID,
		payload.Delta, payload.Reason, payload.UserID)
	if err != nil {
		if errors.Is(err, ErrWriteFailed) {
			common.JSONError(w, http.StatusBadGateway, "INVENTORY_WRITE_FAILED", "could not record adjustment", nil)
			return
		}
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		return
	}
	obs.ObserveStockMovement(string(movement.Type))
	common.JSON(w, http.StatusCreated, movementView(movement))
}

func movementView(m Movement) map[string]any {
	view := map[string]any{
		"id":        m.ID.String(),
		"productId": m.ProductID.String(),
		"type":      string(m.Type),
		"qty":       m.Qty,
		"reason":    m.Reason,
		"createdAt": m.CreatedAt,
		"createdBy": m.CreatedBy,
	}
	if m.VariantID != nil {
		view["variantId"] = m.VariantID.String()
	}
	if m.Reference != "" {
		view["reference"] = m.Reference
	}
	return view
}

func optionalVariant(raw string) (*uuid.UUID, error) {
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, err
	}
	return &id, nil
}
