package store

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/lojinha-app/backend-lojinha/internal/common"
	"github.com/lojinha-app/backend-lojinha/internal/tenant"
)

// Handler exposes the storefront settings endpoints.
type Handler struct {
	Repo     Repo
	Validate *validator.Validate
}

type settingsView struct {
	Slug         string `json:"slug"`
	Name         string `json:"name"`
	City         string `json:"city"`
	ContactEmail string `json:"contactEmail,omitempty"`
	Theme        string `json:"theme,omitempty"`
	PixReady     bool   `json:"pixReady"`
}

// Get returns the public settings of the resolved store. The PIX key itself
// never leaves the admin surface; the storefront only learns whether payments
// are configured.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	storeID, ok := tenant.StoreID(r.Context())
	if !ok {
		common.JSONError(w, http.StatusBadRequest, "STORE_REQUIRED", "store not resolved", nil)
		return
	}
	settings, err := h.Repo.GetByID(r.Context(), storeID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			common.JSONError(w, http.StatusNotFound, "STORE_NOT_FOUND", "store not found", nil)
			return
		}
		common.JSONError(w, http.StatusBadGateway, "STORE_LOOKUP_FAILED", "could not load settings", nil)
		return
	}
	common.JSON(w, http.StatusOK, settingsView{
		Slug:         settings.Slug,
		Name:         settings.Name,
		City:         settings.City,
		ContactEmail: settings.ContactEmail,
		Theme:        settings.Theme,
		PixReady:     settings.PixKey != "",
	})
}

type updatePixRequest struct {
	Key     string `json:"key" validate:"required,min=3,max=77"`
	KeyType string `json:"keyType" validate:"required,oneof=cpf cnpj email phone random"`
}

// UpdatePix sets the PIX key used to build payment payloads.
func (h *Handler) UpdatePix(w http.ResponseWriter, r *http.Request) {
	storeID, ok := tenant.StoreID(r.Context())
	if !ok {
		common.JSONError(w, http.StatusBadRequest, "STORE_REQUIRED", "store not resolved", nil)
		return
	}
	var payload updatePixRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	if err := h.Validate.Struct(payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		return
	}
	if err := h.Repo.UpdatePix(r.Context(), storeID, payload.Key, PixKeyType(payload.KeyType)); err != nil {
		if errors.Is(err, ErrNotFound) {
			common.JSONError(w, http.StatusNotFound, "STORE_NOT_FOUND", "store not found", nil)
			return
		}
		common.JSONError(w, http.StatusBadGateway, "STORE_LOOKUP_FAILED", "could not update pix key", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"status": "updated"})
}
