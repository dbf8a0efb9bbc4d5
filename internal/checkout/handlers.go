package checkout

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/twinpizza/backend-orders/internal/cart"
	"github.com/twinpizza/backend-orders/internal/catalog"
	"github.com/twinpizza/backend-orders/internal/common"
	"github.com/twinpizza/backend-orders/internal/loyalty"
	"github.com/twinpizza/backend-orders/internal/pricing"
)

// Handler wires checkout and order reads to HTTP.
type Handler struct {
	Svc      *Service
	Orders   *Store
	Validate *validator.Validate
}

// Checkout handles POST /api/v1/checkout.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "checkout service not configured", nil)
		return
	}
	var payload Input
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(payload); err != nil {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", map[string]any{"error": err.Error()})
			return
		}
	}
	out, err := h.Svc.Create(r.Context(), payload)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": out})
}

// GetOrder handles GET /api/v1/orders/{id}.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	if h.Orders == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "order store not configured", nil)
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid order id", nil)
		return
	}
	order, err := h.Orders.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": order})
}

// ListOrders handles GET /api/v1/orders for the kitchen screen.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	if h.Orders == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "order store not configured", nil)
		return
	}
	limit := common.AtoiDefault(r.URL.Query().Get("limit"), 0)
	orders, err := h.Orders.ListRecent(r.Context(), limit)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": orders})
}

// UpdateStatus handles PATCH /api/v1/orders/{id}/status.
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	if h.Orders == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "order store not configured", nil)
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid order id", nil)
		return
	}
	var payload struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	status := Status(payload.Status)
	if !status.Valid() {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "unknown status", map[string]any{"status": payload.Status})
		return
	}
	if err := h.Orders.UpdateStatus(r.Context(), id, status); err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]string{"status": string(status)}})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	if app, ok := common.AsAppError(err); ok {
		common.WriteAppError(w, app)
		return
	}
	var cfgErr *catalog.ConfigError
	switch {
	case errors.Is(err, ErrPricesChanged):
		common.JSONError(w, http.StatusConflict, "PRICES_CHANGED", "menu prices changed since your quote, please re-quote", nil)
	case errors.Is(err, ErrEmptyCart):
		common.JSONError(w, http.StatusBadRequest, "EMPTY_CART", "nothing to check out", nil)
	case errors.Is(err, ErrInvalidInput), errors.Is(err, cart.ErrInvalidInput):
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
	case errors.Is(err, loyalty.ErrNoReward):
		common.JSONError(w, http.StatusConflict, "NO_REWARD", "no punch-card reward available for this phone", nil)
	case errors.Is(err, ErrOrderNotFound), errors.Is(err, cart.ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "order not found", nil)
	case errors.Is(err, pricing.ErrInvariant):
		common.JSONError(w, http.StatusUnprocessableEntity, "INVARIANT_VIOLATION", err.Error(), nil)
	case errors.Is(err, catalog.ErrNotPublished):
		common.JSONError(w, http.StatusServiceUnavailable, "CATALOG_UNAVAILABLE", "no menu has been published yet", nil)
	case errors.As(err, &cfgErr), errors.Is(err, catalog.ErrInvalidCatalog):
		common.JSONError(w, http.StatusInternalServerError, "CATALOG_INVALID", "menu configuration is invalid", nil)
	default:
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "internal error", nil)
	}
}
