package cart

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/twinpizza/backend-orders/internal/catalog"
	"github.com/twinpizza/backend-orders/internal/common"
	"github.com/twinpizza/backend-orders/internal/customize"
	"github.com/twinpizza/backend-orders/internal/pricing"
)

// Handler wires cart operations to HTTP. Every read endpoint returns the
// repriced cart so the storefront never computes money on its own.
type Handler struct {
	Svc     *Service
	Catalog *catalog.Service
}

// Create creates or returns the active cart for a phone or device.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cart service not configured", nil)
		return
	}
	var payload struct {
		Phone    string `json:"phone"`
		DeviceID string `json:"deviceId"`
	}
	_ = json.NewDecoder(r.Body).Decode(&payload)
	var phone, deviceID *string
	if p := strings.TrimSpace(payload.Phone); p != "" {
		phone = &p
	}
	d := strings.TrimSpace(payload.DeviceID)
	if d == "" && phone == nil {
		d = uuid.NewString()
	}
	if d != "" {
		deviceID = &d
	}
	cart, err := h.Svc.EnsureCart(r.Context(), phone, deviceID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": cart})
}

// Get returns the cart contents with a price quote for its channel.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil || h.Svc.Store == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cart service not configured", nil)
		return
	}
	cartID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid cart id", nil)
		return
	}
	cart, err := h.Svc.Store.GetByID(r.Context(), cartID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "cart not found", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unable to load cart", nil)
		return
	}
	if cart.ExpiresAt.Before(h.Svc.now()) {
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "cart expired", nil)
		return
	}

	items, err := h.Svc.LineItems(r.Context(), cart.ID)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unable to load cart items", nil)
		return
	}
	quote, err := h.quote(r, items, cart.Channel)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data": map[string]any{
			"cart":  cart,
			"quote": quote,
		},
	})
}

// AddItem appends a line, merging identical product and customization.
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cart service not configured", nil)
		return
	}
	cartID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid cart id", nil)
		return
	}
	var payload struct {
		ProductRef    string                   `json:"productRef"`
		Quantity      int                      `json:"quantity"`
		Customization *customize.Customization `json:"customization"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	if payload.Quantity == 0 {
		payload.Quantity = 1
	}
	if _, err := h.Svc.AddItem(r.Context(), cartID, strings.TrimSpace(payload.ProductRef), payload.Quantity, payload.Customization); err != nil {
		h.writeError(w, err)
		return
	}
	h.Get(w, r)
}

// UpdateItem changes a line quantity; zero removes the line.
func (h *Handler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cart service not configured", nil)
		return
	}
	cartID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid cart id", nil)
		return
	}
	itemID, err := uuid.Parse(chi.URLParam(r, "itemId"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid item id", nil)
		return
	}
	var payload struct {
		Quantity int `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	if err := h.Svc.UpdateQuantity(r.Context(), cartID, itemID, payload.Quantity); err != nil {
		h.writeError(w, err)
		return
	}
	h.Get(w, r)
}

// RemoveItem deletes a cart line.
func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cart service not configured", nil)
		return
	}
	cartID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid cart id", nil)
		return
	}
	itemID, err := uuid.Parse(chi.URLParam(r, "itemId"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid item id", nil)
		return
	}
	if err := h.Svc.RemoveItem(r.Context(), cartID, itemID); err != nil {
		h.writeError(w, err)
		return
	}
	h.Get(w, r)
}

// SetChannel switches the fulfilment channel and reprices.
func (h *Handler) SetChannel(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cart service not configured", nil)
		return
	}
	cartID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid cart id", nil)
		return
	}
	var payload struct {
		Channel string `json:"channel"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	if err := h.Svc.SetChannel(r.Context(), cartID, catalog.Channel(payload.Channel)); err != nil {
		h.writeError(w, err)
		return
	}
	h.Get(w, r)
}

// Merge folds a device cart into the customer's phone cart.
func (h *Handler) Merge(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cart service not configured", nil)
		return
	}
	var payload struct {
		CartID string `json:"cartId"`
		Phone  string `json:"phone"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	cartID, err := uuid.Parse(strings.TrimSpace(payload.CartID))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid cart id", nil)
		return
	}
	merged, err := h.Svc.Merge(r.Context(), cartID, strings.TrimSpace(payload.Phone))
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": merged})
}

func (h *Handler) quote(r *http.Request, items []pricing.LineItem, ch catalog.Channel) (pricing.Quote, error) {
	if h.Catalog == nil {
		return pricing.Quote{}, errors.New("catalog service not configured")
	}
	cat, err := h.Catalog.Snapshot(r.Context())
	if err != nil {
		return pricing.Quote{}, err
	}
	now := time.Now()
	if h.Svc != nil {
		now = h.Svc.now()
	}
	// Cart previews use the default fee; zone selection only happens at
	// quote and checkout time.
	return pricing.ComputeTotal(items, ch, "", cat, now)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var cfgErr *catalog.ConfigError
	switch {
	case errors.Is(err, ErrInvalidInput):
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
	case errors.Is(err, ErrNotFound), errors.Is(err, pgx.ErrNoRows):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "cart not found", nil)
	case errors.Is(err, pricing.ErrInvariant):
		common.JSONError(w, http.StatusUnprocessableEntity, "INVARIANT_VIOLATION", err.Error(), nil)
	case errors.As(err, &cfgErr), errors.Is(err, catalog.ErrInvalidCatalog):
		common.JSONError(w, http.StatusInternalServerError, "CATALOG_INVALID", "menu configuration is invalid", nil)
	case errors.Is(err, catalog.ErrNotPublished):
		common.JSONError(w, http.StatusServiceUnavailable, "CATALOG_UNAVAILABLE", "no menu has been published yet", nil)
	default:
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "internal error", nil)
	}
}
