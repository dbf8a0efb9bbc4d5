package pricing

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	validator "github.com/go-playground/validator/v10"

	"github.com/twinpizza/backend-orders/internal/catalog"
	"github.com/twinpizza/backend-orders/internal/common"
	"github.com/twinpizza/backend-orders/internal/obs"
)

// QuoteRequest is the stateless quote payload: the storefront sends its full
// item list and channel and gets the authoritative price back.
type QuoteRequest struct {
	Channel string     `json:"channel" validate:"required,oneof=delivery pickup dinein"`
	ZoneID  string     `json:"zoneId,omitempty" validate:"omitempty,max=50"`
	Items   []LineItem `json:"items" validate:"dive"`
}

// Handler exposes the quote endpoint.
type Handler struct {
	Catalog  *catalog.Service
	Metrics  *obs.DomainMetrics
	Validate *validator.Validate
	Now      func() time.Time
}

func (h *Handler) now() time.Time {
	if h != nil && h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

// Quote handles POST /api/v1/cart/quote.
func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	if h.Catalog == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "catalog service not configured", nil)
		return
	}
	var req QuoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(req); err != nil {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", map[string]any{"error": err.Error()})
			return
		}
	}
	ch := catalog.Channel(req.Channel)
	if !ch.Valid() {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "unknown channel", map[string]any{"channel": req.Channel})
		return
	}

	cat, err := h.Catalog.Snapshot(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	quote, err := ComputeTotal(req.Items, ch, req.ZoneID, cat, h.now())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.Metrics.ObserveQuote(string(ch), len(quote.Warnings) > 0)
	common.JSON(w, http.StatusOK, map[string]any{"data": quote})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var cfgErr *catalog.ConfigError
	switch {
	case errors.Is(err, ErrInvariant):
		common.JSONError(w, http.StatusUnprocessableEntity, "INVARIANT_VIOLATION", err.Error(), nil)
	case errors.Is(err, catalog.ErrNotPublished):
		common.JSONError(w, http.StatusServiceUnavailable, "CATALOG_UNAVAILABLE", "no menu has been published yet", nil)
	case errors.As(err, &cfgErr), errors.Is(err, catalog.ErrInvalidCatalog):
		common.JSONError(w, http.StatusInternalServerError, "CATALOG_INVALID", "menu configuration is invalid", nil)
	default:
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "internal error", nil)
	}
}
