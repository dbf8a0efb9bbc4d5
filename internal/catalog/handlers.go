package catalog

import (
	"errors"
	"net/http"

	"github.com/twinpizza/backend-orders/internal/common"
)

// Handler exposes the public menu endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs a Handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Menu handles GET /api/v1/menu. It returns the full pricing snapshot the
// storefront renders from, version included so clients can pin it at checkout.
func (h *Handler) Menu(w http.ResponseWriter, r *http.Request) {
	cat, err := h.service.Snapshot(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": cat})
}

// Version handles GET /api/v1/menu/version. Clients poll it to detect price
// changes without refetching the whole menu.
func (h *Handler) Version(w http.ResponseWriter, r *http.Request) {
	version, err := h.service.Version(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]int64{"version": version}})
}

// Publish handles POST /api/v1/menu/publish. The back office calls it after
// any price-affecting change; clients pick the new version up on their next
// menu poll.
func (h *Handler) Publish(w http.ResponseWriter, r *http.Request) {
	version, err := h.service.Publish(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]int64{"version": version}})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotPublished):
		common.JSONError(w, http.StatusServiceUnavailable, "CATALOG_UNAVAILABLE", "no menu has been published yet", nil)
	case errors.Is(err, ErrInvalidCatalog):
		common.JSONError(w, http.StatusInternalServerError, "CATALOG_INVALID", "menu configuration is invalid", nil)
	default:
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "internal error", nil)
	}
}
