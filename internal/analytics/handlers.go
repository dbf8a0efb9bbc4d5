package analytics

import (
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/twinpizza/backend-orders/internal/common"
)

// Handler serves the owner dashboard read endpoints.
type Handler struct {
	Svc *Service
}

// Sales returns the per-day sales summary. The range comes from RFC3339
// from/to parameters, or a trailing "days" window ending now.
func (h *Handler) Sales(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "analytics service not configured", nil)
		return
	}
	from, to, err := h.salesWindow(r.URL.Query())
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		return
	}
	rows, err := h.Svc.SalesRange(r.Context(), from, to)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "ANALYTICS_ERROR", "unable to compute sales summary", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": rows})
}

func (h *Handler) salesWindow(q url.Values) (time.Time, time.Time, error) {
	if q.Get("from") != "" || q.Get("to") != "" {
		from, err := time.Parse(time.RFC3339, q.Get("from"))
		if err != nil {
			return time.Time{}, time.Time{}, errors.New("invalid from date")
		}
		to, err := time.Parse(time.RFC3339, q.Get("to"))
		if err != nil {
			return time.Time{}, time.Time{}, errors.New("invalid to date")
		}
		if !from.Before(to) {
			return time.Time{}, time.Time{}, errors.New("from must be before to")
		}
		return from, to, nil
	}

	days := common.AtoiDefault(q.Get("days"), h.Svc.DefaultRange)
	if days <= 0 {
		days = 30
	}
	to := h.Svc.now()
	return to.AddDate(0, 0, -days), to, nil
}

// TopProducts returns the best sellers ranked by units sold.
func (h *Handler) TopProducts(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "analytics service not configured", nil)
		return
	}
	q := r.URL.Query()
	rows, err := h.Svc.TopProducts(r.Context(),
		common.AtoiDefault(q.Get("limit"), 10),
		common.AtoiDefault(q.Get("offset"), 0))
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "ANALYTICS_ERROR", "unable to compute product ranking", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": rows})
}
