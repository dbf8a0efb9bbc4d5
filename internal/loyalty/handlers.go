package loyalty

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/twinpizza/backend-orders/internal/common"
)

type accountSource interface {
	Get(ctx context.Context, phone string) (Account, StampCard, error)
}

// Status is the public loyalty view: balance, derived tier, progress toward
// the next tier, and the punch cards.
type Status struct {
	Phone    string          `json:"phone"`
	Name     string          `json:"name,omitempty"`
	Points   int64           `json:"points"`
	Tier     string          `json:"tier"`
	NextTier *Progress       `json:"nextTier,omitempty"`
	Stamps   []StampProgress `json:"stamps"`
	Redeemed int             `json:"redeemed"`

	// AvailableRewards is earned free items minus redemptions, the number
	// the customer can still claim.
	AvailableRewards int `json:"availableRewards"`
}

// Handler exposes loyalty lookups.
type Handler struct {
	Accounts accountSource
	Config   Config
}

// Get handles GET /api/v1/loyalty/{phone}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	if h.Accounts == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "loyalty store not configured", nil)
		return
	}
	phone := strings.TrimSpace(chi.URLParam(r, "phone"))
	if phone == "" {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "phone is required", nil)
		return
	}
	account, card, err := h.Accounts.Get(r.Context(), phone)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "no loyalty account for this phone", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unable to load loyalty account", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": h.status(account, card)})
}

func (h *Handler) status(account Account, card StampCard) Status {
	return Status{
		Phone:    account.Phone,
		Name:     account.Name,
		Points:   account.Points,
		Tier:     account.Tier(h.Config).String(),
		NextTier: h.Config.NextTier(account.Points),
		Stamps:           h.Config.ProgressFor(card),
		Redeemed:         card.Redeemed,
		AvailableRewards: h.Config.AvailableRewards(card),
	}
}
