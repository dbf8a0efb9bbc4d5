package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/twinpizza/backend-orders/internal/cart"
	"github.com/twinpizza/backend-orders/internal/catalog"
	"github.com/twinpizza/backend-orders/internal/events"
	"github.com/twinpizza/backend-orders/internal/lock"
	"github.com/twinpizza/backend-orders/internal/loyalty"
	"github.com/twinpizza/backend-orders/internal/obs"
	"github.com/twinpizza/backend-orders/internal/pricing"
)

// ErrPricesChanged is returned when the menu version the client quoted
// against is no longer current. The client must refetch and re-quote.
var ErrPricesChanged = errors.New("menu prices changed since quote")

// ErrEmptyCart is returned when there is nothing to check out.
var ErrEmptyCart = errors.New("cart is empty")

// ErrInvalidInput covers malformed checkout payloads.
var ErrInvalidInput = errors.New("invalid input")

// Input is the checkout payload. Items may be sent inline or referenced via
// a stored cart; inline wins when both are present.
type Input struct {
	Channel        string             `json:"channel" validate:"required,oneof=delivery pickup dinein"`
	CatalogVersion int64              `json:"catalogVersion" validate:"gte=0"`
	ZoneID         string             `json:"zoneId,omitempty" validate:"omitempty,max=50"`
	CartID         string             `json:"cartId,omitempty" validate:"omitempty,uuid4"`
	Items          []pricing.LineItem `json:"items,omitempty" validate:"omitempty,dive"`
	Phone          string             `json:"phone,omitempty" validate:"omitempty,min=6,max=20"`
	// RewardRef redeems one earned punch-card free item: the named product
	// is added as a zero-priced line. Requires Phone.
	RewardRef      string             `json:"rewardRef,omitempty" validate:"omitempty,max=100"`
	Name           string             `json:"name,omitempty" validate:"omitempty,max=100"`
	Note           string             `json:"note,omitempty" validate:"omitempty,max=500"`
}

// LoyaltyResult reports what the order earned. Points are computed at the
// tier held before this order, so an order that crosses a threshold earns at
// the old rate.
type LoyaltyResult struct {
	PointsEarned int64  `json:"pointsEarned"`
	Balance      int64  `json:"balance"`
	Tier         string `json:"tier"`
}

// Output is the checkout response.
type Output struct {
	OrderID string         `json:"orderId"`
	Status  string         `json:"status"`
	Quote   pricing.Quote  `json:"quote"`
	Loyalty *LoyaltyResult `json:"loyalty,omitempty"`
}

// Service runs the authoritative checkout: server-side reprice against a
// fresh snapshot, version check, order persistence, and loyalty accrual in
// one transaction.
type Service struct {
	Pool    *pgxpool.Pool
	Catalog *catalog.Service
	CartSvc *cart.Service
	Orders  *Store
	Loyalty *loyalty.Store
	Events  *events.Bus
	Tasks   TaskEnqueuer
	Locker  *lock.Locker
	Metrics *obs.DomainMetrics
	Log     zerolog.Logger
	Now     func() time.Time
}

// TaskEnqueuer schedules background work after a committed order.
type TaskEnqueuer interface {
	EnqueueReceipt(ctx context.Context, orderID uuid.UUID) error
	EnqueueLoyaltyNotice(ctx context.Context, phone string, points int64) error
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Create places an order.
func (s *Service) Create(ctx context.Context, in Input) (Output, error) {
	if s == nil || s.Pool == nil || s.Catalog == nil || s.Orders == nil {
		return Output{}, errors.New("checkout service not configured")
	}
	ch := catalog.Channel(in.Channel)
	if !ch.Valid() {
		return Output{}, fmt.Errorf("unknown channel %q: %w", in.Channel, ErrInvalidInput)
	}

	items, err := s.resolveItems(ctx, in)
	if err != nil {
		return Output{}, err
	}
	if len(items) == 0 {
		return Output{}, ErrEmptyCart
	}

	if s.Locker != nil && in.CartID != "" {
		var out Output
		err := s.Locker.WithLock(ctx, "checkout:cart:"+in.CartID, 30*time.Second, func(ctx context.Context) error {
			var lockErr error
			out, lockErr = s.create(ctx, in, ch, items)
			return lockErr
		})
		return out, err
	}
	return s.create(ctx, in, ch, items)
}

func (s *Service) create(ctx context.Context, in Input, ch catalog.Channel, items []pricing.LineItem) (Output, error) {
	cat, err := s.Catalog.Fresh(ctx)
	if err != nil {
		return Output{}, err
	}
	if in.CatalogVersion != 0 && in.CatalogVersion != cat.Version {
		s.Metrics.ObserveVersionConflict()
		s.Metrics.ObserveCheckout(string(ch), "conflict")
		return Output{}, fmt.Errorf("quoted against version %d, current is %d: %w",
			in.CatalogVersion, cat.Version, ErrPricesChanged)
	}

	quote, err := pricing.ComputeTotal(items, ch, in.ZoneID, cat, s.now())
	if err != nil {
		s.Metrics.ObserveCheckout(string(ch), "invalid")
		return Output{}, err
	}

	if in.RewardRef != "" {
		if in.Phone == "" {
			return Output{}, fmt.Errorf("reward redemption requires a phone number: %w", ErrInvalidInput)
		}
		if s.Loyalty == nil {
			return Output{}, errors.New("loyalty store not configured")
		}
		if _, ok := cat.Families[in.RewardRef]; !ok {
			return Output{}, fmt.Errorf("product %q does not collect stamps: %w", in.RewardRef, ErrInvalidInput)
		}
	}

	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Output{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	order := Order{
		ID:             uuid.New(),
		CartID:         cartIDOrNil(in.CartID),
		Channel:        ch,
		Phone:          in.Phone,
		CustomerName:   in.Name,
		Note:           in.Note,
		Status:         StatusConfirmed,
		CatalogVersion: cat.Version,
		Total:          quote.Total,
		VAT:            quote.VAT,
		PlacedAt:       s.now(),
	}
	if in.RewardRef != "" {
		// The row lock inside Redeem keeps two concurrent checkouts from
		// spending the same reward.
		if _, err := s.Loyalty.Redeem(ctx, tx, in.Phone, cat.Loyalty); err != nil {
			if errors.Is(err, loyalty.ErrNotFound) {
				err = loyalty.ErrNoReward
			}
			return Output{}, err
		}
		quote.Items = append(quote.Items, rewardLine(in.RewardRef, cat))
	}

	if err := s.Orders.Insert(ctx, tx, order, quote.Items); err != nil {
		return Output{}, err
	}

	var loyaltyResult *LoyaltyResult
	if in.Phone != "" && s.Loyalty != nil {
		loyaltyResult, err = s.credit(ctx, tx, cat, in, items, quote)
		if err != nil {
			return Output{}, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return Output{}, err
	}

	s.afterCommit(ctx, order, quote, loyaltyResult)

	out := Output{OrderID: order.ID.String(), Status: string(order.Status), Quote: quote, Loyalty: loyaltyResult}
	return out, nil
}

// credit computes and persists points and stamps for the order. The tier used
// for the multiplier is the one held before this order's points land.
func (s *Service) credit(ctx context.Context, tx pgx.Tx, cat *catalog.Catalog, in Input, items []pricing.LineItem, quote pricing.Quote) (*LoyaltyResult, error) {
	cfg := cat.Loyalty
	tierBefore := loyalty.TierBronze
	if account, _, err := s.Loyalty.Get(ctx, in.Phone); err == nil {
		tierBefore = account.Tier(cfg)
	} else if !errors.Is(err, loyalty.ErrNotFound) {
		return nil, err
	}

	points := cfg.PointsEarned(quote.Total.GrandTotal, tierBefore)
	stamps := map[string]int{}
	for _, item := range items {
		if item.Quantity <= 0 {
			continue
		}
		if family, ok := cat.Families[item.ProductRef]; ok {
			stamps[family] += item.Quantity
		}
	}

	account, _, err := s.Loyalty.Credit(ctx, tx, in.Phone, in.Name, points, stamps)
	if err != nil {
		return nil, err
	}
	return &LoyaltyResult{
		PointsEarned: points,
		Balance:      account.Points,
		Tier:         account.Tier(cfg).String(),
	}, nil
}

// afterCommit emits events, updates metrics, and schedules background tasks.
// The order is already durable; failures here are logged, never returned.
func (s *Service) afterCommit(ctx context.Context, order Order, quote pricing.Quote, loyaltyResult *LoyaltyResult) {
	s.Metrics.ObserveCheckout(string(order.Channel), "ok")
	s.Metrics.ObserveOrderValue(string(order.Channel), quote.Total.GrandTotal)

	if s.Events != nil {
		payload := map[string]any{
			"orderId":        order.ID.String(),
			"channel":        string(order.Channel),
			"grandTotal":     quote.Total.GrandTotal,
			"catalogVersion": order.CatalogVersion,
		}
		if _, err := s.Events.Emit(ctx, events.TopicOrderCreated, order.ID, payload); err != nil {
			s.Log.Error().Err(err).Str("order_id", order.ID.String()).Msg("emit order.created failed")
		}
		if loyaltyResult != nil && loyaltyResult.PointsEarned > 0 {
			s.Metrics.AddLoyaltyPoints(loyaltyResult.PointsEarned)
			if _, err := s.Events.Emit(ctx, events.TopicLoyaltyEarned, order.ID, map[string]any{
				"phone":   order.Phone,
				"points":  loyaltyResult.PointsEarned,
				"balance": loyaltyResult.Balance,
				"tier":    loyaltyResult.Tier,
			}); err != nil {
				s.Log.Error().Err(err).Str("order_id", order.ID.String()).Msg("emit loyalty.earned failed")
			}
		}
	}

	if s.Tasks != nil {
		if err := s.Tasks.EnqueueReceipt(ctx, order.ID); err != nil {
			s.Log.Error().Err(err).Str("order_id", order.ID.String()).Msg("enqueue receipt failed")
		}
		if loyaltyResult != nil && loyaltyResult.PointsEarned > 0 && order.Phone != "" {
			if err := s.Tasks.EnqueueLoyaltyNotice(ctx, order.Phone, loyaltyResult.PointsEarned); err != nil {
				s.Log.Error().Err(err).Str("order_id", order.ID.String()).Msg("enqueue loyalty notice failed")
			}
		}
	}

	if s.CartSvc != nil && order.CartID != uuid.Nil {
		if err := s.CartSvc.Clear(ctx, order.CartID); err != nil {
			s.Log.Warn().Err(err).Str("cart_id", order.CartID.String()).Msg("clear cart after checkout failed")
		}
	}
}

func (s *Service) resolveItems(ctx context.Context, in Input) ([]pricing.LineItem, error) {
	if len(in.Items) > 0 {
		return in.Items, nil
	}
	if in.CartID == "" {
		return nil, nil
	}
	if s.CartSvc == nil {
		return nil, errors.New("cart service not configured")
	}
	cartID, err := uuid.Parse(in.CartID)
	if err != nil {
		return nil, fmt.Errorf("invalid cart id: %w", ErrInvalidInput)
	}
	return s.CartSvc.LineItems(ctx, cartID)
}

// rewardLine is the zero-priced line injected when a punch-card reward is
// spent. It shows on the ticket and in the quote but never changes totals.
func rewardLine(ref string, cat *catalog.Catalog) pricing.ItemView {
	return pricing.ItemView{
		ID:         "reward",
		ProductRef: ref,
		Category:   cat.CategoryOf(ref),
		Quantity:   1,
		Summary:    "Offert (carte de fidélité)",
	}
}

func cartIDOrNil(raw string) uuid.UUID {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil
	}
	return id
}
