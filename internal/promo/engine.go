package promo

import (
	"errors"
	"fmt"
	"sort"

	"github.com/twinpizza/backend-orders/internal/catalog"
)

// ErrInvariant is returned when a rule detects an upstream money bug, such
// as a negative unit price or a discount exceeding the original total.
// Callers must abort pricing entirely rather than surface a plausible-looking
// wrong number.
var ErrInvariant = errors.New("promotion invariant violated")

// Result is the outcome of applying one promotion rule to a bucket of line
// items. SupplementsTotal is priced outside the discount and added back
// untouched by the aggregator.
type Result struct {
	OriginalTotal    int64  `json:"originalTotal"`
	DiscountedTotal  int64  `json:"discountedTotal"`
	SupplementsTotal int64  `json:"supplementsTotal"`
	Description      string `json:"description,omitempty"`
	FreeUnits        int    `json:"freeUnits"`
}

// PizzaUnit is a single pizza flattened out of a line item's quantity. Price
// is the unit's resolved price excluding supplements; Supplements carries the
// per-unit supplement cost separately.
type PizzaUnit struct {
	Price       int64
	Supplements int64
}

// PizzaBundle applies the bundle promotion: on the delivery channel every
// third unit is free; on other channels every second unit is free. The
// cheapest units are always the free ones.
func PizzaBundle(units []PizzaUnit, ch catalog.Channel, paidPerFree map[catalog.Channel]int) (Result, error) {
	var res Result
	for _, u := range units {
		if u.Price < 0 || u.Supplements < 0 {
			return Result{}, fmt.Errorf("pizza unit with negative price: %w", ErrInvariant)
		}
		res.OriginalTotal += u.Price
		res.SupplementsTotal += u.Supplements
	}
	if len(units) == 0 {
		return res, nil
	}
	paid, ok := paidPerFree[ch]
	if !ok || paid <= 0 {
		return Result{}, &catalog.ConfigError{Section: "pizza", Reason: fmt.Sprintf("no bundle threshold for channel %q", ch)}
	}

	group := paid + 1
	free := len(units) / group
	if free == 0 {
		res.DiscountedTotal = res.OriginalTotal
		return res, nil
	}

	prices := make([]int64, len(units))
	for i, u := range units {
		prices[i] = u.Price
	}
	sort.Slice(prices, func(i, j int) bool { return prices[i] < prices[j] })

	res.DiscountedTotal = res.OriginalTotal
	for i := 0; i < free; i++ {
		res.DiscountedTotal -= prices[i]
	}
	res.FreeUnits = free
	res.Description = bundleDescription(paid, free)

	if res.DiscountedTotal > res.OriginalTotal || res.DiscountedTotal < 0 {
		return Result{}, fmt.Errorf("bundle discount out of range: %w", ErrInvariant)
	}
	return res, nil
}

func bundleDescription(paid, free int) string {
	plural := ""
	if free > 1 {
		plural = "s"
	}
	if paid == 1 {
		return fmt.Sprintf("1 achetée = 1 offerte (%d pizza%s offerte%s)", free, plural, plural)
	}
	return fmt.Sprintf("%d achetées = 1 offerte (%d pizza%s offerte%s)", paid, free, plural, plural)
}

// TierUse records one application of the bulk ladder for display purposes.
type TierUse struct {
	Quantity int   `json:"quantity"`
	Count    int   `json:"count"`
	Price    int64 `json:"price"`
}

// PriceBulk prices N loose units against the tier ladder: the largest tier
// with quantity ≤ N is applied floor(N/quantity) times, the remainder is
// priced recursively against smaller tiers, and units no tier covers fall
// back to the flat unit price. Ties on quantity are broken in favor of the
// larger tier so the same N always yields the same price.
func PriceBulk(n int, tiers []catalog.BulkTier, unitPrice int64) (int64, []TierUse, error) {
	if n < 0 {
		return 0, nil, fmt.Errorf("negative unit count: %w", ErrInvariant)
	}
	if n == 0 {
		return 0, nil, nil
	}
	if unitPrice <= 0 {
		return 0, nil, &catalog.ConfigError{Section: "bulk", Reason: "unit price not configured"}
	}

	sorted := make([]catalog.BulkTier, len(tiers))
	copy(sorted, tiers)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Quantity != sorted[j].Quantity {
			return sorted[i].Quantity > sorted[j].Quantity
		}
		return sorted[i].Price < sorted[j].Price
	})

	var total int64
	var uses []TierUse
	remaining := n
	for _, tier := range sorted {
		if tier.Quantity <= 0 || remaining < tier.Quantity {
			continue
		}
		count := remaining / tier.Quantity
		total += int64(count) * tier.Price
		uses = append(uses, TierUse{Quantity: tier.Quantity, Count: count, Price: tier.Price})
		remaining = remaining % tier.Quantity
	}
	total += int64(remaining) * unitPrice
	return total, uses, nil
}

// FeeResult is the delivery fee decision plus the figure a suggestion UI
// needs: how much more the cart must spend to reach free delivery.
type FeeResult struct {
	Fee                  int64  `json:"fee"`
	Waived               bool   `json:"waived"`
	Reason               string `json:"reason,omitempty"`
	AmountToFreeDelivery int64  `json:"amountToFreeDelivery"`
}

// DeliveryFee evaluates the fee waiver. Only the delivery channel carries a
// fee. A cart with any pizza ships free: the bundle promotion is considered
// compensation enough. Otherwise the fee is waived once the non-pizza
// subtotal meets the configured threshold.
func DeliveryFee(ch catalog.Channel, hasPizza bool, nonPizzaSubtotal int64, cfg catalog.DeliveryConfig) FeeResult {
	if ch != catalog.ChannelDelivery {
		return FeeResult{Waived: false}
	}
	if hasPizza {
		return FeeResult{Waived: true, Reason: "pizza dans le panier"}
	}
	if nonPizzaSubtotal >= cfg.FreeAbove {
		return FeeResult{Waived: true, Reason: "seuil de livraison gratuite atteint"}
	}
	return FeeResult{
		Fee:                  cfg.Fee,
		AmountToFreeDelivery: cfg.FreeAbove - nonPizzaSubtotal,
	}
}
