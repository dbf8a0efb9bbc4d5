package pricing

import (
	"errors"
	"fmt"
	"time"

	"github.com/twinpizza/backend-orders/internal/catalog"
	"github.com/twinpizza/backend-orders/internal/customize"
	"github.com/twinpizza/backend-orders/internal/promo"
)

// ErrInvariant mirrors promo.ErrInvariant for callers that only import this
// package. Negative quantities or prices in the input indicate a bug
// upstream and abort the whole computation.
var ErrInvariant = promo.ErrInvariant

// ItemView is the resolved, render-ready form of one line item. The cart
// screen and the kitchen ticket both consume it so item descriptions never
// diverge.
type ItemView struct {
	ID         string           `json:"id"`
	ProductRef string           `json:"productRef"`
	Category   catalog.Category `json:"category"`
	Quantity   int              `json:"quantity"`
	UnitPrice  Money            `json:"unitPrice"`
	LineTotal  Money            `json:"lineTotal"`
	Summary    string           `json:"summary,omitempty"`
}

// Quote is the full result of pricing a cart against one catalog snapshot.
type Quote struct {
	Total          CartTotal       `json:"total"`
	CatalogVersion int64           `json:"catalogVersion"`
	Items          []ItemView      `json:"items"`
	PizzaPromo     promo.Result    `json:"pizzaPromo"`
	BulkTiers      []promo.TierUse `json:"bulkTiers,omitempty"`
	Fee            promo.FeeResult `json:"fee"`
	VAT            VATBreakdown    `json:"vat"`
	Warnings       []Warning       `json:"warnings,omitempty"`
}

// ComputeTotal prices a cart. It is a pure function of its inputs: the same
// line items, channel, zone, catalog snapshot, and instant always produce
// byte-identical output. now only matters for the lunch-menu window.
//
// zone selects a delivery zone fee; empty means the default fee. Line items
// with quantity zero are treated as removed. Items whose price cannot be
// determined are excluded from promotions and reported as warnings. Negative
// quantities or prices abort with ErrInvariant.
func ComputeTotal(items []LineItem, ch catalog.Channel, zone string, cat *catalog.Catalog, now time.Time) (Quote, error) {
	if cat == nil {
		return Quote{}, &catalog.ConfigError{Section: "catalog", Reason: "no snapshot provided"}
	}
	if err := cat.Validate(); err != nil {
		return Quote{}, err
	}

	q := Quote{CatalogVersion: cat.Version}

	var pizzaUnits []promo.PizzaUnit
	var bulkCount int
	var bulkAddOns Money
	var otherTotal Money
	var pizzaLineTotal Money

	for _, item := range items {
		if item.Quantity == 0 {
			continue
		}
		if item.Quantity < 0 {
			return Quote{}, fmt.Errorf("line %s: negative quantity %d: %w", item.ID, item.Quantity, ErrInvariant)
		}
		if item.ResolvedUnitPrice != nil && *item.ResolvedUnitPrice < 0 {
			return Quote{}, fmt.Errorf("line %s: negative resolved price: %w", item.ID, ErrInvariant)
		}

		category := cat.CategoryOf(item.ProductRef)
		resolved := customize.Resolve(item.Customization, category, cat.Options, cat.MenuOptions)
		for _, add := range resolved.AddOns {
			if add.Unresolved {
				q.Warnings = append(q.Warnings, Warning{
					LineItemID: item.ID,
					Reason:     fmt.Sprintf("unknown %s option %q priced at zero", add.Group, add.ID),
				})
			}
		}

		view := ItemView{
			ID:         item.ID,
			ProductRef: item.ProductRef,
			Category:   category,
			Quantity:   item.Quantity,
			Summary:    resolved.Summary,
		}

		switch category {
		case catalog.CategoryPizza:
			unitPrice, locked, warn := pizzaUnitPrice(item, cat, now)
			if warn != "" {
				q.Warnings = append(q.Warnings, Warning{LineItemID: item.ID, Reason: warn})
			}
			// Supplements sit outside the bundle discount base; every other
			// priced add-on (garnishes, menu bundle) bills into the unit.
			// A wizard-locked price already includes those add-ons.
			perUnitSupp := resolved.SupplementsTotal
			if !locked {
				unitPrice += resolved.AddOnTotal - perUnitSupp
			}
			for i := 0; i < item.Quantity; i++ {
				pizzaUnits = append(pizzaUnits, promo.PizzaUnit{Price: unitPrice, Supplements: perUnitSupp})
			}
			view.UnitPrice = unitPrice + perUnitSupp
			view.LineTotal = view.UnitPrice * Money(item.Quantity)
			pizzaLineTotal += view.LineTotal

		case catalog.CategoryBulk:
			// The ladder prices the combined unit count, so a per-line
			// locked price cannot be honored.
			if item.ResolvedUnitPrice != nil {
				q.Warnings = append(q.Warnings, Warning{
					LineItemID: item.ID,
					Reason:     "bulk items are priced by the tier ladder, locked unit price ignored",
				})
			}
			bulkCount += item.Quantity
			bulkAddOns += resolved.AddOnTotal * Money(item.Quantity)
			view.UnitPrice = cat.BulkUnitPrice
			view.LineTotal = cat.BulkUnitPrice * Money(item.Quantity)

		default:
			unitPrice, warn := plainUnitPrice(item, resolved, cat)
			if warn != "" {
				q.Warnings = append(q.Warnings, Warning{LineItemID: item.ID, Reason: warn})
			}
			view.UnitPrice = unitPrice
			view.LineTotal = unitPrice * Money(item.Quantity)
			otherTotal += view.LineTotal
		}
		q.Items = append(q.Items, view)
	}

	pizzaRes, err := promo.PizzaBundle(pizzaUnits, ch, cat.Pizza.PaidPerFree)
	if err != nil {
		if errors.Is(err, promo.ErrInvariant) {
			return Quote{}, err
		}
		// Configuration failure aborts only the pizza bucket: the units are
		// charged at their undiscounted price.
		q.Warnings = append(q.Warnings, Warning{Reason: err.Error()})
		pizzaRes = identityResult(pizzaUnits)
	}
	q.PizzaPromo = pizzaRes

	bulkLadderTotal, tierUses, err := promo.PriceBulk(bulkCount, cat.BulkTiers, cat.BulkUnitPrice)
	if err != nil {
		if errors.Is(err, promo.ErrInvariant) {
			return Quote{}, err
		}
		q.Warnings = append(q.Warnings, Warning{Reason: err.Error()})
		bulkLadderTotal = Money(bulkCount) * cat.BulkUnitPrice
		tierUses = nil
	}
	q.BulkTiers = tierUses

	bulkFlat := Money(bulkCount) * cat.BulkUnitPrice
	if bulkLadderTotal > bulkFlat {
		return Quote{}, fmt.Errorf("bulk ladder exceeds flat pricing: %w", ErrInvariant)
	}

	pizzaDiscounted := pizzaRes.DiscountedTotal + pizzaRes.SupplementsTotal
	nonPizzaSubtotal := bulkLadderTotal + bulkAddOns + otherTotal

	subtotal := pizzaLineTotal + bulkFlat + bulkAddOns + otherTotal
	discount := (pizzaRes.OriginalTotal - pizzaRes.DiscountedTotal) + (bulkFlat - bulkLadderTotal)
	if discount < 0 {
		return Quote{}, fmt.Errorf("negative total discount: %w", ErrInvariant)
	}

	delivery := cat.Delivery
	if ch == catalog.ChannelDelivery && zone != "" {
		z, found := cat.ZoneByID(zone)
		if !found {
			q.Warnings = append(q.Warnings, Warning{Reason: fmt.Sprintf("unknown delivery zone %q, default fee applied", zone)})
		} else {
			delivery = catalog.DeliveryConfig{Fee: z.Fee, FreeAbove: cat.Delivery.FreeAbove}
			if z.MinOrder > 0 && pizzaDiscounted+nonPizzaSubtotal < z.MinOrder {
				q.Warnings = append(q.Warnings, Warning{
					Reason: fmt.Sprintf("order below zone %q minimum of %d", z.ID, z.MinOrder),
				})
			}
		}
	}
	if len(q.Items) > 0 {
		q.Fee = promo.DeliveryFee(ch, len(pizzaUnits) > 0, nonPizzaSubtotal, delivery)
	}

	grand := pizzaDiscounted + nonPizzaSubtotal + q.Fee.Fee
	q.Total = CartTotal{
		Subtotal:          subtotal,
		PromotionDiscount: discount,
		DeliveryFee:       q.Fee.Fee,
		GrandTotal:        grand,
	}
	q.VAT = VATFromGross(grand)
	return q, nil
}

// pizzaUnitPrice resolves a single pizza's base price excluding supplements.
// A wizard-locked price wins and is reported as locked, meaning it already
// covers non-supplement add-ons; otherwise the size price from the catalog,
// with the lunch-menu price during the lunch window.
func pizzaUnitPrice(item LineItem, cat *catalog.Catalog, now time.Time) (Money, bool, string) {
	if item.ResolvedUnitPrice != nil {
		return *item.ResolvedUnitPrice, true, ""
	}
	var size string
	var lunch bool
	if item.Customization != nil {
		size = item.Customization.Size
		lunch = item.Customization.LunchMenu
	}
	if size == "" {
		if base, ok := cat.BasePrice(item.ProductRef); ok {
			return base, false, ""
		}
		return 0, false, fmt.Sprintf("pizza %q has no size and no base price", item.ProductRef)
	}
	if lunch && InLunchWindow(now) {
		if price, ok := cat.Pizza.LunchPrices[size]; ok {
			return price, false, ""
		}
	}
	if price, ok := cat.Pizza.SizePrices[size]; ok {
		return price, false, ""
	}
	return 0, false, fmt.Sprintf("unknown pizza size %q priced at zero", size)
}

// plainUnitPrice resolves a non-pizza, non-bulk item. A wizard-locked price
// is authoritative and already includes the customization cost; otherwise
// the base price plus resolved add-ons.
func plainUnitPrice(item LineItem, resolved customize.Resolved, cat *catalog.Catalog) (Money, string) {
	if item.ResolvedUnitPrice != nil {
		return *item.ResolvedUnitPrice, ""
	}
	base, ok := cat.BasePrice(item.ProductRef)
	if !ok {
		if resolved.AddOnTotal > 0 {
			return resolved.AddOnTotal, fmt.Sprintf("unknown product %q, only add-ons priced", item.ProductRef)
		}
		return 0, fmt.Sprintf("unknown product %q priced at zero", item.ProductRef)
	}
	return base + resolved.AddOnTotal, ""
}

func identityResult(units []promo.PizzaUnit) promo.Result {
	var res promo.Result
	for _, u := range units {
		res.OriginalTotal += u.Price
		res.SupplementsTotal += u.Supplements
	}
	res.DiscountedTotal = res.OriginalTotal
	return res
}

// InLunchWindow reports whether the lunch menu applies at the given instant
// (11:00 inclusive to 15:00 exclusive, local time of the instant).
func InLunchWindow(now time.Time) bool {
	h := now.Hour()
	return h >= 11 && h < 15
}
