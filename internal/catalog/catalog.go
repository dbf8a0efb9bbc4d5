package catalog

import (
	"errors"
	"fmt"
	"sort"

	"github.com/twinpizza/backend-orders/internal/loyalty"
)

// Channel identifies how an order is fulfilled. Promotion thresholds and the
// delivery fee rule key off it.
type Channel string

const (
	ChannelDelivery Channel = "delivery"
	ChannelPickup   Channel = "pickup"
	ChannelDineIn   Channel = "dinein"
)

// Valid reports whether the channel is one of the known fulfilment modes.
func (c Channel) Valid() bool {
	switch c {
	case ChannelDelivery, ChannelPickup, ChannelDineIn:
		return true
	}
	return false
}

// Category buckets products for promotion purposes.
type Category string

const (
	CategoryPizza    Category = "pizza"
	CategorySandwich Category = "sandwich"
	CategoryBulk     Category = "bulk"
	CategoryOther    Category = "other"
)

// Option is a priced add-on (meat, sauce, garnish, supplement) from the
// option catalog. Prices are in euro cents.
type Option struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Price int64  `json:"price"`
}

// OptionSet indexes options by id.
type OptionSet map[string]Option

// Lookup returns the option and whether it exists.
func (s OptionSet) Lookup(id string) (Option, bool) {
	opt, ok := s[id]
	return opt, ok
}

// Options groups the per-concern add-on catalogs used by the customization
// resolver.
type Options struct {
	Meats       OptionSet `json:"meats"`
	Sauces      OptionSet `json:"sauces"`
	Garnishes   OptionSet `json:"garnishes"`
	Supplements OptionSet `json:"supplements"`
}

// BulkTier is one rung of the bulk price ladder: buy Quantity units for Price.
type BulkTier struct {
	Quantity int   `json:"quantity"`
	Price    int64 `json:"price"`
}

// PizzaPricing carries size prices and the bundle promotion thresholds.
// PaidPerFree maps a channel to how many paid units earn one free unit
// (delivery: 2 paid = 1 free, pickup/dine-in: 1 paid = 1 free).
type PizzaPricing struct {
	SizePrices  map[string]int64  `json:"sizePrices"`
	LunchPrices map[string]int64  `json:"lunchPrices"`
	PaidPerFree map[Channel]int   `json:"paidPerFree"`
}

// DeliveryConfig holds the fee waiver inputs for the selected zone.
type DeliveryConfig struct {
	Fee       int64 `json:"fee"`
	FreeAbove int64 `json:"freeAbove"`
}

// Zone is a delivery zone with its own fee and minimum order.
type Zone struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	MinOrder int64  `json:"minOrder"`
	Fee      int64  `json:"fee"`
}

// Catalog is an immutable pricing snapshot. Every pricing call works against
// one snapshot identified by Version so that a catalog update mid-checkout is
// detectable.
type Catalog struct {
	Version    int64               `json:"version"`
	BasePrices map[string]int64    `json:"basePrices"`
	Categories map[string]Category `json:"categories"`
	// Families maps a product reference to its punch-card family, for
	// products that collect stamps.
	Families      map[string]string `json:"families,omitempty"`
	Options       Options           `json:"options"`
	MenuOptions   map[string]int64  `json:"menuOptions"`
	Pizza         PizzaPricing      `json:"pizza"`
	BulkTiers     []BulkTier        `json:"bulkTiers"`
	BulkUnitPrice int64             `json:"bulkUnitPrice"`
	Delivery      DeliveryConfig    `json:"delivery"`
	Zones         []Zone            `json:"zones"`
	Loyalty       loyalty.Config    `json:"loyalty"`
}

// ConfigError marks a catalog that is unusable for pricing a category. It is
// a deployment problem, not a bad cart, and is reported distinctly from
// data-integrity warnings.
type ConfigError struct {
	Section string
	Reason  string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("catalog config: %s: %s", e.Section, e.Reason)
}

// ErrInvalidCatalog wraps all configuration failures.
var ErrInvalidCatalog = errors.New("invalid catalog")

// CategoryOf resolves a product reference to its promotion bucket. Unknown
// products fall into the "other" bucket.
func (c *Catalog) CategoryOf(productRef string) Category {
	if cat, ok := c.Categories[productRef]; ok {
		return cat
	}
	return CategoryOther
}

// ZoneByID resolves a delivery zone by id.
func (c *Catalog) ZoneByID(id string) (Zone, bool) {
	for _, z := range c.Zones {
		if z.ID == id {
			return z, true
		}
	}
	return Zone{}, false
}

// BasePrice returns the base price for a product reference.
func (c *Catalog) BasePrice(productRef string) (int64, bool) {
	p, ok := c.BasePrices[productRef]
	return p, ok
}

// SortedBulkTiers returns the bulk ladder ordered by descending quantity so
// the largest applicable tier is tried first. Ties on quantity keep the
// cheaper price.
func (c *Catalog) SortedBulkTiers() []BulkTier {
	tiers := make([]BulkTier, len(c.BulkTiers))
	copy(tiers, c.BulkTiers)
	sort.SliceStable(tiers, func(i, j int) bool {
		if tiers[i].Quantity != tiers[j].Quantity {
			return tiers[i].Quantity > tiers[j].Quantity
		}
		return tiers[i].Price < tiers[j].Price
	})
	return tiers
}

// Validate checks the snapshot for configuration errors. A catalog that
// fails validation must not be used for pricing.
func (c *Catalog) Validate() error {
	if c.Version <= 0 {
		return &ConfigError{Section: "version", Reason: "version must be positive"}
	}
	if len(c.Pizza.SizePrices) == 0 {
		return &ConfigError{Section: "pizza", Reason: "no size prices configured"}
	}
	for size, price := range c.Pizza.SizePrices {
		if price <= 0 {
			return &ConfigError{Section: "pizza", Reason: fmt.Sprintf("size %q has non-positive price", size)}
		}
	}
	for ch, paid := range c.Pizza.PaidPerFree {
		if paid <= 0 {
			return &ConfigError{Section: "pizza", Reason: fmt.Sprintf("channel %q bundle threshold must be positive", ch)}
		}
	}
	if c.BulkUnitPrice <= 0 {
		return &ConfigError{Section: "bulk", Reason: "unit price must be positive"}
	}
	for _, tier := range c.BulkTiers {
		if tier.Quantity <= 0 || tier.Price <= 0 {
			return &ConfigError{Section: "bulk", Reason: fmt.Sprintf("tier %d/%d is malformed", tier.Quantity, tier.Price)}
		}
	}
	if c.Delivery.Fee < 0 || c.Delivery.FreeAbove < 0 {
		return &ConfigError{Section: "delivery", Reason: "fee and threshold must be non-negative"}
	}
	if err := c.Loyalty.Validate(); err != nil {
		return &ConfigError{Section: "loyalty", Reason: err.Error()}
	}
	return nil
}
