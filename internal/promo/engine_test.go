package promo

import (
	"errors"
	"testing"

	"github.com/twinpizza/backend-orders/internal/catalog"
)

var paidPerFree = map[catalog.Channel]int{
	catalog.ChannelDelivery: 2,
	catalog.ChannelPickup:   1,
	catalog.ChannelDineIn:   1,
}

func TestPizzaBundleDeliveryEveryThirdFree(t *testing.T) {
	units := []PizzaUnit{{Price: 1000}, {Price: 900}, {Price: 800}}
	res, err := PizzaBundle(units, catalog.ChannelDelivery, paidPerFree)
	if err != nil {
		t.Fatalf("bundle: %v", err)
	}
	if res.OriginalTotal != 2700 {
		t.Fatalf("expected original 2700, got %d", res.OriginalTotal)
	}
	if res.DiscountedTotal != 1900 {
		t.Fatalf("expected cheapest unit free (1900), got %d", res.DiscountedTotal)
	}
	if res.FreeUnits != 1 {
		t.Fatalf("expected 1 free unit, got %d", res.FreeUnits)
	}
	if res.Description != "2 achetées = 1 offerte (1 pizza offerte)" {
		t.Fatalf("unexpected description %q", res.Description)
	}
}

func TestPizzaBundleDeliveryBelowThreshold(t *testing.T) {
	units := []PizzaUnit{{Price: 1000}, {Price: 900}}
	res, err := PizzaBundle(units, catalog.ChannelDelivery, paidPerFree)
	if err != nil {
		t.Fatalf("bundle: %v", err)
	}
	if res.DiscountedTotal != 1900 || res.FreeUnits != 0 {
		t.Fatalf("expected no discount below threshold, got %+v", res)
	}
	if res.Description != "" {
		t.Fatalf("expected no description, got %q", res.Description)
	}
}

func TestPizzaBundlePickupEverySecondFree(t *testing.T) {
	units := []PizzaUnit{{Price: 1000}, {Price: 800}}
	res, err := PizzaBundle(units, catalog.ChannelPickup, paidPerFree)
	if err != nil {
		t.Fatalf("bundle: %v", err)
	}
	if res.DiscountedTotal != 1000 {
		t.Fatalf("expected 8€ unit free, got %d", res.DiscountedTotal)
	}

	single, err := PizzaBundle(units[:1], catalog.ChannelPickup, paidPerFree)
	if err != nil {
		t.Fatalf("bundle: %v", err)
	}
	if single.DiscountedTotal != single.OriginalTotal {
		t.Fatalf("single pizza must not be discounted: %+v", single)
	}
}

func TestPizzaBundleSupplementsNeverDiscounted(t *testing.T) {
	units := []PizzaUnit{
		{Price: 1000, Supplements: 100},
		{Price: 1000, Supplements: 100},
		{Price: 1000, Supplements: 100},
	}
	res, err := PizzaBundle(units, catalog.ChannelDelivery, paidPerFree)
	if err != nil {
		t.Fatalf("bundle: %v", err)
	}
	if res.SupplementsTotal != 300 {
		t.Fatalf("expected supplements kept whole, got %d", res.SupplementsTotal)
	}
	if res.DiscountedTotal != 2000 {
		t.Fatalf("expected 2000 after discount, got %d", res.DiscountedTotal)
	}
}

func TestPizzaBundleMissingChannelConfig(t *testing.T) {
	units := []PizzaUnit{{Price: 1000}}
	_, err := PizzaBundle(units, catalog.Channel("drone"), paidPerFree)
	var cfgErr *catalog.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
}

func TestPizzaBundleNegativePriceIsInvariant(t *testing.T) {
	_, err := PizzaBundle([]PizzaUnit{{Price: -1}}, catalog.ChannelPickup, paidPerFree)
	if !errors.Is(err, ErrInvariant) {
		t.Fatalf("expected ErrInvariant, got %v", err)
	}
}

func TestPriceBulkLadder(t *testing.T) {
	tiers := []catalog.BulkTier{{Quantity: 5, Price: 500}, {Quantity: 10, Price: 900}}

	cases := []struct {
		n    int
		want int64
	}{
		{12, 1100}, // one 10-tier + 2 at unit price
		{7, 700},   // one 5-tier + 2 at unit price
		{15, 1400}, // one 10-tier + one 5-tier
		{4, 400},   // no tier applies
		{0, 0},
		{20, 1800}, // two 10-tiers
	}
	for _, tc := range cases {
		got, _, err := PriceBulk(tc.n, tiers, 100)
		if err != nil {
			t.Fatalf("n=%d: %v", tc.n, err)
		}
		if got != tc.want {
			t.Fatalf("n=%d: expected %d, got %d", tc.n, tc.want, got)
		}
	}
}

func TestPriceBulkDeterministicOnTies(t *testing.T) {
	// Two tiers with the same quantity: the cheaper price must win, and the
	// result must be stable across calls.
	tiers := []catalog.BulkTier{{Quantity: 5, Price: 600}, {Quantity: 5, Price: 500}}
	first, _, err := PriceBulk(5, tiers, 100)
	if err != nil {
		t.Fatalf("bulk: %v", err)
	}
	if first != 500 {
		t.Fatalf("expected cheaper tier to win, got %d", first)
	}
	for i := 0; i < 10; i++ {
		again, _, _ := PriceBulk(5, tiers, 100)
		if again != first {
			t.Fatalf("unstable pricing: %d vs %d", again, first)
		}
	}
}

func TestPriceBulkMissingUnitPrice(t *testing.T) {
	_, _, err := PriceBulk(3, nil, 0)
	var cfgErr *catalog.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
}

func TestDeliveryFeeWaivedWithPizza(t *testing.T) {
	cfg := catalog.DeliveryConfig{Fee: 500, FreeAbove: 2500}
	res := DeliveryFee(catalog.ChannelDelivery, true, 100, cfg)
	if !res.Waived || res.Fee != 0 {
		t.Fatalf("expected waiver with pizza in cart, got %+v", res)
	}
}

func TestDeliveryFeeThreshold(t *testing.T) {
	cfg := catalog.DeliveryConfig{Fee: 500, FreeAbove: 2500}

	above := DeliveryFee(catalog.ChannelDelivery, false, 3000, cfg)
	if !above.Waived || above.Fee != 0 {
		t.Fatalf("expected waiver above threshold, got %+v", above)
	}

	below := DeliveryFee(catalog.ChannelDelivery, false, 1000, cfg)
	if below.Waived || below.Fee != 500 {
		t.Fatalf("expected flat fee below threshold, got %+v", below)
	}
	if below.AmountToFreeDelivery != 1500 {
		t.Fatalf("expected 15€ to free delivery, got %d", below.AmountToFreeDelivery)
	}
}

func TestDeliveryFeeOtherChannels(t *testing.T) {
	cfg := catalog.DeliveryConfig{Fee: 500, FreeAbove: 2500}
	for _, ch := range []catalog.Channel{catalog.ChannelPickup, catalog.ChannelDineIn} {
		res := DeliveryFee(ch, false, 100, cfg)
		if res.Fee != 0 {
			t.Fatalf("channel %s must not carry a fee, got %+v", ch, res)
		}
	}
}
