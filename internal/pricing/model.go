package pricing

import (
	"fmt"

	"github.com/twinpizza/backend-orders/internal/customize"
)

// Money represents a monetary value stored in euro cents.
type Money = int64

// FormatEUR renders cents as a human-readable euro amount, e.g. "18.50€".
func FormatEUR(cents Money) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d€", sign, cents/100, cents%100)
}

// LineItem is one cart entry. ResolvedUnitPrice, when present, was locked in
// by a selection wizard and overrides any price derivable from ProductRef.
// Bulk items are the exception: they are always priced by the tier ladder
// over the combined unit count, and a locked price is dropped with a warning.
type LineItem struct {
	ID                 string                   `json:"id"`
	ProductRef         string                   `json:"productRef" validate:"required,max=100"`
	Quantity           int                      `json:"quantity" validate:"gte=0"`
	Customization      *customize.Customization `json:"customization,omitempty"`
	ResolvedUnitPrice  *Money                   `json:"resolvedUnitPrice,omitempty"`
}

// Warning is a non-fatal data-integrity problem found while pricing. The
// affected part is priced as zero cost; the cart total stays valid.
type Warning struct {
	LineItemID string `json:"lineItemId"`
	Reason     string `json:"reason"`
}

// CartTotal is the single source of truth the checkout and the kitchen
// ticket must agree on. It is recomputed from scratch on every pricing call
// and never mutated incrementally.
type CartTotal struct {
	Subtotal          Money `json:"subtotal"`
	PromotionDiscount Money `json:"promotionDiscount"`
	DeliveryFee       Money `json:"deliveryFee"`
	GrandTotal        Money `json:"grandTotal"`
}

// VATBreakdown splits a gross total into net and 10% VAT for the receipt.
type VATBreakdown struct {
	HT  Money `json:"ht"`
	TVA Money `json:"tva"`
	TTC Money `json:"ttc"`
}

// VATFromGross derives the breakdown from a VAT-inclusive total at the 10%
// restauration rate, rounding the net part to the nearest cent.
func VATFromGross(ttc Money) VATBreakdown {
	ht := (ttc*20 + 11) / 22
	return VATBreakdown{HT: ht, TVA: ttc - ht, TTC: ttc}
}
