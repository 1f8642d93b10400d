// Package pricing computes the order breakdown. The breakdown is decided
// once at order-creation time and always fully populated, never a partial
// set of optional fields.
package pricing

// Money represents a monetary value in centavos.
type Money = int64

// Item describes a line item used for pricing calculation.
type Item struct {
	Qty       int64
	UnitPrice Money
}

// Summary aggregates the computed pricing components.
type Summary struct {
	Subtotal     Money
	Discount     Money
	Shipping     Money
	FreeShipping bool
	Total        Money
}

// Compute calculates cart totals. A shipping-type coupon reports a zero cart
// discount and sets freeShipping instead; the waiver is applied here, to the
// shipping component, so the two can never double-account.
func Compute(items []Item, discount Money, shipping Money, freeShipping bool) Summary {
	var subtotal Money
	for _, it := range items {
		if it.Qty <= 0 {
			continue
		}
		subtotal += it.Qty * it.UnitPrice
	}
	if discount > subtotal {
		discount = subtotal
	}
	if discount < 0 {
		discount = 0
	}
	if shipping < 0 {
		shipping = 0
	}
	if freeShipping {
		shipping = 0
	}
	return Summary{
		Subtotal:     subtotal,
		Discount:     discount,
		Shipping:     shipping,
		FreeShipping: freeShipping,
		Total:        subtotal - discount + shipping,
	}
}
