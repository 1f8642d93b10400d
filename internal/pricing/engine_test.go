package pricing

import "testing"

func TestComputeBreakdown(t *testing.T) {
	items := []Item{
		{Qty: 2, UnitPrice: 2500},
		{Qty: 1, UnitPrice: 1000},
	}
	summary := Compute(items, 500, 1500, false)
	if summary.Subtotal != 6000 {
		t.Fatalf("subtotal = %d, want 6000", summary.Subtotal)
	}
	if summary.Total != 7000 {
		t.Fatalf("total = %d, want 7000", summary.Total)
	}
}

func TestComputeDiscountClampedToSubtotal(t *testing.T) {
	summary := Compute([]Item{{Qty: 1, UnitPrice: 100}}, 500, 0, false)
	if summary.Discount != 100 || summary.Total != 0 {
		t.Fatalf("discount must clamp to subtotal: %+v", summary)
	}
}

func TestComputeFreeShippingWaivesShippingOnly(t *testing.T) {
	summary := Compute([]Item{{Qty: 1, UnitPrice: 5000}}, 0, 1800, true)
	if summary.Shipping != 0 {
		t.Fatalf("shipping must be waived, got %d", summary.Shipping)
	}
	if summary.Total != 5000 {
		t.Fatalf("total = %d, want 5000", summary.Total)
	}
	if !summary.FreeShipping {
		t.Fatalf("breakdown must record the waiver")
	}
}

func TestComputeIgnoresNonPositiveQty(t *testing.T) {
	summary := Compute([]Item{{Qty: 0, UnitPrice: 100}, {Qty: -2, UnitPrice: 100}}, 0, 0, false)
	if summary.Subtotal != 0 {
		t.Fatalf("subtotal = %d, want 0", summary.Subtotal)
	}
}

func TestComputeNegativeInputsFloored(t *testing.T) {
	summary := Compute([]Item{{Qty: 1, UnitPrice: 1000}}, -50, -300, false)
	if summary.Discount != 0 || summary.Shipping != 0 || summary.Total != 1000 {
		t.Fatalf("negative discount/shipping must floor at zero: %+v", summary)
	}
}
