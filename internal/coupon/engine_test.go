package coupon

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/lojinha-app/backend-lojinha/internal/cart"
)

var now = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

func activeCoupon(t Type, value int64) Coupon {
	return Coupon{
		ID:         uuid.New(),
		Code:       "PROMO10",
		Type:       t,
		Value:      value,
		ValidFrom:  now.Add(-24 * time.Hour),
		ValidUntil: now.Add(24 * time.Hour),
		Active:     true,
	}
}

func snapshotWith(lines ...cart.Line) cart.Snapshot {
	return cart.Snapshot{Lines: lines}
}

func TestValidateOrderOfChecks(t *testing.T) {
	limit := int32(5)
	minOrder := int64(5000)
	c := activeCoupon(TypePercentage, 10)
	c.UsageLimit = &limit
	c.UsedCount = 5
	c.MinOrderValue = &minOrder
	c.Active = false

	// Inactive wins over everything else.
	if err := Validate(c, snapshotWith(), 100, now); !errors.Is(err, ErrInactive) {
		t.Fatalf("expected ErrInactive, got %v", err)
	}
}

func TestValidateTemporalWindow(t *testing.T) {
	c := activeCoupon(TypePercentage, 10)

	c.ValidFrom = now.Add(time.Hour)
	if err := Validate(c, snapshotWith(), 100, now); !errors.Is(err, ErrNotYetValid) {
		t.Fatalf("expected ErrNotYetValid, got %v", err)
	}

	c = activeCoupon(TypePercentage, 10)
	c.ValidUntil = now.Add(-time.Hour)
	if err := Validate(c, snapshotWith(), 100, now); !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired, got %v", err)
	}
}

func TestValidateExpiryWinsRegardlessOfOtherFields(t *testing.T) {
	minOrder := int64(1)
	c := activeCoupon(TypeFixed, 100)
	c.ValidUntil = now.Add(-time.Minute)
	c.MinOrderValue = &minOrder
	if err := Validate(c, snapshotWith(), 1_000_000, now); !errors.Is(err, ErrExpired) {
		t.Fatalf("expired coupon must always fail with ErrExpired, got %v", err)
	}
}

func TestValidateUsageLimit(t *testing.T) {
	limit := int32(3)
	c := activeCoupon(TypeFixed, 100)
	c.UsageLimit = &limit
	c.UsedCount = 3
	if err := Validate(c, snapshotWith(), 100, now); !errors.Is(err, ErrUsageLimitReached) {
		t.Fatalf("expected ErrUsageLimitReached, got %v", err)
	}

	c.UsedCount = 2
	if err := Validate(c, snapshotWith(), 100, now); err != nil {
		t.Fatalf("coupon with remaining uses must validate, got %v", err)
	}
}

func TestValidateMinimumOrder(t *testing.T) {
	minOrder := int64(5000)
	c := activeCoupon(TypePercentage, 10)
	c.MinOrderValue = &minOrder

	err := Validate(c, snapshotWith(), 4000, now)
	if !errors.Is(err, ErrBelowMinimum) {
		t.Fatalf("expected ErrBelowMinimum, got %v", err)
	}
	if !strings.Contains(err.Error(), "5000") {
		t.Fatalf("error must carry the minimum for display, got %q", err)
	}

	if err := Validate(c, snapshotWith(), 10_000, now); err != nil {
		t.Fatalf("cart above minimum must validate, got %v", err)
	}
}

func TestValidateCategoryScope(t *testing.T) {
	catA := uuid.New()
	catB := uuid.New()
	c := activeCoupon(TypePercentage, 10)
	c.ApplicableCategories = []uuid.UUID{catA}

	outside := snapshotWith(cart.Line{ProductID: uuid.New(), CategoryID: &catB, Qty: 1, UnitPrice: 100})
	if err := Validate(c, outside, 100, now); !errors.Is(err, ErrNotApplicable) {
		t.Fatalf("expected ErrNotApplicable, got %v", err)
	}

	inside := snapshotWith(
		cart.Line{ProductID: uuid.New(), CategoryID: &catB, Qty: 1, UnitPrice: 100},
		cart.Line{ProductID: uuid.New(), CategoryID: &catA, Qty: 1, UnitPrice: 100},
	)
	if err := Validate(c, inside, 200, now); err != nil {
		t.Fatalf("one matching line is enough, got %v", err)
	}
}

func TestValidateExcludedProducts(t *testing.T) {
	banned := uuid.New()
	c := activeCoupon(TypeFixed, 500)
	c.ExcludedProducts = []uuid.UUID{banned}

	snap := snapshotWith(
		cart.Line{ProductID: uuid.New(), Qty: 1, UnitPrice: 100},
		cart.Line{ProductID: banned, Qty: 1, UnitPrice: 100},
	)
	if err := Validate(c, snap, 200, now); !errors.Is(err, ErrExcludedProduct) {
		t.Fatalf("expected ErrExcludedProduct, got %v", err)
	}
}

func TestCalculateDiscountPercentageClampedToCartTotal(t *testing.T) {
	c := activeCoupon(TypePercentage, 200)
	if got := CalculateDiscount(c, 100); got != 100 {
		t.Fatalf("200%% of 100 must clamp to 100, got %d", got)
	}
}

func TestCalculateDiscountMaxDiscountCap(t *testing.T) {
	maxDiscount := int64(30)
	c := activeCoupon(TypeFixed, 50)
	c.MaxDiscount = &maxDiscount
	if got := CalculateDiscount(c, 100); got != 30 {
		t.Fatalf("fixed 50 capped at 30 must yield 30, got %d", got)
	}
}

func TestCalculateDiscountPercentage(t *testing.T) {
	c := activeCoupon(TypePercentage, 10)
	if got := CalculateDiscount(c, 100); got != 10 {
		t.Fatalf("10%% of 100 must be 10, got %d", got)
	}
}

func TestCalculateDiscountShippingIsZero(t *testing.T) {
	c := activeCoupon(TypeShipping, 0)
	if got := CalculateDiscount(c, 10_000); got != 0 {
		t.Fatalf("shipping coupon must yield 0 cart discount, got %d", got)
	}
}

func TestCalculateDiscountNeverNegative(t *testing.T) {
	c := activeCoupon(TypeFixed, -500)
	if got := CalculateDiscount(c, 100); got != 0 {
		t.Fatalf("discount must floor at 0, got %d", got)
	}
}

func TestCanonicalCode(t *testing.T) {
	if got := CanonicalCode("  promo10 "); got != "PROMO10" {
		t.Fatalf("expected PROMO10, got %q", got)
	}
}

func TestDescribe(t *testing.T) {
	limit := int32(10)
	minOrder := int64(5000)
	c := activeCoupon(TypePercentage, 15)
	c.MinOrderValue = &minOrder
	c.UsageLimit = &limit
	c.UsedCount = 4

	desc := Describe(c)
	for _, want := range []string{"15%", "R$ 50,00", "6 usos restantes"} {
		if !strings.Contains(desc, want) {
			t.Fatalf("description %q missing %q", desc, want)
		}
	}

	free := activeCoupon(TypeShipping, 0)
	if !strings.Contains(Describe(free), "frete grátis") {
		t.Fatalf("shipping coupon description: %q", Describe(free))
	}
}
