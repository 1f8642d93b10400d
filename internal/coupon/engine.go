// Package coupon implements discount coupon validation and amount
// calculation. The engine is a pure validator/calculator over a coupon and a
// cart snapshot: it never increments usage counters, that is the store's
// responsibility at redemption time.
package coupon

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lojinha-app/backend-lojinha/internal/cart"
)

// Type enumerates the supported discount kinds.
type Type string

const (
	TypePercentage Type = "percentage"
	TypeFixed      Type = "fixed"
	TypeShipping   Type = "shipping"
)

var (
	// ErrInactive is returned when the coupon has been switched off.
	ErrInactive = errors.New("coupon not active")
	// ErrNotYetValid is returned before the validity window opens.
	ErrNotYetValid = errors.New("coupon not yet valid")
	// ErrExpired is returned after the validity window closes.
	ErrExpired = errors.New("coupon expired")
	// ErrUsageLimitReached indicates the global usage quota is exhausted.
	ErrUsageLimitReached = errors.New("coupon usage limit reached")
	// ErrBelowMinimum indicates the cart total does not meet the coupon's
	// minimum order value. Wrapped errors carry the minimum for display.
	ErrBelowMinimum = errors.New("cart total below coupon minimum")
	// ErrNotApplicable indicates no cart line belongs to the coupon's
	// applicable categories.
	ErrNotApplicable = errors.New("coupon not applicable to cart")
	// ErrExcludedProduct indicates the cart contains a product the coupon
	// explicitly excludes.
	ErrExcludedProduct = errors.New("cart contains product excluded from coupon")
)

// Coupon captures the runtime constraints of a discount code. Code is stored
// canonicalized to uppercase; nil pointer fields mean "unconstrained".
// Values are in centavos except Value for percentage coupons, which is a
// whole percent.
type Coupon struct {
	ID                   uuid.UUID
	StoreID              uuid.UUID
	Code                 string
	Type                 Type
	Value                int64
	MinOrderValue        *int64
	MaxDiscount          *int64
	UsageLimit           *int32
	UsedCount            int32
	ValidFrom            time.Time
	ValidUntil           time.Time
	Active               bool
	ApplicableCategories []uuid.UUID
	ExcludedProducts     []uuid.UUID
}

// CanonicalCode normalizes a user-supplied code for lookup and comparison.
func CanonicalCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Validate runs the eligibility checks in a fixed order; the first failing
// check wins. Pure: no side effects and no mutation of UsedCount.
func Validate(c Coupon, snap cart.Snapshot, cartTotal int64, now time.Time) error {
	if !c.Active {
		return ErrInactive
	}
	if now.Before(c.ValidFrom) {
		return ErrNotYetValid
	}
	if now.After(c.ValidUntil) {
		return ErrExpired
	}
	if c.UsageLimit != nil && c.UsedCount >= *c.UsageLimit {
		return ErrUsageLimitReached
	}
	if c.MinOrderValue != nil && cartTotal < *c.MinOrderValue {
		return fmt.Errorf("%w: minimum is %d centavos", ErrBelowMinimum, *c.MinOrderValue)
	}
	if len(c.ApplicableCategories) > 0 && !anyLineInCategories(snap.Lines, c.ApplicableCategories) {
		return ErrNotApplicable
	}
	if len(c.ExcludedProducts) > 0 && anyLineExcluded(snap.Lines, c.ExcludedProducts) {
		return ErrExcludedProduct
	}
	return nil
}

func anyLineInCategories(lines []cart.Line, categories []uuid.UUID) bool {
	for _, line := range lines {
		if line.CategoryID == nil {
			continue
		}
		for _, id := range categories {
			if *line.CategoryID == id {
				return true
			}
		}
	}
	return false
}

func anyLineExcluded(lines []cart.Line, excluded []uuid.UUID) bool {
	for _, line := range lines {
		for _, id := range excluded {
			if line.ProductID == id {
				return true
			}
		}
	}
	return false
}

// CalculateDiscount computes the cart discount in centavos. Shipping coupons
// return 0 here: the waiver is applied to the shipping component by the
// pricing engine, and callers must not double-account it.
func CalculateDiscount(c Coupon, cartTotal int64) int64 {
	var discount int64
	switch c.Type {
	case TypePercentage:
		discount = cartTotal * c.Value / 100
	case TypeFixed:
		discount = c.Value
	case TypeShipping:
		return 0
	default:
		return 0
	}
	if c.MaxDiscount != nil && discount > *c.MaxDiscount {
		discount = *c.MaxDiscount
	}
	if discount > cartTotal {
		discount = cartTotal
	}
	if discount < 0 {
		return 0
	}
	return discount
}

// Describe renders a short human-readable summary of the coupon terms.
func Describe(c Coupon) string {
	var b strings.Builder
	switch c.Type {
	case TypePercentage:
		fmt.Fprintf(&b, "%d%% de desconto", c.Value)
	case TypeFixed:
		fmt.Fprintf(&b, "%s de desconto", formatBRL(c.Value))
	case TypeShipping:
		b.WriteString("frete grátis")
	default:
		b.WriteString("cupom")
	}
	if c.MinOrderValue != nil {
		fmt.Fprintf(&b, " para pedidos acima de %s", formatBRL(*c.MinOrderValue))
	}
	if c.UsageLimit != nil {
		remaining := *c.UsageLimit - c.UsedCount
		if remaining < 0 {
			remaining = 0
		}
		fmt.Fprintf(&b, " (%d usos restantes)", remaining)
	}
	return b.String()
}

func formatBRL(centavos int64) string {
	return fmt.Sprintf("R$ %d,%02d", centavos/100, centavos%100)
}
