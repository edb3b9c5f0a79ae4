package promo

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when no promo code exists for the given id.
var ErrNotFound = errors.New("promo code not found")

// DiscountType enumerates the supported promo discount strategies.
type DiscountType string

const (
	// DiscountPercentage applies a percentage of the subtotal, optionally
	// capped at MaxDiscount.
	DiscountPercentage DiscountType = "percentage"
	// DiscountFixed applies a fixed monetary discount.
	DiscountFixed DiscountType = "fixed"
)

// Code is a promotional discount code with its eligibility constraints.
type Code struct {
	ID           string
	Code         string
	DiscountType DiscountType
	Value        decimal.Decimal
	// MaxDiscount caps a percentage discount. Nil means uncapped.
	MaxDiscount *decimal.Decimal
	// MinOrder is the subtotal floor below which the code does not apply.
	// Nil means no floor.
	MinOrder  *decimal.Decimal
	MaxUses   int
	UsedCount int
	ExpiresAt *time.Time
	Active    bool
}

// Repository provides promo code lookups. Usage accounting happens inside the
// checkout transaction, not here.
type Repository interface {
	GetByID(ctx context.Context, id string) (*Code, error)
}

var hundred = decimal.NewFromInt(100)

// Eligible reports whether the code can be applied to an order with the given
// subtotal at the given time. An ineligible code is silently dropped by the
// checkout flow; it never blocks an order.
func (c *Code) Eligible(subtotal decimal.Decimal, now time.Time) bool {
	if !c.Active {
		return false
	}
	if c.ExpiresAt != nil && c.ExpiresAt.Before(now) {
		return false
	}
	if c.MaxUses > 0 && c.UsedCount >= c.MaxUses {
		return false
	}
	if c.MinOrder != nil && subtotal.LessThan(*c.MinOrder) {
		return false
	}
	return true
}

// DiscountFor computes the discount the code grants on the given subtotal,
// before any external clamping. Percentage discounts respect MaxDiscount;
// fixed discounts return the value verbatim. Unknown types yield zero.
func (c *Code) DiscountFor(subtotal decimal.Decimal) decimal.Decimal {
	switch c.DiscountType {
	case DiscountPercentage:
		amount := subtotal.Mul(c.Value).Div(hundred)
		if c.MaxDiscount != nil && amount.GreaterThan(*c.MaxDiscount) {
			amount = *c.MaxDiscount
		}
		return amount.Round(2)
	case DiscountFixed:
		return c.Value.Round(2)
	default:
		return decimal.Zero
	}
}

// Resolve validates the code against the subtotal and returns the resulting
// discount. clientCap is an untrusted client-suggested amount used only as an
// additional ceiling when positive, never as the source of truth. The final
// discount never exceeds the subtotal.
func Resolve(c *Code, subtotal, clientCap decimal.Decimal, now time.Time) decimal.Decimal {
	if c == nil || !c.Eligible(subtotal, now) {
		return decimal.Zero
	}

	amount := c.DiscountFor(subtotal)
	if clientCap.IsPositive() && clientCap.LessThan(amount) {
		amount = clientCap
	}
	if amount.GreaterThan(subtotal) {
		amount = subtotal
	}
	if amount.IsNegative() {
		return decimal.Zero
	}
	return amount.Round(2)
}
