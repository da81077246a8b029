package promo

import (
	"commerce-pricing/internal/domain"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Discount is the price-changing part of the first matching discount rule.
type Discount struct {
	Kind   domain.RuleKind
	Value  decimal.Decimal
	RuleID string
}

// NoDiscount is applied to lines no discount rule matches.
var NoDiscount = Discount{Kind: domain.KindAbsolute, Value: decimal.Zero}

// UnitPrice returns the per-unit price after the discount. Absolute
// discounts larger than the price yield a negative value; clamping happens
// on the line total.
func (d Discount) UnitPrice(unit decimal.Decimal) decimal.Decimal {
	switch d.Kind {
	case domain.KindAbsolute:
		return unit.Sub(d.Value)
	case domain.KindPercentage:
		return unit.Mul(hundred.Sub(d.Value)).Div(hundred)
	default:
		return unit
	}
}

// LineTotal is unit*qty floored at zero.
func LineTotal(unit decimal.Decimal, qty int) decimal.Decimal {
	total := unit.Mul(decimal.NewFromInt(int64(qty)))
	if total.IsNegative() {
		return decimal.Zero
	}
	return total
}

// Gift is one gift grant derived from a gift rule.
type Gift struct {
	ItemID string
	Policy domain.GiftPolicy
	RuleID string
}
