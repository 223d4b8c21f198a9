package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/pricing-engine/pkg/enums"
)

var hundred = decimal.NewFromInt(100)

// Discount converts a configured value into a per-unit amount off the current price.
// The set of implementations is closed; see NewDiscount.
type Discount interface {
	Type() enums.DiscountType
	Value() decimal.Decimal
	Compute(current decimal.Decimal, quantity int) decimal.Decimal
	sealed()
}

// PercentageOff takes Percent percent off the current price.
type PercentageOff struct{ Percent decimal.Decimal }

// AmountOff takes a flat amount off the unit price. Quantity scaling happens in the line total.
type AmountOff struct{ Off decimal.Decimal }

// FixedPrice sets the unit price to Target; it never raises the price.
type FixedPrice struct{ Target decimal.Decimal }

// BuyXGetY needs basket context, so it contributes nothing to a single line.
type BuyXGetY struct {
	Buy int
	Get int
}

func (d PercentageOff) Type() enums.DiscountType { return enums.DiscountTypePercentage }
func (d PercentageOff) Value() decimal.Decimal   { return d.Percent }
func (d PercentageOff) Compute(current decimal.Decimal, _ int) decimal.Decimal {
	return roundMoney(current.Mul(d.Percent).Div(hundred))
}
func (PercentageOff) sealed() {}

func (d AmountOff) Type() enums.DiscountType { return enums.DiscountTypeFixedAmount }
func (d AmountOff) Value() decimal.Decimal   { return d.Off }
func (d AmountOff) Compute(decimal.Decimal, int) decimal.Decimal {
	return roundMoney(d.Off)
}
func (AmountOff) sealed() {}

func (d FixedPrice) Type() enums.DiscountType { return enums.DiscountTypeFixedPrice }
func (d FixedPrice) Value() decimal.Decimal   { return d.Target }
func (d FixedPrice) Compute(current decimal.Decimal, _ int) decimal.Decimal {
	if d.Target.GreaterThanOrEqual(current) {
		return decimal.Zero
	}
	return roundMoney(current.Sub(d.Target))
}
func (FixedPrice) sealed() {}

func (d BuyXGetY) Type() enums.DiscountType { return enums.DiscountTypeBuyXGetY }
func (d BuyXGetY) Value() decimal.Decimal   { return decimal.Zero }
func (BuyXGetY) Compute(decimal.Decimal, int) decimal.Decimal {
	return decimal.Zero
}
func (BuyXGetY) sealed() {}

// NewDiscount builds the Discount variant for a stored type/value pair.
func NewDiscount(kind enums.DiscountType, value decimal.Decimal) (Discount, error) {
	if value.IsNegative() {
		return nil, fmt.Errorf("discount value must not be negative, got %s", value)
	}
	switch kind {
	case enums.DiscountTypePercentage:
		if value.GreaterThan(hundred) {
			return nil, fmt.Errorf("percentage discount must not exceed 100, got %s", value)
		}
		return PercentageOff{Percent: value}, nil
	case enums.DiscountTypeFixedAmount:
		return AmountOff{Off: value}, nil
	case enums.DiscountTypeFixedPrice:
		return FixedPrice{Target: value}, nil
	case enums.DiscountTypeBuyXGetY:
		return BuyXGetY{}, nil
	default:
		return nil, fmt.Errorf("unknown discount type %q", kind)
	}
}

// boundAmount applies the optional cap and keeps the amount within [0, current].
func boundAmount(amount decimal.Decimal, maxAmount *decimal.Decimal, current decimal.Decimal) decimal.Decimal {
	if maxAmount != nil && amount.GreaterThan(*maxAmount) {
		amount = *maxAmount
	}
	if amount.GreaterThan(current) {
		amount = current
	}
	if amount.IsNegative() {
		return decimal.Zero
	}
	return roundMoney(amount)
}

// roundMoney rounds to cents, half away from zero (half-up for the non-negative
// amounts priced here).
func roundMoney(v decimal.Decimal) decimal.Decimal {
	return v.Round(2)
}
