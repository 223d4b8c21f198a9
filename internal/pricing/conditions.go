package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"

	dbtypes "github.com/angelmondragon/pricing-engine/pkg/db/types"
)

// Condition is one compiled rule condition. The variants below are the complete set.
type Condition interface {
	Satisfied(quantity int, orderTotal *decimal.Decimal) bool
	sealed()
}

// MinQuantity requires at least Quantity units on the line.
type MinQuantity struct{ Quantity int }

// MaxQuantity caps the line at Quantity units.
type MaxQuantity struct{ Quantity int }

// MinOrderValue and MaxOrderValue only bind when the request carries an order total.
type MinOrderValue struct{ Amount decimal.Decimal }
type MaxOrderValue struct{ Amount decimal.Decimal }

func (c MinQuantity) Satisfied(quantity int, _ *decimal.Decimal) bool { return quantity >= c.Quantity }
func (MinQuantity) sealed()                                           {}

func (c MaxQuantity) Satisfied(quantity int, _ *decimal.Decimal) bool { return quantity <= c.Quantity }
func (MaxQuantity) sealed()                                           {}

func (c MinOrderValue) Satisfied(_ int, orderTotal *decimal.Decimal) bool {
	return orderTotal == nil || orderTotal.GreaterThanOrEqual(c.Amount)
}
func (MinOrderValue) sealed() {}

func (c MaxOrderValue) Satisfied(_ int, orderTotal *decimal.Decimal) bool {
	return orderTotal == nil || orderTotal.LessThanOrEqual(c.Amount)
}
func (MaxOrderValue) sealed() {}

// CompileConditions validates the stored condition list and converts it to variants.
func CompileConditions(raw dbtypes.Conditions) ([]Condition, error) {
	if err := raw.Validate(); err != nil {
		return nil, err
	}
	out := make([]Condition, 0, len(raw))
	for _, c := range raw {
		switch c.Kind {
		case dbtypes.ConditionMinQuantity:
			out = append(out, MinQuantity{Quantity: *c.Quantity})
		case dbtypes.ConditionMaxQuantity:
			out = append(out, MaxQuantity{Quantity: *c.Quantity})
		case dbtypes.ConditionMinOrderValue:
			out = append(out, MinOrderValue{Amount: *c.Amount})
		case dbtypes.ConditionMaxOrderValue:
			out = append(out, MaxOrderValue{Amount: *c.Amount})
		default:
			return nil, fmt.Errorf("unknown condition kind %q", c.Kind)
		}
	}
	return out, nil
}

func conditionsSatisfied(conds []Condition, quantity int, orderTotal *decimal.Decimal) bool {
	for _, c := range conds {
		if !c.Satisfied(quantity, orderTotal) {
			return false
		}
	}
	return true
}
