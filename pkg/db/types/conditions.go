package dbtypes

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// ConditionKind names one of the closed set of rule conditions.
type ConditionKind string

const (
	ConditionMinQuantity   ConditionKind = "min_quantity"
	ConditionMaxQuantity   ConditionKind = "max_quantity"
	ConditionMinOrderValue ConditionKind = "min_order_value"
	ConditionMaxOrderValue ConditionKind = "max_order_value"
)

// Condition is the persisted form of a rule condition. Quantity kinds carry
// Quantity, order-value kinds carry Amount.
type Condition struct {
	Kind     ConditionKind    `json:"kind"`
	Quantity *int             `json:"quantity,omitempty"`
	Amount   *decimal.Decimal `json:"amount,omitempty"`
}

// Conditions is stored as a JSON array on pricing_rules.conditions.
type Conditions []Condition

func (c Conditions) Value() (driver.Value, error) {
	if len(c) == 0 {
		return "[]", nil
	}
	raw, err := json.Marshal([]Condition(c))
	if err != nil {
		return nil, fmt.Errorf("Conditions: marshal: %w", err)
	}
	return string(raw), nil
}

func (c *Conditions) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*c = Conditions{}
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("Conditions: unsupported Scan type %T", src)
	}
	if len(raw) == 0 || string(raw) == "null" {
		*c = Conditions{}
		return nil
	}
	var out []Condition
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("Conditions: unmarshal: %w", err)
	}
	*c = Conditions(out)
	return nil
}

// Validate rejects unknown kinds, missing operands, duplicates and inverted bounds.
func (c Conditions) Validate() error {
	seen := make(map[ConditionKind]struct{}, len(c))
	var minQty, maxQty *int
	var minValue, maxValue *decimal.Decimal
	for i, cond := range c {
		if _, dup := seen[cond.Kind]; dup {
			return fmt.Errorf("conditions[%d]: duplicate kind %q", i, cond.Kind)
		}
		seen[cond.Kind] = struct{}{}

		switch cond.Kind {
		case ConditionMinQuantity, ConditionMaxQuantity:
			if cond.Quantity == nil {
				return fmt.Errorf("conditions[%d]: %s requires quantity", i, cond.Kind)
			}
			if *cond.Quantity < 0 {
				return fmt.Errorf("conditions[%d]: %s must not be negative", i, cond.Kind)
			}
			if cond.Amount != nil {
				return fmt.Errorf("conditions[%d]: %s does not take an amount", i, cond.Kind)
			}
			if cond.Kind == ConditionMinQuantity {
				minQty = cond.Quantity
			} else {
				maxQty = cond.Quantity
			}
		case ConditionMinOrderValue, ConditionMaxOrderValue:
			if cond.Amount == nil {
				return fmt.Errorf("conditions[%d]: %s requires amount", i, cond.Kind)
			}
			if cond.Amount.IsNegative() {
				return fmt.Errorf("conditions[%d]: %s must not be negative", i, cond.Kind)
			}
			if cond.Quantity != nil {
				return fmt.Errorf("conditions[%d]: %s does not take a quantity", i, cond.Kind)
			}
			if cond.Kind == ConditionMinOrderValue {
				minValue = cond.Amount
			} else {
				maxValue = cond.Amount
			}
		default:
			return fmt.Errorf("conditions[%d]: unknown kind %q", i, cond.Kind)
		}
	}
	if minQty != nil && maxQty != nil && *minQty > *maxQty {
		return fmt.Errorf("conditions: min_quantity %d exceeds max_quantity %d", *minQty, *maxQty)
	}
	if minValue != nil && maxValue != nil && minValue.GreaterThan(*maxValue) {
		return fmt.Errorf("conditions: min_order_value %s exceeds max_order_value %s", minValue, maxValue)
	}
	return nil
}
