package enums

import "fmt"

// DiscountType selects how a discount value is turned into an amount.
type DiscountType string

const (
	DiscountTypePercentage  DiscountType = "percentage"
	DiscountTypeFixedAmount DiscountType = "fixed_amount"
	DiscountTypeFixedPrice  DiscountType = "fixed_price"
	DiscountTypeBuyXGetY    DiscountType = "buy_x_get_y"
)

var validDiscountTypes = []DiscountType{
	DiscountTypePercentage,
	DiscountTypeFixedAmount,
	DiscountTypeFixedPrice,
	DiscountTypeBuyXGetY,
}

// String implements fmt.Stringer.
func (v DiscountType) String() string {
	return string(v)
}

// IsValid reports whether the value is a known DiscountType.
func (v DiscountType) IsValid() bool {
	for _, candidate := range validDiscountTypes {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseDiscountType converts raw input into a DiscountType.
func ParseDiscountType(value string) (DiscountType, error) {
	for _, candidate := range validDiscountTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid discount type %q", value)
}

// DiscountSource identifies which pipeline stage produced an applied discount.
type DiscountSource string

const (
	DiscountSourceCustomerTier   DiscountSource = "customer_tier"
	DiscountSourcePricingRule    DiscountSource = "pricing_rule"
	DiscountSourceVolumeDiscount DiscountSource = "volume_discount"
	DiscountSourcePromotion      DiscountSource = "promotion"
)

var validDiscountSources = []DiscountSource{
	DiscountSourceCustomerTier,
	DiscountSourcePricingRule,
	DiscountSourceVolumeDiscount,
	DiscountSourcePromotion,
}

// String implements fmt.Stringer.
func (v DiscountSource) String() string {
	return string(v)
}

// IsValid reports whether the value is a known DiscountSource.
func (v DiscountSource) IsValid() bool {
	for _, candidate := range validDiscountSources {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseDiscountSource converts raw input into a DiscountSource.
func ParseDiscountSource(value string) (DiscountSource, error) {
	for _, candidate := range validDiscountSources {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid discount source %q", value)
}
