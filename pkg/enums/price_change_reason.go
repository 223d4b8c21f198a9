package enums

import "fmt"

// PriceChangeReason explains why a price history row was written.
type PriceChangeReason string

const (
	PriceChangeReasonInitialPrice        PriceChangeReason = "initial_price"
	PriceChangeReasonCostChange          PriceChangeReason = "cost_change"
	PriceChangeReasonMarketAdjustment    PriceChangeReason = "market_adjustment"
	PriceChangeReasonCompetitorPrice     PriceChangeReason = "competitor_price"
	PriceChangeReasonPromotion           PriceChangeReason = "promotion"
	PriceChangeReasonSeasonal            PriceChangeReason = "seasonal"
	PriceChangeReasonClearance           PriceChangeReason = "clearance"
	PriceChangeReasonPriceCorrection     PriceChangeReason = "price_correction"
	PriceChangeReasonSupplierChange      PriceChangeReason = "supplier_change"
	PriceChangeReasonCurrencyFluctuation PriceChangeReason = "currency_fluctuation"
	PriceChangeReasonManualOverride      PriceChangeReason = "manual_override"
	PriceChangeReasonManualAdjustment    PriceChangeReason = "manual_adjustment"
	PriceChangeReasonChannelPrice        PriceChangeReason = "channel_price"
)

var validPriceChangeReasons = []PriceChangeReason{
	PriceChangeReasonInitialPrice,
	PriceChangeReasonCostChange,
	PriceChangeReasonMarketAdjustment,
	PriceChangeReasonCompetitorPrice,
	PriceChangeReasonPromotion,
	PriceChangeReasonSeasonal,
	PriceChangeReasonClearance,
	PriceChangeReasonPriceCorrection,
	PriceChangeReasonSupplierChange,
	PriceChangeReasonCurrencyFluctuation,
	PriceChangeReasonManualOverride,
	PriceChangeReasonManualAdjustment,
	PriceChangeReasonChannelPrice,
}

// String implements fmt.Stringer.
func (v PriceChangeReason) String() string {
	return string(v)
}

// IsValid reports whether the value is a known PriceChangeReason.
func (v PriceChangeReason) IsValid() bool {
	for _, candidate := range validPriceChangeReasons {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParsePriceChangeReason converts raw input into a PriceChangeReason.
func ParsePriceChangeReason(value string) (PriceChangeReason, error) {
	for _, candidate := range validPriceChangeReasons {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid price change reason %q", value)
}
