package enums

import "fmt"

// CustomerTier is the loyalty band a customer is assigned to.
type CustomerTier string

const (
	CustomerTierStandard CustomerTier = "standard"
	CustomerTierSilver   CustomerTier = "silver"
	CustomerTierGold     CustomerTier = "gold"
	CustomerTierPlatinum CustomerTier = "platinum"
	CustomerTierVIP      CustomerTier = "vip"
)

var validCustomerTiers = []CustomerTier{
	CustomerTierStandard,
	CustomerTierSilver,
	CustomerTierGold,
	CustomerTierPlatinum,
	CustomerTierVIP,
}

// String implements fmt.Stringer.
func (v CustomerTier) String() string {
	return string(v)
}

// IsValid reports whether the value is a known CustomerTier.
func (v CustomerTier) IsValid() bool {
	for _, candidate := range validCustomerTiers {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseCustomerTier converts raw input into a CustomerTier.
func ParseCustomerTier(value string) (CustomerTier, error) {
	for _, candidate := range validCustomerTiers {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid customer tier %q", value)
}
