package enums

import "fmt"

// RuleType classifies a pricing rule for reporting and filtering.
type RuleType string

const (
	RuleTypeChannel          RuleType = "channel"
	RuleTypeVolume           RuleType = "volume"
	RuleTypePromotional      RuleType = "promotional"
	RuleTypeCustomerTier     RuleType = "customer_tier"
	RuleTypeCustomerSpecific RuleType = "customer_specific"
	RuleTypeBundle           RuleType = "bundle"
	RuleTypeSeasonal         RuleType = "seasonal"
	RuleTypeDynamic          RuleType = "dynamic"
	RuleTypeClearance        RuleType = "clearance"
)

var validRuleTypes = []RuleType{
	RuleTypeChannel,
	RuleTypeVolume,
	RuleTypePromotional,
	RuleTypeCustomerTier,
	RuleTypeCustomerSpecific,
	RuleTypeBundle,
	RuleTypeSeasonal,
	RuleTypeDynamic,
	RuleTypeClearance,
}

// String implements fmt.Stringer.
func (v RuleType) String() string {
	return string(v)
}

// IsValid reports whether the value is a known RuleType.
func (v RuleType) IsValid() bool {
	for _, candidate := range validRuleTypes {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseRuleType converts raw input into a RuleType.
func ParseRuleType(value string) (RuleType, error) {
	for _, candidate := range validRuleTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid rule type %q", value)
}

// RuleStatus tracks the lifecycle of pricing rules and promotions.
type RuleStatus string

const (
	RuleStatusDraft     RuleStatus = "draft"
	RuleStatusActive    RuleStatus = "active"
	RuleStatusScheduled RuleStatus = "scheduled"
	RuleStatusPaused    RuleStatus = "paused"
	RuleStatusExpired   RuleStatus = "expired"
	RuleStatusArchived  RuleStatus = "archived"
)

var validRuleStatuses = []RuleStatus{
	RuleStatusDraft,
	RuleStatusActive,
	RuleStatusScheduled,
	RuleStatusPaused,
	RuleStatusExpired,
	RuleStatusArchived,
}

// String implements fmt.Stringer.
func (v RuleStatus) String() string {
	return string(v)
}

// IsValid reports whether the value is a known RuleStatus.
func (v RuleStatus) IsValid() bool {
	for _, candidate := range validRuleStatuses {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseRuleStatus converts raw input into a RuleStatus.
func ParseRuleStatus(value string) (RuleStatus, error) {
	for _, candidate := range validRuleStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid rule status %q", value)
}
