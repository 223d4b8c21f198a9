package pricing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/pricing-engine/pkg/enums"
)

// CustomerRef identifies the buyer. At most one of the ids is set.
type CustomerRef struct {
	UserID              *uuid.UUID
	WholesaleCustomerID *uuid.UUID
}

// IsZero reports whether no customer is referenced.
func (c CustomerRef) IsZero() bool {
	return c.UserID == nil && c.WholesaleCustomerID == nil
}

// String renders the reference for logs.
func (c CustomerRef) String() string {
	switch {
	case c.UserID != nil:
		return "user:" + c.UserID.String()
	case c.WholesaleCustomerID != nil:
		return "wholesale:" + c.WholesaleCustomerID.String()
	default:
		return ""
	}
}

// Target is the single item being priced. When both ids are set the variant is
// the item and the product is its parent.
type Target struct {
	ProductID  *uuid.UUID
	VariantID  *uuid.UUID
	CategoryID *uuid.UUID
}

// Request is the input of one price calculation.
type Request struct {
	Target         Target
	BasePrice      *decimal.Decimal
	CompareAtPrice *decimal.Decimal
	Quantity       int
	Channel        enums.Channel
	Currency       string
	Customer       CustomerRef
	PromotionCode  string
	OrderTotal     *decimal.Decimal
}

// AppliedDiscount is one entry of the itemized discount trail.
type AppliedDiscount struct {
	Type        enums.DiscountType
	Value       decimal.Decimal
	Amount      decimal.Decimal
	Source      enums.DiscountSource
	RuleID      *uuid.UUID
	PromotionID *uuid.UUID
	Name        string
}

// Response is the result of one price calculation.
type Response struct {
	OriginalPrice      decimal.Decimal
	FinalPrice         decimal.Decimal
	DiscountAmount     decimal.Decimal
	DiscountPercentage decimal.Decimal
	AppliedDiscounts   []AppliedDiscount
	Quantity           int
	LineTotal          decimal.Decimal
	OriginalLineTotal  decimal.Decimal
	CompareAtPrice     *decimal.Decimal
	Currency           string
	CustomerTier       *enums.CustomerTier
	PromotionValid     *bool
	PromotionMessage   *string
}

// PromotionCheck is the input of an explicit promotion code validation.
type PromotionCheck struct {
	Code       string
	Channel    enums.Channel
	OrderValue decimal.Decimal
	Customer   CustomerRef
	Now        time.Time
}

// ChannelPriceQuery selects the effective channel price for an item.
type ChannelPriceQuery struct {
	ProductID *uuid.UUID
	VariantID *uuid.UUID
	Channel   enums.Channel
	Now       time.Time
}

// RuleQuery selects candidate rules; the matcher applies the per-request checks.
type RuleQuery struct {
	Channel enums.Channel
	Now     time.Time
}

// VolumeQuery selects candidate volume tiers for an item and quantity.
type VolumeQuery struct {
	Target   Target
	Channel  enums.Channel
	Quantity int
	Now      time.Time
}
