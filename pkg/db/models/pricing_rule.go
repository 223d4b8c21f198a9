package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	dbtypes "github.com/angelmondragon/pricing-engine/pkg/db/types"
	"github.com/angelmondragon/pricing-engine/pkg/enums"
)

// PricingRule is a prioritized discount rule evaluated during price calculation.
type PricingRule struct {
	ID                      uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name                    string                `gorm:"column:name;not null"`
	Code                    string                `gorm:"column:code;not null;uniqueIndex"`
	Description             *string               `gorm:"column:description"`
	RuleType                enums.RuleType        `gorm:"column:rule_type;not null"`
	Status                  enums.RuleStatus      `gorm:"column:status;not null;default:draft"`
	Priority                int                   `gorm:"column:priority;not null;default:0"`
	DiscountType            enums.DiscountType    `gorm:"column:discount_type;not null"`
	DiscountValue           decimal.Decimal       `gorm:"column:discount_value;type:numeric(15,4);not null"`
	MaxDiscountAmount       *decimal.Decimal      `gorm:"column:max_discount_amount;type:numeric(15,2)"`
	MinPrice                *decimal.Decimal      `gorm:"column:min_price;type:numeric(15,2)"`
	ApplicableChannels      pq.StringArray        `gorm:"column:applicable_channels;type:text[]"`
	ApplicableCustomerTiers pq.StringArray        `gorm:"column:applicable_customer_tiers;type:text[]"`
	StartDate               *time.Time            `gorm:"column:start_date"`
	EndDate                 *time.Time            `gorm:"column:end_date"`
	StartTime               *string               `gorm:"column:start_time"`
	EndTime                 *string               `gorm:"column:end_time"`
	ApplicableDays          pq.Int64Array         `gorm:"column:applicable_days;type:integer[]"`
	Conditions              dbtypes.Conditions    `gorm:"column:conditions;type:jsonb;not null;default:'[]'"`
	BuyQuantity             *int                  `gorm:"column:buy_quantity"`
	GetQuantity             *int                  `gorm:"column:get_quantity"`
	MaxUses                 *int                  `gorm:"column:max_uses"`
	CurrentUses             int                   `gorm:"column:current_uses;not null;default:0"`
	MaxUsesPerCustomer      *int                  `gorm:"column:max_uses_per_customer"`
	IsStackable             bool                  `gorm:"column:is_stackable;not null;default:false"`
	IsExclusive             bool                  `gorm:"column:is_exclusive;not null;default:false"`
	Products                []PricingRuleProduct  `gorm:"foreignKey:PricingRuleID;constraint:OnDelete:CASCADE"`
	Categories              []PricingRuleCategory `gorm:"foreignKey:PricingRuleID;constraint:OnDelete:CASCADE"`
	CreatedAt               time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt               time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}

func (r *PricingRule) BeforeCreate(*gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// PricingRuleProduct scopes a rule to a product or variant, or excludes it.
type PricingRuleProduct struct {
	ID               uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	PricingRuleID    uuid.UUID  `gorm:"column:pricing_rule_id;type:uuid;not null"`
	ProductID        *uuid.UUID `gorm:"column:product_id;type:uuid"`
	ProductVariantID *uuid.UUID `gorm:"column:product_variant_id;type:uuid"`
	IsExcluded       bool       `gorm:"column:is_excluded;not null;default:false"`
	CreatedAt        time.Time  `gorm:"column:created_at;autoCreateTime"`
}

func (p *PricingRuleProduct) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// PricingRuleCategory scopes a rule to a category, or excludes it.
type PricingRuleCategory struct {
	ID            uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	PricingRuleID uuid.UUID `gorm:"column:pricing_rule_id;type:uuid;not null"`
	CategoryID    uuid.UUID `gorm:"column:category_id;type:uuid;not null"`
	IsExcluded    bool      `gorm:"column:is_excluded;not null;default:false"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (c *PricingRuleCategory) BeforeCreate(*gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
