package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/pricing-engine/pkg/enums"
)

// ChannelPrice is the base price of a product or variant on one sales channel.
type ChannelPrice struct {
	ID               uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID        *uuid.UUID       `gorm:"column:product_id;type:uuid"`
	ProductVariantID *uuid.UUID       `gorm:"column:product_variant_id;type:uuid"`
	Channel          enums.Channel    `gorm:"column:channel;not null"`
	BasePrice        decimal.Decimal  `gorm:"column:base_price;type:numeric(15,2);not null"`
	CompareAtPrice   *decimal.Decimal `gorm:"column:compare_at_price;type:numeric(15,2)"`
	CostPrice        *decimal.Decimal `gorm:"column:cost_price;type:numeric(15,2)"`
	MinPrice         *decimal.Decimal `gorm:"column:min_price;type:numeric(15,2)"`
	Currency         string           `gorm:"column:currency;not null;default:INR"`
	IsActive         bool             `gorm:"column:is_active;not null"`
	EffectiveFrom    *time.Time       `gorm:"column:effective_from"`
	EffectiveUntil   *time.Time       `gorm:"column:effective_until"`
	CreatedAt        time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

func (c *ChannelPrice) BeforeCreate(*gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
