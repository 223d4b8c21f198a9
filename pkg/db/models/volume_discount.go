package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/pricing-engine/pkg/enums"
)

// VolumeDiscount is a quantity tier; exactly one is applied per calculation.
type VolumeDiscount struct {
	ID                uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name              string              `gorm:"column:name;not null"`
	Description       *string             `gorm:"column:description"`
	ProductID         *uuid.UUID          `gorm:"column:product_id;type:uuid"`
	ProductVariantID  *uuid.UUID          `gorm:"column:product_variant_id;type:uuid"`
	CategoryID        *uuid.UUID          `gorm:"column:category_id;type:uuid"`
	IsGlobal          bool                `gorm:"column:is_global;not null;default:false"`
	MinQuantity       int                 `gorm:"column:min_quantity;not null"`
	MaxQuantity       *int                `gorm:"column:max_quantity"`
	DiscountType      enums.DiscountType  `gorm:"column:discount_type;not null"`
	DiscountValue     decimal.Decimal     `gorm:"column:discount_value;type:numeric(15,4);not null"`
	MaxDiscountAmount *decimal.Decimal    `gorm:"column:max_discount_amount;type:numeric(15,4)"`
	Channel           *enums.Channel      `gorm:"column:channel"`
	CustomerTier      *enums.CustomerTier `gorm:"column:customer_tier"`
	IsActive          bool                `gorm:"column:is_active;not null"`
	StartDate         *time.Time          `gorm:"column:start_date"`
	EndDate           *time.Time          `gorm:"column:end_date"`
	Priority          int                 `gorm:"column:priority;not null;default:0"`
	CreatedAt         time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (v *VolumeDiscount) BeforeCreate(*gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return nil
}
