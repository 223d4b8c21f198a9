package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/pricing-engine/pkg/enums"
)

// PriceHistory records every channel price change.
type PriceHistory struct {
	ID               uuid.UUID               `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID        *uuid.UUID              `gorm:"column:product_id;type:uuid"`
	ProductVariantID *uuid.UUID              `gorm:"column:product_variant_id;type:uuid"`
	Channel          *enums.Channel          `gorm:"column:channel"`
	OldPrice         *decimal.Decimal        `gorm:"column:old_price;type:numeric(15,2)"`
	NewPrice         decimal.Decimal         `gorm:"column:new_price;type:numeric(15,2);not null"`
	OldCost          *decimal.Decimal        `gorm:"column:old_cost;type:numeric(15,2)"`
	NewCost          *decimal.Decimal        `gorm:"column:new_cost;type:numeric(15,2)"`
	Currency         string                  `gorm:"column:currency;not null;default:INR"`
	ChangeReason     enums.PriceChangeReason `gorm:"column:change_reason;not null"`
	Notes            *string                 `gorm:"column:notes"`
	EffectiveDate    time.Time               `gorm:"column:effective_date;not null"`
	CreatedAt        time.Time               `gorm:"column:created_at;autoCreateTime"`
}

func (PriceHistory) TableName() string {
	return "price_history"
}

func (h *PriceHistory) BeforeCreate(*gorm.DB) error {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	return nil
}
