package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/pricing-engine/pkg/enums"
)

// CustomerPricingTier assigns a user or wholesale customer to a discount tier for a window.
type CustomerPricingTier struct {
	ID                  uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID              *uuid.UUID         `gorm:"column:user_id;type:uuid"`
	WholesaleCustomerID *uuid.UUID         `gorm:"column:wholesale_customer_id;type:uuid"`
	Tier                enums.CustomerTier `gorm:"column:tier;not null;default:standard"`
	DiscountPercentage  decimal.Decimal    `gorm:"column:discount_percentage;type:numeric(5,2);not null;default:0"`
	AssignmentReason    *string            `gorm:"column:assignment_reason"`
	EffectiveFrom       time.Time          `gorm:"column:effective_from;not null"`
	EffectiveUntil      *time.Time         `gorm:"column:effective_until"`
	IsAutomatic         bool               `gorm:"column:is_automatic;not null;default:false"`
	CreatedAt           time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

func (t *CustomerPricingTier) BeforeCreate(*gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
