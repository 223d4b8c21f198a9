package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/pricing-engine/pkg/enums"
)

// Promotion is a code-based or auto-applied discount with a bounded redemption count.
type Promotion struct {
	ID                 uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name               string             `gorm:"column:name;not null"`
	Code               string             `gorm:"column:code;not null;uniqueIndex"`
	Description        *string            `gorm:"column:description"`
	Status             enums.RuleStatus   `gorm:"column:status;not null;default:draft"`
	DiscountType       enums.DiscountType `gorm:"column:discount_type;not null"`
	DiscountValue      decimal.Decimal    `gorm:"column:discount_value;type:numeric(15,4);not null"`
	MaxDiscountAmount  *decimal.Decimal   `gorm:"column:max_discount_amount;type:numeric(15,2)"`
	MinOrderValue      *decimal.Decimal   `gorm:"column:min_order_value;type:numeric(15,2)"`
	ApplicableChannels pq.StringArray     `gorm:"column:applicable_channels;type:text[]"`
	StartDate          time.Time          `gorm:"column:start_date;not null"`
	EndDate            time.Time          `gorm:"column:end_date;not null"`
	MaxUses            *int               `gorm:"column:max_uses"`
	CurrentUses        int                `gorm:"column:current_uses;not null;default:0"`
	MaxUsesPerCustomer *int               `gorm:"column:max_uses_per_customer"`
	IsStackable        bool               `gorm:"column:is_stackable;not null;default:false"`
	AutoApply          bool               `gorm:"column:auto_apply;not null;default:false"`
	CreatedAt          time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Promotion) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// PromotionUsage is one redemption in the append-only usage ledger.
type PromotionUsage struct {
	ID                       uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	PromotionID              uuid.UUID       `gorm:"column:promotion_id;type:uuid;not null"`
	OrderID                  *uuid.UUID      `gorm:"column:order_id;type:uuid"`
	UserID                   *uuid.UUID      `gorm:"column:user_id;type:uuid"`
	WholesaleCustomerID      *uuid.UUID      `gorm:"column:wholesale_customer_id;type:uuid"`
	DiscountAmount           decimal.Decimal `gorm:"column:discount_amount;type:numeric(15,2);not null"`
	OrderTotalBeforeDiscount decimal.Decimal `gorm:"column:order_total_before_discount;type:numeric(15,2);not null"`
	OrderTotalAfterDiscount  decimal.Decimal `gorm:"column:order_total_after_discount;type:numeric(15,2);not null"`
	UsedAt                   time.Time       `gorm:"column:used_at;not null"`
}

func (u *PromotionUsage) BeforeCreate(*gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}
