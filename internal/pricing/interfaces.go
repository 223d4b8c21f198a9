package pricing

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/pricing-engine/pkg/db/models"
)

// ChannelPriceStore returns nil, nil when no effective price exists.
type ChannelPriceStore interface {
	FindEffective(ctx context.Context, query ChannelPriceQuery) (*models.ChannelPrice, error)
}

// TierStore returns nil, nil when the customer has no current tier.
type TierStore interface {
	Current(ctx context.Context, customer CustomerRef, now time.Time) (*models.CustomerPricingTier, error)
}

// RuleStore returns active, date-valid rules with product and category associations loaded.
type RuleStore interface {
	ListCandidates(ctx context.Context, query RuleQuery) ([]models.PricingRule, error)
}

type VolumeDiscountStore interface {
	ListCandidates(ctx context.Context, query VolumeQuery) ([]models.VolumeDiscount, error)
}

// PromotionStore backs the promotion validator. FindByCode returns nil, nil for unknown codes.
type PromotionStore interface {
	FindByCode(ctx context.Context, code string) (*models.Promotion, error)
	ListAutoApply(ctx context.Context, now time.Time) ([]models.Promotion, error)
	CustomerUsageCount(ctx context.Context, promotionID uuid.UUID, customer CustomerRef) (int64, error)
}

// MetricsRecorder observes calculation outcomes. A nil recorder is allowed.
type MetricsRecorder interface {
	ObserveCalculation(outcome string, duration time.Duration)
	IncPromotionValidation(valid bool)
}
