package tiers

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/pricing-engine/internal/pricing"
	"github.com/angelmondragon/pricing-engine/pkg/db/models"
	"github.com/angelmondragon/pricing-engine/pkg/enums"
)

// Repository stores customer tier assignments.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Current(ctx context.Context, customer pricing.CustomerRef, now time.Time) (*models.CustomerPricingTier, error)
	EndCurrent(ctx context.Context, customer pricing.CustomerRef, now time.Time) (int64, error)
	Create(ctx context.Context, tier *models.CustomerPricingTier) error
	ListByTier(ctx context.Context, tier enums.CustomerTier, now time.Time) ([]models.CustomerPricingTier, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) customerScope(customer pricing.CustomerRef) func(*gorm.DB) *gorm.DB {
	return func(q *gorm.DB) *gorm.DB {
		if customer.UserID != nil {
			return q.Where("user_id = ?", *customer.UserID)
		}
		return q.Where("wholesale_customer_id = ?", *customer.WholesaleCustomerID)
	}
}

func activeAt(now time.Time) func(*gorm.DB) *gorm.DB {
	return func(q *gorm.DB) *gorm.DB {
		return q.Where("effective_from <= ?", now).
			Where("(effective_until IS NULL OR effective_until > ?)", now)
	}
}

// Current returns the assignment with the latest effective_from whose window
// contains now, or nil, nil.
func (r *repositoryImpl) Current(ctx context.Context, customer pricing.CustomerRef, now time.Time) (*models.CustomerPricingTier, error) {
	if customer.IsZero() {
		return nil, nil
	}
	var tier models.CustomerPricingTier
	err := r.db.WithContext(ctx).
		Scopes(r.customerScope(customer), activeAt(now.UTC())).
		Order("effective_from DESC, created_at DESC, id DESC").
		First(&tier).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &tier, nil
}

// EndCurrent closes every open assignment of the customer at now.
func (r *repositoryImpl) EndCurrent(ctx context.Context, customer pricing.CustomerRef, now time.Time) (int64, error) {
	now = now.UTC()
	res := r.db.WithContext(ctx).
		Model(&models.CustomerPricingTier{}).
		Scopes(r.customerScope(customer), activeAt(now)).
		Updates(map[string]any{"effective_until": now, "updated_at": now})
	return res.RowsAffected, res.Error
}

func (r *repositoryImpl) Create(ctx context.Context, tier *models.CustomerPricingTier) error {
	return r.db.WithContext(ctx).Create(tier).Error
}

func (r *repositoryImpl) ListByTier(ctx context.Context, tier enums.CustomerTier, now time.Time) ([]models.CustomerPricingTier, error) {
	var rows []models.CustomerPricingTier
	err := r.db.WithContext(ctx).
		Where("tier = ?", tier).
		Scopes(activeAt(now.UTC())).
		Order("effective_from DESC, id ASC").
		Find(&rows).Error
	return rows, err
}
