package channelprices

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/pricing-engine/internal/pricing"
	"github.com/angelmondragon/pricing-engine/pkg/db/models"
	"github.com/angelmondragon/pricing-engine/pkg/enums"
)

// Repository persists channel prices and their change history.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindEffective(ctx context.Context, query pricing.ChannelPriceQuery) (*models.ChannelPrice, error)
	FindLatest(ctx context.Context, item Item, channel enums.Channel) (*models.ChannelPrice, error)
	Save(ctx context.Context, price *models.ChannelPrice) error
	ListByVariant(ctx context.Context, variantID uuid.UUID) ([]models.ChannelPrice, error)
	AppendHistory(ctx context.Context, entry *models.PriceHistory) error
	ListHistory(ctx context.Context, params HistoryParams) ([]models.PriceHistory, error)
}

// Item addresses exactly one of a product or a variant.
type Item struct {
	ProductID *uuid.UUID
	VariantID *uuid.UUID
}

// HistoryParams filters the price history listing.
type HistoryParams struct {
	ProductID *uuid.UUID
	VariantID *uuid.UUID
	Channel   *enums.Channel
	From      *time.Time
	To        *time.Time
	Limit     int
}

const (
	defaultHistoryLimit = 100
	maxHistoryLimit     = 500
)

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a channel price repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

// FindEffective prefers the variant row and falls back to the parent product row.
// Among overlapping rows the most recently created wins. Returns nil, nil when
// neither exists.
func (r *repositoryImpl) FindEffective(ctx context.Context, query pricing.ChannelPriceQuery) (*models.ChannelPrice, error) {
	now := query.Now.UTC()
	if query.VariantID != nil {
		price, err := r.firstEffective(ctx, "product_variant_id = ?", *query.VariantID, query.Channel, now)
		if err != nil || price != nil {
			return price, err
		}
	}
	if query.ProductID != nil {
		return r.firstEffective(ctx, "product_id = ? AND product_variant_id IS NULL", *query.ProductID, query.Channel, now)
	}
	return nil, nil
}

func (r *repositoryImpl) firstEffective(ctx context.Context, itemClause string, itemID uuid.UUID, channel enums.Channel, now time.Time) (*models.ChannelPrice, error) {
	var price models.ChannelPrice
	err := r.db.WithContext(ctx).
		Where(itemClause, itemID).
		Where("channel = ? AND is_active = ?", channel, true).
		Where("(effective_from IS NULL OR effective_from <= ?)", now).
		Where("(effective_until IS NULL OR effective_until >= ?)", now).
		Order("created_at DESC, id DESC").
		First(&price).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &price, nil
}

// FindLatest returns the newest row for the exact item and channel, ignoring
// activity and effective dates. Returns nil, nil when none exists.
func (r *repositoryImpl) FindLatest(ctx context.Context, item Item, channel enums.Channel) (*models.ChannelPrice, error) {
	query := r.db.WithContext(ctx).Where("channel = ?", channel)
	if item.VariantID != nil {
		query = query.Where("product_variant_id = ?", *item.VariantID)
	} else {
		query = query.Where("product_id = ? AND product_variant_id IS NULL", item.ProductID)
	}

	var price models.ChannelPrice
	err := query.Order("created_at DESC, id DESC").First(&price).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &price, nil
}

func (r *repositoryImpl) Save(ctx context.Context, price *models.ChannelPrice) error {
	if price.ID == uuid.Nil {
		return r.db.WithContext(ctx).Create(price).Error
	}
	return r.db.WithContext(ctx).Save(price).Error
}

func (r *repositoryImpl) ListByVariant(ctx context.Context, variantID uuid.UUID) ([]models.ChannelPrice, error) {
	var prices []models.ChannelPrice
	err := r.db.WithContext(ctx).
		Where("product_variant_id = ?", variantID).
		Order("channel ASC, created_at DESC, id DESC").
		Find(&prices).Error
	return prices, err
}

func (r *repositoryImpl) AppendHistory(ctx context.Context, entry *models.PriceHistory) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repositoryImpl) ListHistory(ctx context.Context, params HistoryParams) ([]models.PriceHistory, error) {
	query := r.db.WithContext(ctx).Model(&models.PriceHistory{})
	if params.ProductID != nil {
		query = query.Where("product_id = ?", *params.ProductID)
	}
	if params.VariantID != nil {
		query = query.Where("product_variant_id = ?", *params.VariantID)
	}
	if params.Channel != nil {
		query = query.Where("channel = ?", *params.Channel)
	}
	if params.From != nil {
		query = query.Where("effective_date >= ?", params.From.UTC())
	}
	if params.To != nil {
		query = query.Where("effective_date <= ?", params.To.UTC())
	}

	limit := params.Limit
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	var entries []models.PriceHistory
	err := query.Order("effective_date DESC, created_at DESC, id DESC").Limit(limit).Find(&entries).Error
	return entries, err
}
