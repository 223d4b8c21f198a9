package volumediscounts

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/pricing-engine/internal/pricing"
	"github.com/angelmondragon/pricing-engine/pkg/db/models"
	"github.com/angelmondragon/pricing-engine/pkg/pagination"
)

type Repository interface {
	Create(ctx context.Context, discount *models.VolumeDiscount) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.VolumeDiscount, error)
	List(ctx context.Context, params ListParams) ([]models.VolumeDiscount, *pagination.Cursor, error)
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
	ListCandidates(ctx context.Context, query pricing.VolumeQuery) ([]models.VolumeDiscount, error)
}

// ListParams filters the admin listing by scope.
type ListParams struct {
	ProductID  *uuid.UUID
	VariantID  *uuid.UUID
	CategoryID *uuid.UUID
	Limit      int
	Cursor     *pagination.Cursor
}

type repositoryImpl struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) Create(ctx context.Context, discount *models.VolumeDiscount) error {
	return r.db.WithContext(ctx).Create(discount).Error
}

func (r *repositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*models.VolumeDiscount, error) {
	var discount models.VolumeDiscount
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&discount).Error; err != nil {
		return nil, err
	}
	return &discount, nil
}

func (r *repositoryImpl) List(ctx context.Context, params ListParams) ([]models.VolumeDiscount, *pagination.Cursor, error) {
	query := r.db.WithContext(ctx).Model(&models.VolumeDiscount{})
	if params.ProductID != nil {
		query = query.Where("product_id = ?", *params.ProductID)
	}
	if params.VariantID != nil {
		query = query.Where("product_variant_id = ?", *params.VariantID)
	}
	if params.CategoryID != nil {
		query = query.Where("category_id = ?", *params.CategoryID)
	}

	var rows []models.VolumeDiscount
	if err := query.Scopes(pagination.Keyset(params.Cursor, params.Limit)).Find(&rows).Error; err != nil {
		return nil, nil, err
	}
	page, next := pagination.Cut(rows, params.Limit, func(v models.VolumeDiscount) pagination.Cursor {
		return pagination.Cursor{CreatedAt: v.CreatedAt, ID: v.ID}
	})
	return page, next, nil
}

func (r *repositoryImpl) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.VolumeDiscount{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// ListCandidates narrows by activity, dates, quantity band and channel. Scope and
// tier matching happen in the selector.
func (r *repositoryImpl) ListCandidates(ctx context.Context, query pricing.VolumeQuery) ([]models.VolumeDiscount, error) {
	now := query.Now.UTC()
	var rows []models.VolumeDiscount
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Where("(start_date IS NULL OR start_date <= ?)", now).
		Where("(end_date IS NULL OR end_date >= ?)", now).
		Where("min_quantity <= ?", query.Quantity).
		Where("(max_quantity IS NULL OR max_quantity >= ?)", query.Quantity).
		Where("(channel IS NULL OR channel = ?)", query.Channel).
		Order("priority DESC, min_quantity DESC, created_at ASC, id ASC").
		Find(&rows).Error
	return rows, err
}
