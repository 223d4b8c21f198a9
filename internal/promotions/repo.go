package promotions

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/pricing-engine/internal/pricing"
	"github.com/angelmondragon/pricing-engine/pkg/db/models"
	"github.com/angelmondragon/pricing-engine/pkg/enums"
	"github.com/angelmondragon/pricing-engine/pkg/pagination"
)

// Repository persists promotions and their usage ledger.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, promotion *models.Promotion) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Promotion, error)
	FindByCode(ctx context.Context, code string) (*models.Promotion, error)
	List(ctx context.Context, params ListParams) ([]models.Promotion, *pagination.Cursor, error)
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
	ListAutoApply(ctx context.Context, now time.Time) ([]models.Promotion, error)
	CustomerUsageCount(ctx context.Context, promotionID uuid.UUID, customer pricing.CustomerRef) (int64, error)
	IncrementUsage(ctx context.Context, id uuid.UUID, now time.Time) (bool, error)
	AppendUsage(ctx context.Context, usage *models.PromotionUsage) error
	ExpireEnded(ctx context.Context, now time.Time) (int64, error)
}

// ListParams filters the admin promotion listing.
type ListParams struct {
	Status    *enums.RuleStatus
	AutoApply *bool
	Limit     int
	Cursor    *pagination.Cursor
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a promotions repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) Create(ctx context.Context, promotion *models.Promotion) error {
	return r.db.WithContext(ctx).Create(promotion).Error
}

func (r *repositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*models.Promotion, error) {
	var promotion models.Promotion
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&promotion).Error; err != nil {
		return nil, err
	}
	return &promotion, nil
}

// FindByCode returns nil, nil for unknown codes.
func (r *repositoryImpl) FindByCode(ctx context.Context, code string) (*models.Promotion, error) {
	var promotion models.Promotion
	err := r.db.WithContext(ctx).Where("code = ?", code).First(&promotion).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &promotion, nil
}

func (r *repositoryImpl) List(ctx context.Context, params ListParams) ([]models.Promotion, *pagination.Cursor, error) {
	query := r.db.WithContext(ctx).Model(&models.Promotion{})
	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}
	if params.AutoApply != nil {
		query = query.Where("auto_apply = ?", *params.AutoApply)
	}

	var promotions []models.Promotion
	if err := query.Scopes(pagination.Keyset(params.Cursor, params.Limit)).Find(&promotions).Error; err != nil {
		return nil, nil, err
	}
	page, next := pagination.Cut(promotions, params.Limit, func(p models.Promotion) pagination.Cursor {
		return pagination.Cursor{CreatedAt: p.CreatedAt, ID: p.ID}
	})
	return page, next, nil
}

func (r *repositoryImpl) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Promotion{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// ListAutoApply returns live auto-apply promotions under their cap, oldest first.
func (r *repositoryImpl) ListAutoApply(ctx context.Context, now time.Time) ([]models.Promotion, error) {
	now = now.UTC()
	var promotions []models.Promotion
	err := r.db.WithContext(ctx).
		Where("auto_apply = ? AND status = ?", true, enums.RuleStatusActive).
		Where("start_date <= ? AND end_date >= ?", now, now).
		Where("(max_uses IS NULL OR current_uses < max_uses)").
		Order("created_at ASC, id ASC").
		Find(&promotions).Error
	return promotions, err
}

func (r *repositoryImpl) CustomerUsageCount(ctx context.Context, promotionID uuid.UUID, customer pricing.CustomerRef) (int64, error) {
	query := r.db.WithContext(ctx).Model(&models.PromotionUsage{}).Where("promotion_id = ?", promotionID)
	switch {
	case customer.UserID != nil:
		query = query.Where("user_id = ?", *customer.UserID)
	case customer.WholesaleCustomerID != nil:
		query = query.Where("wholesale_customer_id = ?", *customer.WholesaleCustomerID)
	default:
		return 0, nil
	}
	var count int64
	err := query.Count(&count).Error
	return count, err
}

// IncrementUsage is the guarded counter bump; false means the promotion is
// missing, inactive, outside its date window or exhausted. On Postgres the
// UPDATE holds the row lock until the surrounding transaction ends.
func (r *repositoryImpl) IncrementUsage(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	now = now.UTC()
	res := r.db.WithContext(ctx).
		Model(&models.Promotion{}).
		Where("id = ? AND status = ?", id, enums.RuleStatusActive).
		Where("start_date <= ? AND end_date >= ?", now, now).
		Where("(max_uses IS NULL OR current_uses < max_uses)").
		UpdateColumn("current_uses", gorm.Expr("current_uses + 1"))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repositoryImpl) AppendUsage(ctx context.Context, usage *models.PromotionUsage) error {
	return r.db.WithContext(ctx).Create(usage).Error
}

// ExpireEnded marks active promotions whose end date has passed as expired.
func (r *repositoryImpl) ExpireEnded(ctx context.Context, now time.Time) (int64, error) {
	now = now.UTC()
	res := r.db.WithContext(ctx).
		Model(&models.Promotion{}).
		Where("status = ? AND end_date < ?", enums.RuleStatusActive, now).
		Updates(map[string]any{"status": enums.RuleStatusExpired, "updated_at": now})
	return res.RowsAffected, res.Error
}
