package rules

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/pricing-engine/internal/pricing"
	"github.com/angelmondragon/pricing-engine/pkg/db/models"
	"github.com/angelmondragon/pricing-engine/pkg/enums"
	pkgerrors "github.com/angelmondragon/pricing-engine/pkg/errors"
	"github.com/angelmondragon/pricing-engine/pkg/pagination"
)

// Repository persists pricing rules and their product and category scopes.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, rule *models.PricingRule) error
	Update(ctx context.Context, rule *models.PricingRule) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.PricingRule, error)
	List(ctx context.Context, params ListParams) ([]models.PricingRule, *pagination.Cursor, error)
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
	SetStatus(ctx context.Context, id uuid.UUID, status enums.RuleStatus) (bool, error)
	ListCandidates(ctx context.Context, query pricing.RuleQuery) ([]models.PricingRule, error)
	IncrementUsage(ctx context.Context, id uuid.UUID) error
	ExpireEnded(ctx context.Context, now time.Time) (int64, error)
}

// ListParams filters the admin rule listing.
type ListParams struct {
	Status   *enums.RuleStatus
	RuleType *enums.RuleType
	Limit    int
	Cursor   *pagination.Cursor
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a rules repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) Create(ctx context.Context, rule *models.PricingRule) error {
	return r.db.WithContext(ctx).Create(rule).Error
}

// Update saves the rule columns and replaces its scopes.
func (r *repositoryImpl) Update(ctx context.Context, rule *models.PricingRule) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Save(rule).Error; err != nil {
			return err
		}
		if err := tx.Where("pricing_rule_id = ?", rule.ID).Delete(&models.PricingRuleProduct{}).Error; err != nil {
			return err
		}
		if err := tx.Where("pricing_rule_id = ?", rule.ID).Delete(&models.PricingRuleCategory{}).Error; err != nil {
			return err
		}
		for i := range rule.Products {
			rule.Products[i].ID = uuid.Nil
			rule.Products[i].PricingRuleID = rule.ID
		}
		for i := range rule.Categories {
			rule.Categories[i].ID = uuid.Nil
			rule.Categories[i].PricingRuleID = rule.ID
		}
		if len(rule.Products) > 0 {
			if err := tx.Create(&rule.Products).Error; err != nil {
				return err
			}
		}
		if len(rule.Categories) > 0 {
			if err := tx.Create(&rule.Categories).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *repositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*models.PricingRule, error) {
	var rule models.PricingRule
	if err := r.withScopes(ctx).Where("id = ?", id).First(&rule).Error; err != nil {
		return nil, err
	}
	return &rule, nil
}

func (r *repositoryImpl) List(ctx context.Context, params ListParams) ([]models.PricingRule, *pagination.Cursor, error) {
	query := r.withScopes(ctx).Model(&models.PricingRule{})
	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}
	if params.RuleType != nil {
		query = query.Where("rule_type = ?", *params.RuleType)
	}

	var rules []models.PricingRule
	if err := query.Scopes(pagination.Keyset(params.Cursor, params.Limit)).Find(&rules).Error; err != nil {
		return nil, nil, err
	}
	page, next := pagination.Cut(rules, params.Limit, func(rule models.PricingRule) pagination.Cursor {
		return pagination.Cursor{CreatedAt: rule.CreatedAt, ID: rule.ID}
	})
	return page, next, nil
}

func (r *repositoryImpl) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.PricingRule{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repositoryImpl) SetStatus(ctx context.Context, id uuid.UUID, status enums.RuleStatus) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.PricingRule{}).
		Where("id = ?", id).
		Updates(map[string]any{"status": status, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// ListCandidates returns active, date-valid rules for the channel ordered for evaluation.
// Channel allow-lists are filtered here so the query stays portable across drivers.
func (r *repositoryImpl) ListCandidates(ctx context.Context, query pricing.RuleQuery) ([]models.PricingRule, error) {
	now := query.Now.UTC()
	var rules []models.PricingRule
	err := r.withScopes(ctx).
		Where("status = ?", enums.RuleStatusActive).
		Where("(start_date IS NULL OR start_date <= ?)", now).
		Where("(end_date IS NULL OR end_date >= ?)", now).
		Order("priority DESC, created_at ASC, id ASC").
		Find(&rules).Error
	if err != nil {
		return nil, err
	}

	out := rules[:0]
	for _, rule := range rules {
		if len(rule.ApplicableChannels) == 0 || contains(rule.ApplicableChannels, query.Channel.String()) {
			out = append(out, rule)
		}
	}
	return out, nil
}

// IncrementUsage bumps the usage counter only while the rule is active and under its cap.
func (r *repositoryImpl) IncrementUsage(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).
		Model(&models.PricingRule{}).
		Where("id = ? AND status = ?", id, enums.RuleStatusActive).
		Where("(max_uses IS NULL OR current_uses < max_uses)").
		UpdateColumn("current_uses", gorm.Expr("current_uses + 1"))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}

	var count int64
	if err := r.db.WithContext(ctx).Model(&models.PricingRule{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return gorm.ErrRecordNotFound
	}
	return pkgerrors.New(pkgerrors.CodeUsageLimit, "pricing rule usage limit reached")
}

// ExpireEnded marks active rules whose end date has passed as expired.
func (r *repositoryImpl) ExpireEnded(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.PricingRule{}).
		Where("status = ? AND end_date IS NOT NULL AND end_date < ?", enums.RuleStatusActive, now.UTC()).
		Updates(map[string]any{"status": enums.RuleStatusExpired, "updated_at": now.UTC()})
	return res.RowsAffected, res.Error
}

func (r *repositoryImpl) withScopes(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("Products", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC, id ASC") }).
		Preload("Categories", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC, id ASC") })
}

func contains(values []string, want string) bool {
	for _, v := range values {
		if v == want {
			return true
		}
	}
	return false
}
