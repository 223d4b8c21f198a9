package rules

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/pricing-engine/internal/pricing"
	"github.com/angelmondragon/pricing-engine/pkg/db"
	"github.com/angelmondragon/pricing-engine/pkg/db/models"
	dbtypes "github.com/angelmondragon/pricing-engine/pkg/db/types"
	"github.com/angelmondragon/pricing-engine/pkg/enums"
	pkgerrors "github.com/angelmondragon/pricing-engine/pkg/errors"
	"github.com/angelmondragon/pricing-engine/pkg/logger"
	"github.com/angelmondragon/pricing-engine/pkg/pagination"
)

const clockLayout = "15:04"

// Service administers pricing rules.
type Service interface {
	Create(ctx context.Context, input RuleInput) (*models.PricingRule, error)
	Update(ctx context.Context, id uuid.UUID, input RuleInput) (*models.PricingRule, error)
	Get(ctx context.Context, id uuid.UUID) (*models.PricingRule, error)
	List(ctx context.Context, params ListParams) ([]models.PricingRule, *pagination.Cursor, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Activate(ctx context.Context, id uuid.UUID) (*models.PricingRule, error)
	Deactivate(ctx context.Context, id uuid.UUID) (*models.PricingRule, error)
	RecordUsage(ctx context.Context, id uuid.UUID) error
}

// ProductScope includes or excludes a product or a single variant.
type ProductScope struct {
	ProductID  *uuid.UUID
	VariantID  *uuid.UUID
	IsExcluded bool
}

// CategoryScope includes or excludes a category.
type CategoryScope struct {
	CategoryID uuid.UUID
	IsExcluded bool
}

// RuleInput is the authoring payload for create and full update.
type RuleInput struct {
	Name                    string
	Code                    string
	Description             *string
	RuleType                enums.RuleType
	Status                  enums.RuleStatus
	Priority                int
	DiscountType            enums.DiscountType
	DiscountValue           decimal.Decimal
	MaxDiscountAmount       *decimal.Decimal
	MinPrice                *decimal.Decimal
	ApplicableChannels      []enums.Channel
	ApplicableCustomerTiers []enums.CustomerTier
	StartDate               *time.Time
	EndDate                 *time.Time
	StartTime               *string
	EndTime                 *string
	ApplicableDays          []int
	Conditions              dbtypes.Conditions
	BuyQuantity             *int
	GetQuantity             *int
	MaxUses                 *int
	MaxUsesPerCustomer      *int
	IsStackable             bool
	IsExclusive             bool
	Products                []ProductScope
	Categories              []CategoryScope
}

type service struct {
	repo Repository
	logg *logger.Logger
}

// NewService builds the rule administration service.
func NewService(repo Repository, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("rules repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, logg: logg}, nil
}

func (s *service) Create(ctx context.Context, input RuleInput) (*models.PricingRule, error) {
	if input.Status == "" {
		input.Status = enums.RuleStatusDraft
	}
	if err := validateInput(input); err != nil {
		return nil, err
	}
	rule := &models.PricingRule{}
	applyInput(rule, input)

	if err := s.repo.Create(ctx, rule); err != nil {
		return nil, mapWriteError(err, rule.Code)
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{"rule_id": rule.ID.String(), "code": rule.Code}), "pricing rule created")
	return s.Get(ctx, rule.ID)
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input RuleInput) (*models.PricingRule, error) {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if input.Status == "" {
		input.Status = existing.Status
	}
	if err := validateInput(input); err != nil {
		return nil, err
	}
	applyInput(existing, input)

	if err := s.repo.Update(ctx, existing); err != nil {
		return nil, mapWriteError(err, existing.Code)
	}
	return s.Get(ctx, id)
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.PricingRule, error) {
	rule, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "pricing rule not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load pricing rule")
	}
	return rule, nil
}

func (s *service) List(ctx context.Context, params ListParams) ([]models.PricingRule, *pagination.Cursor, error) {
	if params.Status != nil && !params.Status.IsValid() {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid status filter")
	}
	if params.RuleType != nil && !params.RuleType.IsValid() {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid rule_type filter")
	}
	rules, next, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list pricing rules")
	}
	return rules, next, nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete pricing rule")
	}
	if !deleted {
		return pkgerrors.New(pkgerrors.CodeNotFound, "pricing rule not found")
	}
	return nil
}

func (s *service) Activate(ctx context.Context, id uuid.UUID) (*models.PricingRule, error) {
	return s.setStatus(ctx, id, enums.RuleStatusActive)
}

// Deactivate pauses the rule; expired and archived rules stay as they are.
func (s *service) Deactivate(ctx context.Context, id uuid.UUID) (*models.PricingRule, error) {
	return s.setStatus(ctx, id, enums.RuleStatusPaused)
}

func (s *service) setStatus(ctx context.Context, id uuid.UUID, status enums.RuleStatus) (*models.PricingRule, error) {
	rule, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if rule.Status == enums.RuleStatusArchived {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "archived rules cannot change status")
	}
	if rule.Status == status {
		return rule, nil
	}
	if _, err := s.repo.SetStatus(ctx, id, status); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update pricing rule status")
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{"rule_id": id.String(), "status": status.String()}), "pricing rule status changed")
	return s.Get(ctx, id)
}

// RecordUsage consumes one use of a capped rule.
func (s *service) RecordUsage(ctx context.Context, id uuid.UUID) error {
	err := s.repo.IncrementUsage(ctx, id)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return pkgerrors.New(pkgerrors.CodeNotFound, "pricing rule not found")
	case pkgerrors.As(err) != nil:
		return err
	default:
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "record pricing rule usage")
	}
}

func mapWriteError(err error, code string) error {
	if db.IsUniqueViolation(err, "") {
		return pkgerrors.New(pkgerrors.CodeConflict, "pricing rule code already exists").
			WithDetails(map[string]any{"code": code})
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "save pricing rule")
}

func applyInput(rule *models.PricingRule, in RuleInput) {
	rule.Name = strings.TrimSpace(in.Name)
	rule.Code = strings.ToUpper(strings.TrimSpace(in.Code))
	rule.Description = in.Description
	rule.RuleType = in.RuleType
	rule.Status = in.Status
	rule.Priority = in.Priority
	rule.DiscountType = in.DiscountType
	rule.DiscountValue = in.DiscountValue
	rule.MaxDiscountAmount = in.MaxDiscountAmount
	rule.MinPrice = in.MinPrice
	rule.StartDate = in.StartDate
	rule.EndDate = in.EndDate
	rule.StartTime = in.StartTime
	rule.EndTime = in.EndTime
	rule.Conditions = in.Conditions
	if rule.Conditions == nil {
		rule.Conditions = dbtypes.Conditions{}
	}
	rule.BuyQuantity = in.BuyQuantity
	rule.GetQuantity = in.GetQuantity
	rule.MaxUses = in.MaxUses
	rule.MaxUsesPerCustomer = in.MaxUsesPerCustomer
	rule.IsStackable = in.IsStackable
	rule.IsExclusive = in.IsExclusive

	rule.ApplicableChannels = make(pq.StringArray, 0, len(in.ApplicableChannels))
	for _, ch := range in.ApplicableChannels {
		rule.ApplicableChannels = append(rule.ApplicableChannels, ch.String())
	}
	rule.ApplicableCustomerTiers = make(pq.StringArray, 0, len(in.ApplicableCustomerTiers))
	for _, tier := range in.ApplicableCustomerTiers {
		rule.ApplicableCustomerTiers = append(rule.ApplicableCustomerTiers, tier.String())
	}
	rule.ApplicableDays = make(pq.Int64Array, 0, len(in.ApplicableDays))
	for _, day := range in.ApplicableDays {
		rule.ApplicableDays = append(rule.ApplicableDays, int64(day))
	}

	rule.Products = make([]models.PricingRuleProduct, 0, len(in.Products))
	for _, p := range in.Products {
		rule.Products = append(rule.Products, models.PricingRuleProduct{
			ProductID:        p.ProductID,
			ProductVariantID: p.VariantID,
			IsExcluded:       p.IsExcluded,
		})
	}
	rule.Categories = make([]models.PricingRuleCategory, 0, len(in.Categories))
	for _, c := range in.Categories {
		rule.Categories = append(rule.Categories, models.PricingRuleCategory{
			CategoryID: c.CategoryID,
			IsExcluded: c.IsExcluded,
		})
	}
}

func validateInput(in RuleInput) error {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if strings.TrimSpace(in.Name) == "" {
		add("name is required")
	}
	if strings.TrimSpace(in.Code) == "" {
		add("code is required")
	}
	if !in.RuleType.IsValid() {
		add("invalid rule_type %q", in.RuleType)
	}
	if !in.Status.IsValid() {
		add("invalid status %q", in.Status)
	}
	if _, err := pricing.NewDiscount(in.DiscountType, in.DiscountValue); err != nil {
		add("%v", err)
	}
	if in.DiscountType == enums.DiscountTypeBuyXGetY {
		if in.BuyQuantity == nil || *in.BuyQuantity < 1 || in.GetQuantity == nil || *in.GetQuantity < 1 {
			add("buy_x_get_y requires buy_quantity and get_quantity of at least 1")
		}
	}
	if in.MaxDiscountAmount != nil && in.MaxDiscountAmount.IsNegative() {
		add("max_discount_amount must be non-negative")
	}
	if in.MinPrice != nil && in.MinPrice.IsNegative() {
		add("min_price must be non-negative")
	}
	for _, ch := range in.ApplicableChannels {
		if !ch.IsValid() {
			add("invalid channel %q", ch)
		}
	}
	for _, tier := range in.ApplicableCustomerTiers {
		if !tier.IsValid() {
			add("invalid customer tier %q", tier)
		}
	}
	if in.StartDate != nil && in.EndDate != nil && in.EndDate.Before(*in.StartDate) {
		add("end_date must not be before start_date")
	}
	if err := validateClockWindow(in.StartTime, in.EndTime); err != nil {
		add("%v", err)
	}
	for _, day := range in.ApplicableDays {
		if day < 0 || day > 6 {
			add("applicable_days entries must be between 0 (Monday) and 6 (Sunday)")
			break
		}
	}
	if err := in.Conditions.Validate(); err != nil {
		add("conditions: %v", err)
	}
	if in.MaxUses != nil && *in.MaxUses < 0 {
		add("max_uses must be non-negative")
	}
	if in.MaxUsesPerCustomer != nil && *in.MaxUsesPerCustomer < 0 {
		add("max_uses_per_customer must be non-negative")
	}
	for _, p := range in.Products {
		if p.ProductID == nil && p.VariantID == nil {
			add("product scopes need a product_id or variant_id")
			break
		}
	}
	for _, c := range in.Categories {
		if c.CategoryID == uuid.Nil {
			add("category scopes need a category_id")
			break
		}
	}

	if len(problems) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid pricing rule").
			WithDetails(map[string]any{"problems": problems})
	}
	return nil
}

func validateClockWindow(start, end *string) error {
	var parsed []time.Time
	for _, v := range []*string{start, end} {
		if v == nil || *v == "" {
			continue
		}
		t, err := time.Parse(clockLayout, *v)
		if err != nil || t.Format(clockLayout) != *v {
			return fmt.Errorf("time %q must be zero-padded HH:MM", *v)
		}
		parsed = append(parsed, t)
	}
	if len(parsed) == 2 && parsed[1].Before(parsed[0]) {
		return fmt.Errorf("end_time must not be before start_time")
	}
	return nil
}
