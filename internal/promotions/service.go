package promotions

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
	"github.com/angelmondragon/pricing-engine/pkg/enums"
	pkgerrors "github.com/angelmondragon/pricing-engine/pkg/errors"
	"github.com/angelmondragon/pricing-engine/pkg/logger"
	"github.com/angelmondragon/pricing-engine/pkg/pagination"
)

// Service administers promotions and records redemptions.
type Service interface {
	Create(ctx context.Context, input PromotionInput) (*models.Promotion, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Promotion, error)
	List(ctx context.Context, params ListParams) ([]models.Promotion, *pagination.Cursor, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Redeem(ctx context.Context, input RedeemInput) (*models.PromotionUsage, error)
}

// PromotionInput is the authoring payload for a promotion.
type PromotionInput struct {
	Name               string
	Code               string
	Description        *string
	Status             enums.RuleStatus
	DiscountType       enums.DiscountType
	DiscountValue      decimal.Decimal
	MaxDiscountAmount  *decimal.Decimal
	MinOrderValue      *decimal.Decimal
	ApplicableChannels []enums.Channel
	StartDate          time.Time
	EndDate            time.Time
	MaxUses            *int
	MaxUsesPerCustomer *int
	IsStackable        bool
	AutoApply          bool
}

type service struct {
	repo     Repository
	recorder *Recorder
	logg     *logger.Logger
}

// NewService builds the promotion administration service.
func NewService(repo Repository, recorder *Recorder, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("promotions repository required")
	}
	if recorder == nil {
		return nil, fmt.Errorf("usage recorder required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, recorder: recorder, logg: logg}, nil
}

func (s *service) Create(ctx context.Context, input PromotionInput) (*models.Promotion, error) {
	if input.Status == "" {
		input.Status = enums.RuleStatusDraft
	}
	if err := validatePromotion(input); err != nil {
		return nil, err
	}

	channels := make(pq.StringArray, 0, len(input.ApplicableChannels))
	for _, ch := range input.ApplicableChannels {
		channels = append(channels, ch.String())
	}
	promotion := &models.Promotion{
		Name:               strings.TrimSpace(input.Name),
		Code:               pricing.NormalizeCode(input.Code),
		Description:        input.Description,
		Status:             input.Status,
		DiscountType:       input.DiscountType,
		DiscountValue:      input.DiscountValue,
		MaxDiscountAmount:  input.MaxDiscountAmount,
		MinOrderValue:      input.MinOrderValue,
		ApplicableChannels: channels,
		StartDate:          input.StartDate.UTC(),
		EndDate:            input.EndDate.UTC(),
		MaxUses:            input.MaxUses,
		MaxUsesPerCustomer: input.MaxUsesPerCustomer,
		IsStackable:        input.IsStackable,
		AutoApply:          input.AutoApply,
	}
	if err := s.repo.Create(ctx, promotion); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "promotion code already exists").
				WithDetails(map[string]any{"code": promotion.Code})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create promotion")
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{"promotion_id": promotion.ID.String(), "code": promotion.Code}), "promotion created")
	return promotion, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Promotion, error) {
	promotion, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "promotion not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load promotion")
	}
	return promotion, nil
}

func (s *service) List(ctx context.Context, params ListParams) ([]models.Promotion, *pagination.Cursor, error) {
	if params.Status != nil && !params.Status.IsValid() {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid status filter")
	}
	promotions, next, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list promotions")
	}
	return promotions, next, nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete promotion")
	}
	if !deleted {
		return pkgerrors.New(pkgerrors.CodeNotFound, "promotion not found")
	}
	return nil
}

func (s *service) Redeem(ctx context.Context, input RedeemInput) (*models.PromotionUsage, error) {
	return s.recorder.Redeem(ctx, input)
}

func validatePromotion(in PromotionInput) error {
	var problems []string
	if strings.TrimSpace(in.Name) == "" {
		problems = append(problems, "name is required")
	}
	if pricing.NormalizeCode(in.Code) == "" {
		problems = append(problems, "code is required")
	}
	if !in.Status.IsValid() {
		problems = append(problems, fmt.Sprintf("invalid status %q", in.Status))
	}
	if _, err := pricing.NewDiscount(in.DiscountType, in.DiscountValue); err != nil {
		problems = append(problems, err.Error())
	}
	if in.MaxDiscountAmount != nil && in.MaxDiscountAmount.IsNegative() {
		problems = append(problems, "max_discount_amount must be non-negative")
	}
	if in.MinOrderValue != nil && in.MinOrderValue.IsNegative() {
		problems = append(problems, "min_order_value must be non-negative")
	}
	for _, ch := range in.ApplicableChannels {
		if !ch.IsValid() {
			problems = append(problems, fmt.Sprintf("invalid channel %q", ch))
		}
	}
	if in.StartDate.IsZero() || in.EndDate.IsZero() {
		problems = append(problems, "start_date and end_date are required")
	} else if !in.EndDate.After(in.StartDate) {
		problems = append(problems, "end_date must be after start_date")
	}
	if in.MaxUses != nil && *in.MaxUses < 0 {
		problems = append(problems, "max_uses must be non-negative")
	}
	if in.MaxUsesPerCustomer != nil && *in.MaxUsesPerCustomer < 0 {
		problems = append(problems, "max_uses_per_customer must be non-negative")
	}
	if len(problems) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid promotion").
			WithDetails(map[string]any{"problems": problems})
	}
	return nil
}
