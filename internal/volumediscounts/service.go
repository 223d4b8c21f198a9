package volumediscounts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/pricing-engine/internal/pricing"
	"github.com/angelmondragon/pricing-engine/pkg/db/models"
	"github.com/angelmondragon/pricing-engine/pkg/enums"
	pkgerrors "github.com/angelmondragon/pricing-engine/pkg/errors"
	"github.com/angelmondragon/pricing-engine/pkg/logger"
	"github.com/angelmondragon/pricing-engine/pkg/pagination"
)

type Service interface {
	Create(ctx context.Context, input DiscountInput) (*models.VolumeDiscount, error)
	Get(ctx context.Context, id uuid.UUID) (*models.VolumeDiscount, error)
	List(ctx context.Context, params ListParams) ([]models.VolumeDiscount, *pagination.Cursor, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// DiscountInput describes one quantity tier.
type DiscountInput struct {
	Name              string
	Description       *string
	ProductID         *uuid.UUID
	VariantID         *uuid.UUID
	CategoryID        *uuid.UUID
	IsGlobal          bool
	MinQuantity       int
	MaxQuantity       *int
	DiscountType      enums.DiscountType
	DiscountValue     decimal.Decimal
	MaxDiscountAmount *decimal.Decimal
	Channel           *enums.Channel
	CustomerTier      *enums.CustomerTier
	IsActive          bool
	StartDate         *time.Time
	EndDate           *time.Time
	Priority          int
}

type service struct {
	repo Repository
	logg *logger.Logger
}

func NewService(repo Repository, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("volume discount repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, logg: logg}, nil
}

func (s *service) Create(ctx context.Context, input DiscountInput) (*models.VolumeDiscount, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}
	discount := &models.VolumeDiscount{
		Name:              strings.TrimSpace(input.Name),
		Description:       input.Description,
		ProductID:         input.ProductID,
		ProductVariantID:  input.VariantID,
		CategoryID:        input.CategoryID,
		IsGlobal:          input.IsGlobal,
		MinQuantity:       input.MinQuantity,
		MaxQuantity:       input.MaxQuantity,
		DiscountType:      input.DiscountType,
		DiscountValue:     input.DiscountValue,
		MaxDiscountAmount: input.MaxDiscountAmount,
		Channel:           input.Channel,
		CustomerTier:      input.CustomerTier,
		IsActive:          input.IsActive,
		StartDate:         input.StartDate,
		EndDate:           input.EndDate,
		Priority:          input.Priority,
	}
	if err := s.repo.Create(ctx, discount); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create volume discount")
	}
	s.logg.Info(s.logg.WithField(ctx, "volume_discount_id", discount.ID.String()), "volume discount created")
	return discount, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.VolumeDiscount, error) {
	discount, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "volume discount not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load volume discount")
	}
	return discount, nil
}

func (s *service) List(ctx context.Context, params ListParams) ([]models.VolumeDiscount, *pagination.Cursor, error) {
	rows, next, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list volume discounts")
	}
	return rows, next, nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete volume discount")
	}
	if !deleted {
		return pkgerrors.New(pkgerrors.CodeNotFound, "volume discount not found")
	}
	s.logg.Info(s.logg.WithField(ctx, "volume_discount_id", id.String()), "volume discount deleted")
	return nil
}

func validateInput(in DiscountInput) error {
	var problems []string
	if strings.TrimSpace(in.Name) == "" {
		problems = append(problems, "name is required")
	}
	if in.MinQuantity < 1 {
		problems = append(problems, "min_quantity must be at least 1")
	}
	if in.MaxQuantity != nil && *in.MaxQuantity < in.MinQuantity {
		problems = append(problems, "max_quantity must be greater than or equal to min_quantity")
	}
	if in.DiscountType == enums.DiscountTypeBuyXGetY {
		problems = append(problems, "buy_x_get_y is not supported for volume discounts")
	} else if _, err := pricing.NewDiscount(in.DiscountType, in.DiscountValue); err != nil {
		problems = append(problems, err.Error())
	}
	if in.MaxDiscountAmount != nil && in.MaxDiscountAmount.IsNegative() {
		problems = append(problems, "max_discount_amount must be non-negative")
	}
	if in.Channel != nil && !in.Channel.IsValid() {
		problems = append(problems, fmt.Sprintf("invalid channel %q", *in.Channel))
	}
	if in.CustomerTier != nil && !in.CustomerTier.IsValid() {
		problems = append(problems, fmt.Sprintf("invalid customer_tier %q", *in.CustomerTier))
	}
	if in.StartDate != nil && in.EndDate != nil && in.EndDate.Before(*in.StartDate) {
		problems = append(problems, "end_date must not be before start_date")
	}
	if len(problems) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid volume discount").
			WithDetails(map[string]any{"problems": problems})
	}
	return nil
}
