package tiers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/pricing-engine/internal/pricing"
	"github.com/angelmondragon/pricing-engine/pkg/db/models"
	"github.com/angelmondragon/pricing-engine/pkg/enums"
	pkgerrors "github.com/angelmondragon/pricing-engine/pkg/errors"
	"github.com/angelmondragon/pricing-engine/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service manages customer tier assignments.
type Service interface {
	Assign(ctx context.Context, input AssignInput) (*models.CustomerPricingTier, error)
	Current(ctx context.Context, customer pricing.CustomerRef) (*models.CustomerPricingTier, error)
	ListByTier(ctx context.Context, tier enums.CustomerTier) ([]models.CustomerPricingTier, error)
}

type AssignInput struct {
	Customer           pricing.CustomerRef
	Tier               enums.CustomerTier
	DiscountPercentage decimal.Decimal
	AssignmentReason   *string
	EffectiveUntil     *time.Time
	IsAutomatic        bool
}

type ServiceParams struct {
	Repo   Repository
	Tx     txRunner
	Logger *logger.Logger
	Now    func() time.Time
}

type service struct {
	repo Repository
	tx   txRunner
	logg *logger.Logger
	now  func() time.Time
}

var hundred = decimal.NewFromInt(100)

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("tier repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{repo: params.Repo, tx: params.Tx, logg: params.Logger, now: now}, nil
}

// Assign ends the customer's open assignment and starts the new one at now.
func (s *service) Assign(ctx context.Context, input AssignInput) (*models.CustomerPricingTier, error) {
	now := s.now().UTC()
	if err := validateAssign(input, now); err != nil {
		return nil, err
	}

	tier := &models.CustomerPricingTier{
		UserID:              input.Customer.UserID,
		WholesaleCustomerID: input.Customer.WholesaleCustomerID,
		Tier:                input.Tier,
		DiscountPercentage:  input.DiscountPercentage,
		AssignmentReason:    trimmed(input.AssignmentReason),
		EffectiveFrom:       now,
		EffectiveUntil:      input.EffectiveUntil,
		IsAutomatic:         input.IsAutomatic,
	}

	var ended int64
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		n, err := repo.EndCurrent(ctx, input.Customer, now)
		if err != nil {
			return err
		}
		ended = n
		return repo.Create(ctx, tier)
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "assign customer tier")
	}

	s.logg.Info(s.logg.WithFields(s.logg.WithCustomerID(ctx, input.Customer.String()), map[string]any{
		"tier":          input.Tier.String(),
		"ended_prior":   ended,
		"tier_assigned": tier.ID.String(),
	}), "customer tier assigned")
	return tier, nil
}

func (s *service) Current(ctx context.Context, customer pricing.CustomerRef) (*models.CustomerPricingTier, error) {
	if err := validateCustomer(customer); err != nil {
		return nil, err
	}
	tier, err := s.repo.Current(ctx, customer, s.now())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load customer tier")
	}
	if tier == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "customer has no current tier")
	}
	return tier, nil
}

func (s *service) ListByTier(ctx context.Context, tier enums.CustomerTier) ([]models.CustomerPricingTier, error) {
	if !tier.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid tier %q", tier))
	}
	rows, err := s.repo.ListByTier(ctx, tier, s.now())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list tier assignments")
	}
	return rows, nil
}

func validateCustomer(customer pricing.CustomerRef) error {
	if (customer.UserID == nil) == (customer.WholesaleCustomerID == nil) {
		return pkgerrors.New(pkgerrors.CodeValidation, "exactly one of user_id or wholesale_customer_id is required")
	}
	return nil
}

func validateAssign(in AssignInput, now time.Time) error {
	var problems []string
	if err := validateCustomer(in.Customer); err != nil {
		problems = append(problems, pkgerrors.As(err).Message())
	}
	if !in.Tier.IsValid() {
		problems = append(problems, fmt.Sprintf("invalid tier %q", in.Tier))
	}
	if in.DiscountPercentage.IsNegative() || in.DiscountPercentage.GreaterThan(hundred) {
		problems = append(problems, "discount_percentage must be between 0 and 100")
	}
	if in.EffectiveUntil != nil && !in.EffectiveUntil.After(now) {
		problems = append(problems, "effective_until must be in the future")
	}
	if len(problems) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid tier assignment").
			WithDetails(map[string]any{"problems": problems})
	}
	return nil
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
