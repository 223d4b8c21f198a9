package channelprices

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/pricing-engine/pkg/db/models"
	"github.com/angelmondragon/pricing-engine/pkg/enums"
	pkgerrors "github.com/angelmondragon/pricing-engine/pkg/errors"
	"github.com/angelmondragon/pricing-engine/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service manages channel prices.
type Service interface {
	Set(ctx context.Context, input SetInput) (*models.ChannelPrice, error)
	ListByVariant(ctx context.Context, variantID uuid.UUID) ([]models.ChannelPrice, error)
	History(ctx context.Context, params HistoryParams) ([]models.PriceHistory, error)
}

// SetInput upserts the price of one item on one channel.
type SetInput struct {
	Item           Item
	Channel        enums.Channel
	BasePrice      decimal.Decimal
	CompareAtPrice *decimal.Decimal
	CostPrice      *decimal.Decimal
	MinPrice       *decimal.Decimal
	Currency       string
	EffectiveFrom  *time.Time
	EffectiveUntil *time.Time
	Reason         *enums.PriceChangeReason
	Notes          *string
}

// ServiceParams bundles the dependencies of the channel price service.
type ServiceParams struct {
	Repo            Repository
	Tx              txRunner
	Logger          *logger.Logger
	DefaultCurrency string
	Now             func() time.Time
}

type service struct {
	repo     Repository
	tx       txRunner
	logg     *logger.Logger
	currency string
	now      func() time.Time
}

// NewService builds the channel price service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("channel price repository required")
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
	currency := strings.ToUpper(strings.TrimSpace(params.DefaultCurrency))
	if currency == "" {
		currency = "INR"
	}
	return &service{repo: params.Repo, tx: params.Tx, logg: params.Logger, currency: currency, now: now}, nil
}

// Set writes the channel price and its history row in one transaction.
func (s *service) Set(ctx context.Context, input SetInput) (*models.ChannelPrice, error) {
	if err := validateSet(input); err != nil {
		return nil, err
	}
	currency := strings.ToUpper(strings.TrimSpace(input.Currency))
	if currency == "" {
		currency = s.currency
	}
	now := s.now().UTC()

	var saved *models.ChannelPrice
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		existing, err := repo.FindLatest(ctx, input.Item, input.Channel)
		if err != nil {
			return err
		}

		reason := enums.PriceChangeReasonChannelPrice
		price := existing
		var oldPrice, oldCost *decimal.Decimal
		if price == nil {
			reason = enums.PriceChangeReasonInitialPrice
			price = &models.ChannelPrice{
				ProductID:        input.Item.ProductID,
				ProductVariantID: input.Item.VariantID,
				Channel:          input.Channel,
			}
		} else {
			prev := price.BasePrice
			oldPrice = &prev
			oldCost = price.CostPrice
		}
		if input.Reason != nil {
			reason = *input.Reason
		}

		price.BasePrice = input.BasePrice.Round(2)
		price.CompareAtPrice = input.CompareAtPrice
		price.CostPrice = input.CostPrice
		price.MinPrice = input.MinPrice
		price.Currency = currency
		price.IsActive = true
		price.EffectiveFrom = input.EffectiveFrom
		price.EffectiveUntil = input.EffectiveUntil
		if err := repo.Save(ctx, price); err != nil {
			return err
		}

		effective := now
		if input.EffectiveFrom != nil {
			effective = input.EffectiveFrom.UTC()
		}
		channel := input.Channel
		if err := repo.AppendHistory(ctx, &models.PriceHistory{
			ProductID:        input.Item.ProductID,
			ProductVariantID: input.Item.VariantID,
			Channel:          &channel,
			OldPrice:         oldPrice,
			NewPrice:         price.BasePrice,
			OldCost:          oldCost,
			NewCost:          input.CostPrice,
			Currency:         currency,
			ChangeReason:     reason,
			Notes:            input.Notes,
			EffectiveDate:    effective,
		}); err != nil {
			return err
		}
		saved = price
		return nil
	})
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "save channel price")
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"channel_price_id": saved.ID.String(),
		"channel":          saved.Channel.String(),
	}), "channel price saved")
	return saved, nil
}

func (s *service) ListByVariant(ctx context.Context, variantID uuid.UUID) ([]models.ChannelPrice, error) {
	if variantID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "variant id is required")
	}
	prices, err := s.repo.ListByVariant(ctx, variantID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list channel prices")
	}
	return prices, nil
}

func (s *service) History(ctx context.Context, params HistoryParams) ([]models.PriceHistory, error) {
	if params.Channel != nil && !params.Channel.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid channel")
	}
	if params.From != nil && params.To != nil && params.To.Before(*params.From) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "to must not be before from")
	}
	entries, err := s.repo.ListHistory(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list price history")
	}
	return entries, nil
}

func validateSet(in SetInput) error {
	var problems []string
	if (in.Item.ProductID == nil) == (in.Item.VariantID == nil) {
		problems = append(problems, "exactly one of product_id or variant_id is required")
	}
	if !in.Channel.IsValid() {
		problems = append(problems, fmt.Sprintf("invalid channel %q", in.Channel))
	}
	if in.BasePrice.IsNegative() {
		problems = append(problems, "base_price must be non-negative")
	}
	for name, v := range map[string]*decimal.Decimal{
		"compare_at_price": in.CompareAtPrice,
		"cost_price":       in.CostPrice,
		"min_price":        in.MinPrice,
	} {
		if v != nil && v.IsNegative() {
			problems = append(problems, name+" must be non-negative")
		}
	}
	if in.MinPrice != nil && in.MinPrice.GreaterThan(in.BasePrice) {
		problems = append(problems, "min_price must not exceed base_price")
	}
	if in.EffectiveFrom != nil && in.EffectiveUntil != nil && in.EffectiveUntil.Before(*in.EffectiveFrom) {
		problems = append(problems, "effective_until must not be before effective_from")
	}
	if in.Reason != nil && !in.Reason.IsValid() {
		problems = append(problems, fmt.Sprintf("invalid change reason %q", *in.Reason))
	}
	if len(problems) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid channel price").
			WithDetails(map[string]any{"problems": problems})
	}
	return nil
}
