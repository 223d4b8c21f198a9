package promotions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/pricing-engine/internal/pricing"
	"github.com/angelmondragon/pricing-engine/pkg/db"
	"github.com/angelmondragon/pricing-engine/pkg/db/models"
	"github.com/angelmondragon/pricing-engine/pkg/enums"
	pkgerrors "github.com/angelmondragon/pricing-engine/pkg/errors"
	"github.com/angelmondragon/pricing-engine/pkg/logger"
)

const (
	RedemptionRecorded      = "recorded"
	RedemptionLimitReached  = "limit_reached"
	RedemptionCustomerLimit = "customer_limit"
	RedemptionNotFound      = "not_found"
	RedemptionFailed        = "failed"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// RedemptionMetrics counts redemption outcomes. A nil value is allowed.
type RedemptionMetrics interface {
	IncRedemption(outcome string)
}

// RedeemInput describes one finalized use of a promotion.
type RedeemInput struct {
	PromotionID              uuid.UUID
	OrderID                  *uuid.UUID
	Customer                 pricing.CustomerRef
	DiscountAmount           decimal.Decimal
	OrderTotalBeforeDiscount decimal.Decimal
	OrderTotalAfterDiscount  decimal.Decimal
}

// RecorderParams bundles the dependencies of the usage recorder.
type RecorderParams struct {
	Repo     Repository
	Tx       txRunner
	Logger   *logger.Logger
	Metrics  RedemptionMetrics
	Attempts int
	Backoff  time.Duration
	Now      func() time.Time
}

// Recorder is the only writer of promotion usage counters and the usage ledger.
type Recorder struct {
	repo     Repository
	tx       txRunner
	logg     *logger.Logger
	metrics  RedemptionMetrics
	attempts int
	backoff  time.Duration
	now      func() time.Time
}

// NewRecorder builds a usage recorder.
func NewRecorder(params RecorderParams) (*Recorder, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("promotions repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	attempts := params.Attempts
	if attempts < 1 {
		attempts = 1
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Recorder{
		repo:     params.Repo,
		tx:       params.Tx,
		logg:     params.Logger,
		metrics:  params.Metrics,
		attempts: attempts,
		backoff:  params.Backoff,
		now:      now,
	}, nil
}

// Redeem consumes one use of the promotion and appends the ledger row in a single
// transaction. Serialization failures and deadlocks are retried.
func (r *Recorder) Redeem(ctx context.Context, input RedeemInput) (*models.PromotionUsage, error) {
	if err := validateRedeem(input); err != nil {
		return nil, err
	}

	var (
		usage *models.PromotionUsage
		err   error
	)
	for attempt := 1; attempt <= r.attempts; attempt++ {
		usage, err = r.redeemOnce(ctx, input)
		if err == nil || !db.IsRetryable(err) || attempt == r.attempts {
			break
		}
		r.logg.Warn(r.logg.WithFields(ctx, map[string]any{
			"promotion_id": input.PromotionID.String(),
			"attempt":      attempt,
		}), "promotion redemption conflict, retrying")
		if waitErr := sleepCtx(ctx, r.backoff*time.Duration(attempt)); waitErr != nil {
			err = waitErr
			break
		}
	}

	r.observe(err)
	if err == nil {
		return usage, nil
	}
	if pkgerrors.As(err) != nil {
		return nil, err
	}
	if db.IsRetryable(err) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUsageLimit, err, "promotion usage contention, retry later")
	}
	return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "record promotion usage")
}

func (r *Recorder) redeemOnce(ctx context.Context, input RedeemInput) (*models.PromotionUsage, error) {
	var usage *models.PromotionUsage
	err := r.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := r.repo.WithTx(tx)

		promo, err := repo.FindByID(ctx, input.PromotionID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "promotion not found")
		}
		if err != nil {
			return err
		}

		now := r.now().UTC()
		switch {
		case promo.Status != enums.RuleStatusActive:
			return pkgerrors.New(pkgerrors.CodeStateConflict, "Promotion is not active")
		case now.Before(promo.StartDate):
			return pkgerrors.New(pkgerrors.CodeStateConflict, "Promotion has not started yet")
		case now.After(promo.EndDate):
			return pkgerrors.New(pkgerrors.CodeStateConflict, "Promotion has expired")
		}

		ok, err := repo.IncrementUsage(ctx, promo.ID, now)
		if err != nil {
			return err
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeUsageLimit, "Promotion usage limit reached").
				WithDetails(map[string]any{"promotion_id": promo.ID})
		}

		// counted after the increment so concurrent redemptions of the same
		// promotion see each other's committed ledger rows
		if promo.MaxUsesPerCustomer != nil && !input.Customer.IsZero() {
			used, err := repo.CustomerUsageCount(ctx, promo.ID, input.Customer)
			if err != nil {
				return err
			}
			if used >= int64(*promo.MaxUsesPerCustomer) {
				return pkgerrors.New(pkgerrors.CodeConflict, "You have already used this promotion")
			}
		}

		usage = &models.PromotionUsage{
			PromotionID:              promo.ID,
			OrderID:                  input.OrderID,
			UserID:                   input.Customer.UserID,
			WholesaleCustomerID:      input.Customer.WholesaleCustomerID,
			DiscountAmount:           input.DiscountAmount.Round(2),
			OrderTotalBeforeDiscount: input.OrderTotalBeforeDiscount.Round(2),
			OrderTotalAfterDiscount:  input.OrderTotalAfterDiscount.Round(2),
			UsedAt:                   now,
		}
		return repo.AppendUsage(ctx, usage)
	})
	if err != nil {
		return nil, err
	}
	return usage, nil
}

func (r *Recorder) observe(err error) {
	if r.metrics == nil {
		return
	}
	outcome := RedemptionRecorded
	switch {
	case err == nil:
	case pkgerrors.IsCode(err, pkgerrors.CodeUsageLimit):
		outcome = RedemptionLimitReached
	case pkgerrors.IsCode(err, pkgerrors.CodeConflict):
		outcome = RedemptionCustomerLimit
	case pkgerrors.IsCode(err, pkgerrors.CodeNotFound):
		outcome = RedemptionNotFound
	default:
		outcome = RedemptionFailed
	}
	r.metrics.IncRedemption(outcome)
}

func validateRedeem(input RedeemInput) error {
	if input.PromotionID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "promotion id is required")
	}
	if input.Customer.UserID != nil && input.Customer.WholesaleCustomerID != nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user_id and wholesale_customer_id are mutually exclusive")
	}
	if input.DiscountAmount.IsNegative() || input.OrderTotalBeforeDiscount.IsNegative() || input.OrderTotalAfterDiscount.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "amounts must be non-negative")
	}
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
