package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/angelmondragon/pricing-engine/pkg/logger"
)

// endedExpirer flips active rows whose end date has passed to expired.
type endedExpirer interface {
	ExpireEnded(ctx context.Context, now time.Time) (int64, error)
}

type ExpiryJobParams struct {
	Logger     *logger.Logger
	Promotions endedExpirer
	Rules      endedExpirer
	Now        func() time.Time
}

func NewExpiryJob(params ExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Promotions == nil {
		return nil, fmt.Errorf("promotion repository required")
	}
	if params.Rules == nil {
		return nil, fmt.Errorf("rule repository required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &expiryJob{
		logg:       params.Logger,
		promotions: params.Promotions,
		rules:      params.Rules,
		now:        now,
	}, nil
}

type expiryJob struct {
	logg       *logger.Logger
	promotions endedExpirer
	rules      endedExpirer
	now        func() time.Time
}

func (j *expiryJob) Name() string { return "pricing-expiry" }

// Run expires promotions and rules independently; one table failing does not
// stop the other.
func (j *expiryJob) Run(ctx context.Context) error {
	now := j.now().UTC()

	var errs error
	promotions, err := j.promotions.ExpireEnded(ctx, now)
	if err != nil {
		errs = multierr.Append(errs, fmt.Errorf("expire promotions: %w", err))
	}
	rules, err := j.rules.ExpireEnded(ctx, now)
	if err != nil {
		errs = multierr.Append(errs, fmt.Errorf("expire pricing rules: %w", err))
	}

	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"cutoff":             now,
		"promotions_expired": promotions,
		"rules_expired":      rules,
	}), "expiry sweep complete")
	return errs
}
