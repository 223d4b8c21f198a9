package pricing

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/pricing-engine/pkg/db/models"
	"github.com/angelmondragon/pricing-engine/pkg/enums"
)

const (
	msgPromotionNotFound    = "Promotion code not found"
	msgPromotionNotActive   = "Promotion is not active"
	msgPromotionNotStarted  = "Promotion has not started yet"
	msgPromotionExpired     = "Promotion has expired"
	msgPromotionLimit       = "Promotion usage limit reached"
	msgPromotionChannel     = "Promotion not valid for %s channel"
	msgPromotionMinOrder    = "Minimum order value is %s"
	msgPromotionCustomerUse = "You have already used this promotion"
	msgPromotionValid       = "Promotion is valid"

	autoAppliedSuffix = " (Auto-applied)"
)

// PromotionValidation is the outcome of checking a promotion code. An invalid code is
// a result, not an error.
type PromotionValidation struct {
	Valid     bool
	Message   string
	Promotion *models.Promotion
}

// customerUsageFunc counts prior redemptions of a promotion by the checked customer.
type customerUsageFunc func(ctx context.Context, promotion *models.Promotion) (int64, error)

// checkPromotion runs the ordered validation checks; the first failure wins.
func checkPromotion(ctx context.Context, promo *models.Promotion, check PromotionCheck, usage customerUsageFunc) (PromotionValidation, error) {
	if promo == nil {
		return PromotionValidation{Message: msgPromotionNotFound}, nil
	}
	invalid := func(msg string) (PromotionValidation, error) {
		return PromotionValidation{Message: msg, Promotion: promo}, nil
	}

	if promo.Status != enums.RuleStatusActive {
		return invalid(msgPromotionNotActive)
	}
	if check.Now.Before(promo.StartDate) {
		return invalid(msgPromotionNotStarted)
	}
	if check.Now.After(promo.EndDate) {
		return invalid(msgPromotionExpired)
	}
	if promo.MaxUses != nil && promo.CurrentUses >= *promo.MaxUses {
		return invalid(msgPromotionLimit)
	}
	if !allowsChannel(promo.ApplicableChannels, check.Channel) {
		return invalid(fmt.Sprintf(msgPromotionChannel, check.Channel))
	}
	if promo.MinOrderValue != nil && check.OrderValue.LessThan(*promo.MinOrderValue) {
		return invalid(fmt.Sprintf(msgPromotionMinOrder, promo.MinOrderValue.StringFixed(2)))
	}
	if promo.MaxUsesPerCustomer != nil && !check.Customer.IsZero() && usage != nil {
		used, err := usage(ctx, promo)
		if err != nil {
			return PromotionValidation{}, err
		}
		if used >= int64(*promo.MaxUsesPerCustomer) {
			return invalid(msgPromotionCustomerUse)
		}
	}

	return PromotionValidation{Valid: true, Message: msgPromotionValid, Promotion: promo}, nil
}

// promotionDiscount prices an already validated promotion against the running price.
func promotionDiscount(promo *models.Promotion, current decimal.Decimal, quantity int) (decimal.Decimal, error) {
	discount, err := NewDiscount(promo.DiscountType, promo.DiscountValue)
	if err != nil {
		return decimal.Zero, err
	}
	return boundAmount(discount.Compute(current, quantity), promo.MaxDiscountAmount, current), nil
}

// selectAutoPromotion returns the first auto-apply promotion, by creation order, that
// is live for the channel, meets its minimum order value and yields a positive amount.
func selectAutoPromotion(candidates []models.Promotion, channel enums.Channel, current decimal.Decimal, quantity int, now time.Time) *AppliedDiscount {
	ordered := append([]models.Promotion(nil), candidates...)
	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return lessUUID(a.ID, b.ID)
	})

	orderValue := current.Mul(decimal.NewFromInt(int64(quantity)))
	for i := range ordered {
		promo := &ordered[i]
		if !promo.AutoApply || promo.Status != enums.RuleStatusActive {
			continue
		}
		if now.Before(promo.StartDate) || now.After(promo.EndDate) {
			continue
		}
		if promo.MaxUses != nil && promo.CurrentUses >= *promo.MaxUses {
			continue
		}
		if !allowsChannel(promo.ApplicableChannels, channel) {
			continue
		}
		if promo.MinOrderValue != nil && orderValue.LessThan(*promo.MinOrderValue) {
			continue
		}
		amount, err := promotionDiscount(promo, current, quantity)
		if err != nil || !amount.IsPositive() {
			continue
		}
		id := promo.ID
		return &AppliedDiscount{
			Type:        promo.DiscountType,
			Value:       promo.DiscountValue,
			Amount:      amount,
			Source:      enums.DiscountSourcePromotion,
			PromotionID: &id,
			Name:        promo.Name + autoAppliedSuffix,
		}
	}
	return nil
}

// NormalizeCode canonicalizes a promotion code for storage and lookup.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
