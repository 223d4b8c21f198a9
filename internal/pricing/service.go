package pricing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/pricing-engine/pkg/db/models"
	"github.com/angelmondragon/pricing-engine/pkg/enums"
	pkgerrors "github.com/angelmondragon/pricing-engine/pkg/errors"
	"github.com/angelmondragon/pricing-engine/pkg/logger"
)

const (
	OutcomeSuccess       = "success"
	OutcomeInvalid       = "invalid_request"
	OutcomeConfiguration = "configuration_error"
	OutcomeError         = "error"
)

// Service computes item prices and validates promotion codes.
type Service interface {
	Calculate(ctx context.Context, req Request) (*Response, error)
	ValidatePromotion(ctx context.Context, check PromotionCheck) (PromotionValidation, error)
}

// ServiceParams bundles the collaborators of the pricing service.
type ServiceParams struct {
	ChannelPrices   ChannelPriceStore
	Tiers           TierStore
	Rules           RuleStore
	VolumeDiscounts VolumeDiscountStore
	Promotions      PromotionStore
	Logger          *logger.Logger
	Metrics         MetricsRecorder
	Location        *time.Location
	DefaultCurrency string
	Now             func() time.Time
}

type service struct {
	prices     ChannelPriceStore
	tiers      TierStore
	rules      RuleStore
	volumes    VolumeDiscountStore
	promotions PromotionStore
	logg       *logger.Logger
	metrics    MetricsRecorder
	loc        *time.Location
	currency   string
	now        func() time.Time
}

// NewService wires the pricing service.
func NewService(params ServiceParams) (Service, error) {
	if params.ChannelPrices == nil {
		return nil, fmt.Errorf("channel price store is required")
	}
	if params.Tiers == nil {
		return nil, fmt.Errorf("tier store is required")
	}
	if params.Rules == nil {
		return nil, fmt.Errorf("rule store is required")
	}
	if params.VolumeDiscounts == nil {
		return nil, fmt.Errorf("volume discount store is required")
	}
	if params.Promotions == nil {
		return nil, fmt.Errorf("promotion store is required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	loc := params.Location
	if loc == nil {
		loc = time.UTC
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	currency := strings.TrimSpace(params.DefaultCurrency)
	if currency == "" {
		currency = "INR"
	}
	return &service{
		prices:     params.ChannelPrices,
		tiers:      params.Tiers,
		rules:      params.Rules,
		volumes:    params.VolumeDiscounts,
		promotions: params.Promotions,
		logg:       params.Logger,
		metrics:    params.Metrics,
		loc:        loc,
		currency:   currency,
		now:        now,
	}, nil
}

// lookups holds the concurrently fetched inputs of one calculation.
type lookups struct {
	price   *models.ChannelPrice
	tier    *models.CustomerPricingTier
	rules   []models.PricingRule
	volumes []models.VolumeDiscount
}

// Calculate prices one item: base, tier, rules, volume, promotion, then clamp.
func (s *service) Calculate(ctx context.Context, req Request) (*Response, error) {
	started := s.now()
	resp, err := s.calculate(ctx, req)
	if s.metrics != nil {
		s.metrics.ObserveCalculation(outcomeFor(err), s.now().Sub(started))
	}
	return resp, err
}

func outcomeFor(err error) string {
	switch {
	case err == nil:
		return OutcomeSuccess
	case pkgerrors.IsCode(err, pkgerrors.CodeValidation):
		return OutcomeInvalid
	case pkgerrors.IsCode(err, pkgerrors.CodeConfiguration):
		return OutcomeConfiguration
	default:
		return OutcomeError
	}
}

func (s *service) calculate(ctx context.Context, req Request) (*Response, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	now := s.now().In(s.loc)

	found, err := s.fetch(ctx, req, now)
	if err != nil {
		return nil, err
	}

	// ResolveBase
	var (
		original  decimal.Decimal
		compareAt *decimal.Decimal
		floor     = decimal.Zero
		currency  = strings.TrimSpace(req.Currency)
	)
	switch {
	case found.price != nil:
		original = found.price.BasePrice
		compareAt = found.price.CompareAtPrice
		if found.price.MinPrice != nil {
			floor = *found.price.MinPrice
		}
		if currency == "" {
			currency = found.price.Currency
		}
	case req.BasePrice != nil:
		original = *req.BasePrice
		compareAt = req.CompareAtPrice
	default:
		return nil, pkgerrors.New(pkgerrors.CodeConfiguration, "no channel price configured and no base price supplied").
			WithDetails(map[string]any{"channel": req.Channel})
	}
	if currency == "" {
		currency = s.currency
	}
	original = roundMoney(original)
	current := original
	applied := make([]AppliedDiscount, 0, 4)

	// ApplyTier
	// TODO(pricing): confirm with product whether a 0% tier should still unlock
	// tier-restricted rules and volume tiers; today it does.
	var tierName *enums.CustomerTier
	if found.tier != nil {
		tier := found.tier.Tier
		tierName = &tier
		if pct := found.tier.DiscountPercentage; pct.IsPositive() {
			amount := boundAmount(PercentageOff{Percent: pct}.Compute(current, req.Quantity), nil, current)
			if amount.IsPositive() {
				current = current.Sub(amount)
				applied = append(applied, AppliedDiscount{
					Type:   enums.DiscountTypePercentage,
					Value:  pct,
					Amount: amount,
					Source: enums.DiscountSourceCustomerTier,
					Name:   fmt.Sprintf("%s Tier Discount", tier),
				})
			}
		}
	}

	match := MatchInput{
		Target:     req.Target,
		Channel:    req.Channel,
		Tier:       tierName,
		Quantity:   req.Quantity,
		OrderTotal: req.OrderTotal,
		Now:        now,
	}

	// ApplyRules
	sortRules(found.rules)
	exclusiveApplied := false
	for i := range found.rules {
		rule := &found.rules[i]
		if exclusiveApplied && !stacksWithOthers(rule) {
			continue
		}
		if ok, reason := MatchRule(rule, match); !ok {
			s.logg.Debug(s.logg.WithField(ctx, "rule_id", rule.ID.String()), "rule skipped: "+reason)
			continue
		}
		discount, err := NewDiscount(rule.DiscountType, rule.DiscountValue)
		if err != nil {
			s.logg.Warn(s.logg.WithField(ctx, "rule_id", rule.ID.String()), "rule discount invalid: "+err.Error())
			continue
		}
		amount := boundAmount(discount.Compute(current, req.Quantity), rule.MaxDiscountAmount, current)
		if rule.MinPrice != nil {
			headroom := current.Sub(*rule.MinPrice)
			if headroom.IsNegative() {
				headroom = decimal.Zero
			}
			if amount.GreaterThan(headroom) {
				amount = roundMoney(headroom)
			}
		}
		if !amount.IsPositive() {
			continue
		}
		current = current.Sub(amount)
		if rule.MinPrice != nil && rule.MinPrice.GreaterThan(floor) {
			floor = *rule.MinPrice
		}
		id := rule.ID
		applied = append(applied, AppliedDiscount{
			Type:   rule.DiscountType,
			Value:  rule.DiscountValue,
			Amount: amount,
			Source: enums.DiscountSourcePricingRule,
			RuleID: &id,
			Name:   rule.Name,
		})
		if !stacksWithOthers(rule) {
			exclusiveApplied = true
		}
	}

	// ApplyVolume
	if vd := SelectVolume(found.volumes, match, current); vd != nil {
		current = current.Sub(vd.Amount)
		applied = append(applied, *vd)
	}

	// ApplyPromotion
	var (
		promoValid   *bool
		promoMessage *string
	)
	if code := NormalizeCode(req.PromotionCode); code != "" {
		result := s.checkCodeDuringCalculation(ctx, code, req, current, now)
		valid, message := result.Valid, result.Message
		promoValid, promoMessage = &valid, &message
		if result.Valid {
			amount, err := promotionDiscount(result.Promotion, current, req.Quantity)
			if err == nil && amount.IsPositive() {
				current = current.Sub(amount)
				id := result.Promotion.ID
				applied = append(applied, AppliedDiscount{
					Type:        result.Promotion.DiscountType,
					Value:       result.Promotion.DiscountValue,
					Amount:      amount,
					Source:      enums.DiscountSourcePromotion,
					PromotionID: &id,
					Name:        result.Promotion.Name,
				})
			}
		}
	} else {
		autos, err := s.promotions.ListAutoApply(ctx, now)
		if err != nil {
			s.logg.Warn(ctx, "auto-apply promotion lookup failed: "+err.Error())
		}
		if promo := selectAutoPromotion(autos, req.Channel, current, req.Quantity, now); promo != nil {
			current = current.Sub(promo.Amount)
			applied = append(applied, *promo)
		}
	}

	// ClampAndRound
	if floor.GreaterThan(original) {
		floor = original
	}
	final := current
	if final.LessThan(floor) {
		final = floor
	}
	if final.IsNegative() {
		final = decimal.Zero
	}
	final = roundMoney(final)

	qty := decimal.NewFromInt(int64(req.Quantity))
	discountAmount := original.Sub(final)
	discountPct := decimal.Zero
	if original.IsPositive() {
		discountPct = roundMoney(discountAmount.Div(original).Mul(hundred))
	}

	return &Response{
		OriginalPrice:      original,
		FinalPrice:         final,
		DiscountAmount:     discountAmount,
		DiscountPercentage: discountPct,
		AppliedDiscounts:   applied,
		Quantity:           req.Quantity,
		LineTotal:          roundMoney(final.Mul(qty)),
		OriginalLineTotal:  roundMoney(original.Mul(qty)),
		CompareAtPrice:     compareAt,
		Currency:           currency,
		CustomerTier:       tierName,
		PromotionValid:     promoValid,
		PromotionMessage:   promoMessage,
	}, nil
}

// fetch loads the channel price, tier, rules and volume tiers in parallel. Only a
// channel price failure aborts the calculation.
func (s *service) fetch(ctx context.Context, req Request, now time.Time) (lookups, error) {
	var out lookups
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		price, err := s.prices.FindEffective(gctx, ChannelPriceQuery{
			ProductID: req.Target.ProductID,
			VariantID: req.Target.VariantID,
			Channel:   req.Channel,
			Now:       now,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve channel price")
		}
		out.price = price
		return nil
	})
	if !req.Customer.IsZero() {
		g.Go(func() error {
			tier, err := s.tiers.Current(gctx, req.Customer, now)
			if err != nil {
				s.logg.Warn(s.logg.WithCustomerID(ctx, req.Customer.String()), "customer tier lookup failed: "+err.Error())
				return nil
			}
			out.tier = tier
			return nil
		})
	}
	g.Go(func() error {
		rules, err := s.rules.ListCandidates(gctx, RuleQuery{Channel: req.Channel, Now: now})
		if err != nil {
			s.logg.Warn(ctx, "pricing rule lookup failed: "+err.Error())
			return nil
		}
		out.rules = rules
		return nil
	})
	g.Go(func() error {
		volumes, err := s.volumes.ListCandidates(gctx, VolumeQuery{
			Target:   req.Target,
			Channel:  req.Channel,
			Quantity: req.Quantity,
			Now:      now,
		})
		if err != nil {
			s.logg.Warn(ctx, "volume discount lookup failed: "+err.Error())
			return nil
		}
		out.volumes = volumes
		return nil
	})

	if err := g.Wait(); err != nil {
		return lookups{}, err
	}
	return out, nil
}

// checkCodeDuringCalculation validates a code against the running price. Lookup
// failures degrade to "not found" and zero prior uses.
func (s *service) checkCodeDuringCalculation(ctx context.Context, code string, req Request, current decimal.Decimal, now time.Time) PromotionValidation {
	promo, err := s.promotions.FindByCode(ctx, code)
	if err != nil {
		s.logg.Warn(ctx, "promotion lookup failed: "+err.Error())
		promo = nil
	}
	check := PromotionCheck{
		Code:       code,
		Channel:    req.Channel,
		OrderValue: current.Mul(decimal.NewFromInt(int64(req.Quantity))),
		Customer:   req.Customer,
		Now:        now,
	}
	result, _ := checkPromotion(ctx, promo, check, func(ctx context.Context, p *models.Promotion) (int64, error) {
		used, err := s.promotions.CustomerUsageCount(ctx, p.ID, req.Customer)
		if err != nil {
			s.logg.Warn(ctx, "promotion usage lookup failed: "+err.Error())
			return 0, nil
		}
		return used, nil
	})
	if s.metrics != nil {
		s.metrics.IncPromotionValidation(result.Valid)
	}
	return result
}

// ValidatePromotion checks a code without pricing anything. Store failures are errors here.
func (s *service) ValidatePromotion(ctx context.Context, check PromotionCheck) (PromotionValidation, error) {
	check.Code = NormalizeCode(check.Code)
	if check.Code == "" {
		return PromotionValidation{}, pkgerrors.New(pkgerrors.CodeValidation, "promotion code is required")
	}
	if !check.Channel.IsValid() {
		return PromotionValidation{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid channel")
	}
	if check.OrderValue.IsNegative() {
		return PromotionValidation{}, pkgerrors.New(pkgerrors.CodeValidation, "order value must be non-negative")
	}
	if check.Now.IsZero() {
		check.Now = s.now()
	}

	promo, err := s.promotions.FindByCode(ctx, check.Code)
	if err != nil {
		return PromotionValidation{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup promotion")
	}
	result, err := checkPromotion(ctx, promo, check, func(ctx context.Context, p *models.Promotion) (int64, error) {
		return s.promotions.CustomerUsageCount(ctx, p.ID, check.Customer)
	})
	if err != nil {
		return PromotionValidation{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count promotion usage")
	}
	if s.metrics != nil {
		s.metrics.IncPromotionValidation(result.Valid)
	}
	return result, nil
}

func validateRequest(req Request) error {
	if req.Target.ProductID == nil && req.Target.VariantID == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "product_id or variant_id is required")
	}
	if req.Quantity < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be non-negative")
	}
	if !req.Channel.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid channel")
	}
	if req.Customer.UserID != nil && req.Customer.WholesaleCustomerID != nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user_id and wholesale_customer_id are mutually exclusive")
	}
	if req.BasePrice != nil && req.BasePrice.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "base_price must be non-negative")
	}
	return nil
}
