package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/pricing-engine/api/responses"
	"github.com/angelmondragon/pricing-engine/api/validators"
	"github.com/angelmondragon/pricing-engine/internal/rules"
	dbtypes "github.com/angelmondragon/pricing-engine/pkg/db/types"
	"github.com/angelmondragon/pricing-engine/pkg/enums"
	pkgerrors "github.com/angelmondragon/pricing-engine/pkg/errors"
	"github.com/angelmondragon/pricing-engine/pkg/logger"
)

type ruleProductRequest struct {
	ProductID  *uuid.UUID `json:"product_id"`
	VariantID  *uuid.UUID `json:"variant_id"`
	IsExcluded bool       `json:"is_excluded"`
}

type ruleCategoryRequest struct {
	CategoryID uuid.UUID `json:"category_id" validate:"required"`
	IsExcluded bool      `json:"is_excluded"`
}

type ruleRequest struct {
	Name                    string                `json:"name" validate:"required,max=255"`
	Code                    string                `json:"code" validate:"required,max=50"`
	Description             *string               `json:"description"`
	RuleType                string                `json:"rule_type" validate:"required"`
	Status                  string                `json:"status"`
	Priority                int                   `json:"priority"`
	DiscountType            string                `json:"discount_type" validate:"required"`
	DiscountValue           *decimal.Decimal      `json:"discount_value" validate:"required,money"`
	MaxDiscountAmount       *decimal.Decimal      `json:"max_discount_amount"`
	MinPrice                *decimal.Decimal      `json:"min_price"`
	ApplicableChannels      []string              `json:"applicable_channels"`
	ApplicableCustomerTiers []string              `json:"applicable_customer_tiers"`
	StartDate               *time.Time            `json:"start_date"`
	EndDate                 *time.Time            `json:"end_date"`
	StartTime               *string               `json:"start_time" validate:"omitempty,clock"`
	EndTime                 *string               `json:"end_time" validate:"omitempty,clock"`
	ApplicableDays          []int                 `json:"applicable_days" validate:"omitempty,dive,min=0,max=6"`
	Conditions              dbtypes.Conditions    `json:"conditions"`
	BuyQuantity             *int                  `json:"buy_quantity"`
	GetQuantity             *int                  `json:"get_quantity"`
	MaxUses                 *int                  `json:"max_uses" validate:"omitempty,min=1"`
	MaxUsesPerCustomer      *int                  `json:"max_uses_per_customer" validate:"omitempty,min=1"`
	IsStackable             bool                  `json:"is_stackable"`
	IsExclusive             bool                  `json:"is_exclusive"`
	Products                []ruleProductRequest  `json:"products" validate:"omitempty,dive"`
	Categories              []ruleCategoryRequest `json:"categories" validate:"omitempty,dive"`
}

func (r ruleRequest) toInput() (rules.RuleInput, error) {
	problems := map[string]string{}

	ruleType, err := enums.ParseRuleType(r.RuleType)
	if err != nil {
		problems["rule_type"] = "is invalid"
	}
	status := enums.RuleStatusDraft
	if strings.TrimSpace(r.Status) != "" {
		if status, err = enums.ParseRuleStatus(r.Status); err != nil {
			problems["status"] = "is invalid"
		}
	}
	discountType, err := enums.ParseDiscountType(r.DiscountType)
	if err != nil {
		problems["discount_type"] = "is invalid"
	}
	channels, ok := parseChannels(r.ApplicableChannels)
	if !ok {
		problems["applicable_channels"] = "contains an invalid channel"
	}
	tiers, ok := parseTiers(r.ApplicableCustomerTiers)
	if !ok {
		problems["applicable_customer_tiers"] = "contains an invalid tier"
	}
	if len(problems) > 0 {
		return rules.RuleInput{}, pkgerrors.New(pkgerrors.CodeValidation, "validation failed").WithDetails(problems)
	}

	products := make([]rules.ProductScope, 0, len(r.Products))
	for _, p := range r.Products {
		products = append(products, rules.ProductScope{ProductID: p.ProductID, VariantID: p.VariantID, IsExcluded: p.IsExcluded})
	}
	categories := make([]rules.CategoryScope, 0, len(r.Categories))
	for _, c := range r.Categories {
		categories = append(categories, rules.CategoryScope{CategoryID: c.CategoryID, IsExcluded: c.IsExcluded})
	}
	conditions := r.Conditions
	if conditions == nil {
		conditions = dbtypes.Conditions{}
	}

	return rules.RuleInput{
		Name:                    strings.TrimSpace(r.Name),
		Code:                    strings.TrimSpace(r.Code),
		Description:             r.Description,
		RuleType:                ruleType,
		Status:                  status,
		Priority:                r.Priority,
		DiscountType:            discountType,
		DiscountValue:           *r.DiscountValue,
		MaxDiscountAmount:       r.MaxDiscountAmount,
		MinPrice:                r.MinPrice,
		ApplicableChannels:      channels,
		ApplicableCustomerTiers: tiers,
		StartDate:               r.StartDate,
		EndDate:                 r.EndDate,
		StartTime:               r.StartTime,
		EndTime:                 r.EndTime,
		ApplicableDays:          r.ApplicableDays,
		Conditions:              conditions,
		BuyQuantity:             r.BuyQuantity,
		GetQuantity:             r.GetQuantity,
		MaxUses:                 r.MaxUses,
		MaxUsesPerCustomer:      r.MaxUsesPerCustomer,
		IsStackable:             r.IsStackable,
		IsExclusive:             r.IsExclusive,
		Products:                products,
		Categories:              categories,
	}, nil
}

func parseChannels(values []string) ([]enums.Channel, bool) {
	out := make([]enums.Channel, 0, len(values))
	for _, v := range values {
		c, err := enums.ParseChannel(v)
		if err != nil {
			return nil, false
		}
		out = append(out, c)
	}
	return out, true
}

func parseTiers(values []string) ([]enums.CustomerTier, bool) {
	out := make([]enums.CustomerTier, 0, len(values))
	for _, v := range values {
		t, err := enums.ParseCustomerTier(v)
		if err != nil {
			return nil, false
		}
		out = append(out, t)
	}
	return out, true
}

// AdminRuleCreate authors a new pricing rule.
func AdminRuleCreate(svc rules.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "rule service unavailable"))
			return
		}

		var payload ruleRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rule, err := svc.Create(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, toRuleResponse(*rule))
	}
}

// AdminRuleUpdate replaces a rule, including its product and category scope.
func AdminRuleUpdate(svc rules.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "rule service unavailable"))
			return
		}

		id, err := parseUUIDParam(r, "ruleID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload ruleRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rule, err := svc.Update(r.Context(), id, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toRuleResponse(*rule))
	}
}

func AdminRuleGet(svc rules.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "rule service unavailable"))
			return
		}

		id, err := parseUUIDParam(r, "ruleID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rule, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toRuleResponse(*rule))
	}
}

// AdminRuleList pages through rules newest first, filtered by status and rule_type.
func AdminRuleList(svc rules.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "rule service unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", 25, 1, 100)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		cursor, err := parseCursorQuery(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params := rules.ListParams{Limit: limit, Cursor: cursor}
		if raw := r.URL.Query().Get("status"); raw != "" {
			status, err := enums.ParseRuleStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
				return
			}
			params.Status = &status
		}
		if raw := r.URL.Query().Get("rule_type"); raw != "" {
			ruleType, err := enums.ParseRuleType(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid rule_type"))
				return
			}
			params.RuleType = &ruleType
		}

		rows, next, err := svc.List(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newPage(rows, next, toRuleResponse))
	}
}

func AdminRuleDelete(svc rules.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "rule service unavailable"))
			return
		}

		id, err := parseUUIDParam(r, "ruleID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Delete(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// AdminRuleActivate and AdminRuleDeactivate toggle a rule between active and paused.
func AdminRuleActivate(svc rules.Service, logg *logger.Logger) http.HandlerFunc {
	return ruleStatusHandler(svc, logg, true)
}

func AdminRuleDeactivate(svc rules.Service, logg *logger.Logger) http.HandlerFunc {
	return ruleStatusHandler(svc, logg, false)
}

func ruleStatusHandler(svc rules.Service, logg *logger.Logger, activate bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "rule service unavailable"))
			return
		}

		id, err := parseUUIDParam(r, "ruleID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		toggle := svc.Deactivate
		if activate {
			toggle = svc.Activate
		}
		rule, err := toggle(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toRuleResponse(*rule))
	}
}
