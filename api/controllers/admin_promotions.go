package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/pricing-engine/api/responses"
	"github.com/angelmondragon/pricing-engine/api/validators"
	"github.com/angelmondragon/pricing-engine/internal/promotions"
	"github.com/angelmondragon/pricing-engine/pkg/enums"
	pkgerrors "github.com/angelmondragon/pricing-engine/pkg/errors"
	"github.com/angelmondragon/pricing-engine/pkg/logger"
)

type promotionRequest struct {
	Name               string           `json:"name" validate:"required,max=255"`
	Code               string           `json:"code" validate:"required,max=50"`
	Description        *string          `json:"description"`
	Status             string           `json:"status"`
	DiscountType       string           `json:"discount_type" validate:"required"`
	DiscountValue      *decimal.Decimal `json:"discount_value" validate:"required,money"`
	MaxDiscountAmount  *decimal.Decimal `json:"max_discount_amount"`
	MinOrderValue      *decimal.Decimal `json:"min_order_value"`
	ApplicableChannels []string         `json:"applicable_channels"`
	StartDate          *time.Time       `json:"start_date" validate:"required"`
	EndDate            *time.Time       `json:"end_date" validate:"required"`
	MaxUses            *int             `json:"max_uses" validate:"omitempty,min=1"`
	MaxUsesPerCustomer *int             `json:"max_uses_per_customer" validate:"omitempty,min=1"`
	IsStackable        bool             `json:"is_stackable"`
	AutoApply          bool             `json:"auto_apply"`
}

func (r promotionRequest) toInput() (promotions.PromotionInput, error) {
	problems := map[string]string{}

	status := enums.RuleStatusDraft
	if strings.TrimSpace(r.Status) != "" {
		parsed, err := enums.ParseRuleStatus(r.Status)
		if err != nil {
			problems["status"] = "is invalid"
		}
		status = parsed
	}
	discountType, err := enums.ParseDiscountType(r.DiscountType)
	if err != nil {
		problems["discount_type"] = "is invalid"
	}
	channels, ok := parseChannels(r.ApplicableChannels)
	if !ok {
		problems["applicable_channels"] = "contains an invalid channel"
	}
	if len(problems) > 0 {
		return promotions.PromotionInput{}, pkgerrors.New(pkgerrors.CodeValidation, "validation failed").WithDetails(problems)
	}

	return promotions.PromotionInput{
		Name:               strings.TrimSpace(r.Name),
		Code:               r.Code,
		Description:        r.Description,
		Status:             status,
		DiscountType:       discountType,
		DiscountValue:      *r.DiscountValue,
		MaxDiscountAmount:  r.MaxDiscountAmount,
		MinOrderValue:      r.MinOrderValue,
		ApplicableChannels: channels,
		StartDate:          *r.StartDate,
		EndDate:            *r.EndDate,
		MaxUses:            r.MaxUses,
		MaxUsesPerCustomer: r.MaxUsesPerCustomer,
		IsStackable:        r.IsStackable,
		AutoApply:          r.AutoApply,
	}, nil
}

func AdminPromotionCreate(svc promotions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "promotion service unavailable"))
			return
		}

		var payload promotionRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		promo, err := svc.Create(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, toPromotionResponse(*promo))
	}
}

func AdminPromotionGet(svc promotions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "promotion service unavailable"))
			return
		}

		id, err := parseUUIDParam(r, "promotionID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		promo, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toPromotionResponse(*promo))
	}
}

// AdminPromotionList filters by status and auto_apply.
func AdminPromotionList(svc promotions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "promotion service unavailable"))
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

		params := promotions.ListParams{Limit: limit, Cursor: cursor}
		if raw := r.URL.Query().Get("status"); raw != "" {
			status, err := enums.ParseRuleStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
				return
			}
			params.Status = &status
		}
		if params.AutoApply, err = validators.ParseQueryBool(r, "auto_apply"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rows, next, err := svc.List(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newPage(rows, next, toPromotionResponse))
	}
}

func AdminPromotionDelete(svc promotions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "promotion service unavailable"))
			return
		}

		id, err := parseUUIDParam(r, "promotionID")
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
