package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/pricing-engine/api/responses"
	"github.com/angelmondragon/pricing-engine/api/validators"
	"github.com/angelmondragon/pricing-engine/internal/pricing"
	"github.com/angelmondragon/pricing-engine/internal/promotions"
	"github.com/angelmondragon/pricing-engine/internal/rules"
	"github.com/angelmondragon/pricing-engine/pkg/enums"
	pkgerrors "github.com/angelmondragon/pricing-engine/pkg/errors"
	"github.com/angelmondragon/pricing-engine/pkg/logger"
)

type calculateRequest struct {
	ProductID           *uuid.UUID       `json:"product_id"`
	VariantID           *uuid.UUID       `json:"variant_id"`
	CategoryID          *uuid.UUID       `json:"category_id"`
	BasePrice           *decimal.Decimal `json:"base_price"`
	CompareAtPrice      *decimal.Decimal `json:"compare_at_price"`
	Quantity            *int             `json:"quantity" validate:"omitempty,min=0"`
	Channel             string           `json:"channel" validate:"required"`
	Currency            string           `json:"currency" validate:"omitempty,len=3"`
	UserID              *uuid.UUID       `json:"user_id"`
	WholesaleCustomerID *uuid.UUID       `json:"wholesale_customer_id"`
	PromotionCode       string           `json:"promotion_code" validate:"omitempty,max=50"`
	OrderTotal          *decimal.Decimal `json:"order_total"`
}

func (r calculateRequest) toRequest() (pricing.Request, error) {
	channel, err := enums.ParseChannel(r.Channel)
	if err != nil {
		return pricing.Request{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid channel").WithDetails(map[string]any{"field": "channel"})
	}
	quantity := 1
	if r.Quantity != nil {
		quantity = *r.Quantity
	}
	return pricing.Request{
		Target: pricing.Target{
			ProductID:  r.ProductID,
			VariantID:  r.VariantID,
			CategoryID: r.CategoryID,
		},
		BasePrice:      r.BasePrice,
		CompareAtPrice: r.CompareAtPrice,
		Quantity:       quantity,
		Channel:        channel,
		Currency:       strings.ToUpper(strings.TrimSpace(r.Currency)),
		Customer:       customerRef(r.UserID, r.WholesaleCustomerID),
		PromotionCode:  r.PromotionCode,
		OrderTotal:     r.OrderTotal,
	}, nil
}

// PricingCalculate prices one item for a channel, customer and optional promotion code.
func PricingCalculate(svc pricing.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "pricing service unavailable"))
			return
		}

		var payload calculateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		req, err := payload.toRequest()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx := r.Context()
		if logg != nil && !req.Customer.IsZero() {
			ctx = logg.WithCustomerID(ctx, req.Customer.String())
		}

		res, err := svc.Calculate(ctx, req)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, toPriceResponse(res))
	}
}

type validatePromotionRequest struct {
	Code                string           `json:"code" validate:"required,max=50"`
	Channel             string           `json:"channel" validate:"required"`
	OrderValue          *decimal.Decimal `json:"order_value"`
	UserID              *uuid.UUID       `json:"user_id"`
	WholesaleCustomerID *uuid.UUID       `json:"wholesale_customer_id"`
}

type validatePromotionResponse struct {
	Valid         bool                `json:"valid"`
	Message       string              `json:"message"`
	PromotionID   *uuid.UUID          `json:"promotion_id,omitempty"`
	Code          string              `json:"code,omitempty"`
	Name          string              `json:"name,omitempty"`
	DiscountType  *enums.DiscountType `json:"discount_type,omitempty"`
	DiscountValue *string             `json:"discount_value,omitempty"`
}

// PromotionValidate checks a promotion code without pricing anything. An invalid
// code is a 200 with valid=false.
func PromotionValidate(svc pricing.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "pricing service unavailable"))
			return
		}

		var payload validatePromotionRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if payload.UserID != nil && payload.WholesaleCustomerID != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "user_id and wholesale_customer_id are mutually exclusive"))
			return
		}

		channel, err := enums.ParseChannel(payload.Channel)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid channel").WithDetails(map[string]any{"field": "channel"}))
			return
		}

		orderValue := decimal.Zero
		if payload.OrderValue != nil {
			orderValue = *payload.OrderValue
		}

		result, err := svc.ValidatePromotion(r.Context(), pricing.PromotionCheck{
			Code:       payload.Code,
			Channel:    channel,
			OrderValue: orderValue,
			Customer:   customerRef(payload.UserID, payload.WholesaleCustomerID),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out := validatePromotionResponse{Valid: result.Valid, Message: result.Message}
		if p := result.Promotion; p != nil && result.Valid {
			id := p.ID
			kind := p.DiscountType
			value := p.DiscountValue.String()
			out.PromotionID = &id
			out.Code = p.Code
			out.Name = p.Name
			out.DiscountType = &kind
			out.DiscountValue = &value
		}
		responses.WriteSuccess(w, out)
	}
}

type redeemRequest struct {
	OrderID                  *uuid.UUID       `json:"order_id"`
	UserID                   *uuid.UUID       `json:"user_id"`
	WholesaleCustomerID      *uuid.UUID       `json:"wholesale_customer_id"`
	DiscountAmount           *decimal.Decimal `json:"discount_amount" validate:"required,money"`
	OrderTotalBeforeDiscount *decimal.Decimal `json:"order_total_before_discount" validate:"required,money"`
	OrderTotalAfterDiscount  *decimal.Decimal `json:"order_total_after_discount" validate:"required,money"`
}

// PromotionRedeem records one finalized use of a promotion. Callers send an
// Idempotency-Key so retries replay the first outcome.
func PromotionRedeem(svc promotions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "promotion service unavailable"))
			return
		}

		promotionID, err := parseUUIDParam(r, "promotionID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload redeemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		usage, err := svc.Redeem(r.Context(), promotions.RedeemInput{
			PromotionID:              promotionID,
			OrderID:                  payload.OrderID,
			Customer:                 customerRef(payload.UserID, payload.WholesaleCustomerID),
			DiscountAmount:           *payload.DiscountAmount,
			OrderTotalBeforeDiscount: *payload.OrderTotalBeforeDiscount,
			OrderTotalAfterDiscount:  *payload.OrderTotalAfterDiscount,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, toUsageResponse(*usage))
	}
}

// RuleUsage bumps the usage counter of an applied pricing rule.
func RuleUsage(svc rules.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "rule service unavailable"))
			return
		}

		ruleID, err := parseUUIDParam(r, "ruleID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.RecordUsage(r.Context(), ruleID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"rule_id": ruleID, "recorded": true})
	}
}
