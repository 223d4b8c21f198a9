package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/pricing-engine/api/responses"
	"github.com/angelmondragon/pricing-engine/api/validators"
	"github.com/angelmondragon/pricing-engine/internal/channelprices"
	"github.com/angelmondragon/pricing-engine/pkg/enums"
	pkgerrors "github.com/angelmondragon/pricing-engine/pkg/errors"
	"github.com/angelmondragon/pricing-engine/pkg/logger"
)

type channelPriceRequest struct {
	ProductID      *uuid.UUID       `json:"product_id"`
	VariantID      *uuid.UUID       `json:"variant_id"`
	Channel        string           `json:"channel" validate:"required"`
	BasePrice      *decimal.Decimal `json:"base_price" validate:"required,money"`
	CompareAtPrice *decimal.Decimal `json:"compare_at_price"`
	CostPrice      *decimal.Decimal `json:"cost_price"`
	MinPrice       *decimal.Decimal `json:"min_price"`
	Currency       string           `json:"currency" validate:"omitempty,len=3"`
	EffectiveFrom  *time.Time       `json:"effective_from"`
	EffectiveUntil *time.Time       `json:"effective_until"`
	ChangeReason   *string          `json:"change_reason"`
	Notes          *string          `json:"notes"`
}

// AdminChannelPriceSet upserts the price of one item on one channel and
// records the change in the price history.
func AdminChannelPriceSet(svc channelprices.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "channel price service unavailable"))
			return
		}

		var payload channelPriceRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		channel, err := enums.ParseChannel(payload.Channel)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid channel").WithDetails(map[string]any{"field": "channel"}))
			return
		}
		var reason *enums.PriceChangeReason
		if payload.ChangeReason != nil && strings.TrimSpace(*payload.ChangeReason) != "" {
			parsed, err := enums.ParsePriceChangeReason(*payload.ChangeReason)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid change_reason").WithDetails(map[string]any{"field": "change_reason"}))
				return
			}
			reason = &parsed
		}

		price, err := svc.Set(r.Context(), channelprices.SetInput{
			Item:           channelprices.Item{ProductID: payload.ProductID, VariantID: payload.VariantID},
			Channel:        channel,
			BasePrice:      *payload.BasePrice,
			CompareAtPrice: payload.CompareAtPrice,
			CostPrice:      payload.CostPrice,
			MinPrice:       payload.MinPrice,
			Currency:       strings.ToUpper(strings.TrimSpace(payload.Currency)),
			EffectiveFrom:  payload.EffectiveFrom,
			EffectiveUntil: payload.EffectiveUntil,
			Reason:         reason,
			Notes:          payload.Notes,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toChannelPriceResponse(*price))
	}
}

func AdminChannelPricesForVariant(svc channelprices.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "channel price service unavailable"))
			return
		}

		variantID, err := parseUUIDParam(r, "variantID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rows, err := svc.ListByVariant(r.Context(), variantID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, mapAll(rows, toChannelPriceResponse))
	}
}

// AdminPriceHistory lists price changes newest first. Filters: product_id,
// variant_id, channel, from, to (RFC3339) and limit.
func AdminPriceHistory(svc channelprices.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "channel price service unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", 100, 1, 500)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params := channelprices.HistoryParams{Limit: limit}
		if params.ProductID, err = validators.ParseQueryUUID(r, "product_id"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if params.VariantID, err = validators.ParseQueryUUID(r, "variant_id"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if params.From, err = validators.ParseQueryTime(r, "from"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if params.To, err = validators.ParseQueryTime(r, "to"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if raw := r.URL.Query().Get("channel"); raw != "" {
			channel, err := enums.ParseChannel(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid channel"))
				return
			}
			params.Channel = &channel
		}

		rows, err := svc.History(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, mapAll(rows, toPriceHistoryResponse))
	}
}
