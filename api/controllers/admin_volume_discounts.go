package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/pricing-engine/api/responses"
	"github.com/angelmondragon/pricing-engine/api/validators"
	"github.com/angelmondragon/pricing-engine/internal/volumediscounts"
	"github.com/angelmondragon/pricing-engine/pkg/enums"
	pkgerrors "github.com/angelmondragon/pricing-engine/pkg/errors"
	"github.com/angelmondragon/pricing-engine/pkg/logger"
)

type volumeDiscountRequest struct {
	Name              string           `json:"name" validate:"required,max=255"`
	Description       *string          `json:"description"`
	ProductID         *uuid.UUID       `json:"product_id"`
	VariantID         *uuid.UUID       `json:"variant_id"`
	CategoryID        *uuid.UUID       `json:"category_id"`
	IsGlobal          bool             `json:"is_global"`
	MinQuantity       int              `json:"min_quantity" validate:"required,min=1"`
	MaxQuantity       *int             `json:"max_quantity" validate:"omitempty,min=1"`
	DiscountType      string           `json:"discount_type" validate:"required"`
	DiscountValue     *decimal.Decimal `json:"discount_value" validate:"required,money"`
	MaxDiscountAmount *decimal.Decimal `json:"max_discount_amount"`
	Channel           *string          `json:"channel"`
	CustomerTier      *string          `json:"customer_tier"`
	IsActive          *bool            `json:"is_active"`
	StartDate         *time.Time       `json:"start_date"`
	EndDate           *time.Time       `json:"end_date"`
	Priority          int              `json:"priority"`
}

func (r volumeDiscountRequest) toInput() (volumediscounts.DiscountInput, error) {
	problems := map[string]string{}

	discountType, err := enums.ParseDiscountType(r.DiscountType)
	if err != nil {
		problems["discount_type"] = "is invalid"
	}
	var channel *enums.Channel
	if r.Channel != nil && strings.TrimSpace(*r.Channel) != "" {
		c, err := enums.ParseChannel(*r.Channel)
		if err != nil {
			problems["channel"] = "is invalid"
		}
		channel = &c
	}
	var tier *enums.CustomerTier
	if r.CustomerTier != nil && strings.TrimSpace(*r.CustomerTier) != "" {
		t, err := enums.ParseCustomerTier(*r.CustomerTier)
		if err != nil {
			problems["customer_tier"] = "is invalid"
		}
		tier = &t
	}
	if len(problems) > 0 {
		return volumediscounts.DiscountInput{}, pkgerrors.New(pkgerrors.CodeValidation, "validation failed").WithDetails(problems)
	}

	active := true
	if r.IsActive != nil {
		active = *r.IsActive
	}

	return volumediscounts.DiscountInput{
		Name:              strings.TrimSpace(r.Name),
		Description:       r.Description,
		ProductID:         r.ProductID,
		VariantID:         r.VariantID,
		CategoryID:        r.CategoryID,
		IsGlobal:          r.IsGlobal,
		MinQuantity:       r.MinQuantity,
		MaxQuantity:       r.MaxQuantity,
		DiscountType:      discountType,
		DiscountValue:     *r.DiscountValue,
		MaxDiscountAmount: r.MaxDiscountAmount,
		Channel:           channel,
		CustomerTier:      tier,
		IsActive:          active,
		StartDate:         r.StartDate,
		EndDate:           r.EndDate,
		Priority:          r.Priority,
	}, nil
}

func AdminVolumeDiscountCreate(svc volumediscounts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "volume discount service unavailable"))
			return
		}

		var payload volumeDiscountRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		discount, err := svc.Create(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, toVolumeDiscountResponse(*discount))
	}
}

func AdminVolumeDiscountGet(svc volumediscounts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "volume discount service unavailable"))
			return
		}

		id, err := parseUUIDParam(r, "discountID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		discount, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toVolumeDiscountResponse(*discount))
	}
}

// AdminVolumeDiscountList filters by product_id, variant_id or category_id.
func AdminVolumeDiscountList(svc volumediscounts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "volume discount service unavailable"))
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
		params := volumediscounts.ListParams{Limit: limit, Cursor: cursor}
		if params.ProductID, err = validators.ParseQueryUUID(r, "product_id"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if params.VariantID, err = validators.ParseQueryUUID(r, "variant_id"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if params.CategoryID, err = validators.ParseQueryUUID(r, "category_id"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rows, next, err := svc.List(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newPage(rows, next, toVolumeDiscountResponse))
	}
}

func AdminVolumeDiscountDelete(svc volumediscounts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "volume discount service unavailable"))
			return
		}

		id, err := parseUUIDParam(r, "discountID")
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
