package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/pricing-engine/api/responses"
	"github.com/angelmondragon/pricing-engine/api/validators"
	"github.com/angelmondragon/pricing-engine/internal/pricing"
	"github.com/angelmondragon/pricing-engine/internal/tiers"
	"github.com/angelmondragon/pricing-engine/pkg/enums"
	pkgerrors "github.com/angelmondragon/pricing-engine/pkg/errors"
	"github.com/angelmondragon/pricing-engine/pkg/logger"
)

type tierAssignRequest struct {
	UserID              *uuid.UUID       `json:"user_id"`
	WholesaleCustomerID *uuid.UUID       `json:"wholesale_customer_id"`
	Tier                string           `json:"tier" validate:"required"`
	DiscountPercentage  *decimal.Decimal `json:"discount_percentage"`
	AssignmentReason    *string          `json:"assignment_reason"`
	EffectiveUntil      *time.Time       `json:"effective_until"`
	IsAutomatic         bool             `json:"is_automatic"`
}

// AdminTierAssign replaces the customer's current tier assignment.
func AdminTierAssign(svc tiers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "tier service unavailable"))
			return
		}

		var payload tierAssignRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		tier, err := enums.ParseCustomerTier(payload.Tier)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid tier").WithDetails(map[string]any{"field": "tier"}))
			return
		}
		pct := decimal.Zero
		if payload.DiscountPercentage != nil {
			pct = *payload.DiscountPercentage
		}

		assigned, err := svc.Assign(r.Context(), tiers.AssignInput{
			Customer:           customerRef(payload.UserID, payload.WholesaleCustomerID),
			Tier:               tier,
			DiscountPercentage: pct,
			AssignmentReason:   payload.AssignmentReason,
			EffectiveUntil:     payload.EffectiveUntil,
			IsAutomatic:        payload.IsAutomatic,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, toTierResponse(*assigned))
	}
}

func AdminTierForUser(svc tiers.Service, logg *logger.Logger) http.HandlerFunc {
	return currentTierHandler(svc, logg, "userID", func(id uuid.UUID) pricing.CustomerRef {
		return pricing.CustomerRef{UserID: &id}
	})
}

func AdminTierForWholesaleCustomer(svc tiers.Service, logg *logger.Logger) http.HandlerFunc {
	return currentTierHandler(svc, logg, "customerID", func(id uuid.UUID) pricing.CustomerRef {
		return pricing.CustomerRef{WholesaleCustomerID: &id}
	})
}

func currentTierHandler(svc tiers.Service, logg *logger.Logger, param string, ref func(uuid.UUID) pricing.CustomerRef) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "tier service unavailable"))
			return
		}

		id, err := parseUUIDParam(r, param)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		current, err := svc.Current(r.Context(), ref(id))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toTierResponse(*current))
	}
}

// AdminTierMembers lists the assignments of a tier that are active now.
func AdminTierMembers(svc tiers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "tier service unavailable"))
			return
		}

		tier, err := enums.ParseCustomerTier(chiParam(r, "tier"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid tier"))
			return
		}

		rows, err := svc.ListByTier(r.Context(), tier)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, mapAll(rows, toTierResponse))
	}
}
