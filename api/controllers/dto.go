package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/pricing-engine/internal/pricing"
	"github.com/angelmondragon/pricing-engine/pkg/db/models"
	dbtypes "github.com/angelmondragon/pricing-engine/pkg/db/types"
	"github.com/angelmondragon/pricing-engine/pkg/enums"
	pkgerrors "github.com/angelmondragon/pricing-engine/pkg/errors"
	"github.com/angelmondragon/pricing-engine/pkg/pagination"
)

func money(v decimal.Decimal) string {
	return v.StringFixed(2)
}

func optionalMoney(v *decimal.Decimal) *string {
	if v == nil {
		return nil
	}
	s := money(*v)
	return &s
}

func parseUUIDParam(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chiParam(r, name))
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+name).WithDetails(map[string]any{"field": name})
	}
	return id, nil
}

func chiParam(r *http.Request, name string) string {
	return strings.TrimSpace(chi.URLParam(r, name))
}

func parseCursorQuery(r *http.Request) (*pagination.Cursor, error) {
	cursor, err := pagination.Parse(r.URL.Query().Get("cursor"))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor").WithDetails(map[string]any{"field": "cursor"})
	}
	return cursor, nil
}

func customerRef(userID, wholesaleID *uuid.UUID) pricing.CustomerRef {
	return pricing.CustomerRef{UserID: userID, WholesaleCustomerID: wholesaleID}
}

type pageResponse[T any] struct {
	Items      []T    `json:"items"`
	NextCursor string `json:"next_cursor,omitempty"`
}

func newPage[M any, T any](rows []M, next *pagination.Cursor, conv func(M) T) pageResponse[T] {
	items := make([]T, 0, len(rows))
	for _, row := range rows {
		items = append(items, conv(row))
	}
	return pageResponse[T]{Items: items, NextCursor: pagination.Token(next)}
}

func mapAll[M any, T any](rows []M, conv func(M) T) []T {
	out := make([]T, 0, len(rows))
	for _, row := range rows {
		out = append(out, conv(row))
	}
	return out
}

type appliedDiscountResponse struct {
	DiscountType   enums.DiscountType   `json:"discount_type"`
	DiscountValue  string               `json:"discount_value"`
	DiscountAmount string               `json:"discount_amount"`
	Source         enums.DiscountSource `json:"source"`
	RuleID         *uuid.UUID           `json:"rule_id,omitempty"`
	PromotionID    *uuid.UUID           `json:"promotion_id,omitempty"`
	Name           string               `json:"name"`
}

type priceResponse struct {
	OriginalPrice      string                    `json:"original_price"`
	FinalPrice         string                    `json:"final_price"`
	DiscountAmount     string                    `json:"discount_amount"`
	DiscountPercentage string                    `json:"discount_percentage"`
	AppliedDiscounts   []appliedDiscountResponse `json:"applied_discounts"`
	Quantity           int                       `json:"quantity"`
	LineTotal          string                    `json:"line_total"`
	OriginalLineTotal  string                    `json:"original_line_total"`
	CompareAtPrice     *string                   `json:"compare_at_price,omitempty"`
	Currency           string                    `json:"currency"`
	CustomerTier       *enums.CustomerTier       `json:"customer_tier,omitempty"`
	PromotionValid     *bool                     `json:"promotion_valid,omitempty"`
	PromotionMessage   *string                   `json:"promotion_message,omitempty"`
}

func toPriceResponse(res *pricing.Response) priceResponse {
	applied := make([]appliedDiscountResponse, 0, len(res.AppliedDiscounts))
	for _, d := range res.AppliedDiscounts {
		applied = append(applied, appliedDiscountResponse{
			DiscountType:   d.Type,
			DiscountValue:  d.Value.String(),
			DiscountAmount: money(d.Amount),
			Source:         d.Source,
			RuleID:         d.RuleID,
			PromotionID:    d.PromotionID,
			Name:           d.Name,
		})
	}
	return priceResponse{
		OriginalPrice:      money(res.OriginalPrice),
		FinalPrice:         money(res.FinalPrice),
		DiscountAmount:     money(res.DiscountAmount),
		DiscountPercentage: money(res.DiscountPercentage),
		AppliedDiscounts:   applied,
		Quantity:           res.Quantity,
		LineTotal:          money(res.LineTotal),
		OriginalLineTotal:  money(res.OriginalLineTotal),
		CompareAtPrice:     optionalMoney(res.CompareAtPrice),
		Currency:           res.Currency,
		CustomerTier:       res.CustomerTier,
		PromotionValid:     res.PromotionValid,
		PromotionMessage:   res.PromotionMessage,
	}
}

type promotionResponse struct {
	ID                 uuid.UUID          `json:"id"`
	Name               string             `json:"name"`
	Code               string             `json:"code"`
	Description        *string            `json:"description,omitempty"`
	Status             enums.RuleStatus   `json:"status"`
	DiscountType       enums.DiscountType `json:"discount_type"`
	DiscountValue      string             `json:"discount_value"`
	MaxDiscountAmount  *string            `json:"max_discount_amount,omitempty"`
	MinOrderValue      *string            `json:"min_order_value,omitempty"`
	ApplicableChannels []string           `json:"applicable_channels"`
	StartDate          time.Time          `json:"start_date"`
	EndDate            time.Time          `json:"end_date"`
	MaxUses            *int               `json:"max_uses,omitempty"`
	CurrentUses        int                `json:"current_uses"`
	MaxUsesPerCustomer *int               `json:"max_uses_per_customer,omitempty"`
	IsStackable        bool               `json:"is_stackable"`
	AutoApply          bool               `json:"auto_apply"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
}

func toPromotionResponse(p models.Promotion) promotionResponse {
	return promotionResponse{
		ID:                 p.ID,
		Name:               p.Name,
		Code:               p.Code,
		Description:        p.Description,
		Status:             p.Status,
		DiscountType:       p.DiscountType,
		DiscountValue:      p.DiscountValue.String(),
		MaxDiscountAmount:  optionalMoney(p.MaxDiscountAmount),
		MinOrderValue:      optionalMoney(p.MinOrderValue),
		ApplicableChannels: nonNilStrings(p.ApplicableChannels),
		StartDate:          p.StartDate,
		EndDate:            p.EndDate,
		MaxUses:            p.MaxUses,
		CurrentUses:        p.CurrentUses,
		MaxUsesPerCustomer: p.MaxUsesPerCustomer,
		IsStackable:        p.IsStackable,
		AutoApply:          p.AutoApply,
		CreatedAt:          p.CreatedAt,
		UpdatedAt:          p.UpdatedAt,
	}
}

type usageResponse struct {
	ID                       uuid.UUID  `json:"id"`
	PromotionID              uuid.UUID  `json:"promotion_id"`
	OrderID                  *uuid.UUID `json:"order_id,omitempty"`
	UserID                   *uuid.UUID `json:"user_id,omitempty"`
	WholesaleCustomerID      *uuid.UUID `json:"wholesale_customer_id,omitempty"`
	DiscountAmount           string     `json:"discount_amount"`
	OrderTotalBeforeDiscount string     `json:"order_total_before_discount"`
	OrderTotalAfterDiscount  string     `json:"order_total_after_discount"`
	UsedAt                   time.Time  `json:"used_at"`
}

func toUsageResponse(u models.PromotionUsage) usageResponse {
	return usageResponse{
		ID:                       u.ID,
		PromotionID:              u.PromotionID,
		OrderID:                  u.OrderID,
		UserID:                   u.UserID,
		WholesaleCustomerID:      u.WholesaleCustomerID,
		DiscountAmount:           money(u.DiscountAmount),
		OrderTotalBeforeDiscount: money(u.OrderTotalBeforeDiscount),
		OrderTotalAfterDiscount:  money(u.OrderTotalAfterDiscount),
		UsedAt:                   u.UsedAt,
	}
}

type ruleProductResponse struct {
	ProductID  *uuid.UUID `json:"product_id,omitempty"`
	VariantID  *uuid.UUID `json:"variant_id,omitempty"`
	IsExcluded bool       `json:"is_excluded"`
}

type ruleCategoryResponse struct {
	CategoryID uuid.UUID `json:"category_id"`
	IsExcluded bool      `json:"is_excluded"`
}

type ruleResponse struct {
	ID                      uuid.UUID              `json:"id"`
	Name                    string                 `json:"name"`
	Code                    string                 `json:"code"`
	Description             *string                `json:"description,omitempty"`
	RuleType                enums.RuleType         `json:"rule_type"`
	Status                  enums.RuleStatus       `json:"status"`
	Priority                int                    `json:"priority"`
	DiscountType            enums.DiscountType     `json:"discount_type"`
	DiscountValue           string                 `json:"discount_value"`
	MaxDiscountAmount       *string                `json:"max_discount_amount,omitempty"`
	MinPrice                *string                `json:"min_price,omitempty"`
	ApplicableChannels      []string               `json:"applicable_channels"`
	ApplicableCustomerTiers []string               `json:"applicable_customer_tiers"`
	StartDate               *time.Time             `json:"start_date,omitempty"`
	EndDate                 *time.Time             `json:"end_date,omitempty"`
	StartTime               *string                `json:"start_time,omitempty"`
	EndTime                 *string                `json:"end_time,omitempty"`
	ApplicableDays          []int64                `json:"applicable_days"`
	Conditions              dbtypes.Conditions     `json:"conditions"`
	BuyQuantity             *int                   `json:"buy_quantity,omitempty"`
	GetQuantity             *int                   `json:"get_quantity,omitempty"`
	MaxUses                 *int                   `json:"max_uses,omitempty"`
	CurrentUses             int                    `json:"current_uses"`
	MaxUsesPerCustomer      *int                   `json:"max_uses_per_customer,omitempty"`
	IsStackable             bool                   `json:"is_stackable"`
	IsExclusive             bool                   `json:"is_exclusive"`
	Products                []ruleProductResponse  `json:"products"`
	Categories              []ruleCategoryResponse `json:"categories"`
	CreatedAt               time.Time              `json:"created_at"`
	UpdatedAt               time.Time              `json:"updated_at"`
}

func toRuleResponse(rule models.PricingRule) ruleResponse {
	products := make([]ruleProductResponse, 0, len(rule.Products))
	for _, p := range rule.Products {
		products = append(products, ruleProductResponse{ProductID: p.ProductID, VariantID: p.ProductVariantID, IsExcluded: p.IsExcluded})
	}
	categories := make([]ruleCategoryResponse, 0, len(rule.Categories))
	for _, c := range rule.Categories {
		categories = append(categories, ruleCategoryResponse{CategoryID: c.CategoryID, IsExcluded: c.IsExcluded})
	}
	days := []int64(rule.ApplicableDays)
	if days == nil {
		days = []int64{}
	}
	conditions := rule.Conditions
	if conditions == nil {
		conditions = dbtypes.Conditions{}
	}
	return ruleResponse{
		ID:                      rule.ID,
		Name:                    rule.Name,
		Code:                    rule.Code,
		Description:             rule.Description,
		RuleType:                rule.RuleType,
		Status:                  rule.Status,
		Priority:                rule.Priority,
		DiscountType:            rule.DiscountType,
		DiscountValue:           rule.DiscountValue.String(),
		MaxDiscountAmount:       optionalMoney(rule.MaxDiscountAmount),
		MinPrice:                optionalMoney(rule.MinPrice),
		ApplicableChannels:      nonNilStrings(rule.ApplicableChannels),
		ApplicableCustomerTiers: nonNilStrings(rule.ApplicableCustomerTiers),
		StartDate:               rule.StartDate,
		EndDate:                 rule.EndDate,
		StartTime:               rule.StartTime,
		EndTime:                 rule.EndTime,
		ApplicableDays:          days,
		Conditions:              conditions,
		BuyQuantity:             rule.BuyQuantity,
		GetQuantity:             rule.GetQuantity,
		MaxUses:                 rule.MaxUses,
		CurrentUses:             rule.CurrentUses,
		MaxUsesPerCustomer:      rule.MaxUsesPerCustomer,
		IsStackable:             rule.IsStackable,
		IsExclusive:             rule.IsExclusive,
		Products:                products,
		Categories:              categories,
		CreatedAt:               rule.CreatedAt,
		UpdatedAt:               rule.UpdatedAt,
	}
}

type volumeDiscountResponse struct {
	ID                uuid.UUID           `json:"id"`
	Name              string              `json:"name"`
	Description       *string             `json:"description,omitempty"`
	ProductID         *uuid.UUID          `json:"product_id,omitempty"`
	VariantID         *uuid.UUID          `json:"variant_id,omitempty"`
	CategoryID        *uuid.UUID          `json:"category_id,omitempty"`
	IsGlobal          bool                `json:"is_global"`
	MinQuantity       int                 `json:"min_quantity"`
	MaxQuantity       *int                `json:"max_quantity,omitempty"`
	DiscountType      enums.DiscountType  `json:"discount_type"`
	DiscountValue     string              `json:"discount_value"`
	MaxDiscountAmount *string             `json:"max_discount_amount,omitempty"`
	Channel           *enums.Channel      `json:"channel,omitempty"`
	CustomerTier      *enums.CustomerTier `json:"customer_tier,omitempty"`
	IsActive          bool                `json:"is_active"`
	StartDate         *time.Time          `json:"start_date,omitempty"`
	EndDate           *time.Time          `json:"end_date,omitempty"`
	Priority          int                 `json:"priority"`
	CreatedAt         time.Time           `json:"created_at"`
}

func toVolumeDiscountResponse(v models.VolumeDiscount) volumeDiscountResponse {
	return volumeDiscountResponse{
		ID:                v.ID,
		Name:              v.Name,
		Description:       v.Description,
		ProductID:         v.ProductID,
		VariantID:         v.ProductVariantID,
		CategoryID:        v.CategoryID,
		IsGlobal:          v.IsGlobal,
		MinQuantity:       v.MinQuantity,
		MaxQuantity:       v.MaxQuantity,
		DiscountType:      v.DiscountType,
		DiscountValue:     v.DiscountValue.String(),
		MaxDiscountAmount: optionalMoney(v.MaxDiscountAmount),
		Channel:           v.Channel,
		CustomerTier:      v.CustomerTier,
		IsActive:          v.IsActive,
		StartDate:         v.StartDate,
		EndDate:           v.EndDate,
		Priority:          v.Priority,
		CreatedAt:         v.CreatedAt,
	}
}

type channelPriceResponse struct {
	ID             uuid.UUID     `json:"id"`
	ProductID      *uuid.UUID    `json:"product_id,omitempty"`
	VariantID      *uuid.UUID    `json:"variant_id,omitempty"`
	Channel        enums.Channel `json:"channel"`
	BasePrice      string        `json:"base_price"`
	CompareAtPrice *string       `json:"compare_at_price,omitempty"`
	CostPrice      *string       `json:"cost_price,omitempty"`
	MinPrice       *string       `json:"min_price,omitempty"`
	Currency       string        `json:"currency"`
	IsActive       bool          `json:"is_active"`
	EffectiveFrom  *time.Time    `json:"effective_from,omitempty"`
	EffectiveUntil *time.Time    `json:"effective_until,omitempty"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

func toChannelPriceResponse(p models.ChannelPrice) channelPriceResponse {
	return channelPriceResponse{
		ID:             p.ID,
		ProductID:      p.ProductID,
		VariantID:      p.ProductVariantID,
		Channel:        p.Channel,
		BasePrice:      money(p.BasePrice),
		CompareAtPrice: optionalMoney(p.CompareAtPrice),
		CostPrice:      optionalMoney(p.CostPrice),
		MinPrice:       optionalMoney(p.MinPrice),
		Currency:       p.Currency,
		IsActive:       p.IsActive,
		EffectiveFrom:  p.EffectiveFrom,
		EffectiveUntil: p.EffectiveUntil,
		UpdatedAt:      p.UpdatedAt,
	}
}

type priceHistoryResponse struct {
	ID            uuid.UUID               `json:"id"`
	ProductID     *uuid.UUID              `json:"product_id,omitempty"`
	VariantID     *uuid.UUID              `json:"variant_id,omitempty"`
	Channel       *enums.Channel          `json:"channel,omitempty"`
	OldPrice      *string                 `json:"old_price,omitempty"`
	NewPrice      string                  `json:"new_price"`
	OldCost       *string                 `json:"old_cost,omitempty"`
	NewCost       *string                 `json:"new_cost,omitempty"`
	Currency      string                  `json:"currency"`
	ChangeReason  enums.PriceChangeReason `json:"change_reason"`
	Notes         *string                 `json:"notes,omitempty"`
	EffectiveDate time.Time               `json:"effective_date"`
}

func toPriceHistoryResponse(h models.PriceHistory) priceHistoryResponse {
	return priceHistoryResponse{
		ID:            h.ID,
		ProductID:     h.ProductID,
		VariantID:     h.ProductVariantID,
		Channel:       h.Channel,
		OldPrice:      optionalMoney(h.OldPrice),
		NewPrice:      money(h.NewPrice),
		OldCost:       optionalMoney(h.OldCost),
		NewCost:       optionalMoney(h.NewCost),
		Currency:      h.Currency,
		ChangeReason:  h.ChangeReason,
		Notes:         h.Notes,
		EffectiveDate: h.EffectiveDate,
	}
}

type tierResponse struct {
	ID                  uuid.UUID          `json:"id"`
	UserID              *uuid.UUID         `json:"user_id,omitempty"`
	WholesaleCustomerID *uuid.UUID         `json:"wholesale_customer_id,omitempty"`
	Tier                enums.CustomerTier `json:"tier"`
	DiscountPercentage  string             `json:"discount_percentage"`
	AssignmentReason    *string            `json:"assignment_reason,omitempty"`
	EffectiveFrom       time.Time          `json:"effective_from"`
	EffectiveUntil      *time.Time         `json:"effective_until,omitempty"`
	IsAutomatic         bool               `json:"is_automatic"`
}

func toTierResponse(t models.CustomerPricingTier) tierResponse {
	return tierResponse{
		ID:                  t.ID,
		UserID:              t.UserID,
		WholesaleCustomerID: t.WholesaleCustomerID,
		Tier:                t.Tier,
		DiscountPercentage:  money(t.DiscountPercentage),
		AssignmentReason:    t.AssignmentReason,
		EffectiveFrom:       t.EffectiveFrom,
		EffectiveUntil:      t.EffectiveUntil,
		IsAutomatic:         t.IsAutomatic,
	}
}

func nonNilStrings(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
