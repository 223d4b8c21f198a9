package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/pricing-engine/api/controllers"
	"github.com/angelmondragon/pricing-engine/api/middleware"
	"github.com/angelmondragon/pricing-engine/internal/channelprices"
	"github.com/angelmondragon/pricing-engine/internal/pricing"
	"github.com/angelmondragon/pricing-engine/internal/promotions"
	"github.com/angelmondragon/pricing-engine/internal/rules"
	"github.com/angelmondragon/pricing-engine/internal/tiers"
	"github.com/angelmondragon/pricing-engine/internal/volumediscounts"
	"github.com/angelmondragon/pricing-engine/pkg/auth"
	"github.com/angelmondragon/pricing-engine/pkg/config"
	"github.com/angelmondragon/pricing-engine/pkg/enums"
	"github.com/angelmondragon/pricing-engine/pkg/logger"
	pkgredis "github.com/angelmondragon/pricing-engine/pkg/redis"
)

// Dependencies carries everything the router hands to middleware and controllers.
type Dependencies struct {
	DB               controllers.Pinger
	Redis            controllers.Pinger
	IdempotencyStore pkgredis.IdempotencyStore
	RateLimiter      middleware.RateLimiterStore
	Gatherer         prometheus.Gatherer
	Tokens           *auth.Verifier

	Pricing         pricing.Service
	Rules           rules.Service
	VolumeDiscounts volumediscounts.Service
	Promotions      promotions.Service
	ChannelPrices   channelprices.Service
	Tiers           tiers.Service
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.CORS.AllowedOrigins),
	)

	promoValidatePolicy := middleware.NewRateLimitPolicy(
		"promo-validate",
		cfg.RateLimit.PromotionValidateWindow,
		cfg.RateLimit.PromotionValidateLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, map[string]controllers.Pinger{
			"db":    deps.DB,
			"redis": deps.Redis,
		}))
	})

	if deps.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/pricing/calculate", controllers.PricingCalculate(deps.Pricing, logg))
		r.With(middleware.RateLimit(promoValidatePolicy, deps.RateLimiter, logg)).
			Post("/promotions/validate", controllers.PromotionValidate(deps.Pricing, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Idempotency(deps.IdempotencyStore, cfg.Idempotency.RedeemTTL, logg))
			r.Post("/promotions/{promotionID}/redeem", controllers.PromotionRedeem(deps.Promotions, logg))
			r.Post("/rules/{ruleID}/usage", controllers.RuleUsage(deps.Rules, logg))
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.Auth(deps.Tokens, logg))

			// reads are open to viewers, writes need pricing_admin
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(logg, enums.AdminRolePricingAdmin, enums.AdminRolePricingViewer))
				r.Get("/rules", controllers.AdminRuleList(deps.Rules, logg))
				r.Get("/rules/{ruleID}", controllers.AdminRuleGet(deps.Rules, logg))
				r.Get("/volume-discounts", controllers.AdminVolumeDiscountList(deps.VolumeDiscounts, logg))
				r.Get("/volume-discounts/{discountID}", controllers.AdminVolumeDiscountGet(deps.VolumeDiscounts, logg))
				r.Get("/promotions", controllers.AdminPromotionList(deps.Promotions, logg))
				r.Get("/promotions/{promotionID}", controllers.AdminPromotionGet(deps.Promotions, logg))
				r.Get("/channel-prices/variant/{variantID}", controllers.AdminChannelPricesForVariant(deps.ChannelPrices, logg))
				r.Get("/price-history", controllers.AdminPriceHistory(deps.ChannelPrices, logg))
				r.Get("/customer-tiers/users/{userID}", controllers.AdminTierForUser(deps.Tiers, logg))
				r.Get("/customer-tiers/wholesale/{customerID}", controllers.AdminTierForWholesaleCustomer(deps.Tiers, logg))
				r.Get("/customer-tiers/by-tier/{tier}", controllers.AdminTierMembers(deps.Tiers, logg))
			})

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(logg, enums.AdminRolePricingAdmin))
				r.Post("/rules", controllers.AdminRuleCreate(deps.Rules, logg))
				r.Put("/rules/{ruleID}", controllers.AdminRuleUpdate(deps.Rules, logg))
				r.Delete("/rules/{ruleID}", controllers.AdminRuleDelete(deps.Rules, logg))
				r.Post("/rules/{ruleID}/activate", controllers.AdminRuleActivate(deps.Rules, logg))
				r.Post("/rules/{ruleID}/deactivate", controllers.AdminRuleDeactivate(deps.Rules, logg))
				r.Post("/volume-discounts", controllers.AdminVolumeDiscountCreate(deps.VolumeDiscounts, logg))
				r.Delete("/volume-discounts/{discountID}", controllers.AdminVolumeDiscountDelete(deps.VolumeDiscounts, logg))
				r.Post("/promotions", controllers.AdminPromotionCreate(deps.Promotions, logg))
				r.Delete("/promotions/{promotionID}", controllers.AdminPromotionDelete(deps.Promotions, logg))
				r.Put("/channel-prices", controllers.AdminChannelPriceSet(deps.ChannelPrices, logg))
				r.Post("/customer-tiers", controllers.AdminTierAssign(deps.Tiers, logg))
			})
		})
	})

	return r
}
