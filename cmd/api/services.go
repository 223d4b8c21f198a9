package main

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/pricing-engine/api/routes"
	"github.com/angelmondragon/pricing-engine/internal/channelprices"
	"github.com/angelmondragon/pricing-engine/internal/pricing"
	"github.com/angelmondragon/pricing-engine/internal/promotions"
	"github.com/angelmondragon/pricing-engine/internal/rules"
	"github.com/angelmondragon/pricing-engine/internal/tiers"
	"github.com/angelmondragon/pricing-engine/internal/volumediscounts"
	"github.com/angelmondragon/pricing-engine/pkg/auth"
	"github.com/angelmondragon/pricing-engine/pkg/config"
	"github.com/angelmondragon/pricing-engine/pkg/db"
	"github.com/angelmondragon/pricing-engine/pkg/logger"
	"github.com/angelmondragon/pricing-engine/pkg/metrics"
	"github.com/angelmondragon/pricing-engine/pkg/redis"
)

// buildDependencies wires repositories and services for the HTTP router.
func buildDependencies(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, redisClient *redis.Client, registry *prometheus.Registry) (routes.Dependencies, error) {
	loc, err := cfg.Pricing.Location()
	if err != nil {
		return routes.Dependencies{}, err
	}
	verifier, err := auth.NewVerifier(cfg.JWT)
	if err != nil {
		return routes.Dependencies{}, fmt.Errorf("token verifier: %w", err)
	}
	pricingMetrics := metrics.NewPricingMetrics(registry)
	conn := dbClient.DB()

	priceRepo := channelprices.NewRepository(conn)
	tierRepo := tiers.NewRepository(conn)
	ruleRepo := rules.NewRepository(conn)
	volumeRepo := volumediscounts.NewRepository(conn)
	promoRepo := promotions.NewRepository(conn)

	pricingSvc, err := pricing.NewService(pricing.ServiceParams{
		ChannelPrices:   priceRepo,
		Tiers:           tierRepo,
		Rules:           ruleRepo,
		VolumeDiscounts: volumeRepo,
		Promotions:      promoRepo,
		Logger:          logg,
		Metrics:         pricingMetrics,
		Location:        loc,
		DefaultCurrency: cfg.Pricing.DefaultCurrency,
	})
	if err != nil {
		return routes.Dependencies{}, fmt.Errorf("pricing service: %w", err)
	}

	ruleSvc, err := rules.NewService(ruleRepo, logg)
	if err != nil {
		return routes.Dependencies{}, fmt.Errorf("rules service: %w", err)
	}
	volumeSvc, err := volumediscounts.NewService(volumeRepo, logg)
	if err != nil {
		return routes.Dependencies{}, fmt.Errorf("volume discount service: %w", err)
	}

	recorder, err := promotions.NewRecorder(promotions.RecorderParams{
		Repo:     promoRepo,
		Tx:       dbClient,
		Logger:   logg,
		Metrics:  pricingMetrics,
		Attempts: cfg.Pricing.UsageRetryAttempts,
		Backoff:  cfg.Pricing.UsageRetryBackoff,
	})
	if err != nil {
		return routes.Dependencies{}, fmt.Errorf("usage recorder: %w", err)
	}
	promoSvc, err := promotions.NewService(promoRepo, recorder, logg)
	if err != nil {
		return routes.Dependencies{}, fmt.Errorf("promotions service: %w", err)
	}

	priceSvc, err := channelprices.NewService(channelprices.ServiceParams{
		Repo:            priceRepo,
		Tx:              dbClient,
		Logger:          logg,
		DefaultCurrency: cfg.Pricing.DefaultCurrency,
	})
	if err != nil {
		return routes.Dependencies{}, fmt.Errorf("channel price service: %w", err)
	}
	tierSvc, err := tiers.NewService(tiers.ServiceParams{Repo: tierRepo, Tx: dbClient, Logger: logg})
	if err != nil {
		return routes.Dependencies{}, fmt.Errorf("tier service: %w", err)
	}

	return routes.Dependencies{
		DB:               dbClient,
		Redis:            redisClient,
		IdempotencyStore: redisClient,
		RateLimiter:      redisClient,
		Gatherer:         registry,
		Tokens:           verifier,
		Pricing:          pricingSvc,
		Rules:            ruleSvc,
		VolumeDiscounts:  volumeSvc,
		Promotions:       promoSvc,
		ChannelPrices:    priceSvc,
		Tiers:            tierSvc,
	}, nil
}
