package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PricingMetrics exports calculation, validation and redemption counters.
type PricingMetrics struct {
	calculations *prometheus.CounterVec
	duration     prometheus.Histogram
	validations  *prometheus.CounterVec
	redemptions  *prometheus.CounterVec
}

// NewPricingMetrics registers the pricing metrics. A nil registerer yields a no-op recorder.
func NewPricingMetrics(reg prometheus.Registerer) *PricingMetrics {
	if reg == nil {
		return &PricingMetrics{}
	}
	calculations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pricing_calculations_total",
		Help: "Price calculations by outcome.",
	}, []string{"outcome"})
	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "pricing_calculation_duration_seconds",
		Help:    "Latency of price calculations in seconds.",
		Buckets: []float64{.001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
	})
	validations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pricing_promotion_validations_total",
		Help: "Promotion code validations by result.",
	}, []string{"valid"})
	redemptions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pricing_promotion_redemptions_total",
		Help: "Promotion redemptions by outcome.",
	}, []string{"outcome"})
	reg.MustRegister(calculations, duration, validations, redemptions)
	return &PricingMetrics{
		calculations: calculations,
		duration:     duration,
		validations:  validations,
		redemptions:  redemptions,
	}
}

func (p *PricingMetrics) ObserveCalculation(outcome string, duration time.Duration) {
	if p == nil || p.calculations == nil {
		return
	}
	p.calculations.WithLabelValues(normalizeLabel(outcome)).Inc()
	p.duration.Observe(duration.Seconds())
}

func (p *PricingMetrics) IncPromotionValidation(valid bool) {
	if p == nil || p.validations == nil {
		return
	}
	p.validations.WithLabelValues(strconv.FormatBool(valid)).Inc()
}

func (p *PricingMetrics) IncRedemption(outcome string) {
	if p == nil || p.redemptions == nil {
		return
	}
	p.redemptions.WithLabelValues(normalizeLabel(outcome)).Inc()
}
