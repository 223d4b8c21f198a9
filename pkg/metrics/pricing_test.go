package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestPricingMetricsExport(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewPricingMetrics(reg)

	m.ObserveCalculation("success", 3*time.Millisecond)
	m.ObserveCalculation("success", 5*time.Millisecond)
	m.ObserveCalculation("", time.Millisecond)
	m.IncPromotionValidation(false)
	m.IncRedemption("recorded")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	cases := []struct {
		name, label, value string
		want               float64
	}{
		{"pricing_calculations_total", "outcome", "success", 2},
		{"pricing_calculations_total", "outcome", "unknown", 1},
		{"pricing_promotion_validations_total", "valid", "false", 1},
		{"pricing_promotion_redemptions_total", "outcome", "recorded", 1},
	}
	for _, tc := range cases {
		got, err := fetchCounterValue(mfs, tc.name, tc.label, tc.value)
		if err != nil {
			t.Fatalf("fetch %s: %v", tc.name, err)
		}
		if got != tc.want {
			t.Fatalf("%s{%s=%q}: expected %v, got %v", tc.name, tc.label, tc.value, tc.want, got)
		}
	}

	hist := findMetricFamily(mfs, "pricing_calculation_duration_seconds")
	if hist == nil {
		t.Fatal("duration histogram not exported")
	}
	if count := hist.GetMetric()[0].GetHistogram().GetSampleCount(); count != 3 {
		t.Fatalf("expected 3 duration samples, got %d", count)
	}
}

func TestNilPricingMetricsIsNoop(t *testing.T) {
	var m *PricingMetrics
	m.ObserveCalculation("success", time.Millisecond)
	m.IncPromotionValidation(true)
	m.IncRedemption("failed")

	NewPricingMetrics(nil).IncRedemption("failed")
}
