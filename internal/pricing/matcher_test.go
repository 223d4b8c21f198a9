package pricing

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/angelmondragon/pricing-engine/pkg/db/models"
	dbtypes "github.com/angelmondragon/pricing-engine/pkg/db/types"
	"github.com/angelmondragon/pricing-engine/pkg/enums"
)

// friday afternoon, weekday index 4
var fixedNow = time.Date(2026, time.October, 16, 14, 30, 0, 0, time.UTC)

func uuidPtr(id uuid.UUID) *uuid.UUID { return &id }

func strPtr(s string) *string { return &s }

func baseMatch() MatchInput {
	return MatchInput{
		Target:   Target{ProductID: uuidPtr(uuid.New())},
		Channel:  enums.ChannelRetail,
		Quantity: 1,
		Now:      fixedNow,
	}
}

func TestMatchRuleGlobalRule(t *testing.T) {
	t.Parallel()

	ok, reason := MatchRule(&models.PricingRule{}, baseMatch())
	if !ok {
		t.Fatalf("expected global rule to match, got %q", reason)
	}
}

func TestMatchRuleChannelAndTier(t *testing.T) {
	t.Parallel()

	in := baseMatch()
	rule := &models.PricingRule{ApplicableChannels: pq.StringArray{"wholesale"}}
	if ok, _ := MatchRule(rule, in); ok {
		t.Fatal("expected wholesale-only rule to skip retail")
	}

	rule = &models.PricingRule{ApplicableCustomerTiers: pq.StringArray{"gold"}}
	if ok, _ := MatchRule(rule, in); ok {
		t.Fatal("tierless customer must not match a tier-restricted rule")
	}
	gold := enums.CustomerTierGold
	in.Tier = &gold
	if ok, reason := MatchRule(rule, in); !ok {
		t.Fatalf("expected gold customer to match, got %q", reason)
	}
}

func TestMatchRuleTimeWindowAndDays(t *testing.T) {
	t.Parallel()

	in := baseMatch()
	cases := []struct {
		name  string
		rule  models.PricingRule
		match bool
	}{
		{"inside window", models.PricingRule{StartTime: strPtr("09:00"), EndTime: strPtr("18:00")}, true},
		{"window edge inclusive", models.PricingRule{StartTime: strPtr("14:30"), EndTime: strPtr("14:30")}, true},
		{"outside window", models.PricingRule{StartTime: strPtr("18:00"), EndTime: strPtr("23:59")}, false},
		{"start only ignored", models.PricingRule{StartTime: strPtr("18:00")}, true},
		{"friday allowed", models.PricingRule{ApplicableDays: pq.Int64Array{4}}, true},
		{"weekend only", models.PricingRule{ApplicableDays: pq.Int64Array{5, 6}}, false},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if ok, reason := MatchRule(&tc.rule, in); ok != tc.match {
				t.Fatalf("expected match=%v, got %v (%s)", tc.match, ok, reason)
			}
		})
	}
}

func TestMatchRuleUsesLocationWallClock(t *testing.T) {
	t.Parallel()

	loc := time.FixedZone("IST", 5*3600+1800)
	in := baseMatch()
	in.Now = fixedNow.In(loc) // 20:00 local
	rule := &models.PricingRule{StartTime: strPtr("19:00"), EndTime: strPtr("21:00")}
	if ok, reason := MatchRule(rule, in); !ok {
		t.Fatalf("expected local evening window to match, got %q", reason)
	}
}

func TestMatchRuleUsageCapAndConditions(t *testing.T) {
	t.Parallel()

	in := baseMatch()
	rule := &models.PricingRule{MaxUses: intPtr(3), CurrentUses: 3}
	if ok, _ := MatchRule(rule, in); ok {
		t.Fatal("expected exhausted rule to be skipped")
	}

	rule = &models.PricingRule{Conditions: dbtypes.Conditions{{Kind: dbtypes.ConditionMinQuantity, Quantity: intPtr(5)}}}
	if ok, _ := MatchRule(rule, in); ok {
		t.Fatal("expected min quantity condition to fail for qty 1")
	}
	in.Quantity = 5
	if ok, reason := MatchRule(rule, in); !ok {
		t.Fatalf("expected condition to pass, got %q", reason)
	}
}

func TestMatchRuleAssociations(t *testing.T) {
	t.Parallel()

	productID := uuid.New()
	variantID := uuid.New()
	categoryID := uuid.New()
	otherID := uuid.New()
	target := Target{ProductID: &productID, VariantID: &variantID, CategoryID: &categoryID}

	cases := []struct {
		name  string
		rule  models.PricingRule
		match bool
	}{
		{
			name:  "product association covers variants",
			rule:  models.PricingRule{Products: []models.PricingRuleProduct{{ProductID: &productID}}},
			match: true,
		},
		{
			name:  "variant association",
			rule:  models.PricingRule{Products: []models.PricingRuleProduct{{ProductVariantID: &variantID}}},
			match: true,
		},
		{
			name:  "other product only",
			rule:  models.PricingRule{Products: []models.PricingRuleProduct{{ProductID: &otherID}}},
			match: false,
		},
		{
			name: "excluded variant wins over included product",
			rule: models.PricingRule{Products: []models.PricingRuleProduct{
				{ProductID: &productID},
				{ProductVariantID: &variantID, IsExcluded: true},
			}},
			match: false,
		},
		{
			name: "excluded category",
			rule: models.PricingRule{Categories: []models.PricingRuleCategory{
				{CategoryID: categoryID, IsExcluded: true},
			}},
			match: false,
		},
		{
			name: "product associations shadow categories",
			rule: models.PricingRule{
				Products:   []models.PricingRuleProduct{{ProductID: &otherID}},
				Categories: []models.PricingRuleCategory{{CategoryID: categoryID}},
			},
			match: false,
		},
		{
			name:  "category fallback",
			rule:  models.PricingRule{Categories: []models.PricingRuleCategory{{CategoryID: categoryID}}},
			match: true,
		},
		{
			name:  "category fallback miss",
			rule:  models.PricingRule{Categories: []models.PricingRuleCategory{{CategoryID: otherID}}},
			match: false,
		},
		{
			name: "only exclusions that miss make the rule global",
			rule: models.PricingRule{Products: []models.PricingRuleProduct{
				{ProductID: &otherID, IsExcluded: true},
			}},
			match: true,
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			in := baseMatch()
			in.Target = target
			if ok, reason := MatchRule(&tc.rule, in); ok != tc.match {
				t.Fatalf("expected match=%v, got %v (%s)", tc.match, ok, reason)
			}
		})
	}
}

func TestSortRulesDeterministic(t *testing.T) {
	t.Parallel()

	early := fixedNow.Add(-time.Hour)
	idLow := uuid.MustParse("00000000-0000-0000-0000-000000000001")
	idHigh := uuid.MustParse("00000000-0000-0000-0000-000000000002")
	rules := []models.PricingRule{
		{ID: idHigh, Name: "tie-high-id", Priority: 5, CreatedAt: early},
		{ID: uuid.New(), Name: "late", Priority: 5, CreatedAt: fixedNow},
		{ID: uuid.New(), Name: "top", Priority: 10, CreatedAt: fixedNow},
		{ID: idLow, Name: "tie-low-id", Priority: 5, CreatedAt: early},
	}
	sortRules(rules)

	want := []string{"top", "tie-low-id", "tie-high-id", "late"}
	for i, name := range want {
		if rules[i].Name != name {
			t.Fatalf("position %d: expected %s, got %s", i, name, rules[i].Name)
		}
	}
}

func TestWeekdayIndexStartsMonday(t *testing.T) {
	t.Parallel()

	monday := time.Date(2026, time.October, 12, 0, 0, 0, 0, time.UTC)
	if got := weekdayIndex(monday); got != 0 {
		t.Fatalf("expected monday=0, got %d", got)
	}
	if got := weekdayIndex(monday.AddDate(0, 0, 6)); got != 6 {
		t.Fatalf("expected sunday=6, got %d", got)
	}
}
