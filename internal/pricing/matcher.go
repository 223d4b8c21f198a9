package pricing

import (
	"bytes"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/pricing-engine/pkg/db/models"
	"github.com/angelmondragon/pricing-engine/pkg/enums"
)

const clockLayout = "15:04"

// MatchInput is the per-request context a rule is matched against. Now must already
// be expressed in the pricing location.
type MatchInput struct {
	Target     Target
	Channel    enums.Channel
	Tier       *enums.CustomerTier
	Quantity   int
	OrderTotal *decimal.Decimal
	Now        time.Time
}

// MatchRule reports whether the rule is eligible for the input. The reason names the
// first failing check and is only meant for debug logs.
func MatchRule(rule *models.PricingRule, in MatchInput) (bool, string) {
	if rule == nil {
		return false, "nil rule"
	}
	if !allowsChannel(rule.ApplicableChannels, in.Channel) {
		return false, "channel not allowed"
	}
	if len(rule.ApplicableCustomerTiers) > 0 {
		if in.Tier == nil || !containsString(rule.ApplicableCustomerTiers, in.Tier.String()) {
			return false, "customer tier not allowed"
		}
	}

	conds, err := CompileConditions(rule.Conditions)
	if err != nil {
		return false, fmt.Sprintf("invalid conditions: %v", err)
	}
	if !conditionsSatisfied(conds, in.Quantity, in.OrderTotal) {
		return false, "conditions not met"
	}

	if !withinTimeOfDay(rule.StartTime, rule.EndTime, in.Now) {
		return false, "outside time window"
	}
	if len(rule.ApplicableDays) > 0 && !containsInt64(rule.ApplicableDays, int64(weekdayIndex(in.Now))) {
		return false, "weekday not allowed"
	}
	if rule.MaxUses != nil && rule.CurrentUses >= *rule.MaxUses {
		return false, "usage limit reached"
	}

	return matchAssociations(rule, in.Target)
}

func matchAssociations(rule *models.PricingRule, target Target) (bool, string) {
	included := 0
	productHit := false
	for _, p := range rule.Products {
		hit := productMatches(p, target)
		if p.IsExcluded {
			if hit {
				return false, "product excluded"
			}
			continue
		}
		included++
		if hit {
			productHit = true
		}
	}

	includedCategories := 0
	categoryHit := false
	for _, c := range rule.Categories {
		hit := target.CategoryID != nil && *target.CategoryID == c.CategoryID
		if c.IsExcluded {
			if hit {
				return false, "category excluded"
			}
			continue
		}
		includedCategories++
		if hit {
			categoryHit = true
		}
	}

	switch {
	case included > 0:
		if !productHit {
			return false, "product not in rule scope"
		}
	case includedCategories > 0:
		if !categoryHit {
			return false, "category not in rule scope"
		}
	}
	return true, ""
}

// productMatches treats a product association as covering all of its variants.
func productMatches(p models.PricingRuleProduct, target Target) bool {
	if p.ProductVariantID != nil && target.VariantID != nil && *p.ProductVariantID == *target.VariantID {
		return true
	}
	if p.ProductVariantID == nil && p.ProductID != nil && target.ProductID != nil && *p.ProductID == *target.ProductID {
		return true
	}
	return false
}

func withinTimeOfDay(start, end *string, now time.Time) bool {
	if start == nil || end == nil || *start == "" || *end == "" {
		return true
	}
	current := now.Format(clockLayout)
	return *start <= current && current <= *end
}

// weekdayIndex numbers days from Monday=0 to Sunday=6.
func weekdayIndex(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

func allowsChannel(channels []string, channel enums.Channel) bool {
	return len(channels) == 0 || containsString(channels, channel.String())
}

func containsString(values []string, want string) bool {
	for _, v := range values {
		if v == want {
			return true
		}
	}
	return false
}

func containsInt64(values []int64, want int64) bool {
	for _, v := range values {
		if v == want {
			return true
		}
	}
	return false
}

// sortRules orders rules by priority desc, then creation time, then id.
func sortRules(rules []models.PricingRule) {
	sort.SliceStable(rules, func(i, j int) bool {
		a, b := rules[i], rules[j]
		if a.Priority != b.Priority {
			return a.Priority > b.Priority
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return lessUUID(a.ID, b.ID)
	})
}

func lessUUID(a, b uuid.UUID) bool {
	return bytes.Compare(a[:], b[:]) < 0
}

// stacksWithOthers reports whether the rule may follow an applied non-stackable rule.
func stacksWithOthers(rule *models.PricingRule) bool {
	return rule.IsStackable && !rule.IsExclusive
}
