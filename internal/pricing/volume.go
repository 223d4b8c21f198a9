package pricing

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/pricing-engine/pkg/db/models"
	"github.com/angelmondragon/pricing-engine/pkg/enums"
)

// SelectVolume picks the single volume tier giving the largest amount off current.
// It returns nil when no candidate yields a positive amount.
func SelectVolume(candidates []models.VolumeDiscount, in MatchInput, current decimal.Decimal) *AppliedDiscount {
	eligible := make([]models.VolumeDiscount, 0, len(candidates))
	for _, vd := range candidates {
		if volumeApplies(vd, in) {
			eligible = append(eligible, vd)
		}
	}
	sortVolume(eligible)

	var (
		best       *models.VolumeDiscount
		bestAmount decimal.Decimal
	)
	for i := range eligible {
		vd := &eligible[i]
		discount, err := NewDiscount(vd.DiscountType, vd.DiscountValue)
		if err != nil {
			continue
		}
		amount := boundAmount(discount.Compute(current, in.Quantity), vd.MaxDiscountAmount, current)
		if !amount.IsPositive() {
			continue
		}
		// eligible is already in tie-break order, so only a strictly larger amount wins.
		if best == nil || amount.GreaterThan(bestAmount) {
			best = vd
			bestAmount = amount
		}
	}
	if best == nil {
		return nil
	}

	return &AppliedDiscount{
		Type:   best.DiscountType,
		Value:  best.DiscountValue,
		Amount: bestAmount,
		Source: enums.DiscountSourceVolumeDiscount,
		Name:   fmt.Sprintf("Volume Discount (%d+ items)", best.MinQuantity),
	}
}

func volumeApplies(vd models.VolumeDiscount, in MatchInput) bool {
	if !vd.IsActive {
		return false
	}
	if vd.StartDate != nil && in.Now.Before(*vd.StartDate) {
		return false
	}
	if vd.EndDate != nil && in.Now.After(*vd.EndDate) {
		return false
	}
	if in.Quantity < vd.MinQuantity {
		return false
	}
	if vd.MaxQuantity != nil && in.Quantity > *vd.MaxQuantity {
		return false
	}
	if vd.Channel != nil && *vd.Channel != in.Channel {
		return false
	}
	if vd.CustomerTier != nil && (in.Tier == nil || *vd.CustomerTier != *in.Tier) {
		return false
	}
	return volumeInScope(vd, in.Target)
}

func volumeInScope(vd models.VolumeDiscount, target Target) bool {
	if vd.IsGlobal {
		return true
	}
	switch {
	case vd.ProductVariantID != nil && target.VariantID != nil && *vd.ProductVariantID == *target.VariantID:
		return true
	case vd.ProductID != nil && target.ProductID != nil && *vd.ProductID == *target.ProductID:
		return true
	case vd.CategoryID != nil && target.CategoryID != nil && *vd.CategoryID == *target.CategoryID:
		return true
	}
	return false
}

// sortVolume orders tiers by priority desc, min quantity desc, creation time, then id.
func sortVolume(tiers []models.VolumeDiscount) {
	sort.SliceStable(tiers, func(i, j int) bool {
		a, b := tiers[i], tiers[j]
		if a.Priority != b.Priority {
			return a.Priority > b.Priority
		}
		if a.MinQuantity != b.MinQuantity {
			return a.MinQuantity > b.MinQuantity
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return lessUUID(a.ID, b.ID)
	})
}
