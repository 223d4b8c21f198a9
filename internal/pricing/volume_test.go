package pricing

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/pricing-engine/pkg/db/models"
	"github.com/angelmondragon/pricing-engine/pkg/enums"
)

func volumeTier(minQty int, pct string) models.VolumeDiscount {
	return models.VolumeDiscount{
		ID:            uuid.New(),
		IsGlobal:      true,
		IsActive:      true,
		MinQuantity:   minQty,
		DiscountType:  enums.DiscountTypePercentage,
		DiscountValue: dec(pct),
		CreatedAt:     fixedNow.Add(-time.Hour),
	}
}

func TestSelectVolumePicksLargestAmount(t *testing.T) {
	t.Parallel()

	in := baseMatch()
	in.Quantity = 15
	got := SelectVolume([]models.VolumeDiscount{volumeTier(5, "5"), volumeTier(10, "10")}, in, dec("100.00"))
	if got == nil {
		t.Fatal("expected a volume discount")
	}
	if !got.Amount.Equal(dec("10")) {
		t.Fatalf("expected 10.00 off, got %s", got.Amount)
	}
	if got.Name != "Volume Discount (10+ items)" {
		t.Fatalf("unexpected name %q", got.Name)
	}
	if got.Source != enums.DiscountSourceVolumeDiscount {
		t.Fatalf("unexpected source %s", got.Source)
	}
}

func TestSelectVolumeFilters(t *testing.T) {
	t.Parallel()

	wholesale := enums.ChannelWholesale
	gold := enums.CustomerTierGold
	past := fixedNow.Add(-24 * time.Hour)
	otherProduct := uuid.New()

	inactive := volumeTier(1, "50")
	inactive.IsActive = false
	ended := volumeTier(1, "50")
	ended.EndDate = &past
	capped := volumeTier(1, "50")
	capped.MaxQuantity = intPtr(1)
	channel := volumeTier(1, "50")
	channel.Channel = &wholesale
	tier := volumeTier(1, "50")
	tier.CustomerTier = &gold
	scoped := volumeTier(1, "50")
	scoped.IsGlobal = false
	scoped.ProductID = &otherProduct

	in := baseMatch()
	in.Quantity = 2
	got := SelectVolume([]models.VolumeDiscount{inactive, ended, capped, channel, tier, scoped}, in, dec("100"))
	if got != nil {
		t.Fatalf("expected no eligible tier, got %+v", got)
	}
}

func TestSelectVolumeTieBreak(t *testing.T) {
	t.Parallel()

	low := volumeTier(5, "10")
	low.Name = "low"
	high := volumeTier(10, "10")
	high.Name = "high"
	preferred := volumeTier(5, "10")
	preferred.Priority = 1

	in := baseMatch()
	in.Quantity = 12

	got := SelectVolume([]models.VolumeDiscount{low, high}, in, dec("100"))
	if got == nil || got.Name != "Volume Discount (10+ items)" {
		t.Fatalf("expected higher min quantity to win an equal amount, got %+v", got)
	}

	got = SelectVolume([]models.VolumeDiscount{low, high, preferred}, in, dec("100"))
	if got == nil || got.Name != "Volume Discount (5+ items)" {
		t.Fatalf("expected higher priority to win an equal amount, got %+v", got)
	}
}

func TestSelectVolumeRespectsCap(t *testing.T) {
	t.Parallel()

	tier := volumeTier(1, "50")
	tier.MaxDiscountAmount = decPtr("7.25")
	in := baseMatch()

	got := SelectVolume([]models.VolumeDiscount{tier}, in, dec("100"))
	if got == nil || !got.Amount.Equal(dec("7.25")) {
		t.Fatalf("expected capped amount 7.25, got %+v", got)
	}
}
