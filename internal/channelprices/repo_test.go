package channelprices

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/pricing-engine/internal/pricing"
	"github.com/angelmondragon/pricing-engine/pkg/db/dbtest"
	"github.com/angelmondragon/pricing-engine/pkg/db/models"
	"github.com/angelmondragon/pricing-engine/pkg/enums"
)

var baseTime = time.Date(2026, time.March, 2, 10, 0, 0, 0, time.UTC)

func priceRow(product, variant *uuid.UUID, channel enums.Channel, amount int64, created time.Time) *models.ChannelPrice {
	return &models.ChannelPrice{
		ProductID:        product,
		ProductVariantID: variant,
		Channel:          channel,
		BasePrice:        decimal.NewFromInt(amount),
		Currency:         "INR",
		IsActive:         true,
		CreatedAt:        created,
		UpdatedAt:        created,
	}
}

func TestFindEffectivePrefersVariant(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(dbtest.NewSQLite(t))

	product := uuid.New()
	variant := uuid.New()
	require.NoError(t, repo.Save(ctx, priceRow(&product, nil, enums.ChannelRetail, 900, baseTime.Add(-time.Hour))))
	require.NoError(t, repo.Save(ctx, priceRow(nil, &variant, enums.ChannelRetail, 1000, baseTime.Add(-2*time.Hour))))

	got, err := repo.FindEffective(ctx, pricing.ChannelPriceQuery{
		ProductID: &product,
		VariantID: &variant,
		Channel:   enums.ChannelRetail,
		Now:       baseTime,
	})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.BasePrice.Equal(decimal.NewFromInt(1000)))

	other := uuid.New()
	got, err = repo.FindEffective(ctx, pricing.ChannelPriceQuery{
		ProductID: &product,
		VariantID: &other,
		Channel:   enums.ChannelRetail,
		Now:       baseTime,
	})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.BasePrice.Equal(decimal.NewFromInt(900)), "falls back to product row")
}

func TestFindEffectiveFiltersWindowAndActivity(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(dbtest.NewSQLite(t))
	variant := uuid.New()

	future := priceRow(nil, &variant, enums.ChannelEcommerce, 700, baseTime.Add(-time.Minute))
	from := baseTime.Add(time.Hour)
	future.EffectiveFrom = &from
	require.NoError(t, repo.Save(ctx, future))

	inactive := priceRow(nil, &variant, enums.ChannelEcommerce, 600, baseTime.Add(-2*time.Minute))
	inactive.IsActive = false
	require.NoError(t, repo.Save(ctx, inactive))

	older := priceRow(nil, &variant, enums.ChannelEcommerce, 800, baseTime.Add(-48*time.Hour))
	require.NoError(t, repo.Save(ctx, older))
	newer := priceRow(nil, &variant, enums.ChannelEcommerce, 850, baseTime.Add(-24*time.Hour))
	until := baseTime.Add(time.Hour)
	newer.EffectiveUntil = &until
	require.NoError(t, repo.Save(ctx, newer))

	got, err := repo.FindEffective(ctx, pricing.ChannelPriceQuery{VariantID: &variant, Channel: enums.ChannelEcommerce, Now: baseTime})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, newer.ID, got.ID)

	got, err = repo.FindEffective(ctx, pricing.ChannelPriceQuery{VariantID: &variant, Channel: enums.ChannelEcommerce, Now: baseTime.Add(90 * time.Minute)})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, future.ID, got.ID)

	got, err = repo.FindEffective(ctx, pricing.ChannelPriceQuery{VariantID: &variant, Channel: enums.ChannelWholesale, Now: baseTime})
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestListHistoryFilters(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(dbtest.NewSQLite(t))
	variant := uuid.New()
	retail := enums.ChannelRetail
	wholesale := enums.ChannelWholesale

	for i, ch := range []*enums.Channel{&retail, &wholesale, &retail} {
		require.NoError(t, repo.AppendHistory(ctx, &models.PriceHistory{
			ProductVariantID: &variant,
			Channel:          ch,
			NewPrice:         decimal.NewFromInt(int64(100 * (i + 1))),
			Currency:         "INR",
			ChangeReason:     enums.PriceChangeReasonChannelPrice,
			EffectiveDate:    baseTime.Add(time.Duration(i) * time.Hour),
		}))
	}

	all, err := repo.ListHistory(ctx, HistoryParams{VariantID: &variant})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.True(t, all[0].NewPrice.Equal(decimal.NewFromInt(300)), "newest first")

	retailOnly, err := repo.ListHistory(ctx, HistoryParams{VariantID: &variant, Channel: &retail})
	require.NoError(t, err)
	assert.Len(t, retailOnly, 2)

	from := baseTime.Add(30 * time.Minute)
	to := baseTime.Add(90 * time.Minute)
	windowed, err := repo.ListHistory(ctx, HistoryParams{VariantID: &variant, From: &from, To: &to})
	require.NoError(t, err)
	require.Len(t, windowed, 1)
	assert.True(t, windowed[0].NewPrice.Equal(decimal.NewFromInt(200)))
}
