package channelprices

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/pricing-engine/pkg/db"
	"github.com/angelmondragon/pricing-engine/pkg/db/dbtest"
	"github.com/angelmondragon/pricing-engine/pkg/enums"
	pkgerrors "github.com/angelmondragon/pricing-engine/pkg/errors"
	"github.com/angelmondragon/pricing-engine/pkg/logger"
)

func newTestService(t *testing.T) (Service, Repository) {
	t.Helper()
	conn := dbtest.NewSQLite(t)
	repo := NewRepository(conn)
	svc, err := NewService(ServiceParams{
		Repo:   repo,
		Tx:     db.NewFromGorm(conn),
		Logger: logger.New(logger.Options{ServiceName: "channelprices-test", Output: io.Discard}),
		Now:    func() time.Time { return baseTime },
	})
	require.NoError(t, err)
	return svc, repo
}

func TestSetWritesInitialThenChangeHistory(t *testing.T) {
	ctx := context.Background()
	svc, repo := newTestService(t)
	variant := uuid.New()

	first, err := svc.Set(ctx, SetInput{
		Item:      Item{VariantID: &variant},
		Channel:   enums.ChannelRetail,
		BasePrice: decimal.RequireFromString("999.999"),
	})
	require.NoError(t, err)
	assert.Equal(t, "INR", first.Currency)
	assert.Equal(t, "1000.00", first.BasePrice.StringFixed(2))

	cost := decimal.NewFromInt(400)
	second, err := svc.Set(ctx, SetInput{
		Item:      Item{VariantID: &variant},
		Channel:   enums.ChannelRetail,
		BasePrice: decimal.NewFromInt(1100),
		CostPrice: &cost,
		Currency:  "inr",
	})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID, "same row is updated")

	prices, err := svc.ListByVariant(ctx, variant)
	require.NoError(t, err)
	require.Len(t, prices, 1)

	history, err := repo.ListHistory(ctx, HistoryParams{VariantID: &variant})
	require.NoError(t, err)
	require.Len(t, history, 2)
	reasons := []enums.PriceChangeReason{history[0].ChangeReason, history[1].ChangeReason}
	assert.ElementsMatch(t, []enums.PriceChangeReason{enums.PriceChangeReasonInitialPrice, enums.PriceChangeReasonChannelPrice}, reasons)
	for _, entry := range history {
		if entry.ChangeReason == enums.PriceChangeReasonChannelPrice {
			require.NotNil(t, entry.OldPrice)
			assert.Equal(t, "1000.00", entry.OldPrice.StringFixed(2))
			assert.Equal(t, "1100.00", entry.NewPrice.StringFixed(2))
		}
	}
}

func TestSetRejectsInvalidInput(t *testing.T) {
	svc, _ := newTestService(t)
	product := uuid.New()
	variant := uuid.New()
	minPrice := decimal.NewFromInt(500)

	_, err := svc.Set(context.Background(), SetInput{
		Item:      Item{ProductID: &product, VariantID: &variant},
		Channel:   enums.Channel("kiosk"),
		BasePrice: decimal.NewFromInt(100),
		MinPrice:  &minPrice,
	})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
	details, ok := typed.Details().(map[string]any)
	require.True(t, ok)
	assert.Len(t, details["problems"], 3)
}

func TestHistoryRejectsInvertedRange(t *testing.T) {
	svc, _ := newTestService(t)
	from := baseTime
	to := baseTime.Add(-time.Hour)

	_, err := svc.History(context.Background(), HistoryParams{From: &from, To: &to})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}
