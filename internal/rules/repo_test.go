package rules

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/pricing-engine/internal/pricing"
	"github.com/angelmondragon/pricing-engine/pkg/db/dbtest"
	"github.com/angelmondragon/pricing-engine/pkg/db/models"
	dbtypes "github.com/angelmondragon/pricing-engine/pkg/db/types"
	"github.com/angelmondragon/pricing-engine/pkg/enums"
	pkgerrors "github.com/angelmondragon/pricing-engine/pkg/errors"
)

var baseTime = time.Date(2026, time.March, 2, 12, 0, 0, 0, time.UTC)

func newRule(code string, priority int, createdAt time.Time) *models.PricingRule {
	return &models.PricingRule{
		Name:          "Rule " + code,
		Code:          code,
		RuleType:      enums.RuleTypePromotional,
		Status:        enums.RuleStatusActive,
		Priority:      priority,
		DiscountType:  enums.DiscountTypePercentage,
		DiscountValue: decimal.NewFromInt(10),
		Conditions:    dbtypes.Conditions{},
		CreatedAt:     createdAt,
		UpdatedAt:     createdAt,
	}
}

func TestRepositoryCreateAndFindWithScopes(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(dbtest.NewSQLite(t))

	productID := uuid.New()
	categoryID := uuid.New()
	qty := 3
	rule := newRule("BULK", 1, baseTime)
	rule.ApplicableChannels = pq.StringArray{"retail", "ecommerce"}
	rule.ApplicableDays = pq.Int64Array{0, 4}
	rule.Conditions = dbtypes.Conditions{{Kind: dbtypes.ConditionMinQuantity, Quantity: &qty}}
	rule.Products = []models.PricingRuleProduct{{ProductID: &productID}}
	rule.Categories = []models.PricingRuleCategory{{CategoryID: categoryID, IsExcluded: true}}
	require.NoError(t, repo.Create(ctx, rule))

	got, err := repo.FindByID(ctx, rule.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"retail", "ecommerce"}, []string(got.ApplicableChannels))
	assert.Equal(t, []int64{0, 4}, []int64(got.ApplicableDays))
	require.Len(t, got.Conditions, 1)
	assert.Equal(t, 3, *got.Conditions[0].Quantity)
	require.Len(t, got.Products, 1)
	assert.Equal(t, productID, *got.Products[0].ProductID)
	require.Len(t, got.Categories, 1)
	assert.True(t, got.Categories[0].IsExcluded)
	assert.True(t, got.DiscountValue.Equal(decimal.NewFromInt(10)))
}

func TestRepositoryUpdateReplacesScopes(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(dbtest.NewSQLite(t))

	first := uuid.New()
	rule := newRule("SWAP", 1, baseTime)
	rule.Products = []models.PricingRuleProduct{{ProductID: &first}}
	require.NoError(t, repo.Create(ctx, rule))

	second := uuid.New()
	loaded, err := repo.FindByID(ctx, rule.ID)
	require.NoError(t, err)
	loaded.Name = "Renamed"
	loaded.Products = []models.PricingRuleProduct{{ProductVariantID: &second}}
	require.NoError(t, repo.Update(ctx, loaded))

	got, err := repo.FindByID(ctx, rule.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Name)
	require.Len(t, got.Products, 1)
	assert.Nil(t, got.Products[0].ProductID)
	assert.Equal(t, second, *got.Products[0].ProductVariantID)
}

func TestRepositoryListPaginatesAndFilters(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(dbtest.NewSQLite(t))

	for i := 0; i < 3; i++ {
		require.NoError(t, repo.Create(ctx, newRule(uuid.NewString()[:8], i, baseTime.Add(time.Duration(i)*time.Minute))))
	}
	paused := newRule("PAUSED", 0, baseTime.Add(time.Hour))
	paused.Status = enums.RuleStatusPaused
	require.NoError(t, repo.Create(ctx, paused))

	active := enums.RuleStatusActive
	page, next, err := repo.List(ctx, ListParams{Status: &active, Limit: 2})
	require.NoError(t, err)
	require.Len(t, page, 2)
	require.NotNil(t, next)
	assert.Equal(t, 2, page[0].Priority)

	rest, next, err := repo.List(ctx, ListParams{Status: &active, Limit: 2, Cursor: next})
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Nil(t, next)
	assert.Equal(t, 0, rest[0].Priority)
}

func TestRepositoryListCandidates(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(dbtest.NewSQLite(t))
	now := baseTime.Add(24 * time.Hour)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	low := newRule("LOW", 1, baseTime)
	highLate := newRule("HIGH-LATE", 5, baseTime.Add(time.Minute))
	highEarly := newRule("HIGH-EARLY", 5, baseTime)
	ended := newRule("ENDED", 9, baseTime)
	ended.EndDate = &past
	notStarted := newRule("FUTURE", 9, baseTime)
	notStarted.StartDate = &future
	draft := newRule("DRAFT", 9, baseTime)
	draft.Status = enums.RuleStatusDraft
	wholesaleOnly := newRule("WHOLESALE", 9, baseTime)
	wholesaleOnly.ApplicableChannels = pq.StringArray{"wholesale"}
	windowed := newRule("WINDOW", 0, baseTime)
	windowed.StartDate = &past
	windowed.EndDate = &future

	for _, r := range []*models.PricingRule{low, highLate, highEarly, ended, notStarted, draft, wholesaleOnly, windowed} {
		require.NoError(t, repo.Create(ctx, r))
	}

	got, err := repo.ListCandidates(ctx, pricing.RuleQuery{Channel: enums.ChannelRetail, Now: now})
	require.NoError(t, err)

	codes := make([]string, 0, len(got))
	for _, r := range got {
		codes = append(codes, r.Code)
	}
	assert.Equal(t, []string{"HIGH-EARLY", "HIGH-LATE", "LOW", "WINDOW"}, codes)
}

func TestRepositoryIncrementUsageStopsAtCap(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(dbtest.NewSQLite(t))

	maxUses := 2
	rule := newRule("CAPPED", 1, baseTime)
	rule.MaxUses = &maxUses
	require.NoError(t, repo.Create(ctx, rule))

	require.NoError(t, repo.IncrementUsage(ctx, rule.ID))
	require.NoError(t, repo.IncrementUsage(ctx, rule.ID))
	err := repo.IncrementUsage(ctx, rule.ID)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUsageLimit))

	got, err := repo.FindByID(ctx, rule.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.CurrentUses)

	assert.ErrorIs(t, repo.IncrementUsage(ctx, uuid.New()), gorm.ErrRecordNotFound)
}

func TestRepositoryExpireEndedAndDelete(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(dbtest.NewSQLite(t))
	now := baseTime.Add(48 * time.Hour)
	past := now.Add(-time.Minute)

	ended := newRule("ENDED", 1, baseTime)
	ended.EndDate = &past
	ended.Products = []models.PricingRuleProduct{{ProductID: ptrUUID(uuid.New())}}
	open := newRule("OPEN", 1, baseTime)
	require.NoError(t, repo.Create(ctx, ended))
	require.NoError(t, repo.Create(ctx, open))

	n, err := repo.ExpireEnded(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err := repo.FindByID(ctx, ended.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.RuleStatusExpired, got.Status)

	deleted, err := repo.Delete(ctx, ended.ID)
	require.NoError(t, err)
	assert.True(t, deleted)
	deleted, err = repo.Delete(ctx, ended.ID)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func ptrUUID(id uuid.UUID) *uuid.UUID { return &id }
