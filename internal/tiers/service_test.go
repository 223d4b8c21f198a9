package tiers

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/pricing-engine/internal/pricing"
	"github.com/angelmondragon/pricing-engine/pkg/db"
	"github.com/angelmondragon/pricing-engine/pkg/db/dbtest"
	"github.com/angelmondragon/pricing-engine/pkg/enums"
	pkgerrors "github.com/angelmondragon/pricing-engine/pkg/errors"
	"github.com/angelmondragon/pricing-engine/pkg/logger"
)

type clock struct{ now time.Time }

func (c *clock) Now() time.Time { return c.now }

func newTestService(t *testing.T) (Service, Repository, *clock) {
	t.Helper()
	conn := dbtest.NewSQLite(t)
	repo := NewRepository(conn)
	clk := &clock{now: time.Date(2026, time.June, 1, 8, 0, 0, 0, time.UTC)}
	svc, err := NewService(ServiceParams{
		Repo:   repo,
		Tx:     db.NewFromGorm(conn),
		Logger: logger.New(logger.Options{ServiceName: "tiers-test", Output: io.Discard}),
		Now:    clk.Now,
	})
	require.NoError(t, err)
	return svc, repo, clk
}

func TestAssignEndsPreviousAssignment(t *testing.T) {
	ctx := context.Background()
	svc, repo, clk := newTestService(t)
	user := uuid.New()
	customer := pricing.CustomerRef{UserID: &user}

	silver, err := svc.Assign(ctx, AssignInput{Customer: customer, Tier: enums.CustomerTierSilver, DiscountPercentage: decimal.NewFromInt(5)})
	require.NoError(t, err)

	clk.now = clk.now.Add(24 * time.Hour)
	gold, err := svc.Assign(ctx, AssignInput{Customer: customer, Tier: enums.CustomerTierGold, DiscountPercentage: decimal.NewFromInt(10)})
	require.NoError(t, err)

	current, err := svc.Current(ctx, customer)
	require.NoError(t, err)
	assert.Equal(t, gold.ID, current.ID)
	assert.Equal(t, enums.CustomerTierGold, current.Tier)

	past, err := repo.Current(ctx, customer, clk.now.Add(-time.Hour))
	require.NoError(t, err)
	require.NotNil(t, past)
	assert.Equal(t, silver.ID, past.ID)
	require.NotNil(t, past.EffectiveUntil)
	assert.True(t, past.EffectiveUntil.Equal(clk.now))

	silvers, err := svc.ListByTier(ctx, enums.CustomerTierSilver)
	require.NoError(t, err)
	assert.Empty(t, silvers)
	golds, err := svc.ListByTier(ctx, enums.CustomerTierGold)
	require.NoError(t, err)
	assert.Len(t, golds, 1)
}

func TestAssignSameInstantReplacesCurrent(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)
	wholesale := uuid.New()
	customer := pricing.CustomerRef{WholesaleCustomerID: &wholesale}

	_, err := svc.Assign(ctx, AssignInput{Customer: customer, Tier: enums.CustomerTierPlatinum, DiscountPercentage: decimal.NewFromInt(15)})
	require.NoError(t, err)
	vip, err := svc.Assign(ctx, AssignInput{Customer: customer, Tier: enums.CustomerTierVIP, DiscountPercentage: decimal.NewFromInt(20)})
	require.NoError(t, err)

	current, err := svc.Current(ctx, customer)
	require.NoError(t, err)
	assert.Equal(t, vip.ID, current.ID)
}

func TestCurrentWithoutAssignment(t *testing.T) {
	svc, repo, clk := newTestService(t)
	user := uuid.New()

	_, err := svc.Current(context.Background(), pricing.CustomerRef{UserID: &user})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	tier, err := repo.Current(context.Background(), pricing.CustomerRef{}, clk.now)
	require.NoError(t, err)
	assert.Nil(t, tier)
}

func TestAssignValidation(t *testing.T) {
	svc, _, clk := newTestService(t)
	user := uuid.New()
	wholesale := uuid.New()
	past := clk.now.Add(-time.Hour)

	_, err := svc.Assign(context.Background(), AssignInput{
		Customer:           pricing.CustomerRef{UserID: &user, WholesaleCustomerID: &wholesale},
		Tier:               enums.CustomerTier("diamond"),
		DiscountPercentage: decimal.NewFromInt(120),
		EffectiveUntil:     &past,
	})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
	details := typed.Details().(map[string]any)
	assert.Len(t, details["problems"], 4)
}
