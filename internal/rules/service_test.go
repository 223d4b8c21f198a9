package rules

import (
	"context"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/pricing-engine/pkg/db/dbtest"
	dbtypes "github.com/angelmondragon/pricing-engine/pkg/db/types"
	"github.com/angelmondragon/pricing-engine/pkg/enums"
	pkgerrors "github.com/angelmondragon/pricing-engine/pkg/errors"
	"github.com/angelmondragon/pricing-engine/pkg/logger"
)

func newTestService(t *testing.T) Service {
	t.Helper()
	svc, err := NewService(NewRepository(dbtest.NewSQLite(t)), logger.New(logger.Options{ServiceName: "rules-test", Output: io.Discard}))
	require.NoError(t, err)
	return svc
}

func validInput(code string) RuleInput {
	return RuleInput{
		Name:               "Weekend retail",
		Code:               code,
		RuleType:           enums.RuleTypeSeasonal,
		DiscountType:       enums.DiscountTypePercentage,
		DiscountValue:      decimal.NewFromInt(15),
		ApplicableChannels: []enums.Channel{enums.ChannelRetail},
		ApplicableDays:     []int{5, 6},
		StartTime:          strPtr("08:00"),
		EndTime:            strPtr("20:00"),
		Products:           []ProductScope{{ProductID: ptrUUID(uuid.New())}},
	}
}

func strPtr(s string) *string { return &s }

func TestServiceCreateDefaultsAndNormalizes(t *testing.T) {
	svc := newTestService(t)

	rule, err := svc.Create(context.Background(), validInput(" weekend15 "))
	require.NoError(t, err)
	assert.Equal(t, "WEEKEND15", rule.Code)
	assert.Equal(t, enums.RuleStatusDraft, rule.Status)
	assert.Equal(t, []string{"retail"}, []string(rule.ApplicableChannels))
	assert.Len(t, rule.Products, 1)
}

func TestServiceCreateRejectsInvalidInput(t *testing.T) {
	svc := newTestService(t)

	in := validInput("BAD")
	in.Name = ""
	in.DiscountValue = decimal.NewFromInt(120)
	in.StartTime = strPtr("8:00")
	in.ApplicableDays = []int{7}
	in.Conditions = dbtypes.Conditions{{Kind: dbtypes.ConditionMinQuantity}}

	_, err := svc.Create(context.Background(), in)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
	details, ok := typed.Details().(map[string]any)
	require.True(t, ok)
	assert.Len(t, details["problems"], 5)
}

func TestServiceCreateDuplicateCodeConflicts(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, validInput("DUP"))
	require.NoError(t, err)
	_, err = svc.Create(ctx, validInput("dup"))
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))
}

func TestServiceActivateDeactivate(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	rule, err := svc.Create(ctx, validInput("TOGGLE"))
	require.NoError(t, err)

	active, err := svc.Activate(ctx, rule.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.RuleStatusActive, active.Status)

	paused, err := svc.Deactivate(ctx, rule.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.RuleStatusPaused, paused.Status)

	_, err = svc.Activate(ctx, uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestServiceUpdateKeepsStatus(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	rule, err := svc.Create(ctx, validInput("KEEP"))
	require.NoError(t, err)
	_, err = svc.Activate(ctx, rule.ID)
	require.NoError(t, err)

	in := validInput("KEEP")
	in.Name = "Updated"
	in.Products = nil
	in.Categories = []CategoryScope{{CategoryID: uuid.New()}}
	updated, err := svc.Update(ctx, rule.ID, in)
	require.NoError(t, err)
	assert.Equal(t, "Updated", updated.Name)
	assert.Equal(t, enums.RuleStatusActive, updated.Status)
	assert.Empty(t, updated.Products)
	assert.Len(t, updated.Categories, 1)
}

func TestServiceRecordUsageAndDelete(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	in := validInput("ONCE")
	in.Status = enums.RuleStatusActive
	maxUses := 1
	in.MaxUses = &maxUses
	rule, err := svc.Create(ctx, in)
	require.NoError(t, err)

	require.NoError(t, svc.RecordUsage(ctx, rule.ID))
	err = svc.RecordUsage(ctx, rule.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUsageLimit))
	assert.True(t, pkgerrors.Retryable(err))

	err = svc.RecordUsage(ctx, uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	require.NoError(t, svc.Delete(ctx, rule.ID))
	assert.True(t, pkgerrors.IsCode(svc.Delete(ctx, rule.ID), pkgerrors.CodeNotFound))
}
