package promotions

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/pricing-engine/internal/pricing"
	"github.com/angelmondragon/pricing-engine/pkg/db"
	"github.com/angelmondragon/pricing-engine/pkg/db/dbtest"
	"github.com/angelmondragon/pricing-engine/pkg/db/models"
	"github.com/angelmondragon/pricing-engine/pkg/enums"
	pkgerrors "github.com/angelmondragon/pricing-engine/pkg/errors"
	"github.com/angelmondragon/pricing-engine/pkg/logger"
)

type countingMetrics struct {
	mu       sync.Mutex
	outcomes map[string]int
}

func (m *countingMetrics) IncRedemption(outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.outcomes == nil {
		m.outcomes = map[string]int{}
	}
	m.outcomes[outcome]++
}

type flakyTx struct {
	inner    txRunner
	failures int32
}

func (f *flakyTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if atomic.AddInt32(&f.failures, -1) >= 0 {
		return errors.New("database is locked")
	}
	return f.inner.WithTx(ctx, fn)
}

func newRecorder(t *testing.T, conn *gorm.DB, tx txRunner, metrics RedemptionMetrics) *Recorder {
	t.Helper()
	if tx == nil {
		tx = db.NewFromGorm(conn)
	}
	rec, err := NewRecorder(RecorderParams{
		Repo:     NewRepository(conn),
		Tx:       tx,
		Logger:   logger.New(logger.Options{ServiceName: "recorder-test", Output: io.Discard}),
		Metrics:  metrics,
		Attempts: 3,
		Now:      func() time.Time { return baseTime },
	})
	require.NoError(t, err)
	return rec
}

func redeemInput(promotionID uuid.UUID) RedeemInput {
	return RedeemInput{
		PromotionID:              promotionID,
		DiscountAmount:           decimal.RequireFromString("50"),
		OrderTotalBeforeDiscount: decimal.RequireFromString("500"),
		OrderTotalAfterDiscount:  decimal.RequireFromString("450"),
	}
}

func TestRedeemConcurrentNeverExceedsCap(t *testing.T) {
	conn := dbtest.NewSQLite(t)
	ctx := context.Background()

	const capUses = 5
	const attempts = 20
	maxUses := capUses
	promo := newPromotion("RUSH")
	promo.MaxUses = &maxUses
	require.NoError(t, NewRepository(conn).Create(ctx, promo))

	metrics := &countingMetrics{}
	rec := newRecorder(t, conn, nil, metrics)

	var (
		wg        sync.WaitGroup
		succeeded int32
		limited   int32
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := rec.Redeem(ctx, redeemInput(promo.ID))
			switch {
			case err == nil:
				atomic.AddInt32(&succeeded, 1)
			case pkgerrors.IsCode(err, pkgerrors.CodeUsageLimit):
				atomic.AddInt32(&limited, 1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(capUses), succeeded)
	assert.Equal(t, int32(attempts-capUses), limited)

	var stored models.Promotion
	require.NoError(t, conn.First(&stored, "id = ?", promo.ID).Error)
	assert.Equal(t, capUses, stored.CurrentUses)

	var ledger int64
	require.NoError(t, conn.Model(&models.PromotionUsage{}).Where("promotion_id = ?", promo.ID).Count(&ledger).Error)
	assert.Equal(t, int64(capUses), ledger)
	assert.Equal(t, capUses, metrics.outcomes[RedemptionRecorded])
	assert.Equal(t, attempts-capUses, metrics.outcomes[RedemptionLimitReached])
}

func TestRedeemPerCustomerLimit(t *testing.T) {
	conn := dbtest.NewSQLite(t)
	ctx := context.Background()

	once := 1
	promo := newPromotion("ONCE")
	promo.MaxUsesPerCustomer = &once
	require.NoError(t, NewRepository(conn).Create(ctx, promo))
	rec := newRecorder(t, conn, nil, nil)

	user := uuid.New()
	in := redeemInput(promo.ID)
	in.Customer = pricing.CustomerRef{UserID: &user}

	usage, err := rec.Redeem(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, user, *usage.UserID)
	assert.Equal(t, baseTime, usage.UsedAt)

	_, err = rec.Redeem(ctx, in)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))

	var stored models.Promotion
	require.NoError(t, conn.First(&stored, "id = ?", promo.ID).Error)
	assert.Equal(t, 1, stored.CurrentUses, "rejected redemption must roll back its increment")

	other := uuid.New()
	in.Customer = pricing.CustomerRef{UserID: &other}
	_, err = rec.Redeem(ctx, in)
	require.NoError(t, err)
}

func TestRedeemRejectsMissingAndInactive(t *testing.T) {
	conn := dbtest.NewSQLite(t)
	ctx := context.Background()
	rec := newRecorder(t, conn, nil, nil)

	_, err := rec.Redeem(ctx, redeemInput(uuid.New()))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	paused := newPromotion("PAUSED")
	paused.Status = enums.RuleStatusPaused
	require.NoError(t, NewRepository(conn).Create(ctx, paused))
	_, err = rec.Redeem(ctx, redeemInput(paused.ID))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))

	_, err = rec.Redeem(ctx, RedeemInput{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestRedeemRetriesTransientConflicts(t *testing.T) {
	conn := dbtest.NewSQLite(t)
	ctx := context.Background()

	promo := newPromotion("RETRY")
	require.NoError(t, NewRepository(conn).Create(ctx, promo))

	flaky := &flakyTx{inner: db.NewFromGorm(conn), failures: 2}
	rec := newRecorder(t, conn, flaky, nil)
	_, err := rec.Redeem(ctx, redeemInput(promo.ID))
	require.NoError(t, err)

	flaky = &flakyTx{inner: db.NewFromGorm(conn), failures: 3}
	rec = newRecorder(t, conn, flaky, nil)
	_, err = rec.Redeem(ctx, redeemInput(promo.ID))
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUsageLimit))
	assert.True(t, pkgerrors.Retryable(err))
}

// staleRepo serves a promotion snapshot read before other redemptions
// committed, and records the order of counter and ledger calls.
type staleRepo struct {
	Repository
	snapshot models.Promotion
	calls    *[]string
}

func (s staleRepo) WithTx(tx *gorm.DB) Repository {
	return staleRepo{Repository: s.Repository.WithTx(tx), snapshot: s.snapshot, calls: s.calls}
}

func (s staleRepo) FindByID(context.Context, uuid.UUID) (*models.Promotion, error) {
	promo := s.snapshot
	return &promo, nil
}

func (s staleRepo) IncrementUsage(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	*s.calls = append(*s.calls, "increment")
	return s.Repository.IncrementUsage(ctx, id, now)
}

func (s staleRepo) CustomerUsageCount(ctx context.Context, id uuid.UUID, customer pricing.CustomerRef) (int64, error) {
	*s.calls = append(*s.calls, "count")
	return s.Repository.CustomerUsageCount(ctx, id, customer)
}

func newStaleRecorder(t *testing.T, conn *gorm.DB, snapshot models.Promotion, calls *[]string) *Recorder {
	t.Helper()
	rec, err := NewRecorder(RecorderParams{
		Repo:   staleRepo{Repository: NewRepository(conn), snapshot: snapshot, calls: calls},
		Tx:     db.NewFromGorm(conn),
		Logger: logger.New(logger.Options{ServiceName: "recorder-test", Output: io.Discard}),
		Now:    func() time.Time { return baseTime },
	})
	require.NoError(t, err)
	return rec
}

func TestRedeemCapHoldsAgainstStaleRead(t *testing.T) {
	conn := dbtest.NewSQLite(t)
	ctx := context.Background()
	repo := NewRepository(conn)

	one := 1
	promo := newPromotion("LASTONE")
	promo.MaxUses = &one
	require.NoError(t, repo.Create(ctx, promo))
	snapshot, err := repo.FindByID(ctx, promo.ID)
	require.NoError(t, err)
	require.Zero(t, snapshot.CurrentUses)

	_, err = newRecorder(t, conn, nil, nil).Redeem(ctx, redeemInput(promo.ID))
	require.NoError(t, err)

	// the loser of the race read current_uses=0 before the winner committed
	var calls []string
	_, err = newStaleRecorder(t, conn, *snapshot, &calls).Redeem(ctx, redeemInput(promo.ID))
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUsageLimit))

	var stored models.Promotion
	require.NoError(t, conn.First(&stored, "id = ?", promo.ID).Error)
	assert.Equal(t, 1, stored.CurrentUses)
	var ledger int64
	require.NoError(t, conn.Model(&models.PromotionUsage{}).Where("promotion_id = ?", promo.ID).Count(&ledger).Error)
	assert.Equal(t, int64(1), ledger)
}

func TestIncrementUsageGuardLivesInUpdate(t *testing.T) {
	conn := dbtest.NewSQLite(t)
	ctx := context.Background()

	promo := newPromotion("GUARDED")
	require.NoError(t, NewRepository(conn).Create(ctx, promo))

	var statements []string
	require.NoError(t, conn.Callback().Update().After("gorm:update").Register("test:capture_update", func(tx *gorm.DB) {
		statements = append(statements, tx.Statement.SQL.String())
	}))
	ok, err := NewRepository(conn).IncrementUsage(ctx, promo.ID, baseTime)
	require.NoError(t, err)
	assert.True(t, ok)

	require.Len(t, statements, 1)
	sql := statements[0]
	assert.Contains(t, sql, "current_uses + 1")
	assert.Contains(t, sql, "current_uses < max_uses")
	assert.Contains(t, sql, "end_date >=")
}

func TestRedeemCountsCustomerUsageAfterIncrement(t *testing.T) {
	conn := dbtest.NewSQLite(t)
	ctx := context.Background()
	repo := NewRepository(conn)

	once := 1
	promo := newPromotion("PERUSER")
	promo.MaxUsesPerCustomer = &once
	require.NoError(t, repo.Create(ctx, promo))
	snapshot, err := repo.FindByID(ctx, promo.ID)
	require.NoError(t, err)

	user := uuid.New()
	in := redeemInput(promo.ID)
	in.Customer = pricing.CustomerRef{UserID: &user}

	var calls []string
	rec := newStaleRecorder(t, conn, *snapshot, &calls)
	_, err = rec.Redeem(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, []string{"increment", "count"}, calls)

	_, err = rec.Redeem(ctx, in)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))
}

func TestRedeemRejectsOutsideDateWindow(t *testing.T) {
	conn := dbtest.NewSQLite(t)
	ctx := context.Background()
	repo := NewRepository(conn)
	rec := newRecorder(t, conn, nil, nil)

	ended := newPromotion("ENDED")
	ended.StartDate = baseTime.Add(-48 * time.Hour)
	ended.EndDate = baseTime.Add(-24 * time.Hour)
	require.NoError(t, repo.Create(ctx, ended))

	upcoming := newPromotion("SOON")
	upcoming.StartDate = baseTime.Add(time.Hour)
	upcoming.EndDate = baseTime.Add(48 * time.Hour)
	require.NoError(t, repo.Create(ctx, upcoming))

	for _, promo := range []*models.Promotion{ended, upcoming} {
		_, err := rec.Redeem(ctx, redeemInput(promo.ID))
		require.Error(t, err, promo.Code)
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict), promo.Code)

		ok, err := repo.IncrementUsage(ctx, promo.ID, baseTime)
		require.NoError(t, err)
		assert.False(t, ok, "counter must not move outside the date window: %s", promo.Code)
	}

	var ledger int64
	require.NoError(t, conn.Model(&models.PromotionUsage{}).Count(&ledger).Error)
	assert.Zero(t, ledger)
}
