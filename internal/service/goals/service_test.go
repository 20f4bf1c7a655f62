package goals

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kmledger/kmledger/internal/analytics"
	"github.com/kmledger/kmledger/internal/domain/errs"
	"github.com/kmledger/kmledger/internal/domain/models"
	"github.com/kmledger/kmledger/internal/repository/memory"
)

var fixedNow = time.Date(2025, 10, 16, 15, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) (*Service, *memory.Store) {
	t.Helper()
	store := memory.New()
	svc := NewService(store, nil)
	svc.now = func() time.Time { return fixedNow }
	return svc, store
}

func addRecord(t *testing.T, store *memory.Store, day int, revenue float64) {
	t.Helper()
	r := models.DailyRecord{
		ID:      time.Date(2025, 10, day, 0, 0, 0, 0, time.UTC).Format(dateLayout),
		OwnerID: "o1",
		Date:    time.Date(2025, 10, day, 0, 0, 0, 0, time.UTC),
		Revenue: revenue,
	}
	r.RecomputeProfit()
	require.NoError(t, store.CreateRecord(context.Background(), r))
}

func TestCreate_NormalizesAndRejectsDuplicatePeriod(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	goal, err := svc.Create(ctx, "o1", CreateInput{Type: models.PeriodMonthly, TargetPeriod: "2025-10-16", TargetValue: 5000})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC), goal.TargetPeriod)

	_, err = svc.Create(ctx, "o1", CreateInput{Type: models.PeriodMonthly, TargetPeriod: "2025-10-02", TargetValue: 6000})
	assert.True(t, errs.Is(err, errs.KindConflict))

	_, err = svc.Create(ctx, "o2", CreateInput{Type: models.PeriodMonthly, TargetPeriod: "2025-10-02", TargetValue: 6000})
	assert.NoError(t, err)

	weekly, err := svc.Create(ctx, "o1", CreateInput{Type: models.PeriodWeekly, TargetPeriod: "2025-10-16", TargetValue: 1000})
	require.NoError(t, err)
	assert.Equal(t, time.Monday, weekly.TargetPeriod.Weekday())
}

func TestCreate_Validation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, "o1", CreateInput{Type: "yearly", TargetPeriod: "2025-10-16", TargetValue: 1})
	assert.True(t, errs.Is(err, errs.KindValidation))

	_, err = svc.Create(ctx, "o1", CreateInput{Type: models.PeriodMonthly, TargetPeriod: "2025-10-16", TargetValue: 0})
	assert.True(t, errs.Is(err, errs.KindValidation))
}

func TestProgress_NoGoal(t *testing.T) {
	svc, _ := newTestService(t)

	p, err := svc.Progress(context.Background(), "o1", models.PeriodMonthly, fixedNow, nil)
	require.NoError(t, err)
	assert.False(t, p.Exists)
}

func TestProgress_SyncIsIdempotent(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, "o1", CreateInput{Type: models.PeriodMonthly, TargetPeriod: "2025-10-01", TargetValue: 1000})
	require.NoError(t, err)
	addRecord(t, store, 3, 700)
	addRecord(t, store, 10, 500)
	writes := store.GoalWrites()

	p, err := svc.Progress(ctx, "o1", models.PeriodMonthly, fixedNow, nil)
	require.NoError(t, err)
	require.True(t, p.Exists)
	assert.InDelta(t, 1200, p.CurrentValue, 1e-9)
	assert.InDelta(t, 100, p.ProgressPercent, 1e-9)
	assert.InDelta(t, 120, p.RawProgressPercent, 1e-9)
	assert.True(t, p.Achieved)
	require.NotNil(t, p.Goal.AchievedAt)
	assert.Equal(t, writes+1, store.GoalWrites())

	again, err := svc.Progress(ctx, "o1", models.PeriodMonthly, fixedNow, nil)
	require.NoError(t, err)
	assert.Equal(t, writes+1, store.GoalWrites())
	assert.Equal(t, p.Goal.AchievedAt, again.Goal.AchievedAt)
}

func TestProgress_LocalEveningStaysOnSameDay(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, "o1", CreateInput{Type: models.PeriodMonthly, TargetPeriod: "2025-10-01", TargetValue: 1000})
	require.NoError(t, err)
	addRecord(t, store, 31, 400)

	brt := time.FixedZone("BRT", -3*60*60)
	p, err := svc.Progress(ctx, "o1", models.PeriodMonthly, time.Date(2025, 10, 31, 22, 0, 0, 0, brt), nil)
	require.NoError(t, err)
	assert.InDelta(t, 400, p.CurrentValue, 1e-9)
	assert.Equal(t, 1, p.DaysRemaining)
}

func TestProgress_CustomWindow(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	_, err := svc.Progress(ctx, "o1", models.PeriodCustom, fixedNow, nil)
	assert.True(t, errs.Is(err, errs.KindValidation))

	_, err = svc.Create(ctx, "o1", CreateInput{Type: models.PeriodCustom, TargetPeriod: "2025-10-05", TargetValue: 100})
	require.NoError(t, err)
	addRecord(t, store, 6, 80)

	w := &analytics.Window{Start: time.Date(2025, 10, 5, 0, 0, 0, 0, time.UTC), End: time.Date(2025, 10, 20, 0, 0, 0, 0, time.UTC)}
	p, err := svc.Progress(ctx, "o1", models.PeriodCustom, fixedNow, w)
	require.NoError(t, err)
	require.True(t, p.Exists)
	assert.InDelta(t, 80, p.RawProgressPercent, 1e-9)
	assert.False(t, p.Achieved)
}

func TestUpdate_AchievedFlag(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	goal, err := svc.Create(ctx, "o1", CreateInput{Type: models.PeriodWeekly, TargetPeriod: "2025-10-16", TargetValue: 100})
	require.NoError(t, err)

	yes, no := true, false
	updated, err := svc.Update(ctx, "o1", goal.ID, UpdateInput{Achieved: &yes})
	require.NoError(t, err)
	assert.True(t, updated.Achieved)
	assert.NotNil(t, updated.AchievedAt)

	updated, err = svc.Update(ctx, "o1", goal.ID, UpdateInput{Achieved: &no})
	require.NoError(t, err)
	assert.Nil(t, updated.AchievedAt)

	_, err = svc.Update(ctx, "o2", goal.ID, UpdateInput{Achieved: &yes})
	assert.True(t, errs.Is(err, errs.KindNotFound))

	require.NoError(t, svc.Delete(ctx, "o1", goal.ID))
	list, err := svc.List(ctx, "o1", "")
	require.NoError(t, err)
	assert.Empty(t, list)
}
