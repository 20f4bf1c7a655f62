package benchmark

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kmledger/kmledger/internal/domain/errs"
	"github.com/kmledger/kmledger/internal/domain/models"
	"github.com/kmledger/kmledger/internal/repository/memory"
)

var sept = time.Date(2025, 9, 15, 12, 0, 0, 0, time.UTC)

func seedOwner(t *testing.T, store *memory.Store, id string, optIn bool, dailyProfit float64) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, store.CreateOwner(ctx, models.Owner{
		ID: id, Locale: "SP", VehicleType: "car",
		Preferences: models.Preferences{ParticipateBenchmarking: optIn},
	}))
	for d := 1; d <= 2; d++ {
		r := models.DailyRecord{
			ID:        fmt.Sprintf("%s-%d", id, d),
			OwnerID:   id,
			Date:      time.Date(2025, 9, d, 0, 0, 0, 0, time.UTC),
			Revenue:   dailyProfit + 50,
			Expenses:  50,
			Distance:  100,
			Platforms: []string{"uber"},
		}
		r.RecomputeProfit()
		require.NoError(t, store.CreateRecord(ctx, r))
	}
}

func newTestService(store *memory.Store) *Service {
	svc := NewService(store, nil)
	svc.now = func() time.Time { return sept }
	return svc
}

func TestSubmit_RequiresOptIn(t *testing.T) {
	store := memory.New()
	seedOwner(t, store, "o1", false, 100)
	svc := newTestService(store)

	_, err := svc.Submit(context.Background(), "o1", models.PeriodMonthly, sept)
	assert.True(t, errs.Is(err, errs.KindPermission))
	assert.Zero(t, store.BenchmarkCount())
}

func TestSubmit_ReplacesSamePeriod(t *testing.T) {
	store := memory.New()
	seedOwner(t, store, "o1", true, 100)
	svc := newTestService(store)
	ctx := context.Background()

	entries, err := svc.Submit(ctx, "o1", models.PeriodMonthly, sept)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "uber", entries[0].Platform)
	assert.Equal(t, time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC), entries[0].PeriodStart)
	assert.InDelta(t, 100, entries[0].AvgDailyProfit, 1e-9)
	assert.NotEmpty(t, entries[0].ID)

	_, err = svc.Submit(ctx, "o1", models.PeriodMonthly, sept)
	require.NoError(t, err)
	assert.Equal(t, 1, store.BenchmarkCount())

	_, err = svc.Submit(ctx, "o1", models.PeriodMonthly, sept.AddDate(0, 2, 0))
	assert.True(t, errs.Is(err, errs.KindValidation))

	_, err = svc.Submit(ctx, "o1", models.PeriodCustom, sept)
	assert.True(t, errs.Is(err, errs.KindValidation))
}

func TestCompare(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	svc := newTestService(store)

	seedOwner(t, store, "me", true, 30)
	cmp, err := svc.Compare(ctx, "me", Query{})
	require.NoError(t, err)
	assert.Nil(t, cmp)

	for i, profit := range []float64{10, 20, 30, 40, 50} {
		id := fmt.Sprintf("peer%d", i)
		seedOwner(t, store, id, true, profit)
		_, err := svc.Submit(ctx, id, models.PeriodMonthly, sept)
		require.NoError(t, err)
	}
	_, err = svc.Submit(ctx, "me", models.PeriodMonthly, sept)
	require.NoError(t, err)

	cmp, err = svc.Compare(ctx, "me", Query{Locale: "SP"})
	require.NoError(t, err)
	require.NotNil(t, cmp)
	assert.Equal(t, 5, cmp.Peers.Peers)
	assert.InDelta(t, 30, cmp.Peers.AvgDailyProfit, 1e-9)
	assert.InDelta(t, 30, cmp.Owner.AvgDailyProfit, 1e-9)
	assert.InDelta(t, 60, cmp.Percentile, 1e-9)

	cmp, err = svc.Compare(ctx, "me", Query{Locale: "RJ"})
	require.NoError(t, err)
	assert.Nil(t, cmp)

	n, err := svc.Withdraw(ctx, "me")
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}
