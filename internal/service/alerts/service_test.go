package alerts

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kmledger/kmledger/internal/analytics"
	"github.com/kmledger/kmledger/internal/domain/errs"
	"github.com/kmledger/kmledger/internal/domain/models"
	"github.com/kmledger/kmledger/internal/repository/memory"
	"github.com/kmledger/kmledger/internal/service/goals"
)

var now = time.Date(2025, 10, 25, 18, 0, 0, 0, time.UTC)

// seedWeek stores seven costly days ending today: low profit per km, high
// expense ratio and too few days worked.
func seedWeek(t *testing.T, store *memory.Store) {
	t.Helper()
	for i := 0; i < 7; i++ {
		d := analytics.StartOfDay(now).AddDate(0, 0, -i)
		r := models.DailyRecord{ID: fmt.Sprintf("r%d", i), OwnerID: "o1", Date: d, Revenue: 200, Expenses: 150, Distance: 100}
		r.RecomputeProfit()
		require.NoError(t, store.CreateRecord(context.Background(), r))
	}
}

func newTestService(store *memory.Store) *Service {
	return NewService(store, goals.NewService(store, nil), analytics.DefaultRuleConfig(), nil)
}

func TestGenerate_Deduplicates(t *testing.T) {
	store := memory.New()
	seedWeek(t, store)
	svc := newTestService(store)
	ctx := context.Background()

	first, err := svc.Generate(ctx, "o1", now)
	require.NoError(t, err)
	require.NotEmpty(t, first)

	second, err := svc.Generate(ctx, "o1", now)
	require.NoError(t, err)
	assert.Empty(t, second)

	all, err := svc.List(ctx, models.AlertFilter{OwnerID: "o1"})
	require.NoError(t, err)
	assert.Len(t, all, len(first))

	n, err := svc.MarkAllRead(ctx, "o1")
	require.NoError(t, err)
	assert.EqualValues(t, len(first), n)

	third, err := svc.Generate(ctx, "o1", now)
	require.NoError(t, err)
	assert.Len(t, third, len(first))
}

func TestGenerate_GoalAchievedOnce(t *testing.T) {
	store := memory.New()
	seedWeek(t, store)
	ctx := context.Background()
	goalSvc := goals.NewService(store, nil)
	_, err := goalSvc.Create(ctx, "o1", goals.CreateInput{Type: models.PeriodMonthly, TargetPeriod: "2025-10-01", TargetValue: 1000})
	require.NoError(t, err)

	svc := NewService(store, goalSvc, analytics.DefaultRuleConfig(), nil)
	created, err := svc.Generate(ctx, "o1", now)
	require.NoError(t, err)

	var found bool
	for _, a := range created {
		if a.Title == "Meta atingida!" {
			found = true
		}
	}
	assert.True(t, found)

	_, err = svc.MarkAllRead(ctx, "o1")
	require.NoError(t, err)
	again, err := svc.Generate(ctx, "o1", now)
	require.NoError(t, err)
	for _, a := range again {
		assert.NotEqual(t, "Meta atingida!", a.Title)
	}
}

func hasTitle(alerts []models.Alert, title string) bool {
	for _, a := range alerts {
		if a.Title == title {
			return true
		}
	}
	return false
}

func TestGenerate_GoalAchievedAfterEarlierReads(t *testing.T) {
	store := memory.New()
	seedWeek(t, store)
	ctx := context.Background()
	goalSvc := goals.NewService(store, nil)
	goal, err := goalSvc.Create(ctx, "o1", goals.CreateInput{Type: models.PeriodMonthly, TargetPeriod: "2025-10-01", TargetValue: 1000})
	require.NoError(t, err)
	svc := NewService(store, goalSvc, analytics.DefaultRuleConfig(), nil)

	_, err = svc.Insights(ctx, "o1", now)
	require.NoError(t, err)
	p, err := goalSvc.Progress(ctx, "o1", models.PeriodMonthly, now, nil)
	require.NoError(t, err)
	require.True(t, p.Achieved)

	created, err := svc.Generate(ctx, "o1", now)
	require.NoError(t, err)
	assert.True(t, hasTitle(created, "Meta atingida!"))

	stored, err := goalSvc.Get(ctx, "o1", goal.ID)
	require.NoError(t, err)
	assert.True(t, stored.AchievementAlerted)

	advice, err := svc.Insights(ctx, "o1", now)
	require.NoError(t, err)
	for _, a := range advice {
		assert.NotEqual(t, "Meta atingida!", a.Title)
	}
}

func TestInsights_NotPersisted(t *testing.T) {
	store := memory.New()
	seedWeek(t, store)
	svc := newTestService(store)
	ctx := context.Background()

	advice, err := svc.Insights(ctx, "o1", now)
	require.NoError(t, err)
	assert.NotEmpty(t, advice)
	assert.LessOrEqual(t, len(advice), 4)

	stored, err := svc.List(ctx, models.AlertFilter{OwnerID: "o1"})
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestMarkReadAndDelete(t *testing.T) {
	store := memory.New()
	seedWeek(t, store)
	svc := newTestService(store)
	ctx := context.Background()

	created, err := svc.Generate(ctx, "o1", now)
	require.NoError(t, err)
	require.NotEmpty(t, created)
	id := created[0].ID

	require.NoError(t, svc.MarkRead(ctx, "o1", id))
	assert.True(t, errs.Is(svc.MarkRead(ctx, "o2", id), errs.KindNotFound))

	unread := true
	left, err := svc.List(ctx, models.AlertFilter{OwnerID: "o1", Unread: &unread})
	require.NoError(t, err)
	assert.Len(t, left, len(created)-1)

	require.NoError(t, svc.Delete(ctx, "o1", id))
	assert.True(t, errs.Is(svc.Delete(ctx, "o1", id), errs.KindNotFound))
}
