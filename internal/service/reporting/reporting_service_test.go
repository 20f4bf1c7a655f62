package reporting

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

func day(m time.Month, d int) time.Time { return time.Date(2025, m, d, 0, 0, 0, 0, time.UTC) }

func seed(t *testing.T) *memory.Store {
	t.Helper()
	ctx := context.Background()
	store := memory.New()
	require.NoError(t, store.CreateOwner(ctx, models.Owner{ID: "o1", Name: "Ana"}))

	recs := []models.DailyRecord{
		{ID: "r1", OwnerID: "o1", Date: day(10, 13), Revenue: 300, Expenses: 100, Distance: 150, Platforms: []string{"uber"}},
		{ID: "r2", OwnerID: "o1", Date: day(10, 14), Revenue: 200, Expenses: 50, Distance: 100, Platforms: []string{"uber", "99"}},
		{ID: "r3", OwnerID: "o1", Date: day(9, 1), Revenue: 999, Expenses: 0, Distance: 10},
	}
	for _, r := range recs {
		r.RecomputeProfit()
		require.NoError(t, store.CreateRecord(ctx, r))
	}
	require.NoError(t, store.CreateFuelLog(ctx, models.FuelLog{ID: "f1", OwnerID: "o1", Date: day(10, 13), Liters: 40, TotalCost: 240}))
	return store
}

func TestStats(t *testing.T) {
	svc := NewService(seed(t), analytics.DefaultTaxTable(), nil)
	from, to := day(10, 1), day(10, 31)

	stats, err := svc.Stats(context.Background(), "o1", models.DateRange{From: &from, To: &to})
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Records)
	assert.InDelta(t, 350, stats.Profit, 1e-9)
	assert.InDelta(t, 240, stats.FuelLogSpend, 1e-9)

	_, err = svc.Stats(context.Background(), "o1", models.DateRange{From: &to, To: &from})
	assert.True(t, errs.Is(err, errs.KindValidation))
}

func TestFiscal(t *testing.T) {
	svc := NewService(seed(t), analytics.DefaultTaxTable(), nil)

	report, err := svc.Fiscal(context.Background(), "o1", 2025)
	require.NoError(t, err)
	assert.Equal(t, "Ana", report.Owner.Name)
	assert.Equal(t, 3, report.Counts.Records)
	assert.InDelta(t, 1499, report.Summary.TotalRevenue, 1e-9)
	assert.Zero(t, report.Summary.EstimatedTax)

	_, err = svc.Fiscal(context.Background(), "o1", 1899)
	assert.True(t, errs.Is(err, errs.KindValidation))

	_, err = svc.Fiscal(context.Background(), "nobody", 2025)
	assert.True(t, errs.Is(err, errs.KindNotFound))
}

func TestPlatformsAndEvolution(t *testing.T) {
	svc := NewService(seed(t), analytics.DefaultTaxTable(), nil)
	ctx := context.Background()

	rows, err := svc.Platforms(ctx, "o1", models.DateRange{})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "uber", rows[0].Platform)
	assert.InDelta(t, 400, rows[0].Revenue, 1e-9)

	points, err := svc.Evolution(ctx, "o1", models.DateRange{}, analytics.GranularityDaily)
	require.NoError(t, err)
	assert.Len(t, points, 2)

	_, err = svc.Evolution(ctx, "o1", models.DateRange{}, "hourly")
	assert.True(t, errs.Is(err, errs.KindValidation))
}

func TestWeeklySummary(t *testing.T) {
	svc := NewService(seed(t), analytics.DefaultTaxTable(), nil)
	ctx := context.Background()

	brt := time.FixedZone("BRT", -3*60*60)
	msg, err := svc.WeeklySummary(ctx, "o1", time.Date(2025, 10, 14, 21, 0, 0, 0, brt))
	require.NoError(t, err)
	assert.Contains(t, msg, "Resumo semanal (08/10 a 14/10)")
	assert.Contains(t, msg, "Dias trabalhados: 2")
	assert.Contains(t, msg, "Melhor dia: 13/10")

	empty, err := svc.WeeklySummary(ctx, "o1", time.Date(2025, 12, 1, 9, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Contains(t, empty, "nenhum dia registrado")
}
