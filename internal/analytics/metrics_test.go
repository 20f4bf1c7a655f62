package analytics

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kmledger/kmledger/internal/domain/models"
)

func f64(v float64) *float64 { return &v }

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func record(d time.Time, revenue, expenses, distance float64) models.DailyRecord {
	r := models.DailyRecord{Date: d, Revenue: revenue, Expenses: expenses, Distance: distance}
	r.RecomputeProfit()
	return r
}

func TestResolveExpenses(t *testing.T) {
	tests := []struct {
		name     string
		record   models.DailyRecord
		avgPrice float64
		total    float64
		fuel     float64
		strategy ExpenseStrategy
	}{
		{
			name:     "itemized fields win",
			record:   models.DailyRecord{Expenses: 999, FuelCost: f64(50), FoodCost: f64(20), TollCost: f64(5)},
			avgPrice: 6,
			total:    75,
			fuel:     50,
			strategy: StrategyItemized,
		},
		{
			name:     "fuel derived from distance and efficiency",
			record:   models.DailyRecord{Expenses: 999, Distance: 120, FuelEfficiency: f64(12), FoodCost: f64(15)},
			avgPrice: 6,
			total:    75,
			fuel:     60,
			strategy: StrategyDerivedFuel,
		},
		{
			name:     "no average price falls back to raw",
			record:   models.DailyRecord{Expenses: 80, Distance: 120, FuelEfficiency: f64(12)},
			avgPrice: 0,
			total:    80,
			strategy: StrategyRaw,
		},
		{
			name:     "zero itemized falls back to raw",
			record:   models.DailyRecord{Expenses: 40, FuelCost: f64(0)},
			avgPrice: 6,
			total:    40,
			strategy: StrategyRaw,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := ResolveExpenses(tt.record, tt.avgPrice)
			assert.Equal(t, tt.strategy, res.Strategy)
			assert.InDelta(t, tt.total, res.Total, 1e-9)
			assert.InDelta(t, tt.fuel, res.Breakdown.Fuel, 1e-9)
		})
	}
}

func TestAggregate_Totals(t *testing.T) {
	records := []models.DailyRecord{
		{Date: date(2025, 3, 3), Revenue: 300, Expenses: 100, Distance: 150, FuelCost: f64(80), FoodCost: f64(20), HoursWorked: f64(10)},
		{Date: date(2025, 3, 4), Revenue: 200, Expenses: 50, Distance: 100, HoursWorked: f64(6)},
	}
	logs := []models.FuelLog{{Liters: 40, TotalCost: 240}}
	maints := []models.Maintenance{{Cost: 350}}

	stats := Aggregate(records, logs, maints, 6)

	assert.Equal(t, 2, stats.Records)
	assert.InDelta(t, 500, stats.TotalRevenue, 1e-9)
	assert.InDelta(t, 150, stats.TotalExpenses, 1e-9)
	assert.InDelta(t, 350, stats.Profit, 1e-9)
	assert.InDelta(t, 250, stats.TotalDistance, 1e-9)
	assert.InDelta(t, 80, stats.Expenses.Fuel, 1e-9)
	assert.InDelta(t, 50, stats.Expenses.Unclassified, 1e-9)
	assert.InDelta(t, 240, stats.FuelLogSpend, 1e-9)
	assert.InDelta(t, 350, stats.MaintenanceSpend, 1e-9)
	assert.InDelta(t, 175, stats.AvgProfitPerDay, 1e-9)
	assert.InDelta(t, 1.4, stats.ProfitPerKm, 1e-9)
	assert.InDelta(t, 0.6, stats.CostPerKm, 1e-9)
	assert.InDelta(t, 2, stats.RevenuePerKm, 1e-9)
	assert.InDelta(t, 350.0/16, stats.ProfitPerHour, 1e-9)
	assert.Equal(t, 1, stats.Strategies[StrategyItemized])
	assert.Equal(t, 1, stats.Strategies[StrategyRaw])

	require.NotNil(t, stats.BestDay)
	require.NotNil(t, stats.WorstDay)
	assert.Equal(t, date(2025, 3, 3), stats.BestDay.Date)
	assert.Equal(t, date(2025, 3, 4), stats.WorstDay.Date)
}

func TestAggregate_TiesKeepFirstRecord(t *testing.T) {
	records := []models.DailyRecord{
		record(date(2025, 3, 3), 200, 100, 10),
		record(date(2025, 3, 4), 200, 100, 10),
	}
	stats := Aggregate(records, nil, nil, 0)
	assert.Equal(t, date(2025, 3, 3), stats.BestDay.Date)
	assert.Equal(t, date(2025, 3, 3), stats.WorstDay.Date)
}

func TestAggregate_ZeroDenominators(t *testing.T) {
	records := []models.DailyRecord{record(date(2025, 3, 3), 100, 30, 0)}
	stats := Aggregate(records, nil, nil, 0)

	for name, v := range map[string]float64{
		"profitPerKm":    stats.ProfitPerKm,
		"costPerKm":      stats.CostPerKm,
		"revenuePerKm":   stats.RevenuePerKm,
		"profitPerHour":  stats.ProfitPerHour,
		"revenuePerHour": stats.RevenuePerHour,
	} {
		assert.False(t, math.IsNaN(v) || math.IsInf(v, 0), name)
		assert.Zero(t, v, name)
	}

	empty := Aggregate(nil, nil, nil, 0)
	assert.Zero(t, empty.AvgProfitPerDay)
	assert.Nil(t, empty.BestDay)
}

func TestAverageFuelPrice(t *testing.T) {
	assert.InDelta(t, 5.5, AverageFuelPrice([]models.FuelLog{
		{Liters: 10, TotalCost: 50},
		{Liters: 10, TotalCost: 60},
	}), 1e-9)
	assert.Zero(t, AverageFuelPrice(nil))
}
