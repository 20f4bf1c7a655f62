package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kmledger/kmledger/internal/domain/models"
)

func TestPercentileRank(t *testing.T) {
	peers := []float64{10, 20, 30, 40, 50}

	assert.InDelta(t, 60, PercentileRank(peers, 30), 1e-9)
	assert.InDelta(t, 0, PercentileRank(peers, 5), 1e-9)
	assert.InDelta(t, 100, PercentileRank(peers, 50), 1e-9)
	assert.Zero(t, PercentileRank(nil, 30))
}

func TestComputeOwnerMetrics(t *testing.T) {
	m := ComputeOwnerMetrics([]models.DailyRecord{
		record(date(2025, 9, 1), 300, 100, 100),
		record(date(2025, 9, 2), 200, 100, 100),
	})
	assert.InDelta(t, 150, m.AvgDailyProfit, 1e-9)
	assert.InDelta(t, 1.5, m.AvgProfitPerKm, 1e-9)
	assert.InDelta(t, 2, m.DaysWorked, 1e-9)
	assert.InDelta(t, 1.5, m.EfficiencyRatio, 1e-9)

	zero := ComputeOwnerMetrics([]models.DailyRecord{record(date(2025, 9, 1), 100, 0, 0)})
	assert.Zero(t, zero.EfficiencyRatio)
	assert.Zero(t, zero.AvgProfitPerKm)
}

func TestBuildBenchmarkEntries(t *testing.T) {
	subject := BenchmarkSubject{OwnerID: "o1", Locale: "SP", VehicleType: "car"}
	a := record(date(2025, 9, 1), 300, 100, 100)
	a.Platforms = []string{"uber", "99"}
	b := record(date(2025, 9, 2), 200, 100, 100)
	b.Platforms = []string{"uber"}

	entries := BuildBenchmarkEntries(subject, models.PeriodMonthly, date(2025, 9, 1), []models.DailyRecord{a, b}, date(2025, 10, 1))
	require.Len(t, entries, 2)
	assert.Equal(t, "99", entries[0].Platform)
	assert.Equal(t, "uber", entries[1].Platform)
	for _, e := range entries {
		assert.Equal(t, "SP", e.Locale)
		assert.Equal(t, "car", e.VehicleType)
		assert.InDelta(t, 150, e.AvgDailyProfit, 1e-9)
	}

	unscoped := BuildBenchmarkEntries(subject, models.PeriodMonthly, date(2025, 9, 1), []models.DailyRecord{record(date(2025, 9, 1), 100, 10, 10)}, date(2025, 10, 1))
	require.Len(t, unscoped, 1)
	assert.Empty(t, unscoped[0].Platform)
}

func TestCompareWithPeers(t *testing.T) {
	assert.Nil(t, CompareWithPeers(nil, OwnerMetrics{AvgDailyProfit: 100}))

	var peers []models.BenchmarkEntry
	for _, v := range []float64{10, 20, 30, 40, 50} {
		peers = append(peers, models.BenchmarkEntry{AvgDailyProfit: v, AvgProfitPerKm: 1, DaysWorked: 20, EfficiencyRatio: 2})
	}
	cmp := CompareWithPeers(peers, OwnerMetrics{AvgDailyProfit: 30})
	require.NotNil(t, cmp)
	assert.Equal(t, 5, cmp.Peers.Peers)
	assert.InDelta(t, 30, cmp.Peers.AvgDailyProfit, 1e-9)
	assert.InDelta(t, 20, cmp.Peers.AvgDaysWorked, 1e-9)
	assert.InDelta(t, 60, cmp.Percentile, 1e-9)
}
