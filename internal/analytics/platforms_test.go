package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kmledger/kmledger/internal/domain/models"
)

var (
	uber   = string(models.PlatformUber)
	ninety = string(models.Platform99)
)

func TestAllocateRecord(t *testing.T) {
	equal := record(date(2025, 5, 1), 200, 80, 100)
	equal.Platforms = []string{uber, ninety}

	allocs := AllocateRecord(equal)
	require.Len(t, allocs, 2)
	for _, a := range allocs {
		assert.InDelta(t, 0.5, a.Share, 1e-9)
		assert.InDelta(t, 100, a.Revenue, 1e-9)
		assert.InDelta(t, 60, a.Profit, 1e-9)
		assert.InDelta(t, 50, a.Distance, 1e-9)
	}

	split := record(date(2025, 5, 1), 200, 80, 100)
	split.Platforms = []string{uber, ninety}
	split.PlatformRevenue = map[string]float64{uber: 150, ninety: 50}

	allocs = AllocateRecord(split)
	require.Len(t, allocs, 2)
	assert.InDelta(t, 150, allocs[0].Revenue, 1e-9)
	assert.InDelta(t, 60, allocs[0].Expenses, 1e-9)
	assert.InDelta(t, 0.25, allocs[1].Share, 1e-9)

	assert.Nil(t, AllocateRecord(record(date(2025, 5, 1), 100, 0, 0)))
}

func TestComparePlatforms(t *testing.T) {
	a := record(date(2025, 5, 1), 200, 80, 100)
	a.Platforms = []string{uber, ninety}
	b := record(date(2025, 5, 2), 300, 100, 150)
	b.Platforms = []string{uber}
	untagged := record(date(2025, 5, 3), 1000, 0, 10)

	got := ComparePlatforms([]models.DailyRecord{a, b, untagged})
	require.Len(t, got, 2)

	assert.Equal(t, uber, got[0].Platform)
	assert.InDelta(t, 400, got[0].Revenue, 1e-9)
	assert.Equal(t, 2, got[0].DaysActive)
	assert.InDelta(t, 200, got[0].RevenuePerDay, 1e-9)
	assert.InDelta(t, 400.0/200, got[0].RevenuePerKm, 1e-9)
	assert.Zero(t, got[0].RevenuePerTrip)

	assert.Equal(t, ninety, got[1].Platform)
	assert.InDelta(t, 100, got[1].Revenue, 1e-9)
	assert.InDelta(t, 60, got[1].MarginPercent, 1e-9)
}

func TestComparePlatforms_TieSortsByName(t *testing.T) {
	a := record(date(2025, 5, 1), 100, 0, 10)
	a.Platforms = []string{uber}
	b := record(date(2025, 5, 1), 100, 0, 10)
	b.Platforms = []string{ninety}

	got := ComparePlatforms([]models.DailyRecord{a, b})
	require.Len(t, got, 2)
	assert.Equal(t, ninety, got[0].Platform)
}

func TestPlatformEvolution(t *testing.T) {
	a := record(date(2025, 5, 1), 100, 0, 10)
	a.Platforms = []string{uber}
	b := record(date(2025, 5, 20), 50, 0, 10)
	b.Platforms = []string{uber}
	c := record(date(2025, 6, 2), 80, 0, 10)
	c.Platforms = []string{ninety}

	monthly := PlatformEvolution([]models.DailyRecord{c, a, b}, GranularityMonthly)
	require.Len(t, monthly, 2)
	assert.Equal(t, "2025-05", monthly[0].Label)
	assert.InDelta(t, 150, monthly[0].Platforms[uber].Revenue, 1e-9)
	assert.Equal(t, "2025-06", monthly[1].Label)

	daily := PlatformEvolution([]models.DailyRecord{a, b, c}, GranularityDaily)
	require.Len(t, daily, 3)
	assert.Equal(t, "2025-05-01", daily[0].Label)
}
