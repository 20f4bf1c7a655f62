package analytics

import (
	"sort"
	"time"

	"github.com/montanaflynn/stats"

	"github.com/kmledger/kmledger/internal/domain/models"
)

// OwnerMetrics is the owner-side snapshot submitted for benchmarking.
type OwnerMetrics struct {
	AvgDailyProfit  float64 `json:"avgDailyProfit"`
	AvgProfitPerKm  float64 `json:"avgProfitPerKm"`
	DaysWorked      float64 `json:"daysWorked"`
	EfficiencyRatio float64 `json:"efficiencyRatio"`
}

// ComputeOwnerMetrics derives benchmark metrics from a period's records.
// Efficiency is profit over expenses.
func ComputeOwnerMetrics(records []models.DailyRecord) OwnerMetrics {
	var revenue, expenses, distance float64
	for _, r := range records {
		revenue += r.Revenue
		expenses += r.Expenses
		distance += r.Distance
	}
	profit := revenue - expenses
	days := float64(len(records))
	return OwnerMetrics{
		AvgDailyProfit:  SafeDiv(profit, days),
		AvgProfitPerKm:  SafeDiv(profit, distance),
		DaysWorked:      days,
		EfficiencyRatio: SafeDiv(profit, expenses),
	}
}

// BenchmarkSubject carries the owner attributes entries are filtered by.
type BenchmarkSubject struct {
	OwnerID     string
	Locale      string
	VehicleType string
}

// BuildBenchmarkEntries produces one entry per distinct platform used in
// the records, or a single unscoped entry when none was recorded. IDs are
// left to the caller.
func BuildBenchmarkEntries(subject BenchmarkSubject, period models.PeriodType, periodStart time.Time, records []models.DailyRecord, now time.Time) []models.BenchmarkEntry {
	m := ComputeOwnerMetrics(records)

	seen := map[string]struct{}{}
	for _, r := range records {
		for _, p := range r.Platforms {
			seen[p] = struct{}{}
		}
	}
	platforms := make([]string, 0, len(seen))
	for p := range seen {
		platforms = append(platforms, p)
	}
	sort.Strings(platforms)
	if len(platforms) == 0 {
		platforms = []string{""}
	}

	entries := make([]models.BenchmarkEntry, 0, len(platforms))
	for _, p := range platforms {
		entries = append(entries, models.BenchmarkEntry{
			OwnerID:         subject.OwnerID,
			Locale:          subject.Locale,
			VehicleType:     subject.VehicleType,
			Platform:        p,
			PeriodType:      period,
			PeriodStart:     periodStart,
			AvgDailyProfit:  m.AvgDailyProfit,
			AvgProfitPerKm:  m.AvgProfitPerKm,
			DaysWorked:      m.DaysWorked,
			EfficiencyRatio: m.EfficiencyRatio,
			CreatedAt:       now,
		})
	}
	return entries
}

// PeerAggregate is the mean of peer entries for one period.
type PeerAggregate struct {
	PeriodType     models.PeriodType `json:"periodType"`
	PeriodStart    time.Time         `json:"periodStart"`
	Peers          int               `json:"peers"`
	AvgDailyProfit float64           `json:"avgDailyProfit"`
	AvgProfitPerKm float64           `json:"avgProfitPerKm"`
	AvgDaysWorked  float64           `json:"avgDaysWorked"`
	AvgEfficiency  float64           `json:"avgEfficiency"`
}

// BenchmarkComparison places the requester against its peers.
type BenchmarkComparison struct {
	Peers      PeerAggregate `json:"peers"`
	Owner      OwnerMetrics  `json:"owner"`
	Percentile float64       `json:"percentile"`
}

// AggregatePeers averages the entries. It returns false for an empty set.
func AggregatePeers(entries []models.BenchmarkEntry) (PeerAggregate, bool) {
	if len(entries) == 0 {
		return PeerAggregate{}, false
	}
	var daily, perKm, days, eff stats.Float64Data
	for _, e := range entries {
		daily = append(daily, e.AvgDailyProfit)
		perKm = append(perKm, e.AvgProfitPerKm)
		days = append(days, e.DaysWorked)
		eff = append(eff, e.EfficiencyRatio)
	}
	return PeerAggregate{
		PeriodType:     entries[0].PeriodType,
		PeriodStart:    entries[0].PeriodStart,
		Peers:          len(entries),
		AvgDailyProfit: mean(daily),
		AvgProfitPerKm: mean(perKm),
		AvgDaysWorked:  mean(days),
		AvgEfficiency:  mean(eff),
	}, true
}

// PercentileRank is the share of peer values at or below value, scaled to
// 0-100. It is rank based, not interpolated.
func PercentileRank(peers []float64, value float64) float64 {
	if len(peers) == 0 {
		return 0
	}
	atOrBelow := 0
	for _, p := range peers {
		if p <= value {
			atOrBelow++
		}
	}
	return float64(atOrBelow) / float64(len(peers)) * 100
}

// CompareWithPeers builds the comparison, or nil when there are no peers.
func CompareWithPeers(peers []models.BenchmarkEntry, owner OwnerMetrics) *BenchmarkComparison {
	agg, ok := AggregatePeers(peers)
	if !ok {
		return nil
	}
	values := make([]float64, 0, len(peers))
	for _, e := range peers {
		values = append(values, e.AvgDailyProfit)
	}
	return &BenchmarkComparison{
		Peers:      agg,
		Owner:      owner,
		Percentile: PercentileRank(values, owner.AvgDailyProfit),
	}
}

func mean(data stats.Float64Data) float64 {
	m, err := stats.Mean(data)
	if err != nil {
		return 0
	}
	return m
}
