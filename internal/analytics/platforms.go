package analytics

import (
	"sort"

	"github.com/kmledger/kmledger/internal/domain/models"
)

// Allocation is the share of one record attributed to one platform.
type Allocation struct {
	Platform string
	Share    float64
	Revenue  float64
	Profit   float64
	Expenses float64
	Distance float64
	Trips    float64
	Hours    float64
}

// AllocateRecord splits a record across its platforms. With an explicit
// per-platform revenue breakdown every metric is scaled by that platform's
// share of total revenue; otherwise the record is split equally.
func AllocateRecord(r models.DailyRecord) []Allocation {
	if len(r.Platforms) == 0 {
		return nil
	}

	shares := make(map[string]float64, len(r.Platforms))
	if len(r.PlatformRevenue) > 0 && r.Revenue > 0 {
		for _, p := range r.Platforms {
			shares[p] = r.PlatformRevenue[p] / r.Revenue
		}
	} else {
		equal := 1 / float64(len(r.Platforms))
		for _, p := range r.Platforms {
			shares[p] = equal
		}
	}

	out := make([]Allocation, 0, len(r.Platforms))
	for _, p := range r.Platforms {
		s := shares[p]
		out = append(out, Allocation{
			Platform: p,
			Share:    s,
			Revenue:  r.Revenue * s,
			Profit:   r.Profit * s,
			Expenses: r.Expenses * s,
			Distance: r.Distance * s,
			Trips:    float64(r.TripCount()) * s,
			Hours:    r.Hours() * s,
		})
	}
	return out
}

// PlatformTotals are the accumulated allocations of one platform.
type PlatformTotals struct {
	Revenue  float64 `json:"revenue"`
	Profit   float64 `json:"profit"`
	Expenses float64 `json:"expenses"`
	Distance float64 `json:"distance"`
	Trips    float64 `json:"trips"`
	Hours    float64 `json:"hours"`
}

func (t *PlatformTotals) add(a Allocation) {
	t.Revenue += a.Revenue
	t.Profit += a.Profit
	t.Expenses += a.Expenses
	t.Distance += a.Distance
	t.Trips += a.Trips
	t.Hours += a.Hours
}

// PlatformSummary is one row of the platform comparison.
type PlatformSummary struct {
	Platform string `json:"platform"`
	PlatformTotals
	DaysActive     int     `json:"daysActive"`
	RevenuePerDay  float64 `json:"revenuePerDay"`
	ProfitPerDay   float64 `json:"profitPerDay"`
	RevenuePerKm   float64 `json:"revenuePerKm"`
	ProfitPerKm    float64 `json:"profitPerKm"`
	RevenuePerTrip float64 `json:"revenuePerTrip"`
	ProfitPerTrip  float64 `json:"profitPerTrip"`
	RevenuePerHour float64 `json:"revenuePerHour"`
	ProfitPerHour  float64 `json:"profitPerHour"`
	MarginPercent  float64 `json:"marginPercent"`
}

// ComparePlatforms aggregates records with at least one platform tag and
// returns one summary per platform sorted by revenue, highest first.
func ComparePlatforms(records []models.DailyRecord) []PlatformSummary {
	totals := map[string]*PlatformTotals{}
	days := map[string]map[string]struct{}{}

	for _, r := range records {
		for _, a := range AllocateRecord(r) {
			t, ok := totals[a.Platform]
			if !ok {
				t = &PlatformTotals{}
				totals[a.Platform] = t
				days[a.Platform] = map[string]struct{}{}
			}
			t.add(a)
			days[a.Platform][r.Date.Format("2006-01-02")] = struct{}{}
		}
	}

	out := make([]PlatformSummary, 0, len(totals))
	for p, t := range totals {
		active := float64(len(days[p]))
		out = append(out, PlatformSummary{
			Platform:       p,
			PlatformTotals: *t,
			DaysActive:     len(days[p]),
			RevenuePerDay:  SafeDiv(t.Revenue, active),
			ProfitPerDay:   SafeDiv(t.Profit, active),
			RevenuePerKm:   SafeDiv(t.Revenue, t.Distance),
			ProfitPerKm:    SafeDiv(t.Profit, t.Distance),
			RevenuePerTrip: SafeDiv(t.Revenue, t.Trips),
			ProfitPerTrip:  SafeDiv(t.Profit, t.Trips),
			RevenuePerHour: SafeDiv(t.Revenue, t.Hours),
			ProfitPerHour:  SafeDiv(t.Profit, t.Hours),
			MarginPercent:  SafeDiv(t.Profit, t.Revenue) * 100,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Revenue == out[j].Revenue {
			return out[i].Platform < out[j].Platform
		}
		return out[i].Revenue > out[j].Revenue
	})
	return out
}

// Granularity selects the evolution bucket size.
type Granularity string

const (
	GranularityDaily   Granularity = "daily"
	GranularityMonthly Granularity = "monthly"
)

// EvolutionPoint is one bucket of the platform evolution series.
type EvolutionPoint struct {
	Label     string                    `json:"label"`
	Platforms map[string]PlatformTotals `json:"platforms"`
}

// PlatformEvolution buckets allocations by day or by month, labelled
// 2006-01-02 or 2006-01, and sorted by label.
func PlatformEvolution(records []models.DailyRecord, g Granularity) []EvolutionPoint {
	layout := "2006-01"
	if g == GranularityDaily {
		layout = "2006-01-02"
	}

	buckets := map[string]map[string]PlatformTotals{}
	for _, r := range records {
		label := r.Date.Format(layout)
		for _, a := range AllocateRecord(r) {
			b, ok := buckets[label]
			if !ok {
				b = map[string]PlatformTotals{}
				buckets[label] = b
			}
			t := b[a.Platform]
			t.add(a)
			b[a.Platform] = t
		}
	}

	labels := make([]string, 0, len(buckets))
	for l := range buckets {
		labels = append(labels, l)
	}
	sort.Strings(labels)

	out := make([]EvolutionPoint, 0, len(labels))
	for _, l := range labels {
		out = append(out, EvolutionPoint{Label: l, Platforms: buckets[l]})
	}
	return out
}
