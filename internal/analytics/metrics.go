// Package analytics holds the pure functions that turn raw daily records,
// fuel logs and maintenances into statistics, goal progress, benchmark
// ranks, tax estimates, platform comparisons and advisory messages.
// Nothing here performs I/O.
package analytics

import (
	"time"

	"github.com/kmledger/kmledger/internal/domain/models"
)

// ExpenseStrategy names the rule that produced a record's expense total.
type ExpenseStrategy string

const (
	StrategyItemized    ExpenseStrategy = "itemized"
	StrategyDerivedFuel ExpenseStrategy = "derived_fuel"
	StrategyRaw         ExpenseStrategy = "raw"
)

// ExpenseBreakdown is the per-category split of one or many records.
type ExpenseBreakdown struct {
	Fuel         float64 `json:"fuel"`
	Maintenance  float64 `json:"maintenance"`
	Food         float64 `json:"food"`
	Wash         float64 `json:"wash"`
	Toll         float64 `json:"toll"`
	Parking      float64 `json:"parking"`
	Other        float64 `json:"other"`
	Unclassified float64 `json:"unclassified"`
}

// Total sums every category.
func (b ExpenseBreakdown) Total() float64 {
	return b.Fuel + b.Maintenance + b.Food + b.Wash + b.Toll + b.Parking + b.Other + b.Unclassified
}

func (b *ExpenseBreakdown) add(o ExpenseBreakdown) {
	b.Fuel += o.Fuel
	b.Maintenance += o.Maintenance
	b.Food += o.Food
	b.Wash += o.Wash
	b.Toll += o.Toll
	b.Parking += o.Parking
	b.Other += o.Other
	b.Unclassified += o.Unclassified
}

// ExpenseResolution is the resolved expense of a single record.
type ExpenseResolution struct {
	Breakdown ExpenseBreakdown
	Total     float64
	Strategy  ExpenseStrategy
}

// ResolveExpenses applies the ordered precedence: itemized fields, then a
// fuel cost derived from distance / efficiency * avgFuelPrice when itemized
// fuel is missing, then the raw expenses field when the total is still zero.
func ResolveExpenses(r models.DailyRecord, avgFuelPrice float64) ExpenseResolution {
	b := ExpenseBreakdown{
		Fuel:        deref(r.FuelCost),
		Maintenance: deref(r.MaintenanceCost),
		Food:        deref(r.FoodCost),
		Wash:        deref(r.WashCost),
		Toll:        deref(r.TollCost),
		Parking:     deref(r.ParkingCost),
		Other:       deref(r.OtherCost),
	}
	strategy := StrategyItemized

	if r.FuelCost == nil {
		if fuel, ok := DeriveFuelCost(r, avgFuelPrice); ok {
			b.Fuel = fuel
			strategy = StrategyDerivedFuel
		}
	}

	if b.Total() == 0 {
		b = ExpenseBreakdown{Unclassified: r.Expenses}
		strategy = StrategyRaw
	}

	return ExpenseResolution{Breakdown: b, Total: b.Total(), Strategy: strategy}
}

// DeriveFuelCost estimates fuel spend from distance, efficiency and price.
func DeriveFuelCost(r models.DailyRecord, avgFuelPrice float64) (float64, bool) {
	if avgFuelPrice <= 0 || r.Distance <= 0 || r.FuelEfficiency == nil || *r.FuelEfficiency <= 0 {
		return 0, false
	}
	return r.Distance / *r.FuelEfficiency * avgFuelPrice, true
}

// AverageFuelPrice is total spent over total liters across fuel logs.
func AverageFuelPrice(logs []models.FuelLog) float64 {
	var cost, liters float64
	for _, l := range logs {
		cost += l.TotalCost
		liters += l.Liters
	}
	return SafeDiv(cost, liters)
}

// DayMetric is one record's computed outcome.
type DayMetric struct {
	Date     time.Time `json:"date"`
	Revenue  float64   `json:"revenue"`
	Expenses float64   `json:"expenses"`
	Profit   float64   `json:"profit"`
	Distance float64   `json:"distance"`
}

// PeriodStats is the reduction of a period's records.
type PeriodStats struct {
	Records          int                     `json:"records"`
	TotalRevenue     float64                 `json:"totalRevenue"`
	TotalExpenses    float64                 `json:"totalExpenses"`
	Profit           float64                 `json:"profit"`
	TotalDistance    float64                 `json:"totalDistance"`
	TotalHours       float64                 `json:"totalHours"`
	TotalTrips       int                     `json:"totalTrips"`
	Expenses         ExpenseBreakdown        `json:"expenseBreakdown"`
	FuelLogSpend     float64                 `json:"fuelLogSpend"`
	FuelLogLiters    float64                 `json:"fuelLogLiters"`
	MaintenanceSpend float64                 `json:"maintenanceSpend"`
	BestDay          *DayMetric              `json:"bestDay,omitempty"`
	WorstDay         *DayMetric              `json:"worstDay,omitempty"`
	AvgProfitPerDay  float64                 `json:"avgProfitPerDay"`
	ProfitPerKm      float64                 `json:"profitPerKm"`
	CostPerKm        float64                 `json:"costPerKm"`
	RevenuePerKm     float64                 `json:"revenuePerKm"`
	ProfitPerHour    float64                 `json:"profitPerHour"`
	RevenuePerHour   float64                 `json:"revenuePerHour"`
	Strategies       map[ExpenseStrategy]int `json:"strategies"`
}

// Aggregate reduces records (and the period's fuel logs and maintenances)
// to period statistics. Best and worst day keep the first record seen on
// ties.
func Aggregate(records []models.DailyRecord, fuelLogs []models.FuelLog, maintenances []models.Maintenance, avgFuelPrice float64) PeriodStats {
	stats := PeriodStats{Strategies: map[ExpenseStrategy]int{}}

	for _, r := range records {
		res := ResolveExpenses(r, avgFuelPrice)
		day := DayMetric{
			Date:     r.Date,
			Revenue:  r.Revenue,
			Expenses: res.Total,
			Profit:   r.Revenue - res.Total,
			Distance: r.Distance,
		}

		stats.Records++
		stats.TotalRevenue += r.Revenue
		stats.TotalExpenses += res.Total
		stats.TotalDistance += r.Distance
		stats.TotalHours += r.Hours()
		stats.TotalTrips += r.TripCount()
		stats.Expenses.add(res.Breakdown)
		stats.Strategies[res.Strategy]++

		if stats.BestDay == nil || day.Profit > stats.BestDay.Profit {
			d := day
			stats.BestDay = &d
		}
		if stats.WorstDay == nil || day.Profit < stats.WorstDay.Profit {
			d := day
			stats.WorstDay = &d
		}
	}

	for _, l := range fuelLogs {
		stats.FuelLogSpend += l.TotalCost
		stats.FuelLogLiters += l.Liters
	}
	for _, m := range maintenances {
		stats.MaintenanceSpend += m.Cost
	}

	stats.Profit = stats.TotalRevenue - stats.TotalExpenses
	stats.AvgProfitPerDay = SafeDiv(stats.Profit, float64(stats.Records))
	stats.ProfitPerKm = SafeDiv(stats.Profit, stats.TotalDistance)
	stats.CostPerKm = SafeDiv(stats.TotalExpenses, stats.TotalDistance)
	stats.RevenuePerKm = SafeDiv(stats.TotalRevenue, stats.TotalDistance)
	stats.ProfitPerHour = SafeDiv(stats.Profit, stats.TotalHours)
	stats.RevenuePerHour = SafeDiv(stats.TotalRevenue, stats.TotalHours)

	return stats
}

// SafeDiv returns 0 instead of NaN or Inf when den is zero.
func SafeDiv(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
