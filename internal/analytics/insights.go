package analytics

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/kmledger/kmledger/internal/domain/models"
	"github.com/kmledger/kmledger/pkg/money"
)

// Variant selects between the persisted alert rules and the on-screen
// insight rules. They differ only in the weekday rule.
type Variant int

const (
	VariantInsights Variant = iota
	VariantAlerts
)

// Advice is one generated message.
type Advice struct {
	Category  models.AlertCategory `json:"category"`
	Severity  models.Severity      `json:"severity"`
	Title     string               `json:"title"`
	Message   string               `json:"message"`
	ActionURL string               `json:"actionUrl,omitempty"`
	GoalID    string               `json:"-"` // set on the goal-reached advice
}

// RuleConfig holds every threshold the rules use.
type RuleConfig struct {
	RecentDays               int
	LowProfitMinRecords      int
	LowProfitPerKm           float64
	HighProfitPerKm          float64
	InsightWeekdayMinRecords int
	AlertWeekdayMinRecords   int
	AlertWeekdayMinSamples   int
	CostTrendSample          int
	CostTrendThreshold       float64
	WorkdayBaseline          int
	WorkdayShare             float64
	GoalRiskProgress         float64
	GoalRiskDays             int
	MaintenanceWindowKm      float64
	ExpenseRatioLimit        float64
	MaxInsights              int
}

// DefaultRuleConfig returns the production thresholds.
func DefaultRuleConfig() RuleConfig {
	return RuleConfig{
		RecentDays:               7,
		LowProfitMinRecords:      7,
		LowProfitPerKm:           1.5,
		HighProfitPerKm:          2.5,
		InsightWeekdayMinRecords: 7,
		AlertWeekdayMinRecords:   14,
		AlertWeekdayMinSamples:   3,
		CostTrendSample:          7,
		CostTrendThreshold:       0.10,
		WorkdayBaseline:          22,
		WorkdayShare:             0.8,
		GoalRiskProgress:         50,
		GoalRiskDays:             10,
		MaintenanceWindowKm:      500,
		ExpenseRatioLimit:        0.6,
		MaxInsights:              4,
	}
}

// InsightInput is one owner's snapshot for rule evaluation.
type InsightInput struct {
	Now               time.Time
	Records           []models.DailyRecord // trailing 30 days
	Goal              *GoalProgress
	LatestMaintenance *models.Maintenance
	LatestFuelLog     *models.FuelLog
}

// WeekdayStat is the mean profit of one weekday.
type WeekdayStat struct {
	Weekday    time.Weekday `json:"weekday"`
	Samples    int          `json:"samples"`
	MeanProfit float64      `json:"meanProfit"`
}

// BestWeekday groups records by weekday and returns the highest mean
// profit. Weekdays are visited Sunday to Saturday and only a strictly
// greater mean replaces the current best, so the earlier weekday wins ties.
func BestWeekday(records []models.DailyRecord) (WeekdayStat, bool) {
	var sums [7]float64
	var counts [7]int
	for _, r := range records {
		wd := r.Date.Weekday()
		sums[wd] += r.Profit
		counts[wd]++
	}

	var best WeekdayStat
	found := false
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		if counts[wd] == 0 {
			continue
		}
		m := sums[wd] / float64(counts[wd])
		if !found || m > best.MeanProfit {
			best = WeekdayStat{Weekday: wd, Samples: counts[wd], MeanProfit: m}
			found = true
		}
	}
	return best, found
}

// Evaluate runs every rule against the input. All matching rules fire in
// rule order.
func Evaluate(cfg RuleConfig, variant Variant, in InsightInput) []Advice {
	records := sortedByDate(in.Records)
	recent := since(records, in.Now.AddDate(0, 0, -(cfg.RecentDays - 1)))

	var out []Advice
	add := func(a *Advice) {
		if a != nil {
			out = append(out, *a)
		}
	}

	add(lowProfitPerKm(cfg, records, recent))
	add(bestWeekdayAdvice(cfg, variant, records))
	add(risingCostPerKm(cfg, records))
	add(underWorked(cfg, records))
	add(highProfitPerKm(cfg, records))
	for _, a := range goalAdvice(cfg, in.Goal) {
		add(a)
	}
	add(upcomingMaintenance(cfg, in.LatestMaintenance, in.LatestFuelLog))
	add(highExpenseRatio(cfg, recent))

	return out
}

// Insights is the on-screen variant, capped at cfg.MaxInsights.
func Insights(cfg RuleConfig, in InsightInput) []Advice {
	all := Evaluate(cfg, VariantInsights, in)
	if len(all) > cfg.MaxInsights {
		all = all[:cfg.MaxInsights]
	}
	return all
}

func lowProfitPerKm(cfg RuleConfig, records, recent []models.DailyRecord) *Advice {
	if len(records) < cfg.LowProfitMinRecords {
		return nil
	}
	avg := meanRatio(recent, func(r models.DailyRecord) (float64, float64) { return r.Profit, r.Distance })
	if avg <= 0 || avg >= cfg.LowProfitPerKm {
		return nil
	}
	return &Advice{
		Category:  models.CategoryPerformance,
		Severity:  models.SeverityWarning,
		Title:     "Lucro por km baixo",
		Message:   fmt.Sprintf("Nos últimos %d dias seu lucro médio foi de %s por km. Revise rotas e custos.", cfg.RecentDays, money.Format(avg)),
		ActionURL: "/dashboard",
	}
}

func bestWeekdayAdvice(cfg RuleConfig, variant Variant, records []models.DailyRecord) *Advice {
	if variant == VariantInsights {
		if len(records) < cfg.InsightWeekdayMinRecords {
			return nil
		}
		best, ok := BestWeekday(records)
		if !ok {
			return nil
		}
		return &Advice{
			Category:  models.CategoryOpportunity,
			Severity:  models.SeverityInfo,
			Title:     "Seu melhor dia da semana",
			Message:   fmt.Sprintf("%s é o seu dia mais lucrativo, com média de %s.", weekdayName(best.Weekday), money.Format(best.MeanProfit)),
			ActionURL: "/reports",
		}
	}

	if len(records) < cfg.AlertWeekdayMinRecords {
		return nil
	}
	best, ok := BestWeekday(records)
	if !ok || best.Samples < cfg.AlertWeekdayMinSamples {
		return nil
	}
	return &Advice{
		Category:  models.CategoryOpportunity,
		Severity:  models.SeverityInfo,
		Title:     "Oportunidade: " + weekdayName(best.Weekday),
		Message:   fmt.Sprintf("Em %d %ss você lucrou em média %s. Considere priorizar esse dia.", best.Samples, weekdayName(best.Weekday), money.Format(best.MeanProfit)),
		ActionURL: "/reports",
	}
}

// risingCostPerKm compares the latest CostTrendSample records with the
// ones before them. Records without distance stay in their sample but do
// not count toward its mean.
func risingCostPerKm(cfg RuleConfig, records []models.DailyRecord) *Advice {
	n := cfg.CostTrendSample
	if len(records) < 2*n {
		return nil
	}
	latest := records[len(records)-n:]
	prior := records[len(records)-2*n : len(records)-n]

	costPerKm := func(r models.DailyRecord) (float64, float64) { return r.Expenses, r.Distance }
	recentCost := meanRatio(latest, costPerKm)
	priorCost := meanRatio(prior, costPerKm)
	if priorCost <= 0 || recentCost <= priorCost*(1+cfg.CostTrendThreshold) {
		return nil
	}
	increase := (recentCost/priorCost - 1) * 100
	return &Advice{
		Category:  models.CategoryPerformance,
		Severity:  models.SeverityWarning,
		Title:     "Custo por km em alta",
		Message:   fmt.Sprintf("Seu custo por km subiu %.0f%% (de %s para %s).", increase, money.Format(priorCost), money.Format(recentCost)),
		ActionURL: "/records",
	}
}

func underWorked(cfg RuleConfig, records []models.DailyRecord) *Advice {
	threshold := float64(cfg.WorkdayBaseline) * cfg.WorkdayShare
	if len(records) == 0 || float64(len(records)) >= threshold {
		return nil
	}
	missing := cfg.WorkdayBaseline - len(records)
	return &Advice{
		Category:  models.CategoryOpportunity,
		Severity:  models.SeverityInfo,
		Title:     "Poucos dias trabalhados",
		Message:   fmt.Sprintf("Você registrou %d dias nos últimos 30, %d a menos que a referência de %d dias úteis.", len(records), missing, cfg.WorkdayBaseline),
		ActionURL: "/records/new",
	}
}

func highProfitPerKm(cfg RuleConfig, records []models.DailyRecord) *Advice {
	avg := meanRatio(records, func(r models.DailyRecord) (float64, float64) { return r.Profit, r.Distance })
	if avg < cfg.HighProfitPerKm {
		return nil
	}
	return &Advice{
		Category:  models.CategoryPerformance,
		Severity:  models.SeveritySuccess,
		Title:     "Ótimo lucro por km",
		Message:   fmt.Sprintf("Seu lucro médio está em %s por km. Continue assim!", money.Format(avg)),
		ActionURL: "/dashboard",
	}
}

func goalAdvice(cfg RuleConfig, p *GoalProgress) []*Advice {
	if p == nil || !p.Exists {
		return nil
	}
	var out []*Advice
	if p.RawProgressPercent < cfg.GoalRiskProgress && p.DaysRemaining <= cfg.GoalRiskDays {
		out = append(out, &Advice{
			Category:  models.CategoryPerformance,
			Severity:  models.SeverityWarning,
			Title:     "Meta em risco",
			Message:   fmt.Sprintf("Faltam %s em %d dias para bater sua meta do mês.", money.Format(p.Remaining), p.DaysRemaining),
			ActionURL: "/goals",
		})
	}
	if p.RawProgressPercent >= 100 && !p.AchievementAlerted {
		a := &Advice{
			Category:  models.CategoryPerformance,
			Severity:  models.SeveritySuccess,
			Title:     "Meta atingida!",
			Message:   fmt.Sprintf("Você alcançou %s de %s na meta do mês.", money.Format(p.CurrentValue), money.Format(p.TargetValue)),
			ActionURL: "/goals",
		}
		if p.Goal != nil {
			a.GoalID = p.Goal.ID
		}
		out = append(out, a)
	}
	return out
}

func upcomingMaintenance(cfg RuleConfig, m *models.Maintenance, f *models.FuelLog) *Advice {
	if m == nil || m.NextOdometer == nil || f == nil || f.Odometer == nil {
		return nil
	}
	remaining := *m.NextOdometer - *f.Odometer
	if remaining < 0 || remaining > cfg.MaintenanceWindowKm {
		return nil
	}
	return &Advice{
		Category:  models.CategoryMaintenance,
		Severity:  models.SeverityWarning,
		Title:     "Manutenção próxima",
		Message:   fmt.Sprintf("Faltam %.0f km para a próxima manutenção (%s).", remaining, m.Type),
		ActionURL: "/maintenances",
	}
}

func highExpenseRatio(cfg RuleConfig, recent []models.DailyRecord) *Advice {
	if len(recent) == 0 {
		return nil
	}
	var revenue, expenses float64
	for _, r := range recent {
		revenue += r.Revenue
		expenses += r.Expenses
	}
	n := float64(len(recent))
	avgRevenue, avgExpenses := revenue/n, expenses/n
	if avgExpenses <= avgRevenue*cfg.ExpenseRatioLimit {
		return nil
	}
	return &Advice{
		Category:  models.CategoryPerformance,
		Severity:  models.SeverityWarning,
		Title:     "Despesas elevadas",
		Message:   fmt.Sprintf("Suas despesas consumiram %.0f%% do faturamento nos últimos %d dias.", SafeDiv(avgExpenses, avgRevenue)*100, cfg.RecentDays),
		ActionURL: "/records",
	}
}

// meanRatio averages num/den over records with a positive denominator.
func meanRatio(records []models.DailyRecord, f func(models.DailyRecord) (float64, float64)) float64 {
	var sum float64
	var n int
	for _, r := range records {
		num, den := f(r)
		if den <= 0 {
			continue
		}
		sum += num / den
		n++
	}
	if n == 0 {
		return 0
	}
	v := sum / float64(n)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func sortedByDate(records []models.DailyRecord) []models.DailyRecord {
	out := make([]models.DailyRecord, len(records))
	copy(out, records)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

func since(records []models.DailyRecord, from time.Time) []models.DailyRecord {
	var out []models.DailyRecord
	for _, r := range records {
		if !r.Date.Before(StartOfDay(from)) {
			out = append(out, r)
		}
	}
	return out
}

var weekdayNames = [...]string{"Domingo", "Segunda", "Terça", "Quarta", "Quinta", "Sexta", "Sábado"}

func weekdayName(d time.Weekday) string {
	return weekdayNames[d]
}
