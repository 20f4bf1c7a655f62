package analytics

import (
	"sort"
	"time"

	"github.com/kmledger/kmledger/internal/domain/models"
)

// AchievementStats are the lifetime figures achievement rules look at.
type AchievementStats struct {
	Records       int
	TotalRevenue  float64
	TotalProfit   float64
	TotalDistance float64
	LongestStreak int
	GoalsAchieved int
}

// AchievementRule unlocks an achievement once Check holds.
type AchievementRule struct {
	Type        string
	Title       string
	Description string
	Icon        string
	Check       func(AchievementStats) bool
}

// AchievementTable is an ordered, read-only set of rules.
type AchievementTable struct {
	rules []AchievementRule
}

// NewAchievementTable copies rules into a table.
func NewAchievementTable(rules ...AchievementRule) AchievementTable {
	return AchievementTable{rules: append([]AchievementRule(nil), rules...)}
}

// Rules returns a copy of the table's rules.
func (t AchievementTable) Rules() []AchievementRule {
	return append([]AchievementRule(nil), t.rules...)
}

// DefaultAchievements is the production badge table.
func DefaultAchievements() AchievementTable {
	return NewAchievementTable(
		AchievementRule{Type: "first_record", Title: "Primeiro registro", Description: "Registrou o primeiro dia de trabalho", Icon: "🚗",
			Check: func(s AchievementStats) bool { return s.Records >= 1 }},
		AchievementRule{Type: "records_30", Title: "Um mês na estrada", Description: "30 dias registrados", Icon: "📅",
			Check: func(s AchievementStats) bool { return s.Records >= 30 }},
		AchievementRule{Type: "records_100", Title: "Centenário", Description: "100 dias registrados", Icon: "💯",
			Check: func(s AchievementStats) bool { return s.Records >= 100 }},
		AchievementRule{Type: "revenue_10k", Title: "R$ 10 mil faturados", Description: "Faturamento acumulado de R$ 10.000", Icon: "💰",
			Check: func(s AchievementStats) bool { return s.TotalRevenue >= 10000 }},
		AchievementRule{Type: "revenue_50k", Title: "R$ 50 mil faturados", Description: "Faturamento acumulado de R$ 50.000", Icon: "🏆",
			Check: func(s AchievementStats) bool { return s.TotalRevenue >= 50000 }},
		AchievementRule{Type: "distance_10k", Title: "10 mil km", Description: "10.000 km rodados", Icon: "🛣️",
			Check: func(s AchievementStats) bool { return s.TotalDistance >= 10000 }},
		AchievementRule{Type: "streak_7", Title: "Semana completa", Description: "7 dias seguidos registrados", Icon: "🔥",
			Check: func(s AchievementStats) bool { return s.LongestStreak >= 7 }},
		AchievementRule{Type: "first_goal", Title: "Meta batida", Description: "Atingiu a primeira meta", Icon: "🎯",
			Check: func(s AchievementStats) bool { return s.GoalsAchieved >= 1 }},
	)
}

// ComputeAchievementStats derives lifetime figures from all of an owner's
// records and goals.
func ComputeAchievementStats(records []models.DailyRecord, goals []models.Goal) AchievementStats {
	s := AchievementStats{Records: len(records)}
	days := make([]time.Time, 0, len(records))
	for _, r := range records {
		s.TotalRevenue += r.Revenue
		s.TotalProfit += r.Profit
		s.TotalDistance += r.Distance
		days = append(days, StartOfDay(r.Date))
	}
	for _, g := range goals {
		if g.Achieved {
			s.GoalsAchieved++
		}
	}
	s.LongestStreak = longestStreak(days)
	return s
}

func longestStreak(days []time.Time) int {
	if len(days) == 0 {
		return 0
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })
	best, run := 1, 1
	for i := 1; i < len(days); i++ {
		switch {
		case days[i].Equal(days[i-1]):
			continue
		case days[i].Equal(days[i-1].AddDate(0, 0, 1)):
			run++
		default:
			run = 1
		}
		if run > best {
			best = run
		}
	}
	return best
}

// EvaluateAchievements returns the rules that hold now and are not yet
// unlocked. Unlocked types are never re-evaluated.
func EvaluateAchievements(table AchievementTable, stats AchievementStats, unlocked map[string]bool) []AchievementRule {
	var out []AchievementRule
	for _, rule := range table.rules {
		if unlocked[rule.Type] {
			continue
		}
		if rule.Check(stats) {
			out = append(out, rule)
		}
	}
	return out
}
