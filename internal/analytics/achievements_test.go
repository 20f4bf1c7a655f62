package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kmledger/kmledger/internal/domain/models"
)

func TestComputeAchievementStats(t *testing.T) {
	records := []models.DailyRecord{
		record(date(2025, 1, 3), 100, 10, 50),
		record(date(2025, 1, 1), 100, 10, 50),
		record(date(2025, 1, 2), 100, 10, 50),
		record(date(2025, 1, 2), 50, 0, 10),
		record(date(2025, 1, 10), 100, 10, 50),
	}
	goals := []models.Goal{{Achieved: true}, {Achieved: false}}

	s := ComputeAchievementStats(records, goals)
	assert.Equal(t, 5, s.Records)
	assert.InDelta(t, 450, s.TotalRevenue, 1e-9)
	assert.InDelta(t, 410, s.TotalProfit, 1e-9)
	assert.Equal(t, 3, s.LongestStreak)
	assert.Equal(t, 1, s.GoalsAchieved)

	assert.Zero(t, ComputeAchievementStats(nil, nil).LongestStreak)
}

func TestEvaluateAchievements(t *testing.T) {
	table := DefaultAchievements()
	stats := AchievementStats{Records: 31, TotalRevenue: 12000, LongestStreak: 7}

	got := EvaluateAchievements(table, stats, map[string]bool{"first_record": true})
	types := make([]string, 0, len(got))
	for _, r := range got {
		types = append(types, r.Type)
	}
	assert.Equal(t, []string{"records_30", "revenue_10k", "streak_7"}, types)

	assert.Empty(t, EvaluateAchievements(table, AchievementStats{}, nil))
}

func TestAchievementTable_RulesAreCopied(t *testing.T) {
	table := NewAchievementTable(AchievementRule{Type: "x", Check: func(AchievementStats) bool { return true }})
	rules := table.Rules()
	require.Len(t, rules, 1)
	rules[0].Type = "mutated"
	assert.Equal(t, "x", table.Rules()[0].Type)
}
