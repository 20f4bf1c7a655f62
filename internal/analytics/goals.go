package analytics

import (
	"errors"
	"math"
	"time"

	"github.com/kmledger/kmledger/internal/domain/models"
)

const day = 24 * time.Hour

var (
	ErrCustomWindowRequired = errors.New("custom period requires an explicit window")
	ErrInvalidWindow        = errors.New("window start must not be after end")
	ErrUnknownPeriod        = errors.New("unknown period type")
)

// Window is a closed date range. End is the last instant of its last day.
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether t lies inside the window.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

// WallClockUTC re-reads t's date and clock in UTC. Record dates are UTC
// midnights.
func WallClockUTC(t time.Time) time.Time {
	y, m, d := t.Date()
	h, mi, sec := t.Clock()
	return time.Date(y, m, d, h, mi, sec, t.Nanosecond(), time.UTC)
}

// StartOfDay truncates t to midnight in its own location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// EndOfDay returns the last nanosecond of t's day.
func EndOfDay(t time.Time) time.Time {
	return StartOfDay(t).AddDate(0, 0, 1).Add(-time.Nanosecond)
}

// MonthWindow spans the first to the last calendar day of t's month.
func MonthWindow(t time.Time) Window {
	y, m, _ := t.Date()
	start := time.Date(y, m, 1, 0, 0, 0, 0, t.Location())
	return Window{Start: start, End: start.AddDate(0, 1, 0).Add(-time.Nanosecond)}
}

// WeekWindow spans Monday to Sunday of t's week.
func WeekWindow(t time.Time) Window {
	weekday := int(t.Weekday())
	if weekday == 0 {
		weekday = 7
	}
	start := StartOfDay(t).AddDate(0, 0, -(weekday - 1))
	return Window{Start: start, End: start.AddDate(0, 0, 7).Add(-time.Nanosecond)}
}

// YearWindow spans a calendar year.
func YearWindow(year int, loc *time.Location) Window {
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, loc)
	return Window{Start: start, End: start.AddDate(1, 0, 0).Add(-time.Nanosecond)}
}

// ResolveWindow maps a period type and reference time to its window. A
// custom period takes the caller's window, extended to whole days.
func ResolveWindow(period models.PeriodType, now time.Time, custom *Window) (Window, error) {
	switch period {
	case models.PeriodMonthly:
		return MonthWindow(now), nil
	case models.PeriodWeekly:
		return WeekWindow(now), nil
	case models.PeriodCustom:
		if custom == nil {
			return Window{}, ErrCustomWindowRequired
		}
		if custom.Start.After(custom.End) {
			return Window{}, ErrInvalidWindow
		}
		return Window{Start: StartOfDay(custom.Start), End: EndOfDay(custom.End)}, nil
	default:
		return Window{}, ErrUnknownPeriod
	}
}

// NormalizePeriod anchors a goal's target period: the first of the month
// for monthly goals, Monday for weekly goals, the day itself otherwise.
func NormalizePeriod(period models.PeriodType, anchor time.Time) time.Time {
	switch period {
	case models.PeriodMonthly:
		return MonthWindow(anchor).Start
	case models.PeriodWeekly:
		return WeekWindow(anchor).Start
	default:
		return StartOfDay(anchor)
	}
}

// GoalProgress is the derived state of a goal for its window.
type GoalProgress struct {
	Exists             bool         `json:"exists"`
	Goal               *models.Goal `json:"goal,omitempty"`
	Window             *Window      `json:"window,omitempty"`
	CurrentValue       float64      `json:"currentValue"`
	TargetValue        float64      `json:"targetValue"`
	ProgressPercent    float64      `json:"progressPercent"`
	RawProgressPercent float64      `json:"rawProgressPercent"`
	Remaining          float64      `json:"remaining"`
	DaysRemaining      int          `json:"daysRemaining"`
	DailyTarget        float64      `json:"dailyTarget"`
	Achieved           bool         `json:"achieved"`
	AchievementAlerted bool         `json:"achievementAlerted"`
}

// ComputeGoalProgress sums the revenue of records inside the window and
// derives progress against the goal's target. Goal flags are untouched.
func ComputeGoalProgress(goal models.Goal, records []models.DailyRecord, w Window, now time.Time) GoalProgress {
	var current float64
	for _, r := range records {
		if w.Contains(r.Date) {
			current += r.Revenue
		}
	}

	raw := SafeDiv(current, goal.TargetValue) * 100
	remaining := math.Max(0, goal.TargetValue-current)

	daysRemaining := 0
	if left := w.End.Sub(now); left > 0 {
		daysRemaining = int(math.Ceil(float64(left) / float64(day)))
	}

	g := goal
	return GoalProgress{
		Exists:             true,
		Goal:               &g,
		Window:             &w,
		CurrentValue:       current,
		TargetValue:        goal.TargetValue,
		ProgressPercent:    math.Min(100, raw),
		RawProgressPercent: raw,
		Remaining:          remaining,
		DaysRemaining:      daysRemaining,
		DailyTarget:        SafeDiv(remaining, float64(daysRemaining)),
		Achieved:           goal.Achieved,
		AchievementAlerted: goal.AchievementAlerted,
	}
}

// SyncGoal folds a recomputed current value into the stored goal. It
// reports false, and leaves the goal untouched, when nothing changed.
// AchievedAt is stamped on the first transition to achieved and is never
// overwritten here.
func SyncGoal(goal models.Goal, current float64, now time.Time) (models.Goal, bool) {
	if goal.CurrentValue == current {
		return goal, false
	}
	goal.CurrentValue = current
	goal.Achieved = current >= goal.TargetValue
	if goal.Achieved && goal.AchievedAt == nil {
		at := now
		goal.AchievedAt = &at
	}
	if !goal.Achieved {
		goal.AchievementAlerted = false
	}
	goal.UpdatedAt = now
	return goal, true
}

// SetAchieved applies an explicit achieved flag: AchievedAt is set once
// on achievement and cleared on un-achievement.
func SetAchieved(goal models.Goal, achieved bool, now time.Time) models.Goal {
	goal.Achieved = achieved
	switch {
	case achieved && goal.AchievedAt == nil:
		at := now
		goal.AchievedAt = &at
	case !achieved:
		goal.AchievedAt = nil
		goal.AchievementAlerted = false
	}
	goal.UpdatedAt = now
	return goal
}

// LatestGoalInWindow picks the goal with the most recent target period
// inside w. Earlier goals sharing the window are ignored.
func LatestGoalInWindow(goals []models.Goal, w Window) (models.Goal, bool) {
	var latest models.Goal
	found := false
	for _, g := range goals {
		if !w.Contains(g.TargetPeriod) {
			continue
		}
		if !found || g.TargetPeriod.After(latest.TargetPeriod) {
			latest = g
			found = true
		}
	}
	return latest, found
}
