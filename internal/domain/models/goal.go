package models

import "time"

// PeriodType enumerates the goal and benchmark period granularities.
type PeriodType string

const (
	PeriodMonthly PeriodType = "monthly"
	PeriodWeekly  PeriodType = "weekly"
	PeriodCustom  PeriodType = "custom"
)

// Valid reports whether p is a supported period type.
func (p PeriodType) Valid() bool {
	switch p {
	case PeriodMonthly, PeriodWeekly, PeriodCustom:
		return true
	}
	return false
}

// Goal is a revenue target for a period. At most one goal exists per
// owner, type and target period.
type Goal struct {
	ID           string     `bson:"_id" json:"id"`
	OwnerID      string     `bson:"owner_id" json:"ownerId"`
	Type         PeriodType `bson:"type" json:"type"`
	TargetPeriod time.Time  `bson:"target_period" json:"targetPeriod"`
	TargetValue  float64    `bson:"target_value" json:"targetValue"`
	CurrentValue float64    `bson:"current_value" json:"currentValue"`
	Achieved     bool       `bson:"achieved" json:"achieved"`
	AchievedAt   *time.Time `bson:"achieved_at,omitempty" json:"achievedAt,omitempty"`
	// AchievementAlerted is set once the goal-reached alert has been
	// stored and cleared when the goal falls back below target.
	AchievementAlerted bool      `bson:"achievement_alerted" json:"achievementAlerted"`
	CreatedAt          time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt          time.Time `bson:"updated_at" json:"updatedAt"`
}

// Achievement is an unlocked badge. Unique per owner and type.
type Achievement struct {
	ID          string            `bson:"_id" json:"id"`
	OwnerID     string            `bson:"owner_id" json:"ownerId"`
	Type        string            `bson:"type" json:"type"`
	Title       string            `bson:"title" json:"title"`
	Description string            `bson:"description" json:"description"`
	Icon        string            `bson:"icon" json:"icon"`
	UnlockedAt  time.Time         `bson:"unlocked_at" json:"unlockedAt"`
	Metadata    map[string]string `bson:"metadata,omitempty" json:"metadata,omitempty"`
}
