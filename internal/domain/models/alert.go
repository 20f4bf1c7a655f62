package models

import "time"

// AlertCategory groups alerts by the concern they address.
type AlertCategory string

const (
	CategoryPerformance AlertCategory = "performance"
	CategoryOpportunity AlertCategory = "opportunity"
	CategoryMaintenance AlertCategory = "maintenance"
	CategoryBenchmark   AlertCategory = "benchmark"
)

// Severity expresses how an alert should be presented.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeveritySuccess Severity = "success"
	SeverityError   Severity = "error"
)

// Alert is a persisted advisory message. Only Read changes after creation.
type Alert struct {
	ID        string        `bson:"_id" json:"id"`
	OwnerID   string        `bson:"owner_id" json:"ownerId"`
	Category  AlertCategory `bson:"category" json:"category"`
	Title     string        `bson:"title" json:"title"`
	Message   string        `bson:"message" json:"message"`
	Severity  Severity      `bson:"severity" json:"severity"`
	Read      bool          `bson:"read" json:"read"`
	ActionURL string        `bson:"action_url,omitempty" json:"actionUrl,omitempty"`
	CreatedAt time.Time     `bson:"created_at" json:"createdAt"`
}

// BenchmarkEntry is an anonymized period snapshot of one owner's
// performance. OwnerID is kept only to honour deletion requests and is
// never used by aggregation.
type BenchmarkEntry struct {
	ID              string     `bson:"_id" json:"id"`
	OwnerID         string     `bson:"owner_id" json:"-"`
	Locale          string     `bson:"locale,omitempty" json:"locale,omitempty"`
	VehicleType     string     `bson:"vehicle_type,omitempty" json:"vehicleType,omitempty"`
	Platform        string     `bson:"platform,omitempty" json:"platform,omitempty"`
	PeriodType      PeriodType `bson:"period_type" json:"periodType"`
	PeriodStart     time.Time  `bson:"period_start" json:"periodStart"`
	AvgDailyProfit  float64    `bson:"avg_daily_profit" json:"avgDailyProfit"`
	AvgProfitPerKm  float64    `bson:"avg_profit_per_km" json:"avgProfitPerKm"`
	DaysWorked      float64    `bson:"days_worked" json:"daysWorked"`
	EfficiencyRatio float64    `bson:"efficiency_ratio" json:"efficiencyRatio"`
	CreatedAt       time.Time  `bson:"created_at" json:"createdAt"`
}
