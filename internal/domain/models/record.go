package models

import "time"

// Platform identifies the ride-share or delivery app a record was earned on.
type Platform string

const (
	PlatformUber     Platform = "uber"
	Platform99       Platform = "99"
	PlatformInDrive  Platform = "indrive"
	PlatformIFood    Platform = "ifood"
	PlatformRappi    Platform = "rappi"
	PlatformLoggi    Platform = "loggi"
	PlatformLalamove Platform = "lalamove"
	PlatformOther    Platform = "other"
)

// KnownPlatforms lists every accepted platform tag.
var KnownPlatforms = []Platform{
	PlatformUber, Platform99, PlatformInDrive, PlatformIFood,
	PlatformRappi, PlatformLoggi, PlatformLalamove, PlatformOther,
}

// IsKnownPlatform reports whether tag is an accepted platform.
func IsKnownPlatform(tag string) bool {
	for _, p := range KnownPlatforms {
		if string(p) == tag {
			return true
		}
	}
	return false
}

// DailyRecord is one calendar day of revenue, costs and operation for an owner.
// At most one record exists per owner and date.
type DailyRecord struct {
	ID              string             `bson:"_id" json:"id"`
	OwnerID         string             `bson:"owner_id" json:"ownerId"`
	Date            time.Time          `bson:"date" json:"date"`
	Platforms       []string           `bson:"platforms" json:"platforms"`
	Revenue         float64            `bson:"revenue" json:"revenue"`
	PlatformRevenue map[string]float64 `bson:"platform_revenue,omitempty" json:"platformRevenue,omitempty"`
	Expenses        float64            `bson:"expenses" json:"expenses"`

	FuelCost        *float64 `bson:"fuel_cost,omitempty" json:"fuelCost,omitempty"`
	MaintenanceCost *float64 `bson:"maintenance_cost,omitempty" json:"maintenanceCost,omitempty"`
	FoodCost        *float64 `bson:"food_cost,omitempty" json:"foodCost,omitempty"`
	WashCost        *float64 `bson:"wash_cost,omitempty" json:"washCost,omitempty"`
	TollCost        *float64 `bson:"toll_cost,omitempty" json:"tollCost,omitempty"`
	ParkingCost     *float64 `bson:"parking_cost,omitempty" json:"parkingCost,omitempty"`
	OtherCost       *float64 `bson:"other_cost,omitempty" json:"otherCost,omitempty"`

	Distance       float64  `bson:"distance" json:"distance"`
	FuelEfficiency *float64 `bson:"fuel_efficiency,omitempty" json:"fuelEfficiency,omitempty"`
	Trips          *int     `bson:"trips,omitempty" json:"trips,omitempty"`
	HoursWorked    *float64 `bson:"hours_worked,omitempty" json:"hoursWorked,omitempty"`
	StartTime      string   `bson:"start_time,omitempty" json:"startTime,omitempty"`
	EndTime        string   `bson:"end_time,omitempty" json:"endTime,omitempty"`
	Notes          string   `bson:"notes,omitempty" json:"notes,omitempty"`

	Profit    float64   `bson:"profit" json:"profit"`
	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

// RecomputeProfit enforces profit = revenue - expenses.
func (r *DailyRecord) RecomputeProfit() {
	r.Profit = r.Revenue - r.Expenses
}

// TripCount returns the trip count or zero when unknown.
func (r DailyRecord) TripCount() int {
	if r.Trips == nil {
		return 0
	}
	return *r.Trips
}

// Hours returns the hours worked or zero when unknown.
func (r DailyRecord) Hours() float64 {
	if r.HoursWorked == nil {
		return 0
	}
	return *r.HoursWorked
}

// FuelLog captures a refuelling.
type FuelLog struct {
	ID        string    `bson:"_id" json:"id"`
	OwnerID   string    `bson:"owner_id" json:"ownerId"`
	Date      time.Time `bson:"date" json:"date"`
	Liters    float64   `bson:"liters" json:"liters"`
	UnitPrice float64   `bson:"unit_price" json:"unitPrice"`
	TotalCost float64   `bson:"total_cost" json:"totalCost"`
	Odometer  *float64  `bson:"odometer,omitempty" json:"odometer,omitempty"`
	Notes     string    `bson:"notes,omitempty" json:"notes,omitempty"`
	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
}

// Maintenance captures a vehicle service.
type Maintenance struct {
	ID              string     `bson:"_id" json:"id"`
	OwnerID         string     `bson:"owner_id" json:"ownerId"`
	Date            time.Time  `bson:"date" json:"date"`
	Type            string     `bson:"type" json:"type"`
	Description     string     `bson:"description" json:"description"`
	Cost            float64    `bson:"cost" json:"cost"`
	Odometer        *float64   `bson:"odometer,omitempty" json:"odometer,omitempty"`
	NextServiceDate *time.Time `bson:"next_service_date,omitempty" json:"nextServiceDate,omitempty"`
	NextOdometer    *float64   `bson:"next_odometer,omitempty" json:"nextOdometer,omitempty"`
	Notes           string     `bson:"notes,omitempty" json:"notes,omitempty"`
	CreatedAt       time.Time  `bson:"created_at" json:"createdAt"`
}
