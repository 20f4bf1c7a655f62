package records

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/kmledger/kmledger/internal/domain/errs"
	"github.com/kmledger/kmledger/internal/domain/models"
	"github.com/kmledger/kmledger/internal/domain/validation"
)

// DateLayout is the wire format of calendar dates.
const DateLayout = "2006-01-02"

// RecordInput is the writable part of a daily record. Profit is always
// derived and cannot be supplied.
type RecordInput struct {
	Date            string             `json:"date" validate:"required,datetime=2006-01-02"`
	Platforms       []string           `json:"platforms" validate:"omitempty,unique,dive,platform"`
	Revenue         float64            `json:"revenue" validate:"gte=0"`
	PlatformRevenue map[string]float64 `json:"platformRevenue" validate:"omitempty,dive,keys,platform,endkeys,gte=0"`
	Expenses        float64            `json:"expenses" validate:"gte=0"`
	FuelCost        *float64           `json:"fuelCost" validate:"omitempty,gte=0"`
	MaintenanceCost *float64           `json:"maintenanceCost" validate:"omitempty,gte=0"`
	FoodCost        *float64           `json:"foodCost" validate:"omitempty,gte=0"`
	WashCost        *float64           `json:"washCost" validate:"omitempty,gte=0"`
	TollCost        *float64           `json:"tollCost" validate:"omitempty,gte=0"`
	ParkingCost     *float64           `json:"parkingCost" validate:"omitempty,gte=0"`
	OtherCost       *float64           `json:"otherCost" validate:"omitempty,gte=0"`
	Distance        float64            `json:"distance" validate:"gte=0"`
	FuelEfficiency  *float64           `json:"fuelEfficiency" validate:"omitempty,gt=0"`
	Trips           *int               `json:"trips" validate:"omitempty,gte=0"`
	HoursWorked     *float64           `json:"hoursWorked" validate:"omitempty,gte=0,lte=24"`
	StartTime       string             `json:"startTime" validate:"clock"`
	EndTime         string             `json:"endTime" validate:"clock"`
	Notes           string             `json:"notes" validate:"max=500"`
}

// Validate checks tags and that the revenue breakdown only names tagged platforms.
func (in RecordInput) Validate() error {
	if err := validation.Struct(in); err != nil {
		return err
	}
	for p := range in.PlatformRevenue {
		if !contains(in.Platforms, p) {
			return errs.Validation("platformRevenue", "platform "+p+" is not listed in platforms")
		}
	}
	return nil
}

// apply copies the input onto r and recomputes profit.
func (in RecordInput) apply(r *models.DailyRecord) error {
	date, err := ParseDate(in.Date)
	if err != nil {
		return errs.Validation("date", "must be formatted YYYY-MM-DD")
	}
	r.Date = date
	r.Platforms = in.Platforms
	r.Revenue = in.Revenue
	r.PlatformRevenue = in.PlatformRevenue
	r.Expenses = in.Expenses
	r.FuelCost = in.FuelCost
	r.MaintenanceCost = in.MaintenanceCost
	r.FoodCost = in.FoodCost
	r.WashCost = in.WashCost
	r.TollCost = in.TollCost
	r.ParkingCost = in.ParkingCost
	r.OtherCost = in.OtherCost
	r.Distance = in.Distance
	r.FuelEfficiency = in.FuelEfficiency
	r.Trips = in.Trips
	r.HoursWorked = in.HoursWorked
	r.StartTime = in.StartTime
	r.EndTime = in.EndTime
	r.Notes = in.Notes
	r.RecomputeProfit()
	return nil
}

// FuelLogInput is the writable part of a fuel log.
type FuelLogInput struct {
	Date      string   `json:"date" validate:"required,datetime=2006-01-02"`
	Liters    float64  `json:"liters" validate:"gt=0"`
	UnitPrice float64  `json:"unitPrice" validate:"gt=0"`
	Odometer  *float64 `json:"odometer" validate:"omitempty,gte=0"`
	Notes     string   `json:"notes" validate:"max=500"`
}

// TotalCost is liters times unit price rounded to cents.
func (in FuelLogInput) TotalCost() float64 {
	return decimal.NewFromFloat(in.Liters).
		Mul(decimal.NewFromFloat(in.UnitPrice)).
		Round(2).
		InexactFloat64()
}

// MaintenanceInput is the writable part of a maintenance log.
type MaintenanceInput struct {
	Date            string   `json:"date" validate:"required,datetime=2006-01-02"`
	Type            string   `json:"type" validate:"required,max=64"`
	Description     string   `json:"description" validate:"max=500"`
	Cost            float64  `json:"cost" validate:"gte=0"`
	Odometer        *float64 `json:"odometer" validate:"omitempty,gte=0"`
	NextServiceDate string   `json:"nextServiceDate" validate:"omitempty,datetime=2006-01-02"`
	NextOdometer    *float64 `json:"nextOdometer" validate:"omitempty,gte=0"`
	Notes           string   `json:"notes" validate:"max=500"`
}

// ParseDate reads a YYYY-MM-DD date as midnight UTC.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, time.UTC)
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
