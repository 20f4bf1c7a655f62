package models

import (
	"errors"
	"time"
)

var (
	errMissingOwner  = errors.New("owner id is required")
	errInvertedRange = errors.New("from must not be after to")
)

// RecordFilter selects records, fuel logs or maintenances of one owner
// within an optional date range. Bounds are inclusive.
type RecordFilter struct {
	OwnerID  string
	From     *time.Time
	To       *time.Time
	Platform string
}

// Validate rejects filters the store must never receive.
func (f RecordFilter) Validate() error {
	if f.OwnerID == "" {
		return errMissingOwner
	}
	if f.From != nil && f.To != nil && f.From.After(*f.To) {
		return errInvertedRange
	}
	return nil
}

// Contains reports whether t falls inside the filter's date range.
func (f RecordFilter) Contains(t time.Time) bool {
	if f.From != nil && t.Before(*f.From) {
		return false
	}
	if f.To != nil && t.After(*f.To) {
		return false
	}
	return true
}

// AlertFilter selects alerts of one owner.
type AlertFilter struct {
	OwnerID  string
	Category AlertCategory
	Unread   *bool
	Limit    int
}

// Validate rejects filters without an owner.
func (f AlertFilter) Validate() error {
	if f.OwnerID == "" {
		return errMissingOwner
	}
	return nil
}

// BenchmarkFilter selects anonymized benchmark entries. ExcludeOwnerID
// removes the requester's own entries.
type BenchmarkFilter struct {
	Locale         string
	VehicleType    string
	Platform       string
	PeriodType     PeriodType
	PeriodStart    *time.Time
	ExcludeOwnerID string
}

// Matches reports whether entry satisfies the filter.
func (f BenchmarkFilter) Matches(entry BenchmarkEntry) bool {
	switch {
	case f.Locale != "" && entry.Locale != f.Locale:
		return false
	case f.VehicleType != "" && entry.VehicleType != f.VehicleType:
		return false
	case f.Platform != "" && entry.Platform != f.Platform:
		return false
	case f.PeriodType != "" && entry.PeriodType != f.PeriodType:
		return false
	case f.PeriodStart != nil && !entry.PeriodStart.Equal(*f.PeriodStart):
		return false
	case f.ExcludeOwnerID != "" && entry.OwnerID == f.ExcludeOwnerID:
		return false
	}
	return true
}

// GoalFilter selects goals of one owner. From and To bound the target
// period inclusively.
type GoalFilter struct {
	OwnerID string
	Type    PeriodType
	From    *time.Time
	To      *time.Time
}

// Validate rejects filters without an owner or with an inverted range.
func (f GoalFilter) Validate() error {
	if f.OwnerID == "" {
		return errMissingOwner
	}
	if f.From != nil && f.To != nil && f.From.After(*f.To) {
		return errInvertedRange
	}
	return nil
}

// DateRange is an optional inclusive range of calendar days. To covers
// its whole day.
type DateRange struct {
	From *time.Time
	To   *time.Time
}

// Filter turns the range into a record filter for ownerID.
func (r DateRange) Filter(ownerID string) RecordFilter {
	f := RecordFilter{OwnerID: ownerID, From: r.From}
	if r.To != nil {
		end := r.To.Add(24*time.Hour - time.Nanosecond)
		f.To = &end
	}
	return f
}
