package export

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/kmledger/kmledger/internal/domain/errs"
	"github.com/kmledger/kmledger/internal/domain/models"
	"github.com/kmledger/kmledger/internal/service/records"
)

const (
	platformSeparator = ";"
	amountSeparator   = ":"
)

// Columns is the header of every tabular export, in order. It fills a
// sheet range of A to S.
var Columns = []string{
	"date", "platforms", "revenue", "platform_revenue", "expenses",
	"fuel_cost", "maintenance_cost", "food_cost", "wash_cost", "toll_cost", "parking_cost", "other_cost",
	"distance", "fuel_efficiency", "trips", "hours_worked", "start_time", "end_time", "notes",
}

// recordRow renders r in Columns order. Absent optional values are empty.
func recordRow(r models.DailyRecord) []interface{} {
	trips := ""
	if r.Trips != nil {
		trips = strconv.Itoa(*r.Trips)
	}
	return []interface{}{
		r.Date.Format(records.DateLayout),
		strings.Join(r.Platforms, platformSeparator),
		r.Revenue,
		formatBreakdown(r.PlatformRevenue),
		r.Expenses,
		optional(r.FuelCost),
		optional(r.MaintenanceCost),
		optional(r.FoodCost),
		optional(r.WashCost),
		optional(r.TollCost),
		optional(r.ParkingCost),
		optional(r.OtherCost),
		r.Distance,
		optional(r.FuelEfficiency),
		trips,
		optional(r.HoursWorked),
		r.StartTime,
		r.EndTime,
		r.Notes,
	}
}

// formatBreakdown renders a per-platform revenue map as "99:20;uber:80",
// sorted by platform.
func formatBreakdown(m map[string]float64) string {
	if len(m) == 0 {
		return ""
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+amountSeparator+strconv.FormatFloat(m[k], 'f', -1, 64))
	}
	return strings.Join(parts, platformSeparator)
}

func parseBreakdown(value string) (map[string]float64, error) {
	out := map[string]float64{}
	for _, part := range strings.Split(value, platformSeparator) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, amount, ok := strings.Cut(part, amountSeparator)
		name = strings.ToLower(strings.TrimSpace(name))
		if !ok || name == "" {
			return nil, fmt.Errorf("malformed entry %q", part)
		}
		n, err := parseFloat(strings.TrimSpace(amount))
		if err != nil {
			return nil, fmt.Errorf("malformed amount in %q", part)
		}
		out[name] = n
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}

func optional(v *float64) interface{} {
	if v == nil {
		return ""
	}
	return *v
}

func stringify(row []interface{}) []string {
	out := make([]string, len(row))
	for i, v := range row {
		switch x := v.(type) {
		case float64:
			out[i] = strconv.FormatFloat(x, 'f', -1, 64)
		default:
			out[i] = fmt.Sprint(x)
		}
	}
	return out
}

// headerIndex maps column names to their position. Unknown headers are
// ignored and a date column is mandatory.
func headerIndex(header []string) (map[string]int, error) {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(h))
		if name != "" {
			idx[name] = i
		}
	}
	if _, ok := idx["date"]; !ok {
		return nil, errs.Validation("header", "missing date column")
	}
	return idx, nil
}

// parseRow turns a header-mapped row into a record input.
func parseRow(idx map[string]int, row []interface{}) (records.RecordInput, error) {
	cell := func(name string) string {
		i, ok := idx[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(fmt.Sprint(row[i]))
	}

	var in records.RecordInput
	date, err := parseDate(cell("date"))
	if err != nil {
		return in, errs.Validation("date", err.Error())
	}
	in.Date = date.Format(records.DateLayout)

	if p := cell("platforms"); p != "" {
		for _, tag := range strings.Split(p, platformSeparator) {
			if tag = strings.ToLower(strings.TrimSpace(tag)); tag != "" {
				in.Platforms = append(in.Platforms, tag)
			}
		}
	}

	if v := cell("platform_revenue"); v != "" {
		breakdown, err := parseBreakdown(v)
		if err != nil {
			return in, errs.Validation("platform_revenue", "must look like uber:80;99:20")
		}
		in.PlatformRevenue = breakdown
	}

	required := []struct {
		name string
		dst  *float64
	}{
		{"revenue", &in.Revenue},
		{"expenses", &in.Expenses},
		{"distance", &in.Distance},
	}
	for _, f := range required {
		if v := cell(f.name); v != "" {
			n, err := parseFloat(v)
			if err != nil {
				return in, errs.Validation(f.name, "must be a number")
			}
			*f.dst = n
		}
	}

	optionals := []struct {
		name string
		dst  **float64
	}{
		{"fuel_cost", &in.FuelCost},
		{"maintenance_cost", &in.MaintenanceCost},
		{"food_cost", &in.FoodCost},
		{"wash_cost", &in.WashCost},
		{"toll_cost", &in.TollCost},
		{"parking_cost", &in.ParkingCost},
		{"other_cost", &in.OtherCost},
		{"fuel_efficiency", &in.FuelEfficiency},
		{"hours_worked", &in.HoursWorked},
	}
	for _, f := range optionals {
		v := cell(f.name)
		if v == "" {
			continue
		}
		n, err := parseFloat(v)
		if err != nil {
			return in, errs.Validation(f.name, "must be a number")
		}
		*f.dst = &n
	}

	if v := cell("trips"); v != "" {
		n, err := parseInt(v)
		if err != nil {
			return in, errs.Validation("trips", "must be an integer")
		}
		in.Trips = &n
	}
	in.StartTime = cell("start_time")
	in.EndTime = cell("end_time")
	in.Notes = cell("notes")
	return in, nil
}

func parseDate(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	if len(value) > 10 {
		value = value[:10]
	}
	if t, err := time.Parse(records.DateLayout, value); err == nil {
		return t, nil
	}
	return time.Parse("02/01/2006", value)
}

func parseInt(value string) (int, error) {
	if value == "" {
		return 0, fmt.Errorf("empty numeric value")
	}
	return strconv.Atoi(value)
}

// parseFloat accepts both 1234.5 and the pt-BR 1.234,5 notation.
func parseFloat(value string) (float64, error) {
	if value == "" {
		return 0, fmt.Errorf("empty numeric value")
	}
	if strings.Contains(value, ",") {
		value = strings.ReplaceAll(value, ".", "")
		value = strings.Replace(value, ",", ".", 1)
	}
	return strconv.ParseFloat(value, 64)
}
