package analytics

import (
	"errors"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/kmledger/kmledger/internal/domain/models"
)

var (
	ErrEmptyTaxTable     = errors.New("tax table needs at least one bracket")
	ErrUnorderedBrackets = errors.New("tax brackets must have ascending limits")
	ErrOpenBracket       = errors.New("only the last tax bracket may be unbounded")
)

// Bracket is one slice of a progressive table. A nil UpTo marks the
// unbounded top bracket. Rate is a fraction (0.075 for 7.5%).
type Bracket struct {
	UpTo *float64 `yaml:"up_to" json:"upTo,omitempty"`
	Rate float64  `yaml:"rate" json:"rate"`
}

type bracket struct {
	upTo    decimal.Decimal
	bounded bool
	rate    decimal.Decimal
}

// TaxTable is an immutable progressive tax table.
type TaxTable struct {
	brackets []bracket
}

// NewTaxTable validates and freezes a bracket list.
func NewTaxTable(brackets []Bracket) (TaxTable, error) {
	if len(brackets) == 0 {
		return TaxTable{}, ErrEmptyTaxTable
	}
	out := make([]bracket, 0, len(brackets))
	prev := decimal.Zero
	for i, b := range brackets {
		if b.UpTo == nil {
			if i != len(brackets)-1 {
				return TaxTable{}, ErrOpenBracket
			}
			out = append(out, bracket{rate: decimal.NewFromFloat(b.Rate)})
			continue
		}
		limit := decimal.NewFromFloat(*b.UpTo)
		if !limit.GreaterThan(prev) {
			return TaxTable{}, ErrUnorderedBrackets
		}
		prev = limit
		out = append(out, bracket{upTo: limit, bounded: true, rate: decimal.NewFromFloat(b.Rate)})
	}
	return TaxTable{brackets: out}, nil
}

// DefaultTaxTable is the annual five-bracket income tax table.
func DefaultTaxTable() TaxTable {
	limit := func(v float64) *float64 { return &v }
	t, err := NewTaxTable([]Bracket{
		{UpTo: limit(22847.76), Rate: 0},
		{UpTo: limit(33919.80), Rate: 0.075},
		{UpTo: limit(45012.60), Rate: 0.15},
		{UpTo: limit(55976.16), Rate: 0.225},
		{Rate: 0.275},
	})
	if err != nil {
		panic(err)
	}
	return t
}

// ParseTaxTableYAML reads a table of the form:
//
//	brackets:
//	  - up_to: 22847.76
//	    rate: 0
//	  - rate: 0.275
func ParseTaxTableYAML(data []byte) (TaxTable, error) {
	var doc struct {
		Brackets []Bracket `yaml:"brackets"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return TaxTable{}, fmt.Errorf("decode tax table: %w", err)
	}
	return NewTaxTable(doc.Brackets)
}

// Brackets returns a copy of the table definition.
func (t TaxTable) Brackets() []Bracket {
	out := make([]Bracket, 0, len(t.brackets))
	for _, b := range t.brackets {
		item := Bracket{Rate: b.rate.InexactFloat64()}
		if b.bounded {
			v := b.upTo.InexactFloat64()
			item.UpTo = &v
		}
		out = append(out, item)
	}
	return out
}

// Scaled divides every limit by divisor. MonthlyTable uses it.
func (t TaxTable) Scaled(divisor int64) TaxTable {
	d := decimal.NewFromInt(divisor)
	out := make([]bracket, len(t.brackets))
	for i, b := range t.brackets {
		out[i] = b
		if b.bounded {
			out[i].upTo = b.upTo.Div(d)
		}
	}
	return TaxTable{brackets: out}
}

// MonthlyTable applies the annual limits divided by 12. This is a known
// simplification of the monthly withholding table and is kept as is.
func (t TaxTable) MonthlyTable() TaxTable {
	return t.Scaled(12)
}

// BracketDetail records a bracket's contribution to the tax.
type BracketDetail struct {
	Index   int      `json:"index"`
	From    float64  `json:"from"`
	UpTo    *float64 `json:"upTo,omitempty"`
	Rate    float64  `json:"rate"`
	Taxable float64  `json:"taxable"`
	Tax     float64  `json:"tax"`
}

// Apply computes the progressive tax on income and the brackets that
// received a positive slice of it. The result is not rounded.
func (t TaxTable) Apply(income decimal.Decimal) (decimal.Decimal, []BracketDetail) {
	tax := decimal.Zero
	var details []BracketDetail
	if !income.IsPositive() {
		return tax, details
	}

	lower := decimal.Zero
	for i, b := range t.brackets {
		upper := income
		if b.bounded && b.upTo.LessThan(income) {
			upper = b.upTo
		}
		slice := upper.Sub(lower)
		if slice.IsPositive() {
			part := slice.Mul(b.rate)
			tax = tax.Add(part)
			detail := BracketDetail{
				Index:   i,
				From:    lower.InexactFloat64(),
				Rate:    b.rate.InexactFloat64(),
				Taxable: slice.InexactFloat64(),
				Tax:     part.InexactFloat64(),
			}
			if b.bounded {
				v := b.upTo.InexactFloat64()
				detail.UpTo = &v
			}
			details = append(details, detail)
		}
		if !b.bounded || !b.upTo.LessThan(income) {
			break
		}
		lower = b.upTo
	}
	return tax, details
}

// EstimateTax is Apply on a float income.
func (t TaxTable) EstimateTax(income float64) float64 {
	tax, _ := t.Apply(decimal.NewFromFloat(income))
	return tax.InexactFloat64()
}

// Fiscal category names.
const (
	FiscalFuel         = "fuel"
	FiscalMaintenance  = "maintenance"
	FiscalFood         = "food"
	FiscalWash         = "wash"
	FiscalToll         = "toll"
	FiscalParking      = "parking"
	FiscalOther        = "other"
	FiscalUnclassified = "unclassified"
)

// FiscalCategory is one expense class with its deductible share.
type FiscalCategory struct {
	Name              string  `json:"name"`
	Amount            float64 `json:"amount"`
	DeductiblePercent float64 `json:"deductiblePercent"`
	DeductibleAmount  float64 `json:"deductibleAmount"`
	NeedsReview       bool    `json:"needsReview"`
}

// FiscalSummary holds the annual totals.
type FiscalSummary struct {
	TotalRevenue          float64 `json:"totalRevenue"`
	TotalExpenses         float64 `json:"totalExpenses"`
	DeductibleExpenses    float64 `json:"deductibleExpenses"`
	NonDeductibleExpenses float64 `json:"nonDeductibleExpenses"`
	NetProfit             float64 `json:"netProfit"`
	EstimatedTax          float64 `json:"estimatedTax"`
	EffectiveRate         float64 `json:"effectiveRate"`
	MonthlyEstimatedTax   float64 `json:"monthlyEstimatedTax"`
}

// MonthlyFiscal is one month of the monthly estimate.
type MonthlyFiscal struct {
	Month              string  `json:"month"`
	Revenue            float64 `json:"revenue"`
	DeductibleExpenses float64 `json:"deductibleExpenses"`
	NetProfit          float64 `json:"netProfit"`
	EstimatedTax       float64 `json:"estimatedTax"`
	Records            int     `json:"records"`
}

// FiscalCounts are the input sizes the report was built from.
type FiscalCounts struct {
	Records      int `json:"records"`
	FuelLogs     int `json:"fuelLogs"`
	Maintenances int `json:"maintenances"`
}

// FiscalOwner identifies the report's owner.
type FiscalOwner struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	TaxDocument string `json:"taxDocument,omitempty"`
}

// FiscalReport is the structured annual tax report.
type FiscalReport struct {
	Year       int              `json:"year"`
	Owner      FiscalOwner      `json:"owner"`
	Summary    FiscalSummary    `json:"summary"`
	Categories []FiscalCategory `json:"categories"`
	Brackets   []BracketDetail  `json:"brackets"`
	Monthly    []MonthlyFiscal  `json:"monthly"`
	Counts     FiscalCounts     `json:"counts"`
}

// FiscalInput is everything dated within the report year.
type FiscalInput struct {
	Year         int
	Owner        models.Owner
	Records      []models.DailyRecord
	FuelLogs     []models.FuelLog
	Maintenances []models.Maintenance
	Table        TaxTable
}

type fiscalRule struct {
	name        string
	deductible  int64
	needsReview bool
	amount      func(ExpenseBreakdown) float64
}

var fiscalRules = []fiscalRule{
	{FiscalFuel, 100, false, func(b ExpenseBreakdown) float64 { return b.Fuel }},
	{FiscalMaintenance, 100, false, func(b ExpenseBreakdown) float64 { return b.Maintenance }},
	{FiscalFood, 0, false, func(b ExpenseBreakdown) float64 { return b.Food }},
	{FiscalWash, 0, true, func(b ExpenseBreakdown) float64 { return b.Wash }},
	{FiscalToll, 0, true, func(b ExpenseBreakdown) float64 { return b.Toll }},
	{FiscalParking, 0, true, func(b ExpenseBreakdown) float64 { return b.Parking }},
	{FiscalOther, 0, true, func(b ExpenseBreakdown) float64 { return b.Other }},
	{FiscalUnclassified, 0, true, func(b ExpenseBreakdown) float64 { return b.Unclassified }},
}

// BuildFiscalReport classifies the year's expenses, applies the table to
// the annual net profit and produces the per-month estimate.
func BuildFiscalReport(in FiscalInput) FiscalReport {
	avgFuelPrice := AverageFuelPrice(in.FuelLogs)

	var expenses ExpenseBreakdown
	revenue := decimal.Zero
	for _, r := range in.Records {
		expenses.add(ResolveExpenses(r, avgFuelPrice).Breakdown)
		revenue = revenue.Add(decimal.NewFromFloat(r.Revenue))
	}
	for _, m := range in.Maintenances {
		expenses.Maintenance += m.Cost
	}

	total := decimal.Zero
	deductible := decimal.Zero
	categories := make([]FiscalCategory, 0, len(fiscalRules))
	for _, rule := range fiscalRules {
		amount := decimal.NewFromFloat(rule.amount(expenses))
		share := amount.Mul(decimal.NewFromInt(rule.deductible)).Div(decimal.NewFromInt(100))
		total = total.Add(amount)
		deductible = deductible.Add(share)
		categories = append(categories, FiscalCategory{
			Name:              rule.name,
			Amount:            amount.InexactFloat64(),
			DeductiblePercent: float64(rule.deductible),
			DeductibleAmount:  share.InexactFloat64(),
			NeedsReview:       rule.needsReview,
		})
	}

	net := revenue.Sub(deductible)
	tax, brackets := in.Table.Apply(net)

	effective := decimal.Zero
	if net.IsPositive() {
		effective = tax.Div(net).Mul(decimal.NewFromInt(100))
	}

	monthly := monthlyEstimates(in.Records, in.Table.MonthlyTable())
	monthlyTax := 0.0
	for _, m := range monthly {
		monthlyTax += m.EstimatedTax
	}

	return FiscalReport{
		Year: in.Year,
		Owner: FiscalOwner{
			ID:          in.Owner.ID,
			Name:        in.Owner.Name,
			TaxDocument: in.Owner.TaxDocument,
		},
		Summary: FiscalSummary{
			TotalRevenue:          revenue.InexactFloat64(),
			TotalExpenses:         total.InexactFloat64(),
			DeductibleExpenses:    deductible.InexactFloat64(),
			NonDeductibleExpenses: total.Sub(deductible).InexactFloat64(),
			NetProfit:             net.InexactFloat64(),
			EstimatedTax:          tax.InexactFloat64(),
			EffectiveRate:         effective.InexactFloat64(),
			MonthlyEstimatedTax:   monthlyTax,
		},
		Categories: categories,
		Brackets:   brackets,
		Monthly:    monthly,
		Counts: FiscalCounts{
			Records:      len(in.Records),
			FuelLogs:     len(in.FuelLogs),
			Maintenances: len(in.Maintenances),
		},
	}
}

// monthlyEstimates groups records by calendar month. Only the itemized
// fuel and maintenance of each month's own records are deducted.
func monthlyEstimates(records []models.DailyRecord, table TaxTable) []MonthlyFiscal {
	type acc struct {
		revenue    decimal.Decimal
		deductible decimal.Decimal
		records    int
	}
	byMonth := map[string]*acc{}
	for _, r := range records {
		key := r.Date.Format("2006-01")
		a, ok := byMonth[key]
		if !ok {
			a = &acc{revenue: decimal.Zero, deductible: decimal.Zero}
			byMonth[key] = a
		}
		a.revenue = a.revenue.Add(decimal.NewFromFloat(r.Revenue))
		a.deductible = a.deductible.Add(decimal.NewFromFloat(deref(r.FuelCost) + deref(r.MaintenanceCost)))
		a.records++
	}

	months := make([]string, 0, len(byMonth))
	for k := range byMonth {
		months = append(months, k)
	}
	sort.Strings(months)

	out := make([]MonthlyFiscal, 0, len(months))
	for _, k := range months {
		a := byMonth[k]
		net := a.revenue.Sub(a.deductible)
		tax, _ := table.Apply(net)
		out = append(out, MonthlyFiscal{
			Month:              k,
			Revenue:            a.revenue.InexactFloat64(),
			DeductibleExpenses: a.deductible.InexactFloat64(),
			NetProfit:          net.InexactFloat64(),
			EstimatedTax:       tax.InexactFloat64(),
			Records:            a.records,
		})
	}
	return out
}
