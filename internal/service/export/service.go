// Package export moves daily records in and out of CSV, XLSX and Google
// Sheets, and renders the fiscal report as CSV.
package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/kmledger/kmledger/internal/analytics"
	"github.com/kmledger/kmledger/internal/domain/errs"
	"github.com/kmledger/kmledger/internal/domain/models"
	"github.com/kmledger/kmledger/internal/repository/sheets"
	"github.com/kmledger/kmledger/internal/service/records"
)

const sheetName = "Registros"

// Format names a tabular file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// RecordService is the part of the records service export relies on.
type RecordService interface {
	CreateRecord(ctx context.Context, ownerID string, in records.RecordInput) (models.DailyRecord, error)
	ListRecords(ctx context.Context, ownerID string, r models.DateRange, platform string) ([]models.DailyRecord, error)
}

// FiscalReporter builds the annual tax report.
type FiscalReporter interface {
	Fiscal(ctx context.Context, ownerID string, year int) (analytics.FiscalReport, error)
}

// OwnerGetter loads owner profiles.
type OwnerGetter interface {
	GetOwner(ctx context.Context, id string) (models.Owner, error)
}

// RowError describes a rejected import row. Row is 1-based and counts the
// header.
type RowError struct {
	Row     int    `json:"row"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// ImportResult summarizes an import run. Rows whose date already has a
// record are skipped.
type ImportResult struct {
	Created int        `json:"created"`
	Skipped int        `json:"skipped"`
	Errors  []RowError `json:"errors"`
}

// Service implements exports and imports.
type Service struct {
	records    RecordService
	fiscal     FiscalReporter
	owners     OwnerGetter
	sheets     sheets.Repository
	sheetRange string
	logger     *zap.Logger
}

// NewService wires a new export service instance. sheetsRepo may be nil
// when Google Sheets is not configured.
func NewService(recs RecordService, fiscal FiscalReporter, owners OwnerGetter, sheetsRepo sheets.Repository, sheetRange string, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		records:    recs,
		fiscal:     fiscal,
		owners:     owners,
		sheets:     sheetsRepo,
		sheetRange: sheetRange,
		logger:     logger,
	}
}

// ParseFormat validates a format name.
func ParseFormat(v string) (Format, error) {
	switch f := Format(strings.ToLower(v)); f {
	case FormatCSV, FormatXLSX:
		return f, nil
	}
	return "", errs.Validation("format", "must be csv or xlsx")
}

// Export writes the owner's records in range to w.
func (s *Service) Export(ctx context.Context, w io.Writer, ownerID string, r models.DateRange, format Format) error {
	recs, err := s.records.ListRecords(ctx, ownerID, r, "")
	if err != nil {
		return err
	}
	switch format {
	case FormatCSV:
		return writeCSV(w, recs)
	case FormatXLSX:
		return writeXLSX(w, recs)
	}
	return errs.Validation("format", "must be csv or xlsx")
}

func writeCSV(w io.Writer, recs []models.DailyRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, r := range recs {
		if err := cw.Write(stringify(recordRow(r))); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeXLSX(w io.Writer, recs []models.DailyRecord) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	header := make([]interface{}, len(Columns))
	for i, c := range Columns {
		header[i] = c
	}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return fmt.Errorf("write xlsx header: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err == nil {
		last, _ := excelize.CoordinatesToCellName(len(Columns), 1)
		_ = f.SetCellStyle(sheetName, "A1", last, bold)
	}

	for i, r := range recs {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		row := recordRow(r)
		if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
			return fmt.Errorf("write xlsx row %d: %w", i+2, err)
		}
	}
	if err := f.Write(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}

// Import reads a header-mapped CSV or XLSX file and creates one record per
// row.
func (s *Service) Import(ctx context.Context, ownerID string, src io.Reader, format Format) (ImportResult, error) {
	var (
		rows [][]interface{}
		err  error
	)
	switch format {
	case FormatCSV:
		rows, err = readCSV(src)
	case FormatXLSX:
		rows, err = readXLSX(src)
	default:
		return ImportResult{}, errs.Validation("format", "must be csv or xlsx")
	}
	if err != nil {
		return ImportResult{}, err
	}
	return s.importRows(ctx, ownerID, rows)
}

func readCSV(src io.Reader) ([][]interface{}, error) {
	cr := csv.NewReader(src)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	all, err := cr.ReadAll()
	if err != nil {
		return nil, errs.Validation("file", "invalid csv: "+err.Error())
	}
	return widen(all), nil
}

func readXLSX(src io.Reader) ([][]interface{}, error) {
	f, err := excelize.OpenReader(src)
	if err != nil {
		return nil, errs.Validation("file", "invalid xlsx: "+err.Error())
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if idx, err := f.GetSheetIndex(sheetName); err == nil && idx >= 0 {
		sheet = sheetName
	}
	all, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read xlsx rows: %w", err)
	}
	return widen(all), nil
}

func widen(in [][]string) [][]interface{} {
	out := make([][]interface{}, len(in))
	for i, row := range in {
		out[i] = make([]interface{}, len(row))
		for j, v := range row {
			out[i][j] = v
		}
	}
	return out
}

func (s *Service) importRows(ctx context.Context, ownerID string, rows [][]interface{}) (ImportResult, error) {
	result := ImportResult{Errors: []RowError{}}
	if len(rows) == 0 {
		return result, errs.Validation("file", "is empty")
	}
	header := make([]string, len(rows[0]))
	for i, v := range rows[0] {
		header[i] = fmt.Sprint(v)
	}
	idx, err := headerIndex(header)
	if err != nil {
		return result, err
	}

	for i, row := range rows[1:] {
		line := i + 2
		if blank(row) {
			continue
		}
		in, err := parseRow(idx, row)
		if err == nil {
			_, err = s.records.CreateRecord(ctx, ownerID, in)
		}
		switch {
		case err == nil:
			result.Created++
		case errs.Is(err, errs.KindConflict):
			result.Skipped++
		case errs.Is(err, errs.KindValidation):
			e, _ := errs.As(err)
			result.Errors = append(result.Errors, RowError{Row: line, Field: e.Field, Message: e.Message})
		default:
			return result, fmt.Errorf("import row %d: %w", line, err)
		}
	}

	s.logger.Info("records imported",
		zap.String("owner_id", ownerID),
		zap.Int("created", result.Created),
		zap.Int("skipped", result.Skipped),
		zap.Int("errors", len(result.Errors)))
	return result, nil
}

func blank(row []interface{}) bool {
	for _, v := range row {
		if strings.TrimSpace(fmt.Sprint(v)) != "" {
			return false
		}
	}
	return true
}

// FiscalCSV renders the annual report as a sectioned CSV.
func (s *Service) FiscalCSV(ctx context.Context, w io.Writer, ownerID string, year int) error {
	report, err := s.fiscal.Fiscal(ctx, ownerID, year)
	if err != nil {
		return err
	}

	money := func(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) }
	cw := csv.NewWriter(w)
	lines := [][]string{
		{"relatorio_fiscal", strconv.Itoa(report.Year)},
		{"nome", report.Owner.Name},
		{"documento", report.Owner.TaxDocument},
		{},
		{"resumo", "valor"},
		{"receita_total", money(report.Summary.TotalRevenue)},
		{"despesas_totais", money(report.Summary.TotalExpenses)},
		{"despesas_dedutiveis", money(report.Summary.DeductibleExpenses)},
		{"despesas_nao_dedutiveis", money(report.Summary.NonDeductibleExpenses)},
		{"lucro_liquido", money(report.Summary.NetProfit)},
		{"imposto_estimado", money(report.Summary.EstimatedTax)},
		{"aliquota_efetiva", money(report.Summary.EffectiveRate)},
		{},
		{"categoria", "valor", "percentual_dedutivel", "valor_dedutivel", "revisar"},
	}
	for _, c := range report.Categories {
		lines = append(lines, []string{c.Name, money(c.Amount), money(c.DeductiblePercent), money(c.DeductibleAmount), strconv.FormatBool(c.NeedsReview)})
	}
	lines = append(lines, []string{}, []string{"mes", "receita", "despesas_dedutiveis", "lucro_liquido", "imposto_estimado", "registros"})
	for _, m := range report.Monthly {
		lines = append(lines, []string{m.Month, money(m.Revenue), money(m.DeductibleExpenses), money(m.NetProfit), money(m.EstimatedTax), strconv.Itoa(m.Records)})
	}

	if err := cw.WriteAll(lines); err != nil {
		return fmt.Errorf("write fiscal csv: %w", err)
	}
	return nil
}

// PushToSheet appends the owner's records in range to their spreadsheet
// and returns how many rows were written.
func (s *Service) PushToSheet(ctx context.Context, ownerID string, r models.DateRange) (int, error) {
	spreadsheetID, err := s.spreadsheet(ctx, ownerID)
	if err != nil {
		return 0, err
	}
	recs, err := s.records.ListRecords(ctx, ownerID, r, "")
	if err != nil {
		return 0, err
	}
	rows := make([][]interface{}, 0, len(recs))
	for _, rec := range recs {
		rows = append(rows, recordRow(rec))
	}
	if err := s.sheets.AppendRows(ctx, spreadsheetID, s.sheetRange, rows); err != nil {
		return 0, fmt.Errorf("push to sheet: %w", err)
	}
	s.logger.Info("records pushed to sheet", zap.String("owner_id", ownerID), zap.Int("rows", len(rows)))
	return len(rows), nil
}

// ImportFromSheet reads the configured range of the owner's spreadsheet.
// The first row must be the header.
func (s *Service) ImportFromSheet(ctx context.Context, ownerID string) (ImportResult, error) {
	spreadsheetID, err := s.spreadsheet(ctx, ownerID)
	if err != nil {
		return ImportResult{}, err
	}
	rows, err := s.sheets.ReadRange(ctx, spreadsheetID, s.sheetRange)
	if err != nil {
		return ImportResult{}, fmt.Errorf("read sheet: %w", err)
	}
	return s.importRows(ctx, ownerID, rows)
}

func (s *Service) spreadsheet(ctx context.Context, ownerID string) (string, error) {
	if s.sheets == nil {
		return "", errs.Permission("google sheets integration is disabled")
	}
	owner, err := s.owners.GetOwner(ctx, ownerID)
	if err != nil {
		return "", err
	}
	if owner.Preferences.SpreadsheetID == "" {
		return "", errs.Validation("spreadsheetId", "is not set in the owner preferences")
	}
	return owner.Preferences.SpreadsheetID, nil
}
