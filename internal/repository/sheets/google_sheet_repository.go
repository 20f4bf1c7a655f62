package sheets

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"

	"github.com/kmledger/kmledger/internal/config"
)

var (
	errNoSpreadsheet = errors.New("spreadsheet id must not be empty")
	errNoRange       = errors.New("sheetRange must not be empty")
)

// Repository defines the operations supported by the Google Sheets adapter.
// Every owner syncs to their own spreadsheet, so the id is passed per call.
type Repository interface {
	AppendRows(ctx context.Context, spreadsheetID, sheetRange string, rows [][]interface{}) error
	ReadRange(ctx context.Context, spreadsheetID, sheetRange string) ([][]interface{}, error)
}

// GoogleSheetRepository implements the Repository interface using the official Google Sheets API.
type GoogleSheetRepository struct {
	service *sheetsapi.Service
	logger  *zap.Logger
}

// NewGoogleSheetRepository builds a Google Sheets backed repository instance.
func NewGoogleSheetRepository(ctx context.Context, cfg config.SheetsConfig, logger *zap.Logger) (*GoogleSheetRepository, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	service, err := sheetsapi.NewService(ctx, option.WithCredentialsFile(cfg.CredentialsPath), option.WithScopes(sheetsapi.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize sheets client: %w", err)
	}

	return &GoogleSheetRepository{
		service: service,
		logger:  logger,
	}, nil
}

// AppendRows appends the provided rows below the data in sheetRange.
func (r *GoogleSheetRepository) AppendRows(ctx context.Context, spreadsheetID, sheetRange string, rows [][]interface{}) error {
	if err := checkTarget(spreadsheetID, sheetRange); err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}

	payload := &sheetsapi.ValueRange{Values: rows}

	call := r.service.Spreadsheets.Values.Append(spreadsheetID, sheetRange, payload).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx)

	if _, err := call.Do(); err != nil {
		return fmt.Errorf("append rows into range %s: %w", sheetRange, err)
	}

	r.logger.Debug("rows appended to sheet", zap.String("range", sheetRange), zap.Int("rows", len(rows)))
	return nil
}

// ReadRange fetches a rectangular data range from the spreadsheet.
func (r *GoogleSheetRepository) ReadRange(ctx context.Context, spreadsheetID, sheetRange string) ([][]interface{}, error) {
	if err := checkTarget(spreadsheetID, sheetRange); err != nil {
		return nil, err
	}

	resp, err := r.service.Spreadsheets.Values.Get(spreadsheetID, sheetRange).
		ValueRenderOption("UNFORMATTED_VALUE").
		DateTimeRenderOption("FORMATTED_STRING").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("read range %s: %w", sheetRange, err)
	}

	return resp.Values, nil
}

func checkTarget(spreadsheetID, sheetRange string) error {
	if spreadsheetID == "" {
		return errNoSpreadsheet
	}
	if sheetRange == "" {
		return errNoRange
	}
	return nil
}
