package reporting

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kmledger/kmledger/internal/analytics"
	"github.com/kmledger/kmledger/internal/domain/errs"
	"github.com/kmledger/kmledger/internal/domain/models"
	"github.com/kmledger/kmledger/internal/repository"
	"github.com/kmledger/kmledger/pkg/money"
)

const dateLayout = "02/01"

// Store is the persistence the reporting service reads from.
type Store interface {
	GetOwner(ctx context.Context, id string) (models.Owner, error)
	FindRecords(ctx context.Context, filter models.RecordFilter) ([]models.DailyRecord, error)
	FindFuelLogs(ctx context.Context, filter models.RecordFilter) ([]models.FuelLog, error)
	FindMaintenances(ctx context.Context, filter models.RecordFilter) ([]models.Maintenance, error)
	AverageFuelPrice(ctx context.Context, ownerID string) (float64, error)
}

var _ Store = (repository.Store)(nil)

// Service exposes period statistics, the fiscal report, platform
// comparison and the weekly WhatsApp summary.
type Service struct {
	store    Store
	taxTable analytics.TaxTable
	logger   *zap.Logger
}

// NewService wires a new reporting service instance.
func NewService(store Store, taxTable analytics.TaxTable, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, taxTable: taxTable, logger: logger}
}

// Stats aggregates the owner's records, fuel logs and maintenances in range.
func (s *Service) Stats(ctx context.Context, ownerID string, r models.DateRange) (analytics.PeriodStats, error) {
	filter := r.Filter(ownerID)
	if err := filter.Validate(); err != nil {
		return analytics.PeriodStats{}, errs.Validation("from", err.Error())
	}

	records, err := s.store.FindRecords(ctx, filter)
	if err != nil {
		return analytics.PeriodStats{}, fmt.Errorf("load records: %w", err)
	}
	fuelLogs, err := s.store.FindFuelLogs(ctx, filter)
	if err != nil {
		return analytics.PeriodStats{}, fmt.Errorf("load fuel logs: %w", err)
	}
	maints, err := s.store.FindMaintenances(ctx, filter)
	if err != nil {
		return analytics.PeriodStats{}, fmt.Errorf("load maintenances: %w", err)
	}
	avgPrice, err := s.store.AverageFuelPrice(ctx, ownerID)
	if err != nil {
		return analytics.PeriodStats{}, fmt.Errorf("average fuel price: %w", err)
	}

	stats := analytics.Aggregate(records, fuelLogs, maints, avgPrice)
	s.logger.Debug("stats aggregated",
		zap.String("owner_id", ownerID),
		zap.Int("records", stats.Records),
		zap.Any("strategies", stats.Strategies))
	return stats, nil
}

// Fiscal builds the annual tax report for year.
func (s *Service) Fiscal(ctx context.Context, ownerID string, year int) (analytics.FiscalReport, error) {
	if year < 2000 || year > 2100 {
		return analytics.FiscalReport{}, errs.Validation("year", "must be between 2000 and 2100")
	}
	owner, err := s.store.GetOwner(ctx, ownerID)
	if err != nil {
		return analytics.FiscalReport{}, err
	}

	w := analytics.YearWindow(year, time.UTC)
	filter := models.RecordFilter{OwnerID: ownerID, From: &w.Start, To: &w.End}

	records, err := s.store.FindRecords(ctx, filter)
	if err != nil {
		return analytics.FiscalReport{}, fmt.Errorf("load records: %w", err)
	}
	fuelLogs, err := s.store.FindFuelLogs(ctx, filter)
	if err != nil {
		return analytics.FiscalReport{}, fmt.Errorf("load fuel logs: %w", err)
	}
	maints, err := s.store.FindMaintenances(ctx, filter)
	if err != nil {
		return analytics.FiscalReport{}, fmt.Errorf("load maintenances: %w", err)
	}

	return analytics.BuildFiscalReport(analytics.FiscalInput{
		Year:         year,
		Owner:        owner,
		Records:      records,
		FuelLogs:     fuelLogs,
		Maintenances: maints,
		Table:        s.taxTable,
	}), nil
}

// Platforms compares platforms over the range.
func (s *Service) Platforms(ctx context.Context, ownerID string, r models.DateRange) ([]analytics.PlatformSummary, error) {
	records, err := s.records(ctx, ownerID, r)
	if err != nil {
		return nil, err
	}
	return analytics.ComparePlatforms(records), nil
}

// Evolution buckets per-platform totals over the range.
func (s *Service) Evolution(ctx context.Context, ownerID string, r models.DateRange, g analytics.Granularity) ([]analytics.EvolutionPoint, error) {
	switch g {
	case analytics.GranularityDaily, analytics.GranularityMonthly:
	default:
		return nil, errs.Validation("granularity", "must be daily or monthly")
	}
	records, err := s.records(ctx, ownerID, r)
	if err != nil {
		return nil, err
	}
	return analytics.PlatformEvolution(records, g), nil
}

// WeeklySummary renders the last seven days ending at now as a short message.
func (s *Service) WeeklySummary(ctx context.Context, ownerID string, now time.Time) (string, error) {
	end := analytics.StartOfDay(analytics.WallClockUTC(now))
	start := end.AddDate(0, 0, -6)
	stats, err := s.Stats(ctx, ownerID, models.DateRange{From: &start, To: &end})
	if err != nil {
		return "", err
	}

	period := fmt.Sprintf("%s a %s", start.Format(dateLayout), end.Format(dateLayout))
	if stats.Records == 0 {
		return fmt.Sprintf("Resumo semanal (%s): nenhum dia registrado.", period), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Resumo semanal (%s)\n", period)
	fmt.Fprintf(&b, "Dias trabalhados: %d\n", stats.Records)
	fmt.Fprintf(&b, "Faturamento: %s\n", money.Format(stats.TotalRevenue))
	fmt.Fprintf(&b, "Despesas: %s\n", money.Format(stats.TotalExpenses))
	fmt.Fprintf(&b, "Lucro: %s\n", money.Format(stats.Profit))
	fmt.Fprintf(&b, "Lucro por km: %s", money.Format(stats.ProfitPerKm))
	if stats.BestDay != nil {
		fmt.Fprintf(&b, "\nMelhor dia: %s (%s)", stats.BestDay.Date.Format(dateLayout), money.Format(stats.BestDay.Profit))
	}
	return b.String(), nil
}

func (s *Service) records(ctx context.Context, ownerID string, r models.DateRange) ([]models.DailyRecord, error) {
	filter := r.Filter(ownerID)
	if err := filter.Validate(); err != nil {
		return nil, errs.Validation("from", err.Error())
	}
	out, err := s.store.FindRecords(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("load records: %w", err)
	}
	return out, nil
}
