// Package benchmark publishes anonymized period snapshots of opted-in
// owners and ranks an owner against their peers.
package benchmark

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kmledger/kmledger/internal/analytics"
	"github.com/kmledger/kmledger/internal/domain/errs"
	"github.com/kmledger/kmledger/internal/domain/models"
	"github.com/kmledger/kmledger/internal/repository"
)

// Store is the persistence the benchmark service needs.
type Store interface {
	repository.BenchmarkStore
	GetOwner(ctx context.Context, id string) (models.Owner, error)
	FindRecords(ctx context.Context, filter models.RecordFilter) ([]models.DailyRecord, error)
}

// Query narrows the peer group. Empty fields match everything.
type Query struct {
	Locale      string
	VehicleType string
	Platform    string
	PeriodType  models.PeriodType
}

// Service publishes and compares benchmark entries.
type Service struct {
	store  Store
	logger *zap.Logger
	now    func() time.Time
	newID  func() string
}

// NewService wires a new benchmark service instance.
func NewService(store Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, logger: logger, now: time.Now, newID: uuid.NewString}
}

// Submit publishes the owner's metrics for the period containing anchor,
// replacing any earlier submission for that period. Owners who have not
// opted in are refused and nothing is written.
func (s *Service) Submit(ctx context.Context, ownerID string, period models.PeriodType, anchor time.Time) ([]models.BenchmarkEntry, error) {
	if period != models.PeriodMonthly && period != models.PeriodWeekly {
		return nil, errs.Validation("periodType", "must be monthly or weekly")
	}
	owner, err := s.store.GetOwner(ctx, ownerID)
	if err != nil {
		return nil, wrap("get owner", err)
	}
	if !owner.Preferences.ParticipateBenchmarking {
		return nil, errs.Permission("benchmark participation is disabled for this owner")
	}

	w, err := analytics.ResolveWindow(period, analytics.WallClockUTC(anchor), nil)
	if err != nil {
		return nil, err
	}
	records, err := s.store.FindRecords(ctx, models.RecordFilter{OwnerID: ownerID, From: &w.Start, To: &w.End})
	if err != nil {
		return nil, wrap("load records", err)
	}
	if len(records) == 0 {
		return nil, errs.Validation("period", "no records in the selected period")
	}

	subject := analytics.BenchmarkSubject{OwnerID: owner.ID, Locale: owner.Locale, VehicleType: owner.VehicleType}
	entries := analytics.BuildBenchmarkEntries(subject, period, w.Start, records, s.now().UTC())
	for i := range entries {
		entries[i].ID = s.newID()
	}
	if err := s.store.ReplaceBenchmarkEntries(ctx, ownerID, period, w.Start, entries); err != nil {
		return nil, wrap("store benchmark entries", err)
	}
	s.logger.Info("benchmark submitted",
		zap.String("owner_id", ownerID),
		zap.String("period_type", string(period)),
		zap.Time("period_start", w.Start),
		zap.Int("entries", len(entries)))
	return entries, nil
}

// Compare ranks the owner against peers of the most recent period that has
// peer data. It returns nil when no peer matches the query.
func (s *Service) Compare(ctx context.Context, ownerID string, q Query) (*analytics.BenchmarkComparison, error) {
	if q.PeriodType == "" {
		q.PeriodType = models.PeriodMonthly
	}
	if q.PeriodType != models.PeriodMonthly && q.PeriodType != models.PeriodWeekly {
		return nil, errs.Validation("periodType", "must be monthly or weekly")
	}

	filter := models.BenchmarkFilter{
		Locale:         q.Locale,
		VehicleType:    q.VehicleType,
		Platform:       q.Platform,
		PeriodType:     q.PeriodType,
		ExcludeOwnerID: ownerID,
	}
	latest, err := s.store.LatestBenchmarkPeriod(ctx, filter)
	if err != nil {
		return nil, wrap("latest benchmark period", err)
	}
	if latest == nil {
		return nil, nil
	}
	filter.PeriodStart = latest
	peers, err := s.store.FindBenchmarkEntries(ctx, filter)
	if err != nil {
		return nil, wrap("load benchmark entries", err)
	}

	w, err := analytics.ResolveWindow(q.PeriodType, *latest, nil)
	if err != nil {
		return nil, err
	}
	records, err := s.store.FindRecords(ctx, models.RecordFilter{
		OwnerID:  ownerID,
		From:     &w.Start,
		To:       &w.End,
		Platform: q.Platform,
	})
	if err != nil {
		return nil, wrap("load records", err)
	}

	return analytics.CompareWithPeers(peers, analytics.ComputeOwnerMetrics(records)), nil
}

// Withdraw deletes every entry the owner has published.
func (s *Service) Withdraw(ctx context.Context, ownerID string) (int64, error) {
	n, err := s.store.DeleteOwnerBenchmarkEntries(ctx, ownerID)
	if err != nil {
		return 0, wrap("delete benchmark entries", err)
	}
	return n, nil
}

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := errs.As(err); ok {
		return err
	}
	return fmt.Errorf("%s: %w", op, err)
}
