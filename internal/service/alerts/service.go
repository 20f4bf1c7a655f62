// Package alerts turns rule advice into persisted, de-duplicated alerts and
// serves the on-screen insights.
package alerts

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

const trailingDays = 30

// Store is the persistence the alert service needs.
type Store interface {
	repository.AlertStore
	FindRecords(ctx context.Context, filter models.RecordFilter) ([]models.DailyRecord, error)
	LatestFuelLog(ctx context.Context, ownerID string) (*models.FuelLog, error)
	LatestMaintenance(ctx context.Context, ownerID string) (*models.Maintenance, error)
}

// GoalProgresser reports the progress of the goal active in a period and
// remembers which goals already produced their goal-reached alert.
type GoalProgresser interface {
	Progress(ctx context.Context, ownerID string, period models.PeriodType, now time.Time, custom *analytics.Window) (analytics.GoalProgress, error)
	MarkAchievementAlerted(ctx context.Context, ownerID, goalID string) error
}

// Service generates and manages alerts.
type Service struct {
	store  Store
	goals  GoalProgresser
	rules  analytics.RuleConfig
	logger *zap.Logger
	newID  func() string
}

// NewService wires a new alerts service instance.
func NewService(store Store, goals GoalProgresser, rules analytics.RuleConfig, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, goals: goals, rules: rules, logger: logger, newID: uuid.NewString}
}

// Generate evaluates the alert rules for the owner and stores every advice
// that has no unread twin. It returns the alerts actually created.
func (s *Service) Generate(ctx context.Context, ownerID string, now time.Time) ([]models.Alert, error) {
	in, err := s.snapshot(ctx, ownerID, now)
	if err != nil {
		return nil, err
	}

	created := []models.Alert{}
	for _, advice := range analytics.Evaluate(s.rules, analytics.VariantAlerts, in) {
		alert := models.Alert{
			ID:        s.newID(),
			OwnerID:   ownerID,
			Category:  advice.Category,
			Title:     advice.Title,
			Message:   advice.Message,
			Severity:  advice.Severity,
			ActionURL: advice.ActionURL,
			CreatedAt: now.UTC(),
		}
		dup, err := s.store.HasUnreadDuplicate(ctx, alert)
		if err != nil {
			return created, wrap("check duplicate alert", err)
		}
		if !dup {
			if err := s.store.CreateAlert(ctx, alert); err != nil {
				return created, wrap("create alert", err)
			}
			created = append(created, alert)
		}
		if advice.GoalID != "" && s.goals != nil {
			if err := s.goals.MarkAchievementAlerted(ctx, ownerID, advice.GoalID); err != nil {
				return created, wrap("mark goal alerted", err)
			}
		}
	}

	s.logger.Info("alerts generated", zap.String("owner_id", ownerID), zap.Int("created", len(created)))
	return created, nil
}

// Insights evaluates the same rules for display. Nothing is stored.
func (s *Service) Insights(ctx context.Context, ownerID string, now time.Time) ([]analytics.Advice, error) {
	in, err := s.snapshot(ctx, ownerID, now)
	if err != nil {
		return nil, err
	}
	return analytics.Insights(s.rules, in), nil
}

// List returns the owner's alerts, newest first.
func (s *Service) List(ctx context.Context, filter models.AlertFilter) ([]models.Alert, error) {
	if filter.Limit < 0 {
		return nil, errs.Validation("limit", "must not be negative")
	}
	out, err := s.store.FindAlerts(ctx, filter)
	if err != nil {
		return nil, wrap("list alerts", err)
	}
	return out, nil
}

// MarkRead flags one alert as read.
func (s *Service) MarkRead(ctx context.Context, ownerID, id string) error {
	return wrap("mark alert read", s.store.MarkAlertRead(ctx, ownerID, id))
}

// MarkAllRead flags every unread alert as read and returns how many changed.
func (s *Service) MarkAllRead(ctx context.Context, ownerID string) (int64, error) {
	n, err := s.store.MarkAllAlertsRead(ctx, ownerID)
	if err != nil {
		return 0, wrap("mark all alerts read", err)
	}
	return n, nil
}

// Delete removes an alert.
func (s *Service) Delete(ctx context.Context, ownerID, id string) error {
	return wrap("delete alert", s.store.DeleteAlert(ctx, ownerID, id))
}

func (s *Service) snapshot(ctx context.Context, ownerID string, now time.Time) (analytics.InsightInput, error) {
	today := analytics.WallClockUTC(now)
	from := analytics.StartOfDay(today).AddDate(0, 0, -(trailingDays - 1))
	to := analytics.EndOfDay(today)

	records, err := s.store.FindRecords(ctx, models.RecordFilter{OwnerID: ownerID, From: &from, To: &to})
	if err != nil {
		return analytics.InsightInput{}, wrap("load records", err)
	}
	in := analytics.InsightInput{Now: today, Records: records}

	if s.goals != nil {
		progress, err := s.goals.Progress(ctx, ownerID, models.PeriodMonthly, now, nil)
		if err != nil {
			return analytics.InsightInput{}, wrap("goal progress", err)
		}
		if progress.Exists {
			in.Goal = &progress
		}
	}

	if in.LatestMaintenance, err = s.store.LatestMaintenance(ctx, ownerID); err != nil {
		return analytics.InsightInput{}, wrap("latest maintenance", err)
	}
	if in.LatestFuelLog, err = s.store.LatestFuelLog(ctx, ownerID); err != nil {
		return analytics.InsightInput{}, wrap("latest fuel log", err)
	}
	return in, nil
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
