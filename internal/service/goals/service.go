// Package goals manages revenue targets and keeps their stored progress
// in sync with the owner's records.
package goals

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kmledger/kmledger/internal/analytics"
	"github.com/kmledger/kmledger/internal/domain/errs"
	"github.com/kmledger/kmledger/internal/domain/models"
	"github.com/kmledger/kmledger/internal/domain/validation"
	"github.com/kmledger/kmledger/internal/repository"
)

const dateLayout = "2006-01-02"

// Store is the persistence the goal service needs.
type Store interface {
	repository.GoalStore
	FindRecords(ctx context.Context, filter models.RecordFilter) ([]models.DailyRecord, error)
}

// CreateInput describes a new goal. TargetPeriod is any day of the
// target month or week, normalized on creation.
type CreateInput struct {
	Type         models.PeriodType `json:"type" validate:"required,oneof=monthly weekly custom"`
	TargetPeriod string            `json:"targetPeriod" validate:"required,datetime=2006-01-02"`
	TargetValue  float64           `json:"targetValue" validate:"gt=0"`
}

// UpdateInput changes the target value and/or the achieved flag.
type UpdateInput struct {
	TargetValue *float64 `json:"targetValue" validate:"omitempty,gt=0"`
	Achieved    *bool    `json:"achieved"`
}

// Service owns goal CRUD and progress.
type Service struct {
	store  Store
	logger *zap.Logger
	now    func() time.Time
	newID  func() string
}

// NewService wires a new goals service instance.
func NewService(store Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, logger: logger, now: time.Now, newID: uuid.NewString}
}

// Create stores a goal for a normalized period. A second goal for the same
// owner, type and period is a conflict.
func (s *Service) Create(ctx context.Context, ownerID string, in CreateInput) (models.Goal, error) {
	if err := validation.Struct(in); err != nil {
		return models.Goal{}, err
	}
	anchor, err := time.Parse(dateLayout, in.TargetPeriod)
	if err != nil {
		return models.Goal{}, errs.Validation("targetPeriod", "must be formatted YYYY-MM-DD")
	}

	now := s.now().UTC()
	goal := models.Goal{
		ID:           s.newID(),
		OwnerID:      ownerID,
		Type:         in.Type,
		TargetPeriod: analytics.NormalizePeriod(in.Type, anchor),
		TargetValue:  in.TargetValue,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.CreateGoal(ctx, goal); err != nil {
		return models.Goal{}, wrap("create goal", err)
	}
	s.logger.Info("goal created",
		zap.String("owner_id", ownerID),
		zap.String("goal_id", goal.ID),
		zap.String("type", string(goal.Type)),
		zap.Time("target_period", goal.TargetPeriod))
	return goal, nil
}

// Update applies a new target and/or an explicit achieved flag.
func (s *Service) Update(ctx context.Context, ownerID, id string, in UpdateInput) (models.Goal, error) {
	if err := validation.Struct(in); err != nil {
		return models.Goal{}, err
	}
	goal, err := s.store.GetGoal(ctx, ownerID, id)
	if err != nil {
		return models.Goal{}, wrap("get goal", err)
	}

	now := s.now().UTC()
	if in.TargetValue != nil {
		goal.TargetValue = *in.TargetValue
		goal.UpdatedAt = now
	}
	if in.Achieved != nil {
		goal = analytics.SetAchieved(goal, *in.Achieved, now)
	}
	if err := s.store.UpdateGoal(ctx, goal); err != nil {
		return models.Goal{}, wrap("update goal", err)
	}
	return goal, nil
}

// MarkAchievementAlerted records that the goal-reached alert for the goal
// has been stored, so later sweeps do not repeat it.
func (s *Service) MarkAchievementAlerted(ctx context.Context, ownerID, id string) error {
	goal, err := s.store.GetGoal(ctx, ownerID, id)
	if err != nil {
		return wrap("get goal", err)
	}
	if goal.AchievementAlerted {
		return nil
	}
	goal.AchievementAlerted = true
	goal.UpdatedAt = s.now().UTC()
	return wrap("mark goal alerted", s.store.UpdateGoal(ctx, goal))
}

// Get loads one goal.
func (s *Service) Get(ctx context.Context, ownerID, id string) (models.Goal, error) {
	goal, err := s.store.GetGoal(ctx, ownerID, id)
	return goal, wrap("get goal", err)
}

// List returns the owner's goals, optionally of one type.
func (s *Service) List(ctx context.Context, ownerID string, period models.PeriodType) ([]models.Goal, error) {
	if period != "" && !period.Valid() {
		return nil, errs.Validation("type", "must be one of monthly weekly custom")
	}
	out, err := s.store.FindGoals(ctx, models.GoalFilter{OwnerID: ownerID, Type: period})
	if err != nil {
		return nil, wrap("list goals", err)
	}
	return out, nil
}

// Delete removes a goal.
func (s *Service) Delete(ctx context.Context, ownerID, id string) error {
	return wrap("delete goal", s.store.DeleteGoal(ctx, ownerID, id))
}

// Progress computes the progress of the goal active in the period that
// contains now. When several goals fall inside the window the one with
// the latest target period is used. The stored goal is rewritten only
// when its current value changed.
func (s *Service) Progress(ctx context.Context, ownerID string, period models.PeriodType, now time.Time, custom *analytics.Window) (analytics.GoalProgress, error) {
	now = analytics.WallClockUTC(now)
	w, err := analytics.ResolveWindow(period, now, custom)
	if err != nil {
		return analytics.GoalProgress{}, windowError(err)
	}

	goals, err := s.store.FindGoals(ctx, models.GoalFilter{OwnerID: ownerID, Type: period, From: &w.Start, To: &w.End})
	if err != nil {
		return analytics.GoalProgress{}, wrap("find goals", err)
	}
	goal, ok := analytics.LatestGoalInWindow(goals, w)
	if !ok {
		return analytics.GoalProgress{Exists: false}, nil
	}

	records, err := s.store.FindRecords(ctx, models.RecordFilter{OwnerID: ownerID, From: &w.Start, To: &w.End})
	if err != nil {
		return analytics.GoalProgress{}, wrap("load records", err)
	}

	progress := analytics.ComputeGoalProgress(goal, records, w, now)
	if synced, changed := analytics.SyncGoal(goal, progress.CurrentValue, now); changed {
		if err := s.store.UpdateGoal(ctx, synced); err != nil {
			return analytics.GoalProgress{}, wrap("sync goal", err)
		}
		s.logger.Debug("goal synced",
			zap.String("goal_id", synced.ID),
			zap.Float64("current_value", synced.CurrentValue),
			zap.Bool("achieved", synced.Achieved))
		progress.Goal = &synced
		progress.Achieved = synced.Achieved
		progress.AchievementAlerted = synced.AchievementAlerted
	}
	return progress, nil
}

func windowError(err error) error {
	switch {
	case errors.Is(err, analytics.ErrUnknownPeriod):
		return errs.Validation("type", "must be one of monthly weekly custom")
	case errors.Is(err, analytics.ErrCustomWindowRequired), errors.Is(err, analytics.ErrInvalidWindow):
		return errs.Validation("window", err.Error())
	}
	return err
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
