// Package achievements unlocks badges from an owner's lifetime figures.
package achievements

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

// Store is the persistence the achievement service needs.
type Store interface {
	repository.AchievementStore
	FindRecords(ctx context.Context, filter models.RecordFilter) ([]models.DailyRecord, error)
	FindGoals(ctx context.Context, filter models.GoalFilter) ([]models.Goal, error)
}

// Service evaluates and lists achievements.
type Service struct {
	store  Store
	table  analytics.AchievementTable
	logger *zap.Logger
	now    func() time.Time
	newID  func() string
}

// NewService wires a new achievements service instance.
func NewService(store Store, table analytics.AchievementTable, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, table: table, logger: logger, now: time.Now, newID: uuid.NewString}
}

// Check unlocks every achievement the owner now qualifies for and returns
// the new ones. Already unlocked types are skipped.
func (s *Service) Check(ctx context.Context, ownerID string) ([]models.Achievement, error) {
	existing, err := s.store.FindAchievements(ctx, ownerID)
	if err != nil {
		return nil, wrap("load achievements", err)
	}
	unlocked := make(map[string]bool, len(existing))
	for _, a := range existing {
		unlocked[a.Type] = true
	}

	records, err := s.store.FindRecords(ctx, models.RecordFilter{OwnerID: ownerID})
	if err != nil {
		return nil, wrap("load records", err)
	}
	goals, err := s.store.FindGoals(ctx, models.GoalFilter{OwnerID: ownerID})
	if err != nil {
		return nil, wrap("load goals", err)
	}

	stats := analytics.ComputeAchievementStats(records, goals)
	out := []models.Achievement{}
	for _, rule := range analytics.EvaluateAchievements(s.table, stats, unlocked) {
		a := models.Achievement{
			ID:          s.newID(),
			OwnerID:     ownerID,
			Type:        rule.Type,
			Title:       rule.Title,
			Description: rule.Description,
			Icon:        rule.Icon,
			UnlockedAt:  s.now().UTC(),
		}
		if err := s.store.CreateAchievement(ctx, a); err != nil {
			// a concurrent check got there first
			if errs.Is(err, errs.KindConflict) {
				continue
			}
			return out, wrap("create achievement", err)
		}
		s.logger.Info("achievement unlocked", zap.String("owner_id", ownerID), zap.String("type", a.Type))
		out = append(out, a)
	}
	return out, nil
}

// OnRecordCreated adapts Check to the records service hook.
func (s *Service) OnRecordCreated(ctx context.Context, ownerID string) error {
	_, err := s.Check(ctx, ownerID)
	return err
}

// List returns the owner's unlocked achievements, oldest first.
func (s *Service) List(ctx context.Context, ownerID string) ([]models.Achievement, error) {
	out, err := s.store.FindAchievements(ctx, ownerID)
	if err != nil {
		return nil, wrap("list achievements", err)
	}
	return out, nil
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
