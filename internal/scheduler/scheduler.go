// Package scheduler runs the background jobs: the daily alert sweep and
// the weekly WhatsApp summary.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/kmledger/kmledger/internal/config"
	"github.com/kmledger/kmledger/internal/domain/models"
)

const jobTimeout = 10 * time.Minute

// OwnerLister enumerates every owner.
type OwnerLister interface {
	ListOwners(ctx context.Context) ([]models.Owner, error)
}

// AlertGenerator creates the de-duplicated alerts of one owner.
type AlertGenerator interface {
	Generate(ctx context.Context, ownerID string, now time.Time) ([]models.Alert, error)
}

// Notifier pushes messages to owners.
type Notifier interface {
	SendWeeklySummary(ctx context.Context, owner models.Owner, now time.Time) (bool, error)
	NotifyAlerts(ctx context.Context, owner models.Owner, alerts []models.Alert) (bool, error)
}

// Locker guards a job across replicas. *redislock.Client satisfies it.
type Locker interface {
	Obtain(ctx context.Context, key string, ttl time.Duration, opt *redislock.Options) (*redislock.Lock, error)
}

// Scheduler manages scheduled tasks.
type Scheduler struct {
	cron     *cron.Cron
	cfg      config.SchedulerConfig
	owners   OwnerLister
	alerts   AlertGenerator
	notifier Notifier
	locker   Locker
	now      func() time.Time
	logger   *zap.Logger
}

// NewScheduler creates a new scheduler instance. notifier and locker may
// be nil: the summary job is then not registered and jobs run unguarded.
func NewScheduler(cfg config.SchedulerConfig, owners OwnerLister, alerts AlertGenerator, notifier Notifier, locker Locker, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		cron:     cron.New(cron.WithLocation(cfg.Location())),
		cfg:      cfg,
		owners:   owners,
		alerts:   alerts,
		notifier: notifier,
		locker:   locker,
		now:      time.Now,
		logger:   logger,
	}
}

// Start registers the jobs and starts the cron loop.
func (s *Scheduler) Start() error {
	s.logger.Info("starting scheduler",
		zap.String("alerts_cron", s.cfg.AlertsCron),
		zap.String("summary_cron", s.cfg.SummaryCron),
		zap.String("timezone", s.cfg.Timezone))

	if _, err := s.cron.AddFunc(s.cfg.AlertsCron, s.job("alert-sweep", s.RunAlertSweep)); err != nil {
		return fmt.Errorf("schedule alert sweep: %w", err)
	}
	if s.notifier != nil {
		if _, err := s.cron.AddFunc(s.cfg.SummaryCron, s.job("weekly-summary", s.RunWeeklySummary)); err != nil {
			return fmt.Errorf("schedule weekly summary: %w", err)
		}
	}

	s.cron.Start()
	return nil
}

// Stop stops the scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	<-s.cron.Stop().Done()
}

func (s *Scheduler) job(name string, run func(context.Context) error) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()

		release, ok := s.acquire(ctx, name)
		if !ok {
			return
		}
		defer release()

		started := time.Now()
		if err := run(ctx); err != nil {
			s.logger.Error("scheduled job failed", zap.String("job", name), zap.Error(err))
			return
		}
		s.logger.Info("scheduled job finished", zap.String("job", name), zap.Duration("duration", time.Since(started)))
	}
}

func (s *Scheduler) acquire(ctx context.Context, name string) (func(), bool) {
	if s.locker == nil {
		return func() {}, true
	}
	lock, err := s.locker.Obtain(ctx, "kmledger:job:"+name, s.cfg.LockTTL, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		s.logger.Info("job already running elsewhere", zap.String("job", name))
		return nil, false
	}
	if err != nil {
		s.logger.Error("failed to obtain job lock", zap.String("job", name), zap.Error(err))
		return nil, false
	}
	return func() {
		if err := lock.Release(context.Background()); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			s.logger.Warn("failed to release job lock", zap.String("job", name), zap.Error(err))
		}
	}, true
}

// RunAlertSweep generates alerts for every owner and notifies those with
// new ones. A failing owner does not stop the sweep.
func (s *Scheduler) RunAlertSweep(ctx context.Context) error {
	owners, err := s.owners.ListOwners(ctx)
	if err != nil {
		return fmt.Errorf("list owners: %w", err)
	}
	now := s.now().In(s.cfg.Location())

	var failed int
	for _, owner := range owners {
		created, err := s.alerts.Generate(ctx, owner.ID, now)
		if err != nil {
			failed++
			s.logger.Error("alert generation failed", zap.String("owner_id", owner.ID), zap.Error(err))
			continue
		}
		if len(created) == 0 || s.notifier == nil {
			continue
		}
		if _, err := s.notifier.NotifyAlerts(ctx, owner, created); err != nil {
			s.logger.Warn("alert notification failed", zap.String("owner_id", owner.ID), zap.Error(err))
		}
	}
	if failed > 0 {
		return fmt.Errorf("alert generation failed for %d of %d owners", failed, len(owners))
	}
	return nil
}

// RunWeeklySummary sends the weekly summary to every reachable owner.
func (s *Scheduler) RunWeeklySummary(ctx context.Context) error {
	if s.notifier == nil {
		return nil
	}
	owners, err := s.owners.ListOwners(ctx)
	if err != nil {
		return fmt.Errorf("list owners: %w", err)
	}
	now := s.now().In(s.cfg.Location())

	var sent, failed int
	for _, owner := range owners {
		ok, err := s.notifier.SendWeeklySummary(ctx, owner, now)
		switch {
		case err != nil:
			failed++
			s.logger.Error("weekly summary failed", zap.String("owner_id", owner.ID), zap.Error(err))
		case ok:
			sent++
		}
	}
	s.logger.Info("weekly summaries sent", zap.Int("sent", sent), zap.Int("failed", failed))
	if failed > 0 {
		return fmt.Errorf("weekly summary failed for %d of %d owners", failed, len(owners))
	}
	return nil
}
