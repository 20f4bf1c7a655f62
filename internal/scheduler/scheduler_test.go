package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bsm/redislock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kmledger/kmledger/internal/config"
	"github.com/kmledger/kmledger/internal/domain/models"
)

type owners []models.Owner

func (o owners) ListOwners(context.Context) ([]models.Owner, error) { return o, nil }

type fakeAlerts struct {
	calls []string
	fail  string
}

func (f *fakeAlerts) Generate(_ context.Context, ownerID string, _ time.Time) ([]models.Alert, error) {
	f.calls = append(f.calls, ownerID)
	if ownerID == f.fail {
		return nil, errors.New("boom")
	}
	return []models.Alert{{OwnerID: ownerID, Severity: models.SeverityWarning}}, nil
}

type fakeNotifier struct {
	summaries []string
	digests   []string
}

func (f *fakeNotifier) SendWeeklySummary(_ context.Context, owner models.Owner, _ time.Time) (bool, error) {
	f.summaries = append(f.summaries, owner.ID)
	return true, nil
}

func (f *fakeNotifier) NotifyAlerts(_ context.Context, owner models.Owner, _ []models.Alert) (bool, error) {
	f.digests = append(f.digests, owner.ID)
	return true, nil
}

type busyLocker struct{ calls int }

func (b *busyLocker) Obtain(context.Context, string, time.Duration, *redislock.Options) (*redislock.Lock, error) {
	b.calls++
	return nil, redislock.ErrNotObtained
}

var cfg = config.SchedulerConfig{AlertsCron: "0 6 * * *", SummaryCron: "0 20 * * 0", Timezone: "UTC", LockTTL: time.Minute}

func TestRunAlertSweep_ContinuesPastFailures(t *testing.T) {
	alerts := &fakeAlerts{fail: "o1"}
	notifier := &fakeNotifier{}
	s := NewScheduler(cfg, owners{{ID: "o1"}, {ID: "o2"}}, alerts, notifier, nil, nil)

	err := s.RunAlertSweep(context.Background())
	assert.Error(t, err)
	assert.Equal(t, []string{"o1", "o2"}, alerts.calls)
	assert.Equal(t, []string{"o2"}, notifier.digests)
}

func TestRunWeeklySummary(t *testing.T) {
	notifier := &fakeNotifier{}
	s := NewScheduler(cfg, owners{{ID: "o1"}, {ID: "o2"}}, &fakeAlerts{}, notifier, nil, nil)

	require.NoError(t, s.RunWeeklySummary(context.Background()))
	assert.Equal(t, []string{"o1", "o2"}, notifier.summaries)

	quiet := NewScheduler(cfg, owners{{ID: "o1"}}, &fakeAlerts{}, nil, nil, nil)
	assert.NoError(t, quiet.RunWeeklySummary(context.Background()))
}

func TestJob_SkipsWhenLockHeld(t *testing.T) {
	alerts := &fakeAlerts{}
	locker := &busyLocker{}
	s := NewScheduler(cfg, owners{{ID: "o1"}}, alerts, nil, locker, nil)

	s.job("alert-sweep", s.RunAlertSweep)()
	assert.Equal(t, 1, locker.calls)
	assert.Empty(t, alerts.calls)
}

func TestStart_RejectsBadSpec(t *testing.T) {
	bad := cfg
	bad.AlertsCron = "not a cron"
	s := NewScheduler(bad, owners{}, &fakeAlerts{}, nil, nil, nil)
	assert.Error(t, s.Start())

	ok := NewScheduler(cfg, owners{}, &fakeAlerts{}, &fakeNotifier{}, nil, nil)
	require.NoError(t, ok.Start())
	ok.Stop()
}
