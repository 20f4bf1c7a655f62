// Package memory is an in-process Store used by tests and local runs.
// It enforces the same uniqueness rules as the MongoDB indexes.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/kmledger/kmledger/internal/domain/errs"
	"github.com/kmledger/kmledger/internal/domain/models"
	"github.com/kmledger/kmledger/internal/repository"
)

var _ repository.Store = (*Store)(nil)

const dayKey = "2006-01-02"

// Store keeps every collection in maps guarded by one mutex.
type Store struct {
	mu sync.RWMutex

	owners       map[string]models.Owner
	records      map[string]models.DailyRecord
	fuelLogs     map[string]models.FuelLog
	maintenances map[string]models.Maintenance
	goals        map[string]models.Goal
	alerts       map[string]models.Alert
	benchmarks   map[string]models.BenchmarkEntry
	achievements map[string]models.Achievement

	goalWrites int
}

// New returns an empty store.
func New() *Store {
	return &Store{
		owners:       map[string]models.Owner{},
		records:      map[string]models.DailyRecord{},
		fuelLogs:     map[string]models.FuelLog{},
		maintenances: map[string]models.Maintenance{},
		goals:        map[string]models.Goal{},
		alerts:       map[string]models.Alert{},
		benchmarks:   map[string]models.BenchmarkEntry{},
		achievements: map[string]models.Achievement{},
	}
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

// Close is a no-op.
func (s *Store) Close(context.Context) error { return nil }

// GoalWrites counts goal inserts and updates since creation.
func (s *Store) GoalWrites() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.goalWrites
}

// BenchmarkCount returns the number of stored benchmark entries.
func (s *Store) BenchmarkCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.benchmarks)
}

// Owners

// CreateOwner stores a new owner.
func (s *Store) CreateOwner(_ context.Context, owner models.Owner) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.owners[owner.ID]; ok {
		return errs.Conflict("owner already exists")
	}
	s.owners[owner.ID] = owner
	return nil
}

// GetOwner loads an owner by id.
func (s *Store) GetOwner(_ context.Context, id string) (models.Owner, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.owners[id]
	if !ok {
		return models.Owner{}, errs.NotFound("owner")
	}
	return o, nil
}

// UpdateOwner replaces an owner.
func (s *Store) UpdateOwner(_ context.Context, owner models.Owner) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.owners[owner.ID]; !ok {
		return errs.NotFound("owner")
	}
	s.owners[owner.ID] = owner
	return nil
}

// ListOwners returns every owner.
func (s *Store) ListOwners(context.Context) ([]models.Owner, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Owner, 0, len(s.owners))
	for _, o := range s.owners {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Daily records

func (s *Store) recordDateTaken(r models.DailyRecord) bool {
	for _, existing := range s.records {
		if existing.ID != r.ID && existing.OwnerID == r.OwnerID &&
			existing.Date.Format(dayKey) == r.Date.Format(dayKey) {
			return true
		}
	}
	return false
}

// CreateRecord stores a record; a second record for the same owner and date is a conflict.
func (s *Store) CreateRecord(_ context.Context, r models.DailyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.recordDateTaken(r) {
		return errs.Conflict("a record already exists for " + r.Date.Format(dayKey))
	}
	s.records[r.ID] = r
	return nil
}

// GetRecord loads one of the owner's records.
func (s *Store) GetRecord(_ context.Context, ownerID, id string) (models.DailyRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[id]
	if !ok || r.OwnerID != ownerID {
		return models.DailyRecord{}, errs.NotFound("record")
	}
	return r, nil
}

// UpdateRecord replaces a record.
func (s *Store) UpdateRecord(_ context.Context, r models.DailyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.records[r.ID]
	if !ok || existing.OwnerID != r.OwnerID {
		return errs.NotFound("record")
	}
	if s.recordDateTaken(r) {
		return errs.Conflict("a record already exists for " + r.Date.Format(dayKey))
	}
	s.records[r.ID] = r
	return nil
}

// DeleteRecord removes a record.
func (s *Store) DeleteRecord(_ context.Context, ownerID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[id]
	if !ok || r.OwnerID != ownerID {
		return errs.NotFound("record")
	}
	delete(s.records, id)
	return nil
}

// FindRecords lists records matching the filter, oldest first.
func (s *Store) FindRecords(_ context.Context, f models.RecordFilter) ([]models.DailyRecord, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.DailyRecord
	for _, r := range s.records {
		if r.OwnerID != f.OwnerID || !f.Contains(r.Date) {
			continue
		}
		if f.Platform != "" && !hasPlatform(r.Platforms, f.Platform) {
			continue
		}
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func hasPlatform(platforms []string, p string) bool {
	for _, candidate := range platforms {
		if candidate == p {
			return true
		}
	}
	return false
}

// Fuel logs

// CreateFuelLog stores a fuel log.
func (s *Store) CreateFuelLog(_ context.Context, l models.FuelLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fuelLogs[l.ID] = l
	return nil
}

// DeleteFuelLog removes a fuel log.
func (s *Store) DeleteFuelLog(_ context.Context, ownerID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.fuelLogs[id]
	if !ok || l.OwnerID != ownerID {
		return errs.NotFound("fuel log")
	}
	delete(s.fuelLogs, id)
	return nil
}

// FindFuelLogs lists fuel logs in range.
func (s *Store) FindFuelLogs(_ context.Context, f models.RecordFilter) ([]models.FuelLog, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.FuelLog
	for _, l := range s.fuelLogs {
		if l.OwnerID == f.OwnerID && f.Contains(l.Date) {
			out = append(out, l)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

// LatestFuelLog returns the most recent fuel log, or nil.
func (s *Store) LatestFuelLog(ctx context.Context, ownerID string) (*models.FuelLog, error) {
	logs, err := s.FindFuelLogs(ctx, models.RecordFilter{OwnerID: ownerID})
	if err != nil || len(logs) == 0 {
		return nil, err
	}
	latest := logs[len(logs)-1]
	return &latest, nil
}

// AverageFuelPrice is the owner's total fuel spend over total liters.
func (s *Store) AverageFuelPrice(_ context.Context, ownerID string) (float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var cost, liters float64
	for _, l := range s.fuelLogs {
		if l.OwnerID == ownerID {
			cost += l.TotalCost
			liters += l.Liters
		}
	}
	if liters <= 0 {
		return 0, nil
	}
	return cost / liters, nil
}

// Maintenances

// CreateMaintenance stores a maintenance log.
func (s *Store) CreateMaintenance(_ context.Context, m models.Maintenance) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.maintenances[m.ID] = m
	return nil
}

// DeleteMaintenance removes a maintenance log.
func (s *Store) DeleteMaintenance(_ context.Context, ownerID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.maintenances[id]
	if !ok || m.OwnerID != ownerID {
		return errs.NotFound("maintenance")
	}
	delete(s.maintenances, id)
	return nil
}

// FindMaintenances lists maintenance logs in range.
func (s *Store) FindMaintenances(_ context.Context, f models.RecordFilter) ([]models.Maintenance, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Maintenance
	for _, m := range s.maintenances {
		if m.OwnerID == f.OwnerID && f.Contains(m.Date) {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

// LatestMaintenance returns the most recent maintenance, or nil.
func (s *Store) LatestMaintenance(ctx context.Context, ownerID string) (*models.Maintenance, error) {
	ms, err := s.FindMaintenances(ctx, models.RecordFilter{OwnerID: ownerID})
	if err != nil || len(ms) == 0 {
		return nil, err
	}
	latest := ms[len(ms)-1]
	return &latest, nil
}

// Goals

func (s *Store) goalPeriodTaken(g models.Goal) bool {
	for _, existing := range s.goals {
		if existing.ID != g.ID && existing.OwnerID == g.OwnerID &&
			existing.Type == g.Type && existing.TargetPeriod.Equal(g.TargetPeriod) {
			return true
		}
	}
	return false
}

// CreateGoal stores a goal; owner, type and target period are unique.
func (s *Store) CreateGoal(_ context.Context, g models.Goal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.goalPeriodTaken(g) {
		return errs.Conflict("a goal already exists for this period")
	}
	s.goals[g.ID] = g
	s.goalWrites++
	return nil
}

// GetGoal loads one of the owner's goals.
func (s *Store) GetGoal(_ context.Context, ownerID, id string) (models.Goal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.goals[id]
	if !ok || g.OwnerID != ownerID {
		return models.Goal{}, errs.NotFound("goal")
	}
	return g, nil
}

// UpdateGoal replaces a goal.
func (s *Store) UpdateGoal(_ context.Context, g models.Goal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.goals[g.ID]
	if !ok || existing.OwnerID != g.OwnerID {
		return errs.NotFound("goal")
	}
	if s.goalPeriodTaken(g) {
		return errs.Conflict("a goal already exists for this period")
	}
	s.goals[g.ID] = g
	s.goalWrites++
	return nil
}

// DeleteGoal removes a goal.
func (s *Store) DeleteGoal(_ context.Context, ownerID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.goals[id]
	if !ok || g.OwnerID != ownerID {
		return errs.NotFound("goal")
	}
	delete(s.goals, id)
	return nil
}

// FindGoals lists goals by type and target period.
func (s *Store) FindGoals(_ context.Context, f models.GoalFilter) ([]models.Goal, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Goal
	for _, g := range s.goals {
		switch {
		case g.OwnerID != f.OwnerID:
		case f.Type != "" && g.Type != f.Type:
		case f.From != nil && g.TargetPeriod.Before(*f.From):
		case f.To != nil && g.TargetPeriod.After(*f.To):
		default:
			out = append(out, g)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].TargetPeriod.Before(out[j].TargetPeriod) })
	return out, nil
}

// Alerts

// CreateAlert stores an alert.
func (s *Store) CreateAlert(_ context.Context, a models.Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alerts[a.ID] = a
	return nil
}

// HasUnreadDuplicate reports whether an unread alert with the same category, title and message exists.
func (s *Store) HasUnreadDuplicate(_ context.Context, a models.Alert) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, existing := range s.alerts {
		if existing.OwnerID == a.OwnerID && !existing.Read &&
			existing.Category == a.Category && existing.Title == a.Title && existing.Message == a.Message {
			return true, nil
		}
	}
	return false, nil
}

// FindAlerts lists alerts, newest first.
func (s *Store) FindAlerts(_ context.Context, f models.AlertFilter) ([]models.Alert, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Alert
	for _, a := range s.alerts {
		switch {
		case a.OwnerID != f.OwnerID:
		case f.Category != "" && a.Category != f.Category:
		case f.Unread != nil && a.Read == *f.Unread:
		default:
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

// MarkAlertRead flags one alert as read.
func (s *Store) MarkAlertRead(_ context.Context, ownerID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.alerts[id]
	if !ok || a.OwnerID != ownerID {
		return errs.NotFound("alert")
	}
	a.Read = true
	s.alerts[id] = a
	return nil
}

// MarkAllAlertsRead flags every unread alert of the owner and returns how many changed.
func (s *Store) MarkAllAlertsRead(_ context.Context, ownerID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, a := range s.alerts {
		if a.OwnerID == ownerID && !a.Read {
			a.Read = true
			s.alerts[id] = a
			n++
		}
	}
	return n, nil
}

// DeleteAlert removes an alert.
func (s *Store) DeleteAlert(_ context.Context, ownerID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.alerts[id]
	if !ok || a.OwnerID != ownerID {
		return errs.NotFound("alert")
	}
	delete(s.alerts, id)
	return nil
}

// Benchmarks

// ReplaceBenchmarkEntries swaps the owner's entries for one period.
func (s *Store) ReplaceBenchmarkEntries(_ context.Context, ownerID string, period models.PeriodType, start time.Time, entries []models.BenchmarkEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, e := range s.benchmarks {
		if e.OwnerID == ownerID && e.PeriodType == period && e.PeriodStart.Equal(start) {
			delete(s.benchmarks, id)
		}
	}
	for _, e := range entries {
		s.benchmarks[e.ID] = e
	}
	return nil
}

// LatestBenchmarkPeriod returns the newest period start matching the filter, or nil.
func (s *Store) LatestBenchmarkPeriod(_ context.Context, f models.BenchmarkFilter) (*time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var latest *time.Time
	for _, e := range s.benchmarks {
		if !f.Matches(e) {
			continue
		}
		if latest == nil || e.PeriodStart.After(*latest) {
			start := e.PeriodStart
			latest = &start
		}
	}
	return latest, nil
}

// FindBenchmarkEntries lists entries matching the filter.
func (s *Store) FindBenchmarkEntries(_ context.Context, f models.BenchmarkFilter) ([]models.BenchmarkEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.BenchmarkEntry
	for _, e := range s.benchmarks {
		if f.Matches(e) {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// DeleteOwnerBenchmarkEntries removes every entry the owner published.
func (s *Store) DeleteOwnerBenchmarkEntries(_ context.Context, ownerID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, e := range s.benchmarks {
		if e.OwnerID == ownerID {
			delete(s.benchmarks, id)
			n++
		}
	}
	return n, nil
}

// Achievements

// CreateAchievement stores an unlocked achievement; each type unlocks once per owner.
func (s *Store) CreateAchievement(_ context.Context, a models.Achievement) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.achievements {
		if existing.OwnerID == a.OwnerID && existing.Type == a.Type {
			return errs.Conflict("achievement already unlocked")
		}
	}
	s.achievements[a.ID] = a
	return nil
}

// FindAchievements lists the owner's achievements.
func (s *Store) FindAchievements(_ context.Context, ownerID string) ([]models.Achievement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Achievement
	for _, a := range s.achievements {
		if a.OwnerID == ownerID {
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].UnlockedAt.Before(out[j].UnlockedAt) })
	return out, nil
}
