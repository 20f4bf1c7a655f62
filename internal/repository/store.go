// Package repository declares the persistence contracts shared by the
// MongoDB and in-memory stores. Lookups of a missing entity return an
// errs.NotFound error and unique index violations an errs.Conflict.
package repository

import (
	"context"
	"time"

	"github.com/kmledger/kmledger/internal/domain/models"
)

// OwnerStore persists owners.
type OwnerStore interface {
	CreateOwner(ctx context.Context, owner models.Owner) error
	GetOwner(ctx context.Context, id string) (models.Owner, error)
	UpdateOwner(ctx context.Context, owner models.Owner) error
	ListOwners(ctx context.Context) ([]models.Owner, error)
}

// RecordStore persists daily records. FindRecords returns records sorted
// by date ascending.
type RecordStore interface {
	CreateRecord(ctx context.Context, record models.DailyRecord) error
	GetRecord(ctx context.Context, ownerID, id string) (models.DailyRecord, error)
	UpdateRecord(ctx context.Context, record models.DailyRecord) error
	DeleteRecord(ctx context.Context, ownerID, id string) error
	FindRecords(ctx context.Context, filter models.RecordFilter) ([]models.DailyRecord, error)
}

// FuelLogStore persists fuel logs. LatestFuelLog returns nil without error
// when the owner has none.
type FuelLogStore interface {
	CreateFuelLog(ctx context.Context, log models.FuelLog) error
	DeleteFuelLog(ctx context.Context, ownerID, id string) error
	FindFuelLogs(ctx context.Context, filter models.RecordFilter) ([]models.FuelLog, error)
	LatestFuelLog(ctx context.Context, ownerID string) (*models.FuelLog, error)
	AverageFuelPrice(ctx context.Context, ownerID string) (float64, error)
}

// MaintenanceStore persists maintenance logs.
type MaintenanceStore interface {
	CreateMaintenance(ctx context.Context, m models.Maintenance) error
	DeleteMaintenance(ctx context.Context, ownerID, id string) error
	FindMaintenances(ctx context.Context, filter models.RecordFilter) ([]models.Maintenance, error)
	LatestMaintenance(ctx context.Context, ownerID string) (*models.Maintenance, error)
}

// GoalStore persists goals.
type GoalStore interface {
	CreateGoal(ctx context.Context, goal models.Goal) error
	GetGoal(ctx context.Context, ownerID, id string) (models.Goal, error)
	UpdateGoal(ctx context.Context, goal models.Goal) error
	DeleteGoal(ctx context.Context, ownerID, id string) error
	FindGoals(ctx context.Context, filter models.GoalFilter) ([]models.Goal, error)
}

// AlertStore persists alerts. FindAlerts returns the newest first.
type AlertStore interface {
	CreateAlert(ctx context.Context, alert models.Alert) error
	HasUnreadDuplicate(ctx context.Context, alert models.Alert) (bool, error)
	FindAlerts(ctx context.Context, filter models.AlertFilter) ([]models.Alert, error)
	MarkAlertRead(ctx context.Context, ownerID, id string) error
	MarkAllAlertsRead(ctx context.Context, ownerID string) (int64, error)
	DeleteAlert(ctx context.Context, ownerID, id string) error
}

// BenchmarkStore persists anonymized benchmark entries.
// ReplaceBenchmarkEntries swaps an owner's entries for one period.
// LatestBenchmarkPeriod returns nil when no entry matches.
type BenchmarkStore interface {
	ReplaceBenchmarkEntries(ctx context.Context, ownerID string, period models.PeriodType, start time.Time, entries []models.BenchmarkEntry) error
	LatestBenchmarkPeriod(ctx context.Context, filter models.BenchmarkFilter) (*time.Time, error)
	FindBenchmarkEntries(ctx context.Context, filter models.BenchmarkFilter) ([]models.BenchmarkEntry, error)
	DeleteOwnerBenchmarkEntries(ctx context.Context, ownerID string) (int64, error)
}

// AchievementStore persists unlocked achievements.
type AchievementStore interface {
	CreateAchievement(ctx context.Context, a models.Achievement) error
	FindAchievements(ctx context.Context, ownerID string) ([]models.Achievement, error)
}

// Store is the full record store.
type Store interface {
	OwnerStore
	RecordStore
	FuelLogStore
	MaintenanceStore
	GoalStore
	AlertStore
	BenchmarkStore
	AchievementStore
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}
