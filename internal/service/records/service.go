// Package records implements create/read/update/delete for daily records,
// fuel logs and maintenance logs.
package records

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kmledger/kmledger/internal/domain/errs"
	"github.com/kmledger/kmledger/internal/domain/models"
	"github.com/kmledger/kmledger/internal/domain/validation"
	"github.com/kmledger/kmledger/internal/repository"
)

// Store is the persistence the service needs.
type Store interface {
	repository.RecordStore
	repository.FuelLogStore
	repository.MaintenanceStore
}

// CreatedHook runs after a record is stored. Failures are logged only.
type CreatedHook func(ctx context.Context, ownerID string) error

// Service manages an owner's operational logs.
type Service struct {
	store     Store
	logger    *zap.Logger
	now       func() time.Time
	newID     func() string
	onCreated []CreatedHook
}

// NewService wires a new records service instance.
func NewService(store Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:  store,
		logger: logger,
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// OnCreated registers a hook run after every successful record creation.
func (s *Service) OnCreated(hook CreatedHook) {
	s.onCreated = append(s.onCreated, hook)
}

// CreateRecord validates and stores a new daily record.
func (s *Service) CreateRecord(ctx context.Context, ownerID string, in RecordInput) (models.DailyRecord, error) {
	if err := in.Validate(); err != nil {
		return models.DailyRecord{}, err
	}
	now := s.now().UTC()
	rec := models.DailyRecord{ID: s.newID(), OwnerID: ownerID, CreatedAt: now, UpdatedAt: now}
	if err := in.apply(&rec); err != nil {
		return models.DailyRecord{}, err
	}
	if err := s.store.CreateRecord(ctx, rec); err != nil {
		return models.DailyRecord{}, wrap("create record", err)
	}
	s.logger.Info("record created",
		zap.String("owner_id", ownerID),
		zap.String("record_id", rec.ID),
		zap.String("date", rec.Date.Format(DateLayout)))

	for _, hook := range s.onCreated {
		if err := hook(ctx, ownerID); err != nil {
			s.logger.Warn("record created hook failed", zap.String("owner_id", ownerID), zap.Error(err))
		}
	}
	return rec, nil
}

// GetRecord loads one of the owner's records.
func (s *Service) GetRecord(ctx context.Context, ownerID, id string) (models.DailyRecord, error) {
	rec, err := s.store.GetRecord(ctx, ownerID, id)
	if err != nil {
		return models.DailyRecord{}, wrap("get record", err)
	}
	return rec, nil
}

// UpdateRecord replaces the writable fields of a record.
func (s *Service) UpdateRecord(ctx context.Context, ownerID, id string, in RecordInput) (models.DailyRecord, error) {
	if err := in.Validate(); err != nil {
		return models.DailyRecord{}, err
	}
	rec, err := s.store.GetRecord(ctx, ownerID, id)
	if err != nil {
		return models.DailyRecord{}, wrap("get record", err)
	}
	if err := in.apply(&rec); err != nil {
		return models.DailyRecord{}, err
	}
	rec.UpdatedAt = s.now().UTC()
	if err := s.store.UpdateRecord(ctx, rec); err != nil {
		return models.DailyRecord{}, wrap("update record", err)
	}
	return rec, nil
}

// DeleteRecord removes a record.
func (s *Service) DeleteRecord(ctx context.Context, ownerID, id string) error {
	return wrap("delete record", s.store.DeleteRecord(ctx, ownerID, id))
}

// ListRecords returns the owner's records in range, optionally for one platform.
func (s *Service) ListRecords(ctx context.Context, ownerID string, r models.DateRange, platform string) ([]models.DailyRecord, error) {
	f := r.Filter(ownerID)
	if err := f.Validate(); err != nil {
		return nil, errs.Validation("from", err.Error())
	}
	f.Platform = platform
	out, err := s.store.FindRecords(ctx, f)
	if err != nil {
		return nil, wrap("list records", err)
	}
	return out, nil
}

// CreateFuelLog stores a refuelling with a server computed total cost.
func (s *Service) CreateFuelLog(ctx context.Context, ownerID string, in FuelLogInput) (models.FuelLog, error) {
	if err := validation.Struct(in); err != nil {
		return models.FuelLog{}, err
	}
	date, err := ParseDate(in.Date)
	if err != nil {
		return models.FuelLog{}, errs.Validation("date", "must be formatted YYYY-MM-DD")
	}
	log := models.FuelLog{
		ID:        s.newID(),
		OwnerID:   ownerID,
		Date:      date,
		Liters:    in.Liters,
		UnitPrice: in.UnitPrice,
		TotalCost: in.TotalCost(),
		Odometer:  in.Odometer,
		Notes:     in.Notes,
		CreatedAt: s.now().UTC(),
	}
	if err := s.store.CreateFuelLog(ctx, log); err != nil {
		return models.FuelLog{}, wrap("create fuel log", err)
	}
	return log, nil
}

// ListFuelLogs returns the owner's fuel logs in range.
func (s *Service) ListFuelLogs(ctx context.Context, ownerID string, r models.DateRange) ([]models.FuelLog, error) {
	f := r.Filter(ownerID)
	if err := f.Validate(); err != nil {
		return nil, errs.Validation("from", err.Error())
	}
	out, err := s.store.FindFuelLogs(ctx, f)
	if err != nil {
		return nil, wrap("list fuel logs", err)
	}
	return out, nil
}

// DeleteFuelLog removes a fuel log.
func (s *Service) DeleteFuelLog(ctx context.Context, ownerID, id string) error {
	return wrap("delete fuel log", s.store.DeleteFuelLog(ctx, ownerID, id))
}

// CreateMaintenance stores a maintenance log.
func (s *Service) CreateMaintenance(ctx context.Context, ownerID string, in MaintenanceInput) (models.Maintenance, error) {
	if err := validation.Struct(in); err != nil {
		return models.Maintenance{}, err
	}
	date, err := ParseDate(in.Date)
	if err != nil {
		return models.Maintenance{}, errs.Validation("date", "must be formatted YYYY-MM-DD")
	}
	m := models.Maintenance{
		ID:           s.newID(),
		OwnerID:      ownerID,
		Date:         date,
		Type:         in.Type,
		Description:  in.Description,
		Cost:         in.Cost,
		Odometer:     in.Odometer,
		NextOdometer: in.NextOdometer,
		Notes:        in.Notes,
		CreatedAt:    s.now().UTC(),
	}
	if in.NextServiceDate != "" {
		next, err := ParseDate(in.NextServiceDate)
		if err != nil {
			return models.Maintenance{}, errs.Validation("nextServiceDate", "must be formatted YYYY-MM-DD")
		}
		m.NextServiceDate = &next
	}
	if err := s.store.CreateMaintenance(ctx, m); err != nil {
		return models.Maintenance{}, wrap("create maintenance", err)
	}
	return m, nil
}

// ListMaintenances returns the owner's maintenance logs in range.
func (s *Service) ListMaintenances(ctx context.Context, ownerID string, r models.DateRange) ([]models.Maintenance, error) {
	f := r.Filter(ownerID)
	if err := f.Validate(); err != nil {
		return nil, errs.Validation("from", err.Error())
	}
	out, err := s.store.FindMaintenances(ctx, f)
	if err != nil {
		return nil, wrap("list maintenances", err)
	}
	return out, nil
}

// DeleteMaintenance removes a maintenance log.
func (s *Service) DeleteMaintenance(ctx context.Context, ownerID, id string) error {
	return wrap("delete maintenance", s.store.DeleteMaintenance(ctx, ownerID, id))
}

// wrap keeps business errors intact and annotates everything else.
func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := errs.As(err); ok {
		return err
	}
	return fmt.Errorf("%s: %w", op, err)
}
