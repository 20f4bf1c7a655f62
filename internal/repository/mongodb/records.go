package mongodb

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/kmledger/kmledger/internal/domain/models"
)

const dupRecord = "a record already exists for this date"

func dateRange(f models.RecordFilter) bson.M {
	q := bson.M{"owner_id": f.OwnerID}
	if f.From != nil || f.To != nil {
		r := bson.M{}
		if f.From != nil {
			r["$gte"] = *f.From
		}
		if f.To != nil {
			r["$lte"] = *f.To
		}
		q["date"] = r
	}
	return q
}

var byDateAsc = options.Find().SetSort(bson.D{{Key: "date", Value: 1}})

// CreateRecord inserts a daily record.
func (r *MongoDBRepository) CreateRecord(ctx context.Context, rec models.DailyRecord) error {
	return r.insert(ctx, collRecords, rec, dupRecord)
}

// GetRecord loads one of the owner's records.
func (r *MongoDBRepository) GetRecord(ctx context.Context, ownerID, id string) (models.DailyRecord, error) {
	var rec models.DailyRecord
	err := r.findOne(ctx, collRecords, bson.M{"_id": id, "owner_id": ownerID}, &rec, "record")
	return rec, err
}

// UpdateRecord replaces a record.
func (r *MongoDBRepository) UpdateRecord(ctx context.Context, rec models.DailyRecord) error {
	return r.replace(ctx, collRecords, bson.M{"_id": rec.ID, "owner_id": rec.OwnerID}, rec, "record", dupRecord)
}

// DeleteRecord removes a record.
func (r *MongoDBRepository) DeleteRecord(ctx context.Context, ownerID, id string) error {
	return r.deleteOwned(ctx, collRecords, ownerID, id, "record")
}

// FindRecords lists records matching the filter by date.
func (r *MongoDBRepository) FindRecords(ctx context.Context, f models.RecordFilter) ([]models.DailyRecord, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	q := dateRange(f)
	if f.Platform != "" {
		q["platforms"] = f.Platform
	}
	return findAll[models.DailyRecord](ctx, r.coll(collRecords), q, byDateAsc)
}

// CreateFuelLog inserts a fuel log.
func (r *MongoDBRepository) CreateFuelLog(ctx context.Context, l models.FuelLog) error {
	return r.insert(ctx, collFuelLogs, l, "fuel log already exists")
}

// DeleteFuelLog removes a fuel log.
func (r *MongoDBRepository) DeleteFuelLog(ctx context.Context, ownerID, id string) error {
	return r.deleteOwned(ctx, collFuelLogs, ownerID, id, "fuel log")
}

// FindFuelLogs lists fuel logs by date.
func (r *MongoDBRepository) FindFuelLogs(ctx context.Context, f models.RecordFilter) ([]models.FuelLog, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return findAll[models.FuelLog](ctx, r.coll(collFuelLogs), dateRange(f), byDateAsc)
}

// LatestFuelLog returns the most recent fuel log or nil.
func (r *MongoDBRepository) LatestFuelLog(ctx context.Context, ownerID string) (*models.FuelLog, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "date", Value: -1}, {Key: "created_at", Value: -1}})
	var l models.FuelLog
	err := r.coll(collFuelLogs).FindOne(ctx, bson.M{"owner_id": ownerID}, opts).Decode(&l)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest fuel log: %w", err)
	}
	return &l, nil
}

// AverageFuelPrice is the owner's total fuel spend over total liters.
func (r *MongoDBRepository) AverageFuelPrice(ctx context.Context, ownerID string) (float64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"owner_id": ownerID}}},
		{{Key: "$group", Value: bson.M{
			"_id":    nil,
			"cost":   bson.M{"$sum": "$total_cost"},
			"liters": bson.M{"$sum": "$liters"},
		}}},
	}
	cursor, err := r.coll(collFuelLogs).Aggregate(ctx, pipeline)
	if err != nil {
		return 0, fmt.Errorf("aggregate fuel price: %w", err)
	}
	var rows []struct {
		Cost   float64 `bson:"cost"`
		Liters float64 `bson:"liters"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return 0, fmt.Errorf("decode fuel price: %w", err)
	}
	if len(rows) == 0 || rows[0].Liters <= 0 {
		return 0, nil
	}
	return rows[0].Cost / rows[0].Liters, nil
}

// CreateMaintenance inserts a maintenance log.
func (r *MongoDBRepository) CreateMaintenance(ctx context.Context, m models.Maintenance) error {
	return r.insert(ctx, collMaintenances, m, "maintenance already exists")
}

// DeleteMaintenance removes a maintenance log.
func (r *MongoDBRepository) DeleteMaintenance(ctx context.Context, ownerID, id string) error {
	return r.deleteOwned(ctx, collMaintenances, ownerID, id, "maintenance")
}

// FindMaintenances lists maintenance logs by date.
func (r *MongoDBRepository) FindMaintenances(ctx context.Context, f models.RecordFilter) ([]models.Maintenance, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return findAll[models.Maintenance](ctx, r.coll(collMaintenances), dateRange(f), byDateAsc)
}

// LatestMaintenance returns the most recent maintenance or nil.
func (r *MongoDBRepository) LatestMaintenance(ctx context.Context, ownerID string) (*models.Maintenance, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "date", Value: -1}, {Key: "created_at", Value: -1}})
	var m models.Maintenance
	err := r.coll(collMaintenances).FindOne(ctx, bson.M{"owner_id": ownerID}, opts).Decode(&m)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest maintenance: %w", err)
	}
	return &m, nil
}
