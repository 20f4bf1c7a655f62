package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/kmledger/kmledger/internal/domain/models"
)

func benchmarkQuery(f models.BenchmarkFilter) bson.M {
	q := bson.M{}
	if f.Locale != "" {
		q["locale"] = f.Locale
	}
	if f.VehicleType != "" {
		q["vehicle_type"] = f.VehicleType
	}
	if f.Platform != "" {
		q["platform"] = f.Platform
	}
	if f.PeriodType != "" {
		q["period_type"] = f.PeriodType
	}
	if f.PeriodStart != nil {
		q["period_start"] = *f.PeriodStart
	}
	if f.ExcludeOwnerID != "" {
		q["owner_id"] = bson.M{"$ne": f.ExcludeOwnerID}
	}
	return q
}

// ReplaceBenchmarkEntries swaps the owner's entries for one period.
func (r *MongoDBRepository) ReplaceBenchmarkEntries(ctx context.Context, ownerID string, period models.PeriodType, start time.Time, entries []models.BenchmarkEntry) error {
	c := r.coll(collBenchmarks)
	if _, err := c.DeleteMany(ctx, bson.M{"owner_id": ownerID, "period_type": period, "period_start": start}); err != nil {
		return fmt.Errorf("delete previous benchmark entries: %w", err)
	}
	if len(entries) == 0 {
		return nil
	}
	docs := make([]any, 0, len(entries))
	for _, e := range entries {
		docs = append(docs, e)
	}
	if _, err := c.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("insert benchmark entries: %w", err)
	}
	return nil
}

// LatestBenchmarkPeriod returns the newest period start matching the filter.
func (r *MongoDBRepository) LatestBenchmarkPeriod(ctx context.Context, f models.BenchmarkFilter) (*time.Time, error) {
	opts := options.FindOne().
		SetSort(bson.D{{Key: "period_start", Value: -1}}).
		SetProjection(bson.M{"period_start": 1})
	var doc struct {
		PeriodStart time.Time `bson:"period_start"`
	}
	err := r.coll(collBenchmarks).FindOne(ctx, benchmarkQuery(f), opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest benchmark period: %w", err)
	}
	return &doc.PeriodStart, nil
}

// FindBenchmarkEntries lists entries matching the filter.
func (r *MongoDBRepository) FindBenchmarkEntries(ctx context.Context, f models.BenchmarkFilter) ([]models.BenchmarkEntry, error) {
	return findAll[models.BenchmarkEntry](ctx, r.coll(collBenchmarks), benchmarkQuery(f))
}

// DeleteOwnerBenchmarkEntries removes every entry submitted by the owner.
func (r *MongoDBRepository) DeleteOwnerBenchmarkEntries(ctx context.Context, ownerID string) (int64, error) {
	res, err := r.coll(collBenchmarks).DeleteMany(ctx, bson.M{"owner_id": ownerID})
	if err != nil {
		return 0, fmt.Errorf("delete owner benchmark entries: %w", err)
	}
	return res.DeletedCount, nil
}
