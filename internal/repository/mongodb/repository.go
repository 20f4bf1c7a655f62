package mongodb

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/kmledger/kmledger/internal/domain/errs"
	"github.com/kmledger/kmledger/internal/repository"
)

const (
	collOwners       = "owners"
	collRecords      = "daily_records"
	collFuelLogs     = "fuel_logs"
	collMaintenances = "maintenances"
	collGoals        = "goals"
	collAlerts       = "alerts"
	collBenchmarks   = "benchmark_entries"
	collAchievements = "achievements"
)

var _ repository.Store = (*MongoDBRepository)(nil)

// MongoDBRepository implements repository.Store on MongoDB.
type MongoDBRepository struct {
	client *mongo.Client
	db     *mongo.Database
	logger *zap.Logger
}

// NewMongoDBRepository connects, pings and makes sure the unique indexes exist.
func NewMongoDBRepository(ctx context.Context, uri string, dbName string, logger *zap.Logger) (*MongoDBRepository, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	clientOptions := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	// Ping the database to verify connection
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	r := &MongoDBRepository{
		client: client,
		db:     client.Database(dbName),
		logger: logger,
	}
	if err := r.EnsureIndexes(ctx); err != nil {
		return nil, err
	}
	return r, nil
}

// EnsureIndexes creates the uniqueness and lookup indexes.
func (r *MongoDBRepository) EnsureIndexes(ctx context.Context) error {
	unique := func(keys bson.D) mongo.IndexModel {
		return mongo.IndexModel{Keys: keys, Options: options.Index().SetUnique(true)}
	}
	plain := func(keys bson.D) mongo.IndexModel {
		return mongo.IndexModel{Keys: keys}
	}

	indexes := map[string][]mongo.IndexModel{
		collRecords: {
			unique(bson.D{{Key: "owner_id", Value: 1}, {Key: "date", Value: 1}}),
		},
		collFuelLogs: {
			plain(bson.D{{Key: "owner_id", Value: 1}, {Key: "date", Value: 1}}),
		},
		collMaintenances: {
			plain(bson.D{{Key: "owner_id", Value: 1}, {Key: "date", Value: 1}}),
		},
		collGoals: {
			unique(bson.D{{Key: "owner_id", Value: 1}, {Key: "type", Value: 1}, {Key: "target_period", Value: 1}}),
		},
		collAlerts: {
			plain(bson.D{{Key: "owner_id", Value: 1}, {Key: "read", Value: 1}, {Key: "created_at", Value: -1}}),
		},
		collBenchmarks: {
			plain(bson.D{{Key: "period_type", Value: 1}, {Key: "period_start", Value: -1}}),
			plain(bson.D{{Key: "owner_id", Value: 1}}),
		},
		collAchievements: {
			unique(bson.D{{Key: "owner_id", Value: 1}, {Key: "type", Value: 1}}),
		},
	}

	for coll, idx := range indexes {
		if _, err := r.db.Collection(coll).Indexes().CreateMany(ctx, idx); err != nil {
			return fmt.Errorf("create %s indexes: %w", coll, err)
		}
	}
	r.logger.Debug("mongodb indexes ensured", zap.Int("collections", len(indexes)))
	return nil
}

// Ping checks the connection.
func (r *MongoDBRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx, nil)
}

// Close closes the MongoDB connection.
func (r *MongoDBRepository) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}

func (r *MongoDBRepository) coll(name string) *mongo.Collection {
	return r.db.Collection(name)
}

// insert maps duplicate key violations to a conflict.
func (r *MongoDBRepository) insert(ctx context.Context, coll string, doc any, conflict string) error {
	if _, err := r.coll(coll).InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return errs.Conflict(conflict)
		}
		return fmt.Errorf("insert into %s: %w", coll, err)
	}
	return nil
}

// replace overwrites the document matching filter.
func (r *MongoDBRepository) replace(ctx context.Context, coll string, filter bson.M, doc any, entity, conflict string) error {
	res, err := r.coll(coll).ReplaceOne(ctx, filter, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return errs.Conflict(conflict)
		}
		return fmt.Errorf("replace in %s: %w", coll, err)
	}
	if res.MatchedCount == 0 {
		return errs.NotFound(entity)
	}
	return nil
}

func (r *MongoDBRepository) findOne(ctx context.Context, coll string, filter bson.M, out any, entity string) error {
	err := r.coll(coll).FindOne(ctx, filter).Decode(out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return errs.NotFound(entity)
	}
	if err != nil {
		return fmt.Errorf("find in %s: %w", coll, err)
	}
	return nil
}

func (r *MongoDBRepository) deleteOwned(ctx context.Context, coll, ownerID, id, entity string) error {
	res, err := r.coll(coll).DeleteOne(ctx, bson.M{"_id": id, "owner_id": ownerID})
	if err != nil {
		return fmt.Errorf("delete from %s: %w", coll, err)
	}
	if res.DeletedCount == 0 {
		return errs.NotFound(entity)
	}
	return nil
}

func findAll[T any](ctx context.Context, c *mongo.Collection, filter any, opts ...*options.FindOptions) ([]T, error) {
	cursor, err := c.Find(ctx, filter, opts...)
	if err != nil {
		return nil, fmt.Errorf("find in %s: %w", c.Name(), err)
	}
	var out []T
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode %s: %w", c.Name(), err)
	}
	return out, nil
}
