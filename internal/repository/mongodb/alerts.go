package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/kmledger/kmledger/internal/domain/errs"
	"github.com/kmledger/kmledger/internal/domain/models"
)

// CreateAlert inserts an alert.
func (r *MongoDBRepository) CreateAlert(ctx context.Context, a models.Alert) error {
	return r.insert(ctx, collAlerts, a, "alert already exists")
}

// HasUnreadDuplicate reports whether an unread alert with the same
// category, title and message exists for the owner.
func (r *MongoDBRepository) HasUnreadDuplicate(ctx context.Context, a models.Alert) (bool, error) {
	n, err := r.coll(collAlerts).CountDocuments(ctx, bson.M{
		"owner_id": a.OwnerID,
		"read":     false,
		"category": a.Category,
		"title":    a.Title,
		"message":  a.Message,
	}, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("count duplicate alerts: %w", err)
	}
	return n > 0, nil
}

// FindAlerts lists alerts newest first.
func (r *MongoDBRepository) FindAlerts(ctx context.Context, f models.AlertFilter) ([]models.Alert, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	q := bson.M{"owner_id": f.OwnerID}
	if f.Category != "" {
		q["category"] = f.Category
	}
	if f.Unread != nil {
		q["read"] = !*f.Unread
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if f.Limit > 0 {
		opts.SetLimit(int64(f.Limit))
	}
	return findAll[models.Alert](ctx, r.coll(collAlerts), q, opts)
}

// MarkAlertRead flags one alert as read.
func (r *MongoDBRepository) MarkAlertRead(ctx context.Context, ownerID, id string) error {
	res, err := r.coll(collAlerts).UpdateOne(ctx,
		bson.M{"_id": id, "owner_id": ownerID},
		bson.M{"$set": bson.M{"read": true}})
	if err != nil {
		return fmt.Errorf("mark alert read: %w", err)
	}
	if res.MatchedCount == 0 {
		return errs.NotFound("alert")
	}
	return nil
}

// MarkAllAlertsRead flags every unread alert of the owner.
func (r *MongoDBRepository) MarkAllAlertsRead(ctx context.Context, ownerID string) (int64, error) {
	res, err := r.coll(collAlerts).UpdateMany(ctx,
		bson.M{"owner_id": ownerID, "read": false},
		bson.M{"$set": bson.M{"read": true}})
	if err != nil {
		return 0, fmt.Errorf("mark all alerts read: %w", err)
	}
	return res.ModifiedCount, nil
}

// DeleteAlert removes an alert.
func (r *MongoDBRepository) DeleteAlert(ctx context.Context, ownerID, id string) error {
	return r.deleteOwned(ctx, collAlerts, ownerID, id, "alert")
}
