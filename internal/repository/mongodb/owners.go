package mongodb

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/kmledger/kmledger/internal/domain/models"
)

// CreateOwner inserts an owner.
func (r *MongoDBRepository) CreateOwner(ctx context.Context, o models.Owner) error {
	return r.insert(ctx, collOwners, o, "owner already exists")
}

// GetOwner loads an owner by id.
func (r *MongoDBRepository) GetOwner(ctx context.Context, id string) (models.Owner, error) {
	var o models.Owner
	err := r.findOne(ctx, collOwners, bson.M{"_id": id}, &o, "owner")
	return o, err
}

// UpdateOwner replaces an owner.
func (r *MongoDBRepository) UpdateOwner(ctx context.Context, o models.Owner) error {
	return r.replace(ctx, collOwners, bson.M{"_id": o.ID}, o, "owner", "owner already exists")
}

// ListOwners returns every owner ordered by id.
func (r *MongoDBRepository) ListOwners(ctx context.Context) ([]models.Owner, error) {
	return findAll[models.Owner](ctx, r.coll(collOwners), bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
}
