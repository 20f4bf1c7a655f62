package mongodb

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/kmledger/kmledger/internal/domain/models"
)

const dupGoal = "a goal already exists for this period"

// CreateGoal inserts a goal.
func (r *MongoDBRepository) CreateGoal(ctx context.Context, g models.Goal) error {
	return r.insert(ctx, collGoals, g, dupGoal)
}

// GetGoal loads one of the owner's goals.
func (r *MongoDBRepository) GetGoal(ctx context.Context, ownerID, id string) (models.Goal, error) {
	var g models.Goal
	err := r.findOne(ctx, collGoals, bson.M{"_id": id, "owner_id": ownerID}, &g, "goal")
	return g, err
}

// UpdateGoal replaces a goal.
func (r *MongoDBRepository) UpdateGoal(ctx context.Context, g models.Goal) error {
	return r.replace(ctx, collGoals, bson.M{"_id": g.ID, "owner_id": g.OwnerID}, g, "goal", dupGoal)
}

// DeleteGoal removes a goal.
func (r *MongoDBRepository) DeleteGoal(ctx context.Context, ownerID, id string) error {
	return r.deleteOwned(ctx, collGoals, ownerID, id, "goal")
}

// FindGoals lists goals by target period.
func (r *MongoDBRepository) FindGoals(ctx context.Context, f models.GoalFilter) ([]models.Goal, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	q := bson.M{"owner_id": f.OwnerID}
	if f.Type != "" {
		q["type"] = f.Type
	}
	if f.From != nil || f.To != nil {
		p := bson.M{}
		if f.From != nil {
			p["$gte"] = *f.From
		}
		if f.To != nil {
			p["$lte"] = *f.To
		}
		q["target_period"] = p
	}
	opts := options.Find().SetSort(bson.D{{Key: "target_period", Value: 1}})
	return findAll[models.Goal](ctx, r.coll(collGoals), q, opts)
}

// CreateAchievement inserts an unlocked achievement.
func (r *MongoDBRepository) CreateAchievement(ctx context.Context, a models.Achievement) error {
	return r.insert(ctx, collAchievements, a, "achievement already unlocked")
}

// FindAchievements lists the owner's achievements by unlock time.
func (r *MongoDBRepository) FindAchievements(ctx context.Context, ownerID string) ([]models.Achievement, error) {
	opts := options.Find().SetSort(bson.D{{Key: "unlocked_at", Value: 1}})
	return findAll[models.Achievement](ctx, r.coll(collAchievements), bson.M{"owner_id": ownerID}, opts)
}
