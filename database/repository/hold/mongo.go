package holdRepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"parishly/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const queryTimeout = 5 * time.Second

// MongoHoldRepo stores reschedule holds in the "reschedule_holds" collection.
type MongoHoldRepo struct {
	coll *mongo.Collection
}

func NewMongoHoldRepo(db *mongo.Database) *MongoHoldRepo {
	repo := &MongoHoldRepo{coll: db.Collection("reschedule_holds")}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_, _ = repo.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "sessionRef", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "createdAt", Value: 1}}},
	})
	return repo
}

func (r *MongoHoldRepo) Create(ctx context.Context, hold *models.RescheduleHold) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	if _, err := r.coll.InsertOne(ctx, hold); err != nil {
		return fmt.Errorf("failed to insert reschedule hold: %w", err)
	}
	return nil
}

func (r *MongoHoldRepo) GetBySessionRef(ctx context.Context, sessionRef string) (*models.RescheduleHold, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var hold models.RescheduleHold
	err := r.coll.FindOne(ctx, bson.M{"sessionRef": sessionRef}).Decode(&hold)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, models.ErrRescheduleHoldNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch hold for session %s: %w", sessionRef, err)
	}
	return &hold, nil
}

func (r *MongoHoldRepo) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	res, err := r.coll.DeleteOne(ctx, bson.M{"id": id})
	if err != nil {
		return fmt.Errorf("failed to delete hold %s: %w", id, err)
	}
	if res.DeletedCount == 0 {
		return models.ErrRescheduleHoldNotFound
	}
	return nil
}

func (r *MongoHoldRepo) ListStale(ctx context.Context, cutoff time.Time) ([]models.RescheduleHold, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	cursor, err := r.coll.Find(ctx, bson.M{"createdAt": bson.M{"$lt": cutoff}})
	if err != nil {
		return nil, fmt.Errorf("failed to list stale holds: %w", err)
	}
	defer cursor.Close(ctx)

	var holds []models.RescheduleHold
	if err := cursor.All(ctx, &holds); err != nil {
		return nil, fmt.Errorf("failed to decode stale holds: %w", err)
	}
	return holds, nil
}
