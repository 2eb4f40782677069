package mongo

import (
	"context"
	"fmt"
	"time"

	"github.com/donaldmo/pandopot-api/internal/domain/entity"
	"github.com/donaldmo/pandopot-api/internal/repository"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type subscriptionRepository struct {
	collection *mongo.Collection
}

func NewSubscriptionRepository(db *mongo.Database) repository.SubscriptionRepository {
	return &subscriptionRepository{collection: db.Collection(subscriptionsCollection)}
}

func (r *subscriptionRepository) GetByID(ctx context.Context, subscriptionID string) (*entity.Subscription, error) {
	oid, err := toObjectID(subscriptionID)
	if err != nil {
		return nil, repository.ErrNotFound
	}

	var sub entity.Subscription
	if err := r.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&sub); err != nil {
		return nil, notFoundOr(err, "failed to get subscription %s", subscriptionID)
	}
	return &sub, nil
}

// claimableFilter matches an unused, unexpired subscription of userID that is
// available or whose reservation has outlived reservationTTL.
func claimableFilter(oid primitive.ObjectID, userID string, now time.Time, reservationTTL time.Duration) bson.M {
	return bson.M{
		"_id":               oid,
		"subscriber.userId": userID,
		"usage.used":        false,
		"expiryDate":        bson.M{"$gte": now},
		"$or": bson.A{
			bson.M{"usage.state": bson.M{"$exists": false}},
			bson.M{"usage.state": entity.UsageAvailable},
			bson.M{"usage.state": entity.UsageReserved, "usage.reservedAt": bson.M{"$lte": now.Add(-reservationTTL)}},
		},
	}
}

func (r *subscriptionRepository) conditionalUpdate(ctx context.Context, op, subscriptionID string, filter, update bson.M) error {
	res, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to %s subscription %s: %w", op, subscriptionID, err)
	}
	if res.MatchedCount == 0 {
		return repository.ErrConflict
	}
	return nil
}

func (r *subscriptionRepository) Consume(ctx context.Context, subscriptionID, userID string, item entity.UsageItem, now time.Time, reservationTTL time.Duration) error {
	oid, err := toObjectID(subscriptionID)
	if err != nil {
		return repository.ErrNotFound
	}

	update := bson.M{
		"$set": bson.M{
			"usage.used":     true,
			"usage.usedDate": now,
			"usage.item":     item,
			"usage.state":    entity.UsageConsumed,
		},
		"$unset": bson.M{"usage.reservedAt": ""},
	}
	return r.conditionalUpdate(ctx, "consume", subscriptionID, claimableFilter(oid, userID, now, reservationTTL), update)
}

func (r *subscriptionRepository) Reserve(ctx context.Context, subscriptionID, userID, reservationID string, now time.Time, reservationTTL time.Duration) error {
	oid, err := toObjectID(subscriptionID)
	if err != nil {
		return repository.ErrNotFound
	}

	update := bson.M{
		"$set": bson.M{
			"usage.state":         entity.UsageReserved,
			"usage.reservationId": reservationID,
			"usage.reservedAt":    now,
		},
	}
	return r.conditionalUpdate(ctx, "reserve", subscriptionID, claimableFilter(oid, userID, now, reservationTTL), update)
}

func (r *subscriptionRepository) Commit(ctx context.Context, subscriptionID, reservationID string, item entity.UsageItem, now time.Time) error {
	oid, err := toObjectID(subscriptionID)
	if err != nil {
		return repository.ErrNotFound
	}

	filter := bson.M{
		"_id":                 oid,
		"usage.used":          false,
		"usage.state":         entity.UsageReserved,
		"usage.reservationId": reservationID,
	}
	update := bson.M{
		"$set": bson.M{
			"usage.used":     true,
			"usage.usedDate": now,
			"usage.item":     item,
			"usage.state":    entity.UsageConsumed,
		},
		"$unset": bson.M{"usage.reservedAt": ""},
	}
	return r.conditionalUpdate(ctx, "commit", subscriptionID, filter, update)
}

func (r *subscriptionRepository) Release(ctx context.Context, subscriptionID, reservationID string) error {
	oid, err := toObjectID(subscriptionID)
	if err != nil {
		return repository.ErrNotFound
	}

	filter := bson.M{
		"_id":                 oid,
		"usage.used":          false,
		"usage.state":         entity.UsageReserved,
		"usage.reservationId": reservationID,
	}
	update := bson.M{
		"$set":   bson.M{"usage.state": entity.UsageAvailable},
		"$unset": bson.M{"usage.reservationId": "", "usage.reservedAt": ""},
	}
	return r.conditionalUpdate(ctx, "release", subscriptionID, filter, update)
}
