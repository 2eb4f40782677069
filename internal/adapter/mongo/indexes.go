package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EnsureIndexes creates the text and lookup indexes the repositories query by.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	specs := map[string][]mongo.IndexModel{
		productsCollection: {
			{Keys: bson.D{{Key: "name", Value: "text"}, {Key: "description", Value: "text"}}},
			{Keys: bson.D{{Key: "category.categoryId", Value: 1}}},
			{Keys: bson.D{{Key: "category.name", Value: 1}, {Key: "category.subCategory", Value: 1}}},
			{Keys: bson.D{{Key: "author.userId", Value: 1}}},
			{Keys: bson.D{{Key: "boostInfo.name", Value: 1}, {Key: "boostInfo.expiryDate", Value: 1}}},
		},
		marketsCollection: {
			{Keys: bson.D{{Key: "name", Value: "text"}, {Key: "description", Value: "text"}, {Key: "location", Value: "text"}}},
			{Keys: bson.D{{Key: "category.categoryId", Value: 1}}},
			{Keys: bson.D{{Key: "category.name", Value: 1}}},
			{Keys: bson.D{{Key: "author.userId", Value: 1}}},
		},
		ordersCollection: {
			{Keys: bson.D{{Key: "user.userId", Value: 1}, {Key: "createdAt", Value: -1}}},
			{Keys: bson.D{{Key: "productOwner.userId", Value: 1}, {Key: "createdAt", Value: -1}}},
			{
				Keys:    bson.D{{Key: "idempotencyKey", Value: 1}},
				Options: options.Index().SetUnique(true).SetPartialFilterExpression(bson.M{"idempotencyKey": bson.M{"$type": "string"}}),
			},
		},
		subscriptionsCollection: {
			{Keys: bson.D{{Key: "subscriber.userId", Value: 1}}},
		},
		categoriesCollection: {
			{Keys: bson.D{{Key: "name", Value: 1}}},
		},
	}

	for collection, models := range specs {
		if _, err := db.Collection(collection).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("failed to create indexes on %s: %w", collection, err)
		}
	}
	return nil
}
