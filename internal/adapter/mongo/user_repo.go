package mongo

import (
	"context"
	"fmt"
	"time"

	"github.com/donaldmo/pandopot-api/internal/domain/entity"
	"github.com/donaldmo/pandopot-api/internal/repository"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type userRepository struct {
	collection *mongo.Collection
}

func NewUserRepository(db *mongo.Database) repository.UserRepository {
	return &userRepository{collection: db.Collection(usersCollection)}
}

func (r *userRepository) GetByID(ctx context.Context, userID string) (*entity.User, error) {
	oid, err := toObjectID(userID)
	if err != nil {
		return nil, repository.ErrNotFound
	}

	var user entity.User
	if err := r.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&user); err != nil {
		return nil, notFoundOr(err, "failed to get user %s", userID)
	}
	if user.Cart.Items == nil {
		user.Cart.Items = make([]entity.CartItem, 0)
	}
	return &user, nil
}

func (r *userRepository) GetCart(ctx context.Context, userID string) (*entity.Cart, error) {
	oid, err := toObjectID(userID)
	if err != nil {
		return nil, repository.ErrNotFound
	}

	var doc struct {
		Cart entity.Cart `bson:"cart"`
	}
	opts := options.FindOne().SetProjection(bson.M{"cart": 1})
	if err := r.collection.FindOne(ctx, bson.M{"_id": oid}, opts).Decode(&doc); err != nil {
		return nil, notFoundOr(err, "failed to get cart for user %s", userID)
	}
	if doc.Cart.Items == nil {
		doc.Cart.Items = make([]entity.CartItem, 0)
	}
	return &doc.Cart, nil
}

func (r *userRepository) SaveCart(ctx context.Context, userID string, cart *entity.Cart) error {
	oid, err := toObjectID(userID)
	if err != nil {
		return repository.ErrNotFound
	}

	cart.UpdatedAt = time.Now().UTC()
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": bson.M{"cart": cart}})
	if err != nil {
		return fmt.Errorf("failed to save cart for user %s: %w", userID, err)
	}
	if res.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *userRepository) RemoveCartProduct(ctx context.Context, userID, productID string) (bool, error) {
	oid, err := toObjectID(userID)
	if err != nil {
		return false, repository.ErrNotFound
	}

	update := bson.M{
		"$pull": bson.M{"cart.items": bson.M{"productId": productID}},
		"$set":  bson.M{"cart.updatedAt": time.Now().UTC()},
	}
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": oid, "cart.items.productId": productID}, update)
	if err != nil {
		return false, fmt.Errorf("failed to remove product %s from cart of user %s: %w", productID, userID, err)
	}
	return res.ModifiedCount > 0, nil
}
