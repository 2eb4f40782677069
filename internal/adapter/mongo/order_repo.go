package mongo

import (
	"context"
	"fmt"

	"github.com/donaldmo/pandopot-api/internal/domain/entity"
	"github.com/donaldmo/pandopot-api/internal/repository"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type orderRepository struct {
	collection *mongo.Collection
}

func NewOrderRepository(db *mongo.Database) repository.OrderRepository {
	return &orderRepository{collection: db.Collection(ordersCollection)}
}

func (r *orderRepository) Create(ctx context.Context, order *entity.Order) (string, error) {
	order.ID = ""
	res, err := r.collection.InsertOne(ctx, order)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return "", repository.ErrAlreadyExists
		}
		return "", fmt.Errorf("failed to create order: %w", err)
	}
	id, err := insertedHex(res)
	if err != nil {
		return "", err
	}
	order.ID = id
	return id, nil
}

func (r *orderRepository) GetByID(ctx context.Context, orderID string) (*entity.Order, error) {
	oid, err := toObjectID(orderID)
	if err != nil {
		return nil, repository.ErrNotFound
	}

	var order entity.Order
	if err := r.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&order); err != nil {
		return nil, notFoundOr(err, "failed to get order %s", orderID)
	}
	return &order, nil
}

func (r *orderRepository) list(ctx context.Context, filter bson.M, page repository.Page) ([]*entity.Order, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if page.Limit > 0 {
		opts.SetLimit(page.Limit)
	}
	if page.Skip > 0 {
		opts.SetSkip(page.Skip)
	}
	cur, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return decodeAll[entity.Order](ctx, cur)
}

func (r *orderRepository) ListByBuyer(ctx context.Context, userID string, page repository.Page) ([]*entity.Order, error) {
	return r.list(ctx, bson.M{"user.userId": userID}, page)
}

func (r *orderRepository) ListByOwner(ctx context.Context, ownerID string, page repository.Page) ([]*entity.Order, error) {
	return r.list(ctx, bson.M{"productOwner.userId": ownerID}, page)
}
