package mongo

import (
	"context"
	"fmt"
	"time"

	"github.com/donaldmo/pandopot-api/internal/domain/entity"
	"github.com/donaldmo/pandopot-api/internal/repository"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type marketRepository struct {
	collection *mongo.Collection
}

func NewMarketRepository(db *mongo.Database) repository.MarketRepository {
	return &marketRepository{collection: db.Collection(marketsCollection)}
}

func (r *marketRepository) Create(ctx context.Context, market *entity.Market) (string, error) {
	now := time.Now().UTC()
	market.ID = ""
	market.CreatedAt = now
	market.UpdatedAt = now

	res, err := r.collection.InsertOne(ctx, market)
	if err != nil {
		return "", fmt.Errorf("failed to create market: %w", err)
	}
	id, err := insertedHex(res)
	if err != nil {
		return "", err
	}
	market.ID = id
	return id, nil
}

func (r *marketRepository) GetByID(ctx context.Context, marketID string) (*entity.Market, error) {
	oid, err := toObjectID(marketID)
	if err != nil {
		return nil, repository.ErrNotFound
	}

	var market entity.Market
	if err := r.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&market); err != nil {
		return nil, notFoundOr(err, "failed to get market %s", marketID)
	}
	return &market, nil
}

func (r *marketRepository) Delete(ctx context.Context, marketID, ownerID string) error {
	oid, err := toObjectID(marketID)
	if err != nil {
		return repository.ErrNotFound
	}

	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": oid, "author.userId": ownerID})
	if err != nil {
		return fmt.Errorf("failed to delete market %s: %w", marketID, err)
	}
	if res.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *marketRepository) Search(ctx context.Context, filter repository.ListingFilter, page repository.Page) ([]*entity.Market, error) {
	cur, err := r.collection.Find(ctx, listingSearchFilter(filter), findOptions(page))
	if err != nil {
		return nil, fmt.Errorf("failed to search markets: %w", err)
	}
	return decodeAll[entity.Market](ctx, cur)
}

func (r *marketRepository) UpdateCategorySnapshot(ctx context.Context, categoryID, name string) (int64, error) {
	res, err := r.collection.UpdateMany(ctx,
		bson.M{"category.categoryId": categoryID, "category.name": bson.M{"$ne": name}},
		bson.M{"$set": bson.M{"category.name": name, "updatedAt": time.Now().UTC()}},
	)
	if err != nil {
		return 0, fmt.Errorf("failed to resync category snapshot on markets: %w", err)
	}
	return res.ModifiedCount, nil
}
