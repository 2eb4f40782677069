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

type productRepository struct {
	collection *mongo.Collection
}

func NewProductRepository(db *mongo.Database) repository.ProductRepository {
	return &productRepository{collection: db.Collection(productsCollection)}
}

func (r *productRepository) Create(ctx context.Context, product *entity.Product) (string, error) {
	now := time.Now().UTC()
	product.ID = ""
	product.CreatedAt = now
	product.UpdatedAt = now
	if product.BoostInfo == nil {
		product.BoostInfo = make([]entity.BoostInfo, 0)
	}

	res, err := r.collection.InsertOne(ctx, product)
	if err != nil {
		return "", fmt.Errorf("failed to create product: %w", err)
	}
	id, err := insertedHex(res)
	if err != nil {
		return "", err
	}
	product.ID = id
	return id, nil
}

func (r *productRepository) GetByID(ctx context.Context, productID string) (*entity.Product, error) {
	oid, err := toObjectID(productID)
	if err != nil {
		return nil, repository.ErrNotFound
	}

	var product entity.Product
	if err := r.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&product); err != nil {
		return nil, notFoundOr(err, "failed to get product %s", productID)
	}
	return &product, nil
}

func (r *productRepository) GetByIDs(ctx context.Context, productIDs []string) (map[string]*entity.Product, error) {
	oids := make([]primitive.ObjectID, 0, len(productIDs))
	for _, id := range productIDs {
		if oid, err := toObjectID(id); err == nil {
			oids = append(oids, oid)
		}
	}
	found := make(map[string]*entity.Product, len(oids))
	if len(oids) == 0 {
		return found, nil
	}

	cur, err := r.collection.Find(ctx, bson.M{"_id": bson.M{"$in": oids}})
	if err != nil {
		return nil, fmt.Errorf("failed to find products by ids: %w", err)
	}
	products, err := decodeAll[entity.Product](ctx, cur)
	if err != nil {
		return nil, err
	}
	for _, p := range products {
		found[p.ID] = p
	}
	return found, nil
}

func (r *productRepository) Delete(ctx context.Context, productID, ownerID string) error {
	oid, err := toObjectID(productID)
	if err != nil {
		return repository.ErrNotFound
	}

	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": oid, "author.userId": ownerID})
	if err != nil {
		return fmt.Errorf("failed to delete product %s: %w", productID, err)
	}
	if res.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func activeBoostMatch(names []string, now time.Time) bson.M {
	nameCond := interface{}(bson.M{"$in": names})
	if len(names) == 1 {
		nameCond = names[0]
	}
	return bson.M{"$elemMatch": bson.M{"name": nameCond, "expiryDate": bson.M{"$gt": now}}}
}

func (r *productRepository) AppendBoosts(ctx context.Context, productID, ownerID string, boosts []entity.BoostInfo, now time.Time) error {
	oid, err := toObjectID(productID)
	if err != nil {
		return repository.ErrNotFound
	}

	names := make([]string, 0, len(boosts))
	for _, b := range boosts {
		names = append(names, b.Name)
	}

	filter := bson.M{
		"_id":           oid,
		"author.userId": ownerID,
		"boostInfo":     bson.M{"$not": activeBoostMatch(names, now)},
	}
	update := bson.M{
		"$push": bson.M{"boostInfo": bson.M{"$each": boosts}},
		"$set":  bson.M{"updatedAt": now},
	}

	res, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to append boosts to product %s: %w", productID, err)
	}
	if res.MatchedCount == 0 {
		count, errCount := r.collection.CountDocuments(ctx, bson.M{"_id": oid, "author.userId": ownerID})
		if errCount == nil && count == 0 {
			return repository.ErrNotFound
		}
		return repository.ErrConflict
	}
	return nil
}

func (r *productRepository) CountActiveBoost(ctx context.Context, name string, now time.Time) (int64, error) {
	count, err := r.collection.CountDocuments(ctx, bson.M{"boostInfo": activeBoostMatch([]string{name}, now)})
	if err != nil {
		return 0, fmt.Errorf("failed to count products boosted with %q: %w", name, err)
	}
	return count, nil
}

func (r *productRepository) FindActiveBoost(ctx context.Context, name string, now time.Time, page repository.Page) ([]*entity.Product, error) {
	cur, err := r.collection.Find(ctx, bson.M{"boostInfo": activeBoostMatch([]string{name}, now)}, findOptions(page))
	if err != nil {
		return nil, fmt.Errorf("failed to find products boosted with %q: %w", name, err)
	}
	return decodeAll[entity.Product](ctx, cur)
}

func listingSearchFilter(filter repository.ListingFilter) bson.M {
	query := bson.M{}
	if filter.Query != "" {
		query["$text"] = bson.M{"$search": filter.Query}
	}
	if filter.CategoryID != "" {
		query["category.categoryId"] = filter.CategoryID
	}
	if filter.CategoryName != "" {
		query["category.name"] = filter.CategoryName
	}
	if filter.SubCategory != "" {
		query["category.subCategory"] = filter.SubCategory
	}
	if filter.OwnerID != "" {
		query["author.userId"] = filter.OwnerID
	}
	return query
}

func (r *productRepository) Search(ctx context.Context, filter repository.ListingFilter, page repository.Page) ([]*entity.Product, error) {
	cur, err := r.collection.Find(ctx, listingSearchFilter(filter), findOptions(page))
	if err != nil {
		return nil, fmt.Errorf("failed to search products: %w", err)
	}
	return decodeAll[entity.Product](ctx, cur)
}

func (r *productRepository) UpdateCategorySnapshot(ctx context.Context, categoryID, name string) (int64, error) {
	res, err := r.collection.UpdateMany(ctx,
		bson.M{"category.categoryId": categoryID, "category.name": bson.M{"$ne": name}},
		bson.M{"$set": bson.M{"category.name": name, "updatedAt": time.Now().UTC()}},
	)
	if err != nil {
		return 0, fmt.Errorf("failed to resync category snapshot on products: %w", err)
	}
	return res.ModifiedCount, nil
}
