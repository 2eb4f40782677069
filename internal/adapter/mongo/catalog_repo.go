package mongo

import (
	"context"

	"github.com/donaldmo/pandopot-api/internal/domain/entity"
	"github.com/donaldmo/pandopot-api/internal/repository"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type catalogRepository struct {
	categories    *mongo.Collection
	organisations *mongo.Collection
}

func NewCatalogRepository(db *mongo.Database) repository.CatalogRepository {
	return &catalogRepository{
		categories:    db.Collection(categoriesCollection),
		organisations: db.Collection(organisationsCollection),
	}
}

func (r *catalogRepository) CategoryByID(ctx context.Context, categoryID string) (*entity.Category, error) {
	oid, err := toObjectID(categoryID)
	if err != nil {
		return nil, repository.ErrNotFound
	}

	var category entity.Category
	if err := r.categories.FindOne(ctx, bson.M{"_id": oid}).Decode(&category); err != nil {
		return nil, notFoundOr(err, "failed to get category %s", categoryID)
	}
	return &category, nil
}

func (r *catalogRepository) CategoryByName(ctx context.Context, name string) (*entity.Category, error) {
	var category entity.Category
	if err := r.categories.FindOne(ctx, bson.M{"name": name}).Decode(&category); err != nil {
		return nil, notFoundOr(err, "failed to get category named %q", name)
	}
	return &category, nil
}

func (r *catalogRepository) OrganisationByID(ctx context.Context, organisationID string) (*entity.Organisation, error) {
	oid, err := toObjectID(organisationID)
	if err != nil {
		return nil, repository.ErrNotFound
	}

	var org entity.Organisation
	if err := r.organisations.FindOne(ctx, bson.M{"_id": oid}).Decode(&org); err != nil {
		return nil, notFoundOr(err, "failed to get organisation %s", organisationID)
	}
	return &org, nil
}
