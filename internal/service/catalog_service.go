package service

import (
	"context"
	"strings"

	"github.com/donaldmo/pandopot-api/internal/domain/apperr"
	"github.com/donaldmo/pandopot-api/internal/domain/entity"
	"github.com/donaldmo/pandopot-api/internal/platform/logger"
	"github.com/donaldmo/pandopot-api/internal/repository"
)

type CatalogService interface {
	CategoryByID(ctx context.Context, categoryID string) (*entity.Category, error)
	CategoryByName(ctx context.Context, name string) (*entity.Category, error)
	OrganisationByID(ctx context.Context, organisationID string) (*entity.Organisation, error)
	// ResyncCategorySnapshots rewrites the category name copied onto existing listings.
	ResyncCategorySnapshots(ctx context.Context, categoryID string) (ResyncResult, error)
}

type ResyncResult struct {
	CategoryID      string `json:"categoryId"`
	Name            string `json:"name"`
	ProductsUpdated int64  `json:"productsUpdated"`
	MarketsUpdated  int64  `json:"marketsUpdated"`
}

type catalogService struct {
	catalog  repository.CatalogRepository
	products repository.ProductRepository
	markets  repository.MarketRepository
	log      logger.Logger
}

func NewCatalogService(
	catalog repository.CatalogRepository,
	products repository.ProductRepository,
	markets repository.MarketRepository,
	log logger.Logger,
) CatalogService {
	return &catalogService{catalog: catalog, products: products, markets: markets, log: log}
}

func (s *catalogService) CategoryByID(ctx context.Context, categoryID string) (*entity.Category, error) {
	const op = "CatalogService.CategoryByID"
	if strings.TrimSpace(categoryID) == "" {
		return nil, apperr.NewValidation(op, "category ID is required")
	}
	category, err := s.catalog.CategoryByID(ctx, categoryID)
	if err != nil {
		return nil, storeErr(op, err, "category")
	}
	return category, nil
}

func (s *catalogService) CategoryByName(ctx context.Context, name string) (*entity.Category, error) {
	const op = "CatalogService.CategoryByName"
	if strings.TrimSpace(name) == "" {
		return nil, apperr.NewValidation(op, "category name is required")
	}
	category, err := s.catalog.CategoryByName(ctx, name)
	if err != nil {
		return nil, storeErr(op, err, "category")
	}
	return category, nil
}

func (s *catalogService) OrganisationByID(ctx context.Context, organisationID string) (*entity.Organisation, error) {
	const op = "CatalogService.OrganisationByID"
	if strings.TrimSpace(organisationID) == "" {
		return nil, apperr.NewValidation(op, "organisation ID is required")
	}
	org, err := s.catalog.OrganisationByID(ctx, organisationID)
	if err != nil {
		return nil, storeErr(op, err, "organisation")
	}
	return org, nil
}

func (s *catalogService) ResyncCategorySnapshots(ctx context.Context, categoryID string) (ResyncResult, error) {
	const op = "CatalogService.ResyncCategorySnapshots"

	category, err := s.CategoryByID(ctx, categoryID)
	if err != nil {
		return ResyncResult{}, err
	}

	result := ResyncResult{CategoryID: category.ID, Name: category.Name}
	result.ProductsUpdated, err = s.products.UpdateCategorySnapshot(ctx, category.ID, category.Name)
	if err != nil {
		s.log.Errorf("%s: products update for category %s failed: %v", op, category.ID, err)
		return result, storeErr(op, err, "category")
	}
	result.MarketsUpdated, err = s.markets.UpdateCategorySnapshot(ctx, category.ID, category.Name)
	if err != nil {
		s.log.Errorf("%s: markets update for category %s failed: %v", op, category.ID, err)
		return result, storeErr(op, err, "category")
	}

	s.log.Infof("Category %s resynced: %d products, %d markets", category.ID, result.ProductsUpdated, result.MarketsUpdated)
	return result, nil
}
