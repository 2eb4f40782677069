package service

import (
	"context"
	"errors"
	"testing"

	"github.com/donaldmo/pandopot-api/internal/domain/apperr"
	"github.com/donaldmo/pandopot-api/internal/domain/entity"
	"github.com/donaldmo/pandopot-api/internal/platform/logger"
	"github.com/donaldmo/pandopot-api/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func setupSearchService() (SearchService, *MockProductRepository, *MockMarketRepository) {
	products := new(MockProductRepository)
	markets := new(MockMarketRepository)
	return NewSearchService(products, markets, logger.NewNop()), products, markets
}

func TestSearchService_Search_BothCollectionsProductsFirst(t *testing.T) {
	ctx := context.Background()
	svc, products, markets := setupSearchService()

	filter := repository.ListingFilter{Query: "tent"}
	page := repository.Page{Limit: 2, Skip: 0}
	products.On("Search", ctx, filter, page).Return([]*entity.Product{{ID: "p1"}, {ID: "p2"}}, nil).Once()
	markets.On("Search", ctx, filter, page).Return([]*entity.Market{{ID: "m1"}, {ID: "m2"}}, nil).Once()

	result, err := svc.Search(ctx, SearchQuery{Query: " tent ", Page: 1, Size: 2})

	require.NoError(t, err)
	listings := result.Listings()
	require.Len(t, listings, 4)
	assert.Equal(t, "p1", listings[0].ListingID())
	assert.Equal(t, entity.ListingKindMarket, listings[2].Kind())
	assert.Equal(t, "m2", listings[3].ListingID())
}

func TestSearchService_Search_MarketOnly(t *testing.T) {
	ctx := context.Background()
	svc, products, markets := setupSearchService()

	filter := repository.ListingFilter{CategoryID: "c1"}
	markets.On("Search", ctx, filter, repository.Page{Limit: 10, Skip: 20}).Return([]*entity.Market{{ID: "m1"}}, nil).Once()

	result, err := svc.Search(ctx, SearchQuery{CategoryID: "c1", CategoryType: "market", Page: 3})

	require.NoError(t, err)
	assert.Len(t, result.Markets, 1)
	assert.Empty(t, result.Products)
	products.AssertNotCalled(t, "Search", mock.Anything, mock.Anything, mock.Anything)
}

func TestSearchService_Search_ProductOnly_ClampsSize(t *testing.T) {
	ctx := context.Background()
	svc, products, markets := setupSearchService()

	products.On("Search", ctx, repository.ListingFilter{}, repository.Page{Limit: 100, Skip: 0}).Return([]*entity.Product{}, nil).Once()

	_, err := svc.Search(ctx, SearchQuery{CategoryType: "product", Size: 1000})

	require.NoError(t, err)
	products.AssertExpectations(t)
	markets.AssertNotCalled(t, "Search", mock.Anything, mock.Anything, mock.Anything)
}

func TestSearchService_Search_StoreError(t *testing.T) {
	ctx := context.Background()
	svc, products, _ := setupSearchService()

	products.On("Search", ctx, mock.Anything, mock.Anything).Return(nil, errors.New("boom")).Once()

	_, err := svc.Search(ctx, SearchQuery{CategoryType: "product"})

	assert.ErrorIs(t, err, apperr.PersistenceFailure)
}

func TestSearchService_ListOwned_ScopesToOwner(t *testing.T) {
	ctx := context.Background()
	svc, products, markets := setupSearchService()

	filter := repository.ListingFilter{OwnerID: "u1"}
	page := repository.Page{Limit: 10, Skip: 10}
	products.On("Search", ctx, filter, page).Return([]*entity.Product{{ID: "p1"}}, nil).Once()
	markets.On("Search", ctx, filter, page).Return([]*entity.Market{{ID: "m1"}}, nil).Once()

	result, err := svc.ListOwned(ctx, "u1", SearchQuery{Page: 2})

	require.NoError(t, err)
	assert.Len(t, result.Listings(), 2)
	products.AssertExpectations(t)
	markets.AssertExpectations(t)
}

func TestSearchService_ListOwned_RequiresOwner(t *testing.T) {
	svc, products, _ := setupSearchService()

	_, err := svc.ListOwned(context.Background(), "", SearchQuery{})

	assert.ErrorIs(t, err, apperr.Validation)
	products.AssertNotCalled(t, "Search", mock.Anything, mock.Anything, mock.Anything)
}

func TestSearchService_Search_SubCategoryAndCategoryName(t *testing.T) {
	ctx := context.Background()
	svc, products, markets := setupSearchService()

	products.On("Search", ctx, repository.ListingFilter{SubCategory: "herbs"}, repository.Page{Limit: 10}).
		Return([]*entity.Product{{ID: "p1"}}, nil).Once()
	markets.On("Search", ctx, repository.ListingFilter{CategoryName: "Hiking"}, repository.Page{Limit: 10}).
		Return([]*entity.Market{{ID: "m1"}}, nil).Once()

	plants, err := svc.Search(ctx, SearchQuery{SubCategory: " herbs ", CategoryType: "product"})
	require.NoError(t, err)
	assert.Len(t, plants.Products, 1)

	hikes, err := svc.Search(ctx, SearchQuery{CategoryName: "Hiking", CategoryType: "market"})
	require.NoError(t, err)
	assert.Len(t, hikes.Markets, 1)

	products.AssertExpectations(t)
	markets.AssertExpectations(t)
}
