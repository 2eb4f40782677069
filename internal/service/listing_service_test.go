package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/donaldmo/pandopot-api/internal/domain/apperr"
	"github.com/donaldmo/pandopot-api/internal/domain/entity"
	"github.com/donaldmo/pandopot-api/internal/platform/logger"
	"github.com/donaldmo/pandopot-api/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockSubscriptionService struct {
	mock.Mock
}

func (m *MockSubscriptionService) Consume(ctx context.Context, userID, subscriptionID string, item entity.UsageItem) error {
	args := m.Called(ctx, userID, subscriptionID, item)
	return args.Error(0)
}

func (m *MockSubscriptionService) Reserve(ctx context.Context, userID, subscriptionID string) (string, error) {
	args := m.Called(ctx, userID, subscriptionID)
	return args.String(0), args.Error(1)
}

func (m *MockSubscriptionService) Commit(ctx context.Context, subscriptionID, reservationID string, item entity.UsageItem) error {
	args := m.Called(ctx, subscriptionID, reservationID, item)
	return args.Error(0)
}

func (m *MockSubscriptionService) Release(ctx context.Context, subscriptionID, reservationID string) error {
	args := m.Called(ctx, subscriptionID, reservationID)
	return args.Error(0)
}

type listingMocks struct {
	products      *MockProductRepository
	markets       *MockMarketRepository
	users         *MockUserRepository
	catalog       *MockCatalogRepository
	subscriptions *MockSubscriptionService
	cache         *MockProductCache
	publisher     *recordingPublisher
}

func setupListingService() (ListingService, *listingMocks) {
	m := &listingMocks{
		products:      new(MockProductRepository),
		markets:       new(MockMarketRepository),
		users:         new(MockUserRepository),
		catalog:       new(MockCatalogRepository),
		subscriptions: new(MockSubscriptionService),
		cache:         new(MockProductCache),
		publisher:     newRecordingPublisher(),
	}
	log := logger.NewNop()
	catalog := NewCatalogService(m.catalog, m.products, m.markets, log)
	svc := NewListingService(m.products, m.markets, m.users, catalog, m.subscriptions, m.cache, m.publisher, log, ListingServiceConfig{ProductCacheTTL: time.Minute})
	return svc, m
}

func productInput() CreateProductInput {
	return CreateProductInput{
		OwnerID:        "u1",
		SubscriptionID: "sub1",
		CategoryName:   "Camping",
		SubCategory:    "Tents",
		Name:           "Tent",
		Price:          1200,
		Units:          3,
	}
}

func expectOwnerAndCategory(m *listingMocks) {
	m.users.On("GetByID", mock.Anything, "u1").Return(&entity.User{ID: "u1", FirstName: "Thandi", LastName: "M"}, nil).Once()
	m.catalog.On("CategoryByName", mock.Anything, "Camping").Return(&entity.Category{ID: "c1", Name: "Camping"}, nil).Once()
}

func TestListingService_CreateProduct_Success(t *testing.T) {
	svc, m := setupListingService()
	expectOwnerAndCategory(m)

	m.subscriptions.On("Reserve", mock.Anything, "u1", "sub1").Return("res1", nil).Once()
	m.products.On("Create", mock.Anything, mock.MatchedBy(func(p *entity.Product) bool {
		return p.Author.UserID == "u1" && p.Author.Name == "Thandi M" &&
			p.Category.CategoryID == "c1" && p.Category.SubCategory == "Tents"
	})).Return("p1", nil).Once()
	m.subscriptions.On("Commit", mock.Anything, "sub1", "res1", entity.UsageItem{
		ItemType: entity.ListingKindProduct, Name: "Tent", ItemID: "p1",
	}).Return(nil).Once()

	product, err := svc.CreateProduct(context.Background(), productInput())

	require.NoError(t, err)
	assert.Equal(t, "p1", product.ID)
	assert.Equal(t, 1, m.publisher.count(SubjectListingCreated))
	m.subscriptions.AssertExpectations(t)
	m.products.AssertExpectations(t)
}

func TestListingService_CreateProduct_SubscriptionUsed_NoInsert(t *testing.T) {
	svc, m := setupListingService()
	expectOwnerAndCategory(m)

	m.subscriptions.On("Reserve", mock.Anything, "u1", "sub1").
		Return("", apperr.Wrap(apperr.KindConflict, "SubscriptionService.Reserve", entity.ErrSubscriptionUsed)).Once()

	_, err := svc.CreateProduct(context.Background(), productInput())

	assert.ErrorIs(t, err, apperr.Conflict)
	assert.ErrorIs(t, err, entity.ErrSubscriptionUsed)
	m.products.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestListingService_CreateProduct_InsertFailureReleases(t *testing.T) {
	svc, m := setupListingService()
	expectOwnerAndCategory(m)

	m.subscriptions.On("Reserve", mock.Anything, "u1", "sub1").Return("res1", nil).Once()
	m.products.On("Create", mock.Anything, mock.Anything).Return("", errors.New("write timeout")).Once()
	m.subscriptions.On("Release", mock.Anything, "sub1", "res1").Return(nil).Once()

	_, err := svc.CreateProduct(context.Background(), productInput())

	assert.ErrorIs(t, err, apperr.PersistenceFailure)
	m.subscriptions.AssertExpectations(t)
	m.subscriptions.AssertNotCalled(t, "Commit", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestListingService_CreateProduct_CommitFailureCompensates(t *testing.T) {
	svc, m := setupListingService()
	expectOwnerAndCategory(m)

	commitErr := apperr.Wrap(apperr.KindConflict, "SubscriptionService.Commit", repository.ErrConflict)
	m.subscriptions.On("Reserve", mock.Anything, "u1", "sub1").Return("res1", nil).Once()
	m.products.On("Create", mock.Anything, mock.Anything).Return("p1", nil).Once()
	m.subscriptions.On("Commit", mock.Anything, "sub1", "res1", mock.Anything).Return(commitErr).Once()
	m.products.On("Delete", mock.Anything, "p1", "u1").Return(nil).Once()
	m.subscriptions.On("Release", mock.Anything, "sub1", "res1").Return(nil).Once()

	_, err := svc.CreateProduct(context.Background(), productInput())

	assert.ErrorIs(t, err, apperr.Conflict)
	m.products.AssertExpectations(t)
	m.subscriptions.AssertExpectations(t)
	assert.Equal(t, 0, m.publisher.count(SubjectListingCreated))
}

func TestListingService_CreateProduct_UnknownCategory(t *testing.T) {
	svc, m := setupListingService()

	m.users.On("GetByID", mock.Anything, "u1").Return(&entity.User{ID: "u1"}, nil).Once()
	m.catalog.On("CategoryByName", mock.Anything, "Camping").Return(nil, repository.ErrNotFound).Once()

	_, err := svc.CreateProduct(context.Background(), productInput())

	assert.ErrorIs(t, err, apperr.NotFound)
	m.subscriptions.AssertNotCalled(t, "Reserve", mock.Anything, mock.Anything, mock.Anything)
}

func TestListingService_CreateMarket_WithOrganisationAndHiking(t *testing.T) {
	svc, m := setupListingService()

	m.users.On("GetByID", mock.Anything, "u1").Return(&entity.User{ID: "u1", FirstName: "Sipho"}, nil).Once()
	m.catalog.On("CategoryByID", mock.Anything, "c9").Return(&entity.Category{ID: "c9", Name: "Hiking"}, nil).Once()
	m.catalog.On("OrganisationByID", mock.Anything, "o1").Return(&entity.Organisation{ID: "o1", Name: "Trail Club"}, nil).Once()
	m.markets.On("Create", mock.Anything, mock.MatchedBy(func(mk *entity.Market) bool {
		return mk.Organisation != nil && mk.Organisation.Name == "Trail Club" &&
			mk.Hiking != nil && mk.Hiking.TrailLevel == "hard" && mk.Category.Name == "Hiking"
	})).Return("m1", nil).Once()

	market, err := svc.CreateMarket(context.Background(), CreateMarketInput{
		OwnerID:        "u1",
		CategoryID:     "c9",
		OrganisationID: "o1",
		Name:           "Drakensberg Trails",
		Hiking:         &entity.HikingProfile{TrailType: "mountain", TrailLevel: "hard", PriceStart: 100, PriceEnd: 300},
	})

	require.NoError(t, err)
	assert.Equal(t, "m1", market.ID)
	m.subscriptions.AssertNotCalled(t, "Reserve", mock.Anything, mock.Anything, mock.Anything)
	m.markets.AssertExpectations(t)
}

func TestListingService_GetProduct_CacheMissPopulates(t *testing.T) {
	ctx := context.Background()
	svc, m := setupListingService()

	product := &entity.Product{ID: "p1", Name: "Tent"}
	m.cache.On("Get", ctx, "p1").Return(nil, repository.ErrNotFound).Once()
	m.products.On("GetByID", ctx, "p1").Return(product, nil).Once()
	m.cache.On("Set", ctx, product, time.Minute).Return(nil).Once()

	got, err := svc.GetProduct(ctx, "p1")

	require.NoError(t, err)
	assert.Equal(t, product, got)
	m.cache.AssertExpectations(t)
}

func TestListingService_GetProduct_CacheHit(t *testing.T) {
	ctx := context.Background()
	svc, m := setupListingService()

	m.cache.On("Get", ctx, "p1").Return(&entity.Product{ID: "p1"}, nil).Once()

	got, err := svc.GetProduct(ctx, "p1")

	require.NoError(t, err)
	assert.Equal(t, "p1", got.ID)
	m.products.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}

func TestListingService_DeleteProduct_InvalidatesCache(t *testing.T) {
	ctx := context.Background()
	svc, m := setupListingService()

	m.products.On("Delete", ctx, "p1", "u1").Return(nil).Once()
	m.cache.On("Delete", ctx, "p1").Return(nil).Once()

	require.NoError(t, svc.DeleteProduct(ctx, "u1", "p1"))
	m.cache.AssertExpectations(t)
}
