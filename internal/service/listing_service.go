package service

import (
	"context"
	"errors"
	"time"

	"github.com/donaldmo/pandopot-api/internal/domain/apperr"
	"github.com/donaldmo/pandopot-api/internal/domain/entity"
	"github.com/donaldmo/pandopot-api/internal/platform/logger"
	"github.com/donaldmo/pandopot-api/internal/repository"
)

const defaultProductCacheTTL = 5 * time.Minute

type CreateProductInput struct {
	OwnerID        string
	SubscriptionID string
	// CategoryID wins over CategoryName when both are set.
	CategoryID    string
	CategoryName  string
	SubCategory   string
	Name          string
	Description   string
	Price         float64
	ReducedPrice  float64
	DeliveryTerms string
	DeliveryPrice float64
	Units         int
	Province      string
	City          string
	Images        []string
}

type CreateMarketInput struct {
	OwnerID        string
	CategoryID     string
	SubCategory    string
	OrganisationID string
	Name           string
	Description    string
	Location       string
	Phone          string
	Email          string
	Website        string
	Images         []string
	Hiking         *entity.HikingProfile
}

type ListingService interface {
	// CreateProduct publishes a product, spending one subscription entitlement.
	CreateProduct(ctx context.Context, in CreateProductInput) (*entity.Product, error)
	CreateMarket(ctx context.Context, in CreateMarketInput) (*entity.Market, error)
	GetProduct(ctx context.Context, productID string) (*entity.Product, error)
	GetMarket(ctx context.Context, marketID string) (*entity.Market, error)
	DeleteProduct(ctx context.Context, ownerID, productID string) error
	DeleteMarket(ctx context.Context, ownerID, marketID string) error
}

type listingService struct {
	products      repository.ProductRepository
	markets       repository.MarketRepository
	users         repository.UserRepository
	catalog       CatalogService
	subscriptions SubscriptionService
	cache         repository.ProductCache
	publisher     EventPublisher
	log           logger.Logger
	cacheTTL      time.Duration
}

type ListingServiceConfig struct {
	ProductCacheTTL time.Duration
}

func NewListingService(
	products repository.ProductRepository,
	markets repository.MarketRepository,
	users repository.UserRepository,
	catalog CatalogService,
	subscriptions SubscriptionService,
	cache repository.ProductCache,
	publisher EventPublisher,
	log logger.Logger,
	cfg ListingServiceConfig,
) ListingService {
	ttl := cfg.ProductCacheTTL
	if ttl <= 0 {
		ttl = defaultProductCacheTTL
	}
	return &listingService{
		products:      products,
		markets:       markets,
		users:         users,
		catalog:       catalog,
		subscriptions: subscriptions,
		cache:         cache,
		publisher:     publisher,
		log:           log,
		cacheTTL:      ttl,
	}
}

func (s *listingService) resolveCategory(ctx context.Context, categoryID, categoryName string) (*entity.Category, error) {
	if categoryID != "" {
		return s.catalog.CategoryByID(ctx, categoryID)
	}
	return s.catalog.CategoryByName(ctx, categoryName)
}

func (s *listingService) loadOwner(ctx context.Context, op, ownerID string) (*entity.User, error) {
	if ownerID == "" {
		return nil, apperr.NewValidation(op, "owner ID is required")
	}
	owner, err := s.users.GetByID(ctx, ownerID)
	if err != nil {
		s.log.Errorf("%s: failed to load user %s: %v", op, ownerID, err)
		return nil, storeErr(op, err, "user")
	}
	return owner, nil
}

func (s *listingService) CreateProduct(ctx context.Context, in CreateProductInput) (*entity.Product, error) {
	const op = "ListingService.CreateProduct"
	s.log.Infof("Creating product: OwnerID=%s, SubscriptionID=%s, Name=%s", in.OwnerID, in.SubscriptionID, in.Name)

	if in.SubscriptionID == "" {
		return nil, apperr.NewValidation(op, "subscription ID is required")
	}
	now := time.Now().UTC()
	product := &entity.Product{
		Name:          in.Name,
		Description:   in.Description,
		Price:         in.Price,
		ReducedPrice:  in.ReducedPrice,
		DeliveryTerms: in.DeliveryTerms,
		DeliveryPrice: in.DeliveryPrice,
		Units:         in.Units,
		Province:      in.Province,
		City:          in.City,
		Images:        in.Images,
		BoostInfo:     []entity.BoostInfo{},
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := product.Validate(); err != nil {
		return nil, apperr.Wrap(apperr.KindValidation, op, err)
	}

	owner, err := s.loadOwner(ctx, op, in.OwnerID)
	if err != nil {
		return nil, err
	}
	category, err := s.resolveCategory(ctx, in.CategoryID, in.CategoryName)
	if err != nil {
		return nil, err
	}
	product.Author = owner.AsAuthor()
	product.Category = category.Snapshot(in.SubCategory)

	reservationID, err := s.subscriptions.Reserve(ctx, in.OwnerID, in.SubscriptionID)
	if err != nil {
		return nil, err
	}

	// Past this point every exit either commits the reservation or hands it back.
	cleanupCtx := context.WithoutCancel(ctx)

	productID, err := s.products.Create(ctx, product)
	if err != nil {
		s.log.Errorf("%s: insert failed, releasing subscription %s: %v", op, in.SubscriptionID, err)
		s.release(cleanupCtx, in.SubscriptionID, reservationID)
		return nil, storeErr(op, err, "product")
	}
	product.ID = productID

	item := entity.UsageItem{ItemType: entity.ListingKindProduct, Name: product.Name, ItemID: productID}
	if err := s.subscriptions.Commit(cleanupCtx, in.SubscriptionID, reservationID, item); err != nil {
		s.log.Errorf("%s: commit failed for subscription %s, removing product %s: %v", op, in.SubscriptionID, productID, err)
		if delErr := s.products.Delete(cleanupCtx, productID, in.OwnerID); delErr != nil {
			s.log.Errorf("%s: compensating delete of product %s failed: %v", op, productID, delErr)
		}
		s.release(cleanupCtx, in.SubscriptionID, reservationID)
		return nil, err
	}

	publishEvent(ctx, s.publisher, s.log, SubjectListingCreated, ListingCreatedEvent{
		ListingID:      productID,
		Kind:           entity.ListingKindProduct,
		OwnerID:        in.OwnerID,
		SubscriptionID: in.SubscriptionID,
		CreatedAt:      now,
	})
	s.log.Infof("Product %s created by %s using subscription %s", productID, in.OwnerID, in.SubscriptionID)
	return product, nil
}

func (s *listingService) release(ctx context.Context, subscriptionID, reservationID string) {
	if err := s.subscriptions.Release(ctx, subscriptionID, reservationID); err != nil {
		s.log.Errorf("Subscription %s left reserved (reservation %s): %v", subscriptionID, reservationID, err)
	}
}

func (s *listingService) CreateMarket(ctx context.Context, in CreateMarketInput) (*entity.Market, error) {
	const op = "ListingService.CreateMarket"
	s.log.Infof("Creating market: OwnerID=%s, Name=%s", in.OwnerID, in.Name)

	now := time.Now().UTC()
	market := &entity.Market{
		Name:        in.Name,
		Description: in.Description,
		Location:    in.Location,
		Phone:       in.Phone,
		Email:       in.Email,
		Website:     in.Website,
		Images:      in.Images,
		Hiking:      in.Hiking,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := market.Validate(); err != nil {
		return nil, apperr.Wrap(apperr.KindValidation, op, err)
	}

	owner, err := s.loadOwner(ctx, op, in.OwnerID)
	if err != nil {
		return nil, err
	}
	category, err := s.catalog.CategoryByID(ctx, in.CategoryID)
	if err != nil {
		return nil, err
	}
	market.Author = owner.AsAuthor()
	market.Category = category.Snapshot(in.SubCategory)

	if in.OrganisationID != "" {
		org, err := s.catalog.OrganisationByID(ctx, in.OrganisationID)
		if err != nil {
			return nil, err
		}
		snapshot := org.Snapshot()
		market.Organisation = &snapshot
	}

	marketID, err := s.markets.Create(ctx, market)
	if err != nil {
		s.log.Errorf("%s: insert failed: %v", op, err)
		return nil, storeErr(op, err, "market")
	}
	market.ID = marketID

	publishEvent(ctx, s.publisher, s.log, SubjectListingCreated, ListingCreatedEvent{
		ListingID: marketID,
		Kind:      entity.ListingKindMarket,
		OwnerID:   in.OwnerID,
		CreatedAt: now,
	})
	return market, nil
}

func (s *listingService) GetProduct(ctx context.Context, productID string) (*entity.Product, error) {
	const op = "ListingService.GetProduct"
	if productID == "" {
		return nil, apperr.NewValidation(op, "product ID is required")
	}

	if s.cache != nil {
		cached, err := s.cache.Get(ctx, productID)
		if err == nil && cached != nil {
			s.log.Debugf("Product %s found in cache", productID)
			return cached, nil
		}
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			s.log.Warnf("Error getting product %s from cache: %v. Fetching from store.", productID, err)
		}
	}

	product, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return nil, storeErr(op, err, "product")
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, product, s.cacheTTL); err != nil {
			s.log.Warnf("Failed to set product %s to cache: %v", productID, err)
		}
	}
	return product, nil
}

func (s *listingService) GetMarket(ctx context.Context, marketID string) (*entity.Market, error) {
	const op = "ListingService.GetMarket"
	if marketID == "" {
		return nil, apperr.NewValidation(op, "market ID is required")
	}
	market, err := s.markets.GetByID(ctx, marketID)
	if err != nil {
		return nil, storeErr(op, err, "market")
	}
	return market, nil
}

func (s *listingService) DeleteProduct(ctx context.Context, ownerID, productID string) error {
	const op = "ListingService.DeleteProduct"
	s.log.Infof("Deleting product: OwnerID=%s, ProductID=%s", ownerID, productID)

	if err := s.products.Delete(ctx, productID, ownerID); err != nil {
		return storeErr(op, err, "product")
	}
	invalidateProduct(ctx, s.cache, s.log, productID)
	return nil
}

func (s *listingService) DeleteMarket(ctx context.Context, ownerID, marketID string) error {
	const op = "ListingService.DeleteMarket"
	s.log.Infof("Deleting market: OwnerID=%s, MarketID=%s", ownerID, marketID)

	if err := s.markets.Delete(ctx, marketID, ownerID); err != nil {
		return storeErr(op, err, "market")
	}
	return nil
}

func invalidateProduct(ctx context.Context, cache repository.ProductCache, log logger.Logger, productID string) {
	if cache == nil {
		return
	}
	if err := cache.Delete(ctx, productID); err != nil {
		log.Warnf("Failed to invalidate cached product %s: %v", productID, err)
	}
}
