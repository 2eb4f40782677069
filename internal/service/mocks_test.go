package service

import (
	"context"
	"sync"
	"time"

	"github.com/donaldmo/pandopot-api/internal/adapter/payment"
	"github.com/donaldmo/pandopot-api/internal/domain/entity"
	"github.com/donaldmo/pandopot-api/internal/repository"
	"github.com/stretchr/testify/mock"
)

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) GetByID(ctx context.Context, userID string) (*entity.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.User), args.Error(1)
}

func (m *MockUserRepository) GetCart(ctx context.Context, userID string) (*entity.Cart, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Cart), args.Error(1)
}

func (m *MockUserRepository) SaveCart(ctx context.Context, userID string, cart *entity.Cart) error {
	args := m.Called(ctx, userID, cart)
	return args.Error(0)
}

func (m *MockUserRepository) RemoveCartProduct(ctx context.Context, userID, productID string) (bool, error) {
	args := m.Called(ctx, userID, productID)
	return args.Bool(0), args.Error(1)
}

type MockProductRepository struct {
	mock.Mock
}

func (m *MockProductRepository) Create(ctx context.Context, product *entity.Product) (string, error) {
	args := m.Called(ctx, product)
	return args.String(0), args.Error(1)
}

func (m *MockProductRepository) GetByID(ctx context.Context, productID string) (*entity.Product, error) {
	args := m.Called(ctx, productID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Product), args.Error(1)
}

func (m *MockProductRepository) GetByIDs(ctx context.Context, productIDs []string) (map[string]*entity.Product, error) {
	args := m.Called(ctx, productIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]*entity.Product), args.Error(1)
}

func (m *MockProductRepository) Delete(ctx context.Context, productID, ownerID string) error {
	args := m.Called(ctx, productID, ownerID)
	return args.Error(0)
}

func (m *MockProductRepository) AppendBoosts(ctx context.Context, productID, ownerID string, boosts []entity.BoostInfo, now time.Time) error {
	args := m.Called(ctx, productID, ownerID, boosts, now)
	return args.Error(0)
}

func (m *MockProductRepository) CountActiveBoost(ctx context.Context, name string, now time.Time) (int64, error) {
	args := m.Called(ctx, name, now)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockProductRepository) FindActiveBoost(ctx context.Context, name string, now time.Time, page repository.Page) ([]*entity.Product, error) {
	args := m.Called(ctx, name, now, page)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entity.Product), args.Error(1)
}

func (m *MockProductRepository) Search(ctx context.Context, filter repository.ListingFilter, page repository.Page) ([]*entity.Product, error) {
	args := m.Called(ctx, filter, page)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entity.Product), args.Error(1)
}

func (m *MockProductRepository) UpdateCategorySnapshot(ctx context.Context, categoryID, name string) (int64, error) {
	args := m.Called(ctx, categoryID, name)
	return args.Get(0).(int64), args.Error(1)
}

type MockMarketRepository struct {
	mock.Mock
}

func (m *MockMarketRepository) Create(ctx context.Context, market *entity.Market) (string, error) {
	args := m.Called(ctx, market)
	return args.String(0), args.Error(1)
}

func (m *MockMarketRepository) GetByID(ctx context.Context, marketID string) (*entity.Market, error) {
	args := m.Called(ctx, marketID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Market), args.Error(1)
}

func (m *MockMarketRepository) Delete(ctx context.Context, marketID, ownerID string) error {
	args := m.Called(ctx, marketID, ownerID)
	return args.Error(0)
}

func (m *MockMarketRepository) Search(ctx context.Context, filter repository.ListingFilter, page repository.Page) ([]*entity.Market, error) {
	args := m.Called(ctx, filter, page)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entity.Market), args.Error(1)
}

func (m *MockMarketRepository) UpdateCategorySnapshot(ctx context.Context, categoryID, name string) (int64, error) {
	args := m.Called(ctx, categoryID, name)
	return args.Get(0).(int64), args.Error(1)
}

type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) Create(ctx context.Context, order *entity.Order) (string, error) {
	args := m.Called(ctx, order)
	return args.String(0), args.Error(1)
}

func (m *MockOrderRepository) GetByID(ctx context.Context, orderID string) (*entity.Order, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Order), args.Error(1)
}

func (m *MockOrderRepository) ListByBuyer(ctx context.Context, userID string, page repository.Page) ([]*entity.Order, error) {
	args := m.Called(ctx, userID, page)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entity.Order), args.Error(1)
}

func (m *MockOrderRepository) ListByOwner(ctx context.Context, ownerID string, page repository.Page) ([]*entity.Order, error) {
	args := m.Called(ctx, ownerID, page)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entity.Order), args.Error(1)
}

type MockSubscriptionRepository struct {
	mock.Mock
}

func (m *MockSubscriptionRepository) GetByID(ctx context.Context, subscriptionID string) (*entity.Subscription, error) {
	args := m.Called(ctx, subscriptionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Subscription), args.Error(1)
}

func (m *MockSubscriptionRepository) Consume(ctx context.Context, subscriptionID, userID string, item entity.UsageItem, now time.Time, reservationTTL time.Duration) error {
	args := m.Called(ctx, subscriptionID, userID, item, now, reservationTTL)
	return args.Error(0)
}

func (m *MockSubscriptionRepository) Reserve(ctx context.Context, subscriptionID, userID, reservationID string, now time.Time, reservationTTL time.Duration) error {
	args := m.Called(ctx, subscriptionID, userID, reservationID, now, reservationTTL)
	return args.Error(0)
}

func (m *MockSubscriptionRepository) Commit(ctx context.Context, subscriptionID, reservationID string, item entity.UsageItem, now time.Time) error {
	args := m.Called(ctx, subscriptionID, reservationID, item, now)
	return args.Error(0)
}

func (m *MockSubscriptionRepository) Release(ctx context.Context, subscriptionID, reservationID string) error {
	args := m.Called(ctx, subscriptionID, reservationID)
	return args.Error(0)
}

type MockCatalogRepository struct {
	mock.Mock
}

func (m *MockCatalogRepository) CategoryByID(ctx context.Context, categoryID string) (*entity.Category, error) {
	args := m.Called(ctx, categoryID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Category), args.Error(1)
}

func (m *MockCatalogRepository) CategoryByName(ctx context.Context, name string) (*entity.Category, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Category), args.Error(1)
}

func (m *MockCatalogRepository) OrganisationByID(ctx context.Context, organisationID string) (*entity.Organisation, error) {
	args := m.Called(ctx, organisationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Organisation), args.Error(1)
}

type MockProductCache struct {
	mock.Mock
}

func (m *MockProductCache) Get(ctx context.Context, productID string) (*entity.Product, error) {
	args := m.Called(ctx, productID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Product), args.Error(1)
}

func (m *MockProductCache) Set(ctx context.Context, product *entity.Product, ttl time.Duration) error {
	args := m.Called(ctx, product, ttl)
	return args.Error(0)
}

func (m *MockProductCache) Delete(ctx context.Context, productID string) error {
	args := m.Called(ctx, productID)
	return args.Error(0)
}

type MockIdempotencyStore struct {
	mock.Mock
}

func (m *MockIdempotencyStore) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, key, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *MockIdempotencyStore) Complete(ctx context.Context, key, resultID string, ttl time.Duration) error {
	args := m.Called(ctx, key, resultID, ttl)
	return args.Error(0)
}

func (m *MockIdempotencyStore) Result(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}

func (m *MockIdempotencyStore) Release(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) Charge(ctx context.Context, req payment.ChargeRequest) (*payment.Charge, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Charge), args.Error(1)
}

type MockSecretStore struct {
	mock.Mock
}

func (m *MockSecretStore) PaymentKey(ctx context.Context, accountID string) (string, error) {
	args := m.Called(ctx, accountID)
	return args.String(0), args.Error(1)
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) SendReceipt(ctx context.Context, receipt Receipt) {
	m.Called(ctx, receipt)
}

func (m *MockNotifier) SendContactMessage(ctx context.Context, msg ContactMessage) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *MockNotifier) Wait() {}

// recordingPublisher captures published events by subject.
type recordingPublisher struct {
	mu     sync.Mutex
	events map[string][]interface{}
	err    error
}

func newRecordingPublisher() *recordingPublisher {
	return &recordingPublisher{events: make(map[string][]interface{})}
}

func (p *recordingPublisher) Publish(ctx context.Context, subject string, message interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events[subject] = append(p.events[subject], message)
	return p.err
}

func (p *recordingPublisher) count(subject string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events[subject])
}

type MockEmailSender struct {
	mock.Mock
}

func (m *MockEmailSender) Send(ctx context.Context, to []string, subject, bodyHTML, bodyText string) error {
	args := m.Called(ctx, to, subject, bodyHTML, bodyText)
	return args.Error(0)
}

type MockReceiptArchiver struct {
	mock.Mock
}

func (m *MockReceiptArchiver) Put(ctx context.Context, kind, ref string, receipt interface{}) (string, error) {
	args := m.Called(ctx, kind, ref, receipt)
	return args.String(0), args.Error(1)
}
