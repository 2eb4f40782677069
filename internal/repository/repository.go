package repository

import (
	"context"
	"time"

	"github.com/donaldmo/pandopot-api/internal/domain/entity"
)

// Page is a limit/skip window computed from a 1-indexed page number.
type Page struct {
	Limit int64
	Skip  int64
}

func NewPage(page, size int) Page {
	if page < 1 {
		page = 1
	}
	return Page{Limit: int64(size), Skip: int64((page - 1) * size)}
}

// ListingFilter combines its non-empty fields conjunctively.
type ListingFilter struct {
	Query        string
	CategoryID   string
	CategoryName string
	SubCategory  string
	OwnerID      string
}

type UserRepository interface {
	GetByID(ctx context.Context, userID string) (*entity.User, error)
	GetCart(ctx context.Context, userID string) (*entity.Cart, error)
	SaveCart(ctx context.Context, userID string, cart *entity.Cart) error
	// RemoveCartProduct pulls the line for productID and reports whether one was removed.
	RemoveCartProduct(ctx context.Context, userID, productID string) (bool, error)
}

type ProductRepository interface {
	Create(ctx context.Context, product *entity.Product) (string, error)
	GetByID(ctx context.Context, productID string) (*entity.Product, error)
	// GetByIDs returns the products that still exist, keyed by ID.
	GetByIDs(ctx context.Context, productIDs []string) (map[string]*entity.Product, error)
	Delete(ctx context.Context, productID, ownerID string) error
	// AppendBoosts pushes entries only if none of their names is active at now, else ErrConflict.
	AppendBoosts(ctx context.Context, productID, ownerID string, boosts []entity.BoostInfo, now time.Time) error
	CountActiveBoost(ctx context.Context, name string, now time.Time) (int64, error)
	FindActiveBoost(ctx context.Context, name string, now time.Time, page Page) ([]*entity.Product, error)
	Search(ctx context.Context, filter ListingFilter, page Page) ([]*entity.Product, error)
	UpdateCategorySnapshot(ctx context.Context, categoryID, name string) (int64, error)
}

type MarketRepository interface {
	Create(ctx context.Context, market *entity.Market) (string, error)
	GetByID(ctx context.Context, marketID string) (*entity.Market, error)
	Delete(ctx context.Context, marketID, ownerID string) error
	Search(ctx context.Context, filter ListingFilter, page Page) ([]*entity.Market, error)
	UpdateCategorySnapshot(ctx context.Context, categoryID, name string) (int64, error)
}

type OrderRepository interface {
	Create(ctx context.Context, order *entity.Order) (string, error)
	GetByID(ctx context.Context, orderID string) (*entity.Order, error)
	ListByBuyer(ctx context.Context, userID string, page Page) ([]*entity.Order, error)
	ListByOwner(ctx context.Context, ownerID string, page Page) ([]*entity.Order, error)
}

// SubscriptionRepository writes are all conditional; a lost race returns ErrConflict.
type SubscriptionRepository interface {
	GetByID(ctx context.Context, subscriptionID string) (*entity.Subscription, error)
	Consume(ctx context.Context, subscriptionID, userID string, item entity.UsageItem, now time.Time, reservationTTL time.Duration) error
	Reserve(ctx context.Context, subscriptionID, userID, reservationID string, now time.Time, reservationTTL time.Duration) error
	Commit(ctx context.Context, subscriptionID, reservationID string, item entity.UsageItem, now time.Time) error
	Release(ctx context.Context, subscriptionID, reservationID string) error
}

type CatalogRepository interface {
	CategoryByID(ctx context.Context, categoryID string) (*entity.Category, error)
	CategoryByName(ctx context.Context, name string) (*entity.Category, error)
	OrganisationByID(ctx context.Context, organisationID string) (*entity.Organisation, error)
}

type ProductCache interface {
	Get(ctx context.Context, productID string) (*entity.Product, error)
	Set(ctx context.Context, product *entity.Product, ttl time.Duration) error
	Delete(ctx context.Context, productID string) error
}

// IdempotencyStore guards charged operations against client retries.
type IdempotencyStore interface {
	// Acquire claims key and reports false when it is already held.
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Complete(ctx context.Context, key, resultID string, ttl time.Duration) error
	// Result returns the stored result ID, or ErrNotFound while the key is still in flight.
	Result(ctx context.Context, key string) (string, error)
	Release(ctx context.Context, key string) error
}
