//go:build integration

package mongo

import (
	"context"
	"fmt"
	"log"
	"os"
	"testing"
	"time"

	"github.com/donaldmo/pandopot-api/internal/domain/entity"
	"github.com/donaldmo/pandopot-api/internal/repository"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var testDB *mongo.Database

func TestMain(m *testing.M) {
	pool, err := dockertest.NewPool("")
	if err != nil {
		log.Fatalf("Could not construct pool: %s", err)
	}
	if err := pool.Client.Ping(); err != nil {
		log.Fatalf("Could not connect to Docker: %s", err)
	}

	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "mongo",
		Tag:        "6.0",
		Env: []string{
			"MONGO_INITDB_ROOT_USERNAME=root",
			"MONGO_INITDB_ROOT_PASSWORD=password",
		},
	}, func(config *docker.HostConfig) {
		config.AutoRemove = true
		config.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		log.Fatalf("Could not start MongoDB resource: %s", err)
	}
	uri := fmt.Sprintf("mongodb://root:password@%s/?authSource=admin", resource.GetHostPort("27017/tcp"))

	var client *mongo.Client
	if err := pool.Retry(func() error {
		var errRetry error
		client, errRetry = mongo.Connect(context.Background(), options.Client().ApplyURI(uri))
		if errRetry != nil {
			return errRetry
		}
		return client.Ping(context.Background(), nil)
	}); err != nil {
		log.Fatalf("Could not connect to MongoDB: %s", err)
	}

	testDB = client.Database("pandopot_test")
	if err := EnsureIndexes(context.Background(), testDB); err != nil {
		log.Fatalf("Could not create indexes: %s", err)
	}

	code := m.Run()

	_ = client.Disconnect(context.Background())
	if err := pool.Purge(resource); err != nil {
		log.Printf("Could not purge MongoDB resource: %s", err)
	}
	os.Exit(code)
}

func insertSubscription(t *testing.T, userID string, expiry time.Time) string {
	t.Helper()
	res, err := testDB.Collection(subscriptionsCollection).InsertOne(context.Background(), bson.M{
		"subscriber": bson.M{"userId": userID},
		"usage":      bson.M{"used": false},
		"expiryDate": expiry,
	})
	require.NoError(t, err)
	return res.InsertedID.(primitive.ObjectID).Hex()
}

func TestSubscriptionRepository_ConsumeOnce(t *testing.T) {
	ctx := context.Background()
	repo := NewSubscriptionRepository(testDB)
	now := time.Now().UTC()
	subID := insertSubscription(t, "user-a", now.Add(time.Hour))
	item := entity.UsageItem{ItemType: entity.ListingKindProduct, Name: "A", ItemID: "listing-a"}

	require.NoError(t, repo.Consume(ctx, subID, "user-a", item, now, time.Minute))
	assert.ErrorIs(t, repo.Consume(ctx, subID, "user-a", item, now, time.Minute), repository.ErrConflict)

	sub, err := repo.GetByID(ctx, subID)
	require.NoError(t, err)
	assert.True(t, sub.Usage.Used)
	assert.Equal(t, entity.UsageConsumed, sub.EffectiveState())
	require.NotNil(t, sub.Usage.Item)
	assert.Equal(t, "listing-a", sub.Usage.Item.ItemID)
}

func TestSubscriptionRepository_ReserveCommitRelease(t *testing.T) {
	ctx := context.Background()
	repo := NewSubscriptionRepository(testDB)
	now := time.Now().UTC()
	subID := insertSubscription(t, "user-b", now.Add(time.Hour))
	item := entity.UsageItem{ItemType: entity.ListingKindMarket, Name: "M", ItemID: "m1"}

	require.NoError(t, repo.Reserve(ctx, subID, "user-b", "r1", now, time.Minute))
	assert.ErrorIs(t, repo.Reserve(ctx, subID, "user-b", "r2", now, time.Minute), repository.ErrConflict)

	require.NoError(t, repo.Release(ctx, subID, "r1"))
	require.NoError(t, repo.Reserve(ctx, subID, "user-b", "r2", now, time.Minute))
	assert.ErrorIs(t, repo.Commit(ctx, subID, "r1", item, now), repository.ErrConflict)
	require.NoError(t, repo.Commit(ctx, subID, "r2", item, now))

	assert.ErrorIs(t, repo.Reserve(ctx, subID, "user-b", "r3", now, time.Minute), repository.ErrConflict)
}

func TestSubscriptionRepository_StaleReservationReclaimed(t *testing.T) {
	ctx := context.Background()
	repo := NewSubscriptionRepository(testDB)
	now := time.Now().UTC()
	subID := insertSubscription(t, "user-c", now.Add(time.Hour))

	require.NoError(t, repo.Reserve(ctx, subID, "user-c", "old", now.Add(-10*time.Minute), time.Minute))
	require.NoError(t, repo.Reserve(ctx, subID, "user-c", "new", now, time.Minute))
}

func TestProductRepository_AppendBoostsConditional(t *testing.T) {
	ctx := context.Background()
	repo := NewProductRepository(testDB)
	now := time.Now().UTC()

	product := &entity.Product{
		Name:     "Boots",
		Price:    100,
		Author:   entity.Author{Name: "Owner", UserID: "owner-1"},
		Category: entity.CategorySnapshot{Name: "Gear", CategoryID: "cat-1"},
	}
	id, err := repo.Create(ctx, product)
	require.NoError(t, err)

	featured := entity.BoostRequest{Name: entity.BoostFeaturedProduct, Price: 50, Days: 30}.ToBoostInfo(now)
	require.NoError(t, repo.AppendBoosts(ctx, id, "owner-1", []entity.BoostInfo{featured}, now))

	err = repo.AppendBoosts(ctx, id, "owner-1", []entity.BoostInfo{featured}, now)
	assert.ErrorIs(t, err, repository.ErrConflict)

	err = repo.AppendBoosts(ctx, id, "someone-else", []entity.BoostInfo{featured}, now)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	count, err := repo.CountActiveBoost(ctx, entity.BoostFeaturedProduct, now)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, count, int64(1))

	found, err := repo.FindActiveBoost(ctx, entity.BoostFeaturedProduct, now, repository.Page{Limit: 4})
	require.NoError(t, err)
	ids := make([]string, 0, len(found))
	for _, p := range found {
		ids = append(ids, p.ID)
	}
	assert.Contains(t, ids, id)

	stored, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Len(t, stored.BoostInfo, 1)
}

func TestProductRepository_SearchByCategory(t *testing.T) {
	ctx := context.Background()
	repo := NewProductRepository(testDB)

	for i := 0; i < 3; i++ {
		_, err := repo.Create(ctx, &entity.Product{
			Name:     fmt.Sprintf("Tent %d", i),
			Price:    10,
			Category: entity.CategorySnapshot{Name: "Camping", CategoryID: "cat-search"},
		})
		require.NoError(t, err)
	}

	page1, err := repo.Search(ctx, repository.ListingFilter{CategoryID: "cat-search"}, repository.NewPage(1, 2))
	require.NoError(t, err)
	assert.Len(t, page1, 2)

	page2, err := repo.Search(ctx, repository.ListingFilter{CategoryID: "cat-search"}, repository.NewPage(2, 2))
	require.NoError(t, err)
	assert.Len(t, page2, 1)

	text, err := repo.Search(ctx, repository.ListingFilter{Query: "Tent", CategoryID: "cat-search"}, repository.NewPage(1, 10))
	require.NoError(t, err)
	assert.Len(t, text, 3)
}

func TestProductRepository_SearchByOwnerAndSubCategory(t *testing.T) {
	ctx := context.Background()
	repo := NewProductRepository(testDB)

	seed := []*entity.Product{
		{Name: "Basil", Price: 5, Author: entity.Author{UserID: "grower-1"}, Category: entity.CategorySnapshot{Name: "Plants", CategoryID: "cat-plants", SubCategory: "herbs"}},
		{Name: "Aloe", Price: 7, Author: entity.Author{UserID: "grower-1"}, Category: entity.CategorySnapshot{Name: "Plants", CategoryID: "cat-plants", SubCategory: "succulents"}},
		{Name: "Mint", Price: 4, Author: entity.Author{UserID: "grower-2"}, Category: entity.CategorySnapshot{Name: "Plants", CategoryID: "cat-plants", SubCategory: "herbs"}},
	}
	for _, p := range seed {
		_, err := repo.Create(ctx, p)
		require.NoError(t, err)
	}

	owned, err := repo.Search(ctx, repository.ListingFilter{OwnerID: "grower-1"}, repository.NewPage(1, 10))
	require.NoError(t, err)
	assert.Len(t, owned, 2)

	herbs, err := repo.Search(ctx, repository.ListingFilter{CategoryName: "Plants", SubCategory: "herbs"}, repository.NewPage(1, 10))
	require.NoError(t, err)
	assert.Len(t, herbs, 2)

	ownedHerbs, err := repo.Search(ctx, repository.ListingFilter{OwnerID: "grower-1", SubCategory: "herbs"}, repository.NewPage(1, 10))
	require.NoError(t, err)
	require.Len(t, ownedHerbs, 1)
	assert.Equal(t, "Basil", ownedHerbs[0].Name)
}

func TestUserRepository_CartRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(testDB)

	res, err := testDB.Collection(usersCollection).InsertOne(ctx, bson.M{"firstName": "Thandi", "lastName": "M", "email": "t@example.com"})
	require.NoError(t, err)
	userID := res.InsertedID.(primitive.ObjectID).Hex()

	cart, err := repo.GetCart(ctx, userID)
	require.NoError(t, err)
	assert.Empty(t, cart.Items)

	_, err = cart.AddItem("p1", 2)
	require.NoError(t, err)
	_, err = cart.AddItem("p2", 1)
	require.NoError(t, err)
	require.NoError(t, repo.SaveCart(ctx, userID, cart))

	removed, err := repo.RemoveCartProduct(ctx, userID, "p1")
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = repo.RemoveCartProduct(ctx, userID, "p1")
	require.NoError(t, err)
	assert.False(t, removed)

	user, err := repo.GetByID(ctx, userID)
	require.NoError(t, err)
	require.Len(t, user.Cart.Items, 1)
	assert.Equal(t, "p2", user.Cart.Items[0].ProductID)
}
