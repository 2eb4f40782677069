package service

import (
	"context"
	"time"

	"github.com/donaldmo/pandopot-api/internal/domain/entity"
	"github.com/donaldmo/pandopot-api/internal/platform/logger"
)

const (
	SubjectOrderCreated           = "order.created"
	SubjectBoostPurchased         = "boost.purchased"
	SubjectListingCreated         = "listing.created"
	SubjectSubscriptionConsumed   = "subscription.consumed"
	SubjectReconciliationRequired = "payment.reconciliation_required"
	SubjectCartCleanupRequired    = "cart.cleanup_required"
)

// EventPublisher is satisfied by the NATS publisher.
type EventPublisher interface {
	Publish(ctx context.Context, subject string, message interface{}) error
}

type OrderCreatedEvent struct {
	OrderID       string    `json:"orderId"`
	BuyerID       string    `json:"buyerId"`
	OwnerID       string    `json:"ownerId"`
	ProductID     string    `json:"productId"`
	Quantity      int       `json:"quantity"`
	AmountInCents int64     `json:"amountInCents"`
	Currency      string    `json:"currency"`
	ChargeID      string    `json:"chargeId"`
	CreatedAt     time.Time `json:"createdAt"`
}

type BoostPurchasedEvent struct {
	ListingID     string             `json:"listingId"`
	OwnerID       string             `json:"ownerId"`
	Boosts        []entity.BoostInfo `json:"boosts"`
	AmountInCents int64              `json:"amountInCents"`
	ChargeID      string             `json:"chargeId"`
}

type ListingCreatedEvent struct {
	ListingID      string             `json:"listingId"`
	Kind           entity.ListingKind `json:"kind"`
	OwnerID        string             `json:"ownerId"`
	SubscriptionID string             `json:"subscriptionId,omitempty"`
	CreatedAt      time.Time          `json:"createdAt"`
}

// ReconciliationEvent reports a captured charge with no matching record.
// ChargeID is empty when the provider never answered; ProviderKey then identifies the attempt.
type ReconciliationEvent struct {
	Purpose       string    `json:"purpose"`
	ChargeID      string    `json:"chargeId,omitempty"`
	ProviderKey   string    `json:"providerKey,omitempty"`
	AmountInCents int64     `json:"amountInCents"`
	Currency      string    `json:"currency"`
	PayerID       string    `json:"payerId"`
	ReferenceID   string    `json:"referenceId"`
	Reason        string    `json:"reason"`
	OccurredAt    time.Time `json:"occurredAt"`
}

// CartCleanupEvent reports a persisted order whose cart line could not be removed.
type CartCleanupEvent struct {
	OrderID    string    `json:"orderId"`
	BuyerID    string    `json:"buyerId"`
	ProductID  string    `json:"productId"`
	Reason     string    `json:"reason"`
	OccurredAt time.Time `json:"occurredAt"`
}

func (e OrderCreatedEvent) EventKey() string { return e.OrderID }
func (e BoostPurchasedEvent) EventKey() string { return e.ChargeID }
func (e ListingCreatedEvent) EventKey() string { return e.ListingID }
func (e CartCleanupEvent) EventKey() string { return e.OrderID }

func (e ReconciliationEvent) EventKey() string {
	if e.ChargeID != "" {
		return e.ChargeID
	}
	return e.ProviderKey
}

func publishEvent(ctx context.Context, pub EventPublisher, log logger.Logger, subject string, event interface{}) {
	if pub == nil {
		return
	}
	if err := pub.Publish(context.WithoutCancel(ctx), subject, event); err != nil {
		log.Errorf("Failed to publish %s event: %v", subject, err)
	}
}
