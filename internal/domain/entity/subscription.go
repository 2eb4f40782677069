package entity

import (
	"errors"
	"time"
)

var (
	ErrSubscriptionNotFound = errors.New("subscription not found")
	ErrSubscriptionUsed     = errors.New("subscription already used")
	ErrSubscriptionExpired  = errors.New("subscription expired")
	ErrSubscriptionReserved = errors.New("subscription is reserved by another request")
)

// UsageState is the persisted entitlement state machine.
// available -> reserved -> consumed, or reserved -> available on release.
type UsageState string

const (
	UsageAvailable UsageState = "available"
	UsageReserved  UsageState = "reserved"
	UsageConsumed  UsageState = "consumed"
)

type UsageItem struct {
	ItemType ListingKind `bson:"itemType" json:"itemType"`
	Name     string      `bson:"name" json:"name"`
	ItemID   string      `bson:"itemId" json:"itemId"`
}

type Usage struct {
	Used          bool       `bson:"used" json:"used"`
	UsedDate      *time.Time `bson:"usedDate,omitempty" json:"usedDate,omitempty"`
	Item          *UsageItem `bson:"item,omitempty" json:"item,omitempty"`
	State         UsageState `bson:"state,omitempty" json:"state,omitempty"`
	ReservationID string     `bson:"reservationId,omitempty" json:"-"`
	ReservedAt    *time.Time `bson:"reservedAt,omitempty" json:"-"`
}

type Subscriber struct {
	UserID string `bson:"userId" json:"userId"`
	Name   string `bson:"name,omitempty" json:"name,omitempty"`
}

type Subscription struct {
	ID         string     `bson:"_id,omitempty" json:"id"`
	Name       string     `bson:"name,omitempty" json:"name,omitempty"`
	Subscriber Subscriber `bson:"subscriber" json:"subscriber"`
	Usage      Usage      `bson:"usage" json:"usage"`
	ExpiryDate time.Time  `bson:"expiryDate" json:"expiryDate"`
	CreatedAt  time.Time  `bson:"createdAt" json:"createdAt"`
}

// EffectiveState derives the state for documents written before the state field existed.
func (s *Subscription) EffectiveState() UsageState {
	if s.Usage.Used {
		return UsageConsumed
	}
	if s.Usage.State == "" {
		return UsageAvailable
	}
	return s.Usage.State
}

// ReservationLive reports whether a reservation still blocks other requests.
func (s *Subscription) ReservationLive(now time.Time, ttl time.Duration) bool {
	if s.EffectiveState() != UsageReserved || s.Usage.ReservedAt == nil {
		return false
	}
	return now.Before(s.Usage.ReservedAt.Add(ttl))
}

// CheckConsumable applies the gate checks in order: ownership, usage, expiry, reservation.
func (s *Subscription) CheckConsumable(userID string, now time.Time, reservationTTL time.Duration) error {
	if s == nil || s.Subscriber.UserID != userID {
		return ErrSubscriptionNotFound
	}
	if s.Usage.Used || s.EffectiveState() == UsageConsumed {
		return ErrSubscriptionUsed
	}
	if now.After(s.ExpiryDate) {
		return ErrSubscriptionExpired
	}
	if s.ReservationLive(now, reservationTTL) {
		return ErrSubscriptionReserved
	}
	return nil
}
