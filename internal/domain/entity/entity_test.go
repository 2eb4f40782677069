package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCart_AddItem_AccumulatesQuantity(t *testing.T) {
	cart := NewCart()

	first, err := cart.AddItem("p1", 2)
	require.NoError(t, err)
	firstID := first.ID

	second, err := cart.AddItem("p1", 3)
	require.NoError(t, err)

	assert.Len(t, cart.Items, 1)
	assert.Equal(t, 5, cart.Items[0].Quantity)
	assert.Equal(t, firstID, second.ID)
}

func TestCart_AddItem_RejectsNonPositive(t *testing.T) {
	cart := NewCart()
	_, err := cart.AddItem("p1", 0)
	assert.Error(t, err)
	assert.Empty(t, cart.Items)
}

func TestCart_UpdateItemQuantity_ZeroRemoves(t *testing.T) {
	cart := NewCart()
	_, _ = cart.AddItem("p1", 1)
	_, _ = cart.AddItem("p2", 1)

	require.NoError(t, cart.UpdateItemQuantity("p1", 0))
	assert.Len(t, cart.Items, 1)
	assert.Equal(t, "p2", cart.Items[0].ProductID)

	require.NoError(t, cart.UpdateItemQuantity("p2", 7))
	assert.Equal(t, 7, cart.Items[0].Quantity)

	assert.ErrorIs(t, cart.UpdateItemQuantity("missing", 1), ErrCartItemNotFound)
}

func TestCart_RemoveItem_ByIdentity(t *testing.T) {
	cart := NewCart()
	item, _ := cart.AddItem("p1", 1)

	assert.ErrorIs(t, cart.RemoveItem("nope"), ErrCartItemNotFound)
	require.NoError(t, cart.RemoveItem(item.ID))
	assert.Empty(t, cart.Items)
	assert.ErrorIs(t, cart.RemoveItem(item.ID), ErrCartItemNotFound)
}

func TestSubscription_CheckConsumable_Order(t *testing.T) {
	now := time.Now()
	ttl := 5 * time.Minute

	sub := &Subscription{
		Subscriber: Subscriber{UserID: "u1"},
		ExpiryDate: now.Add(time.Second),
	}
	assert.NoError(t, sub.CheckConsumable("u1", now, ttl))
	assert.ErrorIs(t, sub.CheckConsumable("u2", now, ttl), ErrSubscriptionNotFound)

	// used takes precedence over expired
	used := *sub
	used.Usage.Used = true
	used.ExpiryDate = now.Add(-time.Hour)
	assert.ErrorIs(t, used.CheckConsumable("u1", now, ttl), ErrSubscriptionUsed)

	expired := *sub
	expired.ExpiryDate = now.Add(-time.Millisecond)
	assert.ErrorIs(t, expired.CheckConsumable("u1", now, ttl), ErrSubscriptionExpired)

	var missing *Subscription
	assert.ErrorIs(t, missing.CheckConsumable("u1", now, ttl), ErrSubscriptionNotFound)
}

func TestSubscription_ReservationLive(t *testing.T) {
	now := time.Now()
	reservedAt := now.Add(-time.Minute)
	sub := &Subscription{
		Subscriber: Subscriber{UserID: "u1"},
		ExpiryDate: now.Add(time.Hour),
		Usage:      Usage{State: UsageReserved, ReservedAt: &reservedAt},
	}

	assert.ErrorIs(t, sub.CheckConsumable("u1", now, 5*time.Minute), ErrSubscriptionReserved)
	assert.NoError(t, sub.CheckConsumable("u1", now, 30*time.Second))
}

func TestProduct_ActiveBoostConflict(t *testing.T) {
	now := time.Now()
	p := &Product{BoostInfo: []BoostInfo{
		{Name: BoostFeaturedProduct, ExpiryDate: now.Add(-time.Hour)},
		{Name: BoostSlider, ExpiryDate: now.Add(time.Hour)},
	}}

	_, conflict := p.FirstActiveConflict([]BoostRequest{{Name: BoostFeaturedProduct}}, now)
	assert.False(t, conflict)

	name, conflict := p.FirstActiveConflict([]BoostRequest{{Name: BoostFeaturedProduct}, {Name: BoostSlider}}, now)
	assert.True(t, conflict)
	assert.Equal(t, BoostSlider, name)
}

func TestBoostRequest_ToBoostInfo_Expiry(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	info := BoostRequest{Name: BoostFeaturedProduct, Price: 100, Days: 30}.ToBoostInfo(now)

	assert.Equal(t, now.Add(30*86400000*time.Millisecond), info.ExpiryDate)
	assert.True(t, info.ActiveAt(now))
}

func TestBoostRequest_Validate_DaysBound(t *testing.T) {
	assert.NoError(t, BoostRequest{Name: BoostSlider, Price: 10, Days: MaxBoostDays}.Validate())
	assert.Error(t, BoostRequest{Name: BoostSlider, Price: 10, Days: MaxBoostDays + 1}.Validate())
	assert.Error(t, BoostRequest{Name: BoostFeaturedProduct, Price: 10, Days: 110000}.Validate())
	assert.Error(t, BoostRequest{Name: BoostFeaturedProduct, Price: 10, Days: 0}.Validate())
}

func TestBoostRequest_ToBoostInfo_LongestBoostStaysActive(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	info := BoostRequest{Name: BoostFeaturedProduct, Price: 10, Days: MaxBoostDays}.ToBoostInfo(now)

	assert.Equal(t, now.AddDate(0, 0, MaxBoostDays), info.ExpiryDate)
	assert.True(t, info.ActiveAt(now))
	assert.True(t, info.ActiveAt(now.AddDate(9, 0, 0)))
}

func TestBoostSlotName(t *testing.T) {
	name, err := BoostSlotName("featured")
	require.NoError(t, err)
	assert.Equal(t, "Featured Product", name)

	name, err = BoostSlotName("slider")
	require.NoError(t, err)
	assert.Equal(t, "Slider", name)

	_, err = BoostSlotName("banner")
	assert.ErrorIs(t, err, ErrUnknownBoostSlot)
}

func TestProduct_AmountInCents(t *testing.T) {
	p := &Product{Price: 100.5, DeliveryPrice: 50}
	assert.Equal(t, int64(25100), p.AmountInCents(2))

	p.ReducedPrice = 80
	assert.Equal(t, int64(21000), p.AmountInCents(2))

	p.ReducedPrice = 200
	assert.Equal(t, int64(25100), p.AmountInCents(2))
}
