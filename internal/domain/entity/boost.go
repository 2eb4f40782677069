package entity

import (
	"errors"
	"fmt"
	"time"
)

const (
	BoostFeaturedProduct = "Featured Product"
	BoostSlider          = "Slider"

	DayDuration = 24 * time.Hour

	// MaxBoostDays bounds a single boost entry to ten years.
	MaxBoostDays = 3650
)

var ErrUnknownBoostSlot = errors.New("unknown boost slot")

// BoostSlotName maps a display slot to the boost name that qualifies for it.
func BoostSlotName(slot string) (string, error) {
	switch slot {
	case "featured":
		return BoostFeaturedProduct, nil
	case "slider":
		return BoostSlider, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownBoostSlot, slot)
	}
}

type BoostInfo struct {
	Name        string    `bson:"name" json:"name"`
	Price       float64   `bson:"price" json:"price"`
	BoostID     string    `bson:"boostId,omitempty" json:"boostId,omitempty"`
	Description string    `bson:"description,omitempty" json:"description,omitempty"`
	ExpiryDate  time.Time `bson:"expiryDate" json:"expiryDate"`
	CreatedAt   time.Time `bson:"createdAt" json:"createdAt"`
}

func (b BoostInfo) ActiveAt(now time.Time) bool {
	return b.ExpiryDate.After(now)
}

// BoostRequest is one promotional line item in a purchase.
type BoostRequest struct {
	Name        string  `json:"name"`
	Price       float64 `json:"price"`
	Days        int     `json:"days"`
	BoostID     string  `json:"boostId,omitempty"`
	Description string  `json:"description,omitempty"`
}

func (r BoostRequest) Validate() error {
	if r.Name == "" {
		return errors.New("boost name is required")
	}
	if r.Price <= 0 {
		return fmt.Errorf("boost %q price must be positive", r.Name)
	}
	if r.Days <= 0 {
		return fmt.Errorf("boost %q days must be positive", r.Name)
	}
	if r.Days > MaxBoostDays {
		return fmt.Errorf("boost %q days must not exceed %d", r.Name, MaxBoostDays)
	}
	return nil
}

// ToBoostInfo stamps the entry with an expiry of now plus Days whole days.
// Days must already be validated.
func (r BoostRequest) ToBoostInfo(now time.Time) BoostInfo {
	days := min(r.Days, MaxBoostDays)
	return BoostInfo{
		Name:        r.Name,
		Price:       r.Price,
		BoostID:     r.BoostID,
		Description: r.Description,
		ExpiryDate:  now.Add(time.Duration(days) * DayDuration),
		CreatedAt:   now,
	}
}

// ActiveBoostNames returns the names that have at least one unexpired entry.
func (p *Product) ActiveBoostNames(now time.Time) map[string]bool {
	active := make(map[string]bool)
	for _, b := range p.BoostInfo {
		if b.ActiveAt(now) {
			active[b.Name] = true
		}
	}
	return active
}

// FirstActiveConflict returns the first requested name already active on the product.
func (p *Product) FirstActiveConflict(requested []BoostRequest, now time.Time) (string, bool) {
	active := p.ActiveBoostNames(now)
	for _, r := range requested {
		if active[r.Name] {
			return r.Name, true
		}
	}
	return "", false
}

func TotalBoostPrice(requested []BoostRequest) float64 {
	var total float64
	for _, r := range requested {
		total += r.Price
	}
	return total
}
