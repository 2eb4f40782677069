package entity

import (
	"errors"
	"math"
	"time"
)

type ListingKind string

const (
	ListingKindProduct ListingKind = "product"
	ListingKindMarket  ListingKind = "market"
)

// Ownable is implemented by listings carrying an author snapshot.
type Ownable interface {
	OwnerID() string
	AuthorSnapshot() Author
}

// Categorizable is implemented by listings carrying a category snapshot.
type Categorizable interface {
	CategoryRef() CategorySnapshot
}

// Listing is the capability set shared by products and markets.
type Listing interface {
	Ownable
	Categorizable
	ListingID() string
	Kind() ListingKind
	Title() string
}

// Author is copied from the user at creation time.
type Author struct {
	Name   string `bson:"name" json:"name"`
	UserID string `bson:"userId" json:"userId"`
}

// CategorySnapshot is copied from the catalog at creation time and is not re-resolved on reads.
type CategorySnapshot struct {
	Name        string `bson:"name" json:"name"`
	CategoryID  string `bson:"categoryId" json:"categoryId"`
	SubCategory string `bson:"subCategory,omitempty" json:"subCategory,omitempty"`
}

type Product struct {
	ID            string           `bson:"_id,omitempty" json:"id"`
	Name          string           `bson:"name" json:"name"`
	Description   string           `bson:"description" json:"description"`
	Price         float64          `bson:"price" json:"price"`
	ReducedPrice  float64          `bson:"reducedPrice,omitempty" json:"reducedPrice,omitempty"`
	DeliveryTerms string           `bson:"deliveryTerms,omitempty" json:"deliveryTerms,omitempty"`
	DeliveryPrice float64          `bson:"deliveryPrice,omitempty" json:"deliveryPrice,omitempty"`
	Units         int              `bson:"units" json:"units"`
	Province      string           `bson:"province,omitempty" json:"province,omitempty"`
	City          string           `bson:"city,omitempty" json:"city,omitempty"`
	Images        []string         `bson:"images,omitempty" json:"images,omitempty"`
	Author        Author           `bson:"author" json:"author"`
	Category      CategorySnapshot `bson:"category" json:"category"`
	BoostInfo     []BoostInfo      `bson:"boostInfo" json:"boostInfo"`
	CreatedAt     time.Time        `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time        `bson:"updatedAt" json:"updatedAt"`
}

func (p *Product) ListingID() string { return p.ID }
func (p *Product) Kind() ListingKind { return ListingKindProduct }
func (p *Product) Title() string { return p.Name }
func (p *Product) OwnerID() string { return p.Author.UserID }
func (p *Product) AuthorSnapshot() Author { return p.Author }
func (p *Product) CategoryRef() CategorySnapshot { return p.Category }

// UnitPrice is the reduced price when one is set below the list price.
func (p *Product) UnitPrice() float64 {
	if p.ReducedPrice > 0 && p.ReducedPrice < p.Price {
		return p.ReducedPrice
	}
	return p.Price
}

// AmountInCents is the charge for quantity units plus a single delivery fee.
func (p *Product) AmountInCents(quantity int) int64 {
	total := p.UnitPrice()*float64(quantity) + p.DeliveryPrice
	return int64(math.Round(total * 100))
}

func (p *Product) Validate() error {
	if p.Name == "" {
		return errors.New("product name is required")
	}
	if p.Price <= 0 {
		return errors.New("product price must be positive")
	}
	if p.ReducedPrice < 0 || p.DeliveryPrice < 0 {
		return errors.New("prices cannot be negative")
	}
	if p.Units < 0 {
		return errors.New("units cannot be negative")
	}
	return nil
}

type HikingProfile struct {
	TrailType  string  `bson:"trailType" json:"trailType"`
	TrailLevel string  `bson:"trailLevel" json:"trailLevel"`
	Province   string  `bson:"province" json:"province"`
	Location   string  `bson:"location" json:"location"`
	PriceStart float64 `bson:"priceStart" json:"priceStart"`
	PriceEnd   float64 `bson:"priceEnd" json:"priceEnd"`
	Details    string  `bson:"details,omitempty" json:"details,omitempty"`
}

type OrganisationSnapshot struct {
	Name           string `bson:"name" json:"name"`
	OrganisationID string `bson:"organisationId" json:"organisationId"`
}

type Market struct {
	ID           string                `bson:"_id,omitempty" json:"id"`
	Name         string                `bson:"name" json:"name"`
	Description  string                `bson:"description" json:"description"`
	Location     string                `bson:"location,omitempty" json:"location,omitempty"`
	Phone        string                `bson:"phone,omitempty" json:"phone,omitempty"`
	Email        string                `bson:"email,omitempty" json:"email,omitempty"`
	Website      string                `bson:"website,omitempty" json:"website,omitempty"`
	Images       []string              `bson:"images,omitempty" json:"images,omitempty"`
	Author       Author                `bson:"author" json:"author"`
	Category     CategorySnapshot      `bson:"category" json:"category"`
	Hiking       *HikingProfile        `bson:"hiking,omitempty" json:"hiking,omitempty"`
	Organisation *OrganisationSnapshot `bson:"organisation,omitempty" json:"organisation,omitempty"`
	CreatedAt    time.Time             `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time             `bson:"updatedAt" json:"updatedAt"`
}

func (m *Market) ListingID() string { return m.ID }
func (m *Market) Kind() ListingKind { return ListingKindMarket }
func (m *Market) Title() string { return m.Name }
func (m *Market) OwnerID() string { return m.Author.UserID }
func (m *Market) AuthorSnapshot() Author { return m.Author }
func (m *Market) CategoryRef() CategorySnapshot { return m.Category }

func (m *Market) Validate() error {
	if m.Name == "" {
		return errors.New("market name is required")
	}
	if h := m.Hiking; h != nil {
		if h.PriceStart < 0 || h.PriceEnd < 0 {
			return errors.New("hiking prices cannot be negative")
		}
		if h.PriceEnd > 0 && h.PriceEnd < h.PriceStart {
			return errors.New("hiking price range end is below its start")
		}
	}
	return nil
}
