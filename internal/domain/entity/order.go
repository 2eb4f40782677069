package entity

import (
	"errors"
	"time"
)

type OrderStatus string

const (
	StatusPaid    OrderStatus = "PAID"
	StatusPreview OrderStatus = "PREVIEW"
)

type PartySnapshot struct {
	Name   string `bson:"name" json:"name"`
	UserID string `bson:"userId" json:"userId"`
	Email  string `bson:"email,omitempty" json:"email,omitempty"`
}

type ProductSnapshot struct {
	ID            string           `bson:"id" json:"id"`
	Name          string           `bson:"name" json:"name"`
	Price         float64          `bson:"price" json:"price"`
	ReducedPrice  float64          `bson:"reducedPrice,omitempty" json:"reducedPrice,omitempty"`
	DeliveryPrice float64          `bson:"deliveryPrice,omitempty" json:"deliveryPrice,omitempty"`
	DeliveryTerms string           `bson:"deliveryTerms,omitempty" json:"deliveryTerms,omitempty"`
	Category      CategorySnapshot `bson:"category" json:"category"`
	Images        []string         `bson:"images,omitempty" json:"images,omitempty"`
}

func SnapshotProduct(p *Product) ProductSnapshot {
	return ProductSnapshot{
		ID:            p.ID,
		Name:          p.Name,
		Price:         p.Price,
		ReducedPrice:  p.ReducedPrice,
		DeliveryPrice: p.DeliveryPrice,
		DeliveryTerms: p.DeliveryTerms,
		Category:      p.Category,
		Images:        p.Images,
	}
}

// PaymentRecord is the provider's confirmation kept on the order.
type PaymentRecord struct {
	Provider      string                 `bson:"provider" json:"provider"`
	ChargeID      string                 `bson:"chargeId" json:"chargeId"`
	Status        string                 `bson:"status" json:"status"`
	AmountInCents int64                  `bson:"amountInCents" json:"amountInCents"`
	Currency      string                 `bson:"currency" json:"currency"`
	Raw           map[string]interface{} `bson:"raw,omitempty" json:"raw,omitempty"`
	CapturedAt    time.Time              `bson:"capturedAt" json:"capturedAt"`
}

type OrderLine struct {
	Quantity int             `bson:"quantity" json:"quantity"`
	Product  ProductSnapshot `bson:"product" json:"product"`
	Payment  *PaymentRecord  `bson:"payment,omitempty" json:"payment,omitempty"`
}

// Order is immutable once persisted.
// A charged order has Item set; a preview has Products set and is never stored.
type Order struct {
	ID             string        `bson:"_id,omitempty" json:"id"`
	User           PartySnapshot `bson:"user" json:"user"`
	ProductOwner   PartySnapshot `bson:"productOwner" json:"productOwner"`
	Item           *OrderLine    `bson:"order,omitempty" json:"order,omitempty"`
	Products       []OrderLine   `bson:"products,omitempty" json:"products,omitempty"`
	Status         OrderStatus   `bson:"status" json:"status"`
	IdempotencyKey string        `bson:"idempotencyKey,omitempty" json:"-"`
	CreatedAt      time.Time     `bson:"createdAt" json:"createdAt"`
}

func NewPaidOrder(buyer, owner PartySnapshot, quantity int, product ProductSnapshot, payment PaymentRecord) (*Order, error) {
	if buyer.UserID == "" || owner.UserID == "" {
		return nil, errors.New("buyer and owner are required")
	}
	if quantity <= 0 {
		return nil, errors.New("quantity must be positive")
	}
	if payment.ChargeID == "" {
		return nil, errors.New("order requires a confirmed payment")
	}
	return &Order{
		User:         buyer,
		ProductOwner: owner,
		Item: &OrderLine{
			Quantity: quantity,
			Product:  product,
			Payment:  &payment,
		},
		Status:    StatusPaid,
		CreatedAt: time.Now().UTC(),
	}, nil
}

func NewPreviewOrder(buyer PartySnapshot, lines []OrderLine) *Order {
	return &Order{
		User:      buyer,
		Products:  lines,
		Status:    StatusPreview,
		CreatedAt: time.Now().UTC(),
	}
}
