package entity

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrCartItemNotFound = errors.New("item not found in cart")

type CartItem struct {
	ID        string    `bson:"id" json:"id"`
	ProductID string    `bson:"productId" json:"productId"`
	Quantity  int       `bson:"quantity" json:"quantity"`
	AddedAt   time.Time `bson:"addedAt" json:"addedAt"`
}

func NewCartItem(productID string, quantity int) (*CartItem, error) {
	if productID == "" {
		return nil, errors.New("product ID cannot be empty for cart item")
	}
	if quantity <= 0 {
		return nil, errors.New("cart item quantity must be positive")
	}
	return &CartItem{
		ID:        uuid.NewString(),
		ProductID: productID,
		Quantity:  quantity,
		AddedAt:   time.Now().UTC(),
	}, nil
}

// Cart is embedded in the user document, so each user owns exactly one.
type Cart struct {
	Items     []CartItem `bson:"items" json:"items"`
	UpdatedAt time.Time  `bson:"updatedAt" json:"updatedAt"`
}

func NewCart() *Cart {
	return &Cart{
		Items:     make([]CartItem, 0),
		UpdatedAt: time.Now().UTC(),
	}
}

func (c *Cart) indexByProduct(productID string) int {
	for i, item := range c.Items {
		if item.ProductID == productID {
			return i
		}
	}
	return -1
}

func (c *Cart) indexByID(itemID string) int {
	for i, item := range c.Items {
		if item.ID == itemID {
			return i
		}
	}
	return -1
}

func (c *Cart) GetItem(itemID string) (*CartItem, error) {
	i := c.indexByID(itemID)
	if i == -1 {
		return nil, ErrCartItemNotFound
	}
	return &c.Items[i], nil
}

func (c *Cart) ItemForProduct(productID string) (*CartItem, bool) {
	i := c.indexByProduct(productID)
	if i == -1 {
		return nil, false
	}
	return &c.Items[i], true
}

// AddItem accumulates quantity onto an existing line for the product.
func (c *Cart) AddItem(productID string, quantity int) (*CartItem, error) {
	if quantity <= 0 {
		return nil, errors.New("quantity to add must be positive")
	}

	if i := c.indexByProduct(productID); i != -1 {
		c.Items[i].Quantity += quantity
		c.UpdatedAt = time.Now().UTC()
		return &c.Items[i], nil
	}

	item, err := NewCartItem(productID, quantity)
	if err != nil {
		return nil, err
	}
	c.Items = append(c.Items, *item)
	c.UpdatedAt = time.Now().UTC()
	return &c.Items[len(c.Items)-1], nil
}

// UpdateItemQuantity sets the quantity; zero or less removes the line.
func (c *Cart) UpdateItemQuantity(productID string, quantity int) error {
	i := c.indexByProduct(productID)
	if i == -1 {
		return ErrCartItemNotFound
	}

	if quantity <= 0 {
		c.Items = append(c.Items[:i], c.Items[i+1:]...)
	} else {
		c.Items[i].Quantity = quantity
	}
	c.UpdatedAt = time.Now().UTC()
	return nil
}

func (c *Cart) RemoveItem(itemID string) error {
	i := c.indexByID(itemID)
	if i == -1 {
		return ErrCartItemNotFound
	}
	c.Items = append(c.Items[:i], c.Items[i+1:]...)
	c.UpdatedAt = time.Now().UTC()
	return nil
}

// RemoveProduct drops the line for productID and reports whether one existed.
func (c *Cart) RemoveProduct(productID string) bool {
	i := c.indexByProduct(productID)
	if i == -1 {
		return false
	}
	c.Items = append(c.Items[:i], c.Items[i+1:]...)
	c.UpdatedAt = time.Now().UTC()
	return true
}

func (c *Cart) ProductIDs() []string {
	ids := make([]string, 0, len(c.Items))
	for _, item := range c.Items {
		ids = append(ids, item.ProductID)
	}
	return ids
}

// ResolvedCartItem pairs a line with the product as it exists now.
type ResolvedCartItem struct {
	Item    CartItem `json:"item"`
	Product *Product `json:"product"`
}

// CartView is a cart joined against the products collection.
type CartView struct {
	Items []ResolvedCartItem `json:"items"`
	// Dangling lines reference products that no longer exist.
	Dangling []CartItem `json:"dangling,omitempty"`
}
