package service

import (
	"context"
	"errors"

	"github.com/donaldmo/pandopot-api/internal/domain/apperr"
	"github.com/donaldmo/pandopot-api/internal/domain/entity"
	"github.com/donaldmo/pandopot-api/internal/platform/logger"
	"github.com/donaldmo/pandopot-api/internal/repository"
)

type CartService interface {
	AddItem(ctx context.Context, userID, productID string, quantity int) (*entity.Cart, error)
	GetItem(ctx context.Context, userID, itemID string) (*entity.ResolvedCartItem, error)
	UpdateItemQuantity(ctx context.Context, userID, productID string, quantity int) (*entity.Cart, error)
	RemoveItem(ctx context.Context, userID, itemID string) (*entity.Cart, error)
	List(ctx context.Context, userID string) (*entity.CartView, error)
}

type cartService struct {
	users    repository.UserRepository
	products repository.ProductRepository
	log      logger.Logger
}

// NewCartService reads products from the store, never from the read cache, so deleted products surface as dangling.
func NewCartService(users repository.UserRepository, products repository.ProductRepository, log logger.Logger) CartService {
	return &cartService{users: users, products: products, log: log}
}

func (s *cartService) loadCart(ctx context.Context, op, userID string) (*entity.Cart, error) {
	if userID == "" {
		return nil, apperr.NewValidation(op, "user ID is required")
	}
	cart, err := s.users.GetCart(ctx, userID)
	if err != nil {
		s.log.Errorf("%s: error getting cart for user %s: %v", op, userID, err)
		return nil, storeErr(op, err, "user")
	}
	if cart == nil {
		cart = entity.NewCart()
	}
	return cart, nil
}

func (s *cartService) saveCart(ctx context.Context, op, userID string, cart *entity.Cart) error {
	if err := s.users.SaveCart(ctx, userID, cart); err != nil {
		s.log.Errorf("%s: error saving cart for user %s: %v", op, userID, err)
		return storeErr(op, err, "user")
	}
	return nil
}

func (s *cartService) AddItem(ctx context.Context, userID, productID string, quantity int) (*entity.Cart, error) {
	const op = "CartService.AddItem"
	s.log.Infof("Adding item to cart: UserID=%s, ProductID=%s, Quantity=%d", userID, productID, quantity)

	if productID == "" {
		return nil, apperr.NewValidation(op, "product ID is required")
	}
	if quantity <= 0 {
		return nil, apperr.NewValidation(op, "quantity must be positive")
	}

	if _, err := s.products.GetByID(ctx, productID); err != nil {
		s.log.Warnf("%s: product %s lookup failed: %v", op, productID, err)
		return nil, storeErr(op, err, "product")
	}

	cart, err := s.loadCart(ctx, op, userID)
	if err != nil {
		return nil, err
	}
	if _, err := cart.AddItem(productID, quantity); err != nil {
		return nil, apperr.Wrap(apperr.KindValidation, op, err)
	}
	if err := s.saveCart(ctx, op, userID, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

func (s *cartService) GetItem(ctx context.Context, userID, itemID string) (*entity.ResolvedCartItem, error) {
	const op = "CartService.GetItem"

	cart, err := s.loadCart(ctx, op, userID)
	if err != nil {
		return nil, err
	}
	item, err := cart.GetItem(itemID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindNotFound, op, err)
	}

	product, err := s.products.GetByID(ctx, item.ProductID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.log.Warnf("%s: cart item %s references deleted product %s", op, itemID, item.ProductID)
		}
		return nil, storeErr(op, err, "product")
	}
	return &entity.ResolvedCartItem{Item: *item, Product: product}, nil
}

func (s *cartService) UpdateItemQuantity(ctx context.Context, userID, productID string, quantity int) (*entity.Cart, error) {
	const op = "CartService.UpdateItemQuantity"
	s.log.Infof("Updating cart quantity: UserID=%s, ProductID=%s, Quantity=%d", userID, productID, quantity)

	cart, err := s.loadCart(ctx, op, userID)
	if err != nil {
		return nil, err
	}
	if err := cart.UpdateItemQuantity(productID, quantity); err != nil {
		return nil, apperr.Wrap(apperr.KindNotFound, op, err)
	}
	if err := s.saveCart(ctx, op, userID, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

func (s *cartService) RemoveItem(ctx context.Context, userID, itemID string) (*entity.Cart, error) {
	const op = "CartService.RemoveItem"
	s.log.Infof("Removing cart item: UserID=%s, ItemID=%s", userID, itemID)

	cart, err := s.loadCart(ctx, op, userID)
	if err != nil {
		return nil, err
	}
	if err := cart.RemoveItem(itemID); err != nil {
		return nil, apperr.Wrap(apperr.KindNotFound, op, err)
	}
	if err := s.saveCart(ctx, op, userID, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

func (s *cartService) List(ctx context.Context, userID string) (*entity.CartView, error) {
	const op = "CartService.List"

	cart, err := s.loadCart(ctx, op, userID)
	if err != nil {
		return nil, err
	}
	return s.resolve(ctx, op, cart)
}

// resolve joins cart lines with the products that still exist.
func (s *cartService) resolve(ctx context.Context, op string, cart *entity.Cart) (*entity.CartView, error) {
	view := &entity.CartView{Items: make([]entity.ResolvedCartItem, 0, len(cart.Items))}
	if len(cart.Items) == 0 {
		return view, nil
	}

	products, err := s.products.GetByIDs(ctx, cart.ProductIDs())
	if err != nil {
		s.log.Errorf("%s: error resolving cart products: %v", op, err)
		return nil, storeErr(op, err, "product")
	}

	for _, item := range cart.Items {
		product, ok := products[item.ProductID]
		if !ok {
			view.Dangling = append(view.Dangling, item)
			continue
		}
		view.Items = append(view.Items, entity.ResolvedCartItem{Item: item, Product: product})
	}
	if len(view.Dangling) > 0 {
		s.log.Warnf("%s: %d cart lines reference deleted products", op, len(view.Dangling))
	}
	return view, nil
}
