package service

import (
	"context"
	"errors"
	"time"

	"github.com/donaldmo/pandopot-api/internal/adapter/payment"
	"github.com/donaldmo/pandopot-api/internal/adapter/secrets"
	"github.com/donaldmo/pandopot-api/internal/domain/apperr"
	"github.com/donaldmo/pandopot-api/internal/domain/entity"
	"github.com/donaldmo/pandopot-api/internal/platform/logger"
	"github.com/donaldmo/pandopot-api/internal/platform/metrics"
	"github.com/donaldmo/pandopot-api/internal/repository"
)

const (
	defaultIdempotencyTTL = 24 * time.Hour
	cartCleanupAttempts   = 3
	defaultCartRetryWait  = 200 * time.Millisecond
)

type BuyProductInput struct {
	BuyerID        string
	ProductID      string
	Quantity       int
	PaymentToken   string
	IdempotencyKey string
}

type OrderService interface {
	// PreviewOrder snapshots the buyer's cart without charging or persisting anything.
	PreviewOrder(ctx context.Context, userID string) (*entity.Order, error)
	BuyProduct(ctx context.Context, in BuyProductInput) (*entity.Order, error)
	GetOrder(ctx context.Context, userID, orderID string) (*entity.Order, error)
	ListBuyerOrders(ctx context.Context, userID string, page, size int) ([]*entity.Order, error)
	ListOwnerOrders(ctx context.Context, ownerID string, page, size int) ([]*entity.Order, error)
}

type orderService struct {
	orders         repository.OrderRepository
	products       repository.ProductRepository
	users          repository.UserRepository
	carts          CartService
	gateway        payment.Gateway
	secrets        secrets.Store
	idempotency    repository.IdempotencyStore
	notifier       Notifier
	publisher      EventPublisher
	metrics        *metrics.Metrics
	log            logger.Logger
	currency       string
	idempotencyTTL time.Duration
	cartRetryWait  time.Duration
}

type OrderServiceConfig struct {
	Currency       string
	IdempotencyTTL time.Duration
}

func NewOrderService(
	orders repository.OrderRepository,
	products repository.ProductRepository,
	users repository.UserRepository,
	carts CartService,
	gateway payment.Gateway,
	secretStore secrets.Store,
	idempotency repository.IdempotencyStore,
	notifier Notifier,
	publisher EventPublisher,
	m *metrics.Metrics,
	log logger.Logger,
	cfg OrderServiceConfig,
) OrderService {
	ttl := cfg.IdempotencyTTL
	if ttl <= 0 {
		ttl = defaultIdempotencyTTL
	}
	return &orderService{
		orders:         orders,
		products:       products,
		users:          users,
		carts:          carts,
		gateway:        gateway,
		secrets:        secretStore,
		idempotency:    idempotency,
		notifier:       notifier,
		publisher:      publisher,
		metrics:        m,
		log:            log,
		currency:       cfg.Currency,
		idempotencyTTL: ttl,
		cartRetryWait:  defaultCartRetryWait,
	}
}

func (s *orderService) PreviewOrder(ctx context.Context, userID string) (*entity.Order, error) {
	const op = "OrderService.PreviewOrder"

	buyer, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, storeErr(op, err, "user")
	}
	view, err := s.carts.List(ctx, userID)
	if err != nil {
		return nil, err
	}

	lines := make([]entity.OrderLine, 0, len(view.Items))
	for _, resolved := range view.Items {
		lines = append(lines, entity.OrderLine{
			Quantity: resolved.Item.Quantity,
			Product:  entity.SnapshotProduct(resolved.Product),
		})
	}
	return entity.NewPreviewOrder(buyer.Snapshot(), lines), nil
}

func validateBuyInput(op string, in BuyProductInput) error {
	if in.BuyerID == "" || in.ProductID == "" {
		return apperr.NewValidation(op, "buyer ID and product ID are required")
	}
	if in.Quantity <= 0 {
		return apperr.NewValidation(op, "quantity must be positive")
	}
	if in.PaymentToken == "" {
		return apperr.NewValidation(op, "payment token is required")
	}
	return nil
}

// idempotencyKey namespaces the client key. The same value goes to the gateway so keys from
// other purchase flows never collide there.
func (s *orderService) idempotencyKey(in BuyProductInput) string {
	if in.IdempotencyKey == "" {
		return ""
	}
	return "order:" + in.BuyerID + ":" + in.IdempotencyKey
}

// claim takes the idempotency key. It returns a prior order when the key already completed.
// The bool reports whether the key is held and must be completed or released.
func (s *orderService) claim(ctx context.Context, op, key string) (*entity.Order, bool, error) {
	if key == "" || s.idempotency == nil {
		return nil, false, nil
	}

	acquired, err := s.idempotency.Acquire(ctx, key, s.idempotencyTTL)
	if err != nil {
		// the gateway still receives the key and deduplicates on its side
		s.log.Warnf("%s: idempotency store unavailable for %s: %v", op, key, err)
		return nil, false, nil
	}
	if acquired {
		return nil, true, nil
	}

	orderID, err := s.idempotency.Result(ctx, key)
	if errors.Is(err, repository.ErrNotFound) {
		// the key may have expired between Acquire and Result
		if acquired, retryErr := s.idempotency.Acquire(ctx, key, s.idempotencyTTL); retryErr == nil && acquired {
			return nil, true, nil
		}
		return nil, false, apperr.NewConflict(op, "a purchase with this idempotency key is already in progress")
	}
	if err != nil {
		return nil, false, apperr.Wrap(apperr.KindPersistenceFailure, op, err)
	}
	prior, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, false, storeErr(op, err, "order")
	}
	s.log.Infof("%s: replaying order %s for idempotency key %s", op, orderID, key)
	return prior, false, nil
}

func (s *orderService) BuyProduct(ctx context.Context, in BuyProductInput) (*entity.Order, error) {
	const op = "OrderService.BuyProduct"
	s.log.Infof("Buying product: BuyerID=%s, ProductID=%s, Quantity=%d", in.BuyerID, in.ProductID, in.Quantity)

	if err := validateBuyInput(op, in); err != nil {
		return nil, err
	}

	key := s.idempotencyKey(in)
	prior, held, err := s.claim(ctx, op, key)
	if err != nil || prior != nil {
		return prior, err
	}
	charged := false
	defer func() {
		if held && !charged {
			if err := s.idempotency.Release(context.WithoutCancel(ctx), key); err != nil {
				s.log.Warnf("%s: failed to release idempotency key %s: %v", op, key, err)
			}
		}
	}()

	product, err := s.products.GetByID(ctx, in.ProductID)
	if err != nil {
		return nil, storeErr(op, err, "product")
	}
	buyer, err := s.users.GetByID(ctx, in.BuyerID)
	if err != nil {
		return nil, storeErr(op, err, "user")
	}
	ownerID := product.OwnerID()
	owner, err := s.users.GetByID(ctx, ownerID)
	if err != nil {
		s.log.Errorf("%s: owner %s of product %s could not be loaded: %v", op, ownerID, product.ID, err)
		return nil, storeErr(op, err, "product owner")
	}

	secretKey, err := paymentKey(ctx, s.secrets, op, ownerID)
	if err != nil {
		s.log.Errorf("%s: payment key for owner %s unavailable: %v", op, ownerID, err)
		return nil, err
	}

	amount := product.AmountInCents(in.Quantity)
	chargeCtx := context.WithoutCancel(ctx)
	charge, err := s.gateway.Charge(chargeCtx, payment.ChargeRequest{
		Token:          in.PaymentToken,
		AmountInCents:  amount,
		Currency:       s.currency,
		SecretKey:      secretKey,
		IdempotencyKey: key,
	})
	if err != nil {
		s.log.Warnf("%s: charge for product %s failed: %v", op, product.ID, err)
		s.metrics.Payment(purposeOrder, paymentOutcome(err))
		if apperr.IsChargeUnknown(err) {
			// the key stays held so a retry cannot charge a second time
			charged = true
			reportUnrecorded(ctx, s.publisher, s.metrics, s.log, ReconciliationEvent{
				Purpose:       purposeOrder,
				ProviderKey:   key,
				AmountInCents: amount,
				Currency:      s.currency,
				PayerID:       in.BuyerID,
				ReferenceID:   product.ID,
				Reason:        "charge outcome unknown: " + err.Error(),
				OccurredAt:    time.Now().UTC(),
			})
		}
		return nil, err
	}
	charged = true
	s.metrics.Payment(purposeOrder, "success")

	now := time.Now().UTC()
	order, err := entity.NewPaidOrder(buyer.Snapshot(), owner.Snapshot(), in.Quantity, entity.SnapshotProduct(product), paymentRecord(charge, now))
	if err == nil {
		order.IdempotencyKey = key
		order.ID, err = s.orders.Create(chargeCtx, order)
	}
	if err != nil {
		reportUnrecorded(ctx, s.publisher, s.metrics, s.log, ReconciliationEvent{
			Purpose:       purposeOrder,
			ChargeID:      charge.ID,
			AmountInCents: charge.AmountInCents,
			Currency:      charge.Currency,
			PayerID:       in.BuyerID,
			ReferenceID:   product.ID,
			Reason:        err.Error(),
			OccurredAt:    now,
		})
		return nil, apperr.NewChargedPersistence(op, charge.ID, err)
	}
	s.metrics.OrderCreated()

	s.clearCartLine(chargeCtx, op, order.ID, in.BuyerID, product.ID)

	s.sendOrderReceipt(ctx, order, buyer, product, charge.AmountInCents)
	publishEvent(ctx, s.publisher, s.log, SubjectOrderCreated, OrderCreatedEvent{
		OrderID:       order.ID,
		BuyerID:       in.BuyerID,
		OwnerID:       ownerID,
		ProductID:     product.ID,
		Quantity:      in.Quantity,
		AmountInCents: charge.AmountInCents,
		Currency:      charge.Currency,
		ChargeID:      charge.ID,
		CreatedAt:     order.CreatedAt,
	})

	if held {
		if err := s.idempotency.Complete(chargeCtx, key, order.ID, s.idempotencyTTL); err != nil {
			s.log.Warnf("%s: failed to record idempotency result for %s: %v", op, key, err)
		}
	}

	s.log.Infof("Order %s created: buyer=%s product=%s charge=%s", order.ID, in.BuyerID, product.ID, charge.ID)
	return order, nil
}

// clearCartLine removes the purchased product from the buyer's cart. When every attempt fails
// a cart.cleanup_required event is published so the line is removed out of band.
func (s *orderService) clearCartLine(ctx context.Context, op, orderID, buyerID, productID string) {
	var err error
	for attempt := 1; attempt <= cartCleanupAttempts; attempt++ {
		var removed bool
		removed, err = s.users.RemoveCartProduct(ctx, buyerID, productID)
		if err == nil {
			if !removed {
				s.log.Debugf("%s: product %s was not in the cart of %s", op, productID, buyerID)
			}
			return
		}
		s.log.Warnf("%s: removing %s from cart of %s failed (attempt %d/%d): %v", op, productID, buyerID, attempt, cartCleanupAttempts, err)
		if attempt < cartCleanupAttempts && s.cartRetryWait > 0 {
			time.Sleep(s.cartRetryWait)
		}
	}

	s.log.Errorf("%s: order %s saved but cart line %s of %s still present: %v", op, orderID, productID, buyerID, err)
	publishEvent(ctx, s.publisher, s.log, SubjectCartCleanupRequired, CartCleanupEvent{
		OrderID:    orderID,
		BuyerID:    buyerID,
		ProductID:  productID,
		Reason:     err.Error(),
		OccurredAt: time.Now().UTC(),
	})
}

func (s *orderService) sendOrderReceipt(ctx context.Context, order *entity.Order, buyer *entity.User, product *entity.Product, amountInCents int64) {
	if s.notifier == nil {
		return
	}
	s.notifier.SendReceipt(ctx, Receipt{
		Kind:           ReceiptKindOrder,
		Reference:      order.ID,
		RecipientEmail: buyer.Email,
		DisplayName:    buyer.DisplayName(),
		Subject:        SubjectOrderReceipt,
		Items: []ReceiptItem{{
			Item:        product.Name,
			Description: product.Description,
			Price:       FormatRand(float64(amountInCents) / 100),
		}},
	})
}

func (s *orderService) GetOrder(ctx context.Context, userID, orderID string) (*entity.Order, error) {
	const op = "OrderService.GetOrder"

	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, storeErr(op, err, "order")
	}
	if order.User.UserID != userID && order.ProductOwner.UserID != userID {
		s.log.Warnf("%s: user %s is not a party to order %s", op, userID, orderID)
		return nil, apperr.NewNotFound(op, "order not found")
	}
	return order, nil
}

func (s *orderService) ListBuyerOrders(ctx context.Context, userID string, page, size int) ([]*entity.Order, error) {
	const op = "OrderService.ListBuyerOrders"
	orders, err := s.orders.ListByBuyer(ctx, userID, normalizePage(page, size))
	if err != nil {
		return nil, storeErr(op, err, "order")
	}
	return orders, nil
}

func (s *orderService) ListOwnerOrders(ctx context.Context, ownerID string, page, size int) ([]*entity.Order, error) {
	const op = "OrderService.ListOwnerOrders"
	orders, err := s.orders.ListByOwner(ctx, ownerID, normalizePage(page, size))
	if err != nil {
		return nil, storeErr(op, err, "order")
	}
	return orders, nil
}
