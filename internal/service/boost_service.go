package service

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/donaldmo/pandopot-api/internal/adapter/payment"
	"github.com/donaldmo/pandopot-api/internal/adapter/secrets"
	"github.com/donaldmo/pandopot-api/internal/domain/apperr"
	"github.com/donaldmo/pandopot-api/internal/domain/entity"
	"github.com/donaldmo/pandopot-api/internal/platform/logger"
	"github.com/donaldmo/pandopot-api/internal/platform/metrics"
	"github.com/donaldmo/pandopot-api/internal/repository"
)

const defaultDisplayLimit = 4

type PurchaseBoostInput struct {
	ListingID      string
	OwnerID        string
	Boosts         []entity.BoostRequest
	PaymentToken   string
	IdempotencyKey string
}

type BoostService interface {
	// PurchaseBoost charges once for all requested boosts and appends them all or none.
	PurchaseBoost(ctx context.Context, in PurchaseBoostInput) ([]entity.BoostInfo, error)
	// SelectBoosted returns up to k listings with an active boost for slot.
	SelectBoosted(ctx context.Context, slot string, k int) ([]*entity.Product, error)
}

type boostService struct {
	products          repository.ProductRepository
	users             repository.UserRepository
	gateway           payment.Gateway
	secrets           secrets.Store
	notifier          Notifier
	cache             repository.ProductCache
	publisher         EventPublisher
	metrics           *metrics.Metrics
	log               logger.Logger
	currency          string
	platformAccountID string
	displayLimit      int
	now               func() time.Time
	int64n            func(int64) int64
}

type BoostServiceConfig struct {
	Currency          string
	PlatformAccountID string
	DisplayLimit      int
}

func NewBoostService(
	products repository.ProductRepository,
	users repository.UserRepository,
	gateway payment.Gateway,
	secretStore secrets.Store,
	notifier Notifier,
	cache repository.ProductCache,
	publisher EventPublisher,
	m *metrics.Metrics,
	log logger.Logger,
	cfg BoostServiceConfig,
) BoostService {
	limit := cfg.DisplayLimit
	if limit <= 0 {
		limit = defaultDisplayLimit
	}
	return &boostService{
		products:          products,
		users:             users,
		gateway:           gateway,
		secrets:           secretStore,
		notifier:          notifier,
		cache:             cache,
		publisher:         publisher,
		metrics:           m,
		log:               log,
		currency:          cfg.Currency,
		platformAccountID: cfg.PlatformAccountID,
		displayLimit:      limit,
		now:               func() time.Time { return time.Now().UTC() },
		int64n:            rand.Int63n,
	}
}

func validateBoostInput(op string, in PurchaseBoostInput) error {
	if in.ListingID == "" || in.OwnerID == "" {
		return apperr.NewValidation(op, "listing ID and owner ID are required")
	}
	if in.PaymentToken == "" {
		return apperr.NewValidation(op, "payment token is required")
	}
	if len(in.Boosts) == 0 {
		return apperr.NewValidation(op, "at least one boost is required")
	}
	seen := make(map[string]bool, len(in.Boosts))
	for _, b := range in.Boosts {
		if err := b.Validate(); err != nil {
			return apperr.Wrap(apperr.KindValidation, op, err)
		}
		if seen[b.Name] {
			return apperr.NewValidation(op, "boost %q requested more than once", b.Name)
		}
		seen[b.Name] = true
	}
	return nil
}

// boostProviderKey namespaces the client key before it reaches the gateway.
func boostProviderKey(in PurchaseBoostInput) string {
	if in.IdempotencyKey == "" {
		return ""
	}
	return "boost:" + in.ListingID + ":" + in.IdempotencyKey
}

func (s *boostService) PurchaseBoost(ctx context.Context, in PurchaseBoostInput) ([]entity.BoostInfo, error) {
	const op = "BoostService.PurchaseBoost"
	s.log.Infof("Purchasing boosts: ListingID=%s, OwnerID=%s, Count=%d", in.ListingID, in.OwnerID, len(in.Boosts))

	if err := validateBoostInput(op, in); err != nil {
		return nil, err
	}

	product, err := s.products.GetByID(ctx, in.ListingID)
	if err != nil {
		return nil, storeErr(op, err, "listing")
	}
	if product.OwnerID() != in.OwnerID {
		s.log.Warnf("%s: user %s does not own listing %s", op, in.OwnerID, in.ListingID)
		return nil, apperr.NewNotFound(op, "listing not found")
	}

	now := s.now()
	if name, conflict := product.FirstActiveConflict(in.Boosts, now); conflict {
		return nil, apperr.NewConflict(op, "boost %q is already active on this listing", name)
	}

	key, err := paymentKey(ctx, s.secrets, op, s.platformAccountID)
	if err != nil {
		s.log.Errorf("%s: platform payment key unavailable: %v", op, err)
		return nil, err
	}

	amount := toCents(entity.TotalBoostPrice(in.Boosts))
	providerKey := boostProviderKey(in)
	chargeCtx := context.WithoutCancel(ctx)
	charge, err := s.gateway.Charge(chargeCtx, payment.ChargeRequest{
		Token:          in.PaymentToken,
		AmountInCents:  amount,
		Currency:       s.currency,
		SecretKey:      key,
		IdempotencyKey: providerKey,
	})
	if err != nil {
		s.log.Warnf("%s: charge for listing %s failed: %v", op, in.ListingID, err)
		s.metrics.Payment(purposeBoost, paymentOutcome(err))
		if apperr.IsChargeUnknown(err) {
			reportUnrecorded(ctx, s.publisher, s.metrics, s.log, ReconciliationEvent{
				Purpose:       purposeBoost,
				ProviderKey:   providerKey,
				AmountInCents: amount,
				Currency:      s.currency,
				PayerID:       in.OwnerID,
				ReferenceID:   in.ListingID,
				Reason:        "charge outcome unknown: " + err.Error(),
				OccurredAt:    now,
			})
		}
		return nil, err
	}
	s.metrics.Payment(purposeBoost, "success")

	entries := make([]entity.BoostInfo, 0, len(in.Boosts))
	for _, b := range in.Boosts {
		entries = append(entries, b.ToBoostInfo(now))
	}

	if err := s.products.AppendBoosts(chargeCtx, in.ListingID, in.OwnerID, entries, now); err != nil {
		reason := err.Error()
		if errors.Is(err, repository.ErrConflict) {
			reason = "a requested boost became active concurrently"
		}
		reportUnrecorded(ctx, s.publisher, s.metrics, s.log, ReconciliationEvent{
			Purpose:       purposeBoost,
			ChargeID:      charge.ID,
			AmountInCents: charge.AmountInCents,
			Currency:      charge.Currency,
			PayerID:       in.OwnerID,
			ReferenceID:   in.ListingID,
			Reason:        reason,
			OccurredAt:    now,
		})
		return nil, apperr.NewChargedPersistence(op, charge.ID, err)
	}

	invalidateProduct(chargeCtx, s.cache, s.log, in.ListingID)
	for _, e := range entries {
		s.metrics.BoostPurchased(e.Name)
	}
	s.sendBoostReceipt(ctx, in.OwnerID, charge.ID, entries)
	publishEvent(ctx, s.publisher, s.log, SubjectBoostPurchased, BoostPurchasedEvent{
		ListingID:     in.ListingID,
		OwnerID:       in.OwnerID,
		Boosts:        entries,
		AmountInCents: charge.AmountInCents,
		ChargeID:      charge.ID,
	})

	s.log.Infof("Listing %s boosted with %d entries (charge %s)", in.ListingID, len(entries), charge.ID)
	return entries, nil
}

func (s *boostService) sendBoostReceipt(ctx context.Context, ownerID, chargeID string, entries []entity.BoostInfo) {
	if s.notifier == nil {
		return
	}
	owner, err := s.users.GetByID(ctx, ownerID)
	if err != nil {
		s.log.Warnf("Boost receipt for charge %s not sent: owner %s lookup failed: %v", chargeID, ownerID, err)
		return
	}

	items := make([]ReceiptItem, 0, len(entries))
	for _, e := range entries {
		items = append(items, ReceiptItem{
			Name:       e.Name,
			Price:      FormatRand(e.Price),
			ExpiryDate: e.ExpiryDate.Format("2006-01-02"),
		})
	}
	s.notifier.SendReceipt(ctx, Receipt{
		Kind:           ReceiptKindBoost,
		Reference:      chargeID,
		RecipientEmail: owner.Email,
		DisplayName:    owner.DisplayName(),
		Subject:        SubjectBoostReceipt,
		Items:          items,
	})
}

func (s *boostService) SelectBoosted(ctx context.Context, slot string, k int) ([]*entity.Product, error) {
	const op = "BoostService.SelectBoosted"

	name, err := entity.BoostSlotName(slot)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindValidation, op, err)
	}
	if k <= 0 {
		k = s.displayLimit
	}

	now := s.now()
	count, err := s.products.CountActiveBoost(ctx, name, now)
	if err != nil {
		s.log.Errorf("%s: counting %q boosts failed: %v", op, name, err)
		return nil, storeErr(op, err, "listing")
	}
	if count == 0 {
		return []*entity.Product{}, nil
	}

	start := windowStart(count, int64(k), s.int64n)
	products, err := s.products.FindActiveBoost(ctx, name, now, repository.Page{Limit: int64(k), Skip: start})
	if err != nil {
		s.log.Errorf("%s: loading %q window at %d failed: %v", op, name, start, err)
		return nil, storeErr(op, err, "listing")
	}
	return products, nil
}
