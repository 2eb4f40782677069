package service

import (
	"context"
	"errors"
	"time"

	"github.com/donaldmo/pandopot-api/internal/domain/apperr"
	"github.com/donaldmo/pandopot-api/internal/domain/entity"
	"github.com/donaldmo/pandopot-api/internal/platform/logger"
	"github.com/donaldmo/pandopot-api/internal/platform/metrics"
	"github.com/donaldmo/pandopot-api/internal/repository"
	"github.com/google/uuid"
)

const defaultReservationTTL = 5 * time.Minute

type SubscriptionService interface {
	// Consume marks the subscription used for item in a single conditional write.
	Consume(ctx context.Context, userID, subscriptionID string, item entity.UsageItem) error
	// Reserve holds the subscription for a pending listing and returns the reservation ID.
	Reserve(ctx context.Context, userID, subscriptionID string) (string, error)
	Commit(ctx context.Context, subscriptionID, reservationID string, item entity.UsageItem) error
	Release(ctx context.Context, subscriptionID, reservationID string) error
}

type subscriptionService struct {
	repo           repository.SubscriptionRepository
	publisher      EventPublisher
	metrics        *metrics.Metrics
	log            logger.Logger
	reservationTTL time.Duration
	now            func() time.Time
}

type SubscriptionServiceConfig struct {
	ReservationTTL time.Duration
}

func NewSubscriptionService(
	repo repository.SubscriptionRepository,
	publisher EventPublisher,
	m *metrics.Metrics,
	log logger.Logger,
	cfg SubscriptionServiceConfig,
) SubscriptionService {
	ttl := cfg.ReservationTTL
	if ttl <= 0 {
		ttl = defaultReservationTTL
	}
	return &subscriptionService{
		repo:           repo,
		publisher:      publisher,
		metrics:        m,
		log:            log,
		reservationTTL: ttl,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

type SubscriptionConsumedEvent struct {
	SubscriptionID string           `json:"subscriptionId"`
	UserID         string           `json:"userId"`
	Item           entity.UsageItem `json:"item"`
	ConsumedAt     time.Time        `json:"consumedAt"`
}

func (e SubscriptionConsumedEvent) EventKey() string { return e.SubscriptionID }

// check loads the subscription and applies the ordered gate checks.
func (s *subscriptionService) check(ctx context.Context, op, userID, subscriptionID string, now time.Time) error {
	sub, err := s.repo.GetByID(ctx, subscriptionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) || errors.Is(err, repository.ErrInvalidID) {
			return subscriptionErr(op, entity.ErrSubscriptionNotFound)
		}
		s.log.Errorf("%s: failed to load subscription %s: %v", op, subscriptionID, err)
		return subscriptionErr(op, err)
	}
	if err := sub.CheckConsumable(userID, now, s.reservationTTL); err != nil {
		s.log.Warnf("%s: subscription %s rejected for user %s: %v", op, subscriptionID, userID, err)
		return subscriptionErr(op, err)
	}
	return nil
}

func (s *subscriptionService) Consume(ctx context.Context, userID, subscriptionID string, item entity.UsageItem) error {
	const op = "SubscriptionService.Consume"
	s.log.Infof("Consuming subscription: SubscriptionID=%s, UserID=%s, Item=%s", subscriptionID, userID, item.ItemID)

	now := s.now()
	if err := s.check(ctx, op, userID, subscriptionID, now); err != nil {
		return err
	}
	if err := s.repo.Consume(ctx, subscriptionID, userID, item, now, s.reservationTTL); err != nil {
		s.log.Warnf("%s: conditional write for %s failed: %v", op, subscriptionID, err)
		return subscriptionErr(op, err)
	}

	s.consumed(ctx, subscriptionID, userID, item, now)
	return nil
}

func (s *subscriptionService) Reserve(ctx context.Context, userID, subscriptionID string) (string, error) {
	const op = "SubscriptionService.Reserve"

	now := s.now()
	if err := s.check(ctx, op, userID, subscriptionID, now); err != nil {
		return "", err
	}

	reservationID := uuid.NewString()
	if err := s.repo.Reserve(ctx, subscriptionID, userID, reservationID, now, s.reservationTTL); err != nil {
		s.log.Warnf("%s: reservation of %s lost: %v", op, subscriptionID, err)
		return "", subscriptionErr(op, err)
	}
	s.log.Infof("Subscription %s reserved for user %s (reservation %s)", subscriptionID, userID, reservationID)
	return reservationID, nil
}

func (s *subscriptionService) Commit(ctx context.Context, subscriptionID, reservationID string, item entity.UsageItem) error {
	const op = "SubscriptionService.Commit"
	if reservationID == "" {
		return apperr.NewValidation(op, "reservation ID is required")
	}

	now := s.now()
	if err := s.repo.Commit(ctx, subscriptionID, reservationID, item, now); err != nil {
		s.log.Errorf("%s: commit of %s (reservation %s) failed: %v", op, subscriptionID, reservationID, err)
		return subscriptionErr(op, err)
	}

	s.consumed(ctx, subscriptionID, "", item, now)
	return nil
}

func (s *subscriptionService) Release(ctx context.Context, subscriptionID, reservationID string) error {
	const op = "SubscriptionService.Release"
	if err := s.repo.Release(ctx, subscriptionID, reservationID); err != nil {
		s.log.Errorf("%s: release of %s (reservation %s) failed: %v", op, subscriptionID, reservationID, err)
		return subscriptionErr(op, err)
	}
	s.log.Infof("Subscription %s released (reservation %s)", subscriptionID, reservationID)
	return nil
}

func (s *subscriptionService) consumed(ctx context.Context, subscriptionID, userID string, item entity.UsageItem, at time.Time) {
	s.metrics.SubscriptionConsumed()
	publishEvent(ctx, s.publisher, s.log, SubjectSubscriptionConsumed, SubscriptionConsumedEvent{
		SubscriptionID: subscriptionID,
		UserID:         userID,
		Item:           item,
		ConsumedAt:     at,
	})
}
