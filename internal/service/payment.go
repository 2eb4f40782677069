package service

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/donaldmo/pandopot-api/internal/adapter/payment"
	"github.com/donaldmo/pandopot-api/internal/adapter/secrets"
	"github.com/donaldmo/pandopot-api/internal/domain/apperr"
	"github.com/donaldmo/pandopot-api/internal/domain/entity"
	"github.com/donaldmo/pandopot-api/internal/platform/logger"
	"github.com/donaldmo/pandopot-api/internal/platform/metrics"
)

const (
	purposeOrder = "order"
	purposeBoost = "boost"
)

func toCents(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// paymentKey resolves the gateway key for accountID. A missing key means the account cannot take payments.
func paymentKey(ctx context.Context, store secrets.Store, op, accountID string) (string, error) {
	key, err := store.PaymentKey(ctx, accountID)
	if err != nil {
		if errors.Is(err, secrets.ErrSecretNotFound) {
			return "", &apperr.Error{Kind: apperr.KindPaymentUnavailable, Op: op, Message: "merchant account is not configured for payments", Err: err}
		}
		return "", apperr.Wrap(apperr.KindPaymentUnavailable, op, err)
	}
	return key, nil
}

func paymentOutcome(err error) string {
	if apperr.IsChargeUnknown(err) {
		return "unknown"
	}
	switch apperr.KindOf(err) {
	case apperr.KindPaymentDeclined:
		return "declined"
	case apperr.KindPaymentUnavailable:
		return "unavailable"
	case apperr.KindValidation:
		return "invalid"
	default:
		return "error"
	}
}

func paymentRecord(charge *payment.Charge, at time.Time) entity.PaymentRecord {
	return entity.PaymentRecord{
		Provider:      charge.Provider,
		ChargeID:      charge.ID,
		Status:        charge.Status,
		AmountInCents: charge.AmountInCents,
		Currency:      charge.Currency,
		Raw:           charge.Raw,
		CapturedAt:    at,
	}
}

// reportUnrecorded flags a charge that may have been captured but has no record.
func reportUnrecorded(ctx context.Context, pub EventPublisher, m *metrics.Metrics, log logger.Logger, event ReconciliationEvent) {
	log.Errorf("RECONCILIATION REQUIRED: %s charge %s [key %s] (%d %s) by %s for %s not recorded: %s",
		event.Purpose, event.ChargeID, event.ProviderKey, event.AmountInCents, event.Currency, event.PayerID, event.ReferenceID, event.Reason)
	m.ReconciliationNeeded(event.Purpose)
	publishEvent(ctx, pub, log, SubjectReconciliationRequired, event)
}
