package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/donaldmo/pandopot-api/internal/domain/apperr"
	"github.com/donaldmo/pandopot-api/internal/platform/logger"
	"github.com/donaldmo/pandopot-api/internal/platform/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func orderReceipt() Receipt {
	return Receipt{
		Kind:           ReceiptKindOrder,
		Reference:      "o1",
		RecipientEmail: "buyer@example.com",
		DisplayName:    "Lerato",
		Subject:        SubjectOrderReceipt,
		Items:          []ReceiptItem{{Item: "Tent", Description: "2 person", Price: FormatRand(251)}},
	}
}

func TestNotificationService_SendReceipt_SendsAndArchives(t *testing.T) {
	sender := new(MockEmailSender)
	archive := new(MockReceiptArchiver)
	m := metrics.New("test")
	svc := NewNotificationService(sender, archive, m, logger.NewNop(), NotificationServiceConfig{})

	archive.On("Put", mock.Anything, ReceiptKindOrder, "o1", mock.AnythingOfType("service.Receipt")).Return("orders/2024/05/o1.json", nil).Once()
	sender.On("Send", mock.Anything, []string{"buyer@example.com"}, SubjectOrderReceipt,
		mock.MatchedBy(func(html string) bool { return strings.Contains(html, "Tent") && strings.Contains(html, "R251.00") }),
		mock.MatchedBy(func(text string) bool { return strings.Contains(text, "Tent (2 person): R251.00") }),
	).Return(nil).Once()

	svc.SendReceipt(context.Background(), orderReceipt())
	svc.Wait()

	sender.AssertExpectations(t)
	archive.AssertExpectations(t)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.NotificationsTotal.WithLabelValues("receipt", "sent")))
}

func TestNotificationService_SendReceipt_SurvivesCancelledRequest(t *testing.T) {
	sender := new(MockEmailSender)
	svc := NewNotificationService(sender, nil, nil, logger.NewNop(), NotificationServiceConfig{})

	sender.On("Send", mock.MatchedBy(func(ctx context.Context) bool { return ctx.Err() == nil }),
		mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	svc.SendReceipt(ctx, orderReceipt())
	svc.Wait()

	sender.AssertExpectations(t)
}

func TestNotificationService_SendReceipt_FailureIsOnlyCounted(t *testing.T) {
	sender := new(MockEmailSender)
	m := metrics.New("test")
	svc := NewNotificationService(sender, nil, m, logger.NewNop(), NotificationServiceConfig{})

	sender.On("Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("smtp down")).Once()

	assert.NotPanics(t, func() {
		svc.SendReceipt(context.Background(), orderReceipt())
		svc.Wait()
	})
	assert.Equal(t, 1.0, testutil.ToFloat64(m.NotificationsTotal.WithLabelValues("receipt", "failed")))
}

func TestNotificationService_SendReceipt_BoostRows(t *testing.T) {
	sender := new(MockEmailSender)
	svc := NewNotificationService(sender, nil, nil, logger.NewNop(), NotificationServiceConfig{})

	receipt := Receipt{
		Kind:           ReceiptKindBoost,
		Reference:      "ch_1",
		RecipientEmail: "owner@example.com",
		Subject:        SubjectBoostReceipt,
		Items:          []ReceiptItem{{Name: "Slider", Price: "R50.00", ExpiryDate: "2024-06-01"}},
	}
	sender.On("Send", mock.Anything, []string{"owner@example.com"}, SubjectBoostReceipt, mock.Anything,
		mock.MatchedBy(func(text string) bool { return strings.Contains(text, "Slider until 2024-06-01: R50.00") }),
	).Return(nil).Once()

	svc.SendReceipt(context.Background(), receipt)
	svc.Wait()

	sender.AssertExpectations(t)
}

func TestNotificationService_SendContactMessage(t *testing.T) {
	sender := new(MockEmailSender)
	svc := NewNotificationService(sender, nil, nil, logger.NewNop(), NotificationServiceConfig{ContactEmail: "support@pandopot.co.za"})

	sender.On("Send", mock.Anything, []string{"support@pandopot.co.za"}, "Question", mock.Anything, mock.Anything).Return(nil).Once()

	err := svc.SendContactMessage(context.Background(), ContactMessage{Name: "Ann", Email: "ann@example.com", Subject: "Question", Message: "Hello"})
	svc.Wait()

	require.NoError(t, err)
	sender.AssertExpectations(t)
}

func TestNotificationService_SendContactMessage_Invalid(t *testing.T) {
	svc := NewNotificationService(new(MockEmailSender), nil, nil, logger.NewNop(), NotificationServiceConfig{ContactEmail: "support@pandopot.co.za"})

	err := svc.SendContactMessage(context.Background(), ContactMessage{Email: "ann@example.com"})

	assert.ErrorIs(t, err, apperr.Validation)
}

func TestFormatRand(t *testing.T) {
	assert.Equal(t, "R100.00", FormatRand(100))
	assert.Equal(t, "R100.50", FormatRand(100.5))
}
