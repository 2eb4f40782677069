// Package payment talks to the card charge provider.
package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptrace"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/donaldmo/pandopot-api/internal/app/config"
	"github.com/donaldmo/pandopot-api/internal/domain/apperr"
	"github.com/donaldmo/pandopot-api/internal/platform/logger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const (
	providerName    = "yoco"
	maxResponseBody = 1 << 20
)

type ChargeRequest struct {
	Token          string
	AmountInCents  int64
	Currency       string
	SecretKey      string
	IdempotencyKey string
}

// Charge is the provider's confirmation. Raw keeps the response body as returned.
type Charge struct {
	Provider      string
	ID            string
	Status        string
	AmountInCents int64
	Currency      string
	Raw           map[string]interface{}
}

type Gateway interface {
	Charge(ctx context.Context, req ChargeRequest) (*Charge, error)
}

type YocoGateway struct {
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
	tracer     trace.Tracer
	log        logger.Logger
}

func NewYocoGateway(cfg config.PaymentConfig, httpClient *http.Client, log logger.Logger) *YocoGateway {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &YocoGateway{
		baseURL:    cfg.BaseURL,
		timeout:    cfg.Timeout,
		httpClient: httpClient,
		tracer:     otel.Tracer("payment-gateway"),
		log:        log,
	}
}

func (r ChargeRequest) validate() error {
	if r.Token == "" {
		return errors.New("payment token is required")
	}
	if r.AmountInCents <= 0 {
		return errors.New("amount must be positive")
	}
	if r.Currency == "" {
		return errors.New("currency is required")
	}
	if r.SecretKey == "" {
		return errors.New("gateway secret key is missing")
	}
	return nil
}

// Charge returns *apperr.Error of kind PaymentDeclined when the provider
// rejects the charge and PaymentUnavailable on 5xx responses and on failures
// before the request was sent. Once the request has been written, a lost or
// unreadable answer is PaymentUnavailable with ChargeUnknown set.
func (g *YocoGateway) Charge(ctx context.Context, req ChargeRequest) (*Charge, error) {
	const op = "payment.Charge"

	if err := req.validate(); err != nil {
		return nil, apperr.Wrap(apperr.KindValidation, op, err)
	}

	ctx, span := g.tracer.Start(ctx, "yoco.Charge", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(
		attribute.Int64("payment.amount_cents", req.AmountInCents),
		attribute.String("payment.currency", req.Currency),
	)

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	form := url.Values{}
	form.Set("token", req.Token)
	form.Set("amountInCents", strconv.FormatInt(req.AmountInCents, 10))
	form.Set("currency", req.Currency)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, apperr.Wrap(apperr.KindPaymentUnavailable, op, err)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.SetBasicAuth(req.SecretKey, "")
	if req.IdempotencyKey != "" {
		httpReq.Header.Set("Idempotency-Key", req.IdempotencyKey)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(httpReq.Header))

	var dispatched atomic.Bool
	httpReq = httpReq.WithContext(httptrace.WithClientTrace(ctx, &httptrace.ClientTrace{
		WroteHeaders: func() { dispatched.Store(true) },
	}))

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transport failure")
		g.log.Errorf("Payment gateway request failed (timeout=%t, dispatched=%t): %v", isTimeout(err), dispatched.Load(), err)
		if dispatched.Load() {
			return nil, apperr.NewChargeUnknown(op, "payment gateway did not answer a dispatched charge", err)
		}
		return nil, &apperr.Error{
			Kind:    apperr.KindPaymentUnavailable,
			Op:      op,
			Message: "payment gateway unreachable",
			Err:     err,
		}
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil && resp.StatusCode < 400 {
		span.RecordError(err)
		span.SetStatus(codes.Error, "read failure")
		return nil, apperr.NewChargeUnknown(op, fmt.Sprintf("gateway response (status %d) could not be read", resp.StatusCode), err)
	}

	raw := make(map[string]interface{})
	if len(body) > 0 {
		if err := json.Unmarshal(body, &raw); err != nil {
			g.log.Warnf("Payment gateway returned non-JSON body with status %d", resp.StatusCode)
		}
	}

	switch {
	case resp.StatusCode >= 500:
		span.SetStatus(codes.Error, "provider error")
		return nil, &apperr.Error{
			Kind:    apperr.KindPaymentUnavailable,
			Op:      op,
			Message: fmt.Sprintf("payment gateway error (status %d)", resp.StatusCode),
		}
	case resp.StatusCode >= 400:
		span.SetStatus(codes.Error, "declined")
		return nil, &apperr.Error{
			Kind:    apperr.KindPaymentDeclined,
			Op:      op,
			Message: declineMessage(raw, resp.StatusCode),
		}
	}

	charge := &Charge{
		Provider:      providerName,
		ID:            stringField(raw, "id"),
		Status:        stringField(raw, "status"),
		AmountInCents: req.AmountInCents,
		Currency:      req.Currency,
		Raw:           raw,
	}
	if charge.ID == "" {
		span.SetStatus(codes.Error, "missing charge id")
		return nil, apperr.NewChargeUnknown(op, fmt.Sprintf("gateway answered status %d without a charge id", resp.StatusCode), nil)
	}
	if charge.Status != "" && !strings.EqualFold(charge.Status, "successful") {
		span.SetStatus(codes.Error, "declined")
		return nil, &apperr.Error{
			Kind:     apperr.KindPaymentDeclined,
			Op:       op,
			Message:  fmt.Sprintf("charge %s finished with status %q", charge.ID, charge.Status),
			ChargeID: charge.ID,
		}
	}

	span.SetAttributes(attribute.String("payment.charge_id", charge.ID))
	g.log.Infof("Payment charge %s succeeded for %d %s", charge.ID, charge.AmountInCents, charge.Currency)
	return charge, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func stringField(raw map[string]interface{}, key string) string {
	if v, ok := raw[key].(string); ok {
		return v
	}
	return ""
}

func declineMessage(raw map[string]interface{}, status int) string {
	for _, key := range []string{"displayMessage", "message", "errorMessage"} {
		if msg := stringField(raw, key); msg != "" {
			return msg
		}
	}
	return fmt.Sprintf("payment declined (status %d)", status)
}
