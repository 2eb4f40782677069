package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

const (
	headerMsgID       = "Nats-Msg-Id"
	headerContentType = "Content-Type"
)

// Keyed events carry a stable id so a JetStream stream can drop redeliveries.
type Keyed interface {
	EventKey() string
}

type MessagePublisher interface {
	Publish(ctx context.Context, subject string, message interface{}) error
}

type natsPublisher struct {
	conn       *nats.Conn
	propagator propagation.TextMapPropagator
}

func NewNATSPublisher(conn *nats.Conn) (MessagePublisher, error) {
	if conn == nil {
		return nil, fmt.Errorf("NATS connection cannot be nil")
	}
	return &natsPublisher{
		conn:       conn,
		propagator: otel.GetTextMapPropagator(),
	}, nil
}

// Publish sends message as JSON with the caller's trace context in the headers.
func (p *natsPublisher) Publish(ctx context.Context, subject string, message interface{}) error {
	msg, err := newMessage(ctx, p.propagator, subject, message)
	if err != nil {
		return err
	}
	if err := p.conn.PublishMsg(msg); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	return nil
}

func newMessage(ctx context.Context, propagator propagation.TextMapPropagator, subject string, message interface{}) (*nats.Msg, error) {
	data, err := json.Marshal(message)
	if err != nil {
		return nil, fmt.Errorf("encode %s event: %w", subject, err)
	}

	msg := nats.NewMsg(subject)
	msg.Data = data
	msg.Header.Set(headerContentType, "application/json")

	id := uuid.NewString()
	if keyed, ok := message.(Keyed); ok && keyed.EventKey() != "" {
		id = subject + ":" + keyed.EventKey()
	}
	msg.Header.Set(headerMsgID, id)

	propagator.Inject(ctx, propagation.HeaderCarrier(http.Header(msg.Header)))
	return msg, nil
}

// NoopPublisher drops events; used when NATS is not configured.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, string, interface{}) error {
	return nil
}
