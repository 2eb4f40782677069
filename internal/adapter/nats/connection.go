package nats

import (
	"fmt"
	"time"

	"github.com/donaldmo/pandopot-api/internal/app/config"
	"github.com/donaldmo/pandopot-api/internal/platform/logger"
	"github.com/nats-io/nats.go"
)

const connectWait = 5 * time.Second

// NewConnection retries a failed first connect in the background; publishes are buffered
// by the client until it is connected.
func NewConnection(cfg config.NATSConfig, log logger.Logger) (*nats.Conn, error) {
	name := cfg.ClientName
	if name == "" {
		name = "pandopot-api"
	}
	reconnectWait := cfg.ReconnectWait
	if reconnectWait <= 0 {
		reconnectWait = 2 * time.Second
	}

	nc, err := nats.Connect(cfg.URL,
		nats.Name(name),
		nats.Timeout(connectWait),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(reconnectWait),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warnf("Event bus disconnected, events are buffered until reconnect: %v", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Infof("Event bus reconnected to %s", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(*nats.Conn) {
			log.Info("Event bus connection closed")
		}),
		nats.ErrorHandler(func(_ *nats.Conn, _ *nats.Subscription, err error) {
			log.Errorf("Event bus async error: %v", err)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("event bus %s: %w", cfg.URL, err)
	}
	return nc, nil
}
