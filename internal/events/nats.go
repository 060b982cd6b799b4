package events

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// SubjectOrderStatus is the NATS subject order lifecycle events are
// published on. Downstream consumers (fulfillment, notifications)
// subscribe to it.
const SubjectOrderStatus = "vitrine.order.status"

// NATSPublisher forwards order lifecycle events to a NATS server.
// It is optional: when no NATS URL is configured the service runs with the
// in-process bus only.
type NATSPublisher struct {
	conn   *nats.Conn
	logger *slog.Logger
}

// NewNATSPublisher connects to the NATS server at url.
func NewNATSPublisher(url string, logger *slog.Logger) (*NATSPublisher, error) {
	if logger == nil {
		logger = slog.Default()
	}

	conn, err := nats.Connect(url,
		nats.Name("vitrine-storefront"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats: %w", err)
	}

	return &NATSPublisher{conn: conn, logger: logger}, nil
}

// Publish marshals v as JSON and publishes it on subject. Publish failures
// are logged, not propagated: event delivery is best-effort and must never
// fail an order transition.
func (p *NATSPublisher) Publish(subject string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		p.logger.Error("failed to marshal event", "subject", subject, "error", err)
		return
	}

	if err := p.conn.Publish(subject, data); err != nil {
		p.logger.Error("failed to publish event", "subject", subject, "error", err)
	}
}

// Bridge subscribes the publisher to the in-process bus so order status
// events flow out to NATS. Returns the subscription for teardown.
func (p *NATSPublisher) Bridge(bus *Bus) *Subscription {
	return bus.Subscribe(TopicOrderStatus, func(e Event) {
		p.Publish(SubjectOrderStatus, e.Payload)
	})
}

// Close drains and closes the underlying connection.
func (p *NATSPublisher) Close() {
	if err := p.conn.Drain(); err != nil {
		p.logger.Warn("nats drain failed", "error", err)
	}
}
