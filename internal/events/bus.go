// Package events provides the in-process notification bus and the NATS
// publisher for cross-service events. The bus replaces ambient mutable
// broadcast state with an explicit subscribe/unsubscribe lifecycle.
package events

import "sync"

// Topics published by the cart and order subsystems.
const (
	TopicCartChanged = "cart.changed" // payload: []domain.CartLine
	TopicCartSync    = "cart.sync"    // payload: domain.SyncStatus
	TopicOrderStatus = "order.status" // payload: OrderStatusEvent
)

// Event is a topic plus an arbitrary payload.
type Event struct {
	Topic   string
	Payload any
}

// Handler consumes a published event. Handlers run synchronously on the
// publisher's goroutine and must not block.
type Handler func(Event)

// Bus is a minimal in-process publish/subscribe broker.
type Bus struct {
	mu     sync.RWMutex
	nextID int
	subs   map[string]map[int]Handler
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[string]map[int]Handler)}
}

// Subscription identifies one registered handler.
type Subscription struct {
	bus   *Bus
	topic string
	id    int
}

// Subscribe registers fn for a topic and returns a handle for Unsubscribe.
func (b *Bus) Subscribe(topic string, fn Handler) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	if b.subs[topic] == nil {
		b.subs[topic] = make(map[int]Handler)
	}
	b.subs[topic][b.nextID] = fn

	return &Subscription{bus: b, topic: topic, id: b.nextID}
}

// Unsubscribe removes the handler. Safe to call more than once.
func (s *Subscription) Unsubscribe() {
	if s == nil || s.bus == nil {
		return
	}
	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()
	delete(s.bus.subs[s.topic], s.id)
}

// Publish delivers the event to every current subscriber of its topic.
func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.subs[e.Topic]))
	for _, fn := range b.subs[e.Topic] {
		handlers = append(handlers, fn)
	}
	b.mu.RUnlock()

	for _, fn := range handlers {
		fn(e)
	}
}

// OrderStatusEvent is the payload published on TopicOrderStatus and
// forwarded to NATS.
type OrderStatusEvent struct {
	OrderID   string `json:"orderId"`
	UserID    string `json:"userId,omitempty"`
	PaymentID string `json:"paymentId,omitempty"`
	From      string `json:"from"`
	To        string `json:"to"`
}
