package order

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/nordmark/vitrine/internal/domain"
	"github.com/nordmark/vitrine/internal/events"
	"github.com/nordmark/vitrine/internal/gateway"
	"github.com/nordmark/vitrine/internal/telemetry"
)

// RedirectParams are the query parameters the gateway appends when sending
// the buyer back. They arrive through the buyer's browser and are treated
// as untrusted hints: the machine always re-verifies against the gateway
// before changing order state.
type RedirectParams struct {
	PaymentID     string
	ClaimedStatus string // what the redirect says happened; never trusted
}

// Machine owns order lifecycle transitions. Every state change goes
// through the guarded transition table; there is no way to set a status
// directly.
type Machine struct {
	store   Store
	gateway gateway.Provider
	bus     *events.Bus
	logger  *slog.Logger
	metrics *telemetry.BusinessMetrics
}

// MachineConfig contains order machine configuration.
type MachineConfig struct {
	Store   Store
	Gateway gateway.Provider
	Bus     *events.Bus
	Logger  *slog.Logger
	Metrics *telemetry.BusinessMetrics
}

// NewMachine creates the order state machine.
func NewMachine(cfg MachineConfig) (*Machine, error) {
	if cfg.Store == nil {
		return nil, domain.Invalid("order.new", "order store is required")
	}
	if cfg.Gateway == nil {
		return nil, domain.Invalid("order.new", "payment gateway is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Machine{
		store:   cfg.Store,
		gateway: cfg.Gateway,
		bus:     cfg.Bus,
		logger:  cfg.Logger,
		metrics: cfg.Metrics,
	}, nil
}

// CreateFromIntent records a PENDING order bound to a gateway payment.
// Called right after payment intent creation, before the buyer is
// redirected, so the redirect handler always finds an order to confirm.
func (m *Machine) CreateFromIntent(ctx context.Context, userID string, draft *domain.OrderDraft, paymentID string) (*domain.Order, error) {
	if paymentID == "" {
		return nil, domain.Invalid("order.create", "payment ID is required")
	}
	return m.create(ctx, userID, draft, paymentID, "gateway")
}

// CreateManual records a PENDING order with no gateway payment, for
// offline handoff (payment arranged outside the gateway). Such orders
// reach PAID only through explicit back-office confirmation.
func (m *Machine) CreateManual(ctx context.Context, userID string, draft *domain.OrderDraft) (*domain.Order, error) {
	return m.create(ctx, userID, draft, "", "manual")
}

func (m *Machine) create(ctx context.Context, userID string, draft *domain.OrderDraft, paymentID, path string) (*domain.Order, error) {
	if draft == nil || len(draft.Items) == 0 {
		return nil, domain.ErrEmptyCart
	}
	if draft.AddressID == "" {
		return nil, domain.ErrNoAddressSelected
	}

	items := make([]domain.OrderItem, len(draft.Items))
	for i, it := range draft.Items {
		items[i] = domain.OrderItem{
			ProductID:       it.ProductID,
			Quantity:        it.Quantity,
			UnitPriceCents:  it.UnitPriceCents,
			DiscountPercent: it.DiscountPercent,
		}
	}

	now := time.Now().UTC()
	o := &domain.Order{
		OrderID:       uuid.New().String(),
		UserID:        userID,
		AddressID:     draft.AddressID,
		Items:         items,
		Status:        domain.OrderPending,
		PaymentID:     paymentID,
		SubtotalCents: draft.SubtotalCents,
		DiscountCents: draft.DiscountCents,
		ShippingCents: draft.ShippingCents,
		TotalCents:    draft.TotalCents,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := m.store.Create(ctx, o); err != nil {
		return nil, domain.Internal(err, "order.create", "failed to store order")
	}

	m.logger.Info("order created",
		"order_id", o.OrderID,
		"path", path,
		"total_cents", o.TotalCents)

	if m.metrics != nil {
		m.metrics.OrdersCreated.WithLabelValues(path).Inc()
		m.metrics.OrderValue.Observe(float64(o.TotalCents))
	}

	return o, nil
}

// ConfirmRedirect resolves a gateway redirect. The claimed status is only
// used to detect contradictions; the decision is made on the status the
// gateway reports when asked directly:
//
//   - verified approved: PENDING -> PAID
//   - verified rejected: PENDING -> CANCELLED, ErrPaymentNotApproved
//   - verified pending while the redirect claimed approval: order stays
//     PENDING, ErrStaleRedirect
//   - verified pending otherwise: order stays PENDING, no error
//
// Replayed redirects for an already-PAID order succeed without a second
// transition.
func (m *Machine) ConfirmRedirect(ctx context.Context, params RedirectParams) (*domain.Order, error) {
	if params.PaymentID == "" {
		return nil, domain.Invalid("order.confirm", "payment ID is required")
	}

	o, err := m.store.GetByPaymentID(ctx, params.PaymentID)
	if err != nil {
		return nil, err
	}

	verified, err := m.gateway.GetPaymentStatus(ctx, params.PaymentID)
	if err != nil {
		// Could not verify: change nothing.
		return nil, domain.Gateway(err, "order.confirm", "failed to verify payment status")
	}

	switch verified {
	case gateway.StatusApproved:
		if o.Status == domain.OrderPaid || o.Status == domain.OrderShipped {
			m.countRedirect("confirmed")
			return o, nil
		}
		if err := m.transition(ctx, o, domain.OrderPaid); err != nil {
			return nil, err
		}
		m.countRedirect("confirmed")
		return o, nil

	case gateway.StatusRejected:
		if o.Status == domain.OrderPending {
			if err := m.transition(ctx, o, domain.OrderCancelled); err != nil {
				return nil, err
			}
		}
		m.countRedirect("rejected")
		return o, domain.ErrPaymentNotApproved

	default:
		if params.ClaimedStatus == string(gateway.StatusApproved) {
			// The redirect says paid, the gateway says otherwise. Trust
			// the gateway and tell the caller the redirect is stale.
			m.logger.Warn("redirect contradicts gateway status",
				"order_id", o.OrderID,
				"payment_id", params.PaymentID,
				"claimed", params.ClaimedStatus,
				"verified", string(verified))
			m.countRedirect("stale")
			return o, domain.ErrStaleRedirect
		}
		m.countRedirect("pending")
		return o, nil
	}
}

// MarkShipped moves a PAID order to SHIPPED.
func (m *Machine) MarkShipped(ctx context.Context, orderID string) (*domain.Order, error) {
	return m.applyTransition(ctx, orderID, domain.OrderShipped)
}

// Cancel cancels a PENDING order. Paid orders cannot be cancelled here.
func (m *Machine) Cancel(ctx context.Context, orderID string) (*domain.Order, error) {
	return m.applyTransition(ctx, orderID, domain.OrderCancelled)
}

// Get returns an order by ID.
func (m *Machine) Get(ctx context.Context, orderID string) (*domain.Order, error) {
	return m.store.GetByID(ctx, orderID)
}

// GetByPayment returns the order bound to a gateway payment.
func (m *Machine) GetByPayment(ctx context.Context, paymentID string) (*domain.Order, error) {
	return m.store.GetByPaymentID(ctx, paymentID)
}

// ListByUser returns a user's orders, newest first.
func (m *Machine) ListByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	return m.store.ListByUser(ctx, userID)
}

func (m *Machine) applyTransition(ctx context.Context, orderID string, to domain.OrderStatus) (*domain.Order, error) {
	o, err := m.store.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := m.transition(ctx, o, to); err != nil {
		return nil, err
	}
	return o, nil
}

// transition applies one guarded status change and publishes it. The store
// enforces the same guard on its side, so a racing transition loses cleanly.
func (m *Machine) transition(ctx context.Context, o *domain.Order, to domain.OrderStatus) error {
	from := o.Status
	if !domain.CanTransition(from, to) {
		return domain.ErrInvalidTransition
	}

	if err := m.store.UpdateStatus(ctx, o.OrderID, from, to); err != nil {
		return err
	}

	o.Status = to
	o.UpdatedAt = time.Now().UTC()

	m.logger.Info("order transitioned",
		"order_id", o.OrderID,
		"from", string(from),
		"to", string(to))

	if m.metrics != nil {
		m.metrics.OrderTransitions.WithLabelValues(string(from), string(to)).Inc()
	}
	if m.bus != nil {
		m.bus.Publish(events.Event{
			Topic: events.TopicOrderStatus,
			Payload: events.OrderStatusEvent{
				OrderID:   o.OrderID,
				UserID:    o.UserID,
				PaymentID: o.PaymentID,
				From:      string(from),
				To:        string(to),
			},
		})
	}

	return nil
}

func (m *Machine) countRedirect(outcome string) {
	if m.metrics != nil {
		m.metrics.RedirectsVerified.WithLabelValues(outcome).Inc()
	}
}
