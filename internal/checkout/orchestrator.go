package checkout

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/nordmark/vitrine/internal/catalog"
	"github.com/nordmark/vitrine/internal/domain"
	"github.com/nordmark/vitrine/internal/gateway"
	"github.com/nordmark/vitrine/internal/telemetry"
)

// Orchestrator drives the checkout flow: it prices drafts and turns them
// into gateway payment intents, exactly once per draft content.
type Orchestrator interface {
	// RequestPayment returns the payment intent for a draft, creating one
	// at the gateway only if no active intent exists for the draft's hash.
	// On gateway failure nothing is recorded, so a retry starts clean.
	RequestPayment(ctx context.Context, draft *domain.OrderDraft) (*domain.PaymentIntent, error)
}

type orchestratorService struct {
	gateway gateway.Provider
	intents IntentStore
	catalog catalog.Service
	logger  *slog.Logger
	metrics *telemetry.BusinessMetrics

	currency   string
	successURL string
	cancelURL  string
}

// Config contains checkout orchestrator configuration.
type Config struct {
	Gateway gateway.Provider
	Intents IntentStore

	// Catalog resolves product names for the hosted payment page. Optional;
	// without it line items are labeled by product ID.
	Catalog catalog.Service

	Currency   string // defaults to "usd"
	SuccessURL string
	CancelURL  string

	Logger  *slog.Logger
	Metrics *telemetry.BusinessMetrics
}

// NewOrchestrator creates the checkout orchestrator.
func NewOrchestrator(cfg Config) (Orchestrator, error) {
	if cfg.Gateway == nil {
		return nil, domain.Invalid("checkout.new", "payment gateway is required")
	}
	if cfg.Intents == nil {
		return nil, domain.Invalid("checkout.new", "intent store is required")
	}
	if cfg.Currency == "" {
		cfg.Currency = "usd"
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &orchestratorService{
		gateway:    cfg.Gateway,
		intents:    cfg.Intents,
		catalog:    cfg.Catalog,
		logger:     cfg.Logger,
		metrics:    cfg.Metrics,
		currency:   cfg.Currency,
		successURL: cfg.SuccessURL,
		cancelURL:  cfg.CancelURL,
	}, nil
}

func (s *orchestratorService) RequestPayment(ctx context.Context, draft *domain.OrderDraft) (*domain.PaymentIntent, error) {
	if draft == nil || len(draft.Items) == 0 {
		return nil, domain.ErrEmptyCart
	}
	if draft.AddressID == "" {
		return nil, domain.ErrNoAddressSelected
	}

	hash := draft.Hash()

	existing, err := s.intents.ActiveForDraft(ctx, hash)
	if err != nil {
		return nil, domain.Internal(err, "checkout.request", "failed to look up payment intent")
	}
	if existing != nil {
		s.logger.Info("reusing payment intent",
			"intent_id", existing.IntentID,
			"draft_hash", hash)
		s.countIntent("reused")
		return existing, nil
	}

	// Each attempt carries its own gateway idempotency key. Keying on the
	// bare draft hash would make the gateway replay the session created for
	// an earlier, since-settled payment of the same cart content.
	intentID := uuid.New().String()

	pref, err := s.gateway.CreatePreference(ctx, gateway.CreatePreferenceParams{
		Items:             s.preferenceItems(ctx, draft),
		ShippingCents:     int64(draft.ShippingCents),
		Currency:          s.currency,
		ExternalReference: hash,
		IdempotencyKey:    hash + ":" + intentID,
		SuccessURL:        s.successURL,
		CancelURL:         s.cancelURL,
	})
	if err != nil {
		// Nothing stored: the draft stays intent-less and the next attempt
		// hits the gateway again.
		s.logger.Error("payment intent creation failed", "draft_hash", hash, "error", err)
		s.countIntent("failed")
		return nil, err
	}

	intent := &domain.PaymentIntent{
		IntentID:     intentID,
		DraftHash:    hash,
		PreferenceID: pref.ID,
		InitPoint:    pref.InitPoint,
		CreatedAt:    time.Now().UTC(),
	}

	if err := s.intents.Save(ctx, intent); err != nil {
		return nil, domain.Internal(err, "checkout.request", "failed to store payment intent")
	}

	s.logger.Info("payment intent created",
		"intent_id", intent.IntentID,
		"preference_id", pref.ID,
		"total_cents", draft.TotalCents)
	s.countIntent("created")

	return intent, nil
}

// preferenceItems maps draft items to gateway line items, applying the
// per-line discount to the unit price so the gateway charges the draft
// total. Catalog lookups fill in display names; failures fall back to the
// product ID rather than blocking checkout.
func (s *orchestratorService) preferenceItems(ctx context.Context, draft *domain.OrderDraft) []gateway.PreferenceItem {
	items := make([]gateway.PreferenceItem, 0, len(draft.Items))
	for _, it := range draft.Items {
		title := it.ProductID
		if s.catalog != nil {
			if p, err := s.catalog.GetProduct(ctx, it.ProductID); err == nil {
				title = p.Name
			}
		}

		unit := int64(it.UnitPriceCents)
		unit -= unit * int64(it.DiscountPercent) / 100

		items = append(items, gateway.PreferenceItem{
			ProductID:      it.ProductID,
			Title:          title,
			Quantity:       it.Quantity,
			UnitPriceCents: unit,
		})
	}
	return items
}

func (s *orchestratorService) countIntent(result string) {
	if s.metrics != nil {
		s.metrics.PaymentIntents.WithLabelValues(result).Inc()
	}
}
