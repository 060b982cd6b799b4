package gateway

import (
	"context"
	"errors"
	"log/slog"

	"github.com/stripe/stripe-go/v82"
	checkoutsession "github.com/stripe/stripe-go/v82/checkout/session"

	"github.com/nordmark/vitrine/internal/domain"
)

// StripeProvider implements Provider on Stripe Checkout. A preference maps
// to a Checkout Session in payment mode; the session URL is the init
// point and the session ID is the payment ID.
type StripeProvider struct {
	logger *slog.Logger
}

// StripeConfig contains configuration for the Stripe provider.
type StripeConfig struct {
	APIKey string
	Logger *slog.Logger
}

// NewStripeProvider creates a Stripe-backed gateway provider. The API key
// is installed process-wide, matching the SDK's package-level call style.
func NewStripeProvider(cfg StripeConfig) (*StripeProvider, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	stripe.Key = cfg.APIKey

	return &StripeProvider{logger: cfg.Logger}, nil
}

// CreatePreference creates a payment-mode Checkout Session. The caller's
// idempotency key makes Stripe return the already-created session when the
// same attempt is re-sent, without collapsing distinct attempts for the
// same cart content.
func (p *StripeProvider) CreatePreference(ctx context.Context, params CreatePreferenceParams) (*Preference, error) {
	if len(params.Items) == 0 {
		return nil, ErrNoItems
	}

	currency := params.Currency
	if currency == "" {
		currency = "usd"
	}

	lineItems := make([]*stripe.CheckoutSessionLineItemParams, 0, len(params.Items)+1)
	for _, item := range params.Items {
		lineItems = append(lineItems, &stripe.CheckoutSessionLineItemParams{
			Quantity: stripe.Int64(int64(item.Quantity)),
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(currency),
				UnitAmount: stripe.Int64(item.UnitPriceCents),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(item.Title),
					Metadata: map[string]string{
						"product_id": item.ProductID,
					},
				},
			},
		})
	}

	if params.ShippingCents > 0 {
		lineItems = append(lineItems, &stripe.CheckoutSessionLineItemParams{
			Quantity: stripe.Int64(1),
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(currency),
				UnitAmount: stripe.Int64(params.ShippingCents),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String("Shipping"),
				},
			},
		})
	}

	sessionParams := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems:         lineItems,
		SuccessURL:        stripe.String(params.SuccessURL),
		CancelURL:         stripe.String(params.CancelURL),
		ClientReferenceID: stripe.String(params.ExternalReference),
	}
	sessionParams.Context = ctx
	if params.IdempotencyKey != "" {
		sessionParams.IdempotencyKey = stripe.String(params.IdempotencyKey)
	}

	session, err := checkoutsession.New(sessionParams)
	if err != nil {
		p.logger.Error("failed to create checkout session",
			"external_reference", params.ExternalReference,
			"error", err)
		return nil, domain.Gateway(err, "gateway.create", "payment gateway rejected the request")
	}

	p.logger.Info("checkout session created",
		"session_id", session.ID,
		"external_reference", params.ExternalReference)

	return &Preference{ID: session.ID, InitPoint: session.URL}, nil
}

// GetPaymentStatus fetches the session from Stripe and maps its payment
// state. This is the re-verification step behind every redirect.
func (p *StripeProvider) GetPaymentStatus(ctx context.Context, paymentID string) (Status, error) {
	getParams := &stripe.CheckoutSessionParams{}
	getParams.Context = ctx

	session, err := checkoutsession.Get(paymentID, getParams)
	if err != nil {
		if isStripeNotFound(err) {
			return StatusUnknown, ErrPaymentNotFound
		}
		return StatusUnknown, domain.Gateway(err, "gateway.status", "failed to query payment status")
	}

	switch {
	case session.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid:
		return StatusApproved, nil
	case session.Status == stripe.CheckoutSessionStatusExpired:
		return StatusRejected, nil
	default:
		return StatusPending, nil
	}
}

func isStripeNotFound(err error) bool {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		return stripeErr.HTTPStatusCode == 404 || stripeErr.Code == stripe.ErrorCodeResourceMissing
	}
	return false
}
