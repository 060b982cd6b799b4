package checkout

import (
	"context"
	"log/slog"

	"github.com/nordmark/vitrine/internal/domain"
	"github.com/nordmark/vitrine/internal/events"
)

// ReleaseIntentOnSettlement returns a bus handler that drops the payment
// intent bound to an order once the order leaves PENDING. A cancelled
// payment stops blocking its draft hash, so retrying the identical cart
// reaches the gateway again, and a paid cart can be bought once more with
// a fresh session.
func ReleaseIntentOnSettlement(intents IntentStore, logger *slog.Logger) events.Handler {
	if logger == nil {
		logger = slog.Default()
	}

	return func(e events.Event) {
		evt, ok := e.Payload.(events.OrderStatusEvent)
		if !ok || evt.From != string(domain.OrderPending) || evt.PaymentID == "" {
			return
		}

		if err := intents.DeleteByPreference(context.Background(), evt.PaymentID); err != nil {
			logger.Error("failed to release payment intent",
				"order_id", evt.OrderID,
				"payment_id", evt.PaymentID,
				"error", err)
		}
	}
}
