package eventhandlers

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rai/storefront-payments/modules/notifications/domain"
	"github.com/rai/storefront-payments/modules/shared/events"
	"github.com/rai/storefront-payments/modules/shared/events/contracts"
)

// PaymentFailedHandler alerts the shop admin when the gateway reports a
// failed payment for a pending order.
//
// It performs external side effects and runs after the failure has been
// committed, never inside a store transaction. Delivery is best-effort:
// the event bus logs a returned error and moves on.
type PaymentFailedHandler struct {
	mailer       domain.Mailer
	adminAddress string
	logger       *slog.Logger
}

func NewPaymentFailedHandler(mailer domain.Mailer, adminAddress string, logger *slog.Logger) *PaymentFailedHandler {
	return &PaymentFailedHandler{mailer: mailer, adminAddress: adminAddress, logger: logger}
}

func (h *PaymentFailedHandler) Handle(ctx context.Context, event events.Event) error {
	failed, ok := event.(contracts.PaymentFailedEvent)
	if !ok {
		return fmt.Errorf("unexpected event type: %T", event)
	}
	if h.adminAddress == "" {
		return nil
	}

	h.logger.Info("alerting admin of failed payment",
		slog.String("order_id", failed.OrderID),
		slog.String("intent_id", failed.IntentID),
	)

	msg := domain.Message{
		To:      h.adminAddress,
		Subject: "Payment failed for order " + failed.OrderID,
		Text: fmt.Sprintf("The gateway reported a failed payment.\n\nOrder: %s\nIntent: %s\nPayment: %s\nAt: %s\n",
			failed.OrderID, failed.IntentID, failed.GatewayPaymentID, failed.OccurredAt().Format("2006-01-02 15:04:05 MST")),
	}
	if err := h.mailer.Send(ctx, msg); err != nil {
		return fmt.Errorf("sending payment failure alert: %w", err)
	}
	return nil
}
