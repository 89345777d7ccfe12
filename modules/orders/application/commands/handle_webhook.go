package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/rai/storefront-payments/modules/orders/domain"
	"github.com/rai/storefront-payments/modules/payments"
)

// HandleWebhookCommand carries the untouched webhook body and its signature.
type HandleWebhookCommand struct {
	Body      []byte
	Signature string
}

type WebhookDisposition string

const (
	WebhookProcessed        WebhookDisposition = "processed"
	WebhookAlreadyProcessed WebhookDisposition = "already processed"
	WebhookFailureRecorded  WebhookDisposition = "failure recorded"
	WebhookIgnored          WebhookDisposition = "ignored"
)

type HandleWebhookResult struct {
	Disposition WebhookDisposition
	Event       string
	IntentID    string
	Outcome     Outcome
}

// HandleWebhookHandler handles asynchronous gateway webhooks. Deliveries are
// at-least-once and may race the client confirmation; both converge through
// the Reconciler.
type HandleWebhookHandler struct {
	verifier   SignatureVerifier
	reconciler *Reconciler
	logger     *slog.Logger
}

func NewHandleWebhookHandler(verifier SignatureVerifier, reconciler *Reconciler, logger *slog.Logger) *HandleWebhookHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &HandleWebhookHandler{verifier: verifier, reconciler: reconciler, logger: logger}
}

// Handle verifies the raw body, then reconciles or records the failure.
//
// Errors: payments.ErrNotConfigured, payments.ErrSignatureInvalid,
// payments.ErrMalformedWebhook, domain.ErrOrderNotFound, domain.ErrPersistence.
func (h *HandleWebhookHandler) Handle(ctx context.Context, cmd HandleWebhookCommand) (HandleWebhookResult, error) {
	if err := h.verifier.VerifyWebhook(cmd.Body, cmd.Signature); err != nil {
		h.logger.Warn("webhook rejected", slog.Any("error", err))
		return HandleWebhookResult{}, err
	}

	evt, err := payments.ParseWebhook(cmd.Body)
	if err != nil {
		return HandleWebhookResult{}, err
	}
	payment := evt.Payment()
	result := HandleWebhookResult{Event: evt.Event, IntentID: payment.OrderID}

	if !evt.ConfirmsPayment() && !evt.ReportsFailure() {
		result.Disposition = WebhookIgnored
		return result, nil
	}
	if payment.OrderID == "" || payment.ID == "" {
		return result, fmt.Errorf("%w: payment entity without id or order_id", payments.ErrMalformedWebhook)
	}

	logger := h.logger.With(
		slog.String("event", evt.Event),
		slog.String("intent_id", payment.OrderID),
		slog.String("payment_id", payment.ID),
	)

	if evt.ReportsFailure() {
		changed, err := h.reconciler.RecordFailure(ctx, payment.OrderID, payment.ID)
		if err != nil {
			if errors.Is(err, domain.ErrOrderNotFound) {
				logger.Warn("webhook references unknown order")
			}
			return result, err
		}
		if changed {
			logger.Info("payment failure recorded", slog.String("reason", payment.ErrorDescription))
		}
		result.Disposition = WebhookFailureRecorded
		return result, nil
	}

	outcome, err := h.reconciler.Reconcile(ctx, ReconcileRequest{
		IntentID:  payment.OrderID,
		PaymentID: payment.ID,
		Trigger:   TriggerWebhook,
	})
	if err != nil {
		if errors.Is(err, domain.ErrOrderNotFound) {
			logger.Warn("webhook references unknown order")
		}
		return result, err
	}

	result.Outcome = outcome
	result.Disposition = WebhookProcessed
	if outcome.AlreadyProcessed {
		result.Disposition = WebhookAlreadyProcessed
	}
	return result, nil
}
