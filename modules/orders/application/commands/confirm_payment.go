package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rai/storefront-payments/modules/orders/domain"
)

// ConfirmPaymentCommand is the browser's report of a completed checkout.
type ConfirmPaymentCommand struct {
	IntentID  string
	PaymentID string
	Signature string
}

type ConfirmPaymentResult struct {
	Success bool
	Message string
	OrderID string
	Outcome Outcome
}

// ConfirmPaymentHandler handles the synchronous client confirmation. It
// fails closed: nothing is written unless the signature verifies.
type ConfirmPaymentHandler struct {
	verifier   SignatureVerifier
	reconciler *Reconciler
	timeout    time.Duration
	logger     *slog.Logger
}

func NewConfirmPaymentHandler(verifier SignatureVerifier, reconciler *Reconciler, timeout time.Duration, logger *slog.Logger) *ConfirmPaymentHandler {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ConfirmPaymentHandler{verifier: verifier, reconciler: reconciler, timeout: timeout, logger: logger}
}

// Handle verifies the signature and commits the payment transition. Invoice
// and notifications continue in the background after it returns.
//
// A verified payment whose order row is missing is still reported as a
// success: the money moved and the payer must not be told otherwise.
func (h *ConfirmPaymentHandler) Handle(ctx context.Context, cmd ConfirmPaymentCommand) (ConfirmPaymentResult, error) {
	if cmd.IntentID == "" || cmd.PaymentID == "" || cmd.Signature == "" {
		return ConfirmPaymentResult{}, fmt.Errorf("%w: intentId, paymentId and signature are required", domain.ErrInvalidRequest)
	}

	if err := h.verifier.VerifyPayment(cmd.IntentID, cmd.PaymentID, cmd.Signature); err != nil {
		h.logger.Warn("payment confirmation rejected",
			slog.String("intent_id", cmd.IntentID),
			slog.String("payment_id", cmd.PaymentID),
			slog.Any("error", err),
		)
		return ConfirmPaymentResult{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	outcome, err := h.reconciler.ReconcileAsync(ctx, ReconcileRequest{
		IntentID:  cmd.IntentID,
		PaymentID: cmd.PaymentID,
		Trigger:   TriggerConfirmation,
	})
	switch {
	case errors.Is(err, domain.ErrOrderNotFound):
		h.logger.Error("verified payment has no order; needs manual reconciliation",
			slog.String("intent_id", cmd.IntentID),
			slog.String("payment_id", cmd.PaymentID),
		)
		return ConfirmPaymentResult{
			Success: true,
			Message: "Payment verified. Your order is still being recorded; quote payment " + cmd.PaymentID + " if you contact support.",
		}, nil
	case err != nil:
		return ConfirmPaymentResult{}, fmt.Errorf("confirming payment: %w", err)
	}

	msg := "Payment verified"
	if outcome.AlreadyProcessed {
		msg = "Payment already verified"
	}
	return ConfirmPaymentResult{
		Success: true,
		Message: msg,
		OrderID: outcome.OrderID,
		Outcome: outcome,
	}, nil
}
