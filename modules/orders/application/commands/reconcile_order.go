package commands

import (
	"context"
	"fmt"

	"github.com/rai/storefront-payments/modules/orders/domain"
)

// ReconcileOrderCommand is an operator's manual retry. PaymentID is needed
// only when the order has not been marked paid yet; the operator is trusted
// to have checked the payment in the gateway dashboard.
type ReconcileOrderCommand struct {
	IntentID  string
	PaymentID string
}

type ReconcileOrderHandler struct {
	reconciler *Reconciler
}

func NewReconcileOrderHandler(reconciler *Reconciler) *ReconcileOrderHandler {
	return &ReconcileOrderHandler{reconciler: reconciler}
}

func (h *ReconcileOrderHandler) Handle(ctx context.Context, cmd ReconcileOrderCommand) (Outcome, error) {
	if cmd.IntentID == "" {
		return Outcome{}, fmt.Errorf("%w: intent id is required", domain.ErrInvalidRequest)
	}
	return h.reconciler.Reconcile(ctx, ReconcileRequest{
		IntentID:  cmd.IntentID,
		PaymentID: cmd.PaymentID,
		Trigger:   TriggerManual,
	})
}
