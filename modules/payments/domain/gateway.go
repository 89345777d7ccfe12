// Package domain defines the payment gateway collaborator: intent creation,
// signature verification and the webhook envelope.
package domain

import (
	"context"

	"github.com/rai/storefront-payments/modules/shared/types"
)

// Intent is the gateway's server-side record of an expected payment
// (a Razorpay "order").
type Intent struct {
	ID       string
	Amount   int64 // smallest currency subunit
	Currency string
	Receipt  string
}

// CreateIntentRequest asks the gateway for a new intent.
type CreateIntentRequest struct {
	Amount  types.Money
	Receipt string // our internal order id
	Notes   map[string]string
}

// Gateway creates payment intents. Payment confirmation arrives later through
// signed callbacks verified with VerifyPaymentSignature and VerifyWebhookSignature.
type Gateway interface {
	CreateIntent(ctx context.Context, req CreateIntentRequest) (Intent, error)
}
