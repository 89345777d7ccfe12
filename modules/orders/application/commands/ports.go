package commands

import (
	"context"

	"github.com/rai/storefront-payments/modules/payments"
	"github.com/rai/storefront-payments/modules/shared/events/contracts"
)

// PaymentGateway creates payment intents.
type PaymentGateway interface {
	CreateIntent(ctx context.Context, req payments.CreateIntentRequest) (payments.Intent, error)
}

// SignatureVerifier checks gateway signatures. Both methods return
// payments.ErrSignatureInvalid on mismatch and payments.ErrNotConfigured
// when the secret is missing.
type SignatureVerifier interface {
	VerifyPayment(intentID, paymentID, signature string) error
	VerifyWebhook(body []byte, signature string) error
}

// InvoiceRenderer turns a receipt into a PDF. It must not do I/O.
type InvoiceRenderer interface {
	Render(receipt contracts.OrderReceipt) ([]byte, error)
}

// ObjectStorage stores a blob under key, overwriting any previous object,
// and returns its public URL.
type ObjectStorage interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// Notifier sends the customer receipt and the admin alert for a paid order.
// receipt.InvoiceURL is empty while the invoice is pending.
type Notifier interface {
	Send(ctx context.Context, receipt contracts.OrderReceipt) error
}
