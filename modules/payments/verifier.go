package payments

import (
	"fmt"
	"log/slog"

	"github.com/rai/storefront-payments/modules/payments/domain"
)

// Public API of the payments module for other modules.
var (
	ErrGateway          = domain.ErrGateway
	ErrSignatureInvalid = domain.ErrSignatureInvalid
	ErrNotConfigured    = domain.ErrNotConfigured
	ErrMalformedWebhook = domain.ErrMalformedWebhook
)

type (
	Gateway             = domain.Gateway
	Intent              = domain.Intent
	CreateIntentRequest = domain.CreateIntentRequest
	WebhookEvent        = domain.WebhookEvent
)

// SignatureHeader is the HTTP header carrying the webhook signature.
const SignatureHeader = domain.SignatureHeader

// ParseWebhook decodes a webhook body that has already been verified.
func ParseWebhook(raw []byte) (WebhookEvent, error) {
	return domain.ParseWebhook(raw)
}

// Webhook signature modes.
const (
	WebhookSignatureEnforce = "enforce"
	WebhookSignatureLogOnly = "log-only"
)

// Verifier checks gateway signatures with the configured secrets.
// A missing secret always fails closed with ErrNotConfigured.
type Verifier struct {
	keySecret     string
	webhookSecret string
	enforce       bool
	logger        *slog.Logger
}

// NewVerifier builds a Verifier. mode is WebhookSignatureEnforce (default)
// or WebhookSignatureLogOnly, a migration setting under which webhook
// signature mismatches are logged and the event still processed.
func NewVerifier(keySecret, webhookSecret, mode string, logger *slog.Logger) (*Verifier, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("module", "payments")

	v := &Verifier{keySecret: keySecret, webhookSecret: webhookSecret, enforce: true, logger: logger}
	switch mode {
	case WebhookSignatureEnforce, "":
	case WebhookSignatureLogOnly:
		v.enforce = false
		logger.Error("webhook signature mismatches will be logged and accepted; set payments.webhook_signature_mode=enforce")
	default:
		return nil, fmt.Errorf("unknown webhook signature mode %q", mode)
	}

	if keySecret == "" {
		logger.Error("payments.key_secret is not set; payment confirmations will be rejected")
	}
	if webhookSecret == "" {
		logger.Error("payments.webhook_secret is not set; webhooks will be rejected")
	}
	return v, nil
}

// VerifyPayment checks the signature returned to the browser by checkout.
func (v *Verifier) VerifyPayment(intentID, paymentID, signature string) error {
	if v.keySecret == "" {
		return fmt.Errorf("payment key secret: %w", ErrNotConfigured)
	}
	if !domain.VerifyPaymentSignature(intentID, paymentID, signature, v.keySecret) {
		return ErrSignatureInvalid
	}
	return nil
}

// VerifyWebhook checks the signature of the raw webhook body.
func (v *Verifier) VerifyWebhook(body []byte, signature string) error {
	if v.webhookSecret == "" {
		return fmt.Errorf("webhook secret: %w", ErrNotConfigured)
	}
	if domain.VerifyWebhookSignature(body, signature, v.webhookSecret) {
		return nil
	}
	if v.enforce {
		return ErrSignatureInvalid
	}
	v.logger.Warn("accepting webhook with invalid signature", slog.Bool("signature_present", signature != ""))
	return nil
}
