package payments

import (
	"errors"
	"testing"

	"github.com/rai/storefront-payments/modules/payments/domain"
)

func TestVerifier_VerifyPayment(t *testing.T) {
	v, err := NewVerifier("key-secret", "hook-secret", "", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	good := domain.Sign(domain.PaymentSignaturePayload("order_A", "pay_1"), "key-secret")
	wrongPayment := domain.Sign(domain.PaymentSignaturePayload("order_A", "pay_2"), "key-secret")

	if err := v.VerifyPayment("order_A", "pay_1", good); err != nil {
		t.Errorf("expected valid signature to pass, got %v", err)
	}
	if err := v.VerifyPayment("order_A", "pay_1", wrongPayment); !errors.Is(err, ErrSignatureInvalid) {
		t.Errorf("expected ErrSignatureInvalid, got %v", err)
	}
}

func TestVerifier_MissingSecretsFailClosed(t *testing.T) {
	v, err := NewVerifier("", "", WebhookSignatureLogOnly, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := v.VerifyPayment("order_A", "pay_1", "sig"); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("expected ErrNotConfigured, got %v", err)
	}
	if err := v.VerifyWebhook([]byte(`{}`), "sig"); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("expected ErrNotConfigured even in log-only mode, got %v", err)
	}
}

func TestVerifier_WebhookModes(t *testing.T) {
	body := []byte(`{"event":"payment.captured"}`)
	sig := domain.Sign(body, "hook-secret")

	enforce, _ := NewVerifier("k", "hook-secret", WebhookSignatureEnforce, nil)
	if err := enforce.VerifyWebhook(body, sig); err != nil {
		t.Errorf("expected valid webhook to pass, got %v", err)
	}
	if err := enforce.VerifyWebhook([]byte(`{"event": "payment.captured"}`), sig); !errors.Is(err, ErrSignatureInvalid) {
		t.Errorf("expected reformatted body to fail, got %v", err)
	}

	logOnly, _ := NewVerifier("k", "hook-secret", WebhookSignatureLogOnly, nil)
	if err := logOnly.VerifyWebhook(body, "bogus"); err != nil {
		t.Errorf("expected log-only mode to accept, got %v", err)
	}

	if _, err := NewVerifier("k", "h", "lenient", nil); err == nil {
		t.Error("expected unknown mode to be rejected")
	}
}
