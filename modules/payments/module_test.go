package payments

import (
	"context"
	"errors"
	"testing"

	"github.com/rai/storefront-payments/modules/payments/domain"
	"github.com/rai/storefront-payments/modules/shared/types"
)

func TestNewGateway_MissingCredentialsFailsClosed(t *testing.T) {
	gw, err := NewGateway(Config{Gateway: GatewayRazorpay})
	if err != nil {
		t.Fatalf("expected no startup error, got %v", err)
	}

	_, err = gw.CreateIntent(context.Background(), domain.CreateIntentRequest{Amount: types.MustNewMoney(100, "INR")})
	if !errors.Is(err, domain.ErrNotConfigured) {
		t.Errorf("expected ErrNotConfigured, got %v", err)
	}
}

func TestNewGateway_Unknown(t *testing.T) {
	if _, err := NewGateway(Config{Gateway: "paypal"}); err == nil {
		t.Error("expected unknown gateway to be rejected")
	}
}

func TestNewGateway_Fake(t *testing.T) {
	gw, err := NewGateway(Config{Gateway: GatewayFake, KeySecret: "s3cret"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	intent, err := gw.CreateIntent(context.Background(), domain.CreateIntentRequest{Amount: types.MustNewMoney(100000, "INR"), Receipt: "r-1"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if intent.Amount != 100000 || intent.Currency != "INR" {
		t.Errorf("unexpected intent %+v", intent)
	}
}
