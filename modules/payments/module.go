// Package payments selects and builds the payment gateway collaborator.
package payments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/rai/storefront-payments/modules/payments/domain"
	"github.com/rai/storefront-payments/modules/payments/infrastructure/fake"
	"github.com/rai/storefront-payments/modules/payments/infrastructure/razorpay"
)

const (
	GatewayRazorpay = "razorpay"
	GatewayFake     = "fake"
)

// Config holds the gateway configuration.
type Config struct {
	Gateway   string
	KeyID     string
	KeySecret string
	Logger    *slog.Logger
}

// NewGateway builds the configured gateway. Missing Razorpay credentials are
// not a startup error: the returned gateway fails every call with
// domain.ErrNotConfigured so intent creation fails closed.
func NewGateway(cfg Config) (domain.Gateway, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("module", "payments")

	switch cfg.Gateway {
	case GatewayRazorpay, "":
		client, err := razorpay.New(cfg.KeyID, cfg.KeySecret, logger)
		if errors.Is(err, domain.ErrNotConfigured) {
			logger.Error("razorpay credentials missing; intent creation will fail", slog.Any("error", err))
			return unconfigured{}, nil
		}
		if err != nil {
			return nil, err
		}
		return client, nil
	case GatewayFake:
		logger.Warn("using fake payment gateway; no real payments can be taken")
		return fake.New(cfg.KeySecret), nil
	default:
		return nil, fmt.Errorf("unknown payment gateway %q", cfg.Gateway)
	}
}

type unconfigured struct{}

func (unconfigured) CreateIntent(ctx context.Context, req domain.CreateIntentRequest) (domain.Intent, error) {
	return domain.Intent{}, fmt.Errorf("razorpay credentials: %w", domain.ErrNotConfigured)
}
