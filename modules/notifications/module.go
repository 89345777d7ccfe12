// Package notifications sends order emails.
package notifications

import (
	"context"
	"log/slog"
	"time"

	"github.com/rai/storefront-payments/modules/notifications/application"
	"github.com/rai/storefront-payments/modules/notifications/application/eventhandlers"
	"github.com/rai/storefront-payments/modules/notifications/domain"
	"github.com/rai/storefront-payments/modules/notifications/infrastructure/logmail"
	"github.com/rai/storefront-payments/modules/notifications/infrastructure/smtp"
	"github.com/rai/storefront-payments/modules/shared/events"
	"github.com/rai/storefront-payments/modules/shared/events/contracts"
)

// Module represents the notification module entry point.
type Module struct {
	dispatcher *application.Dispatcher
}

type Config struct {
	SMTPHost     string
	SMTPPort     int
	Username     string
	Password     string
	From         string
	AdminAddress string
	StoreName    string
	Timeout      time.Duration

	// Mailer overrides the SMTP mailer, mainly for tests.
	Mailer          domain.Mailer
	EventSubscriber events.Subscriber
	Logger          *slog.Logger
}

// New initializes the notification module and subscribes to events.
// Without an SMTP host, mail is logged instead of sent.
func New(cfg Config) (*Module, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("module", "notifications")

	mailer := cfg.Mailer
	switch {
	case mailer != nil:
	case cfg.SMTPHost == "":
		logger.Warn("mail.smtp_host is not set; notifications are logged, not sent")
		mailer = logmail.New(logger)
	default:
		m, err := smtp.New(smtp.Config{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.Username,
			Password: cfg.Password,
			From:     cfg.From,
			Timeout:  cfg.Timeout,
		}, logger)
		if err != nil {
			return nil, err
		}
		mailer = m
	}

	if cfg.EventSubscriber != nil {
		handler := eventhandlers.NewPaymentFailedHandler(mailer, cfg.AdminAddress, logger)
		if err := cfg.EventSubscriber.Subscribe(contracts.PaymentFailedEventType, handler); err != nil {
			logger.Error("failed to subscribe to payment failed event", slog.Any("error", err))
		}
	}

	storeName := cfg.StoreName
	if storeName == "" {
		storeName = "our store"
	}
	return &Module{dispatcher: application.NewDispatcher(mailer, storeName, cfg.AdminAddress, logger)}, nil
}

// Send delivers the customer receipt and the admin alert for a paid order.
func (m *Module) Send(ctx context.Context, r contracts.OrderReceipt) error {
	return m.dispatcher.Send(ctx, r)
}
