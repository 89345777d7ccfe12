// Package orders provides order intent creation and payment reconciliation.
// This is the public API for the orders bounded context.
package orders

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/rai/storefront-payments/modules/orders/application/commands"
	"github.com/rai/storefront-payments/modules/orders/application/pricing"
	"github.com/rai/storefront-payments/modules/orders/application/queries"
	"github.com/rai/storefront-payments/modules/orders/domain"
	httphandler "github.com/rai/storefront-payments/modules/orders/infrastructure/http"
	"github.com/rai/storefront-payments/modules/shared/events"
	"github.com/rai/storefront-payments/modules/shared/transaction"
)

// Module is the public API for the orders bounded context.
// External communication: HTTP API (RegisterRoutes) and the operator CLI (Reconcile).
// Cross-module communication: collaborators injected through Config, domain events published.
type Module interface {
	// RegisterRoutes registers the module's HTTP routes to the given mux.
	RegisterRoutes(mux *http.ServeMux)
	// Reconcile is the manual retry entry point. paymentID may be empty for
	// orders already marked paid.
	Reconcile(ctx context.Context, intentID, paymentID string) (commands.Outcome, error)
	// Wait drains background fulfillment started by client confirmations.
	Wait()
}

// Config holds the module configuration.
type Config struct {
	Repository domain.OrderRepository
	// TxScope wraps order creation. Defaults to transaction.PassThrough.
	TxScope  transaction.Scope
	Catalog  pricing.Catalog
	Gateway  commands.PaymentGateway
	Verifier commands.SignatureVerifier
	Renderer commands.InvoiceRenderer
	Storage  commands.ObjectStorage
	Notifier commands.Notifier

	EventPublisher events.Publisher

	Reconciler      commands.ReconcilerConfig
	ConfirmTimeout  time.Duration
	DefaultCurrency string
	Logger          *slog.Logger
}

type module struct {
	createIntentHandler   *commands.CreateIntentHandler
	confirmPaymentHandler *commands.ConfirmPaymentHandler
	handleWebhookHandler  *commands.HandleWebhookHandler
	reconcileOrderHandler *commands.ReconcileOrderHandler
	getOrderHandler       *queries.GetOrderHandler
	reconciler            *commands.Reconciler
	logger                *slog.Logger
}

// New creates a new orders module.
func New(cfg Config) Module {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("module", "orders")

	txScope := cfg.TxScope
	if txScope == nil {
		txScope = transaction.PassThrough{}
	}

	reconciler := commands.NewReconciler(cfg.Repository, cfg.Renderer, cfg.Storage, cfg.Notifier, cfg.EventPublisher, cfg.Reconciler, logger)

	return &module{
		createIntentHandler: commands.NewCreateIntentHandler(
			pricing.NewVerifier(cfg.Catalog), cfg.Gateway, cfg.Repository, txScope, cfg.EventPublisher, cfg.DefaultCurrency, logger,
		),
		confirmPaymentHandler: commands.NewConfirmPaymentHandler(cfg.Verifier, reconciler, cfg.ConfirmTimeout, logger),
		handleWebhookHandler:  commands.NewHandleWebhookHandler(cfg.Verifier, reconciler, logger),
		reconcileOrderHandler: commands.NewReconcileOrderHandler(reconciler),
		getOrderHandler:       queries.NewGetOrderHandler(cfg.Repository),
		reconciler:            reconciler,
		logger:                logger,
	}
}

func (m *module) RegisterRoutes(mux *http.ServeMux) {
	httphandler.RegisterRoutes(mux, m.createIntentHandler, m.confirmPaymentHandler, m.handleWebhookHandler, m.getOrderHandler, m.logger)
}

func (m *module) Reconcile(ctx context.Context, intentID, paymentID string) (commands.Outcome, error) {
	return m.reconcileOrderHandler.Handle(ctx, commands.ReconcileOrderCommand{IntentID: intentID, PaymentID: paymentID})
}

func (m *module) Wait() { m.reconciler.Wait() }
