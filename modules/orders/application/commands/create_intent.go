// Package commands contains write use cases for the orders module.
package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rai/storefront-payments/modules/orders/application/pricing"
	"github.com/rai/storefront-payments/modules/orders/domain"
	"github.com/rai/storefront-payments/modules/payments"
	"github.com/rai/storefront-payments/modules/shared/events"
	"github.com/rai/storefront-payments/modules/shared/transaction"
	"github.com/rai/storefront-payments/modules/shared/types"
)

// CreateIntentCommand places an order and opens a gateway intent for it.
type CreateIntentCommand struct {
	Items    []pricing.RequestedItem
	Currency string
	Customer CustomerInput
}

type CustomerInput struct {
	Name    string
	Email   string
	Phone   string
	Address domain.Address
}

// CreateIntentResult is what the client needs to open checkout.
type CreateIntentResult struct {
	IntentID string
	OrderID  string
	Amount   int64 // smallest currency subunit
	Currency string
}

type CreateIntentHandler struct {
	verifier        *pricing.Verifier
	gateway         PaymentGateway
	repo            domain.OrderRepository
	txScope         transaction.Scope
	publisher       events.Publisher
	defaultCurrency string
	now             func() time.Time
	logger          *slog.Logger
}

func NewCreateIntentHandler(
	verifier *pricing.Verifier,
	gateway PaymentGateway,
	repo domain.OrderRepository,
	txScope transaction.Scope,
	publisher events.Publisher,
	defaultCurrency string,
	logger *slog.Logger,
) *CreateIntentHandler {
	if logger == nil {
		logger = slog.Default()
	}
	if defaultCurrency == "" {
		defaultCurrency = "INR"
	}
	return &CreateIntentHandler{
		verifier:        verifier,
		gateway:         gateway,
		repo:            repo,
		txScope:         txScope,
		publisher:       publisher,
		defaultCurrency: defaultCurrency,
		now:             time.Now,
		logger:          logger,
	}
}

// Handle prices the items, creates the gateway intent and persists the order.
//
// Pricing and gateway failures are returned with nothing persisted. A
// persistence failure after the intent exists is logged and the intent is
// still returned: no money has moved, and the payment must stay possible.
func (h *CreateIntentHandler) Handle(ctx context.Context, cmd CreateIntentCommand) (CreateIntentResult, error) {
	currency := cmd.Currency
	if currency == "" {
		currency = h.defaultCurrency
	}
	currency, err := types.NormalizeCurrency(currency)
	if err != nil {
		return CreateIntentResult{}, fmt.Errorf("%w: %w", domain.ErrInvalidRequest, err)
	}

	customer, err := domain.NewCustomer(cmd.Customer.Name, cmd.Customer.Email, cmd.Customer.Phone, cmd.Customer.Address)
	if err != nil {
		return CreateIntentResult{}, fmt.Errorf("%w: %w", domain.ErrInvalidRequest, err)
	}

	total, lines, err := h.verifier.ComputeTotal(ctx, cmd.Items, currency)
	if err != nil {
		return CreateIntentResult{}, fmt.Errorf("pricing order: %w", err)
	}

	orderID := types.NewOrderID()
	intent, err := h.gateway.CreateIntent(ctx, payments.CreateIntentRequest{
		Amount:  total,
		Receipt: orderID.String(),
		Notes:   map[string]string{"order_id": orderID.String(), "customer_email": customer.Email},
	})
	if err != nil {
		return CreateIntentResult{}, fmt.Errorf("creating payment intent: %w", err)
	}

	result := CreateIntentResult{
		IntentID: intent.ID,
		OrderID:  orderID.String(),
		Amount:   total.Amount(),
		Currency: total.Currency(),
	}

	order, err := domain.NewOrder(orderID, intent.ID, total, lines, customer, h.now())
	if err != nil {
		return CreateIntentResult{}, fmt.Errorf("building order: %w", err)
	}

	err = h.txScope.Execute(ctx, func(ctx context.Context) error {
		return h.repo.Create(ctx, order)
	})
	if err != nil {
		h.logger.Error("order not persisted; gateway intent is orphaned",
			slog.String("intent_id", intent.ID),
			slog.String("order_id", orderID.String()),
			slog.Int64("amount", total.Amount()),
			slog.Bool("duplicate", errors.Is(err, domain.ErrDuplicateIntent)),
			slog.Any("error", err),
		)
		return result, nil
	}

	for _, event := range order.PopDomainEvents() {
		if err := h.publisher.Publish(ctx, event); err != nil {
			h.logger.Error("failed to publish event", slog.String("event_type", event.EventType().String()), slog.Any("error", err))
		}
	}

	h.logger.Info("order placed",
		slog.String("intent_id", intent.ID),
		slog.String("order_id", orderID.String()),
		slog.String("total", total.Format()),
	)
	return result, nil
}
