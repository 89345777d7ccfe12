package commands_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/rai/storefront-payments/modules/orders/application/commands"
	"github.com/rai/storefront-payments/modules/orders/application/pricing"
	"github.com/rai/storefront-payments/modules/orders/domain"
	"github.com/rai/storefront-payments/modules/payments"
	"github.com/rai/storefront-payments/modules/shared/transaction"
)

type mockCatalog map[string]pricing.Product

func (m mockCatalog) Products(ctx context.Context, ids []string) (map[string]pricing.Product, error) {
	out := make(map[string]pricing.Product, len(ids))
	for _, id := range ids {
		if p, ok := m[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

type failingScope struct{ err error }

func (s failingScope) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	return s.err
}

var testCatalog = mockCatalog{
	"7": {ID: "7", Name: "Silver Anklet", Price: "500.00"},
}

func validCommand() commands.CreateIntentCommand {
	qty := 2
	return commands.CreateIntentCommand{
		Items: []pricing.RequestedItem{{ProductID: "7", Quantity: &qty}},
		Customer: commands.CustomerInput{
			Name:  "Asha Rao",
			Email: "asha@example.com",
			Address: domain.Address{
				Line1: "12 MG Road", City: "Bengaluru", PostalCode: "560001", Country: "IN",
			},
		},
	}
}

func newCreateIntentHandler(f *fixture, gateway *mockGateway, scope transaction.Scope) *commands.CreateIntentHandler {
	return commands.NewCreateIntentHandler(pricing.NewVerifier(testCatalog), gateway, f.repo, scope, f.publisher, "INR", nil)
}

func TestCreateIntent_Success(t *testing.T) {
	// Arrange
	f := newFixture(t)
	gateway := &mockGateway{}
	handler := newCreateIntentHandler(f, gateway, transaction.PassThrough{})

	// Act
	result, err := handler.Handle(context.Background(), validCommand())

	// Assert
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if result.Amount != 100000 || result.Currency != "INR" {
		t.Errorf("expected 100000 INR, got %d %s", result.Amount, result.Currency)
	}
	if result.IntentID != testIntent {
		t.Errorf("expected intent %s, got %s", testIntent, result.IntentID)
	}

	order := f.order(t, testIntent)
	if order.ID().String() != result.OrderID {
		t.Errorf("stored order id %s does not match result %s", order.ID(), result.OrderID)
	}
	if order.Stage() != domain.StagePending || order.Total().Amount() != 100000 {
		t.Errorf("unexpected stored order: stage %s total %d", order.Stage(), order.Total().Amount())
	}
	if types := f.publisher.types(); len(types) != 1 || types[0] != domain.OrderPlacedEventType {
		t.Errorf("expected one OrderPlaced event, got %v", types)
	}
}

func TestCreateIntent_PricingErrorSkipsGateway(t *testing.T) {
	f := newFixture(t)
	gateway := &mockGateway{}
	handler := newCreateIntentHandler(f, gateway, transaction.PassThrough{})
	cmd := validCommand()
	cmd.Items = []pricing.RequestedItem{{ProductID: "404"}}

	_, err := handler.Handle(context.Background(), cmd)

	if !errors.Is(err, pricing.ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound, got %v", err)
	}
	if gateway.calls.Load() != 0 {
		t.Error("expected gateway not to be called")
	}
	if f.repo.writes.Load() != 0 {
		t.Error("expected nothing persisted")
	}
}

func TestCreateIntent_GatewayErrorPersistsNothing(t *testing.T) {
	f := newFixture(t)
	gateway := &mockGateway{
		createFn: func(ctx context.Context, req payments.CreateIntentRequest) (payments.Intent, error) {
			return payments.Intent{}, fmt.Errorf("%w: connection reset", payments.ErrGateway)
		},
	}
	handler := newCreateIntentHandler(f, gateway, transaction.PassThrough{})

	_, err := handler.Handle(context.Background(), validCommand())

	if !errors.Is(err, payments.ErrGateway) {
		t.Fatalf("expected ErrGateway, got %v", err)
	}
	if f.repo.writes.Load() != 0 {
		t.Error("expected nothing persisted")
	}
}

func TestCreateIntent_PersistenceFailureStillReturnsIntent(t *testing.T) {
	f := newFixture(t)
	handler := newCreateIntentHandler(f, &mockGateway{}, failingScope{err: domain.ErrPersistence})

	result, err := handler.Handle(context.Background(), validCommand())

	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if result.IntentID != testIntent || result.Amount != 100000 {
		t.Errorf("unexpected result %+v", result)
	}
	if len(f.publisher.types()) != 0 {
		t.Error("expected no events for an order that was not stored")
	}
}

func TestCreateIntent_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*commands.CreateIntentCommand)
	}{
		{"missing customer email", func(c *commands.CreateIntentCommand) { c.Customer.Email = "" }},
		{"invalid currency", func(c *commands.CreateIntentCommand) { c.Currency = "rupees" }},
		{"no items", func(c *commands.CreateIntentCommand) { c.Items = nil }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			gateway := &mockGateway{}
			handler := newCreateIntentHandler(f, gateway, transaction.PassThrough{})
			cmd := validCommand()
			tt.mutate(&cmd)

			_, err := handler.Handle(context.Background(), cmd)

			if !errors.Is(err, domain.ErrInvalidRequest) {
				t.Errorf("expected ErrInvalidRequest, got %v", err)
			}
			if gateway.calls.Load() != 0 {
				t.Error("expected gateway not to be called")
			}
		})
	}
}
