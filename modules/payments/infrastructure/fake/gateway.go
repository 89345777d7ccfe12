// Package fake provides an in-process payment gateway for local development and tests.
package fake

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/rai/storefront-payments/modules/payments/domain"
)

// Gateway issues intent ids without contacting any provider.
type Gateway struct {
	mu      sync.Mutex
	intents map[string]domain.Intent
	secret  string
	err     error
}

// New creates a fake gateway that signs with secret.
func New(secret string) *Gateway {
	return &Gateway{
		intents: make(map[string]domain.Intent),
		secret:  secret,
	}
}

// FailWith makes subsequent CreateIntent calls return err.
func (g *Gateway) FailWith(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.err = err
}

// CreateIntent implements domain.Gateway.
func (g *Gateway) CreateIntent(ctx context.Context, req domain.CreateIntentRequest) (domain.Intent, error) {
	if err := ctx.Err(); err != nil {
		return domain.Intent{}, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return domain.Intent{}, g.err
	}

	intent := domain.Intent{
		ID:       "order_" + strings.ReplaceAll(uuid.New().String(), "-", "")[:14],
		Amount:   req.Amount.Amount(),
		Currency: req.Amount.Currency(),
		Receipt:  req.Receipt,
	}
	g.intents[intent.ID] = intent
	return intent, nil
}

// Intents returns the number of intents created so far.
func (g *Gateway) Intents() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.intents)
}

// SignPayment produces the signature a browser checkout would return.
func (g *Gateway) SignPayment(intentID, paymentID string) string {
	return domain.Sign(domain.PaymentSignaturePayload(intentID, paymentID), g.secret)
}

// Compile-time interface check.
var _ domain.Gateway = (*Gateway)(nil)
