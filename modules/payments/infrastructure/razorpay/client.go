// Package razorpay implements the payment gateway against the Razorpay Orders API.
package razorpay

import (
	"context"
	"fmt"
	"log/slog"

	razorpay "github.com/razorpay/razorpay-go"

	"github.com/rai/storefront-payments/modules/payments/domain"
)

// Client creates Razorpay orders (our payment intents).
type Client struct {
	api    *razorpay.Client
	logger *slog.Logger
}

// New creates a Razorpay client. Both key id and key secret are required.
func New(keyID, keySecret string, logger *slog.Logger) (*Client, error) {
	if keyID == "" || keySecret == "" {
		return nil, fmt.Errorf("razorpay credentials: %w", domain.ErrNotConfigured)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		api:    razorpay.NewClient(keyID, keySecret),
		logger: logger,
	}, nil
}

type createResult struct {
	body map[string]interface{}
	err  error
}

// CreateIntent implements domain.Gateway.
// The SDK call is not context-aware, so it runs in its own goroutine and
// the caller stops waiting when ctx is done.
func (c *Client) CreateIntent(ctx context.Context, req domain.CreateIntentRequest) (domain.Intent, error) {
	data := map[string]interface{}{
		"amount":   req.Amount.Amount(),
		"currency": req.Amount.Currency(),
		"receipt":  req.Receipt,
	}
	if len(req.Notes) > 0 {
		notes := make(map[string]interface{}, len(req.Notes))
		for k, v := range req.Notes {
			notes[k] = v
		}
		data["notes"] = notes
	}

	done := make(chan createResult, 1)
	go func() {
		body, err := c.api.Order.Create(data, nil)
		done <- createResult{body: body, err: err}
	}()

	var res createResult
	select {
	case <-ctx.Done():
		return domain.Intent{}, fmt.Errorf("%w: creating order: %w", domain.ErrGateway, ctx.Err())
	case res = <-done:
	}
	if res.err != nil {
		return domain.Intent{}, fmt.Errorf("%w: creating order: %v", domain.ErrGateway, res.err)
	}

	id, _ := res.body["id"].(string)
	if id == "" {
		return domain.Intent{}, fmt.Errorf("%w: response without order id", domain.ErrGateway)
	}

	intent := domain.Intent{
		ID:       id,
		Amount:   req.Amount.Amount(),
		Currency: req.Amount.Currency(),
		Receipt:  req.Receipt,
	}
	if amount, ok := res.body["amount"].(float64); ok && int64(amount) != intent.Amount {
		return domain.Intent{}, fmt.Errorf("%w: gateway echoed amount %d, requested %d", domain.ErrGateway, int64(amount), intent.Amount)
	}

	c.logger.Debug("created razorpay order", slog.String("intent_id", id), slog.String("receipt", req.Receipt))
	return intent, nil
}

// Compile-time interface check.
var _ domain.Gateway = (*Client)(nil)
