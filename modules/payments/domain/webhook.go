package domain

import (
	"encoding/json"
	"fmt"
)

// Webhook event names the reconciliation cares about.
const (
	EventPaymentCaptured = "payment.captured"
	EventOrderPaid       = "order.paid"
	EventPaymentFailed   = "payment.failed"
)

// SignatureHeader carries the webhook HMAC.
const SignatureHeader = "X-Razorpay-Signature"

// WebhookEvent is the gateway envelope
// {event, payload:{payment:{entity:{id, order_id}}}}.
type WebhookEvent struct {
	Event   string         `json:"event"`
	Payload WebhookPayload `json:"payload"`
}

type WebhookPayload struct {
	Payment struct {
		Entity PaymentEntity `json:"entity"`
	} `json:"payment"`
}

type PaymentEntity struct {
	ID               string `json:"id"`
	OrderID          string `json:"order_id"`
	Status           string `json:"status"`
	Amount           int64  `json:"amount"`
	Currency         string `json:"currency"`
	Method           string `json:"method"`
	ErrorDescription string `json:"error_description"`
}

// ParseWebhook decodes a verified webhook body.
func ParseWebhook(raw []byte) (WebhookEvent, error) {
	var evt WebhookEvent
	if err := json.Unmarshal(raw, &evt); err != nil {
		return WebhookEvent{}, fmt.Errorf("%w: %v", ErrMalformedWebhook, err)
	}
	if evt.Event == "" {
		return WebhookEvent{}, fmt.Errorf("%w: missing event name", ErrMalformedWebhook)
	}
	return evt, nil
}

// Payment returns the payment entity of the event.
func (e WebhookEvent) Payment() PaymentEntity { return e.Payload.Payment.Entity }

// ConfirmsPayment reports whether the event proves money was captured.
func (e WebhookEvent) ConfirmsPayment() bool {
	return e.Event == EventPaymentCaptured || e.Event == EventOrderPaid
}

// ReportsFailure reports whether the event is a failed payment attempt.
func (e WebhookEvent) ReportsFailure() bool {
	return e.Event == EventPaymentFailed
}
