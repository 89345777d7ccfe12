// Package contracts defines public event contracts for inter-module communication.
// Modules should import event types from here, NOT from other module's domain packages.
package contracts

import "github.com/rai/storefront-payments/modules/shared/events"

// Order module event types.
// These are the "public API" of the orders module for event-driven communication.
const (
	OrderPlacedEventType      events.EventType = "orders.OrderPlaced"
	PaymentConfirmedEventType events.EventType = "orders.PaymentConfirmed"
	PaymentFailedEventType    events.EventType = "orders.PaymentFailed"
)

// OrderPlacedEvent is published once an order and its line items are persisted.
type OrderPlacedEvent struct {
	events.BaseEvent
	OrderID     string `json:"order_id"`
	IntentID    string `json:"intent_id"`
	TotalAmount int64  `json:"total_amount"`
	Currency    string `json:"currency"`
}

// PaymentConfirmedEvent is published by the trigger that won the payment transition.
type PaymentConfirmedEvent struct {
	events.BaseEvent
	OrderID          string `json:"order_id"`
	IntentID         string `json:"intent_id"`
	GatewayPaymentID string `json:"gateway_payment_id"`
	TotalAmount      int64  `json:"total_amount"`
	Currency         string `json:"currency"`
	Trigger          string `json:"trigger"`
}

// PaymentFailedEvent is published when the gateway reports a failed payment for a pending order.
type PaymentFailedEvent struct {
	events.BaseEvent
	OrderID          string `json:"order_id"`
	IntentID         string `json:"intent_id"`
	GatewayPaymentID string `json:"gateway_payment_id"`
}
