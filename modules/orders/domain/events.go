package domain

import (
	"github.com/rai/storefront-payments/modules/shared/events"
	"github.com/rai/storefront-payments/modules/shared/events/contracts"
)

const (
	OrderPlacedEventType      = contracts.OrderPlacedEventType
	PaymentConfirmedEventType = contracts.PaymentConfirmedEventType
	PaymentFailedEventType    = contracts.PaymentFailedEventType
)

func NewOrderPlacedEvent(order *Order) contracts.OrderPlacedEvent {
	return contracts.OrderPlacedEvent{
		BaseEvent:   events.NewBaseEvent(OrderPlacedEventType, order.ID().String()),
		OrderID:     order.ID().String(),
		IntentID:    order.IntentID(),
		TotalAmount: order.Total().Amount(),
		Currency:    order.Total().Currency(),
	}
}

func NewPaymentConfirmedEvent(order *Order, paymentID, trigger string) contracts.PaymentConfirmedEvent {
	return contracts.PaymentConfirmedEvent{
		BaseEvent:        events.NewBaseEvent(PaymentConfirmedEventType, order.ID().String()),
		OrderID:          order.ID().String(),
		IntentID:         order.IntentID(),
		GatewayPaymentID: paymentID,
		TotalAmount:      order.Total().Amount(),
		Currency:         order.Total().Currency(),
		Trigger:          trigger,
	}
}

func NewPaymentFailedEvent(order *Order, paymentID string) contracts.PaymentFailedEvent {
	return contracts.PaymentFailedEvent{
		BaseEvent:        events.NewBaseEvent(PaymentFailedEventType, order.ID().String()),
		OrderID:          order.ID().String(),
		IntentID:         order.IntentID(),
		GatewayPaymentID: paymentID,
	}
}
