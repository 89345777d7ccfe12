// Package domain provides shared domain primitives.
package domain

import "github.com/rai/storefront-payments/modules/shared/events"

// AggregateRoot is a base type for aggregate roots that collect domain events.
// Embed this in aggregate structs to gain event collection capability.
//
// Example:
//
//	type Order struct {
//	    domain.AggregateRoot
//	    id types.OrderID
//	}
//
//	func NewOrder(...) *Order {
//	    o := &Order{...}
//	    o.AddDomainEvent(NewOrderPlacedEvent(o))
//	    return o
//	}
type AggregateRoot struct {
	domainEvents []events.Event
}

// AddDomainEvent adds an event to the aggregate's internal collection.
// Events are published by the application layer after the write commits.
func (a *AggregateRoot) AddDomainEvent(event events.Event) {
	a.domainEvents = append(a.domainEvents, event)
}

// DomainEvents returns all collected domain events.
func (a *AggregateRoot) DomainEvents() []events.Event {
	return a.domainEvents
}

// PopDomainEvents returns the collected events and clears the collection.
func (a *AggregateRoot) PopDomainEvents() []events.Event {
	evts := a.domainEvents
	a.domainEvents = nil
	return evts
}
