// Package domain contains business entities and rules for orders.
package domain

import (
	"slices"
	"time"

	shareddomain "github.com/rai/storefront-payments/modules/shared/domain"
	"github.com/rai/storefront-payments/modules/shared/events/contracts"
	"github.com/rai/storefront-payments/modules/shared/types"
)

// StepState tracks one best-effort fulfillment step (invoice or notification).
type StepState struct {
	Done       bool
	Attempts   int
	Abandoned  bool
	LeaseUntil time.Time
}

// Settled reports whether the step will never run again.
func (s StepState) Settled() bool { return s.Done || s.Abandoned }

func (s StepState) leaseFree(now time.Time) bool {
	return s.LeaseUntil.IsZero() || !now.Before(s.LeaseUntil)
}

// Order is the aggregate root for the order bounded context.
//
// After creation an order is only mutated through the guarded transitions
// below; repositories apply them as single conditional writes.
type Order struct {
	shareddomain.AggregateRoot

	id               types.OrderID
	intentID         string
	total            types.Money
	items            []LineItem
	customer         Customer
	status           Status
	paymentStatus    PaymentStatus
	gatewayPaymentID string
	invoiceURL       string
	invoice          StepState
	notification     StepState
	createdAt        time.Time
	updatedAt        time.Time
}

// NewOrder creates a pending order for a gateway intent. The total is the
// verified, already-rounded amount and is never mutated afterwards.
func NewOrder(id types.OrderID, intentID string, total types.Money, items []LineItem, customer Customer, now time.Time) (*Order, error) {
	if intentID == "" {
		return nil, ErrIntentIDRequired
	}
	if !total.IsPositive() {
		return nil, ErrTotalNotPositive
	}
	for _, item := range items {
		if item.Quantity < 1 {
			return nil, ErrInvalidQuantity
		}
	}

	now = now.UTC()
	o := &Order{
		id:            id,
		intentID:      intentID,
		total:         total,
		items:         slices.Clone(items),
		customer:      customer,
		status:        StatusPending,
		paymentStatus: PaymentPending,
		createdAt:     now,
		updatedAt:     now,
	}
	o.AddDomainEvent(NewOrderPlacedEvent(o))
	return o, nil
}

// Snapshot is the persisted form of an order.
type Snapshot struct {
	ID               types.OrderID
	IntentID         string
	Total            types.Money
	Items            []LineItem
	Customer         Customer
	Status           Status
	PaymentStatus    PaymentStatus
	GatewayPaymentID string
	InvoiceURL       string
	Invoice          StepState
	Notification     StepState
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Reconstitute rebuilds an order from persistence.
func Reconstitute(s Snapshot) *Order {
	return &Order{
		id:               s.ID,
		intentID:         s.IntentID,
		total:            s.Total,
		items:            slices.Clone(s.Items),
		customer:         s.Customer,
		status:           s.Status,
		paymentStatus:    s.PaymentStatus,
		gatewayPaymentID: s.GatewayPaymentID,
		invoiceURL:       s.InvoiceURL,
		invoice:          s.Invoice,
		notification:     s.Notification,
		createdAt:        s.CreatedAt,
		updatedAt:        s.UpdatedAt,
	}
}

// Snapshot returns a copy of the order's persisted state.
func (o *Order) Snapshot() Snapshot {
	return Snapshot{
		ID:               o.id,
		IntentID:         o.intentID,
		Total:            o.total,
		Items:            slices.Clone(o.items),
		Customer:         o.customer,
		Status:           o.status,
		PaymentStatus:    o.paymentStatus,
		GatewayPaymentID: o.gatewayPaymentID,
		InvoiceURL:       o.invoiceURL,
		Invoice:          o.invoice,
		Notification:     o.notification,
		CreatedAt:        o.createdAt,
		UpdatedAt:        o.updatedAt,
	}
}

// Getters

func (o *Order) ID() types.OrderID            { return o.id }
func (o *Order) IntentID() string             { return o.intentID }
func (o *Order) Total() types.Money           { return o.total }
func (o *Order) Items() []LineItem            { return o.items }
func (o *Order) Customer() Customer           { return o.customer }
func (o *Order) Status() Status               { return o.status }
func (o *Order) PaymentStatus() PaymentStatus { return o.paymentStatus }
func (o *Order) GatewayPaymentID() string     { return o.gatewayPaymentID }
func (o *Order) InvoiceURL() string           { return o.invoiceURL }
func (o *Order) InvoiceGenerated() bool       { return o.invoice.Done }
func (o *Order) EmailSent() bool              { return o.notification.Done }
func (o *Order) Invoice() StepState           { return o.invoice }
func (o *Order) Notification() StepState      { return o.notification }
func (o *Order) CreatedAt() time.Time         { return o.createdAt }
func (o *Order) UpdatedAt() time.Time         { return o.updatedAt }

// InvoiceKey is the deterministic object key of the order's invoice, so
// repeated uploads overwrite rather than duplicate.
func (o *Order) InvoiceKey() string {
	return "invoices/invoice-" + o.id.String() + ".pdf"
}

// Receipt returns the order as invoicing and notifications see it.
func (o *Order) Receipt() contracts.OrderReceipt {
	lines := make([]contracts.ReceiptLine, len(o.items))
	for i, item := range o.items {
		lines[i] = contracts.ReceiptLine{
			ProductID: item.ProductID,
			Name:      item.ProductName,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			LineTotal: item.Subtotal(),
		}
	}
	return contracts.OrderReceipt{
		OrderID:   o.id.String(),
		IntentID:  o.intentID,
		PaymentID: o.gatewayPaymentID,
		PlacedAt:  o.createdAt,
		Customer: contracts.ReceiptCustomer{
			Name:         o.customer.Name,
			Email:        o.customer.Email,
			Phone:        o.customer.Phone,
			AddressLines: o.customer.Address.Lines(),
		},
		Lines:      lines,
		Total:      o.total,
		InvoiceURL: o.invoiceURL,
	}
}

func (o *Order) IsPaid() bool { return o.paymentStatus == PaymentPaid }

// Stage derives the single reconciliation state from the persisted columns.
func (o *Order) Stage() Stage {
	switch o.paymentStatus {
	case PaymentFailed:
		return StageFailed
	case PaymentPending:
		return StagePending
	}
	switch {
	case o.notification.Done:
		return StageFulfilled
	case o.invoice.Done:
		return StageInvoiced
	default:
		return StagePaid
	}
}

// FullyProcessed reports whether no trigger has anything left to do.
func (o *Order) FullyProcessed() bool {
	return o.IsPaid() && o.invoice.Settled() && o.notification.Settled()
}

// Step returns the state of a fulfillment step.
func (o *Order) Step(step Step) StepState {
	if step == StepInvoice {
		return o.invoice
	}
	return o.notification
}

func (o *Order) stepRef(step Step) *StepState {
	if step == StepInvoice {
		return &o.invoice
	}
	return &o.notification
}

// Transitions. Each returns false, leaving the order untouched, when its guard fails.

// MarkPaid records a confirmed payment.
func (o *Order) MarkPaid(paymentID string, at time.Time) bool {
	if o.paymentStatus == PaymentPaid {
		return false
	}
	o.paymentStatus = PaymentPaid
	o.status = StatusProcessing
	o.gatewayPaymentID = paymentID
	o.updatedAt = at.UTC()
	return true
}

// MarkFailed records a payment failure reported by the gateway.
func (o *Order) MarkFailed(at time.Time) bool {
	if o.paymentStatus != PaymentPending {
		return false
	}
	o.paymentStatus = PaymentFailed
	o.status = StatusFailed
	o.updatedAt = at.UTC()
	return true
}

// LeaseExpiry is the lease deadline a claim at now records. It is kept at
// microsecond precision so every store round-trips it exactly, and a
// holder can present it back when releasing.
func LeaseExpiry(now time.Time, lease time.Duration) time.Time {
	return now.Add(lease).UTC().Truncate(time.Microsecond)
}

// ClaimStep takes a time-bounded lease on a fulfillment step. Only the
// holder of the lease performs the step's side effect.
func (o *Order) ClaimStep(step Step, now time.Time, lease time.Duration) bool {
	s := o.stepRef(step)
	if !o.IsPaid() || s.Done || s.Abandoned || !s.leaseFree(now) {
		return false
	}
	s.LeaseUntil = LeaseExpiry(now, lease)
	o.updatedAt = now.UTC()
	return true
}

// CompleteInvoice records the uploaded invoice.
func (o *Order) CompleteInvoice(url string, at time.Time) bool {
	if !o.IsPaid() || o.invoice.Done {
		return false
	}
	o.invoiceURL = url
	o.invoice.Done = true
	o.invoice.LeaseUntil = time.Time{}
	o.updatedAt = at.UTC()
	return true
}

// CompleteNotification records the sent notifications and finishes fulfillment.
func (o *Order) CompleteNotification(at time.Time) bool {
	if !o.IsPaid() || o.notification.Done {
		return false
	}
	o.notification.Done = true
	o.notification.LeaseUntil = time.Time{}
	o.status = StatusFulfilled
	o.updatedAt = at.UTC()
	return true
}

// ReleaseStep gives up a lease after a failed attempt. leaseUntil is the
// deadline the caller's claim recorded; a release by a holder whose lease
// expired and was claimed again is refused. Once maxAttempts failures are
// recorded the step is abandoned.
func (o *Order) ReleaseStep(step Step, leaseUntil, at time.Time, maxAttempts int) bool {
	s := o.stepRef(step)
	if s.Done || !s.LeaseUntil.Equal(leaseUntil) {
		return false
	}
	s.LeaseUntil = time.Time{}
	s.Attempts++
	if maxAttempts > 0 && s.Attempts >= maxAttempts {
		s.Abandoned = true
	}
	o.updatedAt = at.UTC()
	return true
}
