package domain

import (
	"context"
	"time"

	"github.com/rai/storefront-payments/modules/shared/types"
)

// OrderRepository defines persistence operations for orders.
//
// Orders are written in full exactly once (Create). Every later mutation is
// a conditional update evaluated by the store, never a read-modify-write in
// application memory; the bool result reports whether this caller's update
// matched (i.e. it won the transition).
type OrderRepository interface {
	// Create inserts the order and its line items atomically.
	// Returns ErrDuplicateIntent if the intent id is already used.
	Create(ctx context.Context, order *Order) error
	FindByID(ctx context.Context, id types.OrderID) (*Order, error)
	FindByIntentID(ctx context.Context, intentID string) (*Order, error)

	MarkPaid(ctx context.Context, intentID, paymentID string, at time.Time) (bool, error)
	MarkFailed(ctx context.Context, intentID string, at time.Time) (bool, error)
	ClaimStep(ctx context.Context, intentID string, step Step, now time.Time, lease time.Duration) (bool, error)
	CompleteInvoice(ctx context.Context, intentID, invoiceURL string, at time.Time) (bool, error)
	CompleteNotification(ctx context.Context, intentID string, at time.Time) (bool, error)
	// ReleaseStep matches only while the step still holds the lease
	// deadline returned by LeaseExpiry for the caller's claim.
	ReleaseStep(ctx context.Context, intentID string, step Step, leaseUntil, at time.Time, maxAttempts int) (bool, error)
}
