// Package persistence implements repository interfaces for orders.
package persistence

import (
	"context"
	"sync"
	"time"

	"github.com/rai/storefront-payments/modules/orders/domain"
	"github.com/rai/storefront-payments/modules/shared/types"
)

// InMemoryRepository implements OrderRepository using in-memory storage.
// Every transition runs under the write lock, which makes it the
// conditional write the interface promises.
type InMemoryRepository struct {
	mu       sync.RWMutex
	byIntent map[string]domain.Snapshot
	byID     map[string]string
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		byIntent: make(map[string]domain.Snapshot),
		byID:     make(map[string]string),
	}
}

func (r *InMemoryRepository) Create(ctx context.Context, order *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byIntent[order.IntentID()]; exists {
		return domain.ErrDuplicateIntent
	}
	r.byIntent[order.IntentID()] = order.Snapshot()
	r.byID[order.ID().String()] = order.IntentID()
	return nil
}

func (r *InMemoryRepository) FindByID(ctx context.Context, id types.OrderID) (*domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	intentID, exists := r.byID[id.String()]
	if !exists {
		return nil, domain.ErrOrderNotFound
	}
	return domain.Reconstitute(r.byIntent[intentID]), nil
}

func (r *InMemoryRepository) FindByIntentID(ctx context.Context, intentID string) (*domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snap, exists := r.byIntent[intentID]
	if !exists {
		return nil, domain.ErrOrderNotFound
	}
	return domain.Reconstitute(snap), nil
}

func (r *InMemoryRepository) MarkPaid(ctx context.Context, intentID, paymentID string, at time.Time) (bool, error) {
	return r.apply(intentID, func(o *domain.Order) bool { return o.MarkPaid(paymentID, at) })
}

func (r *InMemoryRepository) MarkFailed(ctx context.Context, intentID string, at time.Time) (bool, error) {
	return r.apply(intentID, func(o *domain.Order) bool { return o.MarkFailed(at) })
}

func (r *InMemoryRepository) ClaimStep(ctx context.Context, intentID string, step domain.Step, now time.Time, lease time.Duration) (bool, error) {
	return r.apply(intentID, func(o *domain.Order) bool { return o.ClaimStep(step, now, lease) })
}

func (r *InMemoryRepository) CompleteInvoice(ctx context.Context, intentID, invoiceURL string, at time.Time) (bool, error) {
	return r.apply(intentID, func(o *domain.Order) bool { return o.CompleteInvoice(invoiceURL, at) })
}

func (r *InMemoryRepository) CompleteNotification(ctx context.Context, intentID string, at time.Time) (bool, error) {
	return r.apply(intentID, func(o *domain.Order) bool { return o.CompleteNotification(at) })
}

func (r *InMemoryRepository) ReleaseStep(ctx context.Context, intentID string, step domain.Step, leaseUntil, at time.Time, maxAttempts int) (bool, error) {
	return r.apply(intentID, func(o *domain.Order) bool { return o.ReleaseStep(step, leaseUntil, at, maxAttempts) })
}

func (r *InMemoryRepository) apply(intentID string, transition func(*domain.Order) bool) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap, exists := r.byIntent[intentID]
	if !exists {
		return false, nil
	}
	order := domain.Reconstitute(snap)
	if !transition(order) {
		return false, nil
	}
	r.byIntent[intentID] = order.Snapshot()
	return true, nil
}

// Compile-time interface check.
var _ domain.OrderRepository = (*InMemoryRepository)(nil)
