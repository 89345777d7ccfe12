package persistence

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rai/storefront-payments/internal/platform/sqlite"
	"github.com/rai/storefront-payments/modules/orders/domain"
	"github.com/rai/storefront-payments/modules/shared/types"
)

var t0 = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func repositories(t *testing.T) map[string]domain.OrderRepository {
	t.Helper()

	db, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, sqlite.Migrate(db, SQLiteSchema))

	return map[string]domain.OrderRepository{
		"memory": NewInMemoryRepository(),
		"sqlite": NewSQLiteRepository(db),
	}
}

func newOrder(t *testing.T, intentID string) *domain.Order {
	t.Helper()

	customer, err := domain.NewCustomer("Asha Rao", "asha@example.com", "", domain.Address{City: "Bengaluru"})
	require.NoError(t, err)
	items := []domain.LineItem{
		{ProductID: "7", ProductName: "Silver Anklet", UnitPrice: decimal.RequireFromString("500.00"), Quantity: 2},
		{ProductID: "9", ProductName: "Toe Ring", UnitPrice: decimal.RequireFromString("0.125"), Quantity: 1},
	}
	order, err := domain.NewOrder(types.NewOrderID(), intentID, types.MustNewMoney(100013, "INR"), items, customer, t0)
	require.NoError(t, err)
	return order
}

func TestRepository_CreateAndFind(t *testing.T) {
	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			order := newOrder(t, "order_A")
			require.NoError(t, repo.Create(ctx, order))

			byIntent, err := repo.FindByIntentID(ctx, "order_A")
			require.NoError(t, err)
			byID, err := repo.FindByID(ctx, order.ID())
			require.NoError(t, err)

			for _, got := range []*domain.Order{byIntent, byID} {
				assert.Equal(t, order.ID(), got.ID())
				assert.Equal(t, int64(100013), got.Total().Amount())
				assert.Equal(t, "asha@example.com", got.Customer().Email)
				require.Len(t, got.Items(), 2)
				assert.True(t, got.Items()[1].UnitPrice.Equal(decimal.RequireFromString("0.125")))
				assert.Equal(t, domain.StagePending, got.Stage())
			}

			_, err = repo.FindByIntentID(ctx, "order_missing")
			assert.ErrorIs(t, err, domain.ErrOrderNotFound)
		})
	}
}

func TestRepository_DuplicateIntent(t *testing.T) {
	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, repo.Create(ctx, newOrder(t, "order_A")))
			assert.ErrorIs(t, repo.Create(ctx, newOrder(t, "order_A")), domain.ErrDuplicateIntent)
		})
	}
}

func TestRepository_TransitionGuards(t *testing.T) {
	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, repo.Create(ctx, newOrder(t, "order_A")))

			ok, err := repo.ClaimStep(ctx, "order_A", domain.StepInvoice, t0, time.Minute)
			require.NoError(t, err)
			assert.False(t, ok, "claim before payment")

			ok, err = repo.MarkPaid(ctx, "order_A", "pay_1", t0)
			require.NoError(t, err)
			assert.True(t, ok)

			ok, err = repo.MarkPaid(ctx, "order_A", "pay_2", t0)
			require.NoError(t, err)
			assert.False(t, ok, "second mark paid")

			ok, err = repo.MarkFailed(ctx, "order_A", t0)
			require.NoError(t, err)
			assert.False(t, ok, "fail after paid")

			ok, err = repo.ClaimStep(ctx, "order_A", domain.StepInvoice, t0, time.Minute)
			require.NoError(t, err)
			assert.True(t, ok)

			ok, err = repo.ClaimStep(ctx, "order_A", domain.StepInvoice, t0.Add(time.Second), time.Minute)
			require.NoError(t, err)
			assert.False(t, ok, "claim within lease")

			ok, err = repo.CompleteInvoice(ctx, "order_A", "https://cdn.example.com/a.pdf", t0)
			require.NoError(t, err)
			assert.True(t, ok)

			ok, err = repo.CompleteInvoice(ctx, "order_A", "https://cdn.example.com/b.pdf", t0)
			require.NoError(t, err)
			assert.False(t, ok, "second invoice")

			ok, err = repo.CompleteNotification(ctx, "order_A", t0)
			require.NoError(t, err)
			assert.True(t, ok)

			got, err := repo.FindByIntentID(ctx, "order_A")
			require.NoError(t, err)
			assert.Equal(t, domain.StageFulfilled, got.Stage())
			assert.Equal(t, domain.StatusFulfilled, got.Status())
			assert.Equal(t, "pay_1", got.GatewayPaymentID())
			assert.Equal(t, "https://cdn.example.com/a.pdf", got.InvoiceURL())
			assert.True(t, got.FullyProcessed())
		})
	}
}

func TestRepository_ReleaseStepAbandons(t *testing.T) {
	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, repo.Create(ctx, newOrder(t, "order_A")))
			_, err := repo.MarkPaid(ctx, "order_A", "pay_1", t0)
			require.NoError(t, err)

			for i := 0; i < 2; i++ {
				ok, err := repo.ClaimStep(ctx, "order_A", domain.StepNotification, t0, time.Minute)
				require.NoError(t, err)
				require.True(t, ok, "attempt %d", i+1)
				ok, err = repo.ReleaseStep(ctx, "order_A", domain.StepNotification, domain.LeaseExpiry(t0, time.Minute), t0, 2)
				require.NoError(t, err)
				require.True(t, ok, "release %d", i+1)
			}

			got, err := repo.FindByIntentID(ctx, "order_A")
			require.NoError(t, err)
			assert.Equal(t, 2, got.Notification().Attempts)
			assert.True(t, got.Notification().Abandoned)
			assert.False(t, got.EmailSent())

			ok, err := repo.ClaimStep(ctx, "order_A", domain.StepNotification, t0.Add(time.Hour), time.Minute)
			require.NoError(t, err)
			assert.False(t, ok, "claim after abandonment")
		})
	}
}

func TestRepository_StaleReleaseKeepsNewLease(t *testing.T) {
	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, repo.Create(ctx, newOrder(t, "order_A")))
			_, err := repo.MarkPaid(ctx, "order_A", "pay_1", t0)
			require.NoError(t, err)

			// Sub-microsecond claim times must still round-trip for the release guard.
			first := t0.Add(123456789 * time.Nanosecond)
			second := first.Add(2 * time.Minute)
			ok, err := repo.ClaimStep(ctx, "order_A", domain.StepInvoice, first, time.Minute)
			require.NoError(t, err)
			require.True(t, ok)
			ok, err = repo.ClaimStep(ctx, "order_A", domain.StepInvoice, second, time.Minute)
			require.NoError(t, err)
			require.True(t, ok, "claim after the first lease expired")

			ok, err = repo.ReleaseStep(ctx, "order_A", domain.StepInvoice, domain.LeaseExpiry(first, time.Minute), second, 3)
			require.NoError(t, err)
			assert.False(t, ok, "release by the expired holder")

			ok, err = repo.ClaimStep(ctx, "order_A", domain.StepInvoice, second.Add(time.Second), time.Minute)
			require.NoError(t, err)
			assert.False(t, ok, "new lease must still be held")

			ok, err = repo.ReleaseStep(ctx, "order_A", domain.StepInvoice, domain.LeaseExpiry(second, time.Minute), second, 3)
			require.NoError(t, err)
			assert.True(t, ok, "release by the current holder")

			got, err := repo.FindByIntentID(ctx, "order_A")
			require.NoError(t, err)
			assert.Equal(t, 1, got.Invoice().Attempts)
			assert.True(t, got.Invoice().LeaseUntil.IsZero())
		})
	}
}

func TestRepository_FailedThenPaid(t *testing.T) {
	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, repo.Create(ctx, newOrder(t, "order_A")))

			ok, err := repo.MarkFailed(ctx, "order_A", t0)
			require.NoError(t, err)
			assert.True(t, ok)

			ok, err = repo.MarkPaid(ctx, "order_A", "pay_2", t0)
			require.NoError(t, err)
			assert.True(t, ok, "a later capture supersedes a failed attempt")
		})
	}
}

func TestRepository_ConcurrentTransitionsHaveOneWinner(t *testing.T) {
	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, repo.Create(ctx, newOrder(t, "order_A")))

			const workers = 16
			var paid, claimed atomic.Int32
			var wg sync.WaitGroup
			for i := 0; i < workers; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					if ok, err := repo.MarkPaid(ctx, "order_A", "pay_1", t0); err == nil && ok {
						paid.Add(1)
					}
					if ok, err := repo.ClaimStep(ctx, "order_A", domain.StepInvoice, t0, time.Minute); err == nil && ok {
						claimed.Add(1)
					}
				}()
			}
			wg.Wait()

			assert.Equal(t, int32(1), paid.Load())
			assert.Equal(t, int32(1), claimed.Load())
		})
	}
}
