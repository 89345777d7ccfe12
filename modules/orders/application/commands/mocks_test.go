package commands_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rai/storefront-payments/modules/orders/application/commands"
	"github.com/rai/storefront-payments/modules/orders/domain"
	"github.com/rai/storefront-payments/modules/orders/infrastructure/persistence"
	"github.com/rai/storefront-payments/modules/payments"
	paymentsdomain "github.com/rai/storefront-payments/modules/payments/domain"
	"github.com/rai/storefront-payments/modules/shared/events"
	"github.com/rai/storefront-payments/modules/shared/events/contracts"
	"github.com/rai/storefront-payments/modules/shared/types"
)

const (
	keySecret     = "test-key-secret"
	webhookSecret = "test-webhook-secret"
	testIntent    = "order_Test123"
)

var t0 = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

// --- Mocks ---

type mockRenderer struct {
	calls    atomic.Int32
	renderFn func(r contracts.OrderReceipt) ([]byte, error)
}

func (m *mockRenderer) Render(r contracts.OrderReceipt) ([]byte, error) {
	m.calls.Add(1)
	if m.renderFn != nil {
		return m.renderFn(r)
	}
	return []byte("%PDF-1.3 " + r.OrderID), nil
}

type mockStorage struct {
	calls    atomic.Int32
	uploadFn func(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

func (m *mockStorage) Upload(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	m.calls.Add(1)
	if m.uploadFn != nil {
		return m.uploadFn(ctx, key, data, contentType)
	}
	return "https://cdn.example.com/" + key, nil
}

type mockNotifier struct {
	mu       sync.Mutex
	receipts []contracts.OrderReceipt
	sendFn   func(ctx context.Context, r contracts.OrderReceipt) error
}

func (m *mockNotifier) Send(ctx context.Context, r contracts.OrderReceipt) error {
	m.mu.Lock()
	m.receipts = append(m.receipts, r)
	m.mu.Unlock()
	if m.sendFn != nil {
		return m.sendFn(ctx, r)
	}
	return nil
}

func (m *mockNotifier) sent() []contracts.OrderReceipt {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]contracts.OrderReceipt(nil), m.receipts...)
}

type mockPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (m *mockPublisher) Publish(ctx context.Context, event events.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

func (m *mockPublisher) types() []events.EventType {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []events.EventType
	for _, e := range m.events {
		out = append(out, e.EventType())
	}
	return out
}

type mockGateway struct {
	calls    atomic.Int32
	createFn func(ctx context.Context, req payments.CreateIntentRequest) (payments.Intent, error)
}

func (m *mockGateway) CreateIntent(ctx context.Context, req payments.CreateIntentRequest) (payments.Intent, error) {
	m.calls.Add(1)
	if m.createFn != nil {
		return m.createFn(ctx, req)
	}
	return payments.Intent{ID: testIntent, Amount: req.Amount.Amount(), Currency: req.Amount.Currency(), Receipt: req.Receipt}, nil
}

// countingRepository records every write that reaches the store.
type countingRepository struct {
	domain.OrderRepository
	writes atomic.Int32
}

func (r *countingRepository) Create(ctx context.Context, o *domain.Order) error {
	r.writes.Add(1)
	return r.OrderRepository.Create(ctx, o)
}

func (r *countingRepository) MarkPaid(ctx context.Context, intentID, paymentID string, at time.Time) (bool, error) {
	r.writes.Add(1)
	return r.OrderRepository.MarkPaid(ctx, intentID, paymentID, at)
}

func (r *countingRepository) MarkFailed(ctx context.Context, intentID string, at time.Time) (bool, error) {
	r.writes.Add(1)
	return r.OrderRepository.MarkFailed(ctx, intentID, at)
}

func (r *countingRepository) ClaimStep(ctx context.Context, intentID string, step domain.Step, now time.Time, lease time.Duration) (bool, error) {
	r.writes.Add(1)
	return r.OrderRepository.ClaimStep(ctx, intentID, step, now, lease)
}

// --- Fixtures ---

type fixture struct {
	repo       *countingRepository
	renderer   *mockRenderer
	storage    *mockStorage
	notifier   *mockNotifier
	publisher  *mockPublisher
	reconciler *commands.Reconciler
	verifier   *payments.Verifier
	now        time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	verifier, err := payments.NewVerifier(keySecret, webhookSecret, payments.WebhookSignatureEnforce, nil)
	if err != nil {
		t.Fatalf("failed to create verifier: %v", err)
	}

	f := &fixture{
		repo:      &countingRepository{OrderRepository: persistence.NewInMemoryRepository()},
		renderer:  &mockRenderer{},
		storage:   &mockStorage{},
		notifier:  &mockNotifier{},
		publisher: &mockPublisher{},
		verifier:  verifier,
		now:       t0,
	}
	f.reconciler = commands.NewReconciler(f.repo, f.renderer, f.storage, f.notifier, f.publisher, commands.ReconcilerConfig{
		StepLease:       time.Minute,
		MaxStepAttempts: 3,
		Now:             func() time.Time { return f.now },
	}, nil)
	return f
}

func (f *fixture) placeOrder(t *testing.T, intentID string) *domain.Order {
	t.Helper()

	customer, err := domain.NewCustomer("Asha Rao", "asha@example.com", "", domain.Address{City: "Bengaluru"})
	if err != nil {
		t.Fatalf("failed to create customer: %v", err)
	}
	items := []domain.LineItem{{ProductID: "7", ProductName: "Silver Anklet", UnitPrice: decimal.RequireFromString("500.00"), Quantity: 2}}
	order, err := domain.NewOrder(types.NewOrderID(), intentID, types.MustNewMoney(100000, "INR"), items, customer, t0)
	if err != nil {
		t.Fatalf("failed to create order: %v", err)
	}
	if err := f.repo.OrderRepository.Create(context.Background(), order); err != nil {
		t.Fatalf("failed to store order: %v", err)
	}
	return order
}

func (f *fixture) order(t *testing.T, intentID string) *domain.Order {
	t.Helper()

	order, err := f.repo.FindByIntentID(context.Background(), intentID)
	if err != nil {
		t.Fatalf("failed to load order: %v", err)
	}
	return order
}

func paymentSignature(intentID, paymentID string) string {
	return paymentsdomain.Sign(paymentsdomain.PaymentSignaturePayload(intentID, paymentID), keySecret)
}

func webhookBody(event, intentID, paymentID string) ([]byte, string) {
	body := []byte(`{"entity":"event","event":"` + event + `","payload":{"payment":{"entity":{"id":"` + paymentID +
		`","order_id":"` + intentID + `","status":"captured","amount":100000,"currency":"INR","method":"upi"}}}}`)
	return body, paymentsdomain.Sign(body, webhookSecret)
}

func signBody(body []byte) string {
	return paymentsdomain.Sign(body, webhookSecret)
}
