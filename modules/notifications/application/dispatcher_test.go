package application_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rai/storefront-payments/modules/notifications/application"
	"github.com/rai/storefront-payments/modules/notifications/domain"
	"github.com/rai/storefront-payments/modules/shared/events/contracts"
	"github.com/rai/storefront-payments/modules/shared/types"
)

type mockMailer struct {
	mu     sync.Mutex
	sent   []domain.Message
	sendFn func(msg domain.Message) error
}

func (m *mockMailer) Send(ctx context.Context, msg domain.Message) error {
	m.mu.Lock()
	m.sent = append(m.sent, msg)
	m.mu.Unlock()
	if m.sendFn != nil {
		return m.sendFn(msg)
	}
	return nil
}

func (m *mockMailer) to(addr string) (domain.Message, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, msg := range m.sent {
		if msg.To == addr {
			return msg, true
		}
	}
	return domain.Message{}, false
}

func testReceipt(invoiceURL string) contracts.OrderReceipt {
	price := decimal.RequireFromString("500")
	return contracts.OrderReceipt{
		OrderID:   "5f0c2a9e-1d7b-4c55-9a8e-0b1f6a3d2c10",
		IntentID:  "order_Test123",
		PaymentID: "pay_1",
		PlacedAt:  time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		Customer:  contracts.ReceiptCustomer{Name: "Asha <Rao>", Email: "asha@example.com", AddressLines: []string{"12 MG Road"}},
		Lines: []contracts.ReceiptLine{
			{ProductID: "7", Name: "Silver Anklet", Quantity: 2, UnitPrice: price, LineTotal: price.Mul(decimal.NewFromInt(2))},
		},
		Total:      types.MustNewMoney(100000, "INR"),
		InvoiceURL: invoiceURL,
	}
}

func TestDispatcher_SendsBothMessages(t *testing.T) {
	mailer := &mockMailer{}
	d := application.NewDispatcher(mailer, "Kavya Jewels", "admin@kavya.example", nil)

	err := d.Send(context.Background(), testReceipt("https://cdn.example.com/i.pdf"))

	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	customer, ok := mailer.to("asha@example.com")
	if !ok {
		t.Fatal("expected a customer receipt")
	}
	if !strings.Contains(customer.HTML, `href="https://cdn.example.com/i.pdf"`) {
		t.Error("expected an invoice link in the customer receipt")
	}
	if !strings.Contains(customer.HTML, "Asha &lt;Rao&gt;") {
		t.Error("expected the customer name to be escaped")
	}
	if !strings.Contains(customer.Text, "1000.00 INR") {
		t.Errorf("expected the total in the text body, got %q", customer.Text)
	}
	admin, ok := mailer.to("admin@kavya.example")
	if !ok {
		t.Fatal("expected an admin alert")
	}
	if !strings.Contains(admin.Subject, "1000.00 INR") {
		t.Errorf("unexpected admin subject %q", admin.Subject)
	}
}

func TestDispatcher_PendingInvoicePlaceholder(t *testing.T) {
	mailer := &mockMailer{}
	d := application.NewDispatcher(mailer, "Kavya Jewels", "admin@kavya.example", nil)

	if err := d.Send(context.Background(), testReceipt("")); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	customer, _ := mailer.to("asha@example.com")
	if strings.Contains(customer.HTML, "href=") {
		t.Error("expected no invoice link")
	}
	if !strings.Contains(customer.HTML, "still being generated") {
		t.Error("expected the pending placeholder")
	}
	admin, _ := mailer.to("admin@kavya.example")
	if !strings.Contains(admin.Text, "Invoice generation pending.") {
		t.Error("expected the pending placeholder in the admin alert")
	}
}

func TestDispatcher_OneFailureDoesNotStopTheOther(t *testing.T) {
	errRelay := errors.New("relay refused")
	mailer := &mockMailer{sendFn: func(msg domain.Message) error {
		if msg.To == "asha@example.com" {
			return errRelay
		}
		return nil
	}}
	d := application.NewDispatcher(mailer, "Kavya Jewels", "admin@kavya.example", nil)

	err := d.Send(context.Background(), testReceipt(""))

	if !errors.Is(err, errRelay) {
		t.Fatalf("expected the relay error, got %v", err)
	}
	if _, ok := mailer.to("admin@kavya.example"); !ok {
		t.Error("expected the admin alert to be attempted")
	}
}

func TestDispatcher_AdminFailureNamesTheMessage(t *testing.T) {
	errRelay := errors.New("relay refused")
	mailer := &mockMailer{sendFn: func(msg domain.Message) error {
		if msg.To == "admin@kavya.example" {
			return errRelay
		}
		return nil
	}}
	d := application.NewDispatcher(mailer, "Kavya Jewels", "admin@kavya.example", nil)

	err := d.Send(context.Background(), testReceipt(""))

	if !errors.Is(err, errRelay) {
		t.Fatalf("expected the relay error, got %v", err)
	}
	if !strings.HasPrefix(err.Error(), "admin alert: ") {
		t.Errorf("expected error labelled with the failed message, got %q", err)
	}
	if _, ok := mailer.to("asha@example.com"); !ok {
		t.Error("expected the customer receipt to be sent")
	}
}

func TestDispatcher_BothFailuresReturned(t *testing.T) {
	errCustomer := errors.New("customer bounce")
	errAdmin := errors.New("admin bounce")
	mailer := &mockMailer{sendFn: func(msg domain.Message) error {
		if msg.To == "asha@example.com" {
			return errCustomer
		}
		return errAdmin
	}}
	d := application.NewDispatcher(mailer, "Kavya Jewels", "admin@kavya.example", nil)

	err := d.Send(context.Background(), testReceipt(""))

	if !errors.Is(err, errCustomer) || !errors.Is(err, errAdmin) {
		t.Errorf("expected both errors, got %v", err)
	}
}

func TestDispatcher_NoAdminAddress(t *testing.T) {
	mailer := &mockMailer{}
	d := application.NewDispatcher(mailer, "Kavya Jewels", "", nil)

	if err := d.Send(context.Background(), testReceipt("")); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(mailer.sent) != 1 {
		t.Errorf("expected only the customer receipt, got %d messages", len(mailer.sent))
	}
}
