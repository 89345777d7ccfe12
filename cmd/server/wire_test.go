package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rai/storefront-payments/internal/platform/config"
	catalogdomain "github.com/rai/storefront-payments/modules/catalog/domain"
	catalogpersistence "github.com/rai/storefront-payments/modules/catalog/infrastructure/persistence"
	"github.com/rai/storefront-payments/modules/orders/application/commands"
	paymentsdomain "github.com/rai/storefront-payments/modules/payments/domain"
)

const testKeySecret = "wire-key-secret"

func testConfig(t *testing.T) *config.Config {
	t.Helper()

	seed := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(seed, []byte(`products:
  - id: "7"
    name: Silver Anklet
    price: "500.00"
`), 0o600))

	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Store.Driver = "memory"
	cfg.Catalog.Source = "seed"
	cfg.Catalog.SeedFile = seed
	cfg.Catalog.RedisAddr = ""
	cfg.Payments.Gateway = "fake"
	cfg.Payments.KeySecret = testKeySecret
	cfg.Payments.WebhookSecret = "wire-webhook-secret"
	cfg.Storage.Driver = "memory"
	cfg.Mail.SMTPHost = ""
	cfg.Events.AMQPURL = ""
	return cfg
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestCatalogPricing_Adapts(t *testing.T) {
	repo := catalogpersistence.NewInMemoryRepository(
		catalogdomain.Product{ID: "7", Name: "Silver Anklet", Price: "500.00"},
	)
	adapter := catalogPricing{reader: repo}

	got, err := adapter.Products(context.Background(), []string{"7", "8"})

	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Silver Anklet", got["7"].Name)
	assert.Equal(t, "500.00", got["7"].Price)
}

func TestBuildApp_ServesCheckoutEndToEnd(t *testing.T) {
	a, err := buildApp(context.Background(), testConfig(t), discardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })

	srv := httptest.NewServer(buildRouter(a.orders))
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := `{"items":[{"productId":7,"quantity":2}],"currency":"INR",
		"customerSnapshot":{"name":"Asha Rao","email":"asha@example.com"}}`
	resp, err = http.Post(srv.URL+"/orders/intents", "application/json", bytes.NewBufferString(body))
	require.NoError(t, err)
	var intent struct {
		IntentID string `json:"intentId"`
		OrderID  string `json:"orderId"`
		Amount   int64  `json:"amount"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&intent))
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, int64(100000), intent.Amount)

	sig := paymentsdomain.Sign(paymentsdomain.PaymentSignaturePayload(intent.IntentID, "pay_wire"), testKeySecret)
	confirm, _ := json.Marshal(map[string]string{"intentId": intent.IntentID, "paymentId": "pay_wire", "signature": sig})
	resp, err = http.Post(srv.URL+"/payments/confirm", "application/json", bytes.NewReader(confirm))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	a.orders.Wait()

	resp, err = http.Get(srv.URL + "/orders/" + intent.OrderID)
	require.NoError(t, err)
	var order struct {
		Stage            string `json:"stage"`
		InvoiceGenerated bool   `json:"invoice_generated"`
		EmailSent        bool   `json:"email_sent"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&order))
	resp.Body.Close()

	assert.Equal(t, "fulfilled", order.Stage)
	assert.True(t, order.InvoiceGenerated)
	assert.True(t, order.EmailSent)
}

func TestBuildApp_RejectsBadSeedFile(t *testing.T) {
	cfg := testConfig(t)
	cfg.Catalog.SeedFile = filepath.Join(t.TempDir(), "missing.yaml")

	_, err := buildApp(context.Background(), cfg, discardLogger())

	assert.Error(t, err)
}

func TestPrintOutcome(t *testing.T) {
	var buf bytes.Buffer
	printOutcome(&buf, commands.Outcome{
		OrderID:      "5f0c",
		Transitioned: true,
		Invoice:      commands.StepOutcome{Status: commands.StepSucceeded},
		Notification: commands.StepOutcome{Status: commands.StepSucceeded},
	})

	assert.Contains(t, buf.String(), "transitioned:      true")
	assert.Contains(t, buf.String(), "invoice:           succeeded")
}
