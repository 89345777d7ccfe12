package storage_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rai/storefront-payments/modules/invoices/domain"
	"github.com/rai/storefront-payments/modules/invoices/infrastructure/storage"
)

func TestMemoryStorage_UploadOverwrites(t *testing.T) {
	s := storage.NewMemoryStorage("https://cdn.example.com/")
	ctx := context.Background()

	url, err := s.Upload(ctx, "invoices/invoice-1.pdf", []byte("v1"), "application/pdf")
	require.NoError(t, err)
	_, err = s.Upload(ctx, "invoices/invoice-1.pdf", []byte("v2"), "application/pdf")
	require.NoError(t, err)

	assert.Equal(t, "https://cdn.example.com/invoices/invoice-1.pdf", url)
	assert.Equal(t, 1, s.Len())
	obj, ok := s.Get("invoices/invoice-1.pdf")
	require.True(t, ok)
	assert.Equal(t, "v2", string(obj.Data))
	assert.Equal(t, "application/pdf", obj.ContentType)
}

func TestMemoryStorage_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := storage.NewMemoryStorage("").Upload(ctx, "k", nil, "application/pdf")

	assert.ErrorIs(t, err, context.Canceled)
}

func TestObjectURL(t *testing.T) {
	assert.Equal(t, "https://storage.googleapis.com/inv/invoices/invoice-1.pdf",
		storage.ObjectURL(storage.PublicBaseURL("inv", ""), "invoices/invoice-1.pdf"))
	assert.Equal(t, "https://cdn.example.com/a%20b/c.pdf",
		storage.ObjectURL(storage.PublicBaseURL("inv", "https://cdn.example.com/"), "a b/c.pdf"))
}

func TestGCSStorage_RequiresBucket(t *testing.T) {
	_, err := storage.NewGCSStorage(context.Background(), "", "", nil)

	assert.True(t, errors.Is(err, domain.ErrNotConfigured))
}

func TestUnconfigured_FailsClosed(t *testing.T) {
	_, err := storage.Unconfigured{}.Upload(context.Background(), "k", nil, "application/pdf")

	assert.ErrorIs(t, err, domain.ErrNotConfigured)
}
