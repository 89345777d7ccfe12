package spanner

import (
	"context"
	"errors"

	"cloud.google.com/go/spanner"
)

// ErrNestedTransaction is returned when attempting to start a transaction
// inside an already-active transaction scope.
// Spanner has no nested transactions; an inner scope would commit independently.
var ErrNestedTransaction = errors.New("nested transaction detected: Cloud Spanner does not support nested transactions")

// ReadWriteTransactionScope manages the lifecycle of a Spanner read-write transaction.
type ReadWriteTransactionScope struct {
	client *spanner.Client
}

// NewReadWriteTransactionScope creates a new Spanner-backed transaction scope.
func NewReadWriteTransactionScope(client *spanner.Client) *ReadWriteTransactionScope {
	return &ReadWriteTransactionScope{client: client}
}

// Execute runs fn within a Spanner ReadWriteTransaction.
// The transaction is committed if fn returns nil, rolled back otherwise.
// The ctx passed to fn contains the transaction for repositories to access via ReadWriteTxFromContext.
//
// Spanner may retry fn on Aborted errors, so fn must be idempotent and must
// not upload invoices, send mail or publish events. Those run after commit.
func (s *ReadWriteTransactionScope) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	_, err := s.client.ReadWriteTransaction(ctx, func(ctx context.Context, tx *spanner.ReadWriteTransaction) error {
		txCtx, err := withReadWriteTx(ctx, tx)
		if err != nil {
			return err
		}
		return fn(txCtx)
	})
	return err
}
