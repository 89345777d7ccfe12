package spanner

import (
	"context"

	"cloud.google.com/go/spanner"
)

type readWriteTxKey struct{}

// Reader is satisfied by every Spanner transaction type that can read.
type Reader interface {
	ReadRow(ctx context.Context, table string, key spanner.Key, columns []string) (*spanner.Row, error)
	Read(ctx context.Context, table string, keys spanner.KeySet, columns []string) *spanner.RowIterator
	Query(ctx context.Context, statement spanner.Statement) *spanner.RowIterator
}

func withReadWriteTx(ctx context.Context, tx *spanner.ReadWriteTransaction) (context.Context, error) {
	if hasTx(ctx) {
		return nil, ErrNestedTransaction
	}
	return context.WithValue(ctx, readWriteTxKey{}, tx), nil
}

func hasTx(ctx context.Context) bool {
	_, ok := ctx.Value(readWriteTxKey{}).(*spanner.ReadWriteTransaction)
	return ok
}

// ReadWriteTxFromContext extracts a ReadWriteTransaction placed by a
// ReadWriteTransactionScope. Returns (nil, false) if none is present.
func ReadWriteTxFromContext(ctx context.Context) (*spanner.ReadWriteTransaction, bool) {
	tx, ok := ctx.Value(readWriteTxKey{}).(*spanner.ReadWriteTransaction)
	return tx, ok
}

// ReadTransactionFromContext returns the transaction in ctx as a Reader, so
// reads inside a read-write scope see its uncommitted writes.
func ReadTransactionFromContext(ctx context.Context) (Reader, bool) {
	if tx, ok := ReadWriteTxFromContext(ctx); ok {
		return tx, true
	}
	return nil, false
}
