package persistence

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cloud.google.com/go/spanner"
	"github.com/shopspring/decimal"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"

	platformspanner "github.com/rai/storefront-payments/internal/platform/spanner"
	"github.com/rai/storefront-payments/modules/orders/domain"
	"github.com/rai/storefront-payments/modules/shared/types"
)

// SpannerDDL is the schema the Spanner repository expects.
const SpannerDDL = `
CREATE TABLE Orders (
	OrderID           STRING(36) NOT NULL,
	IntentID          STRING(64) NOT NULL,
	TotalAmount       INT64 NOT NULL,
	Currency          STRING(3) NOT NULL,
	Customer          STRING(MAX) NOT NULL,
	Status            STRING(16) NOT NULL,
	PaymentStatus     STRING(16) NOT NULL,
	GatewayPaymentID  STRING(64) NOT NULL,
	InvoiceURL        STRING(MAX) NOT NULL,
	InvoiceGenerated  BOOL NOT NULL,
	InvoiceAttempts   INT64 NOT NULL,
	InvoiceAbandoned  BOOL NOT NULL,
	InvoiceLeaseUntil TIMESTAMP,
	EmailSent         BOOL NOT NULL,
	EmailAttempts     INT64 NOT NULL,
	EmailAbandoned    BOOL NOT NULL,
	EmailLeaseUntil   TIMESTAMP,
	CreatedAt         TIMESTAMP NOT NULL,
	UpdatedAt         TIMESTAMP NOT NULL,
) PRIMARY KEY (OrderID);

CREATE UNIQUE INDEX OrdersByIntentID ON Orders(IntentID);

CREATE TABLE OrderItems (
	OrderID     STRING(36) NOT NULL,
	ItemIndex   INT64 NOT NULL,
	ProductID   STRING(64) NOT NULL,
	ProductName STRING(MAX) NOT NULL,
	UnitPrice   STRING(64) NOT NULL,
	Quantity    INT64 NOT NULL,
) PRIMARY KEY (OrderID, ItemIndex),
  INTERLEAVE IN PARENT Orders ON DELETE CASCADE;`

var spannerStepColumns = map[domain.Step]stepColumns{
	domain.StepInvoice:      {"InvoiceGenerated", "InvoiceAttempts", "InvoiceAbandoned", "InvoiceLeaseUntil"},
	domain.StepNotification: {"EmailSent", "EmailAttempts", "EmailAbandoned", "EmailLeaseUntil"},
}

var spannerOrderColumns = []string{
	"OrderID", "IntentID", "TotalAmount", "Currency", "Customer", "Status", "PaymentStatus",
	"GatewayPaymentID", "InvoiceURL",
	"InvoiceGenerated", "InvoiceAttempts", "InvoiceAbandoned", "InvoiceLeaseUntil",
	"EmailSent", "EmailAttempts", "EmailAbandoned", "EmailLeaseUntil",
	"CreatedAt", "UpdatedAt",
}

type SpannerRepository struct {
	client *spanner.Client
}

func NewSpannerRepository(client *spanner.Client) *SpannerRepository {
	return &SpannerRepository{client: client}
}

// Create inserts the order and its items.
// It uses an existing transaction if available, otherwise creates a new one.
func (r *SpannerRepository) Create(ctx context.Context, order *domain.Order) error {
	mutations, err := r.insertMutations(order)
	if err != nil {
		return err
	}

	if txn, ok := platformspanner.ReadWriteTxFromContext(ctx); ok {
		return txn.BufferWrite(mutations)
	}

	_, err = r.client.ReadWriteTransaction(ctx, func(ctx context.Context, txn *spanner.ReadWriteTransaction) error {
		return txn.BufferWrite(mutations)
	})
	if spanner.ErrCode(err) == codes.AlreadyExists {
		return domain.ErrDuplicateIntent
	}
	if err != nil {
		return fmt.Errorf("%w: failed to create order: %w", domain.ErrPersistence, err)
	}
	return nil
}

func (r *SpannerRepository) insertMutations(order *domain.Order) ([]*spanner.Mutation, error) {
	customer, err := json.Marshal(order.Customer())
	if err != nil {
		return nil, fmt.Errorf("%w: encode customer: %w", domain.ErrPersistence, err)
	}
	orderID := order.ID().String()

	mutations := []*spanner.Mutation{
		spanner.Insert("Orders", spannerOrderColumns, []interface{}{
			orderID,
			order.IntentID(),
			order.Total().Amount(),
			order.Total().Currency(),
			string(customer),
			order.Status().String(),
			order.PaymentStatus().String(),
			"", "",
			false, int64(0), false, spanner.NullTime{},
			false, int64(0), false, spanner.NullTime{},
			order.CreatedAt(),
			order.UpdatedAt(),
		}),
	}

	for i, item := range order.Items() {
		mutations = append(mutations, spanner.Insert("OrderItems",
			[]string{"OrderID", "ItemIndex", "ProductID", "ProductName", "UnitPrice", "Quantity"},
			[]interface{}{
				orderID,
				int64(i),
				item.ProductID,
				item.ProductName,
				item.UnitPrice.String(),
				int64(item.Quantity),
			},
		))
	}
	return mutations, nil
}

func (r *SpannerRepository) FindByID(ctx context.Context, id types.OrderID) (*domain.Order, error) {
	reader, done := r.reader(ctx)
	defer done()

	row, err := reader.ReadRow(ctx, "Orders", spanner.Key{id.String()}, spannerOrderColumns)
	if err != nil {
		if spanner.ErrCode(err) == codes.NotFound {
			return nil, domain.ErrOrderNotFound
		}
		return nil, fmt.Errorf("%w: failed to read order: %w", domain.ErrPersistence, err)
	}
	return r.decode(ctx, reader, row)
}

func (r *SpannerRepository) FindByIntentID(ctx context.Context, intentID string) (*domain.Order, error) {
	reader, done := r.reader(ctx)
	defer done()

	stmt := spanner.Statement{
		SQL: `SELECT OrderID FROM Orders@{FORCE_INDEX=OrdersByIntentID} WHERE IntentID = @intentID`,
		Params: map[string]interface{}{
			"intentID": intentID,
		},
	}
	iter := reader.Query(ctx, stmt)
	defer iter.Stop()

	idRow, err := iter.Next()
	if err == iterator.Done {
		return nil, domain.ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query order: %w", domain.ErrPersistence, err)
	}
	var orderID string
	if err := idRow.Columns(&orderID); err != nil {
		return nil, fmt.Errorf("%w: failed to scan order id: %w", domain.ErrPersistence, err)
	}

	row, err := reader.ReadRow(ctx, "Orders", spanner.Key{orderID}, spannerOrderColumns)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read order: %w", domain.ErrPersistence, err)
	}
	return r.decode(ctx, reader, row)
}

// reader returns the transaction in ctx, or a fresh read-only transaction
// so the order row and its items are read at one timestamp.
func (r *SpannerRepository) reader(ctx context.Context) (platformspanner.Reader, func()) {
	if reader, ok := platformspanner.ReadTransactionFromContext(ctx); ok {
		return reader, func() {}
	}
	roTx := r.client.ReadOnlyTransaction()
	return roTx, roTx.Close
}

func (r *SpannerRepository) decode(ctx context.Context, reader platformspanner.Reader, row *spanner.Row) (*domain.Order, error) {
	var (
		s                   domain.Snapshot
		orderID, currency   string
		customer            string
		status, pay         string
		amount              int64
		invAttempts         int64
		mailAttempts        int64
		invLease, mailLease spanner.NullTime
	)
	err := row.Columns(
		&orderID, &s.IntentID, &amount, &currency, &customer, &status, &pay,
		&s.GatewayPaymentID, &s.InvoiceURL,
		&s.Invoice.Done, &invAttempts, &s.Invoice.Abandoned, &invLease,
		&s.Notification.Done, &mailAttempts, &s.Notification.Abandoned, &mailLease,
		&s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to scan order: %w", domain.ErrPersistence, err)
	}

	if s.ID, err = types.ParseOrderID(orderID); err != nil {
		return nil, fmt.Errorf("%w: failed to parse order id: %w", domain.ErrPersistence, err)
	}
	if s.Total, err = types.NewMoney(amount, currency); err != nil {
		return nil, fmt.Errorf("%w: failed to decode total: %w", domain.ErrPersistence, err)
	}
	if err := json.Unmarshal([]byte(customer), &s.Customer); err != nil {
		return nil, fmt.Errorf("%w: failed to decode customer: %w", domain.ErrPersistence, err)
	}
	s.Status = domain.Status(status)
	s.PaymentStatus = domain.PaymentStatus(pay)
	s.Invoice.Attempts = int(invAttempts)
	s.Notification.Attempts = int(mailAttempts)
	if invLease.Valid {
		s.Invoice.LeaseUntil = invLease.Time
	}
	if mailLease.Valid {
		s.Notification.LeaseUntil = mailLease.Time
	}

	if s.Items, err = r.readItems(ctx, reader, orderID); err != nil {
		return nil, err
	}
	return domain.Reconstitute(s), nil
}

func (r *SpannerRepository) readItems(ctx context.Context, reader platformspanner.Reader, orderID string) ([]domain.LineItem, error) {
	iter := reader.Read(ctx, "OrderItems",
		spanner.KeyRange{
			Start: spanner.Key{orderID},
			End:   spanner.Key{orderID},
			Kind:  spanner.ClosedClosed,
		},
		[]string{"ProductID", "ProductName", "UnitPrice", "Quantity"},
	)
	defer iter.Stop()

	var items []domain.LineItem
	for {
		row, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: failed to read order items: %w", domain.ErrPersistence, err)
		}

		var productID, productName, unitPrice string
		var quantity int64
		if err := row.Columns(&productID, &productName, &unitPrice, &quantity); err != nil {
			return nil, fmt.Errorf("%w: failed to scan order item: %w", domain.ErrPersistence, err)
		}
		price, err := decimal.NewFromString(unitPrice)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to decode unit price: %w", domain.ErrPersistence, err)
		}

		items = append(items, domain.LineItem{
			ProductID:   productID,
			ProductName: productName,
			UnitPrice:   price,
			Quantity:    int(quantity),
		})
	}

	return items, nil
}

func (r *SpannerRepository) MarkPaid(ctx context.Context, intentID, paymentID string, at time.Time) (bool, error) {
	return r.update(ctx, "mark paid", spanner.Statement{
		SQL: `UPDATE Orders SET PaymentStatus = 'paid', Status = 'processing',
		      GatewayPaymentID = @paymentID, UpdatedAt = @at
		      WHERE IntentID = @intentID AND PaymentStatus != 'paid'`,
		Params: map[string]interface{}{"intentID": intentID, "paymentID": paymentID, "at": at.UTC()},
	})
}

func (r *SpannerRepository) MarkFailed(ctx context.Context, intentID string, at time.Time) (bool, error) {
	return r.update(ctx, "mark failed", spanner.Statement{
		SQL: `UPDATE Orders SET PaymentStatus = 'failed', Status = 'failed', UpdatedAt = @at
		      WHERE IntentID = @intentID AND PaymentStatus = 'pending'`,
		Params: map[string]interface{}{"intentID": intentID, "at": at.UTC()},
	})
}

func (r *SpannerRepository) ClaimStep(ctx context.Context, intentID string, step domain.Step, now time.Time, lease time.Duration) (bool, error) {
	c, ok := spannerStepColumns[step]
	if !ok {
		return false, fmt.Errorf("%w: unknown step %q", domain.ErrPersistence, step)
	}
	return r.update(ctx, "claim "+step.String(), spanner.Statement{
		SQL: fmt.Sprintf(`UPDATE Orders SET %[3]s = @leaseUntil, UpdatedAt = @now
		      WHERE IntentID = @intentID AND PaymentStatus = 'paid'
		      AND %[1]s = FALSE AND %[2]s = FALSE
		      AND (%[3]s IS NULL OR %[3]s <= @now)`, c.done, c.abandoned, c.lease),
		Params: map[string]interface{}{
			"intentID":   intentID,
			"now":        now.UTC(),
			"leaseUntil": domain.LeaseExpiry(now, lease),
		},
	})
}

func (r *SpannerRepository) CompleteInvoice(ctx context.Context, intentID, invoiceURL string, at time.Time) (bool, error) {
	return r.update(ctx, "complete invoice", spanner.Statement{
		SQL: `UPDATE Orders SET InvoiceURL = @url, InvoiceGenerated = TRUE, InvoiceLeaseUntil = NULL, UpdatedAt = @at
		      WHERE IntentID = @intentID AND PaymentStatus = 'paid' AND InvoiceGenerated = FALSE`,
		Params: map[string]interface{}{"intentID": intentID, "url": invoiceURL, "at": at.UTC()},
	})
}

func (r *SpannerRepository) CompleteNotification(ctx context.Context, intentID string, at time.Time) (bool, error) {
	return r.update(ctx, "complete notification", spanner.Statement{
		SQL: `UPDATE Orders SET EmailSent = TRUE, EmailLeaseUntil = NULL, Status = 'fulfilled', UpdatedAt = @at
		      WHERE IntentID = @intentID AND PaymentStatus = 'paid' AND EmailSent = FALSE`,
		Params: map[string]interface{}{"intentID": intentID, "at": at.UTC()},
	})
}

func (r *SpannerRepository) ReleaseStep(ctx context.Context, intentID string, step domain.Step, leaseUntil, at time.Time, maxAttempts int) (bool, error) {
	c, ok := spannerStepColumns[step]
	if !ok {
		return false, fmt.Errorf("%w: unknown step %q", domain.ErrPersistence, step)
	}
	return r.update(ctx, "release "+step.String(), spanner.Statement{
		SQL: fmt.Sprintf(`UPDATE Orders SET %[4]s = NULL, %[2]s = %[2]s + 1,
		      %[3]s = (%[3]s OR (@max > 0 AND %[2]s + 1 >= @max)), UpdatedAt = @at
		      WHERE IntentID = @intentID AND %[1]s = FALSE AND %[4]s = @leaseUntil`, c.done, c.attempts, c.abandoned, c.lease),
		Params: map[string]interface{}{
			"intentID":   intentID,
			"max":        int64(maxAttempts),
			"at":         at.UTC(),
			"leaseUntil": leaseUntil.UTC(),
		},
	})
}

// update runs a guarded DML statement and reports whether it matched a row.
// It uses an existing transaction if available, otherwise creates a new one.
func (r *SpannerRepository) update(ctx context.Context, op string, stmt spanner.Statement) (bool, error) {
	if txn, ok := platformspanner.ReadWriteTxFromContext(ctx); ok {
		n, err := txn.Update(ctx, stmt)
		if err != nil {
			return false, fmt.Errorf("%w: %s: %w", domain.ErrPersistence, op, err)
		}
		return n == 1, nil
	}

	var n int64
	_, err := r.client.ReadWriteTransaction(ctx, func(ctx context.Context, txn *spanner.ReadWriteTransaction) error {
		var err error
		n, err = txn.Update(ctx, stmt)
		return err
	})
	if err != nil {
		return false, fmt.Errorf("%w: %s: %w", domain.ErrPersistence, op, err)
	}
	return n == 1, nil
}

// Compile-time interface check.
var _ domain.OrderRepository = (*SpannerRepository)(nil)
