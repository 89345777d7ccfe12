package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/rai/storefront-payments/modules/orders/domain"
	"github.com/rai/storefront-payments/modules/shared/types"
)

// SQLiteSchema creates the order tables. Times are stored as unix
// nanoseconds; a zero lease means the step is not claimed.
const SQLiteSchema = `
CREATE TABLE IF NOT EXISTS orders (
	order_id            TEXT PRIMARY KEY,
	intent_id           TEXT NOT NULL UNIQUE,
	total_amount        INTEGER NOT NULL,
	currency            TEXT NOT NULL,
	customer            TEXT NOT NULL,
	status              TEXT NOT NULL,
	payment_status      TEXT NOT NULL,
	gateway_payment_id  TEXT NOT NULL DEFAULT '',
	invoice_url         TEXT NOT NULL DEFAULT '',
	invoice_generated   INTEGER NOT NULL DEFAULT 0,
	invoice_attempts    INTEGER NOT NULL DEFAULT 0,
	invoice_abandoned   INTEGER NOT NULL DEFAULT 0,
	invoice_lease_until INTEGER NOT NULL DEFAULT 0,
	email_sent          INTEGER NOT NULL DEFAULT 0,
	email_attempts      INTEGER NOT NULL DEFAULT 0,
	email_abandoned     INTEGER NOT NULL DEFAULT 0,
	email_lease_until   INTEGER NOT NULL DEFAULT 0,
	created_at          INTEGER NOT NULL,
	updated_at          INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS order_items (
	order_id     TEXT NOT NULL REFERENCES orders(order_id) ON DELETE CASCADE,
	item_index   INTEGER NOT NULL,
	product_id   TEXT NOT NULL,
	product_name TEXT NOT NULL,
	unit_price   TEXT NOT NULL,
	quantity     INTEGER NOT NULL,
	PRIMARY KEY (order_id, item_index)
);`

type stepColumns struct {
	done, attempts, abandoned, lease string
}

var sqliteStepColumns = map[domain.Step]stepColumns{
	domain.StepInvoice:      {"invoice_generated", "invoice_attempts", "invoice_abandoned", "invoice_lease_until"},
	domain.StepNotification: {"email_sent", "email_attempts", "email_abandoned", "email_lease_until"},
}

const sqliteOrderColumns = `order_id, intent_id, total_amount, currency, customer, status, payment_status,
	gateway_payment_id, invoice_url,
	invoice_generated, invoice_attempts, invoice_abandoned, invoice_lease_until,
	email_sent, email_attempts, email_abandoned, email_lease_until,
	created_at, updated_at`

// SQLiteRepository implements OrderRepository on SQLite. Transitions are
// single UPDATE statements whose WHERE clause is the transition guard.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Create(ctx context.Context, order *domain.Order) error {
	customer, err := json.Marshal(order.Customer())
	if err != nil {
		return fmt.Errorf("%w: encode customer: %w", domain.ErrPersistence, err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin: %w", domain.ErrPersistence, err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `INSERT INTO orders (order_id, intent_id, total_amount, currency, customer,
		status, payment_status, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		order.ID().String(),
		order.IntentID(),
		order.Total().Amount(),
		order.Total().Currency(),
		string(customer),
		order.Status().String(),
		order.PaymentStatus().String(),
		order.CreatedAt().UnixNano(),
		order.UpdatedAt().UnixNano(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateIntent
		}
		return fmt.Errorf("%w: insert order: %w", domain.ErrPersistence, err)
	}

	for i, item := range order.Items() {
		_, err := tx.ExecContext(ctx, `INSERT INTO order_items (order_id, item_index, product_id, product_name,
			unit_price, quantity) VALUES (?, ?, ?, ?, ?, ?)`,
			order.ID().String(), i, item.ProductID, item.ProductName, item.UnitPrice.String(), item.Quantity)
		if err != nil {
			return fmt.Errorf("%w: insert item %d: %w", domain.ErrPersistence, i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %w", domain.ErrPersistence, err)
	}
	return nil
}

func (r *SQLiteRepository) FindByID(ctx context.Context, id types.OrderID) (*domain.Order, error) {
	return r.findOne(ctx, `SELECT `+sqliteOrderColumns+` FROM orders WHERE order_id = ?`, id.String())
}

func (r *SQLiteRepository) FindByIntentID(ctx context.Context, intentID string) (*domain.Order, error) {
	return r.findOne(ctx, `SELECT `+sqliteOrderColumns+` FROM orders WHERE intent_id = ?`, intentID)
}

func (r *SQLiteRepository) findOne(ctx context.Context, query string, arg string) (*domain.Order, error) {
	var (
		s                     domain.Snapshot
		orderID, currency     string
		customer, status, pay string
		amount                int64
		invLease, mailLease   int64
		createdAt, updatedAt  int64
	)
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&orderID, &s.IntentID, &amount, &currency, &customer, &status, &pay,
		&s.GatewayPaymentID, &s.InvoiceURL,
		&s.Invoice.Done, &s.Invoice.Attempts, &s.Invoice.Abandoned, &invLease,
		&s.Notification.Done, &s.Notification.Attempts, &s.Notification.Abandoned, &mailLease,
		&createdAt, &updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read order: %w", domain.ErrPersistence, err)
	}

	if s.ID, err = types.ParseOrderID(orderID); err != nil {
		return nil, fmt.Errorf("%w: parse order id: %w", domain.ErrPersistence, err)
	}
	if s.Total, err = types.NewMoney(amount, currency); err != nil {
		return nil, fmt.Errorf("%w: decode total: %w", domain.ErrPersistence, err)
	}
	if err := json.Unmarshal([]byte(customer), &s.Customer); err != nil {
		return nil, fmt.Errorf("%w: decode customer: %w", domain.ErrPersistence, err)
	}
	s.Status = domain.Status(status)
	s.PaymentStatus = domain.PaymentStatus(pay)
	s.Invoice.LeaseUntil = fromNanos(invLease)
	s.Notification.LeaseUntil = fromNanos(mailLease)
	s.CreatedAt = fromNanos(createdAt)
	s.UpdatedAt = fromNanos(updatedAt)

	if s.Items, err = r.readItems(ctx, orderID); err != nil {
		return nil, err
	}
	return domain.Reconstitute(s), nil
}

func (r *SQLiteRepository) readItems(ctx context.Context, orderID string) ([]domain.LineItem, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT product_id, product_name, unit_price, quantity
		FROM order_items WHERE order_id = ? ORDER BY item_index`, orderID)
	if err != nil {
		return nil, fmt.Errorf("%w: read items: %w", domain.ErrPersistence, err)
	}
	defer rows.Close()

	var items []domain.LineItem
	for rows.Next() {
		var item domain.LineItem
		var price string
		if err := rows.Scan(&item.ProductID, &item.ProductName, &price, &item.Quantity); err != nil {
			return nil, fmt.Errorf("%w: scan item: %w", domain.ErrPersistence, err)
		}
		if item.UnitPrice, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("%w: decode unit price: %w", domain.ErrPersistence, err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: read items: %w", domain.ErrPersistence, err)
	}
	return items, nil
}

func (r *SQLiteRepository) MarkPaid(ctx context.Context, intentID, paymentID string, at time.Time) (bool, error) {
	return r.exec(ctx, "mark paid", `UPDATE orders
		SET payment_status = 'paid', status = 'processing', gateway_payment_id = ?, updated_at = ?
		WHERE intent_id = ? AND payment_status != 'paid'`,
		paymentID, at.UnixNano(), intentID)
}

func (r *SQLiteRepository) MarkFailed(ctx context.Context, intentID string, at time.Time) (bool, error) {
	return r.exec(ctx, "mark failed", `UPDATE orders
		SET payment_status = 'failed', status = 'failed', updated_at = ?
		WHERE intent_id = ? AND payment_status = 'pending'`,
		at.UnixNano(), intentID)
}

func (r *SQLiteRepository) ClaimStep(ctx context.Context, intentID string, step domain.Step, now time.Time, lease time.Duration) (bool, error) {
	c, ok := sqliteStepColumns[step]
	if !ok {
		return false, fmt.Errorf("%w: unknown step %q", domain.ErrPersistence, step)
	}
	query := fmt.Sprintf(`UPDATE orders SET %[3]s = ?, updated_at = ?
		WHERE intent_id = ? AND payment_status = 'paid'
		AND %[1]s = 0 AND %[2]s = 0 AND %[3]s <= ?`, c.done, c.abandoned, c.lease)
	return r.exec(ctx, "claim "+step.String(), query,
		domain.LeaseExpiry(now, lease).UnixNano(), now.UnixNano(), intentID, now.UnixNano())
}

func (r *SQLiteRepository) CompleteInvoice(ctx context.Context, intentID, invoiceURL string, at time.Time) (bool, error) {
	return r.exec(ctx, "complete invoice", `UPDATE orders
		SET invoice_url = ?, invoice_generated = 1, invoice_lease_until = 0, updated_at = ?
		WHERE intent_id = ? AND payment_status = 'paid' AND invoice_generated = 0`,
		invoiceURL, at.UnixNano(), intentID)
}

func (r *SQLiteRepository) CompleteNotification(ctx context.Context, intentID string, at time.Time) (bool, error) {
	return r.exec(ctx, "complete notification", `UPDATE orders
		SET email_sent = 1, email_lease_until = 0, status = 'fulfilled', updated_at = ?
		WHERE intent_id = ? AND payment_status = 'paid' AND email_sent = 0`,
		at.UnixNano(), intentID)
}

func (r *SQLiteRepository) ReleaseStep(ctx context.Context, intentID string, step domain.Step, leaseUntil, at time.Time, maxAttempts int) (bool, error) {
	c, ok := sqliteStepColumns[step]
	if !ok {
		return false, fmt.Errorf("%w: unknown step %q", domain.ErrPersistence, step)
	}
	query := fmt.Sprintf(`UPDATE orders
		SET %[4]s = 0, %[2]s = %[2]s + 1,
		    %[3]s = CASE WHEN ? > 0 AND %[2]s + 1 >= ? THEN 1 ELSE %[3]s END,
		    updated_at = ?
		WHERE intent_id = ? AND %[1]s = 0 AND %[4]s = ?`, c.done, c.attempts, c.abandoned, c.lease)
	return r.exec(ctx, "release "+step.String(), query,
		maxAttempts, maxAttempts, at.UnixNano(), intentID, leaseUntil.UnixNano())
}

func (r *SQLiteRepository) exec(ctx context.Context, op, query string, args ...any) (bool, error) {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("%w: %s: %w", domain.ErrPersistence, op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%w: %s: %w", domain.ErrPersistence, op, err)
	}
	return n == 1, nil
}

func isUniqueViolation(err error) bool {
	var se sqlite3.Error
	if !errors.As(err, &se) {
		return false
	}
	return se.ExtendedCode == sqlite3.ErrConstraintUnique || se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
}

func fromNanos(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}

// Compile-time interface check.
var _ domain.OrderRepository = (*SQLiteRepository)(nil)
