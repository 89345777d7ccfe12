package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/rai/storefront-payments/modules/catalog/domain"
)

// SQLiteSchema creates the catalog table used for local development.
const SQLiteSchema = `
CREATE TABLE IF NOT EXISTS products (
	product_id TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	price      TEXT NOT NULL,
	active     INTEGER NOT NULL DEFAULT 1
);`

// SQLiteRepository reads products from a SQLite database.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) FindByIDs(ctx context.Context, ids []string) (map[string]domain.Product, error) {
	found := make(map[string]domain.Product, len(ids))
	if len(ids) == 0 {
		return found, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT product_id, name, price FROM products WHERE active = 1 AND product_id IN (`+placeholders+`)`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Price); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		found[p.ID] = p
	}
	return found, rows.Err()
}

// Upsert writes a product; used to seed local databases.
func (r *SQLiteRepository) Upsert(ctx context.Context, p domain.Product) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO products (product_id, name, price) VALUES (?, ?, ?)
		 ON CONFLICT(product_id) DO UPDATE SET name = excluded.name, price = excluded.price`,
		p.ID, p.Name, p.Price,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert product %s: %w", p.ID, err)
	}
	return nil
}
