package flowcontext

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresOrderStore reads orders, line items and warranty terms from PostgreSQL.
type PostgresOrderStore struct {
	db *pgxpool.Pool
}

// NewPostgresOrderStore creates an order store backed by the given pool.
func NewPostgresOrderStore(pool *pgxpool.Pool) *PostgresOrderStore {
	return &PostgresOrderStore{db: pool}
}

// InitSchema creates the thread and order tables if they do not exist.
func (r *PostgresOrderStore) InitSchema(ctx context.Context) error {
	_, err := r.db.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS orders (
			id                 TEXT PRIMARY KEY,
			order_number       TEXT NOT NULL,
			customer_name      TEXT NOT NULL DEFAULT '',
			customer_email     TEXT NOT NULL DEFAULT '',
			created_at         TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			total_price        DOUBLE PRECISION NOT NULL DEFAULT 0,
			currency           TEXT NOT NULL DEFAULT 'USD',
			fulfillment_status TEXT NOT NULL DEFAULT '',
			tracking_number    TEXT NOT NULL DEFAULT ''
		);
		CREATE TABLE IF NOT EXISTS order_line_items (
			id             TEXT PRIMARY KEY,
			order_id       TEXT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
			product_name   TEXT NOT NULL,
			variant_title  TEXT NOT NULL DEFAULT '',
			quantity       INTEGER NOT NULL DEFAULT 1,
			price          DOUBLE PRECISION NOT NULL DEFAULT 0,
			warranty_days  INTEGER NOT NULL DEFAULT 0,
			covers_damaged BOOLEAN NOT NULL DEFAULT FALSE,
			covers_lost    BOOLEAN NOT NULL DEFAULT FALSE,
			covers_late    BOOLEAN NOT NULL DEFAULT FALSE
		);
		CREATE INDEX IF NOT EXISTS order_line_items_order_id_idx ON order_line_items (order_id);
		CREATE TABLE IF NOT EXISTS support_threads (
			id         TEXT PRIMARY KEY,
			order_id   TEXT REFERENCES orders(id),
			tag        TEXT NOT NULL DEFAULT '',
			title      TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("init order schema: %w", err)
	}
	return nil
}

// OrderIDForThread returns the order linked to a thread, or "" when there is none.
func (r *PostgresOrderStore) OrderIDForThread(ctx context.Context, threadID string) (string, error) {
	var orderID *string
	err := r.db.QueryRow(ctx, `SELECT order_id FROM support_threads WHERE id = $1`, threadID).Scan(&orderID)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get thread order: %w", err)
	}
	if orderID == nil {
		return "", nil
	}
	return *orderID, nil
}

// GetOrder retrieves an order header. Returns nil, nil if not found.
func (r *PostgresOrderStore) GetOrder(ctx context.Context, orderID string) (*Order, error) {
	var o Order
	err := r.db.QueryRow(ctx, `
		SELECT id, order_number, customer_name, customer_email, created_at,
		       total_price, currency, fulfillment_status, tracking_number
		FROM orders WHERE id = $1
	`, orderID).Scan(&o.ID, &o.OrderNumber, &o.CustomerName, &o.CustomerEmail, &o.CreatedAt,
		&o.TotalPrice, &o.Currency, &o.FulfillmentStatus, &o.TrackingNumber)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	return &o, nil
}

// GetLineItems lists an order's line items with their warranty terms.
func (r *PostgresOrderStore) GetLineItems(ctx context.Context, orderID string) ([]LineItem, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, product_name, variant_title, quantity, price,
		       warranty_days, covers_damaged, covers_lost, covers_late
		FROM order_line_items WHERE order_id = $1 ORDER BY id
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("query line items: %w", err)
	}
	defer rows.Close()

	var items []LineItem
	for rows.Next() {
		var li LineItem
		if err := rows.Scan(&li.ID, &li.ProductName, &li.VariantTitle, &li.Quantity, &li.Price,
			&li.Warranty.WarrantyDays, &li.Warranty.CoversDamagedItems, &li.Warranty.CoversLostItems,
			&li.Warranty.CoversLateShipment); err != nil {
			return nil, fmt.Errorf("scan line item: %w", err)
		}
		li.Warranty.LineItemID = li.ID
		items = append(items, li)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate line items: %w", err)
	}
	return items, nil
}

// LinkThread records which order a support thread is about, creating the thread row if needed.
func (r *PostgresOrderStore) LinkThread(ctx context.Context, threadID, orderID string) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO support_threads (id, order_id) VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET order_id = EXCLUDED.order_id
	`, threadID, orderID)
	if err != nil {
		return fmt.Errorf("link thread order: %w", err)
	}
	return nil
}
