package orders

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// PostgresBackend stores the ledger in the orders table created by
// migrations/000001_create_orders.up.sql.
type PostgresBackend struct {
	db *sqlx.DB
}

// NewPostgresBackend wraps an open connection pool.
func NewPostgresBackend(db *sqlx.DB) *PostgresBackend {
	return &PostgresBackend{db: db}
}

type orderRow struct {
	PaymentRef   string       `db:"payment_ref"`
	Ordinal      int          `db:"ordinal"`
	UserID       int64        `db:"user_id"`
	ContactName  string       `db:"contact_name"`
	ContactPhone string       `db:"contact_phone"`
	ContactEmail string       `db:"contact_email"`
	ServiceID    string       `db:"service_id"`
	ServiceName  string       `db:"service_name"`
	PriceMinor   int64        `db:"price_minor"`
	AssetRef     string       `db:"asset_ref"`
	Status       string       `db:"status"`
	CreatedAt    time.Time    `db:"created_at"`
	PaidAt       sql.NullTime `db:"paid_at"`
}

const selectOrders = `
SELECT payment_ref, ordinal, user_id, contact_name, contact_phone, contact_email,
       service_id, service_name, price_minor, asset_ref, status, created_at, paid_at
FROM orders
ORDER BY ordinal`

const upsertOrder = `
INSERT INTO orders (
    payment_ref, ordinal, user_id, contact_name, contact_phone, contact_email,
    service_id, service_name, price_minor, asset_ref, status, created_at, paid_at
) VALUES (
    :payment_ref, :ordinal, :user_id, :contact_name, :contact_phone, :contact_email,
    :service_id, :service_name, :price_minor, :asset_ref, :status, :created_at, :paid_at
)
ON CONFLICT (payment_ref) DO UPDATE SET
    ordinal = EXCLUDED.ordinal,
    status  = EXCLUDED.status,
    paid_at = EXCLUDED.paid_at`

const deleteEvicted = `DELETE FROM orders WHERE payment_ref <> ALL($1)`

// Load reads every stored order.
func (b *PostgresBackend) Load(ctx context.Context) ([]Order, error) {
	var rows []orderRow
	if err := b.db.SelectContext(ctx, &rows, selectOrders); err != nil {
		return nil, fmt.Errorf("select orders: %w", err)
	}
	list := make([]Order, 0, len(rows))
	for _, r := range rows {
		list = append(list, r.order())
	}
	return list, nil
}

// Save upserts the surviving orders and deletes evicted ones in one transaction.
func (b *PostgresBackend) Save(ctx context.Context, list []Order) (err error) {
	tx, err := b.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	refs := make([]string, 0, len(list))
	for _, o := range list {
		if _, err = tx.NamedExecContext(ctx, upsertOrder, rowFrom(o)); err != nil {
			return fmt.Errorf("upsert %s: %w", o.PaymentRef, err)
		}
		refs = append(refs, o.PaymentRef)
	}
	if _, err = tx.ExecContext(ctx, deleteEvicted, pq.Array(refs)); err != nil {
		return fmt.Errorf("delete evicted: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func rowFrom(o Order) orderRow {
	r := orderRow{
		PaymentRef:   o.PaymentRef,
		Ordinal:      o.ID,
		UserID:       o.UserID,
		ContactName:  o.Contact.Name,
		ContactPhone: o.Contact.Phone,
		ContactEmail: o.Contact.Email,
		ServiceID:    o.ServiceID,
		ServiceName:  o.ServiceName,
		PriceMinor:   o.PriceMinor,
		AssetRef:     o.AssetRef,
		Status:       string(o.Status),
		CreatedAt:    o.CreatedAt,
	}
	if o.PaidAt != nil {
		r.PaidAt = sql.NullTime{Time: *o.PaidAt, Valid: true}
	}
	return r
}

func (r orderRow) order() Order {
	o := Order{
		ID:     r.Ordinal,
		UserID: r.UserID,
		Contact: Contact{
			Name:  r.ContactName,
			Phone: r.ContactPhone,
			Email: r.ContactEmail,
		},
		ServiceID:   r.ServiceID,
		ServiceName: r.ServiceName,
		PriceMinor:  r.PriceMinor,
		AssetRef:    r.AssetRef,
		PaymentRef:  r.PaymentRef,
		Status:      Status(r.Status),
		CreatedAt:   r.CreatedAt.UTC(),
	}
	if r.PaidAt.Valid {
		t := r.PaidAt.Time.UTC()
		o.PaidAt = &t
	}
	return o
}
