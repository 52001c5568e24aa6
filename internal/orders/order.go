// Package orders implements the capped order ledger: a single-writer,
// multi-reader store whose persisted snapshot is replaced atomically on
// every write.
package orders

import "time"

// Status is the payment state of an order.
type Status string

const (
	// StatusPending marks an order waiting for gateway confirmation.
	StatusPending Status = "pending"
	// StatusPaid marks an order confirmed by the gateway.
	StatusPaid Status = "paid"
	// StatusFree marks an order for a zero-price service, delivered at creation.
	StatusFree Status = "free"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusPaid, StatusFree:
		return true
	}
	return false
}

// Contact is the buyer data copied from the conversation draft at creation time.
type Contact struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email"`
}

// Order is a persisted purchase record.
//
// ID is a display ordinal only: the ledger renumbers surviving orders to a
// dense 1..K sequence after eviction. PaymentRef is the stable identity and
// the only key used for reconciliation.
type Order struct {
	ID          int        `json:"id"`
	UserID      int64      `json:"user_id"`
	Contact     Contact    `json:"contact"`
	ServiceID   string     `json:"service_id"`
	ServiceName string     `json:"service_name"`
	PriceMinor  int64      `json:"price_minor"`
	AssetRef    string     `json:"asset_ref"`
	PaymentRef  string     `json:"payment_ref"`
	Status      Status     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	PaidAt      *time.Time `json:"paid_at,omitempty"`
}

// Free reports whether the order was created for a zero-price service.
func (o Order) Free() bool {
	return o.Status == StatusFree
}

// Settled reports whether the buyer is entitled to the asset.
func (o Order) Settled() bool {
	return o.Status == StatusPaid || o.Status == StatusFree
}

func (o Order) clone() Order {
	if o.PaidAt != nil {
		t := *o.PaidAt
		o.PaidAt = &t
	}
	return o
}

func cloneAll(list []Order) []Order {
	out := make([]Order, len(list))
	for i, o := range list {
		out[i] = o.clone()
	}
	return out
}
