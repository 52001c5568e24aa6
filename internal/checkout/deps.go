package checkout

import (
	"context"

	"github.com/m3rciful/callmylawyer/internal/orders"
)

// OrderStore is the part of the ledger the machine writes to.
type OrderStore interface {
	Append(ctx context.Context, o orders.Order) (orders.Order, error)
	FindLatestByUser(userID int64) (orders.Order, bool)
}

// LinkBuilder produces the signed payment page URL for a pending order.
type LinkBuilder interface {
	PaymentURL(o orders.Order) (string, error)
}

// Notifier delivers assets and informs the admin about new orders.
type Notifier interface {
	Deliver(ctx context.Context, o orders.Order) error
	OrderPlaced(ctx context.Context, o orders.Order, paymentURL string) error
}

// Metrics counts placed orders by status.
type Metrics interface {
	OrderPlaced(status string)
}
