package payment

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/m3rciful/callmylawyer/core/logger"
	"github.com/m3rciful/callmylawyer/internal/orders"
)

// Gateway response bodies.
const (
	successPrefix = "OK"
	FailureToken  = "ERROR"
)

// SuccessToken is the body acknowledging a notification for ref.
func SuccessToken(ref string) string { return successPrefix + ref }

// Outcome classifies a reconciled notification.
type Outcome string

const (
	OutcomePaid     Outcome = "paid"
	OutcomeReplay   Outcome = "replay"
	OutcomeNotFound Outcome = "not_found"
	OutcomeRejected Outcome = "rejected"
	OutcomeFailed   Outcome = "fail"
)

// ErrOrderNotFound is returned by Status for unknown or foreign references.
var ErrOrderNotFound = errors.New("payment: order not found")

// Store is the part of the ledger reconciliation needs.
type Store interface {
	FindByPaymentReference(ref string) (orders.Order, bool)
	MarkPaid(ctx context.Context, ref string) (bool, error)
}

// Notifier is told about orders that have just been paid.
type Notifier interface {
	Deliver(ctx context.Context, o orders.Order) error
	PaymentReceived(ctx context.Context, o orders.Order) error
}

// Metrics counts reconciliation outcomes.
type Metrics interface {
	Reconciled(outcome string)
}

// Result is what the HTTP layer needs to answer the gateway.
type Result struct {
	Outcome  Outcome
	Order    orders.Order
	Response string
}

// Reconciler verifies result notifications and settles orders.
type Reconciler struct {
	store    Store
	notifier Notifier
	metrics  Metrics
	secret2  string
}

// NewReconciler wires a reconciler. notifier and metrics may be nil.
func NewReconciler(store Store, notifier Notifier, metrics Metrics, secret2 string) *Reconciler {
	return &Reconciler{store: store, notifier: notifier, metrics: metrics, secret2: secret2}
}

// Reconcile authenticates n and, on the first valid notification for a
// pending order, marks it paid and triggers delivery. Replays and unknown
// references are acknowledged without side effects. The returned error is
// ErrInvalidSignature or a persistence failure; Result.Response is always set.
func (r *Reconciler) Reconcile(ctx context.Context, n Notification) (Result, error) {
	start := time.Now()
	attrs := []slog.Attr{
		slog.String("payment_ref", n.CorrelationID),
		slog.String("amount", n.Amount),
	}

	if err := VerifyNotification(n, r.secret2); err != nil {
		r.finish(ctx, slog.LevelWarn, OutcomeRejected, start, append(attrs, slog.String("err", err.Error()))...)
		return Result{Outcome: OutcomeRejected, Response: FailureToken}, err
	}

	ok := Result{Response: SuccessToken(n.CorrelationID)}
	current, found := r.store.FindByPaymentReference(n.CorrelationID)
	if !found {
		ok.Outcome = OutcomeNotFound
		r.finish(ctx, slog.LevelWarn, OutcomeNotFound, start, attrs...)
		return ok, nil
	}

	flipped, err := r.store.MarkPaid(ctx, n.CorrelationID)
	if err != nil {
		r.finish(ctx, slog.LevelError, OutcomeFailed, start, append(attrs, slog.String("err", err.Error()))...)
		return Result{Outcome: OutcomeFailed, Order: current, Response: FailureToken}, err
	}
	if !flipped {
		ok.Outcome = OutcomeReplay
		ok.Order = current
		r.finish(ctx, slog.LevelInfo, OutcomeReplay, start, append(attrs, slog.String("order_status", string(current.Status)))...)
		return ok, nil
	}

	paid, found := r.store.FindByPaymentReference(n.CorrelationID)
	if !found {
		// Evicted between the flip and the re-read; deliver from the pre-flip copy.
		paid = current
		paid.Status = orders.StatusPaid
	}
	ok.Outcome = OutcomePaid
	ok.Order = paid
	r.notify(ctx, paid)
	r.finish(ctx, slog.LevelInfo, OutcomePaid, start, append(attrs, slog.Int("order_id", paid.ID))...)
	return ok, nil
}

// Status reports the status of the user's order with the given reference.
// It never triggers delivery.
func (r *Reconciler) Status(userID int64, ref string) (orders.Order, error) {
	o, found := r.store.FindByPaymentReference(ref)
	if !found || o.UserID != userID {
		return orders.Order{}, ErrOrderNotFound
	}
	return o, nil
}

func (r *Reconciler) notify(ctx context.Context, o orders.Order) {
	if r.notifier == nil {
		return
	}
	if err := r.notifier.Deliver(ctx, o); err != nil {
		logger.Error(ctx, "payment", "delivery",
			slog.String("status", "fail"),
			slog.String("payment_ref", o.PaymentRef),
			slog.String("err", err.Error()),
		)
	}
	if err := r.notifier.PaymentReceived(ctx, o); err != nil {
		logger.Warn(ctx, "payment", "admin.notify",
			slog.String("status", "fail"),
			slog.String("payment_ref", o.PaymentRef),
			slog.String("err", err.Error()),
		)
	}
}

func (r *Reconciler) finish(ctx context.Context, level slog.Level, outcome Outcome, start time.Time, attrs ...slog.Attr) {
	if r.metrics != nil {
		r.metrics.Reconciled(string(outcome))
	}
	status := "ok"
	switch outcome {
	case OutcomeRejected, OutcomeFailed:
		status = "fail"
	}
	attrs = append([]slog.Attr{
		slog.String("status", status),
		slog.String("outcome", string(outcome)),
		slog.Duration("duration", logger.Took(start)),
	}, attrs...)
	logger.Event(ctx, "payment", level, "reconcile", attrs...)
}
