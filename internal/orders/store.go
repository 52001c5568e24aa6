package orders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/m3rciful/callmylawyer/core/logger"
)

// DefaultRetain is the number of most recent orders kept when Options.Retain is zero.
const DefaultRetain = 10

const maxRefAttempts = 1000

// Backend persists the full ledger snapshot.
// Save must replace the stored snapshot atomically: either every row of list
// is durable when it returns nil, or the previous snapshot is still intact.
type Backend interface {
	Load(ctx context.Context) ([]Order, error)
	Save(ctx context.Context, list []Order) error
}

// Options tune the ledger behaviour.
type Options struct {
	// Retain caps the number of stored orders; <= 0 means DefaultRetain.
	Retain int
	// Now overrides the clock, used by tests.
	Now func() time.Time
	// NewRef generates a payment reference candidate for the given instant.
	// Defaults to the Unix millisecond timestamp, which gateways accept as
	// an integer invoice id.
	NewRef func(at time.Time) string
}

// Store is the order ledger. Writes are serialized by a mutex and published
// as a fresh immutable slice; readers load the published slice without
// locking and never observe a half-applied write.
type Store struct {
	writeMu sync.Mutex
	snap    atomic.Pointer[[]Order]

	backend Backend
	retain  int
	now     func() time.Time
	newRef  func(time.Time) string
}

// Open loads the persisted ledger. A failure here is fatal for the process.
func Open(ctx context.Context, backend Backend, opts Options) (*Store, error) {
	if backend == nil {
		return nil, errors.New("orders: nil backend")
	}
	s := &Store{
		backend: backend,
		retain:  opts.Retain,
		now:     opts.Now,
		newRef:  opts.NewRef,
	}
	if s.retain <= 0 {
		s.retain = DefaultRetain
	}
	if s.now == nil {
		s.now = func() time.Time { return time.Now().UTC() }
	}
	if s.newRef == nil {
		s.newRef = millisRef
	}

	start := time.Now()
	list, err := backend.Load(ctx)
	if err != nil {
		return nil, &PersistenceError{Op: "load", Err: err}
	}
	sort.SliceStable(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	s.publish(cloneAll(list))

	logger.Info(ctx, "orders", "ledger.open",
		slog.String("status", "ok"),
		slog.Int("count", len(list)),
		slog.Int("retain", s.retain),
		slog.Duration("duration", logger.Took(start)),
	)
	return s, nil
}

// Append stores a new order and returns it as persisted, including its
// display ordinal and payment reference. The retention cap is enforced here
// and only here. When the backend write fails a *PersistenceError is returned
// and the order does not exist.
func (s *Store) Append(ctx context.Context, o Order) (Order, error) {
	if err := checkNew(o); err != nil {
		return Order{}, err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	current := s.current()
	now := s.now()
	if o.CreatedAt.IsZero() {
		o.CreatedAt = now
	}
	switch o.Status {
	case StatusFree:
		if o.PaidAt == nil {
			at := o.CreatedAt
			o.PaidAt = &at
		}
	case StatusPending:
		o.PaidAt = nil
	}

	if o.PaymentRef == "" {
		ref, err := s.uniqueRef(current, now)
		if err != nil {
			return Order{}, err
		}
		o.PaymentRef = ref
	} else if indexOf(current, o.PaymentRef) >= 0 {
		return Order{}, fmt.Errorf("%w: duplicate payment reference %q", ErrInvalidOrder, o.PaymentRef)
	}

	next := make([]Order, 0, len(current)+1)
	next = append(next, cloneAll(current)...)
	next = append(next, o.clone())
	next, evicted := retainNewest(next, s.retain)
	at := indexOf(next, o.PaymentRef)
	if at < 0 {
		return Order{}, fmt.Errorf("%w: created %s is older than every retained order",
			ErrInvalidOrder, o.CreatedAt.Format(time.RFC3339))
	}

	if err := s.backend.Save(ctx, next); err != nil {
		logger.Error(ctx, "orders", "order.append",
			slog.String("status", "fail"),
			slog.String("payment_ref", o.PaymentRef),
			slog.String("err", err.Error()),
		)
		return Order{}, &PersistenceError{Op: "append", Err: err}
	}
	s.publish(next)

	stored := next[at]
	logger.Info(ctx, "orders", "order.append",
		slog.String("status", "ok"),
		slog.Int("order_id", stored.ID),
		slog.String("payment_ref", stored.PaymentRef),
		slog.String("order_status", string(stored.Status)),
		slog.String("service_id", stored.ServiceID),
		slog.Int("evicted", evicted),
	)
	return stored.clone(), nil
}

// MarkPaid flips a pending order to paid. It returns false without error
// when the reference is unknown or the order is not pending, so replayed
// gateway callbacks are harmless.
func (s *Store) MarkPaid(ctx context.Context, ref string) (bool, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	current := s.current()
	idx := indexOf(current, ref)
	if idx < 0 || current[idx].Status != StatusPending {
		return false, nil
	}

	next := cloneAll(current)
	paidAt := s.now()
	next[idx].Status = StatusPaid
	next[idx].PaidAt = &paidAt

	if err := s.backend.Save(ctx, next); err != nil {
		logger.Error(ctx, "orders", "order.mark_paid",
			slog.String("status", "fail"),
			slog.String("payment_ref", ref),
			slog.String("err", err.Error()),
		)
		return false, &PersistenceError{Op: "mark_paid", Err: err}
	}
	s.publish(next)

	logger.Info(ctx, "orders", "order.mark_paid",
		slog.String("status", "ok"),
		slog.Int("order_id", next[idx].ID),
		slog.String("payment_ref", ref),
	)
	return true, nil
}

// FindByPaymentReference returns the order correlated with ref.
func (s *Store) FindByPaymentReference(ref string) (Order, bool) {
	if ref == "" {
		return Order{}, false
	}
	current := s.current()
	idx := indexOf(current, ref)
	if idx < 0 {
		return Order{}, false
	}
	return current[idx].clone(), true
}

// FindLatestByUser returns the most recently created order of userID.
func (s *Store) FindLatestByUser(userID int64) (Order, bool) {
	var (
		latest Order
		found  bool
	)
	for _, o := range s.current() {
		if o.UserID != userID {
			continue
		}
		if !found || !o.CreatedAt.Before(latest.CreatedAt) {
			latest, found = o, true
		}
	}
	if !found {
		return Order{}, false
	}
	return latest.clone(), true
}

// List returns every stored order ordered by display ordinal.
func (s *Store) List() []Order {
	out := cloneAll(s.current())
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Len returns the number of stored orders.
func (s *Store) Len() int {
	return len(s.current())
}

func (s *Store) current() []Order {
	if p := s.snap.Load(); p != nil {
		return *p
	}
	return nil
}

func (s *Store) publish(list []Order) {
	s.snap.Store(&list)
}

func (s *Store) uniqueRef(current []Order, now time.Time) (string, error) {
	for i := 0; i < maxRefAttempts; i++ {
		ref := s.newRef(now.Add(time.Duration(i) * time.Millisecond))
		if ref != "" && indexOf(current, ref) < 0 {
			return ref, nil
		}
	}
	return "", fmt.Errorf("%w: could not allocate a unique payment reference", ErrInvalidOrder)
}

// retainNewest keeps the newest limit orders by CreatedAt and renumbers the
// survivors 1..K in creation order. It returns the number of evicted orders.
func retainNewest(list []Order, limit int) ([]Order, int) {
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].CreatedAt.Before(list[j].CreatedAt)
	})
	evicted := 0
	if len(list) > limit {
		evicted = len(list) - limit
		list = list[evicted:]
	}
	for i := range list {
		list[i].ID = i + 1
	}
	return list, evicted
}

func indexOf(list []Order, ref string) int {
	for i := range list {
		if list[i].PaymentRef == ref {
			return i
		}
	}
	return -1
}

func checkNew(o Order) error {
	switch {
	case o.UserID == 0:
		return fmt.Errorf("%w: missing user id", ErrInvalidOrder)
	case o.ServiceID == "":
		return fmt.Errorf("%w: missing service id", ErrInvalidOrder)
	case o.Status != StatusPending && o.Status != StatusFree:
		return fmt.Errorf("%w: orders are created pending or free, got %q", ErrInvalidOrder, o.Status)
	case o.Status == StatusFree && o.PriceMinor != 0:
		return fmt.Errorf("%w: free order with price %d", ErrInvalidOrder, o.PriceMinor)
	}
	return nil
}

func millisRef(at time.Time) string {
	return strconv.FormatInt(at.UnixMilli(), 10)
}
