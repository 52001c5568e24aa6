package payment

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/callmylawyer/internal/orders"
)

const testSecret2 = "secret2"

type recordingNotifier struct {
	mu        sync.Mutex
	delivered []orders.Order
	admin     []orders.Order
	failWith  error
}

func (n *recordingNotifier) Deliver(_ context.Context, o orders.Order) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.delivered = append(n.delivered, o)
	return n.failWith
}

func (n *recordingNotifier) PaymentReceived(_ context.Context, o orders.Order) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.admin = append(n.admin, o)
	return nil
}

type countingMetrics struct {
	mu   sync.Mutex
	seen map[string]int
}

func (m *countingMetrics) Reconciled(outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.seen == nil {
		m.seen = make(map[string]int)
	}
	m.seen[outcome]++
}

func newLedger(t *testing.T) *orders.Store {
	t.Helper()
	s, err := orders.Open(context.Background(), orders.NewFileBackend(filepath.Join(t.TempDir(), "orders.json")), orders.Options{})
	require.NoError(t, err)
	return s
}

func appendPending(t *testing.T, s *orders.Store) orders.Order {
	t.Helper()
	o, err := s.Append(context.Background(), orders.Order{
		UserID:      77,
		Contact:     orders.Contact{Name: "Ivan", Phone: "+7900", Email: "a@b.com"},
		ServiceID:   "1",
		ServiceName: "Consultation",
		PriceMinor:  500000,
		AssetRef:    "https://example.com/asset",
		Status:      orders.StatusPending,
	})
	require.NoError(t, err)
	return o
}

func signed(ref string) Notification {
	amount := FormatAmount(500000)
	return Notification{Amount: amount, CorrelationID: ref, Signature: NotificationSignature(amount, ref, testSecret2)}
}

func TestReconcilePaysOnceAndAcknowledgesReplay(t *testing.T) {
	ledger := newLedger(t)
	order := appendPending(t, ledger)
	notifier := &recordingNotifier{}
	metrics := &countingMetrics{}
	r := NewReconciler(ledger, notifier, metrics, testSecret2)

	res, err := r.Reconcile(context.Background(), signed(order.PaymentRef))
	require.NoError(t, err)
	assert.Equal(t, OutcomePaid, res.Outcome)
	assert.Equal(t, "OK"+order.PaymentRef, res.Response)

	stored, ok := ledger.FindByPaymentReference(order.PaymentRef)
	require.True(t, ok)
	assert.Equal(t, orders.StatusPaid, stored.Status)
	require.NotNil(t, stored.PaidAt)
	require.Len(t, notifier.delivered, 1)
	assert.Equal(t, order.PaymentRef, notifier.delivered[0].PaymentRef)
	assert.Len(t, notifier.admin, 1)

	res, err = r.Reconcile(context.Background(), signed(order.PaymentRef))
	require.NoError(t, err)
	assert.Equal(t, OutcomeReplay, res.Outcome)
	assert.Equal(t, "OK"+order.PaymentRef, res.Response)
	assert.Len(t, notifier.delivered, 1, "replay must not deliver again")
	assert.Equal(t, map[string]int{"paid": 1, "replay": 1}, metrics.seen)
}

func TestReconcileRejectsBadSignature(t *testing.T) {
	ledger := newLedger(t)
	order := appendPending(t, ledger)
	notifier := &recordingNotifier{}
	r := NewReconciler(ledger, notifier, nil, testSecret2)

	n := signed(order.PaymentRef)
	n.Signature = NotificationSignature(n.Amount, n.CorrelationID, "wrong")

	res, err := r.Reconcile(context.Background(), n)
	require.ErrorIs(t, err, ErrInvalidSignature)
	assert.Equal(t, OutcomeRejected, res.Outcome)
	assert.Equal(t, FailureToken, res.Response)

	stored, _ := ledger.FindByPaymentReference(order.PaymentRef)
	assert.Equal(t, orders.StatusPending, stored.Status)
	assert.Empty(t, notifier.delivered)
}

func TestReconcileRejectsTamperedAmount(t *testing.T) {
	ledger := newLedger(t)
	order := appendPending(t, ledger)
	r := NewReconciler(ledger, nil, nil, testSecret2)

	n := signed(order.PaymentRef)
	n.Amount = "1.00"
	_, err := r.Reconcile(context.Background(), n)
	require.ErrorIs(t, err, ErrInvalidSignature)

	stored, _ := ledger.FindByPaymentReference(order.PaymentRef)
	assert.Equal(t, orders.StatusPending, stored.Status)
}

func TestReconcileUnknownReferenceIsAcknowledged(t *testing.T) {
	r := NewReconciler(newLedger(t), &recordingNotifier{}, nil, testSecret2)

	res, err := r.Reconcile(context.Background(), signed("999"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeNotFound, res.Outcome)
	assert.Equal(t, "OK999", res.Response)
}

type brokenStore struct{ order orders.Order }

func (b brokenStore) FindByPaymentReference(string) (orders.Order, bool) { return b.order, true }

func (b brokenStore) MarkPaid(context.Context, string) (bool, error) {
	return false, &orders.PersistenceError{Op: "mark_paid", Err: errors.New("db down")}
}

func TestReconcilePersistenceFailureAsksForRetry(t *testing.T) {
	notifier := &recordingNotifier{}
	r := NewReconciler(brokenStore{order: orders.Order{PaymentRef: "5", Status: orders.StatusPending}}, notifier, nil, testSecret2)

	res, err := r.Reconcile(context.Background(), signed("5"))
	require.Error(t, err)
	assert.True(t, orders.IsPersistence(err))
	assert.Equal(t, OutcomeFailed, res.Outcome)
	assert.Equal(t, FailureToken, res.Response)
	assert.Empty(t, notifier.delivered)
}

func TestReconcileDeliveryFailureStillAcknowledges(t *testing.T) {
	ledger := newLedger(t)
	order := appendPending(t, ledger)
	r := NewReconciler(ledger, &recordingNotifier{failWith: errors.New("telegram down")}, nil, testSecret2)

	res, err := r.Reconcile(context.Background(), signed(order.PaymentRef))
	require.NoError(t, err)
	assert.Equal(t, OutcomePaid, res.Outcome)
}

func TestConcurrentDuplicatesDeliverOnce(t *testing.T) {
	ledger := newLedger(t)
	order := appendPending(t, ledger)
	notifier := &recordingNotifier{}
	r := NewReconciler(ledger, notifier, nil, testSecret2)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = r.Reconcile(context.Background(), signed(order.PaymentRef))
		}()
	}
	wg.Wait()
	assert.Len(t, notifier.delivered, 1)
}

func TestStatus(t *testing.T) {
	ledger := newLedger(t)
	order := appendPending(t, ledger)
	notifier := &recordingNotifier{}
	r := NewReconciler(ledger, notifier, nil, testSecret2)

	got, err := r.Status(77, order.PaymentRef)
	require.NoError(t, err)
	assert.Equal(t, orders.StatusPending, got.Status)

	_, err = r.Status(78, order.PaymentRef)
	assert.ErrorIs(t, err, ErrOrderNotFound)
	_, err = r.Status(77, "nope")
	assert.ErrorIs(t, err, ErrOrderNotFound)
	assert.Empty(t, notifier.delivered)
}
