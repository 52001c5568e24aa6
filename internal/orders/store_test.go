package orders

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memBackend struct {
	mu    sync.Mutex
	saved []Order
	fail  error
	saves int
}

func (m *memBackend) Load(context.Context) ([]Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneAll(m.saved), nil
}

func (m *memBackend) Save(_ context.Context, list []Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	m.saves++
	m.saved = cloneAll(list)
	return nil
}

type stepClock struct {
	mu sync.Mutex
	t  time.Time
}

func newStepClock() *stepClock {
	return &stepClock{t: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

func openTestStore(t *testing.T, backend Backend, retain int) *Store {
	t.Helper()
	s, err := Open(context.Background(), backend, Options{Retain: retain, Now: newStepClock().Now})
	require.NoError(t, err)
	return s
}

func pendingOrder(userID int64, service string) Order {
	return Order{
		UserID:      userID,
		Contact:     Contact{Name: "Ivan", Phone: "+7900", Email: "a@b.com"},
		ServiceID:   service,
		ServiceName: "Service " + service,
		PriceMinor:  500000,
		AssetRef:    "https://example.com/" + service,
		Status:      StatusPending,
	}
}

func TestAppendAssignsReferenceAndOrdinal(t *testing.T) {
	backend := &memBackend{}
	s := openTestStore(t, backend, 0)

	first, err := s.Append(context.Background(), pendingOrder(1, "1"))
	require.NoError(t, err)
	second, err := s.Append(context.Background(), pendingOrder(2, "2"))
	require.NoError(t, err)

	assert.Equal(t, 1, first.ID)
	assert.Equal(t, 2, second.ID)
	assert.NotEmpty(t, first.PaymentRef)
	assert.NotEqual(t, first.PaymentRef, second.PaymentRef)
	assert.False(t, first.CreatedAt.IsZero())
	assert.Nil(t, first.PaidAt)
	assert.Len(t, backend.saved, 2, "append must persist before returning")
}

func TestAppendRejectsDuplicateReference(t *testing.T) {
	s := openTestStore(t, &memBackend{}, 0)
	o := pendingOrder(1, "1")
	o.PaymentRef = "42"
	_, err := s.Append(context.Background(), o)
	require.NoError(t, err)

	_, err = s.Append(context.Background(), o)
	require.ErrorIs(t, err, ErrInvalidOrder)
	assert.Equal(t, 1, s.Len())
}

func TestAppendFreeOrderIsSettled(t *testing.T) {
	s := openTestStore(t, &memBackend{}, 0)
	o := pendingOrder(1, "3")
	o.PriceMinor = 0
	o.Status = StatusFree

	stored, err := s.Append(context.Background(), o)
	require.NoError(t, err)
	require.NotNil(t, stored.PaidAt)
	assert.True(t, stored.Settled())
	assert.Equal(t, stored.CreatedAt, *stored.PaidAt)
}

func TestAppendRejectsPaidStatus(t *testing.T) {
	s := openTestStore(t, &memBackend{}, 0)
	o := pendingOrder(1, "1")
	o.Status = StatusPaid
	_, err := s.Append(context.Background(), o)
	require.ErrorIs(t, err, ErrInvalidOrder)
}

func TestRetentionEvictsOldestAndRenumbers(t *testing.T) {
	const retain = 3
	s := openTestStore(t, &memBackend{}, retain)

	var refs []string
	for i := 0; i < retain+1; i++ {
		o, err := s.Append(context.Background(), pendingOrder(int64(100+i), "1"))
		require.NoError(t, err)
		refs = append(refs, o.PaymentRef)
	}

	list := s.List()
	require.Len(t, list, retain)
	for i, o := range list {
		assert.Equal(t, i+1, o.ID, "ordinals must be dense")
		assert.Equal(t, refs[i+1], o.PaymentRef, "references survive renumbering")
	}
	_, found := s.FindByPaymentReference(refs[0])
	assert.False(t, found, "oldest order must be evicted")
}

func TestAppendRejectsOrderOlderThanRetainedWindow(t *testing.T) {
	backend := &memBackend{}
	s := openTestStore(t, backend, 2)

	first, err := s.Append(context.Background(), pendingOrder(1, "1"))
	require.NoError(t, err)
	_, err = s.Append(context.Background(), pendingOrder(2, "2"))
	require.NoError(t, err)
	saves := backend.saves

	old := pendingOrder(3, "1")
	old.CreatedAt = first.CreatedAt.Add(-time.Hour)
	var stored Order
	require.NotPanics(t, func() {
		stored, err = s.Append(context.Background(), old)
	})
	require.ErrorIs(t, err, ErrInvalidOrder)
	assert.Empty(t, stored.PaymentRef)
	assert.Equal(t, saves, backend.saves, "rejected order must not be written")
	assert.Equal(t, 2, s.Len())
	_, found := s.FindByPaymentReference(first.PaymentRef)
	assert.True(t, found, "existing orders must survive")
}

func TestMarkPaidIsIdempotent(t *testing.T) {
	backend := &memBackend{}
	s := openTestStore(t, backend, 0)
	o, err := s.Append(context.Background(), pendingOrder(1, "1"))
	require.NoError(t, err)

	flipped, err := s.MarkPaid(context.Background(), o.PaymentRef)
	require.NoError(t, err)
	assert.True(t, flipped)

	saves := backend.saves
	flipped, err = s.MarkPaid(context.Background(), o.PaymentRef)
	require.NoError(t, err)
	assert.False(t, flipped)
	assert.Equal(t, saves, backend.saves, "replay must not write")

	paid, ok := s.FindByPaymentReference(o.PaymentRef)
	require.True(t, ok)
	assert.Equal(t, StatusPaid, paid.Status)
	require.NotNil(t, paid.PaidAt)
}

func TestMarkPaidUnknownOrFree(t *testing.T) {
	s := openTestStore(t, &memBackend{}, 0)

	flipped, err := s.MarkPaid(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, flipped)

	free := pendingOrder(1, "3")
	free.PriceMinor = 0
	free.Status = StatusFree
	stored, err := s.Append(context.Background(), free)
	require.NoError(t, err)

	flipped, err = s.MarkPaid(context.Background(), stored.PaymentRef)
	require.NoError(t, err)
	assert.False(t, flipped, "free orders never transition")
}

func TestPersistenceFailureLeavesSnapshot(t *testing.T) {
	backend := &memBackend{}
	s := openTestStore(t, backend, 0)
	existing, err := s.Append(context.Background(), pendingOrder(1, "1"))
	require.NoError(t, err)

	backend.fail = errors.New("disk full")

	_, err = s.Append(context.Background(), pendingOrder(2, "2"))
	require.Error(t, err)
	assert.True(t, IsPersistence(err))
	assert.Equal(t, 1, s.Len())

	flipped, err := s.MarkPaid(context.Background(), existing.PaymentRef)
	require.Error(t, err)
	assert.False(t, flipped)
	current, _ := s.FindByPaymentReference(existing.PaymentRef)
	assert.Equal(t, StatusPending, current.Status)
}

func TestFindLatestByUser(t *testing.T) {
	s := openTestStore(t, &memBackend{}, 0)
	_, err := s.Append(context.Background(), pendingOrder(7, "1"))
	require.NoError(t, err)
	_, err = s.Append(context.Background(), pendingOrder(8, "1"))
	require.NoError(t, err)
	latest, err := s.Append(context.Background(), pendingOrder(7, "2"))
	require.NoError(t, err)

	got, ok := s.FindLatestByUser(7)
	require.True(t, ok)
	assert.Equal(t, latest.PaymentRef, got.PaymentRef)

	_, ok = s.FindLatestByUser(9)
	assert.False(t, ok)
}

func TestReadsAreCopies(t *testing.T) {
	s := openTestStore(t, &memBackend{}, 0)
	o, err := s.Append(context.Background(), pendingOrder(1, "1"))
	require.NoError(t, err)

	got, _ := s.FindByPaymentReference(o.PaymentRef)
	got.Contact.Name = "changed"
	got.Status = StatusPaid

	again, _ := s.FindByPaymentReference(o.PaymentRef)
	assert.Equal(t, "Ivan", again.Contact.Name)
	assert.Equal(t, StatusPending, again.Status)
}

func TestFileBackendSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "orders.json")
	s := openTestStore(t, NewFileBackend(path), 0)

	o, err := s.Append(context.Background(), pendingOrder(1, "1"))
	require.NoError(t, err)
	_, err = s.MarkPaid(context.Background(), o.PaymentRef)
	require.NoError(t, err)

	reopened := openTestStore(t, NewFileBackend(path), 0)
	got, ok := reopened.FindByPaymentReference(o.PaymentRef)
	require.True(t, ok)
	assert.Equal(t, StatusPaid, got.Status)
	assert.Equal(t, o.Contact, got.Contact)
	require.NotNil(t, got.PaidAt)
}

func TestFileBackendMissingFileIsEmpty(t *testing.T) {
	s := openTestStore(t, NewFileBackend(filepath.Join(t.TempDir(), "none.json")), 0)
	assert.Zero(t, s.Len())
}

func TestConcurrentReadersSeeWholeOrders(t *testing.T) {
	s := openTestStore(t, &memBackend{}, 5)

	var wg sync.WaitGroup
	done := make(chan struct{})
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-done:
					return
				default:
				}
				for _, o := range s.List() {
					if o.PaymentRef == "" || o.ID == 0 || o.ServiceID == "" {
						t.Errorf("partial order observed: %+v", o)
						return
					}
				}
			}
		}()
	}

	for i := 0; i < 50; i++ {
		o, err := s.Append(context.Background(), pendingOrder(int64(i+1), "1"))
		require.NoError(t, err)
		if i%2 == 0 {
			_, err = s.MarkPaid(context.Background(), o.PaymentRef)
			require.NoError(t, err)
		}
	}
	close(done)
	wg.Wait()
	assert.Equal(t, 5, s.Len())
}
