package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	m := New()
	m.OrderPlaced("pending")
	m.OrderPlaced("pending")
	m.Reconciled("paid")
	m.ObserveHTTP("result", "200", 12)
	m.ObserveUpdate("callback", 2, false)
	m.ObserveUpdate("message", 1, true)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ordersPlaced.WithLabelValues("pending")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.reconciled.WithLabelValues("paid")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("result", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.updates.WithLabelValues("message", "fail")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.replies))
}

func TestHandlerExposesGauge(t *testing.T) {
	m := New()
	m.Gauge("ledger_orders", "Orders kept in the ledger.", func() float64 { return 7 })
	m.Reconciled("replay")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "callmylawyer_ledger_orders 7")
	assert.Contains(t, body, `callmylawyer_payment_notifications_total{outcome="replay"} 1`)
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.OrderPlaced("free")
		m.Reconciled("paid")
		m.ObserveHTTP("h", "200", 1)
		m.ObserveUpdate("message", 1, false)
	})
}
