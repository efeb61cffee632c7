package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveAuth(t *testing.T) {
	m := New()

	m.ObserveAuth("login", "success")
	m.ObserveAuth("login", "success")
	m.ObserveAuth("register", "conflict")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.authRequests.WithLabelValues("login", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.authRequests.WithLabelValues("register", "conflict")))
}

func TestObserveHash(t *testing.T) {
	m := New()

	m.ObserveHash("hash", time.Now().Add(-10*time.Millisecond))

	assert.Equal(t, 1, testutil.CollectAndCount(m.hashDuration))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.ObserveAuth("login", "success")
		m.ObserveHash("verify", time.Now())
	})
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New()
	m.ObserveAuth("register", "success")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `authgate_auth_requests_total{flow="register",outcome="success"} 1`)
}

func TestRegistryCollectsAuthMetrics(t *testing.T) {
	m := New()
	m.ObserveAuth("login", "bad_password")
	m.ObserveHash("verify", time.Now())

	count, err := testutil.GatherAndCount(m.Registry(), "authgate_auth_requests_total", "authgate_hash_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}
