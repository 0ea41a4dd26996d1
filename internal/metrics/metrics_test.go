package metrics_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/msomdec/contacts-api/internal/metrics"
)

func TestRecordCacheLookup(t *testing.T) {
	before := testutil.ToFloat64(metrics.SessionCacheLookups.WithLabelValues(metrics.CacheHit))
	metrics.RecordCacheLookup(metrics.CacheHit)
	after := testutil.ToFloat64(metrics.SessionCacheLookups.WithLabelValues(metrics.CacheHit))
	assert.Equal(t, before+1, after)
}

func TestHandler_ExposesRegisteredCollectors(t *testing.T) {
	reg := metrics.NewRegistry()
	metrics.RecordHTTPRequest(http.MethodGet, "GET /healthz", http.StatusOK, 5*time.Millisecond)
	metrics.RecordMailDelivery("confirmation", metrics.DeliverySent)

	rec := httptest.NewRecorder()
	metrics.Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `contacts_http_requests_total{method="GET",route="GET /healthz",status="200"}`)
	assert.Contains(t, string(body), `contacts_mail_deliveries_total{kind="confirmation",status="sent"}`)
	assert.Contains(t, string(body), "go_goroutines")
}
