package metrics

import (
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestServerMetrics_Exposed(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewServerMetrics(reg, "portal")
	o := NewOutboxMetrics(reg, "portal")

	m.Requests.WithLabelValues("/api/v1/orders", "POST", "201").Inc()
	o.Published.WithLabelValues("order.placed").Add(2)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.Requests.WithLabelValues("/api/v1/orders", "POST", "201")))
	assert.Equal(t, float64(2), testutil.ToFloat64(o.Published.WithLabelValues("order.placed")))

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "lux_portal_http_requests_total")
	assert.Contains(t, rec.Body.String(), "lux_portal_outbox_events_processed_total")
}
