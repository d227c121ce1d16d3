package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestGaugesAndCounters(t *testing.T) {
	m := New()
	m.Alive.WithLabelValues("fountain").Set(12)
	m.QuotaExhausted.WithLabelValues("fountain").Inc()
	m.QuotaExhausted.WithLabelValues("fountain").Inc()
	m.ObserveTick(2 * time.Millisecond)

	if v := testutil.ToFloat64(m.Alive.WithLabelValues("fountain")); v != 12 {
		t.Fatalf("alive gauge %v", v)
	}
	if v := testutil.ToFloat64(m.QuotaExhausted.WithLabelValues("fountain")); v != 2 {
		t.Fatalf("quota counter %v", v)
	}
	if n := testutil.CollectAndCount(m.TickSeconds); n != 1 {
		t.Fatalf("histogram series %d", n)
	}

	m.Forget("fountain")
	if n := testutil.CollectAndCount(m.Alive); n != 0 {
		t.Fatalf("series survived Forget: %d", n)
	}
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New()
	m.Capacity.WithLabelValues("dust").Set(64)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `particle3d_pool_capacity{system="dust"} 64`) {
		t.Fatalf("capacity gauge missing from exposition:\n%s", body)
	}
}
