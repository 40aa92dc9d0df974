package metrics_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dalemusser/teamhub/internal/app/system/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMiddleware_RecordsRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(metrics.Middleware)
	r.Get("/api/tasks/{taskId}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	counter := metrics.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/api/tasks/{taskId}", "418")
	before := testutil.ToFloat64(counter)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/tasks/abc", nil))

	if got := testutil.ToFloat64(counter) - before; got != 1 {
		t.Errorf("requests_total delta: got %v, want 1", got)
	}
}

func TestHandler_ExposesNamespace(t *testing.T) {
	metrics.RealtimeDropped.Add(0)
	rec := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if !strings.Contains(rec.Body.String(), "teamhub_realtime_dropped_total") {
		t.Error("expected teamhub_realtime_dropped_total in exposition")
	}
}
