package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_Recorders(t *testing.T) {
	m := New()
	m.ObserveHTTP("POST", "POST /auth/login", 200, 15*time.Millisecond)
	m.ObserveHTTP("POST", "POST /auth/login", 401, 5*time.Millisecond)
	m.AuthOutcome("login", "OK")
	m.AuthOutcome("login", "INVALID_CREDENTIALS")
	m.AuthOutcome("login", "INVALID_CREDENTIALS")
	m.SessionsSwept(3)
	m.SessionsSwept(0)
	m.EventForwarded(true)
	m.EventForwarded(false)

	if got := testutil.ToFloat64(m.httpRequestsTotal.WithLabelValues("POST", "POST /auth/login", "401")); got != 1 {
		t.Errorf("http_requests_total{401} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.authOutcomes.WithLabelValues("login", "INVALID_CREDENTIALS")); got != 2 {
		t.Errorf("auth_operations_total = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.sessionsSwept); got != 3 {
		t.Errorf("sessions_swept_total = %v, want 3", got)
	}
	if got := testutil.ToFloat64(m.eventsForwarded.WithLabelValues("error")); got != 1 {
		t.Errorf("auth_events_forwarded_total{error} = %v, want 1", got)
	}
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.AuthOutcome("refresh", "OK")
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body, _ := io.ReadAll(rec.Body)
	for _, want := range []string{
		`task_tracker_auth_auth_operations_total{operation="refresh",outcome="OK"} 1`,
		"go_goroutines",
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("exposition missing %q", want)
		}
	}
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	m.InFlight(1)
	m.ObserveHTTP("GET", "/", 200, time.Millisecond)
	m.AuthOutcome("login", "OK")
	m.SessionsSwept(1)
	m.EventForwarded(true)
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("nil handler status = %d, want 404", rec.Code)
	}
}
