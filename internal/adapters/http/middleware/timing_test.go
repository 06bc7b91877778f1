package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"classbook/internal/adapters/http/perf"

	"github.com/labstack/echo/v4"
)

func serveWith(e *echo.Echo, method, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	rr := httptest.NewRecorder()
	e.ServeHTTP(rr, req)
	return rr
}

// TestTiming_RecordsRoutePattern verifies entries are grouped by route, not URL.
func TestTiming_RecordsRoutePattern(t *testing.T) {
	collector := perf.NewCollector(100)
	e := echo.New()
	e.Use(Timing(collector, 0))
	e.POST("/api/classes/:id/bookings", func(c echo.Context) error {
		return c.NoContent(http.StatusCreated)
	})

	serveWith(e, http.MethodPost, "/api/classes/ci-1/bookings")
	serveWith(e, http.MethodPost, "/api/classes/ci-2/bookings")

	snap := collector.Snapshot(time.Now().Add(-time.Minute), 10)
	if len(snap.SlowestRequests) != 1 {
		t.Fatalf("SlowestRequests = %+v, want one route", snap.SlowestRequests)
	}
	if got := snap.SlowestRequests[0]; got.Name != "POST /api/classes/:id/bookings" || got.Count != 2 {
		t.Errorf("stat = %+v", got)
	}
}

// TestTiming_CapturesHandlerErrors verifies errors are rendered before recording.
func TestTiming_CapturesHandlerErrors(t *testing.T) {
	collector := perf.NewCollector(100)
	e := echo.New()
	e.Use(Timing(collector, 0))
	e.GET("/boom", func(c echo.Context) error {
		return errors.New("boom")
	})
	e.GET("/missing", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusNotFound, "missing")
	})

	if rr := serveWith(e, http.MethodGet, "/boom"); rr.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rr.Code)
	}
	if rr := serveWith(e, http.MethodGet, "/missing"); rr.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rr.Code)
	}

	snap := collector.Snapshot(time.Now().Add(-time.Minute), 10)
	failures := 0
	for _, s := range snap.SlowestRequests {
		failures += s.Failures
	}
	if failures != 1 {
		t.Errorf("failures = %d, want only the 500 counted", failures)
	}
}

// TestTiming_NilCollector verifies middleware works without a collector.
func TestTiming_NilCollector(t *testing.T) {
	e := echo.New()
	e.Use(Timing(nil, 0))
	e.GET("/health", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })

	if rr := serveWith(e, http.MethodGet, "/health"); rr.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rr.Code)
	}
}

// TestSecurityHeaders verifies the API header set.
func TestSecurityHeaders(t *testing.T) {
	e := echo.New()
	e.Use(SecurityHeaders)
	e.GET("/health", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })

	rr := serveWith(e, http.MethodGet, "/health")
	for _, h := range []string{"Content-Security-Policy", "X-Frame-Options", "X-Content-Type-Options", "Referrer-Policy"} {
		if rr.Header().Get(h) == "" {
			t.Errorf("missing header %s", h)
		}
	}
}

// BenchmarkTiming measures per-request overhead.
func BenchmarkTiming(b *testing.B) {
	collector := perf.NewCollector(perf.DefaultRingSize)
	e := echo.New()
	e.Use(Timing(collector, 0))
	e.GET("/api/bench", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	req := httptest.NewRequest(http.MethodGet, "/api/bench", nil)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		e.ServeHTTP(httptest.NewRecorder(), req)
	}
}
