package middleware

import (
	"log/slog"
	"sync/atomic"
	"time"

	"classbook/internal/adapters/http/perf"

	"github.com/labstack/echo/v4"
)

// DefaultSlowRequestMs is the default threshold for slow request warnings.
const DefaultSlowRequestMs = 200

// requestIDCounter is an atomic counter for request IDs.
var requestIDCounter uint64

// Timing returns middleware that logs request duration.
// Normal requests log at DEBUG; slow requests (above slowMs) log at WARN.
// If collector is non-nil, entries are recorded under the route pattern.
func Timing(collector *perf.Collector, slowMs int) echo.MiddlewareFunc {
	if slowMs <= 0 {
		slowMs = DefaultSlowRequestMs
	}
	threshold := float64(slowMs)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			reqID := atomic.AddUint64(&requestIDCounter, 1)

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			req := c.Request()
			status := c.Response().Status
			route := c.Path()
			if route == "" {
				route = req.URL.Path
			}
			durationMs := float64(time.Since(start).Microseconds()) / 1000.0

			if durationMs >= threshold {
				slog.Warn("slow_request",
					"request_id", reqID,
					"method", req.Method,
					"route", route,
					"status", status,
					"duration_ms", durationMs,
				)
			} else {
				slog.Debug("request",
					"request_id", reqID,
					"method", req.Method,
					"route", route,
					"status", status,
					"duration_ms", durationMs,
				)
			}

			if collector != nil {
				collector.Record(perf.Entry{
					Kind:       perf.KindRequest,
					Name:       req.Method + " " + route,
					StatusCode: status,
					Failed:     status >= 500,
					DurationMs: durationMs,
					Timestamp:  start,
				})
			}
			return nil
		}
	}
}
