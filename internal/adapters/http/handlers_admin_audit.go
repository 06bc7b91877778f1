package web

import (
	"net/http"
	"time"

	auditStore "classbook/internal/adapters/storage/audit"
	auditDomain "classbook/internal/domain/audit"

	"github.com/labstack/echo/v4"
)

// handleAdminAuditTrail returns audit events (GET /api/admin/audit)
// PRE: caller is admin
// POST: Returns events newest first, filtered by category, action, actor_id,
// resource_id and an RFC 3339 from/to window
func (s *server) handleAdminAuditTrail(c echo.Context) error {
	filter := auditStore.Filter{}

	if category := c.QueryParam("category"); category != "" {
		cat := auditDomain.Category(category)
		filter.Category = &cat
	}
	if action := c.QueryParam("action"); action != "" {
		act := auditDomain.Action(action)
		filter.Action = &act
	}
	if actorID := c.QueryParam("actor_id"); actorID != "" {
		filter.ActorID = &actorID
	}
	if resourceID := c.QueryParam("resource_id"); resourceID != "" {
		filter.ResourceID = &resourceID
	}
	if from := c.QueryParam("from"); from != "" {
		t, err := time.Parse(time.RFC3339, from)
		if err != nil {
			return invalidInput("from must be RFC 3339")
		}
		filter.From = t
	}
	if to := c.QueryParam("to"); to != "" {
		t, err := time.Parse(time.RFC3339, to)
		if err != nil {
			return invalidInput("to must be RFC 3339")
		}
		filter.To = t
	}

	events, err := s.stores.AuditStore.List(c.Request().Context(), filter, queryLimit(c, 100, 1000))
	if err != nil {
		return err
	}
	if events == nil {
		events = []auditDomain.Event{}
	}
	return c.JSON(http.StatusOK, events)
}

// handleAdminPerf returns timing aggregates (GET /api/admin/perf?window=15m).
func (s *server) handleAdminPerf(c echo.Context) error {
	if s.opts.Collector == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "performance collector is disabled")
	}
	window := time.Hour
	if v := c.QueryParam("window"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return invalidInput("window must be a positive duration")
		}
		window = d
	}
	snap := s.opts.Collector.Snapshot(s.now().Add(-window), queryLimit(c, 10, 50))
	return c.JSON(http.StatusOK, snap)
}
