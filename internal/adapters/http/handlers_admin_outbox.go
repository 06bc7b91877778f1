package web

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"time"

	"classbook/internal/domain/outbox"

	"github.com/labstack/echo/v4"
)

type outboxEntryResponse struct {
	ID              string     `json:"id"`
	ActionType      string     `json:"action_type"`
	Payload         string     `json:"payload"`
	Status          string     `json:"status"`
	Attempts        int        `json:"attempts"`
	MaxAttempts     int        `json:"max_attempts"`
	LastAttemptedAt *time.Time `json:"last_attempted_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	ExternalID      string     `json:"external_id,omitempty"`
	ErrorMessage    string     `json:"error_message,omitempty"`
}

func toOutboxEntryResponse(e outbox.Entry) outboxEntryResponse {
	resp := outboxEntryResponse{
		ID:           e.ID,
		ActionType:   e.ActionType,
		Payload:      e.Payload,
		Status:       e.Status,
		Attempts:     e.Attempts,
		MaxAttempts:  e.MaxAttempts,
		CreatedAt:    e.CreatedAt,
		ExternalID:   e.ExternalID,
		ErrorMessage: e.ErrorMessage,
	}
	if !e.LastAttemptedAt.IsZero() {
		t := e.LastAttemptedAt
		resp.LastAttemptedAt = &t
	}
	return resp
}

// queryLimit parses ?limit= within (0, max], falling back to def.
func queryLimit(c echo.Context, def, max int) int {
	if n, err := strconv.Atoi(c.QueryParam("limit")); err == nil && n > 0 && n <= max {
		return n
	}
	return def
}

// handleAdminOutbox lists outbox entries (GET /api/admin/outbox?status=failed|pending).
// PRE: caller is admin
// POST: Returns entries plus per-status counts
func (s *server) handleAdminOutbox(c echo.Context) error {
	ctx := c.Request().Context()
	limit := queryLimit(c, 50, 100)

	var (
		entries []outbox.Entry
		err     error
	)
	switch c.QueryParam("status") {
	case "", outbox.StatusFailed:
		entries, err = s.stores.OutboxStore.ListFailed(ctx, limit)
	case outbox.StatusPending:
		entries, err = s.stores.OutboxStore.ListPending(ctx, limit)
	default:
		return invalidInput("status must be failed or pending")
	}
	if err != nil {
		return err
	}
	counts, err := s.stores.OutboxStore.CountByStatus(ctx)
	if err != nil {
		return err
	}

	out := make([]outboxEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, toOutboxEntryResponse(e))
	}
	return c.JSON(http.StatusOK, echo.Map{"entries": out, "counts": counts})
}

// outboxError maps processor failures onto HTTP responses.
func outboxError(err error) error {
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return echo.NewHTTPError(http.StatusNotFound, "outbox entry not found")
	case errors.Is(err, outbox.ErrTerminal):
		return echo.NewHTTPError(http.StatusConflict, "outbox entry is already done or abandoned")
	}
	return err
}

// handleAdminOutboxRetry delivers one entry now (POST /api/admin/outbox/:id/retry).
// A failed entry gets one more attempt.
func (s *server) handleAdminOutboxRetry(c echo.Context) error {
	if s.opts.Outbox == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "outbox processor is not running")
	}
	entry, err := s.opts.Outbox.ProcessSingle(c.Request().Context(), c.Param("id"))
	if err != nil {
		return outboxError(err)
	}
	return c.JSON(http.StatusOK, toOutboxEntryResponse(entry))
}

// handleAdminOutboxAbandon stops delivery of one entry (POST /api/admin/outbox/:id/abandon).
func (s *server) handleAdminOutboxAbandon(c echo.Context) error {
	if s.opts.Outbox == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "outbox processor is not running")
	}
	if err := s.opts.Outbox.AbandonEntry(c.Request().Context(), c.Param("id")); err != nil {
		return outboxError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"status": outbox.StatusAbandoned})
}
