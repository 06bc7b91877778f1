package email

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// NoopSender records sends without delivering them. Used in development and
// whenever no provider key is configured.
type NoopSender struct {
	mu   sync.Mutex
	sent []SendRequest
}

// NewNoopSender creates a new NoopSender.
func NewNoopSender() *NoopSender {
	return &NoopSender{}
}

// Ensure NoopSender implements Sender.
var _ Sender = (*NoopSender)(nil)

// Send logs the email and keeps it in memory.
// PRE: req is a valid SendRequest
// POST: Returns a synthetic message ID unique to this sender
func (s *NoopSender) Send(_ context.Context, req SendRequest) (SendResult, error) {
	if len(req.To) == 0 {
		return SendResult{}, ErrNoRecipients
	}
	s.mu.Lock()
	s.sent = append(s.sent, req)
	n := len(s.sent)
	s.mu.Unlock()

	slog.Info("noop_email_send", "to", req.To, "subject", req.Subject, "entity_ref", req.EntityRef)
	return SendResult{MessageID: fmt.Sprintf("noop-%d", n), SentAt: time.Now().UTC()}, nil
}

// Sent returns a copy of every request recorded so far.
func (s *NoopSender) Sent() []SendRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]SendRequest, len(s.sent))
	copy(out, s.sent)
	return out
}
