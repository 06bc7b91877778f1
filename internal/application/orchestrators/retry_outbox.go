package orchestrators

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"classbook/internal/adapters/email"
	memberdomain "classbook/internal/domain/member"
	domain "classbook/internal/domain/outbox"
)

// Outbox delivery defaults.
const (
	DefaultOutboxBaseDelay = 30 * time.Second
	DefaultOutboxMaxDelay  = 1 * time.Hour
	DefaultOutboxBatchSize = 50
)

// OutboxStore is the persistence the outbox processor needs.
type OutboxStore interface {
	GetByID(ctx context.Context, id string) (domain.Entry, error)
	Save(ctx context.Context, e domain.Entry) error
	ListPending(ctx context.Context, limit int) ([]domain.Entry, error)
	PurgeDone(ctx context.Context, cutoff time.Time) (int64, error)
}

// OutboxProcessor delivers queued notifications with retries.
type OutboxProcessor struct {
	store     OutboxStore
	executors map[string]ActionExecutor
	baseDelay time.Duration
	maxDelay  time.Duration
	batchSize int
	now       func() time.Time
}

// ActionExecutor delivers one kind of outbox entry.
type ActionExecutor interface {
	// Execute runs the external action with the given payload.
	// Returns the provider's ID for the delivery and any error.
	Execute(ctx context.Context, payload string) (string, error)
}

// NewOutboxProcessor creates a new outbox processor keyed by action type.
func NewOutboxProcessor(store OutboxStore, executors map[string]ActionExecutor) *OutboxProcessor {
	return &OutboxProcessor{
		store:     store,
		executors: executors,
		baseDelay: DefaultOutboxBaseDelay,
		maxDelay:  DefaultOutboxMaxDelay,
		batchSize: DefaultOutboxBatchSize,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// WithBackoff overrides the retry delays.
func (p *OutboxProcessor) WithBackoff(base, max time.Duration) *OutboxProcessor {
	if base > 0 {
		p.baseDelay = base
	}
	if max > 0 {
		p.maxDelay = max
	}
	return p
}

// WithClock overrides the processor clock.
func (p *OutboxProcessor) WithClock(now func() time.Time) *OutboxProcessor {
	p.now = now
	return p
}

// ProcessPending attempts every due entry in one batch.
// PRE: Context is valid
// POST: Due entries attempted; failures recorded for retry with backoff
func (p *OutboxProcessor) ProcessPending(ctx context.Context) error {
	entries, err := p.store.ListPending(ctx, p.batchSize)
	if err != nil {
		return fmt.Errorf("list pending outbox entries: %w", err)
	}

	now := p.now()
	for _, entry := range entries {
		if entry.ReadyAt(p.baseDelay, p.maxDelay).After(now) {
			continue
		}
		if err := p.processEntry(ctx, entry); err != nil {
			slog.Error("outbox_process_failed", "entry_id", entry.ID, "action_type", entry.ActionType, "error", err.Error())
		}
	}
	return nil
}

// processEntry attempts a single outbox entry and saves the outcome.
func (p *OutboxProcessor) processEntry(ctx context.Context, entry domain.Entry) error {
	executor, ok := p.executors[entry.ActionType]
	if !ok {
		entry.MarkAttempt(p.now())
		entry.Attempts = entry.MaxAttempts
		entry.MarkFailed(fmt.Errorf("no executor registered for action type: %s", entry.ActionType))
		return p.store.Save(ctx, entry)
	}

	entry.MarkAttempt(p.now())
	externalID, err := executor.Execute(ctx, entry.Payload)
	if err != nil {
		entry.MarkFailed(err)
		slog.Warn("outbox_action_failed", "entry_id", entry.ID, "action_type", entry.ActionType,
			"attempt", entry.Attempts, "status", entry.Status, "error", err.Error())
	} else {
		entry.MarkSuccess(externalID)
		slog.Info("outbox_action_succeeded", "entry_id", entry.ID, "action_type", entry.ActionType, "external_id", externalID)
	}
	return p.store.Save(ctx, entry)
}

// ProcessSingle attempts one entry now, ignoring backoff (operator retry).
// A failed entry gets one more attempt.
// PRE: entryID is non-empty
// POST: Entry attempted and saved; done or abandoned entries return ErrTerminal
func (p *OutboxProcessor) ProcessSingle(ctx context.Context, entryID string) (domain.Entry, error) {
	entry, err := p.store.GetByID(ctx, entryID)
	if err != nil {
		return domain.Entry{}, fmt.Errorf("get outbox entry: %w", err)
	}
	switch entry.Status {
	case domain.StatusDone, domain.StatusAbandoned:
		return entry, fmt.Errorf("entry %s: %w", entryID, domain.ErrTerminal)
	case domain.StatusFailed:
		entry.MaxAttempts = entry.Attempts + 1
	}
	if err := p.processEntry(ctx, entry); err != nil {
		return entry, err
	}
	return p.store.GetByID(ctx, entryID)
}

// AbandonEntry marks an entry as abandoned by an operator.
// PRE: entryID is non-empty
// POST: Entry status set to abandoned
func (p *OutboxProcessor) AbandonEntry(ctx context.Context, entryID string) error {
	entry, err := p.store.GetByID(ctx, entryID)
	if err != nil {
		return fmt.Errorf("get outbox entry: %w", err)
	}
	entry.MarkAbandoned()
	return p.store.Save(ctx, entry)
}

// PurgeDelivered removes delivered entries older than retention.
func (p *OutboxProcessor) PurgeDelivered(ctx context.Context, retention time.Duration) (int64, error) {
	n, err := p.store.PurgeDone(ctx, p.now().Add(-retention))
	if err != nil {
		return 0, fmt.Errorf("purge delivered outbox entries: %w", err)
	}
	if n > 0 {
		slog.Info("outbox_purged", "count", n)
	}
	return n, nil
}

// --- Publish Executor ---

// Publisher sends a message to the notification broker.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, body []byte) error
}

// PublishExecutor hands notifications to the message broker. The routing key
// is "notification.<type>".
type PublishExecutor struct {
	Publisher Publisher
}

// Execute publishes the notification payload.
// PRE: payload is a JSON Notification
// POST: message accepted by the broker; returns the routing key
// INVARIANT: outbox entry status managed by caller
func (e *PublishExecutor) Execute(ctx context.Context, payload string) (string, error) {
	var n Notification
	if err := json.Unmarshal([]byte(payload), &n); err != nil {
		return "", fmt.Errorf("unmarshal payload: %w", err)
	}
	key := "notification." + n.Type
	if err := e.Publisher.Publish(ctx, key, []byte(payload)); err != nil {
		return "", fmt.Errorf("publish %s: %w", key, err)
	}
	return key, nil
}

// --- Email Executor ---

// MemberDirectory looks up notification recipients.
type MemberDirectory interface {
	GetByID(ctx context.Context, id string) (memberdomain.Member, error)
}

// EmailExecutor emails a notification to the member it concerns.
type EmailExecutor struct {
	Members MemberDirectory
	Sender  email.Sender
	From    string
}

// Execute renders and sends the notification email.
// PRE: payload is a JSON Notification
// POST: email sent and its message ID returned; unreachable members are skipped
// INVARIANT: outbox entry status managed by caller
func (e *EmailExecutor) Execute(ctx context.Context, payload string) (string, error) {
	var n Notification
	if err := json.Unmarshal([]byte(payload), &n); err != nil {
		return "", fmt.Errorf("unmarshal payload: %w", err)
	}
	m, err := e.Members.GetByID(ctx, n.MemberID)
	if err != nil {
		return "", fmt.Errorf("look up member %s: %w", n.MemberID, err)
	}
	if !m.Reachable() {
		slog.Info("notification_email_skipped", "member_id", n.MemberID, "type", n.Type)
		return "skipped", nil
	}

	subject, body := composeNotificationEmail(m.FirstName(), n)
	html, err := renderMarkdown(body)
	if err != nil {
		return "", err
	}
	res, err := e.Sender.Send(ctx, email.SendRequest{
		To:        []string{strings.TrimSpace(m.Email)},
		From:      e.From,
		Subject:   subject,
		HTML:      html,
		Text:      body,
		EntityRef: n.Type + ":" + n.ref(),
		Tags:      map[string]string{"notification_type": n.Type},
	})
	if err != nil {
		return "", err
	}
	return res.MessageID, nil
}
