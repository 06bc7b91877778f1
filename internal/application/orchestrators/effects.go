package orchestrators

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"classbook/internal/domain/actor"
	"classbook/internal/domain/audit"
	"classbook/internal/domain/outbox"

	"github.com/google/uuid"
)

// Notification type constants
const (
	NotifyBookingConfirmed = "booking_confirmed"
	NotifyBookingCanceled  = "booking_canceled"
	NotifyWaitlistJoined   = "waitlist_joined"
	NotifyWaitlistLeft     = "waitlist_left"
	NotifyWaitlistPromoted = "waitlist_promoted"
	NotifyWaitlistRemoved  = "waitlist_removed"
	NotifyClassCanceled    = "class_canceled"
	NotifyClassRescheduled = "class_rescheduled"
)

// Notification is a message for one member about one class instance.
type Notification struct {
	MemberID        string            `json:"member_id"`
	Type            string            `json:"type"`
	ClassInstanceID string            `json:"class_instance_id"`
	ClassTitle      string            `json:"class_title,omitempty"`
	StartAt         time.Time         `json:"start_at"`
	BookingID       string            `json:"booking_id,omitempty"`
	WaitlistEntryID string            `json:"waitlist_entry_id,omitempty"`
	Position        int               `json:"position,omitempty"`
	Data            map[string]string `json:"data,omitempty"`
	OccurredAt      time.Time         `json:"occurred_at"`
}

// ref names the record the notification is about: booking, then waitlist
// entry, then class instance.
func (n Notification) ref() string {
	switch {
	case n.BookingID != "":
		return n.BookingID
	case n.WaitlistEntryID != "":
		return n.WaitlistEntryID
	}
	return n.ClassInstanceID
}

// Effects collects side effects produced inside a transaction.
// Nothing here runs until the transaction has committed.
type Effects struct {
	Notifications []Notification
	AuditEvents   []audit.Event
}

// Notify queues a notification.
func (e *Effects) Notify(n Notification) {
	e.Notifications = append(e.Notifications, n)
}

// Audit queues an audit event.
func (e *Effects) Audit(ev audit.Event) {
	e.AuditEvents = append(e.AuditEvents, ev)
}

// Empty reports whether nothing was collected.
func (e *Effects) Empty() bool {
	return len(e.Notifications) == 0 && len(e.AuditEvents) == 0
}

// EffectSink runs committed effects. Implementations never return errors;
// failures are logged and dropped.
type EffectSink interface {
	Dispatch(ctx context.Context, fx Effects)
}

// Notifier enqueues a notification for delivery.
type Notifier interface {
	Enqueue(ctx context.Context, n Notification) error
}

// AuditRecorder appends to the audit log.
type AuditRecorder interface {
	Save(ctx context.Context, event audit.Event) error
}

// EffectDispatcher sends notifications and audit events after commit.
type EffectDispatcher struct {
	Notifier   Notifier      // optional
	Auditor    AuditRecorder // optional
	GenerateID func() string
}

// Ensure EffectDispatcher implements EffectSink.
var _ EffectSink = (*EffectDispatcher)(nil)

// Dispatch delivers every effect, logging failures.
// PRE: the transaction producing fx has committed
// POST: Every effect was attempted; booking state is never touched
func (d *EffectDispatcher) Dispatch(ctx context.Context, fx Effects) {
	if d.Notifier != nil {
		for _, n := range fx.Notifications {
			if err := d.Notifier.Enqueue(ctx, n); err != nil {
				slog.Error("notification_enqueue_failed", "member_id", n.MemberID, "type", n.Type,
					"class_instance_id", n.ClassInstanceID, "error", err.Error())
			}
		}
	}
	if d.Auditor != nil {
		for _, ev := range fx.AuditEvents {
			if ev.ID == "" {
				ev.ID = d.newID()
			}
			if err := d.Auditor.Save(ctx, ev); err != nil {
				slog.Error("audit_record_failed", "action", string(ev.Action), "resource_id", ev.ResourceID, "error", err.Error())
			}
		}
	}
}

func (d *EffectDispatcher) newID() string {
	if d.GenerateID == nil {
		return uuid.New().String()
	}
	return d.GenerateID()
}

// OutboxWriter persists outbox entries.
type OutboxWriter interface {
	Save(ctx context.Context, e outbox.Entry) error
}

// OutboxNotifier turns each notification into one outbox entry per channel.
type OutboxNotifier struct {
	Store      OutboxWriter
	Channels   []string // outbox action types, e.g. amqp_publish, email
	Now        func() time.Time
	GenerateID func() string
}

// Ensure OutboxNotifier implements Notifier.
var _ Notifier = (*OutboxNotifier)(nil)

// Enqueue writes the notification to the outbox for every channel.
// PRE: n.MemberID and n.Type are non-empty
// POST: One pending entry per channel; the first failure is returned
func (o *OutboxNotifier) Enqueue(ctx context.Context, n Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	now := time.Now().UTC()
	if o.Now != nil {
		now = o.Now().UTC()
	}
	for _, channel := range o.Channels {
		id := uuid.New().String()
		if o.GenerateID != nil {
			id = o.GenerateID()
		}
		entry := outbox.Entry{
			ID:         id,
			ActionType: channel,
			Payload:    string(payload),
			Status:     outbox.StatusPending,
			CreatedAt:  now,
		}
		if err := entry.Validate(); err != nil {
			return err
		}
		if err := o.Store.Save(ctx, entry); err != nil {
			return fmt.Errorf("save outbox entry: %w", err)
		}
	}
	return nil
}

// newAuditEvent starts an audit event about a class instance.
func newAuditEvent(a actor.Actor, category audit.Category, action audit.Action, instanceID string, now time.Time) audit.Event {
	return audit.NewEvent(a.ID, a.Role, category, action, now).WithInstance(instanceID)
}
