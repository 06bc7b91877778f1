package audit

import (
	"encoding/json"
	"time"
)

// Category represents the type of audit event.
type Category string

const (
	CategoryBooking  Category = "booking"
	CategoryWaitlist Category = "waitlist"
	CategoryClass    Category = "class"
	CategorySystem   Category = "system"
)

// Action represents the action that occurred.
type Action string

const (
	ActionBook           Action = "book"
	ActionCancel         Action = "cancel"
	ActionAttendance     Action = "attendance"
	ActionJoin           Action = "join"
	ActionLeave          Action = "leave"
	ActionRemove         Action = "remove"
	ActionPromote        Action = "promote"
	ActionCreate         Action = "create"
	ActionUpdateCapacity Action = "update_capacity"
	ActionReschedule     Action = "reschedule"
)

// Severity represents the severity level of an audit event.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// ResourceClassInstance is the resource type every engine event is filed under.
const ResourceClassInstance = "class_instance"

// Event represents a single audit log entry.
// ResourceID is the class instance the event concerns.
type Event struct {
	ID           string    `json:"id"`
	Timestamp    time.Time `json:"timestamp"`
	Category     Category  `json:"category"`
	Action       Action    `json:"action"`
	Severity     Severity  `json:"severity"`
	ActorID      string    `json:"actor_id"`
	ActorRole    string    `json:"actor_role"`
	ResourceID   string    `json:"resource_id"`
	ResourceType string    `json:"resource_type"`
	Description  string    `json:"description"`
	Metadata     string    `json:"metadata"`
}

// NewEvent creates a new audit event.
// PRE: actorID and action are non-empty
// POST: Returns an Event stamped at now with info severity
func NewEvent(actorID, actorRole string, category Category, action Action, now time.Time) Event {
	return Event{
		Timestamp: now,
		Category:  category,
		Action:    action,
		Severity:  SeverityInfo,
		ActorID:   actorID,
		ActorRole: actorRole,
	}
}

// WithSeverity sets the severity level.
// PRE: s is valid severity
// POST: Event severity is updated
func (e Event) WithSeverity(s Severity) Event {
	e.Severity = s
	return e
}

// WithInstance files the event under a class instance.
// PRE: instanceID is non-empty
// POST: Event resource fields are populated
func (e Event) WithInstance(instanceID string) Event {
	e.ResourceType = ResourceClassInstance
	e.ResourceID = instanceID
	return e
}

// WithDescription sets the event description.
// PRE: description is non-empty
// POST: Event description is set
func (e Event) WithDescription(desc string) Event {
	e.Description = desc
	return e
}

// WithMetadata encodes fields as the event's JSON metadata.
// PRE: fields is JSON-encodable
// POST: Event metadata is set; left empty if encoding fails
func (e Event) WithMetadata(fields map[string]any) Event {
	if len(fields) == 0 {
		return e
	}
	b, err := json.Marshal(fields)
	if err != nil {
		return e
	}
	e.Metadata = string(b)
	return e
}
