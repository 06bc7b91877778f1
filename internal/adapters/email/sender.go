// Package email delivers notification emails through an external provider.
package email

import (
	"context"
	"time"
)

// SendRequest is one notification email.
type SendRequest struct {
	To      []string
	From    string // empty uses the sender default
	Subject string
	HTML    string
	Text    string // plain-text alternative; optional
	ReplyTo string
	// EntityRef identifies the notification so clients do not thread
	// unrelated messages with the same subject together.
	EntityRef string
	// Tags are provider-side labels, e.g. notification_type=booking_confirmed.
	Tags map[string]string
}

// SendResult is the provider's acknowledgement.
type SendResult struct {
	MessageID string
	SentAt    time.Time
}

// Sender sends emails via an external provider.
type Sender interface {
	Send(ctx context.Context, req SendRequest) (SendResult, error)
}
