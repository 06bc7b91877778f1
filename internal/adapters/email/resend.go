package email

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"sort"
	"time"

	"github.com/resend/resend-go/v2"
)

// ErrNoRecipients is returned when a request has nobody to send to.
var ErrNoRecipients = errors.New("email has no recipients")

// tagValue matches what Resend accepts in tag names and values.
var tagValue = regexp.MustCompile(`[^A-Za-z0-9_-]`)

// ResendSender sends emails via the Resend API.
type ResendSender struct {
	client *resend.Client
	from   string
	now    func() time.Time
}

// NewResendSender creates a sender with the given API key and default from address.
// PRE: apiKey is a valid Resend API key; from is a valid sender address
// POST: Returns a ready-to-use sender with a bounded HTTP timeout
func NewResendSender(apiKey, from string) *ResendSender {
	return &ResendSender{
		client: resend.NewCustomClient(&http.Client{Timeout: 15 * time.Second}, apiKey),
		from:   from,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Ensure ResendSender implements Sender.
var _ Sender = (*ResendSender)(nil)

// Send sends a single email via Resend.
// PRE: req has at least one recipient and a subject
// POST: Email accepted by Resend; returns its message ID
func (s *ResendSender) Send(ctx context.Context, req SendRequest) (SendResult, error) {
	if len(req.To) == 0 {
		return SendResult{}, ErrNoRecipients
	}
	sent, err := s.client.Emails.SendWithContext(ctx, s.params(req))
	if err != nil {
		slog.Warn("resend_send_failed", "subject", req.Subject, "entity_ref", req.EntityRef, "error", err.Error())
		return SendResult{}, fmt.Errorf("resend send: %w", err)
	}

	slog.Info("resend_sent", "message_id", sent.Id, "entity_ref", req.EntityRef)
	return SendResult{MessageID: sent.Id, SentAt: s.now()}, nil
}

// params maps a SendRequest onto the Resend payload.
func (s *ResendSender) params(req SendRequest) *resend.SendEmailRequest {
	p := &resend.SendEmailRequest{
		From:    req.From,
		To:      req.To,
		Subject: req.Subject,
		Html:    req.HTML,
		Text:    req.Text,
		ReplyTo: req.ReplyTo,
	}
	if p.From == "" {
		p.From = s.from
	}
	if req.EntityRef != "" {
		p.Headers = map[string]string{"X-Entity-Ref-ID": req.EntityRef}
	}
	if len(req.Tags) > 0 {
		names := make([]string, 0, len(req.Tags))
		for name := range req.Tags {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			p.Tags = append(p.Tags, resend.Tag{
				Name:  tagValue.ReplaceAllString(name, "_"),
				Value: tagValue.ReplaceAllString(req.Tags[name], "_"),
			})
		}
	}
	return p
}
