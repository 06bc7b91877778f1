package orchestrators

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"
)

// mdRenderer is a goldmark instance configured for email bodies.
// Raw HTML in the source is escaped because unsafe rendering stays off.
var mdRenderer = goldmark.New(
	goldmark.WithRendererOptions(
		goldmarkHTML.WithHardWraps(),
	),
)

const emailTimeLayout = "Mon 2 Jan, 15:04 MST"

// composeNotificationEmail builds the subject and markdown body for n.
func composeNotificationEmail(firstName string, n Notification) (string, string) {
	title := n.ClassTitle
	if title == "" {
		title = "your class"
	}
	when := n.StartAt.Format(emailTimeLayout)

	var subject, line string
	switch n.Type {
	case NotifyBookingConfirmed:
		subject = "Booked: " + title
		line = fmt.Sprintf("You're booked into **%s** on %s.", title, when)
	case NotifyBookingCanceled:
		subject = "Booking canceled: " + title
		line = fmt.Sprintf("Your booking for **%s** on %s has been canceled.", title, when)
		if n.Data["late"] == "true" {
			line += "\nThis was a late cancellation."
		}
	case NotifyWaitlistJoined:
		subject = "Waitlisted: " + title
		line = fmt.Sprintf("You're number **%d** on the waitlist for **%s** on %s. We'll book you in automatically if a spot opens.", n.Position, title, when)
	case NotifyWaitlistLeft:
		subject = "Left waitlist: " + title
		line = fmt.Sprintf("You've left the waitlist for **%s** on %s.", title, when)
	case NotifyWaitlistPromoted:
		subject = "A spot opened up: " + title
		line = fmt.Sprintf("Good news, a spot opened up and you're now booked into **%s** on %s.", title, when)
	case NotifyWaitlistRemoved:
		subject = "Removed from waitlist: " + title
		line = fmt.Sprintf("You've been taken off the waitlist for **%s** on %s because your membership doesn't currently cover this class.", title, when)
	case NotifyClassCanceled:
		subject = "Class canceled: " + title
		line = fmt.Sprintf("**%s** on %s has been canceled.", title, when)
		if reason := n.Data["reason"]; reason != "" {
			line += "\nReason: " + reason
		}
	case NotifyClassRescheduled:
		subject = "Class moved: " + title
		line = fmt.Sprintf("**%s** has moved to %s. Your booking still stands.", title, when)
	default:
		subject = "Update: " + title
		line = fmt.Sprintf("There's an update for **%s** on %s.", title, when)
	}

	var b strings.Builder
	if firstName != "" {
		fmt.Fprintf(&b, "Kia ora %s,\n\n", escapeMarkdown(firstName))
	}
	b.WriteString(line)
	b.WriteString("\n")
	return subject, b.String()
}

// renderMarkdown converts a markdown body to HTML.
func renderMarkdown(md string) (string, error) {
	var buf bytes.Buffer
	if err := mdRenderer.Convert([]byte(md), &buf); err != nil {
		return "", fmt.Errorf("render email body: %w", err)
	}
	return buf.String(), nil
}

var markdownEscaper = strings.NewReplacer(`*`, `\*`, `_`, `\_`, "`", "\\`", `[`, `\[`, `]`, `\]`, `<`, `&lt;`)

func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}
