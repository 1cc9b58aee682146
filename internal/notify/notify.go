// Package notify pushes assignment and capacity events to chat platforms.
// Delivery is best effort; a failed notification never blocks the engine.
package notify

import (
	"context"
	"fmt"
	"log"
)

// Severity colors, matching the usual chat sidebar conventions.
const (
	ColorSuccess = "#36a64f"
	ColorWarning = "#f2c744"
	ColorError   = "#d72b3f"
	ColorInfo    = "#3aa3e3"
)

// Event is a structured notification rendered by each platform adapter.
type Event struct {
	Title    string
	Body     string
	Severity string // "info", "warning", "error", "success"
	Color    string
	Fields   []Field
}

// Field is a key-value pair displayed alongside an event.
type Field struct {
	Name  string
	Value string
	Short bool
}

// Notifier delivers events to a single chat platform.
type Notifier interface {
	Name() string
	Send(ctx context.Context, evt Event) error
	Close() error
}

// Fanout delivers each event to every configured notifier. Per-platform
// failures are logged and do not stop delivery to the others.
type Fanout struct {
	notifiers []Notifier
}

// NewFanout builds a fanout over the given notifiers.
func NewFanout(notifiers ...Notifier) *Fanout {
	return &Fanout{notifiers: notifiers}
}

// Send delivers the event to all platforms.
func (f *Fanout) Send(ctx context.Context, evt Event) {
	for _, n := range f.notifiers {
		if err := n.Send(ctx, evt); err != nil {
			log.Printf("notify: %s: %v", n.Name(), err)
		}
	}
}

// Close shuts down all notifiers, returning the first error seen.
func (f *Fanout) Close() error {
	var firstErr error
	for _, n := range f.notifiers {
		if err := n.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("notify: close %s: %w", n.Name(), err)
		}
	}
	return firstErr
}

// AssignmentEvent formats a successful assignment.
func AssignmentEvent(issueKey, assignee, reasoning string, score float64) Event {
	return Event{
		Title:    fmt.Sprintf("Ticket %s assigned to %s", issueKey, assignee),
		Body:     reasoning,
		Severity: "success",
		Color:    ColorSuccess,
		Fields: []Field{
			{Name: "Score", Value: fmt.Sprintf("%.1f", score), Short: true},
			{Name: "Assignee", Value: assignee, Short: true},
		},
	}
}

// QueuedEvent formats a ticket landing on the assignment queue.
func QueuedEvent(issueKey, reason string) Event {
	return Event{
		Title:    fmt.Sprintf("Ticket %s queued", issueKey),
		Body:     reason,
		Severity: "warning",
		Color:    ColorWarning,
	}
}

// ExhaustedEvent formats a ticket giving up after too many attempts.
func ExhaustedEvent(issueKey string, attempts int) Event {
	return Event{
		Title:    fmt.Sprintf("Ticket %s failed assignment", issueKey),
		Body:     fmt.Sprintf("Gave up after %d attempts. Manual triage needed.", attempts),
		Severity: "error",
		Color:    ColorError,
	}
}

// SweepEvent summarizes a queue sweep that made progress.
func SweepEvent(processed, assigned, stillQueued int) Event {
	return Event{
		Title:    "Assignment queue swept",
		Severity: "info",
		Color:    ColorInfo,
		Fields: []Field{
			{Name: "Processed", Value: fmt.Sprintf("%d", processed), Short: true},
			{Name: "Assigned", Value: fmt.Sprintf("%d", assigned), Short: true},
			{Name: "Still queued", Value: fmt.Sprintf("%d", stillQueued), Short: true},
		},
	}
}
