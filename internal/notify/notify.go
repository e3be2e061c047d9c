// Package notify delivers escalation events to chat platforms.
//
// The core keeps cooperative polling as its contract; notifiers are a thin
// outbound layer on top, used by the sweeper to surface conditions a human
// should see (stale agents, retry exhaustion, retention sweeps).
package notify

import (
	"log"
	"strings"
	"time"
)

// Event severities.
const (
	SeverityInfo    = "info"
	SeverityWarning = "warning"
	SeverityError   = "error"
)

// Event is an escalation to be delivered to a chat platform.
type Event struct {
	Title    string
	Body     string
	Severity string // info, warning, error
	Time     time.Time
}

// Notifier delivers events to a single platform.
type Notifier interface {
	Notify(event Event) error
	Name() string
}

// Fanout sends each event to every configured notifier. A failing notifier
// is logged and skipped; escalation delivery is best-effort.
type Fanout struct {
	notifiers []Notifier
}

// NewFanout creates a Fanout over the given notifiers.
func NewFanout(notifiers ...Notifier) *Fanout {
	return &Fanout{notifiers: notifiers}
}

// Notify delivers the event to all notifiers, returning the last error.
func (f *Fanout) Notify(event Event) error {
	var lastErr error
	for _, n := range f.notifiers {
		if err := n.Notify(event); err != nil {
			log.Printf("notify: %s: %v", n.Name(), err)
			lastErr = err
		}
	}
	return lastErr
}

// Len reports how many notifiers are configured.
func (f *Fanout) Len() int { return len(f.notifiers) }

// FormatText renders an event as a single plain-text chat message.
func FormatText(event Event) string {
	var b strings.Builder
	switch event.Severity {
	case SeverityError:
		b.WriteString("[ERROR] ")
	case SeverityWarning:
		b.WriteString("[WARN] ")
	}
	b.WriteString(event.Title)
	if event.Body != "" {
		b.WriteString("\n")
		b.WriteString(event.Body)
	}
	return b.String()
}

// severityColor maps a severity to a sidebar color hint.
func severityColor(severity string) string {
	switch severity {
	case SeverityError:
		return "#d00000"
	case SeverityWarning:
		return "#e8a317"
	default:
		return "#36a64f"
	}
}
