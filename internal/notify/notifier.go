// Package notify delivers opportunity alerts. Chat senders (Telegram,
// Discord) receive operator notifications filtered by event type; the
// webhook dispatcher pushes signed JSON to subscriber endpoints.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/alanyoungcy/arbscanner/internal/domain"
)

// Event names accepted by Notifier.Notify.
const (
	EventArbDetected = "arb_detected"
	EventError       = "error"
)

// Sender is the interface that each notification channel must implement.
type Sender interface {
	// Send delivers a notification with the given title and message body.
	Send(ctx context.Context, title, message string) error
	// Name returns a human-readable identifier for the sender (e.g. "telegram").
	Name() string
}

// Notifier dispatches notifications to one or more Senders. Notify only
// forwards event types in the allowed set; an empty set allows everything.
type Notifier struct {
	senders []Sender
	events  map[string]bool
	logger  *slog.Logger
}

// NewNotifier creates a Notifier that delivers to senders.
func NewNotifier(senders []Sender, events []string, logger *slog.Logger) *Notifier {
	allowed := make(map[string]bool, len(events))
	for _, e := range events {
		allowed[strings.TrimSpace(e)] = true
	}
	return &Notifier{
		senders: senders,
		events:  allowed,
		logger:  logger.With(slog.String("component", "notifier")),
	}
}

// Enabled reports whether at least one sender is configured.
func (n *Notifier) Enabled() bool {
	return n != nil && len(n.senders) > 0
}

// Notify sends a notification to all senders if event is allowed.
func (n *Notifier) Notify(ctx context.Context, event, title, message string) error {
	if len(n.events) > 0 && !n.events[event] {
		n.logger.DebugContext(ctx, "event filtered out", slog.String("event", event))
		return nil
	}
	return n.dispatch(ctx, title, message)
}

// NotifyOpportunities announces the high-confidence entries of opps as one
// arb_detected message. It is a no-op when none qualify.
func (n *Notifier) NotifyOpportunities(ctx context.Context, kind string, opps []domain.Opportunity) error {
	var lines []string
	for _, o := range opps {
		if o.Confidence == domain.ConfidenceHigh {
			lines = append(lines, FormatOpportunity(o))
		}
	}
	if len(lines) == 0 {
		return nil
	}
	title := fmt.Sprintf("%d high-confidence %s opportunit%s", len(lines), kind, plural(len(lines)))
	return n.Notify(ctx, EventArbDetected, title, strings.Join(lines, "\n"))
}

// FormatOpportunity renders one opportunity as a single chat line.
func FormatOpportunity(o domain.Opportunity) string {
	return fmt.Sprintf("%s: %s %.1f¢ vs %s %.1f¢ (%.2f%%, $%.2f on $%.0f)",
		o.Event, o.PlatformA, o.PlatformAPrice*100, o.PlatformB, o.PlatformBPrice*100,
		o.SpreadPercent, o.PotentialProfit, o.RequiredCapital)
}

func plural(n int) string {
	if n == 1 {
		return "y"
	}
	return "ies"
}

// dispatch sends to every sender. A failing sender does not stop delivery to
// the rest; all failures are returned joined.
func (n *Notifier) dispatch(ctx context.Context, title, message string) error {
	var errs []error
	for _, s := range n.senders {
		if err := s.Send(ctx, title, message); err != nil {
			n.logger.ErrorContext(ctx, "sender failed",
				slog.String("sender", s.Name()),
				slog.String("error", err.Error()),
			)
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
			continue
		}
		n.logger.DebugContext(ctx, "notification sent",
			slog.String("sender", s.Name()),
			slog.String("title", title),
		)
	}
	if len(errs) > 0 {
		return fmt.Errorf("notify: %d sender(s) failed: %w", len(errs), errors.Join(errs...))
	}
	return nil
}
