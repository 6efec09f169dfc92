// Package notify delivers operator alerts over one or more channels
// (Telegram, Discord). Alerts can be filtered by event type so operators
// receive only the topics they care about.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Sender is one delivery channel.
type Sender interface {
	// Send delivers an alert with the given title and message body.
	Send(ctx context.Context, title, message string) error
	// Name identifies the channel, e.g. "telegram".
	Name() string
}

// Notifier fans an alert out to every registered sender. When an event
// filter is configured, Notify forwards only matching event types; an empty
// filter passes everything.
type Notifier struct {
	senders []Sender
	events  map[string]bool
	logger  *slog.Logger
}

// NewNotifier creates a Notifier delivering to the given senders, filtered
// to the given event types (empty means all).
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

// Notify delivers to all senders if the event type passes the filter.
func (n *Notifier) Notify(ctx context.Context, event, title, message string) error {
	if len(n.events) > 0 && !n.events[event] {
		n.logger.DebugContext(ctx, "event filtered out",
			slog.String("event", event),
		)
		return nil
	}
	return n.dispatch(ctx, title, message)
}

// dispatch sends to every sender. A failing sender does not block delivery
// to the rest; failures are combined into one returned error.
func (n *Notifier) dispatch(ctx context.Context, title, message string) error {
	if len(n.senders) == 0 {
		return nil
	}

	var errs []string
	for _, s := range n.senders {
		if err := s.Send(ctx, title, message); err != nil {
			n.logger.ErrorContext(ctx, "sender failed",
				slog.String("sender", s.Name()),
				slog.String("error", err.Error()),
			)
			errs = append(errs, fmt.Sprintf("%s: %v", s.Name(), err))
			continue
		}
		n.logger.DebugContext(ctx, "alert sent",
			slog.String("sender", s.Name()),
			slog.String("title", title),
		)
	}

	if len(errs) > 0 {
		return fmt.Errorf("notify: %d sender(s) failed: %s", len(errs), strings.Join(errs, "; "))
	}
	return nil
}

// postJSON is the shared HTTP delivery path for the webhook-style senders.
func postJSON(ctx context.Context, client *http.Client, name, url string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%s: marshal payload: %w", name, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%s: create request: %w", name, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%s: send request: %w", name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("%s: unexpected status %d: %s", name, resp.StatusCode, string(respBody))
	}
	return nil
}

// defaultHTTPClient returns the client used by the webhook senders.
func defaultHTTPClient() *http.Client {
	return &http.Client{Timeout: 10 * time.Second}
}
