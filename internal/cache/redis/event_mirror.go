package redis

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"streamarb/internal/bus"
)

// channelPrefix namespaces the mirrored pub/sub channels, e.g.
// "ch:validopportunity.detected".
const channelPrefix = "ch:"

// EventMirror republishes every bus event to a Redis pub/sub channel so
// external collaborators (dashboards, alerting, storage jobs) can consume
// the pipeline without linking against it. Delivery failures are logged and
// dropped; mirroring never blocks the pipeline.
type EventMirror struct {
	rdb    *redis.Client
	logger *slog.Logger
}

// NewEventMirror creates a mirror backed by the given Client and registers
// it on the bus for every topic.
func NewEventMirror(c *Client, events *bus.Bus, logger *slog.Logger) *EventMirror {
	m := &EventMirror{
		rdb:    c.Underlying(),
		logger: logger.With(slog.String("component", "event_mirror")),
	}
	events.SubscribeAll(m.Handle)
	return m
}

// Handle serializes one event and publishes it to its topic channel.
func (m *EventMirror) Handle(ctx context.Context, ev bus.Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		m.logger.ErrorContext(ctx, "marshal event failed",
			slog.String("topic", string(ev.Topic)),
			slog.String("error", err.Error()),
		)
		return
	}

	channel := Channel(ev.Topic)
	if err := m.rdb.Publish(ctx, channel, payload).Err(); err != nil {
		m.logger.WarnContext(ctx, "mirror publish failed",
			slog.String("channel", channel),
			slog.String("error", err.Error()),
		)
	}
}

// Channel returns the mirrored channel name for a topic, for consumers that
// subscribe from outside the process.
func Channel(topic bus.Topic) string {
	return channelPrefix + string(topic)
}
