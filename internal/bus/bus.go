// Package bus implements the in-process event bus connecting the detection
// pipeline to its collaborators (notifications, persistence, the Redis
// mirror, and the WebSocket hub). Each topic has an enumerable set of
// handlers registered at startup; dispatch is synchronous on the publishing
// goroutine, so the pipeline's at-most-once guarantees carry through to
// every consumer.
package bus

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Topic identifies one event stream.
type Topic string

const (
	TopicActionDetected     Topic = "action.detected"
	TopicStreamSwapDetected Topic = "streamswap.detected"
	TopicValidOpportunity   Topic = "validopportunity.detected"
	TopicExitScheduled      Topic = "trade.exit.scheduled"
	TopicExitCompleted      Topic = "trade.exit.completed"
	TopicTradeFailed        Topic = "trade.failed"
)

// Topics lists every topic the pipeline emits, in emission order.
var Topics = []Topic{
	TopicActionDetected,
	TopicStreamSwapDetected,
	TopicValidOpportunity,
	TopicExitScheduled,
	TopicExitCompleted,
	TopicTradeFailed,
}

// Event is one published occurrence. Payload holds the topic-specific domain
// value (Opportunity, Trade, ...).
type Event struct {
	ID      string    `json:"id"`
	Topic   Topic     `json:"topic"`
	TxID    string    `json:"tx_id"`
	At      time.Time `json:"at"`
	Payload any       `json:"payload,omitempty"`
}

// Handler consumes one event. Handlers must not block for long; they run on
// the pipeline goroutine.
type Handler func(ctx context.Context, ev Event)

// Bus dispatches events to handlers registered per topic. Registration
// happens during wiring, before the pipeline starts; Publish may then be
// called without further synchronization concerns beyond the internal lock.
type Bus struct {
	mu     sync.RWMutex
	subs   map[Topic][]Handler
	all    []Handler
	logger *slog.Logger
}

// New creates an empty Bus.
func New(logger *slog.Logger) *Bus {
	return &Bus{
		subs:   make(map[Topic][]Handler),
		logger: logger.With(slog.String("component", "bus")),
	}
}

// Subscribe registers a handler for a single topic.
func (b *Bus) Subscribe(topic Topic, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[topic] = append(b.subs[topic], h)
}

// SubscribeAll registers a handler for every topic. Used by the Redis mirror
// and the WebSocket hub, which forward events wholesale.
func (b *Bus) SubscribeAll(h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.all = append(b.all, h)
}

// Publish builds an Event and dispatches it synchronously to all handlers
// for the topic, then to the catch-all handlers.
func (b *Bus) Publish(ctx context.Context, topic Topic, txID string, payload any) {
	ev := Event{
		ID:      uuid.New().String(),
		Topic:   topic,
		TxID:    txID,
		At:      time.Now().UTC(),
		Payload: payload,
	}

	b.mu.RLock()
	handlers := b.subs[topic]
	all := b.all
	b.mu.RUnlock()

	b.logger.DebugContext(ctx, "publishing event",
		slog.String("topic", string(topic)),
		slog.String("tx_id", txID),
		slog.Int("handlers", len(handlers)+len(all)),
	)

	for _, h := range handlers {
		h(ctx, ev)
	}
	for _, h := range all {
		h(ctx, ev)
	}
}
