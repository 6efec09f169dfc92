// Package archive ships detection and trade events to cold object storage as
// newline-delimited JSON, partitioned by day.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"streamarb/internal/bus"
)

// maxBuffered bounds the in-memory event buffer. When the buffer is full the
// oldest events are dropped rather than blocking the pipeline.
const maxBuffered = 10_000

// BlobWriter is the narrow upload surface the archiver needs.
type BlobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
}

// Archiver buffers bus events and periodically flushes them to object
// storage as JSONL batches. Opportunities and trade outcomes are archived;
// the high-volume raw action topics are not.
type Archiver struct {
	writer   BlobWriter
	interval time.Duration
	logger   *slog.Logger

	mu      sync.Mutex
	pending [][]byte
	dropped int64
}

// New creates an Archiver flushing on the given interval and subscribes it
// to the archived topics.
func New(writer BlobWriter, events *bus.Bus, interval time.Duration, logger *slog.Logger) *Archiver {
	a := &Archiver{
		writer:   writer,
		interval: interval,
		logger:   logger.With(slog.String("component", "archiver")),
	}
	events.Subscribe(bus.TopicValidOpportunity, a.Handle)
	events.Subscribe(bus.TopicExitCompleted, a.Handle)
	events.Subscribe(bus.TopicTradeFailed, a.Handle)
	return a
}

// Handle serializes one event into the pending buffer.
func (a *Archiver) Handle(ctx context.Context, ev bus.Event) {
	line, err := json.Marshal(ev)
	if err != nil {
		a.logger.ErrorContext(ctx, "marshal event failed",
			slog.String("topic", string(ev.Topic)),
			slog.String("error", err.Error()),
		)
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.pending) >= maxBuffered {
		a.pending = a.pending[1:]
		a.dropped++
	}
	a.pending = append(a.pending, line)
}

// RunLoop flushes on every interval tick until the context is cancelled. A
// final flush is attempted on shutdown so buffered events are not lost.
func (a *Archiver) RunLoop(ctx context.Context) error {
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			a.Flush(flushCtx)
			cancel()
			return ctx.Err()
		case <-ticker.C:
			a.Flush(ctx)
		}
	}
}

// Flush uploads the pending buffer as one JSONL object. On upload failure
// the batch is requeued ahead of newer events so the next tick retries it.
func (a *Archiver) Flush(ctx context.Context) {
	a.mu.Lock()
	batch := a.pending
	dropped := a.dropped
	a.pending = nil
	a.dropped = 0
	a.mu.Unlock()

	if len(batch) == 0 {
		return
	}
	if dropped > 0 {
		a.logger.WarnContext(ctx, "archive buffer overflow",
			slog.Int64("dropped", dropped),
		)
	}

	var buf bytes.Buffer
	for _, line := range batch {
		buf.Write(line)
		buf.WriteByte('\n')
	}

	path := objectPath(time.Now().UTC())
	if err := a.writer.Put(ctx, path, &buf, "application/x-ndjson"); err != nil {
		a.logger.WarnContext(ctx, "archive upload failed",
			slog.String("path", path),
			slog.Int("events", len(batch)),
			slog.String("error", err.Error()),
		)
		a.mu.Lock()
		a.pending = append(batch, a.pending...)
		a.mu.Unlock()
		return
	}

	a.logger.InfoContext(ctx, "archive batch uploaded",
		slog.String("path", path),
		slog.Int("events", len(batch)),
	)
}

// Pending returns the number of buffered events.
func (a *Archiver) Pending() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.pending)
}

// objectPath builds the object key for a batch flushed at time t, e.g.
//
//	archive/events/2025-08-31/143005.jsonl
func objectPath(t time.Time) string {
	return fmt.Sprintf("archive/events/%s/%s.jsonl", t.Format("2006-01-02"), t.Format("150405"))
}
