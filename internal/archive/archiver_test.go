package archive

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"streamarb/internal/bus"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeWriter struct {
	err     error
	puts    []fakePut
	failFor int
}

type fakePut struct {
	path        string
	contentType string
	body        []byte
}

func (w *fakeWriter) Put(ctx context.Context, path string, data io.Reader, contentType string) error {
	if w.failFor > 0 {
		w.failFor--
		return errors.New("upload failed")
	}
	if w.err != nil {
		return w.err
	}
	body, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	w.puts = append(w.puts, fakePut{path: path, contentType: contentType, body: body})
	return nil
}

func TestArchiverBuffersSubscribedTopics(t *testing.T) {
	events := bus.New(testLogger())
	a := New(&fakeWriter{}, events, time.Minute, testLogger())
	ctx := context.Background()

	events.Publish(ctx, bus.TopicValidOpportunity, "TX-1", map[string]string{"pair": "XBTUSD"})
	events.Publish(ctx, bus.TopicExitCompleted, "TX-1", nil)
	events.Publish(ctx, bus.TopicTradeFailed, "TX-2", nil)

	// Raw pipeline topics are not archived.
	events.Publish(ctx, bus.TopicActionDetected, "TX-3", nil)
	events.Publish(ctx, bus.TopicStreamSwapDetected, "TX-3", nil)

	assert.Equal(t, 3, a.Pending())
}

func TestFlushUploadsJSONL(t *testing.T) {
	events := bus.New(testLogger())
	w := &fakeWriter{}
	a := New(w, events, time.Minute, testLogger())
	ctx := context.Background()

	events.Publish(ctx, bus.TopicValidOpportunity, "TX-1", nil)
	events.Publish(ctx, bus.TopicExitCompleted, "TX-2", nil)

	a.Flush(ctx)

	require.Len(t, w.puts, 1)
	put := w.puts[0]
	assert.Equal(t, "application/x-ndjson", put.contentType)
	assert.True(t, strings.HasPrefix(put.path, "archive/events/"))
	assert.True(t, strings.HasSuffix(put.path, ".jsonl"))
	assert.Zero(t, a.Pending())

	var txIDs []string
	scanner := bufio.NewScanner(bytes.NewReader(put.body))
	for scanner.Scan() {
		var ev bus.Event
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &ev))
		txIDs = append(txIDs, ev.TxID)
	}
	assert.Equal(t, []string{"TX-1", "TX-2"}, txIDs)
}

func TestFlushEmptyBufferIsNoop(t *testing.T) {
	events := bus.New(testLogger())
	w := &fakeWriter{}
	a := New(w, events, time.Minute, testLogger())

	a.Flush(context.Background())
	assert.Empty(t, w.puts)
}

func TestFlushRequeuesOnUploadFailure(t *testing.T) {
	events := bus.New(testLogger())
	w := &fakeWriter{failFor: 1}
	a := New(w, events, time.Minute, testLogger())
	ctx := context.Background()

	events.Publish(ctx, bus.TopicValidOpportunity, "TX-OLD", nil)

	a.Flush(ctx)
	assert.Equal(t, 1, a.Pending())

	// A newer event lands while the failed batch waits; the retry keeps the
	// original order.
	events.Publish(ctx, bus.TopicExitCompleted, "TX-NEW", nil)

	a.Flush(ctx)
	require.Len(t, w.puts, 1)
	assert.Zero(t, a.Pending())

	lines := bytes.Split(bytes.TrimSpace(w.puts[0].body), []byte("\n"))
	require.Len(t, lines, 2)
	assert.Contains(t, string(lines[0]), "TX-OLD")
	assert.Contains(t, string(lines[1]), "TX-NEW")
}

func TestBufferDropsOldestWhenFull(t *testing.T) {
	events := bus.New(testLogger())
	a := New(&fakeWriter{}, events, time.Minute, testLogger())
	ctx := context.Background()

	for i := 0; i < maxBuffered+5; i++ {
		a.Handle(ctx, bus.Event{Topic: bus.TopicValidOpportunity, TxID: "TX"})
	}
	assert.Equal(t, maxBuffered, a.Pending())
}

func TestRunLoopFinalFlushOnShutdown(t *testing.T) {
	events := bus.New(testLogger())
	w := &fakeWriter{}
	a := New(w, events, time.Hour, testLogger())

	events.Publish(context.Background(), bus.TopicValidOpportunity, "TX-1", nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.RunLoop(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("run loop did not stop")
	}

	require.Len(t, w.puts, 1)
	assert.Zero(t, a.Pending())
}

func TestObjectPathLayout(t *testing.T) {
	at := time.Date(2025, 8, 31, 14, 30, 5, 0, time.UTC)
	assert.Equal(t, "archive/events/2025-08-31/143005.jsonl", objectPath(at))
}
