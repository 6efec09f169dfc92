package lifecycle

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"streamarb/internal/bus"
	"streamarb/internal/config"
	"streamarb/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeExec struct {
	mu    sync.Mutex
	price float64
	err   error
	calls []domain.OrderSide
}

func (f *fakeExec) PlaceMarketOrder(ctx context.Context, pair string, side domain.OrderSide, qty float64) (domain.OrderFill, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, side)
	if f.err != nil {
		return domain.OrderFill{}, f.err
	}
	return domain.OrderFill{
		OrderID:  "EXIT1",
		Side:     side,
		Quantity: qty,
		Price:    f.price,
		At:       time.Now().UTC(),
	}, nil
}

func (f *fakeExec) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type memTradeStore struct {
	mu     sync.Mutex
	trades []domain.Trade
}

func (s *memTradeStore) Insert(ctx context.Context, trade domain.Trade) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trades = append(s.trades, trade)
	return nil
}

func (s *memTradeStore) ListRecent(ctx context.Context, limit int) ([]domain.Trade, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Trade(nil), s.trades...), nil
}

func (s *memTradeStore) all() []domain.Trade {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Trade(nil), s.trades...)
}

type topicCapture struct {
	mu     sync.Mutex
	events []bus.Event
}

func (c *topicCapture) handle(ctx context.Context, ev bus.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
}

func (c *topicCapture) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.events)
}

func managerRuntime(exitBufferSec int64) *config.Runtime {
	return config.NewRuntime(config.TradingConfig{
		MaxSlippagePct: 0.5,
		NotionalUSD:    1_000,
		ExitBufferSec:  exitBufferSec,
	})
}

func buyEntry(qty, price float64) domain.OrderFill {
	return domain.OrderFill{
		OrderID:  "ENTRY1",
		Side:     domain.OrderSideBuy,
		Quantity: qty,
		Price:    price,
		At:       time.Now().UTC(),
	}
}

func opp(txID string, durationSec int64) domain.Opportunity {
	return domain.Opportunity{
		TxID:            txID,
		Direction:       domain.DirectionLong,
		DurationSeconds: durationSec,
	}
}

func TestManagerExitCompletesWithPnL(t *testing.T) {
	events := bus.New(testLogger())
	scheduled := &topicCapture{}
	completed := &topicCapture{}
	events.Subscribe(bus.TopicExitScheduled, scheduled.handle)
	events.Subscribe(bus.TopicExitCompleted, completed.handle)

	exec := &fakeExec{price: 105}
	store := &memTradeStore{}
	m := NewManager(exec, NewScheduler(), managerRuntime(0), events, store, "XBTUSD", testLogger())

	require.NoError(t, m.Open(context.Background(), opp("TX1", 1), buyEntry(2, 100)))
	assert.Equal(t, 1, scheduled.count())
	assert.Len(t, m.Active(), 1)

	require.Eventually(t, func() bool { return completed.count() == 1 }, 3*time.Second, 10*time.Millisecond)

	// The exit is the opposite side for the entry quantity.
	assert.Equal(t, []domain.OrderSide{domain.OrderSideSell}, exec.calls)

	trades := store.all()
	require.Len(t, trades, 1)
	assert.Equal(t, domain.TradeStateCompleted, trades[0].State)
	require.NotNil(t, trades[0].PnL)
	// Bought 2 at 100, sold at 105.
	assert.InDelta(t, 10.0, *trades[0].PnL, 1e-9)
	require.NotNil(t, trades[0].Exit)
	assert.InDelta(t, 105.0, trades[0].Exit.Price, 1e-9)

	assert.Empty(t, m.Active())
}

func TestManagerShortPnL(t *testing.T) {
	events := bus.New(testLogger())
	completed := &topicCapture{}
	events.Subscribe(bus.TopicExitCompleted, completed.handle)

	exec := &fakeExec{price: 105}
	store := &memTradeStore{}
	m := NewManager(exec, NewScheduler(), managerRuntime(0), events, store, "XBTUSD", testLogger())

	entry := domain.OrderFill{
		OrderID:  "ENTRY1",
		Side:     domain.OrderSideSell,
		Quantity: 2,
		Price:    100,
		At:       time.Now().UTC(),
	}
	o := opp("TX1", 1)
	o.Direction = domain.DirectionShort
	require.NoError(t, m.Open(context.Background(), o, entry))

	require.Eventually(t, func() bool { return completed.count() == 1 }, 3*time.Second, 10*time.Millisecond)

	trades := store.all()
	require.Len(t, trades, 1)
	require.NotNil(t, trades[0].PnL)
	// Sold 2 at 100, bought back at 105.
	assert.InDelta(t, -10.0, *trades[0].PnL, 1e-9)
	assert.Equal(t, []domain.OrderSide{domain.OrderSideBuy}, exec.calls)
}

func TestManagerRejectsShortExitWindow(t *testing.T) {
	events := bus.New(testLogger())
	exec := &fakeExec{price: 100}
	m := NewManager(exec, NewScheduler(), managerRuntime(10), events, nil, "XBTUSD", testLogger())

	// 8 second stream with a 10 second buffer.
	err := m.Open(context.Background(), opp("TX1", 8), buyEntry(1, 100))
	assert.ErrorIs(t, err, domain.ErrExitWindowTooShort)
	assert.Empty(t, m.Active())
}

func TestManagerRejectsDuplicateTx(t *testing.T) {
	events := bus.New(testLogger())
	exec := &fakeExec{price: 100}
	m := NewManager(exec, NewScheduler(), managerRuntime(0), events, nil, "XBTUSD", testLogger())

	require.NoError(t, m.Open(context.Background(), opp("TX1", 120), buyEntry(1, 100)))
	err := m.Open(context.Background(), opp("TX1", 120), buyEntry(1, 100))
	assert.ErrorIs(t, err, domain.ErrDuplicateTx)

	m.Shutdown()
}

func TestManagerExitFailureSettlesFailed(t *testing.T) {
	events := bus.New(testLogger())
	failed := &topicCapture{}
	events.Subscribe(bus.TopicTradeFailed, failed.handle)

	exec := &fakeExec{err: errors.New("venue rejected order")}
	store := &memTradeStore{}
	m := NewManager(exec, NewScheduler(), managerRuntime(0), events, store, "XBTUSD", testLogger())

	require.NoError(t, m.Open(context.Background(), opp("TX1", 1), buyEntry(1, 100)))
	require.Eventually(t, func() bool { return failed.count() == 1 }, 3*time.Second, 10*time.Millisecond)

	trades := store.all()
	require.Len(t, trades, 1)
	assert.Equal(t, domain.TradeStateFailed, trades[0].State)
	assert.Contains(t, trades[0].FailedFor, "venue rejected")
	assert.Nil(t, trades[0].PnL)
	assert.Empty(t, m.Active())
}

func TestManagerShutdownCancelsPendingExits(t *testing.T) {
	events := bus.New(testLogger())
	exec := &fakeExec{price: 100}
	m := NewManager(exec, NewScheduler(), managerRuntime(0), events, nil, "XBTUSD", testLogger())

	require.NoError(t, m.Open(context.Background(), opp("TX1", 600), buyEntry(1, 100)))
	require.Len(t, m.Active(), 1)

	m.Shutdown()
	assert.Empty(t, m.Active())
	assert.Zero(t, exec.callCount())
}
