// Package lifecycle owns open trades from entry confirmation to terminal
// state: it schedules the timed exit leg ahead of the stream-swap window
// closing, executes the offsetting order, computes realized PnL, and
// releases every pending timer on shutdown.
package lifecycle

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"streamarb/internal/bus"
	"streamarb/internal/config"
	"streamarb/internal/domain"
)

// exitTimeout bounds one exit execution, covering the order placement and
// the follow-up status query.
const exitTimeout = 30 * time.Second

// OrderPlacer submits the exit market order.
type OrderPlacer interface {
	PlaceMarketOrder(ctx context.Context, pair string, side domain.OrderSide, qty float64) (domain.OrderFill, error)
}

// Manager tracks active trades and their scheduled exits. Exit timers fire
// on their own goroutines, so the active map is mutex-guarded.
type Manager struct {
	exec   OrderPlacer
	sched  *Scheduler
	params *config.Runtime
	events *bus.Bus
	store  domain.TradeStore // optional
	pair   string
	logger *slog.Logger

	mu     sync.Mutex
	active map[string]*activeTrade
}

type activeTrade struct {
	trade  domain.Trade
	handle *Handle
}

// NewManager creates a Manager. store may be nil when persistence is
// disabled.
func NewManager(exec OrderPlacer, sched *Scheduler, params *config.Runtime, events *bus.Bus, store domain.TradeStore, pair string, logger *slog.Logger) *Manager {
	return &Manager{
		exec:   exec,
		sched:  sched,
		params: params,
		events: events,
		store:  store,
		pair:   pair,
		logger: logger.With(slog.String("component", "lifecycle")),
		active: make(map[string]*activeTrade),
	}
}

// Open registers a confirmed entry and schedules its exit. The exit fires
// (duration − buffer) seconds after the call; a non-positive delay abandons
// the trade immediately, which is fatal for this trade but not a system
// error.
func (m *Manager) Open(ctx context.Context, opp domain.Opportunity, entry domain.OrderFill) error {
	delay := time.Duration(opp.DurationSeconds-m.params.ExitBufferSec()) * time.Second
	if delay <= 0 {
		m.logger.WarnContext(ctx, "exit window already too short, abandoning trade",
			slog.String("tx_id", opp.TxID),
			slog.Int64("duration_sec", opp.DurationSeconds),
			slog.Int64("exit_buffer_sec", m.params.ExitBufferSec()),
		)
		return domain.ErrExitWindowTooShort
	}

	trade := domain.Trade{
		TxID:      opp.TxID,
		Direction: opp.Direction,
		State:     domain.TradeStateConfirmed,
		Entry:     entry,
		OpenedAt:  time.Now().UTC(),
	}

	m.mu.Lock()
	if _, exists := m.active[opp.TxID]; exists {
		m.mu.Unlock()
		return domain.ErrDuplicateTx
	}
	at := &activeTrade{trade: trade}
	m.active[opp.TxID] = at
	m.mu.Unlock()

	handle := m.sched.Schedule(delay, func() {
		m.executeExit(opp.TxID)
	})
	if handle == nil {
		// Scheduler already stopped; released during shutdown.
		m.evict(opp.TxID)
		return domain.ErrExitWindowTooShort
	}

	m.mu.Lock()
	at.handle = handle
	m.mu.Unlock()

	m.logger.InfoContext(ctx, "exit scheduled",
		slog.String("tx_id", opp.TxID),
		slog.Duration("delay", delay),
		slog.String("entry_order_id", entry.OrderID),
	)
	m.events.Publish(ctx, bus.TopicExitScheduled, opp.TxID, trade)

	return nil
}

// executeExit runs when the exit timer fires: it places the opposite-side
// order for the entry quantity and settles the trade either way. A failed
// exit is not retried; the position stays open on the venue for an operator.
func (m *Manager) executeExit(txID string) {
	ctx, cancel := context.WithTimeout(context.Background(), exitTimeout)
	defer cancel()

	m.mu.Lock()
	at, ok := m.active[txID]
	if !ok {
		m.mu.Unlock()
		return
	}
	at.trade.State = domain.TradeStateExiting
	entry := at.trade.Entry
	m.mu.Unlock()

	fill, err := m.exec.PlaceMarketOrder(ctx, m.pair, entry.Side.Opposite(), entry.Quantity)
	if err != nil {
		m.logger.ErrorContext(ctx, "exit order failed, position left open on venue",
			slog.String("tx_id", txID),
			slog.String("error", err.Error()),
		)
		m.settle(ctx, txID, func(t *domain.Trade) {
			t.State = domain.TradeStateFailed
			t.FailedFor = err.Error()
		}, bus.TopicTradeFailed)
		return
	}

	pnl := domain.RealizedPnL(entry, fill.Price)

	m.logger.InfoContext(ctx, "exit completed",
		slog.String("tx_id", txID),
		slog.String("exit_order_id", fill.OrderID),
		slog.Float64("exit_price", fill.Price),
		slog.Float64("pnl", pnl),
	)

	m.settle(ctx, txID, func(t *domain.Trade) {
		t.State = domain.TradeStateCompleted
		t.Exit = &fill
		t.PnL = &pnl
	}, bus.TopicExitCompleted)
}

// settle applies the terminal mutation, publishes the lifecycle event,
// persists the trade if a store is wired, and evicts it from the active set.
func (m *Manager) settle(ctx context.Context, txID string, mutate func(*domain.Trade), topic bus.Topic) {
	m.mu.Lock()
	at, ok := m.active[txID]
	if !ok {
		m.mu.Unlock()
		return
	}
	mutate(&at.trade)
	now := time.Now().UTC()
	at.trade.ClosedAt = &now
	trade := at.trade
	delete(m.active, txID)
	m.mu.Unlock()

	m.events.Publish(ctx, topic, txID, trade)

	if m.store != nil {
		if err := m.store.Insert(ctx, trade); err != nil {
			m.logger.ErrorContext(ctx, "persist trade failed",
				slog.String("tx_id", txID),
				slog.String("error", err.Error()),
			)
		}
	}
}

// Cancel cancels a still-pending scheduled exit and drops the trade from the
// active set. Used only on shutdown.
func (m *Manager) Cancel(txID string) bool {
	m.mu.Lock()
	at, ok := m.active[txID]
	m.mu.Unlock()
	if !ok || at.handle == nil {
		return false
	}
	if !at.handle.Cancel() {
		return false
	}
	m.evict(txID)
	return true
}

// Active returns a copy of all currently open trades.
func (m *Manager) Active() []domain.Trade {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Trade, 0, len(m.active))
	for _, at := range m.active {
		out = append(out, at.trade)
	}
	return out
}

// Shutdown cancels every pending exit and clears the active set. Positions
// whose exits were cancelled remain open on the venue; they are logged for
// operator follow-up.
func (m *Manager) Shutdown() {
	m.sched.Stop()

	m.mu.Lock()
	open := make([]string, 0, len(m.active))
	for txID := range m.active {
		open = append(open, txID)
	}
	m.active = make(map[string]*activeTrade)
	m.mu.Unlock()

	for _, txID := range open {
		m.logger.Warn("shutdown with open position, exit cancelled",
			slog.String("tx_id", txID),
		)
	}
}

func (m *Manager) evict(txID string) {
	m.mu.Lock()
	delete(m.active, txID)
	m.mu.Unlock()
}
