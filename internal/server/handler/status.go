package handler

import (
	"log/slog"
	"net/http"
	"time"

	"streamarb/internal/domain"
)

// ActiveLister exposes the currently open trades. Satisfied by the lifecycle
// manager; nil in watch mode, where no trades are opened.
type ActiveLister interface {
	Active() []domain.Trade
}

// StatusHandler serves the process status snapshot.
type StatusHandler struct {
	mode      string
	pair      string
	asset     string
	startedAt time.Time
	trades    ActiveLister
	logger    *slog.Logger
}

// NewStatusHandler creates a StatusHandler. trades may be nil.
func NewStatusHandler(mode, pair, asset string, startedAt time.Time, trades ActiveLister, logger *slog.Logger) *StatusHandler {
	return &StatusHandler{
		mode:      mode,
		pair:      pair,
		asset:     asset,
		startedAt: startedAt,
		trades:    trades,
		logger:    logger,
	}
}

// GetStatus reports mode, uptime, and the open trade set.
// GET /api/status
func (h *StatusHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	uptime := int64(time.Since(h.startedAt).Seconds())
	if uptime < 0 {
		uptime = 0
	}

	active := []domain.Trade{}
	if h.trades != nil {
		active = h.trades.Active()
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"mode":           h.mode,
		"pair":           h.pair,
		"tracked_asset":  h.asset,
		"uptime_seconds": uptime,
		"open_trades":    len(active),
		"active":         active,
	})
}
