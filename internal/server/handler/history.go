package handler

import (
	"log/slog"
	"net/http"

	"streamarb/internal/domain"
)

// HistoryHandler serves the persisted opportunity and trade history. When no
// database is configured both stores are nil and requests return 501.
type HistoryHandler struct {
	opps   domain.OpportunityStore
	trades domain.TradeStore
	logger *slog.Logger
}

// NewHistoryHandler creates a HistoryHandler. Either store may be nil.
func NewHistoryHandler(opps domain.OpportunityStore, trades domain.TradeStore, logger *slog.Logger) *HistoryHandler {
	return &HistoryHandler{opps: opps, trades: trades, logger: logger}
}

// ListOpportunities returns the most recently detected opportunities.
// GET /api/opportunities
func (h *HistoryHandler) ListOpportunities(w http.ResponseWriter, r *http.Request) {
	if h.opps == nil {
		writeError(w, http.StatusNotImplemented, "persistence not configured")
		return
	}

	opps, err := h.opps.ListRecent(r.Context(), parseLimit(r))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list opportunities failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}
	if opps == nil {
		opps = []domain.Opportunity{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"opportunities": opps})
}

// ListTrades returns the most recently settled trades.
// GET /api/trades
func (h *HistoryHandler) ListTrades(w http.ResponseWriter, r *http.Request) {
	if h.trades == nil {
		writeError(w, http.StatusNotImplemented, "persistence not configured")
		return
	}

	trades, err := h.trades.ListRecent(r.Context(), parseLimit(r))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list trades failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}
	if trades == nil {
		trades = []domain.Trade{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"trades": trades})
}
