package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"streamarb/internal/config"
)

// ParamsHandler serves the runtime trading parameters. Updates take effect
// from the next detected opportunity; trades already scheduled are not
// re-evaluated.
type ParamsHandler struct {
	params *config.Runtime
	logger *slog.Logger
}

// NewParamsHandler creates a ParamsHandler.
func NewParamsHandler(params *config.Runtime, logger *slog.Logger) *ParamsHandler {
	return &ParamsHandler{params: params, logger: logger}
}

// GetParams returns the current parameter snapshot.
// GET /api/params
func (h *ParamsHandler) GetParams(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.params.Snapshot())
}

// UpdateParams replaces the parameters. The body is a full snapshot; absent
// fields become zero values, so clients should GET, modify, and PUT.
// PUT /api/params
func (h *ParamsHandler) UpdateParams(w http.ResponseWriter, r *http.Request) {
	var snap config.RuntimeSnapshot
	if err := json.NewDecoder(r.Body).Decode(&snap); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if err := snap.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.params.Update(snap)
	h.logger.InfoContext(r.Context(), "runtime parameters updated",
		slog.Float64("min_size_usd", snap.MinSizeUSD),
		slog.Int64("min_duration_sec", snap.MinDurationSec),
		slog.Float64("max_slippage_pct", snap.MaxSlippagePct),
		slog.Bool("dry_run", snap.DryRun),
	)
	writeJSON(w, http.StatusOK, h.params.Snapshot())
}
