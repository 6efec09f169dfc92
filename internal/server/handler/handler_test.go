package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"streamarb/internal/config"
	"streamarb/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestHealthCheck(t *testing.T) {
	h := NewHealthHandler(testLogger())

	rec := httptest.NewRecorder()
	h.HealthCheck(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "ok", body["status"])
	assert.NotEmpty(t, body["timestamp"])
}

type fakeActive struct {
	trades []domain.Trade
}

func (f *fakeActive) Active() []domain.Trade { return f.trades }

func TestGetStatus(t *testing.T) {
	active := &fakeActive{trades: []domain.Trade{
		{TxID: "TX-1", State: domain.TradeStateConfirmed},
	}}
	h := NewStatusHandler("trade", "XBTUSD", "BTC.BTC", time.Now().Add(-90*time.Second), active, testLogger())

	rec := httptest.NewRecorder()
	h.GetStatus(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "trade", body["mode"])
	assert.Equal(t, "XBTUSD", body["pair"])
	assert.Equal(t, "BTC.BTC", body["tracked_asset"])
	assert.GreaterOrEqual(t, body["uptime_seconds"].(float64), 90.0)
	assert.Equal(t, 1.0, body["open_trades"].(float64))
}

func TestGetStatusWatchModeNilLister(t *testing.T) {
	h := NewStatusHandler("watch", "XBTUSD", "BTC.BTC", time.Now(), nil, testLogger())

	rec := httptest.NewRecorder()
	h.GetStatus(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, 0.0, body["open_trades"].(float64))
}

type fakeOppStore struct {
	opps  []domain.Opportunity
	err   error
	limit int
}

func (f *fakeOppStore) Insert(ctx context.Context, opp domain.Opportunity) error { return nil }

func (f *fakeOppStore) ListRecent(ctx context.Context, limit int) ([]domain.Opportunity, error) {
	f.limit = limit
	return f.opps, f.err
}

func TestListOpportunities(t *testing.T) {
	store := &fakeOppStore{opps: []domain.Opportunity{{TxID: "TX-1"}, {TxID: "TX-2"}}}
	h := NewHistoryHandler(store, nil, testLogger())

	rec := httptest.NewRecorder()
	h.ListOpportunities(rec, httptest.NewRequest(http.MethodGet, "/api/opportunities?limit=10", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 10, store.limit)
	assert.Contains(t, rec.Body.String(), "TX-1")
}

func TestListOpportunitiesWithoutStore(t *testing.T) {
	h := NewHistoryHandler(nil, nil, testLogger())

	rec := httptest.NewRecorder()
	h.ListOpportunities(rec, httptest.NewRequest(http.MethodGet, "/api/opportunities", nil))
	assert.Equal(t, http.StatusNotImplemented, rec.Code)

	rec = httptest.NewRecorder()
	h.ListTrades(rec, httptest.NewRequest(http.MethodGet, "/api/trades", nil))
	assert.Equal(t, http.StatusNotImplemented, rec.Code)
}

func TestListOpportunitiesQueryError(t *testing.T) {
	store := &fakeOppStore{err: errors.New("connection refused")}
	h := NewHistoryHandler(store, nil, testLogger())

	rec := httptest.NewRecorder()
	h.ListOpportunities(rec, httptest.NewRequest(http.MethodGet, "/api/opportunities", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestListOpportunitiesEmptyIsArray(t *testing.T) {
	h := NewHistoryHandler(&fakeOppStore{}, nil, testLogger())

	rec := httptest.NewRecorder()
	h.ListOpportunities(rec, httptest.NewRequest(http.MethodGet, "/api/opportunities", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"opportunities":[]`)
}

func TestParseLimit(t *testing.T) {
	assert.Equal(t, 50, parseLimit(httptest.NewRequest(http.MethodGet, "/x", nil)))
	assert.Equal(t, 25, parseLimit(httptest.NewRequest(http.MethodGet, "/x?limit=25", nil)))
	assert.Equal(t, 500, parseLimit(httptest.NewRequest(http.MethodGet, "/x?limit=9999", nil)))
	assert.Equal(t, 50, parseLimit(httptest.NewRequest(http.MethodGet, "/x?limit=-3", nil)))
	assert.Equal(t, 50, parseLimit(httptest.NewRequest(http.MethodGet, "/x?limit=abc", nil)))
}

func newParamsHandler() *ParamsHandler {
	params := config.NewRuntime(config.TradingConfig{
		MinSizeUSD:     100_000,
		MinDurationSec: 120,
		MaxSlippagePct: 0.5,
		NotionalUSD:    1_000,
		ExitBufferSec:  30,
		DryRun:         true,
	})
	return NewParamsHandler(params, testLogger())
}

func TestGetParams(t *testing.T) {
	h := newParamsHandler()

	rec := httptest.NewRecorder()
	h.GetParams(rec, httptest.NewRequest(http.MethodGet, "/api/params", nil))

	assert.Equal(t, http.StatusOK, rec.Code)

	var snap config.RuntimeSnapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, 100_000.0, snap.MinSizeUSD)
	assert.True(t, snap.DryRun)
}

func TestUpdateParams(t *testing.T) {
	h := newParamsHandler()

	body := `{"min_size_usd": 250000, "min_duration_sec": 60, "max_slippage_pct": 1.0, "notional_usd": 2000, "exit_buffer_sec": 20, "fallback_qty": 0, "dry_run": false}`
	rec := httptest.NewRecorder()
	h.UpdateParams(rec, httptest.NewRequest(http.MethodPut, "/api/params", strings.NewReader(body)))

	require.Equal(t, http.StatusOK, rec.Code)

	var snap config.RuntimeSnapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, 250_000.0, snap.MinSizeUSD)
	assert.Equal(t, 2_000.0, snap.NotionalUSD)
	assert.False(t, snap.DryRun)
}

func TestUpdateParamsRejectsInvalid(t *testing.T) {
	h := newParamsHandler()

	rec := httptest.NewRecorder()
	h.UpdateParams(rec, httptest.NewRequest(http.MethodPut, "/api/params", strings.NewReader(`{not json`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Validation failure leaves the previous values in place.
	rec = httptest.NewRecorder()
	body := `{"min_size_usd": -1, "max_slippage_pct": 0.5, "notional_usd": 1000}`
	h.UpdateParams(rec, httptest.NewRequest(http.MethodPut, "/api/params", strings.NewReader(body)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	h.GetParams(rec, httptest.NewRequest(http.MethodGet, "/api/params", nil))
	var snap config.RuntimeSnapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, 100_000.0, snap.MinSizeUSD)
}
