package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRuntimeSeedsFromTradingConfig(t *testing.T) {
	r := NewRuntime(TradingConfig{
		MinSizeUSD:     100_000,
		MinDurationSec: 120,
		MaxSlippagePct: 0.5,
		NotionalUSD:    1_000,
		ExitBufferSec:  30,
		FallbackQty:    0.01,
		DryRun:         true,
	})

	assert.Equal(t, 100_000.0, r.MinSizeUSD())
	assert.Equal(t, int64(120), r.MinDurationSec())
	assert.Equal(t, 0.5, r.MaxSlippagePct())
	assert.Equal(t, 1_000.0, r.NotionalUSD())
	assert.Equal(t, int64(30), r.ExitBufferSec())
	assert.Equal(t, 0.01, r.FallbackQty())
	assert.True(t, r.DryRun())
}

func TestRuntimeUpdateReplacesAll(t *testing.T) {
	r := NewRuntime(TradingConfig{MaxSlippagePct: 0.5, NotionalUSD: 1_000})

	r.Update(RuntimeSnapshot{
		MinSizeUSD:     200_000,
		MinDurationSec: 60,
		MaxSlippagePct: 1.0,
		NotionalUSD:    2_500,
		ExitBufferSec:  45,
		FallbackQty:    0.02,
		DryRun:         false,
	})

	snap := r.Snapshot()
	assert.Equal(t, 200_000.0, snap.MinSizeUSD)
	assert.Equal(t, int64(60), snap.MinDurationSec)
	assert.Equal(t, 1.0, snap.MaxSlippagePct)
	assert.Equal(t, 2_500.0, snap.NotionalUSD)
	assert.Equal(t, int64(45), snap.ExitBufferSec)
	assert.Equal(t, 0.02, snap.FallbackQty)
	assert.False(t, snap.DryRun)
}

func TestRuntimeSnapshotValidate(t *testing.T) {
	valid := RuntimeSnapshot{
		MaxSlippagePct: 0.5,
		NotionalUSD:    1_000,
	}
	require.NoError(t, valid.Validate())

	cases := []struct {
		name   string
		mutate func(*RuntimeSnapshot)
	}{
		{"negative min size", func(s *RuntimeSnapshot) { s.MinSizeUSD = -1 }},
		{"negative min duration", func(s *RuntimeSnapshot) { s.MinDurationSec = -1 }},
		{"zero max slippage", func(s *RuntimeSnapshot) { s.MaxSlippagePct = 0 }},
		{"zero notional", func(s *RuntimeSnapshot) { s.NotionalUSD = 0 }},
		{"negative exit buffer", func(s *RuntimeSnapshot) { s.ExitBufferSec = -1 }},
		{"negative fallback qty", func(s *RuntimeSnapshot) { s.FallbackQty = -0.1 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			snap := valid
			tc.mutate(&snap)
			assert.Error(t, snap.Validate())
		})
	}
}
