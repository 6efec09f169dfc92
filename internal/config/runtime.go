package config

import (
	"fmt"
	"sync"
)

// Runtime owns the operator-tunable trading parameters. Pipeline components
// receive a *Runtime at construction and read values at point of use through
// the getters; all mutation goes through the setters here, typically driven
// by the admin HTTP handler. The lock makes reads cheap and writes safe
// against the timer goroutines that fire trade exits.
type Runtime struct {
	mu sync.RWMutex

	minSizeUSD     float64
	minDurationSec int64
	maxSlippagePct float64
	notionalUSD    float64
	exitBufferSec  int64
	fallbackQty    float64
	dryRun         bool
}

// NewRuntime seeds a Runtime from the loaded trading configuration.
func NewRuntime(tc TradingConfig) *Runtime {
	return &Runtime{
		minSizeUSD:     tc.MinSizeUSD,
		minDurationSec: tc.MinDurationSec,
		maxSlippagePct: tc.MaxSlippagePct,
		notionalUSD:    tc.NotionalUSD,
		exitBufferSec:  tc.ExitBufferSec,
		fallbackQty:    tc.FallbackQty,
		dryRun:         tc.DryRun,
	}
}

func (r *Runtime) MinSizeUSD() float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.minSizeUSD
}

func (r *Runtime) MinDurationSec() int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.minDurationSec
}

func (r *Runtime) MaxSlippagePct() float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.maxSlippagePct
}

func (r *Runtime) NotionalUSD() float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.notionalUSD
}

func (r *Runtime) ExitBufferSec() int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.exitBufferSec
}

func (r *Runtime) FallbackQty() float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.fallbackQty
}

func (r *Runtime) DryRun() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.dryRun
}

// RuntimeSnapshot is a point-in-time copy of all tunable parameters, used by
// the status endpoint and by Update as a full replacement payload.
type RuntimeSnapshot struct {
	MinSizeUSD     float64 `json:"min_size_usd"`
	MinDurationSec int64   `json:"min_duration_sec"`
	MaxSlippagePct float64 `json:"max_slippage_pct"`
	NotionalUSD    float64 `json:"notional_usd"`
	ExitBufferSec  int64   `json:"exit_buffer_sec"`
	FallbackQty    float64 `json:"fallback_qty"`
	DryRun         bool    `json:"dry_run"`
}

// Snapshot returns a consistent copy of the current parameters.
func (r *Runtime) Snapshot() RuntimeSnapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return RuntimeSnapshot{
		MinSizeUSD:     r.minSizeUSD,
		MinDurationSec: r.minDurationSec,
		MaxSlippagePct: r.maxSlippagePct,
		NotionalUSD:    r.notionalUSD,
		ExitBufferSec:  r.exitBufferSec,
		FallbackQty:    r.fallbackQty,
		DryRun:         r.dryRun,
	}
}

// Validate applies the same bounds the startup configuration enforces, so a
// runtime update cannot put the pipeline into a state Load would reject.
func (s RuntimeSnapshot) Validate() error {
	if s.MinSizeUSD < 0 {
		return fmt.Errorf("config: min_size_usd must not be negative")
	}
	if s.MinDurationSec < 0 {
		return fmt.Errorf("config: min_duration_sec must not be negative")
	}
	if s.MaxSlippagePct <= 0 {
		return fmt.Errorf("config: max_slippage_pct must be positive")
	}
	if s.NotionalUSD <= 0 {
		return fmt.Errorf("config: notional_usd must be positive")
	}
	if s.ExitBufferSec < 0 {
		return fmt.Errorf("config: exit_buffer_sec must not be negative")
	}
	if s.FallbackQty < 0 {
		return fmt.Errorf("config: fallback_qty must not be negative")
	}
	return nil
}

// Update replaces all parameters atomically. Already-scheduled exits keep
// the buffer they were scheduled with; new values apply from the next
// opportunity onward.
func (r *Runtime) Update(s RuntimeSnapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.minSizeUSD = s.MinSizeUSD
	r.minDurationSec = s.MinDurationSec
	r.maxSlippagePct = s.MaxSlippagePct
	r.notionalUSD = s.NotionalUSD
	r.exitBufferSec = s.ExitBufferSec
	r.fallbackQty = s.FallbackQty
	r.dryRun = s.DryRun
}
