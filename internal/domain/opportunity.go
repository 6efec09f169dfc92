package domain

import "time"

// Direction is the logical direction of a detected stream swap relative to
// the tracked asset. A long swap moves counter-asset into the tracked asset
// (on-chain buy pressure); a short swap moves the tracked asset out.
type Direction string

const (
	DirectionLong  Direction = "long"
	DirectionShort Direction = "short"
)

// StreamSwap is a classified streaming swap: the classifier's output before
// dedup and threshold validation.
type StreamSwap struct {
	TxID            string
	FromAsset       string
	ToAsset         string
	Direction       Direction
	InputAmount     int64 // base units of FromAsset
	SizeUSD         float64
	DurationSeconds int64
	Pools           []string
	FromAddress     string
	Height          int64
	Status          ActionStatus
}

// Opportunity is a validated, threshold-passing stream swap considered
// tradeable. Created at most once per transaction id and never mutated.
type Opportunity struct {
	TxID            string
	DetectedAt      time.Time
	FromAsset       string
	ToAsset         string
	Direction       Direction
	InputAmount     int64
	SizeUSD         float64
	DurationSeconds int64
	Pools           []string
	FromAddress     string
	Height          int64
	Status          ActionStatus
}
