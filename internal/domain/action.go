// Package domain defines the core types shared across the streamarb pipeline:
// ledger actions, classified stream swaps, opportunities, trades, and the
// store interfaces backing them.
package domain

// ActionStatus is the settlement status of a ledger action as reported by the
// action index. Streaming swaps stay "pending" until the final sub-swap lands.
type ActionStatus string

const (
	ActionStatusPending ActionStatus = "pending"
	ActionStatusSuccess ActionStatus = "success"
	ActionStatusFailed  ActionStatus = "failed"
)

// Coin is an asset/amount pair. Amount is in base units (1e8).
type Coin struct {
	Asset  string
	Amount int64
}

// Transfer is one inbound or outbound leg of a ledger action.
type Transfer struct {
	Address string
	TxID    string
	Coins   []Coin
}

// StreamParams are the streaming parameters recorded on a stream swap:
// the total number of sub-swaps, the block interval between them, and the
// per-step quantity. All three arrive as decimal strings on the wire and are
// parsed by the platform client before reaching the classifier.
type StreamParams struct {
	Count          int64
	IntervalBlocks int64
	Quantity       int64
	DepositedCoin  Coin
	InCoin         Coin
	OutCoin        Coin
}

// SwapMeta is the swap metadata attached to a swap-type action. Streaming is
// nil for plain (non-streaming) swaps.
type SwapMeta struct {
	IsStreaming bool
	InPriceUSD  float64
	OutPriceUSD float64
	Streaming   *StreamParams
}

// RawAction is one ledger transaction record returned by the action index.
// It is immutable once fetched; the classifier reads it and discards it.
type RawAction struct {
	Type        string
	Status      ActionStatus
	In          []Transfer
	Out         []Transfer
	Swap        *SwapMeta
	Pools       []string
	Height      int64
	TimestampNS int64
}

// TxID returns the transaction id of the first inbound transfer, which is the
// canonical identifier for the whole action. Empty when no inbound transfer
// carries one.
func (a RawAction) TxID() string {
	for _, in := range a.In {
		if in.TxID != "" {
			return in.TxID
		}
	}
	return ""
}

// TxStatus is the authoritative per-transaction record from the ledger node,
// used by the classifier's preferred sizing path.
type TxStatus struct {
	TxID  string
	Coins []Coin
}
