package midgard

import (
	"math"
	"strconv"

	"streamarb/internal/domain"
)

// Wire types for the /v2/actions response. All numeric fields are decimal
// strings and are parsed explicitly during conversion; a malformed field
// degrades to zero rather than failing the whole batch.

type actionsResponse struct {
	Actions []wireAction `json:"actions"`
}

type wireAction struct {
	Type     string         `json:"type"`
	Status   string         `json:"status"`
	In       []wireTransfer `json:"in"`
	Out      []wireTransfer `json:"out"`
	Pools    []string       `json:"pools"`
	Height   string         `json:"height"`
	Date     string         `json:"date"` // nanosecond epoch
	Metadata wireMetadata   `json:"metadata"`
}

type wireMetadata struct {
	Swap *wireSwapMeta `json:"swap"`
}

type wireSwapMeta struct {
	IsStreamingSwap   bool            `json:"isStreamingSwap"`
	InPriceUSD        string          `json:"inPriceUSD"`
	OutPriceUSD       string          `json:"outPriceUSD"`
	StreamingSwapMeta *wireStreamMeta `json:"streamingSwapMeta"`
}

type wireStreamMeta struct {
	Count         string   `json:"count"`
	Interval      string   `json:"interval"`
	Quantity      string   `json:"quantity"`
	DepositedCoin wireCoin `json:"depositedCoin"`
	InCoin        wireCoin `json:"inCoin"`
	OutCoin       wireCoin `json:"outCoin"`
}

type wireTransfer struct {
	Address string     `json:"address"`
	TxID    string     `json:"txID"`
	Coins   []wireCoin `json:"coins"`
}

type wireCoin struct {
	Asset  string `json:"asset"`
	Amount string `json:"amount"`
}

func (a wireAction) toDomain() domain.RawAction {
	out := domain.RawAction{
		Type:        a.Type,
		Status:      domain.ActionStatus(a.Status),
		In:          toTransfers(a.In),
		Out:         toTransfers(a.Out),
		Pools:       a.Pools,
		Height:      parseInt(a.Height),
		TimestampNS: parseInt(a.Date),
	}
	if a.Metadata.Swap != nil {
		s := a.Metadata.Swap
		meta := &domain.SwapMeta{
			IsStreaming: s.IsStreamingSwap,
			InPriceUSD:  parsePrice(s.InPriceUSD),
			OutPriceUSD: parsePrice(s.OutPriceUSD),
		}
		if s.StreamingSwapMeta != nil {
			sm := s.StreamingSwapMeta
			meta.Streaming = &domain.StreamParams{
				Count:          parseInt(sm.Count),
				IntervalBlocks: parseInt(sm.Interval),
				Quantity:       parseInt(sm.Quantity),
				DepositedCoin:  sm.DepositedCoin.toDomain(),
				InCoin:         sm.InCoin.toDomain(),
				OutCoin:        sm.OutCoin.toDomain(),
			}
		}
		out.Swap = meta
	}
	return out
}

func toTransfers(ws []wireTransfer) []domain.Transfer {
	if len(ws) == 0 {
		return nil
	}
	out := make([]domain.Transfer, 0, len(ws))
	for _, w := range ws {
		t := domain.Transfer{Address: w.Address, TxID: w.TxID}
		for _, c := range w.Coins {
			t.Coins = append(t.Coins, c.toDomain())
		}
		out = append(out, t)
	}
	return out
}

func (c wireCoin) toDomain() domain.Coin {
	return domain.Coin{Asset: c.Asset, Amount: parseInt(c.Amount)}
}

// parseInt parses a base-10 decimal string, returning 0 on any parse error.
func parseInt(s string) int64 {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// parsePrice parses a decimal price string, returning 0 for malformed or
// non-finite values so NaN/Inf never enters the pipeline.
func parsePrice(s string) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}
