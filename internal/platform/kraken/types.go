package kraken

import (
	"encoding/json"
	"fmt"
	"strconv"

	"streamarb/internal/domain"
)

// apiResponse is the standard Kraken response envelope. A non-empty Error
// slice means the request failed even with HTTP 200.
type apiResponse struct {
	Error  []string        `json:"error"`
	Result json.RawMessage `json:"result"`
}

// wireLevel is one depth level on the wire: a JSON array of
// [price, volume, timestamp] where price and volume are decimal strings.
type wireLevel struct {
	Price  float64
	Volume float64
}

// UnmarshalJSON decodes the mixed-type level array, parsing the decimal
// strings explicitly.
func (l *wireLevel) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw) < 2 {
		return fmt.Errorf("kraken: depth level has %d fields, want >= 2", len(raw))
	}

	var priceStr, volStr string
	if err := json.Unmarshal(raw[0], &priceStr); err != nil {
		return fmt.Errorf("kraken: level price: %w", err)
	}
	if err := json.Unmarshal(raw[1], &volStr); err != nil {
		return fmt.Errorf("kraken: level volume: %w", err)
	}

	price, err := strconv.ParseFloat(priceStr, 64)
	if err != nil {
		return fmt.Errorf("kraken: parse level price %q: %w", priceStr, err)
	}
	vol, err := strconv.ParseFloat(volStr, 64)
	if err != nil {
		return fmt.Errorf("kraken: parse level volume %q: %w", volStr, err)
	}

	l.Price = price
	l.Volume = vol
	return nil
}

// wireDepth is the per-pair depth payload.
type wireDepth struct {
	Asks []wireLevel `json:"asks"`
	Bids []wireLevel `json:"bids"`
}

func toLevels(ws []wireLevel) []domain.PriceLevel {
	out := make([]domain.PriceLevel, 0, len(ws))
	for _, w := range ws {
		out = append(out, domain.PriceLevel{Price: w.Price, Volume: w.Volume})
	}
	return out
}

// addOrderResult is the AddOrder response payload.
type addOrderResult struct {
	TxID  []string `json:"txid"`
	Descr struct {
		Order string `json:"order"`
	} `json:"descr"`
}

// orderInfo is one entry of the QueryOrders response payload.
type orderInfo struct {
	Status   string `json:"status"`
	Price    string `json:"price"`
	VolExec  string `json:"vol_exec"`
	AvgPrice string `json:"avg_price"`
}
