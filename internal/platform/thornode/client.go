// Package thornode is the HTTP client for the ledger node's authoritative
// per-transaction lookup. The classifier prefers its observed input amounts
// over the batch feed when sizing an opportunity; any failure here falls back
// silently to feed-derived sizing.
package thornode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"streamarb/internal/domain"
)

// Client queries the ledger node REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a node client for the given API root, e.g.
// "https://thornode.ninerealms.com".
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type txResponse struct {
	ObservedTx struct {
		Tx struct {
			ID    string `json:"id"`
			Coins []struct {
				Asset  string `json:"asset"`
				Amount string `json:"amount"`
			} `json:"coins"`
		} `json:"tx"`
	} `json:"observed_tx"`
}

// GetTxStatus returns the observed transaction record for the given id.
func (c *Client) GetTxStatus(ctx context.Context, txID string) (domain.TxStatus, error) {
	reqURL := fmt.Sprintf("%s/thorchain/tx/%s", c.baseURL, url.PathEscape(txID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return domain.TxStatus{}, fmt.Errorf("thornode: create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.TxStatus{}, fmt.Errorf("thornode: get tx %s: %w", txID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return domain.TxStatus{}, domain.ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return domain.TxStatus{}, fmt.Errorf("thornode: unexpected status %d: %s", resp.StatusCode, string(body))
	}

	var decoded txResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return domain.TxStatus{}, fmt.Errorf("thornode: decode tx: %w", err)
	}

	status := domain.TxStatus{TxID: decoded.ObservedTx.Tx.ID}
	for _, coin := range decoded.ObservedTx.Tx.Coins {
		amount, err := strconv.ParseInt(coin.Amount, 10, 64)
		if err != nil {
			amount = 0
		}
		status.Coins = append(status.Coins, domain.Coin{Asset: coin.Asset, Amount: amount})
	}

	return status, nil
}
