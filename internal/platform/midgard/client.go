// Package midgard is the HTTP client for the Midgard action index, the
// ledger-side source of swap actions for the detection pipeline.
package midgard

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"streamarb/internal/domain"
)

// Client queries the Midgard v2 API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a Midgard client for the given API root, e.g.
// "https://midgard.ninerealms.com".
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// GetSwapActions fetches up to limit recent swap-type actions and returns
// them sorted ascending by ledger height. Actions at the same height keep
// their relative response order, so the poller can evaluate every sibling of
// the batch maximum in the same cycle.
func (c *Client) GetSwapActions(ctx context.Context, limit int) ([]domain.RawAction, error) {
	params := url.Values{}
	params.Set("type", "swap")
	params.Set("limit", strconv.Itoa(limit))

	reqURL := fmt.Sprintf("%s/v2/actions?%s", c.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("midgard: create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("midgard: get actions: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("midgard: unexpected status %d: %s", resp.StatusCode, string(body))
	}

	var decoded actionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("midgard: decode actions: %w", err)
	}

	actions := make([]domain.RawAction, 0, len(decoded.Actions))
	for _, a := range decoded.Actions {
		actions = append(actions, a.toDomain())
	}

	sort.SliceStable(actions, func(i, j int) bool {
		return actions[i].Height < actions[j].Height
	})

	return actions, nil
}
