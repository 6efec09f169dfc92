// Package kraken is the REST client for the hedging venue. The public Depth
// endpoint backs fill simulation; the private trading endpoints are signed
// per request with the crypto.Signer and are rejected locally when no
// credentials are configured.
package kraken

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"streamarb/internal/crypto"
	"streamarb/internal/domain"
)

// Client is the venue REST client. The signer is optional; without it only
// the public endpoints are usable.
type Client struct {
	baseURL    string
	signer     *crypto.Signer
	httpClient *http.Client
}

// NewClient creates a venue client. signer may be nil for depth-only use.
func NewClient(baseURL string, signer *crypto.Signer) *Client {
	return &Client{
		baseURL: baseURL,
		signer:  signer,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// Depth returns a best-N snapshot of the book for the pair.
func (c *Client) Depth(ctx context.Context, pair string, count int) (domain.DepthSnapshot, error) {
	params := url.Values{}
	params.Set("pair", pair)
	params.Set("count", strconv.Itoa(count))

	result, err := c.doPublic(ctx, "/0/public/Depth", params)
	if err != nil {
		return domain.DepthSnapshot{}, fmt.Errorf("kraken: depth %s: %w", pair, err)
	}

	// The result is keyed by Kraken's canonical pair name, which may differ
	// from the requested alias; take the single entry.
	var byPair map[string]wireDepth
	if err := json.Unmarshal(result, &byPair); err != nil {
		return domain.DepthSnapshot{}, fmt.Errorf("kraken: decode depth: %w", err)
	}

	for _, d := range byPair {
		return domain.DepthSnapshot{
			Pair:      pair,
			Bids:      toLevels(d.Bids),
			Asks:      toLevels(d.Asks),
			Timestamp: time.Now().UTC(),
		}, nil
	}

	return domain.DepthSnapshot{}, fmt.Errorf("kraken: depth response empty for %s", pair)
}

// PlaceMarketOrder submits a market order and queries it back to obtain the
// executed price. Fails fast with domain.ErrMissingCredentials when the
// client has no signer.
func (c *Client) PlaceMarketOrder(ctx context.Context, pair string, side domain.OrderSide, qty float64) (domain.OrderFill, error) {
	params := url.Values{}
	params.Set("pair", pair)
	params.Set("type", string(side))
	params.Set("ordertype", "market")
	params.Set("volume", strconv.FormatFloat(qty, 'f', -1, 64))

	result, err := c.doPrivate(ctx, "/0/private/AddOrder", params)
	if err != nil {
		return domain.OrderFill{}, fmt.Errorf("kraken: add order: %w", err)
	}

	var added addOrderResult
	if err := json.Unmarshal(result, &added); err != nil {
		return domain.OrderFill{}, fmt.Errorf("kraken: decode add order: %w", err)
	}
	if len(added.TxID) == 0 {
		return domain.OrderFill{}, fmt.Errorf("kraken: add order returned no txid")
	}

	orderID := added.TxID[0]
	fill := domain.OrderFill{
		OrderID:  orderID,
		Side:     side,
		Quantity: qty,
		At:       time.Now().UTC(),
	}

	// Market orders fill immediately in the common case; query back for the
	// executed price. A query failure leaves Price zero rather than failing
	// the placement.
	if info, err := c.QueryOrder(ctx, orderID); err == nil {
		if p := parseFloat(info.AvgPrice); p > 0 {
			fill.Price = p
		} else if p := parseFloat(info.Price); p > 0 {
			fill.Price = p
		}
		if v := parseFloat(info.VolExec); v > 0 {
			fill.Quantity = v
		}
	}

	return fill, nil
}

// QueryOrder returns the current state of one order.
func (c *Client) QueryOrder(ctx context.Context, orderID string) (orderInfo, error) {
	params := url.Values{}
	params.Set("txid", orderID)

	result, err := c.doPrivate(ctx, "/0/private/QueryOrders", params)
	if err != nil {
		return orderInfo{}, fmt.Errorf("kraken: query order %s: %w", orderID, err)
	}

	var byID map[string]orderInfo
	if err := json.Unmarshal(result, &byID); err != nil {
		return orderInfo{}, fmt.Errorf("kraken: decode query orders: %w", err)
	}

	info, ok := byID[orderID]
	if !ok {
		return orderInfo{}, domain.ErrNotFound
	}
	return info, nil
}

// CancelOrder cancels an open order.
func (c *Client) CancelOrder(ctx context.Context, orderID string) error {
	params := url.Values{}
	params.Set("txid", orderID)

	if _, err := c.doPrivate(ctx, "/0/private/CancelOrder", params); err != nil {
		return fmt.Errorf("kraken: cancel order %s: %w", orderID, err)
	}
	return nil
}

// Balance returns the account balances by asset.
func (c *Client) Balance(ctx context.Context) (map[string]float64, error) {
	result, err := c.doPrivate(ctx, "/0/private/Balance", url.Values{})
	if err != nil {
		return nil, fmt.Errorf("kraken: balance: %w", err)
	}

	var raw map[string]string
	if err := json.Unmarshal(result, &raw); err != nil {
		return nil, fmt.Errorf("kraken: decode balance: %w", err)
	}

	out := make(map[string]float64, len(raw))
	for asset, amount := range raw {
		out[asset] = parseFloat(amount)
	}
	return out, nil
}

// doPublic performs an unauthenticated GET request.
func (c *Client) doPublic(ctx context.Context, path string, params url.Values) (json.RawMessage, error) {
	reqURL := c.baseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	return c.do(req)
}

// doPrivate performs a signed POST request. The nonce is added to the form
// body and the API-Sign header is computed over it.
func (c *Client) doPrivate(ctx context.Context, path string, params url.Values) (json.RawMessage, error) {
	if c.signer == nil {
		return nil, domain.ErrMissingCredentials
	}

	nonce := c.signer.Nonce()
	params.Set("nonce", nonce)
	body := params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("API-Key", c.signer.Key())
	req.Header.Set("API-Sign", c.signer.Sign(path, nonce, params))

	return c.do(req)
}

func (c *Client) do(req *http.Request) (json.RawMessage, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(data))
	}

	var envelope apiResponse
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	if len(envelope.Error) > 0 {
		return nil, fmt.Errorf("api error: %s", strings.Join(envelope.Error, "; "))
	}

	return envelope.Result, nil
}

func parseFloat(s string) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}
