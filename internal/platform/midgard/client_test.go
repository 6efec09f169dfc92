package midgard

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"streamarb/internal/domain"
)

const actionsFixture = `{
	"actions": [
		{
			"type": "swap",
			"status": "pending",
			"height": "19000002",
			"date": "1725000000000000000",
			"pools": ["ETH.ETH", "BTC.BTC"],
			"in": [{
				"address": "thor1abc",
				"txID": "AB12CD34",
				"coins": [{"asset": "ETH.ETH", "amount": "5000000000"}]
			}],
			"out": [{
				"coins": [{"asset": "BTC.BTC", "amount": "240000000"}]
			}],
			"metadata": {
				"swap": {
					"isStreamingSwap": true,
					"inPriceUSD": "3000.5",
					"outPriceUSD": "60000.25",
					"streamingSwapMeta": {
						"count": "20",
						"interval": "10",
						"quantity": "250000000",
						"depositedCoin": {"asset": "ETH.ETH", "amount": "5000000000"},
						"inCoin": {"asset": "ETH.ETH", "amount": "2500000000"},
						"outCoin": {"asset": "BTC.BTC", "amount": "120000000"}
					}
				}
			}
		},
		{
			"type": "swap",
			"status": "success",
			"height": "19000001",
			"date": "1724999994000000000",
			"in": [{
				"txID": "EF56",
				"coins": [{"asset": "BTC.BTC", "amount": "100000000"}]
			}],
			"out": [],
			"metadata": {
				"swap": {"isStreamingSwap": false, "inPriceUSD": "60000", "outPriceUSD": ""}
			}
		}
	]
}`

func TestGetSwapActionsDecodesWire(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/actions", r.URL.Path)
		assert.Equal(t, "swap", r.URL.Query().Get("type"))
		assert.Equal(t, "50", r.URL.Query().Get("limit"))
		w.Write([]byte(actionsFixture))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	actions, err := c.GetSwapActions(context.Background(), 50)
	require.NoError(t, err)
	require.Len(t, actions, 2)

	// Sorted ascending by height regardless of response order.
	assert.Equal(t, int64(19000001), actions[0].Height)
	assert.Equal(t, int64(19000002), actions[1].Height)

	streaming := actions[1]
	assert.Equal(t, "swap", streaming.Type)
	assert.Equal(t, domain.ActionStatusPending, streaming.Status)
	assert.Equal(t, "AB12CD34", streaming.TxID())
	assert.Equal(t, int64(1725000000000000000), streaming.TimestampNS)
	assert.Equal(t, []string{"ETH.ETH", "BTC.BTC"}, streaming.Pools)

	require.Len(t, streaming.In, 1)
	require.Len(t, streaming.In[0].Coins, 1)
	assert.Equal(t, domain.Coin{Asset: "ETH.ETH", Amount: 5000000000}, streaming.In[0].Coins[0])

	require.NotNil(t, streaming.Swap)
	assert.True(t, streaming.Swap.IsStreaming)
	assert.Equal(t, 3000.5, streaming.Swap.InPriceUSD)
	assert.Equal(t, 60000.25, streaming.Swap.OutPriceUSD)

	require.NotNil(t, streaming.Swap.Streaming)
	assert.Equal(t, int64(20), streaming.Swap.Streaming.Count)
	assert.Equal(t, int64(10), streaming.Swap.Streaming.IntervalBlocks)
	assert.Equal(t, int64(250000000), streaming.Swap.Streaming.Quantity)
	assert.Equal(t, domain.Coin{Asset: "BTC.BTC", Amount: 120000000}, streaming.Swap.Streaming.OutCoin)

	plain := actions[0]
	require.NotNil(t, plain.Swap)
	assert.False(t, plain.Swap.IsStreaming)
	assert.Nil(t, plain.Swap.Streaming)
	assert.Zero(t, plain.Swap.OutPriceUSD)
}

func TestGetSwapActionsSameHeightKeepsOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"actions": [
			{"type": "swap", "status": "pending", "height": "100", "in": [{"txID": "FIRST"}]},
			{"type": "swap", "status": "pending", "height": "100", "in": [{"txID": "SECOND"}]}
		]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	actions, err := c.GetSwapActions(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, actions, 2)
	assert.Equal(t, "FIRST", actions[0].TxID())
	assert.Equal(t, "SECOND", actions[1].TxID())
}

func TestGetSwapActionsMalformedNumbersDegradeToZero(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"actions": [{
			"type": "swap",
			"status": "pending",
			"height": "not-a-number",
			"in": [{"txID": "X", "coins": [{"asset": "ETH.ETH", "amount": "oops"}]}],
			"metadata": {"swap": {"isStreamingSwap": true, "inPriceUSD": "NaN"}}
		}]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	actions, err := c.GetSwapActions(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, actions, 1)

	assert.Zero(t, actions[0].Height)
	assert.Zero(t, actions[0].In[0].Coins[0].Amount)
	assert.Zero(t, actions[0].Swap.InPriceUSD)
}

func TestGetSwapActionsHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	_, err := c.GetSwapActions(context.Background(), 10)
	assert.ErrorContains(t, err, "status 429")
}

func TestGetSwapActionsBadJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"actions": [`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	_, err := c.GetSwapActions(context.Background(), 10)
	assert.ErrorContains(t, err, "decode")
}
