package classify

import "streamarb/internal/domain"

// DirectionResolver attempts to infer the (from, to) asset pair of a swap
// action. Resolvers are pure and tried in order; the first success wins, so
// the tie-break policy is the slice itself.
type DirectionResolver func(domain.RawAction) (from, to string, ok bool)

// DefaultResolvers returns the fallback chain in priority order:
//
//  1. first input coin vs first non-affiliate output coin,
//  2. the pool list (source pool → destination pool),
//  3. the streaming metadata's recorded in/out coins.
func DefaultResolvers() []DirectionResolver {
	return []DirectionResolver{
		resolveFromCoins,
		resolveFromPools,
		resolveFromStreamMeta,
	}
}

// resolveFromCoins pairs the first input coin with the first settled output
// coin. An output whose asset equals the input asset is an affiliate fee
// refund and is skipped.
func resolveFromCoins(a domain.RawAction) (string, string, bool) {
	from := firstCoinAsset(a.In)
	if from == "" {
		return "", "", false
	}
	for _, out := range a.Out {
		for _, coin := range out.Coins {
			if coin.Asset == "" || coin.Asset == from {
				continue
			}
			return from, coin.Asset, true
		}
	}
	return "", "", false
}

// resolveFromPools uses the pool list: element 0 is the source pool and
// element 1 the destination. This covers streaming swaps that have not yet
// produced a first settled output leg.
func resolveFromPools(a domain.RawAction) (string, string, bool) {
	if len(a.Pools) < 2 || a.Pools[0] == "" || a.Pools[1] == "" {
		return "", "", false
	}
	return a.Pools[0], a.Pools[1], true
}

// resolveFromStreamMeta falls back to the coins recorded in the streaming
// metadata itself.
func resolveFromStreamMeta(a domain.RawAction) (string, string, bool) {
	if a.Swap == nil || a.Swap.Streaming == nil {
		return "", "", false
	}
	sm := a.Swap.Streaming

	from := sm.InCoin.Asset
	if from == "" {
		from = sm.DepositedCoin.Asset
	}
	to := sm.OutCoin.Asset

	if from == "" || to == "" {
		return "", "", false
	}
	return from, to, true
}

func firstCoinAsset(transfers []domain.Transfer) string {
	for _, t := range transfers {
		for _, c := range t.Coins {
			if c.Asset != "" {
				return c.Asset
			}
		}
	}
	return ""
}
