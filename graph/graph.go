// Package graph holds the in-memory price graph: a token-indexed adjacency
// over a fixed pool universe, pool lookup by address, and the pure
// quote/apply/revert operations Simulator and Search drive. The graph is
// owned single-threadedly by the orchestrator's worker — no locking,
// per spec.md §4.4.
package graph

import (
	"github.com/holiman/uint256"

	"fulcrum/ferr"
	"fulcrum/pool"
)

// PoolID is a stable index into Graph.pools — the canonical identifier for
// a pool, used throughout adjacency structures instead of pointers
// (spec.md §9: "Indices over pointers throughout graph").
type PoolID uint32

// pairKey uniquely identifies an unordered token pair.
type pairKey struct{ lo, hi pool.Token }

func newPairKey(a, b pool.Token) pairKey {
	if a < b {
		return pairKey{a, b}
	}
	return pairKey{b, a}
}

// Graph is the pool universe: a flat pool slab plus three lookup indices
// (address, per-token, per-pair). Built once at startup from a static
// universe; only Refresher (bulk) and Simulator (speculative, always
// undone) mutate pool state afterward.
type Graph struct {
	pools      []pool.Pool
	byAddress  map[pool.Address]PoolID
	byToken    [pool.NumTokens][]PoolID
	byPair     map[pairKey][]PoolID
}

// New builds an empty graph ready for pool registration.
func New() *Graph {
	return &Graph{
		byAddress: make(map[pool.Address]PoolID),
		byPair:    make(map[pairKey][]PoolID),
	}
}

// AddPool registers a pool in the graph, assigning it the next PoolID. The
// pool's TokenA/TokenB must already be ordered (A < B by address) by the
// caller (config loading), per spec.md §3.
func (g *Graph) AddPool(p pool.Pool) PoolID {
	id := PoolID(len(g.pools))
	p.ID = uint32(id)
	g.pools = append(g.pools, p)
	g.byAddress[p.Address] = id
	g.byToken[p.TokenA] = append(g.byToken[p.TokenA], id)
	g.byToken[p.TokenB] = append(g.byToken[p.TokenB], id)
	key := newPairKey(p.TokenA, p.TokenB)
	g.byPair[key] = append(g.byPair[key], id)
	return id
}

// NumPools returns the number of pools currently registered.
func (g *Graph) NumPools() int { return len(g.pools) }

// FindPool resolves an on-chain pool address to its PoolID, O(1).
func (g *Graph) FindPool(addr pool.Address) (PoolID, bool) {
	id, ok := g.byAddress[addr]
	return id, ok
}

// Pool returns a pointer to the pool's live state for direct mutation by
// Refresher/Simulator. Callers outside those two must not retain or write
// through this pointer across event boundaries.
func (g *Graph) Pool(id PoolID) *pool.Pool {
	return &g.pools[id]
}

// PoolsForPair returns every PoolID trading between the two given tokens,
// in registration order. The slice is owned by the graph; callers must not
// mutate it.
func (g *Graph) PoolsForPair(a, b pool.Token) []PoolID {
	return g.byPair[newPairKey(a, b)]
}

// PoolsTouching returns every PoolID with tok as one of its two tokens.
func (g *Graph) PoolsTouching(tok pool.Token) []PoolID {
	if !tok.Valid() {
		return nil
	}
	return g.byToken[tok]
}

// Quote is the pure read-only form: the output amount for amountIn of
// tokenIn at pool id, without mutating the graph. The resulting state is
// not returned; Apply produces it.
// Returns ferr.ErrUnroutable if the swap can't be serviced.
func (g *Graph) Quote(id PoolID, tokenIn pool.Token, amountIn *uint256.Int) (amountOut *uint256.Int, err error) {
	if int(id) >= len(g.pools) {
		return nil, ferr.New(ferr.Unroutable, "graph: unknown pool id")
	}
	return g.pools[id].Quote(tokenIn, amountIn)
}

// Apply speculatively mutates pool id's state for amountIn of tokenIn,
// returning a Delta the caller must later pass to Revert to restore the
// pool's prior state. Paired mutator per spec.md §4.4.
func (g *Graph) Apply(id PoolID, tokenIn pool.Token, amountIn *uint256.Int) (amountOut *uint256.Int, tokenOut pool.Token, saved pool.Delta, err error) {
	if int(id) >= len(g.pools) {
		return nil, 0, pool.Delta{}, ferr.New(ferr.Unroutable, "graph: unknown pool id")
	}
	p := &g.pools[id]
	saved = p.Snapshot()
	amountOut, tokenOut, err = p.Apply(tokenIn, amountIn)
	if err != nil {
		// Apply never partially mutates on error: pool.Apply returns early
		// before writing state whenever quoteV2/quoteV3 itself errors, so
		// no restore is needed here, but callers still hold `saved` in case
		// a future pool model diverges from that guarantee.
		return nil, 0, saved, err
	}
	return amountOut, tokenOut, saved, nil
}

// Revert restores pool id's state from a Delta previously returned by
// Apply. Unconditional: called on every exit path from a pending-tx event,
// per spec.md §4.5.
func (g *Graph) Revert(id PoolID, saved pool.Delta) {
	if int(id) >= len(g.pools) {
		return
	}
	g.pools[id].Restore(saved)
}

// ReplaceState atomically overwrites a pool's authoritative state, used by
// Refresher at a block boundary. Atomic in the sense that the worker thread
// is the sole writer and this call happens between events, never
// interleaved with a speculative Apply.
func (g *Graph) ReplaceState(id PoolID, s pool.State) {
	if int(id) >= len(g.pools) {
		return
	}
	g.pools[id].State = s
}

// Pools exposes the full pool slab for iteration (used by Refresher to
// enumerate the universe and by tests).
func (g *Graph) Pools() []pool.Pool { return g.pools }
