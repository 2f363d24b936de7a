// Package simulator speculatively applies a single pending swap to the
// graph, runs arbitrage search against the tokens it touched, and
// unconditionally restores the graph before returning. It is the only
// writer during pending-tx processing, per spec.md §4.5.
package simulator

import (
	"github.com/holiman/uint256"

	"fulcrum/ferr"
	"fulcrum/graph"
	"fulcrum/pool"
	"fulcrum/search"
)

// PendingSwap is a decoded swap observed on the sequencer feed, already
// resolved from the wire format described in spec.md §6.
type PendingSwap struct {
	PoolAddress pool.Address
	TokenIn     pool.Token
	AmountIn    *uint256.Int
}

// Run executes spec.md §4.5's five steps: resolve, snapshot, apply, search
// the affected-token set, unconditionally revert. Returns (nil, false, nil)
// when the pool isn't in the universe, when the swap itself can't be
// serviced (Unroutable — the sequencer sometimes feeds swaps that no
// longer match current state), or when the finder found nothing profitable
// enough to dispatch.
func Run(g *graph.Graph, finder *search.Finder, swap PendingSwap) (best *search.Candidate, found bool, err error) {
	id, ok := g.FindPool(swap.PoolAddress)
	if !ok {
		return nil, false, nil
	}

	p := g.Pool(id)
	tokenOut := p.OtherToken(swap.TokenIn)

	_, _, saved, applyErr := g.Apply(id, swap.TokenIn, swap.AmountIn)
	if applyErr != nil {
		if k, isFerr := ferr.KindOf(applyErr); isFerr && k == ferr.Unroutable {
			return nil, false, nil
		}
		return nil, false, applyErr
	}
	defer g.Revert(id, saved)

	hot := search.HotTokens{A: swap.TokenIn, B: tokenOut, Count: 2}
	if hot.A == hot.B {
		hot.Count = 1
	}

	best, found = finder.FindBest(g, hot)
	return best, found, nil
}
