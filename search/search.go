// Package search enumerates 2- and 3-hop arbitrage cycles touching a
// "hot" token set, evaluates each at a fixed grid of candidate input
// amounts, and returns the most profitable dispatch candidate found
// within the event's wall-clock budget, per spec.md §4.6.
package search

import (
	"time"

	"github.com/holiman/uint256"

	"fulcrum/dispatch"
	"fulcrum/graph"
	"fulcrum/pool"
)

// BaseTokens are the anchors 3-cycles are rooted on, per spec.md §4.6.
var BaseTokens = [2]pool.Token{pool.USDC, pool.WETH}

// DefaultGrid is the fixed set of candidate input amounts (in base-token
// smallest units) profit is sampled at, per spec.md §4.6's worked example.
// USDC (6 decimals): 50, 500, 5_000, 50_000 USDC-equivalent.
var DefaultGrid = []*uint256.Int{
	new(uint256.Int).Mul(uint256.NewInt(50), uint256.NewInt(1_000_000)),
	new(uint256.Int).Mul(uint256.NewInt(500), uint256.NewInt(1_000_000)),
	new(uint256.Int).Mul(uint256.NewInt(5_000), uint256.NewInt(1_000_000)),
	new(uint256.Int).Mul(uint256.NewInt(50_000), uint256.NewInt(1_000_000)),
}

// HotTokens is the up-to-2-token set a simulated swap touched.
type HotTokens struct {
	A, B  pool.Token
	Count int
}

func (h HotTokens) touches(tok pool.Token) bool {
	if h.Count >= 1 && h.A == tok {
		return true
	}
	if h.Count >= 2 && h.B == tok {
		return true
	}
	return false
}

// hop is one leg of a candidate cycle.
type hop struct {
	id       graph.PoolID
	tokenIn  pool.Token
	tokenOut pool.Token
}

// Candidate is the best dispatch found for one input-amount evaluation of
// one cycle: the cycle shape, the chosen input amount, and the resulting
// profit (may be negative; callers must check against the threshold).
type Candidate struct {
	Cycle     dispatch.Cycle
	AmountIn  *uint256.Int
	Profit    *uint256.Int // magnitude; the sign is carried by IsNeg
	IsNeg     bool
	twoHop    bool
}

// Finder runs the grid search against a graph, bounded by a deadline.
type Finder struct {
	MinProfit   *uint256.Int
	Grid        []*uint256.Int
	Deadline    time.Duration
}

// New builds a Finder with the package default grid.
func New(minProfit *uint256.Int, deadline time.Duration) *Finder {
	return &Finder{MinProfit: minProfit, Grid: DefaultGrid, Deadline: deadline}
}

// FindBest enumerates every 2-cycle through the hot tokens and every
// 3-cycle anchored on a base token that touches a hot pool, evaluates each
// at the configured grid, and returns the best candidate whose profit
// exceeds MinProfit. Stops evaluating cycles once Deadline elapses and
// applies the same threshold to the best found so far, per spec.md §5.
func (f *Finder) FindBest(g *graph.Graph, hot HotTokens) (best *Candidate, ok bool) {
	deadline := time.Now().Add(f.Deadline)

	for _, cyc := range f.enumerate2Cycles(g, hot) {
		if time.Now().After(deadline) {
			break
		}
		if c := f.evaluateCycle(g, cyc, true); c != nil && betterThan(c, best) {
			best = c
		}
	}
	for _, cyc := range f.enumerate3Cycles(g, hot) {
		if time.Now().After(deadline) {
			break
		}
		if c := f.evaluateCycle(g, cyc, false); c != nil && betterThan(c, best) {
			best = c
		}
	}

	if best == nil || best.IsNeg || !best.Profit.Gt(f.MinProfit) {
		return nil, false
	}
	return best, true
}

// betterThan implements the tie-break: a non-negative profit beats a
// negative one, higher profit wins, and on an exact profit tie a 2-hop
// beats a 3-hop. On a tie with the same hop count the incumbent (the
// candidate found earlier) is kept; the pools' exchange kinds (V2-style
// versus V3) are not compared.
func betterThan(c, incumbent *Candidate) bool {
	if incumbent == nil {
		return true
	}
	if c.IsNeg != incumbent.IsNeg {
		return !c.IsNeg
	}
	if c.IsNeg {
		return false
	}
	if !c.Profit.Eq(incumbent.Profit) {
		return c.Profit.Gt(incumbent.Profit)
	}
	if c.twoHop != incumbent.twoHop {
		return c.twoHop
	}
	return false
}

// enumerate2Cycles finds, for each hot token T and neighbor U reachable via
// a hot pool, every other pool on the pair (T,U) to close the cycle.
func (f *Finder) enumerate2Cycles(g *graph.Graph, hot HotTokens) [][2]hop {
	var cycles [][2]hop
	for _, t := range hot.tokens() {
		for _, p1 := range g.PoolsTouching(t) {
			pl := g.Pool(p1)
			u := pl.OtherToken(t)
			for _, p2 := range g.PoolsForPair(t, u) {
				if p2 == p1 {
					continue
				}
				cycles = append(cycles, [2]hop{
					{id: p1, tokenIn: t, tokenOut: u},
					{id: p2, tokenIn: u, tokenOut: t},
				})
			}
		}
	}
	return cycles
}

// enumerate3Cycles finds cycles B->X->Y->B anchored on a base token, where
// at least one of the three pools touches a hot token.
func (f *Finder) enumerate3Cycles(g *graph.Graph, hot HotTokens) [][3]hop {
	var cycles [][3]hop
	for _, b := range BaseTokens {
		for _, p1 := range g.PoolsTouching(b) {
			pl1 := g.Pool(p1)
			x := pl1.OtherToken(b)
			for _, p2 := range g.PoolsTouching(x) {
				if p2 == p1 {
					continue
				}
				pl2 := g.Pool(p2)
				y := pl2.OtherToken(x)
				if y == b {
					continue // degenerates to a 2-cycle, already covered
				}
				for _, p3 := range g.PoolsForPair(y, b) {
					if p3 == p1 || p3 == p2 {
						continue
					}
					if !hot.touches(b) && !hot.touches(x) && !hot.touches(y) &&
						!poolTouchesHot(g, p1, hot) && !poolTouchesHot(g, p2, hot) && !poolTouchesHot(g, p3, hot) {
						continue
					}
					cycles = append(cycles, [3]hop{
						{id: p1, tokenIn: b, tokenOut: x},
						{id: p2, tokenIn: x, tokenOut: y},
						{id: p3, tokenIn: y, tokenOut: b},
					})
				}
			}
		}
	}
	return cycles
}

func poolTouchesHot(g *graph.Graph, id graph.PoolID, hot HotTokens) bool {
	p := g.Pool(id)
	return hot.touches(p.TokenA) || hot.touches(p.TokenB)
}

func (h HotTokens) tokens() []pool.Token {
	switch h.Count {
	case 2:
		return []pool.Token{h.A, h.B}
	case 1:
		return []pool.Token{h.A}
	default:
		return nil
	}
}

// evaluateCycle samples f.Grid against the given hop sequence (2 or 3
// hops) and returns the most profitable non-negative sample; if every
// sample that quoted ran at a loss, it returns the first of them. Returns
// nil if no grid amount quoted through every hop of the cycle.
func (f *Finder) evaluateCycle(g *graph.Graph, hops any, twoHop bool) *Candidate {
	var seq []hop
	switch h := hops.(type) {
	case [2]hop:
		seq = h[:]
	case [3]hop:
		seq = h[:]
	default:
		return nil
	}

	var best *Candidate
	for _, amountIn := range f.Grid {
		out := amountIn
		ok := true
		for _, leg := range seq {
			var err error
			out, err = g.Quote(leg.id, leg.tokenIn, out)
			if err != nil {
				ok = false
				break
			}
		}
		if !ok {
			continue
		}
		profit := new(uint256.Int)
		neg := false
		if out.Gt(amountIn) {
			profit.Sub(out, amountIn)
		} else {
			profit.Sub(amountIn, out)
			neg = true
		}
		if best == nil || (!neg && (best.IsNeg || profit.Gt(best.Profit))) {
			best = &Candidate{
				Cycle:    buildCycle(g, seq),
				AmountIn: amountIn,
				Profit:   profit,
				IsNeg:    neg,
				twoHop:   twoHop,
			}
		}
	}
	return best
}

func buildCycle(g *graph.Graph, seq []hop) dispatch.Cycle {
	var c dispatch.Cycle
	c.Tokens[2] = dispatch.NoThirdHop
	for i, leg := range seq {
		p := g.Pool(leg.id)
		c.Exchanges[i] = p.Exchange
		c.Tokens[i] = uint8(leg.tokenIn)
		c.Fees[i] = p.FeeTier
	}
	return c
}
