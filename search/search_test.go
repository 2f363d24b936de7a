package search

import (
	"testing"
	"time"

	"github.com/holiman/uint256"

	"fulcrum/graph"
	"fulcrum/pool"
)

func mkV2(addr byte, exch pool.Exchange, a, b pool.Token, r0 uint64, r1 string) pool.Pool {
	p := pool.Pool{Exchange: exch, TokenA: a, TokenB: b, FeeTier: uint16(exch.V2FeeBps())}
	p.Address[0] = addr
	p.State.Kind = pool.KindV2
	p.State.V2.Reserve0 = *uint256.NewInt(r0)
	p.State.V2.Reserve1 = *uint256.MustFromDecimal(r1)
	return p
}

// Two pools on the same pair at different implied prices: a 2-cycle
// through them should surface a positive-profit candidate.
func TestFindBestDiscoversProfitable2Cycle(t *testing.T) {
	g := graph.New()
	// Cheap WETH here (pool skewed toward giving up WETH for USDC)...
	g.AddPool(mkV2(1, pool.Sushi, pool.USDC, pool.WETH, 1_000_000_000_000, "100000000000000000000"))
	// ...expensive WETH here (pool skewed the other way), so routing
	// USDC->WETH->USDC across the two pools nets a profit.
	g.AddPool(mkV2(2, pool.Camelot, pool.USDC, pool.WETH, 1_500_000_000_000, "100000000000000000000"))

	f := New(uint256.NewInt(1), 10*time.Millisecond)
	hot := HotTokens{A: pool.USDC, B: pool.WETH, Count: 2}

	best, ok := f.FindBest(g, hot)
	if !ok {
		t.Fatal("expected a profitable candidate")
	}
	if best.Profit.IsZero() || best.IsNeg {
		t.Fatalf("expected positive profit, got %s (neg=%v)", best.Profit, best.IsNeg)
	}
}

func TestFindBestNoneWhenNoPoolsExist(t *testing.T) {
	g := graph.New()
	f := New(uint256.NewInt(1), 10*time.Millisecond)
	hot := HotTokens{A: pool.USDC, B: pool.WETH, Count: 2}

	_, ok := f.FindBest(g, hot)
	if ok {
		t.Fatal("expected no candidate in an empty graph")
	}
}

func TestFindBestRespectsMinProfitThreshold(t *testing.T) {
	g := graph.New()
	g.AddPool(mkV2(1, pool.Sushi, pool.USDC, pool.WETH, 1_000_000_000_000, "100000000000000000000"))
	g.AddPool(mkV2(2, pool.Camelot, pool.USDC, pool.WETH, 1_000_001_000_000, "100000000000000000000"))

	// A threshold far above any achievable profit on this tiny skew.
	huge, _ := uint256.FromDecimal("1000000000000000000000000")
	f := New(huge, 10*time.Millisecond)
	hot := HotTokens{A: pool.USDC, B: pool.WETH, Count: 2}

	_, ok := f.FindBest(g, hot)
	if ok {
		t.Fatal("expected threshold to suppress the candidate")
	}
}

// Deadline handling (scenario 6, shrunk to keep the test fast): a Finder
// given a near-zero deadline against a sizeable pool set must still return
// promptly, dispatching best-found-so-far or nothing rather than blocking.
func TestFindBestHonorsDeadline(t *testing.T) {
	g := graph.New()
	for i := 0; i < 50; i++ {
		g.AddPool(mkV2(byte(i+1), pool.Sushi, pool.USDC, pool.WETH, 1_000_000_000_000, "100000000000000000000"))
	}
	f := New(uint256.NewInt(1), 1*time.Nanosecond)
	hot := HotTokens{A: pool.USDC, B: pool.WETH, Count: 2}

	start := time.Now()
	f.FindBest(g, hot)
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Fatalf("FindBest took too long under a near-zero deadline: %s", elapsed)
	}
}
