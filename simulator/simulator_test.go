package simulator

import (
	"testing"
	"time"

	"github.com/holiman/uint256"

	"fulcrum/graph"
	"fulcrum/pool"
	"fulcrum/search"
)

func mkV3(addr byte, a, b pool.Token, sqrtP, liquidity string, fee uint32) pool.Pool {
	p := pool.Pool{Exchange: pool.UniswapV3, TokenA: a, TokenB: b, FeeTier: uint16(fee)}
	p.Address[0] = addr
	p.State.Kind = pool.KindV3
	sp, _ := uint256.FromDecimal(sqrtP)
	l, _ := uint256.FromDecimal(liquidity)
	p.State.V3.SqrtPriceX96 = *sp
	p.State.V3.Liquidity = *l
	p.State.V3.Fee = fee
	return p
}

// Scenario 5 (spec.md §8): after Run, the simulated pool's state must be
// byte-identical to its pre-event snapshot, regardless of whether a
// profitable cycle was found.
func TestSimulatorRestoresStateAfterRun(t *testing.T) {
	g := graph.New()
	id := g.AddPool(mkV3(1, pool.ARB, pool.WETH,
		"2910392625228200618462908431436", "3055895843484221589591460", 500))

	before := g.Pool(id).Snapshot()

	finder := search.New(uint256.NewInt(1), 200*time.Microsecond)
	swap := PendingSwap{
		PoolAddress: g.Pool(id).Address,
		TokenIn:     pool.ARB,
		AmountIn:    new(uint256.Int).Mul(uint256.NewInt(2), uint256.NewInt(1_000_000_000_000_000_000)),
	}

	if _, _, err := Run(g, finder, swap); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	after := g.Pool(id).Snapshot()
	if after.V3.SqrtPriceX96 != before.V3.SqrtPriceX96 || after.V3.Liquidity != before.V3.Liquidity {
		t.Fatal("simulator left the graph mutated after Run returned")
	}
}

func TestSimulatorUnknownPoolIsNoop(t *testing.T) {
	g := graph.New()
	finder := search.New(uint256.NewInt(1), 200*time.Microsecond)
	swap := PendingSwap{TokenIn: pool.ARB, AmountIn: uint256.NewInt(1)}

	best, found, err := Run(g, finder, swap)
	if err != nil || found || best != nil {
		t.Fatalf("expected no-op for unknown pool, got best=%v found=%v err=%v", best, found, err)
	}
}
