package graph

import (
	"testing"

	"github.com/holiman/uint256"

	"fulcrum/pool"
)

func mkV2(addr byte, exch pool.Exchange, a, b pool.Token, r0, r1 uint64) pool.Pool {
	p := pool.Pool{Exchange: exch, TokenA: a, TokenB: b}
	p.Address[0] = addr
	p.State.Kind = pool.KindV2
	p.State.V2.Reserve0 = *uint256.NewInt(r0)
	p.State.V2.Reserve1 = *uint256.NewInt(r1)
	return p
}

func TestFindPoolAndPairLookup(t *testing.T) {
	g := New()
	id1 := g.AddPool(mkV2(1, pool.Sushi, pool.USDC, pool.WETH, 1_000_000, 1_000_000))
	id2 := g.AddPool(mkV2(2, pool.Camelot, pool.USDC, pool.WETH, 2_000_000, 2_000_000))

	got, ok := g.FindPool(g.Pool(id1).Address)
	if !ok || got != id1 {
		t.Fatalf("FindPool = %v,%v want %v,true", got, ok, id1)
	}

	pairPools := g.PoolsForPair(pool.USDC, pool.WETH)
	if len(pairPools) != 2 {
		t.Fatalf("PoolsForPair = %v, want 2 entries", pairPools)
	}
	// order-independence of the pair key
	samePools := g.PoolsForPair(pool.WETH, pool.USDC)
	if len(samePools) != 2 {
		t.Fatalf("PoolsForPair reversed args = %v, want 2 entries", samePools)
	}
	_ = id2
}

func TestPoolsTouching(t *testing.T) {
	g := New()
	g.AddPool(mkV2(1, pool.Sushi, pool.USDC, pool.WETH, 1_000_000, 1_000_000))
	g.AddPool(mkV2(2, pool.Camelot, pool.WETH, pool.ARB, 1_000_000, 1_000_000))

	if got := len(g.PoolsTouching(pool.WETH)); got != 2 {
		t.Fatalf("PoolsTouching(WETH) = %d, want 2", got)
	}
	if got := len(g.PoolsTouching(pool.DAI)); got != 0 {
		t.Fatalf("PoolsTouching(DAI) = %d, want 0", got)
	}
}

func TestQuoteIsPureAndDeterministic(t *testing.T) {
	g := New()
	id := g.AddPool(mkV2(1, pool.Sushi, pool.USDC, pool.WETH, 1_000_000_000, 1_000_000_000))

	before := g.Pool(id).Snapshot()
	out1, err := g.Quote(id, pool.USDC, uint256.NewInt(1000))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out2, err := g.Quote(id, pool.USDC, uint256.NewInt(1000))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !out1.Eq(out2) {
		t.Fatalf("Quote not deterministic: %s vs %s", out1, out2)
	}
	after := g.Pool(id).Snapshot()
	if after.V2.Reserve0 != before.V2.Reserve0 || after.V2.Reserve1 != before.V2.Reserve1 {
		t.Fatal("Quote mutated pool state")
	}
}

func TestApplyThenRevertRestoresGraph(t *testing.T) {
	g := New()
	id := g.AddPool(mkV2(1, pool.Sushi, pool.USDC, pool.WETH, 1_000_000_000, 1_000_000_000))

	before := g.Pool(id).Snapshot()
	_, _, saved, err := g.Apply(id, pool.USDC, uint256.NewInt(5000))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	mutated := g.Pool(id).Snapshot()
	if mutated.V2.Reserve0 == before.V2.Reserve0 {
		t.Fatal("expected Apply to mutate reserve0")
	}
	g.Revert(id, saved)
	after := g.Pool(id).Snapshot()
	if after.V2.Reserve0 != before.V2.Reserve0 || after.V2.Reserve1 != before.V2.Reserve1 {
		t.Fatal("Revert did not restore pre-swap state")
	}
}
