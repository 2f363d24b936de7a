package pool

import (
	"github.com/holiman/uint256"

	"fulcrum/ferr"
	"fulcrum/fixedmath"
)

// Address is a 20-byte on-chain contract address.
type Address [20]byte

// StateKind tags which variant of the pool-state sum type is active.
// Dispatched by a switch on the hot path; no virtual calls, per spec.md §9.
type StateKind uint8

const (
	KindV2 StateKind = iota
	KindV3
)

// V2State holds constant-product reserves. reserve0 corresponds to the
// pool's TokenA, reserve1 to TokenB (spec.md §3: "A < B by address").
type V2State struct {
	Reserve0, Reserve1 uint256.Int
	LastUpdatedBlock   uint64
}

// V3State holds concentrated-liquidity state at the pool's current (single)
// active tick. Tick bitmap/initialized-tick crossing is not modeled or
// detected: a swap is priced against the current liquidity even if it
// would cross a tick, and is rejected as Unroutable only when the new
// sqrt price leaves the MinSqrtRatio/MaxSqrtRatio range.
type V3State struct {
	SqrtPriceX96 uint256.Int
	Liquidity    uint256.Int
	TickSpacing  int32
	Fee          uint32 // pips, e.g. 500 = 0.05%
}

// State is the tagged-union pool state. Only one of V2/V3 is meaningful,
// selected by Kind.
type State struct {
	Kind StateKind
	V2   V2State
	V3   V3State
}

// Pool is a graph edge: an on-chain liquidity pool between two tokens.
type Pool struct {
	ID       uint32 // stable index, the canonical PoolId once registered in a graph
	Address  Address
	Exchange Exchange
	TokenA   Token // TokenA < TokenB by on-chain address
	TokenB   Token
	FeeTier  uint16 // V2: fee in bps; V3: fee tier in pips
	State    State
}

// Delta is the reversible piece of a pool's state a speculative swap
// mutates — exactly what Simulator snapshots before Apply and restores on
// Revert, so the pool is byte-identical after the round trip.
type Delta struct {
	Kind StateKind
	V2   V2State
	V3   V3State
}

// Snapshot captures p's current mutable state for later Revert.
func (p *Pool) Snapshot() Delta {
	return Delta{Kind: p.State.Kind, V2: p.State.V2, V3: p.State.V3}
}

// Restore writes a previously captured Delta back onto p, undoing any
// speculative mutation.
func (p *Pool) Restore(d Delta) {
	p.State.Kind = d.Kind
	p.State.V2 = d.V2
	p.State.V3 = d.V3
}

// Quote computes the output amount for amountIn of tokenIn against p's
// current state, without mutating it. tokenIn must be one of p's two
// tokens. Returns ferr.ErrUnroutable if tokenIn is not in this pool, or if
// the pool's state cannot service the swap (zero liquidity, out-of-range
// price, insufficient reserve).
func (p *Pool) Quote(tokenIn Token, amountIn *uint256.Int) (amountOut *uint256.Int, err error) {
	inIsA, err := p.direction(tokenIn)
	if err != nil {
		return nil, err
	}
	switch p.State.Kind {
	case KindV2:
		out, _, err := quoteV2(p.State.V2, p.Exchange.V2FeeBps(), amountIn, inIsA)
		return out, err
	case KindV3:
		out, _, err := quoteV3(p.State.V3, amountIn, inIsA)
		return out, err
	default:
		return nil, ferr.New(ferr.Unroutable, "pool: unknown state kind")
	}
}

// Apply mutates p's state in place for amountIn of tokenIn, returning the
// output amount and the other token in the swap. Used by Simulator; always
// paired with a later Restore using the Delta captured before the call.
func (p *Pool) Apply(tokenIn Token, amountIn *uint256.Int) (amountOut *uint256.Int, tokenOut Token, err error) {
	inIsA, err := p.direction(tokenIn)
	if err != nil {
		return nil, 0, err
	}
	if inIsA {
		tokenOut = p.TokenB
	} else {
		tokenOut = p.TokenA
	}
	switch p.State.Kind {
	case KindV2:
		out, next, err := quoteV2(p.State.V2, p.Exchange.V2FeeBps(), amountIn, inIsA)
		if err != nil {
			return nil, tokenOut, err
		}
		p.State.V2 = next
		return out, tokenOut, nil
	case KindV3:
		out, next, err := quoteV3(p.State.V3, amountIn, inIsA)
		if err != nil {
			return nil, tokenOut, err
		}
		p.State.V3 = next
		return out, tokenOut, nil
	default:
		return nil, tokenOut, ferr.New(ferr.Unroutable, "pool: unknown state kind")
	}
}

func (p *Pool) direction(tokenIn Token) (inIsA bool, err error) {
	switch tokenIn {
	case p.TokenA:
		return true, nil
	case p.TokenB:
		return false, nil
	default:
		return false, ferr.New(ferr.Unroutable, "pool: token not in pool")
	}
}

// OtherToken returns the token on the opposite side of tokenIn.
func (p *Pool) OtherToken(tokenIn Token) Token {
	if tokenIn == p.TokenA {
		return p.TokenB
	}
	return p.TokenA
}

// quoteV2 implements spec.md §4.2:
//
//	amount_in_with_fee = amount_in * (10_000 - fee_bps)
//	amount_out = (amount_in_with_fee * reserve_out) / (reserve_in*10_000 + amount_in_with_fee)
//
// State update on success: reserve_in += amount_in; reserve_out -= amount_out.
func quoteV2(s V2State, feeBps uint64, amountIn *uint256.Int, inIsA bool) (amountOut *uint256.Int, next V2State, err error) {
	reserveIn, reserveOut := &s.Reserve0, &s.Reserve1
	if !inIsA {
		reserveIn, reserveOut = &s.Reserve1, &s.Reserve0
	}
	feeMul := uint256.NewInt(10_000 - feeBps)
	amountInWithFee, err := fixedmath.MulDiv(amountIn, feeMul, uint256.NewInt(1))
	if err != nil {
		return nil, s, err
	}
	denom := new(uint256.Int).Mul(reserveIn, uint256.NewInt(10_000))
	denom = denom.Add(denom, amountInWithFee)
	amountOut, err = fixedmath.MulDiv(amountInWithFee, reserveOut, denom)
	if err != nil {
		return nil, s, err
	}
	if amountOut.Gt(reserveOut) || amountOut.Eq(reserveOut) {
		return nil, s, ferr.New(ferr.Unroutable, "quote_v2: amount_out exceeds reserve_out")
	}
	next = s
	if inIsA {
		next.Reserve0 = *new(uint256.Int).Add(&s.Reserve0, amountIn)
		next.Reserve1 = *new(uint256.Int).Sub(&s.Reserve1, amountOut)
	} else {
		next.Reserve1 = *new(uint256.Int).Add(&s.Reserve1, amountIn)
		next.Reserve0 = *new(uint256.Int).Sub(&s.Reserve0, amountOut)
	}
	return amountOut, next, nil
}

// quoteV3 implements spec.md §4.3's single-step swap:
//
//  1. amount_in_net = amount_in * (1_000_000 - fee) / 1_000_000, rounded down
//  2. sqrt_p' = get_next_sqrt_price_from_input(sqrt_p, L, amount_in_net, zeroForOne)
//  3. amount_out via amount0/amount1 delta depending on direction
//  4. liquidity unchanged (tick crossing is not detected; only a sqrt_p'
//     outside (MinSqrtRatio, MaxSqrtRatio) is rejected as Unroutable)
func quoteV3(s V3State, amountIn *uint256.Int, zeroForOne bool) (amountOut *uint256.Int, next V3State, err error) {
	feeMul := new(uint256.Int).SetUint64(uint64(1_000_000 - s.Fee))
	amountInNet, err := fixedmath.MulDiv(amountIn, feeMul, uint256.NewInt(1_000_000))
	if err != nil {
		return nil, s, err
	}
	sqrtPNext, err := fixedmath.GetNextSqrtPriceFromInput(&s.SqrtPriceX96, &s.Liquidity, amountInNet, zeroForOne)
	if err != nil {
		return nil, s, err
	}
	if !(sqrtPNext.Gt(fixedmath.MinSqrtRatio) && sqrtPNext.Lt(fixedmath.MaxSqrtRatio)) {
		return nil, s, ferr.New(ferr.Unroutable, "quote_v3: sqrt_price out of range")
	}
	if zeroForOne {
		amountOut, err = fixedmath.GetAmount1Delta(sqrtPNext, &s.SqrtPriceX96, &s.Liquidity, false)
	} else {
		amountOut, err = fixedmath.GetAmount0Delta(&s.SqrtPriceX96, sqrtPNext, &s.Liquidity, false)
	}
	if err != nil {
		return nil, s, err
	}
	next = s
	next.SqrtPriceX96 = *sqrtPNext
	return amountOut, next, nil
}
