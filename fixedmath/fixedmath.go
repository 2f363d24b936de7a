// Package fixedmath implements the 256-bit fixed-point arithmetic the V3
// pool model needs: full-precision mul-div, integer square root, and the
// sqrt-price-X96 helpers used by get_next_sqrt_price_from_input and the
// amount0/amount1 delta formulas.
//
// All products that could exceed 2^256-1 are carried through a 512-bit
// intermediate via uint256.Int.MulDivOverflow rather than truncating, so a
// domain operation that genuinely can't be represented in 256 bits returns
// ferr.ErrOverflow instead of silently wrapping.
package fixedmath

import (
	"github.com/holiman/uint256"

	"fulcrum/ferr"
)

// Q96 is 2^96, the fixed-point base for sqrt_price_x96.
var Q96 = new(uint256.Int).Lsh(uint256.NewInt(1), 96)

// MinSqrtRatio and MaxSqrtRatio bound valid V3 sqrt-price values, per
// spec.md §3: sqrt_price_x96 must lie strictly between these.
var (
	MinSqrtRatio = uint256.NewInt(4295128739)
	MaxSqrtRatio = mustFromDecimal("1461446703485210103287273052203988822378723970342")
)

func mustFromDecimal(s string) *uint256.Int {
	v, err := uint256.FromDecimal(s)
	if err != nil {
		panic(err)
	}
	return v
}

// MulDiv computes floor(a*b/denom) with a full 512-bit intermediate
// product. Returns ferr.ErrOverflow if denom is zero or the quotient does
// not fit in 256 bits.
func MulDiv(a, b, denom *uint256.Int) (*uint256.Int, error) {
	if denom.IsZero() {
		return nil, ferr.New(ferr.Overflow, "mul_div: division by zero")
	}
	z := new(uint256.Int)
	_, overflow := z.MulDivOverflow(a, b, denom)
	if overflow {
		return nil, ferr.New(ferr.Overflow, "mul_div: result exceeds 2^256-1")
	}
	return z, nil
}

// MulDivRoundingUp computes ceil(a*b/denom), i.e. MulDiv plus one if the
// division has a nonzero remainder.
func MulDivRoundingUp(a, b, denom *uint256.Int) (*uint256.Int, error) {
	q, err := MulDiv(a, b, denom)
	if err != nil {
		return nil, err
	}
	rem := new(uint256.Int).MulMod(a, b, denom)
	if !rem.IsZero() {
		q = new(uint256.Int).AddUint64(q, 1)
		if q.IsZero() {
			// wrapped past 2^256-1
			return nil, ferr.New(ferr.Overflow, "mul_div_ceil: result exceeds 2^256-1")
		}
	}
	return q, nil
}

// Sqrt returns floor(sqrt(x)).
func Sqrt(x *uint256.Int) *uint256.Int {
	return new(uint256.Int).Sqrt(x)
}

// SqrtPriceX96 computes floor(sqrt(price) * 2^96) where price is expressed
// as a ratio numerator/denominator (token1/token0), per spec.md §4.1's
// identity sqrt_price_x96 = floor(sqrt(price)*2^96).
//
// Computed as sqrt(numerator * 2^192 / denominator) to preserve precision
// before taking the root, matching the reference implementation's approach
// of scaling before rooting rather than rooting then scaling.
func SqrtPriceX96(numerator, denominator *uint256.Int) (*uint256.Int, error) {
	q192 := new(uint256.Int).Lsh(uint256.NewInt(1), 192)
	scaled, err := MulDiv(numerator, q192, denominator)
	if err != nil {
		return nil, err
	}
	return Sqrt(scaled), nil
}

// GetNextSqrtPriceFromInput advances sqrtP by amountIn of the input token,
// per spec.md §4.1:
//
//	zeroForOne:  sqrtP' = ceil(mul_div(L*2^96, sqrtP, L*2^96 + amountIn*sqrtP))
//	!zeroForOne: sqrtP' = sqrtP + mul_div(amountIn, 2^96, L)
func GetNextSqrtPriceFromInput(sqrtP, liquidity, amountIn *uint256.Int, zeroForOne bool) (*uint256.Int, error) {
	if sqrtP.IsZero() || liquidity.IsZero() {
		return nil, ferr.New(ferr.Unroutable, "get_next_sqrt_price_from_input: zero sqrtP or liquidity")
	}
	L := liquidity
	if zeroForOne {
		numerator1 := new(uint256.Int).Lsh(L, 96)
		product, err := MulDiv(amountIn, sqrtP, uint256.NewInt(1))
		if err != nil {
			return nil, err
		}
		denom := new(uint256.Int).Add(numerator1, product)
		if denom.Lt(numerator1) {
			return nil, ferr.New(ferr.Overflow, "get_next_sqrt_price_from_input: denominator overflow")
		}
		return MulDivRoundingUp(numerator1, sqrtP, denom)
	}
	delta, err := MulDiv(amountIn, Q96, L)
	if err != nil {
		return nil, err
	}
	next := new(uint256.Int).Add(sqrtP, delta)
	if next.Lt(sqrtP) {
		return nil, ferr.New(ferr.Overflow, "get_next_sqrt_price_from_input: sqrtP overflow")
	}
	return next, nil
}

// GetAmount0Delta computes the amount of token0 between two sqrt prices,
// per the standard V3 formula: L*2^96*(sqrtB-sqrtA)/(sqrtA*sqrtB), rounded
// up or down per roundUp.
func GetAmount0Delta(sqrtA, sqrtB, liquidity *uint256.Int, roundUp bool) (*uint256.Int, error) {
	if sqrtA.Gt(sqrtB) {
		sqrtA, sqrtB = sqrtB, sqrtA
	}
	if sqrtA.IsZero() {
		return nil, ferr.New(ferr.Unroutable, "get_amount_0_delta: zero sqrtA")
	}
	numerator1 := new(uint256.Int).Lsh(liquidity, 96)
	numerator2 := new(uint256.Int).Sub(sqrtB, sqrtA)

	if roundUp {
		num, err := MulDivRoundingUp(numerator1, numerator2, sqrtB)
		if err != nil {
			return nil, err
		}
		return ceilDiv(num, sqrtA)
	}
	num, err := MulDiv(numerator1, numerator2, sqrtB)
	if err != nil {
		return nil, err
	}
	return MulDiv(num, uint256.NewInt(1), sqrtA)
}

func ceilDiv(a, b *uint256.Int) (*uint256.Int, error) {
	q, err := MulDiv(a, uint256.NewInt(1), b)
	if err != nil {
		return nil, err
	}
	rem := new(uint256.Int).Mod(a, b)
	if !rem.IsZero() {
		q = new(uint256.Int).AddUint64(q, 1)
	}
	return q, nil
}

// GetAmount1Delta computes the amount of token1 between two sqrt prices:
// L*(sqrtB-sqrtA)/2^96, rounded up or down per roundUp.
func GetAmount1Delta(sqrtA, sqrtB, liquidity *uint256.Int, roundUp bool) (*uint256.Int, error) {
	if sqrtA.Gt(sqrtB) {
		sqrtA, sqrtB = sqrtB, sqrtA
	}
	diff := new(uint256.Int).Sub(sqrtB, sqrtA)
	if roundUp {
		return MulDivRoundingUp(liquidity, diff, Q96)
	}
	return MulDiv(liquidity, diff, Q96)
}
