package fixedmath

import (
	"testing"

	"github.com/holiman/uint256"
)

func TestMulDivExact(t *testing.T) {
	a := uint256.NewInt(1_000_000)
	b := uint256.NewInt(3)
	d := uint256.NewInt(7)
	got, err := MulDiv(a, b, d)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := uint256.NewInt((1_000_000 * 3) / 7)
	if !got.Eq(want) {
		t.Fatalf("MulDiv = %s, want %s", got, want)
	}
}

func TestMulDivRoundingUp(t *testing.T) {
	a := uint256.NewInt(10)
	b := uint256.NewInt(1)
	d := uint256.NewInt(3)
	got, err := MulDivRoundingUp(a, b, d)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Eq(uint256.NewInt(4)) { // ceil(10/3) = 4
		t.Fatalf("MulDivRoundingUp = %s, want 4", got)
	}
}

func TestMulDivDivisionByZero(t *testing.T) {
	if _, err := MulDiv(uint256.NewInt(1), uint256.NewInt(1), uint256.NewInt(0)); err == nil {
		t.Fatal("expected overflow error on division by zero")
	}
}

func TestSqrtPerfectSquare(t *testing.T) {
	x := uint256.NewInt(144)
	if got := Sqrt(x); !got.Eq(uint256.NewInt(12)) {
		t.Fatalf("Sqrt(144) = %s, want 12", got)
	}
}

func TestSqrtPriceX96EqualPrice(t *testing.T) {
	// price = 1 (token1/token0 = 1) => sqrt_price_x96 = 2^96 exactly.
	one := uint256.NewInt(1)
	got, err := SqrtPriceX96(one, one)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Eq(Q96) {
		t.Fatalf("SqrtPriceX96(1,1) = %s, want Q96 = %s", got, Q96)
	}
}

func TestGetNextSqrtPriceFromInputZeroLiquidity(t *testing.T) {
	_, err := GetNextSqrtPriceFromInput(uint256.NewInt(1), uint256.NewInt(0), uint256.NewInt(1), true)
	if err == nil {
		t.Fatal("expected Unroutable error for zero liquidity")
	}
}
