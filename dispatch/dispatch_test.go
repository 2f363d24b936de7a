package dispatch

import (
	"testing"

	"fulcrum/pool"
)

// Scenario 1 (spec.md §8): payload 0x000001f401f4ff0201000101 decodes to
// exchanges=[1,1,0], tokens=[1,2,255], fees=[500,500,0].
func TestDecodeScenario1(t *testing.T) {
	p := Uint128{Lo: 0x1f4ff0201000101, Hi: 0x1f4}
	c := Decode(p)

	wantExchanges := [3]pool.Exchange{pool.Camelot, pool.Camelot, pool.UniswapV3}
	if c.Exchanges != wantExchanges {
		t.Fatalf("exchanges = %v, want %v", c.Exchanges, wantExchanges)
	}
	wantTokens := [3]uint8{1, 2, 255}
	if c.Tokens != wantTokens {
		t.Fatalf("tokens = %v, want %v", c.Tokens, wantTokens)
	}
	wantFees := [3]uint16{500, 500, 0}
	if c.Fees != wantFees {
		t.Fatalf("fees = %v, want %v", c.Fees, wantFees)
	}
	if !c.IsTwoHop() {
		t.Fatal("expected IsTwoHop true for token2=255")
	}
}

// Scenario 4 (spec.md §8): round-trip encode/decode.
func TestEncodeDecodeRoundTrip(t *testing.T) {
	c := Cycle{
		Exchanges: [3]pool.Exchange{pool.UniswapV3, pool.UniswapV3, pool.Chronos},
		Tokens:    [3]uint8{0, 1, 2},
		Fees:      [3]uint16{500, 500, 100},
	}
	got := Decode(Encode(c))
	if got != c {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, c)
	}
}

func TestEncodeTwoHopSentinel(t *testing.T) {
	c := Cycle{
		Exchanges: [3]pool.Exchange{pool.Sushi, pool.Camelot, 0},
		Tokens:    [3]uint8{0, 3, NoThirdHop},
		Fees:      [3]uint16{30, 30, 0},
	}
	got := Decode(Encode(c))
	if !got.IsTwoHop() {
		t.Fatal("expected IsTwoHop true")
	}
	if got.Tokens[1] != 3 || got.Exchanges[1] != pool.Camelot {
		t.Fatalf("unexpected decode: %+v", got)
	}
}
