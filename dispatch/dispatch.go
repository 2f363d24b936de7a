// Package dispatch packs and unpacks the 128-bit payload the executor
// contract consumes alongside amountIn, per spec.md §4.8.
package dispatch

import "fulcrum/pool"

// NoThirdHop is the token2 sentinel marking a 2-hop cycle.
const NoThirdHop uint8 = 0xFF

// Uint128 is a little-endian two-word 128-bit integer: Lo holds bits
// 0..63, Hi holds bits 64..127. A plain uint64 pair stands in for the
// executor's uint128 parameter since every packed field fits within one
// word or the other and the hot path never does arithmetic on the whole
// 128-bit value, only bit packing/unpacking.
type Uint128 struct {
	Lo, Hi uint64
}

// Cycle is a decoded (or to-be-encoded) arbitrage path: 2 or 3 pool hops,
// the exchange and token at each step, and each hop's fee.
//
// For a 2-hop cycle, Tokens[2] must be NoThirdHop; Encode still packs
// Exchanges[2]/Fees[2] as given (zero when built by search). On decode,
// Tokens[2]==NoThirdHop signals a 2-hop and callers should disregard
// index 2 of the other arrays.
type Cycle struct {
	Exchanges [3]pool.Exchange
	Tokens    [3]uint8 // token0 is the base/anchor token
	Fees      [3]uint16
}

// Encode packs c into the payload's bit layout:
//
//	0..7    exchange0
//	8..15   exchange1
//	16..23  exchange2
//	24..31  token0 (base)
//	32..39  token1
//	40..47  token2 (0xFF = 2-hop sentinel)
//	48..63  fee0
//	64..79  fee1
//	80..95  fee2
//	96..127 reserved (0)
func Encode(c Cycle) Uint128 {
	lo := uint64(byte(c.Exchanges[0])) |
		uint64(byte(c.Exchanges[1]))<<8 |
		uint64(byte(c.Exchanges[2]))<<16 |
		uint64(c.Tokens[0])<<24 |
		uint64(c.Tokens[1])<<32 |
		uint64(c.Tokens[2])<<40 |
		uint64(c.Fees[0])<<48
	hi := uint64(c.Fees[1]) | uint64(c.Fees[2])<<16
	return Uint128{Lo: lo, Hi: hi}
}

// Decode unpacks a payload produced by Encode (or received off the wire)
// back into its Cycle fields.
func Decode(p Uint128) Cycle {
	var c Cycle
	c.Exchanges[0] = pool.Exchange(byte(p.Lo))
	c.Exchanges[1] = pool.Exchange(byte(p.Lo >> 8))
	c.Exchanges[2] = pool.Exchange(byte(p.Lo >> 16))
	c.Tokens[0] = uint8(p.Lo >> 24)
	c.Tokens[1] = uint8(p.Lo >> 32)
	c.Tokens[2] = uint8(p.Lo >> 40)
	c.Fees[0] = uint16(p.Lo >> 48)
	c.Fees[1] = uint16(p.Hi)
	c.Fees[2] = uint16(p.Hi >> 16)
	return c
}

// IsTwoHop reports whether c (as decoded) represents a 2-hop cycle.
func (c Cycle) IsTwoHop() bool { return c.Tokens[2] == NoThirdHop }
