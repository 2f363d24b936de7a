// Package refresher issues the block-boundary eth_call that re-syncs
// every pool's on-chain state, per spec.md §4.7, grounded on the
// teacher's syncharvester package (batched RPC, retain-previous-state on
// failure) and on original_source/price.rs's getPoolData wire shape
// (confirmed byte-for-byte, including the test vector decode_v3_pool_data
// exercises).
package refresher

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/holiman/uint256"

	"fulcrum/ferr"
	"fulcrum/graph"
	"fulcrum/logx"
	"fulcrum/metrics"
	"fulcrum/pool"
	"fulcrum/rpc"
)

// ViewerAddress is the compiled-in V3PoolViewer contract address this
// refresher calls. New copies its current value into each Refresher it
// builds, so a deployment overrides it by assigning it before calling New.
var ViewerAddress = [20]byte{0xe8, 0x29, 0x1c, 0x77, 0xc9, 0xed, 0x8b, 0x92, 0x91, 0x47, 0x78, 0x4b, 0x8f, 0xc3, 0x84, 0x35, 0x82, 0xe9, 0x8e, 0xa8}

const (
	v3RecordSize = 36 // 20B sqrt_price_x96 (left-padded to 160 bits) + 16B liquidity
	v2RecordSize = 32 // 16B reserve0 + 16B reserve1
)

// Refresher re-syncs pool state at block boundaries. It holds the fixed
// split of the universe into V3/V2 pool id lists, computed once at
// startup, and reuses them on every refresh (the universe itself never
// changes after construction, only pool state does).
type Refresher struct {
	Client  rpc.Client
	viewer  [20]byte
	v3Ids   []graph.PoolID
	v2Ids   []graph.PoolID
}

// New builds a Refresher by splitting g's current pools by variant.
func New(client rpc.Client, g *graph.Graph) *Refresher {
	r := &Refresher{Client: client, viewer: ViewerAddress}
	for i, p := range g.Pools() {
		id := graph.PoolID(i)
		switch p.State.Kind {
		case pool.KindV3:
			r.v3Ids = append(r.v3Ids, id)
		case pool.KindV2:
			r.v2Ids = append(r.v2Ids, id)
		}
	}
	return r
}

// Refresh performs one block-boundary sync: a single eth_call batching
// every pool's address, decoding the packed response, and atomically
// overwriting the graph's pool-state arrays (spec.md §4.7 step 4). On
// failure, the graph is left untouched and the failure is logged/counted,
// never partially applied.
func (r *Refresher) Refresh(ctx context.Context, g *graph.Graph) error {
	calldata, err := r.buildCall(g)
	if err != nil {
		metrics.RefreshFailures.Inc()
		logx.RefreshFailure(err)
		return err
	}

	raw, err := r.Client.EthCall(ctx, r.viewer, calldata)
	if err != nil {
		metrics.RefreshFailures.Inc()
		logx.RefreshFailure(err)
		return err
	}

	v3Data, v2Data, err := decodeTuple(raw)
	if err != nil {
		metrics.RefreshFailures.Inc()
		logx.RefreshFailure(err)
		return err
	}
	if len(v3Data) != len(r.v3Ids)*v3RecordSize || len(v2Data) != len(r.v2Ids)*v2RecordSize {
		err := ferr.New(ferr.RpcFailure, "refresher: short or malformed getPoolData response")
		metrics.RefreshFailures.Inc()
		logx.RefreshFailure(err)
		return err
	}

	for i, id := range r.v3Ids {
		off := i * v3RecordSize
		sqrtP := new(uint256.Int).SetBytes(v3Data[off : off+20])
		liquidity := new(uint256.Int).SetBytes(v3Data[off+20 : off+36])
		p := g.Pool(id)
		next := p.State
		next.V3.SqrtPriceX96 = *sqrtP
		next.V3.Liquidity = *liquidity
		g.ReplaceState(id, next)
	}
	for i, id := range r.v2Ids {
		off := i * v2RecordSize
		reserve0 := new(uint256.Int).SetBytes(v2Data[off : off+16])
		reserve1 := new(uint256.Int).SetBytes(v2Data[off+16 : off+32])
		p := g.Pool(id)
		next := p.State
		next.V2.Reserve0 = *reserve0
		next.V2.Reserve1 = *reserve1
		g.ReplaceState(id, next)
	}
	return nil
}

// buildCall ABI-encodes getPoolData(bytes v3Pools, bytes v2Pools): a
// 4-byte selector followed by the standard dynamic-bytes-pair encoding.
func (r *Refresher) buildCall(g *graph.Graph) ([]byte, error) {
	v3Addrs := make([]byte, 0, len(r.v3Ids)*20)
	for _, id := range r.v3Ids {
		a := g.Pool(id).Address
		v3Addrs = append(v3Addrs, a[:]...)
	}
	v2Addrs := make([]byte, 0, len(r.v2Ids)*20)
	for _, id := range r.v2Ids {
		a := g.Pool(id).Address
		v2Addrs = append(v2Addrs, a[:]...)
	}
	return encodeGetPoolDataCall(v3Addrs, v2Addrs), nil
}

// getPoolDataSelector is the 4-byte Keccak-256 selector for
// getPoolData(bytes,bytes).
var getPoolDataSelector = [4]byte{0x42, 0x6e, 0x0d, 0x5d}

func encodeGetPoolDataCall(v3Pools, v2Pools []byte) []byte {
	out := make([]byte, 4, 4+32*2+32*2+64)
	copy(out, getPoolDataSelector[:])

	// two dynamic params -> two head words (offsets), then two tails.
	headOffset1 := uint64(64) // after the two head words
	tail1Len := paddedLen(len(v3Pools))
	headOffset2 := headOffset1 + 32 + uint64(tail1Len)

	out = append(out, word(headOffset1)...)
	out = append(out, word(headOffset2)...)
	out = append(out, encodeDynamicBytes(v3Pools)...)
	out = append(out, encodeDynamicBytes(v2Pools)...)
	return out
}

func paddedLen(n int) int {
	padded := n
	if rem := padded % 32; rem != 0 {
		padded += 32 - rem
	}
	return padded
}

func word(v uint64) []byte {
	var w [32]byte
	binary.BigEndian.PutUint64(w[24:], v)
	return w[:]
}

func encodeDynamicBytes(b []byte) []byte {
	out := append([]byte{}, word(uint64(len(b)))...)
	out = append(out, b...)
	if rem := len(b) % 32; rem != 0 {
		out = append(out, make([]byte, 32-rem)...)
	}
	return out
}

// decodeTuple decodes the ABI-encoded (bytes, bytes) return value into its
// two dynamic byte slices.
func decodeTuple(raw []byte) (v3Data, v2Data []byte, err error) {
	if len(raw) < 64 {
		return nil, nil, ferr.New(ferr.RpcFailure, "refresher: response shorter than two head words")
	}
	off1 := binary.BigEndian.Uint64(raw[24:32])
	off2 := binary.BigEndian.Uint64(raw[56:64])
	v3Data, err = decodeDynamicBytes(raw, off1)
	if err != nil {
		return nil, nil, err
	}
	v2Data, err = decodeDynamicBytes(raw, off2)
	if err != nil {
		return nil, nil, err
	}
	return v3Data, v2Data, nil
}

func decodeDynamicBytes(raw []byte, offset uint64) ([]byte, error) {
	if offset+32 > uint64(len(raw)) {
		return nil, ferr.New(ferr.RpcFailure, fmt.Sprintf("refresher: dynamic-bytes length word out of range at %d", offset))
	}
	length := binary.BigEndian.Uint64(raw[offset+24 : offset+32])
	start := offset + 32
	if start+length > uint64(len(raw)) {
		return nil, ferr.New(ferr.RpcFailure, fmt.Sprintf("refresher: dynamic-bytes payload out of range at %d len %d", start, length))
	}
	return raw[start : start+length], nil
}
