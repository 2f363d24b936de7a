// Package exec is the outbound submission boundary: handing a chosen
// dispatch off to the executor contract. Per spec.md §5, the only blocking
// call in the system is this one, and it is always handed off to a
// separate I/O worker via a non-blocking channel — never called from the
// graph-owning worker directly.
package exec

import (
	"context"
	"encoding/hex"

	"go.uber.org/zap"

	"fulcrum/dispatch"
	"fulcrum/logx"
)

// Submitter sends a chosen arbitrage cycle to the executor contract,
// choosing between swap and flashSwap per spec.md §6 ("the engine chooses
// flashSwap when the cycle's starting balance exceeds local inventory").
type Submitter interface {
	Submit(ctx context.Context, amountIn [16]byte, payload dispatch.Uint128, flash bool) (txHash [32]byte, err error)
}

// DryRunSubmitter logs what would have been submitted and returns a
// zeroed hash, for the CLI's --dry-run mode (spec.md §6).
type DryRunSubmitter struct{}

func (DryRunSubmitter) Submit(_ context.Context, amountIn [16]byte, payload dispatch.Uint128, flash bool) ([32]byte, error) {
	logx.L().Info("dry-run: suppressed submission",
		zap.String("amount_in", hex.EncodeToString(amountIn[:])),
		zap.Uint64("payload_lo", payload.Lo),
		zap.Uint64("payload_hi", payload.Hi),
		zap.Bool("flash", flash),
	)
	return [32]byte{}, nil
}

// RPCSubmitter submits a signed transaction calling swap/flashSwap on the
// executor contract over the same RPC endpoint used for eth_call reads.
// Signing and transaction construction are an external collaborator's
// responsibility per spec.md §9 ("real signing/submission is an external
// collaborator, not core"); this stub defines the seam that collaborator
// fills in, and is not itself exercised on the hot path.
type RPCSubmitter struct {
	// Send performs the actual signed call; supplied by the collaborator
	// that owns key management. nil causes Submit to return immediately
	// without sending anything (safe default until wired).
	Send func(ctx context.Context, amountIn [16]byte, payload dispatch.Uint128, flash bool) ([32]byte, error)
}

func (s RPCSubmitter) Submit(ctx context.Context, amountIn [16]byte, payload dispatch.Uint128, flash bool) ([32]byte, error) {
	if s.Send == nil {
		return [32]byte{}, nil
	}
	return s.Send(ctx, amountIn, payload, flash)
}
