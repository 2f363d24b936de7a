package exec

import (
	"context"
	"testing"

	"fulcrum/dispatch"
)

func TestDryRunSubmitterReturnsZeroHash(t *testing.T) {
	var s DryRunSubmitter
	hash, err := s.Submit(context.Background(), [16]byte{1}, dispatch.Uint128{Lo: 1, Hi: 1}, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hash != ([32]byte{}) {
		t.Fatalf("expected zero hash, got %x", hash)
	}
}

func TestRPCSubmitterWithoutSendIsNoop(t *testing.T) {
	var s RPCSubmitter
	hash, err := s.Submit(context.Background(), [16]byte{}, dispatch.Uint128{}, true)
	if err != nil || hash != ([32]byte{}) {
		t.Fatalf("expected no-op zero result, got hash=%x err=%v", hash, err)
	}
}

func TestRPCSubmitterDelegatesToSend(t *testing.T) {
	called := false
	s := RPCSubmitter{Send: func(ctx context.Context, amountIn [16]byte, payload dispatch.Uint128, flash bool) ([32]byte, error) {
		called = true
		return [32]byte{0xAA}, nil
	}}
	hash, err := s.Submit(context.Background(), [16]byte{}, dispatch.Uint128{}, false)
	if err != nil || !called || hash[0] != 0xAA {
		t.Fatalf("expected delegated call, got hash=%x called=%v err=%v", hash, called, err)
	}
}
