// Package ferr defines the error kinds shared across the engine's hot path.
//
// Policy: recoverable kinds (Unroutable, RpcFailure, DeadlineExceeded) are
// absorbed inside the worker and never propagate across an event boundary.
// Overflow is always a bug but the worker still keeps running, dropping only
// the current event. FatalConfig is the sole kind that terminates the
// process, with exit code 2.
package ferr

import "errors"

// Kind tags a sentinel error with the disposition §7 assigns it.
type Kind int

const (
	// Overflow indicates a 256-bit-domain arithmetic operation would exceed
	// 2^256-1. Always a bug; the current event is abandoned, the worker
	// keeps running.
	Overflow Kind = iota
	// Unroutable indicates pool state incompatible with the requested swap
	// (zero liquidity, out-of-range sqrt-price, insufficient reserve_out).
	// Expected in normal operation; the cycle is silently skipped.
	Unroutable
	// RpcFailure indicates a transient RPC error. Refresh retries on the
	// next block; dispatch submission backs off and drops.
	RpcFailure
	// DeadlineExceeded indicates the soft per-event wall-clock budget was
	// exceeded. The best cycle found so far (if any) is used.
	DeadlineExceeded
	// FatalConfig indicates an invalid universe or key at startup. The only
	// kind that terminates the process (exit code 2).
	FatalConfig
)

func (k Kind) String() string {
	switch k {
	case Overflow:
		return "overflow"
	case Unroutable:
		return "unroutable"
	case RpcFailure:
		return "rpc_failure"
	case DeadlineExceeded:
		return "deadline_exceeded"
	case FatalConfig:
		return "fatal_config"
	default:
		return "unknown"
	}
}

// Error pairs a Kind with sentinel-comparable identity via errors.Is.
type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string { return e.Kind.String() + ": " + e.Msg }

// Is makes errors.Is(err, ferr.ErrUnroutable) etc. work against any *Error
// of the matching Kind, regardless of Msg.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// New constructs an *Error of the given kind with a message.
func New(k Kind, msg string) *Error { return &Error{Kind: k, Msg: msg} }

// Sentinels for errors.Is comparisons against a bare kind (Msg ignored).
var (
	ErrOverflow         = &Error{Kind: Overflow}
	ErrUnroutable       = &Error{Kind: Unroutable}
	ErrRpcFailure       = &Error{Kind: RpcFailure}
	ErrDeadlineExceeded = &Error{Kind: DeadlineExceeded}
	ErrFatalConfig      = &Error{Kind: FatalConfig}
)

// KindOf extracts the Kind from err if it (or something it wraps) is an
// *Error, and ok=false otherwise.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}
