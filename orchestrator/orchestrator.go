// Package orchestrator owns the graph and runs the single worker loop
// described in spec.md §5: two SPSC queues feed block and pending-tx
// events, the worker drains any queued block events before each pending-tx
// event, then processes it against the simulator/search pipeline,
// handing any dispatch off to the (separate) I/O submitter over a bounded
// outbox channel. Structure follows the teacher's main.go three-phase
// bootstrap/run shape and its ring/control packages' pinned-consumer,
// hot/cold signaling style, generalized from log-line events to the two
// event kinds this engine needs.
package orchestrator

import (
	"context"
	"time"

	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"fulcrum/dispatch"
	"fulcrum/exec"
	"fulcrum/graph"
	"fulcrum/logx"
	"fulcrum/metrics"
	"fulcrum/pool"
	"fulcrum/refresher"
	"fulcrum/rpc"
	"fulcrum/search"
	"fulcrum/simulator"
)

// BlockEvent signals a new block header has landed and a refresh is due.
type BlockEvent struct {
	Number uint64
}

// Config bundles the orchestrator's fixed collaborators and tuning knobs.
type Config struct {
	Graph     *graph.Graph
	Refresher *refresher.Refresher
	Finder    *search.Finder
	Submitter exec.Submitter
	// OutboxCapacity bounds the SPSC hand-off to the I/O thread; a full
	// outbox drops the dispatch rather than blocking the worker, per
	// spec.md §5 ("bounded outbox").
	OutboxCapacity int
}

// dispatchJob is what the worker hands to the I/O goroutine.
type dispatchJob struct {
	amountIn [16]byte
	payload  dispatch.Uint128
	flash    bool
}

// Orchestrator is the single-threaded worker plus its outbound I/O
// goroutine. Constructed once by main and never shared beyond this
// process, per spec.md §9 ("no global state").
type Orchestrator struct {
	cfg      Config
	blocks   chan BlockEvent
	swaps    chan rpc.PendingSwap
	outbox   chan dispatchJob
	stopIO   chan struct{}
	ioStopped chan struct{}
}

// New constructs an Orchestrator. Block/swap queue depths are small and
// fixed: the worker is expected to drain faster than events arrive, per
// spec.md §5's single-consumer scheduling model.
func New(cfg Config) *Orchestrator {
	if cfg.OutboxCapacity <= 0 {
		cfg.OutboxCapacity = 64
	}
	return &Orchestrator{
		cfg:       cfg,
		blocks:    make(chan BlockEvent, 16),
		swaps:     make(chan rpc.PendingSwap, 256),
		outbox:    make(chan dispatchJob, cfg.OutboxCapacity),
		stopIO:    make(chan struct{}),
		ioStopped: make(chan struct{}),
	}
}

// SubmitBlock enqueues a block event for the worker, non-blocking; a full
// queue drops the event (the next block's refresh will catch the graph up
// regardless).
func (o *Orchestrator) SubmitBlock(ev BlockEvent) {
	select {
	case o.blocks <- ev:
	default:
	}
}

// SubmitSwap enqueues a decoded pending swap for the worker, non-blocking.
func (o *Orchestrator) SubmitSwap(sw rpc.PendingSwap) {
	select {
	case o.swaps <- sw:
	default:
		metrics.DroppedOpportunities.WithLabelValues("worker_queue_full").Inc()
	}
}

// Run drains events until ctx is cancelled. It is meant to run on a single
// goroutine, ideally core-pinned by the caller (runtime.LockOSThread),
// mirroring the teacher's pinned-consumer pattern.
func (o *Orchestrator) Run(ctx context.Context) {
	go o.runIO(ctx)
	defer func() {
		close(o.stopIO)
		<-o.ioStopped
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-o.blocks:
			o.handleBlock(ctx, ev)
			o.drainBlocks(ctx)
		case sw := <-o.swaps:
			o.drainBlocks(ctx)
			o.handleSwap(sw)
		}
	}
}

// drainBlocks processes any further block events already queued before
// returning to pending-tx drain, per spec.md §5 ("a block event preempts
// by draining the block queue first").
func (o *Orchestrator) drainBlocks(ctx context.Context) {
	for {
		select {
		case ev := <-o.blocks:
			o.handleBlock(ctx, ev)
		default:
			return
		}
	}
}

func (o *Orchestrator) handleBlock(ctx context.Context, ev BlockEvent) {
	if o.cfg.Refresher == nil {
		return
	}
	if err := o.cfg.Refresher.Refresh(ctx, o.cfg.Graph); err != nil {
		logx.RefreshFailure(err)
	}
}

func (o *Orchestrator) handleSwap(wireSwap rpc.PendingSwap) {
	addr, err := rpc.DecodeAddress(wireSwap.PoolAddress)
	if err != nil {
		metrics.DroppedOpportunities.WithLabelValues("bad_address").Inc()
		logx.DroppedOpportunity("bad_address", zap.String("raw", wireSwap.PoolAddress))
		return
	}

	swap := simulator.PendingSwap{
		PoolAddress: addr,
		TokenIn:     tokenFromID(wireSwap.TokenIn),
		AmountIn:    amountFromParts(wireSwap.AmountInLo, wireSwap.AmountInHi),
	}

	start := time.Now()
	best, found, err := simulator.Run(o.cfg.Graph, o.cfg.Finder, swap)
	metrics.SearchLatency.Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.DroppedOpportunities.WithLabelValues("simulator_error").Inc()
		return
	}
	if !found {
		metrics.DroppedOpportunities.WithLabelValues("no_profitable_cycle").Inc()
		return
	}

	job := dispatchJob{
		payload: dispatch.Encode(best.Cycle),
		flash:   false, // capital-sufficiency policy is an external collaborator's concern
	}
	amountBytes := best.AmountIn.Bytes32()
	copy(job.amountIn[:], amountBytes[16:32])

	hops := "3"
	if best.Cycle.IsTwoHop() {
		hops = "2"
	}
	select {
	case o.outbox <- job:
		metrics.DispatchedCycles.WithLabelValues(hops).Inc()
		logx.L().Debug("dispatched cycle",
			zap.String("triggering_pool", pool.ChecksumHex(addr)),
			zap.String("hops", hops),
		)
	default:
		metrics.DroppedOpportunities.WithLabelValues("outbox_full").Inc()
	}
	metrics.OutboxDepth.Set(float64(len(o.outbox)))
}

// runIO is the separate I/O goroutine spec.md §5 calls out: the only
// blocking call (submission) happens here, never on the worker.
func (o *Orchestrator) runIO(ctx context.Context) {
	defer close(o.ioStopped)
	for {
		select {
		case <-o.stopIO:
			return
		case <-ctx.Done():
			return
		case job := <-o.outbox:
			if o.cfg.Submitter == nil {
				continue
			}
			if _, err := o.cfg.Submitter.Submit(ctx, job.amountIn, job.payload, job.flash); err != nil {
				logx.L().Warn("submission failed", zap.Error(err))
			}
		}
	}
}

func tokenFromID(id uint8) pool.Token { return pool.Token(id) }

func amountFromParts(lo, hi uint64) *uint256.Int {
	var b [32]byte
	for i := 0; i < 8; i++ {
		b[31-i] = byte(lo >> (8 * i))
		b[23-i] = byte(hi >> (8 * i))
	}
	return new(uint256.Int).SetBytes(b[:])
}
