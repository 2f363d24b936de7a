// Fulcrum is a microsecond-budget arbitrage engine for the token set and
// pool set described in its configuration: it watches new blocks and
// pending swap transactions on a single chain, searches 2- and 3-hop
// cycles anchored on the chain's base tokens, and dispatches the best
// profitable cycle to an executor contract.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"fulcrum/config"
	"fulcrum/exec"
	"fulcrum/graph"
	"fulcrum/logx"
	"fulcrum/metrics"
	"fulcrum/orchestrator"
	"fulcrum/pool"
	"fulcrum/refresher"
	"fulcrum/rpc"
	"fulcrum/search"
)

// Exit codes, per the CLI's documented contract: 0 success/clean shutdown,
// 2 configuration error, 3 runtime/connectivity failure after startup.
const (
	exitOK   = 0
	exitBad  = 2
	exitFail = 3
)

// searchDeadline bounds a single FindBest call, well inside a block's
// arrival window.
const searchDeadline = 300 * time.Microsecond

func main() {
	defer logx.Sync()
	os.Exit(run())
}

func run() int {
	var (
		wsURL       string
		rpcURL      string
		universe    string
		minProfit   float64
		dryRun      bool
		executor    string
		metricsAddr string
	)

	exitCode := exitOK
	root := &cobra.Command{
		Use:   "fulcrum",
		Short: "Microsecond-budget cross-exchange arbitrage engine",
	}
	root.PersistentFlags().StringVar(&wsURL, "ws", "", "WebSocket endpoint for the pending-tx feed")
	root.PersistentFlags().StringVar(&rpcURL, "rpc", "", "HTTP JSON-RPC endpoint for eth_call/block reads")
	root.PersistentFlags().StringVar(&universe, "universe", "", "path to a pool-universe file: .db (sqlite) or flat CSV")
	root.PersistentFlags().Float64Var(&minProfit, "min-profit", 1.0, "minimum profit (base-token units) to dispatch a cycle")
	root.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "log dispatch decisions without submitting")
	root.PersistentFlags().StringVar(&executor, "executor", "", "executor contract address (unused in --dry-run)")
	root.PersistentFlags().StringVar(&metricsAddr, "metrics-addr", ":9090", "address to serve /metrics on")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Connect and run the worker loop until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			code, err := runEngine(cmd.Context(), engineConfig{
				wsURL:       wsURL,
				rpcURL:      rpcURL,
				universe:    universe,
				minProfit:   minProfit,
				dryRun:      dryRun,
				executor:    executor,
				metricsAddr: metricsAddr,
			})
			exitCode = code
			return err
		},
		SilenceUsage: true,
	}
	root.AddCommand(runCmd)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	root.SetContext(ctx)

	if err := root.Execute(); err != nil {
		logx.L().Error("fatal error", zap.Error(err))
		if exitCode == exitOK {
			exitCode = exitBad
		}
		return exitCode
	}
	return exitCode
}

type engineConfig struct {
	wsURL, rpcURL, universe string
	minProfit               float64
	dryRun                  bool
	executor, metricsAddr   string
}

func runEngine(ctx context.Context, cfg engineConfig) (int, error) {
	if cfg.wsURL == "" || cfg.rpcURL == "" || cfg.universe == "" {
		err := fmt.Errorf("--ws, --rpc and --universe are required")
		logx.FatalConfig(err)
		return exitBad, err
	}

	specs, err := loadUniverse(cfg.universe)
	if err != nil {
		logx.FatalConfig(err)
		return exitBad, err
	}

	g := graph.New()
	for _, s := range specs {
		p := pool.Pool{Exchange: s.Exchange, TokenA: s.TokenA, TokenB: s.TokenB, FeeTier: s.FeeTier}
		p.Address = s.Address
		if s.Exchange == pool.UniswapV3 {
			p.State.Kind = pool.KindV3
			p.State.V3.Fee = uint32(s.FeeTier)
		} else {
			p.State.Kind = pool.KindV2
		}
		g.AddPool(p)
	}

	httpClient := rpc.NewHTTPClient(cfg.rpcURL)
	refr := refresher.New(httpClient, g)
	finder := search.New(minProfitUnits(cfg.minProfit), searchDeadline)

	var submitter exec.Submitter = exec.DryRunSubmitter{}
	if !cfg.dryRun {
		submitter = exec.RPCSubmitter{} // signing collaborator wires Send in before go-live
	}

	o := orchestrator.New(orchestrator.Config{
		Graph:     g,
		Refresher: refr,
		Finder:    finder,
		Submitter: submitter,
	})

	serveMetrics(cfg.metricsAddr)

	ws, err := rpc.Dial(cfg.wsURL, subscribePayload())
	if err != nil {
		logx.L().Error("ws dial failed", zap.Error(err))
		return exitFail, err
	}
	defer ws.Close()

	go pumpBlocks(ctx, httpClient, o)
	go pumpSwaps(ctx, ws, o)

	o.Run(ctx)
	return exitOK, nil
}

// loadUniverse picks the loader by file extension: ".db"/".sqlite" for the
// SQLite-backed store, anything else for the flat-file format.
func loadUniverse(path string) ([]config.PoolSpec, error) {
	if strings.HasSuffix(path, ".db") || strings.HasSuffix(path, ".sqlite") {
		return config.LoadSQLite(path)
	}
	return config.LoadFlatFile(path)
}

// minProfitUnits converts a human-entered float (base-token units) into the
// fixed-point representation the search package compares against.
func minProfitUnits(f float64) *uint256.Int {
	scaled := uint64(f * 1e6)
	return uint256.NewInt(scaled)
}

func subscribePayload() []byte {
	return []byte(`{"id":1,"method":"eth_subscribe","params":["newPendingTransactions"]}`)
}

func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))
	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			logx.L().Warn("metrics server stopped", zap.Error(err))
		}
	}()
}

func pumpBlocks(ctx context.Context, client *rpc.HTTPClient, o *orchestrator.Orchestrator) {
	var last uint64
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := client.BlockNumber(ctx)
			if err != nil {
				logx.RefreshFailure(err)
				continue
			}
			if n > last {
				last = n
				o.SubmitBlock(orchestrator.BlockEvent{Number: n})
			}
		}
	}
}

func pumpSwaps(ctx context.Context, ws *rpc.WSClient, o *orchestrator.Orchestrator) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		sw, err := ws.ReadSwap()
		if err != nil {
			logx.L().Warn("pending-tx feed read failed", zap.Error(err))
			return
		}
		o.SubmitSwap(sw)
	}
}
