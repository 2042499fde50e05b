package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"github.com/nse-agent/marketagent/internal/analysisstore"
	"github.com/nse-agent/marketagent/internal/analysisstore/postgres"
	"github.com/nse-agent/marketagent/internal/browserworker"
	"github.com/nse-agent/marketagent/internal/chartclient"
	"github.com/nse-agent/marketagent/internal/chatsink"
	"github.com/nse-agent/marketagent/internal/config"
	"github.com/nse-agent/marketagent/internal/domain"
	"github.com/nse-agent/marketagent/internal/gatelog"
	"github.com/nse-agent/marketagent/internal/llmclient"
	"github.com/nse-agent/marketagent/internal/metrics"
	"github.com/nse-agent/marketagent/internal/newsclient"
	"github.com/nse-agent/marketagent/internal/pipeline"
	"github.com/nse-agent/marketagent/internal/symbolmemory"
	"github.com/nse-agent/marketagent/internal/vlmclient"
)

// browserControlURLEnv names the environment variable carrying the
// headless-browser control process's websocket address. The control
// process itself is an external collaborator (spec.md §1): this binary
// only speaks the RPC contract, never launches or owns a browser.
const browserControlURLEnv = "MARKETAGENT_BROWSER_CONTROL_URL"

// buildContext constructs the MarketContext for one process run. It is
// called exactly once, whether the caller is a single subcommand or the
// interactive menu.
func buildContext(ctx context.Context, cfg *config.Config, sink chatsink.Sink) (*pipeline.MarketContext, func(), error) {
	var closers []func()
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	chart, vlm, err := buildBrowserCollaborators(ctx, cfg, &closers)
	if err != nil {
		closeAll()
		return nil, nil, err
	}

	llm := llmclient.NewBreaker(unconfiguredLLM, time.Duration(cfg.Resolver.LLMTimeoutSeconds)*time.Second)
	var news newsclient.Client = nullNews{}

	mem := symbolmemory.New(cfg.Store.SymbolCachePath, log.Logger)

	db, err := dialStore(cfg, &closers)
	if err != nil {
		closeAll()
		return nil, nil, err
	}
	var store analysisstore.Store
	var gl gatelog.Logger
	if db != nil {
		store = postgres.New(db, 10*time.Second)
		gl = gatelog.NewPostgresLogger(db, 10*time.Second)
	} else {
		log.Warn().Msg("no store.dsn configured; analyses and gate evaluations will not persist")
	}

	m := metrics.New()

	mctx := pipeline.New(sink, chart, llm, vlm, news, mem, store, gl, m, cfg, log.Logger)
	return mctx, closeAll, nil
}

// buildBrowserCollaborators dials the browser control process if
// MARKETAGENT_BROWSER_CONTROL_URL is set; otherwise it returns
// collaborators that fail fast with a clear "not configured" error,
// since a read-only analysis agent must never silently fabricate chart
// data.
func buildBrowserCollaborators(ctx context.Context, cfg *config.Config, closers *[]func()) (chartclient.Client, vlmclient.Client, error) {
	url := os.Getenv(browserControlURLEnv)
	chartTimeout := time.Duration(cfg.Resolver.ChartTimeoutSeconds) * time.Second
	vlmTimeout := time.Duration(cfg.Resolver.VLMTimeoutSeconds) * time.Second

	if url == "" {
		log.Warn().Msg("no browser control URL configured; chart and VLM calls will fail until " + browserControlURLEnv + " is set")
		return chartclient.NewBrowserBacked(browserworker.New(8), chartTimeout, unconfiguredNavigate, unconfiguredExtract, unconfiguredSwitch),
			vlmclient.NewBreaker(unconfiguredObserve, vlmTimeout), nil
	}

	rpc, err := browserworker.DialRPC(ctx, url)
	if err != nil {
		return nil, nil, fmt.Errorf("connect browser control: %w", err)
	}
	*closers = append(*closers, func() { rpc.Close() })

	worker := browserworker.New(8)
	*closers = append(*closers, worker.Shutdown)

	chart := chartclient.NewBrowserBacked(worker, chartTimeout,
		func(ctx context.Context, symbol string, tf domain.Timeframe) (chartclient.NavigateResult, error) {
			var out chartclient.NavigateResult
			err := rpc.Call(ctx, "navigate", map[string]any{"symbol": symbol, "timeframe": tf}, &out)
			return out, err
		},
		func(ctx context.Context) (chartclient.DOMRecord, error) {
			var out chartclient.DOMRecord
			err := rpc.Call(ctx, "extract", nil, &out)
			return out, err
		},
		func(ctx context.Context, code domain.Timeframe) error {
			return rpc.Call(ctx, "switchTimeframe", map[string]any{"timeframe": code}, nil)
		},
	)

	vlm := vlmclient.NewBreaker(func(ctx context.Context, obs domain.Observation) (domain.ObservationResult, error) {
		var out domain.ObservationResult
		err := rpc.Call(ctx, "observe", obs, &out)
		return out, err
	}, vlmTimeout)

	return chart, vlm, nil
}

func unconfiguredNavigate(ctx context.Context, symbol string, tf domain.Timeframe) (chartclient.NavigateResult, error) {
	return chartclient.NavigateResult{}, fmt.Errorf("chart client not configured: set %s", browserControlURLEnv)
}

func unconfiguredExtract(ctx context.Context) (chartclient.DOMRecord, error) {
	return chartclient.DOMRecord{}, fmt.Errorf("chart client not configured: set %s", browserControlURLEnv)
}

func unconfiguredSwitch(ctx context.Context, code domain.Timeframe) error {
	return fmt.Errorf("chart client not configured: set %s", browserControlURLEnv)
}

func unconfiguredObserve(ctx context.Context, obs domain.Observation) (domain.ObservationResult, error) {
	return domain.ObservationResult{}, fmt.Errorf("vlm client not configured: set %s", browserControlURLEnv)
}

func unconfiguredLLM(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return "", fmt.Errorf("llm client not configured")
}

type nullNews struct{}

func (nullNews) RecentHeadlines(ctx context.Context, symbol string, limit int) ([]newsclient.Headline, error) {
	return nil, nil
}

// dialStore opens the shared Postgres connection the analysis store and
// gate log both persist through, or nil if no DSN is configured.
func dialStore(cfg *config.Config, closers *[]func()) (*sqlx.DB, error) {
	if cfg.Store.DSN == "" {
		return nil, nil
	}
	db, err := sqlx.Open("postgres", cfg.Store.DSN)
	if err != nil {
		return nil, fmt.Errorf("open analysis store: %w", err)
	}
	db.SetMaxOpenConns(cfg.Store.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Store.MaxIdleConns)
	*closers = append(*closers, func() { db.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping analysis store: %w", err)
	}
	return db, nil
}
