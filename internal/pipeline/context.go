// Package pipeline wires the capability object the rest of the system
// is a pure function of, plus the single-symbol and scan orchestration
// entry points that tie C1-C11 together. The context is constructed
// once, at startup, and each component receives the collaborators it
// uses from it.
package pipeline

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/nse-agent/marketagent/internal/analysisstore"
	"github.com/nse-agent/marketagent/internal/analyzer"
	"github.com/nse-agent/marketagent/internal/chartclient"
	"github.com/nse-agent/marketagent/internal/chatsink"
	"github.com/nse-agent/marketagent/internal/config"
	"github.com/nse-agent/marketagent/internal/gatelog"
	"github.com/nse-agent/marketagent/internal/llmclient"
	"github.com/nse-agent/marketagent/internal/log"
	"github.com/nse-agent/marketagent/internal/metrics"
	"github.com/nse-agent/marketagent/internal/newsclient"
	"github.com/nse-agent/marketagent/internal/resolver"
	"github.com/nse-agent/marketagent/internal/symbolmemory"
	"github.com/nse-agent/marketagent/internal/vlmclient"
)

// MarketContext is the capability object every market operation closes
// over instead of holding a reference to an engine singleton.
type MarketContext struct {
	ChatSink      chatsink.Sink
	ChartClient   chartclient.Client
	LLMClient     llmclient.Client
	VLMClient     vlmclient.Client
	NewsClient    newsclient.Client
	SymbolMemory  *symbolmemory.Memory
	AnalysisStore analysisstore.Store
	GateLog       gatelog.Logger
	Metrics       *metrics.Registry
	Config        *config.Config
	Log           zerolog.Logger
	Progress      *log.ProgressBus

	Resolver *resolver.Resolver
	Analyzer *analyzer.Analyzer
}

// New assembles a MarketContext from already-constructed collaborators.
// The dispatcher (cmd/marketagent) builds each collaborator once at
// startup and calls New exactly once per process.
func New(
	sink chatsink.Sink,
	chart chartclient.Client,
	llm llmclient.Client,
	vlm vlmclient.Client,
	news newsclient.Client,
	mem *symbolmemory.Memory,
	store analysisstore.Store,
	gl gatelog.Logger,
	m *metrics.Registry,
	cfg *config.Config,
	logger zerolog.Logger,
) *MarketContext {
	googleMinInterval := 30 * time.Second
	if cfg != nil && cfg.Resolver.GoogleMinIntervalSeconds > 0 {
		googleMinInterval = time.Duration(cfg.Resolver.GoogleMinIntervalSeconds) * time.Second
	}
	res := resolver.New(mem, chart, llm, nil, googleMinInterval, logger)
	an := analyzer.New(llm)

	return &MarketContext{
		ChatSink: sink, ChartClient: chart, LLMClient: llm, VLMClient: vlm, NewsClient: news,
		SymbolMemory: mem, AnalysisStore: store, GateLog: gl, Metrics: m, Config: cfg, Log: logger,
		Progress: log.NewProgressBus(),
		Resolver: res, Analyzer: an,
	}
}
