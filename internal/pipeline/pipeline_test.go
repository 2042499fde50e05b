package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nse-agent/marketagent/internal/analysisstore"
	"github.com/nse-agent/marketagent/internal/chartclient"
	"github.com/nse-agent/marketagent/internal/chatsink"
	"github.com/nse-agent/marketagent/internal/config"
	"github.com/nse-agent/marketagent/internal/domain"
	"github.com/nse-agent/marketagent/internal/gates"
	"github.com/nse-agent/marketagent/internal/metrics"
	"github.com/nse-agent/marketagent/internal/symbolmemory"
)

// stubChart always resolves and reports a stable uptrend price, so the
// pipeline under test runs through a full resolve-analyze-aggregate
// cycle without a real browser.
type stubChart struct{ price float64 }

func (s stubChart) Navigate(ctx context.Context, symbol string, tf domain.Timeframe) (chartclient.NavigateResult, error) {
	return chartclient.NavigateResult{Status: chartclient.NavigateOK, URL: symbol}, nil
}

func (s stubChart) ExtractChartData(ctx context.Context) (chartclient.DOMRecord, error) {
	return chartclient.DOMRecord{Symbol: "INFY", Price: s.price, HasPrice: true}, nil
}

func (s stubChart) SwitchTimeframe(ctx context.Context, code domain.Timeframe) error { return nil }

// stubLLM always answers with a fixed, well-formed analysis completion
// so internal/analyzer's parse step never fails in these tests.
type stubLLM struct{}

func (stubLLM) GenerateCompletion(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return `{
		"trend": "bullish",
		"structure": "higher-highs",
		"support": [90.0],
		"resistance": [120.0],
		"momentum": "rising",
		"momentum_condition": "accelerating",
		"volume_trend": "increasing",
		"candlestick_pattern": "none",
		"reasoning": "price above both moving averages",
		"bias": "bullish continuation",
		"key_levels": "support at 90, resistance at 120"
	}`, nil
}

// stubStore is an in-memory analysisstore.Store sufficient to exercise
// Store() calls from the orchestration; its read paths return empty
// results, so AnalyzeSymbol's TrendChange check never raises a regime
// flag in these tests.
type stubStore struct {
	stored []domain.Analysis
}

func (s *stubStore) Store(ctx context.Context, a domain.Analysis) (int64, error) {
	s.stored = append(s.stored, a)
	return int64(len(s.stored)), nil
}
func (s *stubStore) Latest(ctx context.Context, symbol string, tf domain.Timeframe, maxAge time.Duration) (*domain.Analysis, error) {
	return nil, nil
}
func (s *stubStore) ListBySymbol(ctx context.Context, symbol string, limit int) ([]domain.Analysis, error) {
	return nil, nil
}
func (s *stubStore) ListRecent(ctx context.Context, since time.Duration, limit int) ([]domain.Analysis, error) {
	return nil, nil
}
func (s *stubStore) TrendChange(ctx context.Context, symbol string, currentTrend domain.Trend, lookback int) (analysisstore.TrendChange, error) {
	return analysisstore.TrendChange{}, nil
}
func (s *stubStore) GetStats(ctx context.Context) (analysisstore.Stats, error) {
	return analysisstore.Stats{}, nil
}

// stubGateLog records every logged evaluation in memory.
type stubGateLog struct {
	logged []gates.Record
}

func (g *stubGateLog) Log(ctx context.Context, rec gates.Record) (int64, error) {
	g.logged = append(g.logged, rec)
	return int64(len(g.logged)), nil
}
func (g *stubGateLog) Recent(ctx context.Context, symbol string, limit int) ([]gates.Record, error) {
	return g.logged, nil
}

func newTestContext(t *testing.T, chart chartclient.Client) (*MarketContext, *stubStore, *stubGateLog) {
	t.Helper()
	mem := symbolmemory.New(filepath.Join(t.TempDir(), "cache.json"), zerolog.Nop())
	store := &stubStore{}
	gl := &stubGateLog{}
	cfg := config.Default()
	mctx := New(chatsink.Null{}, chart, stubLLM{}, nil, nil, mem, store, gl, metrics.New(), &cfg, zerolog.Nop())
	return mctx, store, gl
}

func TestAnalyzeSymbol_FullCycleProducesVerdictAndPersists(t *testing.T) {
	mctx, store, gl := newTestContext(t, stubChart{price: 110})

	outcome, err := AnalyzeSymbol(context.Background(), mctx, "INFY", domain.MTFPositional)
	require.NoError(t, err)

	assert.Equal(t, "INFY", outcome.Symbol)
	assert.Equal(t, domain.AlignmentFull, outcome.Aggregate.Alignment)
	assert.NotEmpty(t, outcome.Verdict.Label)
	assert.Len(t, store.stored, 2) // MTFPositional: monthly + weekly
	assert.Len(t, gl.logged, 1)
}

func TestAnalyzeSymbol_UnresolvableSymbolErrors(t *testing.T) {
	mctx, _, _ := newTestContext(t, failingChart{})

	_, err := AnalyzeSymbol(context.Background(), mctx, "ZZZ", domain.MTFPositional)
	assert.Error(t, err)
}

// failingChart reports every symbol as not found, forcing resolution to
// fail before any timeframe analysis is attempted.
type failingChart struct{}

func (failingChart) Navigate(ctx context.Context, symbol string, tf domain.Timeframe) (chartclient.NavigateResult, error) {
	return chartclient.NavigateResult{Status: chartclient.NavigateSymbolNotFound}, nil
}
func (failingChart) ExtractChartData(ctx context.Context) (chartclient.DOMRecord, error) {
	return chartclient.DOMRecord{}, fmt.Errorf("no chart open")
}
func (failingChart) SwitchTimeframe(ctx context.Context, code domain.Timeframe) error { return nil }

func TestRunScan_RanksEligibleSymbols(t *testing.T) {
	mctx, _, _ := newTestContext(t, stubChart{price: 110})

	result, err := RunScan(context.Background(), mctx, "INFY, TCS", domain.MTFPositional)
	require.NoError(t, err)

	assert.Equal(t, 2, result.Scanned)
	assert.NotEmpty(t, result.Signals)
	for _, sig := range result.Signals {
		assert.Equal(t, domain.AlignmentFull, sig.Alignment)
	}
}

func TestRunScan_DefaultsTopNAndRiskCeilingWhenConfigZero(t *testing.T) {
	mctx, _, _ := newTestContext(t, stubChart{price: 110})
	mctx.Config.Thresholds.RegimeRiskCeiling = 0
	mctx.Config.Scan.DefaultTopN = 0

	result, err := RunScan(context.Background(), mctx, "INFY", domain.MTFPositional)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Scanned)
}
