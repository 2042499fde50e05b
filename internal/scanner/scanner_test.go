package scanner

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nse-agent/marketagent/internal/chartclient"
	"github.com/nse-agent/marketagent/internal/domain"
	"github.com/nse-agent/marketagent/internal/mtf"
	"github.com/nse-agent/marketagent/internal/resolver"
	"github.com/nse-agent/marketagent/internal/symbolmemory"
)

func TestExpandScope_NamedGroup(t *testing.T) {
	out := ExpandScope("bank nifty")
	assert.Contains(t, out, "HDFCBANK")
	assert.Contains(t, out, "SBIN")
}

func TestExpandScope_CommaSplitFallback(t *testing.T) {
	out := ExpandScope("infy, tcs , wipro")
	assert.Equal(t, []string{"INFY", "TCS", "WIPRO"}, out)
}

func TestExpandScope_MixedGroupAndExplicit(t *testing.T) {
	out := ExpandScope("bank nifty, WIPRO")
	assert.Contains(t, out, "HDFCBANK")
	assert.Contains(t, out, "WIPRO")
}

// stubChart implements chartclient.Client over a fixed set of reachable
// symbols, for exercising Scan's health-check and per-candidate resolve
// path without a real browser.
type stubChart struct {
	reachable map[string]bool
}

func (s stubChart) Navigate(ctx context.Context, symbol string, tf domain.Timeframe) (chartclient.NavigateResult, error) {
	if symbol == "NIFTY" || s.reachable[symbol] {
		return chartclient.NavigateResult{Status: chartclient.NavigateOK, URL: symbol}, nil
	}
	return chartclient.NavigateResult{Status: chartclient.NavigateSymbolNotFound}, nil
}

func (s stubChart) ExtractChartData(ctx context.Context) (chartclient.DOMRecord, error) {
	return chartclient.DOMRecord{Symbol: "X", Price: 100, HasPrice: true}, nil
}

func (s stubChart) SwitchTimeframe(ctx context.Context, code domain.Timeframe) error { return nil }

func newTestResolver(t *testing.T, chart chartclient.Client) *resolver.Resolver {
	t.Helper()
	mem := symbolmemory.New(filepath.Join(t.TempDir(), "cache.json"), zerolog.Nop())
	return resolver.New(mem, chart, nil, nil, 0, zerolog.Nop())
}

func TestScan_SkipsUnreachableSymbolsAndRanksEligible(t *testing.T) {
	chart := stubChart{reachable: map[string]bool{"INFY": true, "TCS": true}}
	res := newTestResolver(t, chart)

	analyzeOne := func(ctx context.Context, symbol string, mode domain.MTFMode) (mtf.Result, error) {
		switch symbol {
		case "INFY":
			return mtf.Result{
				Symbol: symbol, Dominant: domain.TFDaily, Alignment: domain.AlignmentFull,
				Analyses: map[domain.Timeframe]domain.Analysis{
					domain.TFDaily: {Trend: domain.TrendBullish, Price: 100},
				},
			}, nil
		case "TCS":
			return mtf.Result{}, fmt.Errorf("analysis failed")
		default:
			return mtf.Result{}, fmt.Errorf("unexpected symbol %s", symbol)
		}
	}

	sc := New(res, chart, analyzeOne, 5, 0.35)
	result, err := sc.Scan(context.Background(), "INFY, TCS, WIPRO", domain.MTFSwing)
	require.NoError(t, err)

	assert.Equal(t, 3, result.Scanned)
	assert.NotEmpty(t, result.Skipped)
	for _, sig := range result.Signals {
		assert.Equal(t, "INFY", sig.Symbol)
	}
}

func TestScan_EmptyScopeErrors(t *testing.T) {
	chart := stubChart{}
	res := newTestResolver(t, chart)
	sc := New(res, chart, nil, 5, 0.35)
	_, err := sc.Scan(context.Background(), "", domain.MTFSwing)
	assert.Error(t, err)
}

func TestScan_TopNTruncates(t *testing.T) {
	chart := stubChart{reachable: map[string]bool{"AAA": true, "BBB": true, "CCC": true}}
	res := newTestResolver(t, chart)

	analyzeOne := func(ctx context.Context, symbol string, mode domain.MTFMode) (mtf.Result, error) {
		return mtf.Result{
			Symbol: symbol, Dominant: domain.TFDaily, Alignment: domain.AlignmentFull,
			Analyses: map[domain.Timeframe]domain.Analysis{
				domain.TFDaily: {Trend: domain.TrendBullish, Price: 100},
			},
		}, nil
	}

	sc := New(res, chart, analyzeOne, 2, 0.35)
	result, err := sc.Scan(context.Background(), "AAA, BBB, CCC", domain.MTFSwing)
	require.NoError(t, err)
	assert.Len(t, result.Signals, 2)
}
