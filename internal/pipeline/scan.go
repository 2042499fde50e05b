package pipeline

import (
	"context"

	"github.com/nse-agent/marketagent/internal/chatsink"
	"github.com/nse-agent/marketagent/internal/domain"
	"github.com/nse-agent/marketagent/internal/log"
	"github.com/nse-agent/marketagent/internal/mtf"
	"github.com/nse-agent/marketagent/internal/scanner"
)

// RunScan expands scope, health-checks the chart source, and runs C11
// over every resolved candidate, closing over the per-symbol analyze
// step (everything AnalyzeSymbol does through aggregation) so the
// scanner itself never imports the analyzer or the store.
func RunScan(ctx context.Context, mctx *MarketContext, scope string, mode domain.MTFMode) (scanner.Result, error) {
	riskCeiling := 0.35
	if mctx.Config != nil && mctx.Config.Thresholds.RegimeRiskCeiling > 0 {
		riskCeiling = mctx.Config.Thresholds.RegimeRiskCeiling
	}
	topN := 5
	if mctx.Config != nil && mctx.Config.Scan.DefaultTopN > 0 {
		topN = mctx.Config.Scan.DefaultTopN
	}

	aggregator := mtf.New(mctx.AnalysisStore)

	analyzeOne := func(ctx context.Context, symbol string, mode domain.MTFMode) (mtf.Result, error) {
		tfs := mtf.TimeframeSet(mode)
		analyses := map[domain.Timeframe]domain.Analysis{}
		for _, tf := range tfs {
			mctx.Progress.Publish(log.Event{Symbol: symbol, Timeframe: string(tf), Stage: "scan"})
			analysis, err := analyzeOneTimeframe(ctx, mctx, symbol, tf)
			if err != nil {
				mctx.Log.Warn().Err(err).Str("symbol", symbol).Str("timeframe", string(tf)).Msg("scan: timeframe analysis failed, skipping slot")
				continue
			}
			analyses[tf] = analysis
			if mctx.AnalysisStore != nil {
				if _, err := mctx.AnalysisStore.Store(ctx, analysis); err != nil {
					mctx.Log.Warn().Err(err).Str("symbol", symbol).Msg("scan: failed to persist analysis")
				}
			}
		}
		return aggregator.FromLive(symbol, mode, analyses), nil
	}

	sc := scanner.New(mctx.Resolver, mctx.ChartClient, analyzeOne, topN, riskCeiling)

	result, err := sc.Scan(ctx, scope, mode)
	if err != nil {
		return scanner.Result{}, err
	}

	if mctx.Metrics != nil {
		mctx.Metrics.ScanEligible.Set(float64(len(result.Signals)))
		mctx.Metrics.ScanTotal.WithLabelValues("signal").Add(float64(len(result.Signals)))
		mctx.Metrics.ScanTotal.WithLabelValues("skipped").Add(float64(len(result.Skipped)))
	}

	mctx.ChatSink.Send(chatsink.TagInfo, "scan complete")
	mctx.Progress.Publish(log.Event{Stage: "scan", Done: true, Total: result.Scanned, Index: result.Scanned})
	for _, sig := range result.Signals {
		mctx.ChatSink.Send(chatsink.TagAnalysis, sig.Symbol+": "+string(sig.Verdict.Label))
	}

	return result, nil
}
