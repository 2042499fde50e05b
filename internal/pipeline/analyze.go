package pipeline

import (
	"context"
	"fmt"

	"github.com/nse-agent/marketagent/internal/chartclient"
	"github.com/nse-agent/marketagent/internal/chatsink"
	"github.com/nse-agent/marketagent/internal/domain"
	"github.com/nse-agent/marketagent/internal/gates"
	"github.com/nse-agent/marketagent/internal/log"
	"github.com/nse-agent/marketagent/internal/mtf"
	"github.com/nse-agent/marketagent/internal/probability"
	"github.com/nse-agent/marketagent/internal/verdict"
)

// trendChangeLookback is how many prior analyses the regime-change check
// compares the current dominant-timeframe trend against.
const trendChangeLookback = 5

// AnalysisOutcome is the full result of one AnalyzeSymbol call: everything
// C6 through C9 produced, plus the resolved symbol actually analyzed.
type AnalysisOutcome struct {
	Symbol      string
	Aggregate   mtf.Result
	Probability domain.ProbabilityResult
	Evaluation  domain.GateEvaluation
	Verdict     domain.Verdict
}

// AnalyzeSymbol resolves userText to a symbol, runs the per-timeframe
// observe/reconcile/synthesize/persist cycle over the mode's fixed
// timeframe set, then aggregates, scores, gates, and composes a verdict.
// It enforces the strict stage ordering: resolve, analyze every
// timeframe, aggregate, probability, gate, verdict — each stage consumes
// only the previous stage's output, never raw collaborator state.
func AnalyzeSymbol(ctx context.Context, mctx *MarketContext, userText string, mode domain.MTFMode) (AnalysisOutcome, error) {
	res := mctx.Resolver.Resolve(ctx, userText, domain.ModeSingleAnalysis)
	if res.Status != domain.ResolutionValid && res.Status != domain.ResolutionResolved {
		return AnalysisOutcome{}, fmt.Errorf("analyze %q: symbol resolution status %s", userText, res.Status)
	}
	symbol := res.Symbol

	mctx.ChatSink.Send(chatsink.TagInfo, fmt.Sprintf("resolved %q to %s via %s", userText, symbol, res.Source))

	tfs := mtf.TimeframeSet(mode)
	analyses := map[domain.Timeframe]domain.Analysis{}

	for i, tf := range tfs {
		mctx.Progress.Publish(log.Event{Symbol: symbol, Timeframe: string(tf), Stage: "analyze", Index: i, Total: len(tfs)})

		analysis, err := analyzeOneTimeframe(ctx, mctx, symbol, tf)
		if err != nil {
			mctx.ChatSink.Send(chatsink.TagWarning, fmt.Sprintf("%s %s: %v", symbol, tf, err))
			mctx.Progress.Publish(log.Event{Symbol: symbol, Timeframe: string(tf), Stage: "analyze", Message: err.Error(), Index: i, Total: len(tfs)})
			continue
		}
		analyses[tf] = analysis

		if mctx.AnalysisStore != nil {
			if _, err := mctx.AnalysisStore.Store(ctx, analysis); err != nil {
				mctx.Log.Warn().Err(err).Str("symbol", symbol).Str("timeframe", string(tf)).Msg("failed to persist analysis")
			}
		}
		mctx.ChatSink.Send(chatsink.TagAnalysis, fmt.Sprintf("%s %s: %s, %s", symbol, tf, analysis.Trend, analysis.Structure))
		mctx.Progress.Publish(log.Event{Symbol: symbol, Timeframe: string(tf), Stage: "analyze", Done: true, Index: i, Total: len(tfs)})
	}

	if len(analyses) == 0 {
		return AnalysisOutcome{}, fmt.Errorf("analyze %s: every timeframe in mode %s failed", symbol, mode)
	}

	aggregator := mtf.New(mctx.AnalysisStore)
	agg := aggregator.FromLive(symbol, mode, analyses)

	prob := probability.Calculate(probability.Inputs{
		Alignment:     agg.Alignment,
		IsUnstable:    agg.IsUnstable,
		DominantTrend: agg.Analyses[agg.Dominant].Trend,
		HTFLocation:   agg.HTFLocation,
		CurrentPrice:  agg.Analyses[agg.Dominant].Price,
		Support:       agg.Analyses[agg.Dominant].Support,
		Resistance:    agg.Analyses[agg.Dominant].Resistance,
	})

	riskCeiling := gates.RegimeRiskCeiling
	if mctx.Config != nil && mctx.Config.Thresholds.RegimeRiskCeiling > 0 {
		riskCeiling = mctx.Config.Thresholds.RegimeRiskCeiling
	}
	evaluation := gates.Evaluate(ctx, gates.Inputs{
		Symbol:      symbol,
		Alignment:   agg.Alignment,
		IsUnstable:  agg.IsUnstable,
		Probability: prob,
		HTFLocation: agg.HTFLocation,
		RiskCeiling: riskCeiling,
	})

	if mctx.GateLog != nil {
		rec := gates.Record{
			Symbol:    symbol,
			Timestamp: analyses[agg.Dominant].Timestamp,
			Inputs: gates.Inputs{
				Symbol: symbol, Alignment: agg.Alignment, IsUnstable: agg.IsUnstable,
				Probability: prob, HTFLocation: agg.HTFLocation, RiskCeiling: riskCeiling,
			},
			Evaluation: evaluation,
		}
		if _, err := mctx.GateLog.Log(ctx, rec); err != nil {
			mctx.Log.Warn().Err(err).Str("symbol", symbol).Msg("failed to append gate evaluation log")
		}
	}
	if mctx.Metrics != nil {
		status := "BLOCKED"
		if evaluation.Permission.Status == domain.PermissionAllowed {
			status = "ALLOWED"
		}
		mctx.Metrics.GateOutcomes.WithLabelValues(status).Inc()
		for name, passed := range evaluation.PerGate {
			result := "fail"
			if passed {
				result = "pass"
			}
			mctx.Metrics.GateEvaluations.WithLabelValues(string(name), result).Inc()
		}
	}

	gateStatus := domain.GateStatusBlocked
	if evaluation.Permission.Status == domain.PermissionAllowed {
		gateStatus = domain.GateStatusPass
	}

	var regimeFlags []domain.RegimeFlag
	if mctx.AnalysisStore != nil {
		dominantTrend := agg.Analyses[agg.Dominant].Trend
		tc, err := mctx.AnalysisStore.TrendChange(ctx, symbol, dominantTrend, trendChangeLookback)
		if err != nil {
			mctx.Log.Warn().Err(err).Str("symbol", symbol).Msg("failed to check trend change history")
		} else if tc.Changed {
			regimeFlags = append(regimeFlags, domain.RegimeChange)
		}
	}

	v := verdict.Compose(verdict.Inputs{
		Alignment:   agg.Alignment,
		ActiveState: composerState(prob.ActiveState),
		GateStatus:  gateStatus,
		RegimeFlags: regimeFlags,
		HTFLocation: agg.HTFLocation,
		TrendState:  trendState(agg.Analyses[agg.Dominant].Trend),
		Symbol:      symbol,
	})

	mctx.ChatSink.Send(chatsink.TagSuccess, v.Summary)
	mctx.Progress.Publish(log.Event{Symbol: symbol, Stage: "verdict", Message: string(v.Label), Done: true})

	return AnalysisOutcome{Symbol: symbol, Aggregate: agg, Probability: prob, Evaluation: evaluation, Verdict: v}, nil
}

// analyzeOneTimeframe switches the chart to tf, extracts the DOM record,
// optionally observes via the VLM, then runs the analyzer.
func analyzeOneTimeframe(ctx context.Context, mctx *MarketContext, symbol string, tf domain.Timeframe) (domain.Analysis, error) {
	nav, err := mctx.ChartClient.Navigate(ctx, symbol, tf)
	if err != nil {
		return domain.Analysis{}, fmt.Errorf("navigate: %w", err)
	}
	if nav.Status != chartclient.NavigateOK {
		return domain.Analysis{}, fmt.Errorf("navigate status %s", nav.Status)
	}
	if err := mctx.ChartClient.SwitchTimeframe(ctx, tf); err != nil {
		return domain.Analysis{}, fmt.Errorf("switch timeframe: %w", err)
	}
	dom, err := mctx.ChartClient.ExtractChartData(ctx)
	if err != nil {
		return domain.Analysis{}, fmt.Errorf("extract chart data: %w", err)
	}

	var vlmText string
	if mctx.VLMClient != nil {
		obsResult, err := mctx.VLMClient.Observe(ctx, domain.Observation{
			Type: domain.ObsScreenDescription, Context: domain.ContextWeb,
		})
		if err != nil {
			mctx.Log.Warn().Err(err).Str("symbol", symbol).Msg("vlm observation failed, proceeding DOM-only")
		} else if obsResult.Status == domain.ObservationSuccess {
			vlmText = obsResult.Result
		}
	}

	return mctx.Analyzer.Analyze(ctx, symbol, tf, dom, vlmText)
}

func composerState(s domain.ActiveState) domain.ComposerActiveState {
	switch s {
	case domain.StateContinuation:
		return domain.ComposerContinuation
	case domain.StatePullback:
		return domain.ComposerPullback
	default:
		return domain.ComposerReversal
	}
}

func trendState(t domain.Trend) domain.TrendState {
	switch t {
	case domain.TrendBullish:
		return domain.TrendUp
	case domain.TrendBearish:
		return domain.TrendDown
	default:
		return domain.TrendRange
	}
}
