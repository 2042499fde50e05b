// Package scanner implements C11: running the analysis pipeline over a
// scope of instruments and returning the top-N ranked signals. It never
// relaxes the execution gate to produce more results.
package scanner

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/nse-agent/marketagent/internal/chartclient"
	"github.com/nse-agent/marketagent/internal/domain"
	"github.com/nse-agent/marketagent/internal/gates"
	"github.com/nse-agent/marketagent/internal/mtf"
	"github.com/nse-agent/marketagent/internal/probability"
	"github.com/nse-agent/marketagent/internal/resolver"
	"github.com/nse-agent/marketagent/internal/verdict"
)

// namedGroups maps a free-text scope keyword to a fixed instrument list.
var namedGroups = map[string][]string{
	"bank nifty": {"HDFCBANK", "ICICIBANK", "SBIN", "KOTAKBANK", "AXISBANK", "INDUSINDBK", "BANKBARODA", "PNB", "AUBANK", "FEDERALBNK", "IDFCFIRSTB", "BANDHANBNK"},
	"nifty 50": {
		"RELIANCE", "TCS", "HDFCBANK", "INFY", "ICICIBANK", "HINDUNILVR", "ITC", "SBIN",
		"BHARTIARTL", "KOTAKBANK", "LT", "AXISBANK", "ASIANPAINT", "MARUTI", "TITAN",
	},
}

// ExpandScope parses free scan-scope text into a deduplicated candidate
// ticker list: named groups first, then a direct comma split for the
// remainder.
func ExpandScope(scope string) []string {
	lower := strings.ToLower(scope)
	var out []string
	seen := map[string]bool{}

	for name, tickers := range namedGroups {
		if strings.Contains(lower, name) {
			for _, t := range tickers {
				if !seen[t] {
					seen[t] = true
					out = append(out, t)
				}
			}
			lower = strings.ReplaceAll(lower, name, "")
		}
	}

	for _, part := range strings.Split(lower, ",") {
		t := strings.ToUpper(strings.TrimSpace(part))
		if t == "" {
			continue
		}
		if _, isGroup := namedGroups[strings.ToLower(t)]; isGroup {
			continue
		}
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}

	return out
}

// Signal is one instrument's full pipeline output for ranking.
type Signal struct {
	Symbol      string
	Verdict     domain.Verdict
	Alignment   domain.Alignment
	GateStatus  domain.GateStatus
	Probability domain.ProbabilityResult
}

// SkipReason records why an instrument did not produce a signal.
type SkipReason struct {
	Symbol string
	Reason string
}

// Result is the scan's full output.
type Result struct {
	Scanned int
	Signals []Signal
	Skipped []SkipReason
}

// AnalyzeOneFunc runs the per-timeframe analyze+aggregate pipeline for a
// single resolved symbol and mode, producing an mtf.Result. The scanner
// depends only on this function, not on the concrete analyzer/chart
// wiring, so it can be driven by tests with a stub.
type AnalyzeOneFunc func(ctx context.Context, symbol string, mode domain.MTFMode) (mtf.Result, error)

// Scanner runs C11 over an expanded instrument scope.
type Scanner struct {
	resolver  *resolver.Resolver
	chart     chartclient.Client
	analyzeMTF AnalyzeOneFunc
	topN      int
	riskCeiling float64
}

// New constructs a Scanner. analyzeOne supplies the per-symbol
// analysis+aggregation step (wired by the caller to the real analyzer,
// chart client, and analysis store).
func New(r *resolver.Resolver, chart chartclient.Client, analyzeOne AnalyzeOneFunc, topN int, riskCeiling float64) *Scanner {
	if topN <= 0 {
		topN = 5
	}
	return &Scanner{resolver: r, chart: chart, analyzeMTF: analyzeOne, topN: topN, riskCeiling: riskCeiling}
}

// Scan runs the full C11 algorithm: scope expansion, health check,
// per-instrument resolve+analyze+rank, top-N selection.
func (s *Scanner) Scan(ctx context.Context, scope string, mode domain.MTFMode) (Result, error) {
	candidates := ExpandScope(scope)
	if len(candidates) == 0 {
		return Result{}, fmt.Errorf("scan scope %q expanded to no candidates", scope)
	}

	if !s.resolver.HealthCheck(ctx) {
		return Result{}, fmt.Errorf("chart source health check failed, aborting scan")
	}

	result := Result{Scanned: len(candidates)}

	for _, candidate := range candidates {
		res := s.resolver.Resolve(ctx, candidate, domain.ModeMarketScan)
		if res.Status == domain.ResolutionDataUnavailable || res.Status == domain.ResolutionUnknown {
			result.Skipped = append(result.Skipped, SkipReason{Symbol: candidate, Reason: string(res.Status)})
			continue
		}

		agg, err := s.analyzeMTF(ctx, res.Symbol, mode)
		if err != nil {
			result.Skipped = append(result.Skipped, SkipReason{Symbol: res.Symbol, Reason: err.Error()})
			continue
		}
		if len(agg.Missing) > 0 && len(agg.Analyses) == 0 {
			result.Skipped = append(result.Skipped, SkipReason{Symbol: res.Symbol, Reason: "all timeframes failed"})
			continue
		}

		prob := probability.Calculate(probability.Inputs{
			Alignment:     agg.Alignment,
			IsUnstable:    agg.IsUnstable,
			DominantTrend: agg.Analyses[agg.Dominant].Trend,
			HTFLocation:   agg.HTFLocation,
			CurrentPrice:  agg.Analyses[agg.Dominant].Price,
			Support:       agg.Analyses[agg.Dominant].Support,
			Resistance:    agg.Analyses[agg.Dominant].Resistance,
		})

		evaluation := gates.Evaluate(ctx, gates.Inputs{
			Symbol:      res.Symbol,
			Alignment:   agg.Alignment,
			IsUnstable:  agg.IsUnstable,
			Probability: prob,
			HTFLocation: agg.HTFLocation,
			RiskCeiling: s.riskCeiling,
		})

		gateStatus := domain.GateStatusBlocked
		if evaluation.Permission.Status == domain.PermissionAllowed {
			gateStatus = domain.GateStatusPass
		}

		v := verdict.Compose(verdict.Inputs{
			Alignment:   agg.Alignment,
			ActiveState: composerState(prob.ActiveState),
			GateStatus:  gateStatus,
			HTFLocation: agg.HTFLocation,
			TrendState:  trendState(agg.Analyses[agg.Dominant].Trend),
			Symbol:      res.Symbol,
		})

		if (v.Label == domain.VerdictOpportunity || v.Label == domain.VerdictMonitor) && gateStatus == domain.GateStatusPass {
			result.Signals = append(result.Signals, Signal{
				Symbol: res.Symbol, Verdict: v, Alignment: agg.Alignment,
				GateStatus: gateStatus, Probability: prob,
			})
		} else {
			result.Skipped = append(result.Skipped, SkipReason{Symbol: res.Symbol, Reason: fmt.Sprintf("verdict %s gate %s not eligible", v.Label, gateStatus)})
		}
	}

	sort.SliceStable(result.Signals, func(i, j int) bool {
		ci, cj := confidenceRank(result.Signals[i].Verdict.Confidence), confidenceRank(result.Signals[j].Verdict.Confidence)
		if ci != cj {
			return ci > cj
		}
		return activeProbability(result.Signals[i].Probability) > activeProbability(result.Signals[j].Probability)
	})

	if len(result.Signals) > s.topN {
		result.Signals = result.Signals[:s.topN]
	}

	return result, nil
}

func confidenceRank(c domain.ConfidenceLevel) int {
	switch c {
	case domain.ConfidenceHigh:
		return 2
	case domain.ConfidenceMedium:
		return 1
	default:
		return 0
	}
}

func activeProbability(p domain.ProbabilityResult) float64 {
	switch p.ActiveState {
	case domain.StateContinuation:
		return p.PContinuation
	case domain.StatePullback:
		return p.PPullback
	case domain.StateFailure:
		return p.PFailure
	default:
		return 0
	}
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
