// Package mtf implements C6: orchestrating the technical analyzer
// across a mode-dependent timeframe set and classifying cross-timeframe
// alignment and HTF location.
package mtf

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/nse-agent/marketagent/internal/analysisstore"
	"github.com/nse-agent/marketagent/internal/domain"
)

// reasoningFreshness is the fixed max-age applied to every timeframe slot
// when synthesizing from stored analyses.
const reasoningFreshness = 24 * time.Hour

// TimeframeSet returns the fixed timeframe list for an MTF mode, ordered
// from highest to lowest timeframe.
func TimeframeSet(mode domain.MTFMode) []domain.Timeframe {
	switch mode {
	case domain.MTFSwing:
		return []domain.Timeframe{domain.TFMonthly, domain.TFWeekly, domain.TFDaily}
	case domain.MTFIntraday:
		return []domain.Timeframe{domain.TF4Hour, domain.TFHourly, domain.TF15Min}
	case domain.MTFPositional:
		return []domain.Timeframe{domain.TFMonthly, domain.TFWeekly}
	default:
		return nil
	}
}

// rank orders timeframes by dominance; higher is more dominant.
var rank = map[domain.Timeframe]int{
	domain.TFMonthly: 6,
	domain.TFWeekly:  5,
	domain.TFDaily:   4,
	domain.TF4Hour:   3,
	domain.TFHourly:  2,
	domain.TF15Min:   1,
	domain.TF5Min:    0,
}

// Result is the aggregator's full output for one (symbol, mode) call.
type Result struct {
	Symbol      string
	Mode        domain.MTFMode
	Analyses    map[domain.Timeframe]domain.Analysis
	Dominant    domain.Timeframe
	Alignment   domain.Alignment
	IsUnstable  bool
	HTFLocation domain.HTFLocation
	Missing     []domain.Timeframe
}

// Aggregator orchestrates the analyzer (or the analysis store, in
// reasoning-only mode) across a timeframe set.
type Aggregator struct {
	store analysisstore.Store
}

// New constructs an Aggregator over the given analysis store, used only
// by reasoning-only fetches.
func New(store analysisstore.Store) *Aggregator {
	return &Aggregator{store: store}
}

// FromLive classifies alignment directly from a freshly produced set of
// per-timeframe analyses (the live path, where C4 already ran).
func (a *Aggregator) FromLive(symbol string, mode domain.MTFMode, analyses map[domain.Timeframe]domain.Analysis) Result {
	return classify(symbol, mode, analyses, nil)
}

// FromStored fetches the latest Analysis per timeframe from the store
// with a fixed 24h freshness window ("synthesize from stored" requests).
// If any required slot is empty it reports the missing slots and does
// not attempt classification.
func (a *Aggregator) FromStored(ctx context.Context, symbol string, mode domain.MTFMode) (Result, error) {
	tfs := TimeframeSet(mode)
	analyses := map[domain.Timeframe]domain.Analysis{}
	var missing []domain.Timeframe

	for _, tf := range tfs {
		latest, err := a.store.Latest(ctx, symbol, tf, reasoningFreshness)
		if err != nil {
			return Result{}, fmt.Errorf("mtf fetch %s %s: %w", symbol, tf, err)
		}
		if latest == nil {
			missing = append(missing, tf)
			continue
		}
		analyses[tf] = *latest
	}

	if len(missing) > 0 {
		return Result{Symbol: symbol, Mode: mode, Missing: missing}, nil
	}

	return classify(symbol, mode, analyses, nil), nil
}

func classify(symbol string, mode domain.MTFMode, analyses map[domain.Timeframe]domain.Analysis, missing []domain.Timeframe) Result {
	available := make([]domain.Timeframe, 0, len(analyses))
	for tf := range analyses {
		available = append(available, tf)
	}
	sort.Slice(available, func(i, j int) bool { return rank[available[i]] > rank[available[j]] })

	res := Result{Symbol: symbol, Mode: mode, Analyses: analyses, Missing: missing}
	if len(available) == 0 {
		return res
	}
	res.Dominant = available[0]

	res.Alignment = classifyAlignment(analyses)
	res.IsUnstable = isUnstable(analyses, res.Dominant, res.Alignment)
	if res.IsUnstable {
		res.Alignment = domain.AlignmentUnstable
	}
	res.HTFLocation = htfLocation(analyses[res.Dominant])

	return res
}

// classifyAlignment applies the dominant-hierarchy trend-agreement rules.
// Monthly and Weekly are treated as the reference pair for conflict
// detection; Daily is the only timeframe allowed to diverge for PARTIAL.
func classifyAlignment(analyses map[domain.Timeframe]domain.Analysis) domain.Alignment {
	monthly, haveMonthly := analyses[domain.TFMonthly]
	weekly, haveWeekly := analyses[domain.TFWeekly]
	daily, haveDaily := analyses[domain.TFDaily]

	if haveMonthly && haveWeekly && monthly.Trend != weekly.Trend {
		return domain.AlignmentConflict
	}
	if haveMonthly && haveDaily && monthly.Trend != daily.Trend {
		return domain.AlignmentConflict
	}

	trends := map[domain.Trend]bool{}
	for _, a := range analyses {
		trends[a.Trend] = true
	}
	if len(trends) == 1 {
		return domain.AlignmentFull
	}

	if haveWeekly && haveDaily && weekly.Trend != daily.Trend {
		allOthersMatchWeekly := true
		for tf, a := range analyses {
			if tf == domain.TFDaily {
				continue
			}
			if a.Trend != weekly.Trend {
				allOthersMatchWeekly = false
				break
			}
		}
		if allOthersMatchWeekly {
			return domain.AlignmentPartial
		}
	}

	return domain.AlignmentConflict
}

var extremeMomentum = map[string]bool{
	"strong bullish": true,
	"strong bearish": true,
	"overbought":     true,
	"oversold":       true,
}

// isUnstable detects elevated mean-reversion risk: full alignment, an
// extreme daily momentum reading, and price pressed against the
// dominant-timeframe's band on the side implied by the dominant trend.
func isUnstable(analyses map[domain.Timeframe]domain.Analysis, dominant domain.Timeframe, alignment domain.Alignment) bool {
	if alignment != domain.AlignmentFull {
		return false
	}
	daily, ok := analyses[domain.TFDaily]
	if !ok || !extremeMomentum[daily.MomentumCondition] {
		return false
	}
	dom := analyses[dominant]
	price := daily.Price
	if price == 0 {
		price = dom.Price
	}
	if dom.Trend == domain.TrendBullish {
		return withinPercent(price, highestResistance(dom), 0.03)
	}
	if dom.Trend == domain.TrendBearish {
		return withinPercent(price, lowestSupport(dom), 0.03)
	}
	return false
}

// htfLocation places price relative to the dominant timeframe's nearest
// support/resistance at the fixed 2% threshold.
func htfLocation(dom domain.Analysis) domain.HTFLocation {
	if dom.Price == 0 {
		return domain.HTFUnknown
	}
	r := highestResistance(dom)
	if r > 0 && withinPercent(dom.Price, r, 0.02) && dom.Price <= r {
		return domain.HTFResistance
	}
	s := lowestSupport(dom)
	if s > 0 && withinPercent(dom.Price, s, 0.02) && dom.Price >= s {
		return domain.HTFSupport
	}
	return domain.HTFMid
}

func withinPercent(price, level, pct float64) bool {
	if level == 0 {
		return false
	}
	diff := price - level
	if diff < 0 {
		diff = -diff
	}
	return diff/level <= pct
}

func highestResistance(a domain.Analysis) float64 {
	var best float64
	for _, r := range a.Resistance {
		if best == 0 || r < best {
			best = r
		}
	}
	return best
}

func lowestSupport(a domain.Analysis) float64 {
	var best float64
	for _, s := range a.Support {
		if s > best {
			best = s
		}
	}
	return best
}
