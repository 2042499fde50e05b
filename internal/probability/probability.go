// Package probability implements C7: a deterministic scenario
// probability calculator over discrete structural inputs. No
// predictions, no indicators, no learned weights — pure rule table.
package probability

import (
	"fmt"
	"math"

	"github.com/nse-agent/marketagent/internal/domain"
)

// Inputs are the discrete signals the engine reasons over.
type Inputs struct {
	Alignment       domain.Alignment
	IsUnstable      bool
	DominantTrend   domain.Trend
	HTFLocation     domain.HTFLocation
	CurrentPrice    float64
	Support         []float64
	Resistance      []float64
}

// triple is an (continuation, pullback, failure) probability vector.
type triple [3]float64

func (t triple) mul(f triple) triple {
	return triple{t[0] * f[0], t[1] * f[1], t[2] * f[2]}
}

var baseTable = map[domain.Alignment]func(unstable bool) triple{
	domain.AlignmentFull: func(unstable bool) triple {
		if unstable {
			return triple{0.30, 0.50, 0.20}
		}
		return triple{0.50, 0.30, 0.20}
	},
	domain.AlignmentPartial:  func(bool) triple { return triple{0.35, 0.45, 0.20} },
	domain.AlignmentUnstable: func(bool) triple { return triple{0.25, 0.55, 0.20} },
	domain.AlignmentConflict: func(bool) triple { return triple{0.25, 0.35, 0.40} },
}

// Calculate runs the full base-table-plus-adjustments rule chain and
// returns the finalized, renormalized, rounded result.
func Calculate(in Inputs) domain.ProbabilityResult {
	baseFn, ok := baseTable[in.Alignment]
	if !ok {
		baseFn = baseTable[domain.AlignmentConflict]
	}
	p := baseFn(in.IsUnstable)

	switch in.HTFLocation {
	case domain.HTFResistance:
		p = p.mul(triple{0.85, 1.15, 1.05})
	case domain.HTFSupport:
		if in.DominantTrend == domain.TrendBullish {
			p = p.mul(triple{1.05, 1.10, 0.90})
		} else if in.DominantTrend == domain.TrendBearish {
			p = p.mul(triple{0.90, 0.95, 1.15})
		}
	}

	if in.IsUnstable {
		p = p.mul(triple{0.85, 1.20, 1.00})
	}

	if in.DominantTrend == domain.TrendSideways {
		p = p.mul(triple{0.80, 1.00, 1.25})
	}

	total := p[0] + p[1] + p[2]
	if total > 0 {
		p[0] /= total
		p[1] /= total
		p[2] /= total
	}

	pCont := round2(p[0])
	pPull := round2(p[1])
	pFail := round2(1.0 - pCont - pPull)

	result := domain.ProbabilityResult{
		PContinuation: pCont,
		PPullback:     pPull,
		PFailure:      pFail,
		SumOK:         math.Abs(pCont+pPull+pFail-1.0) <= 0.01,
	}
	result.ActiveState = activeState(in, pCont, pPull, pFail)
	result.Reasoning = reasoning(in, pCont, pPull, pFail)
	result.Flags = validate(in, pCont, pPull, pFail)

	return result
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}

func activeState(in Inputs, pCont, pPull, pFail float64) domain.ActiveState {
	if in.Alignment == domain.AlignmentConflict {
		return domain.StateConflict
	}
	if in.Alignment == domain.AlignmentUnstable && in.IsUnstable {
		return domain.StateConflict
	}
	best := domain.StateContinuation
	bestP := pCont
	if pPull > bestP {
		best, bestP = domain.StatePullback, pPull
	}
	if pFail > bestP {
		best = domain.StateFailure
	}
	return best
}

func reasoning(in Inputs, pCont, pPull, pFail float64) map[domain.ActiveState]string {
	r := map[domain.ActiveState]string{}

	switch {
	case pCont >= 0.45:
		r[domain.StateContinuation] = fmt.Sprintf("HTF trend %s aligned; no structural break signaled", in.DominantTrend)
	case pCont >= 0.30:
		r[domain.StateContinuation] = fmt.Sprintf("HTF trend %s intact but alignment weakening", in.DominantTrend)
	default:
		r[domain.StateContinuation] = fmt.Sprintf("continuation probability reduced by %s state", lower(string(in.Alignment)))
	}

	switch {
	case in.IsUnstable:
		r[domain.StatePullback] = "price overextended near boundary; mean reversion risk elevated"
	case in.HTFLocation == domain.HTFResistance:
		r[domain.StatePullback] = "price near HTF resistance; pullback zone approaching"
	case pPull >= 0.45:
		r[domain.StatePullback] = fmt.Sprintf("alignment %s suggests rotation likely", lower(string(in.Alignment)))
	default:
		r[domain.StatePullback] = fmt.Sprintf("standard pullback probability within %s structure", in.DominantTrend)
	}

	switch {
	case pFail >= 0.40:
		r[domain.StateFailure] = "conflicting timeframes elevate regime change risk"
	case in.HTFLocation == domain.HTFSupport && in.DominantTrend == domain.TrendBearish:
		r[domain.StateFailure] = "HTF support test increases breakdown probability"
	case in.DominantTrend == domain.TrendSideways:
		r[domain.StateFailure] = "range boundaries create breakout/breakdown potential"
	default:
		r[domain.StateFailure] = "no HTF breakdown signaled; failure probability remains baseline"
	}

	return r
}

func validate(in Inputs, pCont, pPull, pFail float64) []domain.ConsistencyFlag {
	var flags []domain.ConsistencyFlag

	if pCont > 0.60 && in.DominantTrend == domain.TrendBullish && len(in.Support) > 0 && in.CurrentPrice > 0 {
		if in.CurrentPrice < in.Support[0] {
			flags = append(flags, domain.FlagContradiction)
		}
	}
	if pFail > 0.50 && in.Alignment == domain.AlignmentFull {
		flags = append(flags, domain.FlagWarning)
	}
	if pCont > 0.70 || pPull > 0.70 || pFail > 0.70 {
		flags = append(flags, domain.FlagOverconfidence)
	}
	return flags
}

func lower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}
