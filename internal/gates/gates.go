// Package gates implements C8: five independent structural gates.
// Execution is ALLOWED only when every gate passes; the result carries
// no trading authority, only a structural classification callers treat
// as advisory.
package gates

import (
	"context"
	"time"

	"github.com/nse-agent/marketagent/internal/domain"
)

// RegimeRiskCeiling is the configured default ceiling on P_fail for the
// regime risk gate.
const RegimeRiskCeiling = 0.35

// Inputs collects everything the five gates need.
type Inputs struct {
	Symbol      string
	Alignment   domain.Alignment
	IsUnstable  bool
	Probability domain.ProbabilityResult
	HTFLocation domain.HTFLocation
	RiskCeiling float64
}

// Evaluate runs all five gates and aggregates the overall permission.
// Gates never short-circuit: every gate is evaluated and recorded so the
// caller always has the full reason set.
func Evaluate(ctx context.Context, in Inputs) domain.GateEvaluation {
	ceiling := in.RiskCeiling
	if ceiling == 0 {
		ceiling = RegimeRiskCeiling
	}

	results := map[domain.GateName]bool{
		domain.GateAlignment:          alignmentGate(in),
		domain.GateDominance:          dominanceGate(in),
		domain.GateRegimeRisk:         regimeRiskGate(in, ceiling),
		domain.GateStructuralLocation: structuralLocationGate(in),
		domain.GateOverconfidence:     overconfidenceGate(in),
	}

	var reasons []string
	allPassed := true
	for _, name := range []domain.GateName{
		domain.GateAlignment, domain.GateDominance, domain.GateRegimeRisk,
		domain.GateStructuralLocation, domain.GateOverconfidence,
	} {
		if !results[name] {
			allPassed = false
			reasons = append(reasons, reasonFor(name, in))
		}
	}

	permission := domain.ExecutionPermission{Status: domain.PermissionBlocked, Reasons: reasons}
	if allPassed {
		permission = domain.ExecutionPermission{
			Status:       domain.PermissionAllowed,
			ValidFor:     "ONE_DECISION_CYCLE",
			ExpiresAfter: "next_structure_change",
		}
	}

	return domain.GateEvaluation{
		Symbol:     in.Symbol,
		PerGate:    results,
		Permission: permission,
	}
}

func alignmentGate(in Inputs) bool {
	if in.IsUnstable {
		return false
	}
	return in.Alignment == domain.AlignmentFull || in.Alignment == domain.AlignmentPartial
}

func dominanceGate(in Inputs) bool {
	p := activeProbability(in.Probability)
	return p >= 0.50
}

func regimeRiskGate(in Inputs, ceiling float64) bool {
	return in.Probability.PFailure < ceiling
}

// structuralLocationGate fails a CONTINUATION-active scenario sitting at
// HTF resistance, or a FAILURE-active scenario sitting at HTF support —
// the "wrong" extreme for that scenario to be dominant at.
func structuralLocationGate(in Inputs) bool {
	switch in.Probability.ActiveState {
	case domain.StateContinuation:
		return in.HTFLocation != domain.HTFResistance
	case domain.StateFailure:
		return in.HTFLocation != domain.HTFSupport
	default:
		return true
	}
}

func overconfidenceGate(in Inputs) bool {
	for _, f := range in.Probability.Flags {
		if f == domain.FlagOverconfidence {
			return false
		}
	}
	return in.Probability.PContinuation <= 0.70 && in.Probability.PPullback <= 0.70 && in.Probability.PFailure <= 0.70
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

func reasonFor(name domain.GateName, in Inputs) string {
	switch name {
	case domain.GateAlignment:
		return "alignment gate: alignment not FULL/PARTIAL or unstable"
	case domain.GateDominance:
		return "dominance gate: active scenario probability below 0.50"
	case domain.GateRegimeRisk:
		return "regime risk gate: P_fail at or above configured ceiling"
	case domain.GateStructuralLocation:
		return "structural location gate: price at wrong HTF extreme for active scenario"
	case domain.GateOverconfidence:
		return "overconfidence gate: a scenario probability exceeds 0.70"
	default:
		return string(name) + ": failed"
	}
}

// Record is the append-only log entry format persisted by internal/gatelog.
type Record struct {
	Symbol     string
	Timestamp  time.Time
	Inputs     Inputs
	Evaluation domain.GateEvaluation
}
