package gates

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nse-agent/marketagent/internal/domain"
)

func fullAlignedPassingInputs() Inputs {
	return Inputs{
		Symbol:     "INFY",
		Alignment:  domain.AlignmentFull,
		IsUnstable: false,
		Probability: domain.ProbabilityResult{
			PContinuation: 0.55, PPullback: 0.30, PFailure: 0.15,
			ActiveState: domain.StateContinuation,
		},
		HTFLocation: domain.HTFMid,
		RiskCeiling: 0.35,
	}
}

func TestEvaluate_AllPassAllows(t *testing.T) {
	eval := Evaluate(context.Background(), fullAlignedPassingInputs())
	assert.Equal(t, domain.PermissionAllowed, eval.Permission.Status)
	assert.Empty(t, eval.Permission.Reasons)
	for _, passed := range eval.PerGate {
		assert.True(t, passed)
	}
}

func TestEvaluate_UnstableFailsAlignmentGate(t *testing.T) {
	in := fullAlignedPassingInputs()
	in.IsUnstable = true
	eval := Evaluate(context.Background(), in)
	assert.False(t, eval.PerGate[domain.GateAlignment])
	assert.Equal(t, domain.PermissionBlocked, eval.Permission.Status)
}

func TestEvaluate_LowDominanceFails(t *testing.T) {
	in := fullAlignedPassingInputs()
	in.Probability.PContinuation = 0.40
	in.Probability.PFailure = 0.30
	eval := Evaluate(context.Background(), in)
	assert.False(t, eval.PerGate[domain.GateDominance])
}

func TestEvaluate_RegimeRiskFailsAtOrAboveCeiling(t *testing.T) {
	in := fullAlignedPassingInputs()
	in.Probability.PFailure = 0.35
	in.RiskCeiling = 0.35
	eval := Evaluate(context.Background(), in)
	assert.False(t, eval.PerGate[domain.GateRegimeRisk])
}

func TestEvaluate_StructuralLocationFailsContinuationAtResistance(t *testing.T) {
	in := fullAlignedPassingInputs()
	in.HTFLocation = domain.HTFResistance
	eval := Evaluate(context.Background(), in)
	assert.False(t, eval.PerGate[domain.GateStructuralLocation])
}

func TestEvaluate_StructuralLocationFailsFailureAtSupport(t *testing.T) {
	in := fullAlignedPassingInputs()
	in.HTFLocation = domain.HTFSupport
	in.Probability.ActiveState = domain.StateFailure
	in.Probability.PFailure = 0.34
	eval := Evaluate(context.Background(), in)
	assert.False(t, eval.PerGate[domain.GateStructuralLocation])
}

func TestEvaluate_OverconfidenceFlagFails(t *testing.T) {
	in := fullAlignedPassingInputs()
	in.Probability.Flags = []domain.ConsistencyFlag{domain.FlagOverconfidence}
	eval := Evaluate(context.Background(), in)
	assert.False(t, eval.PerGate[domain.GateOverconfidence])
}

func TestEvaluate_NeverShortCircuits(t *testing.T) {
	in := Inputs{
		Symbol:     "INFY",
		Alignment:  domain.AlignmentConflict,
		IsUnstable: true,
		Probability: domain.ProbabilityResult{
			PContinuation: 0.71, PPullback: 0.71, PFailure: 0.71,
			ActiveState: domain.StateConflict,
		},
		HTFLocation: domain.HTFResistance,
		RiskCeiling: 0.35,
	}
	eval := Evaluate(context.Background(), in)
	assert.Len(t, eval.PerGate, 5)
	// The structural location gate passes on CONFLICT_STATE, so four of
	// the five gates fail and each contributes one reason.
	assert.Len(t, eval.Permission.Reasons, 4)
}

func TestEvaluate_DefaultCeilingAppliedWhenZero(t *testing.T) {
	in := fullAlignedPassingInputs()
	in.RiskCeiling = 0
	in.Probability.PFailure = 0.20
	eval := Evaluate(context.Background(), in)
	assert.True(t, eval.PerGate[domain.GateRegimeRisk])
}
