package probability

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nse-agent/marketagent/internal/domain"
)

func TestCalculate_SumsToOne(t *testing.T) {
	cases := []domain.Alignment{domain.AlignmentFull, domain.AlignmentPartial, domain.AlignmentUnstable, domain.AlignmentConflict}
	for _, align := range cases {
		t.Run(string(align), func(t *testing.T) {
			result := Calculate(Inputs{Alignment: align, DominantTrend: domain.TrendBullish})
			require.True(t, result.SumOK)
			sum := result.PContinuation + result.PPullback + result.PFailure
			assert.InDelta(t, 1.0, sum, 0.001)
		})
	}
}

func TestCalculate_FullStableBaseline(t *testing.T) {
	result := Calculate(Inputs{Alignment: domain.AlignmentFull, DominantTrend: domain.TrendBullish})
	assert.Equal(t, domain.StateContinuation, result.ActiveState)
	assert.Greater(t, result.PContinuation, result.PPullback)
	assert.Greater(t, result.PContinuation, result.PFailure)
}

func TestCalculate_ConflictAlignmentForcesConflictState(t *testing.T) {
	result := Calculate(Inputs{Alignment: domain.AlignmentConflict, DominantTrend: domain.TrendBullish})
	assert.Equal(t, domain.StateConflict, result.ActiveState)
}

func TestCalculate_UnstableAlignmentWithUnstableFlagForcesConflictState(t *testing.T) {
	result := Calculate(Inputs{Alignment: domain.AlignmentUnstable, IsUnstable: true, DominantTrend: domain.TrendBullish})
	assert.Equal(t, domain.StateConflict, result.ActiveState)
}

func TestCalculate_HTFResistanceShiftsTowardPullback(t *testing.T) {
	base := Calculate(Inputs{Alignment: domain.AlignmentFull, DominantTrend: domain.TrendBullish})
	atResistance := Calculate(Inputs{Alignment: domain.AlignmentFull, DominantTrend: domain.TrendBullish, HTFLocation: domain.HTFResistance})
	assert.Greater(t, atResistance.PPullback, base.PPullback)
	assert.Less(t, atResistance.PContinuation, base.PContinuation)
}

func TestValidate_OverconfidenceFlagsAnyOfTheThreeProbabilities(t *testing.T) {
	// AlignmentFull + unstable starts PPullback from a 0.50 base, which the
	// is_unstable multiplier and renormalization leave near 0.57, well
	// under 0.70; exercise the flag directly
	// through validate's contract instead of relying on a specific
	// Calculate path so the test stays independent of the adjustment
	// chain's exact arithmetic.
	flags := validate(Inputs{DominantTrend: domain.TrendBullish}, 0.71, 0.10, 0.19)
	assert.Contains(t, flags, domain.FlagOverconfidence)

	flags = validate(Inputs{DominantTrend: domain.TrendBullish}, 0.10, 0.71, 0.19)
	assert.Contains(t, flags, domain.FlagOverconfidence)

	flags = validate(Inputs{DominantTrend: domain.TrendBullish}, 0.10, 0.19, 0.71)
	assert.Contains(t, flags, domain.FlagOverconfidence)

	flags = validate(Inputs{DominantTrend: domain.TrendBullish}, 0.40, 0.30, 0.30)
	assert.NotContains(t, flags, domain.FlagOverconfidence)
}

func TestValidate_ContradictionWhenBullishBelowSupport(t *testing.T) {
	flags := validate(Inputs{DominantTrend: domain.TrendBullish, CurrentPrice: 90, Support: []float64{100}}, 0.65, 0.15, 0.20)
	assert.Contains(t, flags, domain.FlagContradiction)
}

func TestValidate_WarningWhenHighFailureUnderFullAlignment(t *testing.T) {
	flags := validate(Inputs{Alignment: domain.AlignmentFull, DominantTrend: domain.TrendBullish}, 0.20, 0.25, 0.55)
	assert.Contains(t, flags, domain.FlagWarning)
}

func TestRound2(t *testing.T) {
	assert.Equal(t, 0.33, round2(0.3333))
	assert.Equal(t, 0.5, round2(0.5))
}
