package perception

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nse-agent/marketagent/internal/domain"
)

func momentumClaim(source domain.ClaimSource, value string) domain.PerceptionClaim {
	return domain.PerceptionClaim{
		Dimension: domain.DimMomentumCondition,
		Value:     value,
		Source:    source,
	}
}

func TestDetectMomentumConflict_ExhaustingVsExpanding(t *testing.T) {
	dom := momentumClaim(domain.SourceDOMNumeric, "exhausting")
	vlm := momentumClaim(domain.SourceVLMSentiment, "expanding")
	rec, ok := detectMomentumConflict(dom, vlm)
	assert.True(t, ok)
	assert.Equal(t, domain.SeverityHigh, rec.Severity)
	assert.Equal(t, domain.DimMomentumCondition, rec.Dimension)
}

func TestDetectMomentumConflict_ImprovingVsExhausting(t *testing.T) {
	dom := momentumClaim(domain.SourceDOMNumeric, "improving")
	vlm := momentumClaim(domain.SourceVLMSentiment, "exhausting")
	rec, ok := detectMomentumConflict(dom, vlm)
	assert.True(t, ok)
	assert.Equal(t, domain.SeverityHigh, rec.Severity)
}

func TestDetectMomentumConflict_OtherMismatchesAreNotConflicts(t *testing.T) {
	// Any momentum_condition mismatch other than the two spec-documented
	// combos is not a conflict at all, matching the original's
	// _check_momentum_conflict returning None for every other combination.
	cases := []struct {
		name     string
		domValue string
		vlmValue string
	}{
		{"expanding vs exhausting (reverse of documented combo)", "expanding", "exhausting"},
		{"exhausting vs improving (reverse of documented combo)", "exhausting", "improving"},
		{"neutral vs improving", "neutral", "improving"},
		{"improving vs expanding", "improving", "expanding"},
		{"same value", "improving", "improving"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			dom := momentumClaim(domain.SourceDOMNumeric, tc.domValue)
			vlm := momentumClaim(domain.SourceVLMSentiment, tc.vlmValue)
			rec, ok := detectMomentumConflict(dom, vlm)
			assert.False(t, ok)
			assert.Equal(t, domain.ConflictRecord{}, rec)
		})
	}
}
