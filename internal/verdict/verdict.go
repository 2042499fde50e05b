// Package verdict implements C9: the final decision-table composer
// mapping discrete state inputs to a human-facing label, confidence,
// and one-paragraph summary. It never touches raw analysis fields —
// only the strict, already-classified vocabulary the rest of the
// pipeline produces.
package verdict

import (
	"fmt"

	"github.com/nse-agent/marketagent/internal/domain"
)

// Inputs is the composer's strict API surface.
type Inputs struct {
	Alignment   domain.Alignment
	ActiveState domain.ComposerActiveState
	GateStatus  domain.GateStatus
	RegimeFlags []domain.RegimeFlag
	HTFLocation domain.HTFLocation
	TrendState  domain.TrendState
	Symbol      string
}

// Compose applies the C9 decision table.
func Compose(in Inputs) domain.Verdict {
	label := label(in)
	return domain.Verdict{
		Label:      label,
		Confidence: confidence(in),
		Summary:    summary(in, label),
	}
}

func label(in Inputs) domain.VerdictLabel {
	aligned := in.Alignment == domain.AlignmentFull || in.Alignment == domain.AlignmentPartial

	if in.Alignment == domain.AlignmentConflict {
		return domain.VerdictAvoid
	}
	if in.Alignment == domain.AlignmentUnstable || in.ActiveState == domain.ComposerReversal || len(in.RegimeFlags) > 0 {
		return domain.VerdictCaution
	}
	if aligned && (in.ActiveState == domain.ComposerContinuation || in.ActiveState == domain.ComposerPullback) &&
		in.GateStatus == domain.GateStatusPass && len(in.RegimeFlags) == 0 {
		return domain.VerdictOpportunity
	}
	if aligned && in.GateStatus == domain.GateStatusBlocked && len(in.RegimeFlags) == 0 {
		return domain.VerdictMonitor
	}
	return domain.VerdictCaution
}

func confidence(in Inputs) domain.ConfidenceLevel {
	if in.Alignment == domain.AlignmentFull && in.GateStatus == domain.GateStatusPass {
		return domain.ConfidenceHigh
	}
	if in.Alignment == domain.AlignmentPartial || in.GateStatus == domain.GateStatusBlocked {
		if len(in.RegimeFlags) == 0 {
			return domain.ConfidenceMedium
		}
	}
	return domain.ConfidenceLow
}

func summary(in Inputs, label domain.VerdictLabel) string {
	switch label {
	case domain.VerdictOpportunity:
		return fmt.Sprintf(
			"%s shows %s cross-timeframe alignment with an active %s scenario and execution structurally clear; no regime flags raised.",
			in.Symbol, lower(string(in.Alignment)), lower(string(in.ActiveState)))
	case domain.VerdictMonitor:
		return fmt.Sprintf(
			"%s is %s aligned but structurally blocked for this decision cycle; revisit on the next structure change.",
			in.Symbol, lower(string(in.Alignment)))
	case domain.VerdictCaution:
		reason := "elevated structural risk"
		switch {
		case in.Alignment == domain.AlignmentUnstable:
			reason = "alignment is unstable, price pressed against the dominant-timeframe boundary"
		case in.ActiveState == domain.ComposerReversal:
			reason = "the active scenario has turned to reversal"
		case len(in.RegimeFlags) > 0:
			reason = "a regime flag is set"
		}
		return fmt.Sprintf("%s warrants caution: %s.", in.Symbol, reason)
	default:
		return fmt.Sprintf("%s timeframes conflict; no structural edge to act on.", in.Symbol)
	}
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
