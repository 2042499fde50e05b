// Package perception implements C3: trust-weighted fusion of DOM and
// VLM claims into a single, deterministic, conflict-annotated fact set
// per dimension, with two text briefs suitable for prompt injection.
package perception

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/nse-agent/marketagent/internal/chartclient"
	"github.com/nse-agent/marketagent/internal/domain"
)

// visualDimensions win to the VLM claim when both channels have one.
var visualDimensions = map[domain.Dimension]bool{
	domain.DimTrend:              true,
	domain.DimStructure:          true,
	domain.DimCandlestickPattern: true,
	domain.DimChartPattern:       true,
}

// completenessTargets is the fixed target set for the completeness
// score.
var completenessTargets = map[domain.Dimension]bool{
	domain.DimTrend:      true,
	domain.DimMomentum:   true,
	domain.DimSupport:    true,
	domain.DimResistance: true,
	domain.DimVolume:     true,
	domain.DimStructure:  true,
}

// Reconciler fuses one DOM record and one VLM observation text into a
// ReconciliationReport. It holds no state: identical inputs always
// produce a byte-identical report.
type Reconciler struct{}

// New returns a stateless Reconciler.
func New() *Reconciler { return &Reconciler{} }

// Reconcile runs the full fusion algorithm.
func (Reconciler) Reconcile(dom chartclient.DOMRecord, vlmText string) domain.ReconciliationReport {
	domClaims := extractDOMClaims(dom)
	vlmClaims := extractVLMClaims(vlmText)

	byDimension := map[domain.Dimension][]domain.PerceptionClaim{}
	for _, c := range domClaims {
		byDimension[c.Dimension] = append(byDimension[c.Dimension], c)
	}
	for _, c := range vlmClaims {
		byDimension[c.Dimension] = append(byDimension[c.Dimension], c)
	}

	dims := make([]domain.Dimension, 0, len(byDimension))
	for d := range byDimension {
		dims = append(dims, d)
	}
	sort.Slice(dims, func(i, j int) bool { return dims[i] < dims[j] })

	facts := map[domain.Dimension]domain.PerceptionClaim{}
	var conflicts []domain.ConflictRecord

	for _, dim := range dims {
		claims := byDimension[dim]
		sort.SliceStable(claims, func(i, j int) bool {
			if claims[i].Confidence != claims[j].Confidence {
				return claims[i].Confidence > claims[j].Confidence
			}
			return domain.SourceRank(claims[i].Source) < domain.SourceRank(claims[j].Source)
		})
		domClaim := firstBySource(claims, true)
		vlmClaim := firstBySource(claims, false)

		if domClaim != nil && vlmClaim != nil {
			if conflict, ok := detectConflict(dim, *domClaim, *vlmClaim); ok {
				conflicts = append(conflicts, conflict)
			}
		}

		winner := pickWinner(dim, domClaim, vlmClaim)
		if winner != nil {
			facts[dim] = *winner
		}
	}

	overall := overallConfidence(facts, conflicts)
	completeness := computeCompleteness(facts)

	report := domain.ReconciliationReport{
		Facts:             facts,
		Conflicts:         conflicts,
		OverallConfidence: overall,
		Completeness:      completeness,
	}
	report.EvidenceBrief = buildEvidenceBrief(facts, dims)
	report.ConflictBrief = buildConflictBrief(conflicts)
	return report
}

func firstBySource(claims []domain.PerceptionClaim, dom bool) *domain.PerceptionClaim {
	for i := range claims {
		c := claims[i]
		isDOM := c.Source == domain.SourceDOMNumeric || c.Source == domain.SourceDOMText
		if isDOM == dom {
			return &c
		}
	}
	return nil
}

func pickWinner(dim domain.Dimension, domClaim, vlmClaim *domain.PerceptionClaim) *domain.PerceptionClaim {
	switch {
	case domClaim != nil && vlmClaim == nil:
		return domClaim
	case domClaim == nil && vlmClaim != nil:
		return vlmClaim
	case domClaim == nil && vlmClaim == nil:
		return nil
	}
	if visualDimensions[dim] {
		return vlmClaim
	}
	return domClaim
}

func detectConflict(dim domain.Dimension, dom, vlm domain.PerceptionClaim) (domain.ConflictRecord, bool) {
	switch dim {
	case domain.DimTrend:
		return detectTrendConflict(dom, vlm)
	case domain.DimMomentumCondition:
		return detectMomentumConflict(dom, vlm)
	case domain.DimSupport, domain.DimResistance:
		return detectLevelConflict(dim, dom, vlm)
	default:
		return domain.ConflictRecord{}, false
	}
}

func detectTrendConflict(dom, vlm domain.PerceptionClaim) (domain.ConflictRecord, bool) {
	if dom.Value == vlm.Value {
		return domain.ConflictRecord{}, false
	}
	severity := domain.SeverityMedium
	opposite := (dom.Value == string(domain.TrendBullish) && vlm.Value == string(domain.TrendBearish)) ||
		(dom.Value == string(domain.TrendBearish) && vlm.Value == string(domain.TrendBullish))
	if opposite {
		severity = domain.SeverityCritical
	}
	return domain.ConflictRecord{
		Dimension:  domain.DimTrend,
		DOMClaim:   &dom,
		VLMClaim:   &vlm,
		Severity:   severity,
		Resolution: "VLM wins (visual dimension)",
		Detail:     fmt.Sprintf("trend: DOM-derived %s vs VLM %s", dom.Value, vlm.Value),
	}, true
}

func detectMomentumConflict(dom, vlm domain.PerceptionClaim) (domain.ConflictRecord, bool) {
	exhaustingVsExpanding := dom.Value == "exhausting" && vlm.Value == "expanding"
	improvingVsExhausting := dom.Value == "improving" && vlm.Value == "exhausting"
	if !exhaustingVsExpanding && !improvingVsExhausting {
		return domain.ConflictRecord{}, false
	}
	return domain.ConflictRecord{
		Dimension:  domain.DimMomentumCondition,
		DOMClaim:   &dom,
		VLMClaim:   &vlm,
		Severity:   domain.SeverityHigh,
		Resolution: "DOM wins (RSI numeric fact)",
		Detail:     fmt.Sprintf("momentum_condition: DOM %s vs VLM %s — DOM wins (RSI numeric fact)", dom.Value, vlm.Value),
	}, true
}

func detectLevelConflict(dim domain.Dimension, dom, vlm domain.PerceptionClaim) (domain.ConflictRecord, bool) {
	domVal, err1 := strconv.ParseFloat(dom.Value, 64)
	vlmVal, err2 := strconv.ParseFloat(vlm.Value, 64)
	if err1 != nil || err2 != nil || domVal == 0 {
		return domain.ConflictRecord{}, false
	}
	divergence := math.Abs(domVal-vlmVal) / math.Abs(domVal)
	if divergence <= 0.05 {
		return domain.ConflictRecord{}, false
	}
	severity := domain.SeverityMedium
	if divergence >= 0.15 {
		severity = domain.SeverityHigh
	}
	return domain.ConflictRecord{
		Dimension:  dim,
		DOMClaim:   &dom,
		VLMClaim:   &vlm,
		Severity:   severity,
		Resolution: "DOM wins (numeric fact)",
		Detail:     fmt.Sprintf("%s: DOM %.2f vs VLM %.2f (%.1f%% divergence)", dim, domVal, vlmVal, divergence*100),
	}, true
}

func overallConfidence(facts map[domain.Dimension]domain.PerceptionClaim, conflicts []domain.ConflictRecord) float64 {
	if len(facts) == 0 {
		return 0.10
	}
	var sum float64
	for _, f := range facts {
		sum += f.Confidence
	}
	mean := sum / float64(len(facts))
	for _, c := range conflicts {
		mean -= domain.ConflictPenalty(c.Severity)
	}
	if mean < 0.10 {
		mean = 0.10
	}
	if mean > 1.00 {
		mean = 1.00
	}
	return mean
}

func computeCompleteness(facts map[domain.Dimension]domain.PerceptionClaim) float64 {
	covered := 0
	for dim := range completenessTargets {
		if _, ok := facts[dim]; ok {
			covered++
		}
	}
	return float64(covered) / float64(len(completenessTargets))
}

func trustTag(confidence float64) string {
	switch {
	case confidence >= 0.8:
		return "HIGH"
	case confidence >= 0.5:
		return "MEDIUM"
	default:
		return "LOW"
	}
}

func buildEvidenceBrief(facts map[domain.Dimension]domain.PerceptionClaim, dims []domain.Dimension) string {
	var b strings.Builder
	b.WriteString("Evidence:\n")
	for _, dim := range dims {
		f, ok := facts[dim]
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "- %s: %s [%s, %s]\n", dim, f.Value, trustTag(f.Confidence), f.Source)
	}
	return b.String()
}

func buildConflictBrief(conflicts []domain.ConflictRecord) string {
	if len(conflicts) == 0 {
		return "Conflicts: none.\n"
	}
	var b strings.Builder
	b.WriteString("Conflicts:\n")
	for _, c := range conflicts {
		icon := severityIcon(c.Severity)
		fmt.Fprintf(&b, "%s %s: %s — %s\n", icon, c.Dimension, c.Detail, c.Resolution)
	}
	b.WriteString("Weight DOM numeric data higher than VLM visual impressions where conflicts exist.\n")
	return b.String()
}

func severityIcon(s domain.ConflictSeverity) string {
	switch s {
	case domain.SeverityCritical:
		return "[!!!]"
	case domain.SeverityHigh:
		return "[!!]"
	case domain.SeverityMedium:
		return "[!]"
	default:
		return "[-]"
	}
}
