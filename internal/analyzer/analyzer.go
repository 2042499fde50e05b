package analyzer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/nse-agent/marketagent/internal/chartclient"
	"github.com/nse-agent/marketagent/internal/domain"
	"github.com/nse-agent/marketagent/internal/llmclient"
	"github.com/nse-agent/marketagent/internal/perception"
)

// Analyzer synthesizes one Analysis record from a DOM observation and
// an optional VLM text for a single (symbol, timeframe).
type Analyzer struct {
	reconciler *perception.Reconciler
	llm        llmclient.Client
}

// New constructs an Analyzer over the given LLM client.
func New(llm llmclient.Client) *Analyzer {
	return &Analyzer{reconciler: perception.New(), llm: llm}
}

// Analyze runs the full C4 protocol: reconcile, prompt, complete, parse,
// post-validate, attach perception metadata. It does not persist the
// record; callers pass the result to the analysis store.
func (a *Analyzer) Analyze(ctx context.Context, symbol string, tf domain.Timeframe, dom chartclient.DOMRecord, vlmText string) (domain.Analysis, error) {
	report := a.reconciler.Reconcile(dom, vlmText)

	prompt := buildPrompt(symbol, tf, dom, vlmText, report)
	completion, err := a.llm.GenerateCompletion(ctx, systemPrompt, prompt)
	if err != nil {
		return domain.Analysis{}, fmt.Errorf("analyze %s %s: %w", symbol, tf, err)
	}

	parsed, err := parseCompletion(completion)
	if err != nil {
		return domain.Analysis{}, fmt.Errorf("analyze %s %s: %w", symbol, tf, err)
	}

	analysis := domain.Analysis{
		Symbol:             symbol,
		Timeframe:          tf,
		Timestamp:          time.Now(),
		Trend:              domain.Trend(parsed.Trend),
		Structure:          domain.Structure(parsed.Structure),
		Support:            parsed.Support,
		Resistance:         parsed.Resistance,
		Momentum:           parsed.Momentum,
		MomentumCondition:  parsed.MomentumCondition,
		VolumeTrend:        parsed.VolumeTrend,
		CandlestickPattern: parsed.CandlestickPattern,
		Price:              dom.Price,
		Reasoning:          parsed.Reasoning,
		Bias:               parsed.Bias,
		KeyLevels:          parsed.KeyLevels,

		PerceptionConfidence:   report.OverallConfidence,
		PerceptionCompleteness: report.Completeness,
		PerceptionConflicts:    len(report.Conflicts),
		CriticalConflict:       report.HasCriticalConflicts(),
	}

	analysis.ValidationWarnings = validateConsistency(analysis)

	if violation, blocked := SafetyViolation(analysis); blocked {
		return domain.Analysis{}, fmt.Errorf("analyze %s %s: safety validator rejected record: %s", symbol, tf, violation)
	}

	return analysis, nil
}

// validateConsistency post-validates a parsed record against the
// ordering, forbidden-word, and momentum/condition invariants. It never
// rejects the record outright: it records warnings the caller keeps.
func validateConsistency(a domain.Analysis) []string {
	var warnings []string

	for _, s := range a.Support {
		if s >= a.Price {
			warnings = append(warnings, fmt.Sprintf("support level %.2f is not below price %.2f", s, a.Price))
		}
	}
	for _, r := range a.Resistance {
		if r <= a.Price {
			warnings = append(warnings, fmt.Sprintf("resistance level %.2f is not above price %.2f", r, a.Price))
		}
	}

	if a.Momentum != "" && a.MomentumCondition == "" {
		warnings = append(warnings, "momentum stated without momentum_condition")
	}

	combined := strings.ToLower(a.Reasoning + " " + a.Bias + " " + a.KeyLevels)
	for _, word := range domain.ForbiddenWords {
		if strings.Contains(combined, word) {
			warnings = append(warnings, fmt.Sprintf("forbidden word %q present in narrative fields", word))
		}
	}

	return warnings
}

// SafetyViolation scans the final record for trading-imperative phrases.
// Their presence blocks the record from being used by any downstream
// component.
func SafetyViolation(a domain.Analysis) (string, bool) {
	combined := strings.ToLower(a.Reasoning + " " + a.Bias + " " + a.KeyLevels)
	for _, phrase := range domain.ForbiddenPhrases {
		if strings.Contains(combined, phrase) {
			return phrase, true
		}
	}
	return "", false
}
