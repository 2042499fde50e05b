package analyzer

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nse-agent/marketagent/internal/domain"
)

// parsedRecord is the shape the LLM is asked to emit.
type parsedRecord struct {
	Trend              string    `json:"trend"`
	Structure          string    `json:"structure"`
	Support            []float64 `json:"support"`
	Resistance         []float64 `json:"resistance"`
	Momentum           string    `json:"momentum"`
	MomentumCondition  string    `json:"momentum_condition"`
	VolumeTrend        string    `json:"volume_trend"`
	CandlestickPattern string    `json:"candlestick_pattern"`
	Reasoning          string    `json:"reasoning"`
	Bias               string    `json:"bias"`
	KeyLevels          string    `json:"key_levels"`
}

// stripCodeFence removes a surrounding ```json ... ``` or ``` ... ```
// fence, if present.
func stripCodeFence(text string) string {
	t := strings.TrimSpace(text)
	if !strings.HasPrefix(t, "```") {
		return t
	}
	t = strings.TrimPrefix(t, "```json")
	t = strings.TrimPrefix(t, "```")
	t = strings.TrimSuffix(t, "```")
	return strings.TrimSpace(t)
}

// parseCompletion parses the LLM's completion and repairs missing
// fields with conservative defaults, matching the original's repair
// policy: structure inferred from trend; volume_trend defaults to
// "unavailable"; candlestick_pattern defaults to "none";
// momentum_condition defaults to "neutral".
func parseCompletion(text string) (parsedRecord, error) {
	clean := stripCodeFence(text)
	var r parsedRecord
	if err := json.Unmarshal([]byte(clean), &r); err != nil {
		return parsedRecord{}, fmt.Errorf("parse analysis completion: %w", err)
	}

	if r.Structure == "" {
		switch domain.Trend(r.Trend) {
		case domain.TrendBullish:
			r.Structure = string(domain.StructureHigherHighs)
		case domain.TrendBearish:
			r.Structure = string(domain.StructureLowerLows)
		default:
			r.Structure = string(domain.StructureRangeBound)
		}
	}
	if r.VolumeTrend == "" {
		r.VolumeTrend = "unavailable"
	}
	if r.CandlestickPattern == "" {
		r.CandlestickPattern = "none"
	}
	if r.MomentumCondition == "" {
		r.MomentumCondition = "neutral"
	}
	if r.Support == nil {
		r.Support = []float64{}
	}
	if r.Resistance == nil {
		r.Resistance = []float64{}
	}
	return r, nil
}
