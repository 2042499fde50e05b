// Package analyzer implements C4: per-timeframe LLM synthesis of
// reconciled evidence into a structured Analysis record.
package analyzer

import (
	"fmt"
	"strings"

	"github.com/nse-agent/marketagent/internal/chartclient"
	"github.com/nse-agent/marketagent/internal/domain"
)

const systemPrompt = `You are a professional technical analyst providing precise market analysis for trading decisions. You describe structure and probability only; you never issue trading instructions. Respond with a single JSON object and nothing else.`

// buildPrompt assembles the canonical analysis prompt: header, raw
// indicators, volume, the raw VLM text, then the reconciliation's
// evidence and conflict briefs, then task instructions and the exact
// JSON schema requested.
func buildPrompt(symbol string, tf domain.Timeframe, dom chartclient.DOMRecord, vlmText string, report domain.ReconciliationReport) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Symbol: %s\nTimeframe: %s\n", symbol, tf)
	if dom.HasPrice {
		fmt.Fprintf(&b, "Price: %.2f\n", dom.Price)
	}
	if dom.HasChange {
		fmt.Fprintf(&b, "Change: %.2f%%\n", dom.Change)
	}
	if len(dom.Indicators) > 0 {
		b.WriteString("Indicators:\n")
		for name, v := range dom.Indicators {
			fmt.Fprintf(&b, "  %s: %.2f\n", name, v)
		}
	}
	if dom.HasVolume {
		fmt.Fprintf(&b, "Volume: %.0f\n", dom.Volume)
	}
	if strings.TrimSpace(vlmText) != "" {
		fmt.Fprintf(&b, "\nVision observation:\n%s\n", vlmText)
	}

	fmt.Fprintf(&b, "\n%s\n%s\n", report.EvidenceBrief, report.ConflictBrief)

	b.WriteString("\nTask: produce a structural technical analysis as a single JSON object with exactly these fields:\n")
	b.WriteString(`{"trend":"bullish|bearish|sideways","structure":"higher-highs|lower-lows|range-bound|consolidation",` +
		`"support":[...],"resistance":[...],"momentum":"...","momentum_condition":"...","volume_trend":"...",` +
		`"candlestick_pattern":"...","reasoning":"...","bias":"...","key_levels":"..."}` + "\n")

	b.WriteString("\nRules:\n")
	b.WriteString("1. Every support level must be below the current price.\n")
	b.WriteString("2. Every resistance level must be above the current price.\n")
	b.WriteString("3. volume_trend must be one of: increasing, decreasing, declining, surging, drying up, unavailable.\n")
	b.WriteString("4. If momentum is stated, momentum_condition is required.\n")
	b.WriteString(fmt.Sprintf("5. Never use these words anywhere in reasoning, bias, or key_levels: %s.\n", strings.Join(domain.ForbiddenWords, ", ")))
	b.WriteString("6. Never state a trend without supporting structure.\n")
	b.WriteString("7. Keep reasoning to structural/probabilistic language only, never an instruction.\n")
	b.WriteString("8. Output JSON only, no markdown fences.\n")

	return b.String()
}
