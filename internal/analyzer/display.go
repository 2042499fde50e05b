package analyzer

import (
	"fmt"
	"strings"

	"github.com/nse-agent/marketagent/internal/domain"
)

// FormatForDisplay renders an Analysis as a structured, numbered-section
// bullet report for the chat sink, instead of dumping raw JSON.
func FormatForDisplay(a domain.Analysis) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s (%s)\n", a.Symbol, a.Timeframe)

	fmt.Fprintf(&b, "1. Trend: %s (%s)\n", a.Trend, a.Structure)
	fmt.Fprintf(&b, "2. Momentum: %s", a.Momentum)
	if a.MomentumCondition != "" {
		fmt.Fprintf(&b, " (%s)", a.MomentumCondition)
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "3. Volume: %s\n", a.VolumeTrend)

	b.WriteString("4. Key Levels:\n")
	for _, s := range a.Support {
		fmt.Fprintf(&b, "   support %.2f\n", s)
	}
	for _, r := range a.Resistance {
		fmt.Fprintf(&b, "   resistance %.2f\n", r)
	}

	if a.CandlestickPattern != "" && a.CandlestickPattern != "none" {
		fmt.Fprintf(&b, "5. Candlestick Pattern: %s\n", a.CandlestickPattern)
	}

	fmt.Fprintf(&b, "6. Context: price %.2f, %s\n", a.Price, priceLocation(a))
	fmt.Fprintf(&b, "7. Reasoning: %s\n", a.Reasoning)

	if len(a.ValidationWarnings) > 0 {
		b.WriteString("Warnings:\n")
		for _, w := range a.ValidationWarnings {
			fmt.Fprintf(&b, "   - %s\n", w)
		}
	}

	b.WriteString("This is a probabilistic structural description, not a trade instruction.\n")
	return b.String()
}

// priceLocation describes price's position within the support/resistance
// band by a simple mid-range comparison.
func priceLocation(a domain.Analysis) string {
	if len(a.Support) == 0 || len(a.Resistance) == 0 {
		return "location within range unavailable"
	}
	lo, hi := a.Support[0], a.Resistance[0]
	for _, s := range a.Support {
		if s > lo {
			lo = s
		}
	}
	for _, r := range a.Resistance {
		if r < hi {
			hi = r
		}
	}
	if hi <= lo {
		return "location within range unavailable"
	}
	mid := (lo + hi) / 2
	if a.Price >= mid {
		return "upper half of the structural range"
	}
	return "lower half of the structural range"
}
