// Package intent implements C10: classifying free user text into a
// canonical intent and, for follow-ups, rewriting it against stored
// dialogue state. A pure function of (text, DialogueState) — it never
// touches the chart client, the LLM, or any other collaborator.
package intent

import (
	"strings"

	"github.com/nse-agent/marketagent/internal/domain"
)

var observeTriggers = []string{
	"what do you see", "what are you seeing", "tell me what you see",
	"describe the screen", "describe screen", "what is on my screen",
	"whats on my screen", "read the screen", "analyze the chart",
	"do you see", "is the app running", "check if",
	"what is on the screen", "whats on the screen",
}

var followupExact = map[string]bool{
	"now": true, "now?": true, "ok": true, "then": true, "what next": true, "next": true,
	"read it": true, "read that": true, "explain": true, "details": true,
	"what does it say": true, "raw": true, "ocr": true, "summary": true,
}

var scanKeywords = []string{
	"scan", "scanner", "market scan", "scan market", "nifty 50", "bank nifty", "options scan", "ce pe",
}

var marketKeywords = []string{
	"analyze", "analysis", "technical analysis", "support", "resistance", "trend",
	"rsi", "macd", "ema", "tradingview", "reasoning", "synthesis", "synthesize",
	"multi-timeframe", "multi timeframe", "multitimeframe", "mtf", "scenario",
	"continuation", "pullback", "failure", "dominant", "alignment", "reversion", "stability",
}

var tradingKeywords = []string{"buy", "sell", "trade", "execute", "order"}
var actionKeywords = []string{"draw", "mark", "click", "type", "open browser"}
var actionVerbs = []string{"open", "close", "type", "click", "save", "select", "launch", "run", "wait"}

var greetingPhrases = []string{"hi", "hello", "hey", "good morning", "good afternoon", "good evening"}

// Classify maps text to a CanonicalIntent under the given dialogue
// state. The first matching rule wins; rules are tried in the fixed
// order the original resolver specifies.
func Classify(text string, state domain.DialogueState) domain.ClassifiedIntent {
	clean := normalize(text)

	if clean == "" {
		return domain.ClassifiedIntent{Intent: domain.IntentUnknown, NormalizedText: text}
	}

	if containsAny(clean, observeTriggers) {
		return domain.ClassifiedIntent{Intent: domain.IntentObserveScreen, NormalizedText: text}
	}

	if followupExact[clean] {
		if state.LastObservation != "" {
			return domain.ClassifiedIntent{Intent: domain.IntentFollowup, NormalizedText: text}
		}
		return domain.ClassifiedIntent{Intent: domain.IntentObserveScreen, NormalizedText: "what do you see now?"}
	}

	if containsAny(clean, scanKeywords) {
		return domain.ClassifiedIntent{Intent: domain.IntentMarketScan, NormalizedText: text}
	}

	hasMarket := containsAny(clean, marketKeywords)
	hasTrading := containsAny(clean, tradingKeywords)
	hasAction := containsAny(clean, actionKeywords)
	if hasMarket && !hasTrading && !hasAction {
		return domain.ClassifiedIntent{Intent: domain.IntentMarketAnalysis, NormalizedText: text}
	}

	for _, v := range actionVerbs {
		if strings.HasPrefix(clean, v) {
			if strings.Contains(clean, " and ") || strings.Contains(clean, " then ") {
				return domain.ClassifiedIntent{Intent: domain.IntentActionComposite, NormalizedText: text}
			}
			return domain.ClassifiedIntent{Intent: domain.IntentAction, NormalizedText: text}
		}
	}

	if (strings.Contains(clean, "describe") || strings.Contains(clean, "tell me") || strings.Contains(clean, "what is")) &&
		(strings.Contains(clean, "screen") || strings.Contains(clean, "window") || strings.Contains(clean, "see")) {
		return domain.ClassifiedIntent{Intent: domain.IntentObserveScreen, NormalizedText: text}
	}

	if containsAny(clean, greetingPhrases) {
		return domain.ClassifiedIntent{Intent: domain.IntentGreeting, NormalizedText: text}
	}

	if strings.HasPrefix(clean, "can you ") || strings.HasPrefix(clean, "how do i") {
		if containsAny(clean, actionVerbs) {
			return domain.ClassifiedIntent{Intent: domain.IntentAction, NormalizedText: text}
		}
		if strings.Contains(clean, "see") {
			return domain.ClassifiedIntent{Intent: domain.IntentObserveScreen, NormalizedText: text}
		}
	}

	return domain.ClassifiedIntent{Intent: domain.IntentAction, NormalizedText: text}
}

// Decompose splits a compound instruction on " and "/" then ", but only
// for non-market intents: MARKET_ANALYSIS and MARKET_SCAN are atomic and
// never decomposed. Quoted spans are respected; separators inside quotes
// are ignored.
func Decompose(intent domain.CanonicalIntent, text string) []string {
	if intent == domain.IntentMarketAnalysis || intent == domain.IntentMarketScan {
		return []string{text}
	}
	return splitRespectingQuotes(text)
}

func splitRespectingQuotes(text string) []string {
	var parts []string
	var cur strings.Builder
	inQuote := false
	var quoteChar byte

	lower := strings.ToLower(text)
	i := 0
	for i < len(text) {
		c := text[i]
		if (c == '"' || c == '\'') && (!inQuote || quoteChar == c) {
			inQuote = !inQuote
			if inQuote {
				quoteChar = c
			}
			cur.WriteByte(c)
			i++
			continue
		}
		if !inQuote {
			if strings.HasPrefix(lower[i:], " and ") {
				parts = append(parts, strings.TrimSpace(cur.String()))
				cur.Reset()
				i += len(" and ")
				continue
			}
			if strings.HasPrefix(lower[i:], " then ") {
				parts = append(parts, strings.TrimSpace(cur.String()))
				cur.Reset()
				i += len(" then ")
				continue
			}
		}
		cur.WriteByte(c)
		i++
	}
	if cur.Len() > 0 {
		parts = append(parts, strings.TrimSpace(cur.String()))
	}
	if len(parts) == 0 {
		return []string{text}
	}
	return parts
}

func normalize(text string) string {
	s := strings.ToLower(strings.TrimSpace(text))
	s = strings.TrimRight(s, "?.!")
	s = strings.ReplaceAll(s, "’", "'")
	s = strings.ReplaceAll(s, "“", `"`)
	s = strings.ReplaceAll(s, "”", `"`)
	return s
}

func containsAny(text string, substrs []string) bool {
	for _, s := range substrs {
		if strings.Contains(text, s) {
			return true
		}
	}
	return false
}
