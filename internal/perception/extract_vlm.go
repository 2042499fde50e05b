package perception

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/nse-agent/marketagent/internal/domain"
)

// vlmPriceLevel matches any numeric token; parseLevel then rejects
// values outside the plausible vlmMinLevel..vlmMaxLevel range.
var vlmPriceLevel = regexp.MustCompile(`\d+(\.\d+)?`)

const (
	vlmMinLevel = 1.0
	vlmMaxLevel = 1_000_000.0
)

var bullishWords = []string{"bullish", "uptrend", "rally", "higher highs", "upward"}
var bearishWords = []string{"bearish", "downtrend", "selloff", "lower lows", "downward"}
var sidewaysWords = []string{"sideways", "range-bound", "range bound", "consolidating", "choppy"}

var structureWords = map[domain.Structure][]string{
	domain.StructureHigherHighs:   {"higher highs", "higher-highs", "making new highs"},
	domain.StructureLowerLows:     {"lower lows", "lower-lows", "making new lows"},
	domain.StructureRangeBound:    {"range-bound", "range bound", "trading range"},
	domain.StructureConsolidation: {"consolidating", "consolidation"},
}

var momentumWords = []string{"strong", "weak", "moderate", "accelerating", "decelerating", "flat"}

var momentumConditionWords = map[string][]string{
	"exhausting": {"exhaustion", "exhausting", "overbought", "losing steam"},
	"improving":  {"improving", "recovering", "oversold bounce"},
	"expanding":  {"expanding", "healthy momentum", "no exhaustion", "gaining strength"},
}

var volumeTrendWords = []string{"increasing", "decreasing", "declining", "surging", "drying up", "unavailable"}

var candlestickWords = []string{
	"doji", "hammer", "shooting star", "engulfing", "morning star",
	"evening star", "hanging man", "marubozu", "spinning top",
}

var chartPatternWords = []string{
	"head and shoulders", "double top", "double bottom", "triangle",
	"wedge", "flag", "pennant", "cup and handle",
}

func containsAny(text string, words []string) (string, bool) {
	lower := strings.ToLower(text)
	for _, w := range words {
		if strings.Contains(lower, w) {
			return w, true
		}
	}
	return "", false
}

// extractVLMClaims parses a free-text VLM observation into claims for
// every dimension the visual channel can speak to, using a controlled
// keyword/regex vocabulary per dimension.
func extractVLMClaims(text string) []domain.PerceptionClaim {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	var claims []domain.PerceptionClaim

	if _, ok := containsAny(text, bullishWords); ok {
		claims = append(claims, vlmClaim(domain.DimTrend, string(domain.TrendBullish), domain.SourceVLMSentiment, text))
	} else if _, ok := containsAny(text, bearishWords); ok {
		claims = append(claims, vlmClaim(domain.DimTrend, string(domain.TrendBearish), domain.SourceVLMSentiment, text))
	} else if _, ok := containsAny(text, sidewaysWords); ok {
		claims = append(claims, vlmClaim(domain.DimTrend, string(domain.TrendSideways), domain.SourceVLMSentiment, text))
	}

	for _, structure := range []domain.Structure{domain.StructureHigherHighs, domain.StructureLowerLows, domain.StructureRangeBound, domain.StructureConsolidation} {
		if _, ok := containsAny(text, structureWords[structure]); ok {
			claims = append(claims, vlmClaim(domain.DimStructure, string(structure), domain.SourceVLMPattern, text))
			break
		}
	}

	if w, ok := containsAny(text, momentumWords); ok {
		claims = append(claims, vlmClaim(domain.DimMomentum, w, domain.SourceVLMSentiment, text))
	}

	for _, condition := range []string{"expanding", "exhausting", "improving"} {
		if _, ok := containsAny(text, momentumConditionWords[condition]); ok {
			claims = append(claims, vlmClaim(domain.DimMomentumCondition, condition, domain.SourceVLMSentiment, text))
			break
		}
	}

	claims = append(claims, extractVLMLevels(text)...)

	if w, ok := containsAny(text, volumeTrendWords); ok {
		claims = append(claims, vlmClaim(domain.DimVolumeTrend, w, domain.SourceVLMSentiment, text))
	}

	if w, ok := containsAny(text, candlestickWords); ok {
		claims = append(claims, vlmClaim(domain.DimCandlestickPattern, w, domain.SourceVLMPattern, text))
	}

	if w, ok := containsAny(text, chartPatternWords); ok {
		claims = append(claims, vlmClaim(domain.DimChartPattern, w, domain.SourceVLMPattern, text))
	}

	return claims
}

func vlmClaim(dim domain.Dimension, value string, source domain.ClaimSource, raw string) domain.PerceptionClaim {
	return domain.PerceptionClaim{
		Dimension:  dim,
		Value:      value,
		Source:     source,
		Confidence: domain.TrustWeight(source),
		RawText:    raw,
	}
}

// extractVLMLevels finds support/resistance mentions near the words
// "support"/"resistance" within a small window of a numeric level in
// the plausible range.
func extractVLMLevels(text string) []domain.PerceptionClaim {
	var claims []domain.PerceptionClaim
	lower := strings.ToLower(text)

	findNear := func(keyword string) (string, bool) {
		idx := strings.Index(lower, keyword)
		if idx == -1 {
			return "", false
		}
		start := idx - 40
		if start < 0 {
			start = 0
		}
		end := idx + len(keyword) + 40
		if end > len(text) {
			end = len(text)
		}
		window := text[start:end]
		loc := vlmPriceLevel.FindString(window)
		return loc, loc != ""
	}

	if v, ok := findNear("support"); ok {
		if f, ok := parseLevel(v); ok {
			claims = append(claims, vlmClaim(domain.DimSupport, formatLevel(f), domain.SourceVLMLevel, text))
		}
	}
	if v, ok := findNear("resistance"); ok {
		if f, ok := parseLevel(v); ok {
			claims = append(claims, vlmClaim(domain.DimResistance, formatLevel(f), domain.SourceVLMLevel, text))
		}
	}
	return claims
}

func parseLevel(s string) (float64, bool) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	if f < vlmMinLevel || f > vlmMaxLevel {
		return 0, false
	}
	return f, true
}

func formatLevel(f float64) string {
	return fmt.Sprintf("%.2f", f)
}
