package perception

import (
	"fmt"
	"sort"

	"github.com/nse-agent/marketagent/internal/chartclient"
	"github.com/nse-agent/marketagent/internal/domain"
)

// extractDOMClaims converts a chart client's structured DOM record into
// PerceptionClaims, deriving momentum_condition from RSI and
// support/resistance from moving averages and OHLC extremes the way the
// original DOM extractor does.
func extractDOMClaims(dom chartclient.DOMRecord) []domain.PerceptionClaim {
	var claims []domain.PerceptionClaim

	if dom.HasPrice {
		claims = append(claims, domain.PerceptionClaim{
			Dimension:  domain.DimPrice,
			Value:      fmt.Sprintf("%.2f", dom.Price),
			Source:     domain.SourceDOMNumeric,
			Confidence: domain.TrustWeight(domain.SourceDOMNumeric),
		})
	}
	if dom.HasChange {
		claims = append(claims, domain.PerceptionClaim{
			Dimension:  domain.DimChange,
			Value:      fmt.Sprintf("%.2f", dom.Change),
			Source:     domain.SourceDOMNumeric,
			Confidence: domain.TrustWeight(domain.SourceDOMNumeric),
		})
	}
	if dom.HasVolume {
		claims = append(claims, domain.PerceptionClaim{
			Dimension:  domain.DimVolume,
			Value:      fmt.Sprintf("%.0f", dom.Volume),
			Source:     domain.SourceDOMNumeric,
			Confidence: domain.TrustWeight(domain.SourceDOMNumeric),
		})
	}

	names := make([]string, 0, len(dom.Indicators))
	for name := range dom.Indicators {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		claims = append(claims, indicatorClaims(name, dom.Indicators[name], dom.Price, dom.HasPrice)...)
	}

	return claims
}

// indicatorClaims translates one named DOM indicator reading into zero
// or more claims: RSI derives a momentum_condition claim at the 70/30
// thresholds; EMA/SMA/WMA become support or resistance claims by
// comparison to price; OHLC High/Low become resistance/support; MACD
// becomes its own dimension.
func indicatorClaims(name string, value float64, price float64, havePrice bool) []domain.PerceptionClaim {
	var out []domain.PerceptionClaim
	switch name {
	case "RSI":
		out = append(out, domain.PerceptionClaim{
			Dimension:  domain.DimRSI,
			Value:      fmt.Sprintf("%.1f", value),
			Source:     domain.SourceDOMNumeric,
			Confidence: domain.TrustWeight(domain.SourceDOMNumeric),
		})
		switch {
		case value > 70:
			out = append(out, domain.PerceptionClaim{
				Dimension:  domain.DimMomentumCondition,
				Value:      "exhausting",
				Source:     domain.SourceDOMNumeric,
				Confidence: 0.90,
				RawText:    fmt.Sprintf("RSI=%.1f", value),
			})
		case value < 30:
			out = append(out, domain.PerceptionClaim{
				Dimension:  domain.DimMomentumCondition,
				Value:      "improving",
				Source:     domain.SourceDOMNumeric,
				Confidence: 0.90,
				RawText:    fmt.Sprintf("RSI=%.1f", value),
			})
		}
	case "MACD":
		out = append(out, domain.PerceptionClaim{
			Dimension:  domain.DimMACD,
			Value:      fmt.Sprintf("%.2f", value),
			Source:     domain.SourceDOMNumeric,
			Confidence: domain.TrustWeight(domain.SourceDOMNumeric),
		})
	case "EMA", "SMA", "WMA":
		if !havePrice {
			return out
		}
		dim, claimValue := domain.DimSupport, fmt.Sprintf("%.2f", value)
		if value > price {
			dim = domain.DimResistance
		}
		out = append(out, domain.PerceptionClaim{
			Dimension:  dim,
			Value:      claimValue,
			Source:     domain.SourceDOMNumeric,
			Confidence: domain.TrustWeight(domain.SourceDOMNumeric),
			RawText:    name,
		})
	case "High":
		out = append(out, domain.PerceptionClaim{
			Dimension:  domain.DimResistance,
			Value:      fmt.Sprintf("%.2f", value),
			Source:     domain.SourceDOMNumeric,
			Confidence: domain.TrustWeight(domain.SourceDOMNumeric),
			RawText:    "OHLC High",
		})
	case "Low":
		out = append(out, domain.PerceptionClaim{
			Dimension:  domain.DimSupport,
			Value:      fmt.Sprintf("%.2f", value),
			Source:     domain.SourceDOMNumeric,
			Confidence: domain.TrustWeight(domain.SourceDOMNumeric),
			RawText:    "OHLC Low",
		})
	}
	return out
}
