// Package analysisstore implements C5: persistent per-(symbol,
// timeframe) analysis history with freshness queries, plus the
// scenario-resolution side table.
package analysisstore

import (
	"context"
	"time"

	"github.com/nse-agent/marketagent/internal/domain"
)

// Stats summarizes the store for the get-stats operation.
type Stats struct {
	TotalAnalyses int
	BySymbol      map[string]int
	ByTimeframe   map[domain.Timeframe]int
}

// TrendChange is the result of comparing a symbol's current trend
// against the mode of its previous N trends.
type TrendChange struct {
	Changed       bool
	PreviousTrend domain.Trend
	Description   string
}

// Store is C5's persistence contract: symbol lookup is case-insensitive
// and tolerant of exchange prefixes (normalized by implementations
// before querying).
type Store interface {
	Store(ctx context.Context, a domain.Analysis) (int64, error)
	Latest(ctx context.Context, symbol string, tf domain.Timeframe, maxAge time.Duration) (*domain.Analysis, error)
	ListBySymbol(ctx context.Context, symbol string, limit int) ([]domain.Analysis, error)
	ListRecent(ctx context.Context, since time.Duration, limit int) ([]domain.Analysis, error)
	TrendChange(ctx context.Context, symbol string, currentTrend domain.Trend, lookback int) (TrendChange, error)
	GetStats(ctx context.Context) (Stats, error)
}

// ScenarioResolution records what scenario actually occurred for a
// prior analysis id, for later calibration review. It is never written
// autonomously by the pipeline; this repository has no implementation
// of ScenarioResolutionRepo and no command that writes to this table.
type ScenarioResolution struct {
	AnalysisID int64
	Scenario   domain.ActiveState
	Timestamp  time.Time
	Notes      string
}

// ScenarioResolutionRepo persists ScenarioResolution rows.
type ScenarioResolutionRepo interface {
	Record(ctx context.Context, r ScenarioResolution) error
	ForAnalysis(ctx context.Context, analysisID int64) (*ScenarioResolution, error)
}

// NormalizeSymbol upper-cases and strips a leading exchange prefix like
// "NSE:" so lookups are tolerant of exchange-qualified input.
func NormalizeSymbol(symbol string) string {
	s := symbol
	if idx := indexByte(s, ':'); idx >= 0 {
		s = s[idx+1:]
	}
	return upper(s)
}

func indexByte(s string, b byte) int {
	for i := 0; i < len(s); i++ {
		if s[i] == b {
			return i
		}
	}
	return -1
}

func upper(s string) string {
	out := make([]byte, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 'a' && c <= 'z' {
			c -= 'a' - 'A'
		}
		out[i] = c
	}
	return string(out)
}

// ModeTrend returns the most frequent trend in trends, breaking ties by
// first occurrence, the way the original's "mode of previous N trends"
// check does. Exported so backing stores can implement TrendChange
// without duplicating the tie-break rule.
func ModeTrend(trends []domain.Trend) domain.Trend {
	counts := map[domain.Trend]int{}
	order := []domain.Trend{}
	for _, t := range trends {
		if _, seen := counts[t]; !seen {
			order = append(order, t)
		}
		counts[t]++
	}
	var best domain.Trend
	bestCount := -1
	for _, t := range order {
		if counts[t] > bestCount {
			best = t
			bestCount = counts[t]
		}
	}
	return best
}
