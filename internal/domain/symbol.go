package domain

import "time"

// ConfidenceLevel is a coarse confidence bucket attached to a resolved
// symbol or a gate/verdict outcome.
type ConfidenceLevel string

const (
	ConfidenceHigh   ConfidenceLevel = "HIGH"
	ConfidenceMedium ConfidenceLevel = "MEDIUM"
	ConfidenceLow    ConfidenceLevel = "LOW"
)

// ResolutionSource names which layer of the symbol resolver produced a
// result.
type ResolutionSource string

const (
	SourceCache       ResolutionSource = "CACHE"
	SourceTradingView ResolutionSource = "TRADINGVIEW"
	SourceGoogle      ResolutionSource = "GOOGLE"
	SourceUser        ResolutionSource = "USER"
)

// CachedSymbol maps one piece of free user text to a canonical ticker.
// Entries older than 30 days are considered expired.
type CachedSymbol struct {
	UserText        string
	CanonicalSymbol string
	ConfidenceLevel ConfidenceLevel
	Source          ResolutionSource
	Timestamp       time.Time
}

// SymbolCacheTTL is the fixed expiry window for a CachedSymbol.
const SymbolCacheTTL = 30 * 24 * time.Hour

// IsExpired reports whether this cached entry has aged past SymbolCacheTTL
// as of now.
func (c CachedSymbol) IsExpired(now time.Time) bool {
	return now.Sub(c.Timestamp) > SymbolCacheTTL
}

// ResolutionStatus is the outcome discriminator of a symbol resolution
// attempt.
type ResolutionStatus string

const (
	ResolutionValid           ResolutionStatus = "VALID"
	ResolutionResolved        ResolutionStatus = "RESOLVED"
	ResolutionUnknown         ResolutionStatus = "UNKNOWN"
	ResolutionDataUnavailable ResolutionStatus = "DATA_UNAVAILABLE"
)

// ResolutionResult is the outcome of one call to the symbol resolver.
type ResolutionResult struct {
	Status          ResolutionStatus
	Symbol          string
	Source          ResolutionSource
	Confidence      ConfidenceLevel
	OriginalInput   string
	Err             string
}

// ResolutionMode is the side-effect budget under which a resolution call
// runs; it gates whether the web-search layer may ever be attempted.
type ResolutionMode string

const (
	ModeSingleAnalysis  ResolutionMode = "SINGLE_ANALYSIS"
	ModeMarketScan      ResolutionMode = "MARKET_SCAN"
	ModeAutomatedScan   ResolutionMode = "AUTOMATED_SCAN"
	ModeBacktest        ResolutionMode = "BACKTEST"
	ModeReplay          ResolutionMode = "REPLAY"
	ModeMultiInstrument ResolutionMode = "MULTI_INSTRUMENT"
)
