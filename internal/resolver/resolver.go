// Package resolver implements C2: three-layer symbol resolution (cache,
// chart-site validation, web search) under mode-dependent side-effect
// budgets.
package resolver

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/nse-agent/marketagent/internal/chartclient"
	"github.com/nse-agent/marketagent/internal/domain"
	"github.com/nse-agent/marketagent/internal/llmclient"
	"github.com/nse-agent/marketagent/internal/symbolmemory"
)

// Searcher performs a web search for the given free-text query and
// returns the page's visible text. A captcha/navigation failure must be
// reported as an error without retrying.
type Searcher interface {
	Search(ctx context.Context, query string) (string, error)
}

var tickerShape = regexp.MustCompile(`^[A-Z0-9]{2,15}$`)

func looksLikeTicker(s string) bool {
	if strings.ContainsAny(s, " \t\n") {
		return false
	}
	return tickerShape.MatchString(s)
}

// Resolver implements the three-layer resolution algorithm.
type Resolver struct {
	memory  *symbolmemory.Memory
	chart   chartclient.Client
	llm     llmclient.Client
	search  Searcher
	log     zerolog.Logger

	mu             sync.Mutex
	googleAttempts int
	googleGate     rate.Sometimes
}

// New constructs a Resolver. search may be nil if the deployment has no
// web-search collaborator configured; layer 3 then always surrenders.
func New(memory *symbolmemory.Memory, chart chartclient.Client, llm llmclient.Client, search Searcher, googleMinInterval time.Duration, logger zerolog.Logger) *Resolver {
	return &Resolver{
		memory:     memory,
		chart:      chart,
		llm:        llm,
		search:     search,
		log:        logger,
		googleGate: rate.Sometimes{Interval: googleMinInterval},
	}
}

// ResetSession clears the per-session web-search budget. Must be called
// explicitly at the start of a new session; it is never reset
// implicitly mid-session.
func (r *Resolver) ResetSession() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.googleAttempts = 0
	r.googleGate = rate.Sometimes{Interval: r.googleGate.Interval}
}

// Resolve runs the three-layer algorithm for userText under mode.
func (r *Resolver) Resolve(ctx context.Context, userText string, mode domain.ResolutionMode) domain.ResolutionResult {
	normalized := strings.TrimSpace(userText)

	// Layer 1: cache.
	if cached, ok := r.memory.Lookup(normalized); ok {
		return domain.ResolutionResult{
			Status:        domain.ResolutionResolved,
			Symbol:        cached.CanonicalSymbol,
			Source:        domain.SourceCache,
			Confidence:    cached.ConfidenceLevel,
			OriginalInput: userText,
		}
	}

	upper := strings.ToUpper(normalized)
	isTicker := looksLikeTicker(upper)

	// Layer 2: chart-site validation, only attempted when input already
	// looks like a ticker.
	if isTicker {
		if res, ok := r.validateViaChart(ctx, upper); ok {
			return res
		}
	}

	// Layer 3: web search, SINGLE_ANALYSIS only, strictly gated: zero
	// prior attempts this session AND the monotonic cooldown interval
	// elapsed since the last attempt (enforced by googleGate).
	if mode == domain.ModeSingleAnalysis && !isTicker && r.search != nil && r.googleAttemptsZero() {
		if res, ok := r.resolveViaSearch(ctx, userText); ok {
			return res
		}
	}

	if mode == domain.ModeMarketScan {
		return domain.ResolutionResult{Status: domain.ResolutionDataUnavailable, OriginalInput: userText}
	}
	return domain.ResolutionResult{Status: domain.ResolutionUnknown, OriginalInput: userText}
}

func (r *Resolver) validateViaChart(ctx context.Context, symbol string) (domain.ResolutionResult, bool) {
	nav, err := r.chart.Navigate(ctx, symbol, domain.TFDaily)
	if err != nil || nav.Status != chartclient.NavigateOK {
		return domain.ResolutionResult{}, false
	}
	dom, err := r.chart.ExtractChartData(ctx)
	if err != nil {
		return domain.ResolutionResult{}, false
	}
	if dom.Symbol == "" || !dom.HasPrice {
		return domain.ResolutionResult{}, false
	}
	if err := r.memory.Store(symbol, symbol, domain.ConfidenceHigh, domain.SourceTradingView); err != nil {
		r.log.Warn().Err(err).Str("symbol", symbol).Msg("failed to cache validated symbol")
	}
	return domain.ResolutionResult{
		Status:        domain.ResolutionValid,
		Symbol:        symbol,
		Source:        domain.SourceTradingView,
		Confidence:    domain.ConfidenceHigh,
		OriginalInput: symbol,
	}, true
}

func (r *Resolver) googleAttemptsZero() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.googleAttempts == 0
}

var extractionStopwords = map[string]bool{
	"THE": true, "AND": true, "FOR": true, "WITH": true,
}

func (r *Resolver) resolveViaSearch(ctx context.Context, userText string) (domain.ResolutionResult, bool) {
	var (
		ran    bool
		result domain.ResolutionResult
	)

	r.googleGate.Do(func() {
		ran = true
		r.mu.Lock()
		r.googleAttempts++
		r.mu.Unlock()

		query := fmt.Sprintf("%s NSE stock symbol", userText)
		pageText, err := r.search.Search(ctx, query)
		if err != nil {
			r.log.Warn().Err(err).Str("query", query).Msg("web search surrendered without retry")
			result = domain.ResolutionResult{Status: domain.ResolutionUnknown, OriginalInput: userText}
			return
		}

		systemPrompt := "You extract NSE stock ticker symbols from search result text. Reply with ONLY the symbol, or UNKNOWN if none is present."
		userPrompt := fmt.Sprintf("Search results for %q:\n\n%s\n\nWhat is the NSE ticker symbol?", userText, pageText)
		completion, err := r.llm.GenerateCompletion(ctx, systemPrompt, userPrompt)
		if err != nil {
			result = domain.ResolutionResult{Status: domain.ResolutionUnknown, OriginalInput: userText}
			return
		}

		candidate := strings.ToUpper(strings.TrimSpace(completion))
		if len(candidate) < 2 || len(candidate) > 15 || !isAlpha(candidate) || extractionStopwords[candidate] {
			result = domain.ResolutionResult{Status: domain.ResolutionUnknown, OriginalInput: userText}
			return
		}

		if res, ok := r.validateViaChart(ctx, candidate); ok {
			if err := r.memory.Store(userText, candidate, domain.ConfidenceMedium, domain.SourceGoogle); err != nil {
				r.log.Warn().Err(err).Str("symbol", candidate).Msg("failed to cache google-resolved symbol")
			}
			res.Status = domain.ResolutionResolved
			res.Source = domain.SourceGoogle
			res.Confidence = domain.ConfidenceMedium
			res.OriginalInput = userText
			result = res
			return
		}
		result = domain.ResolutionResult{Status: domain.ResolutionUnknown, OriginalInput: userText}
	})

	if !ran {
		// Cooldown interval not yet elapsed: layer 3 is skipped this
		// call, same as never having attempted it.
		return domain.ResolutionResult{}, false
	}
	return result, true
}

func isAlpha(s string) bool {
	for _, r := range s {
		if !(r >= 'A' && r <= 'Z') {
			return false
		}
	}
	return len(s) > 0
}

// HealthCheck loads the canonical index chart ("NIFTY") and reports
// whether the chart source is reachable. Callers gate scans on this.
func (r *Resolver) HealthCheck(ctx context.Context) bool {
	nav, err := r.chart.Navigate(ctx, "NIFTY", domain.TFDaily)
	if err != nil || nav.Status != chartclient.NavigateOK {
		return false
	}
	dom, err := r.chart.ExtractChartData(ctx)
	if err != nil {
		return false
	}
	return dom.Symbol != "" && dom.HasPrice
}
