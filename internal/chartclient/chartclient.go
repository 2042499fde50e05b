// Package chartclient defines the external charting-site collaborator
// interface (§6 of the spec) and a browser-worker-backed implementation
// wrapped in a circuit breaker, matching the teacher's "thin typed
// client over one async channel, context-timeout per call" shape for
// external data providers.
package chartclient

import (
	"context"
	"fmt"
	"time"

	"github.com/sony/gobreaker"

	"github.com/nse-agent/marketagent/internal/browserworker"
	"github.com/nse-agent/marketagent/internal/domain"
)

// NavigateStatus is the outcome of a navigate call.
type NavigateStatus string

const (
	NavigateOK             NavigateStatus = "OK"
	NavigateTimeout        NavigateStatus = "TIMEOUT"
	NavigateSymbolNotFound NavigateStatus = "SYMBOL_NOT_FOUND"
)

// NavigateResult is the outcome of Navigate.
type NavigateResult struct {
	Status NavigateStatus
	URL    string
}

// DOMRecord is the structured chart data extracted from the page.
// Fields are optional: absence is normal and callers must not treat a
// missing indicator as an error.
type DOMRecord struct {
	Symbol     string
	Price      float64
	HasPrice   bool
	Change     float64
	HasChange  bool
	Timeframe  domain.Timeframe
	Indicators map[string]float64
	Volume     float64
	HasVolume  bool
}

// Client is the external chart-site collaborator the resolver and
// analyzer depend on.
type Client interface {
	Navigate(ctx context.Context, symbol string, tf domain.Timeframe) (NavigateResult, error)
	ExtractChartData(ctx context.Context) (DOMRecord, error)
	SwitchTimeframe(ctx context.Context, code domain.Timeframe) error
}

// BrowserBacked implements Client by dispatching every call through a
// single browser worker, with a circuit breaker isolating a flapping
// chart site for one decision cycle (no automatic retries).
type BrowserBacked struct {
	worker  *browserworker.Worker
	breaker *gobreaker.CircuitBreaker
	timeout time.Duration

	// navigateFn/extractFn/switchFn perform the actual page interaction.
	// They are fields (not hardcoded) so tests can substitute fakes
	// without a real browser.
	navigateFn func(ctx context.Context, symbol string, tf domain.Timeframe) (NavigateResult, error)
	extractFn  func(ctx context.Context) (DOMRecord, error)
	switchFn   func(ctx context.Context, code domain.Timeframe) error
}

// NewBrowserBacked wires a Client around a Worker and the three page
// interaction functions.
func NewBrowserBacked(
	w *browserworker.Worker,
	timeout time.Duration,
	navigateFn func(ctx context.Context, symbol string, tf domain.Timeframe) (NavigateResult, error),
	extractFn func(ctx context.Context) (DOMRecord, error),
	switchFn func(ctx context.Context, code domain.Timeframe) error,
) *BrowserBacked {
	settings := gobreaker.Settings{
		Name:        "chartclient",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	}
	return &BrowserBacked{
		worker:     w,
		breaker:    gobreaker.NewCircuitBreaker(settings),
		timeout:    timeout,
		navigateFn: navigateFn,
		extractFn:  extractFn,
		switchFn:   switchFn,
	}
}

func (c *BrowserBacked) Navigate(ctx context.Context, symbol string, tf domain.Timeframe) (NavigateResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	v, err := c.breaker.Execute(func() (any, error) {
		return c.worker.Do(ctx, func(ctx context.Context) (any, error) {
			return c.navigateFn(ctx, symbol, tf)
		})
	})
	if err != nil {
		return NavigateResult{}, fmt.Errorf("navigate %s %s: %w", symbol, tf, err)
	}
	return v.(NavigateResult), nil
}

func (c *BrowserBacked) ExtractChartData(ctx context.Context) (DOMRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	v, err := c.breaker.Execute(func() (any, error) {
		return c.worker.Do(ctx, func(ctx context.Context) (any, error) {
			return c.extractFn(ctx)
		})
	})
	if err != nil {
		return DOMRecord{}, fmt.Errorf("extract chart data: %w", err)
	}
	return v.(DOMRecord), nil
}

func (c *BrowserBacked) SwitchTimeframe(ctx context.Context, code domain.Timeframe) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	_, err := c.breaker.Execute(func() (any, error) {
		return c.worker.Do(ctx, func(ctx context.Context) (any, error) {
			return nil, c.switchFn(ctx, code)
		})
	})
	if err != nil {
		return fmt.Errorf("switch timeframe %s: %w", code, err)
	}
	return nil
}
