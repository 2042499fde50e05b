// Package vlmclient defines the external visual-language-model /
// observer collaborator interface (§6): a single Observe operation over
// the domain.Observation/ObservationResult pair.
package vlmclient

import (
	"context"
	"fmt"
	"time"

	"github.com/sony/gobreaker"

	"github.com/nse-agent/marketagent/internal/domain"
)

// Client observes the current screen/chart state.
type Client interface {
	Observe(ctx context.Context, obs domain.Observation) (domain.ObservationResult, error)
}

type raw func(ctx context.Context, obs domain.Observation) (domain.ObservationResult, error)

// Breaker wraps a raw observer call with a circuit breaker and per-call
// timeout, matching llmclient.Breaker and chartclient.BrowserBacked.
type Breaker struct {
	call    raw
	breaker *gobreaker.CircuitBreaker
	timeout time.Duration
}

// NewBreaker wraps call with the given per-request timeout.
func NewBreaker(call raw, timeout time.Duration) *Breaker {
	settings := gobreaker.Settings{
		Name:        "vlmclient",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	}
	return &Breaker{call: call, breaker: gobreaker.NewCircuitBreaker(settings), timeout: timeout}
}

func (b *Breaker) Observe(ctx context.Context, obs domain.Observation) (domain.ObservationResult, error) {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()
	v, err := b.breaker.Execute(func() (any, error) {
		return b.call(ctx, obs)
	})
	if err != nil {
		return domain.ObservationResult{}, fmt.Errorf("vlm observe: %w", err)
	}
	return v.(domain.ObservationResult), nil
}
