// Package llmclient defines the external LLM-completion collaborator
// interface (§6). The core depends only on this interface, never on a
// specific model identity, and wraps it in a circuit breaker the same
// way chartclient isolates the chart site.
package llmclient

import (
	"context"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
)

// Client generates one completion from a system+user prompt pair.
type Client interface {
	GenerateCompletion(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// raw is the underlying model call a Breaker wraps.
type raw func(ctx context.Context, systemPrompt, userPrompt string) (string, error)

// Breaker wraps a raw LLM call with a circuit breaker and a per-call
// timeout; a flapping endpoint is isolated for one decision cycle with
// no automatic retries.
type Breaker struct {
	call    raw
	breaker *gobreaker.CircuitBreaker
	timeout time.Duration
}

// NewBreaker wraps call with the given per-request timeout.
func NewBreaker(call raw, timeout time.Duration) *Breaker {
	settings := gobreaker.Settings{
		Name:        "llmclient",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	}
	return &Breaker{call: call, breaker: gobreaker.NewCircuitBreaker(settings), timeout: timeout}
}

func (b *Breaker) GenerateCompletion(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()
	v, err := b.breaker.Execute(func() (any, error) {
		return b.call(ctx, systemPrompt, userPrompt)
	})
	if err != nil {
		return "", fmt.Errorf("llm completion: %w", err)
	}
	return v.(string), nil
}
