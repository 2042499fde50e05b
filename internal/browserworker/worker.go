// Package browserworker owns the single automated browser session that
// chart navigation, DOM extraction, VLM screenshots, and web search all
// go through. It is the only concurrent element in the pipeline: one
// goroutine processes requests FIFO over a synchronous submit/wait
// channel pair, the way the teacher's exchange adapters own one
// websocket connection per venue.
package browserworker

import (
	"context"
	"fmt"
	"time"
)

// Request is one unit of work handed to the worker. Fn performs the
// actual browser interaction and must respect ctx's deadline.
type Request struct {
	Fn     func(ctx context.Context) (any, error)
	ctx    context.Context
	result chan response
}

type response struct {
	value any
	err   error
}

// Worker processes Requests one at a time, FIFO, with a per-request
// timeout. It is acquired once at first market-related request and
// reused for the life of the process.
type Worker struct {
	queue chan Request
	done  chan struct{}
}

// New starts the worker goroutine with a FIFO queue of the given depth.
func New(queueDepth int) *Worker {
	w := &Worker{
		queue: make(chan Request, queueDepth),
		done:  make(chan struct{}),
	}
	go w.run()
	return w
}

func (w *Worker) run() {
	for {
		select {
		case req := <-w.queue:
			value, err := req.Fn(req.ctx)
			req.result <- response{value: value, err: err}
		case <-w.done:
			return
		}
	}
}

// Do submits fn to the worker and blocks until it completes or ctx is
// done. Submission itself never blocks longer than it takes to enqueue;
// waiting for the result respects ctx's deadline, converting a timeout
// into a failure for that call without retrying.
func (w *Worker) Do(ctx context.Context, fn func(ctx context.Context) (any, error)) (any, error) {
	req := Request{Fn: fn, ctx: ctx, result: make(chan response, 1)}
	select {
	case w.queue <- req:
	case <-ctx.Done():
		return nil, fmt.Errorf("browser worker queue full: %w", ctx.Err())
	}

	select {
	case resp := <-req.result:
		return resp.value, resp.err
	case <-ctx.Done():
		return nil, fmt.Errorf("browser worker call timed out: %w", ctx.Err())
	}
}

// Shutdown stops the worker goroutine. It is never called per-request,
// only at process exit.
func (w *Worker) Shutdown() {
	close(w.done)
}

// WithTimeout is a small helper for constructing a per-call deadline
// around a Do invocation, matching the "default 10-20 seconds per call"
// suspension-point budget.
func WithTimeout(parent context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, d)
}
