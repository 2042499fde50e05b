// Package log configures the process-wide zerolog logger and a small
// ProgressBus that fans per-timeframe/per-instrument progress events out
// to its subscribed channels, mirroring the teacher's console vs.
// structured logging split.
package log

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Init configures the global zerolog logger: a human-readable console
// writer when interactive is true, structured JSON otherwise.
func Init(interactive bool, level zerolog.Level) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339
	var out io.Writer = os.Stderr
	if interactive {
		out = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}
	}
	logger := zerolog.New(out).Level(level).With().Timestamp().Logger()
	return logger
}

// Event is one progress update emitted while running the pipeline over
// one or more instruments/timeframes.
type Event struct {
	Symbol    string
	Timeframe string
	Stage     string
	Message   string
	Done      bool
	Total     int
	Index     int
}

// ProgressBus fans progress Events out to any number of subscribers.
// Subscription and publish are both non-blocking from the publisher's
// point of view: a slow subscriber drops events rather than stalling
// the pipeline, matching the "the core never blocks on the sink"
// external-interface contract.
type ProgressBus struct {
	subs []chan Event
}

// NewProgressBus returns an empty bus.
func NewProgressBus() *ProgressBus {
	return &ProgressBus{}
}

// Subscribe returns a channel that receives future events. The channel
// is buffered; while a subscriber's buffer is full, Publish's
// non-blocking send drops each new event for it.
func (b *ProgressBus) Subscribe(buffer int) <-chan Event {
	ch := make(chan Event, buffer)
	b.subs = append(b.subs, ch)
	return ch
}

// Publish broadcasts an event to every subscriber without blocking.
func (b *ProgressBus) Publish(e Event) {
	for _, ch := range b.subs {
		select {
		case ch <- e:
		default:
		}
	}
}
