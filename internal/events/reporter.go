// internal/events/reporter.go
package events

import (
	"sync"

	"go.uber.org/zap"
)

// Reporter delivers workflow events to the caller in emission order.
// It makes no buffering or persistence guarantee beyond the channel itself:
// once the terminal event has been emitted the stream is closed and any
// further emission is dropped (and logged, since it indicates a sequencing
// bug in the producer).
type Reporter struct {
	mu     sync.Mutex
	ch     chan Event
	logger *zap.Logger
	done   bool
}

// NewReporter creates a reporter with the given channel capacity. A small
// buffer keeps slow consumers from stalling browser interaction mid-step.
func NewReporter(logger *zap.Logger, capacity int) *Reporter {
	if capacity <= 0 {
		capacity = 32
	}
	return &Reporter{
		ch:     make(chan Event, capacity),
		logger: logger.Named("reporter"),
	}
}

// Events returns the caller-facing stream. The channel is closed after the
// terminal event has been delivered.
func (r *Reporter) Events() <-chan Event { return r.ch }

// Progress emits a non-terminal event.
func (r *Reporter) Progress(format string, args ...any) {
	r.emit(Progress(format, args...))
}

// Complete emits the successful terminal event and closes the stream.
func (r *Reporter) Complete(result string) {
	r.emit(Completed(result))
}

// Fail emits the failing terminal event and closes the stream.
func (r *Reporter) Fail(err error) {
	r.emit(Failed(err))
}

func (r *Reporter) emit(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.done {
		r.logger.Warn("Event emitted after terminal event, dropping.",
			zap.String("kind", string(ev.Kind)), zap.String("message", ev.Message))
		return
	}

	r.ch <- ev

	if ev.Terminal() {
		r.done = true
		close(r.ch)
	}
}
