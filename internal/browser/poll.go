// internal/browser/poll.go
package browser

import (
	"context"
	"time"
)

// Poll repeatedly evaluates probe at the given interval until it reports
// true, and returns false once the context is done. Probe errors are treated
// as "not yet": dynamic UIs routinely make a predicate momentarily
// unevaluable (element detached mid-hydration) and a single bad sample must
// not abort the wait.
//
// The first probe runs immediately, so a condition that already holds is
// observed without waiting a full interval.
func Poll(ctx context.Context, interval time.Duration, probe func(ctx context.Context) (bool, error)) bool {
	if interval <= 0 {
		interval = 250 * time.Millisecond
	}

	for {
		if ok, err := probe(ctx); err == nil && ok {
			return true
		}

		t := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			t.Stop()
			return false
		case <-t.C:
		}
	}
}
