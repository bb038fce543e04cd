// internal/interact/retry.go

// Package interact implements the escalating click strategy used against
// flaky, late-hydrating UI controls: start polite, end blunt.
package interact

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/renamer-cli/internal/browser"
	"github.com/xkilldash9x/renamer-cli/internal/events"
)

// ProgressFunc receives a human-readable note per failed attempt.
type ProgressFunc func(format string, args ...any)

// attemptTimeout bounds a single tactic so one hung attempt cannot consume
// the whole retry budget.
const attemptTimeout = 5 * time.Second

// attemptBackoff is the pause after a failed attempt. Variable so tests can
// shrink it.
var attemptBackoff = 500 * time.Millisecond

// RetryClick clicks the element with escalating tactics, one per attempt:
//
//	1             plain click (actionability checks apply)
//	2             forced click, bypassing actionability
//	3             synthesized pointer move/press/release at the box center
//	4..n-1        programmatic click dispatched on the element
//	n (last)      forced click again
//
// Every failed attempt is reported through progress and followed by a short
// pause. Exhausting all attempts yields an interaction-classified error.
func RetryClick(ctx context.Context, page browser.Page, progress ProgressFunc, logger *zap.Logger, sel, label string, maxAttempts int) error {
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := runTactic(ctx, page, sel, attempt, maxAttempts)
		if err == nil {
			if attempt > 1 {
				logger.Debug("Click succeeded after escalation",
					zap.String("label", label), zap.Int("attempt", attempt))
			}
			return nil
		}

		progress("click %q attempt %d failed: %v", label, attempt, err)
		logger.Debug("Click attempt failed",
			zap.String("label", label),
			zap.String("selector", sel),
			zap.Int("attempt", attempt),
			zap.Error(err))

		if serr := sleep(ctx, attemptBackoff); serr != nil {
			return serr
		}
	}

	return events.Classifiedf(events.FailureInteraction,
		"click exhausted: %s (%d attempts)", label, maxAttempts)
}

func runTactic(ctx context.Context, page browser.Page, sel string, attempt, maxAttempts int) error {
	actx, cancel := context.WithTimeout(ctx, attemptTimeout)
	defer cancel()

	switch {
	case attempt == 1:
		return page.Click(actx, sel)
	case attempt == 2:
		return page.ForceClick(actx, sel)
	case attempt == 3:
		return page.SynthClick(actx, sel)
	case attempt == maxAttempts:
		return page.ForceClick(actx, sel)
	default:
		return page.JSClick(actx, sel)
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
