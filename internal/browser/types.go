// internal/browser/types.go
package browser

import (
	"context"
	"time"
)

// Page exposes the driver primitives the sequencers are written against.
// The chromedp implementation lives in this package; tests substitute a
// simulated page so sequencer logic can run without a browser or real timing.
//
// Deadlines are applied by the caller through the context; every method
// returns promptly once the context is done.
type Page interface {
	// Navigation and readiness.
	Navigate(ctx context.Context, url string) error
	WaitVisible(ctx context.Context, sel string) error
	WaitURLContains(ctx context.Context, fragment string) error
	WaitNetworkIdle(ctx context.Context) error
	CurrentURL(ctx context.Context) (string, error)

	// Interaction tactics, in escalating order of bluntness.
	Click(ctx context.Context, sel string) error
	ForceClick(ctx context.Context, sel string) error
	SynthClick(ctx context.Context, sel string) error
	JSClick(ctx context.Context, sel string) error

	// HoldClick presses at the element's center, holds for the given
	// duration, then releases. Used by the humanized click path.
	HoldClick(ctx context.Context, sel string, hold time.Duration) error

	// Element manipulation.
	ScrollIntoView(ctx context.Context, sel string) error
	ScrollTop(ctx context.Context) error
	Hover(ctx context.Context, sel string) error
	Focus(ctx context.Context, sel string) error
	SendKeys(ctx context.Context, sel, text string) error
	Press(ctx context.Context, key string) error
	Clear(ctx context.Context, sel string) error

	// Observation.
	EvalBool(ctx context.Context, expr string) (bool, error)
	Count(ctx context.Context, sel string) (int, error)
	IsVisible(ctx context.Context, sel string) (bool, error)
	Text(ctx context.Context, sel string) (string, error)
}

// AuxOpener creates short-lived auxiliary pages in the same browser, used
// for side lookups that must not disturb the main workflow tab. The release
// func closes the page and must be called on every exit path.
type AuxOpener interface {
	NewAuxPage(ctx context.Context) (context.Context, Page, func(), error)
}
