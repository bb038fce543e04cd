// internal/humanize/humanize.go

// Package humanize wraps driver calls with randomized pacing so the session
// does not look like a script to naive bot-detection heuristics: per-key
// delays while typing, hover-then-hold clicks, and irregular pauses between
// macro steps.
package humanize

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/renamer-cli/internal/browser"
	"github.com/xkilldash9x/renamer-cli/internal/config"
)

// Pacer is the delay-generation strategy. It is pluggable so tests can run
// sequencers with zero delays and stay deterministic.
type Pacer interface {
	// Draw picks a duration uniformly from [min, max].
	Draw(min, max time.Duration) time.Duration
	// Sleep blocks for d or until the context is done.
	Sleep(ctx context.Context, d time.Duration) error
}

// -- uniformPacer --

type uniformPacer struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewPacer returns the production pacer backed by its own PRNG.
func NewPacer() Pacer {
	return &uniformPacer{rng: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

func (p *uniformPacer) Draw(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return min + time.Duration(p.rng.Int63n(int64(max-min)+1))
}

func (p *uniformPacer) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// -- zeroPacer --

// zeroPacer removes all pacing. Used when pacing is disabled and in tests.
type zeroPacer struct{}

// NewZeroPacer returns a pacer that never sleeps.
func NewZeroPacer() Pacer { return zeroPacer{} }

func (zeroPacer) Draw(time.Duration, time.Duration) time.Duration { return 0 }

func (zeroPacer) Sleep(ctx context.Context, _ time.Duration) error { return ctx.Err() }

// -- Humanizer --

// Humanizer performs paced interactions against a Page.
type Humanizer struct {
	page   browser.Page
	pacer  Pacer
	cfg    config.PacingConfig
	logger *zap.Logger
}

// New builds a Humanizer for the given page. When pacing is disabled in the
// configuration every delay collapses to zero.
func New(page browser.Page, cfg config.PacingConfig, logger *zap.Logger) *Humanizer {
	pacer := NewPacer()
	if !cfg.Enabled {
		pacer = NewZeroPacer()
	}
	return NewWithPacer(page, cfg, pacer, logger)
}

// NewWithPacer builds a Humanizer with an explicit pacing strategy.
func NewWithPacer(page browser.Page, cfg config.PacingConfig, pacer Pacer, logger *zap.Logger) *Humanizer {
	return &Humanizer{
		page:   page,
		pacer:  pacer,
		cfg:    cfg,
		logger: logger.Named("humanize"),
	}
}

// Type focuses the element with a click, emits each character with a
// per-character delay, then settles briefly so the page's own input handlers
// can catch up.
func (h *Humanizer) Type(ctx context.Context, sel, text string) error {
	if err := h.page.Click(ctx, sel); err != nil {
		return fmt.Errorf("focusing %q: %w", sel, err)
	}

	for _, r := range text {
		if err := h.pacer.Sleep(ctx, h.pacer.Draw(h.cfg.KeyDelayMin, h.cfg.KeyDelayMax)); err != nil {
			return err
		}
		if err := h.page.SendKeys(ctx, sel, string(r)); err != nil {
			return fmt.Errorf("typing into %q: %w", sel, err)
		}
	}

	return h.pacer.Sleep(ctx, h.pacer.Draw(h.cfg.TypeSettleMin, h.cfg.TypeSettleMax))
}

// Click scrolls the element into view, hovers, pauses like a human deciding,
// then clicks with a held press.
func (h *Humanizer) Click(ctx context.Context, sel string) error {
	if err := h.page.ScrollIntoView(ctx, sel); err != nil {
		return fmt.Errorf("scrolling %q into view: %w", sel, err)
	}
	if err := h.page.Hover(ctx, sel); err != nil {
		return fmt.Errorf("hovering %q: %w", sel, err)
	}
	if err := h.pacer.Sleep(ctx, h.pacer.Draw(h.cfg.HoverPauseMin, h.cfg.HoverPauseMax)); err != nil {
		return err
	}

	hold := h.pacer.Draw(h.cfg.ClickHoldMin, h.cfg.ClickHoldMax)
	if err := h.page.HoldClick(ctx, sel, hold); err != nil {
		return fmt.Errorf("clicking %q: %w", sel, err)
	}
	return nil
}

// Delay pauses between macro steps with the default range.
func (h *Humanizer) Delay(ctx context.Context) error {
	return h.DelayRange(ctx, h.cfg.StepDelayMin, h.cfg.StepDelayMax)
}

// DelayRange pauses for a uniform draw from [min, max].
func (h *Humanizer) DelayRange(ctx context.Context, min, max time.Duration) error {
	return h.pacer.Sleep(ctx, h.pacer.Draw(min, max))
}

// Settle is the longer post-milestone pause (after login, before handing off).
func (h *Humanizer) Settle(ctx context.Context) error {
	return h.DelayRange(ctx, h.cfg.SettleMin, h.cfg.SettleMax)
}
