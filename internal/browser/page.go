// internal/browser/page.go
package browser

import (
	"context"
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// cdpPage implements Page over a chromedp tab context. The context passed to
// each method must derive from the session's tab context.
type cdpPage struct {
	quiet  time.Duration
	logger *zap.Logger
}

func (p *cdpPage) Navigate(ctx context.Context, url string) error {
	return chromedp.Run(ctx, chromedp.Navigate(url))
}

func (p *cdpPage) WaitVisible(ctx context.Context, sel string) error {
	return chromedp.Run(ctx, chromedp.WaitVisible(sel, chromedp.ByQuery))
}

// WaitURLContains polls the page location until it contains fragment or the
// context deadline elapses.
func (p *cdpPage) WaitURLContains(ctx context.Context, fragment string) error {
	ok := Poll(ctx, 250*time.Millisecond, func(ctx context.Context) (bool, error) {
		var loc string
		if err := chromedp.Run(ctx, chromedp.Location(&loc)); err != nil {
			return false, err
		}
		return strings.Contains(loc, fragment), nil
	})
	if !ok {
		return fmt.Errorf("url never contained %q: %w", fragment, ctx.Err())
	}
	return nil
}

// WaitNetworkIdle blocks until no request has been in flight for the
// configured quiet window. The caller's context bounds the overall wait.
func (p *cdpPage) WaitNetworkIdle(ctx context.Context) error {
	quiet := p.quiet
	if quiet <= 0 {
		quiet = 500 * time.Millisecond
	}

	var mu sync.Mutex
	inflight := make(map[network.RequestID]struct{})
	last := time.Now()

	listenCtx, stopListening := context.WithCancel(ctx)
	defer stopListening()
	chromedp.ListenTarget(listenCtx, func(ev interface{}) {
		mu.Lock()
		defer mu.Unlock()
		switch e := ev.(type) {
		case *network.EventRequestWillBeSent:
			inflight[e.RequestID] = struct{}{}
			last = time.Now()
		case *network.EventLoadingFinished:
			delete(inflight, e.RequestID)
			last = time.Now()
		case *network.EventLoadingFailed:
			delete(inflight, e.RequestID)
			last = time.Now()
		}
	})

	if err := chromedp.Run(ctx, network.Enable()); err != nil {
		return fmt.Errorf("enabling network events: %w", err)
	}

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("network never settled: %w", ctx.Err())
		case <-ticker.C:
			mu.Lock()
			idle := len(inflight) == 0 && time.Since(last) >= quiet
			mu.Unlock()
			if idle {
				return nil
			}
		}
	}
}

func (p *cdpPage) CurrentURL(ctx context.Context) (string, error) {
	var loc string
	if err := chromedp.Run(ctx, chromedp.Location(&loc)); err != nil {
		return "", err
	}
	return loc, nil
}

// Click is the plain tactic: it waits for the element to be visible and
// dispatches a real mouse click at its center.
func (p *cdpPage) Click(ctx context.Context, sel string) error {
	return chromedp.Run(ctx, chromedp.Click(sel, chromedp.ByQuery, chromedp.NodeVisible))
}

// ForceClick bypasses the visibility check: it resolves the node as-is and
// dispatches the mouse click regardless of actionability.
func (p *cdpPage) ForceClick(ctx context.Context, sel string) error {
	var nodes []*cdp.Node
	if err := chromedp.Run(ctx, chromedp.Nodes(sel, &nodes, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("resolving %q: %w", sel, err)
	}
	if len(nodes) == 0 {
		return fmt.Errorf("selector %q matched no nodes", sel)
	}
	return chromedp.Run(ctx, chromedp.MouseClickNode(nodes[0]))
}

// SynthClick synthesizes the raw pointer sequence at the element's
// bounding-box center: move, press, release, with human-scale gaps.
func (p *cdpPage) SynthClick(ctx context.Context, sel string) error {
	center, err := p.elementCenter(ctx, sel)
	if err != nil {
		return err
	}

	move := input.DispatchMouseEvent(input.MouseMoved, center.x, center.y)
	press := input.DispatchMouseEvent(input.MousePressed, center.x, center.y).
		WithButton(input.Left).WithClickCount(1)
	release := input.DispatchMouseEvent(input.MouseReleased, center.x, center.y).
		WithButton(input.Left).WithClickCount(1)

	return chromedp.Run(ctx,
		move,
		randomSleep(180, 320),
		press,
		randomSleep(60, 120),
		release,
	)
}

// HoldClick presses at the element's center, holds for the given duration,
// then releases.
func (p *cdpPage) HoldClick(ctx context.Context, sel string, hold time.Duration) error {
	center, err := p.elementCenter(ctx, sel)
	if err != nil {
		return err
	}

	press := input.DispatchMouseEvent(input.MousePressed, center.x, center.y).
		WithButton(input.Left).WithClickCount(1)
	release := input.DispatchMouseEvent(input.MouseReleased, center.x, center.y).
		WithButton(input.Left).WithClickCount(1)

	return chromedp.Run(ctx,
		press,
		sleepAction(hold),
		release,
	)
}

// JSClick dispatches a programmatic click directly on the element, skipping
// the input pipeline entirely.
func (p *cdpPage) JSClick(ctx context.Context, sel string) error {
	var found bool
	expr := fmt.Sprintf(
		`(() => { const el = document.querySelector(%s); if (!el) return false; el.click(); return true; })()`,
		jsString(sel))
	if err := chromedp.Run(ctx, chromedp.Evaluate(expr, &found)); err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("selector %q matched no nodes", sel)
	}
	return nil
}

func (p *cdpPage) ScrollIntoView(ctx context.Context, sel string) error {
	return chromedp.Run(ctx, chromedp.ScrollIntoView(sel, chromedp.ByQuery))
}

func (p *cdpPage) ScrollTop(ctx context.Context) error {
	return chromedp.Run(ctx, chromedp.Evaluate(`window.scrollTo(0, 0)`, nil))
}

// Hover moves the pointer to the element's center without pressing.
func (p *cdpPage) Hover(ctx context.Context, sel string) error {
	center, err := p.elementCenter(ctx, sel)
	if err != nil {
		return err
	}
	return chromedp.Run(ctx, input.DispatchMouseEvent(input.MouseMoved, center.x, center.y))
}

func (p *cdpPage) Focus(ctx context.Context, sel string) error {
	return chromedp.Run(ctx, chromedp.Focus(sel, chromedp.ByQuery))
}

func (p *cdpPage) SendKeys(ctx context.Context, sel, text string) error {
	return chromedp.Run(ctx, chromedp.SendKeys(sel, text, chromedp.ByQuery))
}

func (p *cdpPage) Press(ctx context.Context, key string) error {
	return chromedp.Run(ctx, chromedp.KeyEvent(key))
}

func (p *cdpPage) Clear(ctx context.Context, sel string) error {
	return chromedp.Run(ctx, chromedp.Clear(sel, chromedp.ByQuery))
}

func (p *cdpPage) EvalBool(ctx context.Context, expr string) (bool, error) {
	var out bool
	if err := chromedp.Run(ctx, chromedp.Evaluate(fmt.Sprintf(`Boolean(%s)`, expr), &out)); err != nil {
		return false, err
	}
	return out, nil
}

func (p *cdpPage) Count(ctx context.Context, sel string) (int, error) {
	var n int
	expr := fmt.Sprintf(`document.querySelectorAll(%s).length`, jsString(sel))
	if err := chromedp.Run(ctx, chromedp.Evaluate(expr, &n)); err != nil {
		return 0, err
	}
	return n, nil
}

// IsVisible checks geometry, not just presence: a zero-sized or display:none
// element is not visible.
func (p *cdpPage) IsVisible(ctx context.Context, sel string) (bool, error) {
	expr := fmt.Sprintf(`(() => {
		const el = document.querySelector(%s);
		if (!el) return false;
		const rect = el.getBoundingClientRect();
		const style = window.getComputedStyle(el);
		return rect.width > 0 && rect.height > 0 && style.visibility !== 'hidden' && style.display !== 'none';
	})()`, jsString(sel))

	var out bool
	if err := chromedp.Run(ctx, chromedp.Evaluate(expr, &out)); err != nil {
		return false, err
	}
	return out, nil
}

func (p *cdpPage) Text(ctx context.Context, sel string) (string, error) {
	var out string
	if err := chromedp.Run(ctx, chromedp.Text(sel, &out, chromedp.ByQuery)); err != nil {
		return "", err
	}
	return out, nil
}

// -- geometry helpers --

type point struct{ x, y float64 }

// elementCenter resolves the selector and computes the centroid of its
// content box.
func (p *cdpPage) elementCenter(ctx context.Context, sel string) (point, error) {
	var nodes []*cdp.Node
	if err := chromedp.Run(ctx, chromedp.Nodes(sel, &nodes, chromedp.ByQuery)); err != nil {
		return point{}, fmt.Errorf("resolving %q: %w", sel, err)
	}
	if len(nodes) == 0 {
		return point{}, fmt.Errorf("selector %q matched no nodes", sel)
	}

	var box *dom.BoxModel
	err := chromedp.Run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		box, err = dom.GetBoxModel().WithNodeID(nodes[0].NodeID).Do(ctx)
		return err
	}))
	if err != nil {
		return point{}, fmt.Errorf("box model for %q: %w", sel, err)
	}

	center, ok := boxCenter(box)
	if !ok {
		return point{}, fmt.Errorf("element %q has no geometric representation", sel)
	}
	return center, nil
}

// boxCenter computes the centroid of a BoxModel content quad
// (x0,y0,x1,y1,x2,y2,x3,y3).
func boxCenter(box *dom.BoxModel) (point, bool) {
	if box == nil || len(box.Content) < 8 || box.Width <= 0 || box.Height <= 0 {
		return point{}, false
	}
	return point{
		x: (box.Content[0] + box.Content[2] + box.Content[4] + box.Content[6]) / 4,
		y: (box.Content[1] + box.Content[3] + box.Content[5] + box.Content[7]) / 4,
	}, true
}

// jsString renders s as a JS string literal; selectors routinely contain
// both quote kinds.
func jsString(s string) string { return strconv.Quote(s) }

// randomSleep is a context-aware sleep drawn uniformly from [minMs, maxMs].
func randomSleep(minMs, maxMs int) chromedp.Action {
	return sleepAction(time.Duration(minMs+rand.Intn(maxMs-minMs+1)) * time.Millisecond)
}

func sleepAction(d time.Duration) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
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
	})
}
