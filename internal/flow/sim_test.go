// internal/flow/sim_test.go
package flow

import (
	"context"
	"time"

	"github.com/xkilldash9x/renamer-cli/internal/config"
	"github.com/xkilldash9x/renamer-cli/internal/events"
)

// simPage is a scripted stand-in for the chromedp driver. Tests preset
// visibility, expression results and counts, and register onClick hooks to
// flip page state the way the real site would.
type simPage struct {
	visible map[string]bool
	exprs   map[string]bool
	counts  map[string]int
	urlHas  map[string]bool
	hidden  map[string]bool

	typed   map[string]string
	cleared []string
	pressed []string
	clicks  []string
	navs    []string

	onClick map[string]func()

	navErr   error
	clickErr map[string]error
}

func newSimPage() *simPage {
	return &simPage{
		visible:  map[string]bool{},
		exprs:    map[string]bool{},
		counts:   map[string]int{},
		urlHas:   map[string]bool{},
		hidden:   map[string]bool{},
		typed:    map[string]string{},
		onClick:  map[string]func(){},
		clickErr: map[string]error{},
	}
}

func (p *simPage) click(sel string) error {
	p.clicks = append(p.clicks, sel)
	if err := p.clickErr[sel]; err != nil {
		return err
	}
	if hook := p.onClick[sel]; hook != nil {
		hook()
	}
	return nil
}

func (p *simPage) Navigate(ctx context.Context, url string) error {
	p.navs = append(p.navs, url)
	return p.navErr
}

func (p *simPage) WaitVisible(ctx context.Context, sel string) error {
	if !p.hidden[sel] {
		return nil
	}
	<-ctx.Done()
	return ctx.Err()
}

func (p *simPage) WaitURLContains(ctx context.Context, fragment string) error {
	if p.urlHas[fragment] {
		return nil
	}
	<-ctx.Done()
	return ctx.Err()
}

func (p *simPage) WaitNetworkIdle(ctx context.Context) error      { return nil }
func (p *simPage) CurrentURL(ctx context.Context) (string, error) { return "", nil }

func (p *simPage) Click(ctx context.Context, sel string) error      { return p.click(sel) }
func (p *simPage) ForceClick(ctx context.Context, sel string) error { return p.click(sel) }
func (p *simPage) SynthClick(ctx context.Context, sel string) error { return p.click(sel) }
func (p *simPage) JSClick(ctx context.Context, sel string) error    { return p.click(sel) }
func (p *simPage) HoldClick(ctx context.Context, sel string, hold time.Duration) error {
	return p.click(sel)
}

func (p *simPage) ScrollIntoView(ctx context.Context, sel string) error { return nil }
func (p *simPage) ScrollTop(ctx context.Context) error                  { return nil }
func (p *simPage) Hover(ctx context.Context, sel string) error          { return nil }
func (p *simPage) Focus(ctx context.Context, sel string) error          { return nil }

func (p *simPage) SendKeys(ctx context.Context, sel, text string) error {
	p.typed[sel] += text
	return nil
}

func (p *simPage) Press(ctx context.Context, key string) error {
	p.pressed = append(p.pressed, key)
	return nil
}

func (p *simPage) Clear(ctx context.Context, sel string) error {
	p.cleared = append(p.cleared, sel)
	p.typed[sel] = ""
	return nil
}

func (p *simPage) EvalBool(ctx context.Context, expr string) (bool, error) {
	return p.exprs[expr], nil
}

func (p *simPage) Count(ctx context.Context, sel string) (int, error) {
	return p.counts[sel], nil
}

func (p *simPage) IsVisible(ctx context.Context, sel string) (bool, error) {
	return p.visible[sel], nil
}

func (p *simPage) Text(ctx context.Context, sel string) (string, error) { return "", nil }

// -- shared fixtures --

// testFlowConfig shrinks every deadline so negative paths fail in
// milliseconds instead of the production 35s waits.
func testFlowConfig() config.FlowConfig {
	return config.FlowConfig{
		RunTimeout:          5 * time.Second,
		NavigationTimeout:   250 * time.Millisecond,
		ReadyTimeout:        100 * time.Millisecond,
		DialogTimeout:       100 * time.Millisecond,
		AvailabilityTimeout: 150 * time.Millisecond,
		AvailabilityPoll:    10 * time.Millisecond,
		NameSettle:          time.Millisecond,
		ClickRetryAttempts:  5,
		EventBuffer:         64,
	}
}

// fastPacing disables all humanized delays.
func fastPacing() config.PacingConfig {
	return config.PacingConfig{Enabled: false}
}

// drainProgress pulls the buffered progress messages without blocking.
// Sequencer tests never emit a terminal event, so the channel stays open.
func drainProgress(ch <-chan events.Event) []string {
	var msgs []string
	for {
		select {
		case ev := <-ch:
			msgs = append(msgs, ev.Message)
		default:
			return msgs
		}
	}
}

type fakeFetcher struct {
	code  string
	err   error
	calls int
}

func (f *fakeFetcher) FetchCode(ctx context.Context, secret string) (string, error) {
	f.calls++
	return f.code, f.err
}
