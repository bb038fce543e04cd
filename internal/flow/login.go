// internal/flow/login.go

// Package flow contains the two page sequencers (login, rename) and the
// runner that strings them together behind an event stream.
package flow

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/renamer-cli/internal/browser"
	"github.com/xkilldash9x/renamer-cli/internal/config"
	"github.com/xkilldash9x/renamer-cli/internal/events"
	"github.com/xkilldash9x/renamer-cli/internal/humanize"
	"github.com/xkilldash9x/renamer-cli/internal/input"
)

// ErrMissingTwoFactorCode is raised when the code service answered but
// produced no usable token. Classified under the code-fetch failure class.
var ErrMissingTwoFactorCode = errors.New("two-factor code unavailable")

// codeFetcher abstracts totp.Fetcher so sequencer tests can serve codes
// without an auxiliary page.
type codeFetcher interface {
	FetchCode(ctx context.Context, secret string) (string, error)
}

const (
	loginURL           = "https://github.com/login"
	selLoginField      = `input[name="login"]`
	selPasswordField   = `input[name="password"]`
	selLoginSubmit     = `input[type="submit"][name="commit"]`
	twoFactorFragment  = "/sessions/two-factor/"
	selTOTPField       = "input#app_totp"
	selDashboardMarker = `header[role="banner"]`

	// The device-verification skip control has no stable attribute, only its
	// label text. exprTagSkipButton finds it by text and tags it so the
	// humanized click path can address it with a plain selector.
	selSkipTagged     = "button[data-device-skip]"
	exprTagSkipButton = `(() => {
		const b = [...document.querySelectorAll('button')]
			.find(x => /skip (2fa verification|for now)/i.test(x.textContent || ''));
		if (!b) return false;
		b.setAttribute('data-device-skip', '');
		return true;
	})()`
)

// loginSequencer drives the credential and two-factor sign-in states.
type loginSequencer struct {
	page    browser.Page
	human   *humanize.Humanizer
	fetcher codeFetcher
	cfg     config.FlowConfig
	report  *events.Reporter
	logger  *zap.Logger
}

func newLoginSequencer(page browser.Page, human *humanize.Humanizer, fetcher codeFetcher, cfg config.FlowConfig, report *events.Reporter, logger *zap.Logger) *loginSequencer {
	return &loginSequencer{
		page:    page,
		human:   human,
		fetcher: fetcher,
		cfg:     cfg,
		report:  report,
		logger:  logger.Named("login"),
	}
}

// Run executes the sign-in flow on the sequencer's page. On return the
// session is authenticated and settled on a post-login page.
func (s *loginSequencer) Run(ctx context.Context, account input.AccountCredentials) error {
	s.report.Progress("opening sign-in page")
	if err := s.navigate(ctx, loginURL); err != nil {
		return err
	}
	if err := s.human.Delay(ctx); err != nil {
		return err
	}

	s.report.Progress("typing current username")
	if err := s.waitAndType(ctx, selLoginField, account.CurrentUsername); err != nil {
		return err
	}

	s.report.Progress("typing password")
	if err := s.waitAndType(ctx, selPasswordField, account.Password); err != nil {
		return err
	}

	s.report.Progress("submitting sign-in form")
	if err := s.human.Click(ctx, selLoginSubmit); err != nil {
		return events.Classified(events.FailureInteraction, "sign-in submit failed", err)
	}

	wctx, cancel := context.WithTimeout(ctx, s.cfg.NavigationTimeout)
	err := s.page.WaitURLContains(wctx, twoFactorFragment)
	cancel()
	if err != nil {
		return events.Classified(events.FailureNavigationTimeout,
			"two-factor prompt not reached, site layout likely changed", err)
	}
	s.report.Progress("two-factor prompt reached")

	code, err := s.fetcher.FetchCode(ctx, account.TOTPSecret)
	if err != nil {
		return err
	}
	if code == "" {
		return events.Classified(events.FailureCodeFetch,
			"code service returned no token", ErrMissingTwoFactorCode)
	}

	s.report.Progress("typing two-factor code")
	if err := s.waitAndType(ctx, selTOTPField, code); err != nil {
		return err
	}

	if err := s.confirmSignedIn(ctx); err != nil {
		return err
	}

	return s.human.Settle(ctx)
}

// confirmSignedIn waits for the first of the dashboard marker or the
// device-verification skip screen, clicking through the latter.
func (s *loginSequencer) confirmSignedIn(ctx context.Context) error {
	s.report.Progress("waiting for sign-in confirmation")

	wctx, cancel := context.WithTimeout(ctx, s.cfg.NavigationTimeout)
	defer cancel()

	var skip bool
	ok := browser.Poll(wctx, 250*time.Millisecond, func(pctx context.Context) (bool, error) {
		if visible, err := s.page.IsVisible(pctx, selDashboardMarker); err == nil && visible {
			skip = false
			return true, nil
		}
		if found, err := s.page.EvalBool(pctx, exprTagSkipButton); err == nil && found {
			skip = true
			return true, nil
		}
		return false, nil
	})
	if !ok {
		if err := ctx.Err(); err != nil {
			return err
		}
		return events.Classifiedf(events.FailureNavigationTimeout,
			"sign-in confirmation not reached, site layout likely changed")
	}

	if skip {
		s.report.Progress("device verification screen shown, skipping")
		if err := s.human.Click(ctx, selSkipTagged); err != nil {
			return events.Classified(events.FailureInteraction, "device verification skip failed", err)
		}
	} else {
		s.report.Progress("signed in")
	}
	return nil
}

// navigate loads a URL and waits for the network to go quiet, both under the
// navigation deadline.
func (s *loginSequencer) navigate(ctx context.Context, url string) error {
	nctx, cancel := context.WithTimeout(ctx, s.cfg.NavigationTimeout)
	defer cancel()

	if err := s.page.Navigate(nctx, url); err != nil {
		return events.Classified(events.FailureNavigationTimeout, "navigation failed", err)
	}
	if err := s.page.WaitNetworkIdle(nctx); err != nil {
		return events.Classified(events.FailureNavigationTimeout, "page never settled", err)
	}
	return nil
}

// waitAndType waits for the field then types into it with humanized pacing.
func (s *loginSequencer) waitAndType(ctx context.Context, sel, text string) error {
	wctx, cancel := context.WithTimeout(ctx, s.cfg.NavigationTimeout)
	err := s.page.WaitVisible(wctx, sel)
	cancel()
	if err != nil {
		return events.Classified(events.FailureNavigationTimeout,
			"expected field never appeared, site layout likely changed", err)
	}
	if err := s.human.Type(ctx, sel, text); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return events.Classified(events.FailureInteraction, "typing failed", err)
	}
	return nil
}
