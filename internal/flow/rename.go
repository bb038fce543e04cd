// internal/flow/rename.go
package flow

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/renamer-cli/internal/browser"
	"github.com/xkilldash9x/renamer-cli/internal/config"
	"github.com/xkilldash9x/renamer-cli/internal/events"
	"github.com/xkilldash9x/renamer-cli/internal/humanize"
	"github.com/xkilldash9x/renamer-cli/internal/interact"
	"github.com/xkilldash9x/renamer-cli/internal/input"
)

const (
	adminURL = "https://github.com/settings/admin"

	selRenameTrigger = "button#dialog-show-rename-warning-dialog"
	selConfirmButton = `dialog#rename-warning-dialog button[data-show-dialog-id='rename-form-dialog']`
	selUsernameInput = "dialog#rename-form-dialog input#login"
	selRenameSubmit  = `dialog#rename-form-dialog button[type="submit"]`
	selEnabledSubmit = `dialog#rename-form-dialog button[type="submit"]:not([disabled]):not([aria-disabled="true"])`
	selOpenFormDlg   = "dialog#rename-form-dialog[open]"

	selSuccessIcon = `dialog#rename-form-dialog .FormControl-inlineValidation [data-target="primer-text-field.validationSuccessIcon"]:not([hidden])`
	selErrorIcon   = `dialog#rename-form-dialog .FormControl-inlineValidation [data-target="primer-text-field.validationErrorIcon"]:not([hidden])`

	exprWarningOpen = "document.getElementById('rename-warning-dialog')?.open === true"
	exprFormOpen    = "document.getElementById('rename-form-dialog')?.open === true"

	// The page hydrates the settings pane asynchronously inside
	// turbo-frame#settings-frame; the trigger exists in the DOM well before
	// it is actually clickable.
	exprTriggerReady = `(() => {
		const frame = document.querySelector('turbo-frame#settings-frame');
		const el = (frame || document).querySelector('button#dialog-show-rename-warning-dialog');
		if (!el) return false;
		const r = el.getBoundingClientRect();
		const inView = r.width > 0 && r.height > 0 && r.top >= 0 && r.left >= 0;
		const disabled = el.disabled || el.getAttribute('aria-disabled') === 'true';
		return inView && !disabled;
	})()`

	exprAvailableText = `((document.querySelector('dialog#rename-form-dialog')?.innerText) || '').includes('is available')`
	exprSuccessBanner = `document.body.innerText.includes('Your username has been changed')`

	// The confirm button sits in an already-open modal; it needs fewer
	// escalation rounds than the trigger buried in the hydrating frame.
	confirmClickAttempts = 4
)

// renameSequencer drives the username-change dialog flow on an
// authenticated session.
type renameSequencer struct {
	page   browser.Page
	human  *humanize.Humanizer
	cfg    config.FlowConfig
	report *events.Reporter
	logger *zap.Logger
}

func newRenameSequencer(page browser.Page, human *humanize.Humanizer, cfg config.FlowConfig, report *events.Reporter, logger *zap.Logger) *renameSequencer {
	return &renameSequencer{
		page:   page,
		human:  human,
		cfg:    cfg,
		report: report,
		logger: logger.Named("rename"),
	}
}

// Run executes the rename flow: open settings, click through the warning
// dialog, enter the new name, wait for the availability check, then submit.
func (s *renameSequencer) Run(ctx context.Context, account input.AccountCredentials) error {
	s.report.Progress("opening username settings")
	if err := s.navigate(ctx, adminURL); err != nil {
		return err
	}
	if err := s.human.Delay(ctx); err != nil {
		return err
	}

	if err := s.openWarningDialog(ctx); err != nil {
		return err
	}
	if err := s.openRenameForm(ctx); err != nil {
		return err
	}
	if err := s.enterNewName(ctx, account.NewUsername); err != nil {
		return err
	}
	if err := s.submitAndVerify(ctx, account.NewUsername); err != nil {
		return err
	}
	return nil
}

// openWarningDialog waits for the trigger to become actionable, clicks it,
// and waits for the warning dialog to open.
func (s *renameSequencer) openWarningDialog(ctx context.Context) error {
	s.report.Progress("waiting for the change-username control")

	// The trigger is rendered below the fold; scrolling to the top first
	// keeps the in-viewport readiness check honest.
	if err := s.page.ScrollTop(ctx); err != nil {
		s.logger.Debug("Scroll to top failed", zap.Error(err))
	}
	if err := s.page.ScrollIntoView(ctx, selRenameTrigger); err != nil {
		s.logger.Debug("Scroll into view failed", zap.Error(err))
	}

	if !s.pollExpr(ctx, exprTriggerReady, s.cfg.ReadyTimeout) {
		if err := ctx.Err(); err != nil {
			return err
		}
		return events.Classifiedf(events.FailureNavigationTimeout,
			"change-username control never became actionable, site layout likely changed")
	}

	s.report.Progress("clicking the change-username control")
	if err := interact.RetryClick(ctx, s.page, s.report.Progress, s.logger,
		selRenameTrigger, "Change username", s.cfg.ClickRetryAttempts); err != nil {
		return err
	}

	s.report.Progress("waiting for the warning dialog")
	if !s.pollExpr(ctx, exprWarningOpen, s.cfg.DialogTimeout) {
		if err := ctx.Err(); err != nil {
			return err
		}
		return events.Classifiedf(events.FailureNavigationTimeout,
			"warning dialog never opened")
	}
	return s.human.DelayRange(ctx, 800*time.Millisecond, 1400*time.Millisecond)
}

// openRenameForm clicks through the warning dialog into the rename form.
func (s *renameSequencer) openRenameForm(ctx context.Context) error {
	s.report.Progress("confirming the warning dialog")
	if err := interact.RetryClick(ctx, s.page, s.report.Progress, s.logger,
		selConfirmButton, "I understand, let's change my username", confirmClickAttempts); err != nil {
		return err
	}

	s.report.Progress("waiting for the rename form")
	if !s.pollExpr(ctx, exprFormOpen, s.cfg.DialogTimeout) {
		if err := ctx.Err(); err != nil {
			return err
		}
		return events.Classifiedf(events.FailureNavigationTimeout,
			"rename form never opened")
	}
	return s.human.DelayRange(ctx, 800*time.Millisecond, 1400*time.Millisecond)
}

// enterNewName clears the field, types the new name with humanized pacing,
// then tabs away so the page starts its availability check.
func (s *renameSequencer) enterNewName(ctx context.Context, newName string) error {
	s.report.Progress("entering the new username")

	wctx, cancel := context.WithTimeout(ctx, s.cfg.ReadyTimeout)
	err := s.page.WaitVisible(wctx, selUsernameInput)
	cancel()
	if err != nil {
		return events.Classified(events.FailureNavigationTimeout,
			"username field never appeared", err)
	}

	if err := s.page.ScrollIntoView(ctx, selUsernameInput); err != nil {
		s.logger.Debug("Scroll into view failed", zap.Error(err))
	}
	if err := s.page.Clear(ctx, selUsernameInput); err != nil {
		return events.Classified(events.FailureInteraction, "clearing the username field failed", err)
	}
	if err := s.human.Type(ctx, selUsernameInput, newName); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return events.Classified(events.FailureInteraction, "typing the new username failed", err)
	}

	// Blur triggers the inline validation request.
	if err := s.page.Press(ctx, "\t"); err != nil {
		return events.Classified(events.FailureInteraction, "leaving the username field failed", err)
	}
	return sleep(ctx, s.cfg.NameSettle)
}

// submitAndVerify performs the two-click submit: the first click kicks off
// the server-side availability check, the second confirms once the form
// reports the name available.
func (s *renameSequencer) submitAndVerify(ctx context.Context, newName string) error {
	s.report.Progress("submitting the rename form")
	if err := s.clickSubmit(ctx, selRenameSubmit); err != nil {
		return err
	}

	if err := s.waitAvailability(ctx); err != nil {
		return err
	}
	if err := s.human.DelayRange(ctx, time.Second, 1800*time.Millisecond); err != nil {
		return err
	}

	s.report.Progress("confirming the rename")
	target := selRenameSubmit
	if n, err := s.page.Count(ctx, selEnabledSubmit); err == nil && n > 0 {
		target = selEnabledSubmit
	}
	if err := s.clickSubmit(ctx, target); err != nil {
		return err
	}

	return s.verifyOutcome(ctx, newName)
}

// clickSubmit clicks with the humanized path and falls back to a
// programmatic click when the overlayed dialog swallows the pointer.
func (s *renameSequencer) clickSubmit(ctx context.Context, sel string) error {
	if err := s.human.Click(ctx, sel); err == nil {
		return nil
	} else if ctx.Err() != nil {
		return ctx.Err()
	} else {
		s.logger.Debug("Humanized submit click failed, dispatching programmatically",
			zap.String("selector", sel), zap.Error(err))
	}
	if err := s.page.JSClick(ctx, sel); err != nil {
		return events.Classified(events.FailureInteraction, "rename submit failed", err)
	}
	return nil
}

// waitAvailability polls for the availability confirmation (success icon or
// inline "is available" text). A visible validation error distinguishes a
// rejected name from an unconfirmed check.
func (s *renameSequencer) waitAvailability(ctx context.Context) error {
	s.report.Progress("waiting for the availability check")

	wctx, cancel := context.WithTimeout(ctx, s.cfg.AvailabilityTimeout)
	defer cancel()

	ok := browser.Poll(wctx, s.cfg.AvailabilityPoll, func(pctx context.Context) (bool, error) {
		if visible, err := s.page.IsVisible(pctx, selSuccessIcon); err == nil && visible {
			return true, nil
		}
		return s.page.EvalBool(pctx, exprAvailableText)
	})
	if ok {
		s.report.Progress("username is available")
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if visible, err := s.page.IsVisible(ctx, selErrorIcon); err == nil && visible {
		return events.Classifiedf(events.FailureValidationRejected,
			"username unavailable or invalid")
	}
	return events.Classifiedf(events.FailureAmbiguousOutcome,
		"availability never confirmed")
}

// verifyOutcome looks for the success banner or the new profile identity.
// An open dialog with a visible validation error means the change was
// rejected; silence with no error is reported but not fatal.
func (s *renameSequencer) verifyOutcome(ctx context.Context, newName string) error {
	s.report.Progress("waiting for the rename confirmation")

	nctx, cancel := context.WithTimeout(ctx, s.cfg.NavigationTimeout)
	err := s.page.WaitNetworkIdle(nctx)
	cancel()
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}

	if banner, err := s.page.EvalBool(ctx, exprSuccessBanner); err == nil && banner {
		return nil
	}
	if n, err := s.page.Count(ctx, fmt.Sprintf("a[href='/%s']", newName)); err == nil && n > 0 {
		return nil
	}
	if hinted, err := s.page.EvalBool(ctx, exprBodyContains(newName)); err == nil && hinted {
		return nil
	}

	dialogOpen, _ := s.page.Count(ctx, selOpenFormDlg)
	errVisible, _ := s.page.IsVisible(ctx, selErrorIcon)
	if dialogOpen > 0 && errVisible {
		return events.Classifiedf(events.FailureValidationRejected,
			"rename rejected by server-side validation")
	}

	s.report.Progress("no confirmation banner, but no error either; the change likely went through")
	return nil
}

// navigate loads a URL and waits for the network to go quiet.
func (s *renameSequencer) navigate(ctx context.Context, url string) error {
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

// pollExpr polls a boolean page expression until it holds or the deadline
// passes.
func (s *renameSequencer) pollExpr(ctx context.Context, expr string, timeout time.Duration) bool {
	wctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return browser.Poll(wctx, 250*time.Millisecond, func(pctx context.Context) (bool, error) {
		return s.page.EvalBool(pctx, expr)
	})
}

func exprBodyContains(text string) string {
	return fmt.Sprintf("document.body.innerText.includes(%s)", strconv.Quote(text))
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
