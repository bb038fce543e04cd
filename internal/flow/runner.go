// internal/flow/runner.go
package flow

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xkilldash9x/renamer-cli/internal/browser"
	"github.com/xkilldash9x/renamer-cli/internal/config"
	"github.com/xkilldash9x/renamer-cli/internal/events"
	"github.com/xkilldash9x/renamer-cli/internal/gologin"
	"github.com/xkilldash9x/renamer-cli/internal/humanize"
	"github.com/xkilldash9x/renamer-cli/internal/input"
	"github.com/xkilldash9x/renamer-cli/internal/totp"
)

// teardownTimeout bounds profile deletion after a failed run. It runs on a
// fresh background context because the run context is usually already dead.
const teardownTimeout = 15 * time.Second

// provisioner is the profile lifecycle surface the runner needs. Satisfied
// by gologin.Client; tests substitute a fake.
type provisioner interface {
	CreateProfile(ctx context.Context, name string, proxy input.ProxyConfig) (string, error)
	StartProfile(ctx context.Context, profileID string) (string, error)
	DeleteProfile(ctx context.Context, profileID string) error
}

// browserSession is the slice of browser.Session the runner uses.
type browserSession interface {
	browser.AuxOpener
	Context() context.Context
	Page() browser.Page
	Close()
}

// Runner executes one full username-change workflow per Run call and
// reports through an event stream. The caller never touches the browser.
type Runner struct {
	cfg    *config.Config
	logger *zap.Logger

	// Seams for tests.
	newProvisioner func(cfg config.ProvisionerConfig, logger *zap.Logger) provisioner
	connect        func(ctx context.Context, debuggerAddr string, cfg config.BrowserConfig, logger *zap.Logger) (browserSession, error)
	newFetcher     func(opener browser.AuxOpener, logger *zap.Logger) codeFetcher
}

// NewRunner builds a runner backed by the real provisioner client and a
// real chromedp session.
func NewRunner(cfg *config.Config, logger *zap.Logger) *Runner {
	return &Runner{
		cfg:    cfg,
		logger: logger.Named("flow"),
		newProvisioner: func(pcfg config.ProvisionerConfig, log *zap.Logger) provisioner {
			return gologin.NewClient(pcfg, log)
		},
		connect: func(ctx context.Context, addr string, bcfg config.BrowserConfig, log *zap.Logger) (browserSession, error) {
			return browser.Connect(ctx, addr, bcfg, log)
		},
		newFetcher: func(opener browser.AuxOpener, log *zap.Logger) codeFetcher {
			return totp.NewFetcher(opener, log)
		},
	}
}

// Run starts the workflow on its own goroutine and returns the event
// stream. The stream carries any number of progress events followed by
// exactly one terminal event, after which it is closed.
//
// The token overrides the configured provisioner token when non-empty.
func (r *Runner) Run(ctx context.Context, token, proxyStr, accountStr string) <-chan events.Event {
	runID := uuid.NewString()
	log := r.logger.With(zap.String("run_id", runID))
	rep := events.NewReporter(log, r.cfg.Flow.EventBuffer)

	var g errgroup.Group
	g.Go(func() error {
		result, err := r.execute(ctx, log, rep, token, proxyStr, accountStr)
		if err != nil {
			rep.Fail(err)
			return err
		}
		rep.Complete(result)
		return nil
	})
	go func() {
		if err := g.Wait(); err != nil {
			log.Error("Run failed", zap.String("class", string(events.Classify(err))), zap.Error(err))
		} else {
			log.Info("Run completed")
		}
	}()

	return rep.Events()
}

func (r *Runner) execute(ctx context.Context, log *zap.Logger, rep *events.Reporter, token, proxyStr, accountStr string) (string, error) {
	// Inputs are validated in full before any network work happens.
	proxy, err := input.ParseProxy(proxyStr)
	if err != nil {
		return "", err
	}
	account, err := input.ParseAccount(accountStr)
	if err != nil {
		return "", err
	}

	rctx, cancel := context.WithTimeout(ctx, r.cfg.Flow.RunTimeout)
	defer cancel()

	pcfg := r.cfg.Provisioner
	if token != "" {
		pcfg.Token = token
	}
	prov := r.newProvisioner(pcfg, log)

	rep.Progress("provisioning browser profile")
	profileID, err := prov.CreateProfile(rctx, "Profile-"+account.CurrentUsername, proxy)
	if err != nil {
		return "", err
	}
	rep.Progress("profile %s created", profileID)

	// A profile that never completed its run is torn down; a successful run
	// keeps it so the operator retains the logged-in browser state.
	succeeded := false
	defer func() {
		if succeeded || !pcfg.CleanupOnFailure {
			return
		}
		dctx, dcancel := context.WithTimeout(context.Background(), teardownTimeout)
		defer dcancel()
		if derr := prov.DeleteProfile(dctx, profileID); derr != nil {
			log.Warn("Profile teardown failed", zap.String("profile_id", profileID), zap.Error(derr))
		}
	}()

	if err := rctx.Err(); err != nil {
		return "", err
	}

	rep.Progress("starting browser profile")
	addr, err := prov.StartProfile(rctx, profileID)
	if err != nil {
		return "", err
	}

	rep.Progress("attaching to the remote browser")
	sess, err := r.connect(rctx, addr, r.cfg.Browser, log)
	if err != nil {
		return "", events.Classified(events.FailureProvisioning, "attaching to the remote browser failed", err)
	}
	defer sess.Close()

	// Page work runs on the session's own context so driver commands reach
	// the right target; it inherits the run deadline through rctx.
	wctx := sess.Context()
	page := sess.Page()
	human := humanize.New(page, r.cfg.Pacing, log)
	fetcher := r.newFetcher(sess, log)

	login := newLoginSequencer(page, human, fetcher, r.cfg.Flow, rep, log)
	if err := login.Run(wctx, account); err != nil {
		return "", err
	}

	if err := wctx.Err(); err != nil {
		return "", err
	}

	rename := newRenameSequencer(page, human, r.cfg.Flow, rep, log)
	if err := rename.Run(wctx, account); err != nil {
		return "", err
	}

	succeeded = true
	return fmt.Sprintf("username changed -> %s", account.NewUsername), nil
}
