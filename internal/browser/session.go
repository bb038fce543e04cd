// internal/browser/session.go
package browser

import (
	"context"
	"fmt"
	"strings"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/xkilldash9x/renamer-cli/internal/config"
)

// Session is a live connection to a remotely provisioned browser. It owns
// the allocator and the default tab context for the duration of one workflow
// run; Close releases everything.
type Session struct {
	logger *zap.Logger
	cfg    config.BrowserConfig

	allocCtx    context.Context
	allocCancel context.CancelFunc
	tabCtx      context.Context
	tabCancel   context.CancelFunc
}

// Connect attaches to an already-running browser via its debugger address
// and binds the default browsing context. The address may be a bare
// host:port, an http:// endpoint, or a ws:// devtools URL.
func Connect(ctx context.Context, debuggerAddr string, cfg config.BrowserConfig, logger *zap.Logger) (*Session, error) {
	s := &Session{
		logger: logger.Named("browser_session"),
		cfg:    cfg,
	}

	url := normalizeDebuggerAddr(debuggerAddr)
	s.allocCtx, s.allocCancel = chromedp.NewRemoteAllocator(ctx, url)
	s.tabCtx, s.tabCancel = chromedp.NewContext(s.allocCtx)

	// Verify the attachment is alive before handing the session out.
	probeCtx, cancel := context.WithTimeout(s.tabCtx, cfg.AttachTimeout)
	defer cancel()
	if err := chromedp.Run(probeCtx); err != nil {
		s.Close()
		return nil, fmt.Errorf("attaching to browser at %s: %w", debuggerAddr, err)
	}

	s.logger.Info("Attached to remote browser", zap.String("debugger_addr", debuggerAddr))
	return s, nil
}

// normalizeDebuggerAddr turns a bare host:port into an http endpoint the
// allocator can resolve into a websocket URL.
func normalizeDebuggerAddr(addr string) string {
	if strings.HasPrefix(addr, "ws://") || strings.HasPrefix(addr, "wss://") ||
		strings.HasPrefix(addr, "http://") || strings.HasPrefix(addr, "https://") {
		return addr
	}
	return "http://" + addr
}

// Context returns the chromedp context of the default tab. Workflow
// deadlines are derived from it.
func (s *Session) Context() context.Context { return s.tabCtx }

// Page returns the driver bound to the default tab.
func (s *Session) Page() Page {
	return &cdpPage{quiet: s.cfg.NetworkIdleQuiet, logger: s.logger}
}

// NewAuxPage opens a fresh tab in the same browser and returns its context,
// a driver for it, and a release func that closes the tab. Callers must
// release on every exit path.
func (s *Session) NewAuxPage(ctx context.Context) (context.Context, Page, func(), error) {
	if err := s.tabCtx.Err(); err != nil {
		return nil, nil, nil, fmt.Errorf("session already closed: %w", err)
	}

	auxCtx, auxCancel := chromedp.NewContext(s.tabCtx)
	release := func() {
		// Graceful target close first, then drop the context.
		if err := chromedp.Cancel(auxCtx); err != nil {
			s.logger.Debug("Auxiliary page close was not clean", zap.Error(err))
		}
		auxCancel()
	}

	page := &cdpPage{quiet: s.cfg.NetworkIdleQuiet, logger: s.logger.Named("aux")}
	return auxCtx, page, release, nil
}

// Close releases the default tab and detaches from the browser. It does not
// terminate the remote browser process; that is the provisioner's job.
func (s *Session) Close() {
	if s.tabCancel != nil {
		s.tabCancel()
	}
	if s.allocCancel != nil {
		s.allocCancel()
	}
	s.logger.Info("Browser session released")
}
