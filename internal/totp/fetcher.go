// internal/totp/fetcher.go

// Package totp retrieves one-time codes from a remote code-generation
// service through the provisioned browser itself, so the lookup rides the
// same proxy and fingerprint as the rest of the session.
package totp

import (
	"context"
	"time"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/renamer-cli/internal/browser"
	"github.com/xkilldash9x/renamer-cli/internal/events"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// DefaultEndpoint is the per-secret code generation URL prefix.
const DefaultEndpoint = "https://2fa.live/tok/"

// fetchTimeout bounds the whole lookup, navigation included.
const fetchTimeout = 15 * time.Second

// Fetcher retrieves time-based codes over an auxiliary page.
type Fetcher struct {
	opener   browser.AuxOpener
	endpoint string
	timeout  time.Duration
	logger   *zap.Logger
}

// NewFetcher builds a fetcher using the default endpoint and timeout.
func NewFetcher(opener browser.AuxOpener, logger *zap.Logger) *Fetcher {
	return &Fetcher{
		opener:   opener,
		endpoint: DefaultEndpoint,
		timeout:  fetchTimeout,
		logger:   logger.Named("totp"),
	}
}

type tokenBody struct {
	Token string `json:"token"`
}

// FetchCode opens an auxiliary page against the code service and reads the
// token field from the JSON body. The auxiliary page is released on every
// exit path. A missing or malformed token yields ("", nil); the caller
// decides whether that is fatal. Only transport-level failures (timeout,
// navigation) produce an error.
func (f *Fetcher) FetchCode(ctx context.Context, secret string) (string, error) {
	f.logger.Info("Fetching two-factor code", zap.String("key_suffix", keySuffix(secret)))

	auxCtx, page, release, err := f.opener.NewAuxPage(ctx)
	if err != nil {
		return "", events.Classified(events.FailureCodeFetch, "opening auxiliary page", err)
	}
	defer release()

	opCtx, cancel := context.WithTimeout(auxCtx, f.timeout)
	defer cancel()

	if err := page.Navigate(opCtx, f.endpoint+secret); err != nil {
		return "", events.Classified(events.FailureCodeFetch, "two-factor code fetch failed", err)
	}

	body, err := page.Text(opCtx, "body")
	if err != nil {
		return "", events.Classified(events.FailureCodeFetch, "reading two-factor response", err)
	}

	var tb tokenBody
	if err := json.UnmarshalFromString(body, &tb); err != nil {
		f.logger.Warn("Two-factor response body was not valid JSON", zap.Error(err))
		return "", nil
	}
	if tb.Token == "" {
		f.logger.Warn("Two-factor response carried no token")
		return "", nil
	}

	f.logger.Info("Two-factor code retrieved")
	return tb.Token, nil
}

// keySuffix returns the last four characters of the secret for log
// correlation without disclosing it.
func keySuffix(secret string) string {
	if len(secret) <= 4 {
		return "****"
	}
	return "..." + secret[len(secret)-4:]
}
