// internal/totp/fetcher_test.go
package totp

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/renamer-cli/internal/browser"
	"github.com/xkilldash9x/renamer-cli/internal/events"
)

// tokenPage serves a canned body and records the URL it was asked to visit.
type tokenPage struct {
	body    string
	navErr  error
	textErr error
	url     string
}

func (p *tokenPage) Navigate(ctx context.Context, url string) error {
	p.url = url
	return p.navErr
}
func (p *tokenPage) Text(ctx context.Context, sel string) (string, error) {
	return p.body, p.textErr
}

func (p *tokenPage) WaitVisible(ctx context.Context, sel string) error          { return nil }
func (p *tokenPage) WaitURLContains(ctx context.Context, fragment string) error { return nil }
func (p *tokenPage) WaitNetworkIdle(ctx context.Context) error                  { return nil }
func (p *tokenPage) CurrentURL(ctx context.Context) (string, error)             { return "", nil }
func (p *tokenPage) Click(ctx context.Context, sel string) error                { return nil }
func (p *tokenPage) ForceClick(ctx context.Context, sel string) error           { return nil }
func (p *tokenPage) SynthClick(ctx context.Context, sel string) error           { return nil }
func (p *tokenPage) JSClick(ctx context.Context, sel string) error              { return nil }
func (p *tokenPage) HoldClick(ctx context.Context, sel string, hold time.Duration) error {
	return nil
}
func (p *tokenPage) ScrollIntoView(ctx context.Context, sel string) error    { return nil }
func (p *tokenPage) ScrollTop(ctx context.Context) error                     { return nil }
func (p *tokenPage) Hover(ctx context.Context, sel string) error             { return nil }
func (p *tokenPage) Focus(ctx context.Context, sel string) error             { return nil }
func (p *tokenPage) SendKeys(ctx context.Context, sel, text string) error    { return nil }
func (p *tokenPage) Press(ctx context.Context, key string) error             { return nil }
func (p *tokenPage) Clear(ctx context.Context, sel string) error             { return nil }
func (p *tokenPage) EvalBool(ctx context.Context, expr string) (bool, error) { return false, nil }
func (p *tokenPage) Count(ctx context.Context, sel string) (int, error)      { return 0, nil }
func (p *tokenPage) IsVisible(ctx context.Context, sel string) (bool, error) { return false, nil }

type fakeOpener struct {
	page     *tokenPage
	openErr  error
	released bool
}

func (o *fakeOpener) NewAuxPage(ctx context.Context) (context.Context, browser.Page, func(), error) {
	if o.openErr != nil {
		return nil, nil, nil, o.openErr
	}
	return ctx, o.page, func() { o.released = true }, nil
}

func TestFetchCodeParsesToken(t *testing.T) {
	opener := &fakeOpener{page: &tokenPage{body: `{"token":"123456"}`}}
	f := NewFetcher(opener, zap.NewNop())

	code, err := f.FetchCode(context.Background(), "JBSWY3DPEHPK3PXP")
	require.NoError(t, err)
	assert.Equal(t, "123456", code)
	assert.Equal(t, "https://2fa.live/tok/JBSWY3DPEHPK3PXP", opener.page.url)
	assert.True(t, opener.released, "auxiliary page must be released")
}

func TestFetchCodeMalformedBodyIsNotFatal(t *testing.T) {
	for _, body := range []string{"", "not json", `{"other":"x"}`, `{"token":""}`} {
		opener := &fakeOpener{page: &tokenPage{body: body}}
		f := NewFetcher(opener, zap.NewNop())

		code, err := f.FetchCode(context.Background(), "SECRET")
		require.NoError(t, err, "body %q", body)
		assert.Empty(t, code)
		assert.True(t, opener.released)
	}
}

func TestFetchCodeNavigationFailureIsClassified(t *testing.T) {
	opener := &fakeOpener{page: &tokenPage{navErr: errors.New("net::ERR_TIMED_OUT")}}
	f := NewFetcher(opener, zap.NewNop())

	_, err := f.FetchCode(context.Background(), "SECRET")
	require.Error(t, err)
	assert.Equal(t, events.FailureCodeFetch, events.Classify(err))
	assert.True(t, opener.released, "auxiliary page must be released on failure")
}

func TestFetchCodeOpenFailureIsClassified(t *testing.T) {
	opener := &fakeOpener{openErr: errors.New("target crashed")}
	f := NewFetcher(opener, zap.NewNop())

	_, err := f.FetchCode(context.Background(), "SECRET")
	require.Error(t, err)
	assert.Equal(t, events.FailureCodeFetch, events.Classify(err))
}

func TestKeySuffixRedacts(t *testing.T) {
	assert.Equal(t, "...3PXP", keySuffix("JBSWY3DPEHPK3PXP"))
	assert.Equal(t, "****", keySuffix("ab"))
}
