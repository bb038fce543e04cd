// internal/interact/retry_test.go
package interact

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/renamer-cli/internal/events"
)

// clickPage fails or succeeds per tactic, recording the escalation order.
type clickPage struct {
	tactics   []string
	failUntil int // fail every tactic while len(tactics) < failUntil
	succeedOn string
}

func (c *clickPage) attempt(name string) error {
	c.tactics = append(c.tactics, name)
	if c.succeedOn != "" && name == c.succeedOn {
		return nil
	}
	if len(c.tactics) <= c.failUntil {
		return fmt.Errorf("%s rejected", name)
	}
	return nil
}

func (c *clickPage) Click(ctx context.Context, sel string) error      { return c.attempt("plain") }
func (c *clickPage) ForceClick(ctx context.Context, sel string) error { return c.attempt("force") }
func (c *clickPage) SynthClick(ctx context.Context, sel string) error { return c.attempt("synth") }
func (c *clickPage) JSClick(ctx context.Context, sel string) error    { return c.attempt("js") }

func (c *clickPage) HoldClick(ctx context.Context, sel string, hold time.Duration) error { return nil }
func (c *clickPage) Navigate(ctx context.Context, url string) error                      { return nil }
func (c *clickPage) WaitVisible(ctx context.Context, sel string) error                   { return nil }
func (c *clickPage) WaitURLContains(ctx context.Context, fragment string) error          { return nil }
func (c *clickPage) WaitNetworkIdle(ctx context.Context) error                           { return nil }
func (c *clickPage) CurrentURL(ctx context.Context) (string, error)                      { return "", nil }
func (c *clickPage) ScrollIntoView(ctx context.Context, sel string) error                { return nil }
func (c *clickPage) ScrollTop(ctx context.Context) error                                 { return nil }
func (c *clickPage) Hover(ctx context.Context, sel string) error                         { return nil }
func (c *clickPage) Focus(ctx context.Context, sel string) error                         { return nil }
func (c *clickPage) SendKeys(ctx context.Context, sel, text string) error                { return nil }
func (c *clickPage) Press(ctx context.Context, key string) error                         { return nil }
func (c *clickPage) Clear(ctx context.Context, sel string) error                         { return nil }
func (c *clickPage) EvalBool(ctx context.Context, expr string) (bool, error)             { return false, nil }
func (c *clickPage) Count(ctx context.Context, sel string) (int, error)                  { return 0, nil }
func (c *clickPage) IsVisible(ctx context.Context, sel string) (bool, error)             { return false, nil }
func (c *clickPage) Text(ctx context.Context, sel string) (string, error)                { return "", nil }

func noProgress(string, ...any) {}

func TestMain(m *testing.M) {
	// Keep the inter-attempt pause out of test wall time.
	attemptBackoff = time.Millisecond
	os.Exit(m.Run())
}

func TestRetryClickSucceedsFirstAttempt(t *testing.T) {
	page := &clickPage{}
	err := RetryClick(context.Background(), page, noProgress, zap.NewNop(), "#btn", "Change username", 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"plain"}, page.tactics)
}

func TestRetryClickEscalationOrder(t *testing.T) {
	page := &clickPage{failUntil: 5}
	err := RetryClick(context.Background(), page, noProgress, zap.NewNop(), "#btn", "Change username", 5)
	require.Error(t, err)
	// All five tactics, in the documented order, with the forced click repeated last.
	assert.Equal(t, []string{"plain", "force", "synth", "js", "force"}, page.tactics)
}

func TestRetryClickExhaustionClassification(t *testing.T) {
	page := &clickPage{failUntil: 5}
	var progressNotes []string
	progress := func(format string, args ...any) {
		progressNotes = append(progressNotes, fmt.Sprintf(format, args...))
	}

	err := RetryClick(context.Background(), page, progress, zap.NewNop(), "#btn", "Change username", 5)
	require.Error(t, err)

	assert.Equal(t, events.FailureInteraction, events.Classify(err))
	assert.Contains(t, err.Error(), "click exhausted: Change username")
	assert.Contains(t, err.Error(), "5", "failure message must carry the attempt count")

	// One progress note per failed attempt, each naming the attempt and error.
	require.Len(t, progressNotes, 5)
	assert.Contains(t, progressNotes[0], "attempt 1")
	assert.Contains(t, progressNotes[4], "attempt 5")
	assert.Contains(t, progressNotes[2], "rejected")
}

func TestRetryClickRecoversMidEscalation(t *testing.T) {
	page := &clickPage{failUntil: 5, succeedOn: "synth"}
	err := RetryClick(context.Background(), page, noProgress, zap.NewNop(), "#btn", "ok", 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"plain", "force", "synth"}, page.tactics)
}

func TestRetryClickHonorsCancellation(t *testing.T) {
	page := &clickPage{failUntil: 100}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := RetryClick(ctx, page, noProgress, zap.NewNop(), "#btn", "ok", 5)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled) || events.Classify(err) == events.FailureInteraction)
}
