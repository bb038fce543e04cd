// internal/input/input_test.go
package input

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/renamer-cli/internal/events"
)

func TestParseProxy(t *testing.T) {
	t.Run("valid proxy string", func(t *testing.T) {
		p, err := ParseProxy("1.2.3.4:1080:alice:secret")
		require.NoError(t, err)
		assert.Equal(t, ProxyConfig{Host: "1.2.3.4", Port: 1080, Username: "alice", Password: "secret"}, p)
	})

	t.Run("password may contain colons", func(t *testing.T) {
		// SplitN(4) keeps everything after the third delimiter in the password.
		p, err := ParseProxy("1.2.3.4:1080:alice:se:cret")
		require.NoError(t, err)
		assert.Equal(t, "se:cret", p.Password)
	})

	t.Run("rejects non-numeric port", func(t *testing.T) {
		_, err := ParseProxy("1.2.3.4:abc:alice:secret")
		require.Error(t, err)
		assert.Equal(t, events.FailureInputFormat, events.Classify(err))
	})

	t.Run("rejects wrong field count", func(t *testing.T) {
		for _, s := range []string{"", "1.2.3.4", "1.2.3.4:1080", "1.2.3.4:1080:alice"} {
			p, err := ParseProxy(s)
			require.Error(t, err, "input %q", s)
			assert.Equal(t, events.FailureInputFormat, events.Classify(err))
			assert.Zero(t, p, "no partial record for input %q", s)
		}
	})
}

func TestParseAccount(t *testing.T) {
	t.Run("valid account string", func(t *testing.T) {
		a, err := ParseAccount("newname|olduser|pw123|SECRETKEY")
		require.NoError(t, err)
		assert.Equal(t, AccountCredentials{
			NewUsername:     "newname",
			CurrentUsername: "olduser",
			Password:        "pw123",
			TOTPSecret:      "SECRETKEY",
		}, a)
	})

	t.Run("trims surrounding whitespace", func(t *testing.T) {
		a, err := ParseAccount(" newname | olduser |pw123| SECRETKEY ")
		require.NoError(t, err)
		assert.Equal(t, "newname", a.NewUsername)
		assert.Equal(t, "olduser", a.CurrentUsername)
		assert.Equal(t, "SECRETKEY", a.TOTPSecret)
	})

	t.Run("rejects three fields", func(t *testing.T) {
		a, err := ParseAccount("newname|olduser|pw123")
		require.Error(t, err)
		assert.Equal(t, events.FailureInputFormat, events.Classify(err))
		assert.Zero(t, a)
	})

	t.Run("rejects blank field after trim", func(t *testing.T) {
		a, err := ParseAccount("newname| |pw123|KEY")
		require.Error(t, err)
		assert.Equal(t, events.FailureInputFormat, events.Classify(err))
		assert.Zero(t, a)
	})
}

func TestRedactedStrings(t *testing.T) {
	p, err := ParseProxy("1.2.3.4:1080:alice:secret")
	require.NoError(t, err)
	assert.NotContains(t, p.String(), "secret")

	a, err := ParseAccount("newname|olduser|pw123|SECRETKEY")
	require.NoError(t, err)
	assert.NotContains(t, a.String(), "pw123")
	assert.NotContains(t, a.String(), "SECRETKEY")
}
