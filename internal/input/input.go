// internal/input/input.go
package input

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/xkilldash9x/renamer-cli/internal/events"
)

// ProxyConfig is the outbound proxy the browser profile is bound to.
// Parsed once from the "host:port:user:pass" input form; immutable afterwards.
type ProxyConfig struct {
	Host     string
	Port     int
	Username string
	Password string
}

// String renders the proxy with the password redacted so it can be logged.
func (p ProxyConfig) String() string {
	return fmt.Sprintf("%s:%d:%s:****", p.Host, p.Port, p.Username)
}

// AccountCredentials holds the target account and the desired new username.
// Parsed once from the "new|current|password|totp_secret" input form.
type AccountCredentials struct {
	NewUsername     string
	CurrentUsername string
	Password        string
	TOTPSecret      string
}

// String renders the credentials with secrets redacted.
func (a AccountCredentials) String() string {
	return fmt.Sprintf("%s -> %s", a.CurrentUsername, a.NewUsername)
}

// ParseProxy parses a "host:port:user:pass" proxy string. It either returns
// a fully populated ProxyConfig or an input-format error; never a partial
// record.
func ParseProxy(s string) (ProxyConfig, error) {
	parts := strings.SplitN(s, ":", 4)
	if len(parts) != 4 {
		return ProxyConfig{}, events.Classifiedf(events.FailureInputFormat,
			"proxy must be host:port:user:pass, got %d field(s)", len(parts))
	}

	port, err := strconv.Atoi(parts[1])
	if err != nil {
		return ProxyConfig{}, events.Classified(events.FailureInputFormat,
			"proxy port must be numeric", err)
	}

	return ProxyConfig{
		Host:     parts[0],
		Port:     port,
		Username: parts[2],
		Password: parts[3],
	}, nil
}

// ParseAccount parses a "newusername|currentusername|password|totp_secret"
// account string. Every field is trimmed and must be non-empty.
func ParseAccount(s string) (AccountCredentials, error) {
	parts := strings.SplitN(s, "|", 4)
	if len(parts) != 4 {
		return AccountCredentials{}, events.Classifiedf(events.FailureInputFormat,
			"account must be newusername|currentusername|password|totp_secret, got %d field(s)", len(parts))
	}

	for i, part := range parts {
		parts[i] = strings.TrimSpace(part)
		if parts[i] == "" {
			return AccountCredentials{}, events.Classifiedf(events.FailureInputFormat,
				"account field %d is empty after trimming", i+1)
		}
	}

	return AccountCredentials{
		NewUsername:     parts[0],
		CurrentUsername: parts[1],
		Password:        parts[2],
		TOTPSecret:      parts[3],
	}, nil
}
