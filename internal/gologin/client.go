// internal/gologin/client.go

// Package gologin is a minimal client for the GoLogin-compatible
// browser-profile provisioning API. It creates a profile bound to a proxy,
// starts it in the provider's cloud, and returns the debugger address the
// automation driver attaches to.
package gologin

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/xkilldash9x/renamer-cli/internal/config"
	"github.com/xkilldash9x/renamer-cli/internal/events"
	"github.com/xkilldash9x/renamer-cli/internal/input"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Sentinel causes for provisioning failures, wrapped inside the classified
// error surfaced to the caller.
var (
	ErrCredentialsRejected = errors.New("provisioner rejected the API token")
	ErrUnreachable         = errors.New("provisioner unreachable")
)

// Client talks to the provisioning API. All calls share a rate limiter; the
// service rejects bursts well below normal HTTP limits.
type Client struct {
	baseURL string
	token   string
	os      string
	http    *http.Client
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewClient builds a provisioner client from configuration.
func NewClient(cfg config.ProvisionerConfig, logger *zap.Logger) *Client {
	return &Client{
		baseURL: cfg.APIURL,
		token:   cfg.Token,
		os:      cfg.ProfileOS,
		http:    &http.Client{Timeout: cfg.RequestTimeout},
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateBurst),
		logger:  logger.Named("gologin"),
	}
}

// -- wire types --

type proxyBody struct {
	Mode     string `json:"mode"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type createProfileBody struct {
	Name         string    `json:"name"`
	OS           string    `json:"os"`
	ProxyEnabled bool      `json:"proxyEnabled"`
	Proxy        proxyBody `json:"proxy"`
}

type createProfileResponse struct {
	ID string `json:"id"`
}

type startProfileResponse struct {
	Status string `json:"status"`
	WSURL  string `json:"wsUrl"`
}

// CreateProfile registers a new browser profile bound to the given proxy and
// returns its ID.
func (c *Client) CreateProfile(ctx context.Context, name string, proxy input.ProxyConfig) (string, error) {
	body := createProfileBody{
		Name:         name,
		OS:           c.os,
		ProxyEnabled: true,
		Proxy: proxyBody{
			Mode:     "socks5",
			Host:     proxy.Host,
			Port:     proxy.Port,
			Username: proxy.Username,
			Password: proxy.Password,
		},
	}

	var resp createProfileResponse
	if err := c.do(ctx, http.MethodPost, "/browser", body, &resp); err != nil {
		return "", err
	}
	if resp.ID == "" {
		return "", events.Classified(events.FailureProvisioning,
			"profile creation returned no id", ErrUnreachable)
	}

	c.logger.Info("Profile created", zap.String("profile_id", resp.ID))
	return resp.ID, nil
}

// StartProfile launches the profile in the provider's cloud and returns the
// debugger address to attach the automation driver to.
func (c *Client) StartProfile(ctx context.Context, profileID string) (string, error) {
	var resp startProfileResponse
	path := fmt.Sprintf("/browser/%s/web", profileID)
	if err := c.do(ctx, http.MethodPost, path, nil, &resp); err != nil {
		return "", err
	}
	if resp.WSURL == "" {
		return "", events.Classified(events.FailureProvisioning,
			"profile start returned no debugger address", ErrUnreachable)
	}

	c.logger.Info("Profile started", zap.String("profile_id", profileID))
	return resp.WSURL, nil
}

// DeleteProfile tears down a provisioned profile.
func (c *Client) DeleteProfile(ctx context.Context, profileID string) error {
	path := fmt.Sprintf("/browser/%s", profileID)
	if err := c.do(ctx, http.MethodDelete, path, nil, nil); err != nil {
		return err
	}
	c.logger.Info("Profile deleted", zap.String("profile_id", profileID))
	return nil
}

// do performs one rate-limited, authenticated API call and decodes the
// response into out (when out is non-nil).
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return events.Classified(events.FailureProvisioning, "rate limit wait aborted", err)
	}

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return events.Classified(events.FailureProvisioning,
			fmt.Sprintf("%s %s failed", method, path), fmt.Errorf("%w: %v", ErrUnreachable, err))
	}
	defer resp.Body.Close()

	c.logger.Debug("Provisioner API call",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)))

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return events.Classified(events.FailureProvisioning,
			fmt.Sprintf("%s %s returned %d", method, path, resp.StatusCode), ErrCredentialsRejected)
	case resp.StatusCode >= 400:
		return events.Classified(events.FailureProvisioning,
			fmt.Sprintf("%s %s returned %d", method, path, resp.StatusCode), ErrUnreachable)
	}

	if out == nil {
		return nil
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return events.Classified(events.FailureProvisioning, "reading response body", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return events.Classified(events.FailureProvisioning, "decoding response body", err)
	}
	return nil
}
