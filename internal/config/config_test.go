// internal/config/config_test.go
package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()
	require.NotNil(t, cfg)

	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, "https://api.gologin.com", cfg.Provisioner.APIURL)
	assert.Equal(t, "win", cfg.Provisioner.ProfileOS)
	assert.True(t, cfg.Provisioner.CleanupOnFailure)

	assert.Equal(t, 110*time.Millisecond, cfg.Pacing.KeyDelayMin)
	assert.Equal(t, 220*time.Millisecond, cfg.Pacing.KeyDelayMax)
	assert.Equal(t, 35*time.Second, cfg.Flow.NavigationTimeout)
	assert.Equal(t, 600*time.Millisecond, cfg.Flow.AvailabilityPoll)
	assert.Equal(t, 5, cfg.Flow.ClickRetryAttempts)

	assert.NoError(t, cfg.Validate())
}

func TestNewConfigFromViperOverrides(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	v.Set("flow.navigation_timeout", "10s")
	v.Set("pacing.enabled", false)

	cfg, err := NewConfigFromViper(v)
	require.NoError(t, err)
	assert.Equal(t, 10*time.Second, cfg.Flow.NavigationTimeout)
	assert.False(t, cfg.Pacing.Enabled)
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing api url", func(c *Config) { c.Provisioner.APIURL = "" }},
		{"zero request timeout", func(c *Config) { c.Provisioner.RequestTimeout = 0 }},
		{"inverted pacing range", func(c *Config) { c.Pacing.KeyDelayMax = c.Pacing.KeyDelayMin - time.Millisecond }},
		{"zero run timeout", func(c *Config) { c.Flow.RunTimeout = 0 }},
		{"poll longer than deadline", func(c *Config) { c.Flow.AvailabilityPoll = c.Flow.AvailabilityTimeout + time.Second }},
		{"zero click attempts", func(c *Config) { c.Flow.ClickRetryAttempts = 0 }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
