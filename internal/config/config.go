// internal/config/config.go
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds the entire application configuration.
type Config struct {
	Logger      LoggerConfig      `mapstructure:"logger" yaml:"logger"`
	Provisioner ProvisionerConfig `mapstructure:"provisioner" yaml:"provisioner"`
	Browser     BrowserConfig     `mapstructure:"browser" yaml:"browser"`
	Pacing      PacingConfig      `mapstructure:"pacing" yaml:"pacing"`
	Flow        FlowConfig        `mapstructure:"flow" yaml:"flow"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"`
	AddSource   bool   `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int    `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int    `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool   `mapstructure:"compress" yaml:"compress"`
}

// ProvisionerConfig configures the remote browser-profile provisioning API.
type ProvisionerConfig struct {
	APIURL string `mapstructure:"api_url" yaml:"api_url"`
	// Token is never persisted to the config file; it comes from the
	// environment or a CLI flag.
	Token          string        `mapstructure:"token" yaml:"-"`
	ProfileOS      string        `mapstructure:"profile_os" yaml:"profile_os"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"`
	// RateLimitRPS throttles API calls; the provisioning service rejects bursts.
	RateLimitRPS float64 `mapstructure:"rate_limit_rps" yaml:"rate_limit_rps"`
	RateBurst    int     `mapstructure:"rate_burst" yaml:"rate_burst"`
	// CleanupOnFailure tears down a provisioned profile when the run fails
	// or is cancelled after provisioning. Successful runs keep the profile.
	CleanupOnFailure bool `mapstructure:"cleanup_on_failure" yaml:"cleanup_on_failure"`
}

// BrowserConfig holds settings for attaching to the remote browser.
type BrowserConfig struct {
	AttachTimeout    time.Duration `mapstructure:"attach_timeout" yaml:"attach_timeout"`
	NetworkIdleQuiet time.Duration `mapstructure:"network_idle_quiet" yaml:"network_idle_quiet"`
}

// PacingConfig tunes the humanized interaction delays. All ranges are
// uniform draws over [min, max].
type PacingConfig struct {
	Enabled       bool          `mapstructure:"enabled" yaml:"enabled"`
	KeyDelayMin   time.Duration `mapstructure:"key_delay_min" yaml:"key_delay_min"`
	KeyDelayMax   time.Duration `mapstructure:"key_delay_max" yaml:"key_delay_max"`
	TypeSettleMin time.Duration `mapstructure:"type_settle_min" yaml:"type_settle_min"`
	TypeSettleMax time.Duration `mapstructure:"type_settle_max" yaml:"type_settle_max"`
	HoverPauseMin time.Duration `mapstructure:"hover_pause_min" yaml:"hover_pause_min"`
	HoverPauseMax time.Duration `mapstructure:"hover_pause_max" yaml:"hover_pause_max"`
	ClickHoldMin  time.Duration `mapstructure:"click_hold_min" yaml:"click_hold_min"`
	ClickHoldMax  time.Duration `mapstructure:"click_hold_max" yaml:"click_hold_max"`
	StepDelayMin  time.Duration `mapstructure:"step_delay_min" yaml:"step_delay_min"`
	StepDelayMax  time.Duration `mapstructure:"step_delay_max" yaml:"step_delay_max"`
	SettleMin     time.Duration `mapstructure:"settle_min" yaml:"settle_min"`
	SettleMax     time.Duration `mapstructure:"settle_max" yaml:"settle_max"`
}

// FlowConfig holds the deadlines and retry budgets of the two sequencers.
type FlowConfig struct {
	RunTimeout          time.Duration `mapstructure:"run_timeout" yaml:"run_timeout"`
	NavigationTimeout   time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
	ReadyTimeout        time.Duration `mapstructure:"ready_timeout" yaml:"ready_timeout"`
	DialogTimeout       time.Duration `mapstructure:"dialog_timeout" yaml:"dialog_timeout"`
	AvailabilityTimeout time.Duration `mapstructure:"availability_timeout" yaml:"availability_timeout"`
	AvailabilityPoll    time.Duration `mapstructure:"availability_poll" yaml:"availability_poll"`
	NameSettle          time.Duration `mapstructure:"name_settle" yaml:"name_settle"`
	ClickRetryAttempts  int           `mapstructure:"click_retry_attempts" yaml:"click_retry_attempts"`
	EventBuffer         int           `mapstructure:"event_buffer" yaml:"event_buffer"`
}

// SetDefaults initializes default values for all configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "renamer-cli")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)

	// -- Provisioner --
	v.SetDefault("provisioner.api_url", "https://api.gologin.com")
	v.SetDefault("provisioner.profile_os", "win")
	v.SetDefault("provisioner.request_timeout", "15s")
	v.SetDefault("provisioner.rate_limit_rps", 1.0)
	v.SetDefault("provisioner.rate_burst", 3)
	v.SetDefault("provisioner.cleanup_on_failure", true)

	// -- Browser --
	v.SetDefault("browser.attach_timeout", "30s")
	v.SetDefault("browser.network_idle_quiet", "500ms")

	// -- Pacing --
	v.SetDefault("pacing.enabled", true)
	v.SetDefault("pacing.key_delay_min", "110ms")
	v.SetDefault("pacing.key_delay_max", "220ms")
	v.SetDefault("pacing.type_settle_min", "600ms")
	v.SetDefault("pacing.type_settle_max", "1200ms")
	v.SetDefault("pacing.hover_pause_min", "600ms")
	v.SetDefault("pacing.hover_pause_max", "1100ms")
	v.SetDefault("pacing.click_hold_min", "90ms")
	v.SetDefault("pacing.click_hold_max", "160ms")
	v.SetDefault("pacing.step_delay_min", "1200ms")
	v.SetDefault("pacing.step_delay_max", "2800ms")
	v.SetDefault("pacing.settle_min", "2200ms")
	v.SetDefault("pacing.settle_max", "4200ms")

	// -- Flow --
	v.SetDefault("flow.run_timeout", "10m")
	v.SetDefault("flow.navigation_timeout", "35s")
	v.SetDefault("flow.ready_timeout", "10s")
	v.SetDefault("flow.dialog_timeout", "12s")
	v.SetDefault("flow.availability_timeout", "35s")
	v.SetDefault("flow.availability_poll", "600ms")
	v.SetDefault("flow.name_settle", "800ms")
	v.SetDefault("flow.click_retry_attempts", 5)
	v.SetDefault("flow.event_buffer", 32)
}

// NewDefaultConfig creates a configuration populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// This should not happen with defaults, but good to be safe.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// NewConfigFromViper creates a configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	// Bind environment variables for sensitive data.
	v.BindEnv("provisioner.token", "RENAMER_PROVISIONER_TOKEN")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if c.Provisioner.APIURL == "" {
		return fmt.Errorf("provisioner.api_url is required")
	}
	if c.Provisioner.RequestTimeout <= 0 {
		return fmt.Errorf("provisioner.request_timeout must be a positive duration")
	}
	if c.Provisioner.RateLimitRPS <= 0 {
		return fmt.Errorf("provisioner.rate_limit_rps must be positive")
	}
	if err := c.Pacing.validate(); err != nil {
		return fmt.Errorf("pacing configuration invalid: %w", err)
	}
	if err := c.Flow.validate(); err != nil {
		return fmt.Errorf("flow configuration invalid: %w", err)
	}
	return nil
}

func (p *PacingConfig) validate() error {
	ranges := []struct {
		name     string
		min, max time.Duration
	}{
		{"key_delay", p.KeyDelayMin, p.KeyDelayMax},
		{"type_settle", p.TypeSettleMin, p.TypeSettleMax},
		{"hover_pause", p.HoverPauseMin, p.HoverPauseMax},
		{"click_hold", p.ClickHoldMin, p.ClickHoldMax},
		{"step_delay", p.StepDelayMin, p.StepDelayMax},
		{"settle", p.SettleMin, p.SettleMax},
	}
	for _, r := range ranges {
		if r.min < 0 || r.max < r.min {
			return fmt.Errorf("%s range [%s, %s] is not a valid interval", r.name, r.min, r.max)
		}
	}
	return nil
}

func (f *FlowConfig) validate() error {
	if f.RunTimeout <= 0 {
		return fmt.Errorf("run_timeout must be a positive duration")
	}
	if f.NavigationTimeout <= 0 || f.DialogTimeout <= 0 || f.ReadyTimeout <= 0 {
		return fmt.Errorf("sequencer deadlines must be positive durations")
	}
	if f.AvailabilityPoll <= 0 || f.AvailabilityTimeout < f.AvailabilityPoll {
		return fmt.Errorf("availability_timeout must be at least one availability_poll interval")
	}
	if f.ClickRetryAttempts < 1 {
		return fmt.Errorf("click_retry_attempts must be at least 1")
	}
	return nil
}
