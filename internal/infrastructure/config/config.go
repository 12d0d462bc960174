package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/pelletier/go-toml/v2"
)

// Config holds all kernel host configuration
type Config struct {
	Remote    RemoteConfig    `toml:"remote"`
	Storage   StorageConfig   `toml:"storage"`
	Kernel    KernelConfig    `toml:"kernel"`
	Workspace WorkspaceConfig `toml:"workspace"`
	Sandbox   SandboxConfig   `toml:"sandbox"`
	Inspector InspectorConfig `toml:"inspector"`
	Logging   LogConfig       `toml:"logging"`
}

// RemoteConfig holds the RPC envelope endpoint settings
type RemoteConfig struct {
	BaseURL         string        `envconfig:"WEBDESK_REMOTE_URL" default:"http://localhost:8080/api" toml:"base_url"`
	EndpointPattern string        `envconfig:"WEBDESK_ENDPOINT_PATTERN" default:"%s/%s" toml:"endpoint_pattern"`
	Timeout         time.Duration `envconfig:"WEBDESK_REMOTE_TIMEOUT" default:"15s" toml:"timeout"`
	RetryMax        int           `envconfig:"WEBDESK_REMOTE_RETRY_MAX" default:"2" toml:"retry_max"`
	RateLimitRPS    float64       `envconfig:"WEBDESK_REMOTE_RPS" default:"0" toml:"rate_limit_rps"`
	BreakerFailures int           `envconfig:"WEBDESK_BREAKER_FAILURES" default:"5" toml:"breaker_failures"`
	BreakerCooldown time.Duration `envconfig:"WEBDESK_BREAKER_COOLDOWN" default:"30s" toml:"breaker_cooldown"`
}

// StorageConfig holds the local persisted store settings
type StorageConfig struct {
	Dir      string `envconfig:"WEBDESK_STORAGE_DIR" default:"" toml:"dir"`
	Compress bool   `envconfig:"WEBDESK_STORAGE_COMPRESS" default:"false" toml:"compress"`
}

// KernelConfig holds boot behaviour
type KernelConfig struct {
	Debug               bool          `envconfig:"WEBDESK_DEBUG" default:"false" toml:"debug"`
	UseRemoteFilesystem bool          `envconfig:"WEBDESK_REMOTE_FS" default:"false" toml:"use_remote_filesystem"`
	Locale              string        `envconfig:"WEBDESK_LOCALE" default:"en" toml:"locale"`
	BootTimeout         time.Duration `envconfig:"WEBDESK_BOOT_TIMEOUT" default:"30s" toml:"boot_timeout"`
	CallTimeout         time.Duration `envconfig:"WEBDESK_CALL_TIMEOUT" default:"10s" toml:"call_timeout"`
}

// WorkspaceConfig holds window geometry limits
type WorkspaceConfig struct {
	Width         int `envconfig:"WEBDESK_WORKSPACE_WIDTH" default:"1280" toml:"width"`
	Height        int `envconfig:"WEBDESK_WORKSPACE_HEIGHT" default:"720" toml:"height"`
	VisibleMargin int `envconfig:"WEBDESK_VISIBLE_MARGIN" default:"50" toml:"visible_margin"`
	MinWidth      int `envconfig:"WEBDESK_MIN_WINDOW_WIDTH" default:"200" toml:"min_width"`
	MinHeight     int `envconfig:"WEBDESK_MIN_WINDOW_HEIGHT" default:"150" toml:"min_height"`
	DefaultWidth  int `envconfig:"WEBDESK_DEFAULT_WINDOW_WIDTH" default:"640" toml:"default_width"`
	DefaultHeight int `envconfig:"WEBDESK_DEFAULT_WINDOW_HEIGHT" default:"480" toml:"default_height"`
}

// SandboxConfig holds external module execution limits
type SandboxConfig struct {
	Timeout       time.Duration `envconfig:"WEBDESK_SANDBOX_TIMEOUT" default:"5s" toml:"timeout"`
	EnableConsole bool          `envconfig:"WEBDESK_SANDBOX_CONSOLE" default:"true" toml:"enable_console"`
}

// InspectorConfig holds the debug HTTP API settings
type InspectorConfig struct {
	Enabled   bool   `envconfig:"WEBDESK_INSPECTOR" default:"true" toml:"enabled"`
	Host      string `envconfig:"WEBDESK_INSPECTOR_HOST" default:"127.0.0.1" toml:"host"`
	Port      string `envconfig:"WEBDESK_INSPECTOR_PORT" default:"7070" toml:"port"`
	RateLimit int    `envconfig:"WEBDESK_INSPECTOR_RPS" default:"50" toml:"rate_limit"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info" toml:"level"`
	Development bool   `envconfig:"LOG_DEV" default:"false" toml:"development"`
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadFile loads environment configuration and overlays the TOML file at
// path. Keys present in the file take precedence over the environment.
func LoadFile(path string) (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Validate checks cross-field constraints
func (c *Config) Validate() error {
	if c.Remote.BaseURL == "" {
		return fmt.Errorf("remote base URL is required")
	}
	w := c.Workspace
	if w.Width <= 0 || w.Height <= 0 {
		return fmt.Errorf("workspace size must be positive, got %dx%d", w.Width, w.Height)
	}
	if w.MinWidth <= 0 || w.MinHeight <= 0 {
		return fmt.Errorf("minimum window size must be positive")
	}
	if w.VisibleMargin < 0 || w.VisibleMargin > w.Width || w.VisibleMargin > w.Height {
		return fmt.Errorf("visible margin %d out of range", w.VisibleMargin)
	}
	return nil
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Remote: RemoteConfig{
			BaseURL:         "http://localhost:8080/api",
			EndpointPattern: "%s/%s",
			Timeout:         15 * time.Second,
			RetryMax:        2,
			BreakerFailures: 5,
			BreakerCooldown: 30 * time.Second,
		},
		Kernel: KernelConfig{
			Locale:      "en",
			BootTimeout: 30 * time.Second,
			CallTimeout: 10 * time.Second,
		},
		Workspace: WorkspaceConfig{
			Width:         1280,
			Height:        720,
			VisibleMargin: 50,
			MinWidth:      200,
			MinHeight:     150,
			DefaultWidth:  640,
			DefaultHeight: 480,
		},
		Sandbox: SandboxConfig{
			Timeout:       5 * time.Second,
			EnableConsole: true,
		},
		Inspector: InspectorConfig{
			Enabled:   true,
			Host:      "127.0.0.1",
			Port:      "7070",
			RateLimit: 50,
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
	}
}
