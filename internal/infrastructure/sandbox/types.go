package sandbox

import (
	"time"

	"github.com/GriffinCanCode/WebDesk/internal/infrastructure/config"
)

// Config defines sandbox configuration
type Config struct {
	Timeout       time.Duration // Per-evaluation timeout
	EnableConsole bool          // Allow console.log/warn/error
	MaxCallStack  int           // Maximum call stack depth
}

// LogEntry represents console output
type LogEntry struct {
	Level   string    // log, info, warn, error
	Message string    // Log message
	Time    time.Time // Timestamp
}

// Bridge is the host surface exposed to a module as the global "app".
// Values are converted with goja's reflection rules, so Go funcs become
// callable JavaScript functions.
type Bridge map[string]interface{}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		Timeout:       5 * time.Second,
		EnableConsole: true,
		MaxCallStack:  1024,
	}
}

// FromConfig builds a sandbox configuration from the loaded settings
func FromConfig(cfg config.SandboxConfig) Config {
	c := DefaultConfig()
	if cfg.Timeout > 0 {
		c.Timeout = cfg.Timeout
	}
	c.EnableConsole = cfg.EnableConsole
	return c
}
