// Package config provides 12-factor configuration for the WebDesk kernel host.
//
// Configuration is loaded from environment variables with defaults. An
// optional TOML file may overlay the environment, and CLI flags override both.
//
// Configuration Sections:
//   - Remote: RPC envelope endpoint, timeouts, retry, circuit breaker
//   - Storage: local persisted store directory and compression
//   - Kernel: debug flag, filesystem backend choice, locale, boot timeout
//   - Workspace: workspace size and window geometry limits
//   - Sandbox: external module execution limits
//   - Inspector: debug HTTP API listen address and rate limit
//   - Logging: log level and output format
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	fmt.Printf("Remote services at %s\n", cfg.Remote.BaseURL)
//
// Environment Variables:
//   - WEBDESK_REMOTE_URL, WEBDESK_ENDPOINT_PATTERN, WEBDESK_REMOTE_TIMEOUT
//   - WEBDESK_STORAGE_DIR, WEBDESK_STORAGE_COMPRESS
//   - WEBDESK_DEBUG, WEBDESK_REMOTE_FS, WEBDESK_LOCALE
//   - WEBDESK_WORKSPACE_WIDTH, WEBDESK_WORKSPACE_HEIGHT
//   - WEBDESK_INSPECTOR, WEBDESK_INSPECTOR_HOST, WEBDESK_INSPECTOR_PORT
//   - LOG_LEVEL, LOG_DEV
package config
