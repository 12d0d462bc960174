// Package logging provides structured logging using uber/zap.
//
// Two modes:
//   - Production: JSON output for machine parsing
//   - Development: colored console output
//
// Subsystems receive a *zap.Logger through their constructors and name it
// after themselves, so every line carries a "component" field:
//
//	logger := logging.NewDefault()
//	bus := events.NewBus(logger.Component("events"))
//	logger.Info("Kernel booting", zap.String("base_url", cfg.Remote.BaseURL))
package logging
