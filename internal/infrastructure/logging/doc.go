// Package logging provides structured logging for the garage bridge.
//
// This package wraps Go's standard log/slog package so every component
// logs with the same format and default fields.
//
// # Configuration
//
// Logging is configured via the LoggingConfig in config.yaml:
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// # Usage
//
//	logger := logging.New(cfg.Logging, "1.0.0")
//	logger.Info("push listener started", "port", 2000)
//	logger.Error("command failed", "error", err)
//
// # Security
//
// Never log device credentials or the HomeKit setup code.
package logging
