// Package logging provides structured logging for the dimmer.
//
// This package wraps Go's standard log/slog package so every component logs
// with the same handler, level filter and default fields.
//
// # Configuration
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// # Usage
//
//	logger := logging.New(cfg.Logging, "1.0.0")
//	logger.Component("session").Info("subscribed", "topic", topic)
//
// Never log broker passwords or the InfluxDB token.
package logging
