// Package logging provides structured logging for the tunnel coordination hub.
//
// It wraps Go's standard log/slog package so every component logs with the
// same handler, default fields (service, version) and level filtering.
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
//	logger.Info("starting hub", "port", 8080)
//	logger.Error("failed to open database", "error", err)
//
// Never log tokens or credentials.
package logging
