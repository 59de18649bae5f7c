// Package logging provides structured logging for the lutbox server.
//
// This package wraps zap logger with convenience functions for common logging
// patterns used throughout the server. It provides both general logging
// functions and specialized functions for pipeline-specific logging needs.
//
// # Log Levels
//
// The package supports standard log levels:
//   - Debug: Detailed debugging info (framing, decode details, backend calls)
//   - Info: Normal operations (connections, LUT updates, stream lifecycle)
//   - Warn: Non-fatal issues (dropped messages, backend retries)
//   - Error: Fatal issues (startup failures, critical errors)
//
// By default logging is silent; set LUTBOX_LOG_LEVEL or pass an explicit
// level to Initialize to enable output.
//
// # Structured Logging
//
// All log functions use structured fields for queryability:
//
//	logging.Info("Stream created",
//	    zap.String("stream", "vglb-lut-default"),
//	    zap.Int("size", 33),
//	)
//
// # Specialized Logging
//
// The package provides domain-specific logging functions:
//
//	logging.LogConnection(connID, remoteAddr, "connection_accepted")
//	logging.LogLUT(channel, size, channels, streamName)
//	logging.LogMessageDrop(connID, err)
//
// # Thread Safety
//
// All logging functions are safe for concurrent use. The underlying zap
// logger handles synchronization automatically.
package logging
