// Package logging provides structured diagnostic logging for defmt-print.
//
// This package wraps a zap logger with convenience functions for the logging
// patterns used throughout the decoder and its transports. It is for the
// tool's own diagnostics; decoded device frames are printed by the output
// package, never through this logger.
//
// # Log Levels
//
// The package supports standard log levels:
//   - Debug: Detailed debugging info (hex dumps, symbol scanning, framing)
//   - Info: Normal operations (table loaded, source connected)
//   - Warn: Non-fatal issues (incomplete locations, skipped frames)
//   - Error: Fatal issues (decode failures, transport errors)
//
// # Silent By Default
//
// Logging is disabled unless a level is passed to Initialize or the
// DEFMT_LOG_LEVEL environment variable is set, so the decoded log stream on
// stdout stays clean.
//
//	if err := logging.Initialize("debug"); err != nil {
//	    log.Fatal(err)
//	}
//	defer logging.Sync()
//
// # Output Format
//
// Logs are written to stderr in console format:
//
//	2025-11-25T10:30:45.123-0800  INFO  Table loaded  {"entries": 42, "version": "0.3.0"}
//
// # Thread Safety
//
// All logging functions are safe for concurrent use. The underlying zap logger
// handles synchronization automatically.
package logging
