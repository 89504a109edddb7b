// Package logging provides structured logging for the spa tools.
//
// This package wraps a global zap logger with convenience functions for the
// logging patterns used by the cloud client, the coordinator and the bridge.
//
// # Log Levels
//
//   - Debug: API requests and responses, raw state snapshots
//   - Info: reauthentication, commands sent, bridge connections
//   - Warn: failed refreshes and commands
//   - Error: startup failures
//
// # Configuration
//
// Logging is silent unless a level is passed to Initialize or the
// BESTWAY_LOG_LEVEL environment variable is set:
//
//	if err := logging.Initialize("debug"); err != nil {
//	    log.Fatal(err)
//	}
//	defer logging.Sync()
//
// Output goes to stderr in console format so that command output on stdout
// stays machine-readable.
//
// # Secrets
//
// App secrets and tokens must pass through Redact before being logged.
package logging
