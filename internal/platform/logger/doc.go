// Package logger configures the process-wide structured logger: JSON output
// on stdout via log/slog with the level taken from server configuration.
package logger
