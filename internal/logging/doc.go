// Package logging provides file-based JSON logging with rotation for og.
// Logs are written to a rotating file under ~/.og/logs/ (see DefaultLogPath),
// optionally teed to stderr. The og CLI sets it up before every command with
// stderr output off, at info level, or at debug level with --verbose.
package logging
