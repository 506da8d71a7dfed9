// Package logger provides structured logging for pusharc built on zerolog.
//
// A single global logger is initialized from the logging section of the
// configuration and shared across the application. Console output is
// human-formatted; an optional log file receives the same events as JSON.
// Tests use NewTestLogger, which captures messages for assertions instead
// of writing them anywhere.
package logger
