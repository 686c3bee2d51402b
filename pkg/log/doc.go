// Package log provides the structured logging system used by wristd
// components.
//
// Loggers are constructed explicitly and passed by dependency injection;
// there is no package-level default. The Field-based API is preferred:
//
//	logger := log.NewLogger(log.WithLevel(log.InfoLevel))
//	logger = logger.With(log.Component("delta"))
//	logger.Info("waiter registered", log.Str("watch_id", id), log.Uint64("since", cur))
//
// Formatters (text and JSON) and outputs are pluggable. RedirectStdLog routes
// standard library log output (used by Pebble) through a Logger.
package log
