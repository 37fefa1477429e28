// Package logger provides structured logging capabilities.
//
// The logger package sets up and configures the application's logging
// system using zap, providing structured, high-performance logging
// throughout the application. Execution-scoped loggers carry the
// execution id and language on every entry.
//
// Usage:
//
//	log, err := logger.New("production", "info")
//	if err != nil {
//	    panic(err)
//	}
//	logger.ForExecution(log, id, "python").Info("container started")
package logger
