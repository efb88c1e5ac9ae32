// Package logger provides structured logging for httpkit using zerolog.
//
// Loggers are component-scoped: the client core, each backend and the
// logging interceptor obtain their own tagged logger through Get or
// WithComponent, so log lines can be filtered per component.
//
// # Configuration
//
//	logger:
//	  level: "debug"
//	  format: "json"
//
// # Usage
//
//	log := logger.Get("nethttp")
//	log.Debug("transport built", logger.Fields("proxy", addr))
package logger
