// Package logger provides structured logging for callguard using zerolog.
//
// It supports JSON and console output, log level configuration, and
// component-scoped loggers with structured fields.
//
// # Configuration
//
//	logging:
//	  level: "info"
//	  format: "json"
//
// # Usage
//
//	log := logger.Get("resilience")
//	log.Warn("circuit opened", logger.Fields(logger.FieldCircuit, "payments"))
package logger
