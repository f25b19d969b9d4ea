// Package logger builds configured log/slog loggers with functional
// options for format, level, output, and static attributes.
//
// # Usage
//
//	log := logger.New(
//	    logger.WithProduction("confirmkit"),
//	    logger.WithAttr(slog.String("version", "1.2.3")),
//	)
//
//	svc, err := confirm.New(store, secret, confirm.WithLogger(log))
//
// Defaults are production-safe: JSON output at info level on stdout.
// WithDevelopment switches to human-readable text output at debug level.
package logger
