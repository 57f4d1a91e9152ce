// Package logger provides structured logging utilities built on Go's standard slog package.
//
// New builds a *slog.Logger from functional options, and the attribute helpers
// give queue components consistent keys for the values they log.
//
// # Basic Usage
//
//	import "github.com/dmitrymomot/tailqueue/core/logger"
//
//	// Development: text format, debug level
//	log := logger.New(logger.WithDevelopment("subscriber"))
//
//	// Production: JSON format, info level
//	log := logger.New(
//		logger.WithProduction("subscriber"),
//		logger.WithOutput(os.Stderr),
//	)
//
// # Attribute Helpers
//
// Helpers return an empty slog.Attr for nil or empty input, which slog drops,
// so they can be passed unconditionally:
//
//	log.Warn("failed to save position",
//		logger.Queue("ExampleMessage"),
//		logger.Position(pos),
//		logger.Error(err),
//	)
//
//	log.Debug("message received",
//		logger.Position(env.ID),
//		logger.Latency(time.Since(env.EnqueuedAt)),
//	)
//
// # Testing with Custom Output
//
//	var buf bytes.Buffer
//	log := logger.New(logger.WithJSONFormatter(), logger.WithOutput(&buf))
//	log.Info("Test message", logger.Component("test"))
//	assert.Contains(t, buf.String(), `"component":"test"`)
package logger
