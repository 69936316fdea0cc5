// Package logging provides a minimal logging interface and adapters.
//
// The Logger interface defines the logging methods (Debug, Info, Warn, Error)
// that the runner, flow and tools use for observability. This package includes:
//
//   - Logger interface for dependency injection
//   - SlogAdapter wrapping Go's structured logging
//   - NoOpLogger for silent operation (tests, minimal setups)
//
// Usage:
//
//	logger := logging.New(&logging.Config{Level: logging.LogLevelInfo, Format: "json"})
//	r := runner.New("invoice_extractor_agent", agent, runner.WithLogger(logger))
//
// Message keys are dotted event names ("tool.call.start", "run.failed") with
// structured key/value attributes.
package logging
