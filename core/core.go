package core

import "github.com/hupe1980/bizagent/logging"

// scopedLogger is embedded in RunContext and ToolContext. Its Log* methods
// prefix every record with the identifiers of the enclosing run (and, for
// tools, the function call), so flow and tool logs of concurrent sessions
// can be told apart without each call site repeating them.
type scopedLogger struct {
	logger logging.Logger
	scope  []any
}

// newScopedLogger falls back to a NoOpLogger when l is nil. scope holds
// key/value pairs.
func newScopedLogger(l logging.Logger, scope ...any) *scopedLogger {
	if l == nil {
		l = logging.NoOpLogger{}
	}
	return &scopedLogger{logger: l, scope: scope}
}

// with returns a child carrying the parent's scope plus kv.
func (l *scopedLogger) with(kv ...any) *scopedLogger {
	if l == nil {
		return newScopedLogger(nil, kv...)
	}

	scope := make([]any, 0, len(l.scope)+len(kv))
	scope = append(scope, l.scope...)
	return &scopedLogger{logger: l.logger, scope: append(scope, kv...)}
}

// Logger returns the unscoped logger.
func (l *scopedLogger) Logger() logging.Logger { return l.logger }

func (l *scopedLogger) args(kv []any) []any {
	if len(l.scope) == 0 {
		return kv
	}
	out := make([]any, 0, len(l.scope)+len(kv))
	return append(append(out, l.scope...), kv...)
}

func (l *scopedLogger) LogDebug(msg string, kv ...any) { l.logger.Debug(msg, l.args(kv)...) }

func (l *scopedLogger) LogInfo(msg string, kv ...any) { l.logger.Info(msg, l.args(kv)...) }

func (l *scopedLogger) LogWarn(msg string, kv ...any) { l.logger.Warn(msg, l.args(kv)...) }

func (l *scopedLogger) LogError(msg string, kv ...any) { l.logger.Error(msg, l.args(kv)...) }
