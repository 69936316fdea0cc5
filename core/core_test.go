package core

import (
	"context"
	"reflect"
	"testing"
)

type recordedLog struct {
	level string
	msg   string
	args  []any
}

type recordingLogger struct{ logs []recordedLog }

func (r *recordingLogger) Debug(msg string, args ...any) { r.add("debug", msg, args) }
func (r *recordingLogger) Info(msg string, args ...any)  { r.add("info", msg, args) }
func (r *recordingLogger) Warn(msg string, args ...any)  { r.add("warn", msg, args) }
func (r *recordingLogger) Error(msg string, args ...any) { r.add("error", msg, args) }

func (r *recordingLogger) add(level, msg string, args []any) {
	r.logs = append(r.logs, recordedLog{level: level, msg: msg, args: args})
}

func TestScopedLogger_RunAndToolFields(t *testing.T) {
	rec := &recordingLogger{}
	sess := NewSession("sess-1", "app", "user")
	rc := NewRunContext(context.Background(), sess, "run-1", AgentInfo{Name: "a"}, Content{}, nil, RunContextOptions{Logger: rec})

	rc.LogInfo("flow.step", "step", 1)
	NewToolContext(rc, "fc-9").LogError("tool.failed", "tool", "list_tasks")

	want := []recordedLog{
		{level: "info", msg: "flow.step", args: []any{"run", "run-1", "session", "sess-1", "step", 1}},
		{level: "error", msg: "tool.failed", args: []any{"run", "run-1", "session", "sess-1", "fc_id", "fc-9", "tool", "list_tasks"}},
	}
	if !reflect.DeepEqual(rec.logs, want) {
		t.Fatalf("logs = %+v, want %+v", rec.logs, want)
	}

	if rc.Logger() != rec {
		t.Error("Logger should return the unscoped logger")
	}
}

func TestScopedLogger_NilLogger(t *testing.T) {
	l := newScopedLogger(nil, "run", "r")
	l.LogDebug("ignored")
	l.with("fc_id", "x").LogWarn("ignored")

	var zero *scopedLogger
	zero.with("fc_id", "x").LogInfo("ignored")
}
