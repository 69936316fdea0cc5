package core

import (
	"context"
	"fmt"
	"maps"

	"github.com/hupe1980/bizagent/logging"
)

// ToolContext provides a constrained surface for tool implementations invoked
// by an agent. It accumulates EventActions (state deltas, artifact versions,
// summarization hints) without mutating the session until the function
// response event is emitted.
type ToolContext struct {
	runCtx         *RunContext
	functionCallID string
	agentInfo      AgentInfo
	eventActions   EventActions

	*scopedLogger
}

// NewToolContext constructs a tool context bound to a parent RunContext
// and a functionCallID.
func NewToolContext(runCtx *RunContext, functionCallID string) *ToolContext {
	return &ToolContext{
		runCtx:         runCtx,
		functionCallID: functionCallID,
		agentInfo:      runCtx.Agent,
		eventActions:   EventActions{},
		scopedLogger:   runCtx.scopedLogger.with("fc_id", functionCallID),
	}
}

// Context returns the context associated with the tool invocation.
func (tc *ToolContext) Context() context.Context { return tc.runCtx.Context }

// SessionID returns the session ID associated with the tool invocation.
func (tc *ToolContext) SessionID() string { return tc.runCtx.SessionID }

// RunID returns the run ID associated with the tool invocation.
func (tc *ToolContext) RunID() string { return tc.runCtx.RunID }

// Logger returns the logger associated with the tool invocation.
func (tc *ToolContext) Logger() logging.Logger { return tc.scopedLogger.Logger() }

// FunctionCallID returns the function call ID associated with the tool invocation.
func (tc *ToolContext) FunctionCallID() string { return tc.functionCallID }

// AgentName returns the agent name associated with the tool invocation.
func (tc *ToolContext) AgentName() string { return tc.agentInfo.Name }

// GetState retrieves the state associated with the given key.
func (tc *ToolContext) GetState(k string) (any, bool) {
	if v, ok := tc.eventActions.StateDelta[k]; ok {
		return v, true
	}
	return tc.runCtx.GetState(k)
}

// SetState records a state mutation in the local EventActions delta.
func (tc *ToolContext) SetState(k string, v any) {
	if tc.eventActions.StateDelta == nil {
		tc.eventActions.StateDelta = map[string]any{}
	}

	tc.eventActions.StateDelta[k] = v
}

// Actions returns the event actions accumulated in the tool context.
func (tc *ToolContext) Actions() *EventActions { return &tc.eventActions }

// SkipSummarization marks the function response as the final answer of the
// turn; the model is not called again.
func (tc *ToolContext) SkipSummarization() {
	b := true
	tc.eventActions.SkipSummarization = &b
}

// SaveArtifact persists artifact bytes and records the new version for emission.
func (tc *ToolContext) SaveArtifact(name string, data []byte) (int, error) {
	if tc.runCtx.ArtifactStore == nil {
		return 0, fmt.Errorf("artifact store not configured")
	}

	version, err := tc.runCtx.ArtifactStore.Save(tc.SessionID(), name, data)
	if err != nil {
		return 0, err
	}

	if tc.eventActions.ArtifactDelta == nil {
		tc.eventActions.ArtifactDelta = map[string]int{}
	}

	tc.eventActions.ArtifactDelta[name] = version

	tc.LogDebug("tool.artifact.saved", "name", name, "version", version, "function_call_id", tc.functionCallID)

	return version, nil
}

// LoadArtifact returns the latest version of a session artifact.
func (tc *ToolContext) LoadArtifact(name string) ([]byte, error) {
	return tc.runCtx.GetArtifact(name)
}

// ApplyActions merges accumulated EventActions into the provided event.
func (tc *ToolContext) ApplyActions(ev *Event) {
	if len(tc.eventActions.StateDelta) > 0 {
		if ev.Actions.StateDelta == nil {
			ev.Actions.StateDelta = map[string]any{}
		}
		maps.Copy(ev.Actions.StateDelta, tc.eventActions.StateDelta)
	}

	if len(tc.eventActions.ArtifactDelta) > 0 {
		if ev.Actions.ArtifactDelta == nil {
			ev.Actions.ArtifactDelta = map[string]int{}
		}
		maps.Copy(ev.Actions.ArtifactDelta, tc.eventActions.ArtifactDelta)
	}

	if tc.eventActions.SkipSummarization != nil {
		ev.Actions.SkipSummarization = tc.eventActions.SkipSummarization
	}
}
