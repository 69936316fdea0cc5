package core

import (
	"context"
	"fmt"
	"maps"

	"github.com/hupe1980/bizagent/logging"
)

// RunContext carries execution state & helpers for one agent run (one user
// turn). It aggregates:
//   - The ambient cancellation Context
//   - Identifiers (AppName, UserID, SessionID, RunID, Agent info)
//   - Input user Content
//   - The emission channel read by the runner
//   - Backing stores (session, artifact) and a working Session snapshot
//   - A model-call limiter and pending StateDelta / Artifacts to commit
//
// State mutations performed via SetState accumulate in StateDelta until
// EmitEvent attaches them to the next event.
type RunContext struct {
	Context          context.Context
	AppName, UserID  string
	SessionID, RunID string
	Agent            AgentInfo
	UserContent      Content
	Emit             chan<- Event
	SessionStore     SessionStore
	ArtifactStore    ArtifactStore
	Limiter          *ModelLimiter
	Session          *Session
	StateDelta       map[string]any
	Artifacts        map[string]int

	*scopedLogger
}

// RunContextOptions groups the optional collaborators of a RunContext.
type RunContextOptions struct {
	SessionStore  SessionStore
	ArtifactStore ArtifactStore
	MaxModelCalls int
	Logger        logging.Logger
}

// NewRunContext constructs a RunContext with empty state and artifact deltas.
func NewRunContext(
	ctx context.Context,
	sess *Session,
	runID string,
	agent AgentInfo,
	userContent Content,
	emit chan<- Event,
	opts RunContextOptions,
) *RunContext {
	return &RunContext{
		Context:       ctx,
		AppName:       sess.AppName,
		UserID:        sess.UserID,
		SessionID:     sess.ID,
		RunID:         runID,
		Agent:         agent,
		UserContent:   userContent,
		Emit:          emit,
		SessionStore:  opts.SessionStore,
		ArtifactStore: opts.ArtifactStore,
		Limiter:       NewModelLimiter(opts.MaxModelCalls),
		Session:       sess,
		StateDelta:    map[string]any{},
		Artifacts:     map[string]int{},
		scopedLogger:  newScopedLogger(opts.Logger, "run", runID, "session", sess.ID),
	}
}

// Done returns a channel closed when the underlying context is cancelled.
func (rc *RunContext) Done() <-chan struct{} { return rc.Context.Done() }

// Err returns the cancellation error (if any) from the underlying context.
func (rc *RunContext) Err() error { return rc.Context.Err() }

// GetState returns a staged (delta) value if present, else the persisted session value.
func (rc *RunContext) GetState(k string) (any, bool) {
	if v, ok := rc.StateDelta[k]; ok {
		return v, true
	}

	if rc.Session != nil {
		return rc.Session.GetState(k)
	}

	return nil, false
}

// SetState stages a state mutation in the in-memory delta buffer.
func (rc *RunContext) SetState(k string, v any) { rc.StateDelta[k] = v }

// SaveArtifact stores bytes in the ArtifactStore and stages the version for
// the next emitted event.
func (rc *RunContext) SaveArtifact(name string, data []byte) (int, error) {
	if rc.ArtifactStore == nil {
		return 0, fmt.Errorf("artifact store not configured")
	}

	version, err := rc.ArtifactStore.Save(rc.SessionID, name, data)
	if err != nil {
		return 0, err
	}

	rc.Artifacts[name] = version

	return version, nil
}

// GetArtifact retrieves the latest version of a previously saved artifact.
func (rc *RunContext) GetArtifact(name string) ([]byte, error) {
	if rc.ArtifactStore == nil {
		return nil, fmt.Errorf("artifact store not configured")
	}

	return rc.ArtifactStore.Get(rc.SessionID, name)
}

// History returns the conversation history of the session snapshot.
func (rc *RunContext) History() []Event {
	if rc.Session == nil {
		return []Event{}
	}

	return rc.Session.GetConversationHistory()
}

// EmitEvent merges pending StateDelta / Artifacts into the event and sends it
// to the runner. Buffers are reset after a successful send. Non-partial
// events are also recorded on the working Session snapshot so later model
// turns of the same run see them; the runner persists them to the store.
func (rc *RunContext) EmitEvent(ev Event) error {
	if len(rc.StateDelta) > 0 {
		if ev.Actions.StateDelta == nil {
			ev.Actions.StateDelta = map[string]any{}
		}
		maps.Copy(ev.Actions.StateDelta, rc.StateDelta)
	}

	if len(rc.Artifacts) > 0 {
		if ev.Actions.ArtifactDelta == nil {
			ev.Actions.ArtifactDelta = map[string]int{}
		}
		maps.Copy(ev.Actions.ArtifactDelta, rc.Artifacts)
	}

	select {
	case <-rc.Context.Done():
		return rc.Context.Err()
	case rc.Emit <- ev:
	}

	rc.StateDelta = map[string]any{}
	rc.Artifacts = map[string]int{}

	if rc.Session != nil && !ev.IsPartial() {
		rc.Session.AddEvent(ev)
		if len(ev.Actions.StateDelta) > 0 {
			rc.Session.ApplyStateDelta(ev.Actions.StateDelta)
		}
	}

	return nil
}
