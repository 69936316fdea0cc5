package core

// Agent is the unit the runner drives for one user turn.
//
// Run consumes the RunContext (user content, session snapshot, stores) and
// emits events through RunContext.EmitEvent until the turn is complete. It
// returns a non-nil error only for failures that should abort the turn;
// recoverable tool failures are reported as function-response events.
type Agent interface {
	Name() string
	Description() string
	Run(runCtx *RunContext) error
}

// AgentInfo carries identifying details about an agent used in contexts & events.
type AgentInfo struct{ Name, Type string }
