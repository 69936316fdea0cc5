// Package flow provides the execution loop behind model-driven agents.
//
// A flow turns one user turn into a sequence of events: build a model
// request through pluggable processors, call the model, execute any function
// calls it asked for, feed the results back, and stop at a final response.
package flow

import (
	"github.com/hupe1980/bizagent/core"
	"github.com/hupe1980/bizagent/model"
	"github.com/hupe1980/bizagent/tool"
)

// Flow defines the interface for agent execution flows.
//
// Execute emits events through runCtx.EmitEvent and returns when the turn is
// complete. A returned error is terminal for the run (model failure, model
// call budget exhausted, cancellation); tool failures are never returned and
// reach the model as function response errors instead.
type Flow interface {
	Execute(runCtx *core.RunContext) error
}

// FlowAgent defines what a flow needs from an agent.
type FlowAgent interface {
	// Name returns the agent's display name, used as event author.
	Name() string

	// Model returns the language model instance.
	Model() model.Model

	// ResolveInstructions returns the raw (unrendered) instruction text.
	ResolveInstructions(runCtx *core.RunContext) (string, error)

	// Tools returns the registered tools for function calling.
	Tools() *tool.Registry

	// Temperature returns the sampling temperature, or nil for the model default.
	Temperature() *float64

	// OutputKey returns the session state key for saving the final answer ("" disables).
	OutputKey() string

	// MaxHistoryMessages returns the maximum number of conversation history messages to keep.
	MaxHistoryMessages() int
}

// RequestProcessor processes the request before sending it to the model.
type RequestProcessor interface {
	// Name returns the processor's identifier.
	Name() string
	// ProcessRequest modifies the request before model execution.
	ProcessRequest(runCtx *core.RunContext, req *model.Request, agent FlowAgent) error
}

// ResponseProcessor processes a model response before it is emitted.
type ResponseProcessor interface {
	// Name returns the processor's identifier.
	Name() string
	// ProcessResponse inspects or amends the response.
	ProcessResponse(runCtx *core.RunContext, resp *model.Response, agent FlowAgent) error
}
