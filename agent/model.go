package agent

import (
	"fmt"

	"github.com/hupe1980/bizagent/core"
	"github.com/hupe1980/bizagent/flow"
	"github.com/hupe1980/bizagent/model"
	"github.com/hupe1980/bizagent/tool"
)

// ErrDuplicateTool is returned by NewModelAgent when two tools share a name.
var ErrDuplicateTool = tool.ErrDuplicateTool

// ModelAgentOptions configures a ModelAgent instance.
//
// Use functional options with NewModelAgent to override defaults.
type ModelAgentOptions struct {
	Description        string
	Instruction        Instruction
	Temperature        *float64
	Tools              []tool.Tool
	OutputKey          string
	MaxHistoryMessages int
}

// ModelAgent integrates a language model with a tool registry.
//
// It supports:
//   - Static or dynamic instructions rendered against session state
//   - Function calling with registered tools
//   - A fixed sampling temperature
//   - Saving the final answer to session state under an output key
type ModelAgent struct {
	BaseAgent                         // Name and description
	llm                model.Model    // Language model interface
	instruction        Instruction    // Instructions for the model
	temperature        *float64       // nil uses the model default
	tools              *tool.Registry // Registered tools for function calling
	outputKey          string         // Key for saving responses to session state
	maxHistoryMessages int            // Maximum number of conversation history messages to keep
	flow               flow.Flow
}

// NewModelAgent creates a new model-based agent.
//
// Defaults: a generic instruction, no tools, the model's own temperature and
// a 20 message history window. It fails with ErrDuplicateTool when two tools
// share a name.
func NewModelAgent(name string, llm model.Model, optFns ...func(o *ModelAgentOptions)) (*ModelAgent, error) {
	if llm == nil {
		return nil, fmt.Errorf("agent %s: model is required", name)
	}

	opts := ModelAgentOptions{
		Instruction:        NewInstructionFromText(fmt.Sprintf("You are %s, a helpful AI assistant.", name)),
		MaxHistoryMessages: 20,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	registry, err := tool.NewRegistry(opts.Tools...)
	if err != nil {
		return nil, fmt.Errorf("agent %s: %w", name, err)
	}

	a := &ModelAgent{
		BaseAgent:          NewBaseAgent(name),
		llm:                llm,
		instruction:        opts.Instruction,
		temperature:        opts.Temperature,
		tools:              registry,
		outputKey:          opts.OutputKey,
		maxHistoryMessages: opts.MaxHistoryMessages,
	}

	if opts.Description != "" {
		a.SetDescription(opts.Description)
	}

	a.flow = flow.NewSingleAgentFlow(a)

	return a, nil
}

// WithDescription sets the agent description.
func WithDescription(desc string) func(o *ModelAgentOptions) {
	return func(o *ModelAgentOptions) { o.Description = desc }
}

// WithInstruction sets a static instruction. Text may reference session
// state with text/template syntax ({{ .key }}).
func WithInstruction(text string) func(o *ModelAgentOptions) {
	return func(o *ModelAgentOptions) { o.Instruction.text = text }
}

// WithStateSection appends the session state value under key to the
// instruction, introduced by heading. Absent or empty values are skipped.
func WithStateSection(key, heading string) func(o *ModelAgentOptions) {
	return func(o *ModelAgentOptions) { o.Instruction = o.Instruction.WithStateSection(key, heading) }
}

// WithTemperature fixes the sampling temperature.
func WithTemperature(t float64) func(o *ModelAgentOptions) {
	return func(o *ModelAgentOptions) { o.Temperature = &t }
}

// WithTools appends tools in declaration order.
func WithTools(tools ...tool.Tool) func(o *ModelAgentOptions) {
	return func(o *ModelAgentOptions) { o.Tools = append(o.Tools, tools...) }
}

// WithOutputKey stores the final answer text in session state under key.
func WithOutputKey(key string) func(o *ModelAgentOptions) {
	return func(o *ModelAgentOptions) { o.OutputKey = key }
}

// HasTool checks if a tool is registered with the agent.
func (a *ModelAgent) HasTool(name string) bool {
	_, exists := a.tools.Get(name)
	return exists
}

// ListTools returns the names of all registered tools in declaration order.
func (a *ModelAgent) ListTools() []string {
	tools := a.tools.Tools()
	names := make([]string, 0, len(tools))
	for _, t := range tools {
		names = append(names, t.Name())
	}
	return names
}

// Model returns the language model instance.
func (a *ModelAgent) Model() model.Model { return a.llm }

// Tools returns the registered tools for function calling.
func (a *ModelAgent) Tools() *tool.Registry { return a.tools }

// Temperature returns the configured sampling temperature (nil for the model default).
func (a *ModelAgent) Temperature() *float64 { return a.temperature }

// OutputKey returns the session state key for saving responses.
func (a *ModelAgent) OutputKey() string { return a.outputKey }

// MaxHistoryMessages returns the maximum number of conversation history messages to keep.
func (a *ModelAgent) MaxHistoryMessages() int { return a.maxHistoryMessages }

// ResolveInstructions produces the raw instruction string by resolving
// static or dynamic instruction sources.
func (a *ModelAgent) ResolveInstructions(runCtx *core.RunContext) (string, error) {
	return a.instruction.Resolve(runCtx)
}

// Run implements core.Agent by executing one turn through the agent's flow.
func (a *ModelAgent) Run(runCtx *core.RunContext) error {
	runCtx.LogDebug("agent.run.start", "agent", a.Name(), "tools", a.tools.Len())

	if err := a.flow.Execute(runCtx); err != nil {
		runCtx.LogError("agent.flow.execute.error", "agent", a.Name(), "error", err.Error())
		return fmt.Errorf("agent %s: %w", a.Name(), err)
	}

	runCtx.LogDebug("agent.flow.execute.complete", "agent", a.Name())

	return nil
}
