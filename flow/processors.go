package flow

import (
	"fmt"

	"github.com/hupe1980/bizagent/core"
	internalutil "github.com/hupe1980/bizagent/internal/util"
	"github.com/hupe1980/bizagent/model"
)

// InstructionsProcessor renders the agent instruction against session state.
type InstructionsProcessor struct{}

// NewInstructionsProcessor creates a new instructions processor.
func NewInstructionsProcessor() *InstructionsProcessor { return &InstructionsProcessor{} }

// Name returns the processor's identifier.
func (p *InstructionsProcessor) Name() string { return "instructions" }

// ProcessRequest sets req.Instructions.
func (p *InstructionsProcessor) ProcessRequest(runCtx *core.RunContext, req *model.Request, agent FlowAgent) error {
	instructions, err := agent.ResolveInstructions(runCtx)
	if err != nil {
		return fmt.Errorf("failed to resolve instruction: %w", err)
	}

	runCtx.LogDebug("agent.instruction.resolved", "agent", agent.Name(), "length", len(instructions))

	var state map[string]any
	if runCtx.Session != nil {
		state = runCtx.Session.Clone().State
	}

	req.Instructions, err = internalutil.RenderTemplate(instructions, state)
	if err != nil {
		return fmt.Errorf("failed to render template: %w", err)
	}

	return nil
}

// ContentsProcessor assembles the system instruction plus the (bounded)
// conversation history of the working session.
type ContentsProcessor struct{}

// NewContentsProcessor creates a new contents processor.
func NewContentsProcessor() *ContentsProcessor { return &ContentsProcessor{} }

// Name returns the processor's identifier.
func (p *ContentsProcessor) Name() string { return "contents" }

// ProcessRequest sets req.Contents.
func (p *ContentsProcessor) ProcessRequest(runCtx *core.RunContext, req *model.Request, agent FlowAgent) error {
	var contents []core.Content

	if req.Instructions != "" {
		contents = append(contents, core.NewTextContent(core.RoleSystem, req.Instructions))
	}

	events := runCtx.History()
	if limit := agent.MaxHistoryMessages(); limit > 0 && len(events) > limit {
		events = trimHistory(events, limit)
	}

	for _, ev := range events {
		if ev.HasContent() {
			contents = append(contents, *ev.Content)
		}
	}

	// The user content is always present even when history is empty.
	if len(events) == 0 && len(runCtx.UserContent.Parts) > 0 {
		contents = append(contents, runCtx.UserContent)
	}

	req.Contents = contents

	return nil
}

// trimHistory keeps at most the last limit events. The window always opens
// on a user event: providers such as Gemini reject a conversation whose
// first turn is a model call or answer, and a cut-off function response has
// no call to pair with.
func trimHistory(events []core.Event, limit int) []core.Event {
	events = events[len(events)-limit:]
	for len(events) > 0 && events[0].Author != core.RoleUser {
		events = events[1:]
	}
	return events
}

// ToolsProcessor declares the agent's tools to the model.
type ToolsProcessor struct{}

// NewToolsProcessor creates a new tools processor.
func NewToolsProcessor() *ToolsProcessor { return &ToolsProcessor{} }

// Name returns the processor's identifier.
func (p *ToolsProcessor) Name() string { return "tools" }

// ProcessRequest sets req.Tools in registry order.
func (p *ToolsProcessor) ProcessRequest(_ *core.RunContext, req *model.Request, agent FlowAgent) error {
	tools := agent.Tools().Tools()
	if len(tools) == 0 {
		return nil
	}

	defs := make([]model.ToolDefinition, 0, len(tools))
	for _, t := range tools {
		defs = append(defs, model.ToolDefinition{
			Type: "function",
			Function: model.FunctionDefinition{
				Name:        t.Name(),
				Description: t.Description(),
				Parameters:  t.Parameters(),
			},
		})
	}

	req.Tools = defs

	return nil
}

// ConfigProcessor copies generation settings (temperature) onto the request.
type ConfigProcessor struct{}

// NewConfigProcessor creates a new config processor.
func NewConfigProcessor() *ConfigProcessor { return &ConfigProcessor{} }

// Name returns the processor's identifier.
func (p *ConfigProcessor) Name() string { return "config" }

// ProcessRequest sets req.Temperature.
func (p *ConfigProcessor) ProcessRequest(_ *core.RunContext, req *model.Request, agent FlowAgent) error {
	req.Temperature = agent.Temperature()
	return nil
}

// OutputKeyProcessor stores the text of a final answer in session state
// under the agent's output key.
type OutputKeyProcessor struct{}

// NewOutputKeyProcessor creates a new output key processor.
func NewOutputKeyProcessor() *OutputKeyProcessor { return &OutputKeyProcessor{} }

// Name returns the processor's identifier.
func (p *OutputKeyProcessor) Name() string { return "output_key" }

// ProcessResponse stages the state write; it is attached to the emitted event.
func (p *OutputKeyProcessor) ProcessResponse(runCtx *core.RunContext, resp *model.Response, agent FlowAgent) error {
	key := agent.OutputKey()
	if key == "" || resp.Partial {
		return nil
	}

	for _, part := range resp.Content.Parts {
		if _, ok := part.(core.FunctionCallPart); ok {
			return nil
		}
	}

	if text := resp.Content.Text(); text != "" {
		runCtx.SetState(key, text)
	}

	return nil
}
