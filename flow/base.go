package flow

import (
	"fmt"
	"time"

	"github.com/hupe1980/bizagent/core"
	"github.com/hupe1980/bizagent/logging"
	"github.com/hupe1980/bizagent/model"
)

// BaseFlow is a single-agent flow implementing the request -> model ->
// (optional tool loop) cycle with pluggable pre/post processors.
type BaseFlow struct {
	agent              FlowAgent
	executor           FunctionExecutor
	requestProcessors  []RequestProcessor
	responseProcessors []ResponseProcessor
}

// NewBaseFlow creates a flow without processors using the sequential executor.
func NewBaseFlow(agent FlowAgent) *BaseFlow {
	return &BaseFlow{
		agent:              agent,
		executor:           NewSequentialFunctionExecutor(),
		requestProcessors:  []RequestProcessor{},
		responseProcessors: []ResponseProcessor{},
	}
}

// AddRequestProcessor appends a request processor; order of registration defines execution order.
func (f *BaseFlow) AddRequestProcessor(processor RequestProcessor) {
	f.requestProcessors = append(f.requestProcessors, processor)
}

// AddResponseProcessor appends a response processor executed after each model response.
func (f *BaseFlow) AddResponseProcessor(processor ResponseProcessor) {
	f.responseProcessors = append(f.responseProcessors, processor)
}

// SetFunctionExecutor replaces the function executor.
func (f *BaseFlow) SetFunctionExecutor(executor FunctionExecutor) {
	f.executor = executor
}

// Execute runs model turns until a final response is emitted.
func (f *BaseFlow) Execute(runCtx *core.RunContext) error {
	for {
		last, err := f.runOnce(runCtx)
		if err != nil {
			return err
		}

		if last == nil || last.IsFinalResponse() {
			return nil
		}

		// A function response (without skip summarization) needs another model turn.
		if len(last.GetFunctionResponses()) > 0 {
			continue
		}

		runCtx.LogWarn("flow.unexpected_last_event", "agent", f.agent.Name(), "event_id", last.ID)

		return nil
	}
}

// runOnce performs one model turn (including any tool executions) and returns
// the last emitted event.
func (f *BaseFlow) runOnce(runCtx *core.RunContext) (*core.Event, error) {
	if err := runCtx.Err(); err != nil {
		return nil, err
	}

	if runCtx.Limiter != nil {
		if err := runCtx.Limiter.Increment(); err != nil {
			runCtx.LogWarn("flow.model_call_limit", "agent", f.agent.Name(), "count", runCtx.Limiter.Count())
			return nil, err
		}
	}

	req := new(model.Request)

	for _, processor := range f.requestProcessors {
		if err := processor.ProcessRequest(runCtx, req, f.agent); err != nil {
			return nil, fmt.Errorf("request processor %s failed: %w", processor.Name(), err)
		}
	}

	llm := f.agent.Model()

	start := time.Now()
	resp, err := model.Collect(runCtx.Context, llm, *req)
	logging.LogModelCall(runCtx.Logger(), llm.Info().Name, time.Since(start), err)

	if err != nil {
		return nil, fmt.Errorf("model %s: %w", llm.Info().Name, err)
	}

	for _, processor := range f.responseProcessors {
		if err := processor.ProcessResponse(runCtx, &resp, f.agent); err != nil {
			return nil, fmt.Errorf("response processor %s failed: %w", processor.Name(), err)
		}
	}

	if resp.Content.Role == "" {
		resp.Content.Role = core.RoleAssistant
	}

	ev := core.NewEvent(runCtx.RunID, f.agent.Name())
	ev.Content = &resp.Content

	fnCalls := ev.GetFunctionCalls()
	if len(fnCalls) == 0 {
		complete := true
		ev.TurnComplete = &complete
	}

	if err := runCtx.EmitEvent(ev); err != nil {
		return nil, err
	}

	lastEvent := &ev

	if len(fnCalls) > 0 {
		emit := func(respEv core.Event) error {
			if err := runCtx.EmitEvent(respEv); err != nil {
				return err
			}
			lastEvent = &respEv
			return nil
		}

		if err := f.executor.Execute(runCtx, f.agent.Name(), f.agent.Tools(), fnCalls, emit); err != nil {
			return nil, err
		}
	}

	return lastEvent, nil
}
