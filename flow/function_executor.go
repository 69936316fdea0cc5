package flow

import (
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/hupe1980/bizagent/core"
	"github.com/hupe1980/bizagent/logging"
	"github.com/hupe1980/bizagent/model"
	"github.com/hupe1980/bizagent/tool"
)

// FunctionExecutor executes a batch of function calls and emits one function
// response event per call through emit. Implementations must:
//   - Respect runCtx.Context cancellation
//   - Never panic (recover internally and emit error responses)
//   - Apply ToolContext accumulated actions to emitted events
//
// The returned error is the first emit failure (e.g. cancellation); tool
// failures are carried inside the response events.
type FunctionExecutor interface {
	Execute(runCtx *core.RunContext, agentName string, tools *tool.Registry, fnCalls []core.FunctionCall, emit func(core.Event) error) error
}

// FunctionExecutorConfig configures the default executor.
type FunctionExecutorConfig struct {
	MaxParallel    int  // <= 1 runs calls one after another
	PreserveOrder  bool // if true, buffer results and emit in original order
	LogStartEvents bool // log a start line per function
}

type functionExecutor struct {
	cfg FunctionExecutorConfig
}

// NewSequentialFunctionExecutor executes calls in the order the model issued
// them, emitting each response before the next call starts.
func NewSequentialFunctionExecutor() FunctionExecutor {
	return &functionExecutor{cfg: FunctionExecutorConfig{MaxParallel: 1, PreserveOrder: true}}
}

// NewParallelFunctionExecutor constructs an executor running up to
// cfg.MaxParallel calls concurrently.
func NewParallelFunctionExecutor(cfg FunctionExecutorConfig) FunctionExecutor {
	return &functionExecutor{cfg: cfg}
}

func (e *functionExecutor) Execute(
	runCtx *core.RunContext,
	agentName string,
	tools *tool.Registry,
	fnCalls []core.FunctionCall,
	emit func(core.Event) error,
) error {
	n := len(fnCalls)
	if n == 0 {
		return nil
	}

	if e.cfg.MaxParallel <= 1 || n == 1 {
		for _, fc := range fnCalls {
			if err := runCtx.Err(); err != nil {
				return err
			}
			if err := emit(e.executeOne(runCtx, agentName, tools, fc)); err != nil {
				return err
			}
		}
		return nil
	}

	maxPar := e.cfg.MaxParallel
	if maxPar > n {
		maxPar = n
	}

	results := make([]core.Event, n)
	sem := make(chan struct{}, maxPar)

	var (
		mu      sync.Mutex // serializes unordered emits
		wg      sync.WaitGroup
		errOnce sync.Once
		emitErr error
	)

	setError := func(err error) { errOnce.Do(func() { emitErr = err }) }

	batchStart := time.Now()

	for i := range fnCalls {
		if runCtx.Err() != nil {
			break
		}

		wg.Add(1)
		sem <- struct{}{}

		go func(idx int, fc core.FunctionCall) {
			defer wg.Done()
			defer func() { <-sem }()

			if runCtx.Err() != nil {
				return
			}

			respEv := e.executeOne(runCtx, agentName, tools, fc)

			if e.cfg.PreserveOrder {
				results[idx] = respEv
				return
			}

			mu.Lock()
			defer mu.Unlock()
			if err := emit(respEv); err != nil {
				setError(err)
			}
		}(i, fnCalls[i])
	}

	wg.Wait()

	if e.cfg.PreserveOrder {
		for i := range results {
			if results[i].ID == "" {
				continue
			}
			if err := emit(results[i]); err != nil {
				setError(err)
				break
			}
		}
	}

	runCtx.LogDebug(
		"agent.functions.batch.complete",
		"agent", agentName,
		"count", n,
		"parallelism", maxPar,
		"preserve_order", e.cfg.PreserveOrder,
		"duration_ms", time.Since(batchStart).Milliseconds(),
	)

	if emitErr != nil {
		return emitErr
	}

	return runCtx.Err()
}

// executeOne runs a single call with panic safety and builds its response event.
func (e *functionExecutor) executeOne(runCtx *core.RunContext, agentName string, tools *tool.Registry, fc core.FunctionCall) core.Event {
	toolCtx := core.NewToolContext(runCtx, fc.ID)

	if e.cfg.LogStartEvents {
		runCtx.LogInfo("agent.function.start", "agent", agentName, "function", fc.Name, "function_call_id", fc.ID)
	}

	start := time.Now()

	var (
		result any
		err    error
	)

	func() {
		defer func() {
			if r := recover(); r != nil {
				err = panicError(fc.Name, r)
				runCtx.LogError("agent.function.panic", "agent", agentName, "function", fc.Name, "recover", r)
			}
		}()
		result, err = executeTool(tools, toolCtx, fc)
	}()

	logging.LogToolCall(runCtx.Logger(), fc.Name, time.Since(start), err)

	respEv := core.NewFunctionResponseEvent(runCtx.RunID, agentName, fc.ID, fc.Name, result, err)
	toolCtx.ApplyActions(&respEv)

	return respEv
}

// panicError converts a recovered panic value into a *tool.ToolError carrying the stack.
func panicError(name string, r any) error {
	return &tool.ToolError{
		Tool:    name,
		Message: fmt.Sprintf("panic: %v", r),
		Code:    tool.CodePanic,
		Details: string(debug.Stack()),
	}
}

// executeTool centralizes tool lookup, argument decoding and execution.
func executeTool(tools *tool.Registry, toolCtx *core.ToolContext, fc core.FunctionCall) (any, error) {
	impl, ok := tools.Get(fc.Name)
	if !ok {
		return nil, tool.NewToolError(fc.Name, fmt.Sprintf("tool %s not found", fc.Name), tool.CodeNotFound)
	}

	args, err := model.ParseArguments(fc)
	if err != nil {
		return nil, &tool.ToolError{Tool: fc.Name, Message: err.Error(), Code: tool.CodeValidation, Details: err}
	}

	return impl.Call(toolCtx, args)
}
