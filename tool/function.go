package tool

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hupe1980/bizagent/core"
	"github.com/hupe1980/bizagent/internal/util"
)

// FunctionTool exposes a plain Go function as a tool. Arguments are validated
// against the declared schema before the function runs, and failures surface
// as *ToolError (VALIDATION_ERROR, EXECUTION_ERROR, or a custom code returned
// by the function itself). A FunctionTool is immutable after construction and
// safe for concurrent use.
type FunctionTool struct {
	// Tool identifier (snake_case recommended)
	name string
	// Human-readable description shown to models
	description string
	// JSON schema describing accepted arguments
	parameters map[string]any
	// User supplied implementation
	fn func(toolCtx *core.ToolContext, args map[string]any) (any, error)
}

// NewFunctionTool constructs a FunctionTool from an explicit schema and function.
//
// Example:
//
//	addTool := NewFunctionTool(
//	  "add_task",
//	  "Add a new task to the to-do list",
//	  map[string]any{
//	    "type": "object",
//	    "properties": map[string]any{
//	      "description": map[string]any{"type": "string"},
//	    },
//	    "required": []string{"description"},
//	  },
//	  func(tc *core.ToolContext, args map[string]any) (any, error) {
//	    return manager.Add(tc.Context(), args["description"].(string)), nil
//	  },
//	)
func NewFunctionTool(
	name, description string,
	parameters map[string]any,
	fn func(toolCtx *core.ToolContext, args map[string]any) (any, error),
) *FunctionTool {
	return &FunctionTool{
		name:        name,
		description: description,
		parameters:  parameters,
		fn:          fn,
	}
}

// NewTypedTool derives the parameter schema from the struct type T (see
// util.CreateSchema) and decodes validated arguments into a T before calling fn.
//
// Example:
//
//	type completeArgs struct {
//	  TaskNumber int `json:"task_number" description:"1-based number from list_tasks"`
//	}
//
//	completeTool := NewTypedTool("complete_task", "Mark a task as completed",
//	  func(tc *core.ToolContext, args completeArgs) (any, error) {
//	    return manager.Complete(tc.Context(), args.TaskNumber), nil
//	  },
//	)
func NewTypedTool[T any](
	name, description string,
	fn func(toolCtx *core.ToolContext, args T) (any, error),
) *FunctionTool {
	var zero T

	return NewFunctionTool(name, description, util.CreateSchema(zero), func(toolCtx *core.ToolContext, args map[string]any) (any, error) {
		var typed T
		if err := decodeArgs(args, &typed); err != nil {
			return nil, &ToolError{Tool: name, Message: err.Error(), Code: CodeValidation, Details: err}
		}
		return fn(toolCtx, typed)
	})
}

func decodeArgs(args map[string]any, out any) error {
	raw, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("encode arguments: %w", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode arguments: %w", err)
	}
	return nil
}

// Name returns the unique tool name used in function call declarations and routing.
func (t *FunctionTool) Name() string { return t.name }

// Description returns the short natural language description exposed to models.
func (t *FunctionTool) Description() string { return t.description }

// Parameters returns the (minimal) JSON schema describing expected arguments.
func (t *FunctionTool) Parameters() map[string]any { return t.parameters }

// Call validates args against the declared schema then invokes the underlying
// function. A *ToolError returned by the function is forwarded unchanged; any
// other error is wrapped with CodeExecution.
func (t *FunctionTool) Call(toolCtx *core.ToolContext, args map[string]any) (any, error) {
	logger := toolCtx.Logger()
	start := time.Now()

	logger.Debug("tool.call.start", "tool", t.name, "fc_id", toolCtx.FunctionCallID())

	if args == nil {
		args = map[string]any{}
	}

	if err := util.ValidateParameters(args, t.parameters); err != nil {
		logger.Warn("tool.call.validation_failed", "tool", t.name, "error", err.Error())

		return nil, &ToolError{
			Tool:    t.name,
			Message: fmt.Sprintf("parameter validation failed: %v", err),
			Code:    CodeValidation,
			Details: err,
		}
	}

	result, err := t.fn(toolCtx, args)
	if err != nil {
		var toolErr *ToolError
		if errors.As(err, &toolErr) { // Already a ToolError -> just log and forward
			logger.Error("tool.call.error", "tool", t.name, "error", toolErr.Message)

			return nil, toolErr
		}

		logger.Error("tool.call.error", "tool", t.name, "error", err.Error())

		return nil, &ToolError{
			Tool:    t.name,
			Message: err.Error(),
			Code:    CodeExecution,
			Details: err,
		}
	}

	logger.Debug("tool.call.success", "tool", t.name, "duration_ms", time.Since(start).Milliseconds())

	return result, nil
}
