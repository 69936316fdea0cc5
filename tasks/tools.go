package tasks

import (
	"github.com/hupe1980/bizagent/core"
	"github.com/hupe1980/bizagent/tool"
)

// StateLastListing is the session state key holding the most recent
// numbered task listing. It is cleared once a completion invalidates the
// numbering.
const StateLastListing = "last_task_listing"

type addArgs struct {
	Description string `json:"description" description:"What needs to be done"`
}

type completeArgs struct {
	TaskNumber int `json:"task_number" description:"The number shown next to the task by list_tasks"`
}

// NewTools returns list_tasks, add_task and complete_task bound to m.
func NewTools(m *Manager) []tool.Tool {
	return []tool.Tool{
		tool.NewFunctionTool(
			"list_tasks",
			"Lists all current, non-completed tasks from Google Tasks with a simple numeric ID for user interaction.",
			map[string]any{"type": "object", "properties": map[string]any{}},
			func(tc *core.ToolContext, _ map[string]any) (any, error) {
				text, numbered := m.listing(tc.Context())
				if numbered {
					tc.SetState(StateLastListing, text)
				} else if !m.Numbered() {
					tc.SetState(StateLastListing, "")
				}

				return text, nil
			},
		),
		tool.NewTypedTool(
			"add_task",
			"Adds a new task to the default Google Tasks list.",
			func(tc *core.ToolContext, args addArgs) (any, error) {
				return m.Add(tc.Context(), args.Description), nil
			},
		),
		tool.NewTypedTool(
			"complete_task",
			"Marks a task as complete in Google Tasks given its simple numeric ID from the list_tasks command.",
			func(tc *core.ToolContext, args completeArgs) (any, error) {
				out := m.Complete(tc.Context(), args.TaskNumber)
				if !m.Numbered() {
					tc.SetState(StateLastListing, "")
				}

				return out, nil
			},
		),
	}
}
