package tasks

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/bizagent/core"
	"github.com/hupe1980/bizagent/tool"
)

func TestNewTools(t *testing.T) {
	api := &fakeTasksAPI{}
	reg, err := tool.NewRegistry(NewTools(NewManager(newFakeService(t, api)))...)
	require.NoError(t, err)

	rc := core.NewRunContext(
		context.Background(),
		core.NewSession("s", "todo_agent", "user"),
		"run",
		core.AgentInfo{Name: "agent_todo_google_tasks", Type: "model"},
		core.NewTextContent(core.RoleUser, "add milk"),
		make(chan core.Event, 1),
		core.RunContextOptions{},
	)
	tc := core.NewToolContext(rc, "c1")

	add, ok := reg.Get("add_task")
	require.True(t, ok)
	assert.Equal(t, []string{"description"}, add.Parameters()["required"])

	out, err := add.Call(tc, map[string]any{"description": "Buy milk"})
	require.NoError(t, err)
	assert.Contains(t, out, "Buy milk")

	list, _ := reg.Get("list_tasks")
	out, err = list.Call(tc, nil)
	require.NoError(t, err)
	assert.Contains(t, out, "1. Buy milk")

	complete, _ := reg.Get("complete_task")
	out, err = complete.Call(tc, map[string]any{"task_number": float64(1)})
	require.NoError(t, err)
	assert.Contains(t, out, "has been marked as completed")

	_, err = complete.Call(tc, map[string]any{"task_number": "one"})
	var te *tool.ToolError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, tool.CodeValidation, te.Code)
}

func TestNewTools_TrackListingInState(t *testing.T) {
	api := &fakeTasksAPI{}
	reg, err := tool.NewRegistry(NewTools(NewManager(newFakeService(t, api)))...)
	require.NoError(t, err)

	rc := core.NewRunContext(
		context.Background(),
		core.NewSession("s", "todo_agent", "user"),
		"run",
		core.AgentInfo{Name: "agent_todo_google_tasks", Type: "model"},
		core.NewTextContent(core.RoleUser, "what is left?"),
		make(chan core.Event, 1),
		core.RunContextOptions{},
	)

	list, _ := reg.Get("list_tasks")
	add, _ := reg.Get("add_task")
	complete, _ := reg.Get("complete_task")

	tc := core.NewToolContext(rc, "c1")
	_, err = list.Call(tc, nil)
	require.NoError(t, err)
	v, _ := tc.GetState(StateLastListing)
	assert.Equal(t, "", v, "an empty list has no numbering")

	_, err = add.Call(core.NewToolContext(rc, "c2"), map[string]any{"description": "Buy milk"})
	require.NoError(t, err)

	tc = core.NewToolContext(rc, "c3")
	out, err := list.Call(tc, nil)
	require.NoError(t, err)
	v, _ = tc.GetState(StateLastListing)
	assert.Equal(t, out, v)
	assert.Contains(t, v, "1. Buy milk")

	tc = core.NewToolContext(rc, "c4")
	_, err = complete.Call(tc, map[string]any{"task_number": float64(1)})
	require.NoError(t, err)
	v, ok := tc.Actions().StateDelta[StateLastListing]
	require.True(t, ok)
	assert.Equal(t, "", v, "completion invalidates the numbering")
}
