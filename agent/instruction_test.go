package agent

import (
	"context"
	"testing"

	"github.com/hupe1980/bizagent/core"
	"github.com/hupe1980/bizagent/internal/util"
	"github.com/hupe1980/bizagent/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRunContext() *core.RunContext {
	sess := core.NewSession("test-session", "app", "user")
	return core.NewRunContext(
		context.Background(),
		sess,
		"run-id",
		core.AgentInfo{Name: "TestAgent", Type: "test"},
		core.NewTextContent(core.RoleUser, "hello"),
		make(chan core.Event, 1),
		core.RunContextOptions{Logger: logging.NoOpLogger{}},
	)
}

func TestInstruction_Static(t *testing.T) {
	inst := NewInstructionFromText("static instruction")

	got, err := inst.Resolve(newTestRunContext())
	require.NoError(t, err)
	assert.Equal(t, "static instruction", got)
}

func TestInstruction_StateSection(t *testing.T) {
	base := NewInstructionFromText("You manage tasks.")
	inst := base.WithStateSection("last_task_listing", "Latest listing:")

	assert.True(t, base.IsStatic())

	rc := newTestRunContext()

	got, err := inst.Resolve(rc)
	require.NoError(t, err)
	assert.Equal(t, "You manage tasks.", got, "absent key adds nothing")

	rc.Session.SetState("last_task_listing", "1. Buy milk")
	got, err = inst.Resolve(rc)
	require.NoError(t, err)
	assert.Equal(t, "You manage tasks.\n\nLatest listing:\n1. Buy milk", got)

	// Staged values win over the persisted session value.
	rc.SetState("last_task_listing", "  ")
	got, err = inst.Resolve(rc)
	require.NoError(t, err)
	assert.Equal(t, "You manage tasks.", got, "blank value adds nothing")
}

func TestInstruction_StateSectionDoesNotShareBacking(t *testing.T) {
	base := NewInstructionFromText("x").WithStateSection("a", "A:")
	one := base.WithStateSection("b", "B:")
	two := base.WithStateSection("c", "C:")

	rc := newTestRunContext()
	rc.Session.SetState("b", "bee")
	rc.Session.SetState("c", "sea")

	got, err := one.Resolve(rc)
	require.NoError(t, err)
	assert.Equal(t, "x\n\nB:\nbee", got)

	got, err = two.Resolve(rc)
	require.NoError(t, err)
	assert.Equal(t, "x\n\nC:\nsea", got)
}

func TestInstruction_StateSectionSurvivesRendering(t *testing.T) {
	inst := NewInstructionFromText("Hello {{ .name }}.").WithStateSection("listing", "Tasks:")

	rc := newTestRunContext()
	rc.Session.SetState("name", "Ada")
	rc.Session.SetState("listing", "1. Fix {{ .broken")

	raw, err := inst.Resolve(rc)
	require.NoError(t, err)

	got, err := util.RenderTemplate(raw, rc.Session.Clone().State)
	require.NoError(t, err)
	assert.Equal(t, "Hello Ada.\n\nTasks:\n1. Fix {{ .broken", got)
}
