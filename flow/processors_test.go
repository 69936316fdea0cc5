package flow

import (
	"fmt"
	"testing"

	"github.com/hupe1980/bizagent/core"
	"github.com/hupe1980/bizagent/internal/testutil"
	"github.com/hupe1980/bizagent/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstructionsProcessor_RendersState(t *testing.T) {
	agent := newTestAgent(t, model.NewMockModel("m", "mock"))
	agent.instruction = "Help {{ .user_name }}."

	rc, _ := newTestRunContext(t, "hi", 0)
	rc.Session.SetState("user_name", "Ada")

	req := &model.Request{}
	require.NoError(t, NewInstructionsProcessor().ProcessRequest(rc, req, agent))
	assert.Equal(t, "Help Ada.", req.Instructions)
	assert.Equal(t, "instructions", NewInstructionsProcessor().Name())
}

func TestContentsProcessor_TrimsHistory(t *testing.T) {
	agent := newTestAgent(t, model.NewMockModel("m", "mock"))
	agent.maxHistory = 3

	sess := testutil.NewSessionBuilder("s").Events(
		testutil.NewEventBuilder().Author("user").UserText("q1").Build(),
		testutil.NewEventBuilder().FunctionCall("c1", "list_tasks", "{}").Build(),
		testutil.NewEventBuilder().FunctionResponse("c1", "list_tasks", "1. milk", nil).Build(),
		testutil.NewEventBuilder().AssistantText("You have milk.").Build(),
		testutil.NewEventBuilder().Author("user").UserText("q2").Build(),
	).Build()

	rc := core.NewRunContext(t.Context(), sess, "run", core.AgentInfo{}, core.NewTextContent(core.RoleUser, "q2"), make(chan core.Event, 1), core.RunContextOptions{})

	req := &model.Request{Instructions: "sys"}
	require.NoError(t, NewContentsProcessor().ProcessRequest(rc, req, agent))

	// limit 3 would start on the orphaned response; the window moves to q2
	require.Len(t, req.Contents, 2)
	assert.Equal(t, core.RoleSystem, req.Contents[0].Role)
	assert.Equal(t, core.RoleUser, req.Contents[1].Role)
	assert.Equal(t, "q2", req.Contents[1].Text())
}

func TestContentsProcessor_WindowStartsOnUserTurn(t *testing.T) {
	agent := newTestAgent(t, model.NewMockModel("m", "mock"))
	agent.maxHistory = 20

	// Six tool-using turns of four events each, then the current question.
	b := testutil.NewSessionBuilder("s")
	for i := range 6 {
		id := fmt.Sprintf("c%d", i)
		b.Events(
			testutil.NewEventBuilder().Author("user").UserText(fmt.Sprintf("q%d", i)).Build(),
			testutil.NewEventBuilder().FunctionCall(id, "best_products", "{}").Build(),
			testutil.NewEventBuilder().FunctionResponse(id, "best_products", "Loafers", nil).Build(),
			testutil.NewEventBuilder().AssistantText("Loafers sell best.").Build(),
		)
	}
	b.Events(testutil.NewEventBuilder().Author("user").UserText("latest").Build())
	sess := b.Build()

	for _, limit := range []int{20, 19, 18, 17, 3, 2} {
		agent.maxHistory = limit
		rc := core.NewRunContext(t.Context(), sess, "run", core.AgentInfo{}, core.NewTextContent(core.RoleUser, "latest"), make(chan core.Event, 1), core.RunContextOptions{})

		req := &model.Request{Instructions: "sys"}
		require.NoError(t, NewContentsProcessor().ProcessRequest(rc, req, agent))

		require.Greater(t, len(req.Contents), 1, "limit %d", limit)
		assert.LessOrEqual(t, len(req.Contents)-1, limit, "limit %d", limit)
		assert.Equal(t, core.RoleUser, req.Contents[1].Role, "limit %d", limit)
		assert.Equal(t, "latest", req.Contents[len(req.Contents)-1].Text(), "limit %d", limit)
	}
}

func TestContentsProcessor_FallsBackToUserContent(t *testing.T) {
	agent := newTestAgent(t, model.NewMockModel("m", "mock"))
	sess := core.NewSession("s", "app", "u")
	rc := core.NewRunContext(t.Context(), sess, "run", core.AgentInfo{}, core.NewTextContent(core.RoleUser, "hello"), make(chan core.Event, 1), core.RunContextOptions{})

	req := &model.Request{}
	require.NoError(t, NewContentsProcessor().ProcessRequest(rc, req, agent))
	require.Len(t, req.Contents, 1)
	assert.Equal(t, "hello", req.Contents[0].Text())
}
