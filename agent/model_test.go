package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/hupe1980/bizagent/core"
	"github.com/hupe1980/bizagent/model"
	"github.com/hupe1980/bizagent/tool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockModelImpl for testing model interaction
type MockModelImpl struct{ mock.Mock }

func (m *MockModelImpl) Generate(ctx context.Context, req model.Request) (<-chan model.Response, <-chan error) {
	args := m.Called(ctx, req)

	respCh := make(chan model.Response, 1)
	errCh := make(chan error, 1)

	if err := args.Error(1); err != nil {
		errCh <- err
	} else {
		respCh <- args.Get(0).(model.Response)
	}

	close(respCh)
	close(errCh)

	return respCh, errCh
}

func (m *MockModelImpl) Info() model.Info {
	return model.Info{Name: "mock", Provider: "mock"}
}

func noopTool(name string) tool.Tool {
	return tool.NewFunctionTool(name, "noop", nil, func(*core.ToolContext, map[string]any) (any, error) { return "ok", nil })
}

func newRunContext() (*core.RunContext, chan core.Event) {
	emit := make(chan core.Event, 10)
	sess := core.NewSession("s", "app", "user")
	user := core.NewTextContent(core.RoleUser, "hello")
	sess.AddEvent(core.NewUserContentEvent("run", user))
	rc := core.NewRunContext(context.Background(), sess, "run", core.AgentInfo{Name: "InsightBot", Type: "model"}, user, emit, core.RunContextOptions{MaxModelCalls: 5})
	return rc, emit
}

func TestModelAgent_NewAgent(t *testing.T) {
	mockLLM := &MockModelImpl{}
	a, err := NewModelAgent("invoice_agent", mockLLM,
		WithDescription("Extracts invoice details"),
		WithInstruction("Use the tool."),
		WithTemperature(0.2),
		WithTools(noopTool("b"), noopTool("a")),
		WithOutputKey("answer"),
	)
	require.NoError(t, err)

	assert.Equal(t, "invoice_agent", a.Name())
	assert.Equal(t, "Extracts invoice details", a.Description())
	assert.Equal(t, mockLLM, a.Model())
	assert.InDelta(t, 0.2, *a.Temperature(), 1e-9)
	assert.Equal(t, []string{"b", "a"}, a.ListTools())
	assert.True(t, a.HasTool("a"))
	assert.False(t, a.HasTool("c"))
	assert.Equal(t, "answer", a.OutputKey())
	assert.Equal(t, 20, a.MaxHistoryMessages())
}

func TestModelAgent_DefaultDescription(t *testing.T) {
	a, err := NewModelAgent("x", &MockModelImpl{})
	require.NoError(t, err)
	assert.Equal(t, "Agent x", a.Description())
	assert.Nil(t, a.Temperature())
}

func TestModelAgent_DuplicateTool(t *testing.T) {
	_, err := NewModelAgent("dup", &MockModelImpl{}, WithTools(noopTool("list_tasks"), noopTool("list_tasks")))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDuplicateTool)
	assert.Contains(t, err.Error(), "list_tasks")
}

func TestModelAgent_RequiresModel(t *testing.T) {
	_, err := NewModelAgent("nil", nil)
	assert.Error(t, err)
}

func TestModelAgent_Run(t *testing.T) {
	mockLLM := &MockModelImpl{}
	mockLLM.On("Generate", mock.Anything, mock.MatchedBy(func(req model.Request) bool {
		return req.Instructions == "Be helpful." && req.Temperature != nil
	})).Return(model.TextResponse("hi there"), nil).Once()

	a, err := NewModelAgent("InsightBot", mockLLM, WithInstruction("Be helpful."), WithTemperature(0.2))
	require.NoError(t, err)

	rc, emit := newRunContext()
	require.NoError(t, a.Run(rc))

	ev := <-emit
	assert.Equal(t, "hi there", ev.Text())
	assert.Equal(t, "InsightBot", ev.Author)
	mockLLM.AssertExpectations(t)
}

func TestModelAgent_RunPropagatesModelError(t *testing.T) {
	boom := errors.New("model down")
	mockLLM := &MockModelImpl{}
	mockLLM.On("Generate", mock.Anything, mock.Anything).Return(model.Response{}, boom)

	a, err := NewModelAgent("InsightBot", mockLLM)
	require.NoError(t, err)

	rc, _ := newRunContext()
	err = a.Run(rc)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "InsightBot")
}
