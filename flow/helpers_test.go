package flow

import (
	"context"
	"testing"

	"github.com/hupe1980/bizagent/core"
	"github.com/hupe1980/bizagent/logging"
	"github.com/hupe1980/bizagent/model"
	"github.com/hupe1980/bizagent/tool"
)

type testAgent struct {
	name        string
	llm         model.Model
	instruction string
	tools       *tool.Registry
	temperature *float64
	outputKey   string
	maxHistory  int
}

func (a *testAgent) Name() string                                         { return a.name }
func (a *testAgent) Model() model.Model                                   { return a.llm }
func (a *testAgent) ResolveInstructions(*core.RunContext) (string, error) { return a.instruction, nil }
func (a *testAgent) Tools() *tool.Registry                                { return a.tools }
func (a *testAgent) Temperature() *float64                                { return a.temperature }
func (a *testAgent) OutputKey() string                                    { return a.outputKey }
func (a *testAgent) MaxHistoryMessages() int                              { return a.maxHistory }

func newTestAgent(t *testing.T, llm model.Model, tools ...tool.Tool) *testAgent {
	t.Helper()
	reg, err := tool.NewRegistry(tools...)
	if err != nil {
		t.Fatal(err)
	}
	return &testAgent{name: "test_agent", llm: llm, instruction: "You are a test assistant.", tools: reg, maxHistory: 50}
}

// newTestRunContext returns a run context whose working session already holds
// the user message, mirroring what the runner does.
func newTestRunContext(t *testing.T, userText string, maxModelCalls int) (*core.RunContext, chan core.Event) {
	t.Helper()

	emit := make(chan core.Event, 100)
	sess := core.NewSession("sess", "test_app", "user")
	userContent := core.NewTextContent(core.RoleUser, userText)
	sess.AddEvent(core.NewUserContentEvent("run", userContent))

	rc := core.NewRunContext(context.Background(), sess, "run", core.AgentInfo{Name: "test_agent", Type: "test"}, userContent, emit, core.RunContextOptions{
		MaxModelCalls: maxModelCalls,
		Logger:        logging.NoOpLogger{},
	})

	return rc, emit
}

func drain(ch chan core.Event) []core.Event {
	var out []core.Event
	for {
		select {
		case ev := <-ch:
			out = append(out, ev)
		default:
			return out
		}
	}
}
