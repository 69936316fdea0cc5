package main

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/hupe1980/bizagent/core"
	"github.com/hupe1980/bizagent/internal/config"
	"github.com/hupe1980/bizagent/model"
	"github.com/hupe1980/bizagent/tasks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	tasksapi "google.golang.org/api/tasks/v1"
)

func mockFactory(m *model.MockModel) ModelFactory {
	return func(context.Context, *config.Config) (model.Model, error) { return m, nil }
}

func execute(t *testing.T, opts AppOptions, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	opts.Stdout = &out
	opts.Stderr = io.Discard
	if opts.Stdin == nil {
		opts.Stdin = strings.NewReader("")
	}
	opts.EnvFile = filepath.Join(t.TempDir(), "missing.env")

	cmd := newRootCmd(opts)
	cmd.SetArgs(args)
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)

	err := cmd.ExecuteContext(t.Context())

	return out.String(), err
}

func requestTexts(req model.Request) []string {
	texts := make([]string, 0, len(req.Contents))
	for _, c := range req.Contents {
		texts = append(texts, c.Text())
	}
	return texts
}

func writePNG(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "invoice.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	require.NoError(t, png.Encode(f, image.NewRGBA(image.Rect(0, 0, 2, 2))))

	return path
}

func TestRootCmd_Subcommands(t *testing.T) {
	root := newRootCmd(AppOptions{})

	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}

	assert.Subset(t, names, []string{"invoice", "sales", "tasks"})

	for _, name := range []string{"invoice", "sales", "tasks"} {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err)
		assert.NotNil(t, cmd.Flags().Lookup("message"), name)
	}
}

func TestInvoiceCommand_SingleMessage(t *testing.T) {
	path := writePNG(t)

	llm := model.NewMockModel("mock", "mock").Script(
		model.FunctionCallResponse(core.FunctionCall{
			ID:        "call-1",
			Name:      "extract_invoice_details",
			Arguments: `{"image_path":"` + path + `"}`,
		}),
		model.TextResponse(`{"Invoice Number":"INV-1","Vendor Name":"ACME","Grand Total":"12.50"}`),
		model.TextResponse("Invoice INV-1 from ACME totals 12.50."),
	)

	out, err := execute(t, AppOptions{ModelFactory: mockFactory(llm)}, "invoice", "-m", "Extract details from invoice.png")
	require.NoError(t, err)

	assert.Contains(t, out, invoiceAnswerHeader)
	assert.Contains(t, out, "Invoice INV-1 from ACME totals 12.50.")
	assert.NotContains(t, out, "Type a command like")

	reqs := llm.Requests()
	require.Len(t, reqs, 3)
	assert.Contains(t, reqs[0].Instructions, "helpful invoice assistant")
	require.Len(t, reqs[0].Tools, 1)
	assert.Equal(t, "extract_invoice_details", reqs[0].Tools[0].Function.Name)
}

func TestInvoiceCommand_REPL(t *testing.T) {
	llm := model.NewMockModel("mock", "mock").Script(
		model.TextResponse("first answer"),
		model.TextResponse("second answer"),
	)

	out, err := execute(t, AppOptions{
		ModelFactory: mockFactory(llm),
		Stdin:        strings.NewReader("first question\n   \nsecond question\nQUIT\nnever sent\n"),
	}, "invoice")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out, invoiceBanner[0]+"\n"+invoiceBanner[1]+"\n"))
	assert.Contains(t, out, "You: ")
	assert.Equal(t, 2, strings.Count(out, invoiceAnswerHeader))
	assert.Contains(t, out, "first answer")
	assert.Contains(t, out, "second answer")

	// Each message runs in a fresh session.
	reqs := llm.Requests()
	require.Len(t, reqs, 2)
	assert.NotContains(t, requestTexts(reqs[1]), "first question")
	assert.Contains(t, requestTexts(reqs[1]), "second question")
}

func TestInvoiceCommand_ModelError(t *testing.T) {
	llm := model.NewMockModel("mock", "mock").ScriptError(errors.New("quota exceeded"))

	_, err := execute(t, AppOptions{ModelFactory: mockFactory(llm)}, "invoice", "-m", "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestCommand_ModelFactoryError(t *testing.T) {
	factory := func(context.Context, *config.Config) (model.Model, error) {
		return nil, errors.New("no key")
	}

	_, err := execute(t, AppOptions{ModelFactory: factory}, "invoice", "-m", "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create model")
}

func TestCommand_InvalidConfig(t *testing.T) {
	t.Setenv("TEMPERATURE", "hot")

	_, err := execute(t, AppOptions{ModelFactory: mockFactory(model.NewMockModel("mock", "mock"))}, "invoice", "-m", "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TEMPERATURE")
}

func newSalesToolbox(t *testing.T, invoked *atomic.Int32) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/toolset/my_bq_toolset", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"serverVersion":"0.7.0","tools":{"best_products":{"description":"Best selling products","parameters":[]}}}`))
	})
	mux.HandleFunc("POST /api/tool/best_products/invoke", func(w http.ResponseWriter, _ *http.Request) {
		invoked.Add(1)
		_, _ = w.Write([]byte(`{"result":"City-Slicker Loafers"}`))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return srv
}

func TestSalesCommand(t *testing.T) {
	var invoked atomic.Int32
	srv := newSalesToolbox(t, &invoked)
	t.Setenv("TOOLBOX_URL", srv.URL)

	var gotModel string
	llm := model.NewMockModel("mock", "mock").Script(
		model.FunctionCallResponse(core.FunctionCall{ID: "c1", Name: "best_products", Arguments: "{}"}),
		model.TextResponse("City-Slicker Loafers sell best."),
		model.TextResponse("Boston."),
	)
	factory := func(_ context.Context, cfg *config.Config) (model.Model, error) {
		gotModel = cfg.Model
		return llm, nil
	}

	out, err := execute(t, AppOptions{
		ModelFactory: factory,
		Stdin:        strings.NewReader("Which products sell best?\nWhere?\n"),
	}, "sales")
	require.NoError(t, err)

	assert.Equal(t, salesDefaultModel, gotModel)
	assert.Equal(t, int32(1), invoked.Load())
	assert.Contains(t, out, "City-Slicker Loafers sell best.")
	assert.Contains(t, out, "Boston.")

	// The conversation continues in one session.
	reqs := llm.Requests()
	require.Len(t, reqs, 3)
	assert.Contains(t, requestTexts(reqs[2]), "Which products sell best?")
	assert.Equal(t, salesInstruction, reqs[0].Instructions)
}

func TestSalesCommand_ToolboxUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()
	t.Setenv("TOOLBOX_URL", url)

	llm := model.NewMockModel("mock", "mock")

	_, err := execute(t, AppOptions{ModelFactory: mockFactory(llm)}, "sales", "-m", "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sales agent")
	assert.Empty(t, llm.Requests())
}

func TestSalesCommand_InvalidProtocol(t *testing.T) {
	t.Setenv("TOOLBOX_PROTOCOL", "grpc")

	_, err := execute(t, AppOptions{ModelFactory: mockFactory(model.NewMockModel("mock", "mock"))}, "sales", "-m", "hi")
	require.Error(t, err)
}

func TestTasksCommand(t *testing.T) {
	var listed atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet && r.URL.Path == "/tasks/v1/lists/@default/tasks" {
			listed.Add(1)
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"items":[{"id":"t1","title":"Buy milk","status":"needsAction"}]}`))
			return
		}
		http.NotFound(w, r)
	}))
	t.Cleanup(srv.Close)

	var gotAuth tasks.AuthOptions
	services := func(ctx context.Context, auth tasks.AuthOptions) (*tasksapi.Service, error) {
		gotAuth = auth
		return tasksapi.NewService(ctx,
			option.WithEndpoint(srv.URL+"/"),
			option.WithoutAuthentication(),
			option.WithHTTPClient(srv.Client()),
		)
	}

	llm := model.NewMockModel("mock", "mock").Script(
		model.FunctionCallResponse(core.FunctionCall{ID: "c1", Name: "list_tasks", Arguments: "{}"}),
		model.TextResponse("You have one task: 1. Buy milk"),
	)

	var gotModel string
	factory := func(_ context.Context, cfg *config.Config) (model.Model, error) {
		gotModel = cfg.Model
		return llm, nil
	}

	out, err := execute(t, AppOptions{ModelFactory: factory, TasksServiceFactory: services}, "tasks", "-m", "What's on my list?")
	require.NoError(t, err)

	assert.Equal(t, tasksDefaultModel, gotModel)
	assert.Contains(t, out, "1. Buy milk")
	assert.Equal(t, int32(1), listed.Load())
	assert.Equal(t, config.DefaultCredentials, gotAuth.CredentialsFile)
	assert.Equal(t, config.DefaultToken, gotAuth.TokenFile)
	assert.NotNil(t, gotAuth.In)

	reqs := llm.Requests()
	require.Len(t, reqs, 2)

	var tools []string
	for _, td := range reqs[0].Tools {
		tools = append(tools, td.Function.Name)
	}
	assert.ElementsMatch(t, []string{"list_tasks", "add_task", "complete_task"}, tools)
}

func TestTasksCommand_InstructionCarriesLastListing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet && r.URL.Path == "/tasks/v1/lists/@default/tasks" {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"items":[{"id":"t1","title":"Buy milk","status":"needsAction"},{"id":"t2","title":"Call Bob","status":"needsAction"}]}`))
			return
		}
		http.NotFound(w, r)
	}))
	t.Cleanup(srv.Close)

	services := func(ctx context.Context, _ tasks.AuthOptions) (*tasksapi.Service, error) {
		return tasksapi.NewService(ctx,
			option.WithEndpoint(srv.URL+"/"),
			option.WithoutAuthentication(),
			option.WithHTTPClient(srv.Client()),
		)
	}

	llm := model.NewMockModel("mock", "mock").Script(
		model.FunctionCallResponse(core.FunctionCall{ID: "c1", Name: "list_tasks", Arguments: "{}"}),
		model.TextResponse("1. Buy milk, 2. Call Bob"),
		model.TextResponse("Task 2 is Call Bob."),
	)

	_, err := execute(t, AppOptions{
		ModelFactory:        mockFactory(llm),
		TasksServiceFactory: services,
		Stdin:               strings.NewReader("What's on my list?\nWhich one is number 2?\n"),
	}, "tasks")
	require.NoError(t, err)

	reqs := llm.Requests()
	require.Len(t, reqs, 3)

	assert.NotContains(t, reqs[0].Instructions, tasksListingTitle)
	assert.Contains(t, reqs[2].Instructions, tasksListingTitle+"\nYour Google To-Do List (pending tasks):\n1. Buy milk\n2. Call Bob")
}

func TestTasksCommand_AuthError(t *testing.T) {
	t.Setenv("TASKS_CREDENTIALS_FILE", filepath.Join(t.TempDir(), "missing.json"))

	_, err := execute(t, AppOptions{ModelFactory: mockFactory(model.NewMockModel("mock", "mock"))}, "tasks", "-m", "hi")
	require.Error(t, err)
	assert.ErrorIs(t, err, tasks.ErrCredentialsNotFound)
}

func TestDefaultModelFactory(t *testing.T) {
	ctx := t.Context()

	cfg := config.Default("a")
	cfg.Provider = "openai"
	cfg.Model = "gpt-4o"
	m, err := DefaultModelFactory(ctx, &cfg)
	require.NoError(t, err)
	assert.Equal(t, model.Info{Name: "gpt-4o", Provider: "openai", SupportsTools: true, SupportsVision: true}, m.Info())

	cfg.Provider = "anthropic"
	cfg.Model = "claude-3-5-haiku-latest"
	m, err = DefaultModelFactory(ctx, &cfg)
	require.NoError(t, err)
	assert.Equal(t, "anthropic", m.Info().Provider)
	assert.Equal(t, "claude-3-5-haiku-latest", m.Info().Name)

	cfg.Provider = "ollama"
	_, err = DefaultModelFactory(ctx, &cfg)
	assert.Error(t, err)
}

func TestDefaultModelFactory_GeminiRequiresKey(t *testing.T) {
	t.Setenv("GOOGLE_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "")

	cfg := config.Default("a")
	_, err := DefaultModelFactory(t.Context(), &cfg)
	require.Error(t, err)
}
