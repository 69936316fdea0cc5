package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/hupe1980/bizagent/core"
	"github.com/hupe1980/bizagent/internal/config"
	"github.com/hupe1980/bizagent/logging"
	"github.com/hupe1980/bizagent/model"
	"github.com/hupe1980/bizagent/model/anthropic"
	"github.com/hupe1980/bizagent/model/gemini"
	"github.com/hupe1980/bizagent/model/openai"
	"github.com/hupe1980/bizagent/repl"
	"github.com/hupe1980/bizagent/runner"
	"github.com/hupe1980/bizagent/tasks"
	"github.com/spf13/cobra"
	tasksapi "google.golang.org/api/tasks/v1"
)

const defaultUserID = "user"

// ModelFactory creates the language model for a command.
type ModelFactory func(ctx context.Context, cfg *config.Config) (model.Model, error)

// TasksServiceFactory creates an authenticated Google Tasks service.
type TasksServiceFactory func(ctx context.Context, auth tasks.AuthOptions) (*tasksapi.Service, error)

// AppOptions carries the injectable dependencies of every command.
type AppOptions struct {
	ModelFactory        ModelFactory
	TasksServiceFactory TasksServiceFactory
	EnvFile             string
	Stdin               io.Reader
	Stdout              io.Writer
	Stderr              io.Writer
}

func (o AppOptions) withDefaults() AppOptions {
	if o.ModelFactory == nil {
		o.ModelFactory = DefaultModelFactory
	}
	if o.TasksServiceFactory == nil {
		o.TasksServiceFactory = tasks.NewService
	}
	if o.EnvFile == "" {
		o.EnvFile = ".env"
	}
	if o.Stdin == nil {
		o.Stdin = os.Stdin
	}
	if o.Stdout == nil {
		o.Stdout = os.Stdout
	}
	if o.Stderr == nil {
		o.Stderr = os.Stderr
	}
	// One buffered reader shared by the OAuth prompt and the REPL.
	if _, ok := o.Stdin.(*bufio.Reader); !ok {
		o.Stdin = bufio.NewReader(o.Stdin)
	}
	return o
}

// DefaultModelFactory selects the provider named by the configuration.
func DefaultModelFactory(ctx context.Context, cfg *config.Config) (model.Model, error) {
	switch cfg.Provider {
	case "openai":
		return openai.NewModel(func(o *openai.Options) {
			if cfg.Model != "" {
				o.Model = cfg.Model
			}
			o.Temperature = cfg.Temperature
		}), nil
	case "anthropic":
		return anthropic.NewModel(func(o *anthropic.Options) {
			if cfg.Model != "" {
				o.Model = anthropicsdk.Model(cfg.Model)
			}
			o.Temperature = cfg.Temperature
		}), nil
	case "gemini":
		return gemini.NewModel(ctx, func(o *gemini.Options) {
			if cfg.Model != "" {
				o.Model = cfg.Model
			}
			o.Temperature = float32(cfg.Temperature)
			o.APIKey = cfg.GoogleAPIKey
		})
	default:
		return nil, fmt.Errorf("unsupported model provider %q", cfg.Provider)
	}
}

// app is the shared state a command builds once at start-up.
type app struct {
	opts   AppOptions
	cfg    *config.Config
	logger logging.Logger
	llm    model.Model
}

func setup(ctx context.Context, opts AppOptions, defaults config.Config) (*app, error) {
	opts = opts.withDefaults()

	cfg, err := config.Load(opts.EnvFile, defaults)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger := logging.New(&logging.Config{
		Level:     level,
		Format:    cfg.Log.Format,
		Output:    opts.Stderr,
		Component: cfg.AppName,
	})

	llm, err := opts.ModelFactory(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create model: %w", err)
	}

	logger.Debug("app.setup.completed", "app", cfg.AppName, "provider", cfg.Provider, "model", llm.Info().Name)

	return &app{opts: opts, cfg: cfg, logger: logger, llm: llm}, nil
}

// Close releases the model client when it holds one.
func (a *app) Close() error {
	if c, ok := a.llm.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func (a *app) runner(agent core.Agent) *runner.Runner {
	return runner.New(a.cfg.AppName, agent, func(o *runner.Options) {
		o.MaxModelCalls = a.cfg.MaxModelCalls
		o.Logger = a.logger
	})
}

type chatOptions struct {
	message        string
	banner         []string
	answerHeader   string
	sessionPerTurn bool
}

// chat answers one message or runs the interactive loop. With
// sessionPerTurn every message starts from an empty history.
func (a *app) chat(ctx context.Context, r *runner.Runner, c chatOptions) error {
	var sessionID string

	send := func(ctx context.Context, text string) ([]core.Event, error) {
		if sessionID == "" || c.sessionPerTurn {
			sess, err := r.CreateSession(defaultUserID)
			if err != nil {
				return nil, err
			}
			sessionID = sess.ID
		}

		_, events, err := r.RunSync(ctx, defaultUserID, sessionID, core.NewTextContent(core.RoleUser, text))
		return events, err
	}

	loop := &repl.Loop{
		In:           a.opts.Stdin,
		Out:          a.opts.Stdout,
		Send:         send,
		Prompt:       "You: ",
		AnswerHeader: c.answerHeader,
	}

	if c.message != "" {
		return loop.Turn(ctx, c.message)
	}

	for _, line := range c.banner {
		fmt.Fprintln(a.opts.Stdout, line)
	}

	return loop.Run(ctx)
}

func newRootCmd(opts AppOptions) *cobra.Command {
	root := &cobra.Command{
		Use:          "bizagent",
		Short:        "bizagent - business assistants for invoices, sales and to-dos",
		SilenceUsage: true,
	}

	envFile := opts.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	root.PersistentFlags().StringVar(&opts.EnvFile, "env-file", envFile, "Environment file loaded before reading configuration")

	root.AddCommand(
		newInvoiceCmd(&opts),
		newSalesCmd(&opts),
		newTasksCmd(&opts),
	)

	return root
}
