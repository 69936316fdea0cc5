package main

import (
	"context"

	"github.com/hupe1980/bizagent/agent"
	"github.com/hupe1980/bizagent/internal/config"
	"github.com/hupe1980/bizagent/tasks"
	"github.com/spf13/cobra"
)

const (
	tasksAgentName    = "agent_todo_google_tasks"
	tasksDefaultModel = "gemini-2.0-flash-001"
	tasksListingTitle = "Most recent task listing (numbers valid for 'complete_task'):"
	tasksDescription  = "A conversational agent to manage a to-do list using Google Tasks."
	tasksInstruction  = `You are a helpful to-do list assistant that interacts with Google Tasks.
You have tools to add, list, and complete tasks.
- To add a task, use the 'add_task' tool with the task description.
- To see your tasks, use the 'list_tasks' tool. This will show pending tasks with a number.
- To complete a task, use the 'complete_task' tool with the task's number (e.g., if 'list_tasks' shows "1. Buy milk", use 1 for 'task_number').
If the user refers to a task by description for completion, first list the tasks to help them find the correct number, then ask for the number.
Always confirm actions taken.
When listing tasks, inform the user that the numbers provided are for use with the 'complete_task' tool.
If 'complete_task' is called with a description, tell the user you need the task number from the list and suggest they list tasks first.`
)

func newTasksCmd(opts *AppOptions) *cobra.Command {
	var message string

	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "Manage a Google Tasks to-do list",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTasks(cmd.Context(), *opts, message)
		},
	}

	cmd.Flags().StringVarP(&message, "message", "m", "", "Single message to send")

	return cmd
}

func tasksDefaults() config.Config {
	cfg := config.Default("todo_agent")
	cfg.Model = tasksDefaultModel
	return cfg
}

func runTasks(ctx context.Context, opts AppOptions, message string) error {
	a, err := setup(ctx, opts, tasksDefaults())
	if err != nil {
		return err
	}
	defer a.Close()

	ag, err := newTasksAgent(ctx, a)
	if err != nil {
		return err
	}

	return a.chat(ctx, a.runner(ag), chatOptions{message: message})
}

func newTasksAgent(ctx context.Context, a *app) (*agent.ModelAgent, error) {
	svc, err := a.opts.TasksServiceFactory(ctx, tasks.AuthOptions{
		CredentialsFile: a.cfg.Tasks.CredentialsFile,
		TokenFile:       a.cfg.Tasks.TokenFile,
		In:              a.opts.Stdin,
		Out:             a.opts.Stdout,
	})
	if err != nil {
		return nil, err
	}

	manager := tasks.NewManager(svc, func(o *tasks.ManagerOptions) {
		o.Logger = a.logger
	})

	return agent.NewModelAgent(tasksAgentName, a.llm,
		agent.WithDescription(tasksDescription),
		agent.WithInstruction(tasksInstruction),
		agent.WithStateSection(tasks.StateLastListing, tasksListingTitle),
		agent.WithTemperature(a.cfg.Temperature),
		agent.WithTools(tasks.NewTools(manager)...),
	)
}
