package tasks

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"google.golang.org/api/googleapi"
	tasksapi "google.golang.org/api/tasks/v1"

	"github.com/hupe1980/bizagent/logging"
)

const (
	// DefaultTaskList is the user's primary task list.
	DefaultTaskList = "@default"

	statusCompleted = "completed"
	maxResults      = 100
)

// Task is a pending task as shown to the user.
type Task struct {
	ID    string
	Title string
	Notes string
}

// ManagerOptions configures a Manager.
type ManagerOptions struct {
	TaskList string
	Logger   logging.Logger
}

// Manager lists, adds and completes tasks. It remembers the numbering of
// the last listing; completing a task invalidates it.
type Manager struct {
	svc      *tasksapi.Service
	taskList string
	logger   logging.Logger

	mu  sync.Mutex
	ids map[int]string // number -> Google task id
}

// NewManager creates a Manager over an authenticated Tasks service.
func NewManager(svc *tasksapi.Service, optFns ...func(o *ManagerOptions)) *Manager {
	opts := ManagerOptions{
		TaskList: DefaultTaskList,
		Logger:   logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Manager{
		svc:      svc,
		taskList: opts.TaskList,
		logger:   opts.Logger,
	}
}

// Pending fetches the pending tasks and refreshes the numbering.
func (m *Manager) Pending(ctx context.Context) ([]Task, error) {
	res, err := m.svc.Tasks.List(m.taskList).
		ShowCompleted(false).
		ShowHidden(false).
		MaxResults(maxResults).
		Context(ctx).
		Do()
	if err != nil {
		return nil, err
	}

	pending := make([]Task, 0, len(res.Items))
	ids := make(map[int]string, len(res.Items))

	for _, item := range res.Items {
		if item.Status == statusCompleted {
			continue
		}
		pending = append(pending, Task{ID: item.Id, Title: item.Title, Notes: item.Notes})
		ids[len(pending)] = item.Id
	}

	m.mu.Lock()
	m.ids = ids
	m.mu.Unlock()

	return pending, nil
}

// List renders the pending tasks with their numbers.
func (m *Manager) List(ctx context.Context) string {
	text, _ := m.listing(ctx)
	return text
}

// listing renders the pending tasks and reports whether the text carries a
// fresh numbering that complete_task can refer to.
func (m *Manager) listing(ctx context.Context) (string, bool) {
	pending, err := m.Pending(ctx)
	if err != nil {
		m.logger.Error("tasks.list.failed", "error", err.Error())
		return fmt.Sprintf("Error fetching tasks from Google Tasks: %v", err), false
	}

	if len(pending) == 0 {
		return "Your Google Tasks list is empty or all tasks are completed.", false
	}

	var b strings.Builder
	b.WriteString("Your Google To-Do List (pending tasks):\n")
	for i, t := range pending {
		fmt.Fprintf(&b, "%d. %s\n", i+1, t.Title)
	}
	b.WriteString("\nUse the number to refer to tasks for completion.")

	return b.String(), true
}

// Numbered reports whether a listing numbering is currently valid.
func (m *Manager) Numbered() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.ids) > 0
}

// Add creates a task. The numbering of the last listing stays valid.
func (m *Manager) Add(ctx context.Context, description string) string {
	description = strings.TrimSpace(description)
	if description == "" {
		return "Error: the task description must not be empty."
	}

	created, err := m.svc.Tasks.Insert(m.taskList, &tasksapi.Task{Title: description}).Context(ctx).Do()
	if err != nil {
		m.logger.Error("tasks.add.failed", "error", err.Error())
		return fmt.Sprintf("Error adding task '%s' to Google Tasks: %v", description, err)
	}

	m.logger.Info("tasks.add.completed", "id", created.Id)

	return fmt.Sprintf("Task '%s' added to Google Tasks with ID %s.", description, created.Id)
}

// Complete marks the task with the given number (from the last listing) as
// completed. Without a listing the tasks are fetched first.
func (m *Manager) Complete(ctx context.Context, number int) string {
	m.mu.Lock()
	empty := len(m.ids) == 0
	m.mu.Unlock()

	if empty {
		if _, err := m.Pending(ctx); err != nil {
			m.logger.Error("tasks.list.failed", "error", err.Error())
		}
	}

	m.mu.Lock()
	empty = len(m.ids) == 0
	id, ok := m.ids[number]
	m.mu.Unlock()

	if empty {
		return "Could not find tasks to complete. Please list tasks first."
	}

	if !ok {
		return fmt.Sprintf("Error: Task number %d not found in the current list. Please use 'list_tasks' to see available task numbers.", number)
	}

	current, err := m.svc.Tasks.Get(m.taskList, id).Context(ctx).Do()
	if err != nil {
		return m.completeError(err, id, number)
	}

	title := current.Title
	if title == "" {
		title = "Unknown Task"
	}

	if current.Status == statusCompleted {
		return fmt.Sprintf("Task '%s' (ID: %s) is already completed.", title, id)
	}

	if _, err := m.svc.Tasks.Patch(m.taskList, id, &tasksapi.Task{Id: id, Status: statusCompleted}).Context(ctx).Do(); err != nil {
		return m.completeError(err, id, number)
	}

	m.mu.Lock()
	m.ids = nil
	m.mu.Unlock()

	m.logger.Info("tasks.complete.completed", "id", id, "number", number)

	return fmt.Sprintf("Task '%s' (ID: %s) has been marked as completed in Google Tasks.", title, id)
}

func (m *Manager) completeError(err error, id string, number int) string {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound {
		return fmt.Sprintf("Error: Task with Google ID %s (number %d) not found in Google Tasks.", id, number)
	}

	m.logger.Error("tasks.complete.failed", "id", id, "error", err.Error())

	return fmt.Sprintf("Error completing task number %d: %v", number, err)
}
