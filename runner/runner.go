package runner

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/hupe1980/bizagent/artifact"
	"github.com/hupe1980/bizagent/core"
	"github.com/hupe1980/bizagent/logging"
	"github.com/hupe1980/bizagent/session"
)

var (
	// ErrRunNotFound is returned by Cancel for unknown or finished runs.
	ErrRunNotFound = errors.New("run not found")

	// ErrSessionScope is returned when a session belongs to a different
	// application or user than the one requesting the turn.
	ErrSessionScope = errors.New("session belongs to a different app or user")
)

// Options holds dependency + configuration overrides passed to New().
type Options struct {
	// EventBufferSize sets channel buffering for events.
	EventBufferSize int
	// MaxModelCalls limits the number of model calls per run.
	MaxModelCalls int
	// Session management services.
	SessionStore core.SessionStore
	// Artifact management services.
	ArtifactStore core.ArtifactStore
	// Logging services.
	Logger logging.Logger
}

// Runner coordinates agent execution: creates run contexts, streams
// events, applies side‑effects and persists history. Public methods are
// safe for concurrent use.
type Runner struct {
	appName string
	agent   core.Agent

	eventBufferSize int
	maxModelCalls   int

	sessionStore  core.SessionStore
	artifactStore core.ArtifactStore
	logger        logging.Logger

	activeRuns map[string]context.CancelFunc
	mu         sync.Mutex
}

// New constructs a Runner for the named application with optional overrides.
func New(appName string, agent core.Agent, optFns ...func(o *Options)) *Runner {
	opts := Options{
		EventBufferSize: 100,
		MaxModelCalls:   10,
		Logger:          logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.SessionStore == nil {
		opts.SessionStore = session.NewInMemoryStore()
	}

	if opts.ArtifactStore == nil {
		opts.ArtifactStore = artifact.NewInMemoryStore()
	}

	return &Runner{
		appName:         appName,
		agent:           agent,
		eventBufferSize: opts.EventBufferSize,
		maxModelCalls:   opts.MaxModelCalls,
		sessionStore:    opts.SessionStore,
		artifactStore:   opts.ArtifactStore,
		logger:          opts.Logger,
		activeRuns:      make(map[string]context.CancelFunc),
	}
}

// AppName returns the application name sessions are scoped by.
func (r *Runner) AppName() string { return r.appName }

// Agent returns the agent driven by this runner.
func (r *Runner) Agent() core.Agent { return r.agent }

// SessionStore returns the backing session store.
func (r *Runner) SessionStore() core.SessionStore { return r.sessionStore }

// ArtifactStore returns the backing artifact store.
func (r *Runner) ArtifactStore() core.ArtifactStore { return r.artifactStore }

// CreateSession creates a new session for the user in this application.
func (r *Runner) CreateSession(userID string) (*core.Session, error) {
	sess, err := r.sessionStore.Create(r.appName, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	r.logger.Debug("runner.session.created", "app", r.appName, "user", userID, "session", sess.ID)

	return sess, nil
}

// Run starts an asynchronous turn. Events are delivered in emission order
// on the first channel; the error channel yields at most one terminal error.
// Both channels are closed when the turn ends.
func (r *Runner) Run(
	ctx context.Context,
	userID string,
	sessionID string,
	userContent core.Content,
) (string, <-chan core.Event, <-chan error, error) {
	sess, err := r.sessionStore.Get(sessionID)
	if err != nil {
		return "", nil, nil, fmt.Errorf("failed to get session: %w", err)
	}

	if sess.AppName != r.appName || sess.UserID != userID {
		return "", nil, nil, fmt.Errorf("%w: %s", ErrSessionScope, sessionID)
	}

	runID := core.NewID()

	userEvent := core.NewUserContentEvent(runID, userContent)
	if err := r.sessionStore.AppendEvent(sessionID, userEvent); err != nil {
		return "", nil, nil, fmt.Errorf("failed to append user event: %w", err)
	}

	// The agent works on its own snapshot; the store is updated from the
	// event stream below.
	working := sess.Clone()
	working.AddEvent(userEvent)

	eventsCh := make(chan core.Event, r.eventBufferSize)
	errorsCh := make(chan error, 1)
	agentEmit := make(chan core.Event, r.eventBufferSize)
	agentDone := make(chan error, 1)

	ctx, cancel := context.WithCancel(ctx)
	r.mu.Lock()
	r.activeRuns[runID] = cancel
	r.mu.Unlock()

	runCtx := core.NewRunContext(
		ctx,
		working,
		runID,
		core.AgentInfo{Name: r.agent.Name(), Type: "model"},
		*userEvent.Content,
		agentEmit,
		core.RunContextOptions{
			SessionStore:  r.sessionStore,
			ArtifactStore: r.artifactStore,
			MaxModelCalls: r.maxModelCalls,
			Logger:        r.logger,
		},
	)

	r.logger.Debug("runner.run.start", "run", runID, "session", sessionID, "agent", r.agent.Name())

	go func() {
		defer close(agentEmit)
		agentDone <- r.agent.Run(runCtx)
	}()

	go func() {
		defer func() {
			cancel()
			r.mu.Lock()
			delete(r.activeRuns, runID)
			r.mu.Unlock()
			close(eventsCh)
			close(errorsCh)
		}()

		if err := r.processEvents(runCtx, cancel, sessionID, agentEmit, eventsCh); err != nil {
			errorsCh <- err
			return
		}

		if err := <-agentDone; err != nil {
			r.logger.Debug("runner.run.failed", "run", runID, "error", err.Error())
			errorsCh <- fmt.Errorf("agent execution failed: %w", err)
			return
		}

		r.logger.Debug("runner.run.complete", "run", runID)
	}()

	return runID, eventsCh, errorsCh, nil
}

// RunSync drains a turn and returns all events in order. A terminal error
// is returned together with the events collected before it.
func (r *Runner) RunSync(
	ctx context.Context,
	userID string,
	sessionID string,
	userContent core.Content,
) (string, []core.Event, error) {
	runID, eventsCh, errorsCh, err := r.Run(ctx, userID, sessionID, userContent)
	if err != nil {
		return "", nil, err
	}

	var events []core.Event
	for ev := range eventsCh {
		events = append(events, ev)
	}

	if err := <-errorsCh; err != nil {
		return runID, events, err
	}

	return runID, events, nil
}

// Cancel cancels a running run by ID.
func (r *Runner) Cancel(runID string) error {
	r.mu.Lock()
	cancel, exists := r.activeRuns[runID]
	r.mu.Unlock()

	if !exists {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}

	cancel()

	return nil
}

// processEvents persists and forwards agent events until the agent closes
// its emission channel. A store failure cancels the run; draining continues
// so the agent goroutine never blocks.
func (r *Runner) processEvents(
	runCtx *core.RunContext,
	cancel context.CancelFunc,
	sessionID string,
	agentEmit <-chan core.Event,
	eventsCh chan<- core.Event,
) error {
	var firstErr error

	for ev := range agentEmit {
		if firstErr != nil {
			continue
		}

		if err := r.persist(sessionID, ev); err != nil {
			firstErr = err
			cancel()
			continue
		}

		select {
		case <-runCtx.Done():
		case eventsCh <- ev:
			r.logger.Debug("runner.event.delivered", "event", ev.ID, "session", sessionID, "author", ev.Author)
		}
	}

	return firstErr
}

func (r *Runner) persist(sessionID string, ev core.Event) error {
	if ev.IsPartial() {
		return nil
	}

	if len(ev.Actions.StateDelta) > 0 {
		if err := r.sessionStore.ApplyDelta(sessionID, ev.Actions.StateDelta); err != nil {
			return fmt.Errorf("failed to apply state delta: %w", err)
		}
	}

	if err := r.sessionStore.AppendEvent(sessionID, ev); err != nil {
		return fmt.Errorf("failed to append event to session: %w", err)
	}

	if len(ev.Actions.ArtifactDelta) > 0 {
		for name, version := range ev.Actions.ArtifactDelta {
			r.logger.Debug("runner.event.artifact", "session", sessionID, "name", name, "version", version)
		}
	}

	return nil
}
