package testutil

import (
	"github.com/hupe1980/bizagent/core"
)

// SessionBuilder helps construct sessions with fluent chaining for tests.
// Example:
//
//	sess := NewSessionBuilder("sess-1").State("k", "v").Events(ev1, ev2).Build()
type SessionBuilder struct {
	id      string
	appName string
	userID  string
	state   map[string]any
	events  []core.Event
}

// NewSessionBuilder creates a new builder for a session with the given id.
func NewSessionBuilder(id string) *SessionBuilder {
	return &SessionBuilder{id: id, appName: "test_app", userID: "user", state: map[string]any{}}
}

// App sets the owning application name.
func (b *SessionBuilder) App(name string) *SessionBuilder { b.appName = name; return b }

// User sets the owning user ID.
func (b *SessionBuilder) User(id string) *SessionBuilder { b.userID = id; return b }

// State sets a state key/value pair on the resulting session.
func (b *SessionBuilder) State(key string, val any) *SessionBuilder {
	b.state[key] = val
	return b
}

// Events appends events to the session history.
func (b *SessionBuilder) Events(evs ...core.Event) *SessionBuilder {
	b.events = append(b.events, evs...)
	return b
}

// Build returns a *core.Session with pre-populated state and events.
func (b *SessionBuilder) Build() *core.Session {
	s := core.NewSession(b.id, b.appName, b.userID)

	for k, v := range b.state {
		s.State[k] = v
	}

	s.Events = append(s.Events, b.events...)

	return s
}
