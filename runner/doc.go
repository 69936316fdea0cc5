// Package runner drives one agent through conversation turns.
//
// A Runner owns the session and artifact stores for an application. Each
// Run appends the user message to the session, hands the agent a working
// snapshot of it, streams the agent's events back to the caller and
// persists every non-partial event (plus its state delta) in the store.
//
// # Responsibilities
//   - Session lookup and scoping by application name / user id
//   - Event streaming (async) and a synchronous collecting helper
//   - Session history persistence and state delta application
//   - Run lifecycle management and cancellation
package runner
