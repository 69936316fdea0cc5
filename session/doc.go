// Package session houses concrete implementations of core.SessionStore.
//
// The interface itself (and the Session struct) live in core so agents and
// flows never depend on a concrete backend. The CLI creates one store at
// start-up and hands it to the runner explicitly.
package session
