// Package testutil contains helper builders used across tests to reduce
// boilerplate when constructing sessions, events and tool parts. Not for
// production use.
package testutil
