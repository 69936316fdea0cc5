// Package core provides the foundational domain types, interfaces and execution
// contexts shared by every bizagent component. It defines:
//
//   - Agents (a model, an instruction and a tool registry bound under one name)
//   - Sessions (per app/user conversational containers with event history)
//   - Events (immutable records of a turn: user input, model output, tool traffic)
//   - RunContext / ToolContext (scoped execution state handed to agents and tools)
//   - Pluggable stores for session state and artifacts
//
// Implementation concerns (persistence backends, model providers, concrete
// agents) live in sibling packages and depend on the small interfaces here.
package core
