// Package agent contains the model-driven agent used by the business
// assistants. A ModelAgent binds a name, description, instruction, model,
// temperature and an ordered set of uniquely named tools; it is immutable
// after construction and delegates each turn to a flow.SingleAgentFlow.
package agent
