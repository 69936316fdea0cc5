package agent

import "fmt"

// BaseAgent bundles the identity shared by concrete agents. Embed it and
// supply a Run method to satisfy core.Agent.
type BaseAgent struct {
	name        string // Human-readable name, used as event author
	description string // What the agent is for
}

// NewBaseAgent constructs a BaseAgent with a generated description.
func NewBaseAgent(name string) BaseAgent {
	return BaseAgent{
		name:        name,
		description: fmt.Sprintf("Agent %s", name),
	}
}

// Name returns the human-readable name for this agent.
func (b *BaseAgent) Name() string { return b.name }

// Description returns a detailed description of this agent's purpose.
func (b *BaseAgent) Description() string { return b.description }

// SetDescription updates the agent's description.
func (b *BaseAgent) SetDescription(desc string) { b.description = desc }
