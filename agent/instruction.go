package agent

import (
	"fmt"
	"strings"

	"github.com/hupe1980/bizagent/core"
)

// Instruction is the system text sent with every model call. Besides fixed
// text it can carry state sections: a section is appended under its heading
// once a tool has stored a non-empty value for its key, so the model sees
// facts gathered earlier in the session (e.g. the numbering of the last task
// listing).
type Instruction struct {
	text     string
	sections []stateSection
}

type stateSection struct {
	key     string
	heading string
}

// NewInstructionFromText creates an Instruction from a static string.
func NewInstructionFromText(text string) Instruction { return Instruction{text: text} }

// WithStateSection returns a copy of i that appends the session state value
// stored under key, introduced by heading.
func (i Instruction) WithStateSection(key, heading string) Instruction {
	i.sections = append(i.sections[:len(i.sections):len(i.sections)], stateSection{key: key, heading: heading})
	return i
}

// Resolve returns the instruction text for the run.
func (i Instruction) Resolve(runCtx *core.RunContext) (string, error) {
	if len(i.sections) == 0 {
		return i.text, nil
	}

	var b strings.Builder
	b.WriteString(i.text)

	for _, s := range i.sections {
		v, ok := runCtx.GetState(s.key)
		if !ok {
			continue
		}

		value := strings.TrimSpace(fmt.Sprint(v))
		if value == "" {
			continue
		}

		// The result is rendered as a template, so state text must not open actions.
		value = strings.ReplaceAll(value, "{{", `{{"{{"}}`)

		fmt.Fprintf(&b, "\n\n%s\n%s", s.heading, value)
	}

	return b.String(), nil
}
