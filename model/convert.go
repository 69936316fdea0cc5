package model

import (
	"encoding/json"
	"fmt"

	"github.com/hupe1980/bizagent/core"
)

// FunctionResponseText renders a tool result for providers that accept tool
// output as plain text. Errors are reported as {"error": "..."}.
func FunctionResponseText(fr core.FunctionResponse) string {
	if fr.Error != "" {
		b, _ := json.Marshal(map[string]string{"error": fr.Error})
		return string(b)
	}

	switch v := fr.Response.(type) {
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	case nil:
		return ""
	}

	b, err := json.Marshal(fr.Response)
	if err != nil {
		return fmt.Sprintf("%v", fr.Response)
	}

	return string(b)
}

// FunctionResponseObject renders a tool result as a JSON object for providers
// that require structured tool output. Non-object results are wrapped under
// "result"; errors under "error".
func FunctionResponseObject(fr core.FunctionResponse) map[string]any {
	if fr.Error != "" {
		return map[string]any{"error": fr.Error}
	}

	if m, ok := fr.Response.(map[string]any); ok {
		return m
	}

	if s, ok := fr.Response.(fmt.Stringer); ok {
		return map[string]any{"result": s.String()}
	}

	return map[string]any{"result": fr.Response}
}

// ParseArguments decodes the JSON argument string of a function call. An
// empty string yields an empty map.
func ParseArguments(fc core.FunctionCall) (map[string]any, error) {
	args := map[string]any{}
	if fc.Arguments == "" {
		return args, nil
	}

	if err := json.Unmarshal([]byte(fc.Arguments), &args); err != nil {
		return nil, fmt.Errorf("invalid arguments for %s: %w", fc.Name, err)
	}

	return args, nil
}
