package gemini

import (
	"github.com/google/generative-ai-go/genai"
	"github.com/hupe1980/bizagent/internal/util"
	"github.com/hupe1980/bizagent/model"
)

func toFunctionDeclarations(tools []model.ToolDefinition) []*genai.FunctionDeclaration {
	decls := make([]*genai.FunctionDeclaration, 0, len(tools))
	for _, t := range tools {
		decl := &genai.FunctionDeclaration{
			Name:        t.Function.Name,
			Description: t.Function.Description,
		}
		// Gemini rejects object schemas without properties.
		if s := toSchema(t.Function.Parameters); s != nil && len(s.Properties) > 0 {
			decl.Parameters = s
		}
		decls = append(decls, decl)
	}
	return decls
}

// toSchema converts the JSON-schema subset used by tools into a genai.Schema.
func toSchema(js map[string]any) *genai.Schema {
	if js == nil {
		return nil
	}

	s := &genai.Schema{Type: toType(js["type"])}

	if d, ok := js["description"].(string); ok {
		s.Description = d
	}

	if f, ok := js["format"].(string); ok {
		s.Format = f
	}

	switch enum := js["enum"].(type) {
	case []string:
		s.Enum = enum
	case []any:
		for _, e := range enum {
			if str, ok := e.(string); ok {
				s.Enum = append(s.Enum, str)
			}
		}
	}

	if items, ok := js["items"].(map[string]any); ok {
		s.Items = toSchema(items)
	}

	if props, ok := js["properties"].(map[string]any); ok {
		s.Properties = make(map[string]*genai.Schema, len(props))
		for name, raw := range props {
			if pm, ok := raw.(map[string]any); ok {
				s.Properties[name] = toSchema(pm)
			}
		}
	}

	s.Required = util.RequiredFields(js)

	return s
}

func toType(v any) genai.Type {
	t, _ := v.(string)
	switch t {
	case "string":
		return genai.TypeString
	case "number":
		return genai.TypeNumber
	case "integer":
		return genai.TypeInteger
	case "boolean":
		return genai.TypeBoolean
	case "array":
		return genai.TypeArray
	case "object":
		return genai.TypeObject
	default:
		return genai.TypeString
	}
}
