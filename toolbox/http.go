package toolbox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"slices"

	"github.com/hupe1980/bizagent/core"
	"github.com/hupe1980/bizagent/tool"
)

// Manifest is the toolset description served by the native API.
type Manifest struct {
	ServerVersion string                  `json:"serverVersion"`
	Tools         map[string]ToolManifest `json:"tools"`
}

// ToolManifest describes one remote tool.
type ToolManifest struct {
	Description  string              `json:"description"`
	Parameters   []ParameterManifest `json:"parameters"`
	AuthRequired []string            `json:"authRequired,omitempty"`
}

// ParameterManifest describes one remote tool parameter.
type ParameterManifest struct {
	Name        string             `json:"name"`
	Type        string             `json:"type"`
	Description string             `json:"description"`
	Required    *bool              `json:"required,omitempty"`
	Items       *ParameterManifest `json:"items,omitempty"`
}

// schema converts the parameter list into a JSON schema object.
func (t ToolManifest) schema() map[string]any {
	props := make(map[string]any, len(t.Parameters))
	required := []string{}

	for _, p := range t.Parameters {
		props[p.Name] = p.schema()
		// Toolbox parameters are required unless marked otherwise.
		if p.Required == nil || *p.Required {
			required = append(required, p.Name)
		}
	}

	s := map[string]any{"type": "object", "properties": props}
	if len(required) > 0 {
		s["required"] = required
	}

	return s
}

func (p ParameterManifest) schema() map[string]any {
	s := map[string]any{"type": jsonType(p.Type)}
	if p.Description != "" {
		s["description"] = p.Description
	}
	if p.Items != nil {
		s["items"] = p.Items.schema()
	}
	return s
}

func jsonType(t string) string {
	switch t {
	case "float":
		return "number"
	case "int":
		return "integer"
	case "bool":
		return "boolean"
	case "":
		return "string"
	default:
		return t
	}
}

type invokeResponse struct {
	Result any    `json:"result"`
	Error  string `json:"error,omitempty"`
}

func (c *Client) loadHTTP(ctx context.Context, name string) ([]tool.Tool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint("api", "toolset", name), nil)
	if err != nil {
		return nil, err
	}

	var manifest Manifest
	if err := c.do(req, &manifest); err != nil {
		return nil, err
	}

	names := make([]string, 0, len(manifest.Tools))
	for n := range manifest.Tools {
		names = append(names, n)
	}
	slices.Sort(names)

	tools := make([]tool.Tool, 0, len(names))
	for _, n := range names {
		tools = append(tools, c.httpTool(n, manifest.Tools[n]))
	}

	return tools, nil
}

func (c *Client) httpTool(name string, m ToolManifest) tool.Tool {
	return tool.NewFunctionTool(name, m.Description, m.schema(), func(tc *core.ToolContext, args map[string]any) (any, error) {
		return c.invokeHTTP(tc.Context(), name, args)
	})
}

func (c *Client) invokeHTTP(ctx context.Context, name string, args map[string]any) (any, error) {
	body, err := json.Marshal(args)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("api", "tool", name, "invoke"), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	var out invokeResponse
	if err := c.do(req, &out); err != nil {
		return nil, err
	}

	if out.Error != "" {
		return nil, fmt.Errorf("tool %s: %s", name, out.Error)
	}

	return out.Result, nil
}

// do sends req and decodes a JSON body into v. Non-2xx answers become errors
// carrying the server's message.
func (c *Client) do(req *http.Request, v any) error {
	for k, val := range c.headers {
		req.Header.Set(k, val)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode == http.StatusNotFound && req.Method == http.MethodGet {
		return ErrToolsetNotFound
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e invokeResponse
		if json.Unmarshal(data, &e) == nil && e.Error != "" {
			return fmt.Errorf("status %d: %s", resp.StatusCode, e.Error)
		}
		return fmt.Errorf("status %d: %s", resp.StatusCode, bytes.TrimSpace(data))
	}

	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}
