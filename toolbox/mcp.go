package toolbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hupe1980/bizagent/core"
	"github.com/hupe1980/bizagent/tool"
)

const (
	mcpClientName    = "bizagent"
	mcpClientVersion = "dev"
)

// mcpSession pairs a session with the cancel func of its dial context.
type mcpSession struct {
	*mcpsdk.ClientSession
	cancel context.CancelFunc
}

func (c *Client) loadMCP(ctx context.Context, name string) ([]tool.Tool, error) {
	transport := &mcpsdk.StreamableClientTransport{
		Endpoint:   c.endpoint("mcp", name),
		HTTPClient: c.mcpHTTPClient(),
	}

	session, err := c.connect(ctx, transport)
	if err != nil {
		return nil, err
	}

	return c.toolsFromSession(ctx, session)
}

// connect opens an MCP session and keeps it for Close. The session outlives
// ctx; ctx only bounds the handshake.
func (c *Client) connect(ctx context.Context, transport mcpsdk.Transport) (*mcpsdk.ClientSession, error) {
	client := mcpsdk.NewClient(&mcpsdk.Implementation{Name: mcpClientName, Version: mcpClientVersion}, nil)

	dialCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			cancel()
		case <-done:
		}
	}()

	session, err := client.Connect(dialCtx, transport, nil)
	close(done)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("connect mcp: %w", err)
	}

	c.mu.Lock()
	c.sessions = append(c.sessions, mcpSession{ClientSession: session, cancel: cancel})
	c.mu.Unlock()

	return session, nil
}

// toolsFromSession lists the session's tools and wraps each one.
func (c *Client) toolsFromSession(ctx context.Context, session *mcpsdk.ClientSession) ([]tool.Tool, error) {
	var tools []tool.Tool

	for t, err := range session.Tools(ctx, nil) {
		if err != nil {
			return nil, fmt.Errorf("list mcp tools: %w", err)
		}
		if t == nil {
			continue
		}

		schema, err := schemaMap(t.InputSchema)
		if err != nil {
			return nil, fmt.Errorf("tool %s: %w", t.Name, err)
		}

		tools = append(tools, mcpTool(session, t.Name, t.Description, schema))
	}

	return tools, nil
}

func mcpTool(session *mcpsdk.ClientSession, name, description string, schema map[string]any) tool.Tool {
	return tool.NewFunctionTool(name, description, schema, func(tc *core.ToolContext, args map[string]any) (any, error) {
		res, err := session.CallTool(tc.Context(), &mcpsdk.CallToolParams{Name: name, Arguments: args})
		if err != nil {
			return nil, err
		}

		text := resultText(res)
		if res.IsError {
			return nil, errors.New(text)
		}

		if text == "" && res.StructuredContent != nil {
			return res.StructuredContent, nil
		}

		return text, nil
	})
}

func resultText(res *mcpsdk.CallToolResult) string {
	var parts []string
	for _, content := range res.Content {
		if t, ok := content.(*mcpsdk.TextContent); ok {
			parts = append(parts, t.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// schemaMap normalizes an MCP input schema into a plain JSON object.
func schemaMap(schema any) (map[string]any, error) {
	if schema == nil {
		return map[string]any{"type": "object", "properties": map[string]any{}}, nil
	}

	if m, ok := schema.(map[string]any); ok {
		return m, nil
	}

	raw, err := json.Marshal(schema)
	if err != nil {
		return nil, err
	}

	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}

	return m, nil
}

// mcpHTTPClient derives the streamable HTTP client: no overall timeout, since
// sessions keep a long-lived GET open, plus the configured headers.
func (c *Client) mcpHTTPClient() *http.Client {
	hc := *c.httpClient
	hc.Timeout = 0

	if len(c.headers) > 0 {
		base := hc.Transport
		if base == nil {
			base = http.DefaultTransport
		}
		hc.Transport = headerTransport{base: base, headers: c.headers}
	}

	return &hc
}

type headerTransport struct {
	base    http.RoundTripper
	headers map[string]string
}

func (h headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	for k, v := range h.headers {
		req.Header.Set(k, v)
	}
	return h.base.RoundTrip(req)
}
