package toolbox

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/hupe1980/bizagent/logging"
	"github.com/hupe1980/bizagent/tool"
)

// Protocol selects how the client talks to the toolset service.
type Protocol string

const (
	ProtocolHTTP Protocol = "http"
	ProtocolMCP  Protocol = "mcp"
)

var (
	// ErrToolsetNotFound is returned when the service does not know the toolset.
	ErrToolsetNotFound = errors.New("toolset not found")

	// ErrUnsupportedProtocol is returned by NewClient for unknown protocols.
	ErrUnsupportedProtocol = errors.New("unsupported toolbox protocol")
)

// ParseProtocol maps a configuration value to a Protocol ("" means http).
func ParseProtocol(s string) (Protocol, error) {
	switch p := Protocol(strings.ToLower(strings.TrimSpace(s))); p {
	case "", ProtocolHTTP:
		return ProtocolHTTP, nil
	case ProtocolMCP:
		return ProtocolMCP, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedProtocol, s)
	}
}

// Options configures a Client.
type Options struct {
	Protocol   Protocol
	HTTPClient *http.Client
	Headers    map[string]string // sent with every HTTP request, e.g. auth tokens
	Logger     logging.Logger
}

// Client loads toolsets from one toolset service.
type Client struct {
	baseURL    *url.URL
	protocol   Protocol
	httpClient *http.Client
	headers    map[string]string
	logger     logging.Logger

	mu       sync.Mutex
	sessions []mcpSession
}

// NewClient creates a client for the service at baseURL.
func NewClient(baseURL string, optFns ...func(o *Options)) (*Client, error) {
	opts := Options{
		Protocol:   ProtocolHTTP,
		HTTPClient: &http.Client{Timeout: 60 * time.Second},
		Logger:     logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	u, err := url.Parse(strings.TrimRight(strings.TrimSpace(baseURL), "/"))
	if err != nil {
		return nil, fmt.Errorf("toolbox: invalid base url: %w", err)
	}

	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("toolbox: invalid base url %q", baseURL)
	}

	if opts.Protocol != ProtocolHTTP && opts.Protocol != ProtocolMCP {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedProtocol, opts.Protocol)
	}

	return &Client{
		baseURL:    u,
		protocol:   opts.Protocol,
		httpClient: opts.HTTPClient,
		headers:    opts.Headers,
		logger:     opts.Logger,
	}, nil
}

// LoadToolset fetches the named toolset and returns its tools in a stable
// (name-sorted) order.
func (c *Client) LoadToolset(ctx context.Context, name string) ([]tool.Tool, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("toolbox: toolset name is empty")
	}

	start := time.Now()

	var (
		tools []tool.Tool
		err   error
	)

	switch c.protocol {
	case ProtocolMCP:
		tools, err = c.loadMCP(ctx, name)
	default:
		tools, err = c.loadHTTP(ctx, name)
	}

	if err != nil {
		c.logger.Error("toolbox.load.failed", "toolset", name, "protocol", string(c.protocol), "error", err.Error())
		return nil, fmt.Errorf("toolbox: load toolset %s: %w", name, err)
	}

	c.logger.Info("toolbox.load.completed", "toolset", name, "protocol", string(c.protocol), "tools", len(tools), "duration_ms", time.Since(start).Milliseconds())

	return tools, nil
}

// Close releases MCP sessions opened by LoadToolset.
func (c *Client) Close() error {
	c.mu.Lock()
	sessions := c.sessions
	c.sessions = nil
	c.mu.Unlock()

	var errs []error
	for _, s := range sessions {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
		s.cancel()
	}

	return errors.Join(errs...)
}

// endpoint appends segments to the base path. Each segment is escaped on its
// own, so a "/" inside a name stays part of that name.
func (c *Client) endpoint(segments ...string) string {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + "/" + strings.Join(segments, "/")
	u.RawPath = strings.TrimRight(c.baseURL.EscapedPath(), "/") + "/" + strings.Join(escapeAll(segments), "/")
	return u.String()
}

func escapeAll(segments []string) []string {
	out := make([]string, len(segments))
	for i, s := range segments {
		out[i] = url.PathEscape(s)
	}
	return out
}
