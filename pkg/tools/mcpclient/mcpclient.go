// Package mcpclient exposes the tools of a remote MCP server as registry
// factories.
package mcpclient

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"

	"github.com/germanamz/phoenix/pkg/tools/toolbox"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// MCPClient is a connected session with one MCP server.
type MCPClient struct {
	client  *mcp.Client
	session *mcp.ClientSession
}

// New spawns an MCP server process and returns a connected client.
// The SDK handles initialization automatically during Connect.
func New(ctx context.Context, command string, args ...string) (*MCPClient, error) {
	transport := &mcp.CommandTransport{
		Command: exec.Command(command, args...), //nolint:gosec // command comes from the operator's config
	}

	return newFromTransport(ctx, transport)
}

// NewSSE connects to an SSE-based MCP server at the given URL.
func NewSSE(ctx context.Context, url string) (*MCPClient, error) {
	transport := &mcp.SSEClientTransport{Endpoint: url}

	return newFromTransport(ctx, transport)
}

func newFromTransport(ctx context.Context, transport mcp.Transport) (*MCPClient, error) {
	client := mcp.NewClient(&mcp.Implementation{
		Name:    "phoenix",
		Version: "0.1.0",
	}, nil)

	session, err := client.Connect(ctx, transport, nil)
	if err != nil {
		return nil, fmt.Errorf("mcpclient: connect: %w", err)
	}

	return &MCPClient{client: client, session: session}, nil
}

// ListTools fetches the server's tools and wraps each one as a Factory whose
// invocations call back through CallTool.
func (c *MCPClient) ListTools(ctx context.Context) ([]toolbox.Factory, error) {
	result, err := c.session.ListTools(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("mcpclient: list tools: %w", err)
	}

	factories := make([]toolbox.Factory, 0, len(result.Tools))
	for _, sdkTool := range result.Tools {
		f, err := fromSDKTool(sdkTool, c)
		if err != nil {
			return nil, fmt.Errorf("mcpclient: convert tool %q: %w", sdkTool.Name, err)
		}
		factories = append(factories, f)
	}

	return factories, nil
}

// Register lists the server's tools and adds them to reg.
func (c *MCPClient) Register(ctx context.Context, reg *toolbox.Registry) error {
	factories, err := c.ListTools(ctx)
	if err != nil {
		return err
	}

	reg.Register(factories...)

	return nil
}

// CallTool calls a named tool on the server and returns its joined text
// content. A result flagged isError is returned as an error.
func (c *MCPClient) CallTool(ctx context.Context, name string, args map[string]any) (string, error) {
	result, err := c.session.CallTool(ctx, &mcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	if err != nil {
		return "", fmt.Errorf("mcpclient: call tool: %w", err)
	}

	text := extractText(result)

	if result.IsError {
		return "", fmt.Errorf("mcpclient: tool error: %s", text)
	}

	return text, nil
}

// Close terminates the session. For command transports the SDK closes the
// child's stdin and escalates to signals if it does not exit.
func (c *MCPClient) Close() error {
	return c.session.Close()
}

type remoteTool struct {
	client *MCPClient
	desc   toolbox.Descriptor
}

func (t *remoteTool) Descriptor() toolbox.Descriptor { return t.desc }

func (t *remoteTool) New(raw json.RawMessage) (toolbox.Handle, error) {
	var args map[string]any
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, toolbox.ArgErrorf("arguments must be a JSON object: %v", err)
	}
	if args == nil {
		args = map[string]any{}
	}

	return toolbox.HandleFunc(func(ctx context.Context) (toolbox.Result, error) {
		text, err := t.client.CallTool(ctx, t.desc.Name, args)
		if err != nil {
			return nil, err
		}

		return toResult(text), nil
	}), nil
}

func fromSDKTool(sdkTool *mcp.Tool, c *MCPClient) (toolbox.Factory, error) {
	var params json.RawMessage
	if sdkTool.InputSchema != nil {
		b, err := json.Marshal(sdkTool.InputSchema)
		if err != nil {
			return nil, fmt.Errorf("marshal input schema: %w", err)
		}
		params = b
	}

	return &remoteTool{
		client: c,
		desc: toolbox.Descriptor{
			Name:        sdkTool.Name,
			Description: sdkTool.Description,
			Parameters:  params,
		},
	}, nil
}

// toResult passes JSON object output through and wraps anything else.
func toResult(text string) toolbox.Result {
	var obj map[string]any
	if err := json.Unmarshal([]byte(text), &obj); err == nil && obj != nil {
		return obj
	}

	return toolbox.Result{"output": text}
}

// extractText joins all TextContent items from a CallToolResult with newlines.
func extractText(result *mcp.CallToolResult) string {
	var texts []string
	for _, item := range result.Content {
		if tc, ok := item.(*mcp.TextContent); ok {
			texts = append(texts, tc.Text)
		}
	}

	return strings.Join(texts, "\n")
}
