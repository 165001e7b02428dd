// Package mcpserver serves the tools of a Registry over the MCP protocol.
package mcpserver

import (
	"context"
	"io"

	"github.com/germanamz/phoenix/pkg/chats/content"
	"github.com/germanamz/phoenix/pkg/tools/toolbox"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// MCPServer serves registry tools using the official MCP Go SDK.
type MCPServer struct {
	server *mcp.Server
}

// New creates a new MCPServer with the given name and version.
func New(name, version string) *MCPServer {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    name,
		Version: version,
	}, nil)

	return &MCPServer{server: server}
}

// Register exposes every tool in reg. Calls are dispatched through
// reg.Call, so failures keep their {"error": ...} payload and are flagged
// isError.
func (s *MCPServer) Register(reg *toolbox.Registry) {
	for _, d := range reg.Descriptors() {
		s.server.AddTool(toSDKTool(d), toSDKHandler(reg, d.Name))
	}
}

// Serve reads requests from in and writes responses to out. It blocks until
// ctx is cancelled or the transport closes.
func (s *MCPServer) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	transport := &mcp.IOTransport{
		Reader: io.NopCloser(in),
		Writer: nopWriteCloser{out},
	}

	return s.run(ctx, transport)
}

// ServeStdio serves over the process's stdin and stdout.
func (s *MCPServer) ServeStdio(ctx context.Context) error {
	return s.run(ctx, &mcp.StdioTransport{})
}

func (s *MCPServer) run(ctx context.Context, transport mcp.Transport) error {
	return s.server.Run(ctx, transport)
}

func toSDKTool(d toolbox.Descriptor) *mcp.Tool {
	def := d.Definition()

	return &mcp.Tool{
		Name:        def.Function.Name,
		Description: def.Function.Description,
		InputSchema: def.Function.Parameters,
	}
}

func toSDKHandler(reg *toolbox.Registry, name string) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		res := reg.Call(ctx, content.ToolCall{
			Name:      name,
			Arguments: string(req.Params.Arguments),
		})

		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: res.Content}},
			IsError: res.IsError,
		}, nil
	}
}

// nopWriteCloser wraps an io.Writer as an io.WriteCloser with a no-op Close.
type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }
