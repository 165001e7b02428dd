// Package tools groups the tool registry and the concrete tools an agent can
// call.
//
// It is organized into sub-packages:
//   - [github.com/germanamz/phoenix/pkg/tools/toolbox]: Registry, Factory and the typed Define helper
//   - [github.com/germanamz/phoenix/pkg/tools/memory]: read_memory and write_memory over a local file
//   - [github.com/germanamz/phoenix/pkg/tools/fetch]: fetch_url over HTTP
//   - [github.com/germanamz/phoenix/pkg/tools/mcpclient]: tools served by external MCP servers
//   - [github.com/germanamz/phoenix/pkg/tools/mcpserver]: exposes a Registry over the MCP protocol
//
// toolbox is the foundation layer. Every other sub-package produces factories
// for it or consumes a Registry, and none of them depend on each other.
package tools
