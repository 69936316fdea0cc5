// Package toolbox loads named toolsets from a remote toolset service and
// exposes each remote tool as a tool.Tool.
//
// Two protocols are supported:
//   - ProtocolHTTP: the Toolbox native API. The manifest is fetched from
//     GET {base}/api/toolset/{name} and tools are invoked with
//     POST {base}/api/tool/{tool}/invoke.
//   - ProtocolMCP: the Model Context Protocol over streamable HTTP at
//     {base}/mcp/{name}.
//
// Loading is one blocking call made at start-up. There is no retry and no
// lazy loading; a connection failure is returned to the caller.
package toolbox
