// Package mcp exposes the context store over the Model Context Protocol.
//
// The server uses the MCP SDK (github.com/modelcontextprotocol/go-sdk/mcp)
// and calls the project registry, context stores, and issue listing service
// directly, registering one typed tool per operation. The transport is
// stdio, so editors and agents can run the daemon as a subprocess.
package mcp
