// Package mcp exposes the read-only observability surface as MCP tools. The
// client is a thin proxy over the REST API so agents can inspect rooms,
// presence, and configuration without speaking the WebSocket protocol.
package mcp
