// Package mcptools exposes the scheduling tools over the Model Context
// Protocol so MCP clients can drive the same executor the chat agent uses.
package mcptools
