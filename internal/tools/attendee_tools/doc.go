// Package attendee_tools exposes the attendee tags of calendar events as
// MCP tools.
package attendee_tools
