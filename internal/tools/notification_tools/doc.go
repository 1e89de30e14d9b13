// Package notification_tools exposes the event reminders shown by the
// notification poller as MCP tools: listing, opening and recalling them,
// and acknowledging them on the server when write access is enabled.
package notification_tools
