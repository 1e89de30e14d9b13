// Package cmd implements the command-line interface for odoocal.
//
// This package provides the following commands:
//   - favorites: List, add and remove the favorite calendar filters
//   - watch: Print event reminders as they become due
//   - attendees: Show attendee tags with their participation status
//   - serve: Start the MCP server to provide tools for AI assistants
//   - version: Display version information
//   - generate-docs: Generate markdown documentation for all MCP tools
//
// All commands that talk to the server share the connection flags of the
// root command.
package cmd
