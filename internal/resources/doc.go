// Package resources provides MCP resources for the calendar session.
// Resources are read-only data sources that MCP clients can fetch: the
// session profile, the favorite filters as last loaded and the reminders
// currently shown.
package resources
