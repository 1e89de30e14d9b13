// Package favorites_tools exposes the calendar favorite filters as MCP
// tools.
//
// calendar_list_favorites is always available. calendar_add_favorites and
// calendar_remove_favorite change the contact list on the server and are
// only registered when the server runs with write access. Removal requires
// an explicit confirm argument.
package favorites_tools
