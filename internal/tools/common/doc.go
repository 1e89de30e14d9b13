// Package common provides the helpers shared by the MCP tool packages:
// the instrumentation wrapper applied to every handler and the parsing of
// record id arguments.
package common
