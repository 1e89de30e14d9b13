package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetCategoryFromToolName(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"calendar_list_favorites", "Favorite Filter Tools"},
		{"calendar_remove_favorite", "Favorite Filter Tools"},
		{"calendar_acknowledge_notification", "Event Reminder Tools"},
		{"calendar_list_notifications", "Event Reminder Tools"},
		{"calendar_get_attendees", "Attendee Tools"},
		{"calendar", "Other"},
		{"server_version", "Other"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, getCategoryFromToolName(tt.name))
		})
	}
}

func TestGenerateToolMarkdown(t *testing.T) {
	tool := mcp.NewTool("calendar_remove_favorite",
		mcp.WithDescription("Remove a favorite"),
		mcp.WithNumber("partner_id", mcp.Required(), mcp.Description("Partner id")),
		mcp.WithBoolean("confirm"),
	)

	md := generateToolMarkdown(tool, true)
	assert.Equal(t, "### calendar_remove_favorite (write)\n\n"+
		"Remove a favorite\n\n"+
		"**Arguments:**\n"+
		"- `confirm` (optional): boolean parameter\n"+
		"- `partner_id` (required): Partner id\n\n", md)
}

func TestRunGenerateDocs(t *testing.T) {
	out := filepath.Join(t.TempDir(), "tools.md")
	require.NoError(t, runGenerateDocs(out))

	raw, err := os.ReadFile(out)
	require.NoError(t, err)
	md := string(raw)

	assert.True(t, strings.HasPrefix(md, "# MCP Tools Reference\n"))
	for _, section := range []string{"## Attendee Tools", "## Event Reminder Tools", "## Favorite Filter Tools"} {
		assert.Contains(t, md, section)
	}
	assert.Contains(t, md, "### calendar_add_favorites (write)")
	assert.Contains(t, md, "### calendar_list_favorites\n")
	assert.NotContains(t, md, "### calendar_list_favorites (write)")
}
