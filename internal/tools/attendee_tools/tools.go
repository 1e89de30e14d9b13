package attendee_tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/odoocal/internal/instrumentation"
	"github.com/teemow/odoocal/internal/server"
	"github.com/teemow/odoocal/internal/tools/batch"
	"github.com/teemow/odoocal/internal/tools/common"
)

// RegisterAttendeeTools registers the attendee tools with the MCP server.
// All of them are read-only.
func RegisterAttendeeTools(s *mcpserver.MCPServer, sc *server.ServerContext, _ bool) error {
	getTool := mcp.NewTool("calendar_get_attendees",
		mcp.WithDescription("Get the display name, participation status and color of event attendees"),
		mcp.WithArray("partner_ids",
			mcp.Required(),
			mcp.Description("Partner id or array of partner ids of the attendees"),
			mcp.Items(map[string]any{"type": "integer"}),
		),
		mcp.WithNumber("record_id",
			mcp.Description("Event id; participation statuses are read from this event"),
		),
	)
	s.AddTool(getTool, common.InstrumentedToolHandlerWithService(
		"calendar_get_attendees", instrumentation.ServiceAttendees, "get", sc, handleGetAttendees(sc)))

	return nil
}

func handleGetAttendees(sc *server.ServerContext) common.ToolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()
		ids, err := batch.ParseIDs(args["partner_ids"], "partner_ids")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		var recordID *int64
		if id, ok, err := common.GetInt64(args, "record_id"); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		} else if ok {
			recordID = &id
		}

		tags, err := sc.Attendees().Tags(ctx, ids, recordID)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to get attendees: %v", err)), nil
		}

		result, _ := json.MarshalIndent(tags, "", "  ")
		return mcp.NewToolResultText(string(result)), nil
	}
}
