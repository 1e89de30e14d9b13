package notification_tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/odoocal/internal/calendar"
	"github.com/teemow/odoocal/internal/instrumentation"
	"github.com/teemow/odoocal/internal/notify"
	"github.com/teemow/odoocal/internal/server"
	"github.com/teemow/odoocal/internal/tools/batch"
	"github.com/teemow/odoocal/internal/tools/common"
)

// ListResult is the answer of calendar_list_notifications
type ListResult struct {
	Polling       bool                   `json:"polling"`
	Scheduled     int                    `json:"scheduled,omitempty"`
	Pending       int                    `json:"pending"`
	Notifications []*notify.Notification `json:"notifications"`
}

// OpenResult is the answer of calendar_open_notification
type OpenResult struct {
	EventID  int64           `json:"event_id"`
	URL      string          `json:"url"`
	EventURL string          `json:"event_url,omitempty"`
	Action   calendar.Action `json:"action"`
}

// RegisterNotificationTools registers the event reminder tools with the
// MCP server. Acknowledging reminders is only registered when readOnly is
// false.
func RegisterNotificationTools(s *mcpserver.MCPServer, sc *server.ServerContext, readOnly bool) error {
	listTool := mcp.NewTool("calendar_list_notifications",
		mcp.WithDescription("List the event reminders currently shown"),
		mcp.WithBoolean("poll",
			mcp.Description("Ask the server for due reminders before listing (default: false)"),
		),
	)
	s.AddTool(listTool, common.InstrumentedToolHandlerWithService(
		"calendar_list_notifications", instrumentation.ServiceNotifications, "list", sc, handleList(sc)))

	openTool := mcp.NewTool("calendar_open_notification",
		mcp.WithDescription("Open the event of a shown reminder and return its web client URL"),
		mcp.WithNumber("event_id",
			mcp.Required(),
			mcp.Description("Event id of the reminder"),
		),
	)
	s.AddTool(openTool, common.InstrumentedToolHandlerWithService(
		"calendar_open_notification", instrumentation.ServiceNotifications, "open", sc, handleOpen(sc)))

	recallTool := mcp.NewTool("calendar_recall_notification",
		mcp.WithDescription("Close a shown reminder without acknowledging it. It is shown again by a later poll."),
		mcp.WithNumber("event_id",
			mcp.Required(),
			mcp.Description("Event id of the reminder"),
		),
	)
	s.AddTool(recallTool, common.InstrumentedToolHandlerWithService(
		"calendar_recall_notification", instrumentation.ServiceNotifications, "recall", sc, handleRecall(sc)))

	if readOnly {
		return nil
	}

	ackTool := mcp.NewTool("calendar_acknowledge_notification",
		mcp.WithDescription("Close shown reminders and tell the server they were seen"),
		mcp.WithArray("event_ids",
			mcp.Required(),
			mcp.Description("Event id or array of event ids"),
			mcp.Items(map[string]any{"type": "integer"}),
		),
	)
	s.AddTool(ackTool, common.InstrumentedToolHandlerWithService(
		"calendar_acknowledge_notification", instrumentation.ServiceNotifications, instrumentation.OperationAcknowledge, sc, handleAcknowledge(sc)))

	return nil
}

func handleList(sc *server.ServerContext) common.ToolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var res ListResult
		if common.GetBool(request.GetArguments(), "poll") {
			res.Scheduled = sc.Poller().Poll(ctx)
		}
		res.Polling = sc.Polling()
		res.Pending = sc.Poller().Pending()
		res.Notifications = sc.Notifications().List()
		return jsonResult(res)
	}
}

func handleOpen(sc *server.ServerContext) common.ToolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		n, errResult := shownNotification(sc, request)
		if errResult != nil {
			return errResult, nil
		}

		action, err := n.Open(ctx)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		session := sc.Session()
		res := OpenResult{
			EventID: n.EventID,
			URL:     sc.RPC().BaseURL() + calendar.ActionURL(session.DB, action),
			Action:  action,
		}
		if u, ok := calendar.InvitationURL(&session, session.DB, n.EventID); ok {
			res.EventURL = sc.RPC().BaseURL() + u
		}
		return jsonResult(res)
	}
}

func handleRecall(sc *server.ServerContext) common.ToolHandler {
	return func(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		n, errResult := shownNotification(sc, request)
		if errResult != nil {
			return errResult, nil
		}
		n.Recall()
		return mcp.NewToolResultText(fmt.Sprintf("Reminder for event %d closed", n.EventID)), nil
	}
}

func handleAcknowledge(sc *server.ServerContext) common.ToolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ids, err := batch.ParseIDs(request.GetArguments()["event_ids"], "event_ids")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		results := batch.ProcessBatch(ids, func(id int64) (string, error) {
			n, ok := sc.Notifications().Get(notify.Tag(id))
			if !ok {
				return "", fmt.Errorf("no reminder shown for event %d", id)
			}
			n.Acknowledge(ctx)
			return "acknowledged", nil
		})
		return mcp.NewToolResultText(batch.FormatResults(results)), nil
	}
}

func shownNotification(sc *server.ServerContext, request mcp.CallToolRequest) (*notify.Notification, *mcp.CallToolResult) {
	eventID, err := common.RequireInt64(request.GetArguments(), "event_id")
	if err != nil {
		return nil, mcp.NewToolResultError(err.Error())
	}
	n, ok := sc.Notifications().Get(notify.Tag(eventID))
	if !ok {
		return nil, mcp.NewToolResultError(fmt.Sprintf("No reminder shown for event %d", eventID))
	}
	return n, nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	result, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(result)), nil
}
