package favorites_tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/odoocal/internal/favorites"
	"github.com/teemow/odoocal/internal/instrumentation"
	"github.com/teemow/odoocal/internal/server"
	"github.com/teemow/odoocal/internal/tools/batch"
	"github.com/teemow/odoocal/internal/tools/common"
)

// RegisterFavoritesTools registers the favorite filter tools with the MCP
// server. Tools that change the server-side contact list are only
// registered when readOnly is false.
func RegisterFavoritesTools(s *mcpserver.MCPServer, sc *server.ServerContext, readOnly bool) error {
	listTool := mcp.NewTool("calendar_list_favorites",
		mcp.WithDescription("List the calendar filters: the current user, the favorite attendees and everybody's calendars"),
		mcp.WithBoolean("reload",
			mcp.Description("Reload the favorites from the server before listing (default: false)"),
		),
	)
	s.AddTool(listTool, common.InstrumentedToolHandlerWithService(
		"calendar_list_favorites", instrumentation.ServiceFavorites, "list", sc, handleListFavorites(sc)))

	if readOnly {
		return nil
	}

	addTool := mcp.NewTool("calendar_add_favorites",
		mcp.WithDescription("Add one or more partners to the favorite calendar filters"),
		mcp.WithArray("partner_ids",
			mcp.Required(),
			mcp.Description("Partner id or array of partner ids to add"),
			mcp.Items(map[string]any{"type": "integer"}),
		),
	)
	s.AddTool(addTool, common.InstrumentedToolHandlerWithService(
		"calendar_add_favorites", instrumentation.ServiceFavorites, instrumentation.MutationAdd, sc, handleAddFavorites(sc)))

	removeTool := mcp.NewTool("calendar_remove_favorite",
		mcp.WithDescription("Remove a partner from the favorite calendar filters. The current user and everybody's calendars cannot be removed."),
		mcp.WithNumber("partner_id",
			mcp.Required(),
			mcp.Description("Partner id of the filter to remove"),
		),
		mcp.WithBoolean("confirm",
			mcp.Required(),
			mcp.Description("Must be true: "+favorites.ConfirmRemoveMessage),
		),
	)
	s.AddTool(removeTool, common.InstrumentedToolHandlerWithService(
		"calendar_remove_favorite", instrumentation.ServiceFavorites, instrumentation.MutationRemove, sc, handleRemoveFavorite(sc)))

	return nil
}

func handleListFavorites(sc *server.ServerContext) common.ToolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		sync := sc.Favorites()
		if common.GetBool(request.GetArguments(), "reload") || len(sync.Filters()) == 0 {
			if err := sync.Init(ctx); err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("Failed to load favorites: %v", err)), nil
			}
		}
		return filtersResult(sync.Ordered())
	}
}

func handleAddFavorites(sc *server.ServerContext) common.ToolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ids, err := batch.ParseIDs(request.GetArguments()["partner_ids"], "partner_ids")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		sync := sc.Favorites()
		if len(sync.Filters()) == 0 {
			if err := sync.Init(ctx); err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("Failed to load favorites: %v", err)), nil
			}
		}

		if err := sync.CheckAddable(ids); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if err := sync.Add(ctx, ids); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return filtersResult(sync.Ordered())
	}
}

func handleRemoveFavorite(sc *server.ServerContext) common.ToolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()
		partnerID, err := common.RequireInt64(args, "partner_id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if !common.GetBool(args, "confirm") {
			return mcp.NewToolResultError("confirm must be true to remove a favorite"), nil
		}

		sync := sc.Favorites()
		err = sync.Remove(ctx, partnerID)
		switch {
		case errors.Is(err, favorites.ErrNotInitialized):
			return mcp.NewToolResultError("Favorites are not loaded yet, list them first"), nil
		case err != nil:
			return mcp.NewToolResultError(err.Error()), nil
		}
		return filtersResult(sync.Ordered())
	}
}

func filtersResult(entries []favorites.FilterEntry) (*mcp.CallToolResult, error) {
	result, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to encode favorites: %v", err)), nil
	}
	return mcp.NewToolResultText(string(result)), nil
}
