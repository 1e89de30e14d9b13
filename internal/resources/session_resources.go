package resources

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/odoocal/internal/favorites"
	"github.com/teemow/odoocal/internal/notify"
	"github.com/teemow/odoocal/internal/server"
)

// Resource URIs
const (
	ProfileURI       = "session://profile"
	FavoritesURI     = "calendar://favorites"
	NotificationsURI = "calendar://notifications"
)

// Profile describes the authenticated session
type Profile struct {
	ServerURL string `json:"server_url"`
	DB        string `json:"db"`
	Login     string `json:"login"`
	Name      string `json:"name"`
	UID       int64  `json:"uid"`
	PartnerID int64  `json:"partner_id"`
	Polling   bool   `json:"polling"`
}

// RegisterSessionResources registers the read-only resources describing the
// current calendar session
func RegisterSessionResources(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	profileResource := mcp.NewResource(
		ProfileURI,
		"Current Session",
		mcp.WithResourceDescription("The calendar server, database and user of this session"),
		mcp.WithMIMEType("application/json"),
	)
	s.AddResource(profileResource, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return handleProfile(ctx, request, sc)
	})

	favoritesResource := mcp.NewResource(
		FavoritesURI,
		"Favorite Calendar Filters",
		mcp.WithResourceDescription("The favorite calendar filters in display order, as last loaded"),
		mcp.WithMIMEType("application/json"),
	)
	s.AddResource(favoritesResource, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return handleFavorites(ctx, request, sc)
	})

	notificationsResource := mcp.NewResource(
		NotificationsURI,
		"Shown Event Reminders",
		mcp.WithResourceDescription("Event reminders currently shown and not yet acknowledged"),
		mcp.WithMIMEType("application/json"),
	)
	s.AddResource(notificationsResource, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return handleNotifications(ctx, request, sc)
	})

	return nil
}

func handleProfile(_ context.Context, request mcp.ReadResourceRequest, sc *server.ServerContext) ([]mcp.ResourceContents, error) {
	session := sc.Session()
	return jsonContents(request.Params.URI, Profile{
		ServerURL: sc.RPC().BaseURL(),
		DB:        session.DB,
		Login:     session.Login,
		Name:      session.Name,
		UID:       session.UID,
		PartnerID: session.PartnerID,
		Polling:   sc.Polling(),
	})
}

// handleFavorites never triggers a load; an empty list means the filters
// have not been loaded yet.
func handleFavorites(_ context.Context, request mcp.ReadResourceRequest, sc *server.ServerContext) ([]mcp.ResourceContents, error) {
	entries := sc.Favorites().Ordered()
	if entries == nil {
		entries = []favorites.FilterEntry{}
	}
	return jsonContents(request.Params.URI, entries)
}

func handleNotifications(_ context.Context, request mcp.ReadResourceRequest, sc *server.ServerContext) ([]mcp.ResourceContents, error) {
	shown := sc.Notifications().List()
	if shown == nil {
		shown = []*notify.Notification{}
	}
	return jsonContents(request.Params.URI, shown)
}

func jsonContents(uri string, v any) ([]mcp.ResourceContents, error) {
	jsonData, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s: %w", uri, err)
	}

	return []mcp.ResourceContents{
		&mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(jsonData),
		},
	}, nil
}
