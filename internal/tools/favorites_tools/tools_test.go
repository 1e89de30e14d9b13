package favorites_tools

import (
	"context"
	"sync"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/odoocal/internal/calendar/calendartest"
	"github.com/teemow/odoocal/internal/favorites"
	"github.com/teemow/odoocal/internal/rpc"
	"github.com/teemow/odoocal/internal/server/servertest"
	"github.com/teemow/odoocal/internal/tools/tooltest"
)

const routeCreate = "/web/dataset/call_kw/calendar.contacts/create"

func values(entries []favorites.FilterEntry) []int64 {
	out := make([]int64, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Value)
	}
	return out
}

func TestRegisterFavoritesTools(t *testing.T) {
	sc, _ := servertest.New(t)

	tests := []struct {
		name     string
		readOnly bool
		want     []string
	}{
		{"read only", true, []string{"calendar_list_favorites"}},
		{"write", false, []string{"calendar_add_favorites", "calendar_list_favorites", "calendar_remove_favorite"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := mcpserver.NewMCPServer("test", "0.0.0", mcpserver.WithToolCapabilities(true))
			require.NoError(t, RegisterFavoritesTools(s, sc, tt.readOnly))
			assert.Equal(t, tt.want, tooltest.ToolNames(t, s))
		})
	}
}

func TestListFavorites(t *testing.T) {
	sc, srv := servertest.New(t)
	srv.AddPartner(12, "Bob")
	srv.AddPartner(7, "Alice")
	srv.AddContact(12)
	srv.AddContact(7)

	text, isErr := tooltest.Call(t, handleListFavorites(sc), nil)
	require.False(t, isErr, text)

	var entries []favorites.FilterEntry
	tooltest.Decode(t, text, &entries)
	assert.Equal(t, []int64{calendartest.PartnerID, 7, 12, favorites.EverybodyID}, values(entries))
	assert.Equal(t, calendartest.UserName+favorites.MeSuffix, entries[0].Label)
	assert.False(t, entries[0].CanBeRemoved)
	assert.True(t, entries[1].CanBeRemoved)

	// a contact added elsewhere only shows up on reload
	srv.AddPartner(20, "Carol")
	srv.AddContact(20)
	text, _ = tooltest.Call(t, handleListFavorites(sc), nil)
	tooltest.Decode(t, text, &entries)
	assert.NotContains(t, values(entries), int64(20))

	text, _ = tooltest.Call(t, handleListFavorites(sc), map[string]any{"reload": true})
	tooltest.Decode(t, text, &entries)
	assert.Contains(t, values(entries), int64(20))
}

func TestAddFavorites(t *testing.T) {
	sc, srv := servertest.New(t)
	srv.AddPartner(7, "Alice")
	srv.AddPartner(12, "Bob")
	srv.AddContact(7)

	text, isErr := tooltest.Call(t, handleAddFavorites(sc), map[string]any{
		"partner_ids": []any{float64(12), float64(calendartest.PartnerID)},
	})
	require.False(t, isErr, text)

	var entries []favorites.FilterEntry
	tooltest.Decode(t, text, &entries)
	assert.Equal(t, []int64{calendartest.PartnerID, 7, 12, favorites.EverybodyID}, values(entries))
	assert.Len(t, srv.CallsTo(routeCreate), 1, "own partner is never created")
	assert.Equal(t, []int64{7, 12}, srv.ContactPartnerIDs())
}

func TestAddFavorites_Rejected(t *testing.T) {
	tests := []struct {
		name    string
		args    map[string]any
		wantErr string
	}{
		{"missing ids", map[string]any{}, "partner_ids is required"},
		{"bad id", map[string]any{"partner_ids": "x"}, "partner_ids must be an integer"},
		{"already a favorite", map[string]any{"partner_ids": float64(7)}, "already a filter"},
		{"everybody", map[string]any{"partner_ids": []any{float64(12), float64(-1)}}, "already a filter"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sc, srv := servertest.New(t)
			srv.AddPartner(7, "Alice")
			srv.AddContact(7)

			text, isErr := tooltest.Call(t, handleAddFavorites(sc), tt.args)
			assert.True(t, isErr)
			assert.Contains(t, text, tt.wantErr)
			assert.Empty(t, srv.CallsTo(routeCreate))
		})
	}
}

func TestAddFavorites_FailedPartnerNotRetried(t *testing.T) {
	sc, srv := servertest.New(t)
	srv.AddPartner(12, "Bob")
	srv.AddPartner(15, "Dana")
	srv.FailCreate(12, &rpc.Error{Code: 200, Message: "Odoo Server Error"})

	text, isErr := tooltest.Call(t, handleAddFavorites(sc), map[string]any{"partner_ids": float64(12)})
	assert.True(t, isErr)
	assert.Contains(t, text, "failed to add favorites")

	srv.Reset()
	text, isErr = tooltest.Call(t, handleAddFavorites(sc), map[string]any{"partner_ids": float64(15)})
	require.False(t, isErr, text)
	assert.Len(t, srv.CallsTo(routeCreate), 1, "the failed partner is not retried")
	assert.Equal(t, []int64{15}, srv.ContactPartnerIDs())
}

func TestAddFavorites_Concurrent(t *testing.T) {
	for i := 0; i < 20; i++ {
		sc, srv := servertest.New(t)
		srv.AddPartner(12, "Bob")
		srv.AddPartner(13, "Carol")
		_, _ = tooltest.Call(t, handleListFavorites(sc), nil)
		srv.Reset()

		handler := handleAddFavorites(sc)
		results := make([]*mcp.CallToolResult, 2)
		errs := make([]error, 2)
		var wg sync.WaitGroup
		for n, id := range []int64{12, 13} {
			wg.Add(1)
			go func() {
				defer wg.Done()
				req := tooltest.Request("calendar_add_favorites", map[string]any{"partner_ids": float64(id)})
				results[n], errs[n] = handler(context.Background(), req)
			}()
		}
		wg.Wait()

		for n := range results {
			require.NoError(t, errs[n])
			require.NotNil(t, results[n])
			assert.False(t, results[n].IsError, "call %d failed", n)
		}
		assert.Len(t, srv.CallsTo(routeCreate), 2, "each partner is created once")
		assert.Equal(t, []int64{12, 13}, srv.ContactPartnerIDs())
	}
}

func TestRemoveFavorite(t *testing.T) {
	tests := []struct {
		name        string
		args        map[string]any
		wantErr     string
		wantContact []int64
	}{
		{
			name:        "removed",
			args:        map[string]any{"partner_id": float64(7), "confirm": true},
			wantContact: []int64{12},
		},
		{
			name:        "not confirmed",
			args:        map[string]any{"partner_id": float64(7)},
			wantErr:     "confirm must be true",
			wantContact: []int64{7, 12},
		},
		{
			name:        "own filter",
			args:        map[string]any{"partner_id": float64(calendartest.PartnerID), "confirm": true},
			wantErr:     "cannot be removed",
			wantContact: []int64{7, 12},
		},
		{
			name:        "everybody",
			args:        map[string]any{"partner_id": float64(-1), "confirm": true},
			wantErr:     "cannot be removed",
			wantContact: []int64{7, 12},
		},
		{
			name:        "unknown",
			args:        map[string]any{"partner_id": float64(99), "confirm": true},
			wantErr:     "unknown filter",
			wantContact: []int64{7, 12},
		},
		{
			name:        "missing id",
			args:        map[string]any{"confirm": true},
			wantErr:     "partner_id is required",
			wantContact: []int64{7, 12},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sc, srv := servertest.New(t)
			srv.AddPartner(7, "Alice")
			srv.AddPartner(12, "Bob")
			srv.AddContact(7)
			srv.AddContact(12)
			_, _ = tooltest.Call(t, handleListFavorites(sc), nil)

			text, isErr := tooltest.Call(t, handleRemoveFavorite(sc), tt.args)
			if tt.wantErr != "" {
				assert.True(t, isErr)
				assert.Contains(t, text, tt.wantErr)
			} else {
				require.False(t, isErr, text)
				var entries []favorites.FilterEntry
				tooltest.Decode(t, text, &entries)
				assert.NotContains(t, values(entries), int64(7))
			}
			assert.Equal(t, tt.wantContact, srv.ContactPartnerIDs())
		})
	}
}

func TestRemoveFavorite_BeforeList(t *testing.T) {
	sc, srv := servertest.New(t)
	srv.AddContact(7)

	text, isErr := tooltest.Call(t, handleRemoveFavorite(sc), map[string]any{"partner_id": float64(7), "confirm": true})
	assert.True(t, isErr)
	assert.Contains(t, text, "not loaded")
}
