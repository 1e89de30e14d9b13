package rpc_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/odoocal/internal/rpc"
	"github.com/teemow/odoocal/internal/rpc/rpctest"
)

type countingIndicator struct {
	begins atomic.Int32
	ends   atomic.Int32
}

func (c *countingIndicator) Begin() { c.begins.Add(1) }
func (c *countingIndicator) End()   { c.ends.Add(1) }

func newClient(t *testing.T, srv *rpctest.Server, opts ...rpc.Option) *rpc.Client {
	t.Helper()
	c, err := rpc.NewClient(srv.URL, opts...)
	require.NoError(t, err)
	return c
}

func sessionResult(uid any) map[string]any {
	return map[string]any{
		"uid":          uid,
		"partner_id":   3,
		"name":         "Mitchell Admin",
		"db":           "prod",
		"username":     "admin@example.com",
		"user_context": map[string]any{"lang": "en_US", "tz": "Europe/Brussels"},
	}
}

func TestNewClient_Validation(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{"empty", "", true},
		{"bad scheme", "ftp://example.com", true},
		{"http", "http://localhost:8069", false},
		{"https with trailing slash", "https://odoo.example.com/", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := rpc.NewClient(tt.url)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.False(t, strings.HasSuffix(c.BaseURL(), "/"))
		})
	}
}

func TestClient_Authenticate(t *testing.T) {
	srv := rpctest.NewServer()
	defer srv.Close()

	srv.Handle("/web/session/authenticate", func(_ *http.Request, params json.RawMessage) (any, *rpc.Error) {
		var p struct {
			DB       string `json:"db"`
			Login    string `json:"login"`
			Password string `json:"password"`
		}
		_ = json.Unmarshal(params, &p)
		if p.Password != "secret" {
			return nil, &rpc.Error{Code: 200, Message: "Odoo Server Error", Data: &rpc.ErrorData{Name: "odoo.exceptions.AccessDenied", Message: "Access Denied"}}
		}
		return sessionResult(2), nil
	})

	c := newClient(t, srv)
	assert.Nil(t, c.Session())

	_, err := c.Authenticate(context.Background(), "prod", "admin@example.com", "wrong")
	require.Error(t, err)
	var rpcErr *rpc.Error
	require.True(t, errors.As(err, &rpcErr))
	assert.Equal(t, 200, rpcErr.Code)
	assert.Equal(t, "Access Denied", rpcErr.Data.Message)

	sess, err := c.Authenticate(context.Background(), "prod", "admin@example.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, int64(2), sess.UID)
	assert.Equal(t, int64(3), sess.PartnerID)
	assert.Equal(t, "Mitchell Admin", sess.Name)
	assert.True(t, sess.ValidFor("prod"))
	assert.False(t, sess.Anonymous())
	assert.Equal(t, sess, c.Session())
}

func TestClient_Authenticate_MasksPassword(t *testing.T) {
	srv := rpctest.NewServer()
	defer srv.Close()
	srv.HandleResult("/web/session/authenticate", sessionResult(2))

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	c := newClient(t, srv, rpc.WithLogger(logger))

	_, err := c.Authenticate(context.Background(), "prod", "admin@example.com", "hunter22")
	require.NoError(t, err)
	assert.NotContains(t, buf.String(), "hunter22")
	assert.NotContains(t, buf.String(), "admin@example.com")
	assert.Contains(t, buf.String(), "[secret:8 chars]")
}

func TestClient_Authenticate_FalseUID(t *testing.T) {
	srv := rpctest.NewServer()
	defer srv.Close()
	srv.HandleResult("/web/session/authenticate", sessionResult(false))

	c := newClient(t, srv)
	_, err := c.Authenticate(context.Background(), "prod", "admin@example.com", "x")
	assert.ErrorIs(t, err, rpc.ErrAuthenticationFailed)
	assert.Nil(t, c.Session())
}

func TestClient_SessionInfoAndLogout(t *testing.T) {
	srv := rpctest.NewServer()
	defer srv.Close()
	srv.HandleResult("/web/session/get_session_info", sessionResult(7))
	srv.HandleResult("/web/session/destroy", nil)

	ind := &countingIndicator{}
	c := newClient(t, srv, rpc.WithLoadingIndicator(ind))

	sess, err := c.SessionInfo(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(7), sess.UID)

	require.NoError(t, c.Logout(context.Background()))
	assert.Nil(t, c.Session())
	assert.Zero(t, ind.begins.Load(), "session housekeeping runs in shadow mode")
}

func TestClient_CallKW(t *testing.T) {
	srv := rpctest.NewServer()
	defer srv.Close()
	srv.HandleResult("/web/session/authenticate", sessionResult(2))
	srv.HandleResult("/web/dataset/call_kw/calendar.contacts/create", 41)

	c := newClient(t, srv)
	_, err := c.Authenticate(context.Background(), "prod", "admin@example.com", "secret")
	require.NoError(t, err)

	var id int64
	err = c.CallKW(context.Background(), "calendar.contacts", "create",
		[]any{map[string]any{"partner_id": 12}}, nil, &id)
	require.NoError(t, err)
	assert.Equal(t, int64(41), id)

	calls := srv.CallsTo("/web/dataset/call_kw/calendar.contacts/create")
	require.Len(t, calls, 1)
	assert.NotEmpty(t, calls[0].ID)

	var params struct {
		Model  string           `json:"model"`
		Method string           `json:"method"`
		Args   []map[string]int `json:"args"`
		Kwargs map[string]any   `json:"kwargs"`
	}
	require.NoError(t, json.Unmarshal(calls[0].Params, &params))
	assert.Equal(t, "calendar.contacts", params.Model)
	assert.Equal(t, "create", params.Method)
	assert.Equal(t, 12, params.Args[0]["partner_id"])
	assert.Contains(t, params.Kwargs, "context", "user context is merged into kwargs")
}

func TestClient_CallKW_RequiresModelAndMethod(t *testing.T) {
	srv := rpctest.NewServer()
	defer srv.Close()

	c := newClient(t, srv)
	assert.Error(t, c.CallKW(context.Background(), "", "create", nil, nil, nil))
	assert.Error(t, c.CallKW(context.Background(), "calendar.contacts", "", nil, nil, nil))
	assert.Empty(t, srv.Calls())
}

func TestClient_RequestIDsAreUnique(t *testing.T) {
	srv := rpctest.NewServer()
	defer srv.Close()
	srv.HandleResult("/calendar/notify", []any{})

	c := newClient(t, srv)
	for i := 0; i < 3; i++ {
		require.NoError(t, c.Call(context.Background(), "/calendar/notify", nil, nil, rpc.WithShadow()))
	}

	seen := map[string]bool{}
	for _, call := range srv.Calls() {
		assert.False(t, seen[call.ID], "duplicate request id %s", call.ID)
		seen[call.ID] = true
	}
}

func TestClient_ShadowCallsSkipIndicator(t *testing.T) {
	srv := rpctest.NewServer()
	defer srv.Close()
	srv.HandleResult("/calendar/notify", []any{})
	srv.HandleError("/calendar/notify_ack", &rpc.Error{Code: 200, Message: "boom"})

	tests := []struct {
		name       string
		route      string
		opts       []rpc.CallOption
		wantBegins int32
	}{
		{"shadow", "/calendar/notify", []rpc.CallOption{rpc.WithShadow()}, 0},
		{"foreground", "/calendar/notify", nil, 1},
		{"foreground error still ends", "/calendar/notify_ack", nil, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ind := &countingIndicator{}
			c := newClient(t, srv, rpc.WithLoadingIndicator(ind))

			_ = c.Call(context.Background(), tt.route, nil, nil, tt.opts...)
			assert.Equal(t, tt.wantBegins, ind.begins.Load())
			assert.Equal(t, ind.begins.Load(), ind.ends.Load(), "every Begin is paired with End")
		})
	}
}

func TestClient_ServerError(t *testing.T) {
	srv := rpctest.NewServer()
	defer srv.Close()
	srv.HandleError("/calendar/notify", &rpc.Error{Code: 100, Message: "Odoo Session Expired"})

	c := newClient(t, srv)
	err := c.Call(context.Background(), "/calendar/notify", nil, nil)

	var rpcErr *rpc.Error
	require.True(t, errors.As(err, &rpcErr))
	assert.Equal(t, 100, rpcErr.Code)
	assert.False(t, rpc.IsLocalAbort(err))
}

func TestClient_UnknownRoute(t *testing.T) {
	srv := rpctest.NewServer()
	defer srv.Close()

	c := newClient(t, srv)
	err := c.Call(context.Background(), "/nope", nil, nil)

	var rpcErr *rpc.Error
	require.True(t, errors.As(err, &rpcErr))
	assert.Equal(t, 404, rpcErr.Code)
}

func TestClient_LocalAbort(t *testing.T) {
	srv := rpctest.NewServer()
	defer srv.Close()

	release := make(chan struct{})
	defer close(release)
	srv.Handle("/calendar/notify", func(r *http.Request, _ json.RawMessage) (any, *rpc.Error) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
		return []any{}, nil
	})

	tests := []struct {
		name    string
		ctx     func() (context.Context, context.CancelFunc)
		wantErr error
	}{
		{
			name: "deadline",
			ctx: func() (context.Context, context.CancelFunc) {
				return context.WithTimeout(context.Background(), 20*time.Millisecond)
			},
			wantErr: context.DeadlineExceeded,
		},
		{
			name: "cancel",
			ctx: func() (context.Context, context.CancelFunc) {
				ctx, cancel := context.WithCancel(context.Background())
				time.AfterFunc(20*time.Millisecond, cancel)
				return ctx, cancel
			},
			wantErr: context.Canceled,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newClient(t, srv)
			ctx, cancel := tt.ctx()
			defer cancel()

			err := c.Call(ctx, "/calendar/notify", nil, nil, rpc.WithShadow())
			require.Error(t, err)
			assert.True(t, rpc.IsLocalAbort(err))
			assert.ErrorIs(t, err, tt.wantErr)

			var rpcErr *rpc.Error
			require.True(t, errors.As(err, &rpcErr))
			assert.Equal(t, rpc.CodeLocalAbort, rpcErr.Code)
		})
	}
}

func TestClient_HTTPStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer srv.Close()

	c, err := rpc.NewClient(srv.URL)
	require.NoError(t, err)

	err = c.Call(context.Background(), "/calendar/notify", nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
	assert.False(t, rpc.IsLocalAbort(err))
}

func TestClient_UnencodableParams(t *testing.T) {
	srv := rpctest.NewServer()
	defer srv.Close()

	c := newClient(t, srv)
	err := c.Call(context.Background(), "/calendar/notify", map[string]any{"bad": make(chan int)}, nil)
	require.Error(t, err)
	assert.Empty(t, srv.Calls(), "nothing is sent when params cannot be encoded")
}
