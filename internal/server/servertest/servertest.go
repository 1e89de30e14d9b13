// Package servertest builds a ServerContext authenticated against a fake
// calendar server.
package servertest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/teemow/odoocal/internal/calendar/calendartest"
	"github.com/teemow/odoocal/internal/rpc"
	"github.com/teemow/odoocal/internal/server"
)

// New returns a ServerContext logged in as calendartest.Login. configure
// may adjust the configuration before the context is built. Both are torn
// down with the test.
func New(t *testing.T, configure ...func(*server.Config)) (*server.ServerContext, *calendartest.Server) {
	t.Helper()
	srv := calendartest.NewServer()
	t.Cleanup(srv.Close)

	rc, err := rpc.NewClient(srv.URL)
	require.NoError(t, err)
	_, err = rc.Authenticate(context.Background(), calendartest.DB, calendartest.Login, calendartest.Password)
	require.NoError(t, err)

	cfg := server.Config{RPC: rc, NotifyInterval: time.Hour}
	for _, fn := range configure {
		fn(&cfg)
	}

	sc, err := server.NewServerContext(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sc.Shutdown() })
	return sc, srv
}
