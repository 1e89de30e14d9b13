package cmd

import (
	"context"
	"testing"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/odoocal/internal/server/servertest"
	"github.com/teemow/odoocal/internal/tools/tooltest"
)

func TestRegisterAllTools(t *testing.T) {
	readOnlyTools := []string{
		"calendar_get_attendees",
		"calendar_list_favorites",
		"calendar_list_notifications",
		"calendar_open_notification",
		"calendar_recall_notification",
	}

	tests := []struct {
		name     string
		readOnly bool
		want     []string
	}{
		{
			name:     "read-only",
			readOnly: true,
			want:     readOnlyTools,
		},
		{
			name:     "yolo",
			readOnly: false,
			want: []string{
				"calendar_acknowledge_notification",
				"calendar_add_favorites",
				"calendar_get_attendees",
				"calendar_list_favorites",
				"calendar_list_notifications",
				"calendar_open_notification",
				"calendar_recall_notification",
				"calendar_remove_favorite",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sc, _ := servertest.New(t)
			s := mcpserver.NewMCPServer("test", "1.0.0",
				mcpserver.WithToolCapabilities(true),
				mcpserver.WithResourceCapabilities(false, false),
			)

			require.NoError(t, registerAllTools(s, sc, tt.readOnly))
			assert.Equal(t, tt.want, tooltest.ToolNames(t, s))
		})
	}
}

func TestRunServe_UnsupportedTransport(t *testing.T) {
	err := runServe(context.Background(), &serveOptions{Transport: "sse"})
	assert.ErrorContains(t, err, "unsupported transport type: sse")
}

func TestLoadServeEnvVars(t *testing.T) {
	tests := []struct {
		name  string
		env   map[string]string
		args  []string
		check func(t *testing.T, o *serveOptions)
	}{
		{
			name: "defaults",
			check: func(t *testing.T, o *serveOptions) {
				assert.True(t, o.MetricsEnabled)
				assert.Equal(t, ":9090", o.MetricsAddr)
				assert.Equal(t, "127.0.0.1:8080", o.HTTPAddr)
				assert.Empty(t, o.TLSCertFile)
			},
		},
		{
			name: "environment",
			env: map[string]string{
				"TLS_CERT_FILE":   "/etc/tls/cert.pem",
				"TLS_KEY_FILE":    "/etc/tls/key.pem",
				"METRICS_ENABLED": "false",
				"METRICS_ADDR":    "127.0.0.1:9191",
			},
			check: func(t *testing.T, o *serveOptions) {
				assert.Equal(t, "/etc/tls/cert.pem", o.TLSCertFile)
				assert.Equal(t, "/etc/tls/key.pem", o.TLSKeyFile)
				assert.False(t, o.MetricsEnabled)
				assert.Equal(t, "127.0.0.1:9191", o.MetricsAddr)
			},
		},
		{
			name: "flags win over environment",
			env: map[string]string{
				"METRICS_ENABLED": "false",
				"METRICS_ADDR":    "127.0.0.1:9191",
			},
			args: []string{"--metrics-enabled=true", "--metrics-addr=:9999"},
			check: func(t *testing.T, o *serveOptions) {
				assert.True(t, o.MetricsEnabled)
				assert.Equal(t, ":9999", o.MetricsAddr)
			},
		},
		{
			name: "invalid boolean keeps default",
			env:  map[string]string{"METRICS_ENABLED": "maybe"},
			check: func(t *testing.T, o *serveOptions) {
				assert.True(t, o.MetricsEnabled)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, key := range []string{"TLS_CERT_FILE", "TLS_KEY_FILE", "METRICS_ENABLED", "METRICS_ADDR"} {
				t.Setenv(key, tt.env[key])
			}

			cmd := newServeCmd()
			require.NoError(t, cmd.ParseFlags(tt.args))

			opts := &serveOptions{}
			opts.MetricsEnabled, _ = cmd.Flags().GetBool("metrics-enabled")
			opts.MetricsAddr, _ = cmd.Flags().GetString("metrics-addr")
			opts.HTTPAddr, _ = cmd.Flags().GetString("http-addr")
			opts.TLSCertFile, _ = cmd.Flags().GetString("tls-cert-file")
			opts.TLSKeyFile, _ = cmd.Flags().GetString("tls-key-file")

			loadServeEnvVars(cmd, opts)
			tt.check(t, opts)
		})
	}
}
