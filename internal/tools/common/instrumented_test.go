package common

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric/noop"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/teemow/odoocal/internal/calendar/calendartest"
	"github.com/teemow/odoocal/internal/instrumentation"
	"github.com/teemow/odoocal/internal/server"
	"github.com/teemow/odoocal/internal/server/servertest"
)

func callRequest(args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

func TestInstrumentedToolHandler_WithoutInstrumentation(t *testing.T) {
	sc, _ := servertest.New(t)

	tests := []struct {
		name      string
		handler   ToolHandler
		wantErr   error
		wantIsErr bool
	}{
		{
			name: "success",
			handler: func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				return mcp.NewToolResultText("success"), nil
			},
		},
		{
			name: "error result",
			handler: func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				return mcp.NewToolResultError("error message"), nil
			},
			wantIsErr: true,
		},
		{
			name: "go error",
			handler: func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				return nil, errTest
			},
			wantErr: errTest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := InstrumentedToolHandler("test_tool", sc, tt.handler)(context.Background(), mcp.CallToolRequest{})
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, result)
			assert.Equal(t, tt.wantIsErr, result.IsError)
		})
	}
}

var errTest = errors.New("calendar error")

func TestInstrumentedToolHandlerWithService_Audit(t *testing.T) {
	metrics, err := instrumentation.NewMetrics(noop.NewMeterProvider().Meter("test"), false)
	require.NoError(t, err)
	sc, _ := servertest.New(t, func(c *server.Config) { c.Metrics = metrics })

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	sc.SetAuditLogger(instrumentation.NewAuditLoggerWithConfig(logger, instrumentation.AuditLoggingConfig{
		Enabled:    true,
		IncludePII: true,
	}))

	handler := func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return mcp.NewToolResultText("removed"), nil
	}
	wrapped := InstrumentedToolHandlerWithService("calendar_remove_favorite",
		instrumentation.ServiceFavorites, instrumentation.MutationRemove, sc, handler)

	result, err := wrapped(context.Background(), callRequest(map[string]any{"partner_id": float64(7)}))
	require.NoError(t, err)
	assert.False(t, result.IsError)

	out := buf.String()
	assert.Contains(t, out, `"msg":"tool_executed"`)
	assert.Contains(t, out, `"tool":"calendar_remove_favorite"`)
	assert.Contains(t, out, `"user":"`+calendartest.Login+`"`)
	assert.Contains(t, out, `"database":"`+calendartest.DB+`"`)
	assert.Contains(t, out, `"service":"favorites"`)
	assert.Contains(t, out, `"target":"7"`)
}

func TestInstrumentedToolHandlerWithService_AuditFailure(t *testing.T) {
	sc, _ := servertest.New(t)

	var buf bytes.Buffer
	sc.SetAuditLogger(instrumentation.NewAuditLogger(slog.New(slog.NewJSONHandler(&buf, nil))))

	handler := func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return nil, errTest
	}
	wrapped := InstrumentedToolHandlerWithService("calendar_open_notification",
		instrumentation.ServiceNotifications, "open", sc, handler)

	_, err := wrapped(context.Background(), mcp.CallToolRequest{})
	assert.ErrorIs(t, err, errTest)

	out := buf.String()
	assert.Contains(t, out, `"msg":"tool_failed"`)
	assert.Contains(t, out, `"error":"calendar error"`)
	assert.Contains(t, out, `"user_domain":"example.com"`)
	assert.NotContains(t, out, calendartest.Login)
}

func TestInstrumentedToolHandler_ReadOnlySpanAttribute(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})

	sc, _ := servertest.New(t)
	handler := func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return mcp.NewToolResultText("ok"), nil
	}

	tests := []struct {
		tool      string
		operation string
		readOnly  bool
	}{
		{"calendar_list_favorites", "list", true},
		{"calendar_add_favorites", instrumentation.MutationAdd, false},
		{"calendar_acknowledge_notification", instrumentation.OperationAcknowledge, false},
	}

	for _, tt := range tests {
		t.Run(tt.tool, func(t *testing.T) {
			before := len(sr.Ended())
			_, err := InstrumentedToolHandlerWithService(tt.tool, instrumentation.ServiceFavorites, tt.operation, sc, handler)(
				context.Background(), mcp.CallToolRequest{})
			require.NoError(t, err)

			spans := sr.Ended()[before:]
			require.Len(t, spans, 1)
			found := false
			for _, a := range spans[0].Attributes() {
				if string(a.Key) == instrumentation.SpanAttrReadOnly {
					found = true
					assert.Equal(t, tt.readOnly, a.Value.AsBool())
				}
			}
			assert.True(t, found, "read-only attribute missing")
		})
	}
}

func TestGetTargetFromArgs(t *testing.T) {
	tests := []struct {
		name string
		args map[string]any
		want string
	}{
		{"none", map[string]any{}, ""},
		{"partner", map[string]any{"partner_id": float64(7)}, "7"},
		{"event as string", map[string]any{"event_id": "42"}, "42"},
		{"partner wins", map[string]any{"event_id": float64(42), "partner_id": float64(7)}, "7"},
		{"invalid is skipped", map[string]any{"partner_id": "x", "record_id": float64(9)}, "9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GetTargetFromArgs(tt.args))
		})
	}
}

func TestGetInt64(t *testing.T) {
	args := map[string]any{"id": float64(5), "bad": "five", "nil": nil}

	id, ok, err := GetInt64(args, "id")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(5), id)

	_, ok, err = GetInt64(args, "missing")
	assert.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = GetInt64(args, "nil")
	assert.NoError(t, err)
	assert.False(t, ok)

	_, _, err = GetInt64(args, "bad")
	assert.EqualError(t, err, "bad must be an integer")

	_, err = RequireInt64(args, "missing")
	assert.EqualError(t, err, "missing is required")
}

func TestGetBool(t *testing.T) {
	args := map[string]any{"yes": true, "str": "true"}
	assert.True(t, GetBool(args, "yes"))
	assert.False(t, GetBool(args, "str"))
	assert.False(t, GetBool(args, "missing"))
}
