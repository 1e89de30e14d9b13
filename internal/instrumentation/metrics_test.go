package instrumentation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newManualMetrics(t *testing.T, detailed bool) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp.Meter("test"), detailed)
	require.NoError(t, err)
	return m, reader
}

func collectSum(t *testing.T, reader *sdkmetric.ManualReader, name string) map[attribute.Distinct]int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := make(map[attribute.Distinct]int64)
	for _, sm := range rm.ScopeMetrics {
		for _, md := range sm.Metrics {
			if md.Name != name {
				continue
			}
			sum, ok := md.Data.(metricdata.Sum[int64])
			require.True(t, ok, "metric %s is not an int64 sum", name)
			for _, dp := range sum.DataPoints {
				out[dp.Attributes.Equivalent()] += dp.Value
			}
		}
	}
	return out
}

func TestMetrics_RecordRPCCall(t *testing.T) {
	m, reader := newManualMetrics(t, false)
	ctx := context.Background()

	m.RecordRPCCall(ctx, "calendar.contacts.create", StatusSuccess, 20*time.Millisecond)
	m.RecordRPCCall(ctx, "calendar.contacts.create", StatusSuccess, 30*time.Millisecond)
	m.RecordRPCCall(ctx, "calendar.notify", StatusAborted, time.Second)

	got := collectSum(t, reader, "rpc_calls_total")
	created := attribute.NewSet(
		attribute.String("operation", "calendar.contacts.create"),
		attribute.String("status", StatusSuccess),
	)
	aborted := attribute.NewSet(
		attribute.String("operation", "calendar.notify"),
		attribute.String("status", StatusAborted),
	)
	assert.Equal(t, int64(2), got[created.Equivalent()])
	assert.Equal(t, int64(1), got[aborted.Equivalent()])
}

func TestMetrics_RPCInFlight(t *testing.T) {
	m, reader := newManualMetrics(t, false)
	ctx := context.Background()

	m.IncrementRPCInFlight(ctx)
	m.IncrementRPCInFlight(ctx)
	m.DecrementRPCInFlight(ctx)

	got := collectSum(t, reader, "rpc_requests_in_flight")
	empty := attribute.NewSet()
	assert.Equal(t, int64(1), got[empty.Equivalent()])
}

func TestMetrics_RecordNotificationPoll(t *testing.T) {
	m, reader := newManualMetrics(t, false)
	ctx := context.Background()

	m.RecordNotificationPoll(ctx, PollResultSuccess)
	m.RecordNotificationPoll(ctx, PollResultAborted)
	m.RecordNotificationPoll(ctx, PollResultAborted)
	m.RecordNotificationDisplayed(ctx)

	polls := collectSum(t, reader, "notification_polls_total")
	aborted := attribute.NewSet(attribute.String("result", PollResultAborted))
	succeeded := attribute.NewSet(attribute.String("result", PollResultSuccess))
	assert.Equal(t, int64(2), polls[aborted.Equivalent()])
	assert.Equal(t, int64(1), polls[succeeded.Equivalent()])
}

func TestMetrics_RecordFavoriteMutation(t *testing.T) {
	m, reader := newManualMetrics(t, false)
	ctx := context.Background()

	m.RecordFavoriteMutation(ctx, MutationAdd, StatusSuccess)
	m.RecordFavoriteMutation(ctx, MutationRemove, StatusError)

	got := collectSum(t, reader, "favorite_mutations_total")
	key := attribute.NewSet(
		attribute.String("operation", MutationRemove),
		attribute.String("status", StatusError),
	)
	assert.Equal(t, int64(1), got[key.Equivalent()])
}

func TestMetrics_ToolInvocationLabels(t *testing.T) {
	tests := []struct {
		name     string
		detailed bool
		want     attribute.Set
	}{
		{
			name:     "domain omitted by default",
			detailed: false,
			want: attribute.NewSet(
				attribute.String("tool", "calendar_list_favorites"),
				attribute.String("status", StatusSuccess),
			),
		},
		{
			name:     "domain attached with detailed labels",
			detailed: true,
			want: attribute.NewSet(
				attribute.String("tool", "calendar_list_favorites"),
				attribute.String("status", StatusSuccess),
				attribute.String("user_domain", "example.com"),
			),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, reader := newManualMetrics(t, tt.detailed)
			m.RecordToolInvocationWithLogin(context.Background(), "calendar_list_favorites", StatusSuccess, "admin@example.com", time.Millisecond)

			got := collectSum(t, reader, "mcp_tool_invocations_total")
			assert.Equal(t, int64(1), got[tt.want.Equivalent()])
		})
	}
}

func TestMetrics_NoopMeter(t *testing.T) {
	m, err := NewMetrics(noop.NewMeterProvider().Meter("test"), true)
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordHTTPRequest(ctx, "POST", "/mcp", 200, time.Millisecond)
	m.RecordRPCCall(ctx, "calendar.notify", StatusSuccess, time.Millisecond)
	m.RecordToolInvocation(ctx, "calendar_get_attendees", StatusError, time.Millisecond)
}

func TestMetrics_UninitializedIsSafe(t *testing.T) {
	ctx := context.Background()

	var nilMetrics *Metrics
	nilMetrics.RecordRPCCall(ctx, "x", StatusSuccess, 0)
	nilMetrics.IncrementRPCInFlight(ctx)
	nilMetrics.RecordNotificationPoll(ctx, PollResultError)

	empty := &Metrics{}
	empty.RecordHTTPRequest(ctx, "GET", "/healthz", 200, 0)
	empty.RecordFavoriteMutation(ctx, MutationAdd, StatusSuccess)
	empty.RecordNotificationDisplayed(ctx)
	empty.DecrementRPCInFlight(ctx)
	empty.RecordToolInvocation(ctx, "x", StatusSuccess, 0)
}
