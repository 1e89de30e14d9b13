package common

import (
	"context"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/teemow/odoocal/internal/instrumentation"
	"github.com/teemow/odoocal/internal/server"
)

// ToolHandler is the signature of an MCP tool handler
type ToolHandler = func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error)

// InstrumentedToolHandler wraps a tool handler with tracing, metrics and
// audit logging.
//
// Usage:
//
//	s.AddTool(myTool, common.InstrumentedToolHandler("my_tool", sc, handler))
func InstrumentedToolHandler(toolName string, sc *server.ServerContext, handler ToolHandler) ToolHandler {
	return InstrumentedToolHandlerWithService(toolName, "", "", sc, handler)
}

// InstrumentedToolHandlerWithService is like InstrumentedToolHandler but also
// records the calendar service area and operation in the audit log.
//
// Usage:
//
//	s.AddTool(myTool, common.InstrumentedToolHandlerWithService("my_tool", "favorites", "add", sc, handler))
func InstrumentedToolHandlerWithService(
	toolName string,
	serviceName string,
	operation string,
	sc *server.ServerContext,
	handler ToolHandler,
) ToolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ctx, span := instrumentation.StartToolSpan(ctx, toolName,
			instrumentation.NewSpanAttributeBuilder().
				WithService(serviceName).
				WithOperation(operation).
				WithReadOnly(!instrumentation.IsWriteOperation(operation)).
				Build()...,
		)
		defer span.End()

		metrics := sc.Metrics()
		auditLogger := sc.AuditLogger()

		if metrics == nil && auditLogger == nil {
			result, err := handler(ctx, request)
			finishSpan(span, result, err)
			return result, err
		}

		session := sc.Session()
		start := time.Now()
		invocation := instrumentation.NewToolInvocation(toolName).
			WithSpanContext(ctx).
			WithUser(session.Login, session.DB)
		if serviceName != "" {
			invocation.WithService(serviceName, operation)
		}
		if target := GetTargetFromArgs(request.GetArguments()); target != "" {
			invocation.WithTarget(target)
		}

		result, err := handler(ctx, request)
		duration := time.Since(start)
		finishSpan(span, result, err)

		status := instrumentation.StatusSuccess
		switch {
		case err != nil:
			status = instrumentation.StatusError
			invocation.CompleteWithError(err)
		case result != nil && result.IsError:
			status = instrumentation.StatusError
			invocation.Complete(false, nil)
		default:
			invocation.CompleteSuccess()
		}

		if metrics != nil {
			metrics.RecordToolInvocationWithLogin(ctx, toolName, status, session.Login, duration)
		}
		if auditLogger != nil {
			auditLogger.LogToolInvocation(invocation)
		}

		return result, err
	}
}

func finishSpan(span trace.Span, result *mcp.CallToolResult, err error) {
	switch {
	case err != nil:
		instrumentation.SetSpanError(span, err)
	case result != nil && result.IsError:
		span.SetStatus(codes.Error, "tool returned an error result")
	default:
		instrumentation.SetSpanSuccess(span)
	}
}
