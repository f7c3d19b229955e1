package tracing

import (
	"context"

	"github.com/google/uuid"
)

// ContextKey is the type for context keys
type ContextKey string

const (
	// TraceIDKey is the context key for trace ID
	TraceIDKey ContextKey = "trace_id"
	// OperationIDKey is the context key for a single save/append/load call
	OperationIDKey ContextKey = "operation_id"
	// SessionFileKey is the context key for the session file being worked on
	SessionFileKey ContextKey = "session_file"
	// SourceKey is the context key for what triggered the call (cli, shell, script, autosave)
	SourceKey ContextKey = "source"
)

// TraceContext holds tracing information
type TraceContext struct {
	TraceID     string
	OperationID string
	SessionFile string
	Source      string
}

// NewTraceID generates a new trace ID
func NewTraceID() string {
	return uuid.New().String()
}

// NewOperationID generates a new operation ID
func NewOperationID() string {
	return uuid.New().String()
}

// WithTraceID adds a trace ID to the context
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, TraceIDKey, traceID)
}

// WithOperationID adds an operation ID to the context
func WithOperationID(ctx context.Context, operationID string) context.Context {
	return context.WithValue(ctx, OperationIDKey, operationID)
}

// WithSessionFile adds the session file path to the context
func WithSessionFile(ctx context.Context, path string) context.Context {
	return context.WithValue(ctx, SessionFileKey, path)
}

// WithSource records what triggered the operation
func WithSource(ctx context.Context, source string) context.Context {
	return context.WithValue(ctx, SourceKey, source)
}

// GetTraceID retrieves the trace ID from the context
func GetTraceID(ctx context.Context) string {
	if traceID, ok := ctx.Value(TraceIDKey).(string); ok {
		return traceID
	}
	return ""
}

// GetOperationID retrieves the operation ID from the context
func GetOperationID(ctx context.Context) string {
	if id, ok := ctx.Value(OperationIDKey).(string); ok {
		return id
	}
	return ""
}

// GetSessionFile retrieves the session file from the context
func GetSessionFile(ctx context.Context) string {
	if path, ok := ctx.Value(SessionFileKey).(string); ok {
		return path
	}
	return ""
}

// GetSource retrieves the trigger source from the context
func GetSource(ctx context.Context) string {
	if source, ok := ctx.Value(SourceKey).(string); ok {
		return source
	}
	return ""
}

// FromContext extracts all tracing information from the context
func FromContext(ctx context.Context) *TraceContext {
	return &TraceContext{
		TraceID:     GetTraceID(ctx),
		OperationID: GetOperationID(ctx),
		SessionFile: GetSessionFile(ctx),
		Source:      GetSource(ctx),
	}
}

// NewContext creates a new context with tracing information
func NewContext(ctx context.Context, tc *TraceContext) context.Context {
	if tc.TraceID != "" {
		ctx = WithTraceID(ctx, tc.TraceID)
	}
	if tc.OperationID != "" {
		ctx = WithOperationID(ctx, tc.OperationID)
	}
	if tc.SessionFile != "" {
		ctx = WithSessionFile(ctx, tc.SessionFile)
	}
	if tc.Source != "" {
		ctx = WithSource(ctx, tc.Source)
	}
	return ctx
}

// NewOperationContext starts a new operation, keeping any trace ID already present
func NewOperationContext(ctx context.Context, source string) context.Context {
	if GetTraceID(ctx) == "" {
		ctx = WithTraceID(ctx, NewTraceID())
	}
	ctx = WithOperationID(ctx, NewOperationID())
	if source != "" {
		ctx = WithSource(ctx, source)
	}
	return ctx
}
