package tracing

import (
	"context"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

// fields lists the non-empty tracing values of tc as log field pairs.
func (tc *TraceContext) fields() [][2]string {
	var out [][2]string
	for _, f := range [][2]string{
		{"trace_id", tc.TraceID},
		{"operation_id", tc.OperationID},
		{"session_file", tc.SessionFile},
		{"source", tc.Source},
	} {
		if f[1] != "" {
			out = append(out, f)
		}
	}
	return out
}

// LoggerFromContext returns base enriched with the ids carried by ctx and,
// when a recording span is active, its span id.
func LoggerFromContext(ctx context.Context, base zerolog.Logger) zerolog.Logger {
	lc := base.With()
	for _, f := range FromContext(ctx).fields() {
		lc = lc.Str(f[0], f[1])
	}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		lc = lc.Str("span_id", sc.SpanID().String())
	}
	return lc.Logger()
}
