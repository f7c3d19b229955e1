package tracing

import (
	"context"
	"testing"
)

func TestNewTraceID(t *testing.T) {
	id1 := NewTraceID()
	id2 := NewTraceID()

	if id1 == "" {
		t.Error("NewTraceID returned empty string")
	}

	if id1 == id2 {
		t.Error("NewTraceID returned duplicate IDs")
	}
}

func TestNewOperationID(t *testing.T) {
	id1 := NewOperationID()
	id2 := NewOperationID()

	if id1 == "" {
		t.Error("NewOperationID returned empty string")
	}

	if id1 == id2 {
		t.Error("NewOperationID returned duplicate IDs")
	}
}

func TestWithSessionFile(t *testing.T) {
	ctx := WithSessionFile(context.Background(), "/tmp/work.session")

	if got := GetSessionFile(ctx); got != "/tmp/work.session" {
		t.Errorf("Expected session file /tmp/work.session, got %s", got)
	}
}

func TestGettersEmpty(t *testing.T) {
	ctx := context.Background()

	if GetTraceID(ctx) != "" {
		t.Error("Expected empty trace ID")
	}
	if GetOperationID(ctx) != "" {
		t.Error("Expected empty operation ID")
	}
	if GetSessionFile(ctx) != "" {
		t.Error("Expected empty session file")
	}
	if GetSource(ctx) != "" {
		t.Error("Expected empty source")
	}
}

func TestFromContext(t *testing.T) {
	ctx := context.Background()
	ctx = WithTraceID(ctx, "trace-123")
	ctx = WithOperationID(ctx, "op-456")
	ctx = WithSessionFile(ctx, "/s/a.session")
	ctx = WithSource(ctx, "cli")

	tc := FromContext(ctx)

	if tc.TraceID != "trace-123" {
		t.Errorf("Expected trace ID trace-123, got %s", tc.TraceID)
	}
	if tc.OperationID != "op-456" {
		t.Errorf("Expected operation ID op-456, got %s", tc.OperationID)
	}
	if tc.SessionFile != "/s/a.session" {
		t.Errorf("Expected session file /s/a.session, got %s", tc.SessionFile)
	}
	if tc.Source != "cli" {
		t.Errorf("Expected source cli, got %s", tc.Source)
	}
}

func TestNewContext(t *testing.T) {
	tc := &TraceContext{TraceID: "trace-1", Source: "shell"}

	ctx := NewContext(context.Background(), tc)

	if GetTraceID(ctx) != "trace-1" {
		t.Error("Trace ID not set")
	}
	if GetSource(ctx) != "shell" {
		t.Error("Source not set")
	}
	if GetOperationID(ctx) != "" {
		t.Error("Operation ID should stay empty")
	}
}

func TestNewOperationContext(t *testing.T) {
	t.Run("generates trace and operation IDs", func(t *testing.T) {
		ctx := NewOperationContext(context.Background(), "cli")

		if GetTraceID(ctx) == "" {
			t.Error("Trace ID not generated")
		}
		if GetOperationID(ctx) == "" {
			t.Error("Operation ID not generated")
		}
		if GetSource(ctx) != "cli" {
			t.Errorf("Expected source cli, got %s", GetSource(ctx))
		}
	})

	t.Run("keeps existing trace ID", func(t *testing.T) {
		parent := WithTraceID(context.Background(), "trace-parent")
		ctx := NewOperationContext(parent, "")

		if GetTraceID(ctx) != "trace-parent" {
			t.Error("Existing trace ID was replaced")
		}
	})
}
