package observability

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// AuditEvent is one line of the session journal.
type AuditEvent struct {
	Type      string                 `json:"event_type"`
	Timestamp time.Time              `json:"timestamp"`
	Source    string                 `json:"source,omitempty"` // cli, shell, autosave, script
	Action    string                 `json:"action"`           // save, append, load
	Path      string                 `json:"path,omitempty"`
	Status    string                 `json:"status"` // "success", "failure"
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	TraceID   string                 `json:"trace_id,omitempty"`
}

// AuditLogger appends session events as JSON lines.
type AuditLogger struct {
	logger zerolog.Logger
	mu     sync.Mutex
	file   *os.File
}

var (
	auditMu   sync.RWMutex
	auditInst = &AuditLogger{logger: zerolog.Nop()}
)

// GetAuditLogger returns the global journal. It discards events until
// InitAuditLogger is called.
func GetAuditLogger() *AuditLogger {
	auditMu.RLock()
	defer auditMu.RUnlock()
	return auditInst
}

// InitAuditLogger points the global journal at path, creating parent
// directories as needed. The previous journal file, if any, is closed.
func InitAuditLogger(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return err
	}
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}

	auditMu.Lock()
	prev := auditInst
	auditInst = &AuditLogger{
		logger: zerolog.New(file).With().Timestamp().Logger(),
		file:   file,
	}
	auditMu.Unlock()

	return prev.Close()
}

// Record writes event to the journal and adds it to the active span.
func (a *AuditLogger) Record(ctx context.Context, event AuditEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		event.TraceID = span.SpanContext().TraceID().String()

		span.AddEvent(event.Action, trace.WithAttributes(
			attribute.String("audit.type", event.Type),
			attribute.String("audit.status", event.Status),
			attribute.String("audit.source", event.Source),
		))
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	entry := a.logger.Log().
		Str("type", event.Type).
		Str("source", event.Source).
		Str("action", event.Action).
		Str("path", event.Path).
		Str("status", event.Status)
	if event.TraceID != "" {
		entry.Str("trace_id", event.TraceID)
	}

	if event.Metadata != nil {
		entry.Interface("metadata", event.Metadata)
	}

	entry.Msg("")
}

// Close closes the journal file.
func (a *AuditLogger) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.file != nil {
		err := a.file.Close()
		a.file = nil
		a.logger = zerolog.Nop()
		return err
	}
	return nil
}

// CloseAuditLogger closes the global journal and goes back to discarding.
func CloseAuditLogger() error {
	auditMu.Lock()
	prev := auditInst
	auditInst = &AuditLogger{logger: zerolog.Nop()}
	auditMu.Unlock()
	return prev.Close()
}

// RecordSessionAudit journals one session operation. code is empty on success.
func RecordSessionAudit(ctx context.Context, source, action, path, code string, metadata map[string]interface{}) {
	status := "success"
	if code != "" {
		status = "failure"
		if metadata == nil {
			metadata = map[string]interface{}{}
		}
		metadata["code"] = code
	}
	GetAuditLogger().Record(ctx, AuditEvent{
		Type:     "session",
		Source:   source,
		Action:   action,
		Path:     path,
		Status:   status,
		Metadata: metadata,
	})
}

// RecordConfigAudit journals a configuration change such as a reload.
func RecordConfigAudit(ctx context.Context, action, source string, metadata map[string]interface{}) {
	GetAuditLogger().Record(ctx, AuditEvent{
		Type:     "config",
		Source:   source,
		Action:   action,
		Status:   "success",
		Metadata: metadata,
	})
}
