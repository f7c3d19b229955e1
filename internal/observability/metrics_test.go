package observability

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestMetricsHandler(t *testing.T) {
	RecordSessionOperation("save", 15*time.Millisecond, "")
	RecordSessionOperation("append", time.Millisecond, "NOT_FOUND")
	RecordTabsWritten("save", 4)
	RecordTabOpened()
	RecordTabsClosed(2)
	RecordCommand("tabopen", true)
	RecordAutosave(time.Unix(1700000000, 0), true)

	server := httptest.NewServer(MetricsHandler())
	defer server.Close()

	resp, err := http.Get(server.URL)
	if err != nil {
		t.Fatalf("Failed to get metrics: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("Failed to read body: %v", err)
	}
	text := string(body)

	expected := []string{
		`tabkeeper_session_operations_total{operation="save",status="success"}`,
		`tabkeeper_session_errors_total{code="NOT_FOUND",operation="append"}`,
		`tabkeeper_session_operation_duration_seconds_bucket`,
		`tabkeeper_tabs_written_total{operation="save"}`,
		`tabkeeper_tabs_opened_total`,
		`tabkeeper_tabs_closed_total`,
		`tabkeeper_commands_total{command="tabopen",status="success"}`,
		`tabkeeper_autosave_total{status="success"}`,
		`tabkeeper_last_autosave_timestamp_seconds 1.7e+09`,
	}
	for _, metric := range expected {
		if !strings.Contains(text, metric) {
			t.Errorf("Expected metrics output to contain %q", metric)
		}
	}
}

func TestEnsureRegisteredIsIdempotent(t *testing.T) {
	defer func() {
		if r := recover(); r != nil {
			t.Fatalf("EnsureRegistered panicked: %v", r)
		}
	}()

	EnsureRegistered()
	EnsureRegistered()
}
