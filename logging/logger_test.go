package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestJSONLogger_LogVerdict(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf)

	entry := NewVerdictLogEntry("10.0.0.1", "GET", "/index.html", "allow")
	logger.LogVerdict(entry)

	var got VerdictLogEntry
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.ClientID != "10.0.0.1" || got.Effect != "allow" {
		t.Errorf("got %+v", got)
	}
	if !strings.HasSuffix(buf.String(), "\n") {
		t.Error("expected trailing newline")
	}
}

func TestJSONLogger_LogMaintenance(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf)

	entry := NewMaintenanceLogEntry()
	entry.ActiveClients = 42
	logger.LogMaintenance(entry)

	var got MaintenanceLogEntry
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.ActiveClients != 42 {
		t.Errorf("ActiveClients = %d, want 42", got.ActiveClients)
	}
}

func TestNopLogger(t *testing.T) {
	logger := NewNopLogger()
	// Should not panic.
	logger.LogVerdict(NewVerdictLogEntry("x", "GET", "/", "allow"))
	logger.LogMaintenance(NewMaintenanceLogEntry())
}
