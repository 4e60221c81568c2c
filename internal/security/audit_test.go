package security

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newTestAudit(t *testing.T) (*AuditLogger, string) {
	t.Helper()
	dir := t.TempDir()
	audit, err := NewAuditLogger(AuditConfig{LogDir: dir, MaxSize: 1})
	if err != nil {
		t.Fatalf("NewAuditLogger: %v", err)
	}
	return audit, filepath.Join(dir, "audit.log")
}

func TestAuditLogRedactsSecrets(t *testing.T) {
	audit, path := newTestAudit(t)
	defer audit.Close()

	err := audit.Log(context.Background(), AuditEvent{
		EventType: AuditBetRejected,
		Market:    "will-btc-close-above-150k",
		Success:   false,
		ErrorMsg:  "venue 401: api_key=sk1234567890abcdef",
		Details: map[string]interface{}{
			"note":  "retry with passphrase=correct-horse-battery",
			"price": 0.62,
		},
	})
	if err != nil {
		t.Fatalf("Log: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading audit log: %v", err)
	}
	log := string(data)

	if strings.Contains(log, "sk1234567890abcdef") || strings.Contains(log, "correct-horse-battery") {
		t.Errorf("secret written to audit trail: %s", log)
	}
	if !strings.Contains(log, "api_key=") {
		t.Errorf("redaction removed the error context: %s", log)
	}
	if !strings.Contains(log, "will-btc-close-above-150k") {
		t.Errorf("market identifier lost: %s", log)
	}
}

func TestAuditSessionLifecycle(t *testing.T) {
	audit, path := newTestAudit(t)
	defer audit.Close()

	ctx := context.Background()
	if err := audit.LogSessionStarted(ctx, "DRY_RUN", "gpt-4o-mini"); err != nil {
		t.Fatalf("LogSessionStarted: %v", err)
	}
	if err := audit.LogSessionFinished(ctx, "DONE", 3, 1); err != nil {
		t.Fatalf("LogSessionFinished: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("opening audit log: %v", err)
	}
	defer f.Close()

	var events []AuditEvent
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var ev AuditEvent
		if err := json.Unmarshal(scanner.Bytes(), &ev); err != nil {
			t.Fatalf("audit line is not JSON: %v", err)
		}
		events = append(events, ev)
	}

	if len(events) != 2 {
		t.Fatalf("len(events) = %d, want 2", len(events))
	}
	if events[0].EventType != AuditSessionStarted || events[1].EventType != AuditSessionFinished {
		t.Errorf("event types = %s, %s", events[0].EventType, events[1].EventType)
	}
	if events[0].SessionID == "" || events[0].SessionID != events[1].SessionID {
		t.Errorf("session IDs do not correlate: %q vs %q", events[0].SessionID, events[1].SessionID)
	}
	if events[1].Details["state"] != "DONE" {
		t.Errorf("finish state = %v", events[1].Details["state"])
	}
}
