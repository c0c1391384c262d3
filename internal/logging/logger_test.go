package logging

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// TestAllCategoriesLog checks every category writes a file when debug mode is on.
func TestAllCategoriesLog(t *testing.T) {
	ws := t.TempDir()
	if err := Initialize(ws, Options{DebugMode: true, Level: "debug"}); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	t.Cleanup(CloseAll)

	if !IsDebugMode() {
		t.Fatal("expected debug mode to be enabled")
	}

	for _, cat := range AllCategories {
		if !IsCategoryEnabled(cat) {
			t.Errorf("category %s should be enabled", cat)
		}
		l := Get(cat)
		l.Info("info for %s", cat)
		l.Debug("debug for %s", cat)
		l.Warn("warn for %s", cat)
		l.Error("error for %s", cat)
	}

	Probe("convenience probe log")
	History("convenience history log")
	Watch("convenience watch log")
	Report("convenience report log")
	Config("convenience config log")

	CloseAll()

	logsPath := filepath.Join(ws, ".probe", "logs")
	entries, err := os.ReadDir(logsPath)
	if err != nil {
		t.Fatalf("failed to read logs dir: %v", err)
	}

	for _, cat := range AllCategories {
		found := false
		for _, e := range entries {
			if strings.HasSuffix(e.Name(), "_"+string(cat)+".log") {
				found = true
				content, err := os.ReadFile(filepath.Join(logsPath, e.Name()))
				if err != nil {
					t.Errorf("failed to read log for %s: %v", cat, err)
					continue
				}
				if len(content) == 0 {
					t.Errorf("log file for %s is empty", cat)
				}
			}
		}
		if !found {
			t.Errorf("no log file for category %s", cat)
		}
	}
}

// TestDebugModeDisabled checks that nothing is written in production mode.
func TestDebugModeDisabled(t *testing.T) {
	ws := t.TempDir()
	if err := Initialize(ws, Options{DebugMode: false}); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	t.Cleanup(CloseAll)

	Probe("should not appear")
	Get(CategoryHistory).Error("nor this")

	if _, err := os.Stat(filepath.Join(ws, ".probe", "logs")); !os.IsNotExist(err) {
		t.Errorf("logs dir should not exist in production mode, stat err=%v", err)
	}
}

func TestCategoryFilter(t *testing.T) {
	ws := t.TempDir()
	err := Initialize(ws, Options{
		DebugMode:  true,
		Categories: map[string]bool{"watch": false},
	})
	if err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	t.Cleanup(CloseAll)

	if IsCategoryEnabled(CategoryWatch) {
		t.Error("watch should be disabled")
	}
	if !IsCategoryEnabled(CategoryProbe) {
		t.Error("unlisted categories default to enabled")
	}

	Watch("dropped")
	CloseAll()

	matches, _ := filepath.Glob(filepath.Join(ws, ".probe", "logs", "*_watch.log"))
	if len(matches) != 0 {
		t.Errorf("expected no watch log, got %v", matches)
	}
}

func TestInitializeRequiresWorkspace(t *testing.T) {
	if err := Initialize("", Options{}); err == nil {
		t.Error("expected error for empty workspace")
	}
}

func TestAudit_WritesJSONLines(t *testing.T) {
	ws := t.TempDir()
	if err := Initialize(ws, Options{DebugMode: true, JSONFormat: true}); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	t.Cleanup(func() {
		CloseAudit()
		CloseAll()
	})

	if err := InitAudit(); err != nil {
		t.Fatalf("InitAudit failed: %v", err)
	}

	Audit(AuditEvent{EventType: AuditRunStart, RunID: "r1", Success: true})
	Audit(AuditEvent{EventType: AuditTargetCheck, RunID: "r1", Target: "README.md", Status: "missing"})
	CloseAudit()

	matches, err := filepath.Glob(filepath.Join(ws, ".probe", "logs", "*_audit.jsonl"))
	if err != nil || len(matches) != 1 {
		t.Fatalf("expected one audit file, got %v (err=%v)", matches, err)
	}

	f, err := os.Open(matches[0])
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	var events []AuditEvent
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var ev AuditEvent
		if err := json.Unmarshal(sc.Bytes(), &ev); err != nil {
			t.Fatalf("bad audit line %q: %v", sc.Text(), err)
		}
		events = append(events, ev)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[1].Target != "README.md" || events[1].Timestamp == 0 {
		t.Errorf("unexpected event: %+v", events[1])
	}
}

func TestAudit_NoopWhenClosed(t *testing.T) {
	CloseAudit()
	// Must not panic.
	Audit(AuditEvent{EventType: AuditRunComplete})
}
