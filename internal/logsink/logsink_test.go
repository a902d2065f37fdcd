package logsink

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestHealthTiers(t *testing.T) {
	tests := []struct {
		pct  float64
		want Health
	}{
		{0, HealthOK},
		{69.9, HealthOK},
		{70, HealthWarn},
		{87.5, HealthWarn},
		{99.9, HealthWarn},
		{100, HealthCrit},
		{250, HealthCrit},
	}
	for _, tt := range tests {
		if got := HealthFor(tt.pct); got != tt.want {
			t.Errorf("HealthFor(%.1f) = %s, want %s", tt.pct, got, tt.want)
		}
	}
}

func TestActivityAndErrorLines(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	s.console = nil
	s.now = func() time.Time { return time.Date(2026, 8, 23, 10, 30, 0, 0, time.UTC) }

	s.Activity(HealthOK, "read %s (%d bytes)", "main.go", 2048)
	s.Activity(HealthCrit, "shell npm test exit=1")
	s.Error("command %q exited %d (attempt %d)", "npm test", 1, 2)
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	activity, err := os.ReadFile(filepath.Join(dir, "activity.log"))
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(activity)), "\n")
	if len(lines) != 2 {
		t.Fatalf("activity lines = %d, want 2", len(lines))
	}
	if lines[0] != "2026-08-23 10:30:00 [OK] read main.go (2048 bytes)" {
		t.Errorf("line 1 = %q", lines[0])
	}
	if !strings.Contains(lines[1], "[CRIT]") {
		t.Errorf("line 2 missing health tier: %q", lines[1])
	}

	errLog, err := os.ReadFile(filepath.Join(dir, "error.log"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(errLog), `command "npm test" exited 1 (attempt 2)`) {
		t.Errorf("error log = %q", string(errLog))
	}
}

func TestAppendAcrossReopen(t *testing.T) {
	dir := t.TempDir()

	for i := 0; i < 2; i++ {
		s, err := New(dir)
		if err != nil {
			t.Fatalf("New #%d: %v", i, err)
		}
		s.console = nil
		s.Activity(HealthOK, "run %d", i)
		if err := s.Close(); err != nil {
			t.Fatal(err)
		}
	}

	data, err := os.ReadFile(filepath.Join(dir, "activity.log"))
	if err != nil {
		t.Fatal(err)
	}
	if got := strings.Count(string(data), "\n"); got != 2 {
		t.Errorf("lines after reopen = %d, want 2 (append-only)", got)
	}
}

func TestTransitionLine(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir)
	if err != nil {
		t.Fatal(err)
	}
	s.console = nil
	s.Transition(3, "ROTATE")
	s.Close()

	data, _ := os.ReadFile(filepath.Join(dir, "activity.log"))
	if !strings.Contains(string(data), "iteration 3 -> ROTATE") {
		t.Errorf("transition not recorded: %q", string(data))
	}
}
