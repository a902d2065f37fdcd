package budget

import (
	"strings"
	"testing"

	"github.com/gabrypavanello/ralph-wiggum-cli/internal/config"
	"github.com/gabrypavanello/ralph-wiggum-cli/internal/events"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.WarnTokens = 100
	cfg.RotateTokens = 200
	return cfg
}

func shellResult(stdout string) events.Event {
	return events.Event{
		Type:   events.EventTypeToolCallResult,
		Tool:   events.ToolShell,
		Stdout: stdout,
	}
}

func TestEstimatedTokensDivisor(t *testing.T) {
	e := New(testConfig(), 40)
	if got := e.EstimatedTokens(); got != 10 {
		t.Fatalf("prompt-only tokens = %d, want 10", got)
	}

	e.Observe(events.Event{Type: events.EventTypeAssistantText, Text: strings.Repeat("a", 60)})
	if got := e.EstimatedTokens(); got != 25 {
		t.Errorf("tokens = %d, want 25", got)
	}
}

func TestAddPromptCharsGrowsSameWindow(t *testing.T) {
	e := New(testConfig(), 40)
	e.Observe(shellResult(strings.Repeat("x", 500))) // warns
	if !e.Counters().WarnSent {
		t.Fatal("expected warn latch to be set")
	}

	before := e.EstimatedTokens()
	e.AddPromptChars(40)
	if got := e.EstimatedTokens(); got != before+10 {
		t.Errorf("tokens = %d, want %d (continued prompt adds to the window)", got, before+10)
	}
	if !e.Counters().WarnSent {
		t.Error("continued invocation must not re-arm the warn latch")
	}
}

func TestReadContribution(t *testing.T) {
	cfg := testConfig()
	e := New(cfg, 0)

	e.Observe(events.Event{Type: events.EventTypeToolCallResult, Tool: events.ToolRead, Bytes: 400})
	if got := e.Counters().BytesRead; got != 400 {
		t.Errorf("bytesRead = %d, want 400", got)
	}

	// No reported size: lines*100 heuristic.
	e.Observe(events.Event{Type: events.EventTypeToolCallResult, Tool: events.ToolRead, Lines: 3})
	if got := e.Counters().BytesRead; got != 700 {
		t.Errorf("bytesRead = %d, want 700", got)
	}
}

func TestMonotonicWithinSession(t *testing.T) {
	e := New(testConfig(), 10)
	prev := e.EstimatedTokens()
	evs := []events.Event{
		{Type: events.EventTypeAssistantText, Text: "thinking"},
		{Type: events.EventTypeToolCallResult, Tool: events.ToolRead, Lines: 2},
		{Type: events.EventTypeToolCallResult, Tool: events.ToolWrite, Bytes: 50},
		{Type: events.EventTypeToolCallResult, Tool: events.ToolShell, Stdout: "ok"},
		{Type: events.EventTypeToolCallResult, Tool: events.ToolOther},
	}
	for i, ev := range evs {
		e.Observe(ev)
		if got := e.EstimatedTokens(); got < prev {
			t.Fatalf("event %d: tokens decreased %d -> %d", i, prev, got)
		} else {
			prev = got
		}
	}
}

func TestWarnFiresOnce(t *testing.T) {
	e := New(testConfig(), 0)

	// 500 chars = 125 tokens: past warn (100), below rotate (200).
	sig := e.Observe(shellResult(strings.Repeat("x", 500)))
	if sig != events.SignalWarn {
		t.Fatalf("first crossing = %s, want WARN", sig)
	}

	// Further qualifying checks below rotate stay silent.
	for i := 0; i < 3; i++ {
		if sig := e.Observe(shellResult("y")); sig != events.SignalNone {
			t.Fatalf("check %d after warn = %s, want NONE", i, sig)
		}
	}
}

func TestRotateRepeatsEveryCheck(t *testing.T) {
	e := New(testConfig(), 0)

	if sig := e.Observe(shellResult(strings.Repeat("x", 900))); sig != events.SignalRotate {
		t.Fatalf("crossing = %s, want ROTATE", sig)
	}
	for i := 0; i < 3; i++ {
		if sig := e.Observe(shellResult("y")); sig != events.SignalRotate {
			t.Fatalf("check %d past rotate = %s, want ROTATE again", i, sig)
		}
	}
}

func TestAssistantTextDoesNotTriggerCheck(t *testing.T) {
	e := New(testConfig(), 0)
	// Over both thresholds, but not a completed tool call.
	sig := e.Observe(events.Event{Type: events.EventTypeAssistantText, Text: strings.Repeat("x", 2000)})
	if sig != events.SignalNone {
		t.Fatalf("assistant text check = %s, want NONE (checks run after tool calls)", sig)
	}
	// The next tool call picks it up.
	if sig := e.Observe(shellResult("")); sig != events.SignalRotate {
		t.Errorf("tool call after overflow = %s, want ROTATE", sig)
	}
}

func TestRawFallback(t *testing.T) {
	e := New(testConfig(), 0)
	var last events.Signal
	for i := 0; i < 10; i++ {
		last = e.ObserveRaw(strings.Repeat("z", 99))
	}
	// 10 lines * 100 bytes = 1000 chars = 250 tokens >= 200.
	if last != events.SignalRotate {
		t.Errorf("raw fallback signal = %s, want ROTATE", last)
	}
	if e.Counters().ToolCalls != 0 {
		t.Errorf("plain-text mode must not fabricate tool calls")
	}
}

func TestFreshSessionResetsToPromptBaseline(t *testing.T) {
	cfg := testConfig()
	e := New(cfg, 80)
	e.Observe(shellResult(strings.Repeat("x", 5000)))

	rotated := New(cfg, 80)
	if got := rotated.EstimatedTokens(); got != 20 {
		t.Errorf("rotated baseline = %d tokens, want 20", got)
	}
	if rotated.Counters().WarnSent {
		t.Error("fresh session must be able to warn again")
	}
}
