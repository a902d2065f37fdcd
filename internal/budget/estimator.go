// Package budget approximates context consumption for one backend
// session from byte-level I/O telemetry. The 4-chars-per-token divisor
// is a deliberate heuristic: exact tokenization is backend-specific and
// unavailable uniformly, and a binary warn/rotate decision does not
// need billing-grade accuracy.
package budget

import (
	"github.com/gabrypavanello/ralph-wiggum-cli/internal/config"
	"github.com/gabrypavanello/ralph-wiggum-cli/internal/events"
)

// Counters aggregates the telemetry for one session. Values are
// monotonically non-decreasing within a session and reset only when a
// fresh context begins.
type Counters struct {
	PromptChars      int
	BytesRead        int
	BytesWritten     int
	AssistantChars   int
	ShellOutputChars int
	ToolCalls        int
	WarnSent         bool
}

// Estimator owns the counters for the active session. It is a plain
// value threaded by the controller, not ambient state; separate runs
// get separate estimators.
type Estimator struct {
	cfg *config.Config
	c   Counters
}

// New creates an estimator for a session whose prompt is promptChars
// long. The prompt is the baseline: a rotated session restarts from it.
func New(cfg *config.Config, promptChars int) *Estimator {
	return &Estimator{cfg: cfg, c: Counters{PromptChars: promptChars}}
}

// AddPromptChars accounts the prompt of a continued invocation. The
// backend keeps its context across a resume, so the new prompt grows
// the same window instead of starting a new one.
func (e *Estimator) AddPromptChars(n int) {
	e.c.PromptChars += n
}

// Observe folds one classified event into the counters. Threshold
// checks run only after a completed tool call, mirroring the cadence of
// the backend's own context growth.
func (e *Estimator) Observe(ev events.Event) events.Signal {
	switch ev.Type {
	case events.EventTypeAssistantText:
		e.c.AssistantChars += len(ev.Text)

	case events.EventTypeToolCallResult:
		e.c.ToolCalls++
		switch ev.Tool {
		case events.ToolRead:
			if ev.Bytes > 0 {
				e.c.BytesRead += ev.Bytes
			} else {
				e.c.BytesRead += ev.Lines * e.cfg.BytesPerLine
			}
		case events.ToolWrite:
			e.c.BytesWritten += ev.Bytes
		case events.ToolShell:
			e.c.ShellOutputChars += len(ev.Stdout) + len(ev.Stderr)
		}
		return e.check()
	}
	return events.SignalNone
}

// ObserveRaw accounts one raw output line from a plain-text backend.
// With no per-tool-call breakdown available, total output bytes are the
// only telemetry, and every line is a qualifying check.
func (e *Estimator) ObserveRaw(line string) events.Signal {
	e.c.AssistantChars += len(line) + 1
	return e.check()
}

func (e *Estimator) check() events.Signal {
	tokens := e.EstimatedTokens()
	if tokens >= e.cfg.RotateTokens {
		// Re-entrant by design: once over the line, every subsequent
		// check repeats ROTATE until the controller acts on it.
		return events.SignalRotate
	}
	if tokens >= e.cfg.WarnTokens && !e.c.WarnSent {
		e.c.WarnSent = true
		return events.SignalWarn
	}
	return events.SignalNone
}

// EstimatedTokens returns the current vendor-agnostic token proxy.
func (e *Estimator) EstimatedTokens() int {
	sum := e.c.PromptChars + e.c.BytesRead + e.c.BytesWritten +
		e.c.AssistantChars + e.c.ShellOutputChars
	return sum / e.cfg.CharsPerToken
}

// PercentOfRotate returns estimated tokens as a percentage of the
// rotate threshold, for health annotation.
func (e *Estimator) PercentOfRotate() float64 {
	return float64(e.EstimatedTokens()) / float64(e.cfg.RotateTokens) * 100
}

// Counters returns a copy of the session counters.
func (e *Estimator) Counters() Counters { return e.c }
